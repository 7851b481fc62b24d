package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
)

// MockServer stands in for a running dataflow-engine server so the sample
// program can be exercised without a real pipeline.
type MockServer struct {
	Server *httptest.Server
}

func NewMockServer() *MockServer {
	ms := &MockServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/v1/steps", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"steps": []map[string]any{
				{"Key": "k1", "Name": "extract_orders", "Capability": "extract", "Ordinal": 0},
				{"Key": "k2", "Name": "load_orders", "Capability": "load", "Ordinal": 1},
			},
		})
	})
	mux.HandleFunc("/v1/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "mock-run", "status": "running"})
	})
	mux.HandleFunc("/v1/run/mock-run/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"seq":1,"event":"run_started","run_id":"mock-run"}`,
			"",
			`data: {"seq":2,"event":"run_succeeded","run_id":"mock-run"}`,
			"",
		}
		_, _ = w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	})
	ms.Server = httptest.NewServer(mux)
	return ms
}

func (m *MockServer) Close() {
	if m.Server != nil {
		m.Server.Close()
	}
}
