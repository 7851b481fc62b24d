package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/dataflow-engine/internal/pipeline"
	"github.com/example/dataflow-engine/internal/server"
)

func TestServer_StepsAndRunOverHTTP(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	srv := server.NewServer(p)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	stepsResp, err := http.Get(ts.URL + "/v1/steps")
	if err != nil {
		t.Fatalf("GET /v1/steps に失敗しました: %v", err)
	}
	defer stepsResp.Body.Close()
	if stepsResp.StatusCode != http.StatusOK {
		t.Fatalf("想定外のステータスコードです: %d", stepsResp.StatusCode)
	}

	runResp, err := http.Post(ts.URL+"/v1/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/run に失敗しました: %v", err)
	}
	defer runResp.Body.Close()
	if runResp.StatusCode != http.StatusAccepted {
		t.Fatalf("想定外のステータスコードです: %d", runResp.StatusCode)
	}

	var run server.Run
	if err := json.NewDecoder(runResp.Body).Decode(&run); err != nil {
		t.Fatalf("run のデコードに失敗しました: %v", err)
	}

	var last server.Run
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		getResp, err := http.Get(ts.URL + "/v1/run/" + run.ID)
		if err != nil {
			t.Fatalf("GET /v1/run/%s に失敗しました: %v", run.ID, err)
		}
		json.NewDecoder(getResp.Body).Decode(&last)
		getResp.Body.Close()
		if last.Status != server.RunRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if last.Status != server.RunSucceeded {
		t.Fatalf("run が成功しませんでした: %+v", last)
	}
}

func TestServer_MetricsEndpointExposesPrometheusFormat(t *testing.T) {
	t.Parallel()

	srv := server.NewServer(pipeline.NewPipeline())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics に失敗しました: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("想定外のステータスコードです: %d", resp.StatusCode)
	}
}
