package server_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/dataflow-engine/internal/pipeline"
	"github.com/example/dataflow-engine/internal/server"
)

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.NewPipeline()

	extract := pipeline.NewExtractStep("extract_users", func(map[string]any) (pipeline.Result, error) {
		return pipeline.ContextResult(pipeline.NewContext("extract_users_subcontext")), nil
	})
	load := pipeline.NewLoadStep("load_users", func(map[string]any) (pipeline.Result, error) {
		return pipeline.NoResult(), nil
	})

	if _, err := p.AddStep(extract); err != nil {
		t.Fatalf("extract の登録に失敗しました: %v", err)
	}
	if _, err := p.AddStep(load); err != nil {
		t.Fatalf("load の登録に失敗しました: %v", err)
	}
	if err := p.SetTargetExtract(extract); err != nil {
		t.Fatalf("SetTargetExtract に失敗しました: %v", err)
	}
	if err := p.SetTargetLoad(load); err != nil {
		t.Fatalf("SetTargetLoad に失敗しました: %v", err)
	}
	return p
}

func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	h := server.NewHandler(newTestPipeline(t), time.Time{}, "test-version")
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func decodeJSON(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("JSON のデコードに失敗しました: %v, body=%s", err, string(body))
	}
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("ステータスコードが想定外です: got %d, want %d", got, want)
	}
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	assertStatus(t, resp.Code, http.StatusOK)

	var payload map[string]any
	decodeJSON(t, resp.Body.Bytes(), &payload)
	if payload["status"] != "ok" {
		t.Fatalf("/health の status が想定外です: %+v", payload)
	}
	if payload["version"] != "test-version" {
		t.Fatalf("/health の version が想定外です: %+v", payload)
	}
}

func TestHandler_Steps(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/steps", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	assertStatus(t, resp.Code, http.StatusOK)

	var payload struct {
		Steps []struct {
			Name       string `json:"Name"`
			Capability string `json:"Capability"`
			Ordinal    int    `json:"Ordinal"`
		} `json:"steps"`
	}
	decodeJSON(t, resp.Body.Bytes(), &payload)
	if len(payload.Steps) != 2 {
		t.Fatalf("登録済みステップ数が想定外です: got %d, want 2", len(payload.Steps))
	}
	if payload.Steps[0].Name != "extract_users" || payload.Steps[0].Capability != "extract" {
		t.Fatalf("1 番目のステップが想定外です: %+v", payload.Steps[0])
	}
}

func TestHandler_ResumePointWithoutCacheReportsNotResumable(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/checkpoint/resume-point", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	assertStatus(t, resp.Code, http.StatusOK)

	var payload struct {
		Resumable bool `json:"resumable"`
	}
	decodeJSON(t, resp.Body.Bytes(), &payload)
	if payload.Resumable {
		t.Fatal("キャッシュを設定していないのに resumable が true です")
	}
}

func TestHandler_RunExecutesAndReportsStatus(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/run", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	assertStatus(t, resp.Code, http.StatusAccepted)

	var run server.Run
	decodeJSON(t, resp.Body.Bytes(), &run)
	if run.ID == "" {
		t.Fatal("run id が空です")
	}

	var last server.Run
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		getReq := httptest.NewRequest(http.MethodGet, "/v1/run/"+run.ID, nil)
		getResp := httptest.NewRecorder()
		mux.ServeHTTP(getResp, getReq)
		decodeJSON(t, getResp.Body.Bytes(), &last)
		if last.Status != server.RunRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if last.Status != server.RunSucceeded {
		t.Fatalf("run の最終ステータスが想定外です: %+v", last)
	}
}

func TestHandler_RunRejectsConcurrentExecution(t *testing.T) {
	t.Parallel()

	// the first run blocks in its extract step until the test returns, so it
	// is still in flight when the second POST arrives
	release := make(chan struct{})
	defer close(release)
	p := pipeline.NewPipeline()
	extract := pipeline.NewExtractStep("extract_blocking", func(map[string]any) (pipeline.Result, error) {
		<-release
		return pipeline.NoResult(), nil
	})
	p.AddStep(extract)
	p.SetTargetExtract(extract)
	mux := http.NewServeMux()
	server.NewHandler(p, time.Time{}, "test-version").Register(mux)

	first := httptest.NewRequest(http.MethodPost, "/v1/run", nil)
	firstResp := httptest.NewRecorder()
	mux.ServeHTTP(firstResp, first)
	assertStatus(t, firstResp.Code, http.StatusAccepted)

	second := httptest.NewRequest(http.MethodPost, "/v1/run", nil)
	secondResp := httptest.NewRecorder()
	mux.ServeHTTP(secondResp, second)

	if secondResp.Code != http.StatusConflict {
		t.Fatalf("2 回目の POST /v1/run のステータスコードが想定外です: %d", secondResp.Code)
	}
}

func TestHandler_RunEventsStreamsUntilTerminalEvent(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)

	ts := httptest.NewServer(mux)
	defer ts.Close()

	postResp, err := http.Post(ts.URL+"/v1/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/run に失敗しました: %v", err)
	}
	defer postResp.Body.Close()

	var run server.Run
	if err := json.NewDecoder(postResp.Body).Decode(&run); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	streamResp, err := client.Get(ts.URL + "/v1/run/" + run.ID + "/events")
	if err != nil {
		t.Fatalf("イベントストリームの取得に失敗しました: %v", err)
	}
	defer streamResp.Body.Close()

	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("イベントストリームのステータスコードが想定外です: %d", streamResp.StatusCode)
	}

	scanner := bufio.NewScanner(streamResp.Body)
	var sawTerminal bool
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if strings.Contains(line, "run_succeeded") || strings.Contains(line, "run_failed") {
			sawTerminal = true
			break
		}
	}
	if !sawTerminal {
		t.Fatal("run_succeeded または run_failed イベントを観測できませんでした")
	}
}

func TestHandler_UnknownRunReturnsNotFound(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/run/does-not-exist", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	assertStatus(t, resp.Code, http.StatusNotFound)
}
