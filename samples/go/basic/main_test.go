package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/example/dataflow-engine/samples/go/basic/internal"
)

func TestSampleMain(t *testing.T) {
	server := internal.NewMockServer()
	defer server.Close()
	os.Setenv("DATAFLOW_ENGINE_ADDR", server.Server.URL)

	var buf bytes.Buffer
	stdout := os.Stdout
	stderr := os.Stderr
	os.Stdout = &buf
	os.Stderr = &buf
	defer func() {
		os.Stdout = stdout
		os.Stderr = stderr
	}()

	main()

	output, _ := io.ReadAll(&buf)
	text := string(output)
	if !strings.Contains(text, "Submitting job") {
		t.Fatalf("sample output missing expected text: %s", text)
	}
	if !strings.Contains(text, "Registered steps") {
		t.Fatalf("sample output missing step listing: %s", text)
	}
}
