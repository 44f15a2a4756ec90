package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const completionJSON = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
"choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],
"usage":{"prompt_tokens":8,"completion_tokens":1,"total_tokens":9}}`

func TestTextCompleteAppendsTranscript(t *testing.T) {
	api := &fakeTransport{responses: []string{completionJSON, completionJSON}}
	dir := useFakes(t, api, &fakeTransport{})
	t.Setenv("API_KEY", "sk-test")

	for i := 0; i < 2; i++ {
		if code := run([]string{"text", "complete", "hello"}); code != 0 {
			t.Fatalf("text complete returned non-zero: %d", code)
		}
	}
	b, err := os.ReadFile(filepath.Join(dir, "completion_responses.txt"))
	if err != nil {
		t.Fatalf("missing transcript: %v", err)
	}
	want := "user ::: hello\nassistant ::: hi\nuser ::: hello\nassistant ::: hi\n"
	if string(b) != want {
		t.Fatalf("transcript mismatch:\n got %q\nwant %q", b, want)
	}
}

func TestTextCompleteModelFlag(t *testing.T) {
	api := &fakeTransport{responses: []string{completionJSON}}
	useFakes(t, api, &fakeTransport{})
	t.Setenv("API_KEY", "sk-test")

	if code := run([]string{"text", "complete", "hello", "--model", "gpt-4o-mini"}); code != 0 {
		t.Fatalf("text complete returned non-zero: %d", code)
	}
	var body struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(api.requests[0].Body, &body); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if body.Model != "gpt-4o-mini" {
		t.Fatalf("model flag not applied: %s", body.Model)
	}
}

func TestTextCompleteConfigFile(t *testing.T) {
	api := &fakeTransport{responses: []string{completionJSON}}
	dir := useFakes(t, api, &fakeTransport{})
	t.Setenv("API_KEY", "")
	t.Setenv("MY_TOKEN", "sk-custom")
	cfg := "apiKeyEnv: MY_TOKEN\nbaseURL: https://llm.internal/v1\ntranscript: chat.log\n"
	if err := os.WriteFile(filepath.Join(dir, "synthbrain.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if code := run([]string{"text", "complete", "hello", "--config", "synthbrain.yaml"}); code != 0 {
		t.Fatalf("text complete returned non-zero: %d", code)
	}
	req := api.requests[0]
	if req.URL() != "https://llm.internal/v1/chat/completions" {
		t.Fatalf("base URL not applied: %s", req.URL())
	}
	if req.Header.Get("Authorization") != "Bearer sk-custom" {
		t.Fatalf("api key env not applied: %q", req.Header.Get("Authorization"))
	}
	if _, err := os.Stat(filepath.Join(dir, "chat.log")); err != nil {
		t.Fatalf("custom transcript not written: %v", err)
	}
}
