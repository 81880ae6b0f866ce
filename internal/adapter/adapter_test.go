package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/cheluen/new-api-workers/internal/domain"
)

func openAIChannel() *domain.Channel {
	return &domain.Channel{
		ID:      1,
		Name:    "openai-main",
		Type:    domain.ChannelTypeOpenAI,
		Key:     "sk-upstream",
		BaseURL: "https://api.openai.com",
		Models:  "gpt-4o,gpt-4o-mini",
		Status:  domain.ChannelStatusEnabled,
	}
}

func TestBuildUpstreamRequestPassThrough(t *testing.T) {
	body := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	caller := http.Header{}
	caller.Set("Authorization", "Bearer sk-caller")
	caller.Set("Accept-Encoding", "gzip")

	req, err := BuildUpstreamRequest(openAIChannel(), "/v1/chat/completions", body, caller)
	if err != nil {
		t.Fatalf("BuildUpstreamRequest() error = %v", err)
	}

	if req.URL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("URL = %q", req.URL)
	}
	if !bytes.Equal(req.Body, body) {
		t.Error("body without remap must pass through byte-for-byte")
	}
	if req.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", req.Model)
	}
	if req.Stream {
		t.Error("Stream = true for non-streaming body")
	}
	if got := req.Headers.Get("Authorization"); got != "Bearer sk-upstream" {
		t.Errorf("Authorization = %q, caller credential must not leak upstream", got)
	}
	if got := req.Headers.Get("Accept-Encoding"); got != "gzip" {
		t.Errorf("Accept-Encoding = %q, want forwarded gzip", got)
	}
}

func TestBuildUpstreamRequestRemap(t *testing.T) {
	ch := openAIChannel()
	ch.ModelMap = map[string]string{"gpt-4o": "gpt-4o-2024-08-06"}
	body := []byte(`{"model":"gpt-4o","stream":true,"messages":[]}`)

	req, err := BuildUpstreamRequest(ch, "/v1/chat/completions", body, http.Header{})
	if err != nil {
		t.Fatalf("BuildUpstreamRequest() error = %v", err)
	}

	if req.Model != "gpt-4o-2024-08-06" {
		t.Errorf("Model = %q, want remapped gpt-4o-2024-08-06", req.Model)
	}
	if !req.Stream {
		t.Error("Stream = false, want true")
	}

	var payload map[string]any
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("remapped body is not JSON: %v", err)
	}
	if payload["model"] != "gpt-4o-2024-08-06" {
		t.Errorf("body model = %v, want remapped name", payload["model"])
	}
	if payload["stream"] != true {
		t.Error("remap dropped the stream flag")
	}
}

func TestBuildUpstreamRequestBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"model":`},
		{"missing model", `{"messages":[]}`},
		{"blank model", `{"model":"  "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildUpstreamRequest(openAIChannel(), "/v1/chat/completions", []byte(tc.body), http.Header{})
			var re *domain.RelayError
			if !errors.As(err, &re) {
				t.Fatalf("error = %v, want RelayError", err)
			}
			if re.Status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", re.Status)
			}
		})
	}
}

func TestBuildURLTrimsTrailingSlash(t *testing.T) {
	ch := openAIChannel()
	ch.BaseURL = "https://api.openai.com/"

	a := ForType(ch.Type)
	if got := a.BuildURL(ch, "/v1/embeddings", "text-embedding-3-small", false); got != "https://api.openai.com/v1/embeddings" {
		t.Errorf("BuildURL() = %q", got)
	}
}

func TestAzureAdapter(t *testing.T) {
	ch := &domain.Channel{
		Type:    domain.ChannelTypeAzure,
		Key:     "azure-key",
		BaseURL: "https://example.openai.azure.com",
	}
	a := ForType(ch.Type)

	url := a.BuildURL(ch, "/v1/chat/completions", "gpt-4o-deploy", false)
	want := "https://example.openai.azure.com/openai/deployments/gpt-4o-deploy/chat/completions?api-version=" + azureAPIVersion
	if url != want {
		t.Errorf("BuildURL() = %q, want %q", url, want)
	}

	h := a.BuildHeaders(ch, http.Header{})
	if h.Get("api-key") != "azure-key" {
		t.Errorf("api-key = %q", h.Get("api-key"))
	}
	if h.Get("Authorization") != "" {
		t.Error("Azure must not carry an Authorization header")
	}
}

func TestAnthropicAdapter(t *testing.T) {
	ch := &domain.Channel{
		Type:    domain.ChannelTypeAnthropic,
		Key:     "ant-key",
		BaseURL: "https://api.anthropic.com",
	}
	a := ForType(ch.Type)

	if url := a.BuildURL(ch, "/v1/chat/completions", "claude-3-5-sonnet", true); url != "https://api.anthropic.com/v1/messages" {
		t.Errorf("BuildURL() = %q", url)
	}

	h := a.BuildHeaders(ch, http.Header{})
	if h.Get("x-api-key") != "ant-key" {
		t.Errorf("x-api-key = %q", h.Get("x-api-key"))
	}
	if h.Get("anthropic-version") != anthropicVersion {
		t.Errorf("anthropic-version = %q", h.Get("anthropic-version"))
	}
}

func TestGoogleAdapter(t *testing.T) {
	ch := &domain.Channel{
		Type:    domain.ChannelTypeGoogle,
		Key:     "goog-key",
		BaseURL: "https://generativelanguage.googleapis.com",
	}
	a := ForType(ch.Type)

	cases := []struct {
		path   string
		stream bool
		want   string
	}{
		{"/v1/chat/completions", false, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent"},
		{"/v1/chat/completions", true, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:streamGenerateContent?alt=sse"},
		{"/v1/embeddings", false, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:embedContent"},
	}
	for _, tc := range cases {
		if got := a.BuildURL(ch, tc.path, "gemini-1.5-pro", tc.stream); got != tc.want {
			t.Errorf("BuildURL(%q, stream=%v) = %q, want %q", tc.path, tc.stream, got, tc.want)
		}
	}

	h := a.BuildHeaders(ch, http.Header{})
	if h.Get("x-goog-api-key") != "goog-key" {
		t.Errorf("x-goog-api-key = %q", h.Get("x-goog-api-key"))
	}
}

func TestForTypeUnknownFallsBackToOpenAI(t *testing.T) {
	ch := &domain.Channel{
		Type:    domain.ChannelType("something-new"),
		Key:     "k",
		BaseURL: "https://example.com",
	}
	a := ForType(ch.Type)
	if got := a.BuildURL(ch, "/v1/chat/completions", "m", false); got != "https://example.com/v1/chat/completions" {
		t.Errorf("BuildURL() = %q, want OpenAI-compatible pass-through", got)
	}
	if h := a.BuildHeaders(ch, http.Header{}); h.Get("Authorization") != "Bearer k" {
		t.Errorf("Authorization = %q", h.Get("Authorization"))
	}
}
