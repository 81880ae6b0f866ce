package tokens

import "testing"

func TestCountTextEmpty(t *testing.T) {
	e := NewEstimator()
	if got := e.CountText("gpt-4o", ""); got != 0 {
		t.Errorf("CountText(empty) = %d, want 0", got)
	}
}

func TestCountTextNonZero(t *testing.T) {
	e := NewEstimator()
	got := e.CountText("gpt-4o", "The quick brown fox jumps over the lazy dog.")
	if got <= 0 {
		t.Errorf("CountText() = %d, want positive", got)
	}
	// A short sentence should not explode into hundreds of tokens.
	if got > 30 {
		t.Errorf("CountText() = %d, implausibly large", got)
	}
}

func TestCountTextUnknownModelFallsBack(t *testing.T) {
	e := NewEstimator()
	got := e.CountText("some-custom-model", "hello world, this is a test")
	if got <= 0 {
		t.Errorf("CountText(unknown model) = %d, want positive via fallback encoding", got)
	}
}

func TestHeuristicCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tc := range cases {
		if got := heuristicCount(tc.text); got != tc.want {
			t.Errorf("heuristicCount(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestEstimatePromptChat(t *testing.T) {
	e := NewEstimator()
	body := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"Hello there"}]}`)
	got := e.EstimatePrompt("gpt-4o", body)
	// One message: 4 framing + content + 3 priming.
	if got < 7 {
		t.Errorf("EstimatePrompt() = %d, want at least framing overhead", got)
	}
}

func TestEstimatePromptContentParts(t *testing.T) {
	e := NewEstimator()
	body := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":[{"type":"text","text":"describe this"},{"type":"image_url","image_url":{"url":"https://example.com/x.png"}}]}]}`)
	got := e.EstimatePrompt("gpt-4o", body)
	if got < 7 {
		t.Errorf("EstimatePrompt(parts) = %d, want text part counted", got)
	}
}

func TestEstimatePromptEmbeddings(t *testing.T) {
	e := NewEstimator()

	single := e.EstimatePrompt("text-embedding-3-small", []byte(`{"input":"a short document"}`))
	if single <= 0 {
		t.Errorf("EstimatePrompt(string input) = %d, want positive", single)
	}

	batch := e.EstimatePrompt("text-embedding-3-small", []byte(`{"input":["a short document","another document here"]}`))
	if batch <= single {
		t.Errorf("EstimatePrompt(batch) = %d, want more than single %d", batch, single)
	}
}

func TestEstimatePromptMalformed(t *testing.T) {
	e := NewEstimator()
	if got := e.EstimatePrompt("gpt-4o", []byte(`{"messages":`)); got != 0 {
		t.Errorf("EstimatePrompt(malformed) = %d, want 0", got)
	}
}
