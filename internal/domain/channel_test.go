package domain

import (
	"testing"
	"time"
)

func TestChannelServesModel(t *testing.T) {
	cases := []struct {
		models string
		model  string
		want   bool
	}{
		{"gpt-4o,gpt-4o-mini", "gpt-4o", true},
		{"gpt-4o, gpt-4o-mini", "gpt-4o-mini", true},
		{"gpt-4o", "gpt-4", false},
		{"*", "anything", true},
		{"gpt-4o,*", "claude-3-5-sonnet", true},
		{"", "gpt-4o", false},
	}
	for _, tc := range cases {
		ch := Channel{Models: tc.models}
		if got := ch.ServesModel(tc.model); got != tc.want {
			t.Errorf("ServesModel(%q) with models %q = %v, want %v", tc.model, tc.models, got, tc.want)
		}
	}
}

func TestChannelModelList(t *testing.T) {
	ch := Channel{Models: "gpt-4o, *, gpt-4o-mini,"}
	got := ch.ModelList()
	want := []string{"gpt-4o", "gpt-4o-mini"}
	if len(got) != len(want) {
		t.Fatalf("ModelList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ModelList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChannelUpstreamModel(t *testing.T) {
	ch := Channel{ModelMap: map[string]string{"gpt-4o": "gpt4o-deploy", "empty": ""}}
	if got := ch.UpstreamModel("gpt-4o"); got != "gpt4o-deploy" {
		t.Errorf("UpstreamModel(mapped) = %q", got)
	}
	if got := ch.UpstreamModel("gpt-4"); got != "gpt-4" {
		t.Errorf("UpstreamModel(unmapped) = %q, want pass-through", got)
	}
	if got := ch.UpstreamModel("empty"); got != "empty" {
		t.Errorf("UpstreamModel(empty mapping) = %q, want pass-through", got)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)

	open := Token{}
	if open.Expired(now) {
		t.Error("token without expiry reported expired")
	}

	future := now.Add(time.Hour)
	if (&Token{ExpiresAt: &future}).Expired(now) {
		t.Error("future expiry reported expired")
	}

	past := now.Add(-time.Hour)
	if !(&Token{ExpiresAt: &past}).Expired(now) {
		t.Error("past expiry reported live")
	}

	if !(&Token{ExpiresAt: &now}).Expired(now) {
		t.Error("expiry at the boundary instant must count as expired")
	}
}

func TestTokenQuotaRemaining(t *testing.T) {
	if !(&Token{Quota: 0, UsedQuota: 1 << 40}).QuotaRemaining() {
		t.Error("zero cap means unlimited")
	}
	if !(&Token{Quota: 100, UsedQuota: 99}).QuotaRemaining() {
		t.Error("quota below cap reported spent")
	}
	if (&Token{Quota: 100, UsedQuota: 100}).QuotaRemaining() {
		t.Error("spent quota reported remaining")
	}
	if (&Token{Quota: 100, UsedQuota: 130}).QuotaRemaining() {
		t.Error("overdrafted quota reported remaining")
	}
}
