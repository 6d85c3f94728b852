package processor

import (
	"fmt"
	"testing"

	"github.com/LJTian/crypturls/internal/collector"
)

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	url1 := "https://example.com/a"
	url2 := "https://example.com/b"

	h1a := hashURL(url1)
	h1b := hashURL(url1)
	h2 := hashURL(url2)

	if h1a != h1b {
		t.Fatalf("hashURL not deterministic: %q vs %q", h1a, h1b)
	}
	if h1a == h2 {
		t.Fatalf("hashURL should differ for different URLs: %q", h1a)
	}
}

func TestIsNonCryptoAI(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"OpenAI releases GPT-5 to the public", true},
		{"Anthropic raises new funding round", true},
		{"Bittensor AI agents and OpenAI tokens surge", false},
		{"Bitcoin hits new high", false},
		{"Nvidia earnings beat expectations", true},
		{"Weekly market wrap", false},
	}
	for _, c := range cases {
		if got := IsNonCryptoAI(c.title); got != c.want {
			t.Fatalf("IsNonCryptoAI(%q) = %v, want %v", c.title, got, c.want)
		}
	}
}

func TestSimpleProcessorDeduplicateAndTrim(t *testing.T) {
	p := NewSimpleProcessor()

	items := []collector.Article{
		{Title: "  Title 1  ", Link: "https://example.com/1", Source: "coindesk"},
		{Title: "Title 1 duplicate by URL", Link: "https://example.com/1", Source: "coindesk"},
		{Title: "   ", Link: "https://example.com/blank", Source: "coindesk"},
		{Title: "Broken link A", Link: "#", Source: "coindesk"},
		{Title: "Broken link B", Link: "#", Source: "coindesk"},
	}

	out := p.Process("coindesk", items)
	if len(out) != 3 {
		t.Fatalf("expected 3 processed items after dedupe, got %d: %+v", len(out), out)
	}
	if out[0].Title != "Title 1" {
		t.Fatalf("title not trimmed: %q", out[0].Title)
	}
	if out[1].Title != "Broken link A" || out[2].Title != "Broken link B" {
		t.Fatalf("items with placeholder links should be kept by title: %+v", out)
	}
}

func TestSimpleProcessorFiltersDecryptNoise(t *testing.T) {
	p := NewSimpleProcessor()

	items := []collector.Article{
		{Title: "OpenAI launches a new phone", Link: "https://decrypt.co/a"},
		{Title: "AI agents are buying Ethereum tokens", Link: "https://decrypt.co/b"},
	}
	for i := 0; i < 12; i++ {
		items = append(items, collector.Article{
			Title: fmt.Sprintf("Bitcoin story %d", i),
			Link:  fmt.Sprintf("https://decrypt.co/btc-%d", i),
		})
	}

	out := p.Process("decrypt", items)
	if len(out) != 7 {
		t.Fatalf("decrypt should be capped at 7, got %d", len(out))
	}
	for _, a := range out {
		if a.Title == "OpenAI launches a new phone" {
			t.Fatalf("pure AI headline should be dropped: %+v", out)
		}
	}
	if out[0].Title != "AI agents are buying Ethereum tokens" {
		t.Fatalf("crypto-AI crossover should be kept first, got %q", out[0].Title)
	}

	// 其他数据源不过滤
	other := p.Process("coindesk", items)
	if len(other) != len(items) {
		t.Fatalf("coindesk items = %d, want %d", len(other), len(items))
	}
}
