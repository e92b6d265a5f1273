package svg

import (
	"strings"
	"testing"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []float64{500, 600, 0, 1250}, []string{"0–30 Days", "31–60 Days", "61–90 Days", ">90 Days"}, BarOpts{
		Title:       "Aging buckets",
		Description: "Receivable per bucket",
		Highlight:   3,
	})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if got := strings.Count(output, "<rect"); got != 4 {
		t.Fatalf("expected 4 bars, got %d", got)
	}
	if !strings.Contains(output, "#dc2626") {
		t.Fatalf("expected overflow bar highlight")
	}
	if !strings.Contains(output, "&gt;90 Days") {
		t.Fatalf("expected escaped overflow label")
	}
}

func TestBarsRejectsMismatchedSeries(t *testing.T) {
	if _, err := Bars(0, 0, []float64{1}, []string{"a", "b"}, BarOpts{Highlight: -1}); err == nil {
		t.Fatalf("expected error for mismatched labels")
	}
	if _, err := Bars(0, 0, nil, nil, BarOpts{}); err == nil {
		t.Fatalf("expected error for empty series")
	}
}

func TestBarsAllZero(t *testing.T) {
	html, err := Bars(0, 0, []float64{0, 0}, []string{"a", "b"}, BarOpts{Highlight: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(html), "NaN") {
		t.Fatalf("zero series must not produce NaN coordinates")
	}
}

func TestFormatTick(t *testing.T) {
	cases := map[float64]string{
		0:          "0",
		950:        "950",
		12_500:     "12.5k",
		250_000:    "2.5L",
		35_000_000: "3.5Cr",
	}
	for in, want := range cases {
		if got := formatTick(in); got != want {
			t.Fatalf("formatTick(%v) = %q, want %q", in, got, want)
		}
	}
}
