package batch

import (
	"strings"
	"testing"
	"time"
)

func TestMediaEntryIsVideo(t *testing.T) {
	tests := []struct {
		entry MediaEntry
		want  bool
	}{
		{MediaEntry{URL: "https://x/a.jpeg", Type: "image"}, false},
		{MediaEntry{URL: "https://x/a.jpeg", Type: "video"}, true},
		{MediaEntry{URL: "https://x/a.mp4", Type: "image"}, false},
		{MediaEntry{URL: "https://x/a.mp4"}, true},
		{MediaEntry{URL: "https://x/a.webm?x=1"}, true},
		{MediaEntry{URL: "https://x/a.png"}, false},
	}
	for _, tt := range tests {
		if got := tt.entry.IsVideo(); got != tt.want {
			t.Errorf("%+v.IsVideo() = %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestRunReportSummary(t *testing.T) {
	r := RunReport{
		Selected:            10,
		Completed:           8,
		PreviewsGenerated:   5,
		PlaceholdersCreated: 2,
		SkippedAlreadyDone:  4,
		InfoFailures:        1,
		Cancelled:           true,
	}
	got := r.Summary()
	for _, want := range []string{"Cancelled:", "8/10 processed", "5 previews", "2 placeholders", "4 already done", "1 metadata failures"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "preview failures") {
		t.Errorf("Summary() = %q should omit zero counters", got)
	}
}

func TestRunReportDuration(t *testing.T) {
	start := time.Now()
	r := RunReport{StartedAt: start}
	if r.Duration() != 0 {
		t.Error("unfinished run should have zero duration")
	}
	r.FinishedAt = start.Add(3 * time.Second)
	if r.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v", r.Duration())
	}
}

func TestStateString(t *testing.T) {
	if StateNeedsPlaceholder.String() != "needs_placeholder" {
		t.Errorf("got %q", StateNeedsPlaceholder.String())
	}
	if State(99).String() != "state(99)" {
		t.Errorf("got %q", State(99).String())
	}
}
