package batch

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func selectionFixture() *fakeCatalog {
	f := newFakeCatalog("real", "placeholder", "missing", "broken")
	f.real["real"] = true
	f.placeholders["placeholder"] = true
	f.checkErr["broken"] = errors.New("index unavailable")
	return f
}

func selectedNames(sel Selection) string {
	out := make([]string, len(sel.Items))
	for i, it := range sel.Items {
		out[i] = it.Name
	}
	return strings.Join(out, ",")
}

func TestSelect(t *testing.T) {
	tests := []struct {
		mode            Mode
		want            string
		wantAlreadyDone int
		wantNotSelected int
	}{
		{ModeMissing, "missing,broken", 2, 0},
		{ModeExisting, "real", 1, 2},
		{ModeAll, "real,placeholder,missing,broken", 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := selectionFixture()
			sel, err := Select(context.Background(), f.assets, tt.mode, "", f)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := selectedNames(sel); got != tt.want {
				t.Errorf("selected %q, want %q", got, tt.want)
			}
			if sel.Missing != 2 || sel.Existing != 1 || sel.PlaceholderOnly != 1 {
				t.Errorf("partitions missing=%d existing=%d placeholder=%d", sel.Missing, sel.Existing, sel.PlaceholderOnly)
			}
			if sel.AlreadyDone != tt.wantAlreadyDone || sel.NotSelected != tt.wantNotSelected {
				t.Errorf("alreadyDone=%d notSelected=%d, want %d and %d",
					sel.AlreadyDone, sel.NotSelected, tt.wantAlreadyDone, tt.wantNotSelected)
			}
			for i, it := range sel.Items {
				if it.Index != i {
					t.Errorf("item %s has index %d, want %d", it.Name, it.Index, i)
				}
			}
		})
	}
}

func TestSelectFilter(t *testing.T) {
	f := selectionFixture()
	sel, err := Select(context.Background(), f.assets, ModeAll, "*i*", f)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := selectedNames(sel); got != "missing" {
		t.Errorf("selected %q, want missing", got)
	}
	if sel.Filtered != 3 {
		t.Errorf("Filtered = %d, want 3", sel.Filtered)
	}
}

func TestSelectBadFilter(t *testing.T) {
	f := selectionFixture()
	if _, err := Select(context.Background(), f.assets, ModeAll, "[", f); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestSelectCancelledContext(t *testing.T) {
	f := selectionFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Select(ctx, f.assets, ModeAll, "", f); err == nil {
		t.Error("expected error for cancelled context")
	}
}
