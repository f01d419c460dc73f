package awareness_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dkoksal/mira/internal/awareness"
)

func TestSnapshot(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := awareness.NewProvider(log, time.Minute)

	snap := p.Snapshot(context.Background())
	if snap == "" {
		t.Fatal("snapshot is empty")
	}
	for _, want := range []string{"Uptime", "Current time"} {
		if !strings.Contains(snap, want) {
			t.Errorf("snapshot missing %q:\n%s", want, snap)
		}
	}
}

// withoutTimeLine strips the current-time line, which is rendered fresh on
// every call and so may differ between snapshots.
func withoutTimeLine(t *testing.T, snap string) string {
	t.Helper()

	var kept []string
	for _, line := range strings.Split(snap, "\n") {
		if strings.HasPrefix(line, "- Current time:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func TestSnapshot_Cached(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := awareness.NewProvider(log, time.Hour)

	first := p.Snapshot(context.Background())
	second := p.Snapshot(context.Background())
	if withoutTimeLine(t, first) != withoutTimeLine(t, second) {
		t.Error("host facts changed within the refresh interval")
	}
}

func TestSnapshot_FreshTimeLine(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := awareness.NewProvider(log, time.Hour)

	now := time.Now()
	snap := p.Snapshot(context.Background())

	// The time line must reflect the call time, not the time the host
	// facts were gathered, even when the snapshot is served from cache.
	want := "- Current time: " + now.Format("Monday, 2 January 2006 15:04 MST")
	wantNext := "- Current time: " + now.Add(time.Minute).Format("Monday, 2 January 2006 15:04 MST")
	if !strings.Contains(snap, want) && !strings.Contains(snap, wantNext) {
		t.Errorf("snapshot missing a current time line:\n%s", snap)
	}

	second := p.Snapshot(context.Background())
	if !strings.Contains(second, "- Current time:") {
		t.Errorf("cached snapshot missing the time line:\n%s", second)
	}
}
