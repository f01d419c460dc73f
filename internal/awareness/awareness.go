// Package awareness builds the bot's self/environment snippet: host and
// process facts rendered as a short prompt section so the persona can
// answer questions about where and how it is running.
package awareness

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// Provider produces the awareness snippet. Probing the host is not free,
// so snapshots are cached and refreshed at most once per RefreshInterval.
type Provider struct {
	logger    *slog.Logger
	interval  time.Duration
	startedAt time.Time

	mu        sync.Mutex
	cached    string
	refreshed time.Time
}

// NewProvider creates a provider. interval bounds how often the host is
// re-probed.
func NewProvider(logger *slog.Logger, interval time.Duration) *Provider {
	return &Provider{
		logger:    logger.With("component", "awareness"),
		interval:  interval,
		startedAt: time.Now(),
	}
}

// Snapshot returns the current awareness snippet, re-probing the host when
// the cached one is older than the refresh interval. The current-time line
// is rendered fresh on every call; only the host facts are cached. Probe
// failures degrade to partial snippets rather than errors; awareness is
// never worth failing a turn over.
func (p *Provider) Snapshot(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == "" || time.Since(p.refreshed) >= p.interval {
		p.cached = p.probe(ctx)
		p.refreshed = time.Now()
	}

	return p.cached + fmt.Sprintf("\n- Current time: %s", time.Now().Format("Monday, 2 January 2006 15:04 MST"))
}

func (p *Provider) probe(ctx context.Context) string {
	lines := []string{
		"About your runtime environment:",
		fmt.Sprintf("- Uptime: %s, running on %s/%s with %d CPUs", formatUptime(time.Since(p.startedAt)), runtime.GOOS, runtime.GOARCH, runtime.NumCPU()),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		lines = append(lines, fmt.Sprintf("- Host: %s (%s %s)", info.Hostname, info.Platform, info.PlatformVersion))
	} else {
		p.logger.DebugContext(ctx, "Host probe failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		lines = append(lines, fmt.Sprintf("- Memory: %.1f%% of %.1f GB in use", vm.UsedPercent, float64(vm.Total)/(1<<30)))
	} else {
		p.logger.DebugContext(ctx, "Memory probe failed", "error", err)
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		lines = append(lines, fmt.Sprintf("- CPU load: %.1f%%", percents[0]))
	} else if err != nil {
		p.logger.DebugContext(ctx, "CPU probe failed", "error", err)
	}

	return strings.Join(lines, "\n")
}

func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}
