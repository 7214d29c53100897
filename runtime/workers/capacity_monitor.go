package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const DefaultLowCapacityThreshold = 80

// Gauge samples the fill level of a bounded queue.
type Gauge struct {
	Name   string
	Sample func() (length, capacity int)
}

// ChannelGauge reads len and cap of ch, which never blocks.
func ChannelGauge[T any](name string, ch chan T) Gauge {
	return Gauge{Name: name, Sample: func() (int, int) { return len(ch), cap(ch) }}
}

// CapacityMonitor periodically samples queues and the process footprint.
// A queue filled above the threshold (in percent) is reported at warn level,
// it means publishers are about to get delivery failures.
type CapacityMonitor struct {
	log       *slog.Logger
	gauges    []Gauge
	interval  time.Duration
	threshold int
}

func NewCapacityMonitor(log *slog.Logger, interval time.Duration, threshold int, gauges ...Gauge) *CapacityMonitor {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultLowCapacityThreshold
	}
	return &CapacityMonitor{log: log, gauges: gauges, interval: interval, threshold: threshold}
}

func (w *CapacityMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("Process stats unavailable", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity monitor")
			return nil
		case <-ticker.C:
			w.sample()
			if p != nil {
				w.reportProcess(p)
			}
		}
	}
}

// sample returns the names of the saturated queues.
func (w *CapacityMonitor) sample() []string {
	var saturated []string
	for _, g := range w.gauges {
		length, capacity := g.Sample()
		if capacity == 0 {
			continue
		}
		percent := length * 100 / capacity
		if percent >= w.threshold {
			saturated = append(saturated, g.Name)
			w.log.Warn("Queue close to saturation", "name", g.Name,
				"length", length, "capacity", capacity, "percent", percent)
			continue
		}
		w.log.Debug("Queue capacity", "name", g.Name, "length", length, "capacity", capacity)
	}
	return saturated
}

func (w *CapacityMonitor) reportProcess(p *process.Process) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		w.log.Debug("Failed to collect memory stats", "error", err)
		return
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		w.log.Debug("Failed to collect cpu stats", "error", err)
		return
	}
	w.log.Debug("Process stats", "pid", p.Pid, "rss_bytes", memInfo.RSS, "cpu_percent", cpuPercent)
}
