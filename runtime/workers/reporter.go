package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-relay/contract"

	"github.com/shirou/gopsutil/process"
)

// ReporterWorker periodically logs relay gauges: how many rooms have
// live members, how many connections exist, and what the process
// itself costs in CPU and memory.
type ReporterWorker struct {
	registry contract.IRegistry
	interval time.Duration
	log      *slog.Logger
}

func NewReporterWorker(registry contract.IRegistry, interval time.Duration, log *slog.Logger) *ReporterWorker {
	return &ReporterWorker{registry: registry, interval: interval, log: log}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Still report registry gauges even if process stats are
		// unavailable on this platform.
		w.log.Warn("Process stats unavailable", "error", err)
		self = nil
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping reporter worker")
			return nil
		case <-ticker.C:
			w.report(self)
		}
	}
}

func (w *ReporterWorker) report(self *process.Process) {
	rooms, connections := w.registry.Counts()
	attrs := []any{"rooms", rooms, "connections", connections}

	if self != nil {
		if cpu, err := self.CPUPercent(); err == nil {
			attrs = append(attrs, "cpu_percent", cpu)
		}
		if ram, err := self.MemoryPercent(); err == nil {
			attrs = append(attrs, "ram_percent", ram)
		}
	}
	w.log.Info("Relay telemetry", attrs...)
}
