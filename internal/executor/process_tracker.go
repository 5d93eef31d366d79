package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/bridge"
)

// TrackedProcess is an external process launched by the bridge
type TrackedProcess struct {
	PID       int       `json:"pid"`
	Operation string    `json:"operation"`
	StartedAt time.Time `json:"started_at"`
}

// ProcessStats is a resource sample of one tracked process
type ProcessStats struct {
	TrackedProcess
	CPUPercent float64 `json:"cpu_percent"`
	RSS        uint64  `json:"rss"`
}

// Stats is a snapshot of host and in-flight process usage
type Stats struct {
	CPUUsage     float64        `json:"cpu_usage"`
	MemoryUsage  float64        `json:"memory_usage"`
	ProcessCount int            `json:"process_count"`
	Processes    []ProcessStats `json:"processes,omitempty"`
	CollectedAt  time.Time      `json:"collected_at"`
}

// ProcessTracker keeps the set of running bridge processes. It implements
// bridge.ProcessObserver.
type ProcessTracker struct {
	logger    *zap.Logger
	mu        sync.RWMutex
	processes map[int]TrackedProcess
}

// NewProcessTracker creates an empty tracker
func NewProcessTracker(logger *zap.Logger) *ProcessTracker {
	return &ProcessTracker{
		logger:    logger.Named("process-tracker"),
		processes: make(map[int]TrackedProcess),
	}
}

// ProcessStarted implements bridge.ProcessObserver
func (t *ProcessTracker) ProcessStarted(pid int, operation string) {
	t.mu.Lock()
	t.processes[pid] = TrackedProcess{PID: pid, Operation: operation, StartedAt: time.Now()}
	t.mu.Unlock()

	t.logger.Debug("Process started",
		zap.Int("pid", pid),
		zap.String("operation", operation))
}

// ProcessExited implements bridge.ProcessObserver
func (t *ProcessTracker) ProcessExited(pid int) {
	t.mu.Lock()
	delete(t.processes, pid)
	t.mu.Unlock()

	t.logger.Debug("Process exited", zap.Int("pid", pid))
}

// Running returns the tracked processes ordered by start time
func (t *ProcessTracker) Running() []TrackedProcess {
	t.mu.RLock()
	out := make([]TrackedProcess, 0, len(t.processes))
	for _, p := range t.processes {
		out = append(out, p)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Snapshot samples host usage and every tracked process. Processes that exit
// while being sampled are reported without usage figures.
func (t *ProcessTracker) Snapshot() *Stats {
	stats := &Stats{CollectedAt: time.Now()}

	cpuPercent, err := cpu.Percent(0, false)
	if err != nil {
		t.logger.Error("Failed to get CPU usage", zap.Error(err))
	} else if len(cpuPercent) > 0 {
		stats.CPUUsage = cpuPercent[0]
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		t.logger.Error("Failed to get memory usage", zap.Error(err))
	} else {
		stats.MemoryUsage = memInfo.UsedPercent
	}

	for _, tracked := range t.Running() {
		ps := ProcessStats{TrackedProcess: tracked}
		if proc, err := process.NewProcess(int32(tracked.PID)); err == nil {
			if pct, err := proc.CPUPercent(); err == nil {
				ps.CPUPercent = pct
			}
			if info, err := proc.MemoryInfo(); err == nil && info != nil {
				ps.RSS = info.RSS
			}
		}
		stats.Processes = append(stats.Processes, ps)
	}
	stats.ProcessCount = len(stats.Processes)
	return stats
}

// Monitor logs a snapshot every interval while processes are running, until
// ctx is done.
func (t *ProcessTracker) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := t.Snapshot()
			if stats.ProcessCount == 0 {
				continue
			}
			for _, p := range stats.Processes {
				t.logger.Info("In-flight process",
					zap.Int("pid", p.PID),
					zap.String("operation", p.Operation),
					zap.Duration("elapsed", stats.CollectedAt.Sub(p.StartedAt)),
					zap.Float64("cpu_percent", p.CPUPercent),
					zap.Uint64("rss", p.RSS))
			}
			t.logger.Debug("Resource stats collected",
				zap.Float64("cpu_usage", stats.CPUUsage),
				zap.Float64("memory_usage", stats.MemoryUsage),
				zap.Int("process_count", stats.ProcessCount))
		}
	}
}

// Stop kills every tracked process tree.
func (t *ProcessTracker) Stop() {
	for _, p := range t.Running() {
		if err := bridge.KillTree(p.PID); err != nil {
			t.logger.Error("Failed to kill process",
				zap.Int("pid", p.PID),
				zap.String("operation", p.Operation),
				zap.Error(err))
			continue
		}
		t.logger.Info("Process killed",
			zap.Int("pid", p.PID),
			zap.String("operation", p.Operation))
	}
}
