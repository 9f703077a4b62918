package observability

import (
	"log/slog"
	"runtime"
	"sync/atomic"
)

// MonitoringStats is a point-in-time copy of the counters, for the /stats view.
type MonitoringStats struct {
	Ticks                uint64 `json:"ticks"`
	SkippedTicks         uint64 `json:"skipped_ticks"`
	TaskPanics           uint64 `json:"task_panics"`
	WorkerRestarts       uint64 `json:"worker_restarts"`
	AppendRetries        uint64 `json:"append_retries"`
	CorruptEntries       uint64 `json:"corrupt_entries"`
	MessagesDelivered    uint64 `json:"messages_delivered"`
	NotificationFailures uint64 `json:"notification_failures"`

	AllocMemMb uint64 `json:"alloc_mem_mb"`
	NumGC      uint32 `json:"num_gc"`
}

// MonitoringManager aggregates process-wide counters.
// Safe for concurrent use, a nil manager ignores every increment.
type MonitoringManager struct {
	log *slog.Logger

	ticks                uint64
	skippedTicks         uint64
	taskPanics           uint64
	workerRestarts       uint64
	appendRetries        uint64
	corruptEntries       uint64
	messagesDelivered    uint64
	notificationFailures uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log}
}

func (mm *MonitoringManager) IncrTicks() {
	if mm != nil {
		atomic.AddUint64(&mm.ticks, 1)
	}
}

func (mm *MonitoringManager) IncrSkippedTicks() {
	if mm != nil {
		atomic.AddUint64(&mm.skippedTicks, 1)
	}
}

func (mm *MonitoringManager) IncrTaskPanics() {
	if mm != nil {
		atomic.AddUint64(&mm.taskPanics, 1)
	}
}

func (mm *MonitoringManager) IncrWorkerRestarts() {
	if mm != nil {
		atomic.AddUint64(&mm.workerRestarts, 1)
	}
}

func (mm *MonitoringManager) IncrAppendRetries() {
	if mm != nil {
		atomic.AddUint64(&mm.appendRetries, 1)
	}
}

func (mm *MonitoringManager) IncrCorruptEntries() {
	if mm != nil {
		atomic.AddUint64(&mm.corruptEntries, 1)
	}
}

func (mm *MonitoringManager) AddMessagesDelivered(n int) {
	if mm != nil && n > 0 {
		atomic.AddUint64(&mm.messagesDelivered, uint64(n))
	}
}

func (mm *MonitoringManager) IncrNotificationFailures() {
	if mm != nil {
		atomic.AddUint64(&mm.notificationFailures, 1)
	}
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	if mm == nil {
		return MonitoringStats{}
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := MonitoringStats{
		Ticks:                atomic.LoadUint64(&mm.ticks),
		SkippedTicks:         atomic.LoadUint64(&mm.skippedTicks),
		TaskPanics:           atomic.LoadUint64(&mm.taskPanics),
		WorkerRestarts:       atomic.LoadUint64(&mm.workerRestarts),
		AppendRetries:        atomic.LoadUint64(&mm.appendRetries),
		CorruptEntries:       atomic.LoadUint64(&mm.corruptEntries),
		MessagesDelivered:    atomic.LoadUint64(&mm.messagesDelivered),
		NotificationFailures: atomic.LoadUint64(&mm.notificationFailures),
		AllocMemMb:           m.Alloc / 1024 / 1024,
		NumGC:                m.NumGC,
	}
	mm.log.Debug("Monitoring snapshot",
		"ticks", stats.Ticks,
		"skipped_ticks", stats.SkippedTicks,
		"append_retries", stats.AppendRetries,
		"corrupt_entries", stats.CorruptEntries,
	)
	return stats
}
