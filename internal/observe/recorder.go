package observe

import (
	"log/slog"
	"sync"

	"finnews/internal/domain"
	"finnews/internal/ports"
)

// Stats holds cumulative candidate-outcome counters.
type Stats struct {
	Accepted int
	Rejected int
	Errored  int
}

// LogRecorder logs every candidate outcome and keeps counters. Safe for
// overlapping runs under the scheduler.
type LogRecorder struct {
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

var _ ports.Recorder = (*LogRecorder)(nil)

// NewLogRecorder builds a recorder writing through the given logger.
func NewLogRecorder(log *slog.Logger) *LogRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &LogRecorder{logger: log}
}

// Accepted counts a finalized record.
func (r *LogRecorder) Accepted(record domain.ArticleRecord) {
	r.mu.Lock()
	r.stats.Accepted++
	r.mu.Unlock()

	r.logger.Debug("candidate accepted", "url", record.URL, "source", record.Source)
}

// Rejected counts a quality-gate rejection.
func (r *LogRecorder) Rejected(candidate domain.Candidate, reason domain.RejectReason) {
	r.mu.Lock()
	r.stats.Rejected++
	r.mu.Unlock()

	r.logger.Debug("candidate rejected", "url", candidate.URL, "reason", string(reason))
}

// Errored counts an upstream capability failure.
func (r *LogRecorder) Errored(candidate domain.Candidate, err error) {
	r.mu.Lock()
	r.stats.Errored++
	r.mu.Unlock()

	r.logger.Debug("candidate errored", "url", candidate.URL, "error", err)
}

// Snapshot returns a copy of the current counters.
func (r *LogRecorder) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
