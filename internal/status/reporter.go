package status

import "go.uber.org/zap"

// Reporter receives status transitions pushed by the worker and the
// regeneration controller. Implementations must be safe for concurrent
// use; Publish is called synchronously from pipeline goroutines.
type Reporter interface {
	Publish(jobID, statusText, elapsed string)
}

// LogReporter forwards status events to the process logger.
type LogReporter struct {
	log *zap.SugaredLogger
}

// NewLogReporter wraps a sugared logger as a Reporter.
func NewLogReporter(log *zap.SugaredLogger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) Publish(jobID, statusText, elapsed string) {
	r.log.Infow(statusText, "job", jobID, "elapsed", elapsed)
}

// Multi fans one Publish out to several reporters.
type Multi []Reporter

func (m Multi) Publish(jobID, statusText, elapsed string) {
	for _, r := range m {
		r.Publish(jobID, statusText, elapsed)
	}
}
