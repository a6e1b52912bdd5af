package hybridsearch

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordPhase is called after each phase emission. phase is INITIAL or
	// REFINED, duration is the time taken to produce that phase, err is
	// nil if successful.
	RecordPhase(phase Phase, duration time.Duration, err error)

	// RecordIndex is called after a document (or batch) is added to the
	// corpus. count is the number of documents added, failed is the
	// number that failed.
	RecordIndex(count, failed int, duration time.Duration)

	// RecordQualityDegraded is called whenever a REFINED phase is dropped
	// instead of blending quality scores, leaving INITIAL as the last
	// emitted result.
	RecordQualityDegraded()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPhase(Phase, time.Duration, error) {}
func (NoopMetricsCollector) RecordIndex(int, int, time.Duration)     {}
func (NoopMetricsCollector) RecordQualityDegraded()                  {}

// BasicMetricsCollector provides simple in-memory metrics collection,
// useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InitialCount        atomic.Int64
	InitialErrors        atomic.Int64
	InitialTotalNanos    atomic.Int64
	RefinedCount         atomic.Int64
	RefinedErrors        atomic.Int64
	RefinedTotalNanos    atomic.Int64
	RefinedDegraded      atomic.Int64
	IndexCount           atomic.Int64
	IndexItems           atomic.Int64
	IndexFailed          atomic.Int64
}

// RecordPhase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPhase(phase Phase, duration time.Duration, err error) {
	switch phase {
	case PhaseInitial:
		b.InitialCount.Add(1)
		b.InitialTotalNanos.Add(duration.Nanoseconds())
		if err != nil {
			b.InitialErrors.Add(1)
		}
	case PhaseRefined:
		b.RefinedCount.Add(1)
		b.RefinedTotalNanos.Add(duration.Nanoseconds())
		if err != nil {
			b.RefinedErrors.Add(1)
		}
	}
}

// RecordIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndex(count, failed int, duration time.Duration) {
	b.IndexCount.Add(1)
	b.IndexItems.Add(int64(count))
	b.IndexFailed.Add(int64(failed))
}

// RecordQualityDegraded implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQualityDegraded() {
	b.RefinedDegraded.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InitialCount:     b.InitialCount.Load(),
		InitialErrors:    b.InitialErrors.Load(),
		InitialAvgNanos:  b.avgNanos(b.InitialTotalNanos.Load(), b.InitialCount.Load()),
		RefinedCount:     b.RefinedCount.Load(),
		RefinedErrors:    b.RefinedErrors.Load(),
		RefinedAvgNanos:  b.avgNanos(b.RefinedTotalNanos.Load(), b.RefinedCount.Load()),
		RefinedDegraded:  b.RefinedDegraded.Load(),
		IndexCount:       b.IndexCount.Load(),
		IndexItems:       b.IndexItems.Load(),
		IndexFailed:      b.IndexFailed.Load(),
	}
}

func (b *BasicMetricsCollector) avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InitialCount    int64
	InitialErrors   int64
	InitialAvgNanos int64
	RefinedCount    int64
	RefinedErrors   int64
	RefinedAvgNanos int64
	RefinedDegraded int64
	IndexCount      int64
	IndexItems      int64
	IndexFailed     int64
}
