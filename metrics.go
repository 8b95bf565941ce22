package scmd

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// OpClass groups commands for accounting.
type OpClass int

const (
	OpOther OpClass = iota // no data transfer (TEST UNIT READY, INQUIRY, ...)
	OpRead
	OpWrite
	OpFlush
	OpDiscard
)

func (o OpClass) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpFlush:
		return "flush"
	case OpDiscard:
		return "discard"
	default:
		return "other"
	}
}

// Metrics tracks command and error-handling statistics for a host
type Metrics struct {
	// Completed command counters
	ReadOps    atomic.Uint64
	WriteOps   atomic.Uint64
	FlushOps   atomic.Uint64
	DiscardOps atomic.Uint64
	OtherOps   atomic.Uint64

	// Byte counters (successful commands only)
	ReadBytes    atomic.Uint64
	WriteBytes   atomic.Uint64
	DiscardBytes atomic.Uint64

	// Commands completed with a non-zero result
	Failed atomic.Uint64

	// Error handling
	Timeouts   atomic.Uint64 // Commands moved to the abort list
	Retries    atomic.Uint64 // Commands re-dispatched after an abort
	EHFailures atomic.Uint64 // Commands failed by the error handler

	// Queue statistics
	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	// Latency, measured from tag allocation to completion
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64 // cumulative: bucket[i] counts latency <= LatencyBuckets[i]

	StartTime atomic.Int64 // UnixNano
	StopTime  atomic.Int64 // UnixNano
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordCommand records a completed command
func (m *Metrics) RecordCommand(op OpClass, bytes uint64, latencyNs uint64, success bool) {
	switch op {
	case OpRead:
		m.ReadOps.Add(1)
		if success {
			m.ReadBytes.Add(bytes)
		}
	case OpWrite:
		m.WriteOps.Add(1)
		if success {
			m.WriteBytes.Add(bytes)
		}
	case OpFlush:
		m.FlushOps.Add(1)
	case OpDiscard:
		m.DiscardOps.Add(1)
		if success {
			m.DiscardBytes.Add(bytes)
		}
	default:
		m.OtherOps.Add(1)
	}
	if !success {
		m.Failed.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordTimeout records a command exceeding its timeout
func (m *Metrics) RecordTimeout() { m.Timeouts.Add(1) }

// RecordRetry records a command re-dispatched by the error handler
func (m *Metrics) RecordRetry() { m.Retries.Add(1) }

// RecordEHFailure records a command the error handler gave up on
func (m *Metrics) RecordEHFailure() { m.EHFailures.Add(1) }

// RecordQueueDepth records current queue depth for statistics
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)

	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the host as stopped
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived values
type MetricsSnapshot struct {
	ReadOps    uint64
	WriteOps   uint64
	FlushOps   uint64
	DiscardOps uint64
	OtherOps   uint64

	ReadBytes    uint64
	WriteBytes   uint64
	DiscardBytes uint64

	Failed     uint64
	Timeouts   uint64
	Retries    uint64
	EHFailures uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgLatencyNs  uint64
	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	UptimeNs  uint64
	TotalOps  uint64
	FailRate  float64 // Percentage of commands completed with a failure
	OpsPerSec float64
}

// Snapshot creates a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:       m.ReadOps.Load(),
		WriteOps:      m.WriteOps.Load(),
		FlushOps:      m.FlushOps.Load(),
		DiscardOps:    m.DiscardOps.Load(),
		OtherOps:      m.OtherOps.Load(),
		ReadBytes:     m.ReadBytes.Load(),
		WriteBytes:    m.WriteBytes.Load(),
		DiscardBytes:  m.DiscardBytes.Load(),
		Failed:        m.Failed.Load(),
		Timeouts:      m.Timeouts.Load(),
		Retries:       m.Retries.Load(),
		EHFailures:    m.EHFailures.Load(),
		MaxQueueDepth: m.MaxQueueDepth.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps + snap.FlushOps + snap.DiscardOps + snap.OtherOps

	if count := m.QueueDepthCount.Load(); count > 0 {
		snap.AvgQueueDepth = float64(m.QueueDepthTotal.Load()) / float64(count)
	}

	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / opCount
	}

	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}
	if snap.UptimeNs > 0 {
		snap.OpsPerSec = float64(snap.TotalOps) / (float64(snap.UptimeNs) / 1e9)
	}

	if snap.TotalOps > 0 {
		snap.FailRate = float64(snap.Failed) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}
	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Observer receives command lifecycle events from a host
type Observer interface {
	// ObserveCommand is called once per completed command
	ObserveCommand(op OpClass, bytes uint64, latencyNs uint64, success bool)

	// ObserveTimeout is called when a command is moved to the abort list
	ObserveTimeout()

	// ObserveRetry is called when the error handler re-dispatches a command
	ObserveRetry()

	// ObserveEHFailure is called when the error handler fails a command
	ObserveEHFailure()

	// ObserveQueueDepth is called with the number of in-flight commands
	ObserveQueueDepth(depth uint32)
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveCommand(OpClass, uint64, uint64, bool) {}
func (NoOpObserver) ObserveTimeout()                              {}
func (NoOpObserver) ObserveRetry()                                {}
func (NoOpObserver) ObserveEHFailure()                            {}
func (NoOpObserver) ObserveQueueDepth(uint32)                     {}

// MetricsObserver implements Observer using the built-in Metrics
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveCommand(op OpClass, bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordCommand(op, bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveTimeout()   { o.metrics.RecordTimeout() }
func (o *MetricsObserver) ObserveRetry()     { o.metrics.RecordRetry() }
func (o *MetricsObserver) ObserveEHFailure() { o.metrics.RecordEHFailure() }

func (o *MetricsObserver) ObserveQueueDepth(depth uint32) {
	o.metrics.RecordQueueDepth(depth)
}

// Compile-time interface check
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
