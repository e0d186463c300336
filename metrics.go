package mtlink

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/mtlink/internal/interfaces"
)

// LatencyBuckets defines the call-latency histogram buckets in
// nanoseconds, covering 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks transfer-level statistics for a Link.
type Metrics struct {
	TransfersStarted   atomic.Uint64
	TransfersCompleted atomic.Uint64
	TransfersAborted   atomic.Uint64

	ChunksSent     atomic.Uint64
	ChunksReceived atomic.Uint64
	ChunkBytes     atomic.Uint64

	Retransmits        atomic.Uint64
	HeaderCRCFailures  atomic.Uint64
	PayloadCRCFailures atomic.Uint64

	TotalLatencyNs atomic.Uint64
	LatencyCount   atomic.Uint64

	// LatencyHistogram[i] counts completed transfers with latency <=
	// LatencyBuckets[i] (cumulative).
	LatencyHistogram [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a Metrics instance with its start time set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordChunk records one chunk sent to the peer.
func (m *Metrics) RecordChunk(size int) {
	m.ChunksSent.Add(1)
	m.ChunkBytes.Add(uint64(size))
}

// RecordChunkReceived records one chunk accepted into the accumulator.
func (m *Metrics) RecordChunkReceived(size int) {
	m.ChunksReceived.Add(1)
	m.ChunkBytes.Add(uint64(size))
}

func (m *Metrics) RecordRetransmit()        { m.Retransmits.Add(1) }
func (m *Metrics) RecordHeaderCRCFailure()  { m.HeaderCRCFailures.Add(1) }
func (m *Metrics) RecordPayloadCRCFailure() { m.PayloadCRCFailures.Add(1) }

// RecordTransfer records the outcome and latency of one completed Call.
func (m *Metrics) RecordTransfer(latencyNs uint64, success bool) {
	m.TransfersStarted.Add(1)
	if success {
		m.TransfersCompleted.Add(1)
	} else {
		m.TransfersAborted.Add(1)
	}
	m.TotalLatencyNs.Add(latencyNs)
	m.LatencyCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyHistogram[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	TransfersStarted   uint64
	TransfersCompleted uint64
	TransfersAborted   uint64

	ChunksSent     uint64
	ChunksReceived uint64
	ChunkBytes     uint64

	Retransmits        uint64
	HeaderCRCFailures  uint64
	PayloadCRCFailures uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot returns a point-in-time snapshot of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TransfersStarted:   m.TransfersStarted.Load(),
		TransfersCompleted: m.TransfersCompleted.Load(),
		TransfersAborted:   m.TransfersAborted.Load(),
		ChunksSent:         m.ChunksSent.Load(),
		ChunksReceived:     m.ChunksReceived.Load(),
		ChunkBytes:         m.ChunkBytes.Load(),
		Retransmits:        m.Retransmits.Load(),
		HeaderCRCFailures:  m.HeaderCRCFailures.Load(),
		PayloadCRCFailures: m.PayloadCRCFailures.Load(),
	}

	count := m.LatencyCount.Load()
	if count > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / count
	}
	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())
	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyHistogram[i].Load()
	}
	return snap
}

// MetricsObserver implements interfaces.Observer by recording to an
// embedded Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an Observer that records to m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveChunk(size int, latencyNs uint64) {
	o.metrics.RecordChunkReceived(size)
}

func (o *MetricsObserver) ObserveRetransmit() { o.metrics.RecordRetransmit() }

func (o *MetricsObserver) ObserveHeaderCRCFailure() { o.metrics.RecordHeaderCRCFailure() }

func (o *MetricsObserver) ObservePayloadCRCFailure() { o.metrics.RecordPayloadCRCFailure() }

func (o *MetricsObserver) ObserveTransferComplete(latencyNs uint64, success bool) {
	o.metrics.RecordTransfer(latencyNs, success)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveChunk(int, uint64)            {}
func (NoOpObserver) ObserveRetransmit()                  {}
func (NoOpObserver) ObserveHeaderCRCFailure()            {}
func (NoOpObserver) ObservePayloadCRCFailure()           {}
func (NoOpObserver) ObserveTransferComplete(uint64, bool) {}

var (
	_ interfaces.Observer = (*MetricsObserver)(nil)
	_ interfaces.Observer = NoOpObserver{}
)
