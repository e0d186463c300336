package protocol

import (
	"bytes"
	"context"
	"time"

	"github.com/behrlich/mtlink/internal/block"
	"github.com/behrlich/mtlink/internal/constants"
	"github.com/behrlich/mtlink/internal/frame"
	"github.com/behrlich/mtlink/internal/interfaces"
	"github.com/behrlich/mtlink/internal/logging"
	"github.com/behrlich/mtlink/internal/queue"
)

// MasterState is a state of the master transfer state machine.
type MasterState int

const (
	MasterIdle MasterState = iota
	MasterInit
	MasterChunk
	MasterEnding
	MasterAbort
)

// MasterConfig carries the tunables the master state machine needs
// from the link's configuration.
type MasterConfig struct {
	BufferSize       int
	LegacyBufferSize int
	StepInterval     time.Duration
	SessionTimeout   time.Duration
	CallQueueLength  int // call queue depth; at most one transfer ever runs
}

// CallRequest is one entry in the master's call queue.
type CallRequest struct {
	Block        *block.Block
	MaxChunkSize int
	Timeout      time.Duration
}

// Master runs the master side of the chunked-transfer protocol, pulling
// the contents of a named block from its peer on request. At
// most one transfer is in flight at a time: Run finishes one dequeued
// request before taking the next.
type Master struct {
	registry  *block.Registry
	demux     *Demux
	transport interfaces.Transport
	events    *EventSink
	observer  interfaces.Observer
	suspend   *SuspendFlag
	callQueue chan CallRequest
	cfg       MasterConfig
}

// NewMaster constructs a Master. The call queue only buffers pending
// Call requests; it is the runTransfer loop, not the queue depth,
// that keeps at most one transfer in flight at a time.
func NewMaster(registry *block.Registry, demux *Demux, transport interfaces.Transport, events *EventSink, observer interfaces.Observer, suspend *SuspendFlag, cfg MasterConfig) *Master {
	queueLen := cfg.CallQueueLength
	if queueLen <= 0 {
		queueLen = 1
	}
	return &Master{
		registry:  registry,
		demux:     demux,
		transport: transport,
		events:    events,
		observer:  observer,
		suspend:   suspend,
		callQueue: make(chan CallRequest, queueLen),
		cfg:       cfg,
	}
}

// Call enqueues a transfer request, returning false if the call queue
// is full.
func (m *Master) Call(req CallRequest) bool {
	select {
	case m.callQueue <- req:
		return true
	default:
		return false
	}
}

// Run drives the master's dequeue loop until ctx is cancelled.
func (m *Master) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-m.callQueue:
			m.runTransfer(ctx, req)
		}
	}
}

type masterSession struct {
	state        MasterState
	blk          *block.Block
	chunkMax     int
	accumulator  []byte
	payloadSize  int
	payloadCount int
	lastProgress time.Time
}

func (m *Master) runTransfer(ctx context.Context, req CallRequest) {
	if m.suspend != nil {
		m.suspend.Set()
		defer m.suspend.Clear()
	}

	name := req.Block.Name()
	start := time.Now()
	log := logging.Default().WithBlock(name)
	m.events.Emit(interfaces.EventMasterCall, name, interfaces.ChunkInfo{})

	if _, err := m.registry.Grab(ctx, name); err != nil {
		log.Warn("master grab timed out before transfer start")
		m.events.Emit(interfaces.EventMasterTimeout, name, interfaces.ChunkInfo{})
		m.events.Emit(interfaces.EventMasterIdle, name, interfaces.ChunkInfo{})
		if m.observer != nil {
			m.observer.ObserveTransferComplete(uint64(time.Since(start)), false)
		}
		return
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.cfg.SessionTimeout
	}
	sess := &masterSession{blk: req.Block, chunkMax: req.MaxChunkSize, state: MasterIdle, lastProgress: time.Now()}
	buf := newScanBuffer(m.cfg.BufferSize)

	for sess.state != MasterEnding && sess.state != MasterAbort {
		select {
		case <-ctx.Done():
			sess.state = MasterAbort
			continue
		default:
		}

		if sess.state != MasterIdle {
			buf.compact(m.cfg.LegacyBufferSize)
			readCtx, cancel := context.WithTimeout(ctx, 2*m.cfg.StepInterval)
			buf.n = m.demux.ReadBytes(readCtx, ConsumerMaster, buf.buf, buf.n)
			cancel()
		}

		if time.Since(sess.lastProgress) > timeout {
			sess.state = MasterAbort
			log.Warn("master session timed out", "count", sess.payloadCount)
			m.events.Emit(interfaces.EventMasterTimeout, name, interfaces.ChunkInfo{})
			continue
		}

		switch sess.state {
		case MasterIdle:
			m.stepIdle(sess)
		case MasterInit:
			m.stepInit(buf, sess)
		case MasterChunk:
			m.stepChunk(buf, sess)
		}
	}

	success := sess.state == MasterEnding
	if success {
		m.registry.ReplaceStorage(name, sess.accumulator)
		m.events.Emit(interfaces.EventMasterUpdated, name, interfaces.ChunkInfo{})
		log.Info("master transfer complete", "bytes", sess.payloadCount)
	} else {
		m.registry.ReturnReadOnly(name)
		if sess.accumulator != nil {
			queue.PutBuffer(sess.accumulator)
		}
		log.Warn("master transfer aborted", "bytes", sess.payloadCount)
	}
	m.events.Emit(interfaces.EventMasterIdle, name, interfaces.ChunkInfo{})
	if m.observer != nil {
		m.observer.ObserveTransferComplete(uint64(time.Since(start)), success)
	}
}

// stepIdle opens the transfer with a trigger + chunk_request.
func (m *Master) stepIdle(sess *masterSession) {
	req := frame.ChunkRequest{MaxSize: uint16(sess.chunkMax), Resend: 0}
	writeFrame(m.transport, sess.blk.Trigger(), req.Marshal())
	sess.state = MasterInit
}

// stepInit awaits the slave's trigger_response and allocates the
// accumulator.
func (m *Master) stepInit(buf *scanBuffer, sess *masterSession) {
	data := buf.bytes()
	trig := sess.blk.Trigger()
	idx := bytes.Index(data, trig[:])
	if idx < 0 || idx+8+4 > len(data) {
		return
	}
	var hb [4]byte
	copy(hb[:], data[idx+8:idx+12])
	resp, ok := frame.UnmarshalTriggerResponse(hb)
	if !ok {
		if m.observer != nil {
			m.observer.ObserveHeaderCRCFailure()
		}
		buf.consume(idx + 1)
		return
	}
	buf.consume(idx + 12)
	sess.lastProgress = time.Now()

	accumulator, ok := allocateAccumulator(int(resp.PayloadLength))
	if !ok {
		logging.Default().WithBlock(sess.blk.Name()).Error("master could not allocate accumulator", "declared_length", resp.PayloadLength)
		m.events.Emit(interfaces.EventMasterAllocError, sess.blk.Name(), interfaces.ChunkInfo{})
		sess.state = MasterIdle
		return
	}

	sess.accumulator = accumulator
	sess.payloadSize = int(resp.PayloadLength)
	sess.payloadCount = 0
	m.events.Emit(interfaces.EventMasterAnswered, sess.blk.Name(), interfaces.ChunkInfo{})
	sess.state = MasterChunk
}

// allocateAccumulator draws a buffer for a transfer's declared payload
// length, rejecting sizes that can't plausibly be a real block (the
// peer's trigger_response is wire data and may be corrupt) and
// recovering from an allocation failure the pool can't satisfy.
func allocateAccumulator(size int) (buf []byte, ok bool) {
	if size < 0 || size > constants.MaxAccumulatorSize {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			buf, ok = nil, false
		}
	}()
	return queue.GetBuffer(size), true
}

// stepChunk validates and accumulates one chunk, or requests a resend.
func (m *Master) stepChunk(buf *scanBuffer, sess *masterSession) {
	data := buf.bytes()
	pattern := sess.blk.Pattern()
	idx := bytes.Index(data, pattern[:])
	if idx < 0 || idx+8+4 > len(data) {
		return
	}
	var hb [4]byte
	copy(hb[:], data[idx+8:idx+12])
	hdr, ok := frame.UnmarshalChunkResponse(hb)
	if !ok {
		if m.observer != nil {
			m.observer.ObserveHeaderCRCFailure()
		}
		buf.consume(idx + 1)
		return
	}

	need := idx + 8 + 4 + int(hdr.Size) + 4
	if need > len(data) {
		// Not enough of the payload + CRC-32 trailer has arrived yet;
		// hold off sending a request this cycle.
		return
	}
	buf.consume(need)
	sess.lastProgress = time.Now()

	payload := data[idx+12 : idx+12+int(hdr.Size)]
	var trailer [4]byte
	copy(trailer[:], data[idx+12+int(hdr.Size):need])

	var outgoing byte
	if frame.VerifyPayloadCRC32(payload, trailer) {
		copy(sess.accumulator[sess.payloadCount:], payload)
		sess.payloadCount += int(hdr.Size)
		m.events.Emit(interfaces.EventMasterChunkRx, sess.blk.Name(), interfaces.ChunkInfo{Size: int(hdr.Size), Count: int(hdr.Count)})
		if m.observer != nil {
			m.observer.ObserveChunk(int(hdr.Size), uint64(time.Since(sess.lastProgress)))
		}
		outgoing = 0
	} else {
		if m.observer != nil {
			m.observer.ObservePayloadCRCFailure()
			m.observer.ObserveRetransmit()
		}
		outgoing = 1
	}

	req := frame.ChunkRequest{MaxSize: uint16(sess.chunkMax), Resend: outgoing}
	writeFrame(m.transport, pattern, req.Marshal())

	if sess.payloadCount >= sess.payloadSize {
		sess.state = MasterEnding
	}
}
