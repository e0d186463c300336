package protocol

import (
	"bytes"
	"context"
	"time"

	"github.com/behrlich/mtlink/internal/block"
	"github.com/behrlich/mtlink/internal/frame"
	"github.com/behrlich/mtlink/internal/interfaces"
	"github.com/behrlich/mtlink/internal/logging"
)

// SlaveState is a state of the slave transfer state machine.
type SlaveState int

const (
	SlaveIdle SlaveState = iota
	SlaveInit
	SlaveChunk
	SlaveEnding
	SlaveAbort
)

// SlaveConfig carries the tunables the slave state machine needs from
// the link's configuration.
type SlaveConfig struct {
	BufferSize       int
	LegacyBufferSize int
	StepInterval     time.Duration
	SessionTimeout   time.Duration
}

// Slave runs the slave side of the chunked-transfer protocol: it scans
// for trigger tokens of locally-owned blocks and serves chunks on
// request. One Slave instance serves every slave-owned block on
// the link; which block a session concerns is decided per-iteration by
// the idle-state trigger scan.
type Slave struct {
	registry  *block.Registry
	demux     *Demux
	transport interfaces.Transport
	events    *EventSink
	observer  interfaces.Observer
	suspend   *SuspendFlag
	cfg       SlaveConfig
}

// NewSlave constructs a Slave. suspend may be nil if no master task
// shares this link (the slave then never stands down).
func NewSlave(registry *block.Registry, demux *Demux, transport interfaces.Transport, events *EventSink, observer interfaces.Observer, suspend *SuspendFlag, cfg SlaveConfig) *Slave {
	return &Slave{registry: registry, demux: demux, transport: transport, events: events, observer: observer, suspend: suspend, cfg: cfg}
}

type slaveSession struct {
	state          SlaveState
	blk            *block.Block
	storage        []byte
	chunkMax       int
	bytesConfirmed int
	bytesToSend    int
	count          byte
	lastProgress   time.Time
	locked         bool
}

// Run drives the slave state machine until ctx is cancelled.
func (s *Slave) Run(ctx context.Context) error {
	buf := newScanBuffer(s.cfg.BufferSize)
	sess := &slaveSession{state: SlaveIdle, lastProgress: time.Now()}

	for {
		select {
		case <-ctx.Done():
			s.release(sess)
			return ctx.Err()
		default:
		}

		if s.suspend != nil && s.suspend.IsSet() {
			if sess.state != SlaveIdle {
				// A master transfer started mid-session: abandon it
				// rather than keep reading concurrently with the
				// master's own exclusive use of the transport.
				logging.Default().WithBlock(sessionBlockName(sess)).Warn("slave session suspended for master transfer")
				sess.state = SlaveAbort
				s.stepEndingOrAbort(sess)
			}
			select {
			case <-ctx.Done():
				s.release(sess)
				return ctx.Err()
			case <-time.After(s.cfg.StepInterval):
			}
			continue
		}

		buf.compact(s.cfg.LegacyBufferSize)

		readCtx, cancel := context.WithTimeout(ctx, 2*s.cfg.StepInterval)
		buf.n = s.demux.ReadBytes(readCtx, ConsumerSlave, buf.buf, buf.n)
		cancel()

		if sess.state != SlaveIdle && time.Since(sess.lastProgress) > s.cfg.SessionTimeout {
			sess.state = SlaveAbort
			s.events.Emit(interfaces.EventSlaveTimeout, sessionBlockName(sess), interfaces.ChunkInfo{})
		}

		switch sess.state {
		case SlaveIdle:
			s.stepIdle(buf, sess)
		case SlaveInit:
			s.stepInit(ctx, sess)
		case SlaveChunk:
			s.stepChunk(buf, sess)
		case SlaveEnding, SlaveAbort:
			s.stepEndingOrAbort(sess)
		}
	}
}

func sessionBlockName(sess *slaveSession) string {
	if sess.blk == nil {
		return ""
	}
	return sess.blk.Name()
}

func (s *Slave) release(sess *slaveSession) {
	if sess.locked && sess.blk != nil {
		s.registry.ReturnReadOnly(sess.blk.Name())
		sess.locked = false
	}
}

// stepIdle scans for any slave-owned block's trigger token.
func (s *Slave) stepIdle(buf *scanBuffer, sess *slaveSession) {
	data := buf.bytes()
	for _, b := range s.registry.SlaveOwnedBlocks() {
		trig := b.Trigger()
		idx := bytes.Index(data, trig[:])
		if idx < 0 {
			continue
		}
		if idx+8+4 > len(data) {
			continue // header not fully arrived yet
		}
		var hb [4]byte
		copy(hb[:], data[idx+8:idx+12])
		hdr, ok := frame.UnmarshalChunkRequest(hb)
		if !ok {
			if s.observer != nil {
				s.observer.ObserveHeaderCRCFailure()
			}
			continue
		}

		// Rewrite the matched trigger in place with the block's
		// pattern so the chunk state's scan finds the very same
		// header as its first chunk_request.
		pattern := b.Pattern()
		copy(buf.buf[idx:idx+8], pattern[:])

		sess.lastProgress = time.Now()
		sess.blk = b
		s.events.Emit(interfaces.EventSlaveDemanded, b.Name(), interfaces.ChunkInfo{})

		if hdr.Resend != 0 {
			sess.state = SlaveAbort
			return
		}

		sess.chunkMax = min(int(hdr.MaxSize), s.cfg.BufferSize)
		sess.bytesConfirmed = 0
		sess.bytesToSend = 0
		sess.count = 0
		sess.state = SlaveInit
		return
	}
}

// stepInit acquires the block's mutex and answers with its length.
func (s *Slave) stepInit(ctx context.Context, sess *slaveSession) {
	acquireCtx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	defer cancel()
	storage, err := s.registry.Grab(acquireCtx, sess.blk.Name())
	if err != nil {
		logging.Default().WithBlock(sess.blk.Name()).Warn("slave could not acquire block before session timeout")
		sess.state = SlaveAbort
		return
	}
	sess.locked = true
	sess.storage = storage

	resp := frame.TriggerResponse{PayloadLength: uint32(len(storage))}
	writeFrame(s.transport, sess.blk.Trigger(), resp.Marshal())

	sess.lastProgress = time.Now()
	s.events.Emit(interfaces.EventSlaveInited, sess.blk.Name(), interfaces.ChunkInfo{})
	sess.state = SlaveChunk
}

// stepChunk answers each chunk_request with the next (or retransmitted)
// chunk.
func (s *Slave) stepChunk(buf *scanBuffer, sess *slaveSession) {
	data := buf.bytes()
	pattern := sess.blk.Pattern()
	idx := bytes.Index(data, pattern[:])
	if idx < 0 || idx+8+4 > len(data) {
		return
	}
	var hb [4]byte
	copy(hb[:], data[idx+8:idx+12])
	hdr, ok := frame.UnmarshalChunkRequest(hb)
	if !ok {
		if s.observer != nil {
			s.observer.ObserveHeaderCRCFailure()
		}
		buf.consume(idx + 1)
		return
	}
	buf.consume(idx + 12)
	sess.lastProgress = time.Now()

	if hdr.Resend == 0 {
		length := len(sess.storage)
		sess.bytesConfirmed += sess.bytesToSend
		sess.bytesToSend = min(sess.chunkMax, length-sess.bytesConfirmed)
		sess.count++
		if sess.bytesConfirmed == length {
			sess.state = SlaveEnding
			return
		}
	} else if s.observer != nil {
		s.observer.ObserveRetransmit()
	}

	s.sendChunk(sess)
	s.events.Emit(interfaces.EventSlaveChunkRq, sess.blk.Name(), interfaces.ChunkInfo{Size: sess.bytesToSend, Count: int(sess.count)})
}

func (s *Slave) sendChunk(sess *slaveSession) {
	payload := sess.storage[sess.bytesConfirmed : sess.bytesConfirmed+sess.bytesToSend]
	resp := frame.ChunkResponse{Size: uint16(sess.bytesToSend), Count: sess.count}
	trailer := frame.PayloadCRC32(payload)

	pattern := sess.blk.Pattern()
	out := make([]byte, 0, 8+4+len(payload)+4)
	out = append(out, pattern[:]...)
	hb := resp.Marshal()
	out = append(out, hb[:]...)
	out = append(out, payload...)
	out = append(out, trailer[:]...)
	s.transport.Write(out)
	if s.observer != nil {
		s.observer.ObserveChunk(len(payload), 0)
	}
}

func (s *Slave) stepEndingOrAbort(sess *slaveSession) {
	s.release(sess)
	name := sessionBlockName(sess)
	finished := sess.state == SlaveEnding
	s.events.Emit(interfaces.EventSlaveReleased, name, interfaces.ChunkInfo{})
	if finished {
		s.events.Emit(interfaces.EventSlaveFinished, name, interfaces.ChunkInfo{})
	}
	*sess = slaveSession{state: SlaveIdle, lastProgress: time.Now()}
}
