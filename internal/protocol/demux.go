// Package protocol implements the chunked-transfer protocol between the
// master and slave sides of a link: the UART demultiplexer and the
// master/slave state machines that run over it.
package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/behrlich/mtlink/internal/interfaces"
)

// ConsumerID identifies which state-machine task issued a read request
// to the demultiplexer.
type ConsumerID int

const (
	ConsumerMaster ConsumerID = iota
	ConsumerSlave
)

type readRequest struct {
	consumer ConsumerID
	buf      []byte
	n        int
	resultCh chan int
	// cancelled is set under Demux.mu once the requester stopped
	// waiting; serviceOne discards such requests instead of filling them.
	cancelled bool
}

// Demux is the sole reader of the transport byte stream. It
// accumulates bytes behind a quiet-period timer and, once the
// transport has gone quiet for stepInterval, hands whatever has
// accumulated to the oldest pending consumer request.
//
// Master and slave are never both actively awaiting bytes at the same
// time in this protocol, so a single FIFO pending queue is sufficient
// to deliver each byte to the one consumer that wants it, in order.
type Demux struct {
	transport    interfaces.Transport
	stepInterval time.Duration

	reqCh   chan *readRequest
	chunkCh chan []byte

	mu      sync.Mutex
	pending []*readRequest
	accum   []byte
}

// NewDemux creates a demultiplexer over t, batching reads with the
// given quiet-period step interval.
func NewDemux(t interfaces.Transport, stepInterval time.Duration) *Demux {
	return &Demux{
		transport:    t,
		stepInterval: stepInterval,
		reqCh:        make(chan *readRequest),
		chunkCh:      make(chan []byte, 16),
	}
}

// Run drives the demultiplexer until ctx is cancelled or the
// transport's read loop returns an error.
func (d *Demux) Run(ctx context.Context) error {
	readErrCh := make(chan error, 1)
	go d.readLoop(ctx, readErrCh)

	timer := time.NewTimer(d.stepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErrCh:
			return err
		case chunk := <-d.chunkCh:
			d.mu.Lock()
			d.accum = append(d.accum, chunk...)
			d.mu.Unlock()
			drainTimer(timer)
			timer.Reset(d.stepInterval)
		case req := <-d.reqCh:
			d.mu.Lock()
			d.pending = append(d.pending, req)
			d.mu.Unlock()
		case <-timer.C:
			d.serviceOne()
			timer.Reset(d.stepInterval)
		}
	}
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (d *Demux) readLoop(ctx context.Context, errCh chan<- error) {
	buf := make([]byte, 512)
	for {
		n, err := d.transport.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case d.chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case errCh <- err:
			case <-ctx.Done():
			}
			return
		}
	}
}

// serviceOne hands whatever has accumulated to the oldest pending
// request, if both a request and bytes are available.
func (d *Demux) serviceOne() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.pending) > 0 && d.pending[0].cancelled {
		d.pending = d.pending[1:]
	}
	if len(d.pending) == 0 || len(d.accum) == 0 {
		return
	}
	req := d.pending[0]
	d.pending = d.pending[1:]

	n := copy(req.buf[req.n:], d.accum)
	req.n += n
	d.accum = d.accum[n:]
	req.resultCh <- req.n
}

// ReadBytes enqueues a read request on behalf of consumer and blocks
// until the demultiplexer services it or ctx is done, returning the
// updated length counter. If ctx
// is done before service, it returns n unchanged — the consumer backs
// off rather than erroring.
func (d *Demux) ReadBytes(ctx context.Context, consumer ConsumerID, buf []byte, n int) int {
	req := &readRequest{consumer: consumer, buf: buf, n: n, resultCh: make(chan int, 1)}
	select {
	case d.reqCh <- req:
	case <-ctx.Done():
		return n
	}
	select {
	case newN := <-req.resultCh:
		return newN
	case <-ctx.Done():
		d.mu.Lock()
		defer d.mu.Unlock()
		select {
		case newN := <-req.resultCh:
			return newN
		default:
		}
		req.cancelled = true
		return n
	}
}
