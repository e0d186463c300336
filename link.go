// Package mtlink implements a named, mutex-guarded shared-memory block
// registry and a chunked-transfer protocol that moves block contents
// between two peers over a point-to-point full-duplex byte stream.
package mtlink

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/behrlich/mtlink/internal/block"
	"github.com/behrlich/mtlink/internal/frame"
	"github.com/behrlich/mtlink/internal/interfaces"
	"github.com/behrlich/mtlink/internal/logging"
	"github.com/behrlich/mtlink/internal/protocol"
)

// Role and Kind mirror the block package's tagged-variant types at the
// public surface, so callers never import internal/block directly.
type (
	Role = block.Role
	Kind = block.Kind
)

const (
	RoleSlave  = block.RoleSlave
	RoleMaster = block.RoleMaster

	KindBlob  = block.Blob
	KindArray = block.Array
)

// Link runs one side of the protocol over a single Transport: the
// block registry, the UART demultiplexer, the slave state machine
// (serving locally-owned blocks), the master state machine (pulling
// peer-owned blocks on Call), and the event dispatch loop.
type Link struct {
	registry *block.Registry
	demux    *protocol.Demux
	slave    *protocol.Slave
	master   *protocol.Master
	events   *protocol.EventSink
	metrics  *Metrics
	observer interfaces.Observer
	cfg      Config

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds a Link over transport. callback, if non-nil, receives
// protocol events from its own goroutine; it must not block. Events
// emitted while the EventQueueSize-deep queue is full are dropped.
func New(cfg Config, transport interfaces.Transport, callback func(Event)) *Link {
	registry := block.NewRegistry()
	demux := protocol.NewDemux(transport, cfg.StepInterval)
	events := protocol.NewEventSink(cfg.EventQueueSize, callback)
	suspend := &protocol.SuspendFlag{}

	metrics := NewMetrics()
	observer := interfaces.Observer(NewMetricsObserver(metrics))

	slaveCfg := protocol.SlaveConfig{
		BufferSize:       cfg.BufferSize,
		LegacyBufferSize: cfg.LegacyBufferSize,
		StepInterval:     cfg.StepInterval,
		SessionTimeout:   cfg.SessionTimeout,
	}
	masterCfg := protocol.MasterConfig{
		BufferSize:       cfg.BufferSize,
		LegacyBufferSize: cfg.LegacyBufferSize,
		StepInterval:     cfg.StepInterval,
		SessionTimeout:   cfg.SessionTimeout,
		CallQueueLength:  cfg.CallQueueLength,
	}

	return &Link{
		registry: registry,
		demux:    demux,
		slave:    protocol.NewSlave(registry, demux, transport, events, observer, suspend, slaveCfg),
		master:   protocol.NewMaster(registry, demux, transport, events, observer, suspend, masterCfg),
		events:   events,
		metrics:  metrics,
		observer: observer,
		cfg:      cfg,
	}
}

// Start launches the demultiplexer, slave, master, and event-dispatch
// tasks as a group. It returns immediately. Cancelling ctx stops the
// demultiplexer, slave and master; the event-dispatch loop stops only
// on Close, which also stops the others and waits for them.
func (l *Link) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	group, gctx := errgroup.WithContext(ctx)
	l.group = group

	group.Go(func() error { return l.demux.Run(gctx) })
	group.Go(func() error { return l.slave.Run(gctx) })
	group.Go(func() error { return l.master.Run(gctx) })
	group.Go(func() error {
		l.events.Run()
		return nil
	})

	logging.Info("link started")
	return nil
}

// Close cancels the task group and waits for clean exit.
func (l *Link) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	l.events.Close()
	if l.group == nil {
		return nil
	}
	err := l.group.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// NewBlob registers a zero-initialized blob block, returning 0 on
// success or the legacy negative code for name-exists/alloc-failed.
func (l *Link) NewBlob(name string, length int, role Role, trigger, pattern string) int {
	_, err := l.registry.NewBlob(name, length, role, frame.NewToken(trigger), frame.NewToken(pattern))
	return resultCode(err)
}

// NewArray registers a zero-initialized array block of n elements of
// size bytes each.
func (l *Link) NewArray(name string, n, size int, role Role, trigger, pattern string) int {
	_, err := l.registry.NewArray(name, n, size, role, frame.NewToken(trigger), frame.NewToken(pattern))
	return resultCode(err)
}

// Grab acquires the named block within timeout and returns a mutable
// view of its storage. The caller must call Return exactly once.
func (l *Link) Grab(name string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	storage, err := l.registry.Grab(ctx, name)
	if err != nil {
		return nil, WrapError("Grab", err)
	}
	return storage, nil
}

// Return releases a block acquired via Grab, recomputing its checksum.
func (l *Link) Return(name string) error {
	return wrapErr("Return", l.registry.Return(name))
}

// GetLength returns the named block's current length in bytes.
func (l *Link) GetLength(name string) (int, error) {
	n, err := l.registry.GetLength(name)
	return n, wrapErr("GetLength", err)
}

// Call requests the current contents of a master-owned block from the
// peer. It returns 0 if the transfer was accepted for processing,
// -1 if the block is unknown or the call queue is full, or -2 if the
// block is locally slave-owned (nothing to pull).
func (l *Link) Call(name string, timeoutMs int, maxChunkSize int) int {
	blk, ok := l.registry.Lookup(name)
	if !ok {
		return -1
	}
	if blk.Role() == RoleSlave {
		return -2
	}
	if maxChunkSize < l.cfg.LegacyBufferSize {
		maxChunkSize = l.cfg.LegacyBufferSize
	}
	if maxChunkSize > l.cfg.BufferSize {
		maxChunkSize = l.cfg.BufferSize
	}
	ok = l.master.Call(protocol.CallRequest{
		Block:        blk,
		MaxChunkSize: maxChunkSize,
		Timeout:      time.Duration(timeoutMs) * time.Millisecond,
	})
	if !ok {
		return -1
	}
	return 0
}

// Metrics returns the Link's metrics snapshot.
func (l *Link) Metrics() MetricsSnapshot {
	return l.metrics.Snapshot()
}

// The accessor façade below delegates straight to the block registry's
// C-string/byte-primitive operations, so callers only ever import the
// root package.

func (l *Link) Strlen(name string) int                       { return l.registry.Strlen(name) }
func (l *Link) Strcpy(name string, src []byte) int            { return l.registry.Strcpy(name, src) }
func (l *Link) Strncpy(name string, src []byte, max int) int  { return l.registry.Strncpy(name, src, max) }
func (l *Link) Strcat(name string, src []byte) int             { return l.registry.Strcat(name, src) }
func (l *Link) Strncat(name string, src []byte, max int) int   { return l.registry.Strncat(name, src, max) }
func (l *Link) Strcmp(name string, src []byte) int             { return l.registry.Strcmp(name, src) }
func (l *Link) Strncmp(name string, src []byte, max int) int   { return l.registry.Strncmp(name, src, max) }
func (l *Link) Strchr(name string, c byte) int                 { return l.registry.Strchr(name, c) }
func (l *Link) Strrchr(name string, c byte) int                { return l.registry.Strrchr(name, c) }
func (l *Link) Strpbrk(name string, charset []byte) int        { return l.registry.Strpbrk(name, charset) }
func (l *Link) Strstr(name string, substr []byte) int          { return l.registry.Strstr(name, substr) }
func (l *Link) Strtok(name string, sep []byte) []byte          { return l.registry.Strtok(name, sep) }
func (l *Link) Memset(name string, off, n int, c byte) int     { return l.registry.Memset(name, off, n, c) }
func (l *Link) Memcpy(name string, off int, src []byte) int    { return l.registry.Memcpy(name, off, src) }
func (l *Link) Memmove(name string, dstOff, srcOff, n int) int { return l.registry.Memmove(name, dstOff, srcOff, n) }

// BorrowElement copies one stride-sized record at idx out of the
// named array block into out.
func (l *Link) BorrowElement(name string, out []byte, idx int) error {
	return wrapErr("BorrowElement", l.registry.BorrowElement(name, out, idx))
}

// ReturnElement copies one stride-sized record from in into idx of
// the named array block and recomputes its checksum.
func (l *Link) ReturnElement(name string, in []byte, idx int) error {
	return wrapErr("ReturnElement", l.registry.ReturnElement(name, in, idx))
}

// Resize reallocates the named block's storage to n bytes, preserving
// content up to min(old, n).
func (l *Link) Resize(name string, n int) error {
	return wrapErr("Resize", l.registry.Resize(name, n))
}

// resultCode maps a registry error onto the legacy 0/-1/-2/-3 contract.
func resultCode(err error) int {
	if err == nil {
		return 0
	}
	switch err {
	case block.ErrNameExists:
		return -3
	case block.ErrAllocFailed:
		return -2
	default:
		return -1
	}
}
