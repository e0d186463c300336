package protocol

import "sync/atomic"

// SuspendFlag coordinates exclusive transport access between the
// long-lived slave task and an in-flight master transfer: the
// master sets it before starting a transfer and clears it on
// completion; the slave checks it on every loop iteration, abandons any
// session in progress, and skips activity while set. One long-lived slave task stands down for
// the duration of a transfer rather than being torn down and recreated.
type SuspendFlag struct {
	active atomic.Bool
}

func (f *SuspendFlag) Set()        { f.active.Store(true) }
func (f *SuspendFlag) Clear()      { f.active.Store(false) }
func (f *SuspendFlag) IsSet() bool { return f.active.Load() }
