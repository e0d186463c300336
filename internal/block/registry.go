package block

import (
	"context"
	"sync"

	"github.com/behrlich/mtlink/internal/frame"
)

// Registry is the named map of memory blocks. Insertion is guarded by
// a mutex but expected to happen single-threaded during setup; lookups
// and per-block operations are then safe to run concurrently without
// any registry-wide lock, guarded only by each block's own semaphore.
type Registry struct {
	mu     sync.RWMutex
	blocks map[string]*Block
	order  []string // insertion order, stable for the slave's idle scan
}

// NewRegistry creates an empty block registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]*Block)}
}

func (r *Registry) insert(b *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blocks[b.name]; exists {
		return ErrNameExists
	}
	r.blocks[b.name] = b
	r.order = append(r.order, b.name)
	return nil
}

// NewBlob allocates a zero-initialized blob of length bytes.
func (r *Registry) NewBlob(name string, length int, role Role, trigger, pattern frame.Token) (*Block, error) {
	if length < 0 {
		return nil, ErrAllocFailed
	}
	b := newBlock(name, length, Blob, 0, role, trigger, pattern)
	if err := r.insert(b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewArray allocates a zero-initialized array of n elements of size
// bytes each. length is always n*size and a multiple of size.
func (r *Registry) NewArray(name string, n, size int, role Role, trigger, pattern frame.Token) (*Block, error) {
	if n < 0 || size <= 0 {
		return nil, ErrAllocFailed
	}
	b := newBlock(name, n*size, Array, size, role, trigger, pattern)
	if err := r.insert(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Lookup returns the named block, or false if no such block exists.
func (r *Registry) Lookup(name string) (*Block, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocks[name]
	return b, ok
}

// Names returns the registered block names in stable insertion order,
// for the slave's idle-state trigger scan.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SlaveOwnedBlocks returns every block whose local role is slave, in
// stable insertion order.
func (r *Registry) SlaveOwnedBlocks() []*Block {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Block
	for _, name := range r.order {
		b := r.blocks[name]
		if b.role == RoleSlave {
			out = append(out, b)
		}
	}
	return out
}

// Grab acquires the named block's mutex within ctx's deadline and
// returns a mutable view of its storage. The caller must call
// Return (or ReturnReadOnly) exactly once to release it.
func (r *Registry) Grab(ctx context.Context, name string) ([]byte, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return nil, ErrNotFound
	}
	if err := b.acquire(ctx); err != nil {
		return nil, ErrTimedOut
	}
	return b.storage, nil
}

// Return recomputes the block's CRC-32 and releases its mutex.
func (r *Registry) Return(name string) error {
	b, ok := r.Lookup(name)
	if !ok {
		return ErrNotFound
	}
	b.release()
	return nil
}

// ReturnReadOnly releases the block's mutex without recomputing its
// checksum, for callers that only observed storage under Grab.
func (r *Registry) ReturnReadOnly(name string) error {
	b, ok := r.Lookup(name)
	if !ok {
		return ErrNotFound
	}
	b.releaseReadOnly()
	return nil
}

// Resize reallocates the named block's storage to n bytes, preserving
// content up to min(old, n), and recomputes its checksum.
func (r *Registry) Resize(name string, n int) error {
	if n < 0 {
		return ErrAllocFailed
	}
	b, ok := r.Lookup(name)
	if !ok {
		return ErrNotFound
	}
	if err := b.acquire(context.Background()); err != nil {
		return ErrTimedOut
	}
	defer b.release()

	next := make([]byte, n)
	copy(next, b.storage)
	b.storage = next
	return nil
}

// GetLength returns the named block's current length in bytes.
func (r *Registry) GetLength(name string) (int, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return 0, ErrNotFound
	}
	// Briefly take the lock to observe a coherent value: a concurrent
	// Resize/replace could otherwise race on len(storage).
	if err := b.acquire(context.Background()); err != nil {
		return 0, ErrTimedOut
	}
	n := len(b.storage)
	b.releaseReadOnly()
	return n, nil
}

// BorrowElement copies one stride-sized record at idx out of the
// named array block into out.
func (r *Registry) BorrowElement(name string, out []byte, idx int) error {
	b, ok := r.Lookup(name)
	if !ok {
		return ErrNotFound
	}
	if b.kind != Array {
		return ErrNotAnArray
	}
	if err := b.acquire(context.Background()); err != nil {
		return ErrTimedOut
	}
	defer b.releaseReadOnly()

	off := idx * b.stride
	if idx < 0 || off+b.stride > len(b.storage) {
		return ErrIndexOutOfRange
	}
	copy(out, b.storage[off:off+b.stride])
	return nil
}

// ReturnElement copies one stride-sized record from in into idx of
// the named array block and recomputes its checksum.
func (r *Registry) ReturnElement(name string, in []byte, idx int) error {
	b, ok := r.Lookup(name)
	if !ok {
		return ErrNotFound
	}
	if b.kind != Array {
		return ErrNotAnArray
	}
	if err := b.acquire(context.Background()); err != nil {
		return ErrTimedOut
	}
	defer b.release()

	off := idx * b.stride
	if idx < 0 || off+b.stride > len(b.storage) {
		return ErrIndexOutOfRange
	}
	copy(b.storage[off:off+b.stride], in)
	return nil
}

// ReplaceStorage atomically swaps the named block's storage with next
// and recomputes its checksum — the master state machine's successful
// completion path. The caller must already hold the
// block's mutex (acquired via Grab) and does not call Return
// separately; ReplaceStorage releases it.
func (r *Registry) ReplaceStorage(name string, next []byte) error {
	b, ok := r.Lookup(name)
	if !ok {
		return ErrNotFound
	}
	b.storage = next
	b.release()
	return nil
}
