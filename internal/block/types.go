// Package block implements the shared-block registry and
// its accessor façade: named, mutex-guarded memory blocks
// shared between the master and slave sides of a transfer.
package block

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/behrlich/mtlink/internal/crc"
	"github.com/behrlich/mtlink/internal/frame"
)

// Kind distinguishes a blob (opaque bytes) from an array (fixed-stride
// records).
type Kind int

const (
	Blob Kind = iota
	Array
)

func (k Kind) String() string {
	if k == Array {
		return "array"
	}
	return "blob"
}

// Role is the local side's relationship to a block's authoritative
// copy: it serves it on demand (Slave) or pulls it from the peer
// (Master). Roles are per-block, not per-peer (GLOSSARY).
type Role int

const (
	RoleSlave Role = iota
	RoleMaster
)

func (r Role) String() string {
	if r == RoleMaster {
		return "master"
	}
	return "slave"
}

// Block is one entry in the registry.
type Block struct {
	name    string
	kind    Kind
	stride  int // element size for Array blocks; 0 for Blob
	role    Role
	trigger frame.Token
	pattern frame.Token

	sem      *semaphore.Weighted // weight 1; acquired as the block's mutex
	storage  []byte
	checksum uint32
}

// newBlock allocates a zero-initialized block. length must already be
// a multiple of stride for Array blocks; callers enforce that.
func newBlock(name string, length int, kind Kind, stride int, role Role, trigger, pattern frame.Token) *Block {
	return &Block{
		name:    name,
		kind:    kind,
		stride:  stride,
		role:    role,
		trigger: trigger,
		pattern: pattern,
		sem:     semaphore.NewWeighted(1),
		storage: make([]byte, length),
	}
}

// Name returns the block's registry name.
func (b *Block) Name() string { return b.name }

// Kind returns whether this is a Blob or Array block.
func (b *Block) Kind() Kind { return b.kind }

// Role returns the local role for this block.
func (b *Block) Role() Role { return b.role }

// Trigger returns the block's 8-byte trigger token.
func (b *Block) Trigger() frame.Token { return b.trigger }

// Pattern returns the block's 8-byte pattern token.
func (b *Block) Pattern() frame.Token { return b.pattern }

// Stride returns the element size for Array blocks, 0 for Blob blocks.
func (b *Block) Stride() int { return b.stride }

// acquire takes the block's mutex within ctx's deadline.
func (b *Block) acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

// acquireUnconditional takes the block's mutex with no deadline, for
// the accessor façade's "acquire unconditionally" contract.
func (b *Block) acquireUnconditional() {
	_ = b.sem.Acquire(context.Background(), 1)
}

// release recomputes the checksum and releases the mutex. Call only
// while holding the lock.
func (b *Block) release() {
	b.checksum = crc.CRC32(b.storage)
	b.sem.Release(1)
}

// releaseReadOnly releases the mutex without recomputing the checksum,
// for call paths that only observed storage without mutating it.
func (b *Block) releaseReadOnly() {
	b.sem.Release(1)
}

// Checksum returns the block's last-computed CRC-32. Caller must hold
// the lock for this to be meaningful as a snapshot of storage.
func (b *Block) Checksum() uint32 { return b.checksum }

func (b *Block) String() string {
	return fmt.Sprintf("block{name=%s kind=%s role=%s len=%d}", b.name, b.kind, b.role, len(b.storage))
}
