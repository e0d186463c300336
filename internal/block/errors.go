package block

import "errors"

var (
	// ErrNameExists is returned by NewBlob/NewArray when name is already
	// registered.
	ErrNameExists = errors.New("block: name already exists")

	// ErrNotFound is returned when name has no registered block.
	ErrNotFound = errors.New("block: not found")

	// ErrTimedOut is returned by Grab when the lock could not be
	// acquired within the caller's timeout.
	ErrTimedOut = errors.New("block: grab timed out")

	// ErrNotAnArray is returned by BorrowElement/ReturnElement against
	// a Blob block.
	ErrNotAnArray = errors.New("block: not an array")

	// ErrIndexOutOfRange is returned by BorrowElement/ReturnElement
	// when idx is outside the array's element count.
	ErrIndexOutOfRange = errors.New("block: index out of range")

	// ErrAllocFailed is returned by Resize/NewBlob/NewArray when the
	// requested storage could not be sized (only possible in principle
	// for absurd sizes; make([]byte, n) in Go panics rather than
	// failing gracefully for n>=0, so this is returned only for a
	// negative length or element count, or an array element size <= 0,
	// rejected before allocation is attempted).
	ErrAllocFailed = errors.New("block: allocation failed")
)
