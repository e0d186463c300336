// accessor.go implements the block accessor façade: thin wrappers over
// the registry exposing C-string/byte-primitive operations under the
// block's lock. Each op acquires unconditionally (no timeout),
// performs the stdlib bytes/strings equivalent against the block's
// storage, recomputes CRC-32 if it mutated the block, and releases.
// A missing block name yields the operation's zero value and no side
// effect.
package block

import "bytes"

// withBlock runs fn with the named block locked, recomputing the
// checksum afterward only if mutate is true. If name does not exist,
// fn is not called and ok is false.
func (r *Registry) withBlock(name string, mutate bool, fn func(b *Block)) (ok bool) {
	b, found := r.Lookup(name)
	if !found {
		return false
	}
	b.acquireUnconditional()
	fn(b)
	if mutate {
		b.release()
	} else {
		b.releaseReadOnly()
	}
	return true
}

// Strlen returns the length of the NUL-terminated string stored in
// name, or 0 if name does not exist.
func (r *Registry) Strlen(name string) int {
	var n int
	r.withBlock(name, false, func(b *Block) {
		if i := bytes.IndexByte(b.storage, 0); i >= 0 {
			n = i
		} else {
			n = len(b.storage)
		}
	})
	return n
}

// Strcpy copies src (plus a terminating NUL, if it fits) into name's
// storage starting at offset 0, returning the number of bytes copied.
func (r *Registry) Strcpy(name string, src []byte) int {
	var n int
	r.withBlock(name, true, func(b *Block) {
		n = copy(b.storage, src)
		if n < len(b.storage) {
			b.storage[n] = 0
		}
	})
	return n
}

// Strncpy is Strcpy bounded to at most max bytes of src.
func (r *Registry) Strncpy(name string, src []byte, max int) int {
	if max < len(src) {
		src = src[:max]
	}
	return r.Strcpy(name, src)
}

// Strcat appends src after the first NUL (or at the end, if none) of
// name's storage, returning the number of bytes appended.
func (r *Registry) Strcat(name string, src []byte) int {
	var n int
	r.withBlock(name, true, func(b *Block) {
		start := len(b.storage)
		if i := bytes.IndexByte(b.storage, 0); i >= 0 {
			start = i
		}
		n = copy(b.storage[start:], src)
	})
	return n
}

// Strncat is Strcat bounded to at most max bytes of src.
func (r *Registry) Strncat(name string, src []byte, max int) int {
	if max < len(src) {
		src = src[:max]
	}
	return r.Strcat(name, src)
}

// Strcmp lexically compares name's stored bytes (up to its first NUL)
// against src, per bytes.Compare semantics. Returns 0 and no error
// signal if name does not exist.
func (r *Registry) Strcmp(name string, src []byte) int {
	var cmp int
	r.withBlock(name, false, func(b *Block) {
		end := len(b.storage)
		if i := bytes.IndexByte(b.storage, 0); i >= 0 {
			end = i
		}
		cmp = bytes.Compare(b.storage[:end], src)
	})
	return cmp
}

// Strncmp is Strcmp bounded to at most max bytes of each side.
func (r *Registry) Strncmp(name string, src []byte, max int) int {
	var cmp int
	r.withBlock(name, false, func(b *Block) {
		end := len(b.storage)
		if i := bytes.IndexByte(b.storage, 0); i >= 0 && i < end {
			end = i
		}
		if end > max {
			end = max
		}
		s := src
		if len(s) > max {
			s = s[:max]
		}
		cmp = bytes.Compare(b.storage[:end], s)
	})
	return cmp
}

// Strchr returns the index of the first occurrence of c in name's
// storage, or -1 if not found or name does not exist.
func (r *Registry) Strchr(name string, c byte) int {
	idx := -1
	r.withBlock(name, false, func(b *Block) {
		idx = bytes.IndexByte(b.storage, c)
	})
	return idx
}

// Strrchr returns the index of the last occurrence of c in name's
// storage, or -1 if not found or name does not exist.
func (r *Registry) Strrchr(name string, c byte) int {
	idx := -1
	r.withBlock(name, false, func(b *Block) {
		idx = bytes.LastIndexByte(b.storage, c)
	})
	return idx
}

// Strpbrk returns the index of the first byte in name's storage that
// also occurs in charset, or -1 if none or name does not exist.
func (r *Registry) Strpbrk(name string, charset []byte) int {
	idx := -1
	r.withBlock(name, false, func(b *Block) {
		idx = bytes.IndexAny(b.storage, string(charset))
	})
	return idx
}

// Strstr returns the index of the first occurrence of substr in
// name's storage, or -1 if not found or name does not exist.
func (r *Registry) Strstr(name string, substr []byte) int {
	idx := -1
	r.withBlock(name, false, func(b *Block) {
		idx = bytes.Index(b.storage, substr)
	})
	return idx
}

// Strtok splits the first token out of name's storage using any byte
// in sep as a delimiter, returning the token bytes (or nil if name
// does not exist or storage is empty).
func (r *Registry) Strtok(name string, sep []byte) []byte {
	var tok []byte
	r.withBlock(name, false, func(b *Block) {
		fields := bytes.FieldsFunc(b.storage, func(r rune) bool {
			return bytes.ContainsRune(sep, r)
		})
		if len(fields) > 0 {
			tok = fields[0]
		}
	})
	return tok
}

// Memset fills name's storage with c, starting at off for n bytes.
func (r *Registry) Memset(name string, off, n int, c byte) int {
	var filled int
	r.withBlock(name, true, func(b *Block) {
		end := off + n
		if end > len(b.storage) {
			end = len(b.storage)
		}
		if off < 0 || off >= end {
			return
		}
		for i := off; i < end; i++ {
			b.storage[i] = c
		}
		filled = end - off
	})
	return filled
}

// Memcpy copies src into name's storage at off.
func (r *Registry) Memcpy(name string, off int, src []byte) int {
	var n int
	r.withBlock(name, true, func(b *Block) {
		if off < 0 || off > len(b.storage) {
			return
		}
		n = copy(b.storage[off:], src)
	})
	return n
}

// Memmove copies n bytes within name's storage from srcOff to dstOff,
// correctly handling overlap (per Go's copy builtin semantics).
func (r *Registry) Memmove(name string, dstOff, srcOff, n int) int {
	var moved int
	r.withBlock(name, true, func(b *Block) {
		if dstOff < 0 || srcOff < 0 || dstOff+n > len(b.storage) || srcOff+n > len(b.storage) {
			return
		}
		moved = copy(b.storage[dstOff:dstOff+n], b.storage[srcOff:srcOff+n])
	})
	return moved
}
