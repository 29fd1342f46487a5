// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package transfer provides the NUL-terminated buffers lent to probe entry
// points for the duration of a single call.
//
// A Buffer is owned by the Scope that produced it. Native code receives a
// borrowed pointer that is only valid until the call returns and the Scope
// releases every Buffer it handed out in one go.
package transfer

import (
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"
)

// maxPooledCap is the largest buffer capacity kept for reuse.
const maxPooledCap = 64 << 10

// replacement is the UTF-8 encoding of U+FFFD. It stands in for NUL bytes
// that would otherwise truncate a C string.
const replacement = "\uFFFD"

// Buffer is a NUL-terminated byte string.
type Buffer struct {
	b []byte
}

// Ptr returns a pointer to the first byte of b. The pointed memory is valid
// until the owning Scope is released.
func (b *Buffer) Ptr() *byte { return &b.b[0] }

// Bytes returns the content of b without the terminating NUL.
func (b *Buffer) Bytes() []byte { return b.b[:len(b.b)-1] }

// String returns a copy of the content of b.
func (b *Buffer) String() string { return string(b.Bytes()) }

var (
	buffers = sync.Pool{New: func() any { return &Buffer{b: make([]byte, 0, 256)} }}
	scopes  = sync.Pool{New: func() any { return new(Scope) }}

	outstanding atomic.Int64
)

// Outstanding returns the number of buffers handed out and not yet released.
func Outstanding() int64 { return outstanding.Load() }

func getBuffer() *Buffer {
	outstanding.Add(1)
	b := buffers.Get().(*Buffer)
	b.b = b.b[:0]
	return b
}

func putBuffer(b *Buffer) {
	outstanding.Add(-1)
	if cap(b.b) > maxPooledCap {
		return
	}
	buffers.Put(b)
}

// Scope owns the buffers acquired for one probe invocation pass. It must be
// released exactly once, after the last call using its buffers returned.
//
//	s := transfer.NewScope()
//	defer s.Release()
type Scope struct {
	bufs   []*Buffer
	fields FieldSet
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return scopes.Get().(*Scope)
}

// Fields returns the field set of s, empty on a new Scope.
func (s *Scope) Fields() *FieldSet { return &s.fields }

// CString returns a Buffer holding str. NUL bytes in str are replaced with
// U+FFFD.
func (s *Scope) CString(str string) *Buffer {
	b := getBuffer()
	b.b = appendCString(b.b, str)
	s.bufs = append(s.bufs, b)
	return b
}

// JSON returns a Buffer holding the JSON object encoding of fs.
func (s *Scope) JSON(fs *FieldSet) *Buffer {
	b := getBuffer()
	b.b = append(fs.AppendJSON(b.b), 0)
	s.bufs = append(s.bufs, b)
	return b
}

// Release returns every buffer of s and s itself for reuse. Neither s nor
// any Buffer it produced may be used afterwards.
func (s *Scope) Release() {
	for i, b := range s.bufs {
		putBuffer(b)
		s.bufs[i] = nil
	}
	s.bufs = s.bufs[:0]
	s.fields.Reset()
	scopes.Put(s)
}

func appendCString(dst []byte, s string) []byte {
	for {
		i := strings.IndexByte(s, 0)
		if i < 0 {
			break
		}
		dst = append(dst, s[:i]...)
		dst = append(dst, replacement...)
		s = s[i+1:]
	}
	dst = append(dst, s...)
	return append(dst, 0)
}

// GoString returns a copy of the NUL-terminated string p points to.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
