// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeCString(t *testing.T) {
	s := NewScope()
	defer s.Release()

	b := s.CString("hello")
	assert.Equal(t, "hello", b.String())
	assert.Equal(t, "hello", GoString(b.Ptr()))

	empty := s.CString("")
	assert.Equal(t, "", GoString(empty.Ptr()))
}

func TestScopeCStringNUL(t *testing.T) {
	s := NewScope()
	defer s.Release()

	b := s.CString("a\x00b\x00")
	assert.Equal(t, "a\uFFFDb\uFFFD", GoString(b.Ptr()))
}

func TestScopeRelease(t *testing.T) {
	before := Outstanding()

	s := NewScope()
	s.CString("name")
	s.CString("message")
	s.Fields().Set("k", 1)
	s.JSON(s.Fields())
	assert.Equal(t, before+3, Outstanding())

	s.Release()
	assert.Equal(t, before, Outstanding())

	s = NewScope()
	defer s.Release()
	assert.Zero(t, s.Fields().Len(), "reused scope must start empty")
}

func TestFieldSetJSON(t *testing.T) {
	var fs FieldSet
	fs.Set("x", 1)
	fs.Set("message", "hi")

	got := fs.AppendJSON(nil)
	assert.Equal(t, `{"message":"hi","x":"1"}`, string(got))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, map[string]string{"x": "1", "message": "hi"}, decoded)
}

func TestFieldSetLastWins(t *testing.T) {
	var fs FieldSet
	fs.Set("a", "first")
	fs.Set("b", true)
	fs.Set("a", "second")

	assert.Equal(t, 2, fs.Len())
	assert.Equal(t, []Field{{"a", "second"}, {"b", "true"}}, fs.Fields())
}

func TestFieldSetMessage(t *testing.T) {
	var fs FieldSet
	assert.Equal(t, "", fs.Message())
	fs.Set(MessageKey, "Even called")
	assert.Equal(t, "Even called", fs.Message())
}

func TestFieldSetEscaping(t *testing.T) {
	var fs FieldSet
	fs.Set("quote\"key", "line\nbreak\x00nul")

	s := NewScope()
	defer s.Release()
	b := s.JSON(&fs)

	// The encoding itself never contains a NUL.
	raw := GoString(b.Ptr())
	assert.Equal(t, len(b.Bytes()), len(raw))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "line\nbreak\x00nul", decoded["quote\"key"])
}

type panicStringer struct{}

func (panicStringer) String() string { panic("boom") }

func TestFormat(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want string
	}{
		{"String", "s", "s"},
		{"Int", 42, "42"},
		{"Bool", false, "false"},
		{"Error", errors.New("bad"), "bad"},
		{"Slice", []int{1, 2}, "[1 2]"},
		{"Nil", nil, "<nil>"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.in))
		})
	}

	assert.NotPanics(t, func() {
		assert.Contains(t, Format(panicStringer{}), "PANIC")
	})
}

func TestGoStringNil(t *testing.T) {
	assert.Equal(t, "", GoString(nil))
}
