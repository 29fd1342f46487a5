// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

// MessageKey is the field holding the human readable message of an event.
const MessageKey = "message"

var jsonConfig = jsoniter.ConfigCompatibleWithStandardLibrary

// Field is a field name and its formatted value.
type Field struct {
	Key   string
	Value string
}

// FieldSet collects the formatted fields of one event or span. Keys are
// unique: setting a key again replaces its value.
type FieldSet struct {
	fields []Field
	sorted bool
}

// Set records value under key. The value is formatted with the %v verb.
func (fs *FieldSet) Set(key string, value any) {
	v := Format(value)
	for i := range fs.fields {
		if fs.fields[i].Key == key {
			fs.fields[i].Value = v
			return
		}
	}
	fs.fields = append(fs.fields, Field{Key: key, Value: v})
	fs.sorted = false
}

// Message returns the value of the MessageKey field, or "" if not set.
func (fs *FieldSet) Message() string {
	for _, f := range fs.fields {
		if f.Key == MessageKey {
			return f.Value
		}
	}
	return ""
}

// Len returns the number of fields in fs.
func (fs *FieldSet) Len() int { return len(fs.fields) }

// Fields returns the fields sorted by key.
func (fs *FieldSet) Fields() []Field {
	fs.sort()
	return fs.fields
}

// Map returns the fields as a map.
func (fs *FieldSet) Map() map[string]string {
	m := make(map[string]string, len(fs.fields))
	for _, f := range fs.fields {
		m[f.Key] = f.Value
	}
	return m
}

// Reset removes every field.
func (fs *FieldSet) Reset() {
	clear(fs.fields)
	fs.fields = fs.fields[:0]
	fs.sorted = false
}

func (fs *FieldSet) sort() {
	if fs.sorted {
		return
	}
	sort.Slice(fs.fields, func(i, j int) bool { return fs.fields[i].Key < fs.fields[j].Key })
	fs.sorted = true
}

// AppendJSON appends the JSON object encoding of fs to dst. Keys are
// written in sorted order and every value is a JSON string.
func (fs *FieldSet) AppendJSON(dst []byte) []byte {
	fs.sort()

	stream := jsonConfig.BorrowStream(nil)
	defer jsonConfig.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, f := range fs.fields {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(f.Key)
		stream.WriteString(f.Value)
	}
	stream.WriteObjectEnd()
	return append(dst, stream.Buffer()...)
}

// Format returns the %v formatting of v. It never fails: a panicking
// String or Error method is reported inline by fmt.
func Format(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
