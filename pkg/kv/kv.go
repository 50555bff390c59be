// Package kv provides the key-value store backing enrollment templates
// and the login-attempt audit log. Keys are hierarchical string paths
// (e.g., ["template", "alice", "<sample-id>"]) encoded with a ':'
// separator.
//
// Two implementations exist: a BadgerDB-backed store for durable data
// and an in-memory store for tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// separator joins key segments in the encoded representation.
// Segments must not contain it.
const separator = ':'

// Key is a hierarchical path made of string segments.
type Key []string

// String returns the encoded form of the key.
func (k Key) String() string {
	return strings.Join(k, string(separator))
}

// Child returns a new key with extra segments appended.
func (k Key) Child(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// Entry is a key-value pair returned by List and consumed by BatchSet.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the contract both backends satisfy. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates entries whose key starts with the given prefix, in
	// lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchSet atomically stores multiple entries.
	BatchSet(ctx context.Context, entries []Entry) error

	// BatchDelete atomically removes multiple keys.
	BatchDelete(ctx context.Context, keys []Key) error

	// Close releases resources held by the store.
	Close() error
}

// encode converts a Key into its stored byte form.
func encode(k Key) []byte {
	n := 0
	for i, seg := range k {
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, separator)
		}
		buf = append(buf, seg...)
	}
	return buf
}

// decode converts a stored byte form back into a Key.
func decode(b []byte) Key {
	parts := strings.Split(string(b), string(separator))
	return Key(parts)
}

// listPrefix returns the byte prefix used to scan under a key. A
// trailing separator keeps "template:al" from matching "template:alice".
func listPrefix(prefix Key) []byte {
	p := encode(prefix)
	if len(p) > 0 {
		p = append(p, separator)
	}
	return p
}
