package kv

import (
	"context"
	"errors"
	"testing"
)

// storeImpls returns both backends for shared behavior tests. Badger
// runs in memory-only mode so tests need no temp dirs.
func storeImpls(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			key := Key{"template", "alice", "sample1"}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing: err = %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, key, []byte("payload")); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "payload" {
				t.Errorf("Get = %q, want payload", got)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
			}
			// Deleting again is a no-op.
			if err := s.Delete(ctx, key); err != nil {
				t.Errorf("second delete: %v", err)
			}
		})
	}
}

func TestStoreListPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			entries := []Entry{
				{Key: Key{"template", "alice", "s1"}, Value: []byte("a1")},
				{Key: Key{"template", "alice", "s2"}, Value: []byte("a2")},
				{Key: Key{"template", "bob", "s1"}, Value: []byte("b1")},
				{Key: Key{"attempt", "1"}, Value: []byte("x")},
			}
			if err := s.BatchSet(ctx, entries); err != nil {
				t.Fatal(err)
			}

			var got []string
			for e, err := range s.List(ctx, Key{"template", "alice"}) {
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, string(e.Value))
			}
			if len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
				t.Errorf("List = %v, want [a1 a2]", got)
			}

			// Prefix must not match sibling identities sharing a
			// string prefix.
			if err := s.Set(ctx, Key{"template", "alicia", "s1"}, []byte("oops")); err != nil {
				t.Fatal(err)
			}
			count := 0
			for _, err := range s.List(ctx, Key{"template", "alice"}) {
				if err != nil {
					t.Fatal(err)
				}
				count++
			}
			if count != 2 {
				t.Errorf("List after sibling insert = %d entries, want 2", count)
			}
		})
	}
}

func TestStoreBatchDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			keys := []Key{{"a", "1"}, {"a", "2"}, {"a", "3"}}
			for _, k := range keys {
				if err := s.Set(ctx, k, []byte("v")); err != nil {
					t.Fatal(err)
				}
			}
			if err := s.BatchDelete(ctx, keys[:2]); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, keys[0]); !errors.Is(err, ErrNotFound) {
				t.Errorf("key 0 should be deleted, err = %v", err)
			}
			if _, err := s.Get(ctx, keys[2]); err != nil {
				t.Errorf("key 2 should survive, err = %v", err)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	k := Key{"template", "alice", "s1"}
	if k.String() != "template:alice:s1" {
		t.Errorf("String = %q", k.String())
	}
	if got := k.Child("extra").String(); got != "template:alice:s1:extra" {
		t.Errorf("Child = %q", got)
	}
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{}); err == nil {
		t.Error("expected error for missing dir in on-disk mode")
	}
}
