// Package kvstore is the persistence boundary of the storefront: a small
// key/value contract with memory, Redis and SQLite backends.
//
// Values are opaque bytes. Callers that store structured data go through
// GetJSON and PutJSON so serialization lives in one place.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the port every backend implements.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key. A zero ttl means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GenerateKey joins a namespace and a key the same way across backends.
func GenerateKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

type scoped struct {
	inner     Store
	namespace string
}

// Scope returns a Store whose keys all live under namespace. Each storefront
// session gets its own scope, which plays the role of browser local storage.
func Scope(store Store, namespace string) Store {
	namespace = strings.TrimSuffix(namespace, ":")
	if s, ok := store.(*scoped); ok {
		return &scoped{inner: s.inner, namespace: GenerateKey(s.namespace, namespace)}
	}
	return &scoped{inner: store, namespace: namespace}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, GenerateKey(s.namespace, key))
}

func (s *scoped) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, GenerateKey(s.namespace, key), value, ttl)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, GenerateKey(s.namespace, key))
}

// GetJSON reads key and decodes it into dst.
func GetJSON(ctx context.Context, store Store, key string, dst any) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and writes it under key.
func PutJSON(ctx context.Context, store Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}
	return store.Set(ctx, key, raw, ttl)
}
