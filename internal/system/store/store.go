/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package store provides the TTL based blob key-value store used for persisted
// authorization requests, authorization codes and refresh tokens.
package store

import (
	"context"
	"sync"
	"time"
)

// BlobStoreInterface defines the contract for blob storage with absolute expiration.
// Get returns a nil blob when the key is absent or expired. The store offers
// last-write-wins semantics on the same key and no further concurrency guarantee.
type BlobStoreInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, blob []byte, expiry time.Time) error
	Remove(ctx context.Context, key string) error
}

// blobEntry represents an entry in the in-memory blob store.
type blobEntry struct {
	blob   []byte
	expiry time.Time
}

// InMemoryBlobStore provides the default single-process blob store.
type InMemoryBlobStore struct {
	entries map[string]blobEntry
	clock   func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryBlobStore creates a new in-memory blob store. A nil clock falls
// back to the system clock.
func NewInMemoryBlobStore(clock func() time.Time) *InMemoryBlobStore {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryBlobStore{
		entries: make(map[string]blobEntry),
		clock:   clock,
	}
}

// Get retrieves a blob from the store. Expired entries are removed lazily.
func (s *InMemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}

	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if !s.clock().Before(entry.expiry) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}

	return entry.blob, nil
}

// Set stores a blob with the given absolute expiration.
func (s *InMemoryBlobStore) Set(ctx context.Context, key string, blob []byte, expiry time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = blobEntry{
		blob:   blob,
		expiry: expiry,
	}
	return nil
}

// Remove deletes a blob from the store.
func (s *InMemoryBlobStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// CleanupExpired removes all expired entries from the store.
func (s *InMemoryBlobStore) CleanupExpired() {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !now.Before(entry.expiry) {
			delete(s.entries, key)
		}
	}
}
