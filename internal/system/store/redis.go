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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempestauth/tempest/internal/system/config"
)

// defaultKeyPrefix namespaces all blob entries in Redis.
const defaultKeyPrefix = "tempest:blob:"

// RedisBlobStore provides a Redis backed blob store for multi-instance deployments.
type RedisBlobStore struct {
	client    redis.UniversalClient
	keyPrefix string
	clock     func() time.Time
}

// NewRedisBlobStore creates a new Redis backed blob store from the given configuration.
func NewRedisBlobStore(cfg config.RedisConfig, clock func() time.Time) *RedisBlobStore {
	if clock == nil {
		clock = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	return &RedisBlobStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		clock:     clock,
	}
}

// NewRedisBlobStoreWithClient creates a Redis backed blob store using an existing client.
func NewRedisBlobStoreWithClient(client redis.UniversalClient, clock func() time.Time) *RedisBlobStore {
	if clock == nil {
		clock = time.Now
	}
	return &RedisBlobStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		clock:     clock,
	}
}

// Get retrieves a blob from Redis. A missing key returns a nil blob.
func (s *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	blob, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob from redis: %w", err)
	}
	return blob, nil
}

// Set stores a blob in Redis with the TTL derived from the absolute expiration.
func (s *RedisBlobStore) Set(ctx context.Context, key string, blob []byte, expiry time.Time) error {
	if key == "" {
		return nil
	}

	ttl := expiry.Sub(s.clock())
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.keyPrefix+key, blob, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set blob in redis: %w", err)
	}
	return nil
}

// Remove deletes a blob from Redis.
func (s *RedisBlobStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to remove blob from redis: %w", err)
	}
	return nil
}
