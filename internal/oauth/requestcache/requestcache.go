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

// Package requestcache persists full authorization requests in the blob store,
// keyed by the unique_id parameter, so later stages can reassemble them.
package requestcache

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/system/store"
)

// blobVersion is the only persisted request blob version this reader accepts.
const blobVersion int32 = 1

// RequestLifetime is the absolute TTL of a persisted authorization request.
const RequestLifetime = time.Hour

// ErrUnsupportedVersion is returned when a persisted blob carries an unknown version.
var ErrUnsupportedVersion = errors.New("unsupported request blob version")

// Parameter is a single persisted request parameter.
type Parameter struct {
	Key   string
	Value string
}

// SerializeMessage serializes the message parameters into the persisted blob
// format: version(int32) | count(int32) | (len-prefixed key, len-prefixed
// value) per parameter, all little-endian.
func SerializeMessage(msg *model.OAuthMessage) ([]byte, error) {
	var buffer bytes.Buffer

	if err := binary.Write(&buffer, binary.LittleEndian, blobVersion); err != nil {
		return nil, err
	}
	keys := msg.Keys()
	if err := binary.Write(&buffer, binary.LittleEndian, int32(len(keys))); err != nil {
		return nil, err
	}

	for _, key := range keys {
		if err := writeString(&buffer, key); err != nil {
			return nil, err
		}
		if err := writeString(&buffer, msg.Get(key)); err != nil {
			return nil, err
		}
	}

	return buffer.Bytes(), nil
}

// DeserializeParameters decodes a persisted request blob. Blobs with a
// version other than 1 are rejected with ErrUnsupportedVersion.
func DeserializeParameters(blob []byte) ([]Parameter, error) {
	reader := bytes.NewReader(blob)

	var version int32
	if err := binary.Read(reader, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read blob version: %w", err)
	}
	if version != blobVersion {
		return nil, ErrUnsupportedVersion
	}

	var count int32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read parameter count: %w", err)
	}
	if count < 0 {
		return nil, errors.New("negative parameter count")
	}

	parameters := make([]Parameter, 0, count)
	for i := int32(0); i < count; i++ {
		key, err := readString(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameter key: %w", err)
		}
		value, err := readString(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameter value: %w", err)
		}
		parameters = append(parameters, Parameter{Key: key, Value: value})
	}

	return parameters, nil
}

// writeString writes a length-prefixed UTF-8 string.
func writeString(buffer *bytes.Buffer, value string) error {
	if err := binary.Write(buffer, binary.LittleEndian, int32(len(value))); err != nil {
		return err
	}
	_, err := buffer.WriteString(value)
	return err
}

// readString reads a length-prefixed UTF-8 string.
func readString(reader *bytes.Reader) (string, error) {
	var length int32
	if err := binary.Read(reader, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if length < 0 || int(length) > reader.Len() {
		return "", errors.New("invalid string length")
	}

	buffer := make([]byte, length)
	if _, err := reader.Read(buffer); err != nil {
		return "", err
	}
	return string(buffer), nil
}

// RequestCache stashes and reassembles authorization requests by unique_id.
type RequestCache struct {
	store store.BlobStoreInterface
	clock func() time.Time
}

// NewRequestCache creates a request cache over the given blob store. A nil
// clock falls back to the system clock.
func NewRequestCache(blobStore store.BlobStoreInterface, clock func() time.Time) *RequestCache {
	if clock == nil {
		clock = time.Now
	}
	return &RequestCache{
		store: blobStore,
		clock: clock,
	}
}

// Store serializes the full request and persists it under the unique identifier.
func (c *RequestCache) Store(ctx context.Context, uniqueID string, msg *model.OAuthMessage) error {
	blob, err := SerializeMessage(msg)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, uniqueID, blob, c.clock().Add(RequestLifetime))
}

// Restore fetches the persisted request parameters. Missing entries return
// found=false. Blobs with an unsupported version are deleted and reported as
// missing.
func (c *RequestCache) Restore(ctx context.Context, uniqueID string) ([]Parameter, bool, error) {
	blob, err := c.store.Get(ctx, uniqueID)
	if err != nil {
		return nil, false, err
	}
	if blob == nil {
		return nil, false, nil
	}

	parameters, err := DeserializeParameters(blob)
	if errors.Is(err, ErrUnsupportedVersion) {
		if removeErr := c.store.Remove(ctx, uniqueID); removeErr != nil {
			return nil, false, removeErr
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return parameters, true, nil
}

// Remove deletes the persisted request.
func (c *RequestCache) Remove(ctx context.Context, uniqueID string) error {
	return c.store.Remove(ctx, uniqueID)
}
