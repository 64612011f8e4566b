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

// Package crypto provides the cryptographic primitives used by the OAuth2 module:
// opaque key generation, token hash claims and base64url helpers.
package crypto

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SHA-1 hash claims are required for RS1 style algorithms.
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"
	"io"
	"strings"
)

// keyLength is the length of generated opaque keys in bytes.
const keyLength = 32

// GenerateKey generates a 256-bit random key encoded in unpadded base64url
// using the given randomness source. A nil reader falls back to the OS RNG.
func GenerateKey(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}

	buffer := make([]byte, keyLength)
	if _, err := io.ReadFull(random, buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashAlgorithm identifies the digest used for token hash claims.
type HashAlgorithm string

// Supported hash algorithms for token hash claims.
const (
	HashAlgorithmSHA1   HashAlgorithm = "SHA1"
	HashAlgorithmSHA256 HashAlgorithm = "SHA256"
	HashAlgorithmSHA512 HashAlgorithm = "SHA512"
)

// TokenHash computes an OIDC token hash claim (at_hash / c_hash): the digest
// of the ASCII bytes of the token, truncated to its first half, base64-encoded
// with padding stripped and the URL-safe character substitution applied.
func TokenHash(algorithm HashAlgorithm, token string) string {
	var hasher hash.Hash
	switch algorithm {
	case HashAlgorithmSHA1:
		hasher = sha1.New() //nolint:gosec
	case HashAlgorithmSHA512:
		hasher = sha512.New()
	default:
		hasher = sha256.New()
	}

	hasher.Write([]byte(token))
	digest := hasher.Sum(nil)

	// Keep the left-most half of the digest, then apply the legacy
	// base64 + manual URL-safe substitution to stay wire-compatible.
	encoded := base64.StdEncoding.EncodeToString(digest[:len(digest)/2])
	encoded = strings.TrimRight(encoded, "=")
	encoded = strings.ReplaceAll(encoded, "+", "-")
	return strings.ReplaceAll(encoded, "/", "_")
}

// EncodeBase64URL encodes the input in unpadded base64url.
func EncodeBase64URL(input []byte) string {
	return base64.RawURLEncoding.EncodeToString(input)
}
