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

// Package jwt provides the signing credential model and RS256 token issuance
// for access and identity tokens.
package jwt

import (
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // kid values use the SHA-1 certificate thumbprint.
	"crypto/x509"
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tempestauth/tempest/internal/system/crypto"
)

// AlgorithmRS256 is the only signing algorithm supported for issued tokens.
const AlgorithmRS256 = "RS256"

// SigningCredential pairs an RSA signing key with its algorithm. The
// certificate is present for X.509 wrapped keys and nil for raw RSA keys.
type SigningCredential struct {
	Key         *rsa.PrivateKey
	Certificate *x509.Certificate
	KeyID       string
	Algorithm   string
}

// NewSigningCredential creates a credential from a raw RSA key.
func NewSigningCredential(key *rsa.PrivateKey) SigningCredential {
	return SigningCredential{
		Key:       key,
		KeyID:     uuid.NewString(),
		Algorithm: AlgorithmRS256,
	}
}

// NewX509SigningCredential creates a credential from an X.509 wrapped RSA key.
// The kid is the base64url SHA-1 thumbprint of the certificate.
func NewX509SigningCredential(key *rsa.PrivateKey, certificate *x509.Certificate) SigningCredential {
	thumbprint := sha1.Sum(certificate.Raw) //nolint:gosec
	return SigningCredential{
		Key:         key,
		Certificate: certificate,
		KeyID:       crypto.EncodeBase64URL(thumbprint[:]),
		Algorithm:   AlgorithmRS256,
	}
}

// JWTServiceInterface defines the interface for JWT issuance and verification.
type JWTServiceInterface interface {
	SigningCredentials() []SigningCredential
	GenerateToken(claims map[string]interface{}) (string, error)
	VerifyToken(token string) (map[string]interface{}, error)
}

// JWTService signs tokens with the first configured credential and verifies
// against all of them.
type JWTService struct {
	credentials []SigningCredential
}

// NewJWTService creates a JWT service over the ordered credential list.
func NewJWTService(credentials []SigningCredential) *JWTService {
	return &JWTService{
		credentials: credentials,
	}
}

// SigningCredentials returns the configured signing credentials.
func (s *JWTService) SigningCredentials() []SigningCredential {
	return s.credentials
}

// GenerateToken issues an RS256 signed JWT carrying the given claims.
func (s *JWTService) GenerateToken(claims map[string]interface{}) (string, error) {
	if len(s.credentials) == 0 {
		return "", errors.New("no signing credentials configured")
	}
	credential := s.credentials[0]
	if credential.Key == nil {
		return "", errors.New("signing credential has no private key")
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims(claims))
	token.Header["kid"] = credential.KeyID

	signed, err := token.SignedString(credential.Key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken verifies the token signature against the configured credentials
// and returns the raw claims. Claim validation (expiry, audience) is left to
// the caller.
func (s *JWTService) VerifyToken(token string) (map[string]interface{}, error) {
	if len(s.credentials) == 0 {
		return nil, errors.New("no signing credentials configured")
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{AlgorithmRS256}),
		jwtlib.WithoutClaimsValidation(),
	)

	parsed, err := parser.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		for _, credential := range s.credentials {
			if credential.Key == nil {
				continue
			}
			if kid == "" || credential.KeyID == kid {
				return &credential.Key.PublicKey, nil
			}
		}
		return nil, errors.New("no matching signing credential")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}
