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

// Package ticket provides the default persistence and serialization of
// authentication tickets: opaque authorization codes and refresh tokens in
// the blob store, and JWT formatted access and identity tokens.
package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	syscrypto "github.com/tempestauth/tempest/internal/system/crypto"
	"github.com/tempestauth/tempest/internal/system/store"
)

// ErrMissingSubject is returned when an identity token cannot determine its subject.
var ErrMissingSubject = errors.New("a unique identifier cannot be found to generate a 'sub' claim")

// SerializeTicket serializes an authentication ticket for blob storage.
func SerializeTicket(ticket *model.AuthenticationTicket) ([]byte, error) {
	return json.Marshal(ticket)
}

// DeserializeTicket decodes an authentication ticket from its blob form.
func DeserializeTicket(blob []byte) (*model.AuthenticationTicket, error) {
	var ticket model.AuthenticationTicket
	if err := json.Unmarshal(blob, &ticket); err != nil {
		return nil, fmt.Errorf("failed to deserialize ticket: %w", err)
	}
	if ticket.Properties == nil {
		ticket.Properties = make(model.TicketProperties)
	}
	return &ticket, nil
}

// Service implements the default ticket persistence and token construction.
type Service struct {
	jwtService jwt.JWTServiceInterface
	blobStore  store.BlobStoreInterface
	clock      func() time.Time
	random     io.Reader
}

// NewService creates a ticket service. A nil clock falls back to the system
// clock and a nil random source to the OS RNG.
func NewService(jwtService jwt.JWTServiceInterface, blobStore store.BlobStoreInterface,
	clock func() time.Time, random io.Reader) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		jwtService: jwtService,
		blobStore:  blobStore,
		clock:      clock,
		random:     random,
	}
}

// IssueOpaqueToken persists the serialized ticket under a fresh 256-bit
// random key with TTL bound to the ticket expiration, and returns the key.
// Authorization codes and refresh tokens are issued this way; their claims
// are not filtered.
func (s *Service) IssueOpaqueToken(ctx context.Context, ticket *model.AuthenticationTicket) (string, error) {
	expiresUTC, ok := ticket.Properties.ExpiresUTC()
	if !ok {
		return "", errors.New("ticket has no expiration timestamp")
	}
	if !expiresUTC.After(s.clock()) {
		return "", errors.New("ticket is already expired")
	}

	key, err := syscrypto.GenerateKey(s.random)
	if err != nil {
		return "", err
	}

	blob, err := SerializeTicket(ticket)
	if err != nil {
		return "", err
	}

	if err := s.blobStore.Set(ctx, key, blob, expiresUTC); err != nil {
		return "", err
	}
	return key, nil
}

// RedeemOnce resolves an opaque token and deletes it before returning the
// ticket, making redemption exactly-once. A missing key returns a nil ticket.
func (s *Service) RedeemOnce(ctx context.Context, key string) (*model.AuthenticationTicket, error) {
	blob, err := s.blobStore.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}

	// Delete before consuming so a concurrent redemption cannot succeed twice.
	if err := s.blobStore.Remove(ctx, key); err != nil {
		return nil, err
	}

	return DeserializeTicket(blob)
}

// Redeem resolves an opaque token without consuming it.
func (s *Service) Redeem(ctx context.Context, key string) (*model.AuthenticationTicket, error) {
	blob, err := s.blobStore.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	return DeserializeTicket(blob)
}

// IssueAccessToken serializes the ticket into a signed JWT access token,
// keeping only the claims destined to access tokens.
func (s *Service) IssueAccessToken(issuer string, request *model.OAuthMessage,
	ticket *model.AuthenticationTicket) (string, error) {
	principal := ticket.Principal.Filter(func(claim model.Claim) bool {
		if claim.Type == constants.ClaimNameID || claim.Type == constants.ClaimSubject {
			return true
		}
		return claim.HasDestination(model.DestinationAccessToken)
	})

	claims := make(map[string]interface{})
	for _, claim := range principal.Claims {
		claims[claim.Type] = claim.Value
	}

	// Derive the subject from the name identifier when absent.
	if _, ok := claims[constants.ClaimSubject]; !ok {
		nameID, found := principal.FindFirst(constants.ClaimNameID)
		if !found {
			return "", ErrMissingSubject
		}
		claims[constants.ClaimSubject] = nameID.Value
	}

	audiences := request.Get(constants.Resource)
	if audiences == "" {
		audiences = ticket.Properties[model.PropertyResource]
	}
	setAudienceClaim(claims, splitAudiences(audiences))

	s.setLifetimeClaims(claims, ticket)
	claims[constants.ClaimIssuer] = issuer
	claims[constants.ClaimJWTID] = uuid.NewString()

	return s.jwtService.GenerateToken(claims)
}

// IssueIdentityToken serializes the ticket into a signed JWT identity token,
// keeping only the claims destined to identity tokens and adding the OIDC
// binding claims (nonce, c_hash, at_hash).
func (s *Service) IssueIdentityToken(issuer string, request, response *model.OAuthMessage,
	ticket *model.AuthenticationTicket) (string, error) {
	principal := ticket.Principal.Filter(func(claim model.Claim) bool {
		if claim.Type == constants.ClaimNameID || claim.Type == constants.ClaimSubject {
			return true
		}
		return claim.HasDestination(model.DestinationIdentityToken)
	})

	claims := make(map[string]interface{})
	for _, claim := range principal.Claims {
		claims[claim.Type] = claim.Value
	}

	if _, ok := claims[constants.ClaimSubject]; !ok {
		nameID, found := principal.FindFirst(constants.ClaimNameID)
		if !found {
			return "", ErrMissingSubject
		}
		claims[constants.ClaimSubject] = nameID.Value
	}
	delete(claims, constants.ClaimNameID)

	if nonce := request.Get(constants.Nonce); nonce != "" {
		claims[constants.ClaimNonce] = nonce
	}
	if code := response.Get(constants.Code); code != "" {
		claims[constants.ClaimCodeHash] = syscrypto.TokenHash(syscrypto.HashAlgorithmSHA256, code)
	}
	if accessToken := response.Get(constants.AccessToken); accessToken != "" {
		claims[constants.ClaimAccessHash] = syscrypto.TokenHash(syscrypto.HashAlgorithmSHA256, accessToken)
	}

	setAudienceClaim(claims, []string{request.Get(constants.ClientID)})

	s.setLifetimeClaims(claims, ticket)
	claims[constants.ClaimIssuer] = issuer
	claims[constants.ClaimJWTID] = uuid.NewString()

	return s.jwtService.GenerateToken(claims)
}

// setLifetimeClaims maps the ticket lifetime properties onto iat and exp.
func (s *Service) setLifetimeClaims(claims map[string]interface{}, ticket *model.AuthenticationTicket) {
	if issuedUTC, ok := ticket.Properties.IssuedUTC(); ok {
		claims[constants.ClaimIssuedAt] = issuedUTC.Unix()
	}
	if expiresUTC, ok := ticket.Properties.ExpiresUTC(); ok {
		claims[constants.ClaimExpiry] = expiresUTC.Unix()
	}
}

// setAudienceClaim stores the aud claim, collapsing single-element sets to a string.
func setAudienceClaim(claims map[string]interface{}, audiences []string) {
	filtered := make([]string, 0, len(audiences))
	for _, audience := range audiences {
		if audience != "" {
			filtered = append(filtered, audience)
		}
	}

	switch len(filtered) {
	case 0:
	case 1:
		claims[constants.ClaimAudience] = filtered[0]
	default:
		claims[constants.ClaimAudience] = filtered
	}
}

// splitAudiences splits a space-separated audience list.
func splitAudiences(value string) []string {
	return strings.Fields(value)
}
