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

// Package introspect implements the validation endpoint: it resolves a single
// submitted token back into its ticket and reports the audiences, remaining
// lifetime and claims.
package introspect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/message"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/oauth/ticket"
	"github.com/tempestauth/tempest/internal/system/log"
	"github.com/tempestauth/tempest/internal/system/utils"
)

const loggerComponentName = "ValidationPipeline"

// tokenKind identifies which token parameter the caller submitted.
type tokenKind string

const (
	kindAccessToken   tokenKind = "access token"
	kindIdentityToken tokenKind = "identity token"
	kindRefreshToken  tokenKind = "refresh token"
)

// Pipeline serves the validation endpoint.
type Pipeline struct {
	provider   *provider.AuthorizationProvider
	tickets    *ticket.Service
	jwtService jwt.JWTServiceInterface
	clock      func() time.Time
}

// NewPipeline creates the validation pipeline. A nil clock falls back to the
// system clock.
func NewPipeline(prov *provider.AuthorizationProvider, tickets *ticket.Service,
	jwtService jwt.JWTServiceInterface, clock func() time.Time) *Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		provider:   prov,
		tickets:    tickets,
		jwtService: jwtService,
		clock:      clock,
	}
}

// Handle processes a validation request. It returns the request carrying the
// parsed message in its context and whether a response was produced.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "validation requests must use GET or POST",
		})
		return r, true
	}

	msg, err := message.ParseRequest(r, model.RequestTypeToken)
	if err != nil {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "the validation request cannot be parsed",
		})
		return r, true
	}
	r = r.WithContext(model.WithMessage(r.Context(), msg))

	kind, submitted, ok := p.submittedToken(msg)
	if !ok {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "exactly one of token, id_token or refresh_token must be provided",
		})
		return r, true
	}

	resolved := p.receiveToken(r, msg, kind, submitted)
	if resolved == nil {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidGrant,
			ErrorDescription: fmt.Sprintf("Invalid %s received", kind),
		})
		return r, true
	}
	if resolved.IsExpired(p.clock()) {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidGrant,
			ErrorDescription: fmt.Sprintf("Expired %s received", kind),
		})
		return r, true
	}

	audiences := resolved.Properties.Audiences()
	if requested := msg.Get(constants.Audience); requested != "" && len(audiences) > 0 {
		if !model.ContainsSet(resolved.Properties[model.PropertyAudiences], requested) {
			p.writeError(w, model.ErrorResponse{
				Error:            constants.ErrorInvalidGrant,
				ErrorDescription: "audience parameter is not valid for this token",
			})
			return r, true
		}
	}

	var expiresIn int64
	if expiresUTC, hasExpiry := resolved.Properties.ExpiresUTC(); hasExpiry {
		expiresIn = int64(expiresUTC.Sub(p.clock()).Round(time.Second).Seconds())
	}

	validation := &model.ValidationResponse{
		Audiences: audiences,
		ExpiresIn: expiresIn,
		Claims:    make([]model.ClaimEntry, 0, len(resolved.Principal.Claims)),
	}
	for _, claim := range resolved.Principal.Claims {
		validation.Claims = append(validation.Claims, model.ClaimEntry{
			Type:  claim.Type,
			Value: claim.Value,
		})
	}

	validationCtx := &provider.ValidationEndpointContext{
		Request:  msg,
		Ticket:   resolved,
		Response: validation,
	}
	if hookErr := p.provider.OnValidationEndpoint(validationCtx); hookErr != nil {
		logger.Error("ValidationEndpoint hook failed", log.Error(hookErr))
		p.writeError(w, model.ErrorResponse{Error: constants.ErrorServerError})
		return r, true
	}
	if validationCtx.IsHandled() {
		return r, true
	}
	if validationCtx.IsRejected() {
		p.writeError(w, validationCtx.Error)
		return r, true
	}
	if validationCtx.Response != nil {
		validation = validationCtx.Response
	}

	if hookErr := p.provider.OnValidationEndpointResponse(validationCtx); hookErr != nil {
		logger.Error("ValidationEndpointResponse hook failed", log.Error(hookErr))
	}
	if validationCtx.IsHandled() {
		return r, true
	}

	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if encodeErr := json.NewEncoder(w).Encode(validation); encodeErr != nil {
		logger.Error("Failed to write the validation response", log.Error(encodeErr))
	}
	return r, true
}

// submittedToken finds the single submitted token parameter. More or fewer
// than one is a protocol error.
func (p *Pipeline) submittedToken(msg *model.OAuthMessage) (tokenKind, string, bool) {
	var kind tokenKind
	var value string
	count := 0

	if msg.Has(constants.Token) {
		kind, value = kindAccessToken, msg.Get(constants.Token)
		count++
	}
	if msg.Has(constants.IDToken) {
		kind, value = kindIdentityToken, msg.Get(constants.IDToken)
		count++
	}
	if msg.Has(constants.RefreshToken) {
		kind, value = kindRefreshToken, msg.Get(constants.RefreshToken)
		count++
	}

	if count != 1 {
		return "", "", false
	}
	return kind, value, true
}

// receiveToken resolves a submitted token back into its ticket: the matching
// hook first, then the default per-kind resolution.
func (p *Pipeline) receiveToken(r *http.Request, msg *model.OAuthMessage,
	kind tokenKind, submitted string) *model.AuthenticationTicket {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	receiveCtx := &provider.ReceiveTokenContext{Request: msg, Token: submitted}

	var hookErr error
	switch kind {
	case kindAccessToken:
		hookErr = p.provider.OnReceiveAccessToken(receiveCtx)
	case kindIdentityToken:
		hookErr = p.provider.OnReceiveIdentityToken(receiveCtx)
	default:
		hookErr = p.provider.OnReceiveRefreshToken(receiveCtx)
	}
	if hookErr != nil {
		logger.Warn("Receive hook failed", log.Error(hookErr))
		return nil
	}
	if receiveCtx.Ticket != nil || receiveCtx.IsHandled() {
		return receiveCtx.Ticket
	}

	switch kind {
	case kindRefreshToken:
		resolved, err := p.tickets.Redeem(r.Context(), submitted)
		if err != nil {
			logger.Warn("Failed to resolve the refresh token", log.Error(err))
			return nil
		}
		return resolved
	default:
		claims, err := p.jwtService.VerifyToken(submitted)
		if err != nil {
			logger.Warn("Failed to verify the submitted token", log.Error(err))
			return nil
		}
		return ticketFromClaims(claims)
	}
}

// ticketFromClaims rebuilds an authentication ticket from verified JWT claims.
func ticketFromClaims(claims map[string]interface{}) *model.AuthenticationTicket {
	resolved := model.NewAuthenticationTicket(model.Principal{}, constants.TokenTypeBearer)

	for claimType, claimValue := range claims {
		switch claimType {
		case constants.ClaimExpiry:
			if seconds, ok := numericClaim(claimValue); ok {
				resolved.Properties.SetExpiresUTC(time.Unix(seconds, 0))
			}
		case constants.ClaimIssuedAt:
			if seconds, ok := numericClaim(claimValue); ok {
				resolved.Properties.SetIssuedUTC(time.Unix(seconds, 0))
			}
		case constants.ClaimAudience:
			resolved.Properties[model.PropertyAudiences] = model.JoinValues(stringClaimValues(claimValue))
		default:
			resolved.Principal.Claims = append(resolved.Principal.Claims, model.Claim{
				Type:  claimType,
				Value: fmt.Sprint(claimValue),
				Destinations: []string{
					model.DestinationAccessToken,
					model.DestinationIdentityToken,
				},
			})
		}
	}

	return resolved
}

// numericClaim converts a JSON decoded numeric claim to Unix seconds.
func numericClaim(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		seconds, err := v.Int64()
		return seconds, err == nil
	default:
		return 0, false
	}
}

// stringClaimValues flattens a string-or-array claim into a string slice.
func stringClaimValues(value interface{}) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, entry := range v {
			values = append(values, fmt.Sprint(entry))
		}
		return values
	default:
		return nil
	}
}

// writeError emits a JSON protocol error with status 400.
func (p *Pipeline) writeError(w http.ResponseWriter, errResp model.ErrorResponse) {
	utils.WriteJSONError(w, errResp.Error, errResp.ErrorDescription, http.StatusBadRequest, nil)
}
