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

// Package token implements the token endpoint: client authentication, grant
// dispatch and token issuance.
package token

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tempestauth/tempest/internal/oauth/message"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/oauth/ticket"
	"github.com/tempestauth/tempest/internal/system/log"
	"github.com/tempestauth/tempest/internal/system/utils"
)

const loggerComponentName = "TokenPipeline"

// Pipeline serves the token endpoint.
type Pipeline struct {
	options  *model.Options
	provider *provider.AuthorizationProvider
	tickets  *ticket.Service
	clock    func() time.Time
}

// NewPipeline creates the token pipeline. A nil clock falls back to the
// system clock.
func NewPipeline(options *model.Options, prov *provider.AuthorizationProvider,
	tickets *ticket.Service, clock func() time.Time) *Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		options:  options,
		provider: prov,
		tickets:  tickets,
		clock:    clock,
	}
}

// Handle processes a token request. It returns the request carrying the
// parsed message in its context and whether a response was produced.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if r.Method != http.MethodPost || !message.IsFormURLEncoded(r.Header.Get("Content-Type")) {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "token requests must use POST with a form-urlencoded body",
		}, nil)
		return r, true
	}

	msg, err := message.ParseRequest(r, model.RequestTypeToken)
	if err != nil {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "the token request cannot be parsed",
		}, nil)
		return r, true
	}
	r = r.WithContext(model.WithMessage(r.Context(), msg))

	clientID := msg.Get(constants.ClientID)
	clientSecret := msg.Get(constants.ClientSecret)
	if clientID == "" && clientSecret == "" && r.Header.Get("Authorization") != "" {
		basicID, basicSecret, basicErr := utils.ExtractBasicAuthCredentials(r)
		if basicErr != nil {
			p.writeError(w, model.ErrorResponse{
				Error:            constants.ErrorInvalidClient,
				ErrorDescription: "the client credentials cannot be decoded",
			}, []map[string]string{{"WWW-Authenticate": `Basic realm="token"`}})
			return r, true
		}
		clientID, clientSecret = basicID, basicSecret
		msg.SetIfAbsent(constants.ClientID, clientID)
	}

	authCtx := &provider.ValidateClientAuthenticationContext{
		Request:      msg,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	if hookErr := p.provider.OnValidateClientAuthentication(authCtx); hookErr != nil {
		logger.Error("ValidateClientAuthentication hook failed", log.Error(hookErr))
		p.writeError(w, model.ErrorResponse{Error: constants.ErrorServerError}, nil)
		return r, true
	}
	switch {
	case authCtx.IsSkipped():
		return r, false
	case authCtx.IsHandled():
		return r, true
	case authCtx.IsValidated():
	default:
		errResp := authCtx.Error
		if !authCtx.IsRejected() {
			errResp = model.ErrorResponse{
				Error:            constants.ErrorInvalidClient,
				ErrorDescription: "client authentication failed",
			}
		}
		logger.Warn("Client authentication failed",
			log.String(log.LoggerKeyClientID, log.MaskString(clientID)))
		p.writeError(w, errResp, nil)
		return r, true
	}

	grantType := msg.Get(constants.GrantType)
	if grantType == "" {
		p.writeError(w, model.ErrorResponse{
			Error:            constants.ErrorUnsupportedGrantType,
			ErrorDescription: "grant_type parameter missing",
		}, nil)
		return r, true
	}

	var resolved *model.AuthenticationTicket
	var originalExpires time.Time
	var hasOriginalExpires bool

	switch grantType {
	case constants.GrantTypeAuthorizationCode, constants.GrantTypeRefreshToken:
		redeemed, errResp := p.redeemTicket(r.Context(), msg, grantType)
		if errResp != nil {
			p.writeError(w, *errResp, nil)
			return r, true
		}

		preIssued := redeemed.Properties[model.PropertyIssuedUTC]
		preExpires := redeemed.Properties[model.PropertyExpiresUTC]
		originalExpires, hasOriginalExpires = redeemed.Properties.ExpiresUTC()

		validateCtx := &provider.ValidateTokenRequestContext{Request: msg, Ticket: redeemed}
		if hookErr := p.provider.OnValidateTokenRequest(validateCtx); hookErr != nil {
			logger.Error("ValidateTokenRequest hook failed", log.Error(hookErr))
			p.writeError(w, model.ErrorResponse{Error: constants.ErrorServerError}, nil)
			return r, true
		}
		if validateCtx.IsRejected() {
			p.writeError(w, validateCtx.Error, nil)
			return r, true
		}
		if validateCtx.Ticket != nil {
			redeemed = validateCtx.Ticket
		}

		grantCtx := &provider.GrantContext{Request: msg, GrantType: grantType, Ticket: redeemed}
		var grantErr error
		if grantType == constants.GrantTypeAuthorizationCode {
			grantErr = p.provider.OnGrantAuthorizationCode(grantCtx)
		} else {
			grantErr = p.provider.OnGrantRefreshToken(grantCtx)
		}
		if grantErr != nil {
			logger.Error("Grant hook failed", log.Error(grantErr))
			p.writeError(w, model.ErrorResponse{Error: constants.ErrorServerError}, nil)
			return r, true
		}
		if grantCtx.IsHandled() {
			return r, true
		}
		if grantCtx.IsRejected() {
			p.writeError(w, grantCtx.Error, nil)
			return r, true
		}
		resolved = grantCtx.Ticket
		if resolved == nil {
			p.writeError(w, model.ErrorResponse{
				Error:            constants.ErrorInvalidGrant,
				ErrorDescription: "Invalid ticket",
			}, nil)
			return r, true
		}

		// An untouched lifetime is discarded so the issued tokens get fresh
		// lifetimes instead of inheriting the code or refresh token's.
		if resolved.Properties[model.PropertyIssuedUTC] == preIssued &&
			resolved.Properties[model.PropertyExpiresUTC] == preExpires {
			resolved.Properties.ClearLifetime()
		}

	default:
		granted, handled, errResp := p.dispatchCredentialGrant(msg, grantType)
		if handled {
			return r, true
		}
		if errResp != nil {
			p.writeError(w, *errResp, nil)
			return r, true
		}
		resolved = granted
	}

	tokenCtx := &provider.TokenEndpointContext{Request: msg, Ticket: resolved}
	if hookErr := p.provider.OnTokenEndpoint(tokenCtx); hookErr != nil {
		logger.Error("TokenEndpoint hook failed", log.Error(hookErr))
		p.writeError(w, model.ErrorResponse{Error: constants.ErrorServerError}, nil)
		return r, true
	}
	if tokenCtx.IsHandled() {
		return r, true
	}
	if tokenCtx.Ticket != nil {
		resolved = tokenCtx.Ticket
	}
	if resolved.Properties == nil {
		resolved.Properties = make(model.TicketProperties)
	}

	// Propagate the request binding into the ticket properties so future
	// redemptions can compare against them.
	if value := msg.Get(constants.ClientID); value != "" {
		resolved.Properties[model.PropertyClientID] = value
	}
	if value := msg.Get(constants.Resource); value != "" {
		resolved.Properties[model.PropertyResource] = value
	}
	if value := msg.Get(constants.Scope); value != "" {
		resolved.Properties[model.PropertyScope] = value
	}

	now := p.clock()
	issuer := p.options.IssuerOrOrigin(r)
	refreshing := grantType == constants.GrantTypeRefreshToken
	responseTypes := msg.ResponseTypeValues()
	includeAll := len(responseTypes) == 0
	response := model.NewOAuthMessage(model.RequestTypeToken)

	if includeAll || msg.ContainsResponseType(constants.ResponseTypeToken) {
		accessTicket := resolved.Clone()
		p.assignLifetime(accessTicket, now, p.options.AccessTokenLifetime,
			refreshing, originalExpires, hasOriginalExpires)

		accessToken := p.createAccessToken(issuer, msg, response, accessTicket)
		if accessToken == "" {
			p.writeError(w, model.ErrorResponse{
				Error:            constants.ErrorServerError,
				ErrorDescription: "an access token cannot be issued",
			}, nil)
			return r, true
		}
		response.Set(constants.AccessToken, accessToken)
		response.Set(constants.TokenType, constants.TokenTypeBearer)
		if expiresUTC, ok := accessTicket.Properties.ExpiresUTC(); ok && expiresUTC.After(now) {
			seconds := int64(expiresUTC.Sub(now).Round(time.Second).Seconds())
			response.Set(constants.ExpiresIn, strconv.FormatInt(seconds, 10))
		}
	}

	// The identity token is issued after the access token so at_hash can bind it.
	if includeAll || msg.ContainsResponseType(constants.ResponseTypeIDToken) {
		identityTicket := resolved.Clone()
		p.assignLifetime(identityTicket, now, p.options.IdentityTokenLifetime,
			refreshing, originalExpires, hasOriginalExpires)

		identityToken := p.createIdentityToken(issuer, msg, response, identityTicket)
		if identityToken == "" {
			if msg.HasScope(constants.ScopeOpenID) ||
				model.ContainsSet(resolved.Properties[model.PropertyScope], constants.ScopeOpenID) {
				p.writeError(w, model.ErrorResponse{
					Error:            constants.ErrorServerError,
					ErrorDescription: "an identity token cannot be issued",
				}, nil)
				return r, true
			}
		} else {
			response.Set(constants.IDToken, identityToken)
		}
	}

	if includeAll || msg.ContainsResponseType(constants.RefreshToken) {
		refreshTicket := resolved.Clone()
		p.assignLifetime(refreshTicket, now, p.options.RefreshTokenLifetime,
			refreshing, originalExpires, hasOriginalExpires)

		refreshToken := p.createRefreshToken(r.Context(), msg, response, refreshTicket)
		if refreshToken != "" {
			response.Set(constants.RefreshToken, refreshToken)
		}
	}

	respCtx := &provider.ResponseContext{Request: msg, Response: response}
	if hookErr := p.provider.OnTokenEndpointResponse(respCtx); hookErr != nil {
		logger.Error("TokenEndpointResponse hook failed", log.Error(hookErr))
	}
	if respCtx.IsHandled() {
		return r, true
	}

	p.writeResponse(w, response)
	return r, true
}

// redeemTicket resolves and checks the ticket bound to an authorization code
// or refresh token.
func (p *Pipeline) redeemTicket(ctx context.Context, msg *model.OAuthMessage,
	grantType string) (*model.AuthenticationTicket, *model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	receiveCtx := &provider.ReceiveTokenContext{Request: msg}
	if grantType == constants.GrantTypeAuthorizationCode {
		receiveCtx.Token = msg.Get(constants.Code)
		if hookErr := p.provider.OnReceiveAuthorizationCode(receiveCtx); hookErr != nil {
			logger.Warn("ReceiveAuthorizationCode hook failed", log.Error(hookErr))
			receiveCtx.Ticket = nil
		} else if receiveCtx.Ticket == nil && !receiveCtx.IsHandled() {
			redeemed, redeemErr := p.tickets.RedeemOnce(ctx, receiveCtx.Token)
			if redeemErr != nil {
				logger.Warn("Failed to redeem the authorization code", log.Error(redeemErr))
			}
			receiveCtx.Ticket = redeemed
		}
	} else {
		receiveCtx.Token = msg.Get(constants.RefreshToken)
		if hookErr := p.provider.OnReceiveRefreshToken(receiveCtx); hookErr != nil {
			logger.Warn("ReceiveRefreshToken hook failed", log.Error(hookErr))
			receiveCtx.Ticket = nil
		} else if receiveCtx.Ticket == nil && !receiveCtx.IsHandled() {
			redeemed, redeemErr := p.tickets.Redeem(ctx, receiveCtx.Token)
			if redeemErr != nil {
				logger.Warn("Failed to redeem the refresh token", log.Error(redeemErr))
			}
			receiveCtx.Ticket = redeemed
		}
	}

	resolved := receiveCtx.Ticket
	if resolved == nil {
		return nil, &model.ErrorResponse{
			Error:            constants.ErrorInvalidGrant,
			ErrorDescription: "Invalid ticket",
		}
	}
	if resolved.IsExpired(p.clock()) {
		return nil, &model.ErrorResponse{
			Error:            constants.ErrorInvalidGrant,
			ErrorDescription: "Expired ticket",
		}
	}

	if grantType == constants.GrantTypeAuthorizationCode {
		if stored := resolved.Properties[model.PropertyRedirectURI]; stored != "" {
			if msg.Get(constants.RedirectURI) != stored {
				return nil, &model.ErrorResponse{
					Error:            constants.ErrorInvalidGrant,
					ErrorDescription: "redirect_uri parameter does not match",
				}
			}
			// The stored binding is consumed by a successful comparison.
			delete(resolved.Properties, model.PropertyRedirectURI)
		}
	}

	if stored := resolved.Properties[model.PropertyClientID]; stored != "" {
		requestClientID := msg.Get(constants.ClientID)
		mismatch := requestClientID != stored
		if grantType == constants.GrantTypeRefreshToken && requestClientID == "" {
			mismatch = false
		}
		if mismatch {
			return nil, &model.ErrorResponse{
				Error:            constants.ErrorInvalidGrant,
				ErrorDescription: "client_id parameter does not match",
			}
		}
	}

	if requested := msg.Get(constants.Resource); requested != "" {
		stored := resolved.Properties[model.PropertyResource]
		if stored == "" || !model.ContainsSet(stored, requested) {
			return nil, &model.ErrorResponse{
				Error:            constants.ErrorInvalidGrant,
				ErrorDescription: "resource parameter is not valid for this ticket",
			}
		}
	}
	if requested := msg.Get(constants.Scope); requested != "" {
		stored := resolved.Properties[model.PropertyScope]
		if stored == "" || !model.ContainsSet(stored, requested) {
			return nil, &model.ErrorResponse{
				Error:            constants.ErrorInvalidGrant,
				ErrorDescription: "scope parameter is not valid for this ticket",
			}
		}
	}

	return resolved, nil
}

// dispatchCredentialGrant fires the hook for the password, client_credentials
// and custom grants, which must produce the ticket themselves.
func (p *Pipeline) dispatchCredentialGrant(msg *model.OAuthMessage,
	grantType string) (*model.AuthenticationTicket, bool, *model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	grantCtx := &provider.GrantContext{Request: msg, GrantType: grantType}

	var hookErr error
	var defaultError model.ErrorResponse
	switch grantType {
	case constants.GrantTypePassword:
		hookErr = p.provider.OnGrantResourceOwnerCredentials(grantCtx)
		defaultError = model.ErrorResponse{
			Error:            constants.ErrorInvalidGrant,
			ErrorDescription: "the resource owner credentials grant was rejected",
		}
	case constants.GrantTypeClientCredentials:
		hookErr = p.provider.OnGrantClientCredentials(grantCtx)
		defaultError = model.ErrorResponse{
			Error:            constants.ErrorUnauthorizedClient,
			ErrorDescription: "the client credentials grant was rejected",
		}
	default:
		hookErr = p.provider.OnGrantCustomExtension(grantCtx)
		defaultError = model.ErrorResponse{
			Error:            constants.ErrorUnsupportedGrantType,
			ErrorDescription: "grant_type parameter is not supported",
		}
	}
	if hookErr != nil {
		logger.Error("Grant hook failed", log.Error(hookErr))
		return nil, false, &model.ErrorResponse{Error: constants.ErrorServerError}
	}
	if grantCtx.IsHandled() {
		return nil, true, nil
	}
	if grantCtx.IsRejected() {
		return nil, false, &grantCtx.Error
	}
	if !grantCtx.IsValidated() || grantCtx.Ticket == nil {
		return nil, false, &defaultError
	}

	return grantCtx.Ticket, false, nil
}

// assignLifetime gives the issued token its own lifetime when the redeemed
// ticket's was discarded, capping at the original expiration when refreshing
// without sliding expiration.
func (p *Pipeline) assignLifetime(t *model.AuthenticationTicket, now time.Time,
	lifetime time.Duration, refreshing bool, originalExpires time.Time, hasOriginal bool) {
	if _, ok := t.Properties.ExpiresUTC(); !ok {
		t.Properties.SetIssuedUTC(now)
		t.Properties.SetExpiresUTC(now.Add(lifetime))
	}

	if refreshing && !p.options.UseSlidingExpiration && hasOriginal {
		if expiresUTC, ok := t.Properties.ExpiresUTC(); ok && expiresUTC.After(originalExpires) {
			t.Properties.SetExpiresUTC(originalExpires)
		}
	}
}

func (p *Pipeline) createAccessToken(issuer string, msg, response *model.OAuthMessage,
	t *model.AuthenticationTicket) string {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	createCtx := &provider.CreateTokenContext{Request: msg, Response: response, Ticket: t}
	if err := p.provider.OnCreateAccessToken(createCtx); err != nil {
		logger.Warn("CreateAccessToken hook failed", log.Error(err))
		return ""
	}
	if createCtx.Token != "" || createCtx.IsHandled() {
		return createCtx.Token
	}
	if createCtx.Ticket != nil {
		t = createCtx.Ticket
	}

	accessToken, err := p.tickets.IssueAccessToken(issuer, msg, t)
	if err != nil {
		logger.Warn("Failed to issue an access token", log.Error(err))
		return ""
	}
	return accessToken
}

func (p *Pipeline) createIdentityToken(issuer string, msg, response *model.OAuthMessage,
	t *model.AuthenticationTicket) string {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	createCtx := &provider.CreateTokenContext{Request: msg, Response: response, Ticket: t}
	if err := p.provider.OnCreateIdentityToken(createCtx); err != nil {
		logger.Warn("CreateIdentityToken hook failed", log.Error(err))
		return ""
	}
	if createCtx.Token != "" || createCtx.IsHandled() {
		return createCtx.Token
	}
	if createCtx.Ticket != nil {
		t = createCtx.Ticket
	}

	identityToken, err := p.tickets.IssueIdentityToken(issuer, msg, response, t)
	if err != nil {
		logger.Warn("Failed to issue an identity token", log.Error(err))
		return ""
	}
	return identityToken
}

func (p *Pipeline) createRefreshToken(ctx context.Context, msg, response *model.OAuthMessage,
	t *model.AuthenticationTicket) string {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	createCtx := &provider.CreateTokenContext{Request: msg, Response: response, Ticket: t}
	if err := p.provider.OnCreateRefreshToken(createCtx); err != nil {
		logger.Warn("CreateRefreshToken hook failed", log.Error(err))
		return ""
	}
	if createCtx.Token != "" || createCtx.IsHandled() {
		return createCtx.Token
	}
	if createCtx.Ticket != nil {
		t = createCtx.Ticket
	}

	refreshToken, err := p.tickets.IssueOpaqueToken(ctx, t)
	if err != nil {
		logger.Warn("Failed to issue a refresh token", log.Error(err))
		return ""
	}
	return refreshToken
}

// writeResponse emits the token response as JSON with the no-store headers
// required for credential-carrying responses.
func (p *Pipeline) writeResponse(w http.ResponseWriter, response *model.OAuthMessage) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	payload := make(map[string]interface{}, response.Len())
	for _, key := range response.Keys() {
		value := response.Get(key)
		if key == constants.ExpiresIn {
			if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
				payload[key] = seconds
				continue
			}
		}
		payload[key] = value
	}

	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to write the token response", log.Error(err))
	}
}

// writeError emits a JSON protocol error with status 400 and no-cache headers.
func (p *Pipeline) writeError(w http.ResponseWriter, errResp model.ErrorResponse,
	headers []map[string]string) {
	setNoCacheHeaders(w)
	utils.WriteJSONError(w, errResp.Error, errResp.ErrorDescription, http.StatusBadRequest, headers)
}

func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "-1")
}
