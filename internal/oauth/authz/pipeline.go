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

// Package authz implements the authorization endpoint: the request validation
// sequence, request persistence by unique identifier and the sign-in response
// emission.
package authz

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/message"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/oauth/requestcache"
	"github.com/tempestauth/tempest/internal/oauth/ticket"
	"github.com/tempestauth/tempest/internal/system/crypto"
	"github.com/tempestauth/tempest/internal/system/log"
)

const loggerComponentName = "AuthorizationPipeline"

// Pipeline serves the authorization endpoint.
type Pipeline struct {
	options    *model.Options
	provider   *provider.AuthorizationProvider
	tickets    *ticket.Service
	requests   *requestcache.RequestCache
	jwtService jwt.JWTServiceInterface
	clock      func() time.Time
	random     io.Reader
}

// NewPipeline creates the authorization pipeline. A nil clock falls back to
// the system clock and a nil random source to the OS RNG.
func NewPipeline(options *model.Options, prov *provider.AuthorizationProvider,
	tickets *ticket.Service, requests *requestcache.RequestCache,
	jwtService jwt.JWTServiceInterface, clock func() time.Time, random io.Reader) *Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		options:    options,
		provider:   prov,
		tickets:    tickets,
		requests:   requests,
		jwtService: jwtService,
		clock:      clock,
		random:     random,
	}
}

// Handle processes an authorization request. It returns the request carrying
// the parsed message in its context and whether a response was produced; an
// unhandled request passes through to the host application.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return p.renderErrorPage(w, r, nil, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "authorization requests must use GET or POST",
		})
	}

	msg, err := message.ParseRequest(r, model.RequestTypeAuthentication)
	if err != nil {
		return p.renderErrorPage(w, r, nil, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "the authorization request cannot be parsed",
		})
	}

	// Reassemble the original request persisted under the unique identifier.
	// Live parameters win over stored ones on key collision.
	if uniqueID := msg.Get(constants.UniqueID); uniqueID != "" {
		parameters, found, restoreErr := p.requests.Restore(r.Context(), uniqueID)
		if restoreErr != nil {
			logger.Error("Failed to restore the persisted authorization request", log.Error(restoreErr))
			return p.renderErrorPage(w, r, msg, model.ErrorResponse{
				Error: constants.ErrorServerError,
			})
		}
		if !found {
			return p.renderErrorPage(w, r, msg, model.ErrorResponse{
				Error:            constants.ErrorInvalidRequest,
				ErrorDescription: "timeout expired",
			})
		}
		for _, parameter := range parameters {
			msg.SetIfAbsent(parameter.Key, parameter.Value)
		}
	}

	r = r.WithContext(model.WithMessage(r.Context(), msg))

	clientID := msg.Get(constants.ClientID)
	if clientID == "" {
		return p.renderErrorPage(w, r, msg, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "client_id parameter missing",
		})
	}

	redirectURI := msg.Get(constants.RedirectURI)
	if redirectURI == "" && msg.HasScope(constants.ScopeOpenID) {
		return p.renderErrorPage(w, r, msg, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "redirect_uri parameter missing",
		})
	}

	if redirectURI != "" {
		if errResp, ok := p.checkRedirectURI(redirectURI); !ok {
			return p.renderErrorPage(w, r, msg, errResp)
		}
	}

	clientCtx := &provider.ValidateClientRedirectURIContext{
		Request:     msg,
		ClientID:    clientID,
		RedirectURI: redirectURI,
	}
	if hookErr := p.provider.OnValidateClientRedirectURI(clientCtx); hookErr != nil {
		logger.Error("ValidateClientRedirectURI hook failed", log.Error(hookErr))
		return p.renderErrorPage(w, r, msg, model.ErrorResponse{Error: constants.ErrorServerError})
	}
	switch {
	case clientCtx.IsSkipped():
		return r, false
	case clientCtx.IsHandled():
		return r, true
	case clientCtx.IsValidated():
		redirectURI = clientCtx.RedirectURI
		if redirectURI != "" {
			msg.Set(constants.RedirectURI, redirectURI)
		}
	default:
		// Null the redirect URI so an unvalidated client can never trigger
		// a redirect, then surface the error on an error page.
		msg.Remove(constants.RedirectURI)
		errResp := clientCtx.Error
		if !clientCtx.IsRejected() {
			errResp = model.ErrorResponse{
				Error:            constants.ErrorInvalidClient,
				ErrorDescription: "client_id or redirect_uri parameter rejected",
			}
		}
		logger.Warn("Client validation failed", log.String(log.LoggerKeyClientID, log.MaskString(clientID)))
		return p.renderErrorPage(w, r, msg, errResp)
	}

	// From here on the redirect URI is trusted and failures are reported via
	// redirect in the negotiated response mode.

	responseTypes := msg.ResponseTypeValues()
	if len(responseTypes) == 0 {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "response_type parameter missing",
		})
		return r, true
	}
	for _, responseType := range responseTypes {
		switch responseType {
		case constants.ResponseTypeNone, constants.ResponseTypeCode,
			constants.ResponseTypeToken, constants.ResponseTypeIDToken:
		default:
			p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
				Error:            constants.ErrorUnsupportedResponseType,
				ErrorDescription: "response_type parameter is not supported",
			})
			return r, true
		}
	}
	if msg.ContainsResponseType(constants.ResponseTypeNone) && len(responseTypes) > 1 {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorUnsupportedResponseType,
			ErrorDescription: "response_type none cannot be combined with other values",
		})
		return r, true
	}

	switch msg.Get(constants.ResponseMode) {
	case "", constants.ResponseModeQuery, constants.ResponseModeFragment, constants.ResponseModeFormPost:
	default:
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "response_mode parameter is not supported",
		})
		return r, true
	}

	// Tokens must never travel in the query string.
	if msg.Get(constants.ResponseMode) == constants.ResponseModeQuery && p.flowReturnsTokens(msg) {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "response_mode=query must not be used with a flow returning tokens",
		})
		return r, true
	}

	if msg.HasScope(constants.ScopeOpenID) && p.flowReturnsTokens(msg) && msg.Get(constants.Nonce) == "" {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "nonce parameter missing",
		})
		return r, true
	}

	if msg.ContainsResponseType(constants.ResponseTypeIDToken) && !msg.HasScope(constants.ScopeOpenID) {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "openid scope missing",
		})
		return r, true
	}
	if msg.ContainsResponseType(constants.ResponseTypeCode) && !p.options.TokenEndpointEnabled() {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorUnsupportedResponseType,
			ErrorDescription: "the authorization code flow is disabled",
		})
		return r, true
	}
	if msg.ContainsResponseType(constants.ResponseTypeIDToken) && len(p.jwtService.SigningCredentials()) == 0 {
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
			Error:            constants.ErrorUnsupportedResponseType,
			ErrorDescription: "no signing credentials are configured",
		})
		return r, true
	}

	requestCtx := &provider.ValidateAuthorizationRequestContext{Request: msg}
	if hookErr := p.provider.OnValidateAuthorizationRequest(requestCtx); hookErr != nil {
		logger.Error("ValidateAuthorizationRequest hook failed", log.Error(hookErr))
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{Error: constants.ErrorServerError})
		return r, true
	}
	switch {
	case requestCtx.IsSkipped():
		return r, false
	case requestCtx.IsHandled():
		return r, true
	case requestCtx.IsValidated():
	default:
		errResp := requestCtx.Error
		if !requestCtx.IsRejected() {
			errResp = model.ErrorResponse{
				Error:            constants.ErrorInvalidRequest,
				ErrorDescription: "the authorization request was rejected",
			}
		}
		p.redirectError(w, r, msg, redirectURI, errResp)
		return r, true
	}

	// Persist the validated request so the sign-in round trip through the
	// host's login UI can reassemble it.
	if msg.Get(constants.UniqueID) == "" {
		uniqueID, keyErr := crypto.GenerateKey(p.random)
		if keyErr != nil {
			logger.Error("Failed to generate a unique request identifier", log.Error(keyErr))
			p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{Error: constants.ErrorServerError})
			return r, true
		}
		msg.Set(constants.UniqueID, uniqueID)
		if storeErr := p.requests.Store(r.Context(), uniqueID, msg); storeErr != nil {
			logger.Error("Failed to persist the authorization request", log.Error(storeErr))
			p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{Error: constants.ErrorServerError})
			return r, true
		}
	}

	authCtx := &provider.AuthorizationEndpointContext{Request: msg}
	if hookErr := p.provider.OnAuthorizationEndpoint(authCtx); hookErr != nil {
		logger.Error("AuthorizationEndpoint hook failed", log.Error(hookErr))
		p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{Error: constants.ErrorServerError})
		return r, true
	}
	if authCtx.IsHandled() {
		return r, true
	}
	if authCtx.SignIn != nil {
		p.emitSignIn(w, r, msg, redirectURI, authCtx.SignIn)
		return r, true
	}

	// No sign-in decision yet: hand over to the host application so it can
	// render its login and consent UI.
	return r, false
}

// checkRedirectURI enforces the redirect URI format policy: absolute, no
// fragment and no http scheme unless insecure transport is allowed.
func (p *Pipeline) checkRedirectURI(redirectURI string) (model.ErrorResponse, bool) {
	if strings.Contains(redirectURI, "#") {
		return model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "redirect_uri parameter must not contain a fragment",
		}, false
	}

	parsed, err := url.Parse(redirectURI)
	if err != nil || !parsed.IsAbs() {
		return model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "redirect_uri parameter is malformed",
		}, false
	}

	if !p.options.AllowInsecureHTTP && parsed.Scheme == "http" {
		return model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "redirect_uri parameter must not use the http scheme",
		}, false
	}

	return model.ErrorResponse{}, true
}

// flowReturnsTokens reports whether the requested flow delivers tokens from
// the authorization endpoint (implicit or hybrid).
func (p *Pipeline) flowReturnsTokens(msg *model.OAuthMessage) bool {
	return msg.ContainsResponseType(constants.ResponseTypeToken) ||
		msg.ContainsResponseType(constants.ResponseTypeIDToken)
}

// emitSignIn turns the host's sign-in decision into the authorization
// response: one token per requested kind, each issued from its own copy of
// the ticket.
func (p *Pipeline) emitSignIn(w http.ResponseWriter, r *http.Request,
	msg *model.OAuthMessage, redirectURI string, signIn *model.AuthenticationTicket) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))
	now := p.clock()

	base := signIn.Clone()
	if base.Properties == nil {
		base.Properties = make(model.TicketProperties)
	}
	// Bind the sign-in to the request so the token endpoint can compare the
	// redeemed ticket against the redemption request.
	if clientID := msg.Get(constants.ClientID); clientID != "" {
		base.Properties[model.PropertyClientID] = clientID
	}
	if uri := msg.Get(constants.RedirectURI); uri != "" {
		base.Properties[model.PropertyRedirectURI] = uri
	}
	if scope := msg.Get(constants.Scope); scope != "" {
		if _, exists := base.Properties[model.PropertyScope]; !exists {
			base.Properties[model.PropertyScope] = scope
		}
	}
	if resource := msg.Get(constants.Resource); resource != "" {
		if _, exists := base.Properties[model.PropertyResource]; !exists {
			base.Properties[model.PropertyResource] = resource
		}
	}

	issuer := p.options.IssuerOrOrigin(r)
	response := model.NewOAuthMessage(model.RequestTypeAuthentication)

	if msg.ContainsResponseType(constants.ResponseTypeCode) {
		codeTicket := base.Clone()
		// The code lifetime is never aligned with the other token kinds.
		codeTicket.Properties.ClearLifetime()
		codeTicket.Properties.SetIssuedUTC(now)
		codeTicket.Properties.SetExpiresUTC(now.Add(p.options.AuthorizationCodeLifetime))

		code := p.createAuthorizationCode(r.Context(), msg, response, codeTicket)
		if code == "" {
			p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
				Error:            constants.ErrorServerError,
				ErrorDescription: "an authorization code cannot be issued",
			})
			return
		}
		response.Set(constants.Code, code)
	}

	if msg.ContainsResponseType(constants.ResponseTypeToken) {
		accessTicket := base.Clone()
		p.ensureLifetime(accessTicket, now, p.options.AccessTokenLifetime)

		accessToken := p.createAccessToken(issuer, msg, response, accessTicket)
		if accessToken == "" {
			p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
				Error:            constants.ErrorServerError,
				ErrorDescription: "an access token cannot be issued",
			})
			return
		}
		response.Set(constants.AccessToken, accessToken)
		response.Set(constants.TokenType, constants.TokenTypeBearer)
		if expiresUTC, ok := accessTicket.Properties.ExpiresUTC(); ok && expiresUTC.After(now) {
			seconds := int64(expiresUTC.Sub(now).Round(time.Second).Seconds())
			response.Set(constants.ExpiresIn, strconv.FormatInt(seconds, 10))
		}
	}

	// The identity token is issued last so its c_hash and at_hash claims can
	// bind the co-issued code and access token.
	if msg.ContainsResponseType(constants.ResponseTypeIDToken) {
		identityTicket := base.Clone()
		p.ensureLifetime(identityTicket, now, p.options.IdentityTokenLifetime)

		identityToken := p.createIdentityToken(issuer, msg, response, identityTicket)
		if identityToken == "" {
			p.redirectError(w, r, msg, redirectURI, model.ErrorResponse{
				Error:            constants.ErrorServerError,
				ErrorDescription: "an identity token cannot be issued",
			})
			return
		}
		response.Set(constants.IDToken, identityToken)
	}

	if state := msg.Get(constants.State); state != "" {
		response.Set(constants.State, state)
	}

	// The persisted request is consumed by a successful sign-in.
	if uniqueID := msg.Get(constants.UniqueID); uniqueID != "" {
		if removeErr := p.requests.Remove(r.Context(), uniqueID); removeErr != nil {
			logger.Warn("Failed to remove the persisted authorization request", log.Error(removeErr))
		}
	}

	respCtx := &provider.ResponseContext{Request: msg, Response: response}
	if hookErr := p.provider.OnAuthorizationEndpointResponse(respCtx); hookErr != nil {
		logger.Error("AuthorizationEndpointResponse hook failed", log.Error(hookErr))
	}
	if respCtx.IsHandled() {
		return
	}

	p.emitResponse(w, r, msg, redirectURI, response)
}

// ensureLifetime assigns the default lifetime when the sign-in did not set one.
func (p *Pipeline) ensureLifetime(t *model.AuthenticationTicket, now time.Time, lifetime time.Duration) {
	if _, ok := t.Properties.ExpiresUTC(); ok {
		return
	}
	t.Properties.SetIssuedUTC(now)
	t.Properties.SetExpiresUTC(now.Add(lifetime))
}

func (p *Pipeline) createAuthorizationCode(ctx context.Context, msg, response *model.OAuthMessage,
	t *model.AuthenticationTicket) string {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	createCtx := &provider.CreateTokenContext{Request: msg, Response: response, Ticket: t}
	if err := p.provider.OnCreateAuthorizationCode(createCtx); err != nil {
		logger.Warn("CreateAuthorizationCode hook failed", log.Error(err))
		return ""
	}
	if createCtx.Token != "" || createCtx.IsHandled() {
		return createCtx.Token
	}
	if createCtx.Ticket != nil {
		t = createCtx.Ticket
	}

	code, err := p.tickets.IssueOpaqueToken(ctx, t)
	if err != nil {
		logger.Warn("Failed to issue an authorization code", log.Error(err))
		return ""
	}
	return code
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

// redirectError reports a protocol error through the redirect URI using the
// negotiated response mode, carrying the state of the original request.
func (p *Pipeline) redirectError(w http.ResponseWriter, r *http.Request,
	msg *model.OAuthMessage, redirectURI string, errResp model.ErrorResponse) {
	response := model.NewOAuthMessage(model.RequestTypeAuthentication)
	response.Set(constants.Error, errResp.Error)
	if errResp.ErrorDescription != "" {
		response.Set(constants.ErrorDescription, errResp.ErrorDescription)
	}
	if errResp.ErrorURI != "" {
		response.Set(constants.ErrorURI, errResp.ErrorURI)
	}
	if state := msg.Get(constants.State); state != "" {
		response.Set(constants.State, state)
	}

	p.emitResponse(w, r, msg, redirectURI, response)
}

// emitResponse delivers the response message through the negotiated response
// mode. Requested query delivery is ignored for flows returning tokens.
func (p *Pipeline) emitResponse(w http.ResponseWriter, r *http.Request,
	msg *model.OAuthMessage, redirectURI string, response *model.OAuthMessage) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	mode := msg.Get(constants.ResponseMode)
	if mode == constants.ResponseModeQuery && p.flowReturnsTokens(msg) {
		mode = ""
	}
	if mode == "" {
		if p.flowReturnsTokens(msg) {
			mode = constants.ResponseModeFragment
		} else {
			mode = constants.ResponseModeQuery
		}
	}

	var err error
	switch mode {
	case constants.ResponseModeFormPost:
		err = message.WriteFormPostResponse(w, redirectURI, response)
	case constants.ResponseModeFragment:
		err = message.WriteFragmentResponse(w, r, redirectURI, response)
	default:
		err = message.WriteQueryResponse(w, r, redirectURI, response)
	}
	if err != nil {
		logger.Error("Failed to emit the authorization response", log.Error(err))
	}
}

// renderErrorPage reports a pre-redirect failure: either on an HTML error page
// or, when the application can display errors, by annotating the message and
// passing the request through.
func (p *Pipeline) renderErrorPage(w http.ResponseWriter, r *http.Request,
	msg *model.OAuthMessage, errResp model.ErrorResponse) (*http.Request, bool) {
	if p.options.ApplicationCanDisplayErrors && msg != nil {
		msg.Set(constants.Error, errResp.Error)
		if errResp.ErrorDescription != "" {
			msg.Set(constants.ErrorDescription, errResp.ErrorDescription)
		}
		if errResp.ErrorURI != "" {
			msg.Set(constants.ErrorURI, errResp.ErrorURI)
		}
		return r, false
	}

	message.WriteErrorPage(w, errResp)
	return r, true
}
