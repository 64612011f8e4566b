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

// Package provider defines the extension surface of the OAuth2 middleware:
// one notification context per hook, each carrying a four-valued outcome the
// host can set to approve, deny, take over or skip the default behavior.
package provider

import (
	"net/http"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
)

// Outcome is the decision a hook recorded on its notification context.
type Outcome int

// Hook outcomes. OutcomeNone means the hook made no decision and the
// pipeline applies its per-hook default.
const (
	OutcomeNone Outcome = iota
	OutcomeValidated
	OutcomeRejected
	OutcomeHandled
	OutcomeSkipped
)

// BaseContext carries the outcome shared by every notification context.
type BaseContext struct {
	outcome Outcome
	// Error holds the protocol error recorded by Reject.
	Error model.ErrorResponse
}

// Validate marks the notification as approved.
func (c *BaseContext) Validate() {
	c.outcome = OutcomeValidated
}

// Reject marks the notification as denied with the given protocol error.
func (c *BaseContext) Reject(code, description string) {
	c.outcome = OutcomeRejected
	c.Error = model.ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	}
}

// HandleResponse marks the response as produced by the host; the pipeline
// suppresses its default response.
func (c *BaseContext) HandleResponse() {
	c.outcome = OutcomeHandled
}

// Skip marks the request as not belonging to this middleware; the pipeline
// passes it through.
func (c *BaseContext) Skip() {
	c.outcome = OutcomeSkipped
}

// Outcome returns the recorded decision.
func (c *BaseContext) Outcome() Outcome {
	return c.outcome
}

// IsValidated reports whether the hook approved the notification.
func (c *BaseContext) IsValidated() bool {
	return c.outcome == OutcomeValidated
}

// IsRejected reports whether the hook denied the notification.
func (c *BaseContext) IsRejected() bool {
	return c.outcome == OutcomeRejected
}

// IsHandled reports whether the host produced the response itself.
func (c *BaseContext) IsHandled() bool {
	return c.outcome == OutcomeHandled
}

// IsSkipped reports whether the request should pass through.
func (c *BaseContext) IsSkipped() bool {
	return c.outcome == OutcomeSkipped
}

// MatchEndpointContext lets the host reclassify the incoming request.
type MatchEndpointContext struct {
	BaseContext
	Request  *http.Request
	Endpoint model.EndpointType
}

// ValidateClientRedirectURIContext validates the client and its redirect URI.
// The hook may replace RedirectURI before validating.
type ValidateClientRedirectURIContext struct {
	BaseContext
	Request     *model.OAuthMessage
	ClientID    string
	RedirectURI string
}

// ValidateClientLogoutRedirectURIContext validates the post-logout redirect URI.
type ValidateClientLogoutRedirectURIContext struct {
	BaseContext
	Request               *model.OAuthMessage
	PostLogoutRedirectURI string
}

// ValidateClientAuthenticationContext validates the client credentials sent
// to the token endpoint.
type ValidateClientAuthenticationContext struct {
	BaseContext
	Request      *model.OAuthMessage
	ClientID     string
	ClientSecret string
}

// ValidateAuthorizationRequestContext validates the complete authorization request.
type ValidateAuthorizationRequestContext struct {
	BaseContext
	Request *model.OAuthMessage
}

// ValidateTokenRequestContext validates the complete token request. The hook
// may replace the attached ticket.
type ValidateTokenRequestContext struct {
	BaseContext
	Request *model.OAuthMessage
	Ticket  *model.AuthenticationTicket
}

// AuthorizationEndpointContext is fired once the authorization request is
// fully validated. The host establishes identity and consent, then either
// records a sign-in decision or takes over the response.
type AuthorizationEndpointContext struct {
	BaseContext
	Request *model.OAuthMessage
	SignIn  *model.AuthenticationTicket
}

// GrantSignIn records the host's sign-in decision for the current request.
func (c *AuthorizationEndpointContext) GrantSignIn(principal model.Principal,
	properties model.TicketProperties, scheme string) {
	if properties == nil {
		properties = make(model.TicketProperties)
	}
	c.SignIn = &model.AuthenticationTicket{
		Principal:  principal,
		Properties: properties,
		Scheme:     scheme,
	}
}

// ResponseContext is fired before a pipeline emits its default response,
// carrying both the request and the assembled response message.
type ResponseContext struct {
	BaseContext
	Request  *model.OAuthMessage
	Response *model.OAuthMessage
}

// TokenEndpointContext is fired before token issuance with the resolved ticket.
type TokenEndpointContext struct {
	BaseContext
	Request *model.OAuthMessage
	Ticket  *model.AuthenticationTicket
}

// LogoutEndpointContext is fired when the logout request has been validated.
// The host performs the sign-out and records it with GrantSignOut.
type LogoutEndpointContext struct {
	BaseContext
	Request   *model.OAuthMessage
	SignedOut bool
}

// GrantSignOut records the host's sign-out decision for the current request.
func (c *LogoutEndpointContext) GrantSignOut() {
	c.SignedOut = true
}

// ConfigurationEndpointContext carries the discovery metadata before emission.
type ConfigurationEndpointContext struct {
	BaseContext
	Request  *model.OAuthMessage
	Metadata *model.ConfigurationMetadata
}

// CryptographyEndpointContext carries the JWKS document before emission.
type CryptographyEndpointContext struct {
	BaseContext
	Request *model.OAuthMessage
	Keys    *model.JSONWebKeySet
}

// ValidationEndpointContext carries the introspection result before emission.
type ValidationEndpointContext struct {
	BaseContext
	Request  *model.OAuthMessage
	Ticket   *model.AuthenticationTicket
	Response *model.ValidationResponse
}

// GrantContext is fired for the grant-specific hooks. The hook may replace
// the ticket resolved from the code or refresh token, or attach one for the
// password, client_credentials and custom grants.
type GrantContext struct {
	BaseContext
	Request   *model.OAuthMessage
	GrantType string
	Ticket    *model.AuthenticationTicket
}

// CreateTokenContext is fired when a token of the given kind is serialized.
// A hook that sets Token overrides the default issuance.
type CreateTokenContext struct {
	BaseContext
	Request  *model.OAuthMessage
	Response *model.OAuthMessage
	Ticket   *model.AuthenticationTicket
	Token    string
}

// ReceiveTokenContext is fired when a token of the given kind is resolved
// back into a ticket. A hook that sets Ticket overrides the default lookup.
type ReceiveTokenContext struct {
	BaseContext
	Request *model.OAuthMessage
	Token   string
	Ticket  *model.AuthenticationTicket
}
