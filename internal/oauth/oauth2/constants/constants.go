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

// Package constants defines constants used across the OAuth2 module.
package constants

// OAuth2 / OIDC request and response parameters.
const (
	ClientID              = "client_id"
	ClientSecret          = "client_secret"
	RedirectURI           = "redirect_uri"
	ResponseType          = "response_type"
	ResponseMode          = "response_mode"
	Scope                 = "scope"
	State                 = "state"
	Nonce                 = "nonce"
	Code                  = "code"
	GrantType             = "grant_type"
	RefreshToken          = "refresh_token"
	IDToken               = "id_token"
	Token                 = "token"
	AccessToken           = "access_token"
	TokenType             = "token_type"
	ExpiresIn             = "expires_in"
	Resource              = "resource"
	Audience              = "audience"
	Username              = "username"
	Password              = "password"
	IDTokenHint           = "id_token_hint"
	PostLogoutRedirectURI = "post_logout_redirect_uri"
	Error                 = "error"
	ErrorDescription      = "error_description"
	ErrorURI              = "error_uri"
	UniqueID              = "unique_id"
)

// OAuth2 grant types.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeImplicit          = "implicit"
	GrantTypeRefreshToken      = "refresh_token"
)

// OAuth2 / OIDC response type values.
const (
	ResponseTypeNone    = "none"
	ResponseTypeCode    = "code"
	ResponseTypeToken   = "token"
	ResponseTypeIDToken = "id_token"
)

// OIDC response modes.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
	ResponseModeFormPost = "form_post"
)

// OIDC scope values.
const (
	ScopeOpenID = "openid"
)

// OAuth2 token types.
const (
	TokenTypeBearer = "Bearer"
)

// OAuth2 error codes.
const (
	ErrorInvalidRequest          = "invalid_request"
	ErrorInvalidClient           = "invalid_client"
	ErrorInvalidGrant            = "invalid_grant"
	ErrorUnauthorizedClient      = "unauthorized_client"
	ErrorUnsupportedGrantType    = "unsupported_grant_type"
	ErrorUnsupportedResponseType = "unsupported_response_type"
	ErrorServerError             = "server_error"
	ErrorAccessDenied            = "access_denied"
)

// Standard JWT claims.
const (
	ClaimIssuer     = "iss"
	ClaimSubject    = "sub"
	ClaimAudience   = "aud"
	ClaimExpiry     = "exp"
	ClaimIssuedAt   = "iat"
	ClaimNotBefore  = "nbf"
	ClaimJWTID      = "jti"
	ClaimNonce      = "nonce"
	ClaimAccessHash = "at_hash"
	ClaimCodeHash   = "c_hash"
	ClaimNameID     = "nameid"
	ClaimScope      = "scope"
)

// Content types.
const (
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
	ContentTypeJSON           = "application/json"
	ContentTypeHTML           = "text/html;charset=UTF-8"
)
