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

package model

import (
	"net/http"
	"time"
)

// Options carries the immutable runtime options of the OAuth2 middleware.
// An endpoint is enabled iff its path is non-empty.
type Options struct {
	AuthorizationEndpointPath string
	TokenEndpointPath         string
	ValidationEndpointPath    string
	LogoutEndpointPath        string
	ConfigurationEndpointPath string
	CryptographyEndpointPath  string

	// Issuer overrides the request origin as the token issuer when set.
	Issuer string

	AllowInsecureHTTP           bool
	ApplicationCanDisplayErrors bool
	UseSlidingExpiration        bool

	AuthorizationCodeLifetime time.Duration
	AccessTokenLifetime       time.Duration
	IdentityTokenLifetime     time.Duration
	RefreshTokenLifetime      time.Duration
}

// AuthorizationEndpointEnabled reports whether the authorization endpoint is configured.
func (o *Options) AuthorizationEndpointEnabled() bool {
	return o.AuthorizationEndpointPath != ""
}

// TokenEndpointEnabled reports whether the token endpoint is configured.
func (o *Options) TokenEndpointEnabled() bool {
	return o.TokenEndpointPath != ""
}

// MatchPath classifies a request path against the configured endpoint paths.
// Unmatched paths return EndpointNone.
func (o *Options) MatchPath(path string) EndpointType {
	switch {
	case o.AuthorizationEndpointPath != "" && path == o.AuthorizationEndpointPath:
		return EndpointAuthorization
	case o.TokenEndpointPath != "" && path == o.TokenEndpointPath:
		return EndpointToken
	case o.ValidationEndpointPath != "" && path == o.ValidationEndpointPath:
		return EndpointValidation
	case o.LogoutEndpointPath != "" && path == o.LogoutEndpointPath:
		return EndpointLogout
	case o.ConfigurationEndpointPath != "" && path == o.ConfigurationEndpointPath:
		return EndpointConfiguration
	case o.CryptographyEndpointPath != "" && path == o.CryptographyEndpointPath:
		return EndpointCryptography
	default:
		return EndpointNone
	}
}

// IssuerOrOrigin returns the configured issuer, falling back to the origin of
// the incoming request.
func (o *Options) IssuerOrOrigin(r *http.Request) string {
	if o.Issuer != "" {
		return o.Issuer
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
