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
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_MatchPath(t *testing.T) {
	options := &Options{
		AuthorizationEndpointPath: "/oauth2/authorize",
		TokenEndpointPath:         "/oauth2/token",
		ValidationEndpointPath:    "/oauth2/introspect",
		LogoutEndpointPath:        "/oauth2/logout",
		ConfigurationEndpointPath: "/.well-known/openid-configuration",
		CryptographyEndpointPath:  "/oauth2/jwks",
	}

	assert.Equal(t, EndpointAuthorization, options.MatchPath("/oauth2/authorize"))
	assert.Equal(t, EndpointToken, options.MatchPath("/oauth2/token"))
	assert.Equal(t, EndpointValidation, options.MatchPath("/oauth2/introspect"))
	assert.Equal(t, EndpointLogout, options.MatchPath("/oauth2/logout"))
	assert.Equal(t, EndpointConfiguration, options.MatchPath("/.well-known/openid-configuration"))
	assert.Equal(t, EndpointCryptography, options.MatchPath("/oauth2/jwks"))

	assert.Equal(t, EndpointNone, options.MatchPath("/oauth2/authorize/extra"))
	assert.Equal(t, EndpointNone, options.MatchPath("/unrelated"))
}

func TestOptions_MatchPath_DisabledEndpoint(t *testing.T) {
	options := &Options{TokenEndpointPath: "/oauth2/token"}

	assert.Equal(t, EndpointNone, options.MatchPath("/oauth2/authorize"))
	assert.Equal(t, EndpointNone, options.MatchPath(""))
	assert.False(t, options.AuthorizationEndpointEnabled())
	assert.True(t, options.TokenEndpointEnabled())
}

func TestOptions_IssuerOrOrigin_Configured(t *testing.T) {
	options := &Options{Issuer: "https://idp.example.com"}
	r := httptest.NewRequest("GET", "http://other.example.com/oauth2/authorize", nil)

	assert.Equal(t, "https://idp.example.com", options.IssuerOrOrigin(r))
}

func TestOptions_IssuerOrOrigin_RequestOrigin(t *testing.T) {
	options := &Options{}

	r := httptest.NewRequest("GET", "http://server.example.com/oauth2/authorize", nil)
	assert.Equal(t, "http://server.example.com", options.IssuerOrOrigin(r))

	r = httptest.NewRequest("GET", "https://server.example.com/oauth2/authorize", nil)
	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://server.example.com", options.IssuerOrOrigin(r))
}
