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

package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
)

func TestBaseContext_DefaultOutcome(t *testing.T) {
	ctx := &BaseContext{}

	assert.Equal(t, OutcomeNone, ctx.Outcome())
	assert.False(t, ctx.IsValidated())
	assert.False(t, ctx.IsRejected())
	assert.False(t, ctx.IsHandled())
	assert.False(t, ctx.IsSkipped())
}

func TestBaseContext_Validate(t *testing.T) {
	ctx := &BaseContext{}
	ctx.Validate()

	assert.True(t, ctx.IsValidated())
	assert.Equal(t, OutcomeValidated, ctx.Outcome())
}

func TestBaseContext_Reject(t *testing.T) {
	ctx := &BaseContext{}
	ctx.Reject(constants.ErrorAccessDenied, "the user denied the request")

	assert.True(t, ctx.IsRejected())
	assert.Equal(t, constants.ErrorAccessDenied, ctx.Error.Error)
	assert.Equal(t, "the user denied the request", ctx.Error.ErrorDescription)
}

func TestBaseContext_HandleResponseAndSkip(t *testing.T) {
	handled := &BaseContext{}
	handled.HandleResponse()
	assert.True(t, handled.IsHandled())

	skipped := &BaseContext{}
	skipped.Skip()
	assert.True(t, skipped.IsSkipped())
}

func TestBaseContext_LastDecisionWins(t *testing.T) {
	ctx := &BaseContext{}
	ctx.Validate()
	ctx.Reject(constants.ErrorInvalidRequest, "")

	assert.False(t, ctx.IsValidated())
	assert.True(t, ctx.IsRejected())
}

func TestAuthorizationEndpointContext_GrantSignIn(t *testing.T) {
	ctx := &AuthorizationEndpointContext{}
	principal := model.Principal{Claims: []model.Claim{{Type: "sub", Value: "user-1"}}}

	ctx.GrantSignIn(principal, nil, constants.TokenTypeBearer)

	assert.NotNil(t, ctx.SignIn)
	assert.Equal(t, principal, ctx.SignIn.Principal)
	assert.NotNil(t, ctx.SignIn.Properties)
	assert.Equal(t, constants.TokenTypeBearer, ctx.SignIn.Scheme)
}

func TestLogoutEndpointContext_GrantSignOut(t *testing.T) {
	ctx := &LogoutEndpointContext{}
	assert.False(t, ctx.SignedOut)

	ctx.GrantSignOut()
	assert.True(t, ctx.SignedOut)
}

func TestAuthorizationProvider_NilCallbacks(t *testing.T) {
	prov := &AuthorizationProvider{}

	assert.NoError(t, prov.OnMatchEndpoint(&MatchEndpointContext{}))
	assert.NoError(t, prov.OnValidateClientRedirectURI(&ValidateClientRedirectURIContext{}))
	assert.NoError(t, prov.OnGrantAuthorizationCode(&GrantContext{}))
	assert.NoError(t, prov.OnCreateAccessToken(&CreateTokenContext{}))
	assert.NoError(t, prov.OnReceiveRefreshToken(&ReceiveTokenContext{}))
}

func TestAuthorizationProvider_NilProvider(t *testing.T) {
	var prov *AuthorizationProvider

	assert.NoError(t, prov.OnMatchEndpoint(&MatchEndpointContext{}))
	assert.NoError(t, prov.OnTokenEndpoint(&TokenEndpointContext{}))
}

func TestAuthorizationProvider_CallbackDispatch(t *testing.T) {
	hookErr := errors.New("hook failure")
	prov := &AuthorizationProvider{
		ValidateClientAuthentication: func(ctx *ValidateClientAuthenticationContext) error {
			ctx.Validate()
			return nil
		},
		GrantClientCredentials: func(*GrantContext) error {
			return hookErr
		},
	}

	authCtx := &ValidateClientAuthenticationContext{ClientID: "client-1"}
	assert.NoError(t, prov.OnValidateClientAuthentication(authCtx))
	assert.True(t, authCtx.IsValidated())

	assert.ErrorIs(t, prov.OnGrantClientCredentials(&GrantContext{}), hookErr)
}
