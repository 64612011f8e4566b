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

package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/oauth/ticket"
	"github.com/tempestauth/tempest/internal/system/store"
)

const testRedirectURI = "https://client.example.com/cb"

var testTokenKey *rsa.PrivateKey

type TokenPipelineTestSuite struct {
	suite.Suite
	now      time.Time
	options  *model.Options
	provider *provider.AuthorizationProvider
	tickets  *ticket.Service
	pipeline *Pipeline
}

func TestTokenPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(TokenPipelineTestSuite))
}

func (suite *TokenPipelineTestSuite) SetupSuite() {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(suite.T(), err)
	testTokenKey = key
}

func (suite *TokenPipelineTestSuite) SetupTest() {
	suite.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return suite.now }

	suite.options = &model.Options{
		AuthorizationEndpointPath: "/oauth2/authorize",
		TokenEndpointPath:         "/oauth2/token",
		Issuer:                    "https://idp.example.com",
		AuthorizationCodeLifetime: 5 * time.Minute,
		AccessTokenLifetime:       time.Hour,
		IdentityTokenLifetime:     20 * time.Minute,
		RefreshTokenLifetime:      14 * 24 * time.Hour,
	}
	suite.provider = &provider.AuthorizationProvider{
		ValidateClientAuthentication: func(ctx *provider.ValidateClientAuthenticationContext) error {
			ctx.Validate()
			return nil
		},
	}

	jwtService := jwt.NewJWTService([]jwt.SigningCredential{
		jwt.NewSigningCredential(testTokenKey),
	})
	suite.tickets = ticket.NewService(jwtService, store.NewInMemoryBlobStore(clock), clock, nil)
	suite.pipeline = NewPipeline(suite.options, suite.provider, suite.tickets, clock)
}

// issueCode mints an authorization code the way the authorization endpoint
// would, bound to client-1 and the test redirect URI.
func (suite *TokenPipelineTestSuite) issueCode(scope string) string {
	t := model.NewAuthenticationTicket(model.Principal{
		Claims: []model.Claim{{Type: constants.ClaimNameID, Value: "user-1"}},
	}, constants.TokenTypeBearer)
	t.Properties[model.PropertyClientID] = "client-1"
	t.Properties[model.PropertyRedirectURI] = testRedirectURI
	if scope != "" {
		t.Properties[model.PropertyScope] = scope
	}
	t.Properties.SetIssuedUTC(suite.now)
	t.Properties.SetExpiresUTC(suite.now.Add(5 * time.Minute))

	code, err := suite.tickets.IssueOpaqueToken(context.Background(), t)
	assert.NoError(suite.T(), err)
	return code
}

func (suite *TokenPipelineTestSuite) issueRefreshToken(lifetime time.Duration) string {
	t := model.NewAuthenticationTicket(model.Principal{
		Claims: []model.Claim{{Type: constants.ClaimNameID, Value: "user-1"}},
	}, constants.TokenTypeBearer)
	t.Properties[model.PropertyClientID] = "client-1"
	t.Properties[model.PropertyScope] = "openid"
	t.Properties.SetIssuedUTC(suite.now)
	t.Properties.SetExpiresUTC(suite.now.Add(lifetime))

	refreshToken, err := suite.tickets.IssueOpaqueToken(context.Background(), t)
	assert.NoError(suite.T(), err)
	return refreshToken
}

func (suite *TokenPipelineTestSuite) post(form url.Values,
	headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", constants.ContentTypeFormURLEncoded)
	for key, value := range headers {
		r.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	suite.pipeline.Handle(w, r)
	return w
}

func (suite *TokenPipelineTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var payload map[string]interface{}
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func (suite *TokenPipelineTestSuite) TestRejectsNonPost() {
	r := httptest.NewRequest(http.MethodGet, "/oauth2/token", nil)
	w := httptest.NewRecorder()
	suite.pipeline.Handle(w, r)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, suite.decode(w)[constants.Error])
	assert.Equal(suite.T(), "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(suite.T(), "no-cache", w.Header().Get("Pragma"))
}

func (suite *TokenPipelineTestSuite) TestAuthorizationCodeGrant() {
	code := suite.issueCode("openid")

	w := suite.post(url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {testRedirectURI},
		constants.ClientID:    {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), constants.ContentTypeJSON, w.Header().Get("Content-Type"))
	assert.Equal(suite.T(), "no-cache", w.Header().Get("Cache-Control"))

	payload := suite.decode(w)
	assert.NotEmpty(suite.T(), payload[constants.AccessToken])
	assert.Equal(suite.T(), constants.TokenTypeBearer, payload[constants.TokenType])
	assert.Equal(suite.T(), float64(3600), payload[constants.ExpiresIn])
	assert.NotEmpty(suite.T(), payload[constants.IDToken])
	assert.NotEmpty(suite.T(), payload[constants.RefreshToken])
}

func (suite *TokenPipelineTestSuite) TestAuthorizationCodeIsSingleUse() {
	code := suite.issueCode("")
	form := url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {testRedirectURI},
		constants.ClientID:    {"client-1"},
	}

	first := suite.post(form, nil)
	assert.Equal(suite.T(), http.StatusOK, first.Code)

	second := suite.post(form, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, second.Code)
	payload := suite.decode(second)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, payload[constants.Error])
	assert.Equal(suite.T(), "Invalid ticket", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestRedirectURIMismatch() {
	code := suite.issueCode("")

	w := suite.post(url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {"https://attacker.example.com/cb"},
		constants.ClientID:    {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, payload[constants.Error])
	assert.Equal(suite.T(), "redirect_uri parameter does not match", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestClientIDMismatch() {
	code := suite.issueCode("")

	w := suite.post(url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {testRedirectURI},
		constants.ClientID:    {"client-2"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), "client_id parameter does not match", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestScopeEscalationRejected() {
	code := suite.issueCode("openid")

	w := suite.post(url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {testRedirectURI},
		constants.ClientID:    {"client-1"},
		constants.Scope:       {"openid admin"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, payload[constants.Error])
	assert.Equal(suite.T(), "scope parameter is not valid for this ticket",
		payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestNarrowedScopeAccepted() {
	code := suite.issueCode("openid profile email")

	w := suite.post(url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {testRedirectURI},
		constants.ClientID:    {"client-1"},
		constants.Scope:       {"openid email"},
	}, nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *TokenPipelineTestSuite) TestExpiredTicketFromHook() {
	expired := model.NewAuthenticationTicket(model.Principal{
		Claims: []model.Claim{{Type: constants.ClaimNameID, Value: "user-1"}},
	}, constants.TokenTypeBearer)
	expired.Properties.SetIssuedUTC(suite.now.Add(-2 * time.Hour))
	expired.Properties.SetExpiresUTC(suite.now.Add(-time.Hour))

	suite.provider.ReceiveAuthorizationCode = func(ctx *provider.ReceiveTokenContext) error {
		ctx.Ticket = expired
		return nil
	}

	w := suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeAuthorizationCode},
		constants.Code:      {"whatever"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, payload[constants.Error])
	assert.Equal(suite.T(), "Expired ticket", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestExpiredCodeIsGone() {
	code := suite.issueCode("")
	suite.now = suite.now.Add(6 * time.Minute)

	w := suite.post(url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {testRedirectURI},
		constants.ClientID:    {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "Invalid ticket", suite.decode(w)[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestRefreshTokenGrantIsReusable() {
	refreshToken := suite.issueRefreshToken(14 * 24 * time.Hour)
	form := url.Values{
		constants.GrantType:    {constants.GrantTypeRefreshToken},
		constants.RefreshToken: {refreshToken},
		constants.ClientID:     {"client-1"},
	}

	first := suite.post(form, nil)
	assert.Equal(suite.T(), http.StatusOK, first.Code)
	payload := suite.decode(first)
	assert.NotEmpty(suite.T(), payload[constants.AccessToken])
	assert.Equal(suite.T(), float64(3600), payload[constants.ExpiresIn])

	second := suite.post(form, nil)
	assert.Equal(suite.T(), http.StatusOK, second.Code)
}

func (suite *TokenPipelineTestSuite) TestRefreshCappedAtOriginalExpiry() {
	// Without sliding expiration a refreshed access token never outlives the
	// refresh token it came from.
	refreshToken := suite.issueRefreshToken(30 * time.Minute)

	w := suite.post(url.Values{
		constants.GrantType:    {constants.GrantTypeRefreshToken},
		constants.RefreshToken: {refreshToken},
		constants.ClientID:     {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1800), suite.decode(w)[constants.ExpiresIn])
}

func (suite *TokenPipelineTestSuite) TestSlidingExpirationSkipsCap() {
	suite.options.UseSlidingExpiration = true
	refreshToken := suite.issueRefreshToken(30 * time.Minute)

	w := suite.post(url.Values{
		constants.GrantType:    {constants.GrantTypeRefreshToken},
		constants.RefreshToken: {refreshToken},
		constants.ClientID:     {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(3600), suite.decode(w)[constants.ExpiresIn])
}

func (suite *TokenPipelineTestSuite) TestBasicAuthenticationCredentials() {
	var seenID, seenSecret string
	suite.provider.ValidateClientAuthentication = func(
		ctx *provider.ValidateClientAuthenticationContext) error {
		seenID, seenSecret = ctx.ClientID, ctx.ClientSecret
		ctx.Validate()
		return nil
	}

	credentials := base64.StdEncoding.EncodeToString([]byte("client-1:s3cret"))
	suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeClientCredentials},
	}, map[string]string{"Authorization": "Basic " + credentials})

	assert.Equal(suite.T(), "client-1", seenID)
	assert.Equal(suite.T(), "s3cret", seenSecret)
}

func (suite *TokenPipelineTestSuite) TestMalformedBasicAuthentication() {
	w := suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeClientCredentials},
	}, map[string]string{"Authorization": "Basic %%%not-base64%%%"})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), `Basic realm="token"`, w.Header().Get("WWW-Authenticate"))
	assert.Equal(suite.T(), constants.ErrorInvalidClient, suite.decode(w)[constants.Error])
}

func (suite *TokenPipelineTestSuite) TestClientAuthenticationDefaultsToRejection() {
	suite.provider.ValidateClientAuthentication = nil

	w := suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeAuthorizationCode},
		constants.ClientID:  {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorInvalidClient, payload[constants.Error])
	assert.Equal(suite.T(), "client authentication failed", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestMissingGrantType() {
	w := suite.post(url.Values{constants.ClientID: {"client-1"}}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorUnsupportedGrantType, payload[constants.Error])
	assert.Equal(suite.T(), "grant_type parameter missing", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestClientCredentialsDefaultsToRejection() {
	w := suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeClientCredentials},
		constants.ClientID:  {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorUnauthorizedClient, payload[constants.Error])
	assert.Equal(suite.T(), "the client credentials grant was rejected", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestPasswordGrant() {
	suite.provider.GrantResourceOwnerCredentials = func(ctx *provider.GrantContext) error {
		assert.Equal(suite.T(), "user-1", ctx.Request.Get(constants.Username))
		ctx.Ticket = model.NewAuthenticationTicket(model.Principal{
			Claims: []model.Claim{{Type: constants.ClaimNameID, Value: "user-1"}},
		}, constants.TokenTypeBearer)
		ctx.Validate()
		return nil
	}

	w := suite.post(url.Values{
		constants.GrantType: {constants.GrantTypePassword},
		constants.Username:  {"user-1"},
		constants.Password:  {"hunter2"},
		constants.ClientID:  {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	payload := suite.decode(w)
	assert.NotEmpty(suite.T(), payload[constants.AccessToken])
	assert.Equal(suite.T(), float64(3600), payload[constants.ExpiresIn])
}

func (suite *TokenPipelineTestSuite) TestUnsupportedGrantType() {
	w := suite.post(url.Values{
		constants.GrantType: {"urn:example:custom"},
		constants.ClientID:  {"client-1"},
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	payload := suite.decode(w)
	assert.Equal(suite.T(), constants.ErrorUnsupportedGrantType, payload[constants.Error])
	assert.Equal(suite.T(), "grant_type parameter is not supported", payload[constants.ErrorDescription])
}

func (suite *TokenPipelineTestSuite) TestResponseTypeFilter() {
	code := suite.issueCode("openid")

	w := suite.post(url.Values{
		constants.GrantType:    {constants.GrantTypeAuthorizationCode},
		constants.Code:         {code},
		constants.RedirectURI:  {testRedirectURI},
		constants.ClientID:     {"client-1"},
		constants.ResponseType: {constants.ResponseTypeToken},
	}, nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	payload := suite.decode(w)
	assert.NotEmpty(suite.T(), payload[constants.AccessToken])
	assert.NotContains(suite.T(), payload, constants.IDToken)
	assert.NotContains(suite.T(), payload, constants.RefreshToken)
}

func (suite *TokenPipelineTestSuite) TestSkippedAuthenticationPassesThrough() {
	suite.provider.ValidateClientAuthentication = func(
		ctx *provider.ValidateClientAuthenticationContext) error {
		ctx.Skip()
		return nil
	}

	r := httptest.NewRequest(http.MethodPost, "/oauth2/token",
		strings.NewReader(url.Values{constants.GrantType: {"password"}}.Encode()))
	r.Header.Set("Content-Type", constants.ContentTypeFormURLEncoded)
	w := httptest.NewRecorder()

	_, handled := suite.pipeline.Handle(w, r)
	assert.False(suite.T(), handled)
}
