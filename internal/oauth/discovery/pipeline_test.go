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

package discovery

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // x5t is defined as the SHA-1 certificate thumbprint.
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/system/crypto"
)

var testDiscoveryKey *rsa.PrivateKey

type DiscoveryPipelineTestSuite struct {
	suite.Suite
	options  *model.Options
	provider *provider.AuthorizationProvider
}

func TestDiscoveryPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(DiscoveryPipelineTestSuite))
}

func (suite *DiscoveryPipelineTestSuite) SetupSuite() {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(suite.T(), err)
	testDiscoveryKey = key
}

func (suite *DiscoveryPipelineTestSuite) SetupTest() {
	suite.options = &model.Options{
		AuthorizationEndpointPath: "/oauth2/authorize",
		TokenEndpointPath:         "/oauth2/token",
		ValidationEndpointPath:    "/oauth2/validate",
		LogoutEndpointPath:        "/oauth2/logout",
		ConfigurationEndpointPath: "/.well-known/openid-configuration",
		CryptographyEndpointPath:  "/oauth2/jwks",
		Issuer:                    "https://idp.example.com",
	}
	suite.provider = &provider.AuthorizationProvider{}
}

func (suite *DiscoveryPipelineTestSuite) newPipeline(credentials ...jwt.SigningCredential) *Pipeline {
	return NewPipeline(suite.options, suite.provider, jwt.NewJWTService(credentials))
}

func (suite *DiscoveryPipelineTestSuite) fetchMetadata(p *Pipeline) *model.ConfigurationMetadata {
	r := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	w := httptest.NewRecorder()
	_, handled := p.HandleConfiguration(w, r)

	assert.True(suite.T(), handled)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), constants.ContentTypeJSON, w.Header().Get("Content-Type"))

	var metadata model.ConfigurationMetadata
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &metadata))
	return &metadata
}

func (suite *DiscoveryPipelineTestSuite) fetchKeySet(p *Pipeline) *model.JSONWebKeySet {
	r := httptest.NewRequest(http.MethodGet, "/oauth2/jwks", nil)
	w := httptest.NewRecorder()
	_, handled := p.HandleCryptography(w, r)

	assert.True(suite.T(), handled)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var keys model.JSONWebKeySet
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &keys))
	return &keys
}

func (suite *DiscoveryPipelineTestSuite) TestFullConfiguration() {
	metadata := suite.fetchMetadata(suite.newPipeline(jwt.NewSigningCredential(testDiscoveryKey)))

	assert.Equal(suite.T(), "https://idp.example.com", metadata.Issuer)
	assert.Equal(suite.T(), "https://idp.example.com/oauth2/authorize", metadata.AuthorizationEndpoint)
	assert.Equal(suite.T(), "https://idp.example.com/oauth2/token", metadata.TokenEndpoint)
	assert.Equal(suite.T(), "https://idp.example.com/oauth2/validate", metadata.IntrospectionEndpoint)
	assert.Equal(suite.T(), "https://idp.example.com/oauth2/logout", metadata.EndSessionEndpoint)
	assert.Equal(suite.T(), "https://idp.example.com/oauth2/jwks", metadata.JWKSURI)

	assert.Equal(suite.T(), []string{"implicit", "authorization_code", "refresh_token"},
		metadata.GrantTypesSupported)
	assert.Equal(suite.T(), []string{
		"code", "token", "code token",
		"id_token", "id_token token",
		"code id_token", "code id_token token",
	}, metadata.ResponseTypesSupported)
	assert.Equal(suite.T(), []string{"query", "fragment", "form_post"}, metadata.ResponseModesSupported)
	assert.Equal(suite.T(), []string{"openid"}, metadata.ScopesSupported)
	assert.Equal(suite.T(), []string{jwt.AlgorithmRS256}, metadata.IDTokenSigningAlgValuesSupported)
}

func (suite *DiscoveryPipelineTestSuite) TestConfigurationWithoutSigning() {
	metadata := suite.fetchMetadata(suite.newPipeline())

	assert.Equal(suite.T(), []string{"code", "token", "code token"}, metadata.ResponseTypesSupported)
}

func (suite *DiscoveryPipelineTestSuite) TestTokenOnlyConfiguration() {
	suite.options.AuthorizationEndpointPath = ""
	metadata := suite.fetchMetadata(suite.newPipeline())

	assert.Empty(suite.T(), metadata.AuthorizationEndpoint)
	assert.Equal(suite.T(), []string{"refresh_token", "password", "client_credentials"},
		metadata.GrantTypesSupported)
	assert.Empty(suite.T(), metadata.ResponseTypesSupported)
}

func (suite *DiscoveryPipelineTestSuite) TestAuthorizationOnlyConfiguration() {
	suite.options.TokenEndpointPath = ""
	metadata := suite.fetchMetadata(suite.newPipeline(jwt.NewSigningCredential(testDiscoveryKey)))

	assert.Equal(suite.T(), []string{"implicit"}, metadata.GrantTypesSupported)
	assert.Equal(suite.T(), []string{"token", "id_token", "id_token token"},
		metadata.ResponseTypesSupported)
}

func (suite *DiscoveryPipelineTestSuite) TestIssuerFallsBackToOrigin() {
	suite.options.Issuer = ""
	p := suite.newPipeline()

	r := httptest.NewRequest(http.MethodGet, "http://server.example.com/.well-known/openid-configuration", nil)
	w := httptest.NewRecorder()
	p.HandleConfiguration(w, r)

	var metadata model.ConfigurationMetadata
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &metadata))
	assert.Equal(suite.T(), "http://server.example.com", metadata.Issuer)
	assert.Equal(suite.T(), "http://server.example.com/oauth2/token", metadata.TokenEndpoint)
}

func (suite *DiscoveryPipelineTestSuite) TestConfigurationRejectsNonGet() {
	p := suite.newPipeline()

	r := httptest.NewRequest(http.MethodPost, "/.well-known/openid-configuration", nil)
	w := httptest.NewRecorder()
	_, handled := p.HandleConfiguration(w, r)

	assert.True(suite.T(), handled)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "DISC-1001")
}

func (suite *DiscoveryPipelineTestSuite) TestConfigurationHookOverride() {
	suite.provider.ConfigurationEndpoint = func(ctx *provider.ConfigurationEndpointContext) error {
		ctx.Metadata.ScopesSupported = append(ctx.Metadata.ScopesSupported, "profile")
		return nil
	}

	metadata := suite.fetchMetadata(suite.newPipeline())
	assert.Equal(suite.T(), []string{"openid", "profile"}, metadata.ScopesSupported)
}

func (suite *DiscoveryPipelineTestSuite) TestConfigurationHookSkip() {
	suite.provider.ConfigurationEndpoint = func(ctx *provider.ConfigurationEndpointContext) error {
		ctx.Skip()
		return nil
	}
	p := suite.newPipeline()

	r := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	w := httptest.NewRecorder()
	_, handled := p.HandleConfiguration(w, r)

	assert.False(suite.T(), handled)
}

func (suite *DiscoveryPipelineTestSuite) TestKeySetWithRawKey() {
	credential := jwt.NewSigningCredential(testDiscoveryKey)
	keys := suite.fetchKeySet(suite.newPipeline(credential))

	assert.Len(suite.T(), keys.Keys, 1)
	entry := keys.Keys[0]
	assert.Equal(suite.T(), "RSA", entry.Kty)
	assert.Equal(suite.T(), jwt.AlgorithmRS256, entry.Alg)
	assert.Equal(suite.T(), "sig", entry.Use)
	assert.Equal(suite.T(), credential.KeyID, entry.Kid)
	assert.Equal(suite.T(),
		crypto.EncodeBase64URL(big.NewInt(int64(testDiscoveryKey.PublicKey.E)).Bytes()), entry.E)
	assert.Equal(suite.T(), crypto.EncodeBase64URL(testDiscoveryKey.PublicKey.N.Bytes()), entry.N)
	assert.Empty(suite.T(), entry.X5t)
	assert.Empty(suite.T(), entry.X5c)
}

func (suite *DiscoveryPipelineTestSuite) TestKeySetWithCertificate() {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "idp.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template,
		&testDiscoveryKey.PublicKey, testDiscoveryKey)
	assert.NoError(suite.T(), err)
	certificate, err := x509.ParseCertificate(certDER)
	assert.NoError(suite.T(), err)

	credential := jwt.NewSigningCredential(testDiscoveryKey)
	credential.Certificate = certificate
	keys := suite.fetchKeySet(suite.newPipeline(credential))

	assert.Len(suite.T(), keys.Keys, 1)
	entry := keys.Keys[0]
	thumbprint := sha1.Sum(certificate.Raw) //nolint:gosec
	assert.Equal(suite.T(), crypto.EncodeBase64URL(thumbprint[:]), entry.X5t)
	assert.Equal(suite.T(), []string{base64.StdEncoding.EncodeToString(certificate.Raw)}, entry.X5c)
	assert.Empty(suite.T(), entry.E)
	assert.Empty(suite.T(), entry.N)
}

func (suite *DiscoveryPipelineTestSuite) TestEmptyKeySet() {
	keys := suite.fetchKeySet(suite.newPipeline())

	assert.NotNil(suite.T(), keys.Keys)
	assert.Empty(suite.T(), keys.Keys)
}

func (suite *DiscoveryPipelineTestSuite) TestKeySetRejectsNonGet() {
	p := suite.newPipeline()

	r := httptest.NewRequest(http.MethodPost, "/oauth2/jwks", nil)
	w := httptest.NewRecorder()
	_, handled := p.HandleCryptography(w, r)

	assert.True(suite.T(), handled)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "Discovery requests must use GET.")
}
