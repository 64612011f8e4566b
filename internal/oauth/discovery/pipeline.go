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

// Package discovery implements the configuration and cryptography endpoints:
// the OIDC discovery metadata document and the JWKS key set.
package discovery

import (
	"crypto/sha1" //nolint:gosec // x5t is defined as the SHA-1 certificate thumbprint.
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/message"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/system/crypto"
	"github.com/tempestauth/tempest/internal/system/log"
)

const loggerComponentName = "DiscoveryPipeline"

// Pipeline serves the configuration and cryptography endpoints.
type Pipeline struct {
	options    *model.Options
	provider   *provider.AuthorizationProvider
	jwtService jwt.JWTServiceInterface
}

// NewPipeline creates the discovery pipeline.
func NewPipeline(options *model.Options, prov *provider.AuthorizationProvider,
	jwtService jwt.JWTServiceInterface) *Pipeline {
	return &Pipeline{
		options:    options,
		provider:   prov,
		jwtService: jwtService,
	}
}

// HandleConfiguration processes a discovery metadata request.
func (p *Pipeline) HandleConfiguration(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if r.Method != http.MethodGet {
		writeServiceError(w, logger, ErrorInvalidDiscoveryMethod)
		return r, true
	}

	msg, err := message.ParseRequest(r, model.RequestTypeAuthentication)
	if err == nil {
		r = r.WithContext(model.WithMessage(r.Context(), msg))
	}

	metadata := p.buildMetadata(r)

	configCtx := &provider.ConfigurationEndpointContext{Request: msg, Metadata: metadata}
	if hookErr := p.provider.OnConfigurationEndpoint(configCtx); hookErr != nil {
		logger.Error("ConfigurationEndpoint hook failed", log.Error(hookErr))
		writeServiceError(w, logger, ErrorWhileBuildingConfiguration)
		return r, true
	}
	if configCtx.IsHandled() {
		return r, true
	}
	if configCtx.IsSkipped() {
		return r, false
	}
	if configCtx.Metadata != nil {
		metadata = configCtx.Metadata
	}

	if hookErr := p.provider.OnConfigurationEndpointResponse(configCtx); hookErr != nil {
		logger.Error("ConfigurationEndpointResponse hook failed", log.Error(hookErr))
	}
	if configCtx.IsHandled() {
		return r, true
	}

	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if encodeErr := json.NewEncoder(w).Encode(metadata); encodeErr != nil {
		logger.Error("Failed to write the configuration response", log.Error(encodeErr))
	}
	return r, true
}

// buildMetadata assembles the discovery document for the current request.
// Supported grant and response types depend on which endpoints are enabled
// and whether signing credentials are configured.
func (p *Pipeline) buildMetadata(r *http.Request) *model.ConfigurationMetadata {
	issuer := p.options.IssuerOrOrigin(r)
	base := strings.TrimSuffix(issuer, "/")

	authorizationEnabled := p.options.AuthorizationEndpointEnabled()
	tokenEnabled := p.options.TokenEndpointEnabled()
	signingConfigured := len(p.jwtService.SigningCredentials()) > 0

	metadata := &model.ConfigurationMetadata{
		Issuer:                           issuer,
		ScopesSupported:                  []string{constants.ScopeOpenID},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{jwt.AlgorithmRS256},
		ResponseModesSupported: []string{
			constants.ResponseModeQuery,
			constants.ResponseModeFragment,
			constants.ResponseModeFormPost,
		},
	}

	if authorizationEnabled {
		metadata.AuthorizationEndpoint = base + p.options.AuthorizationEndpointPath
	}
	if tokenEnabled {
		metadata.TokenEndpoint = base + p.options.TokenEndpointPath
	}
	if p.options.ValidationEndpointPath != "" {
		metadata.IntrospectionEndpoint = base + p.options.ValidationEndpointPath
	}
	if p.options.LogoutEndpointPath != "" {
		metadata.EndSessionEndpoint = base + p.options.LogoutEndpointPath
	}
	if p.options.CryptographyEndpointPath != "" {
		metadata.JWKSURI = base + p.options.CryptographyEndpointPath
	}

	grantTypes := make([]string, 0, 5)
	if authorizationEnabled {
		grantTypes = append(grantTypes, constants.GrantTypeImplicit)
	}
	if authorizationEnabled && tokenEnabled {
		grantTypes = append(grantTypes, constants.GrantTypeAuthorizationCode)
	}
	if tokenEnabled {
		grantTypes = append(grantTypes, constants.GrantTypeRefreshToken)
	}
	if tokenEnabled && !authorizationEnabled {
		grantTypes = append(grantTypes, constants.GrantTypePassword, constants.GrantTypeClientCredentials)
	}
	metadata.GrantTypesSupported = grantTypes

	responseTypes := make([]string, 0, 7)
	if authorizationEnabled {
		if tokenEnabled {
			responseTypes = append(responseTypes, constants.ResponseTypeCode)
		}
		responseTypes = append(responseTypes, constants.ResponseTypeToken)
		if tokenEnabled {
			responseTypes = append(responseTypes,
				constants.ResponseTypeCode+" "+constants.ResponseTypeToken)
		}
		if signingConfigured {
			responseTypes = append(responseTypes,
				constants.ResponseTypeIDToken,
				constants.ResponseTypeIDToken+" "+constants.ResponseTypeToken)
		}
		if tokenEnabled && signingConfigured {
			responseTypes = append(responseTypes,
				constants.ResponseTypeCode+" "+constants.ResponseTypeIDToken,
				constants.ResponseTypeCode+" "+constants.ResponseTypeIDToken+" "+constants.ResponseTypeToken)
		}
	}
	metadata.ResponseTypesSupported = responseTypes

	return metadata
}

// HandleCryptography processes a JWKS request.
func (p *Pipeline) HandleCryptography(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if r.Method != http.MethodGet {
		writeServiceError(w, logger, ErrorInvalidDiscoveryMethod)
		return r, true
	}

	msg, err := message.ParseRequest(r, model.RequestTypeAuthentication)
	if err == nil {
		r = r.WithContext(model.WithMessage(r.Context(), msg))
	}

	keys := p.buildKeySet()

	cryptoCtx := &provider.CryptographyEndpointContext{Request: msg, Keys: keys}
	if hookErr := p.provider.OnCryptographyEndpoint(cryptoCtx); hookErr != nil {
		logger.Error("CryptographyEndpoint hook failed", log.Error(hookErr))
		writeServiceError(w, logger, ErrorWhileBuildingKeySet)
		return r, true
	}
	if cryptoCtx.IsHandled() {
		return r, true
	}
	if cryptoCtx.IsSkipped() {
		return r, false
	}
	if cryptoCtx.Keys != nil {
		keys = cryptoCtx.Keys
	}

	if hookErr := p.provider.OnCryptographyEndpointResponse(cryptoCtx); hookErr != nil {
		logger.Error("CryptographyEndpointResponse hook failed", log.Error(hookErr))
	}
	if cryptoCtx.IsHandled() {
		return r, true
	}

	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if encodeErr := json.NewEncoder(w).Encode(keys); encodeErr != nil {
		logger.Error("Failed to write the cryptography response", log.Error(encodeErr))
	}
	return r, true
}

// buildKeySet serializes every RS256 capable signing credential: X.509
// wrapped keys expose the certificate chain, raw RSA keys their public
// exponent and modulus.
func (p *Pipeline) buildKeySet() *model.JSONWebKeySet {
	keys := &model.JSONWebKeySet{Keys: []model.JSONWebKey{}}

	for _, credential := range p.jwtService.SigningCredentials() {
		if credential.Key == nil || credential.Algorithm != jwt.AlgorithmRS256 {
			continue
		}

		entry := model.JSONWebKey{
			Kty: "RSA",
			Alg: jwt.AlgorithmRS256,
			Use: "sig",
			Kid: credential.KeyID,
		}

		if credential.Certificate != nil {
			thumbprint := sha1.Sum(credential.Certificate.Raw) //nolint:gosec
			entry.X5t = crypto.EncodeBase64URL(thumbprint[:])
			entry.X5c = []string{base64.StdEncoding.EncodeToString(credential.Certificate.Raw)}
		} else {
			publicKey := credential.Key.PublicKey
			entry.E = crypto.EncodeBase64URL(big.NewInt(int64(publicKey.E)).Bytes())
			entry.N = crypto.EncodeBase64URL(publicKey.N.Bytes())
		}

		keys.Keys = append(keys.Keys, entry)
	}

	return keys
}
