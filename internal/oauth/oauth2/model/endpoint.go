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

// EndpointType classifies a request against the configured endpoint paths.
type EndpointType string

// Endpoint classes served by the middleware.
const (
	EndpointNone          EndpointType = ""
	EndpointAuthorization EndpointType = "authorization"
	EndpointToken         EndpointType = "token"
	EndpointValidation    EndpointType = "validation"
	EndpointLogout        EndpointType = "logout"
	EndpointConfiguration EndpointType = "configuration"
	EndpointCryptography  EndpointType = "cryptography"
)

// ConfigurationMetadata is the OIDC discovery document emitted by the
// configuration endpoint.
type ConfigurationMetadata struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                    string   `json:"token_endpoint,omitempty"`
	IntrospectionEndpoint            string   `json:"introspection_endpoint,omitempty"`
	EndSessionEndpoint               string   `json:"end_session_endpoint,omitempty"`
	JWKSURI                          string   `json:"jwks_uri,omitempty"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
	ResponseModesSupported           []string `json:"response_modes_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
}

// JSONWebKey is a single serialized signing key.
type JSONWebKey struct {
	Kty string   `json:"kty"`
	Alg string   `json:"alg"`
	Use string   `json:"use"`
	Kid string   `json:"kid,omitempty"`
	X5t string   `json:"x5t,omitempty"`
	X5c []string `json:"x5c,omitempty"`
	E   string   `json:"e,omitempty"`
	N   string   `json:"n,omitempty"`
}

// JSONWebKeySet is the JWKS document emitted by the cryptography endpoint.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// ClaimEntry is a single claim in an introspection response.
type ClaimEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ValidationResponse is the JSON document emitted by the validation endpoint.
type ValidationResponse struct {
	Audiences []string     `json:"audiences"`
	ExpiresIn int64        `json:"expires_in"`
	Claims    []ClaimEntry `json:"claims"`
}
