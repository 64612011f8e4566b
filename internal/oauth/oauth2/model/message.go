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

// Package model defines the data structures shared across the OAuth2 module.
package model

import (
	"strings"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
)

// RequestType tags an OAuth message with the endpoint class it belongs to.
type RequestType string

// Supported OAuth message request types.
const (
	RequestTypeAuthentication RequestType = "authentication_request"
	RequestTypeToken          RequestType = "token_request"
	RequestTypeLogout         RequestType = "logout_request"
)

// OAuthMessage is an ordered mapping of string parameter keys to string
// values plus a request type tag. Arbitrary extra parameters are preserved
// alongside the well-known ones.
type OAuthMessage struct {
	RequestType RequestType

	params map[string]string
	order  []string
}

// NewOAuthMessage creates an empty OAuth message of the given request type.
func NewOAuthMessage(requestType RequestType) *OAuthMessage {
	return &OAuthMessage{
		RequestType: requestType,
		params:      make(map[string]string),
	}
}

// Get returns the value of the given parameter, or the empty string when absent.
func (m *OAuthMessage) Get(key string) string {
	return m.params[key]
}

// Has reports whether the given parameter is present.
func (m *OAuthMessage) Has(key string) bool {
	_, exists := m.params[key]
	return exists
}

// Set stores a parameter value. First insertion determines the parameter order.
func (m *OAuthMessage) Set(key, value string) {
	if _, exists := m.params[key]; !exists {
		m.order = append(m.order, key)
	}
	m.params[key] = value
}

// SetIfAbsent stores a parameter value only when the key is not already present.
func (m *OAuthMessage) SetIfAbsent(key, value string) {
	if !m.Has(key) {
		m.Set(key, value)
	}
}

// Remove deletes a parameter from the message.
func (m *OAuthMessage) Remove(key string) {
	if _, exists := m.params[key]; !exists {
		return
	}
	delete(m.params, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Keys returns the parameter keys in insertion order.
func (m *OAuthMessage) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// Len returns the number of parameters in the message.
func (m *OAuthMessage) Len() int {
	return len(m.params)
}

// Clone returns a deep copy of the message.
func (m *OAuthMessage) Clone() *OAuthMessage {
	clone := NewOAuthMessage(m.RequestType)
	for _, key := range m.order {
		clone.Set(key, m.params[key])
	}
	return clone
}

// ResponseTypeValues returns the space-separated values of the response_type parameter.
func (m *OAuthMessage) ResponseTypeValues() []string {
	return splitSpaceSeparated(m.Get(constants.ResponseType))
}

// ContainsResponseType reports whether the response_type parameter contains the given value.
func (m *OAuthMessage) ContainsResponseType(value string) bool {
	for _, v := range m.ResponseTypeValues() {
		if v == value {
			return true
		}
	}
	return false
}

// ScopeValues returns the space-separated values of the scope parameter.
func (m *OAuthMessage) ScopeValues() []string {
	return splitSpaceSeparated(m.Get(constants.Scope))
}

// HasScope reports whether the scope parameter contains the given value.
func (m *OAuthMessage) HasScope(scope string) bool {
	for _, v := range m.ScopeValues() {
		if v == scope {
			return true
		}
	}
	return false
}

// splitSpaceSeparated splits a space-separated parameter value, dropping empty tokens.
func splitSpaceSeparated(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	fields := strings.Fields(value)
	result := make([]string, 0, len(fields))
	result = append(result, fields...)
	return result
}
