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
	"strings"
	"time"
)

// Claim destination tags controlling which emitted tokens may carry a claim.
const (
	DestinationAccessToken   = "token"
	DestinationIdentityToken = "id_token"
)

// Dedicated ticket property keys.
const (
	PropertyIssuedUTC   = "issued_utc"
	PropertyExpiresUTC  = "expires_utc"
	PropertyClientID    = "client_id"
	PropertyRedirectURI = "redirect_uri"
	PropertyResource    = "resource"
	PropertyScope       = "scope"
	PropertyAudiences   = "audiences"
)

// propertyTimeLayout is the serialization format for ticket timestamps.
const propertyTimeLayout = time.RFC3339Nano

// Claim is a single assertion about the authenticated principal. The
// destinations set controls which token kinds may carry the claim.
type Claim struct {
	Type         string   `json:"type"`
	Value        string   `json:"value"`
	Destinations []string `json:"destinations,omitempty"`
}

// HasDestination reports whether the claim may be emitted into the given token kind.
func (c Claim) HasDestination(destination string) bool {
	for _, d := range c.Destinations {
		if d == destination {
			return true
		}
	}
	return false
}

// Principal carries the claim set of the authenticated end user.
type Principal struct {
	Claims []Claim `json:"claims"`
}

// FindFirst returns the first claim of the given type.
func (p *Principal) FindFirst(claimType string) (Claim, bool) {
	for _, claim := range p.Claims {
		if claim.Type == claimType {
			return claim, true
		}
	}
	return Claim{}, false
}

// Filter returns a new principal containing only the claims accepted by the
// predicate. The source principal is not mutated.
func (p *Principal) Filter(keep func(Claim) bool) *Principal {
	filtered := &Principal{}
	for _, claim := range p.Claims {
		if keep(claim) {
			filtered.Claims = append(filtered.Claims, claim)
		}
	}
	return filtered
}

// Clone returns a deep copy of the principal.
func (p *Principal) Clone() *Principal {
	clone := &Principal{Claims: make([]Claim, len(p.Claims))}
	for i, claim := range p.Claims {
		destinations := make([]string, len(claim.Destinations))
		copy(destinations, claim.Destinations)
		clone.Claims[i] = Claim{
			Type:         claim.Type,
			Value:        claim.Value,
			Destinations: destinations,
		}
	}
	return clone
}

// TicketProperties is the string property bag attached to an authentication ticket.
type TicketProperties map[string]string

// Clone returns a deep copy of the properties.
func (tp TicketProperties) Clone() TicketProperties {
	clone := make(TicketProperties, len(tp))
	for key, value := range tp {
		clone[key] = value
	}
	return clone
}

// GetTime parses the given property as a timestamp.
func (tp TicketProperties) GetTime(key string) (time.Time, bool) {
	value, exists := tp[key]
	if !exists || value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(propertyTimeLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// SetTime stores a timestamp property.
func (tp TicketProperties) SetTime(key string, value time.Time) {
	tp[key] = value.UTC().Format(propertyTimeLayout)
}

// IssuedUTC returns the issuance timestamp of the ticket, if set.
func (tp TicketProperties) IssuedUTC() (time.Time, bool) {
	return tp.GetTime(PropertyIssuedUTC)
}

// ExpiresUTC returns the expiration timestamp of the ticket, if set.
func (tp TicketProperties) ExpiresUTC() (time.Time, bool) {
	return tp.GetTime(PropertyExpiresUTC)
}

// SetIssuedUTC stores the issuance timestamp of the ticket.
func (tp TicketProperties) SetIssuedUTC(value time.Time) {
	tp.SetTime(PropertyIssuedUTC, value)
}

// SetExpiresUTC stores the expiration timestamp of the ticket.
func (tp TicketProperties) SetExpiresUTC(value time.Time) {
	tp.SetTime(PropertyExpiresUTC, value)
}

// ClearLifetime removes the issuance and expiration timestamps so the next
// issuance step assigns its own lifetime.
func (tp TicketProperties) ClearLifetime() {
	delete(tp, PropertyIssuedUTC)
	delete(tp, PropertyExpiresUTC)
}

// Audiences returns the space-separated audiences property values.
func (tp TicketProperties) Audiences() []string {
	return splitSpaceSeparated(tp[PropertyAudiences])
}

// Resources returns the space-separated resource property values.
func (tp TicketProperties) Resources() []string {
	return splitSpaceSeparated(tp[PropertyResource])
}

// Scopes returns the space-separated scope property values.
func (tp TicketProperties) Scopes() []string {
	return splitSpaceSeparated(tp[PropertyScope])
}

// ContainsSet reports whether the space-separated property value contains
// every element of the requested set.
func ContainsSet(stored, requested string) bool {
	storedValues := splitSpaceSeparated(stored)
	for _, wanted := range splitSpaceSeparated(requested) {
		found := false
		for _, have := range storedValues {
			if have == wanted {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AuthenticationTicket binds an authenticated principal to the properties of
// the sign-in decision and the authentication scheme that produced it.
type AuthenticationTicket struct {
	Principal  Principal        `json:"principal"`
	Properties TicketProperties `json:"properties"`
	Scheme     string           `json:"scheme"`
}

// NewAuthenticationTicket creates a ticket with empty properties.
func NewAuthenticationTicket(principal Principal, scheme string) *AuthenticationTicket {
	return &AuthenticationTicket{
		Principal:  principal,
		Properties: make(TicketProperties),
		Scheme:     scheme,
	}
}

// Clone returns a deep copy of the ticket.
func (t *AuthenticationTicket) Clone() *AuthenticationTicket {
	return &AuthenticationTicket{
		Principal:  *t.Principal.Clone(),
		Properties: t.Properties.Clone(),
		Scheme:     t.Scheme,
	}
}

// IsExpired reports whether the ticket's expiration timestamp has passed.
// A ticket without an expiration timestamp is treated as expired.
func (t *AuthenticationTicket) IsExpired(now time.Time) bool {
	expiresUTC, ok := t.Properties.ExpiresUTC()
	if !ok {
		return true
	}
	return !expiresUTC.After(now)
}

// JoinValues joins a value set into a single space-separated string.
func JoinValues(values []string) string {
	return strings.Join(values, " ")
}
