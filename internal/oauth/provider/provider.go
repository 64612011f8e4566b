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

// AuthorizationProvider is the record of host-supplied callbacks observed by
// the pipelines. Every field is optional; a nil callback leaves the
// notification undecided and the pipeline applies its default behavior.
type AuthorizationProvider struct {
	MatchEndpoint                   func(*MatchEndpointContext) error
	ValidateClientRedirectURI       func(*ValidateClientRedirectURIContext) error
	ValidateClientLogoutRedirectURI func(*ValidateClientLogoutRedirectURIContext) error
	ValidateClientAuthentication    func(*ValidateClientAuthenticationContext) error
	ValidateAuthorizationRequest    func(*ValidateAuthorizationRequestContext) error
	ValidateTokenRequest            func(*ValidateTokenRequestContext) error

	AuthorizationEndpoint         func(*AuthorizationEndpointContext) error
	AuthorizationEndpointResponse func(*ResponseContext) error
	TokenEndpoint                 func(*TokenEndpointContext) error
	TokenEndpointResponse         func(*ResponseContext) error
	ValidationEndpoint            func(*ValidationEndpointContext) error
	ValidationEndpointResponse    func(*ValidationEndpointContext) error
	LogoutEndpoint                func(*LogoutEndpointContext) error
	LogoutEndpointResponse        func(*ResponseContext) error
	ConfigurationEndpoint         func(*ConfigurationEndpointContext) error
	ConfigurationEndpointResponse func(*ConfigurationEndpointContext) error
	CryptographyEndpoint          func(*CryptographyEndpointContext) error
	CryptographyEndpointResponse  func(*CryptographyEndpointContext) error

	GrantAuthorizationCode        func(*GrantContext) error
	GrantRefreshToken             func(*GrantContext) error
	GrantResourceOwnerCredentials func(*GrantContext) error
	GrantClientCredentials        func(*GrantContext) error
	GrantCustomExtension          func(*GrantContext) error

	CreateAuthorizationCode func(*CreateTokenContext) error
	CreateAccessToken       func(*CreateTokenContext) error
	CreateIdentityToken     func(*CreateTokenContext) error
	CreateRefreshToken      func(*CreateTokenContext) error

	ReceiveAuthorizationCode func(*ReceiveTokenContext) error
	ReceiveAccessToken       func(*ReceiveTokenContext) error
	ReceiveIdentityToken     func(*ReceiveTokenContext) error
	ReceiveRefreshToken      func(*ReceiveTokenContext) error
}

// OnMatchEndpoint fires the MatchEndpoint notification.
func (p *AuthorizationProvider) OnMatchEndpoint(ctx *MatchEndpointContext) error {
	if p != nil && p.MatchEndpoint != nil {
		return p.MatchEndpoint(ctx)
	}
	return nil
}

// OnValidateClientRedirectURI fires the ValidateClientRedirectURI notification.
func (p *AuthorizationProvider) OnValidateClientRedirectURI(ctx *ValidateClientRedirectURIContext) error {
	if p != nil && p.ValidateClientRedirectURI != nil {
		return p.ValidateClientRedirectURI(ctx)
	}
	return nil
}

// OnValidateClientLogoutRedirectURI fires the ValidateClientLogoutRedirectURI notification.
func (p *AuthorizationProvider) OnValidateClientLogoutRedirectURI(
	ctx *ValidateClientLogoutRedirectURIContext) error {
	if p != nil && p.ValidateClientLogoutRedirectURI != nil {
		return p.ValidateClientLogoutRedirectURI(ctx)
	}
	return nil
}

// OnValidateClientAuthentication fires the ValidateClientAuthentication notification.
func (p *AuthorizationProvider) OnValidateClientAuthentication(
	ctx *ValidateClientAuthenticationContext) error {
	if p != nil && p.ValidateClientAuthentication != nil {
		return p.ValidateClientAuthentication(ctx)
	}
	return nil
}

// OnValidateAuthorizationRequest fires the ValidateAuthorizationRequest notification.
func (p *AuthorizationProvider) OnValidateAuthorizationRequest(
	ctx *ValidateAuthorizationRequestContext) error {
	if p != nil && p.ValidateAuthorizationRequest != nil {
		return p.ValidateAuthorizationRequest(ctx)
	}
	return nil
}

// OnValidateTokenRequest fires the ValidateTokenRequest notification.
func (p *AuthorizationProvider) OnValidateTokenRequest(ctx *ValidateTokenRequestContext) error {
	if p != nil && p.ValidateTokenRequest != nil {
		return p.ValidateTokenRequest(ctx)
	}
	return nil
}

// OnAuthorizationEndpoint fires the AuthorizationEndpoint notification.
func (p *AuthorizationProvider) OnAuthorizationEndpoint(ctx *AuthorizationEndpointContext) error {
	if p != nil && p.AuthorizationEndpoint != nil {
		return p.AuthorizationEndpoint(ctx)
	}
	return nil
}

// OnAuthorizationEndpointResponse fires the AuthorizationEndpointResponse notification.
func (p *AuthorizationProvider) OnAuthorizationEndpointResponse(ctx *ResponseContext) error {
	if p != nil && p.AuthorizationEndpointResponse != nil {
		return p.AuthorizationEndpointResponse(ctx)
	}
	return nil
}

// OnTokenEndpoint fires the TokenEndpoint notification.
func (p *AuthorizationProvider) OnTokenEndpoint(ctx *TokenEndpointContext) error {
	if p != nil && p.TokenEndpoint != nil {
		return p.TokenEndpoint(ctx)
	}
	return nil
}

// OnTokenEndpointResponse fires the TokenEndpointResponse notification.
func (p *AuthorizationProvider) OnTokenEndpointResponse(ctx *ResponseContext) error {
	if p != nil && p.TokenEndpointResponse != nil {
		return p.TokenEndpointResponse(ctx)
	}
	return nil
}

// OnValidationEndpoint fires the ValidationEndpoint notification.
func (p *AuthorizationProvider) OnValidationEndpoint(ctx *ValidationEndpointContext) error {
	if p != nil && p.ValidationEndpoint != nil {
		return p.ValidationEndpoint(ctx)
	}
	return nil
}

// OnValidationEndpointResponse fires the ValidationEndpointResponse notification.
func (p *AuthorizationProvider) OnValidationEndpointResponse(ctx *ValidationEndpointContext) error {
	if p != nil && p.ValidationEndpointResponse != nil {
		return p.ValidationEndpointResponse(ctx)
	}
	return nil
}

// OnLogoutEndpoint fires the LogoutEndpoint notification.
func (p *AuthorizationProvider) OnLogoutEndpoint(ctx *LogoutEndpointContext) error {
	if p != nil && p.LogoutEndpoint != nil {
		return p.LogoutEndpoint(ctx)
	}
	return nil
}

// OnLogoutEndpointResponse fires the LogoutEndpointResponse notification.
func (p *AuthorizationProvider) OnLogoutEndpointResponse(ctx *ResponseContext) error {
	if p != nil && p.LogoutEndpointResponse != nil {
		return p.LogoutEndpointResponse(ctx)
	}
	return nil
}

// OnConfigurationEndpoint fires the ConfigurationEndpoint notification.
func (p *AuthorizationProvider) OnConfigurationEndpoint(ctx *ConfigurationEndpointContext) error {
	if p != nil && p.ConfigurationEndpoint != nil {
		return p.ConfigurationEndpoint(ctx)
	}
	return nil
}

// OnConfigurationEndpointResponse fires the ConfigurationEndpointResponse notification.
func (p *AuthorizationProvider) OnConfigurationEndpointResponse(ctx *ConfigurationEndpointContext) error {
	if p != nil && p.ConfigurationEndpointResponse != nil {
		return p.ConfigurationEndpointResponse(ctx)
	}
	return nil
}

// OnCryptographyEndpoint fires the CryptographyEndpoint notification.
func (p *AuthorizationProvider) OnCryptographyEndpoint(ctx *CryptographyEndpointContext) error {
	if p != nil && p.CryptographyEndpoint != nil {
		return p.CryptographyEndpoint(ctx)
	}
	return nil
}

// OnCryptographyEndpointResponse fires the CryptographyEndpointResponse notification.
func (p *AuthorizationProvider) OnCryptographyEndpointResponse(ctx *CryptographyEndpointContext) error {
	if p != nil && p.CryptographyEndpointResponse != nil {
		return p.CryptographyEndpointResponse(ctx)
	}
	return nil
}

// OnGrantAuthorizationCode fires the GrantAuthorizationCode notification.
func (p *AuthorizationProvider) OnGrantAuthorizationCode(ctx *GrantContext) error {
	if p != nil && p.GrantAuthorizationCode != nil {
		return p.GrantAuthorizationCode(ctx)
	}
	return nil
}

// OnGrantRefreshToken fires the GrantRefreshToken notification.
func (p *AuthorizationProvider) OnGrantRefreshToken(ctx *GrantContext) error {
	if p != nil && p.GrantRefreshToken != nil {
		return p.GrantRefreshToken(ctx)
	}
	return nil
}

// OnGrantResourceOwnerCredentials fires the GrantResourceOwnerCredentials notification.
func (p *AuthorizationProvider) OnGrantResourceOwnerCredentials(ctx *GrantContext) error {
	if p != nil && p.GrantResourceOwnerCredentials != nil {
		return p.GrantResourceOwnerCredentials(ctx)
	}
	return nil
}

// OnGrantClientCredentials fires the GrantClientCredentials notification.
func (p *AuthorizationProvider) OnGrantClientCredentials(ctx *GrantContext) error {
	if p != nil && p.GrantClientCredentials != nil {
		return p.GrantClientCredentials(ctx)
	}
	return nil
}

// OnGrantCustomExtension fires the GrantCustomExtension notification.
func (p *AuthorizationProvider) OnGrantCustomExtension(ctx *GrantContext) error {
	if p != nil && p.GrantCustomExtension != nil {
		return p.GrantCustomExtension(ctx)
	}
	return nil
}

// OnCreateAuthorizationCode fires the CreateAuthorizationCode notification.
func (p *AuthorizationProvider) OnCreateAuthorizationCode(ctx *CreateTokenContext) error {
	if p != nil && p.CreateAuthorizationCode != nil {
		return p.CreateAuthorizationCode(ctx)
	}
	return nil
}

// OnCreateAccessToken fires the CreateAccessToken notification.
func (p *AuthorizationProvider) OnCreateAccessToken(ctx *CreateTokenContext) error {
	if p != nil && p.CreateAccessToken != nil {
		return p.CreateAccessToken(ctx)
	}
	return nil
}

// OnCreateIdentityToken fires the CreateIdentityToken notification.
func (p *AuthorizationProvider) OnCreateIdentityToken(ctx *CreateTokenContext) error {
	if p != nil && p.CreateIdentityToken != nil {
		return p.CreateIdentityToken(ctx)
	}
	return nil
}

// OnCreateRefreshToken fires the CreateRefreshToken notification.
func (p *AuthorizationProvider) OnCreateRefreshToken(ctx *CreateTokenContext) error {
	if p != nil && p.CreateRefreshToken != nil {
		return p.CreateRefreshToken(ctx)
	}
	return nil
}

// OnReceiveAuthorizationCode fires the ReceiveAuthorizationCode notification.
func (p *AuthorizationProvider) OnReceiveAuthorizationCode(ctx *ReceiveTokenContext) error {
	if p != nil && p.ReceiveAuthorizationCode != nil {
		return p.ReceiveAuthorizationCode(ctx)
	}
	return nil
}

// OnReceiveAccessToken fires the ReceiveAccessToken notification.
func (p *AuthorizationProvider) OnReceiveAccessToken(ctx *ReceiveTokenContext) error {
	if p != nil && p.ReceiveAccessToken != nil {
		return p.ReceiveAccessToken(ctx)
	}
	return nil
}

// OnReceiveIdentityToken fires the ReceiveIdentityToken notification.
func (p *AuthorizationProvider) OnReceiveIdentityToken(ctx *ReceiveTokenContext) error {
	if p != nil && p.ReceiveIdentityToken != nil {
		return p.ReceiveIdentityToken(ctx)
	}
	return nil
}

// OnReceiveRefreshToken fires the ReceiveRefreshToken notification.
func (p *AuthorizationProvider) OnReceiveRefreshToken(ctx *ReceiveTokenContext) error {
	if p != nil && p.ReceiveRefreshToken != nil {
		return p.ReceiveRefreshToken(ctx)
	}
	return nil
}
