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

// Package server provides the OAuth2 middleware: it classifies incoming
// requests against the configured endpoint paths and dispatches them to the
// endpoint pipelines. Unmatched and unhandled requests pass through to the
// next handler.
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/tempestauth/tempest/internal/oauth/authz"
	"github.com/tempestauth/tempest/internal/oauth/discovery"
	"github.com/tempestauth/tempest/internal/oauth/introspect"
	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/logout"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/oauth/requestcache"
	"github.com/tempestauth/tempest/internal/oauth/ticket"
	"github.com/tempestauth/tempest/internal/oauth/token"
	"github.com/tempestauth/tempest/internal/system/config"
	"github.com/tempestauth/tempest/internal/system/log"
	"github.com/tempestauth/tempest/internal/system/store"
)

const loggerComponentName = "OAuthServer"

// Default token lifetimes applied when the configuration leaves them unset.
const (
	defaultAuthorizationCodeLifetime = 5 * time.Minute
	defaultAccessTokenLifetime       = time.Hour
	defaultIdentityTokenLifetime     = 20 * time.Minute
	defaultRefreshTokenLifetime      = 14 * 24 * time.Hour
)

// Server is the OAuth2 middleware handler.
type Server struct {
	options       *model.Options
	provider      *provider.AuthorizationProvider
	authorization *authz.Pipeline
	token         *token.Pipeline
	validation    *introspect.Pipeline
	logout        *logout.Pipeline
	discovery     *discovery.Pipeline
	next          http.Handler
}

// New creates the middleware over the given blob store and signing service.
// The next handler receives unmatched and unhandled requests; a nil next
// handler answers those with 404. A nil clock falls back to the system clock
// and a nil random source to the OS RNG.
func New(cfg *config.Config, prov *provider.AuthorizationProvider,
	blobStore store.BlobStoreInterface, jwtService jwt.JWTServiceInterface,
	next http.Handler, clock func() time.Time, random io.Reader) *Server {
	options := OptionsFromConfig(cfg)
	tickets := ticket.NewService(jwtService, blobStore, clock, random)
	requests := requestcache.NewRequestCache(blobStore, clock)

	return &Server{
		options:       options,
		provider:      prov,
		authorization: authz.NewPipeline(options, prov, tickets, requests, jwtService, clock, random),
		token:         token.NewPipeline(options, prov, tickets, clock),
		validation:    introspect.NewPipeline(prov, tickets, jwtService, clock),
		logout:        logout.NewPipeline(prov),
		discovery:     discovery.NewPipeline(options, prov, jwtService),
		next:          next,
	}
}

// OptionsFromConfig maps the YAML configuration onto the middleware options.
func OptionsFromConfig(cfg *config.Config) *model.Options {
	lifetimes := cfg.OAuth.Lifetimes
	return &model.Options{
		AuthorizationEndpointPath: cfg.OAuth.Endpoints.Authorization,
		TokenEndpointPath:         cfg.OAuth.Endpoints.Token,
		ValidationEndpointPath:    cfg.OAuth.Endpoints.Validation,
		LogoutEndpointPath:        cfg.OAuth.Endpoints.Logout,
		ConfigurationEndpointPath: cfg.OAuth.Endpoints.Configuration,
		CryptographyEndpointPath:  cfg.OAuth.Endpoints.Cryptography,

		Issuer:                      cfg.OAuth.Issuer,
		AllowInsecureHTTP:           cfg.OAuth.AllowInsecureHTTP,
		ApplicationCanDisplayErrors: cfg.OAuth.ApplicationCanDisplayErrors,
		UseSlidingExpiration:        cfg.OAuth.UseSlidingExpiration,

		AuthorizationCodeLifetime: lifetimeOrDefault(lifetimes.AuthorizationCode, defaultAuthorizationCodeLifetime),
		AccessTokenLifetime:       lifetimeOrDefault(lifetimes.AccessToken, defaultAccessTokenLifetime),
		IdentityTokenLifetime:     lifetimeOrDefault(lifetimes.IdentityToken, defaultIdentityTokenLifetime),
		RefreshTokenLifetime:      lifetimeOrDefault(lifetimes.RefreshToken, defaultRefreshTokenLifetime),
	}
}

// lifetimeOrDefault converts a configured lifetime in seconds to a duration.
func lifetimeOrDefault(seconds int64, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Options returns the resolved middleware options.
func (s *Server) Options() *model.Options {
	return s.options
}

// ServeHTTP classifies the request and dispatches it to the matching
// endpoint pipeline.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	matchCtx := &provider.MatchEndpointContext{
		Request:  r,
		Endpoint: s.options.MatchPath(r.URL.Path),
	}
	if err := s.provider.OnMatchEndpoint(matchCtx); err != nil {
		logger.Error("MatchEndpoint hook failed", log.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if matchCtx.IsHandled() {
		return
	}
	if matchCtx.IsSkipped() {
		s.passThrough(w, r)
		return
	}
	endpoint := matchCtx.Endpoint

	if endpoint != model.EndpointNone && !s.options.AllowInsecureHTTP && r.TLS == nil {
		logger.Warn("Ignoring an OAuth request received over insecure transport",
			log.String(log.LoggerKeyEndpoint, string(endpoint)))
		s.passThrough(w, r)
		return
	}

	var handled bool
	switch endpoint {
	case model.EndpointAuthorization:
		r, handled = s.authorization.Handle(w, r)
	case model.EndpointToken:
		r, handled = s.token.Handle(w, r)
	case model.EndpointValidation:
		r, handled = s.validation.Handle(w, r)
	case model.EndpointLogout:
		r, handled = s.logout.Handle(w, r)
	case model.EndpointConfiguration:
		r, handled = s.discovery.HandleConfiguration(w, r)
	case model.EndpointCryptography:
		r, handled = s.discovery.HandleCryptography(w, r)
	default:
		s.passThrough(w, r)
		return
	}

	if !handled {
		s.passThrough(w, r)
	}
}

// passThrough hands the request to the next handler in the chain.
func (s *Server) passThrough(w http.ResponseWriter, r *http.Request) {
	if s.next != nil {
		s.next.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}
