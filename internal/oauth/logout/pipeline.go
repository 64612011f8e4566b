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

// Package logout implements the end session endpoint: post-logout redirect
// URI validation, the host sign-out hand-off and the response emission.
package logout

import (
	"net/http"

	"github.com/tempestauth/tempest/internal/oauth/message"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/system/log"
	"github.com/tempestauth/tempest/internal/system/utils"
)

const loggerComponentName = "LogoutPipeline"

// Pipeline serves the logout endpoint.
type Pipeline struct {
	provider *provider.AuthorizationProvider
}

// NewPipeline creates the logout pipeline.
func NewPipeline(prov *provider.AuthorizationProvider) *Pipeline {
	return &Pipeline{
		provider: prov,
	}
}

// Handle processes a logout request. It returns the request carrying the
// parsed message in its context and whether a response was produced; an
// unhandled request passes through so the host can render its sign-out UI.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		message.WriteErrorPage(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "logout requests must use GET or POST",
		})
		return r, true
	}

	msg, err := message.ParseRequest(r, model.RequestTypeLogout)
	if err != nil {
		message.WriteErrorPage(w, model.ErrorResponse{
			Error:            constants.ErrorInvalidRequest,
			ErrorDescription: "the logout request cannot be parsed",
		})
		return r, true
	}
	r = r.WithContext(model.WithMessage(r.Context(), msg))

	if postLogoutRedirectURI := msg.Get(constants.PostLogoutRedirectURI); postLogoutRedirectURI != "" {
		redirectCtx := &provider.ValidateClientLogoutRedirectURIContext{
			Request:               msg,
			PostLogoutRedirectURI: postLogoutRedirectURI,
		}
		if hookErr := p.provider.OnValidateClientLogoutRedirectURI(redirectCtx); hookErr != nil {
			logger.Error("ValidateClientLogoutRedirectURI hook failed", log.Error(hookErr))
			message.WriteErrorPage(w, model.ErrorResponse{Error: constants.ErrorServerError})
			return r, true
		}
		switch {
		case redirectCtx.IsSkipped():
			return r, false
		case redirectCtx.IsHandled():
			return r, true
		case redirectCtx.IsValidated():
			msg.Set(constants.PostLogoutRedirectURI, redirectCtx.PostLogoutRedirectURI)
		default:
			errResp := redirectCtx.Error
			if !redirectCtx.IsRejected() {
				errResp = model.ErrorResponse{
					Error:            constants.ErrorInvalidRequest,
					ErrorDescription: "post_logout_redirect_uri parameter rejected",
				}
			}
			// The redirect URI is untrusted: surface the error locally.
			msg.Remove(constants.PostLogoutRedirectURI)
			message.WriteErrorPage(w, errResp)
			return r, true
		}
	}

	logoutCtx := &provider.LogoutEndpointContext{Request: msg}
	if hookErr := p.provider.OnLogoutEndpoint(logoutCtx); hookErr != nil {
		logger.Error("LogoutEndpoint hook failed", log.Error(hookErr))
		message.WriteErrorPage(w, model.ErrorResponse{Error: constants.ErrorServerError})
		return r, true
	}
	if logoutCtx.IsHandled() {
		return r, true
	}
	if !logoutCtx.SignedOut {
		// No sign-out decision yet: hand over to the host application.
		return r, false
	}

	p.emitSignOut(w, r, msg)
	return r, true
}

// emitSignOut delivers the sign-out response: a redirect to the post-logout
// redirect URI carrying the remaining request parameters, or an empty 200.
func (p *Pipeline) emitSignOut(w http.ResponseWriter, r *http.Request, msg *model.OAuthMessage) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	response := model.NewOAuthMessage(model.RequestTypeLogout)
	for _, key := range msg.Keys() {
		if key == constants.PostLogoutRedirectURI {
			continue
		}
		response.Set(key, msg.Get(key))
	}

	respCtx := &provider.ResponseContext{Request: msg, Response: response}
	if hookErr := p.provider.OnLogoutEndpointResponse(respCtx); hookErr != nil {
		logger.Error("LogoutEndpointResponse hook failed", log.Error(hookErr))
	}
	if respCtx.IsHandled() {
		return
	}

	postLogoutRedirectURI := msg.Get(constants.PostLogoutRedirectURI)
	if postLogoutRedirectURI == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	queryParams := make(map[string]string, response.Len())
	for _, key := range response.Keys() {
		queryParams[key] = response.Get(key)
	}
	location, err := utils.GetURIWithQueryParams(postLogoutRedirectURI, queryParams)
	if err != nil {
		logger.Error("Failed to build the post-logout redirect", log.Error(err))
		message.WriteErrorPage(w, model.ErrorResponse{Error: constants.ErrorServerError})
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}
