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

// Package message provides parsing and serialization of OIDC messages:
// query strings, form bodies, redirect responses and the form_post document.
package message

import (
	"errors"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/oauth/oauth2/model"
	"github.com/tempestauth/tempest/internal/system/log"
)

// ErrUnsupportedContentType is returned when a request body does not carry
// the form-urlencoded content type.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// IsFormURLEncoded reports whether the Content-Type header denotes a
// form-urlencoded body. The comparison is case-insensitive and media type
// parameters after ';' are allowed.
func IsFormURLEncoded(contentType string) bool {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == constants.ContentTypeFormURLEncoded
}

// ParseRequest builds an OAuth message from the incoming request. GET
// requests are parsed from the query string; POST requests require a
// form-urlencoded body.
func ParseRequest(r *http.Request, requestType model.RequestType) (*model.OAuthMessage, error) {
	msg := model.NewOAuthMessage(requestType)

	switch r.Method {
	case http.MethodGet:
		for _, pair := range strings.Split(r.URL.RawQuery, "&") {
			if pair == "" {
				continue
			}
			key, value, _ := strings.Cut(pair, "=")
			decodedKey, err := url.QueryUnescape(key)
			if err != nil {
				continue
			}
			decodedValue, err := url.QueryUnescape(value)
			if err != nil {
				continue
			}
			msg.SetIfAbsent(decodedKey, decodedValue)
		}
	case http.MethodPost:
		if !IsFormURLEncoded(r.Header.Get("Content-Type")) {
			return nil, ErrUnsupportedContentType
		}
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("failed to parse form data: " + err.Error())
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				msg.SetIfAbsent(key, values[0])
			}
		}
	default:
		return nil, errors.New("unsupported request method: " + r.Method)
	}

	return msg, nil
}

// WriteQueryResponse redirects the user agent to the redirect URI with each
// response parameter appended to the query string. The redirect_uri
// parameter itself is omitted.
func WriteQueryResponse(w http.ResponseWriter, r *http.Request, redirectURI string,
	response *model.OAuthMessage) error {
	location, err := url.Parse(redirectURI)
	if err != nil {
		return err
	}

	query := location.Query()
	for _, key := range response.Keys() {
		if key == constants.RedirectURI {
			continue
		}
		query.Set(key, response.Get(key))
	}
	location.RawQuery = query.Encode()

	http.Redirect(w, r, location.String(), http.StatusFound)
	return nil
}

// WriteFragmentResponse redirects the user agent to the redirect URI with
// each response parameter appended to the URI fragment.
func WriteFragmentResponse(w http.ResponseWriter, r *http.Request, redirectURI string,
	response *model.OAuthMessage) error {
	var location strings.Builder
	location.WriteString(redirectURI)

	appender := '#'
	for _, key := range response.Keys() {
		if key == constants.RedirectURI {
			continue
		}
		location.WriteRune(appender)
		location.WriteString(url.QueryEscape(key))
		location.WriteRune('=')
		location.WriteString(url.QueryEscape(response.Get(key)))
		appender = '&'
	}

	http.Redirect(w, r, location.String(), http.StatusFound)
	return nil
}

// WriteFormPostResponse emits a self-submitting HTML document posting every
// response parameter except redirect_uri to the redirect URI.
func WriteFormPostResponse(w http.ResponseWriter, redirectURI string,
	response *model.OAuthMessage) error {
	var body strings.Builder
	body.WriteString("<!doctype html>\n")
	body.WriteString("<html>\n")
	body.WriteString("<head><title>Please wait...</title></head>\n")
	body.WriteString("<body onload=\"document.forms[0].submit()\">\n")
	body.WriteString("<form method=\"post\" action=\"" + html.EscapeString(redirectURI) + "\">\n")

	for _, key := range response.Keys() {
		if key == constants.RedirectURI {
			continue
		}
		body.WriteString("<input type=\"hidden\" name=\"" + html.EscapeString(key) +
			"\" value=\"" + html.EscapeString(response.Get(key)) + "\" />\n")
	}

	body.WriteString("<noscript><input type=\"submit\" value=\"Continue\" /></noscript>\n")
	body.WriteString("</form>\n")
	body.WriteString("</body>\n")
	body.WriteString("</html>\n")

	w.Header().Set("Content-Type", constants.ContentTypeHTML)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body.String())); err != nil {
		return err
	}
	return nil
}

// WriteErrorPage renders a minimal HTML error page with the given protocol error.
func WriteErrorPage(w http.ResponseWriter, errorResponse model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "MessageCodec"))

	var body strings.Builder
	body.WriteString("<!doctype html>\n")
	body.WriteString("<html>\n")
	body.WriteString("<head><title>Error</title></head>\n")
	body.WriteString("<body>\n")
	body.WriteString("<h1>" + html.EscapeString(errorResponse.Error) + "</h1>\n")
	if errorResponse.ErrorDescription != "" {
		body.WriteString("<p>" + html.EscapeString(errorResponse.ErrorDescription) + "</p>\n")
	}
	if errorResponse.ErrorURI != "" {
		body.WriteString("<p>" + html.EscapeString(errorResponse.ErrorURI) + "</p>\n")
	}
	body.WriteString("</body>\n")
	body.WriteString("</html>\n")

	w.Header().Set("Content-Type", constants.ContentTypeHTML)
	w.WriteHeader(http.StatusBadRequest)
	if _, err := w.Write([]byte(body.String())); err != nil {
		logger.Error("Failed to write error page", log.Error(err))
	}
}
