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

import "context"

type contextKey int

const messageContextKey contextKey = iota

// WithMessage persists the parsed OAuth message in the request context so
// later stages and host hooks can retrieve it.
func WithMessage(ctx context.Context, msg *OAuthMessage) context.Context {
	return context.WithValue(ctx, messageContextKey, msg)
}

// MessageFromContext returns the OAuth message persisted in the request
// context, or nil when none is present.
func MessageFromContext(ctx context.Context) *OAuthMessage {
	msg, _ := ctx.Value(messageContextKey).(*OAuthMessage)
	return msg
}
