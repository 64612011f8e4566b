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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
)

func TestOAuthMessage_InsertionOrder(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeAuthentication)
	msg.Set("b", "2")
	msg.Set("a", "1")
	msg.Set("c", "3")
	msg.Set("a", "replaced")

	assert.Equal(t, []string{"b", "a", "c"}, msg.Keys())
	assert.Equal(t, "replaced", msg.Get("a"))
	assert.Equal(t, 3, msg.Len())
}

func TestOAuthMessage_SetIfAbsent(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeToken)
	msg.Set(constants.ClientID, "live")
	msg.SetIfAbsent(constants.ClientID, "stored")
	msg.SetIfAbsent(constants.Scope, "openid")

	assert.Equal(t, "live", msg.Get(constants.ClientID))
	assert.Equal(t, "openid", msg.Get(constants.Scope))
}

func TestOAuthMessage_Remove(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeAuthentication)
	msg.Set("a", "1")
	msg.Set("b", "2")

	msg.Remove("a")
	msg.Remove("missing")

	assert.False(t, msg.Has("a"))
	assert.Equal(t, []string{"b"}, msg.Keys())
}

func TestOAuthMessage_HasDistinguishesEmptyValue(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeToken)
	msg.Set(constants.Token, "")

	assert.True(t, msg.Has(constants.Token))
	assert.False(t, msg.Has(constants.IDToken))
}

func TestOAuthMessage_Clone(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeAuthentication)
	msg.Set("a", "1")
	msg.Set("b", "2")

	clone := msg.Clone()
	clone.Set("a", "changed")

	assert.Equal(t, "1", msg.Get("a"))
	assert.Equal(t, msg.Keys(), clone.Keys())
	assert.Equal(t, msg.RequestType, clone.RequestType)
}

func TestOAuthMessage_ResponseTypeValues(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeAuthentication)
	msg.Set(constants.ResponseType, "code  id_token token")

	assert.Equal(t, []string{"code", "id_token", "token"}, msg.ResponseTypeValues())
	assert.True(t, msg.ContainsResponseType(constants.ResponseTypeIDToken))
	assert.False(t, msg.ContainsResponseType(constants.ResponseTypeNone))
}

func TestOAuthMessage_ResponseTypeValues_Empty(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeAuthentication)
	assert.Nil(t, msg.ResponseTypeValues())

	msg.Set(constants.ResponseType, "   ")
	assert.Nil(t, msg.ResponseTypeValues())
}

func TestOAuthMessage_HasScope(t *testing.T) {
	msg := NewOAuthMessage(RequestTypeAuthentication)
	msg.Set(constants.Scope, "openid profile email")

	assert.True(t, msg.HasScope("openid"))
	assert.True(t, msg.HasScope("email"))
	assert.False(t, msg.HasScope("open"))
}
