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

package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type JWTServiceTestSuite struct {
	suite.Suite
	key     *rsa.PrivateKey
	service *JWTService
}

func TestJWTServiceTestSuite(t *testing.T) {
	suite.Run(t, new(JWTServiceTestSuite))
}

func (suite *JWTServiceTestSuite) SetupSuite() {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(suite.T(), err)
	suite.key = key
}

func (suite *JWTServiceTestSuite) SetupTest() {
	suite.service = NewJWTService([]SigningCredential{NewSigningCredential(suite.key)})
}

func (suite *JWTServiceTestSuite) TestGenerateAndVerifyToken() {
	claims := map[string]interface{}{
		"sub":   "user-1",
		"iss":   "https://idp.example.com",
		"scope": "openid",
	}

	token, err := suite.service.GenerateToken(claims)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), strings.Split(token, "."), 3)

	verified, err := suite.service.VerifyToken(token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "user-1", verified["sub"])
	assert.Equal(suite.T(), "https://idp.example.com", verified["iss"])
	assert.Equal(suite.T(), "openid", verified["scope"])
}

func (suite *JWTServiceTestSuite) TestGeneratedTokenCarriesKid() {
	token, err := suite.service.GenerateToken(map[string]interface{}{"sub": "user-1"})
	assert.NoError(suite.T(), err)

	parser := jwtlib.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwtlib.MapClaims{})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.service.SigningCredentials()[0].KeyID, parsed.Header["kid"])
	assert.Equal(suite.T(), AlgorithmRS256, parsed.Header["alg"])
}

func (suite *JWTServiceTestSuite) TestVerifyToken_WrongKey() {
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(suite.T(), err)
	otherService := NewJWTService([]SigningCredential{NewSigningCredential(otherKey)})

	token, err := suite.service.GenerateToken(map[string]interface{}{"sub": "user-1"})
	assert.NoError(suite.T(), err)

	_, err = otherService.VerifyToken(token)
	assert.Error(suite.T(), err)
}

func (suite *JWTServiceTestSuite) TestVerifyToken_Garbage() {
	_, err := suite.service.VerifyToken("not-a-token")
	assert.Error(suite.T(), err)
}

func (suite *JWTServiceTestSuite) TestVerifyToken_NoClaimValidation() {
	// Expired tokens still verify; expiry checks belong to the caller.
	token, err := suite.service.GenerateToken(map[string]interface{}{
		"sub": "user-1",
		"exp": int64(1000),
	})
	assert.NoError(suite.T(), err)

	verified, err := suite.service.VerifyToken(token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(1000), verified["exp"])
}

func (suite *JWTServiceTestSuite) TestNoCredentials() {
	empty := NewJWTService(nil)

	_, err := empty.GenerateToken(map[string]interface{}{"sub": "user-1"})
	assert.Error(suite.T(), err)

	_, err = empty.VerifyToken("token")
	assert.Error(suite.T(), err)

	assert.Empty(suite.T(), empty.SigningCredentials())
}
