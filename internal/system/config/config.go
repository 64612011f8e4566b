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

// Package config provides structures and functions for loading and managing server configurations.
package config

import (
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/tempestauth/tempest/internal/system/log"
)

// ServerConfig holds the server configuration details.
type ServerConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	HTTPOnly bool   `yaml:"http_only"`
}

// SecurityConfig holds the signing key material configuration details.
type SecurityConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// EndpointConfig holds the configurable endpoint paths. An endpoint is
// enabled iff its path is non-empty.
type EndpointConfig struct {
	Authorization string `yaml:"authorization"`
	Token         string `yaml:"token"`
	Validation    string `yaml:"validation"`
	Logout        string `yaml:"logout"`
	Configuration string `yaml:"configuration"`
	Cryptography  string `yaml:"cryptography"`
}

// LifetimeConfig holds the token validity periods in seconds.
type LifetimeConfig struct {
	AuthorizationCode int64 `yaml:"authorization_code"`
	AccessToken       int64 `yaml:"access_token"`
	IdentityToken     int64 `yaml:"identity_token"`
	RefreshToken      int64 `yaml:"refresh_token"`
}

// OAuthConfig holds the OAuth configuration details.
type OAuthConfig struct {
	Issuer                      string         `yaml:"issuer"`
	AllowInsecureHTTP           bool           `yaml:"allow_insecure_http"`
	ApplicationCanDisplayErrors bool           `yaml:"application_can_display_errors"`
	UseSlidingExpiration        bool           `yaml:"use_sliding_expiration"`
	Endpoints                   EndpointConfig `yaml:"endpoints"`
	Lifetimes                   LifetimeConfig `yaml:"lifetimes"`
}

// RedisConfig holds the Redis store connection details.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
}

// PostgresConfig holds the Postgres store connection details.
type PostgresConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// StoreConfig holds the blob store configuration details.
type StoreConfig struct {
	Type     string         `yaml:"type"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Config holds the complete configuration details of the server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Store    StoreConfig    `yaml:"store"`
}

// LoadConfig loads the configurations from the specified YAML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	path = filepath.Clean(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if ferr := file.Close(); ferr != nil {
			log.GetLogger().Error("Failed to close config file", log.Error(ferr))
		}
	}()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
