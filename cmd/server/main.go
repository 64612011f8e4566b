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

// Package main is the entry point for starting the Tempest server.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/tempestauth/tempest/internal/oauth/jwt"
	"github.com/tempestauth/tempest/internal/oauth/provider"
	"github.com/tempestauth/tempest/internal/oauth/server"
	"github.com/tempestauth/tempest/internal/system/config"
	"github.com/tempestauth/tempest/internal/system/log"
	"github.com/tempestauth/tempest/internal/system/store"
)

func main() {
	logger := log.GetLogger()

	tempestHome := getTempestHome(logger)

	cfg := initTempestConfigurations(logger, tempestHome)
	if cfg == nil {
		logger.Fatal("Failed to initialize configurations")
	}

	jwtService := initJWTService(logger, cfg, tempestHome)
	blobStore := initBlobStore(logger, cfg)

	// The host application supplies its hooks here; an empty provider leaves
	// every request to the pipeline defaults.
	oauthServer := server.New(cfg, &provider.AuthorizationProvider{}, blobStore, jwtService, nil, nil, nil)

	mux := http.NewServeMux()
	mux.Handle("/", oauthServer)

	if cfg.Server.HTTPOnly {
		logger.Info("TLS is not enabled, starting server without TLS")
		startHTTPServer(logger, cfg, mux)
	} else {
		startTLSServer(logger, cfg, mux, tempestHome)
	}
}

// getTempestHome retrieves and returns the Tempest home directory.
func getTempestHome(logger *log.Logger) string {
	projectHome := ""
	projectHomeFlag := flag.String("tempestHome", "", "Path to Tempest home directory")
	flag.Parse()

	if *projectHomeFlag != "" {
		logger.Info("Using tempestHome from command line argument", log.String("tempestHome", *projectHomeFlag))
		projectHome = *projectHomeFlag
	} else {
		dir, dirErr := os.Getwd()
		if dirErr != nil {
			logger.Fatal("Failed to get current working directory", log.Error(dirErr))
		}
		projectHome = dir
	}

	return projectHome
}

// initTempestConfigurations initializes the Tempest configurations.
func initTempestConfigurations(logger *log.Logger, tempestHome string) *config.Config {
	configFilePath := path.Join(tempestHome, "repository/conf/deployment.yaml")
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		logger.Fatal("Failed to load configurations", log.Error(err))
	}

	if err := config.InitializeTempestRuntime(tempestHome, cfg); err != nil {
		logger.Fatal("Failed to initialize tempest runtime", log.Error(err))
	}

	return cfg
}

// initJWTService loads the signing key material and creates the JWT service.
// Servers without key material can still run code and token flows; identity
// tokens and JWKS require a configured key.
func initJWTService(logger *log.Logger, cfg *config.Config, tempestHome string) jwt.JWTServiceInterface {
	if cfg.Security.KeyFile == "" {
		logger.Warn("No signing key configured, identity tokens are disabled")
		return jwt.NewJWTService(nil)
	}

	certFile := cfg.Security.CertFile
	if certFile != "" {
		certFile = path.Join(tempestHome, certFile)
	}
	keyFile := path.Join(tempestHome, cfg.Security.KeyFile)

	credential, err := jwt.LoadSigningCredential(certFile, keyFile)
	if err != nil {
		logger.Fatal("Failed to load the signing credential", log.Error(err))
	}
	return jwt.NewJWTService([]jwt.SigningCredential{credential})
}

// initBlobStore creates the configured blob store backend.
func initBlobStore(logger *log.Logger, cfg *config.Config) store.BlobStoreInterface {
	switch cfg.Store.Type {
	case "redis":
		logger.Info("Using the Redis blob store", log.String("address", cfg.Store.Redis.Address))
		return store.NewRedisBlobStore(cfg.Store.Redis, nil)
	case "postgres":
		logger.Info("Using the Postgres blob store", log.String("hostname", cfg.Store.Postgres.Hostname))
		postgresStore, err := store.NewPostgresBlobStore(cfg.Store.Postgres, nil)
		if err != nil {
			logger.Fatal("Failed to connect to the Postgres blob store", log.Error(err))
		}
		return postgresStore
	default:
		logger.Info("Using the in-memory blob store")
		return store.NewInMemoryBlobStore(nil)
	}
}

// startTLSServer starts the HTTPS server with TLS configuration.
func startTLSServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux, tempestHome string) {
	httpServer, serverAddr := createHTTPServer(logger, cfg, mux)

	certFile := path.Join(tempestHome, cfg.Security.CertFile)
	keyFile := path.Join(tempestHome, cfg.Security.KeyFile)

	logger.Info("Tempest server started (HTTPS)...", log.String("address", serverAddr))

	if err := httpServer.ListenAndServeTLS(certFile, keyFile); err != nil {
		logger.Fatal("Failed to serve requests", log.Error(err))
	}
}

// startHTTPServer starts the HTTP server without TLS.
func startHTTPServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux) {
	httpServer, serverAddr := createHTTPServer(logger, cfg, mux)

	logger.Info("Tempest server started (HTTP)...", log.String("address", serverAddr))

	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatal("Failed to serve HTTP requests", log.Error(err))
	}
}

// createHTTPServer creates and configures an HTTP server with common settings.
func createHTTPServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux) (*http.Server, string) {
	wrappedMux := log.AccessLogHandler(logger, mux)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)

	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           wrappedMux,
		ReadHeaderTimeout: 10 * time.Second, // Mitigate Slowloris attacks
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return httpServer, serverAddr
}
