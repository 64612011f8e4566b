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
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
)

// LoadSigningCredential loads an RSA signing credential from PEM files. The
// certificate file is optional; when present the credential is X.509 wrapped.
func LoadSigningCredential(certFile, keyFile string) (SigningCredential, error) {
	key, err := loadPrivateKey(keyFile)
	if err != nil {
		return SigningCredential{}, err
	}

	if certFile == "" {
		return NewSigningCredential(key), nil
	}

	certificate, err := loadCertificate(certFile)
	if err != nil {
		return SigningCredential{}, err
	}
	return NewX509SigningCredential(key, certificate), nil
}

// loadPrivateKey reads a PKCS#1 or PKCS#8 RSA private key from a PEM file.
func loadPrivateKey(keyFile string) (*rsa.PrivateKey, error) {
	keyFile = filepath.Clean(keyFile)

	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing private key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an RSA private key")
		}
		return rsaKey, nil
	default:
		return nil, errors.New("unsupported private key type: " + block.Type)
	}
}

// loadCertificate reads an X.509 certificate from a PEM file.
func loadCertificate(certFile string) (*x509.Certificate, error) {
	certFile = filepath.Clean(certFile)

	certData, err := os.ReadFile(certFile)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(certData)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("failed to decode PEM block containing certificate")
	}

	return x509.ParseCertificate(block.Bytes)
}
