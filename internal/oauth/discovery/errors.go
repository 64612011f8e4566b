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

package discovery

import (
	"encoding/json"
	"net/http"

	"github.com/tempestauth/tempest/internal/oauth/oauth2/constants"
	"github.com/tempestauth/tempest/internal/system/error/serviceerror"
	"github.com/tempestauth/tempest/internal/system/log"
)

// ErrorWhileBuildingConfiguration is returned when the configuration metadata cannot be assembled.
var ErrorWhileBuildingConfiguration = &serviceerror.ServiceError{
	Code:             "DISC-5001",
	Type:             serviceerror.ServerErrorType,
	Error:            "Error while building the configuration response.",
	ErrorDescription: "An error occurred while assembling the configuration metadata.",
}

// ErrorWhileBuildingKeySet is returned when the key set cannot be assembled.
var ErrorWhileBuildingKeySet = &serviceerror.ServiceError{
	Code:             "DISC-5002",
	Type:             serviceerror.ServerErrorType,
	Error:            "Error while building the key set response.",
	ErrorDescription: "An error occurred while serializing the signing credentials.",
}

// ErrorInvalidDiscoveryMethod is returned when a discovery request uses a method other than GET.
var ErrorInvalidDiscoveryMethod = &serviceerror.ServiceError{
	Code:             "DISC-1001",
	Type:             serviceerror.ClientErrorType,
	Error:            "Invalid request method.",
	ErrorDescription: "Discovery requests must use GET.",
}

// writeServiceError writes a service error as a JSON response with the
// status code derived from the error type.
func writeServiceError(w http.ResponseWriter, logger *log.Logger, svcErr *serviceerror.ServiceError) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)

	statusCode := http.StatusInternalServerError
	if svcErr.Type == serviceerror.ClientErrorType {
		statusCode = http.StatusBadRequest
	}
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(svcErr); err != nil {
		logger.Error("Error encoding error response", log.Error(err))
	}
}
