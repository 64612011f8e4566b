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

package config

import "sync"

// TempestRuntime holds the runtime configuration for the Tempest server.
type TempestRuntime struct {
	TempestHome string `yaml:"tempest_home"`
	Config      Config `yaml:"config"`
}

var (
	runtimeConfig *TempestRuntime
	once          sync.Once
)

// InitializeTempestRuntime initializes the TempestRuntime configuration.
func InitializeTempestRuntime(tempestHome string, config *Config) error {
	once.Do(func() {
		runtimeConfig = &TempestRuntime{
			TempestHome: tempestHome,
			Config:      *config,
		}
	})

	return nil
}

// GetTempestRuntime returns the TempestRuntime configuration.
func GetTempestRuntime() *TempestRuntime {
	if runtimeConfig == nil {
		panic("TempestRuntime is not initialized")
	}
	return runtimeConfig
}

// ResetTempestRuntime resets the TempestRuntime.
// This should only be used in tests to reset the singleton state.
func ResetTempestRuntime() {
	runtimeConfig = nil
	once = sync.Once{}
}
