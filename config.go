// Copyright 2025 Ticket721 SAS

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config allows for configuration of controllers via YAML files.
type Config struct {
	// DomainName and DomainVersion parameterize the signing domain every
	// authorization is bound to. Changing either invalidates all
	// previously issued signatures.
	DomainName    string `yaml:"domain_name"`
	DomainVersion string `yaml:"domain_version"`

	// ChainID scopes signatures to one deployment network.
	ChainID uint64 `yaml:"chain_id"`

	// ContractAddress is the controller's own identity: the destination
	// of pulled funds and the verifying party of the signing domain.
	ContractAddress string `yaml:"contract_address"`

	// Owner administers the currency whitelist and the fee collector.
	Owner string `yaml:"owner"`

	// FeeCollector receives the fee slice of every payment. Defaults to
	// the owner when empty.
	FeeCollector string `yaml:"fee_collector"`
}

// DefaultConfig returns a new instance of Config with default values set.
func DefaultConfig() Config {
	return Config{
		DomainName:    "T721 Controller",
		DomainVersion: "0",
		ChainID:       1,
	}
}

// LoadConfig reads a YAML config file over the defaults. `${VAR}` and
// `${VAR:-default}` references are expanded from the environment; a
// reference without a value is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var missing []string
	expanded := os.Expand(string(raw), func(key string) string {
		if i := strings.Index(key, ":-"); i != -1 {
			if val, ok := os.LookupEnv(key[:i]); ok {
				return val
			}
			return key[i+2:]
		}
		val, ok := os.LookupEnv(key)
		if !ok {
			missing = append(missing, key)
		}
		return val
	})
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config expects the following environment variables to be set: %v", missing)
	}

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal YAML to config: %w", err)
	}
	return cfg, nil
}
