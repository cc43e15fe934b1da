/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/carverauto/penistats/pkg/logger"
)

var errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	// DefaultEnvPrefix scopes every configuration environment variable.
	DefaultEnvPrefix = "PENISTATS_"
)

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
	envPrefix     string
}

// NewConfig initializes a new Config instance with a default file loader.
// If log is nil, a no-op logger is used.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
		envPrefix:     DefaultEnvPrefix,
	}
}

// Load reads cfg from the source selected by CONFIG_SOURCE without validating it.
func (c *Config) Load(ctx context.Context, path string, cfg interface{}) error {
	loader, err := c.selectLoader()
	if err != nil {
		return err
	}

	return loader.Load(ctx, path, cfg)
}

// selectLoader picks the loader for CONFIG_SOURCE. A full JSON document in
// <prefix>CONFIG_JSON takes precedence over the file.
func (c *Config) selectLoader() (ConfigLoader, error) {
	source := strings.ToLower(os.Getenv("CONFIG_SOURCE"))

	switch source {
	case configSourceEnv:
		return NewEnvConfigLoader(c.logger, c.envPrefix), nil
	case configSourceFile, "":
		if os.Getenv(c.envPrefix+"CONFIG_JSON") != "" {
			return NewEnvConfigLoader(c.logger, c.envPrefix), nil
		}

		return c.defaultLoader, nil
	default:
		return nil, fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}
}
