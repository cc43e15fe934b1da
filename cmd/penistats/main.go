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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/carverauto/penistats/pkg/agent"
	"github.com/carverauto/penistats/pkg/config"
	"github.com/carverauto/penistats/pkg/identity"
	"github.com/carverauto/penistats/pkg/lifecycle"
	"github.com/carverauto/penistats/pkg/logger"
	"github.com/carverauto/penistats/pkg/publish"
	"github.com/carverauto/penistats/pkg/settings"
	"github.com/carverauto/penistats/pkg/sysmetrics"
	"github.com/carverauto/penistats/pkg/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("penistats failed: %v", err)
	}
}

func parseFlags(args []string) (string, error) {
	fs := pflag.NewFlagSet("penistats", pflag.ContinueOnError)
	settingsPath := fs.StringP("set", "s", settings.DefaultPath, "settings file path")

	if err := fs.Parse(args); err != nil {
		return "", err
	}

	return *settingsPath, nil
}

func run(args []string) error {
	settingsPath, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}

	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	componentLogger, err := lifecycle.CreateComponentLogger(ctx, "penistats", logger.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create component logger: %w", err)
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	componentLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("settings", settingsPath).
		Msg("Starting penistats")

	s := loadSettings(ctx, componentLogger, settingsPath)

	runner := agent.NewRunner(agent.RunnerConfig{
		Settings:  s,
		Sampler:   sysmetrics.NewReader(componentLogger),
		Connector: publish.NewConnector(componentLogger),
		Logger:    componentLogger,
		Display:   os.Stdout,
	})

	return runner.Run(ctx)
}

// loadSettings returns nil when the agent should only display values.
func loadSettings(ctx context.Context, log logger.Logger, path string) *settings.Settings {
	s, err := settings.LoadWith(ctx, config.NewConfig(log), path)
	if err != nil {
		log.Warn().Err(err).Msg("Settings unavailable, values will only be displayed")

		return nil
	}

	if s.Normalize() {
		log.Warn().Msg("Schedule has no positive minutes, running once")
	}

	identity.NewResolver(log).Resolve(ctx, &s.Device)

	if err := s.Validate(); err != nil {
		log.Warn().Err(err).Msg("Settings invalid, values will only be displayed")

		return nil
	}

	log.Info().Fields(s.LogFields()).Msg("Settings loaded")

	return s
}
