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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	err := Init(context.Background(), config)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logger := GetLogger()
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", logger.GetLevel())
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "chatty"})
	if err == nil {
		t.Fatal("Expected an error for an unknown level")
	}
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)

	logger := GetLogger()
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level after SetDebug(true), got %v", logger.GetLevel())
	}

	SetDebug(false)

	logger = GetLogger()
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level after SetDebug(false), got %v", logger.GetLevel())
	}
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("test-component")

	if componentLogger.GetLevel() == zerolog.Disabled {
		t.Error("Component logger should not be disabled")
	}
}

func TestBufferLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer

	log := NewBufferLogger(&buf)
	log.Warn().Str("destination", "broker.local").Msg("delivery degraded")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected a JSON record, got %q: %v", buf.String(), err)
	}

	if record["level"] != "warn" || record["destination"] != "broker.local" {
		t.Errorf("Unexpected record %v", record)
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_OUTPUT", "stderr")

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Expected default level info, got %q", config.Level)
	}

	if config.Output != "stderr" {
		t.Errorf("Expected output from LOG_OUTPUT, got %q", config.Output)
	}
}
