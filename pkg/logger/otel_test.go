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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	log "go.opentelemetry.io/otel/log"
)

func TestOTelConfigDefaults(t *testing.T) {
	config := DefaultOTelConfig()

	assert.NotEmpty(t, config.ServiceName)
	assert.Equal(t, 5*time.Second, config.BatchTimeout)
}

func TestOTelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "x-api-key=abc, x-tenant = edge")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "12s")
	t.Setenv("OTEL_LOGS_ENABLED", "yes")

	config := DefaultOTelConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, 12*time.Second, config.BatchTimeout)
	assert.Equal(t, map[string]string{"x-api-key": "abc", "x-tenant": "edge"}, config.Headers)
}

func TestOTelWriterDisabled(t *testing.T) {
	writer, err := NewOTELWriter(context.Background(), OTelConfig{Enabled: false})

	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
	assert.Nil(t, writer)
}

func TestOTelWriterNoEndpoint(t *testing.T) {
	writer, err := NewOTELWriter(context.Background(), OTelConfig{Enabled: true})

	require.ErrorIs(t, err, ErrOTelEndpointRequired)
	assert.Nil(t, writer)
}

func TestLoggerWithOTelEnabledButNoEndpoint(t *testing.T) {
	config := &Config{
		Level:  "info",
		Output: "stdout",
		OTel: OTelConfig{
			Enabled: true,
		},
	}

	require.NoError(t, Init(context.Background(), config))

	Info().Str("test", "value").Msg("Test message with OTel enabled but no endpoint")
}

func TestMapZerologLevelToOTEL(t *testing.T) {
	tests := []struct {
		zerologLevel string
		expected     log.Severity
	}{
		{"trace", log.SeverityTrace},
		{"debug", log.SeverityDebug},
		{"info", log.SeverityInfo},
		{"warn", log.SeverityWarn},
		{"warning", log.SeverityWarn},
		{"error", log.SeverityError},
		{"fatal", log.SeverityFatal},
		{"panic", log.SeverityFatal},
		{"unknown", log.SeverityInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, mapZerologLevelToOTEL(test.zerologLevel), test.zerologLevel)
	}
}

func TestTruncateString(t *testing.T) {
	short, long := "abc", string(make([]byte, maxAttributeValueLength+10))

	assert.Equal(t, short, truncateString(short, maxAttributeValueLength))
	assert.Len(t, truncateString(long, maxAttributeValueLength), maxAttributeValueLength)
}

func TestToRecord(t *testing.T) {
	entry := map[string]interface{}{
		"time":      "2024-05-01T08:00:00Z",
		"level":     "warn",
		"message":   "Values sent to only 50% of destinations",
		"component": "penistats",
		"attempted": float64(2),
	}

	record, scope := toRecord(entry)

	assert.Equal(t, "penistats", scope)
	assert.Equal(t, log.SeverityWarn, record.Severity())
	assert.Equal(t, "warn", record.SeverityText())
	assert.Equal(t, "Values sent to only 50% of destinations", record.Body().AsString())
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), record.Timestamp().UTC())
	assert.Equal(t, 1, record.AttributesLen())
}

func TestFormatAttributeValue(t *testing.T) {
	assert.Equal(t, "null", formatAttributeValue(nil))
	assert.Equal(t, "true", formatAttributeValue(true))
	assert.Equal(t, "1883", formatAttributeValue(float64(1883)))
	assert.Equal(t, "0.25", formatAttributeValue(0.25))
	assert.Equal(t, `["a","b"]`, formatAttributeValue([]interface{}{"a", "b"}))
}
