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

// Package settings holds the agent configuration tree: device identity,
// schedule and publish destinations.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/penistats/pkg/config"
)

const (
	// DefaultPath is used when no settings path is given on the command line.
	DefaultPath = "penistats.conf"

	TransportMQTT = "mqtt"
	TransportNATS = "nats"
)

var (
	ErrDeviceIncomplete      = errors.New("device identity incomplete: group, serial, model and name are required")
	ErrDestinationIncomplete = errors.New("destination incomplete: hostname and port are required")
	ErrUnsupportedTransport  = errors.New("unsupported transport")
)

// LoadError reports a settings document that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load settings from %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DeviceIdentity names the device the values belong to.
type DeviceIdentity struct {
	Group        string `json:"group,omitempty"`
	Serial       string `json:"serial,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Version      string `json:"version,omitempty"`
	Name         string `json:"name,omitempty"`
}

// IsSet reports whether the fields required for publishing are present.
func (d *DeviceIdentity) IsSet() bool {
	for _, v := range []string{d.Group, d.Serial, d.Model, d.Name} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}

	return true
}

// Every is the repeat period of a schedule.
type Every struct {
	Minutes *int `json:"minutes,omitempty"`
}

// ScheduleConfig enables continuous mode when present and usable.
type ScheduleConfig struct {
	Every *Every `json:"every,omitempty"`
}

func (s *ScheduleConfig) usable() bool {
	return s != nil && s.Every != nil && s.Every.Minutes != nil && *s.Every.Minutes > 0
}

// BrokerDestination is one place values are published to.
type BrokerDestination struct {
	Hostname    string `json:"hostname,omitempty"`
	Port        *Port  `json:"port,omitempty"`
	Topic       string `json:"topic,omitempty"`
	ClientID    string `json:"clientId,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty" sensitive:"true"`
	CACertsPath string `json:"caCertsPath,omitempty"`
	IsHA        Flag   `json:"isHA,omitempty"`
	Transport   string `json:"transport,omitempty"`
}

// Valid reports whether both hostname and a usable port are present.
func (b *BrokerDestination) Valid() bool {
	return b.Hostname != "" && b.Port != nil && *b.Port > 0 && *b.Port <= 65535
}

// Address returns host:port.
func (b *BrokerDestination) Address() string {
	port := 0
	if b.Port != nil {
		port = int(*b.Port)
	}

	return net.JoinHostPort(b.Hostname, strconv.Itoa(port))
}

// TLSEnabled reports whether a CA bundle was configured.
func (b *BrokerDestination) TLSEnabled() bool {
	return b.CACertsPath != ""
}

// Settings is the root of the configuration document.
type Settings struct {
	Device       DeviceIdentity      `json:"device"`
	Schedule     *ScheduleConfig     `json:"schedule,omitempty"`
	Destinations []BrokerDestination `json:"mqtts,omitempty"`
}

// Load reads settings from path, honoring the environment overlay.
func Load(ctx context.Context, path string) (*Settings, error) {
	return LoadWith(ctx, config.NewConfig(nil), path)
}

// LoadWith reads settings through cfg. Failures are returned as *LoadError.
func LoadWith(ctx context.Context, cfg *config.Config, path string) (*Settings, error) {
	var s Settings

	if err := cfg.Load(ctx, path, &s); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return &s, nil
}

// Validate checks device completeness and every destination.
func (s *Settings) Validate() error {
	var errs []error

	if !s.Device.IsSet() {
		errs = append(errs, ErrDeviceIncomplete)
	}

	for i := range s.Destinations {
		dest := &s.Destinations[i]

		if !dest.Valid() {
			errs = append(errs, fmt.Errorf("mqtts[%d]: %w", i, ErrDestinationIncomplete))
		}

		switch dest.Transport {
		case "", TransportMQTT, TransportNATS:
		default:
			errs = append(errs, fmt.Errorf("mqtts[%d]: %w: %q", i, ErrUnsupportedTransport, dest.Transport))
		}
	}

	return errors.Join(errs...)
}

// Normalize fills defaults. It reports whether an unusable schedule was dropped.
func (s *Settings) Normalize() bool {
	for i := range s.Destinations {
		dest := &s.Destinations[i]

		if dest.ClientID == "" {
			dest.ClientID = uuid.NewString()
		}

		dest.Transport = strings.ToLower(strings.TrimSpace(dest.Transport))
		if dest.Transport == "" {
			dest.Transport = TransportMQTT
		}
	}

	if s.Schedule != nil && !s.Schedule.usable() {
		s.Schedule = nil

		return true
	}

	return false
}

// Interval returns the continuous mode period, if any.
func (s *Settings) Interval() (time.Duration, bool) {
	if !s.Schedule.usable() {
		return 0, false
	}

	return time.Duration(*s.Schedule.Every.Minutes) * time.Minute, true
}

// LogFields renders the settings for the startup summary with secrets masked.
func (s *Settings) LogFields() map[string]interface{} {
	fields, err := config.Redact(s)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	if interval, ok := s.Interval(); ok {
		fields["every"] = interval.String()
	} else {
		fields["every"] = "once"
	}

	return fields
}
