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

package publish

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carverauto/penistats/pkg/settings"
	"github.com/carverauto/penistats/pkg/sysmetrics"
)

const (
	discoveryPrefix = "homeassistant"

	iconThermometer = "mdi:thermometer"
	iconMemory      = "mdi:memory"
	iconGeneric     = "mdi:eye"

	entityCategoryDiagnostic = "diagnostic"
	stateClassMeasurement    = "measurement"
)

// Message is one publish on a destination.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// DiscoveryDevice is the device block of a discovery config.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// DiscoveryPayload is the Home Assistant MQTT discovery config for one sensor.
type DiscoveryPayload struct {
	Device              DiscoveryDevice `json:"device"`
	EnabledByDefault    bool            `json:"enabled_by_default"`
	EntityCategory      string          `json:"entity_category,omitempty"`
	Icon                string          `json:"icon,omitempty"`
	JSONAttributesTopic string          `json:"json_attributes_topic,omitempty"`
	Name                string          `json:"name,omitempty"`
	StateClass          string          `json:"state_class,omitempty"`
	StateTopic          string          `json:"state_topic,omitempty"`
	UniqueID            string          `json:"unique_id,omitempty"`
	UnitOfMeasurement   string          `json:"unit_of_measurement,omitempty"`
	ValueTemplate       string          `json:"value_template,omitempty"`
}

// BaseID is the identifier shared by all sensors of a device.
func BaseID(dev *settings.DeviceIdentity) string {
	return dev.Group + "_" + dev.Serial
}

// ValuesTopic is where snapshots are published: [prefix/]group/serial.
func ValuesTopic(prefix, group, serial string) string {
	return joinTopic(prefix, group, serial)
}

// DiscoveryTopic is the retained config topic of one sensor.
func DiscoveryTopic(serial, tag string) string {
	return joinTopic(discoveryPrefix, "sensor", serial, tag, "config")
}

func joinTopic(parts ...string) string {
	kept := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "/")
}

// SelectIcon picks the discovery icon for a unit.
func SelectIcon(unit string) string {
	switch unit {
	case sysmetrics.UnitCelsius, "°F":
		return iconThermometer
	case sysmetrics.UnitKB:
		return iconMemory
	default:
		return iconGeneric
	}
}

// DiscoveryConfig builds the discovery payload of decl for the device.
func DiscoveryConfig(valuesTopic string, dev *settings.DeviceIdentity, decl sysmetrics.Declaration) DiscoveryPayload {
	return DiscoveryPayload{
		Device: DiscoveryDevice{
			Identifiers:  []string{BaseID(dev)},
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
			Name:         dev.Name,
			SWVersion:    dev.Version,
		},
		EnabledByDefault:    true,
		EntityCategory:      entityCategoryDiagnostic,
		Icon:                SelectIcon(decl.Unit),
		JSONAttributesTopic: valuesTopic,
		Name:                decl.Name,
		StateClass:          stateClassMeasurement,
		StateTopic:          valuesTopic,
		UniqueID:            BaseID(dev) + "_" + decl.Tag,
		UnitOfMeasurement:   decl.Unit,
		ValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", decl.Tag),
	}
}

// BuildSnapshotMessages returns the single values message for snap.
func BuildSnapshotMessages(
	dest *settings.BrokerDestination, dev *settings.DeviceIdentity, snap *sysmetrics.Snapshot) ([]Message, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return []Message{{
		Topic:   ValuesTopic(dest.Topic, dev.Group, dev.Serial),
		Payload: payload,
	}}, nil
}

// BuildDeclarationMessages returns the retained declare messages, in
// discovery form when the destination is in Home Assistant mode.
func BuildDeclarationMessages(
	dest *settings.BrokerDestination, dev *settings.DeviceIdentity, decls []sysmetrics.Declaration) ([]Message, error) {
	if dest.IsHA {
		return buildDiscoveryMessages(dest, dev, decls)
	}

	return buildPlainDeclarations(dest, dev, decls)
}

func buildDiscoveryMessages(
	dest *settings.BrokerDestination, dev *settings.DeviceIdentity, decls []sysmetrics.Declaration) ([]Message, error) {
	valuesTopic := ValuesTopic(dest.Topic, dev.Group, dev.Serial)
	msgs := make([]Message, 0, len(decls))

	for _, decl := range decls {
		payload, err := json.Marshal(DiscoveryConfig(valuesTopic, dev, decl))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal discovery config for %s: %w", decl.Tag, err)
		}

		msgs = append(msgs, Message{
			Topic:    DiscoveryTopic(dev.Serial, decl.Tag),
			Payload:  payload,
			Retained: true,
		})
	}

	return msgs, nil
}

func buildPlainDeclarations(
	dest *settings.BrokerDestination, dev *settings.DeviceIdentity, decls []sysmetrics.Declaration) ([]Message, error) {
	base := joinTopic(dest.Topic, "declare", dev.Group, dev.Serial)

	devicePayload, err := json.Marshal(dev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device identity: %w", err)
	}

	msgs := make([]Message, 0, len(decls)+1)
	msgs = append(msgs, Message{
		Topic:    joinTopic(base, "device"),
		Payload:  devicePayload,
		Retained: true,
	})

	for _, decl := range decls {
		payload, err := json.Marshal(decl)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal declaration %s: %w", decl.Tag, err)
		}

		msgs = append(msgs, Message{
			Topic:    joinTopic(base, "value", decl.Tag),
			Payload:  payload,
			Retained: true,
		})
	}

	return msgs, nil
}
