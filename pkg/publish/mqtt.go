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
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/carverauto/penistats/pkg/settings"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultSettleTimeout  = 5 * time.Second

	disconnectQuiesceMillis = 250
	qosAtMostOnce           = 0
)

var errTokenTimeout = errors.New("timed out waiting for broker acknowledgement")

// MQTTDialer opens paho client sessions.
type MQTTDialer struct {
	ConnectTimeout time.Duration
	SettleTimeout  time.Duration

	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// NewMQTTDialer returns a dialer with the default connect and settle timeouts.
func NewMQTTDialer() *MQTTDialer {
	return &MQTTDialer{
		ConnectTimeout: defaultConnectTimeout,
		SettleTimeout:  defaultSettleTimeout,
		newClient:      mqtt.NewClient,
	}
}

// ClientOptions maps a destination onto paho options.
func (d *MQTTDialer) ClientOptions(dest *settings.BrokerDestination) (*mqtt.ClientOptions, error) {
	scheme := "tcp"

	opts := mqtt.NewClientOptions().
		SetClientID(dest.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(d.ConnectTimeout)

	if dest.Username != "" {
		opts.SetUsername(dest.Username)
		opts.SetPassword(dest.Password)
	}

	if dest.TLSEnabled() {
		tlsConfig, err := TLSConfig(dest.CACertsPath, dest.Hostname)
		if err != nil {
			return nil, err
		}

		scheme = "ssl"

		opts.SetTLSConfig(tlsConfig)
	}

	opts.AddBroker(fmt.Sprintf("%s://%s", scheme, dest.Address()))

	return opts, nil
}

// Dial connects and waits for the CONNACK.
func (d *MQTTDialer) Dial(ctx context.Context, dest *settings.BrokerDestination) (Session, error) {
	opts, err := d.ClientOptions(dest)
	if err != nil {
		return nil, err
	}

	client := d.newClient(opts)

	if err := waitToken(ctx, client.Connect(), d.ConnectTimeout); err != nil {
		return nil, err
	}

	return &mqttSession{client: client, settle: d.SettleTimeout}, nil
}

type mqttSession struct {
	client mqtt.Client
	settle time.Duration
}

func (s *mqttSession) Publish(ctx context.Context, msg Message) error {
	return waitToken(ctx, s.client.Publish(msg.Topic, qosAtMostOnce, msg.Retained, msg.Payload), s.settle)
}

func (s *mqttSession) Close() {
	s.client.Disconnect(disconnectQuiesceMillis)
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTokenTimeout
	}
}
