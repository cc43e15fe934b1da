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

// Package publish delivers snapshots and declarations to message brokers.
// Every call opens a short-lived session, publishes and closes it.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/penistats/pkg/logger"
	"github.com/carverauto/penistats/pkg/settings"
	"github.com/carverauto/penistats/pkg/sysmetrics"
)

//go:generate mockgen -destination=mock_publish.go -package=publish github.com/carverauto/penistats/pkg/publish Dialer,Session

var (
	ErrConnect          = errors.New("failed to connect to broker")
	ErrPublish          = errors.New("failed to publish message")
	ErrUnknownTransport = errors.New("unknown transport")
)

// Session is an open connection to one broker.
type Session interface {
	Publish(ctx context.Context, msg Message) error
	Close()
}

// Dialer opens sessions for one transport.
type Dialer interface {
	Dial(ctx context.Context, dest *settings.BrokerDestination) (Session, error)
}

// Connector routes publishes to the dialer of the destination transport.
type Connector struct {
	log     logger.Logger
	dialers map[string]Dialer
}

// ConnectorOption customizes a Connector.
type ConnectorOption func(*Connector)

// WithDialer registers d for transport, replacing any default.
func WithDialer(transport string, d Dialer) ConnectorOption {
	return func(c *Connector) {
		c.dialers[transport] = d
	}
}

// NewConnector returns a Connector with the MQTT and NATS dialers registered.
func NewConnector(log logger.Logger, opts ...ConnectorOption) *Connector {
	c := &Connector{
		log: log,
		dialers: map[string]Dialer{
			settings.TransportMQTT: NewMQTTDialer(),
			settings.TransportNATS: NewNATSDialer(),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// PublishSnapshot sends snap to the values topic of dest.
func (c *Connector) PublishSnapshot(
	ctx context.Context, dest *settings.BrokerDestination, dev *settings.DeviceIdentity, snap *sysmetrics.Snapshot) error {
	msgs, err := BuildSnapshotMessages(dest, dev, snap)
	if err != nil {
		return err
	}

	return c.deliver(ctx, dest, msgs)
}

// PublishDeclaration sends the retained declare messages to dest.
func (c *Connector) PublishDeclaration(
	ctx context.Context, dest *settings.BrokerDestination, dev *settings.DeviceIdentity, decls []sysmetrics.Declaration) error {
	msgs, err := BuildDeclarationMessages(dest, dev, decls)
	if err != nil {
		return err
	}

	return c.deliver(ctx, dest, msgs)
}

func (c *Connector) deliver(ctx context.Context, dest *settings.BrokerDestination, msgs []Message) error {
	transport := dest.Transport
	if transport == "" {
		transport = settings.TransportMQTT
	}

	dialer, ok := c.dialers[transport]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}

	session, err := dialer.Dial(ctx, dest)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrConnect, dest.Address(), err)
	}
	defer session.Close()

	var errs []error

	for _, msg := range msgs {
		if err := session.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%w to %s on %s: %w", ErrPublish, msg.Topic, dest.Address(), err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.log.Debug().
		Str("broker", dest.Address()).
		Str("transport", transport).
		Int("messages", len(msgs)).
		Msg("Published")

	return nil
}
