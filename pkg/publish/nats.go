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
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/penistats/pkg/settings"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSDialer opens core NATS sessions. Topics become subjects and the
// retained flag has no equivalent.
type NATSDialer struct {
	ConnectTimeout time.Duration
	SettleTimeout  time.Duration

	connect func(url string, opts ...nats.Option) (natsConn, error)
}

// NewNATSDialer returns a dialer with the default connect and settle timeouts.
func NewNATSDialer() *NATSDialer {
	return &NATSDialer{
		ConnectTimeout: defaultConnectTimeout,
		SettleTimeout:  defaultSettleTimeout,
		connect: func(url string, opts ...nats.Option) (natsConn, error) {
			return nats.Connect(url, opts...)
		},
	}
}

// Subject maps a slash separated topic onto a NATS subject.
func Subject(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// Options maps a destination onto nats connection options.
func (d *NATSDialer) Options(dest *settings.BrokerDestination) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name(dest.ClientID),
		nats.Timeout(d.ConnectTimeout),
		nats.NoReconnect(),
	}

	if dest.Username != "" {
		opts = append(opts, nats.UserInfo(dest.Username, dest.Password))
	}

	if dest.TLSEnabled() {
		tlsConfig, err := TLSConfig(dest.CACertsPath, dest.Hostname)
		if err != nil {
			return nil, err
		}

		opts = append(opts, nats.Secure(tlsConfig))
	}

	return opts, nil
}

// Dial connects to nats://host:port without reconnects.
func (d *NATSDialer) Dial(ctx context.Context, dest *settings.BrokerDestination) (Session, error) {
	opts, err := d.Options(dest)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := d.connect(fmt.Sprintf("nats://%s", dest.Address()), opts...)
	if err != nil {
		return nil, err
	}

	return &natsSession{conn: conn, settle: d.SettleTimeout}, nil
}

type natsSession struct {
	conn   natsConn
	settle time.Duration
}

// Publish sends msg and flushes so the server has acknowledged it on return.
func (s *natsSession) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.conn.Publish(Subject(msg.Topic), msg.Payload); err != nil {
		return err
	}

	return s.conn.FlushTimeout(s.settle)
}

func (s *natsSession) Close() {
	s.conn.Close()
}
