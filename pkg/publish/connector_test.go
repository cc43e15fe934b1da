package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/penistats/pkg/logger"
	"github.com/carverauto/penistats/pkg/settings"
	"github.com/carverauto/penistats/pkg/sysmetrics"
)

var (
	errTestRefused = errors.New("connection refused")
	errTestDropped = errors.New("connection dropped")
)

func testDestination(transport string) *settings.BrokerDestination {
	port := settings.Port(1883)

	return &settings.BrokerDestination{
		Hostname:  "broker.local",
		Port:      &port,
		ClientID:  "client",
		Transport: transport,
	}
}

func TestPublishSnapshot(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)
	dest := testDestination(settings.TransportMQTT)

	gomock.InOrder(
		dialer.EXPECT().Dial(gomock.Any(), dest).Return(session, nil),
		session.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg Message) error {
				assert.Equal(t, "lab/abc123", msg.Topic)
				assert.False(t, msg.Retained)

				return nil
			}),
		session.EXPECT().Close(),
	)

	c := NewConnector(logger.NewTestLogger(), WithDialer(settings.TransportMQTT, dialer))

	err := c.PublishSnapshot(context.Background(), dest, testDevice(), &sysmetrics.Snapshot{})
	require.NoError(t, err)
}

func TestPublishDeclarationSendsEveryMessage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)
	dest := testDestination(settings.TransportNATS)
	decls := sysmetrics.Declarations()

	dialer.EXPECT().Dial(gomock.Any(), dest).Return(session, nil)
	session.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(len(decls) + 1)
	session.EXPECT().Close()

	c := NewConnector(logger.NewTestLogger(), WithDialer(settings.TransportNATS, dialer))

	require.NoError(t, c.PublishDeclaration(context.Background(), dest, testDevice(), decls))
}

func TestPublishConnectFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	dest := testDestination("")

	dialer.EXPECT().Dial(gomock.Any(), dest).Return(nil, errTestRefused)

	c := NewConnector(logger.NewTestLogger(), WithDialer(settings.TransportMQTT, dialer))

	err := c.PublishSnapshot(context.Background(), dest, testDevice(), &sysmetrics.Snapshot{})
	require.ErrorIs(t, err, ErrConnect)
	require.ErrorIs(t, err, errTestRefused)
	assert.Contains(t, err.Error(), "broker.local:1883")
}

func TestPublishFailureStillClosesSession(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)
	dest := testDestination(settings.TransportMQTT)

	dialer.EXPECT().Dial(gomock.Any(), dest).Return(session, nil)
	session.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errTestDropped)
	session.EXPECT().Close()

	c := NewConnector(logger.NewTestLogger(), WithDialer(settings.TransportMQTT, dialer))

	err := c.PublishSnapshot(context.Background(), dest, testDevice(), &sysmetrics.Snapshot{})
	require.ErrorIs(t, err, ErrPublish)
	require.ErrorIs(t, err, errTestDropped)
}

func TestPublishUnknownTransport(t *testing.T) {
	t.Parallel()

	c := NewConnector(logger.NewTestLogger())

	err := c.PublishSnapshot(context.Background(), testDestination("amqp"), testDevice(), &sysmetrics.Snapshot{})
	require.ErrorIs(t, err, ErrUnknownTransport)
}
