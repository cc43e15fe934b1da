package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSettings = `{
	// device block
	"device": {
		"group": "lab",
		"serial": "00000000abcd",
		"model": "Raspberry Pi 4 Model B Rev 1.4",
		"name": "pi4.local"
	},
	/* every five minutes */
	"schedule": {"every": {"minutes": 5}},
	"mqtts": [
		{
			"hostname": "broker.local",
			"port": "1883",
			"topic": "home",
			"username": "agent",
			"password": "hunter2",
			"isHA": "true"
		},
		{
			"hostname": "nats.local",
			"port": 4222,
			"clientId": "fixed",
			"transport": " NATS ",
			"isHA": 0
		}
	]
}`

func writeSettings(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadParsesDocument(t *testing.T) {
	t.Parallel()

	s, err := Load(context.Background(), writeSettings(t, sampleSettings))
	require.NoError(t, err)

	assert.Equal(t, "lab", s.Device.Group)
	assert.Equal(t, "pi4.local", s.Device.Name)
	require.Len(t, s.Destinations, 2)

	first := s.Destinations[0]
	require.NotNil(t, first.Port)
	assert.Equal(t, Port(1883), *first.Port)
	assert.True(t, bool(first.IsHA))
	assert.Equal(t, "broker.local:1883", first.Address())

	second := s.Destinations[1]
	assert.Equal(t, Port(4222), *second.Port)
	assert.False(t, bool(second.IsHA))

	interval, ok := s.Interval()
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, interval)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "malformed", content: `{"device": `},
		{name: "bad port", content: `{"mqtts": [{"hostname": "h", "port": "abc"}]}`},
		{name: "bad flag", content: `{"mqtts": [{"hostname": "h", "port": 1, "isHA": "maybe"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "absent.conf")
			if !tt.missing {
				path = writeSettings(t, tt.content)
			}

			s, err := Load(context.Background(), path)
			require.Error(t, err)
			assert.Nil(t, s)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, path, loadErr.Path)
			require.Error(t, loadErr.Unwrap())

			if tt.missing {
				assert.ErrorIs(t, err, os.ErrNotExist)
			}
		})
	}
}

func TestLoadFromEnvironmentJSON(t *testing.T) {
	t.Setenv("PENISTATS_CONFIG_JSON", `{"device": {"group": "env"}, "mqtts": [{"hostname": "h", "port": 1883}]}`)

	s, err := Load(context.Background(), filepath.Join(t.TempDir(), "ignored.conf"))
	require.NoError(t, err)
	assert.Equal(t, "env", s.Device.Group)
	require.Len(t, s.Destinations, 1)
}

func TestLoadFromEnvironmentFields(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("PENISTATS_DEVICE_GROUP", "fromenv")
	t.Setenv("PENISTATS_SCHEDULE_EVERY_MINUTES", "10")
	t.Setenv("PENISTATS_MQTTS", `[{"hostname": "h", "port": "8883", "caCertsPath": "/etc/ca.pem"}]`)

	s, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "fromenv", s.Device.Group)

	interval, ok := s.Interval()
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, interval)

	require.Len(t, s.Destinations, 1)
	assert.True(t, s.Destinations[0].TLSEnabled())
}

func validSettings() *Settings {
	port := Port(1883)

	return &Settings{
		Device: DeviceIdentity{Group: "g", Serial: "s", Model: "m", Name: "n"},
		Destinations: []BrokerDestination{
			{Hostname: "broker", Port: &port},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validSettings().Validate())

	empty := &Settings{Device: validSettings().Device}
	require.NoError(t, empty.Validate())

	noDevice := validSettings()
	noDevice.Device.Name = ""
	require.ErrorIs(t, noDevice.Validate(), ErrDeviceIncomplete)

	blankName := validSettings()
	blankName.Device.Name = "   "
	assert.False(t, blankName.Device.IsSet())
	require.ErrorIs(t, blankName.Validate(), ErrDeviceIncomplete)

	noPort := validSettings()
	noPort.Destinations = append(noPort.Destinations, BrokerDestination{Hostname: "other"})
	err := noPort.Validate()
	require.ErrorIs(t, err, ErrDestinationIncomplete)
	assert.Contains(t, err.Error(), "mqtts[1]")

	noHost := validSettings()
	noHost.Destinations[0].Hostname = ""
	noHost.Device.Group = ""
	err = noHost.Validate()
	require.ErrorIs(t, err, ErrDestinationIncomplete)
	require.ErrorIs(t, err, ErrDeviceIncomplete)

	badTransport := validSettings()
	badTransport.Destinations[0].Transport = "amqp"
	require.ErrorIs(t, badTransport.Validate(), ErrUnsupportedTransport)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Destinations = append(s.Destinations, BrokerDestination{ClientID: "keep", Transport: " NATS "})

	assert.False(t, s.Normalize())

	assert.NotEmpty(t, s.Destinations[0].ClientID)
	assert.Equal(t, TransportMQTT, s.Destinations[0].Transport)
	assert.Equal(t, "keep", s.Destinations[1].ClientID)
	assert.Equal(t, TransportNATS, s.Destinations[1].Transport)
}

func TestNormalizeGeneratesDistinctClientIDs(t *testing.T) {
	t.Parallel()

	s := &Settings{Destinations: []BrokerDestination{{}, {}}}
	s.Normalize()

	assert.NotEqual(t, s.Destinations[0].ClientID, s.Destinations[1].ClientID)
}

func TestUnusableScheduleFallsBackToSingleShot(t *testing.T) {
	t.Parallel()

	zero, negative := 0, -3

	tests := []struct {
		name     string
		schedule *ScheduleConfig
		dropped  bool
	}{
		{name: "absent", schedule: nil},
		{name: "no every", schedule: &ScheduleConfig{}, dropped: true},
		{name: "no minutes", schedule: &ScheduleConfig{Every: &Every{}}, dropped: true},
		{name: "zero", schedule: &ScheduleConfig{Every: &Every{Minutes: &zero}}, dropped: true},
		{name: "negative", schedule: &ScheduleConfig{Every: &Every{Minutes: &negative}}, dropped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			s.Schedule = tt.schedule

			assert.Equal(t, tt.dropped, s.Normalize())
			assert.Nil(t, s.Schedule)

			_, ok := s.Interval()
			assert.False(t, ok)
		})
	}
}

func TestLogFieldsMaskPassword(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Destinations[0].Username = "agent"
	s.Destinations[0].Password = "hunter2"

	fields := s.LogFields()

	out, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.Contains(t, string(out), `"password":"***"`)
	assert.Contains(t, string(out), `"every":"once"`)
}

func TestFlagCoercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{raw: `true`, want: true},
		{raw: `false`},
		{raw: `1`, want: true},
		{raw: `0`},
		{raw: `"True"`, want: true},
		{raw: `"0"`},
		{raw: `""`},
		{raw: `null`},
		{raw: `"yes please"`, wantErr: true},
		{raw: `[]`, wantErr: true},
	}

	for _, tt := range tests {
		var f Flag

		err := json.Unmarshal([]byte(tt.raw), &f)
		if tt.wantErr {
			require.Error(t, err, tt.raw)
			continue
		}

		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, bool(f), tt.raw)
	}
}

func TestPortCoercion(t *testing.T) {
	t.Parallel()

	var p Port

	require.NoError(t, json.Unmarshal([]byte(`8883`), &p))
	assert.Equal(t, Port(8883), p)

	require.NoError(t, json.Unmarshal([]byte(`" 1883 "`), &p))
	assert.Equal(t, Port(1883), p)

	require.ErrorIs(t, json.Unmarshal([]byte(`18.5`), &p), errInvalidPort)
	require.ErrorIs(t, json.Unmarshal([]byte(`true`), &p), errInvalidPort)
}
