package main

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/symonb/drone-knr/internal/config"
	"github.com/symonb/drone-knr/internal/simlink"
	"github.com/symonb/drone-knr/internal/vehicle"
)

// teardownLink records the mode changes and close issued on teardown.
type teardownLink struct {
	*simlink.Link
	modes  []vehicle.Mode
	closed bool
}

func (l *teardownLink) SetMode(ctx context.Context, mode vehicle.Mode) error {
	l.modes = append(l.modes, mode)
	return l.Link.SetMode(ctx, mode)
}

func (l *teardownLink) Close() error {
	l.closed = true
	return l.Link.Close()
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DeviceID = "drone-1"
	cfg.MAVLink.Connect = simlink.ConnectString
	cfg.TelemetryInterval = time.Hour
	return cfg
}

func TestRunReturnsToLaunchWhenSetupFails(t *testing.T) {
	mock := clock.NewMock()
	link := &teardownLink{Link: simlink.Start(simlink.DefaultConfig(), mock)}

	cfg := testConfig(t)
	cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	cfg.MQTT.PrivateKeyPath = filepath.Join(t.TempDir(), "missing.pem")

	err := run(cfg, link, mock, make(chan os.Signal))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, link.modes, test.ShouldResemble, []vehicle.Mode{vehicle.ModeRTL})
	test.That(t, link.closed, test.ShouldBeTrue)
}

func TestRunReturnsToLaunchOnSignal(t *testing.T) {
	mock := clock.NewMock()
	link := &teardownLink{Link: simlink.Start(simlink.DefaultConfig(), mock)}

	signals := make(chan os.Signal, 1)
	signals <- syscall.SIGTERM
	err := run(testConfig(t), link, mock, signals)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, link.modes, test.ShouldResemble, []vehicle.Mode{vehicle.ModeRTL})
	test.That(t, link.closed, test.ShouldBeTrue)
}
