package mavlink

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/pkg/errors"

	"github.com/symonb/drone-knr/internal/vehicle"
)

const (
	DefaultConnect = "127.0.0.1:14550"
	DefaultBaud    = 57600
)

// ArduCopter custom flight modes.
const (
	copterModeGuided = 4
	copterModeRTL    = 6
	copterModeLand   = 9
)

var ErrNoHeartbeat = errors.New("no heartbeat from vehicle")

type Config struct {
	Connect          string        `yaml:"connect"`
	Baud             int           `yaml:"baud"`
	SystemID         int           `yaml:"system_id"`
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	StartupRetries   int           `yaml:"startup_retries"`
}

func DefaultConfig() Config {
	return Config{
		Connect:          DefaultConnect,
		Baud:             DefaultBaud,
		SystemID:         255,
		HeartbeatTimeout: 5 * time.Second,
		ConnectTimeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Connect == "" {
		c.Connect = d.Connect
	}
	if c.Baud <= 0 {
		c.Baud = d.Baud
	}
	if c.SystemID <= 0 || c.SystemID > 255 {
		c.SystemID = d.SystemID
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	return c
}

// Link is a vehicle.Link over a MAVLink connection.
type Link struct {
	node  *gomavlib.Node
	write func(message.Message)
	clock clock.Clock
	cfg   Config
	snap  *snapshot
	done  chan struct{}
}

var _ vehicle.Link = (*Link)(nil)

func newLink(write func(message.Message), clk clock.Clock, cfg Config) *Link {
	return &Link{
		write: write,
		clock: clk,
		cfg:   cfg,
		snap:  newSnapshot(),
		done:  make(chan struct{}),
	}
}

// Connect opens the connection and waits for the vehicle heartbeat. Failed
// attempts are retried with exponential back-off up to cfg.StartupRetries times.
func Connect(ctx context.Context, cfg Config, clk clock.Clock) (*Link, error) {
	cfg = cfg.withDefaults()
	endpoint, err := parseEndpoint(cfg.Connect, cfg.Baud)
	if err != nil {
		return nil, err
	}

	wait := time.Second
	for attempt := 0; ; attempt++ {
		link, err := dial(ctx, cfg, endpoint, clk)
		if err == nil {
			return link, nil
		}
		if attempt >= cfg.StartupRetries || ctx.Err() != nil {
			return nil, errors.WithMessagef(err, "connect %s", cfg.Connect)
		}
		log.Printf("MAVLink: connecting to %s failed: %v, retrying in %v", cfg.Connect, err, wait)
		timer := clk.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.WithMessagef(ctx.Err(), "connect %s", cfg.Connect)
		case <-timer.C:
		}
		if wait *= 2; wait > 30*time.Second {
			wait = 30 * time.Second
		}
	}
}

func dial(ctx context.Context, cfg Config, endpoint gomavlib.EndpointConf, clk clock.Clock) (*Link, error) {
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:           []gomavlib.EndpointConf{endpoint},
		Dialect:             common.Dialect,
		OutVersion:          gomavlib.V2,
		OutSystemID:         byte(cfg.SystemID),
		StreamRequestEnable: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create MAVLink node")
	}

	l := newLink(func(m message.Message) { node.WriteMessageAll(m) }, clk, cfg)
	l.node = node
	go l.run()

	wctx, cancel := clk.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	select {
	case <-l.snap.connected:
		sys, comp := l.snap.target()
		log.Printf("MAVLink: vehicle %d/%d connected on %s", sys, comp, cfg.Connect)
		return l, nil
	case <-wctx.Done():
		l.Close()
		return nil, ErrNoHeartbeat
	}
}

func (l *Link) run() {
	defer close(l.done)
	for evt := range l.node.Events() {
		switch e := evt.(type) {
		case *gomavlib.EventChannelOpen:
			log.Printf("MAVLink: channel open: %v", e.Channel)
		case *gomavlib.EventChannelClose:
			log.Printf("MAVLink: channel closed: %v", e.Channel)
		case *gomavlib.EventFrame:
			l.snap.handle(e.SystemID(), e.ComponentID(), e.Message(), l.clock.Now())
		}
	}
}

// Close shuts down the node and waits for the event loop to drain.
func (l *Link) Close() error {
	if l.node == nil {
		return nil
	}
	l.node.Close()
	<-l.done
	return nil
}

// fresh returns ErrLinkUnavailable unless the last heartbeat is recent.
// Caller holds snap.mu.
func (l *Link) fresh() error {
	if l.snap.heartbeat == nil {
		return errors.WithMessage(vehicle.ErrLinkUnavailable, "no heartbeat yet")
	}
	if age := l.clock.Since(l.snap.heartbeatAt); age > l.cfg.HeartbeatTimeout {
		return errors.WithMessagef(vehicle.ErrLinkUnavailable, "last heartbeat %v ago", age)
	}
	return nil
}

func (l *Link) CurrentLocal(ctx context.Context) (vehicle.LocalPose, error) {
	l.snap.mu.RLock()
	defer l.snap.mu.RUnlock()
	if err := l.fresh(); err != nil {
		return vehicle.LocalPose{}, err
	}
	m := l.snap.local
	if m == nil {
		return vehicle.LocalPose{}, errors.WithMessage(vehicle.ErrLinkUnavailable, "no LOCAL_POSITION_NED yet")
	}
	return vehicle.LocalPose{North: float64(m.X), East: float64(m.Y), Down: float64(m.Z)}, nil
}

func (l *Link) CurrentGlobal(ctx context.Context) (vehicle.GlobalPose, error) {
	l.snap.mu.RLock()
	defer l.snap.mu.RUnlock()
	if err := l.fresh(); err != nil {
		return vehicle.GlobalPose{}, err
	}
	m := l.snap.global
	if m == nil {
		return vehicle.GlobalPose{}, errors.WithMessage(vehicle.ErrLinkUnavailable, "no GLOBAL_POSITION_INT yet")
	}
	return vehicle.GlobalPose{
		Lat: float64(m.Lat) / 1e7,
		Lon: float64(m.Lon) / 1e7,
		Alt: float64(m.RelativeAlt) / 1000,
	}, nil
}

func (l *Link) CurrentAttitude(ctx context.Context) (vehicle.Attitude, error) {
	l.snap.mu.RLock()
	defer l.snap.mu.RUnlock()
	if err := l.fresh(); err != nil {
		return vehicle.Attitude{}, err
	}
	m := l.snap.attitude
	if m == nil {
		return vehicle.Attitude{}, errors.WithMessage(vehicle.ErrLinkUnavailable, "no ATTITUDE yet")
	}
	return vehicle.Attitude{Roll: float64(m.Roll), Pitch: float64(m.Pitch), Yaw: float64(m.Yaw)}, nil
}

func (l *Link) SendPositionTarget(ctx context.Context, target vehicle.PositionTarget) error {
	sys, comp := l.snap.target()
	l.write(encodePositionTarget(target, sys, comp, l.bootMillis()))
	return nil
}

func (l *Link) SetMode(ctx context.Context, mode vehicle.Mode) error {
	var custom float32
	switch mode {
	case vehicle.ModeGuided:
		custom = copterModeGuided
	case vehicle.ModeRTL:
		custom = copterModeRTL
	case vehicle.ModeLand:
		custom = copterModeLand
	default:
		return errors.Errorf("unsupported mode %v", mode)
	}
	return l.command(common.MAV_CMD_DO_SET_MODE, float32(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED), custom)
}

func (l *Link) IsArmable(ctx context.Context) (bool, error) {
	l.snap.mu.RLock()
	defer l.snap.mu.RUnlock()
	if err := l.fresh(); err != nil {
		return false, err
	}
	switch l.snap.heartbeat.SystemStatus {
	case common.MAV_STATE_UNINIT, common.MAV_STATE_BOOT, common.MAV_STATE_CALIBRATING:
		return false, nil
	}
	return l.snap.gps != nil && l.snap.gps.FixType >= common.GPS_FIX_TYPE_2D_FIX, nil
}

func (l *Link) Arm(ctx context.Context) error {
	return l.command(common.MAV_CMD_COMPONENT_ARM_DISARM, 1)
}

func (l *Link) IsArmed(ctx context.Context) (bool, error) {
	l.snap.mu.RLock()
	defer l.snap.mu.RUnlock()
	if err := l.fresh(); err != nil {
		return false, err
	}
	return l.snap.heartbeat.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0, nil
}

func (l *Link) Takeoff(ctx context.Context, altitude float64) error {
	return l.command(common.MAV_CMD_NAV_TAKEOFF, 0, 0, 0, 0, 0, 0, float32(altitude))
}

func (l *Link) command(cmd common.MAV_CMD, params ...float32) error {
	if len(params) > 7 {
		return errors.Errorf("%v: too many params", cmd)
	}
	sys, comp := l.snap.target()
	if sys == 0 {
		return errors.WithMessagef(vehicle.ErrLinkUnavailable, "%v: vehicle not identified", cmd)
	}
	l.write(commandLong(sys, comp, cmd, params...))
	return nil
}

func (l *Link) bootMillis() uint32 {
	return uint32(l.clock.Now().UnixMilli())
}

func commandLong(sys, comp uint8, cmd common.MAV_CMD, params ...float32) *common.MessageCommandLong {
	var p [7]float32
	copy(p[:], params)
	return &common.MessageCommandLong{
		TargetSystem:    sys,
		TargetComponent: comp,
		Command:         cmd,
		Param1:          p[0],
		Param2:          p[1],
		Param3:          p[2],
		Param4:          p[3],
		Param5:          p[4],
		Param6:          p[5],
		Param7:          p[6],
	}
}

func encodePositionTarget(t vehicle.PositionTarget, sys, comp uint8, bootMillis uint32) message.Message {
	if t.Frame == vehicle.FrameGlobalRelativeAlt {
		return &common.MessageSetPositionTargetGlobalInt{
			TimeBootMs:      bootMillis,
			TargetSystem:    sys,
			TargetComponent: comp,
			CoordinateFrame: common.MAV_FRAME_GLOBAL_RELATIVE_ALT_INT,
			TypeMask:        common.POSITION_TARGET_TYPEMASK(t.TypeMask),
			LatInt:          int32(math.Round(t.X * 1e7)),
			LonInt:          int32(math.Round(t.Y * 1e7)),
			Alt:             float32(t.Z),
		}
	}
	return &common.MessageSetPositionTargetLocalNed{
		TimeBootMs:      bootMillis,
		TargetSystem:    sys,
		TargetComponent: comp,
		CoordinateFrame: common.MAV_FRAME_LOCAL_NED,
		TypeMask:        common.POSITION_TARGET_TYPEMASK(t.TypeMask),
		X:               float32(t.X),
		Y:               float32(t.Y),
		Z:               float32(t.Z),
	}
}
