package simlink

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/symonb/drone-knr/internal/vehicle"
)

// ConnectString selects the simulated vehicle instead of a MAVLink endpoint.
const ConnectString = "sim"

type Config struct {
	OriginLat    float64       `yaml:"origin_lat"`
	OriginLon    float64       `yaml:"origin_lon"`
	Speed        float64       `yaml:"speed"`
	ClimbRate    float64       `yaml:"climb_rate"`
	ArmableAfter time.Duration `yaml:"armable_after"`
	TickHz       float64       `yaml:"tick_hz"`
}

func DefaultConfig() Config {
	return Config{
		OriginLat:    -35.363261,
		OriginLon:    149.165230,
		Speed:        5,
		ClimbRate:    2.5,
		ArmableAfter: 3 * time.Second,
		TickHz:       10,
	}
}

// Snapshot is the simulated vehicle state at one instant.
type Snapshot struct {
	Local    vehicle.LocalPose
	Global   vehicle.GlobalPose
	Attitude vehicle.Attitude
	Mode     vehicle.Mode
	Armable  bool
	Armed    bool
}

type stateReq struct {
	reply chan Snapshot
}

type command struct {
	apply func(w *world)
	done  chan struct{}
}

// world is owned by the engine goroutine.
type world struct {
	geo     GeoRef
	cfg     Config
	started time.Time
	now     time.Time
	pos     vehicle.LocalPose
	yaw     float64
	target  *vehicle.LocalPose
	mode    vehicle.Mode
	armed   bool
}

// Link is a vehicle.Link backed by an in-process flight model.
type Link struct {
	cfg   Config
	geo   GeoRef
	clock clock.Clock

	cmdCh      chan command
	stateReqCh chan stateReq

	mu      sync.Mutex
	targets []vehicle.PositionTarget

	cancel context.CancelFunc
	done   chan struct{}
}

var _ vehicle.Link = (*Link)(nil)

// Start launches the engine. The vehicle sits disarmed on the ground at the origin.
func Start(cfg Config, clk clock.Clock) *Link {
	d := DefaultConfig()
	if cfg.Speed <= 0 {
		cfg.Speed = d.Speed
	}
	if cfg.ClimbRate <= 0 {
		cfg.ClimbRate = d.ClimbRate
	}
	if cfg.TickHz <= 0 {
		cfg.TickHz = d.TickHz
	}
	if cfg.OriginLat == 0 && cfg.OriginLon == 0 {
		cfg.OriginLat, cfg.OriginLon = d.OriginLat, d.OriginLon
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		cfg:        cfg,
		geo:        GeoRef{OriginLat: cfg.OriginLat, OriginLon: cfg.OriginLon},
		clock:      clk,
		cmdCh:      make(chan command),
		stateReqCh: make(chan stateReq),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	w := &world{geo: l.geo, cfg: cfg, started: clk.Now(), now: clk.Now()}
	go l.run(ctx, w)
	log.Printf("SIM: vehicle started at %.6f, %.6f", cfg.OriginLat, cfg.OriginLon)
	return l
}

func (l *Link) run(ctx context.Context, w *world) {
	defer close(l.done)
	ticker := l.clock.Ticker(time.Duration(float64(time.Second) / l.cfg.TickHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmdCh:
			w.step(l.clock.Now())
			cmd.apply(w)
			close(cmd.done)
		case req := <-l.stateReqCh:
			w.step(l.clock.Now())
			req.reply <- w.snapshot()
		case <-ticker.C:
			w.step(l.clock.Now())
		}
	}
}

func (w *world) snapshot() Snapshot {
	return Snapshot{
		Local:    w.pos,
		Global:   w.geo.ToGlobal(w.pos),
		Attitude: vehicle.Attitude{Yaw: w.yaw},
		Mode:     w.mode,
		Armable:  w.armable(),
		Armed:    w.armed,
	}
}

func (w *world) armable() bool {
	return w.now.Sub(w.started) >= w.cfg.ArmableAfter
}

// step advances the model to now. It runs on every tick and before every
// request, so reads always see the position at the current clock time.
func (w *world) step(now time.Time) {
	dt := now.Sub(w.now).Seconds()
	w.now = now
	if dt <= 0 || !w.armed || w.target == nil {
		return
	}

	dn := w.target.North - w.pos.North
	de := w.target.East - w.pos.East
	dd := w.target.Down - w.pos.Down

	if horiz, move := math.Hypot(dn, de), w.cfg.Speed*dt; horiz <= move {
		w.pos.North, w.pos.East = w.target.North, w.target.East
	} else {
		w.pos.North += dn / horiz * move
		w.pos.East += de / horiz * move
		w.yaw = math.Atan2(de, dn)
	}
	if move := w.cfg.ClimbRate * dt; math.Abs(dd) <= move {
		w.pos.Down = w.target.Down
	} else {
		w.pos.Down += math.Copysign(move, dd)
	}

	if w.pos == *w.target && w.mode != vehicle.ModeGuided && w.pos.Down >= 0 {
		log.Printf("SIM: landed, disarming")
		w.armed = false
		w.target = nil
	}
}

// submit hands apply to the engine and waits until it has run.
func (l *Link) submit(ctx context.Context, apply func(w *world)) error {
	cmd := command{apply: apply, done: make(chan struct{})}
	select {
	case l.cmdCh <- cmd:
	case <-l.done:
		return errors.WithMessage(vehicle.ErrLinkUnavailable, "simulator stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-l.done:
		return errors.WithMessage(vehicle.ErrLinkUnavailable, "simulator stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current vehicle state.
func (l *Link) State(ctx context.Context) (Snapshot, error) {
	req := stateReq{reply: make(chan Snapshot, 1)}
	select {
	case l.stateReqCh <- req:
	case <-l.done:
		return Snapshot{}, errors.WithMessage(vehicle.ErrLinkUnavailable, "simulator stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-l.done:
		return Snapshot{}, errors.WithMessage(vehicle.ErrLinkUnavailable, "simulator stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (l *Link) CurrentLocal(ctx context.Context) (vehicle.LocalPose, error) {
	s, err := l.State(ctx)
	return s.Local, err
}

func (l *Link) CurrentGlobal(ctx context.Context) (vehicle.GlobalPose, error) {
	s, err := l.State(ctx)
	return s.Global, err
}

func (l *Link) CurrentAttitude(ctx context.Context) (vehicle.Attitude, error) {
	s, err := l.State(ctx)
	return s.Attitude, err
}

// SendPositionTarget records target and, in GUIDED mode while armed, flies to it.
func (l *Link) SendPositionTarget(ctx context.Context, target vehicle.PositionTarget) error {
	l.mu.Lock()
	l.targets = append(l.targets, target)
	l.mu.Unlock()

	return l.submit(ctx, func(w *world) {
		if w.mode != vehicle.ModeGuided || !w.armed {
			log.Printf("SIM: ignoring %v target in mode %v (armed=%v)", target.Frame, w.mode, w.armed)
			return
		}
		var dest vehicle.LocalPose
		if target.Frame == vehicle.FrameGlobalRelativeAlt {
			dest = w.geo.ToLocal(vehicle.GlobalPose{Lat: target.X, Lon: target.Y, Alt: target.Z})
		} else {
			dest = vehicle.LocalPose{North: target.X, East: target.Y, Down: target.Z}
		}
		w.target = &dest
	})
}

// Targets returns every position target sent so far.
func (l *Link) Targets() []vehicle.PositionTarget {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]vehicle.PositionTarget(nil), l.targets...)
}

// LastTarget returns the most recent position target, if any.
func (l *Link) LastTarget() (vehicle.PositionTarget, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.targets) == 0 {
		return vehicle.PositionTarget{}, false
	}
	return l.targets[len(l.targets)-1], true
}

func (l *Link) SetMode(ctx context.Context, mode vehicle.Mode) error {
	return l.submit(ctx, func(w *world) {
		w.mode = mode
		switch mode {
		case vehicle.ModeRTL:
			if w.armed {
				home := vehicle.LocalPose{}
				w.target = &home
			}
		case vehicle.ModeLand:
			if w.armed {
				ground := vehicle.LocalPose{North: w.pos.North, East: w.pos.East}
				w.target = &ground
			}
		}
		log.Printf("SIM: mode %v", mode)
	})
}

func (l *Link) IsArmable(ctx context.Context) (bool, error) {
	s, err := l.State(ctx)
	return s.Armable, err
}

// Arm is ignored unless the vehicle is armable and in GUIDED mode.
func (l *Link) Arm(ctx context.Context) error {
	return l.submit(ctx, func(w *world) {
		if !w.armable() || w.mode != vehicle.ModeGuided {
			log.Printf("SIM: arming rejected")
			return
		}
		w.armed = true
	})
}

func (l *Link) IsArmed(ctx context.Context) (bool, error) {
	s, err := l.State(ctx)
	return s.Armed, err
}

func (l *Link) Takeoff(ctx context.Context, altitude float64) error {
	return l.submit(ctx, func(w *world) {
		if !w.armed || w.mode != vehicle.ModeGuided {
			log.Printf("SIM: takeoff rejected")
			return
		}
		dest := vehicle.LocalPose{North: w.pos.North, East: w.pos.East, Down: -altitude}
		w.target = &dest
	})
}

// Close stops the engine. Calls after the first are no-ops.
func (l *Link) Close() error {
	l.cancel()
	<-l.done
	return nil
}
