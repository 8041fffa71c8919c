package vehicle

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
)

type Config struct {
	GotoPollInterval     time.Duration `yaml:"goto_poll_interval"`
	GotoTimeout          time.Duration `yaml:"goto_timeout"`
	ArmablePollInterval  time.Duration `yaml:"armable_poll_interval"`
	ArmedPollInterval    time.Duration `yaml:"armed_poll_interval"`
	AltitudePollInterval time.Duration `yaml:"altitude_poll_interval"`
	LegacyGlobalSend     bool          `yaml:"legacy_global_send"`
}

func DefaultConfig() Config {
	return Config{
		GotoPollInterval:     time.Second,
		ArmablePollInterval:  5 * time.Second,
		ArmedPollInterval:    time.Second,
		AltitudePollInterval: time.Second,
	}
}

// Vehicle owns a connected link and the sequencers driving it.
type Vehicle struct {
	Link    Link
	State   *State
	Arming  *ArmSequencer
	Takeoff *TakeoffSequencer
	Land    *LandSequencer
	Goto    *Controller
}

// New wires the sequencers to link and marks the vehicle ready.
func New(link Link, cfg Config, clk clock.Clock) *Vehicle {
	state := NewState()

	arming := NewArmSequencer(link, state, clk)
	if cfg.ArmablePollInterval > 0 {
		arming.ArmablePollInterval = cfg.ArmablePollInterval
	}
	if cfg.ArmedPollInterval > 0 {
		arming.ArmedPollInterval = cfg.ArmedPollInterval
	}

	takeoff := NewTakeoffSequencer(link, link, state, clk)
	if cfg.AltitudePollInterval > 0 {
		takeoff.PollInterval = cfg.AltitudePollInterval
	}

	land := NewLandSequencer(link, state, clk)
	if cfg.ArmedPollInterval > 0 {
		land.PollInterval = cfg.ArmedPollInterval
	}

	controller := NewController(link, link, state, clk, ControllerConfig{
		PollInterval:     cfg.GotoPollInterval,
		Timeout:          cfg.GotoTimeout,
		LegacyGlobalSend: cfg.LegacyGlobalSend,
	})

	state.Set(Ready)
	log.Printf("Copter connected, ready to arm")
	return &Vehicle{link, state, arming, takeoff, land, controller}
}

// Close returns the vehicle to launch and releases the link. The RTL
// command is sent even if nothing else has used the vehicle.
func (v *Vehicle) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("Returning to launch")
	err := v.Link.SetMode(ctx, ModeRTL)
	return multierr.Combine(err, v.Link.Close())
}
