package vehicle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type ArmState int

const (
	Unarmed ArmState = iota
	ModeSet
	AwaitArmable
	AwaitArmed
	Armed
)

func (s ArmState) String() string {
	switch s {
	case Unarmed:
		return "UNARMED"
	case ModeSet:
		return "MODE_SET"
	case AwaitArmable:
		return "AWAIT_ARMABLE"
	case AwaitArmed:
		return "AWAIT_ARMED"
	case Armed:
		return "ARMED"
	default:
		return fmt.Sprintf("ArmState(%d)", int(s))
	}
}

// ArmSequencer switches the vehicle to GUIDED and waits for it to become
// armable and then armed. Both waits poll without a limit; only ctx ends them.
type ArmSequencer struct {
	autopilot Autopilot
	state     *State
	clock     clock.Clock

	ArmablePollInterval time.Duration
	ArmedPollInterval   time.Duration

	mu      sync.Mutex
	current ArmState
}

func NewArmSequencer(autopilot Autopilot, state *State, clk clock.Clock) *ArmSequencer {
	return &ArmSequencer{
		autopilot:           autopilot,
		state:               state,
		clock:               clk,
		ArmablePollInterval: 5 * time.Second,
		ArmedPollInterval:   time.Second,
	}
}

func (a *ArmSequencer) State() ArmState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *ArmSequencer) enter(s ArmState) {
	a.mu.Lock()
	a.current = s
	a.mu.Unlock()
}

// Arm blocks until the vehicle reports armed. A ctx error leaves the readiness Busy.
func (a *ArmSequencer) Arm(ctx context.Context) error {
	a.state.Set(Busy)

	if err := a.autopilot.SetMode(ctx, ModeGuided); err != nil {
		return errors.WithMessage(err, "set GUIDED mode")
	}
	a.enter(ModeSet)

	a.enter(AwaitArmable)
	for {
		armable, err := a.autopilot.IsArmable(ctx)
		if err != nil {
			log.Printf("Armable check failed: %v", err)
		} else if armable {
			break
		}
		log.Printf("Waiting for vehicle to become armable...")
		if err := sleep(ctx, a.clock, a.ArmablePollInterval); err != nil {
			return errors.WithMessage(err, "waiting for armable")
		}
	}
	log.Printf("Vehicle is now armable")

	if err := a.autopilot.Arm(ctx); err != nil {
		return errors.WithMessage(err, "arm")
	}
	a.enter(AwaitArmed)
	for {
		armed, err := a.autopilot.IsArmed(ctx)
		if err != nil {
			log.Printf("Armed check failed: %v", err)
		} else if armed {
			break
		}
		log.Printf("Waiting for drone to become armed...")
		if err := sleep(ctx, a.clock, a.ArmedPollInterval); err != nil {
			return errors.WithMessage(err, "waiting for armed")
		}
	}

	a.enter(Armed)
	log.Printf("Vehicle is now armed")
	a.state.Set(Ready)
	return nil
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
