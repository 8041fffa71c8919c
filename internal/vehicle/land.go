package vehicle

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type LandSequencer struct {
	autopilot Autopilot
	state     *State
	clock     clock.Clock

	PollInterval time.Duration
}

func NewLandSequencer(autopilot Autopilot, state *State, clk clock.Clock) *LandSequencer {
	return &LandSequencer{autopilot, state, clk, time.Second}
}

// Land switches to LAND and blocks until the autopilot disarms on touchdown.
func (l *LandSequencer) Land(ctx context.Context) error {
	l.state.Set(Busy)
	if err := l.autopilot.SetMode(ctx, ModeLand); err != nil {
		return errors.WithMessage(err, "set LAND mode")
	}

	for {
		armed, err := l.autopilot.IsArmed(ctx)
		if err != nil {
			log.Printf("Armed check failed: %v", err)
		} else if !armed {
			break
		}
		if err := sleep(ctx, l.clock, l.PollInterval); err != nil {
			return errors.WithMessage(err, "waiting for touchdown")
		}
	}

	log.Printf("Landed")
	l.state.Set(Ready)
	return nil
}
