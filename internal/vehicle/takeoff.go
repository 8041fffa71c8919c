package vehicle

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// TakeoffReachedRatio triggers just below the target altitude.
const TakeoffReachedRatio = 0.97

type TakeoffSequencer struct {
	autopilot Autopilot
	pose      PoseSource
	state     *State
	clock     clock.Clock

	PollInterval time.Duration
}

func NewTakeoffSequencer(autopilot Autopilot, pose PoseSource, state *State, clk clock.Clock) *TakeoffSequencer {
	return &TakeoffSequencer{autopilot, pose, state, clk, time.Second}
}

// Takeoff commands a climb and blocks until the relative altitude reaches
// 97% of altitude.
func (t *TakeoffSequencer) Takeoff(ctx context.Context, altitude float64) error {
	t.state.Set(Busy)
	if err := t.autopilot.Takeoff(ctx, altitude); err != nil {
		return errors.WithMessagef(err, "takeoff to %.1f m", altitude)
	}

	for {
		pose, err := t.pose.CurrentGlobal(ctx)
		if err != nil {
			log.Printf("Altitude read failed: %v", err)
		} else {
			log.Printf("Altitude: %.2f", pose.Alt)
			if pose.Alt >= altitude*TakeoffReachedRatio {
				break
			}
		}
		if err := sleep(ctx, t.clock, t.PollInterval); err != nil {
			return errors.WithMessage(err, "waiting for takeoff altitude")
		}
	}

	log.Printf("Reached target altitude")
	t.state.Set(Ready)
	return nil
}
