package vehicle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type GotoState int

const (
	GotoAccepted GotoState = iota
	GotoDestinationComputed
	GotoBusyCommanded
	GotoPolling
	GotoSucceeded
	GotoAborted
)

func (s GotoState) String() string {
	switch s {
	case GotoAccepted:
		return "ACCEPTED"
	case GotoDestinationComputed:
		return "DESTINATION_COMPUTED"
	case GotoBusyCommanded:
		return "BUSY_COMMANDED"
	case GotoPolling:
		return "POLLING"
	case GotoSucceeded:
		return "SUCCEEDED"
	case GotoAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("GotoState(%d)", int(s))
	}
}

type ControllerConfig struct {
	PollInterval time.Duration
	// Timeout bounds a single goto. Zero polls until arrival.
	Timeout time.Duration
	// LegacyGlobalSend pushes global destinations through the local NED send,
	// lat/lon as north/east and altitude as down.
	LegacyGlobalSend bool
}

// Controller runs goto actions: one destination per request, one guidance
// command, then distance polling until arrival.
type Controller struct {
	pose  PoseSource
	link  GuidanceLink
	state *State
	clock clock.Clock
	cfg   ControllerConfig

	// OnState, when set, observes every state a goto passes through.
	OnState func(GotoState)
}

func NewController(pose PoseSource, link GuidanceLink, state *State, clk clock.Clock, cfg ControllerConfig) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Controller{pose: pose, link: link, state: state, clock: clk, cfg: cfg}
}

func (c *Controller) enter(s GotoState) {
	if c.OnState != nil {
		c.OnState(s)
	}
}

// Goto dispatches on the request frame.
func (c *Controller) Goto(ctx context.Context, req Request, progress ProgressFn) (Result, error) {
	switch req.Frame {
	case FrameLocalNED:
		return c.GotoRelative(ctx, req.Local, progress)
	case FrameGlobalRelativeAlt:
		return c.GotoGlobal(ctx, req.Global, progress)
	default:
		return Result{ResultAborted}, errors.Errorf("unsupported frame %v", req.Frame)
	}
}

func (c *Controller) GotoRelative(ctx context.Context, offset LocalPose, progress ProgressFn) (Result, error) {
	log.Printf("Goto relative action registered: %+v", offset)
	c.enter(GotoAccepted)
	c.state.Set(Busy)
	current, err := c.pose.CurrentLocal(ctx)
	if err != nil {
		c.enter(GotoAborted)
		return Result{ResultAborted}, errors.WithMessage(err, "read local pose")
	}

	destination := current.Add(offset)
	c.enter(GotoDestinationComputed)
	log.Printf("Destination in local frame: north %.2f, east %.2f, down %.2f", destination.North, destination.East, destination.Down)

	remaining := func(ctx context.Context) (float64, error) {
		pose, err := c.pose.CurrentLocal(ctx)
		if err != nil {
			return 0, err
		}
		return LocalDistance(pose, destination), nil
	}
	return c.run(ctx, NewLocalTarget(destination), remaining, progress)
}

func (c *Controller) GotoGlobal(ctx context.Context, offset GlobalPose, progress ProgressFn) (Result, error) {
	log.Printf("Goto global action registered: %+v", offset)
	c.enter(GotoAccepted)
	c.state.Set(Busy)
	current, err := c.pose.CurrentGlobal(ctx)
	if err != nil {
		c.enter(GotoAborted)
		return Result{ResultAborted}, errors.WithMessage(err, "read global pose")
	}

	destination := current.Add(offset)
	c.enter(GotoDestinationComputed)
	log.Printf("Destination in global frame: lat %.7f, lon %.7f, alt %.2f", destination.Lat, destination.Lon, destination.Alt)

	target := NewGlobalTarget(destination)
	if c.cfg.LegacyGlobalSend {
		target.Frame = FrameLocalNED
	}

	remaining := func(ctx context.Context) (float64, error) {
		pose, err := c.pose.CurrentGlobal(ctx)
		if err != nil {
			return 0, err
		}
		return GlobalDistance(pose, destination), nil
	}
	return c.run(ctx, target, remaining, progress)
}

func (c *Controller) run(ctx context.Context, target PositionTarget, remaining func(context.Context) (float64, error), progress ProgressFn) (Result, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = c.clock.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := c.link.SendPositionTarget(ctx, target); err != nil {
		c.enter(GotoAborted)
		return Result{ResultAborted}, errors.WithMessage(err, "send position target")
	}
	c.enter(GotoBusyCommanded)

	c.enter(GotoPolling)
	for {
		distance, err := remaining(ctx)
		if err != nil {
			log.Printf("Distance poll failed: %v", err)
		} else {
			log.Printf("Distance remaining: %.2f m", distance)
			if progress != nil {
				progress(Progress{Distance: distance})
			}
			if distance <= ArrivalTolerance {
				break
			}
		}
		if err := sleep(ctx, c.clock, c.cfg.PollInterval); err != nil {
			log.Printf("Goto aborted: %v", err)
			c.enter(GotoAborted)
			return Result{ResultAborted}, errors.WithMessagef(ErrAborted, "%v", err)
		}
	}

	c.enter(GotoSucceeded)
	c.state.Set(Ready)
	return Result{ResultSucceeded}, nil
}
