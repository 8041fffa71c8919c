package vehicle

import (
	"context"
	"io"
)

// PoseSource reads the vehicle pose from the guidance link. Every call is a fresh read.
type PoseSource interface {
	CurrentLocal(ctx context.Context) (LocalPose, error)
	CurrentGlobal(ctx context.Context) (GlobalPose, error)
	CurrentAttitude(ctx context.Context) (Attitude, error)
}

// GuidanceLink transmits position targets. Sending is fire-and-forget and
// sending the same target twice only refreshes the hold point.
type GuidanceLink interface {
	SendPositionTarget(ctx context.Context, target PositionTarget) error
}

type Autopilot interface {
	SetMode(ctx context.Context, mode Mode) error
	IsArmable(ctx context.Context) (bool, error)
	Arm(ctx context.Context) error
	IsArmed(ctx context.Context) (bool, error)
	Takeoff(ctx context.Context, altitude float64) error
}

// Link is the full vehicle connection.
type Link interface {
	PoseSource
	GuidanceLink
	Autopilot
	io.Closer
}
