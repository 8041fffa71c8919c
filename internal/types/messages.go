package types

import (
	"time"

	"github.com/symonb/drone-knr/internal/vehicle"
)

// Requests.
const (
	GetAttitude         = "get-attitude"
	GetLocationRelative = "get-location-relative"
	GetStatus           = "get-status"
	Arm                 = "arm"
	Takeoff             = "takeoff"
	Land                = "land"
	GotoRelative        = "goto-relative"
	GotoGlobal          = "goto-global"
	Cancel              = "cancel"
)

// Replies and events.
const (
	AttitudeReply         = "attitude"
	LocationRelativeReply = "location-relative"
	StatusReply           = "status"
	GotoAccepted          = "goto-accepted"
	GotoProgress          = "goto-progress"
	GotoResult            = "goto-result"
	ArmResult             = "arm-result"
	TakeoffResult         = "takeoff-result"
	LandResult            = "land-result"
	CancelResult          = "cancel-result"
	CommandRejected       = "command-rejected"
	Telemetry             = "telemetry"
	DeviceState           = "device-state"
)

type ArmRequest struct{}

type TakeoffRequest struct {
	Altitude float64 `json:"altitude"`
}

// GotoRelativeRequest is an offset in the local NED frame.
type LandRequest struct{}

type GotoRelativeRequest struct {
	vehicle.LocalPose
}

// GotoGlobalRequest is an offset in degrees and metres added to the current global pose.
type GotoGlobalRequest struct {
	vehicle.GlobalPose
}

type CancelRequest struct {
	ID string `json:"id"`
}

type StatusRequest struct{}

type AttitudeQuery struct{}

type LocationRelativeQuery struct{}

type ActionAccepted struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

type ActionProgress struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// ActionResult finishes every action. Result is 1 on success and 0 otherwise.
type ActionResult struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Result int    `json:"result"`
	Error  string `json:"error,omitempty"`
}

type CancelResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

type Rejected struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

type ActionStatus struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

type Status struct {
	Readiness string         `json:"readiness"`
	ArmState  string         `json:"arm_state"`
	Actions   []ActionStatus `json:"actions"`
}

// TelemetryReport is posted periodically. Fields that could not be read are nil.
type TelemetryReport struct {
	Timestamp int64               `json:"timestamp"`
	Readiness string              `json:"readiness"`
	Attitude  *vehicle.Attitude   `json:"attitude,omitempty"`
	Local     *vehicle.LocalPose  `json:"local,omitempty"`
	Global    *vehicle.GlobalPose `json:"global,omitempty"`
}

type DeviceStarted struct {
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}
