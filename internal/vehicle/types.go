package vehicle

import (
	"fmt"

	"github.com/pkg/errors"
)

// LocalPose is a position in the local NED frame, in metres from the boot origin.
type LocalPose struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
}

// Add returns the component-wise sum of p and offset.
func (p LocalPose) Add(offset LocalPose) LocalPose {
	return LocalPose{p.North + offset.North, p.East + offset.East, p.Down + offset.Down}
}

// GlobalPose is a geodetic position. Alt is relative to the home altitude.
type GlobalPose struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Add returns the component-wise sum of p and offset.
func (p GlobalPose) Add(offset GlobalPose) GlobalPose {
	return GlobalPose{p.Lat + offset.Lat, p.Lon + offset.Lon, p.Alt + offset.Alt}
}

// Attitude in radians.
type Attitude struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

type Frame int

const (
	FrameLocalNED Frame = iota
	FrameGlobalRelativeAlt
)

func (f Frame) String() string {
	switch f {
	case FrameLocalNED:
		return "LOCAL_NED"
	case FrameGlobalRelativeAlt:
		return "GLOBAL_RELATIVE_ALT"
	default:
		return fmt.Sprintf("Frame(%d)", int(f))
	}
}

// PositionOnlyTypeMask enables x/y/z and ignores velocity, acceleration and yaw.
const PositionOnlyTypeMask uint16 = 0b0000111111111000

// PositionTarget is a single "fly to and hold" guidance command.
// Global targets carry lat in X, lon in Y and relative altitude in Z.
type PositionTarget struct {
	Frame    Frame
	TypeMask uint16
	X        float64
	Y        float64
	Z        float64
}

func NewLocalTarget(p LocalPose) PositionTarget {
	return PositionTarget{FrameLocalNED, PositionOnlyTypeMask, p.North, p.East, p.Down}
}

func NewGlobalTarget(p GlobalPose) PositionTarget {
	return PositionTarget{FrameGlobalRelativeAlt, PositionOnlyTypeMask, p.Lat, p.Lon, p.Alt}
}

// Mode is a flight mode understood by the autopilot.
type Mode int

const (
	ModeGuided Mode = iota + 1
	ModeRTL
	ModeLand
)

func (m Mode) String() string {
	switch m {
	case ModeGuided:
		return "GUIDED"
	case ModeRTL:
		return "RTL"
	case ModeLand:
		return "LAND"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Readiness is the advisory busy flag shared by all long-running operations.
type Readiness int

const (
	Busy Readiness = iota
	Ready
)

func (r Readiness) String() string {
	if r == Ready {
		return "OK"
	}
	return "BUSY"
}

// Request is a goto displacement relative to the pose at acceptance.
// Local is used for FrameLocalNED, Global for FrameGlobalRelativeAlt.
type Request struct {
	Frame  Frame
	Local  LocalPose
	Global GlobalPose
}

// Progress is emitted on every poll of a goto action.
type Progress struct {
	Distance float64 `json:"distance"`
}

type ProgressFn func(Progress)

const (
	ResultAborted   = 0
	ResultSucceeded = 1
)

// Result is the terminal outcome of a goto action.
type Result struct {
	Code int `json:"result"`
}

func (r Result) Succeeded() bool {
	return r.Code == ResultSucceeded
}

var (
	ErrLinkUnavailable = errors.New("vehicle link unavailable")
	ErrAborted         = errors.New("action aborted")
)
