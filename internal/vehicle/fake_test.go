package vehicle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// fakeLink replays scripted reads. The last element of each script repeats.
type fakeLink struct {
	mu sync.Mutex

	local       []LocalPose
	localCalls  int
	failLocalAt int

	global      []GlobalPose
	globalCalls int

	attitude Attitude

	armable      []bool
	armableCalls int
	armed        []bool
	armedCalls   int
	armCalls     int

	modes      []Mode
	modeErr    error
	takeoffAlt float64

	targets []PositionTarget
	onSend  func(PositionTarget)

	closed bool
}

func (f *fakeLink) CurrentLocal(ctx context.Context) (LocalPose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localCalls++
	if f.failLocalAt == f.localCalls {
		return LocalPose{}, ErrLinkUnavailable
	}
	return f.local[min(f.localCalls, len(f.local))-1], nil
}

func (f *fakeLink) CurrentGlobal(ctx context.Context) (GlobalPose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalCalls++
	return f.global[min(f.globalCalls, len(f.global))-1], nil
}

func (f *fakeLink) CurrentAttitude(ctx context.Context) (Attitude, error) {
	return f.attitude, nil
}

func (f *fakeLink) SendPositionTarget(ctx context.Context, target PositionTarget) error {
	f.mu.Lock()
	f.targets = append(f.targets, target)
	onSend := f.onSend
	f.mu.Unlock()
	if onSend != nil {
		onSend(target)
	}
	return nil
}

// LastTarget returns the most recent commanded target.
func (f *fakeLink) LastTarget() PositionTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targets[len(f.targets)-1]
}

func (f *fakeLink) SetMode(ctx context.Context, mode Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	return f.modeErr
}

func (f *fakeLink) IsArmable(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armableCalls++
	return f.armable[min(f.armableCalls, len(f.armable))-1], nil
}

func (f *fakeLink) Arm(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armCalls++
	return nil
}

func (f *fakeLink) IsArmed(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armedCalls++
	return f.armed[min(f.armedCalls, len(f.armed))-1], nil
}

func (f *fakeLink) Takeoff(ctx context.Context, altitude float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takeoffAlt = altitude
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// drive runs fn while advancing the mock clock until fn returns.
func drive(t *testing.T, mock *clock.Mock, step time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	for i := 0; ; i++ {
		select {
		case <-done:
			return
		default:
		}
		if i > 100000 {
			t.Fatal("operation did not finish")
		}
		mock.Add(step)
	}
}

func readyState() *State {
	s := NewState()
	s.Set(Ready)
	return s
}
