package vehicle

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestLand(t *testing.T) {
	link := &fakeLink{armed: []bool{true, true, false}}
	state := readyState()
	mock := clock.NewMock()
	land := NewLandSequencer(link, state, mock)

	var err error
	drive(t, mock, time.Second, func() {
		err = land.Land(context.Background())
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, link.modes, test.ShouldResemble, []Mode{ModeLand})
	test.That(t, link.armedCalls, test.ShouldEqual, 3)
	test.That(t, state.Get(), test.ShouldEqual, Ready)
}

func TestLandModeRejected(t *testing.T) {
	link := &fakeLink{armed: []bool{true}, modeErr: errors.New("denied")}
	state := readyState()
	err := NewLandSequencer(link, state, clock.NewMock()).Land(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "LAND")
	test.That(t, link.armedCalls, test.ShouldEqual, 0)
	test.That(t, state.Get(), test.ShouldEqual, Busy)
}
