package vehicle

import (
	"testing"

	"go.viam.com/test"
)

func TestLocalDistance(t *testing.T) {
	poses := []LocalPose{
		{0, 0, 0},
		{3, 4, 0},
		{-1.5, 2.25, -10},
		{100, -42, 7.5},
	}
	for _, a := range poses {
		test.That(t, LocalDistance(a, a), test.ShouldEqual, 0.0)
		for _, b := range poses {
			test.That(t, LocalDistance(a, b), test.ShouldEqual, LocalDistance(b, a))
		}
	}
	test.That(t, LocalDistance(LocalPose{}, LocalPose{3, 4, 0}), test.ShouldEqual, 5.0)
	test.That(t, LocalDistance(LocalPose{}, LocalPose{0, 0, -2}), test.ShouldEqual, 2.0)
}

func TestGlobalDistance(t *testing.T) {
	origin := GlobalPose{}
	test.That(t, GlobalDistance(origin, origin), test.ShouldEqual, 0.0)

	d := GlobalDistance(origin, GlobalPose{Lat: 0.0001})
	test.That(t, d, test.ShouldAlmostEqual, 11.13, 0.01)

	a := GlobalPose{52.2297, 21.0122, 15}
	b := GlobalPose{52.2301, 21.0119, 20}
	test.That(t, GlobalDistance(a, b), test.ShouldEqual, GlobalDistance(b, a))

	// altitude delta is taken directly in metres
	test.That(t, GlobalDistance(a, GlobalPose{a.Lat, a.Lon, a.Alt + 12}), test.ShouldAlmostEqual, 12, 1e-9)
}
