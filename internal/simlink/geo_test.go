package simlink

import (
	"testing"

	"go.viam.com/test"

	"github.com/symonb/drone-knr/internal/vehicle"
)

func TestGeoRefRoundTrip(t *testing.T) {
	g := GeoRef{OriginLat: 47.0, OriginLon: 8.0}

	local := g.ToLocal(vehicle.GlobalPose{Lat: 47.0001, Lon: 8.0002, Alt: 12})
	test.That(t, local.North, test.ShouldAlmostEqual, 11.13195, 1e-6)
	test.That(t, local.East, test.ShouldAlmostEqual, 22.2639, 1e-6)
	test.That(t, local.Down, test.ShouldEqual, -12.0)

	back := g.ToGlobal(local)
	test.That(t, back.Lat, test.ShouldAlmostEqual, 47.0001, 1e-9)
	test.That(t, back.Lon, test.ShouldAlmostEqual, 8.0002, 1e-9)
	test.That(t, back.Alt, test.ShouldEqual, 12.0)
}

func TestGeoDistanceMatchesEvaluator(t *testing.T) {
	g := GeoRef{OriginLat: -35.0, OriginLon: 149.0}
	a := vehicle.GlobalPose{Lat: -35.0, Lon: 149.0}
	b := vehicle.GlobalPose{Lat: -35.0003, Lon: 149.0004}

	la, lb := g.ToLocal(a), g.ToLocal(b)
	planar := vehicle.LocalDistance(vehicle.LocalPose{North: la.North, East: la.East}, vehicle.LocalPose{North: lb.North, East: lb.East})
	test.That(t, planar, test.ShouldAlmostEqual, vehicle.GlobalDistance(a, b), 1e-6)
}
