package simlink

import "github.com/symonb/drone-knr/internal/vehicle"

// GeoRef converts between the local NED frame and geodetic coordinates around
// a fixed origin, using the same flat scale the distance evaluator uses.
type GeoRef struct {
	OriginLat float64
	OriginLon float64
}

func (g GeoRef) ToLocal(p vehicle.GlobalPose) vehicle.LocalPose {
	return vehicle.LocalPose{
		North: (p.Lat - g.OriginLat) * vehicle.MetersPerDegree,
		East:  (p.Lon - g.OriginLon) * vehicle.MetersPerDegree,
		Down:  -p.Alt,
	}
}

func (g GeoRef) ToGlobal(p vehicle.LocalPose) vehicle.GlobalPose {
	return vehicle.GlobalPose{
		Lat: g.OriginLat + p.North/vehicle.MetersPerDegree,
		Lon: g.OriginLon + p.East/vehicle.MetersPerDegree,
		Alt: -p.Down,
	}
}
