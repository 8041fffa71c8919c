package vehicle

import "math"

// MetersPerDegree converts lat/lon degree deltas to metres. This is a planar
// approximation and loses accuracy at high latitude or over long range.
const MetersPerDegree = 1.113195e5

// ArrivalTolerance is the distance at which a goto counts as arrived, for both frames.
const ArrivalTolerance = 0.5

func LocalDistance(current, destination LocalPose) float64 {
	dnorth := destination.North - current.North
	deast := destination.East - current.East
	ddown := destination.Down - current.Down
	return math.Sqrt(dnorth*dnorth + deast*deast + ddown*ddown)
}

func GlobalDistance(current, destination GlobalPose) float64 {
	dlat := (destination.Lat - current.Lat) * MetersPerDegree
	dlon := (destination.Lon - current.Lon) * MetersPerDegree
	dalt := destination.Alt - current.Alt
	return math.Sqrt(dlat*dlat + dlon*dlon + dalt*dalt)
}
