package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// Ellipsoid is a reference ellipsoid given by semi-major axis and flattening.
type Ellipsoid struct {
	A float64 // Semi-major axis in metres
	F float64 // Flattening
}

// Reference ellipsoids.
var (
	WGS84 = Ellipsoid{A: 6378137, F: 1 / 298.257223563}
	GRS80 = Ellipsoid{A: 6378137, F: 1 / 298.257222101}
)

const (
	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0 // southern hemisphere only
)

// UTMZone is one Universal Transverse Mercator zone.
type UTMZone struct {
	Number    int // 1-60
	South     bool
	Ellipsoid Ellipsoid
}

// CentralMeridian returns the zone's central meridian in degrees.
func (z UTMZone) CentralMeridian() float64 {
	return float64(z.Number*6 - 183)
}

// ToWGS84 converts easting/northing in metres to longitude/latitude in
// degrees using the series expansion of the inverse transverse Mercator
// projection (Snyder, USGS Professional Paper 1395, pp. 63-64).
func (z UTMZone) ToWGS84(p orb.Point) orb.Point {
	a := z.Ellipsoid.A
	e2 := z.Ellipsoid.F * (2 - z.Ellipsoid.F)
	ep2 := e2 / (1 - e2)

	x := p.X() - utmFalseEasting
	y := p.Y()
	if z.South {
		y -= utmFalseNorthing
	}

	m := y / utmScale
	mu := m / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	sq := math.Sqrt(1 - e2)
	e1 := (1 - sq) / (1 + sq)
	e1p2 := e1 * e1
	e1p3 := e1p2 * e1
	e1p4 := e1p3 * e1

	phi1 := mu +
		(3*e1/2-27*e1p3/32)*math.Sin(2*mu) +
		(21*e1p2/16-55*e1p4/32)*math.Sin(4*mu) +
		(151*e1p3/96)*math.Sin(6*mu) +
		(1097*e1p4/512)*math.Sin(8*mu)

	sinPhi := math.Sin(phi1)
	cosPhi := math.Cos(phi1)
	tanPhi := math.Tan(phi1)

	c1 := ep2 * cosPhi * cosPhi
	t1 := tanPhi * tanPhi
	w := 1 - e2*sinPhi*sinPhi
	n1 := a / math.Sqrt(w)
	r1 := a * (1 - e2) / (w * math.Sqrt(w))
	d := x / (n1 * utmScale)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	lat := phi1 - (n1*tanPhi/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lon := (d -
		(1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120) / cosPhi

	return orb.Point{
		z.CentralMeridian() + lon*180/math.Pi,
		lat * 180 / math.Pi,
	}
}
