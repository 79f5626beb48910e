package predict

import "math"

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0             // semi-major axis, meters
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared

	// omegaEarth is Earth's rotation rate in rad/s.
	omegaEarth = 7.292115146706979e-5
)

// Location is a ground station position.
type Location struct {
	Lat float64 `json:"lat"` // degrees North
	Lon float64 `json:"lon"` // degrees East
	Alt float64 `json:"alt"` // meters above sea level
}

// vec3 is a cartesian vector, in meters or meters per second.
type vec3 struct{ X, Y, Z float64 }

func (a vec3) sub(b vec3) vec3      { return vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a vec3) dot(b vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a vec3) norm() float64        { return math.Sqrt(a.dot(a)) }
func (a vec3) scale(k float64) vec3 { return vec3{a.X * k, a.Y * k, a.Z * k} }

// observer caches the trigonometry and ECEF position of a Location.
type observer struct {
	sinLat, cosLat float64
	sinLon, cosLon float64
	ecef           vec3
}

func newObserver(loc Location) observer {
	lat := loc.Lat * math.Pi / 180
	lon := loc.Lon * math.Pi / 180

	o := observer{
		sinLat: math.Sin(lat),
		cosLat: math.Cos(lat),
		sinLon: math.Sin(lon),
		cosLon: math.Cos(lon),
	}

	n := wgs84A / math.Sqrt(1-wgs84E2*o.sinLat*o.sinLat)
	o.ecef = vec3{
		X: (n + loc.Alt) * o.cosLat * o.cosLon,
		Y: (n + loc.Alt) * o.cosLat * o.sinLon,
		Z: (n*(1-wgs84E2) + loc.Alt) * o.sinLat,
	}
	return o
}

// temeToECEF rotates a TEME state vector (km, km/s) into ECEF (m, m/s) by
// the Greenwich sidereal angle gmst, ignoring polar motion.
func temeToECEF(pos, vel vec3, gmst float64) (vec3, vec3) {
	c, s := math.Cos(gmst), math.Sin(gmst)

	p := vec3{
		X: pos.X*c + pos.Y*s,
		Y: -pos.X*s + pos.Y*c,
		Z: pos.Z,
	}
	v := vec3{
		X: vel.X*c + vel.Y*s + omegaEarth*p.Y,
		Y: -vel.X*s + vel.Y*c - omegaEarth*p.X,
		Z: vel.Z,
	}
	return p.scale(1000), v.scale(1000)
}

// geodetic converts ECEF meters to latitude/longitude in degrees and
// altitude in meters, iterating Bowring's method.
func geodetic(r vec3) (lat, lon, alt float64) {
	lonRad := math.Atan2(r.Y, r.X)
	p := math.Hypot(r.X, r.Y)

	latRad := math.Atan2(r.Z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sin := math.Sin(latRad)
		n := wgs84A / math.Sqrt(1-wgs84E2*sin*sin)
		latRad = math.Atan2(r.Z+wgs84E2*n*sin, p)
	}

	sin, cos := math.Sin(latRad), math.Cos(latRad)
	n := wgs84A / math.Sqrt(1-wgs84E2*sin*sin)
	if math.Abs(cos) > 1e-10 {
		alt = p/cos - n
	} else {
		alt = math.Abs(r.Z)/math.Abs(sin) - n*(1-wgs84E2)
	}

	return latRad * 180 / math.Pi, NormalizeLon(lonRad * 180 / math.Pi), alt
}

// lookAngles returns azimuth and elevation in degrees, slant range in km and
// range rate in km/s from o to a satellite at ECEF position r moving at v.
func (o observer) lookAngles(r, v vec3) (az, el, rangeKm, rangeRate float64) {
	d := r.sub(o.ecef)

	south := o.sinLat*o.cosLon*d.X + o.sinLat*o.sinLon*d.Y - o.cosLat*d.Z
	east := -o.sinLon*d.X + o.cosLon*d.Y
	zenith := o.cosLat*o.cosLon*d.X + o.cosLat*o.sinLon*d.Y + o.sinLat*d.Z

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return 0, 90, 0, 0
	}

	azRad := math.Atan2(east, -south)
	if azRad < 0 {
		azRad += 2 * math.Pi
	}
	elRad := math.Asin(zenith / rng)

	return azRad * 180 / math.Pi, elRad * 180 / math.Pi, rng / 1000, d.dot(v) / rng / 1000
}

// NormalizeLon wraps a longitude in degrees into [-180, 180].
func NormalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
