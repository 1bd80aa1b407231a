package ephem

import (
	"context"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/model"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	j2000 = 2451545.0
	// Accumulated general precession in longitude, degrees per Julian century.
	precessionPerCentury = 1.3969713
)

// keplerElements are mean orbital elements at J2000 with their rates per
// Julian century: semi-major axis (au), eccentricity, inclination, mean
// longitude, longitude of perihelion and longitude of the ascending node
// (degrees).
type keplerElements struct {
	a, e, i, l, peri, node                   float64
	aDot, eDot, iDot, lDot, periDot, nodeDot float64
}

// Valid 1800-2050 to within about a minute of arc for the inner planets.
var planetElements = map[model.BodyName]keplerElements{
	model.Mercury: {0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081},
	model.Venus: {0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418},
	model.Mars: {1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343},
	model.Jupiter: {5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106},
	model.Saturn: {9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794},
	model.Uranus: {19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
		-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589},
	model.Neptune: {30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
		0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664},
	model.Pluto: {39.48211675, 0.24882730, 17.14001206, 238.92903833, 224.06891629, 110.30393684,
		-0.00031596, 0.00005170, 0.00004818, 145.20780515, -0.04062942, -0.01183482},
}

// Earth-Moon barycentre, used as the observer.
var earthElements = keplerElements{1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0,
	0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0}

// speedHalfWindow is half the central-difference window used for speeds.
const speedHalfWindow = 12 * time.Hour

// Analytic computes approximate tropical positions from mean orbital
// elements and a truncated lunar theory. Accuracy is in the order of
// arcminutes for the Sun, Moon and inner planets, which is far below the
// orb tolerances used for aspects.
type Analytic struct {
	// Bodies restricts the output; nil means model.ClassicalBodies.
	Bodies []model.BodyName
}

// NewAnalytic returns a resolver for the ten classical bodies.
func NewAnalytic() *Analytic { return &Analytic{} }

// Resolve implements Resolver.
func (a *Analytic) Resolve(ctx context.Context, req Request) (*model.Chart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := ParseHouseSystem(string(req.HouseSystem))
	if err != nil {
		return nil, err
	}
	if err := ValidateLocation(req.Location); err != nil {
		return nil, err
	}

	moment := req.Moment.UTC()
	jd := JulianDay(moment)
	asc, mc := Angles(jd, req.Location)
	cusps := Cusps(hs, asc, mc)

	bodies := a.Bodies
	if bodies == nil {
		bodies = model.ClassicalBodies
	}

	chart := &model.Chart{
		Origin:      req.Origin,
		Moment:      moment,
		Location:    req.Location,
		HouseSystem: hs,
		Ascendant:   asc,
		Midheaven:   mc,
		Cusps:       cusps,
		Bodies:      make([]model.CelestialBodyPosition, 0, len(bodies)),
	}
	before := JulianDay(moment.Add(-speedHalfWindow))
	after := JulianDay(moment.Add(speedHalfWindow))
	window := 2 * speedHalfWindow.Hours() / 24
	for _, b := range bodies {
		lon, ok := Longitude(b, jd)
		if !ok {
			continue
		}
		l1, _ := Longitude(b, before)
		l2, _ := Longitude(b, after)
		speed := core.SignedDelta(l2, l1) / window
		chart.Bodies = append(chart.Bodies, model.NewPosition(b, req.Origin, lon, HouseOf(cusps, lon), &speed))
	}
	return chart, nil
}

// JulianDay returns the Julian day of t, keeping sub-second precision.
func JulianDay(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	return satellite.JDay(year, int(month), day, hour, min, sec) + float64(t.Nanosecond())/86400e9
}

func centuries(jd float64) float64 { return (jd - j2000) / 36525 }

// Obliquity returns the mean obliquity of the ecliptic in degrees.
func Obliquity(jd float64) float64 {
	return 23.439291 - 0.0130042*centuries(jd)
}

// Longitude returns the geocentric tropical ecliptic longitude of body at
// jd. It reports false for bodies the theory does not cover.
func Longitude(body model.BodyName, jd float64) (float64, bool) {
	T := centuries(jd)
	switch body {
	case model.Sun:
		ex, ey, _ := heliocentric(earthElements, T)
		return tropical(math.Atan2(-ey, -ex)*rad2deg, T), true
	case model.Moon:
		return moonLongitude(T), true
	}
	el, ok := planetElements[body]
	if !ok {
		return 0, false
	}
	px, py, _ := heliocentric(el, T)
	ex, ey, _ := heliocentric(earthElements, T)
	return tropical(math.Atan2(py-ey, px-ex)*rad2deg, T), true
}

// tropical moves a J2000 ecliptic longitude onto the equinox of date.
func tropical(lonJ2000, T float64) float64 {
	return core.NormalizeDegrees(lonJ2000 + precessionPerCentury*T)
}

// heliocentric returns J2000 ecliptic rectangular coordinates in au.
func heliocentric(el keplerElements, T float64) (x, y, z float64) {
	a := el.a + el.aDot*T
	e := el.e + el.eDot*T
	inc := (el.i + el.iDot*T) * deg2rad
	l := el.l + el.lDot*T
	peri := el.peri + el.periDot*T
	node := el.node + el.nodeDot*T

	omega := (peri - node) * deg2rad
	m := math.Remainder((l-peri)*deg2rad, 2*math.Pi)
	E := solveKepler(m, e)

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(omega), math.Sin(omega)
	cn, sn := math.Cos(node*deg2rad), math.Sin(node*deg2rad)
	ci, si := math.Cos(inc), math.Sin(inc)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

func solveKepler(m, e float64) float64 {
	E := m + e*math.Sin(m)
	for i := 0; i < 30; i++ {
		d := (E - e*math.Sin(E) - m) / (1 - e*math.Cos(E))
		E -= d
		if math.Abs(d) < 1e-12 {
			break
		}
	}
	return E
}

// moonLongitude evaluates the largest periodic terms of the lunar
// longitude. Already referred to the equinox of date.
func moonLongitude(T float64) float64 {
	lp := 218.3164477 + 481267.88123421*T
	d := (297.8501921 + 445267.1114034*T) * deg2rad
	m := (357.5291092 + 35999.0502909*T) * deg2rad
	mp := (134.9633964 + 477198.8675055*T) * deg2rad
	f := (93.2720950 + 483202.0175233*T) * deg2rad

	lon := lp +
		6.288774*math.Sin(mp) +
		1.274027*math.Sin(2*d-mp) +
		0.658314*math.Sin(2*d) +
		0.213618*math.Sin(2*mp) -
		0.185116*math.Sin(m) -
		0.114332*math.Sin(2*f) +
		0.058793*math.Sin(2*d-2*mp) +
		0.057066*math.Sin(2*d-m-mp) +
		0.053322*math.Sin(2*d+mp) +
		0.045758*math.Sin(2*d-m) -
		0.040923*math.Sin(m-mp) -
		0.034720*math.Sin(d) -
		0.030383*math.Sin(m+mp)
	return core.NormalizeDegrees(lon)
}

// Angles returns the ascendant and midheaven longitudes for an observer.
// Sidereal time comes from the SGP4 package's GMST.
func Angles(jd float64, loc model.Location) (asc, mc float64) {
	gmst := satellite.ThetaG_JD(jd) * rad2deg
	ramc := core.NormalizeDegrees(gmst+loc.Longitude) * deg2rad
	eps := Obliquity(jd) * deg2rad
	phi := loc.Latitude * deg2rad

	mc = core.NormalizeDegrees(math.Atan2(math.Sin(ramc), math.Cos(ramc)*math.Cos(eps)) * rad2deg)
	asc = core.NormalizeDegrees(math.Atan2(math.Cos(ramc), -(math.Sin(ramc)*math.Cos(eps)+math.Tan(phi)*math.Sin(eps))) * rad2deg)
	return asc, mc
}
