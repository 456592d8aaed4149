package workspace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// angleEps absorbs rounding at the borders of angular ranges, in degrees.
const angleEps = 1e-9

func planePoints(p Parameters) ([]r3.Vec, error) {
	if p.PlaneSteps < 1 {
		return nil, fmt.Errorf("%w: planeSteps %d must be at least 1", ErrInvalidParameters, p.PlaneSteps)
	}
	if p.PlaneLength < 0 || p.PlaneWidth < 0 {
		return nil, fmt.Errorf("%w: plane extents must not be negative", ErrInvalidParameters)
	}
	xs := spread(p.PlaneWidth, p.PlaneSteps)
	ys := spread(p.PlaneLength, p.PlaneSteps)
	out := make([]r3.Vec, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			out = append(out, r3.Vec{X: x, Y: y})
		}
	}
	return out, nil
}

// spread places n evenly spaced values on [-extent/2, extent/2]. A zero
// extent or a single step yields the centre only.
func spread(extent float64, n int) []float64 {
	if extent == 0 || n == 1 {
		return []float64{0}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = -extent/2 + extent*float64(i)/float64(n-1)
	}
	return out
}

// spherePoints samples the sphere with a Fibonacci lattice of
// SphereSamples points and keeps those inside the angular section. Phi is
// the polar angle from +Y, theta the azimuth in the x-z plane from +X
// towards +Z. Points lie at SphereRadius+Distance from the centre.
func spherePoints(p Parameters) ([]r3.Vec, error) {
	if p.SphereSamples < 1 {
		return nil, fmt.Errorf("%w: sphereSamples %d must be at least 1", ErrInvalidParameters, p.SphereSamples)
	}
	radius := p.SphereRadius + p.Distance
	if radius < 0 {
		return nil, fmt.Errorf("%w: sphere radius %v must not be negative", ErrInvalidParameters, radius)
	}
	if p.SpherePhiLength < 0 || p.SphereThetaLength < 0 {
		return nil, fmt.Errorf("%w: sphere angle ranges must not be negative", ErrInvalidParameters)
	}

	golden := math.Pi * (3 - math.Sqrt(5))
	n := p.SphereSamples
	var out []r3.Vec
	for i := range n {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		ring := math.Sqrt(1 - y*y)
		az := golden * float64(i)
		dir := r3.Vec{X: ring * math.Cos(az), Y: y, Z: ring * math.Sin(az)}

		phi := degrees(math.Acos(y))
		theta := math.Mod(degrees(math.Atan2(dir.Z, dir.X))+360, 360)
		if !inPolar(phi, p.SpherePhiStart, p.SpherePhiLength) ||
			!inAzimuth(theta, p.SphereThetaStart, p.SphereThetaLength) {
			continue
		}
		out = append(out, r3.Scale(radius, dir))
	}
	return out, nil
}

func inPolar(phi, start, length float64) bool {
	return phi >= start-angleEps && phi <= start+length+angleEps
}

func inAzimuth(theta, start, length float64) bool {
	if length >= 360 {
		return true
	}
	d := math.Mod(theta-start, 360)
	if d < 0 {
		d += 360
	}
	return d <= length+angleEps || d >= 360-angleEps
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func radians(deg float64) float64 { return deg * math.Pi / 180 }
