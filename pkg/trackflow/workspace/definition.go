package workspace

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Definition is one workspace: cameras at the origin positions look at the
// destination positions. Up orients the camera; a positive RollAngleRange
// adds poses rolled about the viewing axis in RollAngleStep increments.
type Definition struct {
	Type           string     `json:"type"`
	Transformation Transform  `json:"transformation"`
	RollAngleRange float64    `json:"rollAngleRange"`
	RollAngleStep  float64    `json:"rollAngleStep"`
	UpVector       [3]float64 `json:"upVector"`
	Origin         Geometry   `json:"origin"`
	Destination    Geometry   `json:"destination"`
}

// NewDefinition returns an unrolled definition with +Y up.
func NewDefinition(origin, destination Geometry) Definition {
	return Definition{
		Type:           TypeDefinition,
		Transformation: Identity(),
		UpVector:       [3]float64{0, 1, 0},
		Origin:         origin,
		Destination:    destination,
	}
}

// UnmarshalJSON decodes a definition; omitted fields keep the values of
// NewDefinition.
func (d *Definition) UnmarshalJSON(data []byte) error {
	type plain Definition
	p := plain(NewDefinition(Geometry{}, Geometry{}))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Definition(p)
	return nil
}

func (d Definition) positions(g Geometry) ([]r3.Vec, error) {
	local, err := g.Positions()
	if err != nil {
		return nil, err
	}
	for i, p := range local {
		if local[i], err = d.Transformation.Apply(p); err != nil {
			return nil, err
		}
	}
	return local, nil
}

// Poses returns the world->camera transforms of every origin/destination
// pair, in origin-major order. Pairs whose points coincide are skipped.
func (d Definition) Poses() ([]Transform, error) {
	up := vec(d.UpVector)
	if r3.Norm(up) == 0 {
		return nil, fmt.Errorf("%w: zero up vector", ErrInvalidParameters)
	}
	if d.RollAngleRange < 0 || d.RollAngleStep < 0 {
		return nil, fmt.Errorf("%w: roll angles must not be negative", ErrInvalidParameters)
	}
	origins, err := d.positions(d.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	targets, err := d.positions(d.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	rolls := rollAngles(d.RollAngleRange, d.RollAngleStep)
	out := make([]Transform, 0, len(origins)*len(targets)*len(rolls))
	for _, o := range origins {
		for _, dst := range targets {
			view := r3.Sub(dst, o)
			if r3.Norm(view) < 1e-12 {
				continue
			}
			base := lookAt(view, up)
			for _, roll := range rolls {
				q := quat.Mul(quat.Number(r3.NewRotation(radians(roll), r3.Vec{Z: 1})), base)
				t := r3.Scale(-1, r3.Rotation(q).Rotate(o))
				out = append(out, Transform{
					T: [3]float64{t.X, t.Y, t.Z},
					Q: [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real},
				})
			}
		}
	}
	return out, nil
}

// rollAngles returns 0 followed by +k*step and -k*step up to rng.
func rollAngles(rng, step float64) []float64 {
	out := []float64{0}
	if rng <= 0 || step <= 0 {
		return out
	}
	for a := step; a <= rng+angleEps; a += step {
		out = append(out, a, -a)
	}
	return out
}

// lookAt returns the world->camera rotation of a camera looking along view
// with its y axis towards up. When view is parallel to up, the world axis
// least aligned with view stands in for up.
func lookAt(view, up r3.Vec) quat.Number {
	f := r3.Unit(view)
	right := r3.Cross(f, up)
	if r3.Norm(right) < 1e-9 {
		right = r3.Cross(f, leastAligned(f))
	}
	right = r3.Unit(right)
	camUp := r3.Cross(right, f)
	back := r3.Scale(-1, f)
	return fromRows(right, camUp, back)
}

func leastAligned(v r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return r3.Vec{X: 1}
	case ay <= az:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

// fromRows converts the rotation matrix with rows a, b, c into a unit
// quaternion.
func fromRows(a, b, c r3.Vec) quat.Number {
	m00, m01, m02 := a.X, a.Y, a.Z
	m10, m11, m12 := b.X, b.Y, b.Z
	m20, m21, m22 := c.X, c.Y, c.Z

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// Configuration is the set of workspaces of a scene.
type Configuration struct {
	Type       string       `json:"type"`
	Version    int          `json:"version"`
	WorkSpaces []Definition `json:"workSpaces"`
}

// NewConfiguration groups definitions into a configuration document.
func NewConfiguration(defs ...Definition) Configuration {
	return Configuration{Type: TypeConfiguration, Version: ConfigVersion, WorkSpaces: defs}
}

// ParseConfiguration decodes a configuration document. The type tag and
// version may be omitted; when present they must match.
func ParseConfiguration(data []byte) (Configuration, error) {
	var c Configuration
	if err := json.Unmarshal(data, &c); err != nil {
		return Configuration{}, fmt.Errorf("parse workspace configuration: %w", err)
	}
	if c.Type != "" && c.Type != TypeConfiguration {
		return Configuration{}, fmt.Errorf("%w: type %q", ErrInvalidParameters, c.Type)
	}
	if c.Version != 0 && c.Version != ConfigVersion {
		return Configuration{}, fmt.Errorf("%w: version %d", ErrInvalidParameters, c.Version)
	}
	return c, nil
}

// Poses concatenates the poses of all workspaces in order.
func (c Configuration) Poses() ([]Transform, error) {
	var out []Transform
	for i, d := range c.WorkSpaces {
		poses, err := d.Poses()
		if err != nil {
			return nil, fmt.Errorf("workspace %d: %w", i, err)
		}
		out = append(out, poses...)
	}
	return out, nil
}
