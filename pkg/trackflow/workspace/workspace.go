// Package workspace generates candidate camera poses for automatic tracker
// initialization.
//
// A Geometry describes a set of points: a plane (a line or a single point
// when an extent is zero) or a sampled sphere section. A Definition pairs an
// origin geometry, where the camera may stand, with a destination geometry,
// where it may look at. Poses enumerates every origin/destination pair,
// optionally rolled about the viewing axis. A Configuration groups the
// definitions of a scene and is the payload of the setWorkSpaces command.
//
// Poses follow the dataset convention: world->camera rotation and
// translation, with the camera looking along its -Z axis.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Document type tags.
const (
	TypePlane         = "plane"
	TypeSphere        = "sphere"
	TypeDefinition    = "WorkSpaceDef"
	TypeConfiguration = "VisionLibWorkSpacesConfig"
	ConfigVersion     = 1
)

// Sphere defaults.
const (
	DefaultSphereSamples = 100
	DefaultSphereRadius  = 1.0
)

var (
	// ErrUnknownGeometry indicates a geometry type other than plane or sphere.
	ErrUnknownGeometry = errors.New("unknown workspace geometry")

	// ErrInvalidParameters indicates geometry or definition parameters out
	// of range.
	ErrInvalidParameters = errors.New("invalid workspace parameters")
)

// Transform is a rigid transform given as translation T and rotation
// quaternion Q (x, y, z, w).
type Transform struct {
	T [3]float64 `json:"t"`
	Q [4]float64 `json:"q"`
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Q: [4]float64{0, 0, 0, 1}}
}

// UnmarshalJSON decodes a transform; a missing rotation is the identity.
func (t *Transform) UnmarshalJSON(data []byte) error {
	type plain Transform
	p := plain(Identity())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Transform(p)
	return nil
}

func (t Transform) rotation() (quat.Number, error) {
	n := quat.Number{Real: t.Q[3], Imag: t.Q[0], Jmag: t.Q[1], Kmag: t.Q[2]}
	abs := quat.Abs(n)
	if abs == 0 {
		return quat.Number{}, fmt.Errorf("%w: zero rotation quaternion", ErrInvalidParameters)
	}
	return quat.Scale(1/abs, n), nil
}

// Apply maps p by the transform: rotate, then translate.
func (t Transform) Apply(p r3.Vec) (r3.Vec, error) {
	q, err := t.rotation()
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Add(r3.Rotation(q).Rotate(p), vec(t.T)), nil
}

// Parameters are the union of plane and sphere parameters. Angles are in
// degrees.
type Parameters struct {
	Transformation Transform `json:"transformation"`

	PlaneSteps  int     `json:"planeSteps"`
	PlaneLength float64 `json:"planeLength"`
	PlaneWidth  float64 `json:"planeWidth"`

	SphereSamples     int     `json:"sphereSamples"`
	Distance          float64 `json:"distance"`
	SphereRadius      float64 `json:"sphereRadius"`
	SphereThetaStart  float64 `json:"sphereThetaStart"`
	SphereThetaLength float64 `json:"sphereThetaLength"`
	SpherePhiStart    float64 `json:"spherePhiStart"`
	SpherePhiLength   float64 `json:"spherePhiLength"`
}

// Geometry is a typed point set.
type Geometry struct {
	Type       string     `json:"type"`
	Parameters Parameters `json:"parameters"`
}

// Point returns a single point at t.
func Point(t Transform) Geometry {
	return Plane(0, 0, 1, t)
}

// Line returns steps points spread over length along the local y axis.
func Line(length float64, steps int, t Transform) Geometry {
	return Plane(length, 0, steps, t)
}

// Plane returns a grid spanning width along the local x axis and length
// along the local y axis, centred on the origin, with steps points per
// non-zero extent.
func Plane(length, width float64, steps int, t Transform) Geometry {
	return Geometry{Type: TypePlane, Parameters: Parameters{
		Transformation: t,
		PlaneSteps:     steps,
		PlaneLength:    length,
		PlaneWidth:     width,
	}}
}

// Sphere returns a full sphere of the given radius with the default
// sample count.
func Sphere(radius float64, t Transform) Geometry {
	g := defaultGeometry(TypeSphere)
	g.Parameters.SphereRadius = radius
	g.Parameters.Transformation = t
	return g
}

func defaultGeometry(typ string) Geometry {
	g := Geometry{Type: typ, Parameters: Parameters{Transformation: Identity()}}
	switch typ {
	case TypePlane:
		g.Parameters.PlaneSteps = 1
	case TypeSphere:
		g.Parameters.SphereSamples = DefaultSphereSamples
		g.Parameters.SphereRadius = DefaultSphereRadius
		g.Parameters.SphereThetaLength = 360
		g.Parameters.SpherePhiLength = 180
	}
	return g
}

// UnmarshalJSON decodes a geometry, filling parameters the document omits
// with the defaults of its type.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	type plain Geometry
	p := plain(defaultGeometry(head.Type))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Geometry(p)
	return nil
}

// Positions returns the points of the geometry after its transformation.
func (g Geometry) Positions() ([]r3.Vec, error) {
	var local []r3.Vec
	var err error
	switch g.Type {
	case TypePlane:
		local, err = planePoints(g.Parameters)
	case TypeSphere:
		local, err = spherePoints(g.Parameters)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGeometry, g.Type)
	}
	if err != nil {
		return nil, err
	}
	out := make([]r3.Vec, len(local))
	for i, p := range local {
		if out[i], err = g.Parameters.Transformation.Apply(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
