package dataset

import (
	"errors"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrZeroQuaternion indicates a rotation quaternion with zero norm.
var ErrZeroQuaternion = errors.New("rotation quaternion has zero norm")

// ExtrinsicData is a cell holding a camera pose. R and T define the
// world->camera transform P_c = R*P_w + t. Valid is true only if the last
// tracking attempt that wrote the cell succeeded.
type ExtrinsicData struct {
	r     quat.Number
	t     r3.Vec
	valid bool
}

// NewExtrinsicData creates an identity pose that is not valid.
func NewExtrinsicData() *ExtrinsicData {
	return &ExtrinsicData{r: quat.Number{Real: 1}}
}

// Kind implements Data.
func (e *ExtrinsicData) Kind() Kind { return KindExtrinsic }

// R returns the rotation quaternion as (x, y, z, w).
func (e *ExtrinsicData) R() [4]float64 {
	return [4]float64{e.r.Imag, e.r.Jmag, e.r.Kmag, e.r.Real}
}

// SetR sets the rotation from an (x, y, z, w) quaternion. The quaternion is
// normalized; the translation is left untouched.
func (e *ExtrinsicData) SetR(q [4]float64) error {
	n := quat.Number{Real: q[3], Imag: q[0], Jmag: q[1], Kmag: q[2]}
	abs := quat.Abs(n)
	if abs == 0 {
		return ErrZeroQuaternion
	}
	e.r = quat.Scale(1/abs, n)
	return nil
}

// T returns the world->camera translation.
func (e *ExtrinsicData) T() [3]float64 {
	return [3]float64{e.t.X, e.t.Y, e.t.Z}
}

// SetT sets the world->camera translation.
func (e *ExtrinsicData) SetT(t [3]float64) {
	e.t = r3.Vec{X: t[0], Y: t[1], Z: t[2]}
}

// CamPosWorld returns the camera position in world coordinates, -R^-1 * t.
func (e *ExtrinsicData) CamPosWorld() [3]float64 {
	inv := r3.Rotation(quat.Conj(e.r))
	p := r3.Scale(-1, inv.Rotate(e.t))
	return [3]float64{p.X, p.Y, p.Z}
}

// SetCamPosWorld sets the translation so that the camera sits at p in world
// coordinates, t = -R * p, using the current rotation.
func (e *ExtrinsicData) SetCamPosWorld(p [3]float64) {
	rot := r3.Rotation(e.r)
	e.t = r3.Scale(-1, rot.Rotate(r3.Vec{X: p[0], Y: p[1], Z: p[2]}))
}

// Transform maps a world point into camera coordinates.
func (e *ExtrinsicData) Transform(p [3]float64) [3]float64 {
	c := r3.Add(r3.Rotation(e.r).Rotate(r3.Vec{X: p[0], Y: p[1], Z: p[2]}), e.t)
	return [3]float64{c.X, c.Y, c.Z}
}

// Valid reports whether the pose came from a successful tracking attempt.
func (e *ExtrinsicData) Valid() bool { return e.valid }

// SetValid sets the validity flag.
func (e *ExtrinsicData) SetValid(valid bool) { e.valid = valid }

// ModelViewMatrix returns the pose as a column-major 4x4 matrix.
func (e *ExtrinsicData) ModelViewMatrix() [16]float64 {
	rot := r3.Rotation(e.r)
	var m [16]float64
	basis := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for col, b := range basis {
		c := rot.Rotate(b)
		m[col*4+0] = c.X
		m[col*4+1] = c.Y
		m[col*4+2] = c.Z
	}
	m[12], m[13], m[14] = e.t.X, e.t.Y, e.t.Z
	m[15] = 1
	return m
}

// CopyFrom overwrites e with the pose and validity of src.
func (e *ExtrinsicData) CopyFrom(src *ExtrinsicData) {
	*e = *src
}

func (e *ExtrinsicData) cloneData() Data {
	c := *e
	return &c
}

// View returns a read-only view of the pose.
func (e *ExtrinsicData) View() ExtrinsicView {
	return ExtrinsicView{e: e}
}

// ExtrinsicView is a non-owning, read-only view of an ExtrinsicData.
type ExtrinsicView struct {
	e *ExtrinsicData
}

// Valid reports whether the view refers to a pose and the pose is valid.
func (v ExtrinsicView) Valid() bool { return v.e != nil && v.e.Valid() }

// R returns the rotation quaternion as (x, y, z, w).
func (v ExtrinsicView) R() [4]float64 { return v.e.R() }

// T returns the translation.
func (v ExtrinsicView) T() [3]float64 { return v.e.T() }

// CamPosWorld returns the camera position in world coordinates.
func (v ExtrinsicView) CamPosWorld() [3]float64 { return v.e.CamPosWorld() }

// ModelViewMatrix returns the pose as a column-major 4x4 matrix.
func (v ExtrinsicView) ModelViewMatrix() [16]float64 { return v.e.ModelViewMatrix() }
