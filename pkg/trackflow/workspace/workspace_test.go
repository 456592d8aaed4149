package workspace

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func at(x, y, z float64) Transform {
	t := Identity()
	t.T = [3]float64{x, y, z}
	return t
}

func TestGeometry_Point(t *testing.T) {
	got, err := Point(at(1, 2, 3)).Positions()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]r3.Vec{{X: 1, Y: 2, Z: 3}}, got, approx))
}

func TestGeometry_Line(t *testing.T) {
	got, err := Line(2, 3, Identity()).Positions()
	require.NoError(t, err)
	want := []r3.Vec{{Y: -1}, {}, {Y: 1}}
	assert.Empty(t, cmp.Diff(want, got, approx))
}

func TestGeometry_Plane(t *testing.T) {
	got, err := Plane(2, 4, 3, Identity()).Positions()
	require.NoError(t, err)
	require.Len(t, got, 9)
	assert.Empty(t, cmp.Diff(r3.Vec{X: -2, Y: -1}, got[0], approx))
	assert.Empty(t, cmp.Diff(r3.Vec{}, got[4], approx))
	assert.Empty(t, cmp.Diff(r3.Vec{X: 2, Y: 1}, got[8], approx))
}

func TestGeometry_TransformationApplied(t *testing.T) {
	tr := at(10, 0, 0)
	s := math.Sqrt2 / 2
	tr.Q = [4]float64{0, 0, s, s} // 90 degrees about z

	got, err := Line(2, 3, tr).Positions()
	require.NoError(t, err)
	want := []r3.Vec{{X: 11}, {X: 10}, {X: 9}}
	assert.Empty(t, cmp.Diff(want, got, approx))
}

func TestGeometry_Invalid(t *testing.T) {
	_, err := Plane(1, 1, 0, Identity()).Positions()
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = Plane(-1, 1, 2, Identity()).Positions()
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = Geometry{Type: "cube"}.Positions()
	assert.ErrorIs(t, err, ErrUnknownGeometry)

	bad := Point(Identity())
	bad.Parameters.Transformation.Q = [4]float64{}
	_, err = bad.Positions()
	assert.ErrorIs(t, err, ErrInvalidParameters)

	sphere := Sphere(1, Identity())
	sphere.Parameters.SphereSamples = 0
	_, err = sphere.Positions()
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestGeometry_SphereDefaults(t *testing.T) {
	got, err := Sphere(2, at(0, 1, 0)).Positions()
	require.NoError(t, err)
	require.Len(t, got, DefaultSphereSamples)
	for _, p := range got {
		assert.InDelta(t, 2, r3.Norm(r3.Sub(p, r3.Vec{Y: 1})), 1e-9)
	}
}

func TestGeometry_SphereDistanceExtendsRadius(t *testing.T) {
	g := Sphere(1, Identity())
	g.Parameters.Distance = 0.5
	got, err := g.Positions()
	require.NoError(t, err)
	for _, p := range got {
		assert.InDelta(t, 1.5, r3.Norm(p), 1e-9)
	}
}

func TestGeometry_SphereUpperHemisphere(t *testing.T) {
	g := Sphere(1, Identity())
	g.Parameters.SpherePhiLength = 90
	got, err := g.Positions()
	require.NoError(t, err)
	assert.Len(t, got, DefaultSphereSamples/2)
	for _, p := range got {
		assert.Positive(t, p.Y)
	}
}

func TestGeometry_SphereAzimuthSection(t *testing.T) {
	g := Sphere(1, Identity())
	g.Parameters.SphereThetaLength = 90
	got, err := g.Positions()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Less(t, len(got), DefaultSphereSamples/2)
	for _, p := range got {
		assert.GreaterOrEqual(t, p.X, -1e-9)
		assert.GreaterOrEqual(t, p.Z, -1e-9)
	}

	// Wraps around 0 degrees.
	g.Parameters.SphereThetaStart = 315
	wrapped, err := g.Positions()
	require.NoError(t, err)
	require.NotEmpty(t, wrapped)
	for _, p := range wrapped {
		assert.GreaterOrEqual(t, p.X, -1e-9)
	}
}

func TestDefinition_AxisAlignedPose(t *testing.T) {
	d := NewDefinition(Point(at(1, 2, 3)), Point(at(1, 2, 0)))
	poses, err := d.Poses()
	require.NoError(t, err)
	require.Len(t, poses, 1)
	assert.Empty(t, cmp.Diff(Transform{T: [3]float64{-1, -2, -3}, Q: [4]float64{0, 0, 0, 1}}, poses[0], approx))
}

func TestDefinition_PosesLookAtDestination(t *testing.T) {
	target := r3.Vec{X: 0.5, Y: -0.25, Z: 1}
	d := NewDefinition(Sphere(3, at(target.X, target.Y, target.Z)), Point(at(target.X, target.Y, target.Z)))
	poses, err := d.Poses()
	require.NoError(t, err)
	require.Len(t, poses, DefaultSphereSamples)

	origins, err := d.Origin.Positions()
	require.NoError(t, err)
	for i, pose := range poses {
		cam, err := pose.Apply(origins[i])
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(r3.Vec{}, cam, approx), "pose %d origin", i)

		dst, err := pose.Apply(target)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(r3.Vec{Z: -3}, dst, approx), "pose %d target", i)

		rot := pose
		rot.T = [3]float64{}
		up, err := rot.Apply(r3.Vec{Y: 1})
		require.NoError(t, err)
		assert.InDelta(t, 0, up.X, 1e-9, "pose %d up", i)
		assert.Positive(t, up.Y, "pose %d up", i)
	}
}

func TestDefinition_ViewParallelToUp(t *testing.T) {
	d := NewDefinition(Point(Identity()), Point(at(0, 5, 0)))
	poses, err := d.Poses()
	require.NoError(t, err)
	require.Len(t, poses, 1)
	dst, err := poses[0].Apply(r3.Vec{Y: 5})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(r3.Vec{Z: -5}, dst, approx))
}

func TestDefinition_CoincidentPairsSkipped(t *testing.T) {
	d := NewDefinition(Line(2, 3, Identity()), Point(Identity()))
	poses, err := d.Poses()
	require.NoError(t, err)
	assert.Len(t, poses, 2)
}

func TestDefinition_Roll(t *testing.T) {
	assert.Equal(t, []float64{0}, rollAngles(0, 20))
	assert.Equal(t, []float64{0}, rollAngles(20, 0))
	assert.Equal(t, []float64{0, 20, -20}, rollAngles(20, 20))
	assert.Equal(t, []float64{0, 10, -10, 20, -20}, rollAngles(25, 10))

	d := NewDefinition(Point(at(0, 0, 2)), Point(Identity()))
	d.RollAngleRange = 20
	d.RollAngleStep = 20
	poses, err := d.Poses()
	require.NoError(t, err)
	require.Len(t, poses, 3)

	for i, pose := range poses {
		dst, err := pose.Apply(r3.Vec{})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(r3.Vec{Z: -2}, dst, approx), "pose %d", i)
	}

	rot := poses[1]
	rot.T = [3]float64{}
	right, err := rot.Apply(r3.Vec{X: 1})
	require.NoError(t, err)
	rad := 20 * math.Pi / 180
	assert.Empty(t, cmp.Diff(r3.Vec{X: math.Cos(rad), Y: math.Sin(rad)}, right, approx))
}

func TestDefinition_Invalid(t *testing.T) {
	d := NewDefinition(Point(Identity()), Point(at(0, 0, -1)))
	d.UpVector = [3]float64{}
	_, err := d.Poses()
	assert.ErrorIs(t, err, ErrInvalidParameters)

	d = NewDefinition(Point(Identity()), Point(at(0, 0, -1)))
	d.RollAngleStep = -1
	_, err = d.Poses()
	assert.ErrorIs(t, err, ErrInvalidParameters)

	d = NewDefinition(Geometry{Type: "cube"}, Point(Identity()))
	_, err = d.Poses()
	assert.ErrorIs(t, err, ErrUnknownGeometry)
}

func TestParseConfiguration_Defaults(t *testing.T) {
	doc := `{
		"type": "VisionLibWorkSpacesConfig",
		"version": 1,
		"workSpaces": [{
			"type": "WorkSpaceDef",
			"origin": {"type": "sphere", "parameters": {"sphereSamples": 10}},
			"destination": {"type": "plane"}
		}]
	}`
	c, err := ParseConfiguration([]byte(doc))
	require.NoError(t, err)
	require.Len(t, c.WorkSpaces, 1)

	d := c.WorkSpaces[0]
	assert.Equal(t, [3]float64{0, 1, 0}, d.UpVector)
	assert.Equal(t, Identity(), d.Transformation)
	assert.Equal(t, DefaultSphereRadius, d.Origin.Parameters.SphereRadius)
	assert.Equal(t, 360.0, d.Origin.Parameters.SphereThetaLength)
	assert.Equal(t, 180.0, d.Origin.Parameters.SpherePhiLength)
	assert.Equal(t, 10, d.Origin.Parameters.SphereSamples)
	assert.Equal(t, 1, d.Destination.Parameters.PlaneSteps)

	poses, err := c.Poses()
	require.NoError(t, err)
	assert.Len(t, poses, 10)
}

func TestParseConfiguration_Invalid(t *testing.T) {
	_, err := ParseConfiguration([]byte(`{"type":"Other"}`))
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = ParseConfiguration([]byte(`{"version":2}`))
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = ParseConfiguration([]byte(`[`))
	assert.Error(t, err)

	c, err := ParseConfiguration([]byte(`{"workSpaces":[{"origin":{"type":"cube"},"destination":{"type":"plane"}}]}`))
	require.NoError(t, err)
	_, err = c.Poses()
	assert.ErrorIs(t, err, ErrUnknownGeometry)
}

func TestNewConfiguration(t *testing.T) {
	c := NewConfiguration(
		NewDefinition(Point(at(0, 0, 1)), Point(Identity())),
		NewDefinition(Line(1, 2, at(0, 0, 1)), Point(Identity())),
	)
	assert.Equal(t, TypeConfiguration, c.Type)
	assert.Equal(t, ConfigVersion, c.Version)
	poses, err := c.Poses()
	require.NoError(t, err)
	assert.Len(t, poses, 3)
}
