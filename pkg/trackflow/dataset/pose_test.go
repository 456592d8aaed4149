package dataset

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestExtrinsic_Defaults(t *testing.T) {
	e := NewExtrinsicData()
	assert.False(t, e.Valid())
	assert.Equal(t, [4]float64{0, 0, 0, 1}, e.R())
	assert.Equal(t, [3]float64{}, e.T())
}

func TestExtrinsic_SetRNormalizes(t *testing.T) {
	e := NewExtrinsicData()
	require.NoError(t, e.SetR([4]float64{0, 0, 0, 2}))
	if diff := cmp.Diff([4]float64{0, 0, 0, 1}, e.R(), approx); diff != "" {
		t.Errorf("R mismatch (-want +got):\n%s", diff)
	}

	assert.ErrorIs(t, e.SetR([4]float64{}), ErrZeroQuaternion)
}

func TestExtrinsic_CamPosWorldRoundTrip(t *testing.T) {
	h := math.Sqrt(0.5)
	rotations := map[string][4]float64{
		"identity": {0, 0, 0, 1},
		"z90":      {0, 0, h, h},
		"x180":     {1, 0, 0, 0},
		"oblique":  {0.1, -0.4, 0.3, 0.85},
	}
	p := [3]float64{1.5, -2, 0.25}

	for name, q := range rotations {
		t.Run(name, func(t *testing.T) {
			e := NewExtrinsicData()
			require.NoError(t, e.SetR(q))
			e.SetCamPosWorld(p)

			if diff := cmp.Diff(p, e.CamPosWorld(), approx); diff != "" {
				t.Errorf("CamPosWorld mismatch (-want +got):\n%s", diff)
			}
			// The camera centre maps to the camera origin.
			if diff := cmp.Diff([3]float64{}, e.Transform(p), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("Transform mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtrinsic_SetCamPosWorldIdentity(t *testing.T) {
	e := NewExtrinsicData()
	e.SetCamPosWorld([3]float64{1, 2, 3})
	if diff := cmp.Diff([3]float64{-1, -2, -3}, e.T(), approx); diff != "" {
		t.Errorf("T mismatch (-want +got):\n%s", diff)
	}
}

func TestExtrinsic_ModelViewMatrix(t *testing.T) {
	h := math.Sqrt(0.5)
	e := NewExtrinsicData()
	require.NoError(t, e.SetR([4]float64{0, 0, h, h}))
	e.SetT([3]float64{1, 2, 3})

	// 90 degrees about z: x -> y, y -> -x.
	want := [16]float64{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	}
	if diff := cmp.Diff(want, e.ModelViewMatrix(), approx); diff != "" {
		t.Errorf("ModelViewMatrix mismatch (-want +got):\n%s", diff)
	}
}

func TestExtrinsicView(t *testing.T) {
	var zero ExtrinsicView
	assert.False(t, zero.Valid())

	e := NewExtrinsicData()
	assert.False(t, e.View().Valid())
	e.SetValid(true)
	assert.True(t, e.View().Valid())
}

func TestIntrinsic_ProjectionMatrix(t *testing.T) {
	in := NewIntrinsicData(100, 100, 1, 1, 0.5, 0.5, 0)
	near, far := 0.1, 100.0
	depth := [3]float64{-(far + near) / (far - near), -1, -2 * far * near / (far - near)}

	t.Run("ccw0", func(t *testing.T) {
		m, err := in.ProjectionMatrix(near, far, 100, 100, RenderRotationCCW0)
		require.NoError(t, err)
		want := [16]float64{
			2, 0, 0, 0,
			0, 2, 0, 0,
			0, 0, depth[0], depth[1],
			0, 0, depth[2], 0,
		}
		if diff := cmp.Diff(want, m, approx); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ccw90", func(t *testing.T) {
		m, err := in.ProjectionMatrix(near, far, 100, 100, RenderRotationCCW90)
		require.NoError(t, err)
		want := [16]float64{
			0, 2, 0, 0,
			-2, 0, 0, 0,
			0, 0, depth[0], depth[1],
			0, 0, depth[2], 0,
		}
		if diff := cmp.Diff(want, m, approx); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ccw180", func(t *testing.T) {
		m, err := in.ProjectionMatrix(near, far, 100, 100, RenderRotationCCW180)
		require.NoError(t, err)
		assert.InDelta(t, -2, m[0], 1e-9)
		assert.InDelta(t, -2, m[5], 1e-9)
	})

	t.Run("cover wider image", func(t *testing.T) {
		wide := NewIntrinsicData(200, 100, 1, 1, 0.5, 0.5, 0)
		m, err := wide.ProjectionMatrix(near, far, 100, 100, RenderRotationCCW0)
		require.NoError(t, err)
		assert.InDelta(t, 4, m[0], 1e-9)
		assert.InDelta(t, 2, m[5], 1e-9)
	})

	t.Run("cover wider screen", func(t *testing.T) {
		m, err := in.ProjectionMatrix(near, far, 200, 100, RenderRotationCCW0)
		require.NoError(t, err)
		assert.InDelta(t, 2, m[0], 1e-9)
		assert.InDelta(t, 4, m[5], 1e-9)
	})

	t.Run("principal point offset", func(t *testing.T) {
		off := NewIntrinsicData(100, 100, 1, 1, 0.25, 0.75, 0)
		m, err := off.ProjectionMatrix(near, far, 100, 100, RenderRotationCCW0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, m[8], 1e-9)
		assert.InDelta(t, 0.5, m[9], 1e-9)
	})
}

func TestIntrinsic_ProjectionMatrixErrors(t *testing.T) {
	in := DefaultIntrinsicData(640, 480)

	_, err := in.ProjectionMatrix(0, 10, 1, 1, RenderRotationCCW0)
	assert.ErrorIs(t, err, ErrInvalidClipPlanes)

	_, err = in.ProjectionMatrix(1, 1, 1, 1, RenderRotationCCW0)
	assert.ErrorIs(t, err, ErrInvalidClipPlanes)

	_, err = in.ProjectionMatrix(0.1, 10, 0, 1, RenderRotationCCW0)
	assert.ErrorIs(t, err, ErrInvalidScreen)

	_, err = in.ProjectionMatrix(0.1, 10, 1, 1, RenderRotation(7))
	assert.ErrorIs(t, err, ErrInvalidRotation)
}

func TestIntrinsic_RadialDistortion(t *testing.T) {
	in := DefaultIntrinsicData(640, 480)
	require.NoError(t, in.SetRadialDistortion([]float64{0.1, -0.2}))
	assert.Equal(t, [MaxRadialDistortion]float64{0.1, -0.2, 0, 0, 0}, in.RadialDistortion())

	err := in.SetRadialDistortion(make([]float64, 6))
	assert.ErrorIs(t, err, ErrTooManyCoefficients)
}
