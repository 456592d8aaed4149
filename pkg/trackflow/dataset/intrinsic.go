package dataset

import (
	"errors"
	"fmt"
)

// RenderRotation describes how rendering is rotated counter-clockwise
// relative to the orientation of the camera images. The numeric values are
// part of the protocol and are not in angle order.
type RenderRotation int

const (
	RenderRotationCCW0   RenderRotation = 0
	RenderRotationCCW90  RenderRotation = 2
	RenderRotationCCW180 RenderRotation = 1
	RenderRotationCCW270 RenderRotation = 3
)

// MaxRadialDistortion is the number of radial distortion coefficients kept.
const MaxRadialDistortion = 5

var (
	// ErrInvalidRotation indicates an unknown RenderRotation value.
	ErrInvalidRotation = errors.New("invalid render rotation")

	// ErrInvalidClipPlanes indicates near/far planes with near <= 0 or far <= near.
	ErrInvalidClipPlanes = errors.New("invalid clip planes")

	// ErrInvalidScreen indicates a non-positive screen dimension.
	ErrInvalidScreen = errors.New("invalid screen size")

	// ErrTooManyCoefficients indicates more than MaxRadialDistortion coefficients.
	ErrTooManyCoefficients = errors.New("too many distortion coefficients")
)

// IntrinsicData is a cell holding a pinhole calibration. Focal lengths, skew
// and principal point are normalized by the calibration width and height.
type IntrinsicData struct {
	width            int
	height           int
	fxNorm, fyNorm   float64
	skewNorm         float64
	cxNorm, cyNorm   float64
	radial           [MaxRadialDistortion]float64
	calibrated       bool
	calibrationError float64
}

// NewIntrinsicData creates a calibration for images of width x height.
func NewIntrinsicData(width, height int, fxNorm, fyNorm, cxNorm, cyNorm, skewNorm float64) *IntrinsicData {
	return &IntrinsicData{
		width:    width,
		height:   height,
		fxNorm:   fxNorm,
		fyNorm:   fyNorm,
		cxNorm:   cxNorm,
		cyNorm:   cyNorm,
		skewNorm: skewNorm,
	}
}

// DefaultIntrinsicData returns an uncalibrated guess for a camera with
// roughly 60 degrees horizontal field of view.
func DefaultIntrinsicData(width, height int) *IntrinsicData {
	fy := 0.866
	if height > 0 {
		fy = 0.866 * float64(width) / float64(height)
	}
	return NewIntrinsicData(width, height, 0.866, fy, 0.5, 0.5, 0)
}

// Kind implements Data.
func (in *IntrinsicData) Kind() Kind { return KindIntrinsic }

// Width returns the calibration width.
func (in *IntrinsicData) Width() int { return in.width }

// Height returns the calibration height.
func (in *IntrinsicData) Height() int { return in.height }

// SetSize changes the calibration size. Normalized values are kept.
func (in *IntrinsicData) SetSize(width, height int) {
	in.width, in.height = width, height
}

// FxNorm returns the normalized horizontal focal length.
func (in *IntrinsicData) FxNorm() float64 { return in.fxNorm }

// FyNorm returns the normalized vertical focal length.
func (in *IntrinsicData) FyNorm() float64 { return in.fyNorm }

// SkewNorm returns the normalized skew.
func (in *IntrinsicData) SkewNorm() float64 { return in.skewNorm }

// CxNorm returns the normalized principal point x.
func (in *IntrinsicData) CxNorm() float64 { return in.cxNorm }

// CyNorm returns the normalized principal point y.
func (in *IntrinsicData) CyNorm() float64 { return in.cyNorm }

// RadialDistortion returns the radial distortion coefficients.
func (in *IntrinsicData) RadialDistortion() [MaxRadialDistortion]float64 { return in.radial }

// SetRadialDistortion sets up to MaxRadialDistortion coefficients; missing
// coefficients are zero.
func (in *IntrinsicData) SetRadialDistortion(coeffs []float64) error {
	if len(coeffs) > MaxRadialDistortion {
		return fmt.Errorf("%w: %d", ErrTooManyCoefficients, len(coeffs))
	}
	in.radial = [MaxRadialDistortion]float64{}
	copy(in.radial[:], coeffs)
	return nil
}

// Calibrated reports whether the values come from a real calibration.
func (in *IntrinsicData) Calibrated() bool { return in.calibrated }

// CalibrationError returns the reprojection error of the calibration.
func (in *IntrinsicData) CalibrationError() float64 { return in.calibrationError }

// SetCalibrated marks the calibration as real with its reprojection error.
func (in *IntrinsicData) SetCalibrated(calibrated bool, reprojectionError float64) {
	in.calibrated = calibrated
	in.calibrationError = reprojectionError
}

// ProjectionMatrix returns a column-major OpenGL projection matrix for the
// calibration, rendered onto a screenWidth x screenHeight surface rotated by
// rot. The image covers the screen when aspect ratios differ.
func (in *IntrinsicData) ProjectionMatrix(near, far float64, screenWidth, screenHeight int, rot RenderRotation) ([16]float64, error) {
	var m [16]float64
	if near <= 0 || far <= near {
		return m, fmt.Errorf("%w: near=%g far=%g", ErrInvalidClipPlanes, near, far)
	}
	if screenWidth <= 0 || screenHeight <= 0 {
		return m, fmt.Errorf("%w: %dx%d", ErrInvalidScreen, screenWidth, screenHeight)
	}

	var c, s float64
	imageAspect := 1.0
	if in.height > 0 {
		imageAspect = float64(in.width) / float64(in.height)
	}
	switch rot {
	case RenderRotationCCW0:
		c, s = 1, 0
	case RenderRotationCCW90:
		c, s = 0, 1
		imageAspect = 1 / imageAspect
	case RenderRotationCCW180:
		c, s = -1, 0
	case RenderRotationCCW270:
		c, s = 0, -1
		imageAspect = 1 / imageAspect
	default:
		return m, fmt.Errorf("%w: %d", ErrInvalidRotation, int(rot))
	}

	// Rows of the unrotated projection in image NDC.
	row0 := [4]float64{2 * in.fxNorm, 2 * in.skewNorm, 1 - 2*in.cxNorm, 0}
	row1 := [4]float64{0, 2 * in.fyNorm, 2*in.cyNorm - 1, 0}

	sx, sy := 1.0, 1.0
	screenAspect := float64(screenWidth) / float64(screenHeight)
	if screenAspect > imageAspect {
		sy = screenAspect / imageAspect
	} else {
		sx = imageAspect / screenAspect
	}

	for col := 0; col < 4; col++ {
		x := c*row0[col] - s*row1[col]
		y := s*row0[col] + c*row1[col]
		m[col*4+0] = sx * x
		m[col*4+1] = sy * y
	}
	m[10] = -(far + near) / (far - near)
	m[11] = -1
	m[14] = -2 * far * near / (far - near)
	return m, nil
}

func (in *IntrinsicData) cloneData() Data {
	c := *in
	return &c
}

// View returns a read-only view of the calibration.
func (in *IntrinsicData) View() IntrinsicView {
	return IntrinsicView{in: in}
}

// IntrinsicView is a non-owning, read-only view of an IntrinsicData.
type IntrinsicView struct {
	in *IntrinsicData
}

// Valid reports whether the view refers to a calibration.
func (v IntrinsicView) Valid() bool { return v.in != nil }

// Width returns the calibration width.
func (v IntrinsicView) Width() int { return v.in.Width() }

// Height returns the calibration height.
func (v IntrinsicView) Height() int { return v.in.Height() }

// FxNorm returns the normalized horizontal focal length.
func (v IntrinsicView) FxNorm() float64 { return v.in.FxNorm() }

// FyNorm returns the normalized vertical focal length.
func (v IntrinsicView) FyNorm() float64 { return v.in.FyNorm() }

// CxNorm returns the normalized principal point x.
func (v IntrinsicView) CxNorm() float64 { return v.in.CxNorm() }

// CyNorm returns the normalized principal point y.
func (v IntrinsicView) CyNorm() float64 { return v.in.CyNorm() }

// SkewNorm returns the normalized skew.
func (v IntrinsicView) SkewNorm() float64 { return v.in.SkewNorm() }

// Calibrated reports whether the values come from a real calibration.
func (v IntrinsicView) Calibrated() bool { return v.in.Calibrated() }

// CalibrationError returns the reprojection error.
func (v IntrinsicView) CalibrationError() float64 { return v.in.CalibrationError() }

// RadialDistortion returns the radial distortion coefficients.
func (v IntrinsicView) RadialDistortion() [MaxRadialDistortion]float64 {
	return v.in.RadialDistortion()
}

// ProjectionMatrix returns the projection matrix; see IntrinsicData.ProjectionMatrix.
func (v IntrinsicView) ProjectionMatrix(near, far float64, screenWidth, screenHeight int, rot RenderRotation) ([16]float64, error) {
	return v.in.ProjectionMatrix(near, far, screenWidth, screenHeight, rot)
}
