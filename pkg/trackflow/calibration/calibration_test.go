package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

const webcamDB = `{
  "webcam": {
    "alternativeDeviceIDs": ["usb:046d"],
    "intrinsics": {"width": 640, "height": 480, "fx": 0.9, "fy": 1.2, "cx": 0.5, "cy": 0.45,
                   "k": [0.1, -0.05], "calibrationError": 0.3}
  }
}`

func TestDB_Load(t *testing.T) {
	db := New()
	warnings := db.Load("a.json", []byte(webcamDB))
	assert.Empty(t, warnings)
	assert.Equal(t, 2, db.Len())

	e, ok := db.Lookup("webcam")
	require.True(t, ok)
	assert.Equal(t, "webcam", e.DeviceID)

	alt, ok := db.Lookup("usb:046d")
	require.True(t, ok)
	assert.Equal(t, e.DeviceID, alt.DeviceID)

	in := e.Intrinsic()
	assert.True(t, in.Calibrated())
	assert.Equal(t, 0.3, in.CalibrationError())
	assert.Equal(t, 640, in.Width())
	assert.Equal(t, 0.45, in.CyNorm())
	assert.Equal(t, [5]float64{0.1, -0.05}, in.RadialDistortion())

	_, ok = db.Lookup("other")
	assert.False(t, ok)
}

func TestDB_ZeroValue(t *testing.T) {
	var db DB
	_, ok := db.Lookup("webcam")
	assert.False(t, ok)
	assert.Empty(t, db.Load("a.json", []byte(webcamDB)))
	assert.Equal(t, 2, db.Len())
}

func TestDB_Invalid(t *testing.T) {
	db := New()
	warnings := db.Load("broken.json", []byte(`[1, 2]`))
	assert.Equal(t, []tferrors.Code{tferrors.CalibrationDBInvalid}, warnings.Codes())
	assert.Contains(t, warnings[0].Info, "broken.json")

	warnings = db.Load("entries.json", []byte(`{
	  "noSize": {"intrinsics": {"fx": 1, "fy": 1}},
	  "noFocal": {"intrinsics": {"width": 4, "height": 4}},
	  "manyK": {"intrinsics": {"width": 4, "height": 4, "fx": 1, "fy": 1, "k": [1, 2, 3, 4, 5, 6]}},
	  "good": {"intrinsics": {"width": 4, "height": 4, "fx": 1, "fy": 1}}
	}`))
	assert.Equal(t, []tferrors.Code{
		tferrors.CalibrationDBLoadError,
		tferrors.CalibrationDBLoadError,
		tferrors.CalibrationDBLoadError,
	}, warnings.Codes())
	assert.Equal(t, 1, db.Len())
	_, ok := db.Lookup("good")
	assert.True(t, ok)
}

func TestDB_Overwrites(t *testing.T) {
	db := New()
	require.Empty(t, db.Load("a.json", []byte(webcamDB)))

	warnings := db.Load("b.json", []byte(`{
	  "webcam": {"intrinsics": {"width": 320, "height": 240, "fx": 1, "fy": 1}},
	  "laptop": {"alternativeDeviceIDs": ["usb:046d", "laptop"],
	             "intrinsics": {"width": 1280, "height": 720, "fx": 1, "fy": 1}}
	}`))
	// Keys load in sorted order: laptop, then webcam.
	assert.Equal(t, []tferrors.Code{
		tferrors.CalibrationDeviceIDOverwrittenByAlternative,
		tferrors.CalibrationDeviceIDOverwrittenOnLoad,
	}, warnings.Codes())
	assert.Equal(t, "usb:046d", warnings[0].Info)
	assert.Equal(t, "webcam", warnings[1].Info)

	e, ok := db.Lookup("webcam")
	require.True(t, ok)
	assert.Equal(t, 320, e.Intrinsics.Width)

	e, ok = db.Lookup("usb:046d")
	require.True(t, ok)
	assert.Equal(t, "laptop", e.DeviceID)
}

func TestDB_ExplicitDeviceID(t *testing.T) {
	db := New()
	require.Empty(t, db.Load("a.json", []byte(`{
	  "entry1": {"deviceID": "cam-A", "intrinsics": {"width": 4, "height": 4, "fx": 1, "fy": 1}}
	}`)))
	_, ok := db.Lookup("cam-A")
	assert.True(t, ok)
	_, ok = db.Lookup("entry1")
	assert.False(t, ok)
}
