package trackflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/platform"
	"github.com/randalmurphal/trackflow/pkg/trackflow/uri"
)

const calibDB = `{
  "webcam": {
    "intrinsics": {"width": 640, "height": 480, "fx": 0.9, "fy": 1.2, "cx": 0.5, "cy": 0.5, "calibrationError": 0.25}
  }
}`

func calibratedTracker() string {
	return strings.Replace(trackerJSON, `"height": 6}`, `"height": 6, "deviceID": "webcam"}`, 1)
}

func TestWorker_CameraCalibrationDB(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calib.json"), []byte(calibDB), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))
	res := uri.NewResolver()
	res.RegisterDir("project-dir:", dir)
	w := newStartedSync(t, WithResolver(res))

	assert.ErrorIs(t, w.AddCameraCalibrationDB(""), ErrEmptyURI)
	require.NoError(t, w.AddCameraCalibrationDB("project-dir:calib.json"))
	assert.Equal(t, []string{"project-dir:calib.json"}, w.CameraCalibrationDBs())

	load := map[string]string{"str": calibratedTracker(), "fakeFilename": "tracker.vl"}
	r := step(t, w, CmdCreateTrackerFromString, load)
	require.NoError(t, r.Err)
	assert.Empty(t, r.Warnings)

	in, err := w.Snapshot().Intrinsic("camera0.intrinsic")
	require.NoError(t, err)
	assert.True(t, in.Calibrated())
	assert.Equal(t, 0.25, in.CalibrationError())
	assert.Equal(t, 0.9, in.FxNorm())
	// The camera resizes the calibration to its frame size.
	assert.Equal(t, 8, in.Width())

	tracked, err := w.Snapshot().Intrinsic("tracker0.intrinsic")
	require.NoError(t, err)
	assert.True(t, tracked.Calibrated())

	require.NoError(t, w.AddCameraCalibrationDB("project-dir:missing.json"))
	require.NoError(t, w.AddCameraCalibrationDB("project-dir:broken.json"))
	r = step(t, w, CmdCreateTrackerFromString, load)
	require.NoError(t, r.Err)
	assert.Equal(t, []tferrors.Code{tferrors.CalibrationDBLoadFailed, tferrors.CalibrationDBInvalid}, r.Warnings.Codes())
	assert.Equal(t, "project-dir:missing.json", r.Warnings[0].Info)

	w.ResetCameraCalibrationDB()
	assert.Empty(t, w.CameraCalibrationDBs())
	r = step(t, w, CmdCreateTrackerFromString, load)
	require.NoError(t, r.Err)
	assert.Equal(t, []tferrors.Code{tferrors.CalibrationMissingForDevice}, r.Warnings.Codes())
}

func TestWorker_CalibrationMatchedByDeviceName(t *testing.T) {
	dir := t.TempDir()
	db := strings.Replace(calibDB, `"webcam"`, `"camera0"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calib.json"), []byte(db), 0o600))
	res := uri.NewResolver()
	res.RegisterDir("project-dir:", dir)
	w := newStartedSync(t, WithResolver(res))
	require.NoError(t, w.AddCameraCalibrationDB("project-dir:calib.json"))

	r := step(t, w, CmdCreateTrackerFromString, map[string]string{"str": trackerJSON})
	require.NoError(t, r.Err)
	assert.Empty(t, r.Warnings)
}

func TestWorker_DeviceInfo(t *testing.T) {
	w := newStartedSync(t)
	assert.Empty(t, w.DeviceInfo().AvailableCameras)

	loadTracker(t, w)
	info := w.DeviceInfo()
	assert.Equal(t, []platform.CameraInfo{{
		CameraName: "camera0",
		DeviceID:   "camera0",
		InternalID: "syntheticCamera",
		Position:   "unknown",
		PrefRes:    "8x6",
	}}, info.AvailableCameras)
	assert.False(t, info.UsingEventLogger)

	raw, err := w.DeviceInfoJSON()
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["availableCameras"], 1)
	assert.Equal(t, info.OS, doc["os"])

	require.NoError(t, step(t, w, CmdClearProject, nil).Err)
	assert.Empty(t, w.DeviceInfo().AvailableCameras)
}
