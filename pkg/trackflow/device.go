package trackflow

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/randalmurphal/trackflow/pkg/trackflow/action"
	"github.com/randalmurphal/trackflow/pkg/trackflow/calibration"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/keypath"
	"github.com/randalmurphal/trackflow/pkg/trackflow/platform"
)

// DeviceIDAttribute names the device attribute matched against calibration
// database entries. Devices without it are matched by name.
const DeviceIDAttribute = "deviceID"

// AddCameraCalibrationDB queues a calibration database URI. Queued
// databases are read, in order, every time a tracking configuration loads.
func (w *Worker) AddCameraCalibrationDB(src string) error {
	if src == "" {
		return fmt.Errorf("calibration database: %w", ErrEmptyURI)
	}
	w.calibMu.Lock()
	defer w.calibMu.Unlock()
	w.calibDBs = append(w.calibDBs, src)
	return nil
}

// ResetCameraCalibrationDB drops all queued calibration databases.
func (w *Worker) ResetCameraCalibrationDB() {
	w.calibMu.Lock()
	defer w.calibMu.Unlock()
	w.calibDBs = nil
}

// CameraCalibrationDBs returns the queued calibration database URIs.
func (w *Worker) CameraCalibrationDBs() []string {
	w.calibMu.Lock()
	defer w.calibMu.Unlock()
	return slices.Clone(w.calibDBs)
}

// calibrate loads the queued databases and applies matching entries to the
// intrinsic outputs of the devices of g. Devices left without a calibration
// are reported with CalibrationMissingForDevice.
func (w *Worker) calibrate(ctx context.Context, g *action.Graph, store *dataset.Store) tferrors.Warnings {
	var warnings tferrors.Warnings
	db := calibration.New()
	for _, src := range w.CameraCalibrationDBs() {
		data, err := w.resolver.Fetch(ctx, src)
		if err != nil {
			w.logger.Warn("calibration database unavailable", "uri", src, "error", err)
			warnings.Add(tferrors.CalibrationDBLoadFailed, src)
			continue
		}
		warnings = append(warnings, db.Load(src, data)...)
	}

	for _, id := range g.Devices() {
		in, err := store.Intrinsic(keypath.Join(g.Key(id), "intrinsic"))
		if err != nil {
			continue
		}
		if e, ok := db.Lookup(deviceID(g, id)); ok {
			*in = *e.Intrinsic()
			w.logger.Debug("calibration applied", "device", g.Key(id), "entry", e.DeviceID)
		}
		if !in.Calibrated() {
			warnings.Add(tferrors.CalibrationMissingForDevice, g.Key(id))
		}
	}
	return warnings
}

func deviceID(g *action.Graph, id action.NodeID) string {
	if v, err := g.Attribute(id, DeviceIDAttribute); err == nil && v != "" {
		return v
	}
	return g.Key(id)
}

// cameraInfos describes the devices of g.
func cameraInfos(g *action.Graph, store *dataset.Store) []platform.CameraInfo {
	var out []platform.CameraInfo
	for _, id := range g.Devices() {
		info := platform.CameraInfo{
			CameraName: g.Key(id),
			DeviceID:   deviceID(g, id),
			InternalID: g.Type(id),
			Position:   "unknown",
		}
		if in, err := store.Intrinsic(keypath.Join(g.Key(id), "intrinsic")); err == nil {
			info.PrefRes = fmt.Sprintf("%dx%d", in.Width(), in.Height())
		}
		out = append(out, info)
	}
	return out
}

// DeviceInfo describes the host and the cameras of the loaded project.
func (w *Worker) DeviceInfo() platform.DeviceInfo {
	var cams []platform.CameraInfo
	if p := w.cameras.Load(); p != nil {
		cams = slices.Clone(*p)
	}
	info := platform.CurrentDevice(cams)
	info.UsingEventLogger = w.logs.Buffering()
	return info
}

// DeviceInfoJSON returns DeviceInfo encoded as JSON.
func (w *Worker) DeviceInfoJSON() ([]byte, error) {
	return json.Marshal(w.DeviceInfo())
}
