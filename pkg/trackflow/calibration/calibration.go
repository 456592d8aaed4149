// Package calibration holds camera calibration databases.
//
// A database document is a JSON object mapping a device ID to its entry:
//
//	{
//	  "Logitech C920": {
//	    "alternativeDeviceIDs": ["046d:082d"],
//	    "intrinsics": {"width": 640, "height": 480, "fx": 0.9, "fy": 1.2, "cx": 0.5, "cy": 0.5}
//	  }
//	}
//
// Databases are merged in the order they are loaded; a later entry replaces
// an earlier one with the same ID. Problems are reported as warnings, never
// as errors.
package calibration

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

// Intrinsics is the stored form of a pinhole calibration. Focal lengths,
// principal point and skew are normalized by width and height.
type Intrinsics struct {
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	Fx               float64   `json:"fx"`
	Fy               float64   `json:"fy"`
	Cx               float64   `json:"cx"`
	Cy               float64   `json:"cy"`
	S                float64   `json:"s"`
	K                []float64 `json:"k,omitempty"`
	CalibrationError float64   `json:"calibrationError"`
}

// Entry is the calibration of one device.
type Entry struct {
	DeviceID             string     `json:"deviceID"`
	AlternativeDeviceIDs []string   `json:"alternativeDeviceIDs,omitempty"`
	Intrinsics           Intrinsics `json:"intrinsics"`
}

func (e Entry) validate() error {
	in := e.Intrinsics
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("size %dx%d", in.Width, in.Height)
	}
	if in.Fx <= 0 || in.Fy <= 0 {
		return fmt.Errorf("focal length %gx%g", in.Fx, in.Fy)
	}
	if len(in.K) > dataset.MaxRadialDistortion {
		return fmt.Errorf("%d distortion coefficients", len(in.K))
	}
	return nil
}

// Intrinsic returns the entry as calibrated intrinsic data.
func (e Entry) Intrinsic() *dataset.IntrinsicData {
	in := e.Intrinsics
	out := dataset.NewIntrinsicData(in.Width, in.Height, in.Fx, in.Fy, in.Cx, in.Cy, in.S)
	// K is bounded by validate.
	_ = out.SetRadialDistortion(in.K)
	out.SetCalibrated(true, in.CalibrationError)
	return out
}

// DB is a merged set of calibration databases. The zero value is empty and
// ready to use. A DB is not safe for concurrent use.
type DB struct {
	byID map[string]Entry
}

// New returns an empty database.
func New() *DB {
	return &DB{}
}

// Len returns the number of device IDs known, alternatives included.
func (db *DB) Len() int {
	return len(db.byID)
}

// Lookup returns the entry registered for id, directly or as an alternative.
func (db *DB) Lookup(id string) (Entry, bool) {
	e, ok := db.byID[id]
	return e, ok
}

// Load merges the database document data, read from src, into db. It
// reports an undecodable document as CalibrationDBInvalid and skips invalid
// entries with CalibrationDBLoadError. Replacing an ID loaded before is
// reported as CalibrationDeviceIDOverwrittenOnLoad, or as
// CalibrationDeviceIDOverwrittenByAlternative when the new entry claims it
// as an alternative ID.
func (db *DB) Load(src string, data []byte) tferrors.Warnings {
	var warnings tferrors.Warnings
	var doc map[string]Entry
	if err := json.Unmarshal(data, &doc); err != nil {
		warnings.Add(tferrors.CalibrationDBInvalid, fmt.Sprintf("%s: %v", src, err))
		return warnings
	}
	if db.byID == nil {
		db.byID = make(map[string]Entry)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		e := doc[key]
		if e.DeviceID == "" {
			e.DeviceID = key
		}
		if err := e.validate(); err != nil {
			warnings.Add(tferrors.CalibrationDBLoadError, fmt.Sprintf("%s: %s: %v", src, e.DeviceID, err))
			continue
		}
		if _, ok := db.byID[e.DeviceID]; ok {
			warnings.Add(tferrors.CalibrationDeviceIDOverwrittenOnLoad, e.DeviceID)
		}
		db.byID[e.DeviceID] = e
		for _, alt := range e.AlternativeDeviceIDs {
			if alt == "" || alt == e.DeviceID {
				continue
			}
			if _, ok := db.byID[alt]; ok {
				warnings.Add(tferrors.CalibrationDeviceIDOverwrittenByAlternative, alt)
			}
			db.byID[alt] = e
		}
	}
	return warnings
}
