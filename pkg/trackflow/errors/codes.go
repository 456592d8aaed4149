// Package errors defines the tracking error and warning code space, the
// Issue type that carries a code with its info string, and retry helpers for
// transient collaborator failures.
//
// Codes are flat integers partitioned into ranges:
//   - 1-99: device, camera, calibration and permission problems
//   - 98-100: file and format problems
//   - 101-199: license problems
//   - 300-399: model load and decode problems
//   - 400-499: graph construction problems
//
// Warnings share the numeric space with errors. Whether a code is a warning is
// decided by the context that reports it, which is recorded on the Issue.
package errors

import "fmt"

// Code is a tracking error or warning code.
type Code int

// Error codes.
const (
	DeviceNameLoadFailed Code = 3
	NoCameraConnected    Code = 4
	NoCameraAccess       Code = 5

	FileReadingFailed            Code = 98
	FileInvalid                  Code = 99
	FileFormatNotAllowed         Code = 100
	LicenseInvalid               Code = 101
	LicenseExpired               Code = 102
	LicenseExceedsRuns           Code = 103
	LicenseInvalidHostID         Code = 105
	LicenseInvalidPlatform       Code = 107
	LicenseFileNotFound          Code = 109
	LicenseInvalidProgramVersion Code = 110
	LicenseInvalidSeat           Code = 111
	LicenseInvalidFeature        Code = 112
	LicenseInvalidBundleID       Code = 114

	ModelLoadFailed   Code = 300
	ModelDecodeFailed Code = 301

	GraphSetupFailedUnknown   Code = 400
	GraphNodeNotFound         Code = 401
	GraphInvalidDataPath      Code = 402
	GraphInputNotFound        Code = 403
	GraphOutputNotFound       Code = 404
	GraphHasCycles            Code = 405
	GraphTrackersEmpty        Code = 406
	GraphDuplicateDeviceName  Code = 407
	GraphDuplicateTrackerName Code = 408
)

// Warning codes.
const (
	CalibrationMissingForDevice                 Code = 2
	CalibrationDBLoadFailed                     Code = 10
	CalibrationDBInvalid                        Code = 11
	CalibrationDBLoadError                      Code = 12
	CalibrationDeviceIDOverwrittenOnLoad        Code = 13
	CalibrationDeviceIDOverwrittenByAlternative Code = 14
	DeprecationWarning                          Code = 20
	PermissionNotSet                            Code = 97
	LicenseModelBoundFeatureInvalid             Code = 104
	LicenseUsingUnregisteredModels              Code = 108
	LicenseExpiringSoon                         Code = 113
)

var codeNames = map[Code]string{
	DeviceNameLoadFailed:         "device name load failed",
	NoCameraConnected:            "no camera connected",
	NoCameraAccess:               "no camera access",
	FileReadingFailed:            "file reading failed",
	FileInvalid:                  "file invalid",
	FileFormatNotAllowed:         "file format not allowed",
	LicenseInvalid:               "license invalid",
	LicenseExpired:               "license expired",
	LicenseExceedsRuns:           "license exceeds runs",
	LicenseInvalidHostID:         "license invalid host id",
	LicenseInvalidPlatform:       "license invalid platform",
	LicenseFileNotFound:          "license file not found",
	LicenseInvalidProgramVersion: "license invalid program version",
	LicenseInvalidSeat:           "license invalid seat",
	LicenseInvalidFeature:        "license invalid feature",
	LicenseInvalidBundleID:       "license invalid bundle id",
	ModelLoadFailed:              "model load failed",
	ModelDecodeFailed:            "model decode failed",
	GraphSetupFailedUnknown:      "graph setup failed",
	GraphNodeNotFound:            "graph node not found",
	GraphInvalidDataPath:         "graph invalid data path",
	GraphInputNotFound:           "graph input not found",
	GraphOutputNotFound:          "graph output not found",
	GraphHasCycles:               "graph has cycles",
	GraphTrackersEmpty:           "graph trackers empty",
	GraphDuplicateDeviceName:     "graph duplicate device name",
	GraphDuplicateTrackerName:    "graph duplicate tracker name",

	CalibrationMissingForDevice:                 "calibration missing for device",
	CalibrationDBLoadFailed:                     "calibration db load failed",
	CalibrationDBInvalid:                        "calibration db invalid",
	CalibrationDBLoadError:                      "calibration db load error",
	CalibrationDeviceIDOverwrittenOnLoad:        "calibration device id overwritten on load",
	CalibrationDeviceIDOverwrittenByAlternative: "calibration device id overwritten by alternative id",
	DeprecationWarning:                          "deprecated parameter",
	PermissionNotSet:                            "permission not set",
	LicenseModelBoundFeatureInvalid:             "license model bound feature invalid",
	LicenseUsingUnregisteredModels:              "license using unregistered models",
	LicenseExpiringSoon:                         "license expiring soon",
}

// String returns a short human-readable name for the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code %d", int(c))
}

// Range identifies the structural range a code belongs to.
type Range int

const (
	RangeUnknown Range = iota
	RangeDevice
	RangeFile
	RangeLicense
	RangeModel
	RangeGraph
)

// String returns the range name.
func (r Range) String() string {
	switch r {
	case RangeDevice:
		return "device"
	case RangeFile:
		return "file"
	case RangeLicense:
		return "license"
	case RangeModel:
		return "model"
	case RangeGraph:
		return "graph"
	default:
		return "unknown"
	}
}

// Range returns the structural range of the code.
func (c Code) Range() Range {
	switch {
	case c >= 1 && c < 98:
		return RangeDevice
	case c >= 98 && c <= 100:
		return RangeFile
	case c > 100 && c < 200:
		return RangeLicense
	case c >= 300 && c < 400:
		return RangeModel
	case c >= 400 && c < 500:
		return RangeGraph
	default:
		return RangeUnknown
	}
}
