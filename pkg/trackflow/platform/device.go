package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CameraInfo describes a camera the host offers.
type CameraInfo struct {
	CameraName string `json:"cameraName"`
	DeviceID   string `json:"deviceID"`
	InternalID string `json:"internalID"`
	Position   string `json:"position"`
	PrefRes    string `json:"prefRes"`
}

// DeviceInfo describes the host the worker runs on, in the layout clients
// expect from a device info query.
type DeviceInfo struct {
	AppID                     string       `json:"appID"`
	AvailableCameras          []CameraInfo `json:"availableCameras"`
	CameraAllowed             bool         `json:"cameraAllowed"`
	CurrentDisplayOrientation int          `json:"currentDisplayOrientation"`
	HasWebServer              bool         `json:"hasWebServer"`
	InternalModelID           string       `json:"internalModelID"`
	Manufacture               string       `json:"manufacture"`
	Model                     string       `json:"model"`
	ModelVersion              string       `json:"modelVersion"`
	NativeResX                int          `json:"nativeResX"`
	NativeResY                int          `json:"nativeResY"`
	NumberOfProcessors        int          `json:"numberOfProcessors"`
	OS                        string       `json:"os"`
	UnifiedID                 string       `json:"unifiedID"`
	UsingEventLogger          bool         `json:"usingEventLogger"`
	WebServerURL              string       `json:"webServerURL"`
}

// CurrentDevice describes this host with the given cameras. The camera
// list is never nil so it encodes as an array.
func CurrentDevice(cameras []CameraInfo) DeviceInfo {
	if cameras == nil {
		cameras = []CameraInfo{}
	}
	return DeviceInfo{
		AppID:              appID(),
		AvailableCameras:   cameras,
		CameraAllowed:      true,
		InternalModelID:    runtime.GOOS + "/" + runtime.GOARCH,
		Model:              runtime.GOARCH,
		ModelVersion:       CurrentVersion().String(),
		NumberOfProcessors: runtime.NumCPU(),
		OS:                 runtime.GOOS,
		UnifiedID:          HostID(),
	}
}

func appID() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
}
