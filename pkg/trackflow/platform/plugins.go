package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// PluginPathEnv names the environment variable consulted when no explicit
// plugin directory is given.
const PluginPathEnv = "PM_PLUGIN_PATH"

// ErrPluginDir indicates the plugin directory could not be determined.
var ErrPluginDir = errors.New("plugin directory unavailable")

var pluginExts = []string{".so", ".dylib", ".dll"}

// ResolvePluginDir picks the plugin directory: dir if non-empty, else
// $PM_PLUGIN_PATH, else the directory of the running executable.
func ResolvePluginDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if env := os.Getenv(PluginPathEnv); env != "" {
		return env, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPluginDir, err)
	}
	return filepath.Dir(exe), nil
}

// Plugins lists the shared libraries in dir, sorted by name.
func Plugins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPluginDir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(pluginExts, strings.ToLower(filepath.Ext(e.Name()))) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
