package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// AppDir is the directory name used under the platform config dir.
const AppDir = "mentionserve"

// PathResolver provides robust path resolution for the mentionserve binaries
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      getConfigDir(homeDir),
	}

	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", AppDir)
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppDir)
		}
		return filepath.Join(homeDir, ".config", AppDir)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDir)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppDir)
	default:
		return filepath.Join(homeDir, "."+AppDir)
	}
}

// GetConfigPath returns the full path for a config file
// It ensures the config directory exists and handles read-only filesystem issues
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if ensureWritableDir(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+AppDir),
		filepath.Join(os.TempDir(), AppDir),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if ensureWritableDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// ResolveDataPath places a relative data file (e.g. the user database) in
// baseDir, normally the directory of the loaded config. An empty baseDir means
// the platform config dir. Absolute paths and ":memory:" pass through.
func (pr *PathResolver) ResolveDataPath(name, baseDir string) string {
	if name == "" || name == ":memory:" || filepath.IsAbs(name) || strings.HasPrefix(name, "file:") {
		return name
	}
	if baseDir == "" {
		baseDir = pr.configDir
	}
	return filepath.Join(baseDir, name)
}

// ensureWritableDir creates the directory if needed and tests writability
func ensureWritableDir(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Debugf("Cannot create directory %s: %v", dir, err)
		return false
	}
	return testWriteAccess(dir)
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()

	info := map[string]string{
		"executable_path": pr.executablePath,
		"executable_dir":  pr.executableDir,
		"current_dir":     cwd,
		"home_dir":        pr.homeDir,
		"config_dir":      pr.configDir,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
	}
	for _, envVar := range []string{"HOME", "XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}
