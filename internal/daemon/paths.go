package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DaemonInfo is written to daemon.json in the data directory so clients
// started with a different config can still find the running daemon.
type DaemonInfo struct {
	SocketPath string    `json:"socket_path"`
	PIDPath    string    `json:"pid_path"`
	StatePath  string    `json:"state_path"`
	LogPath    string    `json:"log_path"`
	StartTime  time.Time `json:"start_time"`
	PID        int       `json:"pid"`
}

// daemonInfoFile is the name of the file containing daemon connection info.
const daemonInfoFile = "daemon.json"

// DaemonInfoPath returns the path to daemon.json inside dataDir.
func DaemonInfoPath(dataDir string) string {
	return filepath.Join(dataDir, daemonInfoFile)
}

// FindDaemonInfo reads daemon.json from dataDir and checks that the
// recorded process is still alive.
func FindDaemonInfo(dataDir string) (*DaemonInfo, error) {
	infoPath := DaemonInfoPath(dataDir)
	info, err := ReadDaemonInfo(infoPath)
	if err != nil {
		return nil, fmt.Errorf("daemon info not found (checked %s)", infoPath)
	}
	if !IsProcessRunning(info.PID) {
		return nil, fmt.Errorf("daemon info is stale (pid %d not running)", info.PID)
	}
	return info, nil
}

// ResolveSocket returns the socket of the running daemon if daemon.json
// names a live process, otherwise fallback.
func ResolveSocket(dataDir, fallback string) string {
	info, err := FindDaemonInfo(dataDir)
	if err != nil || info.SocketPath == "" {
		return fallback
	}
	return info.SocketPath
}

// WriteDaemonInfo writes daemon connection info to the specified path.
func WriteDaemonInfo(path string, info *DaemonInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal daemon info: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write daemon info: %w", err)
	}
	return nil
}

// ReadDaemonInfo reads daemon connection info from the specified path.
func ReadDaemonInfo(path string) (*DaemonInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read daemon info: %w", err)
	}

	var info DaemonInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal daemon info: %w", err)
	}
	return &info, nil
}

// RemoveDaemonInfo removes the daemon.json file.
func RemoveDaemonInfo(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove daemon info: %w", err)
	}
	return nil
}
