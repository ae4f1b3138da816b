package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// sessionState is the only thing that needs to survive between one
// floppyemud invocation and the next: which image is currently mounted.
// Each subcommand is its own process, so this stands in for the firmware's
// always-running device state. There's no locking here; floppyemud is a
// single-user test harness, not a multi-client server.
type sessionState struct {
	MountedPath string `json:"mounted_path"`
}

func sessionFilePath() string {
	return filepath.Join(os.TempDir(), "floppyemud-session.json")
}

func loadSession() (sessionState, error) {
	data, err := os.ReadFile(sessionFilePath())
	if os.IsNotExist(err) {
		return sessionState{}, nil
	}
	if err != nil {
		return sessionState{}, err
	}

	var s sessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return sessionState{}, err
	}
	return s, nil
}

func saveSession(s sessionState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(sessionFilePath(), data, 0o644)
}

func clearSession() error {
	err := os.Remove(sessionFilePath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
