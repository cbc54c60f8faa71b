// Package workdir resolves the directories the practice tools read and write.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LogFile is the name of the TUI log file inside the root directory.
const LogFile = "practice.log"

// Root returns the base directory for all practice data.
// When override is non-empty it is used as-is, otherwise it resolves to:
//
//	$HOME/Documents/Practice
func Root(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Practice"), nil
}

// TempRecordingPath returns a unique path for an in-progress recording.
// Temporary recordings live in the OS temp dir until they are saved.
func TempRecordingPath() string {
	return filepath.Join(os.TempDir(), "practice-"+uuid.NewString()+".mp3")
}

// Prep ensures that the root directory exists.
func Prep(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create working directory %s: %w", root, err)
	}

	return nil
}
