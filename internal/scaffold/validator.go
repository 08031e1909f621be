package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting returns an error if a configuration file already exists at path.
func CheckExisting(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return fmt.Errorf("already initialized\n\nFound existing: %s\n\nUse 'lanes init --force' to reinitialize (this will overwrite existing configuration)", path)
}
