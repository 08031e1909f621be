// Package scaffold writes a starter lanes.yml for `lanes init`.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/lanes/internal/config"
	"github.com/dyluth/lanes/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// Initialize writes the default pipeline configuration to path.
// If force is true, an existing file at path is replaced.
func Initialize(path string, force bool) error {
	if force {
		if err := handleForce(path); err != nil {
			return err
		}
	}

	content, err := templatesFS.ReadFile("templates/lanes.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read lanes.yml template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// O_EXCL so a file created since CheckExisting is never clobbered
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return validateCreatedFile(path)
}

// handleForce removes an existing configuration file.
func handleForce(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	printer.Warning("Removing existing %s...\n", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// validateCreatedFile loads the written file through the regular config path.
func validateCreatedFile(path string) error {
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("created %s is not a valid configuration: %w", path, err)
	}
	return nil
}

// PrintSuccess prints the success message and next steps.
func PrintSuccess(path string) {
	printer.Success("Initialized pipeline configuration\n")
	printer.Info("\nCreated:\n")
	printer.Info("  ✓ %s\n", path)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Edit the stages of each pipeline in %s\n", path)
	printer.Info("  2. Run 'lanes stages' to check the board layout\n")
	printer.Info("  3. Run 'lanes seed lead --title <name>' to add a first entity\n")
}
