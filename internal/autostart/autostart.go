// Package autostart registers calnotify to launch at login.
package autostart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
)

const (
	appName     = "calnotify"
	displayName = "Calendar Notifier"
)

// App returns the login item for the running executable started with args.
func App(args ...string) (*autostart.App, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	return &autostart.App{
		Name:        appName,
		DisplayName: displayName,
		Exec:        append([]string{execPath}, args...),
	}, nil
}

// Set enables or disables launching at login. It is a no-op when the
// login item is already in the requested state.
func Set(logger *slog.Logger, app *autostart.App, enable bool) error {
	if enable == app.IsEnabled() {
		logger.Info("Autostart already in requested state.", "enabled", enable)
		return nil
	}

	if enable {
		if err := app.Enable(); err != nil {
			return fmt.Errorf("failed to enable autostart: %w", err)
		}
		logger.Info("Autostart enabled.", "exec", app.Exec)
		return nil
	}

	if err := app.Disable(); err != nil {
		return fmt.Errorf("failed to disable autostart: %w", err)
	}
	logger.Info("Autostart disabled.")
	return nil
}
