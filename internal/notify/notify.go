// Package notify shows desktop notifications by invoking an external renderer.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultExecutable is the renderer path relative to the running binary.
const DefaultExecutable = "bin/Notifier.exe"

// Dispatcher runs the renderer executable once per notification.
type Dispatcher struct {
	path   string
	args   []string
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher that runs path with args followed by
// the notification title and message.
func NewDispatcher(logger *slog.Logger, path string, args ...string) *Dispatcher {
	return &Dispatcher{
		path:   path,
		args:   args,
		logger: logger,
	}
}

// DefaultPath resolves DefaultExecutable next to the running binary.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), filepath.FromSlash(DefaultExecutable)), nil
}

// Path returns the renderer executable path.
func (d *Dispatcher) Path() string {
	return d.path
}

// Notify shows a notification and waits for the renderer to exit.
// Failures are not reported to the caller.
func (d *Dispatcher) Notify(ctx context.Context, title, message string) {
	args := append(append([]string{}, d.args...), title, message)
	cmd := exec.CommandContext(ctx, d.path, args...)
	hideWindow(cmd)

	if err := cmd.Run(); err != nil {
		d.logger.Debug("Notifier exited with error", "path", d.path, "title", title, "error", err)
		return
	}
	d.logger.Debug("Notification shown", "title", title)
}
