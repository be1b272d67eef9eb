// Package autostart registers the daemon with the desktop session so
// polling resumes after login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
)

func app() (*autostart.App, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, fmt.Errorf("resolving executable symlinks: %w", err)
	}

	return &autostart.App{
		Name:        "inboxcal",
		DisplayName: "Inbox Calendar",
		Exec:        []string{execPath, "run"},
	}, nil
}

// Enable registers the daemon for session autostart. Idempotent.
func Enable() error {
	a, err := app()
	if err != nil {
		return err
	}
	if a.IsEnabled() {
		return nil
	}
	if err := a.Enable(); err != nil {
		return fmt.Errorf("enabling autostart: %w", err)
	}
	return nil
}

// Disable removes the session autostart entry. Idempotent.
func Disable() error {
	a, err := app()
	if err != nil {
		return err
	}
	if !a.IsEnabled() {
		return nil
	}
	if err := a.Disable(); err != nil {
		return fmt.Errorf("disabling autostart: %w", err)
	}
	return nil
}

// Enabled reports whether session autostart is currently registered.
func Enabled() (bool, error) {
	a, err := app()
	if err != nil {
		return false, err
	}
	return a.IsEnabled(), nil
}
