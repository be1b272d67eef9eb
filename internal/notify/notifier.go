// Package notify computes reminder times for confirmed events and
// arranges one-shot timer callbacks for each, with idempotent
// scheduling per (event id, offset) pair.
package notify

import (
	"log"
	"os/exec"
)

// Notifier delivers a user-visible notification. Implementations are
// the alert channel of the decision surface: reminders and error
// alerts both go through it.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes notifications to the process log. It is the
// default backend and the fallback when no desktop channel is
// configured.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(title, message string) {
	log.Printf("notify: %s - %s", title, message)
}

// FuncNotifier adapts a function to the Notifier interface.
type FuncNotifier func(title, message string)

// Notify calls the wrapped function.
func (f FuncNotifier) Notify(title, message string) { f(title, message) }

// CommandNotifier delivers notifications by running an external
// command (e.g. notify-send) with the title and message as arguments.
type CommandNotifier struct {
	Path string
}

// Notify runs the command. Delivery is best-effort: failures are
// logged, never returned.
func (c CommandNotifier) Notify(title, message string) {
	if err := exec.Command(c.Path, title, message).Run(); err != nil {
		log.Printf("notify command %s: %v", c.Path, err)
	}
}
