package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/inbox-calendar/internal/credential"
	"github.com/nhle/inbox-calendar/internal/model"
)

// RunSetup walks the user through the initial configuration: mailbox
// connection, calendar backend, and polling settings. Secrets go to
// the system keyring; everything else is written to the config file.
func RunSetup(path string) error {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("loading existing config: %w", err)
	}

	var password, token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP host").
				Description("e.g. imap.gmail.com").
				Value(&cfg.Mailbox.IMAPHost).
				Validate(nonEmpty("host")),
			huh.NewInput().
				Title("IMAP port").
				Value(&cfg.Mailbox.IMAPPort).
				Validate(validPort),
			huh.NewInput().
				Title("Email address").
				Value(&cfg.Mailbox.Username).
				Validate(nonEmpty("email address")),
			huh.NewInput().
				Title("IMAP password").
				Description("Stored in the system keyring, never on disk. Leave blank to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewConfirm().
				Title("Connect with TLS?").
				Value(&cfg.Mailbox.UseTLS),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Calendar backend").
				Options(
					huh.NewOption("Local ICS file", "ics"),
					huh.NewOption("HTTP calendar API", "http"),
				).
				Value(&cfg.Calendar.Backend),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("ICS file path").
				Value(&cfg.Calendar.ICSPath).
				Validate(nonEmpty("path")),
		).WithHideFunc(func() bool {
			return cfg.Calendar.Backend != "ics"
		}),
		huh.NewGroup(
			huh.NewInput().
				Title("Calendar API base URL").
				Value(&cfg.Calendar.BaseURL).
				Validate(nonEmpty("base URL")),
			huh.NewInput().
				Title("Calendar ID").
				Description("e.g. primary").
				Value(&cfg.Calendar.CalendarID).
				Validate(nonEmpty("calendar ID")),
			huh.NewInput().
				Title("API token").
				Description("Stored in the system keyring. Leave blank to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		).WithHideFunc(func() bool {
			return cfg.Calendar.Backend != "http"
		}),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Schedule reminders for confirmed events?").
				Value(&cfg.Reminders.Enabled),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("running setup form: %w", err)
	}

	if password != "" {
		if err := credential.Set(credential.KeyIMAPPassword, password); err != nil {
			return fmt.Errorf("storing IMAP password: %w", err)
		}
	}
	if token != "" {
		if err := credential.Set(credential.KeyCalendarToken, token); err != nil {
			return fmt.Errorf("storing calendar token: %w", err)
		}
	}

	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration saved to %s\n", path)
	return nil
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}

func validPort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", s)
	}
	return nil
}
