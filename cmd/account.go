package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/albumranker/internal/shared"
	"github.com/urfave/cli/v3"
)

// AccountCreate registers a new local account.
func (r *Runner) AccountCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	email := cmd.StringArg("email")
	password := cmd.String("password")
	if email == "" {
		return fmt.Errorf("%w: email argument is required", shared.ErrMissingArgument)
	}

	user, err := r.users.Register(email, password)
	if err != nil {
		return err
	}

	r.logger.Info("account created", "user_id", user.ID())
	r.writePlain("✓ Account created for %s\n", user.Email())
	r.writePlain("Next: albumranker spotify link --email %s\n", user.Email())

	return nil
}

// AccountList prints every registered account.
func (r *Runner) AccountList(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	users, err := r.users.List(nil)
	if err != nil {
		return err
	}

	if useJSON {
		type accountRow struct {
			ID          string `json:"id"`
			Email       string `json:"email"`
			ColorScheme string `json:"color_scheme"`
		}
		rows := make([]accountRow, 0, len(users))
		for _, u := range users {
			rows = append(rows, accountRow{ID: u.ID(), Email: u.Email(), ColorScheme: u.ColorScheme()})
		}
		return r.writeJSON(rows, pretty)
	}

	r.writePlain("Found %d accounts:\n\n", len(users))
	for i, u := range users {
		r.writePlain("%d. %s\n", i+1, u.Email())
		r.writePlain("   ID: %s\n", u.ID())
		r.writePlain("   Theme: %s\n", u.ColorScheme())

		count, err := r.albums.Count(u.ID())
		if err == nil {
			r.writePlain("   Synced albums: %d\n", count)
		}
		r.writePlain("\n")
	}

	return nil
}

// AccountTheme toggles the account between dark and light color schemes.
func (r *Runner) AccountTheme(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	scheme, err := r.users.ToggleColorScheme(user.ID())
	if err != nil {
		return err
	}

	r.writePlain("✓ Color scheme for %s is now %s\n", user.Email(), scheme)
	return nil
}
