package main

import (
	"context"

	"github.com/desertthunder/albumranker/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync imports the saved album library from Spotify into the local catalog.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.logger.Info("starting catalog sync", "user_id", user.ID())
	if !useJSON {
		r.writePlain("Syncing saved albums for %s...\n\n", user.Email())
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if useJSON {
				continue
			}
			switch update.Phase {
			case tasks.FetchCatalog:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ReconcileAlbums:
				r.writePlain("   %s\n", update.Message)
			case tasks.SyncDone:
				// Summary printed below
			}
		}
	}()

	result, err := r.engine.SyncAll(ctx, user.ID(), progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Library total: %d albums\n", result.Total)
	r.writePlain("Reconciled: %d\n", result.Synced)
	if result.Skipped > 0 {
		r.writePlain("Skipped: %d\n", result.Skipped)
	}
	r.writePlain("Pages fetched: %d\n", result.Pages)

	return nil
}
