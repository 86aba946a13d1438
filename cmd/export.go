package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/albumranker/internal/formatter"
	"github.com/desertthunder/albumranker/internal/shared"
	"github.com/urfave/cli/v3"
)

// Export writes a year's ranking to disk in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	year := cmd.String("year")
	format := cmd.String("format")
	output := cmd.String("output")

	albums, err := r.albums.ListByYear(user.ID(), year)
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		r.writePlain("No albums synced for %s, nothing to export\n", year)
		return nil
	}

	export := &formatter.YearExport{Year: year, Albums: albums}

	r.logger.Info("exporting ranking", "user_id", user.ID(), "year", year, "format", format)

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Ranking exported to %s\n", result.AlbumsFile)
		r.writePlain("✓ Metadata written to %s\n", result.MetadataFile)
	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Ranking exported to %s\n", path)
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Ranking exported to %s\n", path)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}

	r.writePlain("  Year: %s\n", year)
	r.writePlain("  Albums: %d\n", len(albums))

	return nil
}
