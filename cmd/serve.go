package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/albumranker/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the album ranker HTTP server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.bootstrap(); err != nil {
		return err
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = cmd.Int("port")
	}

	sessions := server.NewSessionManager(r.config.Security.SigningSecret)
	app := server.NewApp(r.users, r.albums, r.auth, r.engine, sessions, r.logger)

	addr := fmt.Sprintf("%s:%d", host, port)
	r.writePlain("Listening on http://%s\n", addr)

	return app.Serve(ctx, addr)
}
