package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/driveclone/internal/metrics"
	"github.com/desertthunder/driveclone/internal/server"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP backend until interrupted.
//
// Jobs are restored from the database at startup. Jobs that were mid-transfer when the previous
// process stopped come back as failed so they can be retried.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	opts, err := r.serverOpts(cmd)
	if err != nil {
		return err
	}

	srv := server.New(opts)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("→ Serving on http://%s\n", srv.Addr())
	return srv.ListenAndServe(ctx)
}

func (r *Runner) serverOpts(cmd *cli.Command) (server.ServerOpts, error) {
	st, err := r.openStore()
	if err != nil {
		return server.ServerOpts{}, err
	}

	collector := metrics.NewCollector()
	collector.MustRegister()

	host := r.config.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	opts := server.ServerOpts{
		Host:         host,
		Port:         port,
		Store:        st,
		Orchestrator: r.newOrchestrator(st, collector),
		Metrics:      collector,
		AutoRun:      r.config.Server.AutoRun,
		FrontendURL:  r.config.Server.FrontendURL,
		Logger:       r.logger,
	}

	if svc, ok := r.drive.(*services.DriveService); ok {
		opts.Drive = svc.WithRedirectURL(r.config.API.BaseURL + "/auth/google/callback")
	} else if r.drive != nil {
		opts.Drive = r.drive
	}
	return opts, nil
}
