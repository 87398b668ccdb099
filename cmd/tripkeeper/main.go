// Command tripkeeper is the main app entry point: it relocates and
// migrates the store, then runs one maintenance subcommand.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/app"
	"github.com/nhle/tripkeeper/internal/backup"
	"github.com/nhle/tripkeeper/internal/credential"
	"github.com/nhle/tripkeeper/internal/logging"
	"github.com/nhle/tripkeeper/internal/relocate"
)

const usage = `usage: tripkeeper [flags] [command]

commands:
  status            print schema version, relocation state and journeys (default)
  backup            upload a snapshot and new documents once
  watch             back up on document changes until interrupted
  reset-relocation  clear the relocation flag so the next launch relocates again

flags:
`

func main() {
	fs := pflag.NewFlagSet("tripkeeper", pflag.ContinueOnError)
	app.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	cmd := "status"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}

	cfg, err := app.LoadConfig(fs)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log, err := logging.Configure(cfg.Log, os.Stderr, "tripkeeper")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	sink, err := analytics.NewPromSink(nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, cfg, app.Options{Log: log, Sink: sink})
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}

	err = run(ctx, cmd, a, os.Stdout)
	if cerr := a.Close(); cerr != nil {
		log.WithError(cerr).Warn("Failed to close database")
	}
	if err != nil {
		log.WithError(err).WithField("command", cmd).Error("Command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, a *app.App, out io.Writer) error {
	switch cmd {
	case "status":
		st, err := a.Status(ctx)
		if err != nil {
			return err
		}
		st.Write(out)
		return nil

	case "backup":
		svc, err := backupService(a)
		if err != nil {
			return err
		}
		res, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "database: %s\ndocuments uploaded: %d, skipped: %d\n",
			res.DatabaseKey, res.DocumentsUploaded, res.DocumentsSkipped)
		return nil

	case "watch":
		svc, err := backupService(a)
		if err != nil {
			return err
		}
		sched := a.BackupScheduler(svc)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		sched.Trigger()
		<-ctx.Done()
		sched.Stop()
		return nil

	case "reset-relocation":
		if err := relocate.Reset(a.Flags); err != nil {
			return err
		}
		fmt.Fprintln(out, "relocation flag cleared")
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func backupService(a *app.App) (*backup.Service, error) {
	creds, err := credential.Open(a.Config.Storage.PrivateRoot)
	if err != nil {
		return nil, err
	}
	return a.BackupService(creds)
}
