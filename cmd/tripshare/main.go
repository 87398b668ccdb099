// Command tripshare is the share extension: it imports one shared item
// into a journey.
//
//	tripshare --journey <id> [--name file.pdf] <file|->
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/tripkeeper/internal/app"
	"github.com/nhle/tripkeeper/internal/logging"
	"github.com/nhle/tripkeeper/internal/share"
)

func main() {
	fs := pflag.NewFlagSet("tripshare", pflag.ContinueOnError)
	app.RegisterFlags(fs)
	journeyID := fs.String("journey", "", "journey to import into (required)")
	name := fs.String("name", "", "file name of the item when reading stdin")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if *journeyID == "" || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tripshare --journey <id> [--name <file name>] <file|->")
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(fs)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log, err := logging.Configure(cfg.Log, os.Stderr, "tripshare")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	itemName, data, err := readItem(fs.Arg(0), *name)
	if err != nil {
		log.WithError(err).Fatal("Failed to read shared item")
	}

	ctx := context.Background()
	a, err := app.Bootstrap(ctx, cfg, app.Options{Log: log})
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer a.Close()

	res, err := a.Importer().Import(ctx, *journeyID, share.Detect(itemName, data))
	if err != nil {
		log.WithError(err).Error("Import failed")
		a.Close()
		os.Exit(1)
	}
	fmt.Printf("imported %d note(s), %d document(s)\n", len(res.NoteIDs), len(res.DocumentIDs))
}

func readItem(arg, name string) (string, []byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		return name, data, err
	}
	data, err := os.ReadFile(arg)
	if name == "" {
		name = filepath.Base(arg)
	}
	return name, data, err
}
