package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

const version = "0.2.0"

func newApp(afs afero.Fs) *cli.App {
	c := cli.NewApp()
	c.Name = "ipdb"
	c.Usage = "Look up the country of IP addresses from RIR delegation files"
	c.Version = version
	c.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log level: trace, debug, info, warn, error",
			Value:   "info",
			EnvVars: []string{"IPDB_LOG_LEVEL"},
		},
	}
	c.Commands = []*cli.Command{
		lookupCommand(afs),
		cidrsCommand(),
		parseCommand(afs),
		sourcesCommand(afs),
		genCommand(afs),
	}

	c.Before = func(ctx *cli.Context) error {
		level, err := log.ParseLevel(ctx.String("log-level"))
		if err != nil {
			return cli.Exit(err, 2)
		}
		log.SetOutput(ctx.App.ErrWriter)
		log.SetLevel(level)
		return nil
	}
	return c
}

func main() {
	// Flags read their environment fallbacks while parsing, so the .env
	// file has to be in the environment before the app runs.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("ipdb: cannot load .env")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp(afero.NewOsFs()).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
