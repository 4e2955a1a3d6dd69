package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/beancount/beanbuff/cmd"
)

func main() {
	// Optional .env for the ledger path and log level; absence is fine.
	godotenv.Load()

	log.SetOutput(os.Stderr)
	if level, err := log.ParseLevel(os.Getenv("BEANBUFF_LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
