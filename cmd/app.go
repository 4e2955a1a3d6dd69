// Package cmd implements the CLI application to reconcile broker statements
// into a transaction ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"github.com/beancount/beanbuff"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on
// the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ledger")
	c.Register(&logCmd{}, "ledger")
	c.Register(&issuesCmd{}, "ledger")
}

// sharedFlags are the flags every subcommand carries: where the ledger lives
// and where the optional configuration comes from.
type sharedFlags struct {
	ledgerFile string
	configFile string
}

func (s *sharedFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.ledgerFile, "ledger-file", "transactions.jsonl",
		"Path to the ledger file (JSONL format)")
	f.StringVar(&s.configFile, "config", "",
		"Path to the YAML configuration; defaults apply when omitted")
}

// loadConfig reads the YAML configuration, or the defaults when no file is
// given.
func (s *sharedFlags) loadConfig() (beanbuff.Config, error) {
	if s.configFile == "" {
		return beanbuff.DefaultConfig(), nil
	}
	f, err := os.Open(s.configFile)
	if err != nil {
		return beanbuff.Config{}, fmt.Errorf("could not open config %q: %w", s.configFile, err)
	}
	defer f.Close()
	return beanbuff.LoadConfig(f)
}

// decodeLedger loads the ledger file. A missing file is an empty ledger, so
// the first import needs no setup.
func (s *sharedFlags) decodeLedger() (*beanbuff.Ledger, error) {
	f, err := os.Open(s.ledgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("file", s.ledgerFile).Info("ledger file does not exist, starting empty")
		return beanbuff.NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open ledger %q: %w", s.ledgerFile, err)
	}
	defer f.Close()
	return beanbuff.DecodeLedger(f)
}

// encodeLedger writes the whole ledger back, through a rename so a failed
// write never truncates the previous state.
func (s *sharedFlags) encodeLedger(ledger *beanbuff.Ledger) error {
	tmp := s.ledgerFile + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", tmp, err)
	}
	if err := beanbuff.EncodeLedger(f, ledger); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("could not encode ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.ledgerFile)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}
