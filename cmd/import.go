package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/beancount/beanbuff"
	"github.com/beancount/beanbuff/feed"
	"github.com/beancount/beanbuff/thinkorswim"
)

type importCmd struct {
	sharedFlags
	feedFile string
	dryRun   bool
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string {
	return "reconcile account statements and the transactions feed into the ledger"
}
func (*importCmd) Usage() string {
	return `bbuff import [-ledger-file <file>] [-config <file>] [-feed <file>] [-n] <statement.csv>...

  Parses each exported account statement, reconciles its rows into the
  ledger, then merges the delayed transactions feed when one is given.
  Re-importing the same files is a no-op. Rows the run could not resolve
  are printed; they keep surfacing until new data resolves them.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	c.sharedFlags.register(f)
	f.StringVar(&c.feedFile, "feed", "", "JSON transactions feed to merge after the statements")
	f.BoolVar(&c.dryRun, "n", false, "Reconcile and report, but do not write the ledger")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 && c.feedFile == "" {
		fmt.Fprintln(os.Stderr, "nothing to import: give at least one statement or -feed")
		return subcommands.ExitUsageError
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return fail(err)
	}
	ledger, err := c.decodeLedger()
	if err != nil {
		return fail(err)
	}

	rep := &beanbuff.Report{}
	for _, filename := range f.Args() {
		in, err := readStatementFile(filename)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", filename, err))
		}
		beanbuff.ReconcileInto(cfg, ledger, in, rep)
	}

	if c.feedFile != "" {
		rows, err := readFeedFile(c.feedFile)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", c.feedFile, err))
		}
		beanbuff.ApplyFeed(cfg, ledger, rows, rep)
	}

	if !c.dryRun {
		if err := c.encodeLedger(ledger); err != nil {
			return fail(err)
		}
	}

	fmt.Printf("%d records in %s\n", ledger.Len(), c.ledgerFile)
	printReport(os.Stdout, rep)
	return subcommands.ExitSuccess
}

func readStatementFile(filename string) (beanbuff.Inputs, error) {
	f, err := os.Open(filename)
	if err != nil {
		return beanbuff.Inputs{}, err
	}
	defer f.Close()
	return thinkorswim.ReadStatement(f)
}

func readFeedFile(filename string) ([]beanbuff.FeedRow, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return feed.ReadTransactions(f)
}
