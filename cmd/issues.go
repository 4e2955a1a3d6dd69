package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"

	"github.com/beancount/beanbuff"
)

type issuesCmd struct {
	sharedFlags
	feedFile string
}

func (*issuesCmd) Name() string { return "issues" }
func (*issuesCmd) Synopsis() string {
	return "re-run the reconciliation and print everything it could not resolve"
}
func (*issuesCmd) Usage() string {
	return `bbuff issues [-ledger-file <file>] [-config <file>] [-feed <file>] <statement.csv>...

  Runs the same reconciliation as import, against a scratch copy of the
  ledger, and prints the report without writing anything. The report is
  rebuilt identically on every run over the same inputs.
`
}

func (c *issuesCmd) SetFlags(f *flag.FlagSet) {
	c.sharedFlags.register(f)
	f.StringVar(&c.feedFile, "feed", "", "JSON transactions feed to merge after the statements")
}

func (c *issuesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	printReport(os.Stdout, rep)
	if rep.HasIssues() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printReport renders the run's report: row errors and ambiguities as tables,
// and a one-line summary of the non-trade stream.
func printReport(w io.Writer, rep *beanbuff.Report) {
	if !rep.HasIssues() {
		fmt.Fprintln(w, "no issues")
		fmt.Fprintf(w, "%d non-trade cash events\n", len(rep.NonTrade))
		return
	}

	if len(rep.RowErrors) > 0 {
		fmt.Fprintf(w, "%d rows excluded:\n", len(rep.RowErrors))
		printIssues(w, rep.RowErrors)
	}
	if len(rep.Ambiguities) > 0 {
		fmt.Fprintf(w, "%d ambiguities left unresolved:\n", len(rep.Ambiguities))
		printIssues(w, rep.Ambiguities)
	}
	fmt.Fprintf(w, "%d non-trade cash events\n", len(rep.NonTrade))
}

func printIssues(w io.Writer, issues []beanbuff.Issue) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Account", "Issue"})
	table.SetBorder(false)
	table.SetColumnSeparator("")
	for _, issue := range issues {
		table.Append([]string{issue.Account, issue.Err.Error()})
	}
	table.Render()
}
