package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"

	"github.com/beancount/beanbuff"
)

type logCmd struct {
	sharedFlags
	account string
	rowtype string
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "display the ledger as a chronological table" }
func (*logCmd) Usage() string {
	return `bbuff log [-ledger-file <file>] [-account <id>] [-type <rowtype>]

  Prints the reconciled records in their canonical order: datetime first,
  transaction id as the tiebreaker.
`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	c.sharedFlags.register(f)
	f.StringVar(&c.account, "account", "", "Only show this account")
	f.StringVar(&c.rowtype, "type", "", "Only show this row type (Trade, Expiration)")
}

func (c *logCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := c.decodeLedger()
	if err != nil {
		return fail(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Datetime", "ID", "Type", "Instrument", "Side", "Qty", "Price", "Cost", "Fees"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)

	shown := 0
	for rec := range ledger.All() {
		if c.account != "" && rec.Account != c.account {
			continue
		}
		if c.rowtype != "" && string(rec.RowType) != c.rowtype {
			continue
		}
		table.Append([]string{
			rec.Datetime.Format(beanbuff.DatetimeFormat),
			rec.TransactionID,
			string(rec.RowType),
			rec.Instrument.String(),
			string(rec.Instruction),
			rec.Quantity.String(),
			rec.Price.String(),
			rec.Cost.String(),
			rec.Commissions.Add(rec.Fees).String(),
		})
		shown++
	}
	table.Render()
	fmt.Printf("%d records\n", shown)
	return subcommands.ExitSuccess
}
