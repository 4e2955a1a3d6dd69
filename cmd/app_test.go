package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beancount/beanbuff"
)

func TestDecodeLedger_MissingFileIsEmpty(t *testing.T) {
	s := sharedFlags{ledgerFile: filepath.Join(t.TempDir(), "none.jsonl")}
	ledger, err := s.decodeLedger()
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.Len())
}

func TestEncodeDecodeLedgerFile(t *testing.T) {
	s := sharedFlags{ledgerFile: filepath.Join(t.TempDir(), "transactions.jsonl")}

	ledger := beanbuff.NewLedger()
	inst, err := beanbuff.ParseInstrument("SPX_210416_C4000", beanbuff.KindUnknown)
	require.NoError(t, err)
	rec := beanbuff.Record{
		Account:       "777888999",
		TransactionID: "29908664894",
		Datetime:      mustTime(t, "2021-04-14 13:31:24"),
		RowType:       beanbuff.Trade,
		Instrument:    inst,
		Instruction:   beanbuff.Buy,
		Quantity:      beanbuff.Q(1),
		Price:         beanbuff.USD("2.5"),
	}
	require.NoError(t, rec.Validate())
	ledger.Upsert(rec)

	require.NoError(t, s.encodeLedger(ledger))
	back, err := s.decodeLedger()
	require.NoError(t, err)
	require.Equal(t, 1, back.Len())
	got, ok := back.Get("29908664894")
	require.True(t, ok)
	assert.Equal(t, rec.Instrument.String(), got.Instrument.String())
}

func TestLoadConfig_Default(t *testing.T) {
	s := sharedFlags{}
	cfg, err := s.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, beanbuff.DefaultConfig().OrderClusterDelta, cfg.OrderClusterDelta)

	s.configFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = s.loadConfig()
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	var clean strings.Builder
	printReport(&clean, &beanbuff.Report{})
	assert.Contains(t, clean.String(), "no issues")

	rep := &beanbuff.Report{}
	rep.RowError("777888999", errors.New("cannot parse instrument symbol"))
	rep.Ambiguity("777888999", errors.New("fee join unresolved"))
	var out strings.Builder
	printReport(&out, rep)
	assert.Contains(t, out.String(), "1 rows excluded")
	assert.Contains(t, out.String(), "1 ambiguities left unresolved")
	assert.Contains(t, out.String(), "fee join unresolved")
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(beanbuff.DatetimeFormat, s)
	require.NoError(t, err)
	return parsed
}
