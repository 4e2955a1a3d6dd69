// Package beanbuff reconciles brokerage transaction data that arrives
// fragmented across mutually inconsistent sources into one canonical,
// deduplicated transaction log.
//
// A broker's end-of-day statement splits one economic event across several
// sub-tables: the trade history knows the fills but not the fees, the cash
// and futures statements know the fees but merge multi-leg orders into one
// line, and the authoritative API transaction feed only shows up one or two
// days later, after settlement, blind to futures. The engine turns these
// fragments into a single Record shape:
//
//   - the instrument parser decodes raw symbol strings into structured
//     instrument attributes, with contract multipliers from a static table;
//   - the normalizer maps each source's raw schema into the canonical
//     record, one fixed mapping per source kind;
//   - the identity resolver computes stable transaction ids and clusters
//     the consecutive order ids a multi-leg order was issued under;
//   - the fee joiner backfills commissions and fees from balance-statement
//     rows onto the trade legs they paid for;
//   - the late-feed merger supersedes statement-built records with the
//     authoritative feed without losing locally-added grouping metadata;
//   - the ledger store keys everything by transaction id and iterates in
//     datetime order.
//
// The pipeline is a deterministic batch transformation: re-running it over
// the same inputs reproduces the same ledger and the same report of
// unresolved ambiguities. Matching never guesses; every join or merge that
// is not uniquely determined degrades to a partial record and a reported
// ambiguity.
package beanbuff
