// Package txnumber mints the human-legible transaction numbers that
// correlate ledger rows with externally-quoted order references.
package txnumber

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultPrefix tags wallet-ledger numbers; other domains (purchase
	// orders, invoices) use their own prefixes.
	DefaultPrefix = "WTX"

	// DefaultWidth is the zero-padded sequence width: WTX-2026-000001.
	DefaultWidth = 6
)

// Generator issues per-year monotonic numbers. Issuance is serialized by
// a Postgres advisory lock scoped to the prefix+year, held until the
// surrounding database transaction commits, so the read-max and the
// insert happen under one lock.
type Generator struct {
	prefix string
	width  int
}

// New creates a generator with the default prefix and width.
func New() *Generator {
	return &Generator{prefix: DefaultPrefix, width: DefaultWidth}
}

// NewWithPrefix creates a generator for another numbering domain.
func NewWithPrefix(prefix string) *Generator {
	return &Generator{prefix: prefix, width: DefaultWidth}
}

// Prefix returns the numbering prefix this generator issues under.
func (g *Generator) Prefix() string { return g.prefix }

// Next returns the next number for the year of now. Must be called inside
// the same transaction that inserts the row carrying the number.
func (g *Generator) Next(tx *gorm.DB, now time.Time) (string, error) {
	year := now.Year()

	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", g.lockKey(year)).Error; err != nil {
		return "", fmt.Errorf("failed to take issuance lock: %w", err)
	}

	// Sequences past the pad width grow an extra digit, so a plain text
	// sort would rank WTX-2026-1000000 below WTX-2026-999999. Ordering by
	// length first keeps the read-max numeric.
	var last string
	err := tx.Raw(
		"SELECT transaction_number FROM wallet_transactions WHERE transaction_number LIKE ? ORDER BY length(transaction_number) DESC, transaction_number DESC LIMIT 1",
		fmt.Sprintf("%s-%d-%%", g.prefix, year),
	).Scan(&last).Error
	if err != nil {
		return "", fmt.Errorf("failed to read last issued number: %w", err)
	}

	seq := 1
	if last != "" {
		prev, err := g.ParseSequence(last)
		if err != nil {
			return "", err
		}
		seq = prev + 1
	}

	return g.Format(year, seq), nil
}

// Format renders a number for a given year and sequence.
func (g *Generator) Format(year, seq int) string {
	return fmt.Sprintf("%s-%d-%0*d", g.prefix, year, g.width, seq)
}

// ParseSequence extracts the sequence from an issued number.
func (g *Generator) ParseSequence(number string) (int, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != g.prefix {
		return 0, fmt.Errorf("malformed transaction number %q", number)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed transaction number %q: %w", number, err)
	}
	return seq, nil
}

// Matches reports whether a correlation id belongs to this generator's
// numbering domain.
func (g *Generator) Matches(number string) bool {
	return strings.HasPrefix(number, g.prefix+"-")
}

// lockKey derives a stable advisory-lock key for the prefix and year.
func (g *Generator) lockKey(year int) int64 {
	h := fnv.New32a()
	h.Write([]byte(g.prefix))
	return int64(h.Sum32())<<16 | int64(year)
}
