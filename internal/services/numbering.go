package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/models"
)

// Sequencer allocates invoice numbers of the form <PREFIX><period>-<N>.
// The period is derived from the issue date (PeriodFormat, a time layout
// like "2006"); N is strictly greater than the highest number already
// issued under the same prefix, with Floor as the starting point for a
// fresh prefix (first number issued is Floor+1).
type Sequencer struct {
	Prefix       string
	PeriodFormat string
	Floor        int
}

// periodPrefix is the full prefix for a given issue date, e.g. "INV-2026-".
func (s Sequencer) periodPrefix(at time.Time) string {
	if s.PeriodFormat == "" {
		return s.Prefix
	}
	return s.Prefix + at.Format(s.PeriodFormat) + "-"
}

// Next computes the next unused number for the period containing at. It
// must run inside the same transaction that inserts the invoice. On
// Postgres an advisory transaction lock on the prefix serializes concurrent
// allocations; SQLite has a single writer and needs none.
func (s Sequencer) Next(tx *gorm.DB, at time.Time) (string, error) {
	prefix := s.periodPrefix(at)
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
			return "", fmt.Errorf("lock invoice prefix %q: %w", prefix, err)
		}
	}
	var numbers []string
	if err := tx.Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("scan invoice numbers for prefix %q: %w", prefix, err)
	}
	maxN := s.Floor
	for _, num := range numbers {
		if n, ok := parseSuffix(num, prefix); ok && n > maxN {
			maxN = n
		}
	}
	return fmt.Sprintf("%s%d", prefix, maxN+1), nil
}

func parseSuffix(number, prefix string) (int, bool) {
	rest := strings.TrimPrefix(number, prefix)
	if rest == number {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
