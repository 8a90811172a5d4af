// Package validator checks mining requests before they reach the miner and
// reports every offending field at once.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
)

const maxIdempotencyKeyLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateMineRequest checks the shape of req. maxTransactions <= 0 disables
// the size limit.
func ValidateMineRequest(req *jobs.MineRequest, maxTransactions int) error {
	errs := make(map[string]string)

	switch {
	case len(req.Transactions) == 0:
		errs["transactions"] = "at least one transaction is required"
	case maxTransactions > 0 && len(req.Transactions) > maxTransactions:
		errs["transactions"] = fmt.Sprintf("at most %d transactions are allowed, got %d", maxTransactions, len(req.Transactions))
	default:
		if msg := checkTransactions(req.Transactions); msg != "" {
			errs["transactions"] = msg
		}
	}

	if s := req.MinSupport; s != nil && (math.IsNaN(*s) || *s <= 0 || *s > 1) {
		errs["min_support"] = fmt.Sprintf("must be in (0, 1], got %v", *s)
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLength)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// checkTransactions reports the first empty transaction or itemset.
func checkTransactions(txs [][][]string) string {
	for i, tx := range txs {
		if len(tx) == 0 {
			return fmt.Sprintf("transaction %d is empty", i)
		}
		for j, itemset := range tx {
			if !hasSymbol(itemset) {
				return fmt.Sprintf("transaction %d itemset %d is empty", i, j)
			}
		}
	}
	return ""
}

func hasSymbol(itemset []string) bool {
	for _, s := range itemset {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
