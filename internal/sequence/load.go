package sequence

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

// Dataset is the ingested form of a raw transaction collection.
type Dataset struct {
	Transactions []Transaction
	// MaxLength is the greatest number of itemsets in any transaction; no
	// pattern can be longer.
	MaxLength int
	// Singletons holds one length-1 candidate per distinct symbol, sorted.
	Singletons []Candidate

	occurrences map[Symbol]int
}

// Load validates raw and builds the canonical dataset. raw is a list of
// transactions, each a list of itemsets, each a list of symbols.
func Load(raw [][][]string) (*Dataset, error) {
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, 400, "transaction collection is empty")
	}
	ds := &Dataset{
		Transactions: make([]Transaction, 0, len(raw)),
		occurrences:  make(map[Symbol]int),
	}
	for ti, rawTx := range raw {
		if len(rawTx) == 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "transaction %d has no itemsets", ti)
		}
		tx := make(Transaction, 0, len(rawTx))
		for ii, rawItems := range rawTx {
			items := NewItemset(rawItems)
			if len(items) == 0 {
				return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "transaction %d itemset %d is empty", ti, ii)
			}
			for _, r := range rawItems {
				if s := Symbol(strings.TrimSpace(r)); s != "" {
					ds.occurrences[s]++
				}
			}
			tx = append(tx, items)
		}
		if len(tx) > ds.MaxLength {
			ds.MaxLength = len(tx)
		}
		ds.Transactions = append(ds.Transactions, tx)
	}

	symbols := make([]Symbol, 0, len(ds.occurrences))
	for s := range ds.occurrences {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	ds.Singletons = make([]Candidate, len(symbols))
	for i, s := range symbols {
		ds.Singletons[i] = NewOrdered(s)
	}
	return ds, nil
}

// Occurrences returns how many times s appeared across all itemsets,
// counting repeats.
func (d *Dataset) Occurrences(s Symbol) int {
	return d.occurrences[s]
}

// Symbols returns the number of distinct symbols.
func (d *Dataset) Symbols() int {
	return len(d.occurrences)
}

func (d *Dataset) String() string {
	return fmt.Sprintf("<Dataset transactions=%d max_length=%d symbols=%d>",
		len(d.Transactions), d.MaxLength, len(d.occurrences))
}
