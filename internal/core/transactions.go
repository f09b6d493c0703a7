package core

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionInput holds the user-supplied fields of a new transaction.
type TransactionInput struct {
	Date        string
	Type        TxType
	Category    string
	Amount      int64
	Description string
}

// Validate checks the fields required before a transaction is accepted.
// The category is free text and is not checked against the registry.
func (in TransactionInput) Validate() error {
	if err := ValidateDate(in.Date); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if strings.TrimSpace(in.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if in.Amount <= 0 {
		return invalid("amount", ErrInvalidAmount)
	}
	return nil
}

// AddTransaction validates in, stamps it with a fresh id and the creation
// time (second precision, local clock) and appends it.
func (g *Group) AddTransaction(in TransactionInput, now time.Time) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		ID:          uuid.NewString(),
		Date:        in.Date,
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: in.Description,
		Timestamp:   now.Format(TimestampLayout),
	}
	g.Transactions = append(g.Transactions, tx)
	return tx, nil
}

// DeleteTransaction removes the first transaction in the underlying list
// whose key matches. A timestamp only identifies records that have no id.
func (g *Group) DeleteTransaction(key string) (Transaction, bool) {
	if key == "" {
		return Transaction{}, false
	}
	idx := slices.IndexFunc(g.Transactions, func(t Transaction) bool { return t.Key() == key })
	if idx < 0 {
		return Transaction{}, false
	}
	removed := g.Transactions[idx]
	g.Transactions = slices.Delete(g.Transactions, idx, idx+1)
	return removed, true
}

// Filter keeps the transactions whose type is in types and whose category is
// in categories. An empty set matches nothing. The input is not modified.
func Filter(txs []Transaction, types []TxType, categories []string) []Transaction {
	typeSet := make(map[TxType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}
	catSet := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		catSet[c] = struct{}{}
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if _, ok := typeSet[t.Type]; !ok {
			continue
		}
		if _, ok := catSet[t.Category]; !ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sort returns a copy ordered by date. Same-date entries keep their input
// order in both directions.
func Sort(txs []Transaction, ascending bool) []Transaction {
	out := append([]Transaction{}, txs...)
	slices.SortStableFunc(out, func(a, b Transaction) int {
		if ascending {
			return strings.Compare(a.Date, b.Date)
		}
		return strings.Compare(b.Date, a.Date)
	})
	return out
}

// UsedCategories lists the distinct categories referenced by txs in
// first-seen order.
func UsedCategories(txs []Transaction) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	return out
}
