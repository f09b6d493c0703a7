package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Layouts used for the persisted date and timestamp strings.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

type (
	TxType string

	// Categories maps a transaction type to its ordered list of category names.
	Categories map[TxType][]string

	Transaction struct {
		ID          string `json:"id,omitempty"`
		Date        string `json:"date"`
		Type        TxType `json:"type"`
		Category    string `json:"category"`
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
		Timestamp   string `json:"timestamp"`
	}

	Group struct {
		Name         string        `json:"name"`
		Categories   Categories    `json:"categories"`
		Transactions []Transaction `json:"transactions"`
	}

	// Document is the whole ledger, keyed by stable group id.
	Document map[string]*Group
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidDate         = errors.New("invalid date")
	ErrDuplicateCategory   = errors.New("category already exists")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrEmptyName           = errors.New("empty group name")
)

// ValidationError reports rejected user input. No mutation happens when one
// is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TxTypes returns every known transaction type in display order.
func TxTypes() []TxType {
	return []TxType{Income, Expense}
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (t TxType) String() string {
	return string(t)
}

// ParseTxType accepts the canonical names case-insensitively.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", invalid("type", ErrInvalidType)
	}
	return t, nil
}

// ValidateDate checks that s is a calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return invalid("date", ErrInvalidDate)
	}
	return nil
}

// Key is the identity used for deletion. Records written before ids existed
// fall back to their creation timestamp.
func (t Transaction) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Timestamp
}

// GroupIDs returns the document's group ids in sorted order.
func (d Document) GroupIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy so callers can read without holding locks.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for id, g := range d {
		out[id] = g.Clone()
	}
	return out
}

func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := &Group{
		Name:         g.Name,
		Categories:   make(Categories, len(g.Categories)),
		Transactions: append([]Transaction{}, g.Transactions...),
	}
	for t, names := range g.Categories {
		c.Categories[t] = append([]string{}, names...)
	}
	return c
}

// Normalize back-fills fields missing from older saved files: a missing name
// becomes the group id, missing categories become the defaults and a missing
// transaction list becomes empty. Both category types are always present
// afterwards.
func (d Document) Normalize() {
	for id, g := range d {
		if g == nil {
			d[id] = NewGroup(id)
			continue
		}
		if g.Name == "" {
			g.Name = id
		}
		if g.Categories == nil {
			g.Categories = DefaultCategories()
		}
		for _, t := range TxTypes() {
			if g.Categories[t] == nil {
				g.Categories[t] = []string{}
			}
		}
		if g.Transactions == nil {
			g.Transactions = []Transaction{}
		}
	}
}

// EnsureGroups adds an empty group for every id that is missing.
func (d Document) EnsureGroups(ids ...string) {
	for _, id := range ids {
		if _, ok := d[id]; !ok {
			d[id] = NewGroup(id)
		}
	}
}

// Rename sets the display name. The group id is unaffected.
func (g *Group) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", ErrEmptyName)
	}
	g.Name = name
	return nil
}
