package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/storage"
)

var ErrGroupNotFound = errors.New("group not found")

// EventPublisher receives an event after every persisted mutation.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// GroupInfo is the listing entry for one group.
type GroupInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListOptions narrows a transaction listing. A nil set means "all".
type ListOptions struct {
	Types      []core.TxType
	Categories []string
	Ascending  bool
}

// Listing is the result of List. Summary covers the whole group; the
// transactions are filtered and sorted.
type Listing struct {
	Summary      core.Summary       `json:"summary"`
	Categories   []string           `json:"categories"`
	Transactions []core.Transaction `json:"transactions"`
}

// LedgerService owns the in-memory document and persists it after every
// mutation.
type LedgerService struct {
	mu     sync.Mutex
	doc    core.Document
	store  storage.Store
	events EventPublisher
	logger *log.Logger
	now    func() time.Time
}

type Option func(*LedgerService)

func WithEvents(p EventPublisher) Option {
	return func(s *LedgerService) { s.events = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithClock overrides the clock used for timestamps and default dates.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// NewLedgerService loads the document from store. Loading never fails.
func NewLedgerService(ctx context.Context, store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)

	s.doc = store.Load(ctx)
	for id, g := range s.doc {
		metrics.Transactions.WithLabelValues(id).Set(float64(len(g.Transactions)))
	}
	s.logger.InfoContext(ctx, "Ledger loaded", "groups", len(s.doc))
	return s
}

// Document returns a copy of the current document.
func (s *LedgerService) Document() core.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Groups lists group ids and display names sorted by id.
func (s *LedgerService) Groups() []GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GroupInfo, 0, len(s.doc))
	for _, id := range s.doc.GroupIDs() {
		out = append(out, GroupInfo{ID: id, Name: s.doc[id].Name})
	}
	return out
}

// Group returns a copy of one group.
func (s *LedgerService) Group(id string) (*core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.doc[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return g.Clone(), nil
}

func (s *LedgerService) RenameGroup(ctx context.Context, groupID, name string) error {
	return s.mutate(ctx, log.OpRenameGroup, groupID, func(g *core.Group) (*amqp.LedgerEvent, error) {
		if err := g.Rename(name); err != nil {
			return nil, err
		}
		return amqp.NewLedgerEvent(log.OpRenameGroup, groupID), nil
	})
}

func (s *LedgerService) AddCategory(ctx context.Context, groupID string, t core.TxType, name string) error {
	return s.mutate(ctx, log.OpAddCategory, groupID, func(g *core.Group) (*amqp.LedgerEvent, error) {
		if err := g.AddCategory(t, name); err != nil {
			return nil, err
		}
		ev := amqp.NewLedgerEvent(log.OpAddCategory, groupID)
		ev.Type, ev.Category = string(t), strings.TrimSpace(name)
		return ev, nil
	})
}

func (s *LedgerService) RemoveCategory(ctx context.Context, groupID string, t core.TxType, name string) error {
	return s.mutate(ctx, log.OpRemoveCategory, groupID, func(g *core.Group) (*amqp.LedgerEvent, error) {
		if err := g.RemoveCategory(t, name); err != nil {
			return nil, err
		}
		ev := amqp.NewLedgerEvent(log.OpRemoveCategory, groupID)
		ev.Type, ev.Category = string(t), name
		return ev, nil
	})
}

// AddTransaction records a transaction. An empty date means today.
func (s *LedgerService) AddTransaction(ctx context.Context, groupID string, in core.TransactionInput) (core.Transaction, error) {
	var added core.Transaction
	err := s.mutate(ctx, log.OpAddTransaction, groupID, func(g *core.Group) (*amqp.LedgerEvent, error) {
		now := s.now()
		if strings.TrimSpace(in.Date) == "" {
			in.Date = now.Format(core.DateLayout)
		}
		tx, err := g.AddTransaction(in, now)
		if err != nil {
			return nil, err
		}
		added = tx
		return transactionEvent(log.OpAddTransaction, groupID, tx), nil
	})
	return added, err
}

// DeleteTransaction removes the transaction with the given id, or with the
// given timestamp for records that predate ids.
func (s *LedgerService) DeleteTransaction(ctx context.Context, groupID, key string) (core.Transaction, error) {
	var removed core.Transaction
	err := s.mutate(ctx, log.OpDeleteTransaction, groupID, func(g *core.Group) (*amqp.LedgerEvent, error) {
		tx, ok := g.DeleteTransaction(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrTransactionNotFound, key)
		}
		removed = tx
		return transactionEvent(log.OpDeleteTransaction, groupID, tx), nil
	})
	return removed, err
}

// List summarises the whole group and returns the filtered, date-sorted
// transactions.
func (s *LedgerService) List(groupID string, opts ListOptions) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.doc[groupID]
	if !ok {
		return Listing{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	used := core.UsedCategories(g.Transactions)
	return Listing{
		Summary:      core.Summarize(g.Transactions),
		Categories:   used,
		Transactions: selectTransactions(g.Transactions, used, opts),
	}, nil
}

// Export writes the filtered, sorted transactions of a group as CSV.
func (s *LedgerService) Export(ctx context.Context, w io.Writer, groupID string, opts ListOptions) error {
	s.mu.Lock()
	g, ok := s.doc[groupID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	txs := selectTransactions(g.Transactions, core.UsedCategories(g.Transactions), opts)
	s.mu.Unlock()

	if err := export.WriteCSV(w, txs); err != nil {
		s.logger.ErrorContext(ctx, "Export failed", log.FieldGroup, groupID, log.FieldError, err)
		return fmt.Errorf("export %s: %w", groupID, err)
	}
	s.logger.InfoContext(ctx, "Exported transactions",
		log.FieldOperation, log.OpExport,
		log.FieldGroup, groupID,
		"rows", len(txs))
	return nil
}

// ExportFileName is the download name for a group's export.
func (s *LedgerService) ExportFileName(groupID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.doc[groupID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	return export.FileName(g.Name, s.now()), nil
}

// Reset replaces the whole document with the default and saves it.
func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	for id := range s.doc {
		metrics.Transactions.DeleteLabelValues(id)
	}
	s.doc = core.DefaultDocument()
	for id := range s.doc {
		metrics.Transactions.WithLabelValues(id).Set(0)
	}
	err := s.save(ctx, log.OpReset)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "Ledger reset to defaults", log.FieldOperation, log.OpReset)
	s.publish(ctx, amqp.NewLedgerEvent(log.OpReset, ""))
	return nil
}

// mutate runs fn against a group under the lock, then saves the whole
// document. A save failure keeps the in-memory change.
func (s *LedgerService) mutate(ctx context.Context, op, groupID string, fn func(*core.Group) (*amqp.LedgerEvent, error)) error {
	s.mu.Lock()
	g, ok := s.doc[groupID]
	if !ok {
		s.mu.Unlock()
		metrics.RecordMutation(op, metrics.ResultNotFound)
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	ev, err := fn(g)
	if err != nil {
		s.mu.Unlock()
		result := metrics.ResultRejected
		if errors.Is(err, core.ErrTransactionNotFound) {
			result = metrics.ResultNotFound
		}
		metrics.RecordMutation(op, result)
		s.logger.InfoContext(ctx, "Mutation rejected",
			log.FieldOperation, op,
			log.FieldGroup, groupID,
			log.FieldError, err)
		return err
	}

	metrics.Transactions.WithLabelValues(groupID).Set(float64(len(g.Transactions)))
	err = s.save(ctx, op)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	fields := log.NewFields().WithOperation(op).WithGroup(groupID)
	if ev.TransactionID != "" {
		fields.WithTransaction(ev.TransactionID, ev.Type, ev.Category, ev.Amount)
	}
	s.logger.InfoContext(ctx, "Ledger updated", fields.ToSlice()...)
	s.publish(ctx, ev)
	return nil
}

// save must be called with mu held.
func (s *LedgerService) save(ctx context.Context, op string) error {
	start := time.Now()
	err := s.store.Save(ctx, s.doc)
	metrics.ObserveSave(start, err)
	if err != nil {
		metrics.RecordMutation(op, metrics.ResultSaveFailed)
		s.logger.ErrorContext(ctx, "Failed to save ledger", log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
		return fmt.Errorf("save ledger: %w", err)
	}
	metrics.RecordMutation(op, metrics.ResultOK)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil || ev == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, ev.Operation,
			log.FieldError, err)
	}
}

func transactionEvent(op, groupID string, tx core.Transaction) *amqp.LedgerEvent {
	ev := amqp.NewLedgerEvent(op, groupID)
	ev.TransactionID = tx.Key()
	ev.Type = string(tx.Type)
	ev.Category = tx.Category
	ev.Amount = tx.Amount
	return ev
}

func selectTransactions(txs []core.Transaction, used []string, opts ListOptions) []core.Transaction {
	types := opts.Types
	if types == nil {
		types = core.TxTypes()
	}
	cats := opts.Categories
	if cats == nil {
		cats = used
	}
	return core.Sort(core.Filter(txs, types, cats), opts.Ascending)
}
