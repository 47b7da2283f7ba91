// Package store persists interview reports in BadgerDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"mockinterview/internal/domain"
)

// ErrNotFound is returned when no report exists for a session.
var ErrNotFound = errors.New("store: report not found")

const reportPrefix = "report:"

// Options configures the report store.
type Options struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	Logger *slog.Logger
}

// Reports is a ports.ReportStore backed by BadgerDB with msgpack values.
type Reports struct {
	db *badger.DB
}

// Open opens or creates the report database.
func Open(opts Options) (*Reports, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger: logger.With("component", "badger")})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return &Reports{db: db}, nil
}

func reportKey(sessionID string) []byte {
	return []byte(reportPrefix + sessionID)
}

// Save writes or replaces the report of a session.
func (r *Reports) Save(_ context.Context, report domain.Report) error {
	if report.SessionID == "" {
		return errors.New("store: report has no session id")
	}
	value, err := msgpack.Marshal(&report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.SessionID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(report.SessionID), value)
	})
}

// Get loads the report of a session.
func (r *Reports) Get(_ context.Context, sessionID string) (domain.Report, error) {
	var report domain.Report
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &report)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Report{}, ErrNotFound
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("load report %s: %w", sessionID, err)
	}
	return report, nil
}

// List returns every stored report, newest first.
func (r *Reports) List(ctx context.Context) ([]domain.Report, error) {
	var reports []domain.Report
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(reportPrefix)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var report domain.Report
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &report)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			reports = append(reports, report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	return reports, nil
}

func (r *Reports) Close() error {
	return r.db.Close()
}

// badgerLogger routes badger output to slog, dropping debug and info chatter.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
