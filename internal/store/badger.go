package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/samcharles93/murmur/internal/logger"
)

const keyPrefix = "gen:"

// Badger is a Store backed by BadgerDB. Values are msgpack-encoded Records
// keyed by "gen:<id>".
type Badger struct {
	db *badger.DB
}

type BadgerOptions struct {
	// Dir holds the data files. Required unless InMemory is set.
	Dir string
	// InMemory runs without disk persistence.
	InMemory bool
	Logger   logger.Logger
}

func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: badger dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log: log.With("component", "badger")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func recordKey(id string) []byte { return []byte(keyPrefix + id) }

// decodeRecord unmarshals val into rec. msgpack decodes timestamps in the
// local zone, so they are normalised back to UTC.
func decodeRecord(val []byte, rec *Record) error {
	if err := msgpack.Unmarshal(val, rec); err != nil {
		return err
	}
	rec.StartedAt = rec.StartedAt.UTC()
	rec.CompletedAt = rec.CompletedAt.UTC()
	return nil
}

func (b *Badger) Put(_ context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("store: record id is empty")
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
}

func (b *Badger) Get(_ context.Context, id string) (Record, error) {
	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeRecord(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (b *Badger) List(_ context.Context) ([]Record, error) {
	var out []Record
	prefix := []byte(keyPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return decodeRecord(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func (b *Badger) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(recordKey(id))
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger's printf logging into the structured logger,
// keeping warnings and errors only.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}
func (l badgerLogger) Warningf(f string, v ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}
func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}

// Open returns the store named by kind: "memory" or "badger" (rooted at dir).
func Open(kind, dir string, log logger.Logger) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemory(), nil
	case "badger":
		return OpenBadger(BadgerOptions{Dir: dir, Logger: log})
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
