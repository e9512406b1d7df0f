package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// maxTxnRetries bounds retries of a read-write transaction that lost an
// optimistic concurrency race (badger.ErrConflict).
const maxTxnRetries = 3

// BadgerRepository implements the Repository interface using BadgerDB.
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

var _ Repository = (*BadgerRepository)(nil)

// NewBadgerRepository opens the database at dbPath.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}
	return open(opts, logger)
}

// NewInMemoryRepository opens a BadgerDB that lives only in memory.
func NewInMemoryRepository(logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}
	return open(opts, logger)
}

func open(opts badger.Options, logger logrus.FieldLogger) (*BadgerRepository, error) {
	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %q: %w", opts.Dir, err)
	}
	logger.WithFields(logrus.Fields{
		"path":      opts.Dir,
		"in_memory": opts.InMemory,
	}).Info("BadgerDB opened")

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB...")
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	r.log.Info("BadgerDB closed.")
	return nil
}

// RunGC reclaims value log space every interval until ctx is cancelled.
func (r *BadgerRepository) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := r.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				r.log.Info("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
				r.log.Debug("BadgerDB GC: nothing to rewrite")
			default:
				r.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			r.log.Info("Stopping BadgerDB GC routine")
			return
		}
	}
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (r *BadgerRepository) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.WithField("attempt", attempt+1).Debug("Transaction conflict, retrying")
	}
	return err
}

// --- Keys ---
//
// account:{userID}                    user
// account_email:{email}               user id
// session:{token}                     session (expires with the session)
// user:{userID}:category:{id}         category
// user:{userID}:link:{id}             link
// user:{userID}:link_url:{url}        link id
// user:{userID}:tag:{id}              tag
// user:{userID}:tag_name:{name}       tag id
// link_tag:{linkID}:{tagID}           link-tag association
// tag_link:{tagID}:{linkID}           reverse association

func accountKey(id string) []byte { return []byte("account:" + id) }

func accountEmailKey(email string) []byte {
	return []byte("account_email:" + strings.ToLower(strings.TrimSpace(email)))
}

var (
	accountPrefix = []byte("account:")
	sessionPrefix = []byte("session:")
)

func sessionKey(token string) []byte { return []byte("session:" + token) }

func userPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s:", userID))
}

func categoryKey(userID, id string) []byte {
	return []byte(fmt.Sprintf("user:%s:category:%s", userID, id))
}

func categoryPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s:category:", userID))
}

func linkKey(userID, id string) []byte {
	return []byte(fmt.Sprintf("user:%s:link:%s", userID, id))
}

func linkPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s:link:", userID))
}

func linkURLKey(userID, url string) []byte {
	return []byte(fmt.Sprintf("user:%s:link_url:%s", userID, url))
}

func tagKey(userID, id string) []byte {
	return []byte(fmt.Sprintf("user:%s:tag:%s", userID, id))
}

func tagPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s:tag:", userID))
}

func tagNameKey(userID, name string) []byte {
	return []byte(fmt.Sprintf("user:%s:tag_name:%s", userID, strings.ToLower(strings.TrimSpace(name))))
}

func linkTagKey(linkID, tagID string) []byte {
	return []byte(fmt.Sprintf("link_tag:%s:%s", linkID, tagID))
}

func linkTagPrefix(linkID string) []byte {
	return []byte(fmt.Sprintf("link_tag:%s:", linkID))
}

func tagLinkKey(tagID, linkID string) []byte {
	return []byte(fmt.Sprintf("tag_link:%s:%s", tagID, linkID))
}

func tagLinkPrefix(tagID string) []byte {
	return []byte(fmt.Sprintf("tag_link:%s:", tagID))
}

// --- Value helpers ---

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("failed to unmarshal value for key %s: %w", item.Key(), err)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	return txn.Set(key, b)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	b, err := item.ValueCopy(nil)
	return string(b), err
}

// scan decodes every value under prefix into a T and hands it to fn.
func scan[T any](txn *badger.Txn, prefix []byte, fn func(T) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		item := it.Item()
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return fmt.Errorf("failed to unmarshal value for key %s: %w", item.Key(), err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys collects the keys under prefix without reading values.
func scanKeys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// lastSegment returns what follows the last ':' of key.
func lastSegment(key []byte) string {
	s := string(key)
	return s[strings.LastIndexByte(s, ':')+1:]
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }
