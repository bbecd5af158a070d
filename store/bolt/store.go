// Package bolt provides a persistent store.Store implementation backed by
// bbolt. bbolt is exactly the substrate ChainState assumes: a single-file,
// fully transactional key-value store. Atomic maps one-to-one onto a bbolt
// read-write transaction, so all-or-nothing semantics come from the
// database itself.
//
// Layout: one bucket per entity table. uint64 keys are big-endian so
// cursor order equals numeric order; composite keys are length-prefixed to
// keep account boundaries unambiguous. Values are JSON.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/record"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Bucket names.
var (
	bucketBatches    = []byte("batches")
	bucketLines      = []byte("transfer_lines")
	bucketLineCounts = []byte("transfer_counts")
	bucketRecords    = []byte("user_records")
	bucketCounters   = []byte("daily_counters")
	bucketSettings   = []byte("user_settings")
	bucketHistory    = []byte("history_entries")
	bucketStats      = []byte("daily_stats")
	bucketAccess     = []byte("shared_access")
	bucketEvents     = []byte("audit_events")
	bucketGlobals    = []byte("globals")
)

var allBuckets = [][]byte{
	bucketBatches, bucketLines, bucketLineCounts, bucketRecords,
	bucketCounters, bucketSettings, bucketHistory, bucketStats,
	bucketAccess, bucketEvents, bucketGlobals,
}

var globalsKey = []byte("globals")

// Store is the bbolt-backed driver.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open opens (creating if necessary) the state file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }

// Migrate creates the required buckets.
func (s *Store) Migrate(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("bolt: create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", chainstate.ErrMigrationFailed, err)
	}
	return nil
}

// Ping verifies the database is usable.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketGlobals) == nil {
			return chainstate.ErrStoreNotReady
		}
		return nil
	})
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic runs fn inside one bbolt read-write transaction. An error from fn
// rolls the whole transaction back.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&txStore{tx: tx, ctx: ctx})
	})
}

// ==================== key encoding ====================

func u64key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}

// lineKey is batchID then index, both big-endian, so a cursor over a batch
// prefix yields lines in index order.
func lineKey(batchID, index uint64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], batchID)
	binary.BigEndian.PutUint64(key[8:], index)
	return key
}

// accountKey length-prefixes the account so composite keys cannot collide
// across account boundaries.
func accountKey(account types.Account, suffix ...uint64) []byte {
	raw := []byte(account)
	key := make([]byte, 4, 4+len(raw)+8*len(suffix))
	binary.BigEndian.PutUint32(key, uint32(len(raw)))
	key = append(key, raw...)
	for _, v := range suffix {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		key = append(key, buf[:]...)
	}
	return key
}

func pairKey(owner, accessor types.Account) []byte {
	key := accountKey(owner)
	return append(key, accountKey(accessor)...)
}

// ==================== generic helpers ====================

func putJSON(tx *bbolt.Tx, bucket, key []byte, v any) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return chainstate.ErrStoreNotReady
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("bolt: encode %s: %w", bucket, err)
	}
	return b.Put(key, data)
}

func getJSON(tx *bbolt.Tx, bucket, key []byte, v any, notFound error) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return chainstate.ErrStoreNotReady
	}
	data := b.Get(key)
	if data == nil {
		return notFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("bolt: decode %s: %w", bucket, err)
	}
	return nil
}

// ==================== txStore ====================

// txStore implements store.Store bound to a single bbolt transaction.
// Both the plain Store methods and the Atomic callback go through it.
type txStore struct {
	tx  *bbolt.Tx
	ctx context.Context
}

var _ store.Store = (*txStore)(nil)

func (t *txStore) PutBatch(_ context.Context, b *batch.Batch) error {
	return putJSON(t.tx, bucketBatches, u64key(b.ID), b)
}

func (t *txStore) GetBatch(_ context.Context, batchID uint64) (*batch.Batch, error) {
	var b batch.Batch
	if err := getJSON(t.tx, bucketBatches, u64key(batchID), &b, chainstate.ErrBatchNotFound); err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *txStore) PutTransferLine(_ context.Context, line *batch.TransferLine) error {
	return putJSON(t.tx, bucketLines, lineKey(line.BatchID, line.Index), line)
}

func (t *txStore) GetTransferLine(_ context.Context, batchID, index uint64) (*batch.TransferLine, error) {
	var line batch.TransferLine
	if err := getJSON(t.tx, bucketLines, lineKey(batchID, index), &line, chainstate.ErrNotFound); err != nil {
		return nil, err
	}
	return &line, nil
}

func (t *txStore) ListTransferLines(_ context.Context, batchID uint64) ([]*batch.TransferLine, error) {
	b := t.tx.Bucket(bucketLines)
	if b == nil {
		return nil, chainstate.ErrStoreNotReady
	}

	prefix := u64key(batchID)
	result := make([]*batch.TransferLine, 0)
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && len(k) >= 8 && string(k[:8]) == string(prefix); k, v = c.Next() {
		var line batch.TransferLine
		if err := json.Unmarshal(v, &line); err != nil {
			return nil, fmt.Errorf("bolt: decode transfer line: %w", err)
		}
		result = append(result, &line)
	}
	return result, nil
}

func (t *txStore) PutTransferCount(_ context.Context, batchID, count uint64) error {
	b := t.tx.Bucket(bucketLineCounts)
	if b == nil {
		return chainstate.ErrStoreNotReady
	}
	return b.Put(u64key(batchID), u64key(count))
}

func (t *txStore) GetTransferCount(_ context.Context, batchID uint64) (uint64, error) {
	b := t.tx.Bucket(bucketLineCounts)
	if b == nil {
		return 0, chainstate.ErrStoreNotReady
	}
	data := b.Get(u64key(batchID))
	if data == nil {
		return 0, chainstate.ErrBatchNotFound
	}
	return binary.BigEndian.Uint64(data), nil
}

func (t *txStore) GetUserRecord(_ context.Context, account types.Account) (*record.UserRecord, error) {
	var r record.UserRecord
	if err := getJSON(t.tx, bucketRecords, accountKey(account), &r, chainstate.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *txStore) PutUserRecord(_ context.Context, r *record.UserRecord) error {
	return putJSON(t.tx, bucketRecords, accountKey(r.Account), r)
}

func (t *txStore) GetDailyCounter(_ context.Context, account types.Account, day uint64) (*record.DailyCounter, error) {
	var c record.DailyCounter
	err := getJSON(t.tx, bucketCounters, accountKey(account, day), &c, chainstate.ErrNotFound)
	if chainstate.IsNotFound(err) {
		// Implicit default: a new day window starts at zero.
		return &record.DailyCounter{Account: account, Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *txStore) PutDailyCounter(_ context.Context, c *record.DailyCounter) error {
	return putJSON(t.tx, bucketCounters, accountKey(c.Account, c.Day), c)
}

func (t *txStore) GetUserSettings(_ context.Context, account types.Account) (*record.UserSettings, error) {
	var v record.UserSettings
	err := getJSON(t.tx, bucketSettings, accountKey(account), &v, chainstate.ErrNotFound)
	if chainstate.IsNotFound(err) {
		// Implicit default: absence means "all defaults".
		return &record.UserSettings{Account: account}, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *txStore) PutUserSettings(_ context.Context, v *record.UserSettings) error {
	return putJSON(t.tx, bucketSettings, accountKey(v.Account), v)
}

func (t *txStore) PutHistoryEntry(_ context.Context, h *record.HistoryEntry) error {
	return putJSON(t.tx, bucketHistory, accountKey(h.Account, h.Height), h)
}

func (t *txStore) GetHistoryEntry(_ context.Context, account types.Account, height uint64) (*record.HistoryEntry, error) {
	var h record.HistoryEntry
	if err := getJSON(t.tx, bucketHistory, accountKey(account, height), &h, chainstate.ErrBackupNotFound); err != nil {
		return nil, err
	}
	return &h, nil
}

func (t *txStore) ListHistoryEntries(_ context.Context, account types.Account) ([]*record.HistoryEntry, error) {
	b := t.tx.Bucket(bucketHistory)
	if b == nil {
		return nil, chainstate.ErrStoreNotReady
	}

	prefix := accountKey(account)
	result := make([]*record.HistoryEntry, 0)
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
		var h record.HistoryEntry
		if err := json.Unmarshal(v, &h); err != nil {
			return nil, fmt.Errorf("bolt: decode history entry: %w", err)
		}
		result = append(result, &h)
	}
	return result, nil
}

func (t *txStore) GetDailyStat(_ context.Context, day uint64) (*record.DailyStat, error) {
	var st record.DailyStat
	err := getJSON(t.tx, bucketStats, u64key(day), &st, chainstate.ErrNotFound)
	if chainstate.IsNotFound(err) {
		return &record.DailyStat{Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (t *txStore) PutDailyStat(_ context.Context, st *record.DailyStat) error {
	return putJSON(t.tx, bucketStats, u64key(st.Day), st)
}

func (t *txStore) GetSharedAccess(_ context.Context, owner, accessor types.Account) (*record.SharedAccess, error) {
	var a record.SharedAccess
	if err := getJSON(t.tx, bucketAccess, pairKey(owner, accessor), &a, chainstate.ErrGrantNotFound); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *txStore) PutSharedAccess(_ context.Context, a *record.SharedAccess) error {
	return putJSON(t.tx, bucketAccess, pairKey(a.Owner, a.Accessor), a)
}

func (t *txStore) DeleteSharedAccess(_ context.Context, owner, accessor types.Account) error {
	b := t.tx.Bucket(bucketAccess)
	if b == nil {
		return chainstate.ErrStoreNotReady
	}
	key := pairKey(owner, accessor)
	if b.Get(key) == nil {
		return chainstate.ErrGrantNotFound
	}
	return b.Delete(key)
}

func (t *txStore) AppendAuditEvent(_ context.Context, e *audit.Event) error {
	return putJSON(t.tx, bucketEvents, u64key(e.ID), e)
}

func (t *txStore) ListAuditEvents(_ context.Context, opts audit.ListOpts) ([]*audit.Event, error) {
	b := t.tx.Bucket(bucketEvents)
	if b == nil {
		return nil, chainstate.ErrStoreNotReady
	}

	result := make([]*audit.Event, 0)
	if opts.AfterID == math.MaxUint64 {
		return result, nil
	}
	c := b.Cursor()
	for k, v := c.Seek(u64key(opts.AfterID + 1)); k != nil; k, v = c.Next() {
		var e audit.Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("bolt: decode audit event: %w", err)
		}
		result = append(result, &e)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

func (t *txStore) GetGlobals(_ context.Context) (*store.Globals, error) {
	var g store.Globals
	if err := getJSON(t.tx, bucketGlobals, globalsKey, &g, chainstate.ErrNotFound); err != nil {
		return nil, err
	}
	return &g, nil
}

func (t *txStore) PutGlobals(_ context.Context, g *store.Globals) error {
	return putJSON(t.tx, bucketGlobals, globalsKey, g)
}

// Atomic on a transaction-bound store is a nested transaction, which bbolt
// does not support.
func (t *txStore) Atomic(context.Context, func(tx store.Store) error) error {
	return chainstate.ErrTransactionFailed
}

func (t *txStore) Migrate(context.Context) error { return nil }
func (t *txStore) Ping(context.Context) error    { return nil }
func (t *txStore) Close() error                  { return chainstate.ErrTransactionFailed }

// ==================== plain Store methods ====================
// Each standalone call runs in its own bbolt transaction.

func (s *Store) view(fn func(t *txStore) error) error {
	return s.db.View(func(tx *bbolt.Tx) error { return fn(&txStore{tx: tx}) })
}

func (s *Store) update(fn func(t *txStore) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return fn(&txStore{tx: tx}) })
}

func (s *Store) PutBatch(ctx context.Context, b *batch.Batch) error {
	return s.update(func(t *txStore) error { return t.PutBatch(ctx, b) })
}

func (s *Store) GetBatch(ctx context.Context, batchID uint64) (b *batch.Batch, err error) {
	err = s.view(func(t *txStore) error { b, err = t.GetBatch(ctx, batchID); return err })
	return b, err
}

func (s *Store) PutTransferLine(ctx context.Context, line *batch.TransferLine) error {
	return s.update(func(t *txStore) error { return t.PutTransferLine(ctx, line) })
}

func (s *Store) GetTransferLine(ctx context.Context, batchID, index uint64) (line *batch.TransferLine, err error) {
	err = s.view(func(t *txStore) error { line, err = t.GetTransferLine(ctx, batchID, index); return err })
	return line, err
}

func (s *Store) ListTransferLines(ctx context.Context, batchID uint64) (lines []*batch.TransferLine, err error) {
	err = s.view(func(t *txStore) error { lines, err = t.ListTransferLines(ctx, batchID); return err })
	return lines, err
}

func (s *Store) PutTransferCount(ctx context.Context, batchID, count uint64) error {
	return s.update(func(t *txStore) error { return t.PutTransferCount(ctx, batchID, count) })
}

func (s *Store) GetTransferCount(ctx context.Context, batchID uint64) (count uint64, err error) {
	err = s.view(func(t *txStore) error { count, err = t.GetTransferCount(ctx, batchID); return err })
	return count, err
}

func (s *Store) GetUserRecord(ctx context.Context, account types.Account) (r *record.UserRecord, err error) {
	err = s.view(func(t *txStore) error { r, err = t.GetUserRecord(ctx, account); return err })
	return r, err
}

func (s *Store) PutUserRecord(ctx context.Context, r *record.UserRecord) error {
	return s.update(func(t *txStore) error { return t.PutUserRecord(ctx, r) })
}

func (s *Store) GetDailyCounter(ctx context.Context, account types.Account, day uint64) (c *record.DailyCounter, err error) {
	err = s.view(func(t *txStore) error { c, err = t.GetDailyCounter(ctx, account, day); return err })
	return c, err
}

func (s *Store) PutDailyCounter(ctx context.Context, c *record.DailyCounter) error {
	return s.update(func(t *txStore) error { return t.PutDailyCounter(ctx, c) })
}

func (s *Store) GetUserSettings(ctx context.Context, account types.Account) (v *record.UserSettings, err error) {
	err = s.view(func(t *txStore) error { v, err = t.GetUserSettings(ctx, account); return err })
	return v, err
}

func (s *Store) PutUserSettings(ctx context.Context, v *record.UserSettings) error {
	return s.update(func(t *txStore) error { return t.PutUserSettings(ctx, v) })
}

func (s *Store) PutHistoryEntry(ctx context.Context, h *record.HistoryEntry) error {
	return s.update(func(t *txStore) error { return t.PutHistoryEntry(ctx, h) })
}

func (s *Store) GetHistoryEntry(ctx context.Context, account types.Account, height uint64) (h *record.HistoryEntry, err error) {
	err = s.view(func(t *txStore) error { h, err = t.GetHistoryEntry(ctx, account, height); return err })
	return h, err
}

func (s *Store) ListHistoryEntries(ctx context.Context, account types.Account) (entries []*record.HistoryEntry, err error) {
	err = s.view(func(t *txStore) error { entries, err = t.ListHistoryEntries(ctx, account); return err })
	return entries, err
}

func (s *Store) GetDailyStat(ctx context.Context, day uint64) (st *record.DailyStat, err error) {
	err = s.view(func(t *txStore) error { st, err = t.GetDailyStat(ctx, day); return err })
	return st, err
}

func (s *Store) PutDailyStat(ctx context.Context, st *record.DailyStat) error {
	return s.update(func(t *txStore) error { return t.PutDailyStat(ctx, st) })
}

func (s *Store) GetSharedAccess(ctx context.Context, owner, accessor types.Account) (a *record.SharedAccess, err error) {
	err = s.view(func(t *txStore) error { a, err = t.GetSharedAccess(ctx, owner, accessor); return err })
	return a, err
}

func (s *Store) PutSharedAccess(ctx context.Context, a *record.SharedAccess) error {
	return s.update(func(t *txStore) error { return t.PutSharedAccess(ctx, a) })
}

func (s *Store) DeleteSharedAccess(ctx context.Context, owner, accessor types.Account) error {
	return s.update(func(t *txStore) error { return t.DeleteSharedAccess(ctx, owner, accessor) })
}

func (s *Store) AppendAuditEvent(ctx context.Context, e *audit.Event) error {
	return s.update(func(t *txStore) error { return t.AppendAuditEvent(ctx, e) })
}

func (s *Store) ListAuditEvents(ctx context.Context, opts audit.ListOpts) (events []*audit.Event, err error) {
	err = s.view(func(t *txStore) error { events, err = t.ListAuditEvents(ctx, opts); return err })
	return events, err
}

func (s *Store) GetGlobals(ctx context.Context) (g *store.Globals, err error) {
	err = s.view(func(t *txStore) error { g, err = t.GetGlobals(ctx); return err })
	return g, err
}

func (s *Store) PutGlobals(ctx context.Context, g *store.Globals) error {
	return s.update(func(t *txStore) error { return t.PutGlobals(ctx, g) })
}
