// Package memory provides an in-process store.Store implementation.
//
// All records live in maps guarded by one RW mutex. Atomic takes a full
// snapshot of the state before running the callback and restores it on
// error, which gives exact all-or-nothing semantics without a write-ahead
// log.
package memory

import (
	"context"
	"sort"
	"sync"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/record"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type lineKey struct {
	batchID uint64
	index   uint64
}

type counterKey struct {
	account types.Account
	day     uint64
}

type historyKey struct {
	account types.Account
	height  uint64
}

type accessKey struct {
	owner    types.Account
	accessor types.Account
}

// state is the full mutable dataset. Kept as one struct so Atomic can
// snapshot and restore it wholesale.
type state struct {
	batches    map[uint64]batch.Batch
	lines      map[lineKey]batch.TransferLine
	lineCounts map[uint64]uint64
	records    map[types.Account]record.UserRecord
	counters   map[counterKey]record.DailyCounter
	settings   map[types.Account]record.UserSettings
	history    map[historyKey]record.HistoryEntry
	stats      map[uint64]record.DailyStat
	access     map[accessKey]record.SharedAccess
	events     []audit.Event
	globals    store.Globals
	hasGlobals bool
}

func newState() *state {
	return &state{
		batches:    make(map[uint64]batch.Batch),
		lines:      make(map[lineKey]batch.TransferLine),
		lineCounts: make(map[uint64]uint64),
		records:    make(map[types.Account]record.UserRecord),
		counters:   make(map[counterKey]record.DailyCounter),
		settings:   make(map[types.Account]record.UserSettings),
		history:    make(map[historyKey]record.HistoryEntry),
		stats:      make(map[uint64]record.DailyStat),
		access:     make(map[accessKey]record.SharedAccess),
	}
}

// clone deep-copies the state. All record types are plain value structs,
// so copying the maps copies the data.
func (st *state) clone() *state {
	cp := &state{
		batches:    make(map[uint64]batch.Batch, len(st.batches)),
		lines:      make(map[lineKey]batch.TransferLine, len(st.lines)),
		lineCounts: make(map[uint64]uint64, len(st.lineCounts)),
		records:    make(map[types.Account]record.UserRecord, len(st.records)),
		counters:   make(map[counterKey]record.DailyCounter, len(st.counters)),
		settings:   make(map[types.Account]record.UserSettings, len(st.settings)),
		history:    make(map[historyKey]record.HistoryEntry, len(st.history)),
		stats:      make(map[uint64]record.DailyStat, len(st.stats)),
		access:     make(map[accessKey]record.SharedAccess, len(st.access)),
		events:     make([]audit.Event, len(st.events)),
		globals:    st.globals,
		hasGlobals: st.hasGlobals,
	}
	for k, v := range st.batches {
		cp.batches[k] = v
	}
	for k, v := range st.lines {
		cp.lines[k] = v
	}
	for k, v := range st.lineCounts {
		cp.lineCounts[k] = v
	}
	for k, v := range st.records {
		cp.records[k] = v
	}
	for k, v := range st.counters {
		cp.counters[k] = v
	}
	for k, v := range st.settings {
		cp.settings[k] = v
	}
	for k, v := range st.history {
		cp.history[k] = v
	}
	for k, v := range st.stats {
		cp.stats[k] = v
	}
	for k, v := range st.access {
		cp.access[k] = v
	}
	copy(cp.events, st.events)
	return cp
}

// Store is the in-memory driver.
//
// Every exported method acquires the store mutex and delegates to a
// lock-free unexported counterpart. Atomic hands its callback a txView
// that calls the unexported methods directly while Atomic itself holds
// the mutex, so concurrent readers block until the scope commits or
// rolls back and never observe intermediate writes.
type Store struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{st: newState()}
}

// ==================== Batch scheduler ====================

func (s *Store) PutBatch(ctx context.Context, b *batch.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putBatch(ctx, b)
}

func (s *Store) putBatch(_ context.Context, b *batch.Batch) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.batches[b.ID] = *b
	return nil
}

func (s *Store) GetBatch(ctx context.Context, batchID uint64) (*batch.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBatch(ctx, batchID)
}

func (s *Store) getBatch(_ context.Context, batchID uint64) (*batch.Batch, error) {
	b, ok := s.st.batches[batchID]
	if !ok {
		return nil, chainstate.ErrBatchNotFound
	}
	return &b, nil
}

func (s *Store) PutTransferLine(ctx context.Context, line *batch.TransferLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putTransferLine(ctx, line)
}

func (s *Store) putTransferLine(_ context.Context, line *batch.TransferLine) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.lines[lineKey{line.BatchID, line.Index}] = *line
	return nil
}

func (s *Store) GetTransferLine(ctx context.Context, batchID, index uint64) (*batch.TransferLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransferLine(ctx, batchID, index)
}

func (s *Store) getTransferLine(_ context.Context, batchID, index uint64) (*batch.TransferLine, error) {
	line, ok := s.st.lines[lineKey{batchID, index}]
	if !ok {
		return nil, chainstate.ErrNotFound
	}
	return &line, nil
}

func (s *Store) ListTransferLines(ctx context.Context, batchID uint64) ([]*batch.TransferLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransferLines(ctx, batchID)
}

func (s *Store) listTransferLines(_ context.Context, batchID uint64) ([]*batch.TransferLine, error) {
	result := make([]*batch.TransferLine, 0)
	for k, v := range s.st.lines {
		if k.batchID == batchID {
			line := v
			result = append(result, &line)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

func (s *Store) PutTransferCount(ctx context.Context, batchID, count uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putTransferCount(ctx, batchID, count)
}

func (s *Store) putTransferCount(_ context.Context, batchID, count uint64) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.lineCounts[batchID] = count
	return nil
}

func (s *Store) GetTransferCount(ctx context.Context, batchID uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransferCount(ctx, batchID)
}

func (s *Store) getTransferCount(_ context.Context, batchID uint64) (uint64, error) {
	count, ok := s.st.lineCounts[batchID]
	if !ok {
		return 0, chainstate.ErrBatchNotFound
	}
	return count, nil
}

// ==================== User records ====================

func (s *Store) GetUserRecord(ctx context.Context, account types.Account) (*record.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUserRecord(ctx, account)
}

func (s *Store) getUserRecord(_ context.Context, account types.Account) (*record.UserRecord, error) {
	r, ok := s.st.records[account]
	if !ok {
		return nil, chainstate.ErrUserNotFound
	}
	return &r, nil
}

func (s *Store) PutUserRecord(ctx context.Context, r *record.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putUserRecord(ctx, r)
}

func (s *Store) putUserRecord(_ context.Context, r *record.UserRecord) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.records[r.Account] = *r
	return nil
}

// GetDailyCounter returns the zero-valued counter when no row exists:
// a new day window starts at an implicit count of zero.
func (s *Store) GetDailyCounter(ctx context.Context, account types.Account, day uint64) (*record.DailyCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDailyCounter(ctx, account, day)
}

func (s *Store) getDailyCounter(_ context.Context, account types.Account, day uint64) (*record.DailyCounter, error) {
	c, ok := s.st.counters[counterKey{account, day}]
	if !ok {
		return &record.DailyCounter{Account: account, Day: day}, nil
	}
	return &c, nil
}

func (s *Store) PutDailyCounter(ctx context.Context, c *record.DailyCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putDailyCounter(ctx, c)
}

func (s *Store) putDailyCounter(_ context.Context, c *record.DailyCounter) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.counters[counterKey{c.Account, c.Day}] = *c
	return nil
}

// GetUserSettings returns the zero-valued settings when no row exists:
// absence means "all defaults".
func (s *Store) GetUserSettings(ctx context.Context, account types.Account) (*record.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUserSettings(ctx, account)
}

func (s *Store) getUserSettings(_ context.Context, account types.Account) (*record.UserSettings, error) {
	v, ok := s.st.settings[account]
	if !ok {
		return &record.UserSettings{Account: account}, nil
	}
	return &v, nil
}

func (s *Store) PutUserSettings(ctx context.Context, v *record.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putUserSettings(ctx, v)
}

func (s *Store) putUserSettings(_ context.Context, v *record.UserSettings) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.settings[v.Account] = *v
	return nil
}

// ==================== Backup history ====================

func (s *Store) PutHistoryEntry(ctx context.Context, h *record.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putHistoryEntry(ctx, h)
}

func (s *Store) putHistoryEntry(_ context.Context, h *record.HistoryEntry) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.history[historyKey{h.Account, h.Height}] = *h
	return nil
}

func (s *Store) GetHistoryEntry(ctx context.Context, account types.Account, height uint64) (*record.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getHistoryEntry(ctx, account, height)
}

func (s *Store) getHistoryEntry(_ context.Context, account types.Account, height uint64) (*record.HistoryEntry, error) {
	h, ok := s.st.history[historyKey{account, height}]
	if !ok {
		return nil, chainstate.ErrBackupNotFound
	}
	return &h, nil
}

func (s *Store) ListHistoryEntries(ctx context.Context, account types.Account) ([]*record.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listHistoryEntries(ctx, account)
}

func (s *Store) listHistoryEntries(_ context.Context, account types.Account) ([]*record.HistoryEntry, error) {
	result := make([]*record.HistoryEntry, 0)
	for k, v := range s.st.history {
		if k.account == account {
			h := v
			result = append(result, &h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Height < result[j].Height })
	return result, nil
}

// ==================== Statistics ====================

// GetDailyStat returns the zero-valued stat when no row exists.
func (s *Store) GetDailyStat(ctx context.Context, day uint64) (*record.DailyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDailyStat(ctx, day)
}

func (s *Store) getDailyStat(_ context.Context, day uint64) (*record.DailyStat, error) {
	st, ok := s.st.stats[day]
	if !ok {
		return &record.DailyStat{Day: day}, nil
	}
	return &st, nil
}

func (s *Store) PutDailyStat(ctx context.Context, st *record.DailyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putDailyStat(ctx, st)
}

func (s *Store) putDailyStat(_ context.Context, st *record.DailyStat) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.stats[st.Day] = *st
	return nil
}

// ==================== Access sharing ====================

func (s *Store) GetSharedAccess(ctx context.Context, owner, accessor types.Account) (*record.SharedAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSharedAccess(ctx, owner, accessor)
}

func (s *Store) getSharedAccess(_ context.Context, owner, accessor types.Account) (*record.SharedAccess, error) {
	a, ok := s.st.access[accessKey{owner, accessor}]
	if !ok {
		return nil, chainstate.ErrGrantNotFound
	}
	return &a, nil
}

func (s *Store) PutSharedAccess(ctx context.Context, a *record.SharedAccess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putSharedAccess(ctx, a)
}

func (s *Store) putSharedAccess(_ context.Context, a *record.SharedAccess) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.access[accessKey{a.Owner, a.Accessor}] = *a
	return nil
}

func (s *Store) DeleteSharedAccess(ctx context.Context, owner, accessor types.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSharedAccess(ctx, owner, accessor)
}

func (s *Store) deleteSharedAccess(_ context.Context, owner, accessor types.Account) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	key := accessKey{owner, accessor}
	if _, ok := s.st.access[key]; !ok {
		return chainstate.ErrGrantNotFound
	}
	delete(s.st.access, key)
	return nil
}

// ==================== Audit log ====================

func (s *Store) AppendAuditEvent(ctx context.Context, e *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAuditEvent(ctx, e)
}

func (s *Store) appendAuditEvent(_ context.Context, e *audit.Event) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.events = append(s.st.events, *e)
	return nil
}

func (s *Store) ListAuditEvents(ctx context.Context, opts audit.ListOpts) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAuditEvents(ctx, opts)
}

func (s *Store) listAuditEvents(_ context.Context, opts audit.ListOpts) ([]*audit.Event, error) {
	result := make([]*audit.Event, 0)
	for i := range s.st.events {
		e := s.st.events[i]
		if e.ID <= opts.AfterID {
			continue
		}
		result = append(result, &e)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

// ==================== Globals ====================

func (s *Store) GetGlobals(ctx context.Context) (*store.Globals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getGlobals(ctx)
}

func (s *Store) getGlobals(_ context.Context) (*store.Globals, error) {
	if !s.st.hasGlobals {
		return nil, chainstate.ErrNotFound
	}
	g := s.st.globals
	return &g, nil
}

func (s *Store) PutGlobals(ctx context.Context, g *store.Globals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putGlobals(ctx, g)
}

func (s *Store) putGlobals(_ context.Context, g *store.Globals) error {
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	s.st.globals = *g
	s.st.hasGlobals = true
	return nil
}

// ==================== Atomic ====================

// Atomic snapshots the state, runs fn against a transaction view that
// shares this store's maps, and restores the snapshot if fn fails. The
// store mutex is held across the whole scope, so concurrent readers
// block until the scope ends and never observe intermediate writes.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	snapshot := s.st.clone()
	if err := fn(&txView{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// txView is the Store handed to Atomic callbacks. It delegates to the
// parent store's lock-free internals; Atomic already holds the mutex,
// rollback comes from the snapshot in Atomic.
type txView struct {
	s *Store
}

var _ store.Store = (*txView)(nil)

func (t *txView) PutBatch(ctx context.Context, b *batch.Batch) error { return t.s.putBatch(ctx, b) }
func (t *txView) GetBatch(ctx context.Context, id uint64) (*batch.Batch, error) {
	return t.s.getBatch(ctx, id)
}
func (t *txView) PutTransferLine(ctx context.Context, l *batch.TransferLine) error {
	return t.s.putTransferLine(ctx, l)
}
func (t *txView) GetTransferLine(ctx context.Context, id, idx uint64) (*batch.TransferLine, error) {
	return t.s.getTransferLine(ctx, id, idx)
}
func (t *txView) ListTransferLines(ctx context.Context, id uint64) ([]*batch.TransferLine, error) {
	return t.s.listTransferLines(ctx, id)
}
func (t *txView) PutTransferCount(ctx context.Context, id, n uint64) error {
	return t.s.putTransferCount(ctx, id, n)
}
func (t *txView) GetTransferCount(ctx context.Context, id uint64) (uint64, error) {
	return t.s.getTransferCount(ctx, id)
}
func (t *txView) GetUserRecord(ctx context.Context, a types.Account) (*record.UserRecord, error) {
	return t.s.getUserRecord(ctx, a)
}
func (t *txView) PutUserRecord(ctx context.Context, r *record.UserRecord) error {
	return t.s.putUserRecord(ctx, r)
}
func (t *txView) GetDailyCounter(ctx context.Context, a types.Account, d uint64) (*record.DailyCounter, error) {
	return t.s.getDailyCounter(ctx, a, d)
}
func (t *txView) PutDailyCounter(ctx context.Context, c *record.DailyCounter) error {
	return t.s.putDailyCounter(ctx, c)
}
func (t *txView) GetUserSettings(ctx context.Context, a types.Account) (*record.UserSettings, error) {
	return t.s.getUserSettings(ctx, a)
}
func (t *txView) PutUserSettings(ctx context.Context, v *record.UserSettings) error {
	return t.s.putUserSettings(ctx, v)
}
func (t *txView) PutHistoryEntry(ctx context.Context, h *record.HistoryEntry) error {
	return t.s.putHistoryEntry(ctx, h)
}
func (t *txView) GetHistoryEntry(ctx context.Context, a types.Account, h uint64) (*record.HistoryEntry, error) {
	return t.s.getHistoryEntry(ctx, a, h)
}
func (t *txView) ListHistoryEntries(ctx context.Context, a types.Account) ([]*record.HistoryEntry, error) {
	return t.s.listHistoryEntries(ctx, a)
}
func (t *txView) GetDailyStat(ctx context.Context, d uint64) (*record.DailyStat, error) {
	return t.s.getDailyStat(ctx, d)
}
func (t *txView) PutDailyStat(ctx context.Context, st *record.DailyStat) error {
	return t.s.putDailyStat(ctx, st)
}
func (t *txView) GetSharedAccess(ctx context.Context, o, a types.Account) (*record.SharedAccess, error) {
	return t.s.getSharedAccess(ctx, o, a)
}
func (t *txView) PutSharedAccess(ctx context.Context, g *record.SharedAccess) error {
	return t.s.putSharedAccess(ctx, g)
}
func (t *txView) DeleteSharedAccess(ctx context.Context, o, a types.Account) error {
	return t.s.deleteSharedAccess(ctx, o, a)
}
func (t *txView) AppendAuditEvent(ctx context.Context, e *audit.Event) error {
	return t.s.appendAuditEvent(ctx, e)
}
func (t *txView) ListAuditEvents(ctx context.Context, opts audit.ListOpts) ([]*audit.Event, error) {
	return t.s.listAuditEvents(ctx, opts)
}
func (t *txView) GetGlobals(ctx context.Context) (*store.Globals, error) {
	return t.s.getGlobals(ctx)
}
func (t *txView) PutGlobals(ctx context.Context, g *store.Globals) error {
	return t.s.putGlobals(ctx, g)
}

// Atomic on a transaction view is a nested transaction, which is not
// supported.
func (t *txView) Atomic(context.Context, func(tx store.Store) error) error {
	return chainstate.ErrTransactionFailed
}

func (t *txView) Migrate(ctx context.Context) error { return t.s.Migrate(ctx) }

// Ping checks the closed flag directly. The parent's Ping takes the
// store mutex, which Atomic already holds.
func (t *txView) Ping(context.Context) error {
	if t.s.closed {
		return chainstate.ErrStoreClosed
	}
	return nil
}

func (t *txView) Close() error { return chainstate.ErrTransactionFailed }

// ==================== Core ====================

// Migrate is a no-op for the memory driver.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports readiness.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return chainstate.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Subsequent writes fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
