package chainstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/record"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/types"
)

// ──────────────────────────────────────────────────
// Rate-Limited Value Store
// ──────────────────────────────────────────────────

// effectiveLimit resolves the daily update quota for a record: the user's
// custom limit (or the engine default when unset), scaled by the premium
// multiplier while a subscription is active.
func (e *Engine) effectiveLimit(settings *record.UserSettings, r *record.UserRecord, height uint64) uint64 {
	limit := settings.DailyLimit
	if limit == 0 {
		limit = e.params.DefaultDailyLimit
	}
	if r != nil && r.PremiumActive(height) {
		limit *= e.params.PremiumMultiplier
	}
	return limit
}

// feeSink is where collected fees land: the contract owner, or the
// contract account while no owner is set.
func (e *Engine) feeSink(g *store.Globals) types.Account {
	if g.Owner.Valid() {
		return g.Owner
	}
	return e.params.ContractAccount
}

// loadOrCreateRecord fetches the caller's record, creating a fresh one on
// first use. Creation bumps the global user count.
func loadOrCreateRecord(ctx context.Context, tx store.Store, g *store.Globals, account types.Account, height uint64) (*record.UserRecord, error) {
	r, err := tx.GetUserRecord(ctx, account)
	if err == nil {
		return r, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	g.TotalUsers++
	return &record.UserRecord{
		Entity:  types.NewEntity(height),
		Account: account,
	}, nil
}

// quotaExceeded carries the numbers behind a daily-limit rejection so the
// engine can emit them to plugins after the transaction unwinds.
type quotaExceeded struct {
	used, limit uint64
}

func (q *quotaExceeded) Error() string {
	return fmt.Sprintf("%v: used %d of %d", ErrDailyLimitExceeded, q.used, q.limit)
}

func (q *quotaExceeded) Unwrap() error { return ErrDailyLimitExceeded }

// applyUpdates is the shared core of UpdateValue, BatchUpdateValues, and
// RestoreFromBackup: frozen check, quota check, record upsert, counter and
// statistics bumps, optional backup snapshot, audit event, globals write,
// and finally the fee transfer. values must be nonempty and pre-validated;
// the record ends at the last value. Runs inside the caller's Atomic scope
// with the fee transfer last so a ledger failure rolls everything back.
func (e *Engine) applyUpdates(ctx context.Context, tx store.Store, caller types.Account, values []uint64, height uint64, kind record.UpdateType) (oldValue uint64, err error) {
	g, err := e.globals(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := gate(g); err != nil {
		return 0, err
	}

	settings, err := tx.GetUserSettings(ctx, caller)
	if err != nil {
		return 0, err
	}
	if settings.Frozen {
		return 0, ErrUserFrozen
	}

	r, err := loadOrCreateRecord(ctx, tx, g, caller, height)
	if err != nil {
		return 0, err
	}

	n := uint64(len(values))
	day := record.DayIndex(height, e.params.BlocksPerDay)
	counter, err := tx.GetDailyCounter(ctx, caller, day)
	if err != nil {
		return 0, err
	}
	limit := e.effectiveLimit(settings, r, height)
	if counter.Count+n > limit {
		return 0, &quotaExceeded{used: counter.Count, limit: limit}
	}

	// One aggregate fee for the whole call.
	var fee types.Amount
	if g.FeeEnabled {
		fee, err = e.params.UpdateFee.Mul(n)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		if e.bank.BalanceOf(caller) < fee {
			return 0, ErrInsufficientPayment
		}
	}

	oldValue = r.Value
	firstToday := counter.Count == 0
	premium := r.PremiumActive(height)
	newValue := values[len(values)-1]

	r.Value = newValue
	r.LastUpdated = height
	r.TotalUpdates += n
	r.Touch(height)
	if err := tx.PutUserRecord(ctx, r); err != nil {
		return 0, err
	}

	counter.Count += n
	counter.LastUpdate = height
	if err := tx.PutDailyCounter(ctx, counter); err != nil {
		return 0, err
	}

	stat, err := tx.GetDailyStat(ctx, day)
	if err != nil {
		return 0, err
	}
	stat.TotalUpdates += n
	if firstToday {
		stat.UniqueUsers++
	}
	if premium {
		stat.PremiumUpdates += n
	}
	if err := tx.PutDailyStat(ctx, stat); err != nil {
		return 0, err
	}

	// Restores always leave a snapshot; plain updates only under
	// auto-backup.
	if kind == record.UpdateRestore || settings.AutoBackup {
		entry := &record.HistoryEntry{
			Account: caller,
			Height:  height,
			Value:   newValue,
			Type:    kind,
		}
		if err := tx.PutHistoryEntry(ctx, entry); err != nil {
			return 0, err
		}
	}

	g.TotalUpdates += n

	action := audit.ActionValueUpdated
	details := fmt.Sprintf("value %d -> %d", oldValue, newValue)
	switch {
	case kind == record.UpdateRestore:
		action = audit.ActionBackupRestored
		details = fmt.Sprintf("restored value %d", newValue)
	case n > 1:
		details = fmt.Sprintf("%d updates, final value %d", n, newValue)
	}
	if err := appendEvent(ctx, tx, g, caller, action, height, details); err != nil {
		return 0, err
	}
	if err := tx.PutGlobals(ctx, g); err != nil {
		return 0, err
	}

	if fee > 0 {
		if err := e.bank.Transfer(fee, caller, e.feeSink(g)); err != nil {
			return 0, fmt.Errorf("%w: fee: %v", ErrTransferFailed, err)
		}
	}
	return oldValue, nil
}

// emitQuota surfaces a daily-limit rejection to plugins and returns the
// sentinel the caller should see.
func (e *Engine) emitQuota(ctx context.Context, caller types.Account, err error) error {
	var q *quotaExceeded
	if errors.As(err, &q) {
		e.plugins.EmitQuotaExceeded(ctx, string(caller), q.used, q.limit)
		return ErrDailyLimitExceeded
	}
	return err
}

// UpdateValue sets the caller's stored value. The update consumes one unit
// of the daily quota and, while fees are enabled, pays the update fee to
// the contract owner. A first update creates the user's record.
func (e *Engine) UpdateValue(ctx context.Context, caller types.Account, newValue uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	if !caller.Valid() {
		return fmt.Errorf("%w: empty account", ErrInvalidInput)
	}
	if newValue == 0 {
		return ErrInvalidValue
	}

	var oldValue uint64
	err := e.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		oldValue, err = e.applyUpdates(ctx, tx, caller, []uint64{newValue}, height, record.UpdateAuto)
		return err
	})
	if err != nil {
		return e.emitQuota(ctx, caller, err)
	}

	e.plugins.EmitValueUpdated(ctx, string(caller), oldValue, newValue)
	e.logger.Debug("value updated",
		"account", caller,
		"old", oldValue,
		"new", newValue,
	)

	return nil
}

// BatchUpdateValues applies a sequence of value updates in one
// transactional scope. The quota is checked once, up front, against the
// whole batch, and the fee is charged as one aggregate: either all items
// apply or none do. The record ends at the last value in the slice.
func (e *Engine) BatchUpdateValues(ctx context.Context, caller types.Account, values []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	if !caller.Valid() {
		return fmt.Errorf("%w: empty account", ErrInvalidInput)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: empty update batch", ErrInvalidInput)
	}
	if uint64(len(values)) > e.params.MaxBatchUpdates {
		return ErrUpdateBatchTooLarge
	}
	for i, v := range values {
		if v == 0 {
			return fmt.Errorf("%w: item %d", ErrInvalidValue, i)
		}
	}

	var oldValue uint64
	err := e.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		oldValue, err = e.applyUpdates(ctx, tx, caller, values, height, record.UpdateAuto)
		return err
	})
	if err != nil {
		return e.emitQuota(ctx, caller, err)
	}

	final := values[len(values)-1]
	e.plugins.EmitValueUpdated(ctx, string(caller), oldValue, final)
	e.logger.Debug("batch values updated",
		"account", caller,
		"count", len(values),
		"final", final,
	)

	return nil
}

// RestoreFromBackup sets the caller's value back to the snapshot taken at
// the given height. A restore is an update: it consumes daily quota, pays
// the update fee, and leaves a restore-typed snapshot at the current
// height so the rollback itself is traceable.
func (e *Engine) RestoreFromBackup(ctx context.Context, caller types.Account, backupHeight uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		snapshot, err := tx.GetHistoryEntry(ctx, caller, backupHeight)
		if err != nil {
			return err
		}
		_, err = e.applyUpdates(ctx, tx, caller, []uint64{snapshot.Value}, height, record.UpdateRestore)
		return err
	})
	if err != nil {
		return e.emitQuota(ctx, caller, err)
	}

	e.plugins.EmitBackupRestored(ctx, string(caller), backupHeight)
	e.logger.Info("backup restored",
		"account", caller,
		"backup_height", backupHeight,
	)

	return nil
}

// UpgradeToPremium buys a premium subscription for the caller, who must
// already have a record. The price is UpdateFee x PremiumMultiplier per
// day, paid to the contract owner. Buying while already premium replaces
// the subscription: the new expiry is measured from now, not appended to
// the old one.
func (e *Engine) UpgradeToPremium(ctx context.Context, caller types.Account, durationDays uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	if !caller.Valid() {
		return fmt.Errorf("%w: empty account", ErrInvalidInput)
	}
	if durationDays == 0 || durationDays > e.params.MaxPremiumDays {
		return ErrInvalidDuration
	}

	perDay, err := e.params.UpdateFee.Mul(e.params.PremiumMultiplier)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	cost, err := perDay.Mul(durationDays)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if e.bank.BalanceOf(caller) < cost {
		return ErrInsufficientPayment
	}

	expiry := height + durationDays*e.params.BlocksPerDay

	err = e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		settings, err := tx.GetUserSettings(ctx, caller)
		if err != nil {
			return err
		}
		if settings.Frozen {
			return ErrUserFrozen
		}

		r, err := tx.GetUserRecord(ctx, caller)
		if err != nil {
			return err
		}

		r.Premium = true
		r.SubscriptionExpiry = expiry
		r.Touch(height)
		if err := tx.PutUserRecord(ctx, r); err != nil {
			return err
		}

		details := fmt.Sprintf("%d days, cost %s, expires at %d", durationDays, cost, expiry)
		if err := appendEvent(ctx, tx, g, caller, audit.ActionPremiumUpgraded, height, details); err != nil {
			return err
		}
		if err := tx.PutGlobals(ctx, g); err != nil {
			return err
		}

		if err := e.bank.Transfer(cost, caller, e.feeSink(g)); err != nil {
			return fmt.Errorf("%w: subscription fee: %v", ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.plugins.EmitPremiumUpgraded(ctx, string(caller), expiry)
	e.logger.Info("premium upgraded",
		"account", caller,
		"days", durationDays,
		"cost", cost,
		"expires_at", expiry,
	)

	return nil
}

// UpdateUserSettings sets the caller's preferences. A dailyLimit of 0
// means "use the engine default"; nonzero values are bounded by
// MaxCustomDailyLimit. The Frozen flag is admin-controlled and preserved
// across settings updates.
func (e *Engine) UpdateUserSettings(ctx context.Context, caller types.Account, dailyLimit uint64, autoBackup, notifications bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	if !caller.Valid() {
		return fmt.Errorf("%w: empty account", ErrInvalidInput)
	}
	if dailyLimit > e.params.MaxCustomDailyLimit {
		return ErrInvalidDailyLimit
	}

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		settings, err := tx.GetUserSettings(ctx, caller)
		if err != nil {
			return err
		}
		if settings.Frozen {
			return ErrUserFrozen
		}

		settings.Account = caller
		settings.DailyLimit = dailyLimit
		settings.AutoBackup = autoBackup
		settings.Notifications = notifications
		if err := tx.PutUserSettings(ctx, settings); err != nil {
			return err
		}

		details := fmt.Sprintf("daily_limit=%d auto_backup=%t notifications=%t", dailyLimit, autoBackup, notifications)
		if err := appendEvent(ctx, tx, g, caller, audit.ActionSettingsUpdated, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.logger.Debug("settings updated",
		"account", caller,
		"daily_limit", dailyLimit,
		"auto_backup", autoBackup,
	)

	return nil
}

// CreateManualBackup snapshots the caller's current value into the backup
// history at the current height. The caller must already have a record.
// Manual snapshots are free and do not consume quota.
func (e *Engine) CreateManualBackup(ctx context.Context, caller types.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		settings, err := tx.GetUserSettings(ctx, caller)
		if err != nil {
			return err
		}
		if settings.Frozen {
			return ErrUserFrozen
		}

		r, err := tx.GetUserRecord(ctx, caller)
		if err != nil {
			return err
		}

		entry := &record.HistoryEntry{
			Account: caller,
			Height:  height,
			Value:   r.Value,
			Type:    record.UpdateManual,
		}
		if err := tx.PutHistoryEntry(ctx, entry); err != nil {
			return err
		}

		details := fmt.Sprintf("value %d at height %d", r.Value, height)
		if err := appendEvent(ctx, tx, g, caller, audit.ActionBackupCreated, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitBackupCreated(ctx, string(caller), height)
	e.logger.Debug("manual backup created", "account", caller, "height", height)

	return nil
}

// GrantAccess gives an accessor read and/or write visibility into the
// owner's record for a bounded number of blocks. Re-granting to the same
// accessor replaces the previous grant.
func (e *Engine) GrantAccess(ctx context.Context, owner, accessor types.Account, read, write bool, durationBlocks uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	if !owner.Valid() || !accessor.Valid() {
		return fmt.Errorf("%w: empty account", ErrInvalidInput)
	}
	if owner == accessor {
		return fmt.Errorf("%w: cannot grant access to self", ErrInvalidInput)
	}
	if !read && !write {
		return fmt.Errorf("%w: grant carries no permissions", ErrInvalidInput)
	}
	if durationBlocks == 0 {
		return fmt.Errorf("%w: zero grant duration", ErrInvalidInput)
	}

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		grant := &record.SharedAccess{
			Owner:     owner,
			Accessor:  accessor,
			Read:      read,
			Write:     write,
			ExpiresAt: height + durationBlocks,
		}
		if err := tx.PutSharedAccess(ctx, grant); err != nil {
			return err
		}

		details := fmt.Sprintf("to %s read=%t write=%t until %d", accessor, read, write, grant.ExpiresAt)
		if err := appendEvent(ctx, tx, g, owner, audit.ActionAccessGranted, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitAccessGranted(ctx, string(owner), string(accessor))
	e.logger.Debug("access granted",
		"owner", owner,
		"accessor", accessor,
		"read", read,
		"write", write,
	)

	return nil
}

// RevokeAccess removes the owner's grant to the accessor, whether or not
// it has expired.
func (e *Engine) RevokeAccess(ctx context.Context, owner, accessor types.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		if err := tx.DeleteSharedAccess(ctx, owner, accessor); err != nil {
			return err
		}

		details := fmt.Sprintf("from %s", accessor)
		if err := appendEvent(ctx, tx, g, owner, audit.ActionAccessRevoked, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitAccessRevoked(ctx, string(owner), string(accessor))
	e.logger.Debug("access revoked", "owner", owner, "accessor", accessor)

	return nil
}
