// Package cdc implements the change-data-capture applier (C8): the
// handler the bridge invokes for every decoded ChangeEvent, routing it
// to an insert, update, or delete against the target connector with
// idempotent fallback and retry.
package cdc

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
	"github.com/heterosync/dbsync/internal/retry"
	"github.com/heterosync/dbsync/internal/schema"
	"github.com/heterosync/dbsync/internal/synclog"
)

// ConflictResolution governs what happens when an UPDATE event targets
// a row whose current target state should be considered authoritative
// over the source.
type ConflictResolution string

const (
	// SourceWins applies every update unconditionally. The default.
	SourceWins ConflictResolution = "source_wins"

	// TargetWins skips UPDATE events outright, leaving the target's own
	// value in place. It does not affect inserts or deletes: a row that
	// doesn't exist in the target yet, or that the source deleted, is
	// not a conflict. Grounded on original_source/handlers/cdc_handler.py,
	// whose target_wins branch guards only the update path.
	TargetWins ConflictResolution = "target_wins"
)

// Settings configures an Applier.
type Settings struct {
	ApplyDeletes       bool
	ConflictResolution ConflictResolution
	Retry              retry.Settings
}

// Applier is the bridge.Handler the engine registers once the target
// connector and schema manager are available.
type Applier struct {
	target  connector.Connector
	schemas *schema.Manager
	stats   *model.Statistics
	log     *synclog.Logger

	applyDeletes       bool
	conflictResolution ConflictResolution
	retrySettings      retry.Settings
}

func New(target connector.Connector, schemas *schema.Manager, stats *model.Statistics, settings Settings, log *synclog.Logger) *Applier {
	cr := settings.ConflictResolution
	if cr == "" {
		cr = SourceWins
	}
	return &Applier{
		target:             target,
		schemas:            schemas,
		stats:              stats,
		log:                log.Named("cdc"),
		applyDeletes:       settings.ApplyDeletes,
		conflictResolution: cr,
		retrySettings:      settings.Retry,
	}
}

// ProcessEvent is the Applier's entry point, wired as a bridge.Handler.
// The whole apply attempt (including idempotent fallback) is wrapped
// in the exponential-backoff retry spec §4.6 requires, so a transient
// target outage during a single event doesn't drop it.
func (a *Applier) ProcessEvent(ctx context.Context, event model.ChangeEvent) error {
	err := retry.WithBackoff(ctx, func(ctx context.Context) error {
		return a.apply(ctx, event)
	}, a.retrySettings)
	if err != nil {
		a.stats.IncErrors()
		a.log.Errorf("giving up on %s event for %s: %v", event.Operation, event.TableName, err)
	}
	return err
}

func (a *Applier) apply(ctx context.Context, event model.ChangeEvent) error {
	if _, err := a.schemas.GetOrSyncSchema(ctx, event.TableName); err != nil {
		return err
	}

	switch event.Operation {
	case model.OpCreate, model.OpRead:
		return a.applyInsert(ctx, event)
	case model.OpUpdate:
		return a.applyUpdate(ctx, event)
	case model.OpDelete:
		if !a.applyDeletes {
			return nil
		}
		return a.applyDelete(ctx, event)
	default:
		a.log.Warnf("unrecognized operation %s for table %s, ignoring", event.Operation, event.TableName)
		return nil
	}
}

func (a *Applier) applyInsert(ctx context.Context, event model.ChangeEvent) error {
	row := model.RowFromMap(sortedKeys(event.After), event.After)
	err := a.target.InsertBatch(ctx, event.TableName, []model.Row{row})
	if err == nil {
		a.stats.IncInserts()
		return nil
	}
	if !isDuplicateKey(err) {
		return err
	}

	a.log.Debugf("insert conflict on %s, falling back to update", event.TableName)
	pk, err2 := a.primaryKeyValues(ctx, event)
	if err2 != nil {
		return err
	}
	if err := a.target.UpdateRow(ctx, event.TableName, pk, event.After); err != nil {
		return err
	}
	a.stats.IncUpdates()
	return nil
}

func (a *Applier) applyUpdate(ctx context.Context, event model.ChangeEvent) error {
	if a.conflictResolution == TargetWins {
		a.log.Debugf("target_wins: skipping update for %s", event.TableName)
		return nil
	}

	pk, ok := event.PrimaryKeyValues(mustPKColumns(ctx, a.schemas, event.TableName))
	if !ok {
		return connector.WrapOperation(a.target.Dialect(), "update", event.TableName, connector.ErrRowNotFound)
	}

	err := a.target.UpdateRow(ctx, event.TableName, pk, event.After)
	if err == nil {
		a.stats.IncUpdates()
		return nil
	}
	if !isRowNotFound(err) {
		return err
	}

	a.log.Debugf("update target missing row on %s, falling back to insert", event.TableName)
	row := model.RowFromMap(sortedKeys(event.After), event.After)
	if err := a.target.InsertBatch(ctx, event.TableName, []model.Row{row}); err != nil {
		return err
	}
	a.stats.IncInserts()
	return nil
}

func (a *Applier) applyDelete(ctx context.Context, event model.ChangeEvent) error {
	pk, ok := event.PrimaryKeyValues(mustPKColumns(ctx, a.schemas, event.TableName))
	if !ok {
		a.log.Warnf("delete event for %s missing primary key values, skipping", event.TableName)
		return nil
	}
	if err := a.target.DeleteRow(ctx, event.TableName, pk); err != nil {
		// Errors during delete are logged and swallowed unconditionally,
		// not just row-not-found: a delete that never lands isn't worth
		// retrying or blocking the stream over.
		a.log.Errorf("delete failed for %s, skipping: %v", event.TableName, err)
		return nil
	}
	a.stats.IncDeletes()
	return nil
}

// primaryKeyValues resolves PK columns via the schema manager and
// extracts their values from event.
func (a *Applier) primaryKeyValues(ctx context.Context, event model.ChangeEvent) (map[string]interface{}, error) {
	cols, err := a.target.GetPrimaryKeys(ctx, event.TableName)
	if err != nil {
		return nil, err
	}
	pk, ok := event.PrimaryKeyValues(cols)
	if !ok {
		return nil, connector.WrapOperation(a.target.Dialect(), "resolve-pk", event.TableName, connector.ErrRowNotFound)
	}
	return pk, nil
}

// mustPKColumns is a best-effort PK column lookup for the update/delete
// paths; a failure surfaces as an empty slice, which PrimaryKeyValues
// turns into ok=false, itself a recoverable condition the caller
// already handles.
func mustPKColumns(ctx context.Context, schemas *schema.Manager, table string) []string {
	s, err := schemas.GetOrSyncSchema(ctx, table)
	if err != nil {
		return nil
	}
	return s.PrimaryKeys
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isDuplicateKey recognizes both the ErrDuplicateKey sentinel (should a
// connector ever wrap one explicitly) and the raw driver error text
// pgx and the mysql driver surface for a unique-constraint violation,
// since neither wraps its own error in a sentinel we control.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, connector.ErrDuplicateKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}

func isRowNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, connector.ErrRowNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "row not found") || strings.Contains(msg, "no rows")
}
