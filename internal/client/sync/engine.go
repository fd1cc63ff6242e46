// Package sync moves pending local documents to the authority (push) and folds the
// authority's records into the local store (pull).
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/conflict"
	"github.com/iudanet/fieldsync/internal/client/events"
	"github.com/iudanet/fieldsync/internal/client/metrics"
	"github.com/iudanet/fieldsync/internal/client/network"
	"github.com/iudanet/fieldsync/internal/client/pending"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/client/store"
	"github.com/iudanet/fieldsync/internal/crdt"
	"github.com/iudanet/fieldsync/internal/models"
)

// Engine errors
var (
	// ErrOffline indicates that the cycle was skipped because the device is offline
	ErrOffline = errors.New("offline")

	// ErrBusy indicates that another cycle is in flight
	ErrBusy = errors.New("sync already in progress")

	// ErrNoCredentials indicates that there is no usable bearer token
	ErrNoCredentials = errors.New("no valid credentials")
)

// Credentials supplies the bearer token for the authority. Invalidate reports a token the
// authority rejected so that the next Token call does not return it again.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context, token string) error
}

// Network is the connectivity source of the engine.
type Network interface {
	IsOnline() bool
	OnChange(h network.Handler) func()
}

// Options tune the engine.
type Options struct {
	Debounce     time.Duration // quiet period before a push after local writes
	TombstoneTTL time.Duration // confirmed tombstones older than this are purged after pull
	AutoSync     bool          // schedule pushes after local writes; connectivity triggers run regardless
}

// rerun requests recorded by triggers that found a cycle in flight. A full request wins
// over a push request.
const (
	rerunNone int32 = iota
	rerunPush
	rerunFull
)

// Deps are the collaborators of the engine. Metadata and Metrics are optional.
type Deps struct {
	API         api.ClientAPI
	Store       *store.Store
	Index       *pending.Index
	Network     Network
	Credentials Credentials
	Metadata    storage.MetadataStorage
	Bus         *events.Bus
	Metrics     *metrics.Sync
	Clock       *crdt.Clock
	Logger      *slog.Logger
}

// CycleResult summarizes one push and/or pull cycle.
type CycleResult struct {
	Duration    time.Duration
	Pushed      int // documents accepted by the authority
	Failed      int // documents left pending after a non-auth failure
	Blocked     int // pending documents skipped because of an open conflict
	Pulled      int // remote records received
	Merged      int // remote records that changed local state
	Conflicts   int // conflicts raised or changed by this pull
	Unreachable int // collections that could not be fetched
}

// Status is the UI-facing view of the engine.
type Status struct {
	LastSyncTime time.Time
	LastError    string
	Conflicts    []models.Conflict
	PendingCount int
	IsOnline     bool
	IsSyncing    bool
	Durable      bool
}

// Engine is the sync engine. At most one cycle is in flight at any time.
type Engine struct {
	api      api.ClientAPI
	store    *store.Store
	index    *pending.Index
	net      Network
	creds    Credentials
	meta     storage.MetadataStorage
	bus      *events.Bus
	metrics  *metrics.Sync
	clock    *crdt.Clock
	logger   *slog.Logger
	debounce *Debouncer
	ctx      context.Context
	cancel   context.CancelFunc
	lastSync time.Time
	lastErr  error
	unsub    []func()
	opts     Options
	wg       sync.WaitGroup
	mu       sync.Mutex
	syncing  atomic.Bool
	rerun    atomic.Int32
}

// NewEngine creates an engine. Start connects it to local writes and connectivity changes.
func NewEngine(d Deps, opts Options) *Engine {
	e := &Engine{
		api:     d.API,
		store:   d.Store,
		index:   d.Index,
		net:     d.Network,
		creds:   d.Credentials,
		meta:    d.Metadata,
		bus:     d.Bus,
		metrics: d.Metrics,
		clock:   d.Clock,
		logger:  d.Logger,
		opts:    opts,
		ctx:     context.Background(),
	}
	e.debounce = NewDebouncer(opts.Debounce, func() {
		e.scheduled(e.baseContext(), rerunPush)
	})
	return e
}

// Start loads the last sync time, subscribes to local writes and connectivity changes and
// runs an initial sync if the device is online.
func (e *Engine) Start(ctx context.Context) error {
	if e.meta != nil {
		last, err := e.meta.GetLastSyncTime(ctx)
		if err != nil {
			return fmt.Errorf("failed to load last sync time: %w", err)
		}
		e.mu.Lock()
		e.lastSync = last
		e.mu.Unlock()
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.ctx = ctx
	e.cancel = cancel
	e.mu.Unlock()

	e.unsub = append(e.unsub,
		e.store.Subscribe(func(c store.Change) {
			if c.Origin == store.OriginLocal {
				e.Notify()
			}
		}),
		e.net.OnChange(func(online bool) {
			if online {
				e.logger.Info("device online, starting sync")
				e.goSync(ctx)
			}
		}),
	)

	if e.net.IsOnline() {
		e.goSync(ctx)
	}
	return nil
}

// Stop cancels scheduled and in-flight cycles and waits for background cycles to return.
func (e *Engine) Stop() {
	e.debounce.Stop()
	for _, u := range e.unsub {
		u()
	}
	e.unsub = nil

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// Notify schedules a debounced push after a local write.
func (e *Engine) Notify() {
	if !e.opts.AutoSync || !e.net.IsOnline() {
		return
	}
	e.debounce.Trigger()
}

func (e *Engine) baseContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

func (e *Engine) goSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.scheduled(ctx, rerunFull)
	}()
}

// scheduled runs an automatic cycle. A trigger that finds a cycle in flight is not queued;
// it records what it wanted and the cycle in flight reruns it once when it ends
// (a debounced push, or a full sync for connectivity triggers).
func (e *Engine) scheduled(ctx context.Context, mode int32) {
	for {
		run := e.Push
		if mode == rerunFull {
			run = e.ForceSync
		}
		if _, err := run(ctx); !errors.Is(err, ErrBusy) {
			return
		}

		e.request(mode)
		if e.syncing.Load() {
			return
		}
		// цикл завершился до записи запроса: забираем его сами
		if mode = e.rerun.Swap(rerunNone); mode == rerunNone {
			return
		}
	}
}

func (e *Engine) request(mode int32) {
	for {
		cur := e.rerun.Load()
		if cur >= mode || e.rerun.CompareAndSwap(cur, mode) {
			return
		}
	}
}

// Push sends pending documents to the authority.
func (e *Engine) Push(ctx context.Context) (CycleResult, error) {
	return e.cycle(ctx, true, false)
}

// Pull fetches the authority's records and merges them into the local store.
func (e *Engine) Pull(ctx context.Context) (CycleResult, error) {
	return e.cycle(ctx, false, true)
}

// ForceSync runs push then pull as one cycle.
func (e *Engine) ForceSync(ctx context.Context) (CycleResult, error) {
	return e.cycle(ctx, true, true)
}

func (e *Engine) cycle(ctx context.Context, push, pull bool) (CycleResult, error) {
	var res CycleResult

	if !e.net.IsOnline() {
		return res, ErrOffline
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return res, ErrBusy
	}
	defer e.finish()

	token, err := e.creds.Token(ctx)
	if err != nil {
		e.logger.Debug("sync skipped", "error", err)
		return res, fmt.Errorf("%w: %w", ErrNoCredentials, err)
	}

	var docs []*models.Document
	if push {
		docs = e.pushable(&res)
		if len(docs) == 0 && !pull {
			return res, nil
		}
	}

	start := time.Now()
	e.logger.Info("sync started", "pending", len(docs), "pull", pull)
	e.bus.Publish(events.SyncStarted{Count: len(docs)})

	if len(docs) > 0 {
		err = e.push(ctx, token, docs, &res)
	}
	if err == nil && pull {
		err = e.pull(ctx, token, &res)
	}
	res.Duration = time.Since(start)
	e.metrics.Pending(e.index.Count())

	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			e.invalidate(ctx, token)
		}
		e.fail(err, res.Duration)
		return res, err
	}
	e.succeed(ctx, res)
	return res, nil
}

func (e *Engine) finish() {
	e.syncing.Store(false)
	switch e.rerun.Swap(rerunNone) {
	case rerunFull:
		e.goSync(e.baseContext())
	case rerunPush:
		e.debounce.Trigger()
	}
}

// invalidate drops a token the authority rejected mid-cycle; the next cycle refreshes it.
func (e *Engine) invalidate(ctx context.Context, token string) {
	if err := e.creds.Invalidate(context.WithoutCancel(ctx), token); err != nil {
		e.logger.Warn("failed to invalidate rejected token", "error", err)
	}
}

func (e *Engine) fail(err error, d time.Duration) {
	result := metrics.ResultError
	if errors.Is(err, api.ErrUnauthorized) {
		result = metrics.ResultUnauthorized
	}
	e.metrics.Cycle(result, d)

	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()

	e.logger.Error("sync aborted", "error", err)
	e.bus.Publish(events.SyncFailed{Err: err})
}

func (e *Engine) succeed(ctx context.Context, res CycleResult) {
	e.metrics.Cycle(metrics.ResultOK, res.Duration)

	now := time.Now().UTC()
	e.mu.Lock()
	e.lastSync = now
	e.lastErr = nil
	if res.Unreachable > 0 {
		e.lastErr = fmt.Errorf("%d collections could not be fetched", res.Unreachable)
	}
	e.mu.Unlock()

	if e.meta != nil {
		if err := e.meta.SaveLastSyncTime(ctx, now); err != nil {
			e.logger.Warn("failed to save last sync time", "error", err)
		}
	}

	e.logger.Info("sync completed",
		"pushed", res.Pushed,
		"failed", res.Failed,
		"blocked", res.Blocked,
		"pulled", res.Pulled,
		"merged", res.Merged,
		"conflicts", res.Conflicts,
		"duration", res.Duration)
	e.bus.Publish(events.SyncCompleted{
		Count:     res.Pushed,
		Failed:    res.Failed,
		Pulled:    res.Pulled,
		Conflicts: res.Conflicts,
		Duration:  res.Duration,
	})
}

// pushable returns the pending documents grouped by entity type. Documents with an open
// conflict wait for a resolution.
func (e *Engine) pushable(res *CycleResult) []*models.Document {
	byType := make(map[models.EntityType][]*models.Document)
	for _, doc := range e.index.ListPending() {
		if doc.HasConflict() {
			res.Blocked++
			continue
		}
		byType[doc.Type] = append(byType[doc.Type], doc)
	}

	var out []*models.Document
	for _, t := range models.EntityTypes() {
		out = append(out, byType[t]...)
	}
	return out
}

// push sends every document independently. An authorization failure aborts the cycle
// before anything is marked synced; any other failure leaves only that document pending.
func (e *Engine) push(ctx context.Context, token string, docs []*models.Document, res *CycleResult) error {
	acked := make([]*models.Document, 0, len(docs))

	for _, doc := range docs {
		err := e.pushOne(ctx, token, doc)
		switch {
		case err == nil:
			acked = append(acked, doc)
		case errors.Is(err, api.ErrUnauthorized):
			return fmt.Errorf("push %s: %w", doc.Key(), err)
		case ctx.Err() != nil:
			e.confirm(acked, res)
			return ctx.Err()
		default:
			res.Failed++
			e.metrics.Failed(doc.Type)
			e.logger.Warn("push failed, document stays pending",
				"entity_type", doc.Type,
				"entity_id", doc.ID,
				"error", err)
		}
	}

	e.confirm(acked, res)
	return nil
}

func (e *Engine) pushOne(ctx context.Context, token string, doc *models.Document) error {
	switch {
	case doc.Deleted && !doc.HasSynced():
		// authority никогда не видел документ
		return nil
	case doc.Deleted:
		err := e.api.Delete(ctx, token, doc.Type, doc.ID)
		if errors.Is(err, api.ErrNotFound) {
			return nil
		}
		return err
	case doc.Recreated:
		// иначе authority сольет списки удаленной версии с новыми полями
		if err := e.api.Delete(ctx, token, doc.Type, doc.ID); err != nil && !errors.Is(err, api.ErrNotFound) {
			return err
		}
		return e.api.Update(ctx, token, doc.Type, doc.ID, doc.Fields)
	case doc.HasSynced():
		return e.api.Update(ctx, token, doc.Type, doc.ID, doc.Fields)
	default:
		return e.api.Create(ctx, token, doc.Type, doc.ID, doc.Fields)
	}
}

func (e *Engine) confirm(acked []*models.Document, res *CycleResult) {
	for _, doc := range acked {
		if doc.Deleted {
			e.store.ConfirmDeleted(doc)
		} else {
			e.store.MarkSynced(doc)
		}
		res.Pushed++
		e.metrics.Pushed(doc.Type)
		e.logger.Debug("document synced", "entity_type", doc.Type, "entity_id", doc.ID)
	}
}

// pull fetches every collection concurrently, then merges type by type.
func (e *Engine) pull(ctx context.Context, token string, res *CycleResult) error {
	types := models.EntityTypes()
	lists := make([][]api.RemoteDocument, len(types))
	fetched := make([]bool, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			docs, err := e.api.List(gctx, token, t)
			switch {
			case err == nil:
				lists[i] = docs
				fetched[i] = true
				return nil
			case errors.Is(err, api.ErrUnauthorized):
				return fmt.Errorf("pull %s: %w", t, err)
			default:
				if gctx.Err() == nil {
					e.logger.Warn("failed to fetch collection", "entity_type", t, "error", err)
				}
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, t := range types {
		if !fetched[i] {
			res.Unreachable++
			continue
		}

		merged := 0
		for _, r := range lists[i] {
			res.Pulled++

			var raised *models.Conflict
			if _, changed := e.store.ApplyRemote(t, r.ID, e.merge(r, &raised)); changed {
				merged++
			}
			if raised != nil {
				res.Conflicts++
				e.metrics.Conflict()
				e.logger.Warn("conflict detected",
					"entity_type", t,
					"entity_id", r.ID,
					"fields", raised.ConflictingFieldNames)
				e.bus.Publish(events.ConflictRaised{Conflict: *raised})
			}
		}

		res.Merged += merged
		e.metrics.Merged(t, merged)
		e.bus.Publish(events.RemoteChanged{Type: t, Count: merged})
	}

	if n := e.store.PurgeTombstones(e.opts.TombstoneTTL); n > 0 {
		e.logger.Info("purged confirmed tombstones", "count", n)
	}
	return nil
}

// merge returns the pull merge decision for one remote record.
//
// A document without unsynced local changes takes the remote state. A pending document keeps
// its local changes: non-conflicting remote changes are folded in and conflicting fields are
// recorded by retaining the remote version. A tombstone is never resurrected by a pull, and a
// document recreated over an unsent tombstone ignores the authority's copy until push replaces it.
func (e *Engine) merge(r api.RemoteDocument, raised **models.Conflict) store.MergeFunc {
	return func(local *models.Document) *models.Document {
		switch {
		case local == nil:
			return e.fromRemote(r)
		case local.Deleted, local.Recreated:
			return nil
		case !models.IsPending(local) && !local.HasConflict():
			if local.Fields.Equal(r.Fields) && local.Base.Equal(r.Fields) {
				return nil
			}
			next := e.fromRemote(r)
			next.CreatedAt = local.CreatedAt
			return next
		}

		if local.Remote != nil && local.Remote.Fields.Equal(r.Fields) {
			// расхождение уже зафиксировано
			return nil
		}

		conflicting := conflict.Detect(local.Base, local.Fields, r.Fields)
		folded := conflict.Fold(local.Base, local.Fields, r.Fields, conflicting)

		next := local
		next.Fields = folded
		if len(conflicting) > 0 {
			next.Remote = &models.RemoteVersion{UpdatedAt: r.UpdatedAt, Fields: r.Fields.Clone()}
			if c, ok := conflict.New(next); ok {
				*raised = &c
			}
			return next
		}

		if local.Remote == nil && folded.Equal(local.Fields) && local.Base.Equal(r.Fields) {
			return nil
		}
		next.Base = r.Fields.Clone()
		next.RemoteUpdatedAt = r.UpdatedAt
		next.Remote = nil
		return next
	}
}

// fromRemote builds a fully synced document from a remote record.
func (e *Engine) fromRemote(r api.RemoteDocument) *models.Document {
	tick := e.clock.Tick()
	created := r.CreatedAt
	if created.IsZero() {
		created = tick
	}
	return &models.Document{
		ID:              r.ID,
		Fields:          r.Fields.Clone(),
		Base:            r.Fields.Clone(),
		CreatedAt:       created,
		UpdatedAt:       tick,
		SyncedAt:        tick,
		RemoteUpdatedAt: r.UpdatedAt,
	}
}

// Conflicts returns every open conflict.
func (e *Engine) Conflicts() []models.Conflict {
	var out []models.Conflict
	for _, doc := range e.store.Conflicted() {
		if c, ok := conflict.New(doc); ok {
			out = append(out, c)
		}
	}
	return out
}

// Resolve applies an explicit resolution. The result becomes a new pending local change.
func (e *Engine) Resolve(entityType models.EntityType, id string, r conflict.Resolution) (*models.Document, error) {
	doc, ok := e.store.Get(entityType, id)
	if !ok {
		return nil, store.ErrNotFound
	}
	if !doc.HasConflict() {
		return nil, store.ErrNoConflict
	}

	fields, err := conflict.Resolve(doc, r)
	if err != nil {
		return nil, err
	}
	return e.store.Resolve(entityType, id, fields)
}

// Status returns the current engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	last, lastErr := e.lastSync, e.lastErr
	e.mu.Unlock()

	s := Status{
		LastSyncTime: last,
		Conflicts:    e.Conflicts(),
		PendingCount: e.index.Count(),
		IsOnline:     e.net.IsOnline(),
		IsSyncing:    e.syncing.Load(),
		Durable:      e.store.Durable(),
	}
	if lastErr != nil {
		s.LastError = lastErr.Error()
	}
	return s
}
