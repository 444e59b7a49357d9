// Package autosave debounces persistence of an edit snapshot.
//
// A Controller watches a snapshot of editable data. Every structural change
// restarts a debounce timer; when the timer fires the save function runs once.
// Only one save may be outstanding at a time: requests that arrive while a save
// is in flight are dropped, and any change made during the save is picked up
// by a follow-up debounce once the save settles.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
)

var errSaveFailed = errors.New("save reported failure")

// DefaultDebounce is the quiet period before a change is persisted.
const DefaultDebounce = 800 * time.Millisecond

// SaveFunc persists data and reports success.
type SaveFunc[T any] func(ctx context.Context, data T) (bool, error)

type timer interface {
	Stop() bool
}

type scheduleFunc func(d time.Duration, f func()) timer

func afterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

type options struct {
	debounce time.Duration
	enabled  bool
	logger   *zap.Logger
	now      func() time.Time
	ctx      context.Context
	equal    any
	onStatus func(Status)
	schedule scheduleFunc
}

// Option configures a Controller.
type Option func(*options)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithEnabled toggles timer-driven saves. Flush works either way.
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// WithLogger sets the logger used for save failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp LastSavedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithContext sets the context passed to timer-driven saves.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithEqual replaces the structural equality check. T must match the
// controller's type; a mismatched function is ignored with a warning.
func WithEqual[T any](fn func(a, b T) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.equal = fn
		}
	}
}

// WithStatusObserver registers fn to receive every status the controller
// moves into, in transition order. fn is called without the controller lock
// held but must not call back into the controller.
func WithStatusObserver(fn func(Status)) Option {
	return func(o *options) { o.onStatus = fn }
}

// Controller owns one editing session's snapshot and save status.
type Controller[T any] struct {
	mu sync.Mutex
	// notifyMu orders observer batches; it is taken before mu is released.
	notifyMu sync.Mutex

	save     SaveFunc[T]
	equal    func(a, b T) bool
	debounce time.Duration
	enabled  bool
	ctx      context.Context
	logger   *zap.Logger
	now      func() time.Time
	schedule scheduleFunc
	onStatus func(Status)

	data        T
	status      Status
	lastSavedAt time.Time
	dirty       bool
	inFlight    bool
	closed      bool

	timer    timer
	timerGen uint64
	// settled is closed when the in-flight save finishes.
	settled chan struct{}

	pending []Status
}

// New starts a session with initial as the baseline. The baseline is never
// saved on its own.
func New[T any](initial T, save SaveFunc[T], opts ...Option) *Controller[T] {
	o := options{
		debounce: DefaultDebounce,
		enabled:  true,
		logger:   zap.NewNop(),
		now:      time.Now,
		ctx:      context.Background(),
		schedule: afterFunc,
	}
	for _, opt := range opts {
		opt(&o)
	}

	equal := structuralEqual[T]
	if o.equal != nil {
		if fn, ok := o.equal.(func(a, b T) bool); ok {
			equal = fn
		} else {
			o.logger.Warn("Ignoring equality function of the wrong type",
				zap.String("got", fmt.Sprintf("%T", o.equal)),
				zap.String("want", fmt.Sprintf("%T", equal)),
			)
		}
	}

	return &Controller[T]{
		save:     save,
		equal:    equal,
		debounce: o.debounce,
		enabled:  o.enabled,
		ctx:      o.ctx,
		logger:   o.logger,
		now:      o.now,
		schedule: o.schedule,
		onStatus: o.onStatus,
		data:     initial,
		status:   StatusIdle,
	}
}

// Update records a new snapshot. Structurally equal snapshots are ignored.
func (c *Controller[T]) Update(data T) {
	c.mu.Lock()
	if c.closed || c.same(c.data, data) {
		c.mu.Unlock()
		return
	}

	c.data = data
	c.dirty = true
	c.cancelTimerLocked()

	if c.status == StatusSaved || c.status == StatusError {
		c.transitionLocked(StatusIdle)
	}
	// An in-flight save reschedules on completion.
	if c.enabled && !c.inFlight {
		c.scheduleLocked()
	}
	c.unlockAndNotify()
}

// Flush cancels any pending timer and saves now, waiting for the result.
// If a save is already in flight the request is dropped and StatusSaving is
// returned.
func (c *Controller[T]) Flush(ctx context.Context) Status {
	if ctx == nil {
		ctx = c.ctx
	}

	c.mu.Lock()
	if c.closed {
		status := c.status
		c.mu.Unlock()
		return status
	}
	c.cancelTimerLocked()
	return c.runLocked(ctx)
}

// Wait blocks until no save is in flight or ctx is done.
func (c *Controller[T]) Wait(ctx context.Context) error {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()
	if settled == nil {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session. A pending timer is cancelled so no save fires
// afterwards; a save already in flight is left to settle.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.cancelTimerLocked()
}

// SetEnabled toggles timer-driven saves.
func (c *Controller[T]) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = enabled
	if !enabled {
		c.cancelTimerLocked()
		return
	}
	if c.dirty && c.timer == nil && !c.inFlight && !c.closed {
		c.scheduleLocked()
	}
}

// Status returns the current status.
func (c *Controller[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastSavedAt returns when the last successful save finished.
func (c *Controller[T]) LastSavedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSavedAt, !c.lastSavedAt.IsZero()
}

// Snapshot returns the latest recorded data.
func (c *Controller[T]) Snapshot() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Dirty reports whether the latest snapshot has not been handed to a save yet.
func (c *Controller[T]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Closed reports whether Close has been called.
func (c *Controller[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller[T]) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.runLocked(c.ctx)
}

// runLocked performs a single save unless one is already in flight. It must
// be called with c.mu held and releases it.
func (c *Controller[T]) runLocked(ctx context.Context) Status {
	if c.inFlight {
		status := c.status
		c.mu.Unlock()
		return status
	}
	c.inFlight = true
	c.settled = make(chan struct{})
	c.dirty = false
	data := c.data
	c.transitionLocked(StatusSaving)
	c.unlockAndNotify()

	ok, err := c.invoke(ctx, data)

	c.mu.Lock()
	c.inFlight = false
	close(c.settled)
	c.settled = nil
	if ok && err == nil {
		c.lastSavedAt = c.now()
		c.transitionLocked(StatusSaved)
	} else {
		if err == nil {
			err = errSaveFailed
		}
		c.logger.Error("Autosave failed", zap.Error(err))
		c.transitionLocked(StatusError)
	}

	status := c.status
	if c.dirty && !c.closed {
		c.transitionLocked(StatusIdle)
		if c.enabled {
			c.scheduleLocked()
		}
	}
	c.unlockAndNotify()
	return status
}

func (c *Controller[T]) invoke(ctx context.Context, data T) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("save panicked: %v", r)
		}
	}()
	return c.save(ctx, data)
}

var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// structuralEqual compares unexported fields too. Types cmp cannot walk fall
// back to reflect.DeepEqual.
func structuralEqual[T any](a, b T) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return cmp.Equal(a, b, cmpopts.EquateEmpty(), exportAll)
}

// same reports whether two snapshots are equal. A panicking comparison counts
// as a change so the lock is never left held.
func (c *Controller[T]) same(a, b T) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Autosave equality check panicked", zap.Any("panic", r))
			eq = false
		}
	}()
	return c.equal(a, b)
}

func (c *Controller[T]) scheduleLocked() {
	c.timerGen++
	gen := c.timerGen
	c.timer = c.schedule(c.debounce, func() { c.fire(gen) })
}

func (c *Controller[T]) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// Invalidates a callback that already fired and is waiting on the lock.
	c.timerGen++
}

func (c *Controller[T]) transitionLocked(next Status) {
	if !c.status.CanTransition(next) {
		c.logger.DPanic("Illegal autosave transition",
			zap.Stringer("from", c.status),
			zap.Stringer("to", next),
		)
		return
	}
	c.status = next
	if c.onStatus != nil {
		c.pending = append(c.pending, next)
	}
}

func (c *Controller[T]) unlockAndNotify() {
	pending := c.pending
	c.pending = nil
	onStatus := c.onStatus
	if len(pending) == 0 {
		c.mu.Unlock()
		return
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, s := range pending {
		onStatus(s)
	}
}
