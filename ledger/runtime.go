// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/taleledger/database"
	"github.com/blinklabs-io/taleledger/event"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime executes ledger operations. Each operation declares the records
// and balances it touches, holds exclusive locks on them and runs inside a
// single database transaction that commits fully or not at all.
type Runtime struct {
	db           *database.Database
	logger       *slog.Logger
	clock        Clock
	deposits     DepositLedger
	eventBus     *event.EventBus
	promRegistry prometheus.Registerer
	metrics      *runtimeMetrics
	locks        *lockTable
	registry     recordTypes
	schedule     DepositSchedule
	program      Address
}

type RuntimeOptionFunc func(*Runtime)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.promRegistry = registry
	}
}

// WithClock specifies the time source for operations
func WithClock(clock Clock) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.clock = clock
	}
}

// WithProgramID specifies the key that scopes derived addresses
func WithProgramID(program Address) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.program = program
	}
}

// WithDepositSchedule specifies how storage deposits are priced
func WithDepositSchedule(schedule DepositSchedule) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.schedule = schedule
	}
}

// WithDepositLedger replaces the balance store used for storage deposits
func WithDepositLedger(deposits DepositLedger) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.deposits = deposits
	}
}

// WithEventBus specifies the event bus that receives record events
func WithEventBus(eventBus *event.EventBus) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.eventBus = eventBus
	}
}

func NewRuntime(db *database.Database, opts ...RuntimeOptionFunc) *Runtime {
	r := &Runtime{
		db:       db,
		clock:    SystemClock{},
		deposits: StoredDeposits{},
		schedule: DefaultDepositSchedule(),
		locks:    newLockTable(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r.logger = r.logger.With("component", "ledger")
	r.metrics = newRuntimeMetrics(r.promRegistry)
	return r
}

// ProgramID returns the key that scopes derived addresses
func (r *Runtime) ProgramID() Address {
	return r.program
}

// Clock returns the runtime time source
func (r *Runtime) Clock() Clock {
	return r.clock
}

// Database returns the underlying database
func (r *Runtime) Database() *database.Database {
	return r.db
}

// EventBus returns the configured event bus, which may be nil
func (r *Runtime) EventBus() *event.EventBus {
	return r.eventBus
}

// Logger returns the runtime logger
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// DepositSchedule returns the storage deposit pricing
func (r *Runtime) DepositSchedule() DepositSchedule {
	return r.schedule
}

// Derive returns the derived address for a domain tag and seeds
func (r *Runtime) Derive(domain string, seeds ...[]byte) (Address, error) {
	addr, _, err := DeriveAddress(r.program, domain, seeds...)
	return addr, err
}

// AddressOf returns the derived address of a record
func (r *Runtime) AddressOf(rec Record) (Address, error) {
	return r.Derive(rec.RecordDomain(), rec.RecordSeeds()...)
}

// Execute runs fn as one atomic operation. The operation may only touch the
// records and balances named by keys. Any error rolls back every write.
func (r *Runtime) Execute(
	ctx context.Context,
	signers SignerSet,
	keys []LockKey,
	fn func(*Tx) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release, err := r.locks.acquire(ctx, keys)
	if err != nil {
		return err
	}
	defer release()
	locked := make(map[LockKey]struct{}, len(keys))
	for _, key := range keys {
		locked[key] = struct{}{}
	}
	tx := &Tx{
		ctx:     ctx,
		rt:      r,
		txn:     r.db.Transaction(true),
		signers: signers,
		now:     r.clock.Now(),
		locked:  locked,
	}
	err = tx.txn.Do(func(*database.Txn) error {
		return fn(tx)
	})
	if err != nil {
		if _, ok := KindOf(err); !ok && !errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {
			err = ErrStorage.Wrap(err)
		}
		r.metrics.observeFailure(err)
		r.logger.Debug(
			"operation rejected",
			"error", err,
		)
		return err
	}
	r.metrics.operations.Inc()
	for _, f := range tx.onCommit {
		f()
	}
	return nil
}

// View runs fn against a read-only snapshot. No locks are taken.
func (r *Runtime) View(ctx context.Context, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Tx{
		ctx:      ctx,
		rt:       r,
		txn:      r.db.Transaction(false),
		now:      r.clock.Now(),
		readOnly: true,
	}
	defer tx.txn.Release()
	return fn(tx)
}

// Fund credits owner's deposit balance. It backs the local faucet used by
// operators and tests.
func (r *Runtime) Fund(ctx context.Context, owner Address, amount uint64) error {
	return r.Execute(
		ctx,
		NewSignerSet(),
		[]LockKey{BalanceLock(owner)},
		func(tx *Tx) error {
			return tx.Credit(owner, amount)
		},
	)
}

// BalanceOf returns owner's deposit balance
func (r *Runtime) BalanceOf(ctx context.Context, owner Address) (uint64, error) {
	var ret uint64
	err := r.View(ctx, func(tx *Tx) error {
		var err error
		ret, err = tx.Balance(owner)
		return err
	})
	return ret, err
}
