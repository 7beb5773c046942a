package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/actor"
	"main/internal/book"
	"main/internal/bus"
	"main/internal/errors"
	"main/internal/journal"
	"main/internal/ledger"
	"main/internal/market"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/schema"
)

// AccountSpec declares one account and its trading terms.
type AccountSpec struct {
	ID         string
	Leverage   decimal.Decimal
	Commission decimal.Decimal
}

// Store persists completed transactions and position updates. Failures
// are logged, never propagated into netting.
type Store interface {
	SaveTransaction(ctx context.Context, account string, tx model.Transaction) error
	SavePosition(ctx context.Context, account string, pos model.Position) error
}

// AccountSnapshot is the dashboard view of one account.
type AccountSnapshot struct {
	Account      string              `json:"account"`
	Orders       []model.Order       `json:"orders"`
	Positions    []model.Position    `json:"positions"`
	Transactions []model.Transaction `json:"transactions"`
}

type accountEntities struct {
	book    *book.Book
	ledger  *ledger.Ledger
	journal *journal.Journal
}

// Engine routes ticks and order requests to the per-key entities and
// publishes the resulting events. All entity state is touched only
// inside the owning mailbox's turn.
type Engine struct {
	system  *actor.System
	bus     *bus.Bus
	metrics *obs.Metrics
	store   Store
	seq     uint64

	mu          sync.RWMutex
	aggregators map[string]*market.Aggregator
	accounts    map[string]*accountEntities
	order       []string

	quotes quoteCache
}

// quoteCache is the engine's read-side copy of the latest point per
// instrument, safe to consult from any account's turn.
type quoteCache struct {
	mu sync.RWMutex
	m  map[string]model.Point
}

func (q *quoteCache) Latest(name string) (model.Point, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	p, ok := q.m[name]
	return p, ok
}

func (q *quoteCache) set(p model.Point) {
	q.mu.Lock()
	q.m[p.Name] = p
	q.mu.Unlock()
}

// Option configures the engine.
type Option func(*Engine)

// WithStore enables write-through persistence.
func WithStore(store Store) Option {
	return func(e *Engine) { e.store = store }
}

// NewEngine creates an engine wired to the bus.
func NewEngine(system *actor.System, eventBus *bus.Bus, metrics *obs.Metrics, opts ...Option) *Engine {
	e := &Engine{
		system:      system,
		bus:         eventBus,
		metrics:     metrics,
		aggregators: make(map[string]*market.Aggregator),
		accounts:    make(map[string]*accountEntities),
		quotes:      quoteCache{m: make(map[string]model.Point)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterAccount creates the account's book, ledger and journal.
// Registering an existing id is a no-op.
func (e *Engine) RegisterAccount(spec AccountSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.accounts[spec.ID]; ok {
		return
	}
	e.accounts[spec.ID] = &accountEntities{
		book: book.New(spec.ID, &e.quotes),
		ledger: ledger.New(spec.ID, ledger.Config{
			Leverage:   spec.Leverage,
			Commission: spec.Commission,
		}),
		journal: journal.New(spec.ID),
	}
	e.order = append(e.order, spec.ID)
}

// Tick ingests one raw quote: aggregator store, then per account a book
// tap (with fill netting) and a ledger tap, then the point broadcast.
func (e *Engine) Tick(ctx context.Context, tick model.Tick) (model.Point, error) {
	started := time.Now()

	agg := e.aggregator(tick.Name)
	var (
		point model.Point
		err   error
	)
	doErr := e.system.Do(ctx, actor.Key{Instrument: tick.Name}, func() {
		point, err = agg.Store(tick)
	})
	if doErr != nil {
		return model.Point{}, doErr
	}
	if err != nil {
		e.metrics.IncRejectedTick()
		return model.Point{}, err
	}

	e.quotes.set(point)
	e.metrics.IncEvent(schema.EventTick)
	e.publish(bus.TopicInstrument(point.Name), schema.EventPoint, point.Time, point)

	for _, id := range e.accountIDs() {
		if err := e.tapAccount(ctx, id, point); err != nil {
			return model.Point{}, err
		}
	}

	e.metrics.ObserveTick(time.Since(started))
	e.metrics.SetBusDrops(e.bus.Dropped())
	return point, nil
}

// PlaceOrder validates, composes and persists an order request for the
// account, then immediately re-evaluates the book against the latest
// known quotes so market orders fill without waiting for the next tick.
func (e *Engine) PlaceOrder(ctx context.Context, account string, req model.Order) ([]model.OrderResponse, error) {
	started := time.Now()
	acc := e.account(account)

	var responses []model.OrderResponse
	err := e.system.Do(ctx, actor.AccountKey(account), func() {
		responses = acc.book.Store(req)
		now := time.Now()
		for _, resp := range responses {
			if resp.OK() {
				e.publish(bus.TopicAccount(account), schema.EventOrderUpdate, now, resp.Order)
			}
		}
		for _, name := range leafInstruments(responses) {
			quote, ok := e.quotes.Latest(name)
			if !ok {
				continue
			}
			e.applyFills(ctx, acc, acc.book.Tap(quote))
		}
	})
	if err != nil {
		return nil, err
	}

	e.metrics.IncEvent(schema.EventOrderRequest)
	e.metrics.ObserveOrder(time.Since(started))
	return responses, nil
}

// CancelOrder removes a pending order; absent ids are a no-op.
func (e *Engine) CancelOrder(ctx context.Context, account, id string) (model.DescriptorResponse, error) {
	acc := e.account(account)
	var resp model.DescriptorResponse
	err := e.system.Do(ctx, actor.AccountKey(account), func() {
		_, live := acc.book.Get(id)
		resp = acc.book.Remove(id)
		if live {
			e.publish(bus.TopicAccount(account), schema.EventOrderUpdate, time.Now(), resp)
		}
	})
	return resp, err
}

// ClearOrders removes every pending order of the account.
func (e *Engine) ClearOrders(ctx context.Context, account string) ([]model.DescriptorResponse, error) {
	acc := e.account(account)
	var resp []model.DescriptorResponse
	err := e.system.Do(ctx, actor.AccountKey(account), func() {
		resp = acc.book.Clear()
		now := time.Now()
		for _, removed := range resp {
			e.publish(bus.TopicAccount(account), schema.EventOrderUpdate, now, removed)
		}
	})
	return resp, err
}

// OrderStatus reports whether an order is still live for the account:
// pending in the book or backing the instrument's open position.
func (e *Engine) OrderStatus(ctx context.Context, account, id string) (model.StatusResponse, error) {
	acc := e.account(account)
	var resp model.StatusResponse
	err := e.system.Do(ctx, actor.AccountKey(account), func() {
		if _, ok := acc.book.Get(id); ok {
			resp.State = model.LifecycleActive
			return
		}
		for _, pos := range acc.ledger.Positions() {
			if pos.Order.ID == id {
				resp.State = model.LifecycleActive
				return
			}
		}
	})
	return resp, err
}

// Snapshot returns the account's pending orders, open positions and
// transaction history as one consistent view.
func (e *Engine) Snapshot(ctx context.Context, account string) (AccountSnapshot, error) {
	acc := e.account(account)
	snap := AccountSnapshot{Account: account}
	err := e.system.Do(ctx, actor.AccountKey(account), func() {
		snap.Orders = acc.book.Orders()
		snap.Positions = acc.ledger.Positions()
		snap.Transactions = acc.journal.All()
	})
	return snap, err
}

// Prices returns the raw tick history of an instrument.
func (e *Engine) Prices(ctx context.Context, instrument string) ([]model.Point, error) {
	agg := e.aggregator(instrument)
	var out []model.Point
	err := e.system.Do(ctx, actor.Key{Instrument: instrument}, func() {
		out = agg.Prices()
	})
	return out, err
}

// PriceGroups returns the bar history of an instrument.
func (e *Engine) PriceGroups(ctx context.Context, instrument string) ([]model.Bar, error) {
	agg := e.aggregator(instrument)
	var out []model.Bar
	err := e.system.Do(ctx, actor.Key{Instrument: instrument}, func() {
		out = agg.PriceGroups()
	})
	return out, err
}

// tapAccount runs one account's turn for a tick: trigger evaluation,
// netting of any fills, then the balance recompute.
func (e *Engine) tapAccount(ctx context.Context, id string, point model.Point) error {
	acc := e.account(id)
	return e.system.Do(ctx, actor.AccountKey(id), func() {
		e.applyFills(ctx, acc, acc.book.Tap(point))
		if pos, ok := acc.ledger.Tap(point); ok {
			e.metrics.IncEvent(schema.EventPositionUpdate)
			e.publish(bus.TopicAccount(id), schema.EventPositionUpdate, point.Time, pos)
			e.persistPosition(ctx, id, pos)
		}
	})
}

// applyFills nets fills into the ledger and applies the resulting
// bracket saga to the book. Runs inside the account's turn, so every
// cross-entity effect is confirmed before the turn completes.
func (e *Engine) applyFills(ctx context.Context, acc *accountEntities, fills []model.Order) {
	for _, fill := range fills {
		e.metrics.IncEvent(schema.EventOrderFill)
		res, err := acc.ledger.Store(fill)
		if err != nil {
			logs.Errorf("net fill %s, err: %+v", fill.ID, err)
			continue
		}

		account := acc.ledger.Account()
		if res.Transaction != nil {
			entry, err := acc.journal.Append(*res.Transaction)
			if err != nil {
				logs.Errorf("journal transaction for order %s, err: %+v", fill.ID, err)
			} else {
				e.metrics.IncEvent(schema.EventTransaction)
				e.publish(bus.TopicAccount(account), schema.EventTransaction, entry.Order.Operation.Time, entry)
				e.persistTransaction(ctx, account, entry)
			}
		}

		for _, id := range res.BraceRemove {
			acc.book.Remove(id)
		}
		for _, brace := range res.BraceCreate {
			for _, resp := range acc.book.Store(brace) {
				if !resp.OK() {
					// Compensate by dropping the partial bracket rather
					// than leaving it live against a vanished parent.
					acc.book.Remove(resp.Order.ID)
					logs.Warnf("bracket %s rejected: %v", resp.Order.ID, resp.Errors)
				}
			}
		}

		if !res.Closed {
			e.publish(bus.TopicAccount(account), schema.EventPositionUpdate, fill.Operation.Time, res.Position)
			e.persistPosition(ctx, account, res.Position)
		}
	}
}

func (e *Engine) persistTransaction(ctx context.Context, account string, tx model.Transaction) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveTransaction(ctx, account, tx); err != nil {
		logs.Errorf("persist transaction %d for %s, err: %+v", tx.Seq, account, err)
	}
}

func (e *Engine) persistPosition(ctx context.Context, account string, pos model.Position) {
	if e.store == nil {
		return
	}
	if err := e.store.SavePosition(ctx, account, pos); err != nil {
		logs.Errorf("persist position %s for %s, err: %+v", pos.Order.Instrument, account, err)
	}
}

func (e *Engine) publish(topic string, eventType schema.EventType, at time.Time, payload any) {
	header := schema.NewHeader(eventType, atomic.AddUint64(&e.seq, 1), at.UnixNano(), time.Now().UnixNano())
	if err := e.bus.Publish(topic, bus.Event{Header: header, Payload: payload}); err != nil {
		if !errors.Is(err, bus.ErrBusClosed) {
			logs.Errorf("publish %s, err: %+v", eventType, err)
		}
	}
}

func (e *Engine) aggregator(name string) *market.Aggregator {
	e.mu.RLock()
	agg, ok := e.aggregators[name]
	e.mu.RUnlock()
	if ok {
		return agg
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if agg, ok = e.aggregators[name]; ok {
		return agg
	}
	agg = market.NewAggregator(name)
	e.aggregators[name] = agg
	return agg
}

// account resolves the entities for an id, creating them with default
// terms when the account was never registered explicitly.
func (e *Engine) account(id string) *accountEntities {
	e.mu.RLock()
	acc, ok := e.accounts[id]
	e.mu.RUnlock()
	if ok {
		return acc
	}
	e.RegisterAccount(AccountSpec{ID: id})
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accounts[id]
}

func (e *Engine) accountIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

func leafInstruments(responses []model.OrderResponse) []string {
	seen := make(map[string]struct{}, len(responses))
	var out []string
	for _, resp := range responses {
		if !resp.OK() {
			continue
		}
		name := resp.Order.Instrument
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
