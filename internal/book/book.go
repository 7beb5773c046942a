// Package book owns one account's live pending orders: request
// validation, compound-order composition and the price tap that decides
// which orders fire.
package book

import (
	"github.com/google/uuid"

	"main/internal/model"
	"main/internal/model/enum"
)

// QuoteSource resolves the latest known quote for an instrument. Used
// to compute open prices when composing group legs.
type QuoteSource interface {
	Latest(name string) (model.Point, bool)
}

// Book holds the live pending orders of one account in insertion order.
// Not safe for concurrent use; the engine runs it on the account's
// mailbox.
type Book struct {
	account string
	quotes  QuoteSource
	ids     []string
	orders  map[string]model.Order
}

// New creates an empty book. quotes may be nil when open-price
// computation is not needed.
func New(account string, quotes QuoteSource) *Book {
	return &Book{
		account: account,
		quotes:  quotes,
		orders:  make(map[string]model.Order),
	}
}

// Account returns the owning account id.
func (b *Book) Account() string {
	return b.account
}

// Store validates and persists an order request. A Group request
// expands into its Side legs merged with the group defaults; Brace
// children stay attached to their parent and only become live orders
// when the parent fills. If any composed leaf fails validation nothing
// is persisted and every leaf error is returned.
func (b *Book) Store(req model.Order) []model.OrderResponse {
	leaves := b.compose(req)

	responses := make([]model.OrderResponse, 0, len(leaves))
	failed := false
	for _, leaf := range leaves {
		resp := model.OrderResponse{Order: leaf}
		for _, err := range Validate(leaf) {
			resp.Errors = append(resp.Errors, err.Error())
		}
		if !resp.OK() {
			failed = true
		}
		responses = append(responses, resp)
	}
	if failed {
		return responses
	}

	for i, leaf := range leaves {
		persisted := b.persist(leaf)
		responses[i].Order = persisted
	}
	return responses
}

// Tap re-evaluates every pending order against the quote. Fired orders
// are removed from the book before their fill is materialized, so
// re-delivering the same quote cannot double-fill. Orders are scanned
// once, in insertion order.
func (b *Book) Tap(p model.Point) []model.Order {
	ids := make([]string, len(b.ids))
	copy(ids, b.ids)

	var fills []model.Order
	for _, id := range ids {
		ord, ok := b.orders[id]
		if !ok {
			continue
		}
		updated, fire := Executable(ord, p)
		if !fire {
			if updated.Type != ord.Type {
				b.orders[id] = updated
			}
			continue
		}
		b.delete(id)
		fills = append(fills, Fill(updated, p))
	}
	return fills
}

// Remove deletes an order by id. Removing an absent id is a no-op.
func (b *Book) Remove(id string) model.DescriptorResponse {
	b.delete(id)
	return model.DescriptorResponse{ID: id}
}

// Clear removes every pending order.
func (b *Book) Clear() []model.DescriptorResponse {
	out := make([]model.DescriptorResponse, 0, len(b.ids))
	for _, id := range b.ids {
		delete(b.orders, id)
		out = append(out, model.DescriptorResponse{ID: id})
	}
	b.ids = b.ids[:0]
	return out
}

// Get returns the stored snapshot of one order.
func (b *Book) Get(id string) (model.Order, bool) {
	ord, ok := b.orders[id]
	return ord, ok
}

// Orders returns the pending orders in insertion order.
func (b *Book) Orders() []model.Order {
	out := make([]model.Order, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.orders[id])
	}
	return out
}

// Len returns the number of live pending orders.
func (b *Book) Len() int {
	return len(b.ids)
}

func (b *Book) compose(req model.Order) []model.Order {
	req.Account = b.account

	if req.Instruction != enum.InstructionGroup {
		return []model.Order{b.prepare(req)}
	}

	var leaves []model.Order
	for _, child := range req.Sides() {
		leaves = append(leaves, b.prepare(b.merge(child, req)))
	}
	// A group that itself carries an amount is one more leaf; its Side
	// children are already expanded above.
	if req.Amount.IsPositive() {
		own := req
		own.Orders = req.Braces()
		leaves = append(leaves, b.prepare(own))
	}
	return leaves
}

// merge fills a group leg's unset fields from the group defaults.
func (b *Book) merge(child, group model.Order) model.Order {
	child.Account = group.Account
	if !child.Type.IsAvailable() {
		child.Type = group.Type
	}
	if !child.TimeInForce.IsAvailable() {
		child.TimeInForce = group.TimeInForce
	}
	if child.Price.IsZero() && b.quotes != nil {
		if quote, ok := b.quotes.Latest(child.Instrument); ok {
			if child.Side == enum.SideShort {
				child.Price = quote.Bid
			} else {
				child.Price = quote.Ask
			}
		}
	}
	return child
}

func (b *Book) prepare(o model.Order) model.Order {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Operation.Status = enum.StatusPending
	return o
}

func (b *Book) persist(o model.Order) model.Order {
	if _, ok := b.orders[o.ID]; !ok {
		b.ids = append(b.ids, o.ID)
	}
	b.orders[o.ID] = o
	return o
}

func (b *Book) delete(id string) {
	if _, ok := b.orders[id]; !ok {
		return
	}
	delete(b.orders, id)
	for i, existing := range b.ids {
		if existing == id {
			b.ids = append(b.ids[:i], b.ids[i+1:]...)
			return
		}
	}
}
