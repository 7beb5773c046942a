// Package journal is the append-only record of one account's completed
// fills.
package journal

import (
	"main/internal/errors"
	"main/internal/model"
	"main/internal/model/enum"
)

// Journal appends transactions in arrival order. Entries are never
// mutated after append. Not safe for concurrent use; the engine runs it
// on the account's mailbox.
type Journal struct {
	account string
	entries []model.Transaction
}

// New creates an empty journal.
func New(account string) *Journal {
	return &Journal{account: account}
}

// Account returns the owning account id.
func (j *Journal) Account() string {
	return j.account
}

// Append records a transaction snapshot and assigns its account-local
// sequence number.
func (j *Journal) Append(tx model.Order) (model.Transaction, error) {
	if tx.Operation.Status != enum.StatusTransaction {
		return model.Transaction{}, errors.New("journal entry is not a transaction: " + tx.Operation.Status.String())
	}
	entry := model.Transaction{
		Order: tx,
		Seq:   uint64(len(j.entries) + 1),
	}
	j.entries = append(j.entries, entry)
	return entry, nil
}

// All returns the transactions in append order.
func (j *Journal) All() []model.Transaction {
	out := make([]model.Transaction, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of recorded transactions.
func (j *Journal) Len() int {
	return len(j.entries)
}
