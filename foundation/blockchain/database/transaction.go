package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powledger/foundation/validate"
	"github.com/google/uuid"
)

// NewTx is the transaction information provided by a client before it is
// admitted to the mempool.
type NewTx struct {
	ID     string `json:"id" validate:"omitempty,uuid"`
	From   string `json:"from" validate:"required,eth_addr"`
	To     string `json:"to" validate:"required,eth_addr"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

// Transaction is the transactional information between two parties. A
// transaction is immutable once created.
type Transaction struct {
	ID        string    `json:"id"`
	From      AccountID `json:"from"`
	To        AccountID `json:"to"`
	Amount    uint64    `json:"amount"`
	TimeStamp int64     `json:"timestamp"` // Unix milliseconds the transaction was received.
}

// NewTransaction validates the client information and constructs a new
// transaction. A new id is generated when one isn't provided.
func NewTransaction(nt NewTx, now time.Time) (Transaction, error) {
	if err := validate.Check(nt); err != nil {
		return Transaction{}, NewValidationError("", err)
	}

	from, err := ToAccountID(nt.From)
	if err != nil {
		return Transaction{}, NewValidationError("from", err)
	}

	to, err := ToAccountID(nt.To)
	if err != nil {
		return Transaction{}, NewValidationError("to", err)
	}

	if from == CoinbaseAccountID {
		return Transaction{}, NewValidationError("from", errors.New("the coinbase account can't send transactions"))
	}

	if from == to {
		return Transaction{}, NewValidationError("to", fmt.Errorf("sending money to yourself, from %s, to %s", from, to))
	}

	id := nt.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx := Transaction{
		ID:        id,
		From:      from,
		To:        to,
		Amount:    uint64(nt.Amount),
		TimeStamp: now.UTC().UnixMilli(),
	}

	return tx, nil
}

// NewCoinbaseTx constructs the reward transaction for the block at the
// specified index. It has no inputs and credits the beneficiary.
func NewCoinbaseTx(index uint64, beneficiary AccountID, reward uint64, timeStamp int64) Transaction {
	return Transaction{
		ID:        fmt.Sprintf("coinbase:%d", index),
		From:      CoinbaseAccountID,
		To:        beneficiary,
		Amount:    reward,
		TimeStamp: timeStamp,
	}
}

// IsCoinbase reports if the transaction was minted by the ledger.
func (tx Transaction) IsCoinbase() bool {
	return tx.From == CoinbaseAccountID
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%s->%s:%d", tx.ID, tx.From, tx.To, tx.Amount)
}
