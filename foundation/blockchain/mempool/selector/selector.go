// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO     = "fifo"
	StrategyPriority = "priority"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:     fifoSelect,
	StrategyPriority: prioritySelect,
}

// Func defines a function that takes the mempool transactions in the order
// they arrived and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST keep each sender's transactions in
// arrival order. Receiving -1 for howMany must return all the transactions
// in the strategies ordering.
type Func func(transactions []database.Transaction, howMany int) []database.Transaction

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// Strategies returns the names of the supported strategies.
func Strategies() []string {
	return []string{StrategyFIFO, StrategyPriority}
}

// =============================================================================

// fifoSelect returns the oldest transactions first.
var fifoSelect = func(transactions []database.Transaction, howMany int) []database.Transaction {
	if howMany < 0 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	final := make([]database.Transaction, howMany)
	copy(final, transactions[:howMany])

	return final
}

// =============================================================================

// byAmount provides sorting support by the transaction amount value.
type byAmount []database.Transaction

// Len returns the number of transactions in the list.
func (ba byAmount) Len() int {
	return len(ba)
}

// Less helps to sort the list by amount in decending order to pick the
// transactions that move the most value.
func (ba byAmount) Less(i, j int) bool {
	return ba[i].Amount > ba[j].Amount
}

// Swap moves transactions in the order of the amount value.
func (ba byAmount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
