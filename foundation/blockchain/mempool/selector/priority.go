package selector

import (
	"sort"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// prioritySelect returns transactions with the largest amount while
// respecting the arrival order for each sender.
var prioritySelect = func(transactions []database.Transaction, howMany int) []database.Transaction {
	if howMany < 0 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	/*
		Arrival: Bill:1 (50), Pavl:1 (75), Bill:2 (250), Edua:1 (100), Pavl:2 (200)
	*/

	// Group the transactions by sender keeping the arrival order inside
	// each group and the order senders were first seen.
	var senders []database.AccountID
	m := make(map[database.AccountID][]database.Transaction)
	for _, tx := range transactions {
		if _, exists := m[tx.From]; !exists {
			senders = append(senders, tx.From)
		}
		m[tx.From] = append(m[tx.From], tx)
	}

	/*
		Bill: {1, 50}, {2, 250}
		Pavl: {1, 75}, {2, 200}
		Edua: {1, 100}
	*/

	// Pick the first transaction in the slice for each sender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]database.Transaction
	for {
		var row []database.Transaction
		for _, sender := range senders {
			if len(m[sender]) > 0 {
				row = append(row, m[sender][0])
				m[sender] = m[sender][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: Edua:1 (100), Pavl:1 (75), Bill:1 (50)
		1: Bill:2 (250), Pavl:2 (200)
	*/

	// Sort each row by amount. Then try to select the number of requested
	// transactions. Keep pulling transactions from each row until the amount
	// is fulfilled or there are no more transactions.
	final := []database.Transaction{}
done:
	for _, row := range rows {
		sort.Stable(byAmount(row))

		need := howMany - len(final)
		if len(row) >= need {
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	return final
}
