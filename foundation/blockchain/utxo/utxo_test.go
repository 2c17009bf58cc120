package utxo_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/utxo"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pavel   = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	kennedy = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	bill    = database.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
	miner   = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
)

var date = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func tx(id string, from, to database.AccountID, amount uint64) database.Transaction {
	return database.Transaction{ID: id, From: from, To: to, Amount: amount}
}

// chain builds blocks without proof of work since the set only cares about
// the transactions.
func chain() []database.Block {
	genesis := database.NewGenesisBlock(date, map[database.AccountID]uint64{pavel: 1000, kennedy: 100}, nil)

	b1 := database.NewCandidate(genesis, []database.Transaction{
		database.NewCoinbaseTx(1, miner, 700, 0),
		tx("t1", pavel, bill, 300),
		tx("t2", kennedy, bill, 100),
	}, date, 1, miner)
	b1.Hash = database.HashBlock(b1)

	b2 := database.NewCandidate(b1, []database.Transaction{
		database.NewCoinbaseTx(2, miner, 700, 0),
		tx("t3", pavel, kennedy, 650),
		tx("t4", bill, pavel, 400),
	}, date, 1, miner)
	b2.Hash = database.HashBlock(b2)

	return []database.Block{genesis, b1, b2}
}

func TestApplyBlock(t *testing.T) {
	t.Log("Given the need to apply blocks to the utxo set.")
	{
		blocks := chain()

		set := utxo.New()
		for _, block := range blocks {
			if err := set.ApplyBlock(block); err != nil {
				t.Fatalf("\t%s\tShould be able to apply block %d: %v", failed, block.Index, err)
			}
		}

		type table struct {
			account database.AccountID
			balance uint64
		}

		tt := []table{
			{account: pavel, balance: 1000 - 300 - 650 + 400},
			{account: kennedy, balance: 100 - 100 + 650},
			{account: bill, balance: 300 + 100 - 400},
			{account: miner, balance: 1400},
		}

		t.Logf("\tTest 0:\tWhen checking balances after two blocks.")
		{
			for _, tst := range tt {
				if got := set.TotalValueByAddress(tst.account); got != tst.balance {
					t.Fatalf("\t%s\tTest 0:\tShould get a balance of %d for %s, got %d.", failed, tst.balance, tst.account, got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould get the right balance for every account.", success)
		}

		t.Logf("\tTest 1:\tWhen a transaction spends part of an output.")
		{
			change := false
			for _, u := range set.FindByAddress(pavel) {
				if u.ID == database.UTXOID("t1", 1) {
					change = true
					if u.Amount != 700 || !u.Spent {
						t.Fatalf("\t%s\tTest 1:\tShould have a spent change output of 700: %+v", failed, u)
					}
				}
			}
			if !change {
				t.Fatalf("\t%s\tTest 1:\tShould have created a change output.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould create a change output back to the sender.", success)

			for _, u := range set.FindUnspentByAddress(pavel) {
				if u.Spent {
					t.Fatalf("\t%s\tTest 1:\tShould only return unspent outputs.", failed)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould only return unspent outputs.", success)
		}

		t.Logf("\tTest 2:\tWhen the account has never received anything.")
		{
			if got := set.TotalValueByAddress(database.CoinbaseAccountID); got != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould get a zero balance, got %d.", failed, got)
			}
			if len(set.FindByAddress("0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9")) != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould get no outputs.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould get a zero balance and no outputs.", success)
		}
	}
}

func TestApplyBlockAtomic(t *testing.T) {
	t.Log("Given the need to never partially apply a block.")
	{
		t.Logf("\tTest 0:\tWhen the last transaction can't be funded.")
		{
			blocks := chain()

			set, err := utxo.Replay(blocks[:1])
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to apply genesis: %v", failed, err)
			}
			before := set.StateHash()

			bad := database.NewCandidate(blocks[0], []database.Transaction{
				database.NewCoinbaseTx(1, miner, 700, 0),
				tx("t1", pavel, bill, 300),
				tx("t2", kennedy, bill, 101),
			}, date, 1, miner)

			err = set.ApplyBlock(bad)
			if !errors.Is(err, utxo.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrInsufficientFunds, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrInsufficientFunds.", success)

			if set.StateHash() != before {
				t.Fatalf("\t%s\tTest 0:\tShould leave the set unchanged.", failed)
			}
			if set.TotalValueByAddress(pavel) != 1000 || set.TotalValueByAddress(bill) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould not apply the funded transaction either.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the set unchanged.", success)
		}

		t.Logf("\tTest 1:\tWhen a transaction id is applied twice.")
		{
			blocks := chain()

			set, _ := utxo.Replay(blocks[:2])
			before := set.StateHash()

			if err := set.ApplyTransaction(tx("t1", pavel, bill, 1), ""); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject the repeated outputs.", failed)
			}
			if set.StateHash() != before {
				t.Fatalf("\t%s\tTest 1:\tShould leave the set unchanged.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the repeated outputs and leave the set unchanged.", success)
		}
	}
}

func TestReplay(t *testing.T) {
	t.Log("Given the need to rebuild the utxo set from the chain.")
	{
		t.Logf("\tTest 0:\tWhen comparing incremental application to a replay.")
		{
			blocks := chain()

			incremental := utxo.New()
			for _, block := range blocks {
				if err := incremental.ApplyBlock(block); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to apply block %d: %v", failed, block.Index, err)
				}
			}

			replayed, err := utxo.Replay(blocks)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to replay: %v", failed, err)
			}

			if incremental.StateHash() != replayed.StateHash() {
				t.Fatalf("\t%s\tTest 0:\tShould produce the identical state.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould produce the identical state.", success)

			for _, accountID := range incremental.Addresses() {
				if incremental.TotalValueByAddress(accountID) != replayed.TotalValueByAddress(accountID) {
					t.Fatalf("\t%s\tTest 0:\tShould get the same balance for %s.", failed, accountID)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould get the same balance for every account.", success)
		}

		t.Logf("\tTest 1:\tWhen loading a saved snapshot.")
		{
			replayed, _ := utxo.Replay(chain())

			loaded, err := utxo.Load(replayed.Snapshot())
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the snapshot: %v", failed, err)
			}

			if loaded.StateHash() != replayed.StateHash() {
				t.Fatalf("\t%s\tTest 1:\tShould produce the identical state.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould produce the identical state.", success)
		}

		t.Logf("\tTest 2:\tWhen the chain spends money that doesn't exist.")
		{
			blocks := chain()
			blocks[1].Transactions[1].Amount = 5000

			_, err := utxo.Replay(blocks)
			if !database.IsCorruptionError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould get a corruption error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a corruption error.", success)
		}
	}
}
