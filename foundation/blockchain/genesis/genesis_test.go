package genesis_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func write(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("\t%s\tShould be able to write the genesis file: %v", failed, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Log("Given the need to load the genesis file.")
	{
		t.Logf("\tTest 0:\tWhen the file is valid.")
		{
			path := write(t, `{
				"date": "2026-01-01T00:00:00Z",
				"trans_per_block": 2,
				"difficulty": 3,
				"mining_reward": 50,
				"mempool_max_size": 4,
				"balances": {"0xf01813e4b85e178a83e29b8e7bf26bd830a25f32": 1000}
			}`)

			g, err := genesis.Load(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the file: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to load the file.", success)

			if g.Difficulty != 3 || g.TransPerBlock != 2 || g.MiningReward != 50 || g.MempoolMaxSize != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould read the ledger constants: %+v", failed, g)
			}
			t.Logf("\t%s\tTest 0:\tShould read the ledger constants.", success)

			if g.ConsensusType != genesis.ConsensusPOW || g.MaxDifficulty == 0 || g.BlockTimeTargetMs == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould fill in the defaults: %+v", failed, g)
			}
			t.Logf("\t%s\tTest 0:\tShould fill in the defaults.", success)

			accounts, err := g.Accounts()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould convert the balances: %v", failed, err)
			}

			accountID, _ := database.ToAccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
			if accounts[accountID] != 1000 {
				t.Fatalf("\t%s\tTest 0:\tShould key the balances by canonical account: %v", failed, accounts)
			}
			t.Logf("\t%s\tTest 0:\tShould key the balances by canonical account.", success)
		}

		t.Logf("\tTest 1:\tWhen the difficulty is below 1.")
		{
			g := genesis.Default()
			g.Difficulty = 0

			if err := g.Validate(); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 1:\tShould get a validation error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a validation error.", success)
		}

		t.Logf("\tTest 2:\tWhen a balance uses a bad account.")
		{
			path := write(t, `{"difficulty": 1, "balances": {"bill": 10}}`)

			if _, err := genesis.Load(path); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould get a validation error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a validation error.", success)
		}

		t.Logf("\tTest 3:\tWhen the file doesn't exist.")
		{
			if _, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould get an error.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould get an error.", success)
		}

		t.Logf("\tTest 4:\tWhen the difficulty bounds can't work.")
		{
			g := genesis.Default()
			g.Difficulty = 4
			g.MinDifficulty = 5
			g.MaxDifficulty = 3

			err := g.Validate()
			if !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 4:\tShould get a validation error, got %v.", failed, err)
			}
			if !errors.Is(err, pow.ErrInvalidConfig) {
				t.Fatalf("\t%s\tTest 4:\tShould wrap ErrInvalidConfig, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould get a validation error wrapping ErrInvalidConfig.", success)
		}
	}
}

func TestBlock(t *testing.T) {
	t.Log("Given the need to construct the genesis block.")
	{
		t.Logf("\tTest 0:\tWhen building the block from the same information.")
		{
			g := genesis.Default()
			g.Balances = map[string]uint64{"0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4": 500}

			b1, err := g.Block(nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould build the block: %v", failed, err)
			}

			b2, _ := g.Block(nil)
			if b1.Hash != b2.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould be deterministic.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be deterministic.", success)

			if len(b1.Transactions) != 1 || b1.Transactions[0].Amount != 500 {
				t.Fatalf("\t%s\tTest 0:\tShould carry one allocation: %+v", failed, b1.Transactions)
			}
			t.Logf("\t%s\tTest 0:\tShould carry one allocation.", success)
		}
	}
}
