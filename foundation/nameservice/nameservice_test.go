package nameservice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestNameService(t *testing.T) {
	t.Log("Given the need to name accounts from a folder of keys.")
	{
		t.Logf("\tTest 0:\tWhen the folder holds a key and an unrelated file.")
		{
			root := t.TempDir()

			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a key: %v", failed, err)
			}

			if err := crypto.SaveECDSA(filepath.Join(root, "miner1.ecdsa"), privateKey); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to save the key: %v", failed, err)
			}
			if err := os.WriteFile(filepath.Join(root, "README"), []byte("keys"), 0600); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write the file: %v", failed, err)
			}

			ns, err := nameservice.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the name service: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to construct the name service.", success)

			accountID := database.PublicKeyToAccountID(privateKey.PublicKey)

			if name := ns.Lookup(accountID); name != "miner1" {
				t.Fatalf("\t%s\tTest 0:\tShould name the account miner1, got %q.", failed, name)
			}
			t.Logf("\t%s\tTest 0:\tShould name the account.", success)

			if got, err := ns.Resolve("miner1"); err != nil || got != accountID {
				t.Fatalf("\t%s\tTest 0:\tShould resolve the name to the account: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould resolve the name to the account.", success)

			other := database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
			if ns.Lookup(other) != string(other) {
				t.Fatalf("\t%s\tTest 0:\tShould return an unknown account as is.", failed)
			}
			if _, err := ns.Resolve("nobody"); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould not resolve an unknown name.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould handle unknown accounts and names.", success)

			if len(ns.Copy()) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold one account.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould hold one account.", success)
		}
	}
}
