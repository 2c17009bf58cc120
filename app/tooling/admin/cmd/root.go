// Package cmd contains the admin commands.
package cmd

import (
	"context"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	storeType   string
	dbPath      string
	postgresURL string
	genesisFile string
	mempoolID   string
}

// NewRootCmd constructs the admin command tree.
func NewRootCmd(build string) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Inspect and verify a ledger store",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.storeType, "store-type", "s", storage.TypeDisk, "Type of store: memory, disk, leveldb or postgres.")
	flags.StringVarP(&opts.dbPath, "db-path", "d", "zblock/miner1/", "Path to the disk or leveldb store.")
	flags.StringVar(&opts.postgresURL, "postgres-url", "", "Connection string for the postgres store.")
	flags.StringVarP(&opts.genesisFile, "genesis", "g", "zblock/genesis.json", "Path to the genesis file.")
	flags.StringVarP(&opts.mempoolID, "mempool-id", "m", "default", "Id of the mempool to read.")

	rootCmd.AddCommand(
		verifyCmd(&opts),
		balanceCmd(&opts),
		blocksCmd(&opts),
		mempoolCmd(&opts),
		genKeyCmd(),
	)

	return rootCmd
}

// openStore opens the store named by the flags.
func (o *options) openStore(ctx context.Context) (database.LedgerStore, error) {
	return storage.Open(ctx, storage.Config{
		Type:        o.storeType,
		DBPath:      o.dbPath,
		PostgresURL: o.postgresURL,
	})
}

// loadChain reads every block from the store.
func (o *options) loadChain(ctx context.Context) ([]database.Block, error) {
	store, err := o.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.LoadChain(ctx)
}

// genesisBlock builds the genesis block from the genesis file.
func (o *options) genesisBlock() (database.Block, error) {
	gen, err := genesis.Load(o.genesisFile)
	if err != nil {
		return database.Block{}, err
	}

	return gen.Block(database.HashBlock)
}
