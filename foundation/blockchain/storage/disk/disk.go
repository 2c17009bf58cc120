// Package disk implements the ability to read and write the ledger to disk
// using a separate JSON file per block.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/validate"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. The mempools and the utxo set
// are kept in their own files. This implements the database.LedgerStore
// interface.
type Disk struct {
	dbPath string
	mu     sync.Mutex
	next   uint64
	latest string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	for _, dir := range []string{blocksDir, mempoolDir} {
		if err := os.MkdirAll(filepath.Join(dbPath, dir), 0755); err != nil {
			return nil, err
		}
	}

	d := Disk{dbPath: dbPath}

	// Find where the chain on disk ends so appends can be checked.
	blocks, err := d.LoadChain(context.Background())
	if err != nil {
		return nil, err
	}
	d.next = uint64(len(blocks))
	if len(blocks) > 0 {
		d.latest = blocks[len(blocks)-1].Hash
	}

	return &d, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each write and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// =============================================================================

// LoadChain reads the block files starting with block 0 until a block
// number has no file.
func (d *Disk) LoadChain(ctx context.Context) ([]database.Block, error) {
	var blocks []database.Block
	for num := uint64(0); ; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var block database.Block
		err := d.read(d.blockPath(num), &block)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", num, err)
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

// AppendBlock takes the specified block and stores it on disk in a
// file labeled with the block number.
func (d *Disk) AppendBlock(ctx context.Context, block database.Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next > 0 && block.Index == d.next-1 && block.Hash == d.latest {
		return nil
	}

	if block.Index != d.next {
		return fmt.Errorf("%w: got %d, exp %d", database.ErrBlockOrder, block.Index, d.next)
	}

	if err := d.write(d.blockPath(block.Index), block); err != nil {
		return err
	}

	d.next++
	d.latest = block.Hash

	return nil
}

// LoadMempool reads the transactions saved for the mempool id. An unknown
// id returns an empty mempool.
func (d *Disk) LoadMempool(ctx context.Context, id string) ([]database.Transaction, error) {
	path, err := d.mempoolPath(id)
	if err != nil {
		return nil, err
	}

	var trans []database.Transaction
	if err := d.read(path, &trans); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return trans, nil
}

// SaveMempool replaces the transactions saved for the mempool id.
func (d *Disk) SaveMempool(ctx context.Context, id string, trans []database.Transaction) error {
	path, err := d.mempoolPath(id)
	if err != nil {
		return err
	}

	if trans == nil {
		trans = []database.Transaction{}
	}

	return d.write(path, trans)
}

// LoadUTXOs reads the saved utxo set.
func (d *Disk) LoadUTXOs(ctx context.Context) ([]database.UTXO, error) {
	var utxos []database.UTXO
	if err := d.read(filepath.Join(d.dbPath, utxoFile), &utxos); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return utxos, nil
}

// SaveUTXOs replaces the saved utxo set.
func (d *Disk) SaveUTXOs(ctx context.Context, utxos []database.UTXO) error {
	if utxos == nil {
		utxos = []database.UTXO{}
	}

	return d.write(filepath.Join(d.dbPath, utxoFile), utxos)
}

// =============================================================================

const (
	blocksDir  = "blocks"
	mempoolDir = "mempool"
	utxoFile   = "utxos.json"
)

// blockPath forms the path to the specified block.
func (d *Disk) blockPath(blockNum uint64) string {
	name := strconv.FormatUint(blockNum, 10)
	return filepath.Join(d.dbPath, blocksDir, fmt.Sprintf("%s.json", name))
}

// mempoolPath forms the path to the specified mempool. The id becomes a
// file name so it can't reach outside the mempool folder.
func (d *Disk) mempoolPath(id string) (string, error) {
	if err := validate.Var("mempool_id", id, "required,max=64,printascii,excludesall=/\\."); err != nil {
		return "", database.NewValidationError("mempool_id", err)
	}

	return filepath.Join(d.dbPath, mempoolDir, fmt.Sprintf("%s.json", id)), nil
}

// write marshals the value in a more human readable format and replaces
// the file. The data is written to a temporary file first so a failed write
// never leaves a partial file behind.
func (d *Disk) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

// read decodes the contents of the file into the value.
func (d *Disk) read(path string, v any) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(v)
}
