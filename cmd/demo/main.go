// Command demo wires the storage core together end to end: a
// disk-backed parallel buffer pool, a wound-wait lock manager, an
// in-memory catalog, and a table heap with its cache, then runs one
// transaction against it to show the pieces cooperating.
// It replaces the teacher's SQL-shell entry point, which drove a query
// parser and executor this module does not build.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gxsoar/cmu15445/storage_engine/bufferpool"
	"github.com/gxsoar/cmu15445/storage_engine/catalog"
	diskmanager "github.com/gxsoar/cmu15445/storage_engine/disk_manager"
	heapfilemanager "github.com/gxsoar/cmu15445/storage_engine/heapfile_manager"
	indexmanager "github.com/gxsoar/cmu15445/storage_engine/index_manager"
	lockmanager "github.com/gxsoar/cmu15445/storage_engine/lock_manager"
	txn "github.com/gxsoar/cmu15445/storage_engine/transaction_manager"
	walmanager "github.com/gxsoar/cmu15445/storage_engine/wal_manager"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbFile, err := os.CreateTemp("", "demo-*.db")
	if err != nil {
		return fmt.Errorf("create temp db file: %w", err)
	}
	defer os.Remove(dbFile.Name())
	dbFile.Close()

	disk, err := diskmanager.NewDiskManager(dbFile.Name())
	if err != nil {
		return fmt.Errorf("open disk manager: %w", err)
	}
	defer disk.Close()

	bp := bufferpool.NewParallelBufferPool(4, 64, disk)
	reg := txn.NewRegistry()
	lm := lockmanager.NewLockManager(reg)
	wal := walmanager.NewInMemoryLog()
	cat := catalog.NewCatalog()

	heap, err := heapfilemanager.NewTableHeap(bp, lm, 4<<20)
	if err != nil {
		return fmt.Errorf("create table heap: %w", err)
	}

	idx, err := indexmanager.NewHashIndex(bp, 16)
	if err != nil {
		return fmt.Errorf("create hash index: %w", err)
	}

	schema, err := cat.CreateTable("accounts", []catalog.Column{
		{Name: "id", Type: "int32"},
		{Name: "balance", Type: "int64"},
	}, heap.HeadPageID())
	if err != nil {
		return fmt.Errorf("register table: %w", err)
	}
	fmt.Printf("created table %q (heap file %d, index file %d)\n", schema.TableName, schema.HeapFileID, schema.IndexFileID)

	tx := reg.Begin(txn.RepeatableRead)
	rid, err := heap.InsertTuple(tx, []byte("alice,100"))
	if err != nil {
		return fmt.Errorf("insert tuple: %w", err)
	}
	wal.Append(walmanager.Record{TxnID: tx.ID(), Table: "accounts", RID: rid})

	if _, err := idx.Insert([]byte("alice"), rid); err != nil {
		return fmt.Errorf("insert index entry: %w", err)
	}

	tuple, err := heap.GetTuple(tx, rid)
	if err != nil {
		return fmt.Errorf("read tuple back: %w", err)
	}
	fmt.Printf("read back tuple %+v: %s\n", rid, tuple)

	matches, found := idx.GetValue([]byte("alice"))
	fmt.Printf("index lookup for %q: %v (found=%v)\n", "alice", matches, found)

	reg.Commit(tx)
	fmt.Println("committed transaction", tx.ID())

	bp.FlushAllPages()
	return nil
}
