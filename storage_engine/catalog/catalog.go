package catalog

import (
	"fmt"
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

// Column describes one attribute of a table's schema.
type Column struct {
	Name string
	Type string
}

// Schema is a table's column list plus the heap and index identifiers
// the rest of the storage engine uses to find its pages.
type Schema struct {
	TableName   string
	Columns     []Column
	HeapFileID  uint32
	IndexFileID uint32
	FirstPageID types.PageID
}

/*
Catalog is the in-memory table directory callers (such as the demo
command) consult to resolve a table name to its storage location; the
heap and index managers do not use it themselves. It is
grounded on the teacher's CatalogManager, trimmed to drop the
dbRoot/currDb multi-database disk-persistence layer: spec.md's
Non-goals exclude durability and catalog persistence from this core,
so there is nothing here to load from or flush to disk. What survives
is the part every other component actually depends on — name-to-schema
and name-to-file-id lookup — now backed by a map instead of a directory
of *_schema.json files.
*/
type Catalog struct {
	mu         sync.RWMutex
	schemas    map[string]Schema
	nextFileID uint32
}

func NewCatalog() *Catalog {
	return &Catalog{
		schemas:    make(map[string]Schema),
		nextFileID: 1,
	}
}

func (c *Catalog) TableExists(tableName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.schemas[tableName]
	return ok
}

func (c *Catalog) GetTableSchema(tableName string) (Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[tableName]
	if !ok {
		return Schema{}, fmt.Errorf("table %q does not exist", tableName)
	}
	return schema, nil
}

// CreateTable registers a new table, allocating a heap file id and an
// index file id and recording firstPageID, supplied by the caller, as
// its first heap page. It fails if the table already exists.
func (c *Catalog) CreateTable(tableName string, columns []Column, firstPageID types.PageID) (Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.schemas[tableName]; exists {
		return Schema{}, fmt.Errorf("table %q already exists", tableName)
	}

	schema := Schema{
		TableName:   tableName,
		Columns:     append([]Column(nil), columns...),
		HeapFileID:  c.nextFileID,
		IndexFileID: c.nextFileID + 1,
		FirstPageID: firstPageID,
	}
	c.nextFileID += 2
	c.schemas[tableName] = schema
	return schema, nil
}

// DropTable removes a table from the catalog. It does not reclaim the
// file ids it allocated.
func (c *Catalog) DropTable(tableName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.schemas[tableName]; !exists {
		return fmt.Errorf("table %q does not exist", tableName)
	}
	delete(c.schemas, tableName)
	return nil
}
