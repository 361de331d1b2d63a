package types

// PageSize is the fixed size, in bytes, of every on-disk and in-memory page.
const PageSize = 4096

// PageID identifies a page. It is a 32-bit signed integer so that the
// sentinel InvalidPageID can be represented without a separate bool.
type PageID int32

// InvalidPageID is the sentinel "no page" value.
const InvalidPageID PageID = -1

// FrameID identifies a frame slot within one buffer pool instance. It is
// local to that instance and carries no meaning across instances.
type FrameID int32

// TxnID identifies a transaction. Smaller values are older transactions;
// the wound-wait scheme in the lock manager depends on this ordering.
type TxnID uint64

// RID (row identifier / tuple identifier) locates a tuple within a table
// heap. It is the lock manager's key.
type RID struct {
	PageID PageID
	Slot   uint32
}
