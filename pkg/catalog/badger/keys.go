package badger

// Key layout
// ==========
//
// Data Type        Prefix   Key Format          Value Type
// ===========================================================
// Collections      "c:"     c:<name>            catalog.Entry (JSON)
// Schema version   "cfg:"   cfg:version         uint32 (binary)
//
// A prefix scan over "c:" returns the collection entries in name order.

const (
	prefixCollection = "c:"
	keyVersion       = "cfg:version"
)

// catalogVersion is bumped when the Entry encoding changes incompatibly.
const catalogVersion uint32 = 1

func keyCollection(name string) []byte {
	return []byte(prefixCollection + name)
}
