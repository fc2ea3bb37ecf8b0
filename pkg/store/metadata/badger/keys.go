package badger

import (
	"fmt"
	"strings"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so records and their indexes live in
// prefixed key namespaces. Every key is scoped by collection name so that
// folders and documents share one database without colliding.
//
// Key Namespace Prefixes:
//
// Data Type          Prefix   Key Format                          Value Type
// ==========================================================================
// Object Record      "o:"     o:<collection>:<id>                 recordData (JSON)
// Parent Index       "p:"     p:<collection>:<parentID>:<id>      empty
// Series Index       "s:"     s:<collection>:<seriesID>:<id>      empty
//
// Key Design Rationale:
//
// 1. Object Record (o:)
//    - One entry per object, point lookup by id
//    - Value carries the index fields plus the encoded object
//
// 2. Parent Index (p:)
//    - One entry per filed object, objects at the root use an empty parent id
//      ("p:documents::<id>")
//    - Children of a folder: prefix scan over "p:<collection>:<parentID>:"
//
// 3. Series Index (s:)
//    - One entry per versioned object
//    - Members of a version series: prefix scan over "s:<collection>:<seriesID>:"
//
// Index entries are written and removed in the same transaction as the
// record, so a committed record and its index entries are always consistent.
//
// Ids and collection names must not contain ':'.

const (
	prefixObject = "o:"
	prefixParent = "p:"
	prefixSeries = "s:"
)

func validateKeyPart(kind, part string) error {
	if strings.Contains(part, ":") {
		return fmt.Errorf("%s %q must not contain ':'", kind, part)
	}
	return nil
}

func keyObject(collection, id string) []byte {
	return []byte(prefixObject + collection + ":" + id)
}

func keyObjectPrefix(collection string) []byte {
	return []byte(prefixObject + collection + ":")
}

func keyParent(collection, parentID, id string) []byte {
	return []byte(prefixParent + collection + ":" + parentID + ":" + id)
}

func keyParentPrefix(collection, parentID string) []byte {
	return []byte(prefixParent + collection + ":" + parentID + ":")
}

func keySeries(collection, seriesID, id string) []byte {
	return []byte(prefixSeries + collection + ":" + seriesID + ":" + id)
}

func keySeriesPrefix(collection, seriesID string) []byte {
	return []byte(prefixSeries + collection + ":" + seriesID + ":")
}

// idFromIndexKey extracts the trailing object id from an index key.
func idFromIndexKey(key []byte, prefix []byte) string {
	return string(key[len(prefix):])
}
