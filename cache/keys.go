package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// MaxKeyLength caps the length of generated keys. List keys whose canonical
// encoding would exceed it are replaced by a digest of that encoding.
const MaxKeyLength = 512

// digestMarker starts a digested list encoding. Encode query-escapes every
// name and value, so it never emits a literal '#'.
const digestMarker = "#"

const (
	entitySegment = "entity"
	listSegment   = "list"
)

// BuildEntityKey returns the key for a single entity: <kind>:entity:<id>.
func BuildEntityKey(kind, id string) string {
	return EntityPrefix(kind) + strings.TrimSpace(id)
}

// BuildListKey returns the key for a list query: <kind>:list:<canonical params>.
func BuildListKey(kind string, params Params) string {
	prefix := ListPrefix(kind)
	encoded := params.Encode()
	if len(prefix)+len(encoded) > MaxKeyLength {
		encoded = digestMarker + strconv.FormatUint(xxhash.Sum64String(encoded), 16)
	}
	return prefix + encoded
}

// EntityPrefix is the namespace shared by every entity key of kind.
func EntityPrefix(kind string) string {
	return namespace(kind) + KeySeparator + entitySegment + KeySeparator
}

// ListPrefix is the namespace shared by every list key of kind. Deleting by
// this prefix invalidates all cached list variants for the kind.
func ListPrefix(kind string) string {
	return namespace(kind) + KeySeparator + listSegment + KeySeparator
}

// KindPrefix covers every key of kind, entity and list alike.
func KindPrefix(kind string) string {
	return namespace(kind) + KeySeparator
}

func namespace(kind string) string {
	if ns := toSnake(kind); ns != "" {
		return ns
	}
	return strings.ToLower(strings.TrimSpace(kind))
}
