package xbis

import "github.com/jibx/xbis/internal/nametable"

// Name is a (local name, namespace) pair. Element names and attribute
// names are partitioned into two populations that never share handle
// space (spec.md §3).
type Name = nametable.Name

// Handle is a strictly positive, monotonically increasing identifier
// assigned on first definition within one of the codec's four
// dictionaries (element names, attribute names, shared content, shared
// attribute values). Handle 0 is never assigned.
type Handle = nametable.Handle
