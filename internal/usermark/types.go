// Package usermark holds the entities owned by the bookmark core: user marks,
// bookmarks, tracks and the groups they belong to.
package usermark

import (
	"slices"

	"github.com/OCAP2/bookmarks/internal/ids"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// Type is the kind of a user mark. It is encoded in the top byte of the mark id.
type Type uint8

const (
	TypeBookmark Type = iota // same value as ids.BookmarkType
	TypeSearch
	TypeStatic
	TypeRouting
	TypeTrackInfo
	TypeTrackSelection
	TypeDebug
	TypeCount
)

var typeNames = [...]string{"Bookmark", "Search", "Static", "Routing", "TrackInfo", "TrackSelection", "Debug"}

func (t Type) String() string {
	if t >= TypeCount {
		return "Unknown"
	}
	return typeNames[t]
}

// TypeOf returns the type encoded in a mark id.
func TypeOf(id core.MarkID) Type {
	return Type(ids.MarkType(id))
}

// LayerID is the id of the built-in layer holding marks of type t.
// Bookmarks have no layer.
func LayerID(t Type) core.GroupID {
	if t == TypeBookmark || t >= TypeCount {
		return core.InvalidGroupID
	}
	return core.GroupID(t)
}

// FirstCategoryID is the lowest id a category or compilation can get.
const FirstCategoryID = core.GroupID(TypeCount)

// IsBookmarkGroupID reports whether id belongs to the category range.
func IsBookmarkGroupID(id core.GroupID) bool {
	return id >= FirstCategoryID
}

// IDSet is an unordered set of ids.
type IDSet[T ~uint64] map[T]struct{}

type (
	MarkIDSet  = IDSet[core.MarkID]
	TrackIDSet = IDSet[core.TrackID]
	GroupIDSet = IDSet[core.GroupID]
)

// NewIDSet builds a set from ids.
func NewIDSet[T ~uint64](ids ...T) IDSet[T] {
	s := make(IDSet[T], len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s IDSet[T]) Add(id T) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s IDSet[T]) Remove(id T) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

func (s IDSet[T]) Has(id T) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet[T]) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s IDSet[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy.
func (s IDSet[T]) Clone() IDSet[T] {
	out := make(IDSet[T], len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Merge adds every id of other.
func (s IDSet[T]) Merge(other IDSet[T]) {
	for id := range other {
		s[id] = struct{}{}
	}
}
