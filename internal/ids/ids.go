// Package ids issues identifiers for marks, tracks and groups.
//
// Ids are never reused within a run. Bookmark, track and category counters
// can be persisted through a CounterStore so ids stay unique across runs and
// ids stored in bookmark files can be checked against what was issued before.
package ids

import (
	"fmt"
	"sync"

	"github.com/OCAP2/bookmarks/pkg/core"
)

// Mark ids carry the user mark type in their top byte.
const (
	typeShift   = 56
	counterMask = (uint64(1) << typeShift) - 1
)

// BookmarkType is the mark type whose ids are persisted.
const BookmarkType uint8 = 0

// Kind selects a persisted counter.
type Kind uint8

const (
	KindBookmark Kind = iota
	KindTrack
	KindCategory
	kindCount
)

var counterKeys = [kindCount]string{"ids.bookmark", "ids.track", "ids.category"}

func (k Kind) String() string {
	if k >= kindCount {
		return "unknown"
	}
	return counterKeys[k]
}

// CounterStore persists the last issued value of each counter.
type CounterStore interface {
	LoadCounter(key string) (value uint64, ok bool, err error)
	SaveCounter(key string, value uint64) error
}

// Allocator hands out monotonically increasing ids.
type Allocator struct {
	mu    sync.Mutex
	store CounterStore

	last    [kindCount]uint64
	initial [kindCount]uint64
	fresh   bool
	dirty   bool

	userMarks map[uint8]uint64
}

// New creates an allocator. Category ids start above firstGroupID so the
// range below stays reserved for built-in layers. store may be nil.
func New(store CounterStore, firstGroupID uint64) (*Allocator, error) {
	a := &Allocator{
		store:     store,
		userMarks: make(map[uint8]uint64),
		fresh:     true,
	}
	a.last[KindCategory] = firstGroupID

	if store != nil {
		for k := Kind(0); k < kindCount; k++ {
			v, ok, err := store.LoadCounter(counterKeys[k])
			if err != nil {
				return nil, fmt.Errorf("loading %s counter: %w", k, err)
			}
			if ok {
				a.fresh = false
				if v > a.last[k] {
					a.last[k] = v
				}
			}
		}
	}
	a.initial = a.last
	return a, nil
}

// MarkType extracts the user mark type from a mark id.
func MarkType(id core.MarkID) uint8 {
	return uint8(uint64(id) >> typeShift)
}

// NextMarkID issues an id for a user mark of the given type.
func (a *Allocator) NextMarkID(markType uint8) core.MarkID {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n uint64
	if markType == BookmarkType {
		a.last[KindBookmark]++
		a.dirty = true
		n = a.last[KindBookmark]
	} else {
		a.userMarks[markType]++
		n = a.userMarks[markType]
	}
	if n > counterMask {
		panic(fmt.Sprintf("ids: mark counter overflow for type %d", markType))
	}
	return core.MarkID(uint64(markType)<<typeShift | n)
}

// NextBookmarkID is NextMarkID for bookmarks.
func (a *Allocator) NextBookmarkID() core.MarkID {
	return a.NextMarkID(BookmarkType)
}

// NextTrackID issues a track id.
func (a *Allocator) NextTrackID() core.TrackID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last[KindTrack]++
	a.dirty = true
	return core.TrackID(a.last[KindTrack])
}

// NextGroupID issues a category or compilation id.
func (a *Allocator) NextGroupID() core.GroupID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last[KindCategory]++
	a.dirty = true
	return core.GroupID(a.last[KindCategory])
}

// Observe raises the counter of kind so id is never issued again.
func (a *Allocator) Observe(kind Kind, id uint64) {
	if kind == KindBookmark {
		id &= counterMask
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.last[kind] {
		a.last[kind] = id
		a.dirty = true
	}
}

// CheckIds reports whether every explicit id in data could have been issued
// by an earlier run. When the counters were never persisted there is nothing
// to compare against and all ids are accepted.
func (a *Allocator) CheckIds(data *core.FileData) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fresh {
		return true
	}

	within := func(kind Kind, id uint64) bool {
		return id <= a.initial[kind]
	}
	if !within(KindCategory, uint64(data.Category.ID)) {
		return false
	}
	for _, c := range data.Compilations {
		if !within(KindCategory, uint64(c.ID)) {
			return false
		}
	}
	for _, b := range data.Bookmarks {
		if MarkType(b.ID) != BookmarkType || !within(KindBookmark, uint64(b.ID)) {
			return false
		}
	}
	for _, t := range data.Tracks {
		if !within(KindTrack, uint64(t.ID)) {
			return false
		}
	}
	return true
}

// Flush persists counters changed since the last flush.
func (a *Allocator) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil || !a.dirty {
		return nil
	}
	for k := Kind(0); k < kindCount; k++ {
		if err := a.store.SaveCounter(counterKeys[k], a.last[k]); err != nil {
			return fmt.Errorf("saving %s counter: %w", k, err)
		}
	}
	a.dirty = false
	a.fresh = false
	return nil
}
