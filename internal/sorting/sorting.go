// Package sorting splits the content of a category into named, ordered blocks.
//
// All functions are pure: callers snapshot the category on the core loop and
// may sort on any goroutine.
package sorting

import (
	"cmp"
	"slices"
	"time"

	"github.com/OCAP2/bookmarks/internal/geo"
	"github.com/OCAP2/bookmarks/pkg/core"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// NearDistanceMeters is the radius of the "near me" block.
	NearDistanceMeters = 20000.0
	// MinCommonTypesCount is the smallest type block; rarer types go to "Others".
	MinCommonTypesCount = 3
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 31 * day
	year  = 365 * day
)

// Names are the block titles. Callers localize them.
type Names struct {
	Tracks           string
	Bookmarks        string
	NearMe           string
	WeekAgo          string
	MonthAgo         string
	MoreThanMonthAgo string
	MoreThanYearAgo  string
	Others           string
	Types            map[BaseType]string
}

// DefaultNames returns the English block titles.
func DefaultNames() Names {
	types := make(map[BaseType]string, baseCount)
	for t := BaseType(0); t < baseCount; t++ {
		types[t] = t.String()
	}
	return Names{
		Tracks:           "Tracks",
		Bookmarks:        "Bookmarks",
		NearMe:           "Near me",
		WeekAgo:          "Week ago",
		MonthAgo:         "Month ago",
		MoreThanMonthAgo: "More than a month ago",
		MoreThanYearAgo:  "More than a year ago",
		Others:           "Others",
		Types:            types,
	}
}

func (n Names) typeName(t BaseType) string {
	if s, ok := n.Types[t]; ok && s != "" {
		return s
	}
	return t.String()
}

// BookmarkInput is the part of a bookmark the sorter looks at.
type BookmarkInput struct {
	ID        core.MarkID
	Name      string
	Point     core.LatLon
	Timestamp time.Time
	Type      BaseType
	Address   string
}

// TrackInput is the part of a track the sorter looks at.
type TrackInput struct {
	ID        core.TrackID
	Name      string
	Timestamp time.Time
}

// Input is a category snapshot in category order.
type Input struct {
	Bookmarks []BookmarkInput
	Tracks    []TrackInput
	Names     Names
	Lang      language.Tag
}

func (in Input) empty() bool {
	return len(in.Bookmarks) == 0 && len(in.Tracks) == 0
}

func (in Input) tracksBlock(tracks []TrackInput) core.SortedBlock {
	b := core.SortedBlock{Name: in.Names.Tracks, TrackIDs: make([]core.TrackID, 0, len(tracks))}
	for _, t := range tracks {
		b.TrackIDs = append(b.TrackIDs, t.ID)
	}
	return b
}

func (in Input) collator() *collate.Collator {
	return collate.New(in.Lang)
}

// ByName orders tracks and bookmarks alphabetically in one block each.
func ByName(in Input) []core.SortedBlock {
	if in.empty() {
		return nil
	}
	c := in.collator()
	var blocks []core.SortedBlock

	if len(in.Tracks) > 0 {
		tracks := slices.Clone(in.Tracks)
		slices.SortStableFunc(tracks, func(a, b TrackInput) int {
			return c.CompareString(a.Name, b.Name)
		})
		blocks = append(blocks, in.tracksBlock(tracks))
	}

	if len(in.Bookmarks) > 0 {
		marks := slices.Clone(in.Bookmarks)
		slices.SortStableFunc(marks, func(a, b BookmarkInput) int {
			return c.CompareString(a.Name, b.Name)
		})
		block := core.SortedBlock{Name: in.Names.Bookmarks}
		for _, m := range marks {
			block.MarkIDs = append(block.MarkIDs, m.ID)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

type timeBucket uint8

const (
	bucketWeek timeBucket = iota
	bucketMonth
	bucketMoreThanMonth
	bucketMoreThanYear
	bucketOthers
)

func bucketOf(now, ts time.Time) timeBucket {
	if ts.IsZero() {
		return bucketOthers
	}
	switch age := now.Sub(ts); {
	case age < week:
		return bucketWeek
	case age < month:
		return bucketMonth
	case age < year:
		return bucketMoreThanMonth
	default:
		return bucketMoreThanYear
	}
}

func (n Names) bucketName(b timeBucket) string {
	switch b {
	case bucketWeek:
		return n.WeekAgo
	case bucketMonth:
		return n.MonthAgo
	case bucketMoreThanMonth:
		return n.MoreThanMonthAgo
	case bucketMoreThanYear:
		return n.MoreThanYearAgo
	}
	return n.Others
}

func newestFirst(a, b time.Time) int {
	return b.Compare(a)
}

// ByTime orders by descending timestamp. Bookmarks are split into age
// buckets relative to now; bookmarks without a timestamp come last. The
// tracks block is left out when no track has a timestamp.
func ByTime(in Input, now time.Time) []core.SortedBlock {
	if in.empty() {
		return nil
	}
	var blocks []core.SortedBlock

	if slices.ContainsFunc(in.Tracks, func(t TrackInput) bool { return !t.Timestamp.IsZero() }) {
		tracks := slices.Clone(in.Tracks)
		slices.SortStableFunc(tracks, func(a, b TrackInput) int {
			return newestFirst(a.Timestamp, b.Timestamp)
		})
		blocks = append(blocks, in.tracksBlock(tracks))
	}

	marks := slices.Clone(in.Bookmarks)
	slices.SortStableFunc(marks, func(a, b BookmarkInput) int {
		return newestFirst(a.Timestamp, b.Timestamp)
	})

	var current *core.SortedBlock
	last := timeBucket(0)
	for _, m := range marks {
		bucket := bucketOf(now, m.Timestamp)
		if current == nil || bucket != last {
			blocks = append(blocks, core.SortedBlock{Name: in.Names.bucketName(bucket)})
			current = &blocks[len(blocks)-1]
			last = bucket
		}
		current.MarkIDs = append(current.MarkIDs, m.ID)
	}
	return blocks
}

// ByType groups bookmarks by base type. Types with fewer than
// MinCommonTypesCount bookmarks, except hotels, join the "Others" block.
// Type blocks are ordered by size; inside a block the newest come first.
func ByType(in Input) []core.SortedBlock {
	if in.empty() {
		return nil
	}
	var blocks []core.SortedBlock
	if len(in.Tracks) > 0 {
		blocks = append(blocks, in.tracksBlock(in.Tracks))
	}

	marks := slices.Clone(in.Bookmarks)
	slices.SortStableFunc(marks, func(a, b BookmarkInput) int {
		return newestFirst(a.Timestamp, b.Timestamp)
	})

	type typeCount struct {
		t BaseType
		n int
	}
	var counts []typeCount
	index := make(map[BaseType]int)
	others := 0
	for _, m := range marks {
		if m.Type == BaseNone {
			others++
			continue
		}
		i, ok := index[m.Type]
		if !ok {
			i = len(counts)
			index[m.Type] = i
			counts = append(counts, typeCount{t: m.Type})
		}
		counts[i].n++
	}

	var kept []typeCount
	for _, tc := range counts {
		if tc.n < MinCommonTypesCount && tc.t != BaseHotel {
			others += tc.n
			continue
		}
		kept = append(kept, tc)
	}
	slices.SortStableFunc(kept, func(a, b typeCount) int {
		return cmp.Compare(b.n, a.n)
	})

	blockOf := make(map[BaseType]int, len(kept))
	for _, tc := range kept {
		blockOf[tc.t] = len(blocks)
		blocks = append(blocks, core.SortedBlock{Name: in.Names.typeName(tc.t)})
	}
	othersIdx := -1
	if others > 0 {
		othersIdx = len(blocks)
		blocks = append(blocks, core.SortedBlock{Name: in.Names.Others})
	}

	for _, m := range marks {
		i, ok := blockOf[m.Type]
		if !ok || m.Type == BaseNone {
			i = othersIdx
		}
		blocks[i].MarkIDs = append(blocks[i].MarkIDs, m.ID)
	}
	return blocks
}

// AddressFunc returns the region name of a bookmark, or "" when unknown.
type AddressFunc func(BookmarkInput) string

// ByDistance orders bookmarks by distance from position and groups them by
// region. Bookmarks closer than NearDistanceMeters form the "near me" block.
func ByDistance(in Input, position core.LatLon, address AddressFunc) []core.SortedBlock {
	if in.empty() {
		return nil
	}
	if address == nil {
		address = func(b BookmarkInput) string { return b.Address }
	}
	var blocks []core.SortedBlock
	if len(in.Tracks) > 0 {
		blocks = append(blocks, in.tracksBlock(in.Tracks))
	}

	type withDistance struct {
		m BookmarkInput
		d float64
	}
	marks := make([]withDistance, 0, len(in.Bookmarks))
	for _, m := range in.Bookmarks {
		marks = append(marks, withDistance{m: m, d: geo.DistanceOnEarth(position, m.Point)})
	}
	slices.SortStableFunc(marks, func(a, b withDistance) int {
		return cmp.Compare(a.d, b.d)
	})

	regions := make(map[string]int)
	var others core.SortedBlock
	nearMe := -1
	for _, item := range marks {
		if item.d <= NearDistanceMeters {
			if nearMe < 0 {
				nearMe = len(blocks)
				blocks = append(blocks, core.SortedBlock{Name: in.Names.NearMe})
			}
			blocks[nearMe].MarkIDs = append(blocks[nearMe].MarkIDs, item.m.ID)
			continue
		}
		region := address(item.m)
		if region == "" {
			others.MarkIDs = append(others.MarkIDs, item.m.ID)
			continue
		}
		i, ok := regions[region]
		if !ok {
			i = len(blocks)
			regions[region] = i
			blocks = append(blocks, core.SortedBlock{Name: region})
		}
		blocks[i].MarkIDs = append(blocks[i].MarkIDs, item.m.ID)
	}
	if len(others.MarkIDs) > 0 {
		others.Name = in.Names.Others
		blocks = append(blocks, others)
	}
	return blocks
}

// Sort dispatches on the sorting type. ByDistance needs position.
func Sort(in Input, t core.SortingType, position *core.LatLon, address AddressFunc, now time.Time) []core.SortedBlock {
	switch t {
	case core.SortByName:
		return ByName(in)
	case core.SortByTime:
		return ByTime(in, now)
	case core.SortByType:
		return ByType(in)
	case core.SortByDistance:
		if position == nil {
			return nil
		}
		return ByDistance(in, *position, address)
	}
	return nil
}

// AvailableTypes lists the sorting types that make sense for the snapshot.
func AvailableTypes(in Input, hasPosition bool) []core.SortingType {
	var out []core.SortingType
	if slices.ContainsFunc(in.Bookmarks, func(b BookmarkInput) bool { return b.Type != BaseNone }) {
		out = append(out, core.SortByType)
	}
	if hasPosition && len(in.Bookmarks) > 0 {
		out = append(out, core.SortByDistance)
	}
	if slices.ContainsFunc(in.Bookmarks, func(b BookmarkInput) bool { return !b.Timestamp.IsZero() }) ||
		slices.ContainsFunc(in.Tracks, func(t TrackInput) bool { return !t.Timestamp.IsZero() }) {
		out = append(out, core.SortByTime)
	}
	if !in.empty() {
		out = append(out, core.SortByName)
	}
	return out
}

// FilterInvalid drops ids that no longer exist and the blocks left empty.
func FilterInvalid(blocks []core.SortedBlock, markExists func(core.MarkID) bool, trackExists func(core.TrackID) bool) []core.SortedBlock {
	out := blocks[:0]
	for _, b := range blocks {
		b.MarkIDs = slices.DeleteFunc(b.MarkIDs, func(id core.MarkID) bool { return !markExists(id) })
		b.TrackIDs = slices.DeleteFunc(b.TrackIDs, func(id core.TrackID) bool { return !trackExists(id) })
		if !b.Empty() {
			out = append(out, b)
		}
	}
	return out
}
