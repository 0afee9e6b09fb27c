package bookmarks

import (
	"context"

	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/sorting"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// SortParams describe one sort request. Timestamp is handed back untouched
// so callers can drop stale results.
type SortParams struct {
	GroupID       core.GroupID
	SortingType   core.SortingType
	HasMyPosition bool
	MyPosition    core.LatLon
	Timestamp     int64
	OnResults     func(blocks []core.SortedBlock, status core.SortStatus, timestamp int64)
}

type sortOutcome struct {
	blocks    []core.SortedBlock
	addresses map[core.MarkID]string
}

// sortInput captures a category for the sorter, in id order.
func (m *Manager) sortInput(groupID core.GroupID) sorting.Input {
	g := m.mustCategory(groupID)
	in := sorting.Input{Names: m.deps.Names, Lang: m.deps.Language}
	for _, id := range g.MarkIDs().Sorted() {
		b := m.bookmarks[id]
		t := sorting.BaseNone
		if m.deps.Classificator != nil && len(b.FeatureTypes()) > 0 {
			t = sorting.BaseTypeOf(m.deps.Classificator.FeatureTypeNames(b.FeatureTypes()))
		}
		in.Bookmarks = append(in.Bookmarks, sorting.BookmarkInput{
			ID:        id,
			Name:      b.PreferredName(),
			Point:     b.Point(),
			Timestamp: b.Timestamp(),
			Type:      t,
			Address:   b.Address(),
		})
	}
	for _, id := range g.TrackIDs().Sorted() {
		t := m.tracks[id]
		in.Tracks = append(in.Tracks, sorting.TrackInput{ID: id, Name: t.Name(), Timestamp: t.Timestamp()})
	}
	return in
}

// GetSortedCategory sorts a category on the sort lane and reports the blocks
// through p.OnResults on the loop. Distance sorting without a position or a
// region resolver is cancelled right away.
func (m *Manager) GetSortedCategory(p SortParams) {
	report := func(blocks []core.SortedBlock, status core.SortStatus) {
		if p.OnResults != nil {
			p.OnResults(blocks, status, p.Timestamp)
		}
	}

	in := m.sortInput(p.GroupID)
	if p.SortingType == core.SortByDistance && (m.addresses == nil || !p.HasMyPosition) {
		report(nil, core.SortCancelled)
		return
	}
	if len(in.Bookmarks) == 0 && len(in.Tracks) == 0 {
		report(nil, core.SortCompleted)
		return
	}

	var position *core.LatLon
	if p.HasMyPosition {
		pos := p.MyPosition
		position = &pos
	}
	resolver := m.addresses
	now := m.now()

	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSort,
		Name: "sort " + p.SortingType.String(),
		Run: func(ctx context.Context) dispatcher.Result {
			resolved := make(map[core.MarkID]string)
			var address sorting.AddressFunc
			if resolver != nil {
				address = func(b sorting.BookmarkInput) string {
					if b.Address != "" {
						return b.Address
					}
					a := resolver.RegionAddress(b.Point)
					resolved[b.ID] = a
					return a
				}
			}
			blocks := sorting.Sort(in, p.SortingType, position, address, now)
			if err := ctx.Err(); err != nil {
				return dispatcher.Cancel()
			}
			return dispatcher.Success(sortOutcome{blocks: blocks, addresses: resolved})
		},
		Done: func(r dispatcher.Result) {
			if !r.OK() {
				report(nil, core.SortCancelled)
				return
			}
			if p.SortingType == core.SortByDistance && m.addresses == nil {
				report(nil, core.SortCancelled)
				return
			}
			out := r.Value.(sortOutcome)
			for id, a := range out.addresses {
				if b, ok := m.bookmarks[id]; ok && a != "" {
					b.SetAddress(a)
				}
			}
			blocks := sorting.FilterInvalid(out.blocks,
				func(id core.MarkID) bool {
					b, ok := m.bookmarks[id]
					return ok && b.GroupID() == p.GroupID
				},
				func(id core.TrackID) bool {
					t, ok := m.tracks[id]
					return ok && t.GroupID() == p.GroupID
				})
			if len(blocks) == 0 {
				report(nil, core.SortCancelled)
				return
			}
			report(blocks, core.SortCompleted)
		},
	})
}

// GetAvailableSortingTypes lists the sorting types that apply to a category.
func (m *Manager) GetAvailableSortingTypes(groupID core.GroupID, hasMyPosition bool) []core.SortingType {
	return sorting.AvailableTypes(m.sortInput(groupID), hasMyPosition)
}

// GetLastSortingType returns the sorting type last chosen for a category.
func (m *Manager) GetLastSortingType(groupID core.GroupID) (core.SortingType, bool) {
	f := m.mustCategory(groupID).FileName()
	if f == "" {
		return 0, false
	}
	return m.metadata.SortingType(f)
}

func (m *Manager) SetLastSortingType(groupID core.GroupID, t core.SortingType) {
	f := m.ensureFileName(m.mustCategory(groupID))
	m.metadata.SetSortingType(f, t)
	m.saveMetadata()
}

func (m *Manager) ResetLastSortingType(groupID core.GroupID) {
	f := m.mustCategory(groupID).FileName()
	if f == "" {
		return
	}
	m.metadata.ResetSortingType(f)
	m.saveMetadata()
}
