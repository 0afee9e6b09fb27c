package bookmarks

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/OCAP2/bookmarks/internal/changes"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// stores are the id keyed entity maps. Layers, categories and compilations
// share one group map. The manager keeps them unexported; the change tracker
// reads them through source.
type stores struct {
	userMarks map[core.MarkID]*usermark.UserMark
	bookmarks map[core.MarkID]*usermark.Bookmark
	tracks    map[core.TrackID]*usermark.Track
	groups    map[core.GroupID]*usermark.Group
}

func newStores() *stores {
	return &stores{
		userMarks: make(map[core.MarkID]*usermark.UserMark),
		bookmarks: make(map[core.MarkID]*usermark.Bookmark),
		tracks:    make(map[core.TrackID]*usermark.Track),
		groups:    make(map[core.GroupID]*usermark.Group),
	}
}

// source adapts stores to changes.Source.
type source struct{ s *stores }

func (src source) Group(id core.GroupID) *usermark.Group { return src.s.groups[id] }

func (src source) Bookmark(id core.MarkID) *usermark.Bookmark { return src.s.bookmarks[id] }

func (src source) DirtyGroups() []core.GroupID {
	s := src.s
	var out []core.GroupID
	for id, g := range s.groups {
		if g.IsDirty() {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (src source) EachMark(fn func(id core.MarkID, m changes.Item)) {
	for id, b := range src.s.bookmarks {
		fn(id, b)
	}
	for id, um := range src.s.userMarks {
		fn(id, um)
	}
}

func (src source) EachTrack(fn func(id core.TrackID, t changes.Item)) {
	for id, t := range src.s.tracks {
		fn(id, t)
	}
}

func (s *stores) mustGroup(id core.GroupID) *usermark.Group {
	g, ok := s.groups[id]
	if !ok {
		panic(fmt.Sprintf("bookmarks: unknown group %d", id))
	}
	return g
}

func (s *stores) mustCategory(id core.GroupID) *usermark.Group {
	g := s.mustGroup(id)
	if !g.IsCategory() {
		panic(fmt.Sprintf("bookmarks: group %d is a %s, not a category", id, g.Kind()))
	}
	return g
}

func (s *stores) mustBookmark(id core.MarkID) *usermark.Bookmark {
	b, ok := s.bookmarks[id]
	if !ok {
		panic(fmt.Sprintf("bookmarks: unknown bookmark %d", id))
	}
	return b
}

func (s *stores) mustUserMark(id core.MarkID) *usermark.UserMark {
	um, ok := s.userMarks[id]
	if !ok {
		panic(fmt.Sprintf("bookmarks: unknown user mark %d", id))
	}
	return um
}

func (s *stores) mustTrack(id core.TrackID) *usermark.Track {
	t, ok := s.tracks[id]
	if !ok {
		panic(fmt.Sprintf("bookmarks: unknown track %d", id))
	}
	return t
}

// compilationsOf returns the compilations of category id in id order.
func (s *stores) compilationsOf(id core.GroupID) []*usermark.Group {
	var out []*usermark.Group
	for _, g := range s.groups {
		if g.IsCompilation() && g.ParentID() == id {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b *usermark.Group) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}
