package usermark

import (
	"testing"
	"time"

	"github.com/OCAP2/bookmarks/internal/ids"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func category(id core.GroupID, name string) *Group {
	return NewCategory(core.CategoryData{ID: id, Name: core.NewLocalizableString(name), Visible: true}, true)
}

func TestType(t *testing.T) {
	assert.Equal(t, ids.BookmarkType, uint8(TypeBookmark))
	assert.Equal(t, "TrackSelection", TypeTrackSelection.String())
	assert.Equal(t, "Unknown", TypeCount.String())

	a, err := ids.New(nil, uint64(TypeCount))
	require.NoError(t, err)
	id := a.NextMarkID(uint8(TypeSearch))
	assert.Equal(t, TypeSearch, TypeOf(id))
	assert.Equal(t, TypeBookmark, TypeOf(a.NextBookmarkID()))

	assert.Equal(t, core.InvalidGroupID, LayerID(TypeBookmark))
	assert.Equal(t, core.GroupID(TypeDebug), LayerID(TypeDebug))
	assert.True(t, IsBookmarkGroupID(a.NextGroupID()))
	assert.False(t, IsBookmarkGroupID(LayerID(TypeSearch)))
}

func TestIDSet(t *testing.T) {
	s := NewIDSet[core.MarkID](3, 1)
	assert.True(t, s.Add(2))
	assert.False(t, s.Add(2))
	assert.Equal(t, []core.MarkID{1, 2, 3}, s.Sorted())

	c := s.Clone()
	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1))
	assert.True(t, c.Has(1))

	s.Merge(NewIDSet[core.MarkID](9))
	assert.Equal(t, []core.MarkID{2, 3, 9}, s.Sorted())
}

func TestGroup_Membership(t *testing.T) {
	g := category(FirstCategoryID+1, "Trip")
	g.ResetChanges()

	assert.True(t, g.AttachMark(10))
	assert.False(t, g.AttachMark(10))
	assert.True(t, g.AttachTrack(5))
	assert.True(t, g.IsDirty())
	assert.False(t, g.IsEmpty())

	g.ResetChanges()
	assert.False(t, g.DetachMark(11))
	assert.False(t, g.IsDirty())

	g.Clear()
	assert.True(t, g.IsEmpty())
	assert.True(t, g.IsDirty())
}

func TestGroup_Visibility(t *testing.T) {
	g := category(FirstCategoryID+1, "Trip")
	g.ResetChanges()

	assert.True(t, g.SetVisible(false))
	assert.True(t, g.IsVisibilityChanged())
	assert.True(t, g.SetVisible(true))
	assert.False(t, g.IsVisibilityChanged(), "toggling back within a cycle is not a change")
	assert.False(t, g.SetVisible(true))

	g.SetVisible(false)
	g.ResetChanges()
	assert.False(t, g.IsVisibilityChanged())
	assert.False(t, g.IsDirty())
}

func TestGroup_CategoryOnlySetters(t *testing.T) {
	layer := NewLayer(TypeSearch)
	assert.Equal(t, KindLayer, layer.Kind())
	assert.Equal(t, "", layer.Name())
	assert.Panics(t, func() { layer.SetName("x") })
	assert.Panics(t, func() { layer.SetAccessRules(core.AccessPublic) })
	assert.Panics(t, func() { layer.SetServerID("x") })
	assert.Panics(t, func() { NewLayer(TypeBookmark) })

	g := category(FirstCategoryID+1, "Trip")
	g.SetName("Holiday")
	g.SetDescription("desc")
	g.SetTags([]string{"a"})
	g.SetAccessRules(core.AccessPublic)
	g.SetCustomProperty("k", "v")
	g.SetAuthor("Ann", "42")
	g.SetServerID("srv")

	d := g.Data()
	assert.Equal(t, "Holiday", d.Name.Default())
	assert.Equal(t, "desc", d.Description.Default())
	assert.Equal(t, []string{"a"}, d.Tags)
	assert.Equal(t, core.AccessPublic, d.AccessRules)
	assert.Equal(t, "v", d.Properties["k"])
	assert.Equal(t, "Ann", d.AuthorName)
	assert.Equal(t, "srv", g.ServerID())
	assert.False(t, d.LastModified.IsZero())
}

func TestGroup_SetDataKeepsIdentity(t *testing.T) {
	g := category(FirstCategoryID+1, "Trip")
	g.AttachMark(5)
	g.ResetChanges()

	g.SetData(core.CategoryData{ID: FirstCategoryID + 9, Name: core.NewLocalizableString("Newer")})
	assert.Equal(t, FirstCategoryID+1, g.ID())
	assert.Equal(t, "Newer", g.Name())
	assert.True(t, g.MarkIDs().Has(5))
	assert.False(t, g.IsVisible())
	assert.True(t, g.IsVisibilityChanged())
	assert.True(t, g.IsDirty())

	stamp := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	g.AttachMark(6)
	g.RestoreLastModified(stamp)
	assert.Equal(t, stamp, g.LastModified())
	assert.Panics(t, func() { NewLayer(TypeSearch).RestoreLastModified(stamp) })
}

func TestGroup_CompilationInheritsParent(t *testing.T) {
	parent := category(FirstCategoryID+1, "Guide")
	parent.SetAccessRules(core.AccessPaid)
	parent.SetAuthor("Guides Inc", "7")

	comp := NewCompilation(core.CategoryData{ID: FirstCategoryID + 2, AccessRules: core.AccessLocal}, parent)
	assert.True(t, comp.IsCompilation())
	assert.Equal(t, parent.ID(), comp.ParentID())
	assert.Equal(t, core.AccessPaid, comp.AccessRules())
	assert.Equal(t, "7", comp.AuthorID())

	assert.Panics(t, func() { NewCompilation(core.CategoryData{ID: FirstCategoryID + 3}, comp) })
	assert.Panics(t, func() { category(1, "in layer range") })
}

func TestBookmark(t *testing.T) {
	assert.Panics(t, func() { NewBookmark(core.BookmarkData{}) })

	b := NewBookmark(core.BookmarkData{ID: 1, Name: core.NewLocalizableString("Cafe")})
	assert.True(t, b.IsDirty())
	assert.True(t, b.IsVisible())
	b.ResetChanges()

	b.SetColor(core.ColorBlue)
	assert.True(t, b.IsDirty())
	assert.Equal(t, core.ColorBlue, b.Color())
	b.ResetChanges()

	b.SetAddress("Paris")
	assert.False(t, b.IsDirty())

	b.AttachCompilation(30)
	b.AttachCompilation(20)
	assert.Equal(t, []core.GroupID{20, 30}, b.CompilationIDs())
	assert.True(t, b.InCompilation(30))

	b.ResetChanges()
	assert.True(t, b.SetVisible(false))
	assert.False(t, b.SetVisible(false))
	assert.False(t, b.Data().Visible)

	b.SetData(core.BookmarkData{ID: 99, Name: core.NewLocalizableString("Bar")})
	assert.Equal(t, core.MarkID(1), b.ID())
	assert.Equal(t, "Bar", b.Name())
}

func TestTrack(t *testing.T) {
	line := []core.GeoPoint{
		{LatLon: core.LatLon{Lat: 0, Lon: 0}},
		{LatLon: core.LatLon{Lat: 0, Lon: 1}},
	}
	tr := NewTrack(core.TrackData{ID: 1, Geometry: core.MultiGeometry{Lines: [][]core.GeoPoint{line}}})
	assert.InDelta(t, 111314, tr.Length(), 200)
	assert.Equal(t, core.DefaultTrackColor, tr.Color(0))

	mid := tr.PointAtDistance(tr.Length() / 2)
	assert.InDelta(t, 0.5, mid.Lon, 1e-6)
	assert.Equal(t, line[0].LatLon, tr.PointAtDistance(-1))
	assert.Equal(t, line[1].LatLon, tr.PointAtDistance(tr.Length()*2))

	tr.SetColor(core.ColorData{Predefined: core.ColorRed})
	assert.Equal(t, core.ColorRed.RGBA(), tr.Color(0))
}

func TestUserMark(t *testing.T) {
	assert.Panics(t, func() { NewUserMark(1, TypeBookmark, core.LatLon{}) })

	m := NewUserMark(5, TypeTrackSelection, core.LatLon{Lat: 1, Lon: 2})
	assert.Equal(t, LayerID(TypeTrackSelection), m.GroupID())
	assert.False(t, m.IsTrackMark())
	m.SetTrackID(3)
	assert.True(t, m.IsTrackMark())

	m.ResetChanges()
	m.SetPoint(core.LatLon{Lat: 1, Lon: 2})
	assert.False(t, m.IsDirty())
	m.SetPosition(core.LatLon{Lat: 3, Lon: 4}, 12)
	assert.True(t, m.IsDirty())
	assert.Equal(t, 12.0, m.Distance())
}
