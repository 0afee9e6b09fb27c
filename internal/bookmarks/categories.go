package bookmarks

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// CategoryFilter selects categories by where they come from.
type CategoryFilter uint8

const (
	FilterAll CategoryFilter = iota
	// FilterPrivate keeps categories that were not obtained from the catalog.
	FilterPrivate
	// FilterPublic keeps catalog categories.
	FilterPublic
)

func (m *Manager) matches(g *usermark.Group, filter CategoryFilter) bool {
	switch filter {
	case FilterPrivate:
		return !isFromCatalog(g)
	case FilterPublic:
		return isFromCatalog(g)
	}
	return true
}

func isFromCatalog(g *usermark.Group) bool {
	return g.ServerID() != "" && g.AccessRules() != core.AccessLocal
}

// CreateBookmarkCategory creates a visible, empty category named name.
func (m *Manager) CreateBookmarkCategory(name string, autoSave bool) core.GroupID {
	return m.CreateBookmarkCategoryWithData(core.CategoryData{
		Name:    core.NewLocalizableString(name),
		Visible: true,
	}, autoSave)
}

// CreateBookmarkCategoryWithData creates a category from data. The id in data
// is ignored.
func (m *Manager) CreateBookmarkCategoryWithData(data core.CategoryData, autoSave bool) core.GroupID {
	var id core.GroupID
	m.Edit(func(*EditSession) {
		data.ID = m.ids.NextGroupID()
		data.LastModified = m.now().UTC().Truncate(time.Second)
		id = m.addCategory(usermark.NewCategory(data, autoSave))
	})
	return id
}

// addCategory registers a new category. It must run inside a session.
func (m *Manager) addCategory(g *usermark.Group) core.GroupID {
	if _, ok := m.groups[g.ID()]; ok {
		panic(fmt.Sprintf("bookmarks: group %d registered twice", g.ID()))
	}
	m.groups[g.ID()] = g
	m.categoryOrder = append(m.categoryOrder, g.ID())
	m.tracker.OnAddGroup(g.ID())
	return g.ID()
}

// CheckAndCreateDefaultCategory makes sure at least one category exists.
func (m *Manager) CheckAndCreateDefaultCategory() core.GroupID {
	if len(m.categoryOrder) > 0 {
		return m.categoryOrder[0]
	}
	return m.CreateBookmarkCategory(m.deps.DefaultCategoryName, true)
}

func (m *Manager) setCategoryAccessRules(id core.GroupID, rules core.AccessRules) {
	m.mustCategory(id).SetAccessRules(rules)
	for _, c := range m.compilationsOf(id) {
		c.SetAccessRules(rules)
	}
}

func (m *Manager) GetBookmark(id core.MarkID) (*usermark.Bookmark, bool) {
	b, ok := m.bookmarks[id]
	return b, ok
}

func (m *Manager) GetTrack(id core.TrackID) (*usermark.Track, bool) {
	t, ok := m.tracks[id]
	return t, ok
}

func (m *Manager) GetUserMark(id core.MarkID) (*usermark.UserMark, bool) {
	um, ok := m.userMarks[id]
	return um, ok
}

// GetUserMarkIDs returns the marks of a layer or category in id order.
func (m *Manager) GetUserMarkIDs(groupID core.GroupID) []core.MarkID {
	return m.mustGroup(groupID).MarkIDs().Sorted()
}

// GetTrackIDs returns the tracks of a category in id order.
func (m *Manager) GetTrackIDs(groupID core.GroupID) []core.TrackID {
	return m.mustGroup(groupID).TrackIDs().Sorted()
}

func (m *Manager) IsVisible(groupID core.GroupID) bool {
	return m.mustGroup(groupID).IsVisible()
}

// IsMarkVisible reports whether a mark is drawn. A bookmark needs its own
// flag and a visible category; a track mark follows its track's category.
func (m *Manager) IsMarkVisible(id core.MarkID) bool {
	if b, ok := m.bookmarks[id]; ok {
		g, ok := m.groups[b.GroupID()]
		return ok && b.IsVisible() && g.IsVisible()
	}
	um, ok := m.userMarks[id]
	if !ok || !m.mustGroup(um.GroupID()).IsVisible() {
		return false
	}
	if !um.IsTrackMark() {
		return true
	}
	t, ok := m.tracks[um.TrackID()]
	if !ok {
		return false
	}
	g, ok := m.groups[t.GroupID()]
	return ok && g.IsVisible()
}

func (m *Manager) GetCategoryData(id core.GroupID) core.CategoryData {
	return m.mustGroup(id).Data()
}

func (m *Manager) GetCategoryName(id core.GroupID) string {
	return m.mustGroup(id).Name()
}

func (m *Manager) GetCategoryFileName(id core.GroupID) string {
	return m.mustCategory(id).FileName()
}

// GetCategoryID returns the first category named name.
func (m *Manager) GetCategoryID(name string) (core.GroupID, bool) {
	for _, id := range m.categoryOrder {
		if m.groups[id].Name() == name {
			return id, true
		}
	}
	return core.InvalidGroupID, false
}

// GetBmGroupsIDList returns the categories in creation order.
func (m *Manager) GetBmGroupsIDList() []core.GroupID {
	return slices.Clone(m.categoryOrder)
}

// GetSortedBmGroupIDList returns the categories most recently modified first,
// then by name.
func (m *Manager) GetSortedBmGroupIDList() []core.GroupID {
	out := slices.Clone(m.categoryOrder)
	slices.SortStableFunc(out, func(a, b core.GroupID) int {
		ga, gb := m.groups[a], m.groups[b]
		if c := gb.LastModified().Compare(ga.LastModified()); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(ga.Name()), strings.ToLower(gb.Name()))
	})
	return out
}

func (m *Manager) childrenOfType(parentID core.GroupID, t core.CompilationType) []core.GroupID {
	m.mustCategory(parentID)
	var out []core.GroupID
	for _, c := range m.compilationsOf(parentID) {
		if c.CompilationType() == t {
			out = append(out, c.ID())
		}
	}
	return out
}

// GetChildrenCategories returns the nested categories of a category.
func (m *Manager) GetChildrenCategories(parentID core.GroupID) []core.GroupID {
	return m.childrenOfType(parentID, core.CompilationCategory)
}

// GetChildrenCollections returns the collections of a category.
func (m *Manager) GetChildrenCollections(parentID core.GroupID) []core.GroupID {
	return m.childrenOfType(parentID, core.CompilationCollection)
}

func (m *Manager) HasBmCategory(id core.GroupID) bool {
	g, ok := m.groups[id]
	return ok && g.IsCategory()
}

func (m *Manager) IsCategoryEmpty(id core.GroupID) bool {
	return m.mustCategory(id).IsEmpty()
}

func (m *Manager) IsUsedCategoryName(name string) bool {
	_, ok := m.GetCategoryID(name)
	return ok
}

// AreAllCategoriesVisible reports whether every category passing filter is visible.
func (m *Manager) AreAllCategoriesVisible(filter CategoryFilter) bool {
	return m.allCategories(filter, true)
}

// AreAllCategoriesInvisible reports whether every category passing filter is hidden.
func (m *Manager) AreAllCategoriesInvisible(filter CategoryFilter) bool {
	return m.allCategories(filter, false)
}

func (m *Manager) allCategories(filter CategoryFilter, visible bool) bool {
	for _, id := range m.categoryOrder {
		g := m.groups[id]
		if m.matches(g, filter) && g.IsVisible() != visible {
			return false
		}
	}
	return true
}

// SetAllCategoriesVisibility shows or hides every category passing filter.
func (m *Manager) SetAllCategoriesVisibility(filter CategoryFilter, visible bool) {
	m.Edit(func(s *EditSession) {
		for _, id := range m.categoryOrder {
			if m.matches(m.groups[id], filter) {
				s.SetIsVisible(id, visible)
			}
		}
	})
}

// IsCategoryFromCatalog reports whether a category was downloaded from or
// published to the catalog with non-local access.
func (m *Manager) IsCategoryFromCatalog(id core.GroupID) bool {
	return isFromCatalog(m.mustCategory(id))
}

// IsMyCategory reports whether the current user authored the category.
func (m *Manager) IsMyCategory(id core.GroupID) bool {
	g := m.mustCategory(id)
	return m.deps.UserID != "" && g.AuthorID() == m.deps.UserID
}

// IsEditableCategory reports whether the user may change a category: local
// ones always, catalog ones only when they authored them.
func (m *Manager) IsEditableCategory(id core.GroupID) bool {
	return !m.IsCategoryFromCatalog(id) || m.IsMyCategory(id)
}

// GetCategoryCatalogDeeplink returns the catalog link of a category, or ""
// for local categories.
func (m *Manager) GetCategoryCatalogDeeplink(id core.GroupID) string {
	g := m.mustCategory(id)
	if !isFromCatalog(g) {
		return ""
	}
	return m.deps.DeeplinkBase + g.ServerID()
}

// FindNearestUserMark returns the visible mark closest to p.
func (m *Manager) FindNearestUserMark(p core.LatLon) (core.MarkID, bool) {
	return m.index.Nearest(p, m.IsMarkVisible)
}

// FindMarksInRect returns the visible marks within radiusMeters of center,
// in id order.
func (m *Manager) FindMarksInRect(center core.LatLon, radiusMeters float64) []core.MarkID {
	var out []core.MarkID
	for _, id := range m.index.InRect(center, radiusMeters) {
		if m.IsMarkVisible(id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// LastEditedBMCategory returns the category new bookmarks go to by default.
// It falls back to the first category, creating the default one if needed.
func (m *Manager) LastEditedBMCategory() core.GroupID {
	if m.HasBmCategory(m.lastEditedCategory) {
		return m.lastEditedCategory
	}
	m.lastEditedCategory = m.CheckAndCreateDefaultCategory()
	return m.lastEditedCategory
}

// SetLastEditedBMCategory remembers id and persists the file it is kept in.
func (m *Manager) SetLastEditedBMCategory(id core.GroupID) {
	g := m.mustCategory(id)
	m.lastEditedCategory = id
	if m.deps.Settings == nil || g.FileName() == "" {
		return
	}
	if err := m.deps.Settings.SetLastEditedCategoryFile(filepath.Base(g.FileName())); err != nil {
		m.log.Warn("failed to persist last edited category", "category", id, "error", err)
	}
}

// LastEditedBMColor returns the color new bookmarks get by default.
func (m *Manager) LastEditedBMColor() core.PredefinedColor {
	if m.lastEditedColor == core.ColorNone {
		return core.ColorRed
	}
	return m.lastEditedColor
}

func (m *Manager) SetLastEditedBMColor(c core.PredefinedColor) {
	if c == core.ColorNone || c == m.lastEditedColor {
		return
	}
	m.lastEditedColor = c
	if m.deps.Settings == nil {
		return
	}
	if err := m.deps.Settings.SetLastEditedColor(c); err != nil {
		m.log.Warn("failed to persist last edited color", "color", c, "error", err)
	}
}

func (m *Manager) restoreLastEditedColor() {
	if m.deps.Settings == nil {
		return
	}
	c, err := m.deps.Settings.LastEditedColor()
	if err != nil {
		m.log.Warn("failed to read last edited color", "error", err)
		return
	}
	m.lastEditedColor = c
}

// restoreLastEditedCategory matches the persisted file name against the
// loaded categories.
func (m *Manager) restoreLastEditedCategory() {
	if m.deps.Settings == nil {
		return
	}
	file, err := m.deps.Settings.LastEditedCategoryFile()
	if err != nil {
		m.log.Warn("failed to read last edited category", "error", err)
		return
	}
	if file == "" {
		return
	}
	for _, id := range m.categoryOrder {
		if filepath.Base(m.groups[id].FileName()) == file {
			m.lastEditedCategory = id
			return
		}
	}
}
