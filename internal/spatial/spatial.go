// Package spatial indexes mark positions for nearest and area queries.
package spatial

import (
	"slices"

	"github.com/OCAP2/bookmarks/internal/geo"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/dhconnelly/rtreego"
)

// pointTolerance gives point entries a non-zero extent, in mercator metres.
const pointTolerance = 0.01

type entry struct {
	id   core.MarkID
	x, y float64
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return rtreego.Point{e.x, e.y}.ToRect(pointTolerance)
}

// Index is an R-tree of mark positions in EPSG:3857. It is not safe for
// concurrent use; the bookmark core owns it.
type Index struct {
	tree    *rtreego.Rtree
	entries map[core.MarkID]*entry
}

// New creates an empty index.
func New() *Index {
	return &Index{
		tree:    rtreego.NewTree(2, 25, 50),
		entries: make(map[core.MarkID]*entry),
	}
}

// Len returns the number of indexed marks.
func (i *Index) Len() int { return len(i.entries) }

// Upsert inserts id at p or moves it there.
func (i *Index) Upsert(id core.MarkID, p core.LatLon) {
	x, y := geo.ToMercator(p)
	if e, ok := i.entries[id]; ok {
		if e.x == x && e.y == y {
			return
		}
		i.tree.Delete(e)
	}
	e := &entry{id: id, x: x, y: y}
	i.entries[id] = e
	i.tree.Insert(e)
}

// Remove drops id. Unknown ids are ignored.
func (i *Index) Remove(id core.MarkID) {
	e, ok := i.entries[id]
	if !ok {
		return
	}
	i.tree.Delete(e)
	delete(i.entries, id)
}

// Clear empties the index.
func (i *Index) Clear() {
	i.tree = rtreego.NewTree(2, 25, 50)
	i.entries = make(map[core.MarkID]*entry)
}

// Nearest returns the closest mark accepted by filter. A nil filter accepts all.
func (i *Index) Nearest(p core.LatLon, filter func(core.MarkID) bool) (core.MarkID, bool) {
	if len(i.entries) == 0 {
		return core.InvalidMarkID, false
	}
	x, y := geo.ToMercator(p)
	var filters []rtreego.Filter
	if filter != nil {
		filters = append(filters, func(_ []rtreego.Spatial, obj rtreego.Spatial) (refuse, abort bool) {
			return !filter(obj.(*entry).id), false
		})
	}
	for _, s := range i.tree.NearestNeighbors(1, rtreego.Point{x, y}, filters...) {
		if e, ok := s.(*entry); ok && e != nil {
			return e.id, true
		}
	}
	return core.InvalidMarkID, false
}

// InRect returns the marks inside the square of the given half-size around
// center, in ascending id order.
func (i *Index) InRect(center core.LatLon, radiusMeters float64) []core.MarkID {
	if len(i.entries) == 0 || radiusMeters <= 0 {
		return nil
	}
	lo, hi := geo.MercatorRect(center, radiusMeters)
	rect, err := rtreego.NewRect(rtreego.Point{lo.X, lo.Y}, []float64{hi.X - lo.X, hi.Y - lo.Y})
	if err != nil {
		return nil
	}
	found := i.tree.SearchIntersect(rect)
	out := make([]core.MarkID, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*entry).id)
	}
	slices.Sort(out)
	return out
}
