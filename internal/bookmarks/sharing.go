package bookmarks

import (
	"context"
	"slices"

	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// SharingHandler receives the outcome of an export on the loop.
type SharingHandler func(storage.SharingResult)

// PrepareFileForSharing exports categories into the temp directory. One
// category is written as fileType; several always become a KMZ bundle.
func (m *Manager) PrepareFileForSharing(ids []core.GroupID, handler SharingHandler, fileType kml.FileType) {
	items := make([]storage.ExportItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, storage.ExportItem{Name: m.mustCategory(id).Name(), Data: m.snapshot(id)})
	}
	m.export("share categories", slices.Clone(ids), items, fileType, handler)
}

// PrepareTrackFileForSharing exports a single track with its category's
// metadata.
func (m *Manager) PrepareTrackFileForSharing(trackID core.TrackID, handler SharingHandler, fileType kml.FileType) {
	t := m.mustTrack(trackID)
	data := &core.FileData{}
	var ids []core.GroupID
	if g, ok := m.groups[t.GroupID()]; ok && !g.IsLayer() {
		data.Category = g.Data()
		data.Category.CompilationIDs = nil
		ids = []core.GroupID{g.ID()}
	}
	data.Category.Name = core.NewLocalizableString(t.Name())
	data.Tracks = []core.TrackData{t.Data()}
	m.export("share track", ids, []storage.ExportItem{{Name: t.Name(), Data: data}}, fileType, handler)
}

func (m *Manager) export(name string, ids []core.GroupID, items []storage.ExportItem, fileType kml.FileType, handler SharingHandler) {
	tempDir := m.deps.Paths.TempDir
	now := m.now()
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindExport,
		Name: name,
		Run: func(context.Context) dispatcher.Result {
			return dispatcher.Success(storage.Export(tempDir, items, fileType, now))
		},
		Done: func(r dispatcher.Result) {
			res, ok := r.Value.(storage.SharingResult)
			if !ok {
				res = storage.SharingResult{Code: storage.SharingFileError}
				if r.Err != nil {
					res.ErrorString = r.Err.Error()
				}
			}
			res.CategoryIDs = ids
			if res.Code != storage.SharingSuccess {
				m.log.Warn("sharing failed", "code", res.Code, "error", res.ErrorString)
			}
			if handler != nil {
				handler(res)
			}
		},
	})
}
