package bookmarks

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/OCAP2/bookmarks/internal/catalog"
	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// UploadResult is the outcome of publishing a category.
type UploadResult uint8

const (
	UploadSuccess UploadResult = iota
	UploadNetworkError
	UploadServerError
	UploadAuthError
	UploadMalformedDataError
	UploadInvalidCall
)

func (r UploadResult) String() string {
	switch r {
	case UploadSuccess:
		return "Success"
	case UploadNetworkError:
		return "NetworkError"
	case UploadServerError:
		return "ServerError"
	case UploadAuthError:
		return "AuthError"
	case UploadMalformedDataError:
		return "MalformedDataError"
	case UploadInvalidCall:
		return "InvalidCall"
	}
	return "Unknown"
}

// DownloadResult is the outcome of fetching a category from the catalog.
type DownloadResult uint8

const (
	DownloadSuccess DownloadResult = iota
	DownloadNetworkError
	DownloadServerError
	DownloadDiskError
	DownloadCancelled
)

func (r DownloadResult) String() string {
	switch r {
	case DownloadSuccess:
		return "Success"
	case DownloadNetworkError:
		return "NetworkError"
	case DownloadServerError:
		return "ServerError"
	case DownloadDiskError:
		return "DiskError"
	case DownloadCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// CatalogHandlers report catalog exchange progress on the loop. Any of them
// may be nil.
type CatalogHandlers struct {
	DownloadStarted  func(serverID string)
	DownloadFinished func(serverID string, result DownloadResult)
	ImportStarted    func(serverID string)
	ImportFinished   func(serverID string, groupID core.GroupID, ok bool)
	UploadStarted    func(categoryID core.GroupID)
	// UploadFinished gets the server id of the published copy on success.
	UploadFinished func(result UploadResult, description string, originID core.GroupID, resultID string)
}

func (m *Manager) SetCatalogHandlers(h CatalogHandlers) {
	m.catalogHandlers = h
}

func classifyDownload(err error) DownloadResult {
	var urlErr *url.Error
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return DownloadSuccess
	case errors.Is(err, context.Canceled):
		return DownloadCancelled
	case errors.As(err, &urlErr):
		return DownloadNetworkError
	case errors.As(err, &pathErr):
		return DownloadDiskError
	default:
		return DownloadServerError
	}
}

func classifyUpload(err error) UploadResult {
	var urlErr *url.Error
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return UploadSuccess
	case errors.As(err, &urlErr):
		return UploadNetworkError
	case errors.As(err, &pathErr):
		return UploadMalformedDataError
	default:
		return UploadServerError
	}
}

type uploadOutcome struct {
	serverID string
	code     storage.SharingCode
}

// UploadToCatalog publishes a category. A category the user published before
// keeps its server id. On success the category takes the server id, the
// access rules and the user as author.
func (m *Manager) UploadToCatalog(categoryID core.GroupID, rules core.AccessRules) {
	finished := func(res UploadResult, desc, resultID string) {
		if cb := m.catalogHandlers.UploadFinished; cb != nil {
			cb(res, desc, categoryID, resultID)
		}
	}

	g, ok := m.groups[categoryID]
	switch {
	case m.deps.Catalog == nil:
		finished(UploadInvalidCall, "catalog is not configured", "")
		return
	case !ok || !g.IsCategory():
		finished(UploadInvalidCall, "unknown category", "")
		return
	case g.IsEmpty():
		finished(UploadMalformedDataError, "category is empty", "")
		return
	case m.IsCategoryFromCatalog(categoryID) && !m.IsMyCategory(categoryID):
		finished(UploadInvalidCall, "category belongs to another author", "")
		return
	}

	if cb := m.catalogHandlers.UploadStarted; cb != nil {
		cb(categoryID)
	}

	serverID := ""
	if m.IsMyCategory(categoryID) {
		serverID = g.ServerID()
	}
	item := storage.ExportItem{Name: g.Name(), Data: m.snapshot(categoryID)}
	meta := catalog.UploadMetadata{
		Name:        g.Name(),
		AccessRules: rules.String(),
		AuthorID:    m.deps.UserID,
		ServerID:    serverID,
	}
	client := m.deps.Catalog
	tempDir := m.deps.Paths.TempDir
	now := m.now()

	m.submit(dispatcher.Job{
		Kind: dispatcher.KindCatalog,
		Name: "upload " + g.Name(),
		Run: func(ctx context.Context) dispatcher.Result {
			if err := os.MkdirAll(tempDir, 0o755); err != nil {
				return dispatcher.Failure(err)
			}
			exported := storage.ExportKMZ(tempDir, item, now)
			if exported.Code != storage.SharingSuccess {
				return dispatcher.Result{
					Value: uploadOutcome{code: exported.Code},
					Err:   errors.New(exported.ErrorString),
				}
			}
			defer os.Remove(exported.SharingPath)

			id, err := client.Upload(ctx, exported.SharingPath, meta)
			if err != nil {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(uploadOutcome{serverID: id})
		},
		Done: func(r dispatcher.Result) {
			out, _ := r.Value.(uploadOutcome)
			if r.Err != nil || r.Cancelled {
				res := classifyUpload(r.Err)
				if out.code != storage.SharingSuccess {
					res = UploadMalformedDataError
				}
				desc := "cancelled"
				if r.Err != nil {
					desc = r.Err.Error()
				}
				m.log.Warn("catalog upload failed", "category", categoryID, "result", res, "error", desc)
				finished(res, desc, "")
				return
			}
			m.linkUploaded(categoryID, out.serverID, rules)
			finished(UploadSuccess, "", out.serverID)
		},
	})
}

// linkUploaded records a successful upload on the category, if it still
// exists, and in the registry.
func (m *Manager) linkUploaded(categoryID core.GroupID, serverID string, rules core.AccessRules) {
	g, ok := m.groups[categoryID]
	if !ok || !g.IsCategory() {
		return
	}
	m.Edit(func(*EditSession) {
		g.SetServerID(serverID)
		m.setCategoryAccessRules(categoryID, rules)
		g.SetAuthor(g.Data().AuthorName, m.deps.UserID)
	})
	m.register(g.ID())
}

func (m *Manager) register(id core.GroupID) {
	reg := m.deps.Registry
	g := m.groups[id]
	if reg == nil || g.ServerID() == "" {
		return
	}
	data := g.Data()
	e := &catalog.Entry{
		ServerID:    g.ServerID(),
		FileName:    filepath.Base(m.ensureFileName(g)),
		AccessRules: data.AccessRules.String(),
		AuthorID:    data.AuthorID,
		AuthorName:  data.AuthorName,
		UpdatedAt:   m.now().UTC(),
	}
	if len(data.Properties) > 0 {
		e.Properties = make(map[string]any, len(data.Properties))
		for k, v := range data.Properties {
			e.Properties[k] = v
		}
	}
	if err := reg.Put(e); err != nil {
		m.log.Warn("failed to register catalog link", "serverId", e.ServerID, "error", err)
	}
}

// DownloadFromCatalogAndImport fetches a published category into the temp
// directory and imports it.
func (m *Manager) DownloadFromCatalogAndImport(serverID, name string) {
	finished := func(res DownloadResult) {
		if cb := m.catalogHandlers.DownloadFinished; cb != nil {
			cb(serverID, res)
		}
	}
	if m.deps.Catalog == nil || serverID == "" {
		finished(DownloadServerError)
		return
	}
	if cb := m.catalogHandlers.DownloadStarted; cb != nil {
		cb(serverID)
	}

	if name == "" {
		name = serverID
	}
	client := m.deps.Catalog
	tempDir := m.deps.Paths.TempDir
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindCatalog,
		Name: "download " + serverID,
		Run: func(ctx context.Context) dispatcher.Result {
			if err := os.MkdirAll(tempDir, 0o755); err != nil {
				return dispatcher.Failure(err)
			}
			dest := storage.GenerateValidAndUniqueFilePath(tempDir, name, kml.FileTypeKMZ)
			if err := client.Download(ctx, serverID, dest); err != nil {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(dest)
		},
		Done: func(r dispatcher.Result) {
			if r.Cancelled {
				finished(DownloadCancelled)
				return
			}
			if r.Err != nil {
				res := classifyDownload(r.Err)
				m.log.Warn("catalog download failed", "serverId", serverID, "result", res, "error", r.Err)
				finished(res)
				return
			}
			finished(DownloadSuccess)
			m.ImportDownloadedFromCatalog(serverID, r.Value.(string))
		},
	})
}

// ImportDownloadedFromCatalog loads a downloaded file and links the
// resulting category to serverID. The file is removed once imported.
func (m *Manager) ImportDownloadedFromCatalog(serverID, path string) {
	if cb := m.catalogHandlers.ImportStarted; cb != nil {
		cb(serverID)
	}
	m.enqueueLoad(loadRequest{
		path:      path,
		temporary: true,
		done: func(groups []core.GroupID, err error) {
			if err != nil || len(groups) == 0 {
				if err != nil {
					m.log.Warn("catalog import failed", "serverId", serverID, "error", err)
				}
				if cb := m.catalogHandlers.ImportFinished; cb != nil {
					cb(serverID, core.InvalidGroupID, false)
				}
				return
			}
			id := groups[0]
			if g, ok := m.groups[id]; ok && g.ServerID() != serverID {
				m.Edit(func(*EditSession) {
					g.SetServerID(serverID)
				})
			}
			m.register(id)
			if cb := m.catalogHandlers.ImportFinished; cb != nil {
				cb(serverID, id, true)
			}
		},
	})
}
