package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/OCAP2/bookmarks/internal/bookmarks"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
)

const usage = `usage: bookmarks [--config dir] <command> [args]

commands:
  list                              list categories
  export <category>... [--gpx]      export categories for sharing
  sort <category> <ByName|ByTime|ByType>
                                    print a category in sorted blocks
  trash                             list recently deleted categories
  import <file>                     import a KML, KMZ, GPX or GeoJSON file
  publish <category> [--access r]   upload a category to the catalog
  download <server-id> [name]       download and import a catalog category`

var errUsage = errors.New(usage)

// options are the flags that affect individual commands.
type options struct {
	GPX    bool
	Access string
}

// run executes one command against a with the given arguments.
func run(ctx context.Context, a *app, w io.Writer, opts options, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if err := a.loadAll(ctx); err != nil {
		return err
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	a.log.Debug("Running command", "command", cmd, "args", rest)
	switch cmd {
	case "list":
		return listCategories(a, w)
	case "export":
		return exportCategories(ctx, a, w, rest, opts.GPX)
	case "sort":
		return sortCategory(ctx, a, w, rest)
	case "trash":
		return listTrash(ctx, a, w)
	case "import":
		return importFile(ctx, a, w, rest)
	case "publish":
		return publishCategory(ctx, a, w, rest, core.ParseAccessRules(opts.Access))
	case "download":
		return downloadCategory(ctx, a, w, rest)
	}
	return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
}

func lookupCategories(m *bookmarks.Manager, names []string) ([]core.GroupID, error) {
	out := make([]core.GroupID, 0, len(names))
	for _, name := range names {
		id, ok := m.GetCategoryID(name)
		if !ok {
			return nil, fmt.Errorf("no category named %q", name)
		}
		out = append(out, id)
	}
	return out, nil
}

func listCategories(a *app, w io.Writer) error {
	m := a.manager
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBOOKMARKS\tTRACKS\tVISIBLE\tACCESS\tFILE")
	for _, id := range m.GetSortedBmGroupIDList() {
		data := m.GetCategoryData(id)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%s\t%s\n",
			m.GetCategoryName(id),
			len(m.GetUserMarkIDs(id)),
			len(m.GetTrackIDs(id)),
			m.IsVisible(id),
			data.AccessRules,
			m.GetCategoryFileName(id),
		)
	}
	return tw.Flush()
}

func exportCategories(ctx context.Context, a *app, w io.Writer, names []string, gpx bool) error {
	if len(names) == 0 {
		return fmt.Errorf("export needs at least one category\n%w", errUsage)
	}
	ids, err := lookupCategories(a.manager, names)
	if err != nil {
		return err
	}
	fileType := kml.FileTypeKML
	if gpx {
		fileType = kml.FileTypeGPX
	}

	var result *storage.SharingResult
	a.manager.PrepareFileForSharing(ids, func(r storage.SharingResult) { result = &r }, fileType)
	if err := a.wait(ctx, func() bool { return result != nil }); err != nil {
		return err
	}
	if result.Code != storage.SharingSuccess {
		return fmt.Errorf("export failed (%s): %s", result.Code, result.ErrorString)
	}
	fmt.Fprintf(w, "%s\t%s\n", result.SharingPath, result.MimeType)
	return nil
}

func sortCategory(ctx context.Context, a *app, w io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("sort needs a category and a sorting type\n%w", errUsage)
	}
	ids, err := lookupCategories(a.manager, args[:1])
	if err != nil {
		return err
	}
	id := ids[0]
	st, ok := core.ParseSortingType(args[1])
	if !ok || st == core.SortByDistance {
		return fmt.Errorf("unsupported sorting type %q", args[1])
	}

	var (
		done   bool
		blocks []core.SortedBlock
		status core.SortStatus
	)
	a.manager.GetSortedCategory(bookmarks.SortParams{
		GroupID:     id,
		SortingType: st,
		Timestamp:   time.Now().UnixNano(),
		OnResults: func(b []core.SortedBlock, s core.SortStatus, _ int64) {
			blocks, status, done = b, s, true
		},
	})
	if err := a.wait(ctx, func() bool { return done }); err != nil {
		return err
	}
	if status == core.SortCancelled {
		return errors.New("sorting was cancelled")
	}

	a.manager.SetLastSortingType(id, st)
	for _, b := range blocks {
		fmt.Fprintf(w, "%s\n", b.Name)
		for _, mid := range b.MarkIDs {
			if bm, ok := a.manager.GetBookmark(mid); ok {
				fmt.Fprintf(w, "  %s\n", bm.Name())
			}
		}
		for _, tid := range b.TrackIDs {
			if tr, ok := a.manager.GetTrack(tid); ok {
				fmt.Fprintf(w, "  %s (%.0f m)\n", tr.Name(), tr.Length())
			}
		}
	}
	return nil
}

func listTrash(ctx context.Context, a *app, w io.Writer) error {
	var (
		done    bool
		files   []storage.TrashedFile
		listErr error
	)
	a.manager.GetRecentlyDeletedCategories(func(f []storage.TrashedFile, err error) {
		files, listErr, done = f, err, true
	})
	if err := a.wait(ctx, func() bool { return done }); err != nil {
		return err
	}
	if listErr != nil {
		return fmt.Errorf("listing trash: %w", listErr)
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\n", f.TrashedAt.Format(time.RFC3339), f.Path)
	}
	return nil
}

func importFile(ctx context.Context, a *app, w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import needs one file\n%w", errUsage)
	}
	var done, ok bool
	a.manager.SetAsyncLoadingCallbacks(bookmarks.LoadingCallbacks{
		FileSuccess: func(string, bool) { ok, done = true, true },
		FileError:   func(string, bool) { done = true },
	})
	a.manager.LoadBookmark(args[0], false)
	if err := a.wait(ctx, func() bool { return done }); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("could not import %s", args[0])
	}
	fmt.Fprintf(w, "imported %s\n", args[0])
	return nil
}

func publishCategory(ctx context.Context, a *app, w io.Writer, args []string, rules core.AccessRules) error {
	if len(args) != 1 {
		return fmt.Errorf("publish needs one category\n%w", errUsage)
	}
	ids, err := lookupCategories(a.manager, args)
	if err != nil {
		return err
	}

	var (
		done     bool
		result   bookmarks.UploadResult
		desc     string
		serverID string
	)
	a.manager.SetCatalogHandlers(bookmarks.CatalogHandlers{
		UploadFinished: func(r bookmarks.UploadResult, d string, _ core.GroupID, id string) {
			result, desc, serverID, done = r, d, id, true
		},
	})
	a.manager.UploadToCatalog(ids[0], rules)
	if err := a.wait(ctx, func() bool { return done }); err != nil {
		return err
	}
	if result != bookmarks.UploadSuccess {
		return fmt.Errorf("upload failed (%s): %s", result, desc)
	}
	fmt.Fprintf(w, "published %s as %s\n", args[0], serverID)
	return nil
}

func downloadCategory(ctx context.Context, a *app, w io.Writer, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("download needs a server id\n%w", errUsage)
	}
	serverID, name := args[0], ""
	if len(args) == 2 {
		name = args[1]
	}

	var (
		done     bool
		download bookmarks.DownloadResult
		imported core.GroupID
		ok       bool
	)
	a.manager.SetCatalogHandlers(bookmarks.CatalogHandlers{
		DownloadFinished: func(_ string, r bookmarks.DownloadResult) {
			download = r
			if r != bookmarks.DownloadSuccess {
				done = true
			}
		},
		ImportFinished: func(_ string, id core.GroupID, success bool) {
			imported, ok, done = id, success, true
		},
	})
	a.manager.DownloadFromCatalogAndImport(serverID, name)
	if err := a.wait(ctx, func() bool { return done }); err != nil {
		return err
	}
	if download != bookmarks.DownloadSuccess {
		return fmt.Errorf("download failed: %s", download)
	}
	if !ok {
		return fmt.Errorf("could not import %s", serverID)
	}
	fmt.Fprintf(w, "imported %s as %q\n", serverID, a.manager.GetCategoryName(imported))
	return nil
}
