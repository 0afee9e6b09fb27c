// pkg/core/file.go
package core

// FileData is everything stored in one bookmarks file.
type FileData struct {
	ServerID     string
	Category     CategoryData
	Bookmarks    []BookmarkData
	Tracks       []TrackData
	Compilations []CategoryData
}

// IsEmpty reports whether the file holds neither bookmarks nor tracks.
func (f *FileData) IsEmpty() bool {
	return len(f.Bookmarks) == 0 && len(f.Tracks) == 0
}

// Clone returns a deep copy.
func (f *FileData) Clone() *FileData {
	out := &FileData{ServerID: f.ServerID, Category: f.Category.Clone()}
	for _, b := range f.Bookmarks {
		out.Bookmarks = append(out.Bookmarks, b.Clone())
	}
	for _, t := range f.Tracks {
		out.Tracks = append(out.Tracks, t.Clone())
	}
	for _, c := range f.Compilations {
		out.Compilations = append(out.Compilations, c.Clone())
	}
	return out
}
