package kml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/bookmarks/internal/geo"
	"github.com/OCAP2/bookmarks/pkg/core"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

const placemarkStylePrefix = "#placemark-"

type kmlFile struct {
	XMLName  xml.Name     `xml:"kml"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	Document *kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name         string         `xml:"name,omitempty"`
	Description  string         `xml:"description,omitempty"`
	Visibility   string         `xml:"visibility,omitempty"`
	ExtendedData *kmlExtended   `xml:"ExtendedData"`
	Folders      []kmlFolder    `xml:"Folder"`
	Placemarks   []kmlPlacemark `xml:"Placemark"`
}

type kmlFolder struct {
	Name         string         `xml:"name,omitempty"`
	Description  string         `xml:"description,omitempty"`
	Visibility   string         `xml:"visibility,omitempty"`
	ExtendedData *kmlExtended   `xml:"ExtendedData"`
	Folders      []kmlFolder    `xml:"Folder"`
	Placemarks   []kmlPlacemark `xml:"Placemark"`
}

type kmlExtended struct {
	Data []kmlData `xml:"Data"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlPlacemark struct {
	Name          string            `xml:"name,omitempty"`
	Description   string            `xml:"description,omitempty"`
	Visibility    string            `xml:"visibility,omitempty"`
	TimeStamp     *kmlTimeStamp     `xml:"TimeStamp"`
	StyleURL      string            `xml:"styleUrl,omitempty"`
	Style         *kmlStyle         `xml:"Style"`
	ExtendedData  *kmlExtended      `xml:"ExtendedData"`
	Point         *kmlCoordinates   `xml:"Point"`
	LineString    *kmlCoordinates   `xml:"LineString"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
	Track         *kmlTrack         `xml:"Track"`
	MultiTrack    *kmlMultiTrack    `xml:"MultiTrack"`
}

type kmlTimeStamp struct {
	When string `xml:"when"`
}

type kmlCoordinates struct {
	Coordinates string `xml:"coordinates"`
}

type kmlMultiGeometry struct {
	LineStrings []kmlCoordinates `xml:"LineString"`
}

// kmlTrack is a gx:Track as written by third-party tools.
type kmlTrack struct {
	When   []string `xml:"when"`
	Coords []string `xml:"coord"`
}

type kmlMultiTrack struct {
	Tracks []kmlTrack `xml:"Track"`
}

type kmlStyle struct {
	LineStyle *kmlLineStyle `xml:"LineStyle"`
}

type kmlLineStyle struct {
	Color string `xml:"color,omitempty"`
	Width string `xml:"width,omitempty"`
}

// ExtendedData keys.
const (
	keyID             = "id"
	keyLocalID        = "localId"
	keyServerID       = "serverId"
	keyCompilationID  = "compilationId"
	keyType           = "type"
	keyAnnotation     = "annotation"
	keyImageURL       = "imageUrl"
	keyAuthorName     = "authorName"
	keyAuthorID       = "authorId"
	keyLastModified   = "lastModified"
	keyRating         = "rating"
	keyReviews        = "reviewsNumber"
	keyAccessRules    = "accessRules"
	keyTags           = "tags"
	keyToponyms       = "toponyms"
	keyLanguages      = "languages"
	keyCompilations   = "compilations"
	keyCustomName     = "customName"
	keyFeatureTypes   = "featureTypes"
	keyRGBA           = "rgba"
	keyIcon           = "icon"
	keyScale          = "scale"
	keyBoundTracks    = "boundTracks"
	keyNearestToponym = "nearestToponym"
	keyMinZoom        = "minZoom"
	keyAddress        = "address"
	keyLayers         = "layers"
	keyTimestamps     = "timestamps"
	keyName           = "name"
	keyDescription    = "description"
	propPrefix        = "prop:"
)

// extBuilder accumulates ExtendedData entries, skipping empty values.
type extBuilder struct {
	data []kmlData
}

func (b *extBuilder) add(name, value string) {
	if value == "" {
		return
	}
	b.data = append(b.data, kmlData{Name: name, Value: value})
}

func (b *extBuilder) addLocalized(key string, s core.LocalizableString) {
	for _, lang := range sortedKeys(s) {
		if lang == core.DefaultLang {
			continue
		}
		b.add(key+":"+lang, s[lang])
	}
}

func (b *extBuilder) addProperties(p map[string]string) {
	for _, k := range sortedKeys(p) {
		b.add(propPrefix+k, p[k])
	}
}

func (b *extBuilder) build() *kmlExtended {
	if len(b.data) == 0 {
		return nil
	}
	return &kmlExtended{Data: b.data}
}

// extReader gives keyed access to decoded ExtendedData.
type extReader map[string]string

func newExtReader(e *kmlExtended) extReader {
	r := extReader{}
	if e == nil {
		return r
	}
	for _, d := range e.Data {
		r[d.Name] = strings.TrimSpace(d.Value)
	}
	return r
}

func (r extReader) localized(key, def string) core.LocalizableString {
	var out core.LocalizableString
	if def = strings.TrimSpace(def); def != "" {
		out = core.LocalizableString{core.DefaultLang: def}
	}
	prefix := key + ":"
	for k, v := range r {
		if lang, ok := strings.CutPrefix(k, prefix); ok && v != "" {
			if out == nil {
				out = core.LocalizableString{}
			}
			out[lang] = v
		}
	}
	return out
}

func (r extReader) properties() map[string]string {
	var out map[string]string
	for k, v := range r {
		if name, ok := strings.CutPrefix(k, propPrefix); ok {
			if out == nil {
				out = make(map[string]string)
			}
			out[name] = v
		}
	}
	return out
}

func (r extReader) uint64(key string) uint64 {
	v, _ := strconv.ParseUint(r[key], 10, 64)
	return v
}

func (r extReader) list(key string) []string {
	if r[key] == "" {
		return nil
	}
	return strings.Split(r[key], ",")
}

func (r extReader) uint64List(key string) []uint64 {
	var out []uint64
	for _, s := range r.list(key) {
		if v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinUints[T ~uint8 | ~uint32 | ~uint64](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ",")
}

func formatVisibility(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// parseVisibility treats a missing element as visible, as KML does.
func parseVisibility(s string) bool {
	return strings.TrimSpace(s) != "0"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func formatID(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

// kmlColor converts RRGGBBAA to KML's aabbggrr.
func kmlColor(rgba uint32) string {
	r, g, b, a := rgba>>24, (rgba>>16)&0xFF, (rgba>>8)&0xFF, rgba&0xFF
	return fmt.Sprintf("%02x%02x%02x%02x", a, b, g, r)
}

func parseKMLColor(s string) (uint32, bool) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "#"), 16, 32)
	if err != nil {
		return 0, false
	}
	a, b, g, r := uint32(v>>24), uint32(v>>16)&0xFF, uint32(v>>8)&0xFF, uint32(v)&0xFF
	return r<<24 | g<<16 | b<<8 | a, true
}

func writeKML(w io.Writer, data *core.FileData) error {
	doc := &kmlDocument{}
	doc.Name, doc.Description, doc.Visibility, doc.ExtendedData = encodeCategory(&data.Category, data.ServerID)

	for i := range data.Compilations {
		c := &data.Compilations[i]
		f := kmlFolder{}
		f.Name, f.Description, f.Visibility, f.ExtendedData = encodeCategory(c, "")
		doc.Folders = append(doc.Folders, f)
	}
	for i := range data.Bookmarks {
		doc.Placemarks = append(doc.Placemarks, encodeBookmark(&data.Bookmarks[i]))
	}
	for i := range data.Tracks {
		doc.Placemarks = append(doc.Placemarks, encodeTrack(&data.Tracks[i]))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing kml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(kmlFile{Xmlns: kmlNamespace, Document: doc}); err != nil {
		return fmt.Errorf("encoding kml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing kml: %w", err)
	}
	return nil
}

func encodeCategory(c *core.CategoryData, serverID string) (name, desc, vis string, ext *kmlExtended) {
	var b extBuilder
	b.add(keyID, formatID(uint64(c.ID)))
	b.add(keyServerID, serverID)
	b.add(keyCompilationID, formatID(c.CompilationID))
	if c.Type != core.CompilationCategory {
		b.add(keyType, c.Type.String())
	}
	b.addLocalized(keyName, c.Name)
	b.addLocalized(keyDescription, c.Description)
	b.add(keyAnnotation, c.Annotation.Default())
	b.addLocalized(keyAnnotation, c.Annotation)
	b.add(keyImageURL, c.ImageURL)
	b.add(keyAuthorName, c.AuthorName)
	b.add(keyAuthorID, c.AuthorID)
	b.add(keyLastModified, formatTime(c.LastModified))
	if c.Rating != 0 {
		b.add(keyRating, strconv.FormatFloat(c.Rating, 'f', -1, 64))
	}
	if c.ReviewsNumber != 0 {
		b.add(keyReviews, strconv.FormatUint(uint64(c.ReviewsNumber), 10))
	}
	if c.AccessRules != core.AccessLocal {
		b.add(keyAccessRules, c.AccessRules.String())
	}
	b.add(keyTags, strings.Join(c.Tags, ","))
	b.add(keyToponyms, strings.Join(c.Toponyms, ","))
	b.add(keyLanguages, strings.Join(c.Languages, ","))
	b.add(keyCompilations, joinUints(c.CompilationIDs))
	b.addProperties(c.Properties)
	return c.Name.Default(), c.Description.Default(), formatVisibility(c.Visible), b.build()
}

func decodeCategory(name, desc, vis string, ext *kmlExtended) (core.CategoryData, string, error) {
	r := newExtReader(ext)
	c := core.CategoryData{
		ID:             core.GroupID(r.uint64(keyID)),
		CompilationID:  r.uint64(keyCompilationID),
		Type:           core.ParseCompilationType(r[keyType]),
		Name:           r.localized(keyName, name),
		Description:    r.localized(keyDescription, desc),
		Annotation:     r.localized(keyAnnotation, r[keyAnnotation]),
		ImageURL:       r[keyImageURL],
		Visible:        parseVisibility(vis),
		AuthorName:     r[keyAuthorName],
		AuthorID:       r[keyAuthorID],
		AccessRules:    core.ParseAccessRules(r[keyAccessRules]),
		Tags:           r.list(keyTags),
		Toponyms:       r.list(keyToponyms),
		Languages:      r.list(keyLanguages),
		Properties:     r.properties(),
		CompilationIDs: r.uint64List(keyCompilations),
	}
	var err error
	if c.LastModified, err = parseTime(r[keyLastModified]); err != nil {
		return c, "", err
	}
	if s := r[keyRating]; s != "" {
		c.Rating, _ = strconv.ParseFloat(s, 64)
	}
	c.ReviewsNumber = uint32(r.uint64(keyReviews))
	return c, r[keyServerID], nil
}

func encodeBookmark(bm *core.BookmarkData) kmlPlacemark {
	var b extBuilder
	b.add(keyID, formatID(uint64(bm.ID)))
	b.addLocalized(keyName, bm.Name)
	b.addLocalized(keyDescription, bm.Description)
	b.add(keyCustomName, bm.CustomName.Default())
	b.addLocalized(keyCustomName, bm.CustomName)
	b.add(keyFeatureTypes, joinUints(bm.FeatureTypes))
	if bm.Color.RGBA != 0 {
		b.add(keyRGBA, fmt.Sprintf("%08X", bm.Color.RGBA))
	}
	if bm.Icon != core.IconNone {
		b.add(keyIcon, bm.Icon.String())
	}
	if bm.ViewportScale != 0 {
		b.add(keyScale, strconv.Itoa(int(bm.ViewportScale)))
	}
	b.add(keyBoundTracks, joinUints(bm.BoundTracks))
	b.add(keyNearestToponym, bm.NearestToponym)
	if bm.MinZoom != 0 {
		b.add(keyMinZoom, strconv.Itoa(bm.MinZoom))
	}
	b.add(keyCompilations, joinUints(bm.Compilations))
	b.add(keyAddress, bm.Address)
	b.addProperties(bm.Properties)

	p := kmlPlacemark{
		Name:         bm.Name.Default(),
		Description:  bm.Description.Default(),
		Visibility:   formatVisibility(bm.Visible),
		StyleURL:     placemarkStylePrefix + bm.Color.Predefined.String(),
		ExtendedData: b.build(),
		Point:        &kmlCoordinates{Coordinates: geo.FormatCoordinates(core.GeoPoint{LatLon: bm.Point})},
	}
	if ts := formatTime(bm.Timestamp); ts != "" {
		p.TimeStamp = &kmlTimeStamp{When: ts}
	}
	return p
}

func decodeBookmark(p *kmlPlacemark) (core.BookmarkData, error) {
	pt, err := geo.ParseCoordinates(p.Point.Coordinates)
	if err != nil {
		return core.BookmarkData{}, fmt.Errorf("bookmark %q: %w", p.Name, err)
	}
	r := newExtReader(p.ExtendedData)
	bm := core.BookmarkData{
		ID:             core.MarkID(r.uint64(keyID)),
		Name:           r.localized(keyName, p.Name),
		Description:    r.localized(keyDescription, p.Description),
		CustomName:     r.localized(keyCustomName, r[keyCustomName]),
		Point:          pt.LatLon,
		Visible:        parseVisibility(p.Visibility),
		Icon:           core.ParseBookmarkIcon(r[keyIcon]),
		NearestToponym: r[keyNearestToponym],
		Compilations:   r.uint64List(keyCompilations),
		Address:        r[keyAddress],
		Properties:     r.properties(),
	}
	if color, ok := strings.CutPrefix(p.StyleURL, placemarkStylePrefix); ok {
		bm.Color.Predefined = core.ParsePredefinedColor(color)
	}
	if s := r[keyRGBA]; s != "" {
		v, _ := strconv.ParseUint(s, 16, 32)
		bm.Color.RGBA = uint32(v)
	}
	for _, v := range r.uint64List(keyFeatureTypes) {
		bm.FeatureTypes = append(bm.FeatureTypes, uint32(v))
	}
	for _, v := range r.uint64List(keyBoundTracks) {
		bm.BoundTracks = append(bm.BoundTracks, uint8(v))
	}
	bm.ViewportScale = uint8(r.uint64(keyScale))
	if s := r[keyMinZoom]; s != "" {
		bm.MinZoom, _ = strconv.Atoi(s)
	}
	if p.TimeStamp != nil {
		if bm.Timestamp, err = parseTime(p.TimeStamp.When); err != nil {
			return core.BookmarkData{}, fmt.Errorf("bookmark %q: %w", p.Name, err)
		}
	}
	return bm, nil
}

func encodeLayers(layers []core.TrackLayer) string {
	parts := make([]string, len(layers))
	for i, l := range layers {
		parts[i] = fmt.Sprintf("%s,%s,%08X",
			strconv.FormatFloat(l.LineWidth, 'f', -1, 64), l.Color.Predefined, l.Color.RGBA)
	}
	return strings.Join(parts, ";")
}

func decodeLayers(s string) ([]core.TrackLayer, error) {
	var out []core.TrackLayer
	for _, part := range strings.Split(s, ";") {
		fields := strings.Split(part, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid track layer %q", part)
		}
		width, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid track layer width %q", fields[0])
		}
		rgba, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid track layer color %q", fields[2])
		}
		out = append(out, core.TrackLayer{
			LineWidth: width,
			Color:     core.ColorData{Predefined: core.ParsePredefinedColor(fields[1]), RGBA: uint32(rgba)},
		})
	}
	return out, nil
}

func encodeTimestamps(g core.MultiGeometry) string {
	if !g.HasTimestamps() {
		return ""
	}
	lines := make([]string, len(g.Timestamps))
	for i, ts := range g.Timestamps {
		parts := make([]string, len(ts))
		for j, t := range ts {
			parts[j] = formatTime(t)
		}
		lines[i] = strings.Join(parts, " ")
	}
	return strings.Join(lines, ";")
}

func decodeTimestamps(s string) ([][]time.Time, error) {
	var out [][]time.Time
	for _, line := range strings.Split(s, ";") {
		var ts []time.Time
		for _, f := range strings.Fields(line) {
			t, err := parseTime(f)
			if err != nil {
				return nil, err
			}
			ts = append(ts, t)
		}
		out = append(out, ts)
	}
	return out, nil
}

func encodeTrack(t *core.TrackData) kmlPlacemark {
	var b extBuilder
	b.add(keyID, formatID(uint64(t.ID)))
	if t.LocalID != 0 {
		b.add(keyLocalID, strconv.Itoa(int(t.LocalID)))
	}
	b.addLocalized(keyName, t.Name)
	b.addLocalized(keyDescription, t.Description)
	b.add(keyLayers, encodeLayers(t.Layers))
	b.add(keyTimestamps, encodeTimestamps(t.Geometry))
	b.addProperties(t.Properties)

	p := kmlPlacemark{
		Name:         t.Name.Default(),
		Description:  t.Description.Default(),
		Visibility:   formatVisibility(t.Visible),
		ExtendedData: b.build(),
	}
	if ts := formatTime(t.Timestamp); ts != "" {
		p.TimeStamp = &kmlTimeStamp{When: ts}
	}
	if len(t.Layers) > 0 {
		p.Style = &kmlStyle{LineStyle: &kmlLineStyle{
			Color: kmlColor(t.Layers[0].Color.Value()),
			Width: strconv.FormatFloat(t.Layers[0].LineWidth, 'f', -1, 64),
		}}
	}

	lines := make([]kmlCoordinates, len(t.Geometry.Lines))
	for i, l := range t.Geometry.Lines {
		coords := make([]string, len(l))
		for j, pt := range l {
			coords[j] = geo.FormatCoordinates(pt)
		}
		lines[i] = kmlCoordinates{Coordinates: strings.Join(coords, " ")}
	}
	if len(lines) == 1 {
		p.LineString = &lines[0]
	} else {
		p.MultiGeometry = &kmlMultiGeometry{LineStrings: lines}
	}
	return p
}

func decodeGxTrack(t *kmlTrack, g *core.MultiGeometry) error {
	if len(t.When) > 0 && len(t.When) != len(t.Coords) {
		return fmt.Errorf("timestamps count %d doesn't match points count %d", len(t.When), len(t.Coords))
	}
	var line []core.GeoPoint
	for _, c := range t.Coords {
		pt, err := geo.ParseCoordinates(strings.Join(strings.Fields(c), ","))
		if err != nil {
			return err
		}
		line = append(line, pt)
	}
	var ts []time.Time
	for _, w := range t.When {
		v, err := parseTime(w)
		if err != nil {
			return err
		}
		ts = append(ts, v)
	}
	g.Lines = append(g.Lines, line)
	g.Timestamps = append(g.Timestamps, ts)
	return nil
}

func decodeTrack(p *kmlPlacemark) (core.TrackData, error) {
	r := newExtReader(p.ExtendedData)
	t := core.TrackData{
		ID:          core.TrackID(r.uint64(keyID)),
		LocalID:     uint8(r.uint64(keyLocalID)),
		Name:        r.localized(keyName, p.Name),
		Description: r.localized(keyDescription, p.Description),
		Visible:     parseVisibility(p.Visibility),
		Properties:  r.properties(),
	}

	var err error
	if p.TimeStamp != nil {
		if t.Timestamp, err = parseTime(p.TimeStamp.When); err != nil {
			return t, err
		}
	}

	var coordLists []kmlCoordinates
	switch {
	case p.LineString != nil:
		coordLists = []kmlCoordinates{*p.LineString}
	case p.MultiGeometry != nil:
		coordLists = p.MultiGeometry.LineStrings
	case p.Track != nil:
		err = decodeGxTrack(p.Track, &t.Geometry)
	case p.MultiTrack != nil:
		for i := range p.MultiTrack.Tracks {
			if err = decodeGxTrack(&p.MultiTrack.Tracks[i], &t.Geometry); err != nil {
				break
			}
		}
	}
	if err != nil {
		return t, fmt.Errorf("track %q: %w", p.Name, err)
	}
	for _, c := range coordLists {
		line, err := geo.ParseCoordinateList(c.Coordinates)
		if err != nil {
			return t, fmt.Errorf("track %q: %w", p.Name, err)
		}
		t.Geometry.Lines = append(t.Geometry.Lines, line)
	}
	if s := r[keyTimestamps]; s != "" {
		if t.Geometry.Timestamps, err = decodeTimestamps(s); err != nil {
			return t, fmt.Errorf("track %q: %w", p.Name, err)
		}
	}
	if !hasAnyTimestamp(t.Geometry) {
		t.Geometry.Timestamps = nil
	}

	if s := r[keyLayers]; s != "" {
		if t.Layers, err = decodeLayers(s); err != nil {
			return t, fmt.Errorf("track %q: %w", p.Name, err)
		}
	} else if p.Style != nil && p.Style.LineStyle != nil {
		layer := DefaultTrackLayer()
		if rgba, ok := parseKMLColor(p.Style.LineStyle.Color); ok {
			layer.Color = core.ColorData{RGBA: rgba}
		}
		if w, err := strconv.ParseFloat(p.Style.LineStyle.Width, 64); err == nil && w > 0 {
			layer.LineWidth = w
		}
		t.Layers = []core.TrackLayer{layer}
	}
	return t, nil
}

func hasAnyTimestamp(g core.MultiGeometry) bool {
	if !g.HasTimestamps() {
		return false
	}
	for _, ts := range g.Timestamps {
		if len(ts) > 0 {
			return true
		}
	}
	return false
}

func readKML(r io.Reader) (*core.FileData, error) {
	var f kmlFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding kml: %w", err)
	}
	if f.Document == nil {
		return nil, errors.New("kml has no Document")
	}
	doc := f.Document

	data := &core.FileData{}
	var err error
	data.Category, data.ServerID, err = decodeCategory(doc.Name, doc.Description, doc.Visibility, doc.ExtendedData)
	if err != nil {
		return nil, err
	}

	placemarks := doc.Placemarks
	var collect func(folders []kmlFolder) error
	collect = func(folders []kmlFolder) error {
		for i := range folders {
			fo := &folders[i]
			ext := newExtReader(fo.ExtendedData)
			if ext[keyCompilationID] != "" {
				c, _, err := decodeCategory(fo.Name, fo.Description, fo.Visibility, fo.ExtendedData)
				if err != nil {
					return err
				}
				data.Compilations = append(data.Compilations, c)
			}
			// Plain folders from other tools are flattened into the category.
			placemarks = append(placemarks, fo.Placemarks...)
			if err := collect(fo.Folders); err != nil {
				return err
			}
		}
		return nil
	}
	if err := collect(doc.Folders); err != nil {
		return nil, err
	}

	for i := range placemarks {
		p := &placemarks[i]
		switch {
		case p.Point != nil:
			bm, err := decodeBookmark(p)
			if err != nil {
				return nil, err
			}
			data.Bookmarks = append(data.Bookmarks, bm)
		case p.LineString != nil || p.MultiGeometry != nil || p.Track != nil || p.MultiTrack != nil:
			t, err := decodeTrack(p)
			if err != nil {
				return nil, err
			}
			data.Tracks = append(data.Tracks, t)
		}
	}
	return data, nil
}
