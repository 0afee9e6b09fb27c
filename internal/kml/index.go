package kml

import (
	"encoding/xml"
	"fmt"
	"io"
)

// IndexEntry is one file referenced from a bundle index.
type IndexEntry struct {
	Name string
	Href string
}

type indexFile struct {
	XMLName  xml.Name      `xml:"kml"`
	Xmlns    string        `xml:"xmlns,attr"`
	Document indexDocument `xml:"Document"`
}

type indexDocument struct {
	Name  string           `xml:"name,omitempty"`
	Links []kmlNetworkLink `xml:"NetworkLink"`
}

type kmlNetworkLink struct {
	Name string  `xml:"name"`
	Link kmlLink `xml:"Link"`
}

type kmlLink struct {
	Href string `xml:"href"`
}

// WriteIndex writes a doc.kml that links every entry as a NetworkLink.
func WriteIndex(w io.Writer, title string, entries []IndexEntry) error {
	doc := indexFile{Xmlns: kmlNamespace, Document: indexDocument{Name: title}}
	for _, e := range entries {
		doc.Document.Links = append(doc.Document.Links, kmlNetworkLink{Name: e.Name, Link: kmlLink{Href: e.Href}})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing index header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return nil
}

// ReadIndex returns the entries of a doc.kml written by WriteIndex.
func ReadIndex(r io.Reader) ([]IndexEntry, error) {
	var doc indexFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	out := make([]IndexEntry, 0, len(doc.Document.Links))
	for _, l := range doc.Document.Links {
		out = append(out, IndexEntry{Name: l.Name, Href: l.Link.Href})
	}
	return out, nil
}
