// Package models defines the domain types shared by storage and the index.
package models

import "time"

// Document is a stored snapshot file with its derived metadata.
type Document struct {
	Path      string    `json:"path"`
	Content   []byte    `json:"-"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Images    int       `json:"images"`
	Embeds    int       `json:"embeds"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a directed edge from a document to a URL.
type Link struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Kind   string `json:"kind"` // "link", "autolink" or "embed"
}
