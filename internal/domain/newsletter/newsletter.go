// internal/domain/newsletter/newsletter.go
package newsletter

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Newsletter is the compiled issue for one (circle, cycle). At most one
// exists per pair; IssueNumber is strictly increasing and gap-free per
// circle.
type Newsletter struct {
	ID              int64
	CircleID        int64
	CycleID         string // YYYY-MM
	IssueNumber     int
	Title           sql.NullString
	Content         string // serialized Document
	SubmissionCount int
	RecipientCount  sql.NullInt64 // populated after send completes
	Status          Status
	PublishedAt     sql.NullTime
	CreatedAt       time.Time
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Document is the serialized section content of an issue.
type Document struct {
	Sections []Section `json:"sections"`
}

// Section holds every answer a prompt received. Prompts with zero
// responses are omitted entirely, never emitted empty.
type Section struct {
	PromptText string  `json:"promptText"`
	Entries    []Entry `json:"entries"`
}

// Entry is one member's answer within a section.
type Entry struct {
	MemberName string     `json:"memberName"`
	Text       string     `json:"text"`
	Media      []MediaRef `json:"media,omitempty"`
}

// MediaRef points at an attachment by storage or playback reference.
type MediaRef struct {
	Type         string `json:"type"`
	URL          string `json:"url,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// EncodeDocument serializes a document for the Content column.
func EncodeDocument(doc Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDocument parses the Content column back into a document.
func DecodeDocument(content string) (Document, error) {
	var doc Document
	if content == "" {
		return doc, nil
	}
	err := json.Unmarshal([]byte(content), &doc)
	return doc, err
}

// Read is a per-user read receipt for an issue.
type Read struct {
	ID           int64
	UserID       int64
	CircleID     int64
	NewsletterID int64
	ReadAt       time.Time
}
