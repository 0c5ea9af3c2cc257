// Package models defines the upload session record tracked by the broker.
package models

import "time"

// Kind is the transfer strategy chosen when a session is created.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindMultipart Kind = "multipart"
)

// State is the lifecycle status of a session.
type State string

const (
	// StatePending: simple upload URL issued, completion not yet reported.
	StatePending State = "pending"
	// StateMultipartInitiated: provider handle opened and part URLs issued.
	StateMultipartInitiated State = "multipart_initiated"
	// StateCompleted is terminal.
	StateCompleted State = "completed"
	// StateAborted is terminal and only reachable by multipart sessions.
	StateAborted State = "aborted"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateMultipartInitiated, StateCompleted, StateAborted:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// DefaultOwner is used when the caller does not identify itself.
const DefaultOwner = "anonymous"

// CompletedPart is one uploaded part as reported by the client.
type CompletedPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// PartURL is a signed URL for uploading a single part.
type PartURL struct {
	PartNumber int32  `json:"partNumber"`
	URL        string `json:"url"`
}

// UploadSession tracks one file transfer, simple or multipart.
//
// Only State, the terminal timestamps, DownloadURL, Location and
// CompletedParts change after creation.
type UploadSession struct {
	ID          string `json:"sessionId"`
	StorageKey  string `json:"storageKey"`
	OwnerID     string `json:"ownerId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	// FileSize is 0 when the caller did not declare one.
	FileSize int64 `json:"fileSize,omitempty"`
	Kind     Kind  `json:"kind"`
	State    State `json:"state"`

	UploadURL   string `json:"uploadUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Location    string `json:"location,omitempty"`

	ProviderUploadID string          `json:"providerUploadId,omitempty"`
	PartSize         int64           `json:"partSize,omitempty"`
	PartCount        int64           `json:"partCount,omitempty"`
	PartURLs         []PartURL       `json:"partUrls,omitempty"`
	CompletedParts   []CompletedPart `json:"completedParts,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	AbortedAt   *time.Time `json:"abortedAt,omitempty"`
}

// Clone returns a deep copy so callers never share slices or timestamps
// with the registry.
func (s *UploadSession) Clone() *UploadSession {
	if s == nil {
		return nil
	}
	c := *s
	c.PartURLs = append([]PartURL(nil), s.PartURLs...)
	c.CompletedParts = append([]CompletedPart(nil), s.CompletedParts...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.AbortedAt != nil {
		t := *s.AbortedAt
		c.AbortedAt = &t
	}
	return &c
}
