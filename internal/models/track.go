package models

// SourceTrack is a track read from the source platform.
type SourceTrack struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	ISRC    string   `json:"isrc,omitempty"`
}

// FirstArtist returns the first listed artist, or "" when there is none.
func (t SourceTrack) FirstArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Candidate is a destination identifier (Spotify URI or YouTube video id). The empty value means no match.
type Candidate string

// NoCandidate is the value returned when a search yields nothing.
const NoCandidate Candidate = ""

// IsNone reports whether c carries no identifier.
func (c Candidate) IsNone() bool {
	return c == NoCandidate
}

// FailedItem identifies a source track that could not be matched or written.
type FailedItem struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
}

// TransferResult summarises one transfer invocation. It is never persisted.
type TransferResult struct {
	CreatedPlaylistID string
	TotalSourceItems  int
	SucceededCount    int
	FailedItems       []FailedItem
}

// Fail records t as a failed item.
func (r *TransferResult) Fail(t SourceTrack) {
	r.FailedItems = append(r.FailedItems, FailedItem{Title: t.Title, Artists: t.Artists})
}

// PlaylistRef is a read-only playlist projection.
type PlaylistRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ItemCount int    `json:"itemCount"`
}

// ClassifiedPlaylist is a [PlaylistRef] with its content classification.
type ClassifiedPlaylist struct {
	PlaylistRef
	IsMusic bool `json:"isMusic"`
}
