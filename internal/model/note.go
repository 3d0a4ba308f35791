package model

import "time"

// NoteStatus mirrors the backend's tri-state generation status.
type NoteStatus int

const (
	NoteStatusPending NoteStatus = 0
	NoteStatusReady   NoteStatus = 1
	NoteStatusFailed  NoteStatus = 2
)

func (s NoteStatus) String() string {
	switch s {
	case NoteStatusPending:
		return "pending"
	case NoteStatusReady:
		return "ready"
	case NoteStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further status transition can happen.
func (s NoteStatus) IsTerminal() bool {
	return s == NoteStatusReady || s == NoteStatusFailed
}

// NoteType doubles as the backend endpoint used to request the note.
type NoteType string

const (
	NoteTypeOutline  NoteType = "outline"
	NoteTypeSummary  NoteType = "summary"
	NoteTypeFAQ      NoteType = "faq"
	NoteTypeTimeline NoteType = "chronogram"
	NoteTypeGlossary NoteType = "glossary"
	NoteTypeMindmap  NoteType = "mindmap"
	NoteTypePodcast  NoteType = "podcast"
)

// NoteTypes lists every note type the backend can generate.
var NoteTypes = []NoteType{
	NoteTypeOutline,
	NoteTypeSummary,
	NoteTypeFAQ,
	NoteTypeTimeline,
	NoteTypeGlossary,
	NoteTypeMindmap,
	NoteTypePodcast,
}

// ParseNoteType accepts the canonical name plus the "timeline" alias used by the UI.
func ParseNoteType(raw string) (NoteType, bool) {
	if raw == "timeline" {
		return NoteTypeTimeline, true
	}
	for _, t := range NoteTypes {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// ProducesAudio reports whether a ready note of this type has a binary audio payload.
func (t NoteType) ProducesAudio() bool {
	return t == NoteTypePodcast
}

// NoteArtifact is a derived document generated asynchronously by the backend.
type NoteArtifact struct {
	ID               string     `json:"id"`
	Type             NoteType   `json:"type"`
	Name             string     `json:"name"`
	Content          string     `json:"content"`
	Status           NoteStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ContainedFileIDs []string   `json:"contained_file_ids"`
	AudioURL         string     `json:"audio_url,omitempty"`
}

// Clone returns a copy that shares no slices with n.
func (n NoteArtifact) Clone() NoteArtifact {
	n.ContainedFileIDs = append([]string(nil), n.ContainedFileIDs...)
	return n
}

// CloneNotes copies a collection so callers can never alias the owner's slice.
func CloneNotes(notes []NoteArtifact) []NoteArtifact {
	out := make([]NoteArtifact, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}
