package model

import (
	"errors"
	"testing"
)

func TestParseNoteParameters(t *testing.T) {
	tests := []struct {
		name     string
		noteType NoteType
		raw      map[string]string
		wantErr  bool
		want     map[string]any
	}{
		{
			name:     "outline",
			noteType: NoteTypeOutline,
			raw:      map[string]string{"detail": "high"},
			want:     map[string]any{"detail": LevelHigh},
		},
		{
			name:     "outline with language",
			noteType: NoteTypeOutline,
			raw:      map[string]string{"detail": "low", "language": "eu"},
			want:     map[string]any{"detail": LevelLow, "language": LanguageBasque},
		},
		{
			name:     "summary missing style",
			noteType: NoteTypeSummary,
			raw:      map[string]string{"formality": "low", "detail": "high", "language_complexity": "medium"},
			wantErr:  true,
		},
		{
			name:     "faq bad level",
			noteType: NoteTypeFAQ,
			raw:      map[string]string{"detail": "extreme", "language_complexity": "low"},
			wantErr:  true,
		},
		{
			name:     "unsupported language",
			noteType: NoteTypeMindmap,
			raw:      map[string]string{"detail": "low", "language": "fr"},
			wantErr:  true,
		},
		{
			name:     "podcast",
			noteType: NoteTypePodcast,
			raw: map[string]string{
				"formality":           "high",
				"style":               "non-technical",
				"detail":              "medium",
				"language_complexity": "low",
				"podcast_type":        "narrative",
			},
			want: map[string]any{
				"formality":           LevelHigh,
				"style":               StyleNonTechnical,
				"detail":              LevelMedium,
				"language_complexity": LevelLow,
				"podcast_type":        PodcastNarrative,
			},
		},
		{
			name:     "unknown type",
			noteType: NoteType("poem"),
			raw:      map[string]string{"detail": "low"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseNoteParameters(tt.noteType, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got params %+v", params)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params.NoteType() != tt.noteType {
				t.Fatalf("note type = %q, want %q", params.NoteType(), tt.noteType)
			}
			fields := params.Fields()
			if len(fields) != len(tt.want) {
				t.Fatalf("fields = %v, want %v", fields, tt.want)
			}
			for k, v := range tt.want {
				if fields[k] != v {
					t.Errorf("field %s = %v, want %v", k, fields[k], v)
				}
			}
		})
	}
}

func TestParseNoteType(t *testing.T) {
	if got, ok := ParseNoteType("timeline"); !ok || got != NoteTypeTimeline {
		t.Fatalf("timeline alias = %q, %v", got, ok)
	}
	if got, ok := ParseNoteType("faq"); !ok || got != NoteTypeFAQ {
		t.Fatalf("faq = %q, %v", got, ok)
	}
	if _, ok := ParseNoteType("essay"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
	if !NoteTypePodcast.ProducesAudio() || NoteTypeSummary.ProducesAudio() {
		t.Fatal("only podcasts produce audio")
	}
}

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short question", "short question"},
		{"  padded  ", "padded"},
		{"this message is definitely longer than thirty characters", "this message is definitely lon..."},
		{"ñññññññññññññññññññññññññññññññ", "ññññññññññññññññññññññññññññññ..."},
	}
	for _, tt := range tests {
		if got := TitleFromMessage(tt.in, 30); got != tt.want {
			t.Errorf("TitleFromMessage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConversationWireMessagesSkipsVirtual(t *testing.T) {
	conv := &Conversation{Messages: []Message{
		{ID: "banner", Role: RoleAssistant, Content: "summary", IsVirtual: true},
		{ID: "u1", Role: RoleUser, Content: "hi"},
		{ID: "a1", Role: RoleAssistant, Content: "hello"},
	}}
	wire := conv.WireMessages()
	if len(wire) != 2 || wire[0].ID != "u1" || wire[1].ID != "a1" {
		t.Fatalf("unexpected wire messages: %+v", wire)
	}

	clone := conv.Clone()
	clone.Messages[1].Content = "changed"
	if conv.Messages[1].Content != "hi" {
		t.Fatal("clone shares message storage with the original")
	}
}

func TestNoteStatusTerminal(t *testing.T) {
	if NoteStatusPending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	if !NoteStatusReady.IsTerminal() || !NoteStatusFailed.IsTerminal() {
		t.Fatal("ready and failed are terminal")
	}
}
