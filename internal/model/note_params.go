package model

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type Style string

const (
	StyleAcademic     Style = "academic"
	StyleTechnical    Style = "technical"
	StyleNonTechnical Style = "non-technical"
)

type PodcastType string

const (
	PodcastConversational PodcastType = "conversational"
	PodcastNarrative      PodcastType = "narrative"
)

type Language string

const (
	LanguageBasque  Language = "eu"
	LanguageSpanish Language = "es"
)

// NoteParameters is the per-type parameter set of a generation request.
// Each note type has its own struct declaring exactly the fields the backend expects.
type NoteParameters interface {
	NoteType() NoteType
	Validate() error
	// Fields returns the parameters as they are sent on the wire.
	Fields() map[string]any
}

var (
	levelRule    = validation.In(LevelLow, LevelMedium, LevelHigh)
	styleRule    = validation.In(StyleAcademic, StyleTechnical, StyleNonTechnical)
	podcastRule  = validation.In(PodcastConversational, PodcastNarrative)
	languageRule = validation.In(LanguageBasque, LanguageSpanish)
)

type OutlineParams struct {
	Detail   Level
	Language Language
}

func (p *OutlineParams) NoteType() NoteType { return NoteTypeOutline }

func (p *OutlineParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *OutlineParams) Fields() map[string]any {
	return withLanguage(map[string]any{"detail": p.Detail}, p.Language)
}

type SummaryParams struct {
	Formality          Level
	Style              Style
	Detail             Level
	LanguageComplexity Level
	Language           Language
}

func (p *SummaryParams) NoteType() NoteType { return NoteTypeSummary }

func (p *SummaryParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Formality, validation.Required, levelRule),
		validation.Field(&p.Style, validation.Required, styleRule),
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.LanguageComplexity, validation.Required, levelRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *SummaryParams) Fields() map[string]any {
	return withLanguage(map[string]any{
		"formality":           p.Formality,
		"style":               p.Style,
		"detail":              p.Detail,
		"language_complexity": p.LanguageComplexity,
	}, p.Language)
}

type FAQParams struct {
	Detail             Level
	LanguageComplexity Level
	Language           Language
}

func (p *FAQParams) NoteType() NoteType { return NoteTypeFAQ }

func (p *FAQParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.LanguageComplexity, validation.Required, levelRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *FAQParams) Fields() map[string]any {
	return withLanguage(map[string]any{
		"detail":              p.Detail,
		"language_complexity": p.LanguageComplexity,
	}, p.Language)
}

type TimelineParams struct {
	Detail   Level
	Language Language
}

func (p *TimelineParams) NoteType() NoteType { return NoteTypeTimeline }

func (p *TimelineParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *TimelineParams) Fields() map[string]any {
	return withLanguage(map[string]any{"detail": p.Detail}, p.Language)
}

type GlossaryParams struct {
	Detail             Level
	LanguageComplexity Level
	Language           Language
}

func (p *GlossaryParams) NoteType() NoteType { return NoteTypeGlossary }

func (p *GlossaryParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.LanguageComplexity, validation.Required, levelRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *GlossaryParams) Fields() map[string]any {
	return withLanguage(map[string]any{
		"detail":              p.Detail,
		"language_complexity": p.LanguageComplexity,
	}, p.Language)
}

type MindmapParams struct {
	Detail   Level
	Language Language
}

func (p *MindmapParams) NoteType() NoteType { return NoteTypeMindmap }

func (p *MindmapParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *MindmapParams) Fields() map[string]any {
	return withLanguage(map[string]any{"detail": p.Detail}, p.Language)
}

type PodcastParams struct {
	Formality          Level
	Style              Style
	Detail             Level
	LanguageComplexity Level
	PodcastType        PodcastType
	Language           Language
}

func (p *PodcastParams) NoteType() NoteType { return NoteTypePodcast }

func (p *PodcastParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Formality, validation.Required, levelRule),
		validation.Field(&p.Style, validation.Required, styleRule),
		validation.Field(&p.Detail, validation.Required, levelRule),
		validation.Field(&p.LanguageComplexity, validation.Required, levelRule),
		validation.Field(&p.PodcastType, validation.Required, podcastRule),
		validation.Field(&p.Language, languageRule),
	)
}

func (p *PodcastParams) Fields() map[string]any {
	return withLanguage(map[string]any{
		"formality":           p.Formality,
		"style":               p.Style,
		"detail":              p.Detail,
		"language_complexity": p.LanguageComplexity,
		"podcast_type":        p.PodcastType,
	}, p.Language)
}

func withLanguage(fields map[string]any, lang Language) map[string]any {
	if lang != "" {
		fields["language"] = lang
	}
	return fields
}

// ParseNoteParameters builds and validates the parameter variant for noteType
// from loosely typed input, e.g. a form or JSON object of strings.
func ParseNoteParameters(noteType NoteType, raw map[string]string) (NoteParameters, error) {
	var params NoteParameters
	switch noteType {
	case NoteTypeOutline:
		params = &OutlineParams{Detail: Level(raw["detail"]), Language: Language(raw["language"])}
	case NoteTypeSummary:
		params = &SummaryParams{
			Formality:          Level(raw["formality"]),
			Style:              Style(raw["style"]),
			Detail:             Level(raw["detail"]),
			LanguageComplexity: Level(raw["language_complexity"]),
			Language:           Language(raw["language"]),
		}
	case NoteTypeFAQ:
		params = &FAQParams{
			Detail:             Level(raw["detail"]),
			LanguageComplexity: Level(raw["language_complexity"]),
			Language:           Language(raw["language"]),
		}
	case NoteTypeTimeline:
		params = &TimelineParams{Detail: Level(raw["detail"]), Language: Language(raw["language"])}
	case NoteTypeGlossary:
		params = &GlossaryParams{
			Detail:             Level(raw["detail"]),
			LanguageComplexity: Level(raw["language_complexity"]),
			Language:           Language(raw["language"]),
		}
	case NoteTypeMindmap:
		params = &MindmapParams{Detail: Level(raw["detail"]), Language: Language(raw["language"])}
	case NoteTypePodcast:
		params = &PodcastParams{
			Formality:          Level(raw["formality"]),
			Style:              Style(raw["style"]),
			Detail:             Level(raw["detail"]),
			LanguageComplexity: Level(raw["language_complexity"]),
			PodcastType:        PodcastType(raw["podcast_type"]),
			Language:           Language(raw["language"]),
		}
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unknown note type %q", noteType)}
	}
	if err := params.Validate(); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid %s parameters", noteType), Err: err}
	}
	return params, nil
}
