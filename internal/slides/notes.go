package slides

import "encoding/json"

// Enrichment is generated content for one topic.
type Enrichment struct {
	Summary        string   `json:"summary"`
	Expansions     []string `json:"expansions"`
	References     []string `json:"references"`
	SearchSnippets []string `json:"search_snippets"`
}

// TopicNote is one enriched topic, the unit of output and of the cache file.
type TopicNote struct {
	Title        string     `json:"title"`
	SlideNumbers []int      `json:"slide_numbers"`
	Section      *string    `json:"section"`
	RawText      string     `json:"raw_text"`
	Enrichment   Enrichment `json:"enrichment"`
}

// MinNumber returns the first slide ordinal of the note, or 0 when it has none.
func (n TopicNote) MinNumber() int {
	lowest := 0
	for i, s := range n.SlideNumbers {
		if i == 0 || s < lowest {
			lowest = s
		}
	}
	return lowest
}

// SectionName returns the section or "" when unset.
func (n TopicNote) SectionName() string {
	if n.Section == nil {
		return ""
	}
	return *n.Section
}

// OptionalString maps "" to nil so unset sections encode as null.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GlobalNotes is the deck-level overview. The pipeline does not produce it yet.
type GlobalNotes struct {
	Overview        string   `json:"overview"`
	KnowledgePoints []string `json:"knowledge_points"`
	RelatedRefs     []string `json:"related_refs"`
}

// ProcessResponse is the document returned for one processed deck.
type ProcessResponse struct {
	DocumentID  string            `json:"document_id"`
	Slides      []json.RawMessage `json:"slides"`
	Topics      []TopicNote       `json:"topics"`
	GlobalNotes *GlobalNotes      `json:"global_notes"`
}

// NewProcessResponse wraps topic notes, keeping the list fields non-null.
func NewProcessResponse(documentID string, topics []TopicNote) ProcessResponse {
	if topics == nil {
		topics = []TopicNote{}
	}
	return ProcessResponse{
		DocumentID: documentID,
		Slides:     []json.RawMessage{},
		Topics:     topics,
	}
}

// Normalize replaces nil lists with empty ones so JSON output is stable.
func (e *Enrichment) Normalize() {
	if e.Expansions == nil {
		e.Expansions = []string{}
	}
	if e.References == nil {
		e.References = []string{}
	}
	if e.SearchSnippets == nil {
		e.SearchSnippets = []string{}
	}
}
