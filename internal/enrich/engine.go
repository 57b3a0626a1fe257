// Package enrich turns a topic cluster into an enriched study note by
// prompting a completion model with retrieved context.
package enrich

import (
	"context"
	"io"
	"log/slog"

	"github.com/dgallion1/slidenotes/internal/retrieve"
	"github.com/dgallion1/slidenotes/internal/slides"
)

// ContextSource supplies the snippets and neighbour citations for a topic.
type ContextSource interface {
	Retrieve(ctx context.Context, topic slides.Topic) retrieve.Context
}

// Engine enriches one topic at a time and is safe for concurrent use.
type Engine struct {
	completer Completer
	source    ContextSource
	locale    string
	log       *slog.Logger
}

func NewEngine(completer Completer, source ContextSource, locale string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{completer: completer, source: source, locale: locale, log: log}
}

// Enrich returns the note for topic. ok is false when the topic's title marks
// it as an agenda or placeholder page and it must not appear in the output.
func (e *Engine) Enrich(ctx context.Context, topic slides.Topic) (note slides.TopicNote, ok bool) {
	if IsSuppressedTitle(topic.Title) {
		e.log.Debug("topic suppressed", "title", topic.Title)
		return slides.TopicNote{}, false
	}

	rc := e.source.Retrieve(ctx, topic)
	text := topic.RawText()

	snippets := make([]string, 0, len(rc.Snippets)+len(rc.References))
	snippets = append(snippets, rc.Snippets...)
	snippets = append(snippets, rc.References...)
	res := e.completer.Complete(ctx, BuildExpandPrompt(e.locale, text, snippets))
	if res.Degraded() {
		e.log.Warn("completion degraded", "title", topic.Title, "reason", res.Reason)
	}

	en := ParseReply(res.Value)
	en.Expansions = CleanExpansions(en.Expansions, en.Summary)
	en.References = rc.References
	en.SearchSnippets = rc.Snippets
	en.Normalize()

	return slides.TopicNote{
		Title:        topic.Title,
		SlideNumbers: topic.SlideNumbers(),
		Section:      slides.OptionalString(topic.Section),
		RawText:      text,
		Enrichment:   en,
	}, true
}
