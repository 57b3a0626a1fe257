// Package cluster filters noise pages and groups slide records into topics by
// section and effective title.
package cluster

import (
	"sort"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
)

type clusterKey struct {
	section string
	title   string
}

// Group merges records into topics keyed on (normalised section, normalised
// effective title). The first record of a key creates the topic and fixes its
// section and display title; later records append. Topics with no body text
// are dropped and the rest are ordered by their first slide.
func Group(records []slides.Record) []slides.Topic {
	var topics []*slides.Topic
	byKey := make(map[clusterKey]*slides.Topic)
	var fold TitleFold

	for _, rec := range records {
		if IsPlaceholderTitle(rec.Title) {
			continue
		}
		title, next, ok := fold.Resolve(rec)
		fold = next
		if !ok {
			continue
		}

		key := clusterKey{section: NormalizeKey(rec.Section), title: NormalizeKey(title)}
		if t, found := byKey[key]; found {
			t.Members = append(t.Members, rec)
			continue
		}
		t := &slides.Topic{Section: rec.Section, Title: title, Members: []slides.Record{rec}}
		byKey[key] = t
		topics = append(topics, t)
	}

	out := make([]slides.Topic, 0, len(topics))
	for _, t := range topics {
		if strings.TrimSpace(t.RawText()) == "" {
			continue
		}
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinNumber() < out[j].MinNumber() })
	return out
}

// Filter returns the records at the kept positions that are not noise, in
// deck order.
func Filter(records []slides.Record, kept []int, opts NoiseOptions) []slides.Record {
	keep := make(map[int]bool, len(kept))
	for _, k := range kept {
		keep[k] = true
	}
	out := make([]slides.Record, 0, len(kept))
	for i, rec := range records {
		if !keep[i] || IsNoise(rec, opts) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
