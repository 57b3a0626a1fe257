package parser

import (
	"strings"
	"testing"
)

func TestTextParser_OutlineBlocks(t *testing.T) {
	input := "Chapter 1\n\nLinear Regression\n- y=wx+b\n  - least squares\n\n\n\nGradient Descent\nstep size\n"
	p := &TextParser{}
	deck, err := p.Parse(strings.NewReader(input), "week1.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deck.Title != "week1" {
		t.Errorf("expected title %q, got %q", "week1", deck.Title)
	}
	if len(deck.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(deck.Records))
	}

	heading := deck.Records[0]
	if !heading.IsHeading || heading.Title != "Chapter 1" || heading.Number != 1 {
		t.Errorf("expected heading record 1 %q, got %+v", "Chapter 1", heading)
	}

	reg := deck.Records[1]
	if reg.Title != "Linear Regression" {
		t.Errorf("expected title %q, got %q", "Linear Regression", reg.Title)
	}
	if reg.RawText != "- y=wx+b\n- least squares" {
		t.Errorf("unexpected raw text %q", reg.RawText)
	}
	if reg.Section != "Chapter 1" {
		t.Errorf("expected section backfilled from heading, got %q", reg.Section)
	}
	if reg.Level != 0 {
		t.Errorf("expected level 0, got %d", reg.Level)
	}

	if deck.Records[2].Number != 3 || deck.Records[2].RawText != "step size" {
		t.Errorf("unexpected third record %+v", deck.Records[2])
	}
}

func TestTextParser_FormFeedSplitsSlides(t *testing.T) {
	input := "Intro\nwhy models\fMethods\nsurvey\n"
	p := &TextParser{}
	deck, err := p.Parse(strings.NewReader(input), "talk.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deck.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(deck.Records))
	}
	if deck.Records[0].Title != "Intro" || deck.Records[1].Title != "Methods" {
		t.Errorf("unexpected titles %q, %q", deck.Records[0].Title, deck.Records[1].Title)
	}
}

func TestTextParser_IndentedBodySetsLevel(t *testing.T) {
	input := "Backprop\n\t\tchain rule\n\t\t\tper layer\r\n"
	p := &TextParser{}
	deck, err := p.Parse(strings.NewReader(input), "nn.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deck.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(deck.Records))
	}
	rec := deck.Records[0]
	if rec.Level != 2 {
		t.Errorf("expected level 2, got %d", rec.Level)
	}
	if rec.RawText != "chain rule\nper layer" {
		t.Errorf("unexpected raw text %q", rec.RawText)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	deck, err := p.Parse(strings.NewReader("\n  \n\n"), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deck.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", deck.Title)
	}
	if len(deck.Records) != 0 {
		t.Errorf("expected 0 records for blank input, got %d", len(deck.Records))
	}
}
