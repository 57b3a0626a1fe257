package slides

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRecord_DerivesRawTextAndHeading(t *testing.T) {
	r := NewRecord(1, "  Intro ", []string{"", "  "}, "", 0)
	if !r.IsHeading {
		t.Error("expected titled record with blank body to be a heading")
	}
	if r.Title != "Intro" {
		t.Errorf("expected trimmed title %q, got %q", "Intro", r.Title)
	}
	if len(r.Bullets) != 0 {
		t.Errorf("expected blank bullets dropped, got %v", r.Bullets)
	}

	body := NewRecord(2, "Linear Regression", []string{"y=wx+b", " loss "}, "say it slowly", 1)
	if body.IsHeading {
		t.Error("expected record with body not to be a heading")
	}
	if body.RawText != "y=wx+b\nloss" {
		t.Errorf("expected raw text %q, got %q", "y=wx+b\nloss", body.RawText)
	}
	if body.Notes != "say it slowly" {
		t.Errorf("expected notes kept, got %q", body.Notes)
	}
}

func TestNewRecord_UntitledEmptyIsNotHeading(t *testing.T) {
	r := NewRecord(1, "", nil, "", 0)
	if r.IsHeading {
		t.Error("expected untitled empty record not to be a heading")
	}
}

func TestBackfill_NearestPrecedingHeading(t *testing.T) {
	records := []Record{
		NewRecord(1, "", []string{"cover text"}, "", 0),
		NewRecord(2, "Part A", nil, "", 0),
		NewRecord(3, "A1", []string{"body"}, "", 0),
		NewRecord(4, "", []string{"more"}, "", 0),
		NewRecord(5, "Part B", nil, "", 0),
		NewRecord(6, "B1", []string{"body"}, "", 0),
	}
	Backfill(records)

	want := []string{"", "Part A", "Part A", "Part A", "Part B", "Part B"}
	for i, w := range want {
		if records[i].Section != w {
			t.Errorf("record %d: expected section %q, got %q", i+1, w, records[i].Section)
		}
	}

	// Property: section equals the title of the last heading at or before the record.
	last := ""
	for _, r := range records {
		if r.IsHeading {
			last = r.Title
		}
		if r.Section != last {
			t.Errorf("record %d: section %q does not match nearest heading %q", r.Number, r.Section, last)
		}
	}
}

func TestValidateOrdinals(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		wantErr bool
	}{
		{"empty", nil, false},
		{"sequential", []int{1, 2, 3}, false},
		{"gap", []int{1, 3}, true},
		{"duplicate", []int{1, 1}, true},
		{"zero based", []int{0, 1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var records []Record
			for _, n := range tc.numbers {
				records = append(records, Record{Number: n})
			}
			err := ValidateOrdinals(records)
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTopic_Derived(t *testing.T) {
	topic := Topic{
		Title: "Linear Regression",
		Members: []Record{
			{Number: 4, RawText: "y=wx+b"},
			{Number: 6, RawText: ""},
			{Number: 5, RawText: "derive gradient"},
		},
	}
	if got := topic.MinNumber(); got != 4 {
		t.Errorf("expected min number 4, got %d", got)
	}
	if got := topic.RawText(); got != "y=wx+b\nderive gradient" {
		t.Errorf("expected blank member text skipped, got %q", got)
	}
	nums := topic.SlideNumbers()
	if len(nums) != 3 || nums[0] != 4 || nums[1] != 6 || nums[2] != 5 {
		t.Errorf("expected member order preserved, got %v", nums)
	}
}

func TestTopicNote_JSONLayout(t *testing.T) {
	note := TopicNote{
		Title:        "Gradient Descent",
		SlideNumbers: []int{3, 4},
		RawText:      "a\nb",
		Enrichment:   Enrichment{Summary: "s"},
	}
	note.Enrichment.Normalize()

	data, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`"title":"Gradient Descent"`,
		`"slide_numbers":[3,4]`,
		`"section":null`,
		`"raw_text":"a\nb"`,
		`"expansions":[]`,
		`"references":[]`,
		`"search_snippets":[]`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in %s", want, got)
		}
	}
}

func TestNewProcessResponse_NeverNull(t *testing.T) {
	data, err := json.Marshal(NewProcessResponse("deck_1_2", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"document_id":"deck_1_2","slides":[],"topics":[],"global_notes":null}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
