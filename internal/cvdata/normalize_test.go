package cvdata

import (
	"reflect"
	"testing"
)

func TestNormalize_BuilderFillsEmptySummary(t *testing.T) {
	d := CVData{Personal: Personal{FirstName: "Jo", Summary: ""}}

	got := Normalize(d, ModeBuilder, "en")

	if got.Personal.Summary != Examples("en").Personal.Summary {
		t.Fatalf("expected localized placeholder summary, got %q", got.Personal.Summary)
	}
	if got.Personal.FirstName != "Jo" {
		t.Fatalf("non-empty value must win, got %q", got.Personal.FirstName)
	}
}

func TestNormalize_PublishedLeavesSummaryEmpty(t *testing.T) {
	d := CVData{Personal: Personal{Summary: "   "}}

	got := Normalize(d, ModePublished, "en")

	if got.Personal.Summary != "" {
		t.Fatalf("published mode must never show placeholder content, got %q", got.Personal.Summary)
	}
}

func TestNormalize_BuilderReconcilesListEntriesByIndex(t *testing.T) {
	d := CVData{Experiences: []Experience{
		{Role: "Backend Engineer"},
		{},
	}}

	got := Normalize(d, ModeBuilder, "en")
	ex := Examples("en")

	if got.Experiences[0].Role != "Backend Engineer" {
		t.Fatalf("entry 0 role overwritten: %q", got.Experiences[0].Role)
	}
	if got.Experiences[0].Company != ex.Experiences[0].Company {
		t.Fatalf("entry 0 company not filled from example: %q", got.Experiences[0].Company)
	}
	if got.Experiences[1].Role != ex.Experiences[1].Role {
		t.Fatalf("entry 1 not reconciled against same-index example: %q", got.Experiences[1].Role)
	}
}

func TestNormalize_BuilderDoesNotPadPastExampleEntries(t *testing.T) {
	entries := make([]Skill, len(Examples("en").Skills)+2)
	d := CVData{Skills: entries}

	got := Normalize(d, ModeBuilder, "en")

	last := got.Skills[len(got.Skills)-1]
	if last.Name != "" || last.Level != "" {
		t.Fatalf("entries past the example list must stay blank, got %+v", last)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	d := CVData{
		Personal: Personal{FirstName: " Jo ", Summary: ""},
		Experiences: []Experience{
			{Role: "Engineer", Company: ""},
		},
		Skills: []Skill{{Name: "Go"}},
	}

	for _, tc := range []struct {
		name string
		mode Mode
	}{
		{"builder", ModeBuilder},
		{"published", ModePublished},
	} {
		once := Normalize(d, tc.mode, "fr")
		twice := Normalize(once, tc.mode, "fr")
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("%s: normalize is not idempotent:\nonce:  %+v\ntwice: %+v", tc.name, once, twice)
		}
	}
}

func TestNormalize_LocalizedExamples(t *testing.T) {
	got := Normalize(CVData{}, ModeBuilder, "fr")
	if got.Personal.Headline != Examples("fr").Personal.Headline {
		t.Fatalf("expected french placeholder, got %q", got.Personal.Headline)
	}

	fallback := Normalize(CVData{}, ModeBuilder, "xx")
	if fallback.Personal.Headline != Examples("en").Personal.Headline {
		t.Fatalf("unknown language must fall back to english, got %q", fallback.Personal.Headline)
	}
}

func TestIsSectionEmpty(t *testing.T) {
	if !IsSectionEmpty([]Experience(nil)) {
		t.Fatal("absent section must be empty")
	}
	if !IsSectionEmpty([]Experience{{Role: "  ", Company: "", Description: "\t"}}) {
		t.Fatal("one entry with only blank fields must be empty")
	}
	if IsSectionEmpty([]Experience{{}, {Company: "Acme"}}) {
		t.Fatal("any non-blank field keeps the section")
	}
}
