package cvdata

import (
	"bytes"
	"testing"
)

func TestDecode_LegacyFieldVariants(t *testing.T) {
	raw := []byte(`{
		"personal": {"job_title": "Designer", "about": "Hi there"},
		"experiences": [{"title": "Engineer", "company": "Acme", "from": "2019", "to": "2022"}],
		"education": [{"diploma": "MSc", "school": "ENS", "from": "2015", "to": "2018"}]
	}`)

	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if d.Personal.Headline != "Designer" {
		t.Fatalf("job_title not migrated to headline: %q", d.Personal.Headline)
	}
	if d.Personal.Summary != "Hi there" {
		t.Fatalf("about not migrated to summary: %q", d.Personal.Summary)
	}
	if got := d.Experiences[0]; got.Role != "Engineer" || got.StartYear != "2019" || got.EndYear != "2022" {
		t.Fatalf("experience variants not migrated: %+v", got)
	}
	if got := d.Education[0]; got.Degree != "MSc" || got.StartYear != "2015" {
		t.Fatalf("education variants not migrated: %+v", got)
	}
}

func TestDecode_CanonicalFieldsWinOverLegacy(t *testing.T) {
	raw := []byte(`{"education": [{"degree": "BSc", "diploma": "old", "start_year": "2014", "from": "1999"}]}`)

	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Education[0].Degree != "BSc" {
		t.Fatalf("canonical degree must win, got %q", d.Education[0].Degree)
	}
	if d.Education[0].StartYear != "2014" {
		t.Fatalf("canonical start_year must win, got %q", d.Education[0].StartYear)
	}
}

func TestDecode_EmptyAndPartialInput(t *testing.T) {
	if _, err := Decode(nil); err != nil {
		t.Fatalf("nil input: %v", err)
	}
	d, err := Decode([]byte(`{"skills": [{"name": "Go"}]}`))
	if err != nil {
		t.Fatalf("partial input: %v", err)
	}
	if len(d.Skills) != 1 || d.Skills[0].Name != "Go" {
		t.Fatalf("partial input lost data: %+v", d.Skills)
	}
	if d.Experiences != nil {
		t.Fatalf("missing section must decode to nil, got %+v", d.Experiences)
	}
}

func TestCanonical_StableAcrossKeyOrderAndWhitespace(t *testing.T) {
	a := []byte(`{"personal": {"first_name": "Jo", "last_name": "Dale"}, "skills": [{"name": " Go ", "level": "Expert"}]}`)
	b := []byte(`{
		"skills": [{"level": "Expert", "name": "Go"}],
		"personal": {"last_name": "Dale", "first_name": "Jo"}
	}`)

	da, err := Decode(a)
	if err != nil {
		t.Fatalf("decode a: %v", err)
	}
	db, err := Decode(b)
	if err != nil {
		t.Fatalf("decode b: %v", err)
	}

	ca, err := Canonical(da)
	if err != nil {
		t.Fatalf("canonical a: %v", err)
	}
	cb, err := Canonical(db)
	if err != nil {
		t.Fatalf("canonical b: %v", err)
	}

	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical encoding differs:\na: %s\nb: %s", ca, cb)
	}
}
