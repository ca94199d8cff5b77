package render

import (
	"strings"
	"testing"

	"github.com/leaplineadmin/brevy-sub002/internal/cvdata"
)

func sampleData() cvdata.CVData {
	return cvdata.CVData{
		Personal: cvdata.Personal{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Headline:  "Analyst",
			Email:     "ada@example.com",
			Summary:   "<p>First programmer.</p>",
		},
		Experiences: []cvdata.Experience{
			{Role: "Engineer", Company: "Analytical Engines Ltd", StartYear: "1842", EndYear: "1843", Description: "Wrote the first published algorithm."},
		},
		Skills: []cvdata.Skill{{Name: "Mathematics", Level: "Expert"}},
	}
}

func TestRender_ContainsDataAndScript(t *testing.T) {
	out, err := NewRenderer().Render(sampleData(), Options{
		Template: "classic",
		Kind:     KindPage,
		Mode:     cvdata.ModePublished,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Ada Lovelace",
		"Analytical Engines Ltd",
		"First programmer.",
		MsgTypeTotalPages,
		MsgTypeChangePage,
		`--accent: #2563eb`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	if _, err := NewRenderer().Render(sampleData(), Options{Template: "vaporwave"}); err == nil {
		t.Fatal("expected an error for an unregistered template")
	}
}

func TestRender_PublishedSuppressesEmptySections(t *testing.T) {
	d := sampleData()
	d.Education = []cvdata.Education{{}}
	d.Languages = nil

	out, err := NewRenderer().Render(d, Options{
		Template: "classic",
		Mode:     cvdata.ModePublished,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if strings.Contains(out, ">Education<") {
		t.Error("published preview shows an education heading with no entries")
	}
	if strings.Contains(out, ">Languages<") {
		t.Error("published preview shows a languages heading with no entries")
	}
	if !strings.Contains(out, ">Experience<") {
		t.Error("filled experience section missing")
	}
}

func TestRender_BuilderFillsPlaceholders(t *testing.T) {
	out, err := NewRenderer().Render(cvdata.CVData{}, Options{
		Template: "modern",
		Mode:     cvdata.ModeBuilder,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	examples := cvdata.Examples("en")
	if !strings.Contains(out, examples.Personal.FirstName) {
		t.Error("builder preview of an empty resume shows no placeholder name")
	}
}

func TestRender_SanitizesRichText(t *testing.T) {
	d := sampleData()
	d.Personal.Summary = `<p>fine</p><script>alert(1)</script>`

	out, err := NewRenderer().Render(d, Options{Template: "classic", Mode: cvdata.ModePublished})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "alert(1)") {
		t.Fatal("script tag survived sanitation")
	}
	if !strings.Contains(out, "<p>fine</p>") {
		t.Error("benign markup stripped")
	}
}

func TestRender_DigitalIsSinglePage(t *testing.T) {
	d := sampleData()
	for i := 0; i < 40; i++ {
		d.Experiences = append(d.Experiences, cvdata.Experience{
			Role: "Role", Company: "Co", Description: strings.Repeat("long text ", 40),
		})
	}

	paged, err := NewRenderer().Render(d, Options{Template: "classic", Kind: KindPage, Mode: cvdata.ModePublished})
	if err != nil {
		t.Fatalf("render paged: %v", err)
	}
	digital, err := NewRenderer().Render(d, Options{Template: "classic", Kind: KindDigital, Mode: cvdata.ModePublished})
	if err != nil {
		t.Fatalf("render digital: %v", err)
	}

	if strings.Count(paged, `data-page=`) < 2 {
		t.Error("long paged resume should span multiple pages")
	}
	if got := strings.Count(digital, `data-page=`); got != 1 {
		t.Errorf("digital resume should be one scroll page, got %d", got)
	}
}

func TestRender_AccentFallback(t *testing.T) {
	out, err := NewRenderer().Render(sampleData(), Options{
		Template:    "classic",
		AccentColor: `red;} body{display:none`,
		Mode:        cvdata.ModePublished,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "--accent: #2563eb") {
		t.Error("malformed accent color not replaced by the default")
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer()
	opts := Options{Template: "onyx", Mode: cvdata.ModePublished, Language: "fr"}

	a, err := r.Render(sampleData(), opts)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	b, err := r.Render(sampleData(), opts)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if a != b {
		t.Fatal("identical input produced different documents")
	}
}

func TestList_SortedAndComplete(t *testing.T) {
	tpls := List()
	if len(tpls) != 3 {
		t.Fatalf("expected 3 templates, got %d", len(tpls))
	}
	for i := 1; i < len(tpls); i++ {
		if tpls[i-1].Name > tpls[i].Name {
			t.Fatal("templates not sorted by name")
		}
	}
}
