package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/leaplineadmin/brevy-sub002/internal/cvdata"
)

// Options select how a resume is rendered.
type Options struct {
	Template    string
	AccentColor string
	Kind        string // "page" (paginated A4) or "digital" (single scroll)
	Language    string
	Mode        cvdata.Mode
	PhotoURL    string
}

const (
	defaultAccent = "#2563eb"

	KindPage    = "page"
	KindDigital = "digital"
)

var accentPattern = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

// Renderer turns canonical resume data into a self-contained, paginated HTML
// document for the sandboxed preview iframe. Rich-text fields are sanitized
// before templating; everything else is escaped by html/template.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer builds a Renderer with the UGC sanitation policy.
func NewRenderer() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

// Render produces the full preview document. A fresh call fully replaces any
// previously rendered content; there is no incremental patching.
func (r *Renderer) Render(d cvdata.CVData, opts Options) (string, error) {
	tpl, err := Lookup(opts.Template)
	if err != nil {
		return "", err
	}

	accent := strings.TrimSpace(opts.AccentColor)
	if !accentPattern.MatchString(accent) {
		accent = defaultAccent
	}

	kind := opts.Kind
	if kind != KindDigital {
		kind = KindPage
	}

	d = cvdata.Normalize(d, opts.Mode, opts.Language)

	blocks, err := r.buildBlocks(d, opts)
	if err != nil {
		return "", err
	}

	var pages [][]block
	if kind == KindPage {
		pages = paginate(blocks, RefPageHeight-2*pageMargin)
	} else {
		pages = [][]block{blocks}
	}

	pageHTML := make([]template.HTML, 0, len(pages))
	for _, p := range pages {
		var sb strings.Builder
		for _, b := range p {
			sb.WriteString(b.html)
		}
		pageHTML = append(pageHTML, template.HTML(sb.String()))
	}

	var buf bytes.Buffer
	err = documentTmpl.Execute(&buf, map[string]any{
		"Language":  pickLang(opts.Language),
		"Accent":    template.CSS(accent),
		"CSS":       template.CSS(tpl.CSS),
		"KindClass": kind,
		"Pages":     pageHTML,
		"Script":    template.JS(previewScript),
	})
	if err != nil {
		return "", fmt.Errorf("execute document template: %w", err)
	}
	return buf.String(), nil
}

func pickLang(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return "en"
	}
	return lang
}

// buildBlocks renders every visible section into indivisible blocks with
// height estimates for pagination. In published mode empty sections (and
// blank entries) disappear entirely; builder mode shows whatever the
// normalizer produced.
func (r *Renderer) buildBlocks(d cvdata.CVData, opts Options) ([]block, error) {
	published := opts.Mode == cvdata.ModePublished
	labels := sectionLabels(pickLang(opts.Language))

	var blocks []block

	summary := template.HTML(r.policy.Sanitize(d.Personal.Summary))
	photoURL := ""
	if !d.Settings.HidePhoto {
		photoURL = opts.PhotoURL
	}
	head, err := execTemplate(headerTmpl, map[string]any{
		"Personal": d.Personal,
		"Summary":  summary,
		"PhotoURL": photoURL,
	})
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, block{
		html:   head,
		height: headerHeight + textLines(string(summary))*lineHeight,
	})

	expBlocks, err := r.entrySection(labels["experiences"], experienceEntries(d.Experiences, published, d.Settings))
	if err != nil {
		return nil, err
	}
	if !published || !cvdata.IsSectionEmpty(d.Experiences) {
		blocks = append(blocks, expBlocks...)
	}

	eduBlocks, err := r.entrySection(labels["education"], educationEntries(d.Education, published, d.Settings))
	if err != nil {
		return nil, err
	}
	if !published || !cvdata.IsSectionEmpty(d.Education) {
		blocks = append(blocks, eduBlocks...)
	}

	inline := []struct {
		label string
		items []inlineItem
		empty bool
	}{
		{labels["skills"], skillItems(d.Skills, d.Settings), cvdata.IsSectionEmpty(d.Skills)},
		{labels["languages"], languageItems(d.Languages, d.Settings), cvdata.IsSectionEmpty(d.Languages)},
		{labels["tools"], toolItems(d.Tools, d.Settings), cvdata.IsSectionEmpty(d.Tools)},
		{labels["certifications"], certificationItems(d.Certifications), cvdata.IsSectionEmpty(d.Certifications)},
		{labels["hobbies"], hobbyItems(d.Hobbies), cvdata.IsSectionEmpty(d.Hobbies)},
	}
	for _, sec := range inline {
		if len(sec.items) == 0 || (published && sec.empty) {
			continue
		}
		b, err := r.inlineSection(sec.label, sec.items)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	return blocks, nil
}

// entry is the unified shape entryTmpl renders for experience and education.
type entry struct {
	Title    string
	Subtitle string
	Dates    string
	Desc     template.HTML
}

func (r *Renderer) entrySection(label string, entries []entry) ([]block, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var blocks []block
	for i, e := range entries {
		e.Desc = template.HTML(r.policy.Sanitize(string(e.Desc)))
		data := map[string]any{"Entry": e, "Label": ""}
		height := entryBaseHeight + textLines(string(e.Desc))*lineHeight
		if i == 0 {
			// Fuse the heading with the first entry so it never dangles
			// at the bottom of a page.
			data["Label"] = label
			height += sectionHeadextra
		}
		html, err := execTemplate(entryTmpl, data)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block{html: html, height: height})
	}
	return blocks, nil
}

type inlineItem struct {
	Name  string
	Level string
}

func (r *Renderer) inlineSection(label string, items []inlineItem) (block, error) {
	html, err := execTemplate(inlineSectionTmpl, map[string]any{
		"Label": label,
		"Items": items,
	})
	if err != nil {
		return block{}, err
	}
	rows := math.Ceil(float64(len(items)) / 3)
	return block{html: html, height: sectionHeadextra + rows*inlineRowHeight}, nil
}

func experienceEntries(in []cvdata.Experience, published bool, s cvdata.Settings) []entry {
	out := make([]entry, 0, len(in))
	for _, e := range in {
		if published && e.Blank() {
			continue
		}
		out = append(out, entry{
			Title:    e.Role,
			Subtitle: joinNonEmpty(" · ", e.Company, e.Location),
			Dates:    dateRange(e.StartYear, e.EndYear, s),
			Desc:     template.HTML(e.Description),
		})
	}
	return out
}

func educationEntries(in []cvdata.Education, published bool, s cvdata.Settings) []entry {
	out := make([]entry, 0, len(in))
	for _, e := range in {
		if published && e.Blank() {
			continue
		}
		out = append(out, entry{
			Title:    e.Degree,
			Subtitle: joinNonEmpty(" · ", e.School, e.Location),
			Dates:    dateRange(e.StartYear, e.EndYear, s),
			Desc:     template.HTML(e.Description),
		})
	}
	return out
}

func skillItems(in []cvdata.Skill, s cvdata.Settings) []inlineItem {
	out := make([]inlineItem, 0, len(in))
	for _, e := range in {
		if e.Blank() {
			continue
		}
		out = append(out, inlineItem{Name: e.Name, Level: level(e.Level, s)})
	}
	return out
}

func languageItems(in []cvdata.Language, s cvdata.Settings) []inlineItem {
	out := make([]inlineItem, 0, len(in))
	for _, e := range in {
		if e.Blank() {
			continue
		}
		out = append(out, inlineItem{Name: e.Name, Level: level(e.Level, s)})
	}
	return out
}

func toolItems(in []cvdata.Tool, s cvdata.Settings) []inlineItem {
	out := make([]inlineItem, 0, len(in))
	for _, e := range in {
		if e.Blank() {
			continue
		}
		out = append(out, inlineItem{Name: e.Name, Level: level(e.Level, s)})
	}
	return out
}

func certificationItems(in []cvdata.Certification) []inlineItem {
	out := make([]inlineItem, 0, len(in))
	for _, e := range in {
		if e.Blank() {
			continue
		}
		out = append(out, inlineItem{Name: e.Name, Level: joinNonEmpty(", ", e.Issuer, e.Year)})
	}
	return out
}

func hobbyItems(in []cvdata.Hobby) []inlineItem {
	out := make([]inlineItem, 0, len(in))
	for _, e := range in {
		if e.Blank() {
			continue
		}
		out = append(out, inlineItem{Name: e.Name})
	}
	return out
}

func level(l string, s cvdata.Settings) string {
	if s.HideLevels {
		return ""
	}
	return l
}

func dateRange(start, end string, s cvdata.Settings) string {
	if s.HideDates {
		return ""
	}
	return joinNonEmpty(" – ", start, end)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func execTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func sectionLabels(lang string) map[string]string {
	if lang == "fr" {
		return map[string]string{
			"experiences":    "Expérience",
			"education":      "Formation",
			"skills":         "Compétences",
			"languages":      "Langues",
			"tools":          "Outils",
			"certifications": "Certifications",
			"hobbies":        "Centres d'intérêt",
		}
	}
	return map[string]string{
		"experiences":    "Experience",
		"education":      "Education",
		"skills":         "Skills",
		"languages":      "Languages",
		"tools":          "Tools",
		"certifications": "Certifications",
		"hobbies":        "Interests",
	}
}
