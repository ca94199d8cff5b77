package render

import (
	"fmt"
	"sort"
)

// Template is a registered resume style. All templates consume the same
// canonical data; only the stylesheet differs, so adding a style never
// touches the section markup.
type Template struct {
	Name        string
	DisplayName string
	Premium     bool
	CSS         string
}

var registry = map[string]Template{
	"classic": {
		Name:        "classic",
		DisplayName: "Classic",
		CSS:         classicCSS,
	},
	"modern": {
		Name:        "modern",
		DisplayName: "Modern",
		CSS:         modernCSS,
	},
	"onyx": {
		Name:        "onyx",
		DisplayName: "Onyx",
		Premium:     true,
		CSS:         onyxCSS,
	},
}

// Lookup returns the template registered under name.
func Lookup(name string) (Template, error) {
	tpl, ok := registry[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template %q", name)
	}
	return tpl, nil
}

// List returns all registered templates sorted by name, for the gallery.
func List() []Template {
	out := make([]Template, 0, len(registry))
	for _, tpl := range registry {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// The reference page is A4 in CSS points (see paginate.go); every stylesheet
// must keep the .page box at exactly that size so pagination estimates hold.

const classicCSS = `
  body { margin: 0; padding: 0; background: #f0f0f0; font-family: Georgia, 'Times New Roman', serif; font-size: 10pt; color: #1a1a1a; }
  .page { width: 595px; height: 842px; background: white; margin: 0 auto 16px; padding: 48px; box-sizing: border-box; overflow: hidden; }
  .page.digital { height: auto; min-height: 842px; }
  .cv-header { border-bottom: 2px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .cv-name { font-size: 22pt; margin: 0; }
  .cv-headline { font-size: 12pt; color: var(--accent); margin: 2px 0 8px; }
  .cv-contact { font-size: 8.5pt; color: #555; }
  .cv-contact span + span::before { content: ' · '; }
  .cv-photo { float: right; width: 72px; height: 72px; border-radius: 50%; object-fit: cover; }
  .cv-section-title { font-size: 11pt; text-transform: uppercase; letter-spacing: 1px; color: var(--accent); margin: 14px 0 6px; }
  .cv-entry { margin-bottom: 10px; }
  .cv-entry-head { display: flex; justify-content: space-between; font-weight: bold; }
  .cv-entry-sub { font-style: italic; color: #444; }
  .cv-entry-desc { margin-top: 2px; }
  .cv-inline-list { display: flex; flex-wrap: wrap; gap: 4px 14px; }
  .cv-level { color: #777; font-size: 8.5pt; }
`

const modernCSS = `
  body { margin: 0; padding: 0; background: #f0f0f0; font-family: 'Helvetica Neue', Arial, sans-serif; font-size: 9.5pt; color: #222; }
  .page { width: 595px; height: 842px; background: white; margin: 0 auto 16px; padding: 48px; box-sizing: border-box; overflow: hidden; }
  .page.digital { height: auto; min-height: 842px; }
  .cv-header { background: var(--accent); color: white; margin: -48px -48px 16px; padding: 32px 48px; }
  .cv-name { font-size: 24pt; font-weight: 300; margin: 0; }
  .cv-headline { font-size: 11pt; opacity: 0.85; margin: 2px 0 8px; }
  .cv-contact { font-size: 8.5pt; opacity: 0.9; }
  .cv-contact span + span::before { content: '  |  '; }
  .cv-photo { float: right; width: 80px; height: 80px; border-radius: 4px; object-fit: cover; }
  .cv-section-title { font-size: 10pt; font-weight: 600; text-transform: uppercase; letter-spacing: 2px; border-left: 3px solid var(--accent); padding-left: 8px; margin: 16px 0 8px; }
  .cv-entry { margin-bottom: 10px; }
  .cv-entry-head { display: flex; justify-content: space-between; font-weight: 600; }
  .cv-entry-sub { color: #666; }
  .cv-entry-desc { margin-top: 2px; color: #333; }
  .cv-inline-list { display: flex; flex-wrap: wrap; gap: 4px 16px; }
  .cv-level { color: var(--accent); font-size: 8.5pt; }
`

const onyxCSS = `
  body { margin: 0; padding: 0; background: #f0f0f0; font-family: 'Helvetica Neue', Arial, sans-serif; font-size: 9.5pt; color: #e8e8e8; }
  .page { width: 595px; height: 842px; background: #16181d; margin: 0 auto 16px; padding: 48px; box-sizing: border-box; overflow: hidden; }
  .page.digital { height: auto; min-height: 842px; }
  .cv-header { border-bottom: 1px solid var(--accent); padding-bottom: 14px; margin-bottom: 18px; }
  .cv-name { font-size: 23pt; font-weight: 200; margin: 0; color: white; }
  .cv-headline { font-size: 11pt; color: var(--accent); margin: 2px 0 8px; }
  .cv-contact { font-size: 8.5pt; color: #9a9a9a; }
  .cv-contact span + span::before { content: ' — '; }
  .cv-photo { float: right; width: 76px; height: 76px; border-radius: 50%; object-fit: cover; filter: grayscale(30%); }
  .cv-section-title { font-size: 10pt; text-transform: uppercase; letter-spacing: 3px; color: var(--accent); margin: 16px 0 8px; }
  .cv-entry { margin-bottom: 10px; }
  .cv-entry-head { display: flex; justify-content: space-between; font-weight: 600; color: white; }
  .cv-entry-sub { color: #b8b8b8; }
  .cv-entry-desc { margin-top: 2px; color: #cfcfcf; }
  .cv-inline-list { display: flex; flex-wrap: wrap; gap: 4px 16px; }
  .cv-level { color: #8a8a8a; font-size: 8.5pt; }
`
