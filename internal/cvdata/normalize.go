package cvdata

import "strings"

// Mode selects the rendering context the normalizer targets.
type Mode int

const (
	// ModeBuilder fills empty fields with localized placeholder examples so
	// the live preview never looks broken while the user types.
	ModeBuilder Mode = iota
	// ModePublished never injects examples: a public CV renders real content
	// or nothing.
	ModePublished
)

// Normalize resolves every scalar field of d for the given mode:
//
//	current value if non-empty -> (builder only) localized example -> ""
//
// List entries are reconciled against the same-index example entry, builder
// mode only. Applying Normalize to its own output is a no-op.
func Normalize(d CVData, mode Mode, lang string) CVData {
	d = trimmed(d)
	if mode == ModePublished {
		return d
	}

	ex := Examples(lang)

	d.Personal = Personal{
		FirstName: pick(d.Personal.FirstName, ex.Personal.FirstName),
		LastName:  pick(d.Personal.LastName, ex.Personal.LastName),
		Headline:  pick(d.Personal.Headline, ex.Personal.Headline),
		Email:     pick(d.Personal.Email, ex.Personal.Email),
		Phone:     pick(d.Personal.Phone, ex.Personal.Phone),
		Location:  pick(d.Personal.Location, ex.Personal.Location),
		Website:   pick(d.Personal.Website, ex.Personal.Website),
		Summary:   pick(d.Personal.Summary, ex.Personal.Summary),
	}

	for i, e := range d.Experiences {
		x := entryAt(ex.Experiences, i)
		d.Experiences[i] = Experience{
			Role:        pick(e.Role, x.Role),
			Company:     pick(e.Company, x.Company),
			Location:    pick(e.Location, x.Location),
			StartYear:   pick(e.StartYear, x.StartYear),
			EndYear:     pick(e.EndYear, x.EndYear),
			Description: pick(e.Description, x.Description),
		}
	}
	for i, e := range d.Education {
		x := entryAt(ex.Education, i)
		d.Education[i] = Education{
			Degree:      pick(e.Degree, x.Degree),
			School:      pick(e.School, x.School),
			Location:    pick(e.Location, x.Location),
			StartYear:   pick(e.StartYear, x.StartYear),
			EndYear:     pick(e.EndYear, x.EndYear),
			Description: pick(e.Description, x.Description),
		}
	}
	for i, e := range d.Skills {
		x := entryAt(ex.Skills, i)
		d.Skills[i] = Skill{Name: pick(e.Name, x.Name), Level: pick(e.Level, x.Level)}
	}
	for i, e := range d.Languages {
		x := entryAt(ex.Languages, i)
		d.Languages[i] = Language{Name: pick(e.Name, x.Name), Level: pick(e.Level, x.Level)}
	}
	for i, e := range d.Tools {
		x := entryAt(ex.Tools, i)
		d.Tools[i] = Tool{Name: pick(e.Name, x.Name), Level: pick(e.Level, x.Level)}
	}
	for i, e := range d.Certifications {
		x := entryAt(ex.Certifications, i)
		d.Certifications[i] = Certification{
			Name:   pick(e.Name, x.Name),
			Issuer: pick(e.Issuer, x.Issuer),
			Year:   pick(e.Year, x.Year),
		}
	}
	for i, e := range d.Hobbies {
		x := entryAt(ex.Hobbies, i)
		d.Hobbies[i] = Hobby{Name: pick(e.Name, x.Name)}
	}

	return d
}

// IsSectionEmpty reports whether a list section should be suppressed in
// published mode: absent, or every entry has only blank fields.
func IsSectionEmpty[T interface{ Blank() bool }](entries []T) bool {
	for _, e := range entries {
		if !e.Blank() {
			return false
		}
	}
	return true
}

func pick(value, example string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return example
}

// entryAt returns the example entry for index i, or a zero entry past the end
// so extra user rows are never padded with repeated examples.
func entryAt[T any](entries []T, i int) T {
	if i < len(entries) {
		return entries[i]
	}
	var zero T
	return zero
}
