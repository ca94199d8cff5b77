package cvdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CVData is the canonical resume shape every template renderer consumes.
// Stored payloads may use legacy field names; Decode reconciles them here so
// renderers never have to know the historical variants.
type CVData struct {
	Personal       Personal        `json:"personal"`
	Experiences    []Experience    `json:"experiences"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Languages      []Language      `json:"languages"`
	Tools          []Tool          `json:"tools"`
	Certifications []Certification `json:"certifications"`
	Hobbies        []Hobby         `json:"hobbies"`
	Settings       Settings        `json:"settings"`
}

// Personal holds the identity block at the top of a resume.
type Personal struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Headline  string `json:"headline"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	Website   string `json:"website"`
	Summary   string `json:"summary"`
}

type Experience struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	StartYear   string `json:"start_year"`
	EndYear     string `json:"end_year"`
	Description string `json:"description"`
}

type Education struct {
	Degree      string `json:"degree"`
	School      string `json:"school"`
	Location    string `json:"location"`
	StartYear   string `json:"start_year"`
	EndYear     string `json:"end_year"`
	Description string `json:"description"`
}

type Skill struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Language struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Tool struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Year   string `json:"year"`
}

type Hobby struct {
	Name string `json:"name"`
}

// Settings are the display toggles of the builder.
type Settings struct {
	HidePhoto  bool `json:"hide_photo"`
	HideLevels bool `json:"hide_levels"`
	HideDates  bool `json:"hide_dates"`
}

// Blank reports whether every field of the entry is empty after trimming.
func (e Experience) Blank() bool {
	return allBlank(e.Role, e.Company, e.Location, e.StartYear, e.EndYear, e.Description)
}

func (e Education) Blank() bool {
	return allBlank(e.Degree, e.School, e.Location, e.StartYear, e.EndYear, e.Description)
}

func (s Skill) Blank() bool         { return allBlank(s.Name, s.Level) }
func (l Language) Blank() bool      { return allBlank(l.Name, l.Level) }
func (t Tool) Blank() bool          { return allBlank(t.Name, t.Level) }
func (c Certification) Blank() bool { return allBlank(c.Name, c.Issuer, c.Year) }
func (h Hobby) Blank() bool         { return allBlank(h.Name) }

func allBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// rawEntry carries both current and legacy field names for a list entry.
// Legacy payloads used diploma/from/to/title/about; the canonical value wins
// when both are present.
type rawEntry struct {
	// shared
	Location    string `json:"location"`
	StartYear   string `json:"start_year"`
	EndYear     string `json:"end_year"`
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Name        string `json:"name"`
	Level       string `json:"level"`

	// experience
	Role    string `json:"role"`
	Title   string `json:"title"`
	Company string `json:"company"`

	// education
	Degree  string `json:"degree"`
	Diploma string `json:"diploma"`
	School  string `json:"school"`

	// certification
	Issuer string `json:"issuer"`
	Year   string `json:"year"`
}

type rawPersonal struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Headline  string `json:"headline"`
	JobTitle  string `json:"job_title"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	Website   string `json:"website"`
	Summary   string `json:"summary"`
	About     string `json:"about"`
}

type rawData struct {
	Personal       rawPersonal `json:"personal"`
	Experiences    []rawEntry  `json:"experiences"`
	Education      []rawEntry  `json:"education"`
	Skills         []rawEntry  `json:"skills"`
	Languages      []rawEntry  `json:"languages"`
	Tools          []rawEntry  `json:"tools"`
	Certifications []rawEntry  `json:"certifications"`
	Hobbies        []rawEntry  `json:"hobbies"`
	Settings       Settings    `json:"settings"`
}

// Decode parses raw resume content into the canonical shape, migrating legacy
// field-name variants in one place. Partial input is fine: missing sections
// decode to nil slices, missing scalars to empty strings.
func Decode(raw []byte) (CVData, error) {
	if len(raw) == 0 {
		return CVData{}, nil
	}

	var in rawData
	if err := json.Unmarshal(raw, &in); err != nil {
		return CVData{}, fmt.Errorf("decode resume content: %w", err)
	}

	out := CVData{
		Personal: Personal{
			FirstName: in.Personal.FirstName,
			LastName:  in.Personal.LastName,
			Headline:  coalesce(in.Personal.Headline, in.Personal.JobTitle),
			Email:     in.Personal.Email,
			Phone:     in.Personal.Phone,
			Location:  in.Personal.Location,
			Website:   in.Personal.Website,
			Summary:   coalesce(in.Personal.Summary, in.Personal.About),
		},
		Settings: in.Settings,
	}

	for _, e := range in.Experiences {
		out.Experiences = append(out.Experiences, Experience{
			Role:        coalesce(e.Role, e.Title),
			Company:     e.Company,
			Location:    e.Location,
			StartYear:   coalesce(e.StartYear, e.From),
			EndYear:     coalesce(e.EndYear, e.To),
			Description: coalesce(e.Description, e.Details),
		})
	}
	for _, e := range in.Education {
		out.Education = append(out.Education, Education{
			Degree:      coalesce(e.Degree, e.Diploma),
			School:      e.School,
			Location:    e.Location,
			StartYear:   coalesce(e.StartYear, e.From),
			EndYear:     coalesce(e.EndYear, e.To),
			Description: coalesce(e.Description, e.Details),
		})
	}
	for _, e := range in.Skills {
		out.Skills = append(out.Skills, Skill{Name: e.Name, Level: e.Level})
	}
	for _, e := range in.Languages {
		out.Languages = append(out.Languages, Language{Name: e.Name, Level: e.Level})
	}
	for _, e := range in.Tools {
		out.Tools = append(out.Tools, Tool{Name: e.Name, Level: e.Level})
	}
	for _, e := range in.Certifications {
		out.Certifications = append(out.Certifications, Certification{Name: e.Name, Issuer: e.Issuer, Year: coalesce(e.Year, e.To)})
	}
	for _, e := range in.Hobbies {
		out.Hobbies = append(out.Hobbies, Hobby{Name: e.Name})
	}

	return out, nil
}

// Canonical returns the deterministic JSON encoding of d used for content
// hashing: fields trimmed, key order fixed by the struct definition. Stable
// across client-side key ordering and whitespace differences.
func Canonical(d CVData) ([]byte, error) {
	data, err := json.Marshal(trimmed(d))
	if err != nil {
		return nil, fmt.Errorf("marshal canonical content: %w", err)
	}
	return data, nil
}

func trimmed(d CVData) CVData {
	t := strings.TrimSpace
	d.Personal = Personal{
		FirstName: t(d.Personal.FirstName),
		LastName:  t(d.Personal.LastName),
		Headline:  t(d.Personal.Headline),
		Email:     t(d.Personal.Email),
		Phone:     t(d.Personal.Phone),
		Location:  t(d.Personal.Location),
		Website:   t(d.Personal.Website),
		Summary:   t(d.Personal.Summary),
	}
	for i, e := range d.Experiences {
		d.Experiences[i] = Experience{t(e.Role), t(e.Company), t(e.Location), t(e.StartYear), t(e.EndYear), t(e.Description)}
	}
	for i, e := range d.Education {
		d.Education[i] = Education{t(e.Degree), t(e.School), t(e.Location), t(e.StartYear), t(e.EndYear), t(e.Description)}
	}
	for i, e := range d.Skills {
		d.Skills[i] = Skill{t(e.Name), t(e.Level)}
	}
	for i, e := range d.Languages {
		d.Languages[i] = Language{t(e.Name), t(e.Level)}
	}
	for i, e := range d.Tools {
		d.Tools[i] = Tool{t(e.Name), t(e.Level)}
	}
	for i, e := range d.Certifications {
		d.Certifications[i] = Certification{t(e.Name), t(e.Issuer), t(e.Year)}
	}
	for i, e := range d.Hobbies {
		d.Hobbies[i] = Hobby{t(e.Name)}
	}
	return d
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
