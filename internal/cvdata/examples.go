package cvdata

// Placeholder example content shown in builder mode when a field is empty.
// Published renders never see these values.

var examplesByLang = map[string]CVData{
	"en": {
		Personal: Personal{
			FirstName: "Alex",
			LastName:  "Morgan",
			Headline:  "Product Designer",
			Email:     "alex@example.com",
			Phone:     "+1 555 010 2030",
			Location:  "Lyon, France",
			Website:   "alexmorgan.design",
			Summary:   "Product designer with 6 years of experience crafting simple, accessible interfaces for web and mobile.",
		},
		Experiences: []Experience{
			{Role: "Senior Product Designer", Company: "Acme Studio", Location: "Remote", StartYear: "2021", EndYear: "Present", Description: "Led the redesign of the onboarding flow, raising activation by 18%."},
			{Role: "Product Designer", Company: "Northwind", Location: "Paris", StartYear: "2018", EndYear: "2021", Description: "Shipped the design system used across four product teams."},
		},
		Education: []Education{
			{Degree: "MSc Interaction Design", School: "ENSCI Les Ateliers", Location: "Paris", StartYear: "2016", EndYear: "2018", Description: ""},
			{Degree: "BA Visual Arts", School: "Université Lumière", Location: "Lyon", StartYear: "2013", EndYear: "2016", Description: ""},
		},
		Skills: []Skill{
			{Name: "Interface design", Level: "Expert"},
			{Name: "Prototyping", Level: "Advanced"},
			{Name: "User research", Level: "Advanced"},
		},
		Languages: []Language{
			{Name: "English", Level: "Native"},
			{Name: "French", Level: "Fluent"},
		},
		Tools: []Tool{
			{Name: "Figma", Level: "Expert"},
			{Name: "After Effects", Level: "Intermediate"},
		},
		Certifications: []Certification{
			{Name: "UX Certification", Issuer: "Nielsen Norman Group", Year: "2020"},
		},
		Hobbies: []Hobby{
			{Name: "Bouldering"},
			{Name: "Analog photography"},
		},
	},
	"fr": {
		Personal: Personal{
			FirstName: "Alex",
			LastName:  "Morgan",
			Headline:  "Designer produit",
			Email:     "alex@exemple.fr",
			Phone:     "+33 6 10 20 30 40",
			Location:  "Lyon, France",
			Website:   "alexmorgan.design",
			Summary:   "Designer produit avec 6 ans d'expérience dans la conception d'interfaces simples et accessibles.",
		},
		Experiences: []Experience{
			{Role: "Designer produit senior", Company: "Acme Studio", Location: "Télétravail", StartYear: "2021", EndYear: "Aujourd'hui", Description: "Refonte du parcours d'inscription, +18% d'activation."},
			{Role: "Designer produit", Company: "Northwind", Location: "Paris", StartYear: "2018", EndYear: "2021", Description: "Création du design system utilisé par quatre équipes produit."},
		},
		Education: []Education{
			{Degree: "Master Design d'interaction", School: "ENSCI Les Ateliers", Location: "Paris", StartYear: "2016", EndYear: "2018", Description: ""},
			{Degree: "Licence Arts visuels", School: "Université Lumière", Location: "Lyon", StartYear: "2013", EndYear: "2016", Description: ""},
		},
		Skills: []Skill{
			{Name: "Design d'interface", Level: "Expert"},
			{Name: "Prototypage", Level: "Avancé"},
			{Name: "Recherche utilisateur", Level: "Avancé"},
		},
		Languages: []Language{
			{Name: "Français", Level: "Langue maternelle"},
			{Name: "Anglais", Level: "Courant"},
		},
		Tools: []Tool{
			{Name: "Figma", Level: "Expert"},
			{Name: "After Effects", Level: "Intermédiaire"},
		},
		Certifications: []Certification{
			{Name: "Certification UX", Issuer: "Nielsen Norman Group", Year: "2020"},
		},
		Hobbies: []Hobby{
			{Name: "Escalade"},
			{Name: "Photographie argentique"},
		},
	},
}

// Examples returns the localized placeholder resume for the given language,
// falling back to English for unknown languages.
func Examples(lang string) CVData {
	if ex, ok := examplesByLang[lang]; ok {
		return ex
	}
	return examplesByLang["en"]
}
