package domain

const (
	SectionThesisFragment   = "Thesis Fragment"
	SectionPatternOfTheWeek = "Pattern of the Week"
	SectionPromptPack       = "Prompt Pack"
	SectionBuildLog         = "Build Log"
	SectionCTA              = "CTA"
)

// NewsletterSections: фиксированный набор разделов выпуска в порядке вывода.
var NewsletterSections = []string{
	SectionThesisFragment,
	SectionPatternOfTheWeek,
	SectionPromptPack,
	SectionBuildLog,
	SectionCTA,
}
