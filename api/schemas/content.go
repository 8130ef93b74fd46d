// File: api/schemas/content.go
package schemas

// PageType classifies a page for prompt composition and action execution.
type PageType string

const (
	PageTypeGeneral PageType = "general"
	PageTypeCareer  PageType = "career"
)

// MaxMainContent bounds PageContent.MainContent, counted in runes.
const MaxMainContent = 2000

// PageContent is the typed snapshot of the page the browser is currently showing.
// A snapshot is never mutated after extraction; navigation produces a new one.
// JobListings and Buttons are only populated when PageType is PageTypeCareer.
type PageContent struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	PageType    PageType     `json:"page_type"`
	Headings    []string     `json:"headings"`
	JobListings []JobListing `json:"job_listings"`
	Forms       []FormInfo   `json:"forms"`
	Buttons     []ButtonInfo `json:"buttons"`
	MainContent string       `json:"main_content"`
}

// IsCareer reports whether the snapshot was classified as a career page.
func (p PageContent) IsCareer() bool { return p.PageType == PageTypeCareer }

// JobListing is one job block found on a career page.
type JobListing struct {
	Title       string     `json:"title"`
	Description string     `json:"description"` // The full trimmed text of the block.
	Ref         ElementRef `json:"-"`
}

// FormInfo describes a form and its input controls.
type FormInfo struct {
	Inputs []InputInfo `json:"inputs"`
	Ref    ElementRef  `json:"-"`
}

// InputInfo describes an input, textarea or select. Absent attributes are empty strings.
type InputInfo struct {
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Placeholder string     `json:"placeholder"`
	Ref         ElementRef `json:"-"`
}

// ButtonInfo is an apply-like control on a career page.
type ButtonInfo struct {
	Text string     `json:"text"`
	Ref  ElementRef `json:"-"`
}
