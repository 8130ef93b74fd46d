// File: internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
)

const (
	promptHeadings       = 3
	promptJobDescription = 200
	promptMainContent    = 800
)

// promptJSON renders the embedded JSON blocks. HTML escaping is off so page
// text reaches the model as written.
var promptJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

const capabilities = `ENHANCED CAPABILITIES:
- Answer questions about company, services, jobs with specific details from current page
- Navigate to different pages intelligently
- Help with job applications by finding specific jobs and application forms
- Remember conversation context and refer to previous discussions
- Extract and provide specific information from current page content`

const instructions = `IMPORTANT INSTRUCTIONS:
1. If user asks about specific jobs (like "AI LLM intern"), provide details from the job listings above
2. If user wants to apply for a job, guide them to the specific application process
3. Remember what we discussed before - refer to previous context
4. Be specific about job details (duration, requirements, etc.) when available
5. Keep responses conversational but informative (2-3 sentences max)
6. If you need to perform actions (navigate, click apply), mention them clearly`

// Compose builds the system prompt for one turn from the current page and the
// recent conversation. The utterance itself travels as the user message.
func Compose(content schemas.PageContent, recent []ConversationTurn, companyName string) string {
	url := content.URL
	if url == "" {
		url = "unknown"
	}
	pageType := content.PageType
	if pageType == "" {
		pageType = schemas.PageTypeGeneral
	}
	headings := content.Headings
	if len(headings) > promptHeadings {
		headings = headings[:promptHeadings]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an intelligent voice assistant for the %s website.\n\n", companyName)
	b.WriteString(capabilities)
	b.WriteString("\n\nCURRENT PAGE DETAILS:\n")
	fmt.Fprintf(&b, "- URL: %s\n", url)
	fmt.Fprintf(&b, "- Page Type: %s\n", pageType)
	fmt.Fprintf(&b, "- Title: %s\n", content.Title)
	fmt.Fprintf(&b, "- Main Headings: %s\n\n", strings.Join(headings, ", "))
	b.WriteString(careerBlock(content))
	b.WriteString("\n\n")
	b.WriteString(conversationBlock(recent))
	b.WriteString("\n\n")
	b.WriteString(instructions)
	b.WriteString("\n\nCurrent page content: ")
	b.WriteString(extractor.Truncate(content.MainContent, promptMainContent))
	return b.String()
}

func careerBlock(content schemas.PageContent) string {
	if !content.IsCareer() {
		return ""
	}
	jobs := make([]string, 0, len(content.JobListings))
	for _, job := range content.JobListings {
		jobs = append(jobs, job.Title+": "+extractor.Truncate(job.Description, promptJobDescription))
	}
	return fmt.Sprintf("\nCURRENT PAGE: Career page with job listings\nAVAILABLE JOBS: %s\nAPPLY BUTTONS AVAILABLE: %t\n",
		indentJSON(jobs), len(content.Buttons) > 0)
}

func conversationBlock(recent []ConversationTurn) string {
	if len(recent) == 0 {
		return ""
	}
	return "RECENT CONVERSATION:\n" + indentJSON(recent)
}

func indentJSON(v interface{}) string {
	data, err := promptJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		// Only plain strings and turns reach here.
		return "[]"
	}
	return string(data)
}
