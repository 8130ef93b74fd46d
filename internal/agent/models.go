// internal/agent/models.go
package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/sitevoice/api/schemas"
)

// ActionType enumerates what a resolved action asks the browser to do.
type ActionType string

const (
	ActionNavigate    ActionType = "NAVIGATE"      // Load one of the site's known pages.
	ActionApplyForJob ActionType = "APPLY_FOR_JOB" // Find a job by keyword and open its application.
	ActionShowJobs    ActionType = "SHOW_JOBS"     // Apply intent without a recognizable job.
)

// Action is one step produced by the resolver. Value holds the page key for
// ActionNavigate and the job keyword for ActionApplyForJob.
type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value,omitempty"`
}

func Navigate(page string) Action       { return Action{Type: ActionNavigate, Value: page} }
func ApplyForJob(keyword string) Action { return Action{Type: ActionApplyForJob, Value: keyword} }
func ShowJobs() Action                  { return Action{Type: ActionShowJobs} }

func (a Action) String() string {
	if a.Value == "" {
		return string(a.Type)
	}
	return fmt.Sprintf("%s(%s)", a.Type, a.Value)
}

// ExecutionResult reports the outcome of one action. ErrorCode is set for
// failures and for soft successes such as a missing apply control.
type ExecutionResult struct {
	Action    Action    `json:"action"`
	Status    string    `json:"status"` // "success" or "failed"
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Succeeded reports whether the action completed, including soft successes.
func (r ExecutionResult) Succeeded() bool { return r.Status == StatusSuccess }

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// NavState is the state machine's current phase.
type NavState string

const (
	StateIdle          NavState = "IDLE"
	StateNavigating    NavState = "NAVIGATING"
	StateApplyingToJob NavState = "APPLYING_TO_JOB"
)

// ConversationTurn is one exchange kept in conversation memory.
type ConversationTurn struct {
	User        string           `json:"user"`
	Assistant   string           `json:"assistant"`
	PageContext schemas.PageType `json:"page_context"`
	Timestamp   time.Time        `json:"timestamp"`
}

// WebsiteContext is the static description of the narrated site.
type WebsiteContext struct {
	CompanyName string            `json:"company_name"`
	BaseURL     string            `json:"website_url"`
	Pages       []string          `json:"available_pages"`
	Services    []string          `json:"main_services"`
	Paths       map[string]string `json:"-"`
}

// SessionState is the mutable state of one assistant session. The turn in
// flight writes the URL; the push-to-talk front-end writes the flags.
type SessionState struct {
	mu          sync.RWMutex
	currentURL  string
	isRecording bool
	listening   bool
	site        WebsiteContext
}

// SessionSnapshot is a point-in-time copy of SessionState.
type SessionSnapshot struct {
	CurrentURL  string         `json:"current_url"`
	IsRecording bool           `json:"is_recording"`
	Listening   bool           `json:"listening"`
	Site        WebsiteContext `json:"website_context"`
}

// NewSessionState creates session state for site.
func NewSessionState(site WebsiteContext) *SessionState {
	return &SessionState{site: site}
}

func (s *SessionState) Site() WebsiteContext { return s.site }

func (s *SessionState) CurrentURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentURL
}

func (s *SessionState) SetCurrentURL(url string) {
	s.mu.Lock()
	s.currentURL = url
	s.mu.Unlock()
}

// SetRecording updates the push-to-talk flags.
func (s *SessionState) SetRecording(recording, listening bool) {
	s.mu.Lock()
	s.isRecording = recording
	s.listening = listening
	s.mu.Unlock()
}

func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		CurrentURL:  s.currentURL,
		IsRecording: s.isRecording,
		Listening:   s.listening,
		Site:        s.site,
	}
}

// TurnResult is what one utterance produced.
type TurnResult struct {
	ID       string            `json:"id"`
	Reply    string            `json:"reply"`
	Actions  []Action          `json:"actions"`
	Results  []ExecutionResult `json:"results"`
	Continue bool              `json:"continue"`
}
