package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// Fixed replies used when the model cannot be consulted.
const (
	ApologyUnavailable = "I'm having trouble accessing my AI capabilities right now."
	ApologyTechnical   = "I'm experiencing some technical difficulties."
)

// WelcomeRequest is the utterance used to produce the spoken greeting.
const WelcomeRequest = "Introduce yourself as the enhanced voice assistant for %s website. Mention the push-to-talk feature and what you can help with."

var exitKeywords = []string{"stop", "exit", "quit", "goodbye", "bye"}

// Agent is the turn orchestrator. It owns the session state, the conversation
// memory and the navigator, and must be driven by one turn at a time.
type Agent struct {
	id        string
	logger    *zap.Logger
	cfg       config.AgentConfig
	llm       schemas.LLMClient
	speaker   schemas.Speaker
	session   *SessionState
	memory    *ConversationMemory
	navigator *Navigator
	network   config.NetworkConfig
	now       func() time.Time
}

// New wires an agent for the configured site.
func New(logger *zap.Logger, cfg *config.Config, llm schemas.LLMClient, page schemas.Page, ext ContentExtractor, speaker schemas.Speaker) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if llm == nil {
		return nil, errors.New("llm client cannot be nil")
	}
	if page == nil {
		return nil, errors.New("page cannot be nil")
	}
	if ext == nil {
		return nil, errors.New("content extractor cannot be nil")
	}
	if speaker == nil {
		return nil, errors.New("speaker cannot be nil")
	}

	id := uuid.New().String()[:8]
	logger = logger.Named("agent").With(zap.String("session_id", id))

	session := NewSessionState(WebsiteContext{
		CompanyName: cfg.Site.CompanyName,
		BaseURL:     cfg.Site.BaseURL,
		Pages:       append([]string(nil), cfg.Site.Pages...),
		Services:    append([]string(nil), cfg.Site.Services...),
		Paths:       copyPaths(cfg.Site.Paths),
	})

	return &Agent{
		id:        id,
		logger:    logger,
		cfg:       cfg.Agent,
		llm:       llm,
		speaker:   speaker,
		session:   session,
		memory:    NewConversationMemory(cfg.Agent.MemorySize),
		navigator: NewNavigator(logger, page, ext, session, cfg.Network),
		network:   cfg.Network,
		now:       time.Now,
	}, nil
}

func (a *Agent) ID() string { return a.id }
func (a *Agent) Session() *SessionState { return a.session }
func (a *Agent) Memory() *ConversationMemory { return a.memory }
func (a *Agent) Navigator() *Navigator { return a.navigator }
func (a *Agent) Content() schemas.PageContent { return a.navigator.Content() }
func (a *Agent) Farewell() string { return farewell(a.session.Site().CompanyName) }

func farewell(company string) string {
	return fmt.Sprintf("Thank you for using the %s voice assistant. Goodbye!", company)
}

// Open loads the website and takes the initial page snapshot.
func (a *Agent) Open(ctx context.Context) error {
	_, err := a.navigator.Open(ctx, a.network.InitialLoadWait)
	return err
}

// Welcome asks the model for a greeting and speaks it. The exchange is kept
// in memory like any other turn.
func (a *Agent) Welcome(ctx context.Context) string {
	reply, _ := a.respond(ctx, fmt.Sprintf(WelcomeRequest, a.session.Site().CompanyName))
	a.speak(ctx, reply)
	return reply
}

// HandleUtterance runs one full turn: extract, compose, infer, resolve,
// execute and speak. Continue is false once the user asked to end the session.
func (a *Agent) HandleUtterance(ctx context.Context, utterance string) TurnResult {
	result := TurnResult{ID: uuid.NewString(), Continue: true}
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		observability.TurnsTotal.WithLabelValues("empty").Inc()
		return result
	}
	logger := a.logger.With(zap.String("turn_id", result.ID))
	logger.Info("Handling utterance.", zap.String("utterance", utterance))

	if IsExit(utterance) {
		result.Reply = a.Farewell()
		result.Continue = false
		observability.TurnsTotal.WithLabelValues("exit").Inc()
		a.speak(ctx, result.Reply)
		return result
	}

	reply, ok := a.respond(ctx, utterance)
	result.Reply = reply

	// Actions are resolved even on an apology; the utterance alone may carry intent.
	result.Actions = Resolve(reply, utterance, a.session.Site().Pages)
	result.Results = make([]ExecutionResult, 0, len(result.Actions))
	for _, action := range result.Actions {
		res := a.navigator.Execute(ctx, action)
		result.Results = append(result.Results, res)
		if action.Type == ActionApplyForJob && res.Succeeded() {
			result.Reply += fmt.Sprintf(" I've found the %s position and opened the application process for you.", action.Value)
		}
	}

	outcome := "completed"
	if !ok {
		outcome = "inference_failed"
	}
	observability.TurnsTotal.WithLabelValues(outcome).Inc()
	logger.Info("Turn complete.",
		zap.Int("actions", len(result.Actions)),
		zap.String("current_url", a.session.CurrentURL()),
	)
	a.speak(ctx, result.Reply)
	return result
}

// IsExit reports whether utterance asks to end the session.
func IsExit(utterance string) bool {
	return containsAny(strings.ToLower(utterance), exitKeywords)
}

// respond consults the model about the current page. On failure it returns a
// fixed apology and false, and the exchange is not remembered.
func (a *Agent) respond(ctx context.Context, utterance string) (string, bool) {
	content := a.navigator.Refresh(ctx)
	req := schemas.GenerationRequest{
		SystemPrompt: Compose(content, a.memory.Recent(a.cfg.PromptHistory), a.session.Site().CompanyName),
		UserPrompt:   utterance,
		Options: schemas.GenerationOptions{
			Temperature: a.cfg.LLM.Temperature,
			TopP:        a.cfg.LLM.TopP,
			MaxTokens:   a.cfg.LLM.MaxTokens,
		},
	}

	callCtx, cancel := withOptionalTimeout(ctx, a.cfg.LLM.APITimeout)
	defer cancel()
	start := time.Now()
	reply, err := a.llm.Generate(callCtx, req)
	provider := string(a.cfg.LLM.Provider)
	if err != nil {
		observability.InferenceDuration.WithLabelValues(provider, "error").Observe(time.Since(start).Seconds())
		a.logger.Error("Inference failed.", zap.String("error_code", string(ErrCodeInferenceFailure)), zap.Error(err))
		return apologyFor(err), false
	}
	observability.InferenceDuration.WithLabelValues(provider, "ok").Observe(time.Since(start).Seconds())

	a.memory.Record(ConversationTurn{
		User:        utterance,
		Assistant:   reply,
		PageContext: content.PageType,
		Timestamp:   a.now(),
	})
	return reply, true
}

func apologyFor(err error) string {
	var ie *schemas.InferenceError
	if errors.As(err, &ie) && ie.Kind == schemas.InferenceNon200 {
		return ApologyUnavailable
	}
	return ApologyTechnical
}

func (a *Agent) speak(ctx context.Context, text string) {
	if err := a.speaker.Speak(ctx, text); err != nil {
		a.logger.Warn("Could not speak reply.", zap.Error(err))
	}
}

func copyPaths(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
