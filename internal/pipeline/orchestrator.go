// Package pipeline sequences the drafting components for one session: the
// first pass from requirement text to a draft, then feedback cycles that
// replace the draft with revised versions.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/autosurvey/internal/classify"
	"github.com/jonathan/autosurvey/internal/feedback"
	"github.com/jonathan/autosurvey/internal/retrieval"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
)

// DefaultCeiling is the number of history versions after which revisions
// carry a ceiling warning.
const DefaultCeiling = 5

// KeywordExtractor mines keywords from raw requirement text.
type KeywordExtractor interface {
	Extract(text string) []string
}

// RequirementExtractor turns raw text into a requirement record.
type RequirementExtractor interface {
	Extract(ctx context.Context, rawText string, keywords []string) (*types.RequirementRecord, error)
}

// Retriever fetches reference context for a query.
type Retriever interface {
	Search(ctx context.Context, query string, params types.RetrievalParams) (types.RetrievedContext, error)
}

// Classifier labels a requirement with a domain.
type Classifier interface {
	Classify(ctx context.Context, record *types.RequirementRecord, refs types.RetrievedContext) (types.Domain, error)
}

// Generator drafts the first questionnaire.
type Generator interface {
	Generate(ctx context.Context, record *types.RequirementRecord, refs types.RetrievedContext, profile string) (string, error)
}

// FeedbackStructurer classifies free-text feedback. It never fails.
type FeedbackStructurer interface {
	Structure(ctx context.Context, current, feedbackText string) feedback.Result
}

// Reviser applies an edit directive to a questionnaire.
type Reviser interface {
	Revise(ctx context.Context, previous string, fb types.StructuredFeedback, profile string) (string, error)
}

// Components are the collaborators an Orchestrator drives.
type Components struct {
	Keywords   KeywordExtractor
	Extractor  RequirementExtractor
	Retriever  Retriever
	Classifier Classifier
	Generator  Generator
	Structurer FeedbackStructurer
	Reviser    Reviser
}

// Options configures an Orchestrator.
type Options struct {
	// Ceiling is the advisory version ceiling. Zero means DefaultCeiling.
	Ceiling    int
	OnProgress ProgressCallback
	Logger     *zap.Logger
	// Now is used for history timestamps. Defaults to time.Now.
	Now func() time.Time
}

// SessionState is a point-in-time copy of a session.
type SessionState struct {
	State       State                    `json:"state"`
	Keywords    []string                 `json:"keywords,omitempty"`
	Requirement *types.RequirementRecord `json:"requirement,omitempty"`
	Params      *types.RetrievalParams   `json:"retrieval_params,omitempty"`
	Query       string                   `json:"query,omitempty"`
	Context     *types.RetrievedContext  `json:"context,omitempty"`
	Domain      types.Domain             `json:"domain,omitempty"`
	Profile     string                   `json:"profile,omitempty"`
	Current     string                   `json:"current,omitempty"`
	History     []types.VersionEntry     `json:"history,omitempty"`
	Iteration   int                      `json:"iteration"`
	Ceiling     int                      `json:"ceiling"`
}

// CeilingReached reports whether the history has reached the advisory ceiling.
func (s SessionState) CeilingReached() bool {
	return len(s.History) >= s.Ceiling
}

// RevisionResult is the outcome of one feedback cycle.
type RevisionResult struct {
	Questionnaire  string                   `json:"questionnaire"`
	Version        int                      `json:"version"`
	Feedback       types.StructuredFeedback `json:"feedback"`
	FallbackReason string                   `json:"fallback_reason,omitempty"`
	CeilingReached bool                     `json:"ceiling_reached"`
}

// Orchestrator owns one session's state. Its methods are safe for concurrent
// use; at most one collaborator pass runs at a time.
type Orchestrator struct {
	components Components
	onProgress ProgressCallback
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	state SessionState
	// epoch increments on Reset so in-flight work can detect it.
	epoch uint64
}

// New creates an Orchestrator in the Idle state.
func New(components Components, opts Options) *Orchestrator {
	if opts.Ceiling <= 0 {
		opts.Ceiling = DefaultCeiling
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		components: components,
		onProgress: opts.OnProgress,
		logger:     opts.Logger,
		now:        opts.Now,
		state:      SessionState{State: StateIdle, Ceiling: opts.Ceiling},
	}
}

// Start runs the first pass and returns the drafted questionnaire. On any
// failure the session returns to Idle with nothing recorded.
func (o *Orchestrator) Start(ctx context.Context, rawText string) (string, error) {
	if strings.TrimSpace(rawText) == "" {
		return "", ErrEmptyInput
	}

	epoch, err := o.begin("start a draft", StateIdle, StateExtracting, "요구사항 분석 중")
	if err != nil {
		return "", err
	}

	draft, err := o.firstPass(ctx, epoch, rawText)
	if err != nil {
		o.abort(epoch, StateIdle, err)
		return "", err
	}
	return draft, nil
}

func (o *Orchestrator) firstPass(ctx context.Context, epoch uint64, rawText string) (string, error) {
	c := o.components
	next := SessionState{}

	if c.Keywords != nil {
		next.Keywords = c.Keywords.Extract(rawText)
	}
	record, err := c.Extractor.Extract(ctx, rawText, next.Keywords)
	if err != nil {
		return "", fmt.Errorf("requirement extraction failed: %w", err)
	}
	next.Requirement = record

	params := retrieval.Tune(record)
	next.Params = &params
	next.Query = retrieval.BuildQuery(record)
	if err := o.advance(epoch, StateRetrieving, "참조 설문 검색 중", record); err != nil {
		return "", err
	}

	refs := types.NoContext()
	if c.Retriever != nil {
		found, err := c.Retriever.Search(ctx, next.Query, params)
		if err != nil {
			o.logger.Warn("retrieval failed, continuing without references", zap.Error(err))
			o.emit(ProgressEvent{State: StateRetrieving, Category: CategoryRetrieval,
				Message: "참조 설문 검색에 실패하여 참조 없이 진행합니다", Warning: true})
		} else {
			refs = found
		}
	}
	next.Context = &refs
	if err := o.advance(epoch, StateClassifying, "도메인 분류 중", nil); err != nil {
		return "", err
	}

	domain, err := c.Classifier.Classify(ctx, record, refs)
	if err != nil {
		return "", fmt.Errorf("domain classification failed: %w", err)
	}
	next.Domain = domain
	next.Profile = classify.ProfileFor(domain)
	if err := o.advance(epoch, StateGenerating, "설문지 생성 중", map[string]string{
		"domain":  string(domain),
		"profile": next.Profile,
	}); err != nil {
		return "", err
	}

	draft, err := c.Generator.Generate(ctx, record, refs, next.Profile)
	if err != nil {
		return "", fmt.Errorf("draft generation failed: %w", err)
	}
	next.Current = draft

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return "", ErrSessionReset
	}
	next.State = StateDrafted
	next.Ceiling = o.state.Ceiling
	next.History = []types.VersionEntry{{Version: 1, Questionnaire: draft, CreatedAt: o.now()}}
	o.state = next
	o.mu.Unlock()

	o.logger.Info("first draft ready",
		zap.String("domain", string(domain)),
		zap.String("profile", next.Profile),
		zap.Bool("references", !refs.NoMatch))
	o.emit(ProgressEvent{State: StateDrafted, Category: CategoryDrafting, Message: "설문지 생성 완료", Content: draft})
	return draft, nil
}

// ProcessFeedback runs one feedback cycle against the current draft.
// Structuring problems degrade to the fallback directive; revision failures
// are returned and leave the draft unchanged. Reaching the ceiling only sets
// RevisionResult.CeilingReached.
func (o *Orchestrator) ProcessFeedback(ctx context.Context, feedbackText string) (*RevisionResult, error) {
	if strings.TrimSpace(feedbackText) == "" {
		return nil, ErrEmptyInput
	}

	o.mu.Lock()
	switch o.state.State {
	case StateFeedbackPending, StateRevising:
		o.mu.Unlock()
		return nil, ErrRevisionInFlight
	case StateDrafted:
	default:
		state := o.state.State
		o.mu.Unlock()
		return nil, &StateError{Operation: "process feedback", State: state}
	}
	o.state.State = StateFeedbackPending
	epoch := o.epoch
	current := o.state.Current
	profile := o.state.Profile
	o.mu.Unlock()
	o.emit(ProgressEvent{State: StateFeedbackPending, Category: CategoryRevision, Message: "피드백 분석 중"})

	structured := o.components.Structurer.Structure(ctx, current, feedbackText)
	if structured.UsedFallback() {
		o.emit(ProgressEvent{State: StateFeedbackPending, Category: CategoryRevision, Warning: true,
			Message: "피드백을 구조화하지 못해 원문 그대로 전체 수정을 요청합니다"})
	}

	if err := o.advance(epoch, StateRevising, "설문지 수정 중", structured.Feedback); err != nil {
		return nil, err
	}

	revised, err := o.components.Reviser.Revise(ctx, current, structured.Feedback, profile)
	if err != nil {
		o.abort(epoch, StateDrafted, err)
		return nil, fmt.Errorf("revision failed: %w", err)
	}

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return nil, ErrSessionReset
	}
	version := len(o.state.History) + 1
	o.state.History = append(o.state.History, types.VersionEntry{
		Version:       version,
		Questionnaire: revised,
		CreatedAt:     o.now(),
	})
	o.state.Current = revised
	o.state.Iteration++
	o.state.State = StateDrafted
	ceiling := o.state.CeilingReached()
	limit := o.state.Ceiling
	o.mu.Unlock()

	o.emit(ProgressEvent{State: StateDrafted, Category: CategoryRevision,
		Message: fmt.Sprintf("버전 %d 생성 완료", version), Content: revised})
	if ceiling {
		o.logger.Warn("revision ceiling reached", zap.Int("version", version), zap.Int("ceiling", limit))
		o.emit(ProgressEvent{State: StateDrafted, Category: CategoryRevision, Warning: true,
			Message: fmt.Sprintf("최대 수정 횟수에 도달했습니다. (버전 %d/%d)", version, limit)})
	}

	return &RevisionResult{
		Questionnaire:  revised,
		Version:        version,
		Feedback:       structured.Feedback,
		FallbackReason: structured.FallbackReason,
		CeilingReached: ceiling,
	}, nil
}

// Approve finalizes the current draft.
func (o *Orchestrator) Approve() error {
	o.mu.Lock()
	if !CanTransition(o.state.State, StateApproved) {
		state := o.state.State
		o.mu.Unlock()
		return &StateError{Operation: "approve", State: state}
	}
	o.state.State = StateApproved
	o.mu.Unlock()

	o.emit(ProgressEvent{State: StateApproved, Category: CategorySession, Message: "설문지가 최종 승인되었습니다"})
	return nil
}

// Reset clears the session from any state. Work in flight finishes with
// ErrSessionReset.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.epoch++
	o.state = SessionState{State: StateIdle, Ceiling: o.state.Ceiling}
	o.mu.Unlock()

	o.emit(ProgressEvent{State: StateIdle, Category: CategorySession, Message: "세션이 초기화되었습니다"})
}

// Restore makes a copy of history version n the current questionnaire.
// History is not modified.
func (o *Orchestrator) Restore(n int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.State != StateDrafted {
		return "", &StateError{Operation: "restore a version", State: o.state.State}
	}
	entry, ok := o.version(n)
	if !ok {
		return "", &VersionNotFoundError{Version: n}
	}
	o.state.Current = entry.Questionnaire
	o.logger.Info("version restored", zap.Int("version", n))
	return entry.Questionnaire, nil
}

// Snapshot returns a copy of the session state.
func (o *Orchestrator) Snapshot() SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.state
	s.Keywords = append([]string(nil), o.state.Keywords...)
	s.History = append([]types.VersionEntry(nil), o.state.History...)
	if o.state.Requirement != nil {
		record := *o.state.Requirement
		record.Variables = append([]string(nil), record.Variables...)
		s.Requirement = &record
	}
	if o.state.Params != nil {
		params := *o.state.Params
		s.Params = &params
	}
	if o.state.Context != nil {
		refs := *o.state.Context
		refs.Sources = append([]string(nil), refs.Sources...)
		s.Context = &refs
	}
	return s
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.State
}

// History returns a copy of the version history.
func (o *Orchestrator) History() []types.VersionEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.VersionEntry(nil), o.state.History...)
}

// Version returns history version n.
func (o *Orchestrator) Version(n int) (types.VersionEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.version(n)
	if !ok {
		return types.VersionEntry{}, &VersionNotFoundError{Version: n}
	}
	return entry, nil
}

func (o *Orchestrator) version(n int) (types.VersionEntry, bool) {
	if n < 1 || n > len(o.state.History) {
		return types.VersionEntry{}, false
	}
	return o.state.History[n-1], true
}

// begin moves from the required state into a busy state.
func (o *Orchestrator) begin(operation string, from, to State, message string) (uint64, error) {
	o.mu.Lock()
	if o.state.State != from {
		state := o.state.State
		o.mu.Unlock()
		return 0, &StateError{Operation: operation, State: state}
	}
	o.state.State = to
	epoch := o.epoch
	o.mu.Unlock()

	o.emit(ProgressEvent{State: to, Category: to.Category(), Message: message})
	return epoch, nil
}

// advance moves to the next busy state unless the session was reset.
func (o *Orchestrator) advance(epoch uint64, to State, message string, content any) error {
	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return ErrSessionReset
	}
	o.state.State = to
	o.mu.Unlock()

	o.emit(ProgressEvent{State: to, Category: to.Category(), Message: message, Content: content})
	return nil
}

// abort returns to a resting state after a failed pass.
func (o *Orchestrator) abort(epoch uint64, to State, cause error) {
	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return
	}
	o.state.State = to
	o.mu.Unlock()

	o.logger.Warn("pass failed", zap.String("state", string(to)), zap.Error(cause))
	o.emit(ProgressEvent{State: to, Category: to.Category(), Warning: true, Message: cause.Error()})
}

func (o *Orchestrator) emit(event ProgressEvent) {
	if o.onProgress != nil {
		o.onProgress(event)
	}
}
