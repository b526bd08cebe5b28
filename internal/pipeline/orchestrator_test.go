package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/autosurvey/internal/feedback"
	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeywords struct{}

func (fakeKeywords) Extract(_ string) []string { return []string{"만족도", "대학생"} }

type fakeExtractor struct {
	err    error
	record *types.RequirementRecord
	gotKw  []string
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, keywords []string) (*types.RequirementRecord, error) {
	f.gotKw = keywords
	if f.err != nil {
		return nil, f.err
	}
	if f.record != nil {
		return f.record, nil
	}
	return &types.RequirementRecord{
		Purpose:            "온라인 강의 만족도 조사",
		TargetPopulation:   "대학생",
		Variables:          []string{"강의 만족도", "학습 효과"},
		RequestedItemCount: "70문항 이상",
	}, nil
}

type fakeRetriever struct {
	err       error
	gotQuery  string
	gotParams types.RetrievalParams
}

func (f *fakeRetriever) Search(_ context.Context, query string, params types.RetrievalParams) (types.RetrievedContext, error) {
	f.gotQuery, f.gotParams = query, params
	if f.err != nil {
		return types.RetrievedContext{}, f.err
	}
	return types.RetrievedContext{Text: "강의 평가 설문 요약"}, nil
}

type fakeClassifier struct {
	err error
}

func (f *fakeClassifier) Classify(_ context.Context, _ *types.RequirementRecord, _ types.RetrievedContext) (types.Domain, error) {
	if f.err != nil {
		return "", f.err
	}
	return types.DomainEducation, nil
}

type fakeGenerator struct {
	err        error
	gotProfile string
	gotRefs    types.RetrievedContext
}

func (f *fakeGenerator) Generate(_ context.Context, _ *types.RequirementRecord, refs types.RetrievedContext, profile string) (string, error) {
	f.gotProfile, f.gotRefs = profile, refs
	if f.err != nil {
		return "", f.err
	}
	return "SQ1. 학년?\n- ① 1학년\n\nQ1. 만족?\n- ① 예\n", nil
}

type fakeStructurer struct {
	fail bool
}

func (f *fakeStructurer) Structure(_ context.Context, _ string, text string) feedback.Result {
	if f.fail {
		return feedback.Result{Feedback: types.FallbackFeedback(text), FallbackReason: "generation failed"}
	}
	return feedback.Result{Feedback: types.StructuredFeedback{
		EditKind: types.EditItemModify, TargetItem: "Q1", Instruction: text, Priority: types.PriorityMedium,
	}}
}

type fakeReviser struct {
	mu      sync.Mutex
	err     error
	gotFb   []types.StructuredFeedback
	block   chan struct{}
	started chan struct{}
}

func (f *fakeReviser) Revise(_ context.Context, previous string, fb types.StructuredFeedback, _ string) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotFb = append(f.gotFb, fb)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s\nQ%d. 추가 문항\n", previous, len(f.gotFb)+1), nil
}

type fixture struct {
	extractor  *fakeExtractor
	retriever  *fakeRetriever
	classifier *fakeClassifier
	generator  *fakeGenerator
	structurer *fakeStructurer
	reviser    *fakeReviser
	events     []ProgressEvent
	eventsMu   sync.Mutex
}

func newFixture() *fixture {
	return &fixture{
		extractor:  &fakeExtractor{},
		retriever:  &fakeRetriever{},
		classifier: &fakeClassifier{},
		generator:  &fakeGenerator{},
		structurer: &fakeStructurer{},
		reviser:    &fakeReviser{},
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(Components{
		Keywords:   fakeKeywords{},
		Extractor:  f.extractor,
		Retriever:  f.retriever,
		Classifier: f.classifier,
		Generator:  f.generator,
		Structurer: f.structurer,
		Reviser:    f.reviser,
	}, Options{
		OnProgress: func(e ProgressEvent) {
			f.eventsMu.Lock()
			f.events = append(f.events, e)
			f.eventsMu.Unlock()
		},
		Now: func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	})
}

func (f *fixture) states() []State {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	var states []State
	for _, e := range f.events {
		if !e.Warning {
			states = append(states, e.State)
		}
	}
	return states
}

func drafted(t *testing.T, f *fixture) *Orchestrator {
	t.Helper()
	o := f.orchestrator()
	_, err := o.Start(context.Background(), "대학생 대상 온라인 강의 만족도 설문 70문항 이상")
	require.NoError(t, err)
	return o
}

func TestStart_FirstPass(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	draft, err := o.Start(context.Background(), "대학생 대상 온라인 강의 만족도 설문 70문항 이상")

	require.NoError(t, err)
	assert.Contains(t, draft, "SQ1. 학년?")
	assert.Equal(t, []string{"만족도", "대학생"}, f.extractor.gotKw)
	assert.Equal(t, 3, f.retriever.gotParams.ResultCount)
	assert.Contains(t, f.retriever.gotQuery, "대학생")
	assert.Equal(t, "autosurvey-edu", f.generator.gotProfile)
	assert.Equal(t, "강의 평가 설문 요약", f.generator.gotRefs.Text)
	assert.Equal(t, []State{StateExtracting, StateRetrieving, StateClassifying, StateGenerating, StateDrafted}, f.states())

	snap := o.Snapshot()
	assert.Equal(t, StateDrafted, snap.State)
	assert.Equal(t, types.DomainEducation, snap.Domain)
	assert.Equal(t, "autosurvey-edu", snap.Profile)
	assert.Equal(t, draft, snap.Current)
	require.Len(t, snap.History, 1)
	assert.Equal(t, 1, snap.History[0].Version)
	assert.Equal(t, 0, snap.Iteration)
	assert.Equal(t, DefaultCeiling, snap.Ceiling)
}

func TestStart_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t"} {
		f := newFixture()
		o := f.orchestrator()

		_, err := o.Start(context.Background(), input)

		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Equal(t, StateIdle, o.State())
		assert.Empty(t, o.History())
		assert.Empty(t, f.events)
	}
}

func TestStart_FailuresReturnToIdle(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"extraction", func(f *fixture) {
			f.extractor.err = &llm.MalformedResponseError{Stage: "requirement extraction"}
		}},
		{"classification", func(f *fixture) { f.classifier.err = errors.New("boom") }},
		{"generation", func(f *fixture) {
			f.generator.err = &llm.TimeoutError{Operation: "generate for profile autosurvey-edu"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			o := f.orchestrator()

			_, err := o.Start(context.Background(), "요구사항")

			require.Error(t, err)
			snap := o.Snapshot()
			assert.Equal(t, StateIdle, snap.State)
			assert.Nil(t, snap.Requirement)
			assert.Empty(t, snap.Current)
			assert.Empty(t, snap.History)
		})
	}
}

func TestStart_ExtractionErrorIsMalformed(t *testing.T) {
	f := newFixture()
	f.extractor.err = &llm.MalformedResponseError{Stage: "requirement extraction"}

	_, err := f.orchestrator().Start(context.Background(), "요구사항")

	var malformed *llm.MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestStart_RetrievalFailureContinuesWithoutReferences(t *testing.T) {
	f := newFixture()
	f.retriever.err = errors.New("database unavailable")

	_, err := f.orchestrator().Start(context.Background(), "요구사항")

	require.NoError(t, err)
	assert.True(t, f.generator.gotRefs.NoMatch)
}

func TestStart_RequiresIdle(t *testing.T) {
	o := drafted(t, newFixture())

	_, err := o.Start(context.Background(), "다시")

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, StateDrafted, stateErr.State)
}

func TestProcessFeedback_AppendsVersion(t *testing.T) {
	f := newFixture()
	o := drafted(t, f)

	result, err := o.ProcessFeedback(context.Background(), "Q1을 5점 척도로")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)
	assert.Equal(t, "Q1", result.Feedback.TargetItem)
	assert.Empty(t, result.FallbackReason)
	assert.False(t, result.CeilingReached)

	snap := o.Snapshot()
	assert.Equal(t, StateDrafted, snap.State)
	assert.Equal(t, result.Questionnaire, snap.Current)
	assert.Equal(t, 1, snap.Iteration)
	require.Len(t, snap.History, 2)
	assert.Equal(t, result.Questionnaire, snap.History[1].Questionnaire)
}

func TestProcessFeedback_FallbackStillRevises(t *testing.T) {
	f := newFixture()
	f.structurer.fail = true
	o := drafted(t, f)

	result, err := o.ProcessFeedback(context.Background(), "전체적으로 다듬어 주세요")

	require.NoError(t, err)
	assert.Equal(t, "generation failed", result.FallbackReason)
	assert.Equal(t, types.FallbackFeedback("전체적으로 다듬어 주세요"), f.reviser.gotFb[0])
	assert.Equal(t, 2, result.Version)
}

func TestProcessFeedback_CeilingIsAdvisory(t *testing.T) {
	o := drafted(t, newFixture())

	var results []*RevisionResult
	for i := 0; i < 6; i++ {
		result, err := o.ProcessFeedback(context.Background(), fmt.Sprintf("피드백 %d", i+1))
		require.NoError(t, err)
		results = append(results, result)
	}

	// The first draft is version 1, so the fourth revision is version 5.
	assert.False(t, results[2].CeilingReached)
	assert.True(t, results[3].CeilingReached)
	assert.True(t, results[5].CeilingReached)
	assert.Equal(t, 7, results[5].Version)
	assert.Len(t, o.History(), 7)
	assert.Equal(t, 6, o.Snapshot().Iteration)
}

func TestProcessFeedback_RevisionErrorKeepsDraft(t *testing.T) {
	f := newFixture()
	o := drafted(t, f)
	before := o.Snapshot()
	f.reviser.err = &llm.GenerationError{Operation: "revision", Cause: errors.New("unavailable")}

	_, err := o.ProcessFeedback(context.Background(), "Q1 수정")

	var genErr *llm.GenerationError
	require.True(t, errors.As(err, &genErr))
	after := o.Snapshot()
	assert.Equal(t, StateDrafted, after.State)
	assert.Equal(t, before.Current, after.Current)
	assert.Len(t, after.History, 1)
}

func TestProcessFeedback_Rejections(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		o := drafted(t, newFixture())
		_, err := o.ProcessFeedback(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Len(t, o.History(), 1)
	})

	t.Run("idle", func(t *testing.T) {
		o := newFixture().orchestrator()
		_, err := o.ProcessFeedback(context.Background(), "Q1 수정")
		var stateErr *StateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, StateIdle, stateErr.State)
	})

	t.Run("approved", func(t *testing.T) {
		o := drafted(t, newFixture())
		require.NoError(t, o.Approve())
		_, err := o.ProcessFeedback(context.Background(), "Q1 수정")
		var stateErr *StateError
		assert.True(t, errors.As(err, &stateErr))
	})
}

func TestProcessFeedback_InFlight(t *testing.T) {
	f := newFixture()
	f.reviser.block = make(chan struct{})
	f.reviser.started = make(chan struct{}, 1)
	o := drafted(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := o.ProcessFeedback(context.Background(), "Q1 수정")
		done <- err
	}()
	<-f.reviser.started

	_, err := o.ProcessFeedback(context.Background(), "Q1 다시 수정")
	assert.ErrorIs(t, err, ErrRevisionInFlight)
	assert.Equal(t, StateRevising, o.State())

	close(f.reviser.block)
	require.NoError(t, <-done)
	assert.Len(t, o.History(), 2)
}

func TestProcessFeedback_ResetDuringRevision(t *testing.T) {
	f := newFixture()
	f.reviser.block = make(chan struct{})
	f.reviser.started = make(chan struct{}, 1)
	o := drafted(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := o.ProcessFeedback(context.Background(), "Q1 수정")
		done <- err
	}()
	<-f.reviser.started
	o.Reset()
	close(f.reviser.block)

	assert.ErrorIs(t, <-done, ErrSessionReset)
	snap := o.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.History)
}

func TestApprove(t *testing.T) {
	o := newFixture().orchestrator()
	var stateErr *StateError
	assert.True(t, errors.As(o.Approve(), &stateErr))

	o = drafted(t, newFixture())
	require.NoError(t, o.Approve())
	assert.Equal(t, StateApproved, o.State())
	assert.Error(t, o.Approve())
}

func TestReset(t *testing.T) {
	o := drafted(t, newFixture())
	_, err := o.ProcessFeedback(context.Background(), "Q1 수정")
	require.NoError(t, err)
	require.NoError(t, o.Approve())

	o.Reset()

	snap := o.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Requirement)
	assert.Nil(t, snap.Context)
	assert.Empty(t, snap.Domain)
	assert.Empty(t, snap.Current)
	assert.Empty(t, snap.History)
	assert.Equal(t, 0, snap.Iteration)
	assert.Equal(t, DefaultCeiling, snap.Ceiling)

	_, err = o.Start(context.Background(), "새 요구사항")
	assert.NoError(t, err)
}

func TestRestoreAndVersion(t *testing.T) {
	o := drafted(t, newFixture())
	first := o.Snapshot().Current
	_, err := o.ProcessFeedback(context.Background(), "Q1 수정")
	require.NoError(t, err)

	v1, err := o.Version(1)
	require.NoError(t, err)
	assert.Equal(t, first, v1.Questionnaire)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), v1.CreatedAt)

	restored, err := o.Restore(1)
	require.NoError(t, err)
	assert.Equal(t, first, restored)

	snap := o.Snapshot()
	assert.Equal(t, first, snap.Current)
	assert.Len(t, snap.History, 2)

	var notFound *VersionNotFoundError
	_, err = o.Version(3)
	assert.True(t, errors.As(err, &notFound))
	_, err = o.Restore(0)
	assert.True(t, errors.As(err, &notFound))

	// Revising after a restore starts from the restored text.
	result, err := o.ProcessFeedback(context.Background(), "Q1 수정")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Version)
	assert.Contains(t, result.Questionnaire, first)
}

func TestRestore_RequiresDrafted(t *testing.T) {
	o := drafted(t, newFixture())
	require.NoError(t, o.Approve())

	_, err := o.Restore(1)

	var stateErr *StateError
	assert.True(t, errors.As(err, &stateErr))
}

func TestSnapshot_IsACopy(t *testing.T) {
	o := drafted(t, newFixture())

	snap := o.Snapshot()
	snap.Requirement.Variables[0] = "changed"
	snap.History[0].Questionnaire = "changed"

	again := o.Snapshot()
	assert.Equal(t, "강의 만족도", again.Requirement.Variables[0])
	assert.NotEqual(t, "changed", again.History[0].Questionnaire)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateExtracting))
	assert.True(t, CanTransition(StateDrafted, StateApproved))
	assert.True(t, CanTransition(StateRevising, StateDrafted))
	assert.False(t, CanTransition(StateApproved, StateDrafted))
	assert.False(t, CanTransition(StateIdle, StateDrafted))
}
