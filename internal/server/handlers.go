package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/autosurvey/internal/pipeline"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
)

// DraftRequest is the body of the draft endpoints
type DraftRequest struct {
	Text string `json:"text"`
}

// FeedbackRequest is the body of the feedback endpoint
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SessionResponse describes a session without its version bodies
type SessionResponse struct {
	ID             string                   `json:"id"`
	State          pipeline.State           `json:"state"`
	Requirement    *types.RequirementRecord `json:"requirement,omitempty"`
	Params         *types.RetrievalParams   `json:"retrieval_params,omitempty"`
	Query          string                   `json:"query,omitempty"`
	Domain         types.Domain             `json:"domain,omitempty"`
	Profile        string                   `json:"profile,omitempty"`
	Current        string                   `json:"current,omitempty"`
	Versions       int                      `json:"versions"`
	Iteration      int                      `json:"iteration"`
	Ceiling        int                      `json:"ceiling"`
	CeilingReached bool                     `json:"ceiling_reached"`
}

// DraftResponse is the result of a first pass
type DraftResponse struct {
	Questionnaire string                   `json:"questionnaire"`
	Version       int                      `json:"version"`
	Requirement   *types.RequirementRecord `json:"requirement"`
	Domain        types.Domain             `json:"domain"`
	Profile       string                   `json:"profile"`
	References    bool                     `json:"references"`
}

// FeedbackResponse is the result of one revision cycle
type FeedbackResponse struct {
	*pipeline.RevisionResult
	Warning string `json:"warning,omitempty"`
}

func newSessionResponse(id string, st pipeline.SessionState) SessionResponse {
	return SessionResponse{
		ID:             id,
		State:          st.State,
		Requirement:    st.Requirement,
		Params:         st.Params,
		Query:          st.Query,
		Domain:         st.Domain,
		Profile:        st.Profile,
		Current:        st.Current,
		Versions:       len(st.History),
		Iteration:      st.Iteration,
		Ceiling:        st.Ceiling,
		CeilingReached: len(st.History) > 0 && st.CeilingReached(),
	}
}

func newDraftResponse(draft string, st pipeline.SessionState) DraftResponse {
	resp := DraftResponse{
		Questionnaire: draft,
		Version:       len(st.History),
		Requirement:   st.Requirement,
		Domain:        st.Domain,
		Profile:       st.Profile,
	}
	if st.Context != nil {
		resp.References = !st.Context.NoMatch
	}
	return resp
}

// session resolves the {id} path value, writing 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *pipeline.Orchestrator, bool) {
	id := r.PathValue("id")
	o, ok := s.sessions.Get(id)
	if !ok {
		s.errorFrom(w, &ErrSessionNotFound{ID: id})
		return id, nil, false
	}
	return id, o, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.errorFrom(w, &ErrValidation{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func versionParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || n < 1 {
		return 0, &ErrValidation{Field: "version", Message: "must be a positive integer"}
	}
	return n, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, o := s.sessions.Create()
	s.logger.Info("session created", zap.String("session", id))
	s.jsonResponse(w, http.StatusCreated, newSessionResponse(id, o.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, o, ok := s.session(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, newSessionResponse(id, o.Snapshot()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Delete(id) {
		s.errorFrom(w, &ErrSessionNotFound{ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDraft runs the full first pass and returns the draft
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	_, o, ok := s.session(w, r)
	if !ok {
		return
	}
	var req DraftRequest
	if !s.decode(w, r, &req) {
		return
	}

	draft, err := o.Start(r.Context(), req.Text)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newDraftResponse(draft, o.Snapshot()))
}

// handleDraftStream runs the first pass and streams progress as SSE.
// Events: "progress" per state transition, then "draft" or "error".
func (s *Server) handleDraftStream(w http.ResponseWriter, r *http.Request) {
	id, o, ok := s.session(w, r)
	if !ok {
		return
	}
	var req DraftRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.errorFrom(w, pipeline.ErrEmptyInput)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	unsubscribe := s.hub.subscribe(id, func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil && !errors.Is(err, ErrStreamClosed) {
			s.logger.Debug("failed to write SSE event", zap.Error(err))
		}
	})
	// publish may still hold a copy of the callback after unsubscribe.
	defer func() {
		unsubscribe()
		sse.Close()
	}()

	draft, err := o.Start(r.Context(), req.Text)
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteEvent("draft", newDraftResponse(draft, o.Snapshot())) //nolint:errcheck
}

// handleFeedback runs one revision cycle
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	_, o, ok := s.session(w, r)
	if !ok {
		return
	}
	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := o.ProcessFeedback(r.Context(), req.Feedback)
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	resp := FeedbackResponse{RevisionResult: result}
	if result.CeilingReached {
		resp.Warning = fmt.Sprintf("최대 수정 횟수에 도달했습니다. (버전 %d/%d)", result.Version, o.Snapshot().Ceiling)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, o, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := o.Approve(); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newSessionResponse(id, o.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, o, ok := s.session(w, r)
	if !ok {
		return
	}
	o.Reset()
	s.jsonResponse(w, http.StatusOK, newSessionResponse(id, o.Snapshot()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	_, o, ok := s.session(w, r)
	if !ok {
		return
	}
	history := o.History()
	if history == nil {
		history = []types.VersionEntry{}
	}
	s.jsonResponse(w, http.StatusOK, history)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	_, o, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := versionParam(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	entry, err := o.Version(n)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id, o, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := versionParam(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if _, err := o.Restore(n); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newSessionResponse(id, o.Snapshot()))
}

// handleDownload serves the current draft as a text attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, o, ok := s.session(w, r)
	if !ok {
		return
	}
	current := o.Snapshot().Current
	if current == "" {
		s.errorResponse(w, http.StatusNotFound, "no questionnaire drafted yet")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=questionnaire-%s.txt", id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(current)); err != nil {
		s.logger.Debug("failed to write download", zap.Error(err))
	}
}
