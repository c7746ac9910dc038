package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/averdin/parley/internal/analysis"
	"github.com/averdin/parley/internal/batch"
	"github.com/averdin/parley/internal/interview"
	"github.com/averdin/parley/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var modelErr *interview.ModelError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, session.ErrBlankTurn),
		errors.Is(err, session.ErrUnknownRole),
		errors.Is(err, session.ErrTranscriptTooShort):
		status = http.StatusBadRequest
	case errors.As(err, &modelErr),
		errors.Is(err, batch.ErrGenerationFailed),
		errors.Is(err, analysis.ErrMalformedAnalysis),
		errors.Is(err, analysis.ErrMalformedQuestions):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

// AnalysisRequest is a raw project idea to analyze.
type AnalysisRequest struct {
	Idea string `json:"idea"`
}

// handleAnalyzeProject suggests names, audiences, and objectives for an idea.
//
// @Summary     Analyze a project idea
// @Description Produces suggested project names, target audience segments, and research objectives for a raw product idea.
// @Tags        analysis
// @Accept      json
// @Produce     json
// @Param       request  body      AnalysisRequest  true  "Project idea"
// @Success     200  {object}  analysis.ProjectAnalysis
// @Failure     400  {object}  errorResponse  "Missing idea"
// @Failure     502  {object}  errorResponse  "Model failure after retries"
// @Router      /api/analysis [post]
func (s *Server) handleAnalyzeProject(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Idea == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "idea is required"})
		return
	}

	result, err := s.analysis.AnalyzeProject(r.Context(), req.Idea)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// QuestionsRequest describes the interview to generate questions for.
type QuestionsRequest struct {
	Objective      string `json:"objective"`
	TargetAudience string `json:"targetAudience"`
	Domain         string `json:"domain"`
}

// handleGenerateQuestions suggests interview questions.
//
// @Summary     Generate interview questions
// @Description Produces 5-7 open-ended interview questions with purposes for an objective, audience, and domain.
// @Tags        analysis
// @Accept      json
// @Produce     json
// @Param       request  body      QuestionsRequest  true  "Question generation context"
// @Success     200  {array}   analysis.GeneratedQuestion
// @Failure     400  {object}  errorResponse  "Missing objective"
// @Failure     502  {object}  errorResponse  "Model failure after retries"
// @Router      /api/questions [post]
func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req QuestionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Objective == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "objective is required"})
		return
	}

	questions, err := s.analysis.GenerateQuestions(r.Context(), req.Objective, req.TargetAudience, req.Domain)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// handleBatch generates a whole interview plus insights in one model call.
//
// @Summary     Generate a batch interview
// @Description Produces a full synthetic transcript and its insights in a single model call, without turn-by-turn simulation.
// @Tags        batch
// @Accept      json
// @Produce     json
// @Param       context  body      interview.Context  true  "Interview context"
// @Success     200  {object}  batch.Result
// @Failure     400  {object}  errorResponse  "Invalid context"
// @Failure     502  {object}  errorResponse  "Generation or parse failure"
// @Router      /api/batch [post]
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var ictx interview.Context
	if !decodeBody(w, r, &ictx) {
		return
	}

	result, err := s.batch.Generate(r.Context(), ictx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateSessionRequest is the interview setup for a new session.
type CreateSessionRequest struct {
	Context     interview.Context  `json:"context"`
	Interviewer *interview.Persona `json:"interviewer,omitempty"`
	Interviewee *interview.Persona `json:"interviewee,omitempty"`
}

// handleCreateSession registers a new idle simulation session.
//
// @Summary     Create a session
// @Description Registers an interview simulation session. Personas are optional; defaults are derived from the context.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      CreateSessionRequest  true  "Interview setup"
// @Success     201  {object}  session.Snapshot
// @Failure     400  {object}  errorResponse  "Invalid setup"
// @Router      /api/sessions [post]
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Context.ProjectName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "context.projectName is required"})
		return
	}

	snap := s.sessions.Create(req.Context, req.Interviewer, req.Interviewee)
	writeJSON(w, http.StatusCreated, snap)
}

// handleListSessions returns all sessions, newest first.
//
// @Summary     List sessions
// @Tags        sessions
// @Produce     json
// @Success     200  {array}  session.Snapshot
// @Router      /api/sessions [get]
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

// handleGetSession returns a session snapshot.
//
// @Summary     Get a session
// @Description Returns the session's transcript, state, status, and insights if generated.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  session.Snapshot
// @Failure     404  {object}  errorResponse
// @Router      /api/sessions/{id} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleDeleteSession removes a session, cancelling any active run.
//
// @Summary     Delete a session
// @Tags        sessions
// @Param       id  path  string  true  "Session ID"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /api/sessions/{id} [delete]
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunSession starts the auto-run loop in the background.
//
// @Summary     Start a simulation run
// @Description Launches the interviewer/interviewee loop asynchronously. Poll GET /api/sessions/{id} for progress.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     202  {object}  session.Snapshot
// @Failure     404  {object}  errorResponse
// @Failure     409  {object}  errorResponse  "Already running"
// @Router      /api/sessions/{id}/run [post]
func (s *Server) handleRunSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.StartRun(s.runCtx, id); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.sessions.Snapshot(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// handleCancelSession flags a running simulation to stop.
//
// @Summary     Cancel a simulation run
// @Description Sets the cooperative cancel flag. The in-flight model call completes; the flag is honored before the next turn.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     202  {object}  session.Snapshot
// @Failure     404  {object}  errorResponse
// @Router      /api/sessions/{id}/cancel [post]
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.sessions.Snapshot(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// AppendMessageRequest is a manually authored turn.
type AppendMessageRequest struct {
	Role    interview.Role `json:"role"`
	Content string         `json:"content"`
}

// handleAppendMessage appends a human-authored turn to the transcript.
//
// @Summary     Append a manual turn
// @Description Records an utterance authored outside the model, e.g. a human playing the interviewee.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       id       path      string                true  "Session ID"
// @Param       request  body      AppendMessageRequest  true  "Turn to append"
// @Success     200  {object}  session.Snapshot
// @Failure     400  {object}  errorResponse  "Blank content or unknown role"
// @Failure     404  {object}  errorResponse
// @Failure     409  {object}  errorResponse  "Session is running"
// @Router      /api/sessions/{id}/messages [post]
func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req AppendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	snap, err := s.sessions.AppendTurn(chi.URLParam(r, "id"), req.Role, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleNextTurn generates a single AI turn for whichever role speaks next.
//
// @Summary     Generate the next turn
// @Description Synchronously generates one utterance for the next role and appends it to the transcript.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  session.Snapshot
// @Failure     404  {object}  errorResponse
// @Failure     409  {object}  errorResponse  "Session is running"
// @Failure     502  {object}  errorResponse  "Model failure"
// @Router      /api/sessions/{id}/turns [post]
func (s *Server) handleNextTurn(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.NextTurn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleSummarize generates insights for the session's transcript.
//
// @Summary     Summarize a session
// @Description Produces key findings and recommendations from the transcript and stores them on the session.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  interview.Insights
// @Failure     400  {object}  errorResponse  "Transcript too short"
// @Failure     404  {object}  errorResponse
// @Failure     502  {object}  errorResponse  "Model or parse failure"
// @Router      /api/sessions/{id}/insights [post]
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	result, err := s.sessions.Summarize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSave acknowledges a save request without persisting anything.
// Sessions are in-memory for the daemon's lifetime; durable storage is a
// separate concern for a future release.
//
// @Summary     Save a session (stub)
// @Description Acknowledges the request. Sessions are held in memory only; nothing is persisted.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  map[string]bool
// @Failure     404  {object}  errorResponse
// @Router      /api/sessions/{id}/save [post]
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Snapshot(id); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("save requested, sessions are in-memory only", "session", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TemplateResponse is one editable prompt template.
type TemplateResponse struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsModified bool   `json:"isModified"`
}

// handleListTemplates returns the known template names.
//
// @Summary     List template names
// @Tags        templates
// @Produce     json
// @Success     200  {object}  map[string][]string
// @Router      /api/templates [get]
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"templates": s.templates.Names()})
}

// handleGetTemplate returns the live content of one template.
//
// @Summary     Get a template
// @Tags        templates
// @Produce     json
// @Param       name  path      string  true  "Template name"
// @Success     200  {object}  TemplateResponse
// @Failure     404  {object}  errorResponse
// @Router      /api/templates/{name} [get]
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	content := s.templates.Get(name)
	if content == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown template " + name})
		return
	}
	writeJSON(w, http.StatusOK, TemplateResponse{
		Name:       name,
		Content:    content,
		IsModified: content != s.templates.Default(name),
	})
}

// SetTemplateRequest is a template override.
type SetTemplateRequest struct {
	Content string `json:"content"`
}

// handleSetTemplate overrides the live content of one template.
//
// @Summary     Override a template
// @Description Replaces the live template content. Blank content is ignored and leaves the current template in place.
// @Tags        templates
// @Accept      json
// @Produce     json
// @Param       name     path      string              true  "Template name"
// @Param       request  body      SetTemplateRequest  true  "New content"
// @Success     200  {object}  TemplateResponse
// @Failure     404  {object}  errorResponse
// @Router      /api/templates/{name} [put]
func (s *Server) handleSetTemplate(w http.ResponseWriter, r *http.Request) {
	var req SetTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.templates.Set(name, req.Content); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	content := s.templates.Get(name)
	writeJSON(w, http.StatusOK, TemplateResponse{
		Name:       name,
		Content:    content,
		IsModified: content != s.templates.Default(name),
	})
}

// handleResetTemplate restores the compiled-in default for one template.
//
// @Summary     Reset a template
// @Tags        templates
// @Produce     json
// @Param       name  path      string  true  "Template name"
// @Success     200  {object}  TemplateResponse
// @Failure     404  {object}  errorResponse
// @Router      /api/templates/{name} [delete]
func (s *Server) handleResetTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.templates.Reset(name); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, TemplateResponse{
		Name:    name,
		Content: s.templates.Get(name),
	})
}
