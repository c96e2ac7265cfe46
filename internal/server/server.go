// Package server exposes the planner over HTTP for the task editor front end.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/plan"
	"github.com/rahul/planwright/internal/planner"
	"github.com/rahul/planwright/internal/runner"
	"github.com/rahul/planwright/internal/store"
)

// Planner is the part of planner.Planner the routes use.
type Planner interface {
	Create(ctx context.Context, instruction string, opts planner.RequestOptions) (*planner.Result, error)
	Modify(ctx context.Context, task, delta string, opts planner.RequestOptions) (*planner.Result, error)
	Edit(ctx context.Context, task string, steps []plan.Step, opts planner.RequestOptions) (*planner.Result, error)
	Show(task string) (*planner.Result, error)
	List() ([]string, error)
}

// Runner executes a stored plan; optional.
type Runner interface {
	Run(ctx context.Context, p *plan.Plan) ([]runner.StepResult, error)
}

type Server struct {
	planner  Planner
	runner   Runner
	status   *observability.SystemStatus
	logger   *zap.Logger
	prompter credentials.Prompter
}

func New(p Planner, status *observability.SystemStatus, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if status == nil {
		status = observability.NewStatus()
	}
	// Nobody can answer a prompt during a request.
	return &Server{planner: p, status: status, logger: logger, prompter: credentials.NonInteractive{}}
}

// WithRunner enables /execute-task.
func (s *Server) WithRunner(r Runner) *Server {
	s.runner = r
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(allowAllOrigins)

	r.Get("/health", s.handleHealth)
	r.Get("/list-tasks", s.handleList)
	r.Post("/generate-task", s.handleGenerate)
	r.Post("/modify-task", s.handleModify)
	r.Get("/developer-task/{task}", s.handleDeveloperTask)
	r.Post("/execute-json", s.handleExecuteJSON)
	r.Post("/execute-task", s.handleExecuteTask)
	return r
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("server listening", zap.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs failed requests only.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		t1 := time.Now()
		defer func() {
			if ww.Status() >= 400 {
				s.logger.Warn("request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(t1)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type planResponse struct {
	Status       string     `json:"status"`
	Task         string     `json:"task"`
	Plan         *plan.Plan `json:"plan"`
	ReadableText string     `json:"readable_text"`
	Warnings     []string   `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: msg})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	s.logger.Error("request error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func toResponse(res *planner.Result) planResponse {
	return planResponse{
		Status:       "success",
		Task:         res.Plan.Task,
		Plan:         res.Plan,
		ReadableText: res.Text(),
		Warnings:     res.Warnings,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "planner": s.status.Get()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.planner.List()
	if err != nil {
		s.fail(w, err)
		return
	}
	if tasks == nil {
		tasks = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tasks": tasks})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction string `json:"instruction"`
		Task        string `json:"task"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeError(w, http.StatusBadRequest, "instruction required")
		return
	}

	res, err := s.planner.Create(r.Context(), req.Instruction, planner.RequestOptions{Name: req.Task, Prompter: s.prompter})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task         string `json:"task"`
		Modification string `json:"modification"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Task == "" || strings.TrimSpace(req.Modification) == "" {
		writeError(w, http.StatusBadRequest, "task & modification required")
		return
	}

	res, err := s.planner.Modify(r.Context(), req.Task, req.Modification, planner.RequestOptions{Prompter: s.prompter})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleDeveloperTask(w http.ResponseWriter, r *http.Request) {
	res, err := s.planner.Show(chi.URLParam(r, "task"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": res.Plan, "readable_text": res.Text()})
}

func (s *Server) handleExecuteJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task  string      `json:"task"`
		Steps []plan.Step `json:"steps"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Task == "" || len(req.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "task or steps missing")
		return
	}

	res, err := s.planner.Edit(r.Context(), req.Task, req.Steps, planner.RequestOptions{Prompter: s.prompter})
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := toResponse(res)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       res.Plan.Task + " saved",
		"plan":          resp.Plan,
		"readable_text": resp.ReadableText,
		"warnings":      resp.Warnings,
	})
}

func (s *Server) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusNotImplemented, "no runner configured")
		return
	}
	var req struct {
		Task string `json:"task"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Task == "" {
		writeError(w, http.StatusBadRequest, "task required")
		return
	}

	res, err := s.planner.Show(req.Task)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.status.Set(observability.PhaseRunning, res.Plan.Task)
	defer s.status.Idle()

	results, err := s.runner.Run(r.Context(), res.Plan)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "task": res.Plan.Task, "results": results})
}
