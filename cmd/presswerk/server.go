package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"goa.design/clue/debug"
	"goa.design/clue/health"
	"goa.design/clue/log"

	filehostmongo "github.com/presswerk/presswerk/features/filehost/mongo"
	sessionredis "github.com/presswerk/presswerk/features/session/redis"
	"github.com/presswerk/presswerk/runtime/workflow"
)

// server exposes the workflow over HTTP. Runs that pause at the questions
// phase are parked in the run store so answers and corrections can resume
// them later, possibly from another process.
type server struct {
	orch     *workflow.Orchestrator
	store    *sessionredis.Store
	filehost *filehostmongo.Host
	pingers  []health.Pinger
}

func newServer(orch *workflow.Orchestrator, store *sessionredis.Store, filehost *filehostmongo.Host, pingers []health.Pinger) *server {
	return &server{orch: orch, store: store, filehost: filehost, pingers: pingers}
}

func (s *server) routes(logCtx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /runs", s.startRun)
	mux.HandleFunc("GET /runs/{id}", s.getRun)
	mux.HandleFunc("POST /runs/{id}/answers", s.submitAnswers)
	mux.HandleFunc("POST /runs/{id}/correction", s.submitCorrection)
	if s.filehost != nil {
		mux.HandleFunc("GET /files/{id}", s.serveFile)
	}
	mux.Handle("GET /healthz", health.Handler(health.NewChecker(s.pingers...)))
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := debug.HTTP()(mux)
	return log.HTTP(logCtx)(handler)
}

func (s *server) startRun(w http.ResponseWriter, r *http.Request) {
	var in workflow.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	st := s.orch.Start(r.Context(), &in)
	s.parkOrForget(r.Context(), &in, st)
	writeState(w, st)
}

func (s *server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeState(w, run.State)
}

func (s *server) submitAnswers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	st := s.orch.SubmitAnswers(r.Context(), run.Input, run.State, body.Answers)
	s.parkOrForget(r.Context(), run.Input, st)
	writeState(w, st)
}

func (s *server) submitCorrection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Correction string `json:"correction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Correction == "" {
		writeError(w, http.StatusBadRequest, "correction is required")
		return
	}
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	st := s.orch.SubmitCorrection(r.Context(), run.Input, run.State, body.Correction)
	s.parkOrForget(r.Context(), run.Input, st)
	writeState(w, st)
}

func (s *server) serveFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.filehost.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func (s *server) loadRun(w http.ResponseWriter, r *http.Request) (*sessionredis.Run, bool) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no run store configured")
		return nil, false
	}
	run, err := s.store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sessionredis.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return nil, false
		}
		log.Errorf(r.Context(), err, "load run")
		writeError(w, http.StatusInternalServerError, "cannot load run")
		return nil, false
	}
	return run, true
}

// parkOrForget persists runs that await user input and drops terminal ones.
func (s *server) parkOrForget(ctx context.Context, in *workflow.Input, st *workflow.State) {
	if s.store == nil || st == nil {
		return
	}
	var err error
	if st.CurrentPhase == workflow.PhaseQuestions {
		err = s.store.Save(ctx, &sessionredis.Run{Input: in, State: st})
	} else {
		err = s.store.Delete(ctx, st.RunID)
	}
	if err != nil {
		log.Errorf(ctx, err, "update run store")
	}
}

func writeState(w http.ResponseWriter, st *workflow.State) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		log.Errorf(context.Background(), err, "encode state")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
