package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/primitives"
	"ccsim/pkg/schedule"
	"ccsim/pkg/scheduler"
)

type simulateRequest struct {
	InputSeq      string `json:"input_seq"`
	Algorithm     string `json:"algorithm,omitempty"`
	AbortedPolicy string `json:"aborted_policy,omitempty"`
}

type simulateResponse struct {
	Result      string                     `json:"result"`
	RunID       string                     `json:"run_id"`
	Algorithm   scheduler.Algorithm        `json:"algorithm"`
	Aborted     []scheduler.AbortEvent     `json:"aborted"`
	Diagnostics []string                   `json:"diagnostics"`
	Committed   []primitives.TransactionID `json:"committed"`
	Grid        *schedule.Grid             `json:"grid,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// handleAlgorithm serves the fixed-algorithm routes of the browser client.
func (s *Server) handleAlgorithm(alg scheduler.Algorithm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req simulateRequest
		if !s.readJSON(w, r, &req) {
			return
		}
		s.simulate(w, r, alg, s.defaults, req.InputSeq, false)
	}
}

// handleSimulate lets the caller choose the algorithm and the aborted policy.
// The response also carries the schedule grid.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	alg := s.fallback
	if req.Algorithm != "" {
		parsed, err := scheduler.ParseAlgorithm(req.Algorithm)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error(), dberr.CodeInvalidConfig)
			return
		}
		alg = parsed
	}

	opts := s.defaults
	if req.AbortedPolicy != "" {
		policy, err := schedule.ParseAbortedPolicy(req.AbortedPolicy)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error(), dberr.CodeInvalidConfig)
			return
		}
		opts.AbortedPolicy = policy
	}

	s.simulate(w, r, alg, opts, req.InputSeq, true)
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request, alg scheduler.Algorithm, opts scheduler.Options, input string, withGrid bool) {
	start := time.Now()
	res, err := scheduler.Simulate(input, alg, opts)
	s.metrics.ObserveRun(alg, res, err, time.Since(start))

	if err != nil {
		requestLogger(r).Info("simulation failed", "algorithm", alg.String(), "code", dberr.CodeOf(err))
		s.writeError(w, http.StatusBadRequest, err.Error(), dberr.CodeOf(err))
		return
	}

	resp := simulateResponse{
		Result:      res.Output,
		RunID:       res.RunID,
		Algorithm:   res.Algorithm,
		Aborted:     res.Aborts,
		Diagnostics: res.Diagnostics,
		Committed:   res.Committed,
	}
	if withGrid {
		grid, err := schedule.BuildGrid(res.Output)
		if err != nil {
			requestLogger(r).Warn("grid omitted", "run_id", res.RunID, "code", dberr.CodeOf(err))
			resp.Diagnostics = append(resp.Diagnostics, err.Error())
		} else {
			resp.Grid = &grid
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// readJSON decodes the body into v. On failure it writes the error response
// and returns false.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, code string) {
	s.writeJSON(w, status, errorResponse{Error: message, Code: code})
}
