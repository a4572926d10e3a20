package server

import (
	"errors"
	"net/http"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/htried/taxi-diff-privacy/pages"
	"github.com/htried/taxi-diff-privacy/tdp"
)

// parameters to send to the client for display
type outParams struct {
	RequestID  string  `json:"requestId"`
	Page       string  `json:"page,omitempty"`
	Eps        float64 `json:"eps"`
	QualEps    float64 `json:"qualEps"`
	Scale      float64 `json:"scale"`
	Alpha      float64 `json:"alpha"`
	PropWithin float64 `json:"propWithin"`
	SideLength int     `json:"side"`
	Dist       string  `json:"dist"`
}

// struct that sends back all outbound data
type output struct {
	Params outParams `json:"params"`
	// number of noised values in Results
	Released int         `json:"released,omitempty"`
	Results  interface{} `json:"results"`
}

func newParams(vars tdp.PageVars) outParams {
	return outParams{
		RequestID:  uuid.NewString(),
		Eps:        vars.Epsilon,
		QualEps:    tdp.QualEps(vars.Epsilon, 0.5),
		Scale:      1 / vars.Epsilon,
		Alpha:      vars.Alpha,
		PropWithin: vars.PropWithin,
		SideLength: vars.SideLength,
		Dist:       vars.Dist,
	}
}

// statusOf maps an error onto the status code reported to the client
func statusOf(err error) int {
	var verr *tdp.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, tdp.ErrInvalidEpsilon),
		errors.Is(err, pages.ErrUnknownSample):
		return http.StatusBadRequest
	case errors.Is(err, pages.ErrUnknownPage):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]string{"status": "ok"})
}

// function to echo the privacy budget with what it means
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	tdp.EnableCors(&w)

	vars, err := tdp.ValidateApiArgs(r)
	if err != nil {
		sendError(w, statusOf(err), err)
		return
	}
	params := newParams(vars)
	sendJSON(w, output{
		Params: params,
		Results: map[string]float64{
			"minEps":    tdp.MinEpsilon,
			"maxEps":    tdp.MaxEpsilon,
			"threshold": tdp.AggregationThreshold(1, vars.Epsilon, vars.Alpha, vars.PropWithin),
		},
	})
}

func (s *Server) handlePageList(w http.ResponseWriter, r *http.Request) {
	tdp.EnableCors(&w)
	sendJSON(w, map[string]interface{}{
		"pages":   pages.Names,
		"samples": s.pages.Density.Names(),
		"queries": s.policy.Get().Rules,
	})
}

// function to refresh one page at the requested epsilon
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	// enable outside API requests
	tdp.EnableCors(&w)

	name := mux.Vars(r)["page"]

	// validate input API args
	vars, err := tdp.ValidateApiArgs(r)
	if err != nil {
		sendError(w, statusOf(err), err)
		return
	}

	st := pages.NewState(vars, s.gen, s.policy.Get())
	results, err := s.pages.Refresh(name, st)
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			log.Errorf("error refreshing page %s: %v", name, err)
		}
		sendError(w, status, err)
		return
	}

	params := newParams(vars)
	params.Page = name
	w.Header().Set("X-Request-Id", params.RequestID)

	if s.releases != nil {
		if err := s.releases.LogReleases(r.Context(), params.RequestID, name, st.Releases()); err != nil {
			log.Errorf("error logging releases of request %s: %v", params.RequestID, err)
		}
	}

	sendJSON(w, output{Params: params, Released: len(st.Releases()), Results: results})
}

// function to show the data behind a page without noise
func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	tdp.EnableCors(&w)

	raw, err := s.pages.Raw(mux.Vars(r)["page"])
	if err != nil {
		sendError(w, statusOf(err), err)
		return
	}
	sendJSON(w, raw)
}
