package api

import (
	"net/http"

	"github.com/cuemby/cityfix/pkg/issues"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/go-chi/chi/v5"
)

type transitionRequest struct {
	Status  types.IssueStatus `json:"status"`
	Message string            `json:"message"`
}

type assignRequest struct {
	StaffID string `json:"staffId"`
}

type messageRequest struct {
	Body string `json:"message"`
}

func (s *Server) mountIssues(r chi.Router) {
	r.Route("/issues", func(r chi.Router) {
		r.Get("/", s.handleListIssues)
		r.Get("/resolved", s.handleLatestResolved)
		r.Get("/{id}", s.handleGetIssue)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			r.Post("/", s.handleReportIssue)
			r.Patch("/{id}", s.handleUpdateIssue)
			r.Delete("/{id}", s.handleDeleteIssue)
			r.Post("/{id}/upvote", s.handleUpvote)
			r.Get("/{id}/transitions", s.handleTransitions)
			r.Post("/{id}/status", s.handleTransition)
			r.Get("/{id}/messages", s.handleThread)
			r.Post("/{id}/messages", s.handlePostMessage)
			r.With(s.auth.RequireRole(types.RoleAdmin)).Post("/{id}/assign", s.handleAssign)
		})
	})
}

func (s *Server) mountStaff(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.Use(s.auth.Authenticate)
		r.Use(s.auth.RequireRole(types.RoleStaff))
		r.Get("/issues", s.handleAssignedIssues)
	})
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(r, "page")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := s.issues.List(issues.ListQuery{
		Search:   q.Get("search"),
		Status:   types.IssueStatus(q.Get("status")),
		Priority: types.Priority(q.Get("priority")),
		Category: q.Get("category"),
		Sort:     storage.IssueSort(q.Get("sort")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatestResolved(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	list, err := s.issues.LatestResolved(n)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.issues.Get(param(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleReportIssue(w http.ResponseWriter, r *http.Request) {
	var in issues.ReportInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	issue, err := s.issues.Report(actor(r), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	var in issues.UpdateInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	issue, err := s.issues.Update(actor(r), param(r, "id"), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := s.issues.Delete(actor(r), param(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	issue, err := s.issues.Upvote(actor(r), param(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := s.issues.Transitions(actor(r), param(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.IssueStatus{"transitions": next})
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var in transitionRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	issue, err := s.issues.Transition(actor(r), param(r, "id"), in.Status, in.Message)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var in assignRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	issue, err := s.issues.Assign(actor(r), param(r, "id"), in.StaffID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.messages.Thread(actor(r), param(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var in messageRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	msg, err := s.messages.Post(actor(r), param(r, "id"), in.Body)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleAssignedIssues(w http.ResponseWriter, r *http.Request) {
	status, err := queryStatus(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	list, err := s.issues.ListByAssignee(actor(r).ID, status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
