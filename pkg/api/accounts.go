package api

import (
	"net/http"
	"strings"

	"github.com/cuemby/cityfix/pkg/types"
	"github.com/cuemby/cityfix/pkg/users"
	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
}

func (s *Server) mountMe(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Use(s.auth.Authenticate)

		r.Get("/", s.handleMe)
		r.Patch("/", s.handleUpdateMe)
		r.Get("/stats", s.handleMyStats)
		r.Get("/payments", s.handleMyPayments)
		r.With(s.auth.RequireRole(types.RoleCitizen)).Get("/issues", s.handleMyIssues)

		r.Get("/notifications", s.handleListNotifications)
		r.Get("/notifications/unread-count", s.handleUnreadCount)
		r.Post("/notifications/read-all", s.handleReadAllNotifications)
		r.Post("/notifications/{id}/read", s.handleReadNotification)
		r.Delete("/notifications/{id}", s.handleDeleteNotification)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in users.AccountInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	session, err := s.users.Register(in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	session, err := s.users.Login(in.Email, in.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actor(r).Public())
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var in users.ProfileInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := s.users.UpdateProfile(actor(r).ID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	var (
		out interface{}
		err error
	)
	switch user.Role {
	case types.RoleAdmin:
		out, err = s.stats.Admin()
	case types.RoleStaff:
		out, err = s.stats.Staff(user.ID)
	default:
		out, err = s.stats.Citizen(user.ID)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyIssues(w http.ResponseWriter, r *http.Request) {
	status, err := queryStatus(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	list, err := s.issues.ListByReporter(actor(r).ID, status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.payments.ListOwn(actor(r).ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread, err := queryBool(r, "unread")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	list, err := s.notify.List(actor(r).ID, unread)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.notify.UnreadCount(actor(r).ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request) {
	n, err := s.notify.MarkRead(actor(r).ID, param(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := s.notify.MarkAllRead(actor(r).ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.notify.Delete(actor(r).ID, param(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin account management

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.ListStaff()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var in users.AccountInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := s.users.CreateStaff(in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	var in users.StaffInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := s.users.UpdateStaff(param(r, "id"), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteStaff(param(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCitizens(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.ListCitizens()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search"))); q != "" {
		matched := list[:0]
		for _, u := range list {
			if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) {
				matched = append(matched, u)
			}
		}
		list = matched
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBlock(blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.SetBlocked(actor(r), param(r, "id"), blocked)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
