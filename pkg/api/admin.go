package api

import (
	"net/http"

	"github.com/cuemby/cityfix/pkg/messages"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/go-chi/chi/v5"
)

func (s *Server) mountContact(r chi.Router) {
	r.With(s.auth.Optional).Post("/contact", s.handleContact)
}

func (s *Server) mountAdmin(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.auth.Authenticate)
		r.Use(s.auth.RequireRole(types.RoleAdmin))

		r.Get("/stats", s.handleAdminStats)

		r.Get("/staff", s.handleListStaff)
		r.Post("/staff", s.handleCreateStaff)
		r.Patch("/staff/{id}", s.handleUpdateStaff)
		r.Delete("/staff/{id}", s.handleDeleteStaff)

		r.Get("/citizens", s.handleListCitizens)
		r.Post("/citizens/{id}/block", s.handleBlock(true))
		r.Post("/citizens/{id}/unblock", s.handleBlock(false))

		r.Get("/payments", s.handleListPayments)
		r.Get("/revenue", s.handleRevenue)

		r.Get("/messages", s.handleListContact)
		r.Post("/messages/{id}/read", s.handleReadContact)
		r.Delete("/messages/{id}", s.handleDeleteContact)
	})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	out, err := s.stats.Admin()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var in messages.ContactInput
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	// actor is nil for anonymous visitors
	msg, err := s.messages.Contact(actor(r), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleListContact(w http.ResponseWriter, r *http.Request) {
	list, err := s.messages.ListContact()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleReadContact(w http.ResponseWriter, r *http.Request) {
	msg, err := s.messages.MarkContactRead(param(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.messages.DeleteContact(param(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
