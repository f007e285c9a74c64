package api

import (
	"io"
	"net/http"

	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/go-chi/chi/v5"
)

// maxWebhookBytes bounds webhook payloads
const maxWebhookBytes = 64 << 10

type checkoutRequest struct {
	Kind    types.PaymentKind `json:"kind"`
	IssueID string            `json:"issueId"`
}

type confirmRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) mountPayments(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		// Stripe authenticates webhooks by signature, not bearer token
		r.Post("/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			r.Post("/checkout", s.handleCheckout)
			r.Post("/confirm", s.handleConfirm)
		})
	})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var in checkoutRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := s.payments.Checkout(r.Context(), actor(r), in.Kind, in.IssueID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var in confirmRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.payments.Confirm(r.Context(), actor(r), in.SessionID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload too large"})
		return
	}
	if err := s.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.payments.List(storage.PaymentFilter{
		UserID: q.Get("userId"),
		Kind:   types.PaymentKind(q.Get("kind")),
		Status: types.PaymentStatus(q.Get("status")),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	rev, err := s.payments.Revenue(r.URL.Query().Get("userId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}
