package main

import (
	"net/http"
	"strings"
)

// submitReviewHandler appends a review in one request: {"handle": "@bob", "text": "..."}.
func (a *app) submitReviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req struct {
			Handle string `json:"handle"`
			Text   string `json:"text"`
		}
		if !decodeBody(r, &req) {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if strings.TrimSpace(req.Handle) == "" || strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}
		a.respond(w, r, a.svc.SubmitReview(r.Context(), eventFromContext(r.Context()), req.Handle, req.Text))
	}
}

func (a *app) myReviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		a.respond(w, r, a.svc.ListMyReviews(r.Context(), eventFromContext(r.Context())))
	}
}
