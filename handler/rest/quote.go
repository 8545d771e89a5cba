package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/render"
	"lending/handler/request"

	"github.com/go-chi/chi"
)

func createQuoteHandler(quotes core.QuoteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.QuoteRequest
		if err := request.Bind(r, &req); err != nil {
			render.BadRequest(w, err)
			return
		}

		quote, err := quotes.Quote(r.Context(), currentUser(r), &req)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.Status(w, http.StatusCreated, quote)
	}
}

func cancelQuoteHandler(quotes core.QuoteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := quotes.Cancel(r.Context(), currentUser(r), id); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"id": id, "status": core.QuoteStatusCancelled})
	}
}
