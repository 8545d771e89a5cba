package rest

import (
	"errors"
	"net/http"

	"lending/core"
	"lending/handler/auth"
	"lending/handler/render"
	"lending/handler/request"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(
	users core.UserStore,
	assets core.AssetStore,
	balances core.BalanceStore,
	loans core.LoanStore,
	transactions core.TransactionStore,
	quoteSvc core.QuoteService,
	loanSvc core.LoanService,
) http.Handler {
	router := chi.NewRouter()
	router.Use(auth.HandleAuthentication(users))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/assets", assetsHandler(assets))

	router.Group(func(r chi.Router) {
		r.Use(auth.Required)

		r.Get("/balances", balancesHandler(balances))

		r.Route("/quotes", func(r chi.Router) {
			r.Post("/", createQuoteHandler(quoteSvc))
			r.Post("/{id}/cancel", cancelQuoteHandler(quoteSvc))
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", listLoansHandler(loans))
			r.Post("/", createLoanHandler(loanSvc))
			r.Get("/{id}", findLoanHandler(loanSvc))
			r.Get("/{id}/transactions", loanTransactionsHandler(loanSvc, transactions))
			r.Post("/{id}/cancel", cancelLoanHandler(loanSvc))
			r.Post("/{id}/collateral", depositCollateralHandler(loanSvc))
			r.Post("/{id}/repay", repayHandler(loanSvc))
		})
	})

	return router
}

func currentUser(r *http.Request) *core.User {
	user, _ := request.UserFrom(r.Context())
	return user
}

func assetsHandler(assets core.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := assets.All(r.Context())
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, items)
	}
}

func balancesHandler(balances core.BalanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := balances.ListByUser(r.Context(), currentUser(r).UserID)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, items)
	}
}
