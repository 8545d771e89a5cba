package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/render"
	"lending/handler/request"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func listLoansHandler(loans core.LoanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := loans.ListByUser(r.Context(), currentUser(r).UserID, 100)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, items)
	}
}

func createLoanHandler(loans core.LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.CreateLoanRequest
		if err := request.Bind(r, &req); err != nil {
			render.BadRequest(w, err)
			return
		}

		loan, err := loans.Create(r.Context(), currentUser(r), &req)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.Status(w, http.StatusCreated, loan)
	}
}

func findLoanHandler(loans core.LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loan, err := loans.Find(r.Context(), currentUser(r), chi.URLParam(r, "id"))
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, loan)
	}
}

func loanTransactionsHandler(loans core.LoanService, transactions core.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		loan, err := loans.Find(ctx, currentUser(r), chi.URLParam(r, "id"))
		if err != nil {
			render.Error(w, err)
			return
		}

		items, err := transactions.ListByLoan(ctx, loan.TraceID)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, items)
	}
}

func cancelLoanHandler(loans core.LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loan, err := loans.Cancel(r.Context(), currentUser(r), chi.URLParam(r, "id"))
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, loan)
	}
}

func depositCollateralHandler(loans core.LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Amount decimal.Decimal `json:"amount"`
		}

		if err := request.Bind(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		loan, err := loans.DepositCollateral(r.Context(), currentUser(r), chi.URLParam(r, "id"), body.Amount)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, loan)
	}
}

func repayHandler(loans core.LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.RepayRequest
		if err := request.Bind(r, &req); err != nil {
			render.BadRequest(w, err)
			return
		}

		loan, err := loans.Repay(r.Context(), currentUser(r), chi.URLParam(r, "id"), &req)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, loan)
	}
}
