package handler

import (
	"net/http"

	"lending/core"
	"lending/handler/hc"
	"lending/handler/rest"
	"lending/handler/webhook"
	"lending/pkg/clock"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
)

// Server api server
type Server struct {
	Version      string
	Clock        clock.Clock
	Users        core.UserStore
	Assets       core.AssetStore
	Balances     core.BalanceStore
	Loans        core.LoanStore
	Transactions core.TransactionStore
	Queue        core.DepositQueue
	QuoteService core.QuoteService
	LoanService  core.LoanService
	// Checks dependencies probed by /hc
	Checks map[string]hc.Check
}

// Handler mount every surface on one mux
func (s Server) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(cors.AllowAll().Handler)
	mux.Use(logger.WithRequestID)
	mux.Use(middleware.Logger)

	mux.Mount("/hc", hc.Handle(s.Version, s.Checks))
	mux.Mount("/api", rest.Handle(
		s.Users,
		s.Assets,
		s.Balances,
		s.Loans,
		s.Transactions,
		s.QuoteService,
		s.LoanService,
	))
	mux.Mount("/webhooks", webhook.Handle(s.Queue, s.Clock))

	return mux
}
