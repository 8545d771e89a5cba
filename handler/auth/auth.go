package auth

import (
	"net/http"
	"strings"

	"lending/core"
	"lending/handler/render"
	"lending/handler/request"

	"github.com/fox-one/pkg/logger"
)

// HeaderUserID caller identity set by the upstream auth gateway
const HeaderUserID = "X-User-Id"

// HandleAuthentication resolve the caller from the gateway header, unknown
// callers are registered on first sight
func HandleAuthentication(users core.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.FromContext(ctx)

			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Find(ctx, userID)
			if err == nil && user.ID == 0 {
				user = &core.User{UserID: userID}
				err = users.Create(ctx, user)
			}

			if err != nil {
				log.WithError(err).Errorln("resolve user", userID)
				render.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		}

		return http.HandlerFunc(fn)
	}
}

// Required reject requests without a caller
func Required(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if _, ok := request.UserFrom(r.Context()); !ok {
			render.Unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}
