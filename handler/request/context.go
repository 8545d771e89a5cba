package request

import (
	"context"
	"encoding/json"
	"net/http"

	"lending/core"

	"github.com/asaskevich/govalidator"
)

type key int

const (
	userKey key = iota
)

// WithUser context with the caller
func WithUser(ctx context.Context, user *core.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom caller of the request
func UserFrom(ctx context.Context) (*core.User, bool) {
	user, ok := ctx.Value(userKey).(*core.User)
	return user, ok
}

// Bind decode the json body into v and validate its `valid` tags
func Bind(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}

	_, err := govalidator.ValidateStruct(v)
	return err
}
