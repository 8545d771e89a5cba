package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"lending/core"

	"github.com/sirupsen/logrus"
)

// H generic json object
type H map[string]interface{}

// JSON render v as the data of a 200 response
func JSON(w http.ResponseWriter, v interface{}) {
	Status(w, http.StatusOK, v)
}

// Status render v as the data of a response with the status code
func Status(w http.ResponseWriter, status int, v interface{}) {
	write(w, status, H{"data": v})
}

// Error render err, core error codes are exposed to the caller
func Error(w http.ResponseWriter, err error) {
	var (
		deficit *core.DeficitError
		code    core.ErrorCode
	)

	switch {
	case errors.As(err, &deficit):
		write(w, http.StatusBadRequest, H{
			"code":    deficit.Code,
			"msg":     deficit.Code.Error(),
			"deficit": deficit.Deficit(),
		})
	case errors.As(err, &code):
		write(w, statusOf(code), H{"code": code, "msg": code.Error()})
	default:
		logrus.WithError(err).Errorln("internal error")
		write(w, http.StatusInternalServerError, H{"code": core.ErrUnknown, "msg": "internal error"})
	}
}

// BadRequest invalid argument error
func BadRequest(w http.ResponseWriter, err error) {
	write(w, http.StatusBadRequest, H{"code": core.ErrInvalidArgument, "msg": err.Error()})
}

// NotFoundRequest not found error
func NotFoundRequest(w http.ResponseWriter, err error) {
	write(w, http.StatusNotFound, H{"code": http.StatusNotFound, "msg": err.Error()})
}

// Unauthorized missing caller identity
func Unauthorized(w http.ResponseWriter) {
	write(w, http.StatusUnauthorized, H{"code": http.StatusUnauthorized, "msg": "unauthorized"})
}

func statusOf(code core.ErrorCode) int {
	switch code {
	case core.ErrQuoteNotFound, core.ErrLoanNotFound:
		return http.StatusNotFound
	case core.ErrOperationForbidden:
		return http.StatusForbidden
	case core.ErrQuoteUsed, core.ErrInvalidLoanStatus:
		return http.StatusConflict
	case core.ErrUnknown:
		return http.StatusInternalServerError
	}

	return http.StatusBadRequest
}

func write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Errorln("encode response")
	}
}
