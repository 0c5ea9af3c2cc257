package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/go-chi/render"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Success: true, Data: data})
}

// respondError maps err onto its status code. The raw cause is only
// included when withDetail is set.
func respondError(w http.ResponseWriter, r *http.Request, err error, withDetail bool) {
	status := common.HTTPStatus(err)
	body := &ErrorBody{
		Code:    common.Code(err),
		Status:  status,
		Message: "internal error",
	}

	var appErr *common.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		if withDetail {
			body.Detail = appErr.Detail()
		}
	} else if withDetail {
		body.Detail = err.Error()
	}

	render.Status(r, status)
	render.JSON(w, r, Envelope{Success: false, Error: body})
}
