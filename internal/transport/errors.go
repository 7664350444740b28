package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

var censoredFields = map[string]bool{
	"key":           true,
	"api_key":       true,
	"token":         true,
	"password":      true,
	"authorization": true,
}

// HandleError turns any handler error into the JSON error body clients expect.
func (s *HTTPServer) HandleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := errorResponse(err)
	if code >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", "path", c.Path(), "error", err)
	} else {
		s.logger.Debugw("request rejected", "path", c.Path(), "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		s.logger.Errorw("write error response", "error", err)
	}
}

func errorResponse(err error) (int, models.ErrorResponse) {
	var (
		unauthorized *models.UnauthorizedError
		invalid      *models.ValidationError
		notFound     *models.NotFoundError
		dbErr        *models.DatabaseError
		httpErr      *echo.HTTPError
	)

	switch {
	case errors.As(err, &unauthorized):
		return unauthorized.StatusCode(), models.ErrorResponse{Error: "Unauthorized", Message: unauthorized.Message}
	case errors.As(err, &invalid):
		return invalid.StatusCode(), models.ErrorResponse{Error: "Validation error", Message: invalid.Message, Field: invalid.Field}
	case errors.As(err, &notFound):
		return notFound.StatusCode(), models.ErrorResponse{Error: "Not found", Message: notFound.Message}
	case errors.As(err, &dbErr):
		// statement and driver text stay in the log
		return dbErr.StatusCode(), models.ErrorResponse{Error: "Database error", Message: "Database operation failed"}
	case errors.As(err, &httpErr):
		return httpErr.Code, models.ErrorResponse{Error: http.StatusText(httpErr.Code), Message: httpMessage(httpErr)}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{Error: "Unknown error"}
	}
}

func httpMessage(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return ""
}

// censorBody masks secret-looking fields of a JSON body before it is logged.
// Bodies that are not JSON come back unchanged.
func censorBody(body []byte) []byte {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return body
	}

	out, err := json.Marshal(censor(v))
	if err != nil {
		return body
	}
	return out
}

func censor(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if censoredFields[strings.ToLower(k)] {
				t[k] = "$censored"
				continue
			}
			t[k] = censor(child)
		}
	case []interface{}:
		for i := range t {
			t[i] = censor(t[i])
		}
	}
	return v
}
