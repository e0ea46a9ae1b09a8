package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"skillsync/internal/apperr"
)

const genericFailure = "Internal server error"

// responder writes the {success, ...} envelope shared by every endpoint.
type responder struct {
	logger      *zerolog.Logger
	development bool
}

func newResponder(logger *zerolog.Logger, development bool) responder {
	return responder{logger: logger, development: development}
}

func respond(c *gin.Context, status int, payload gin.H, message string) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// fail maps err onto its status code. Internal errors are logged and only
// show their detail in development.
func (r responder) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := apperr.MessageOf(err, genericFailure)

	if kind == apperr.KindInternal {
		r.logger.Error().
			Err(err).
			Str("request_id", requestIDFromContext(c)).
			Str("path", c.FullPath()).
			Msg("request failed")
		if r.development {
			message = err.Error()
		}
	}
	c.JSON(kind.HTTPStatus(), gin.H{"success": false, "error": message})
}

// bindJSON decodes the body into dst; any decoding or validation failure is
// answered with 400 and fallback.
func (r responder) bindJSON(c *gin.Context, dst any, fallback string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		r.fail(c, apperr.Validation(bindingMessage(err, fallback)))
		return false
	}
	return true
}

func bindingMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "email" {
				return "Invalid email address"
			}
		}
	}
	return fallback
}
