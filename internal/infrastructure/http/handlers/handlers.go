// Package handlers provides the gin handlers for the public JSON API
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newmanyatta/manyatta/pkg/errors"
)

// Validator checks bound query and body objects.
// *security.ValidationService satisfies it.
type Validator interface {
	Struct(s interface{}) error
}

// bindQuery binds query parameters into dst and validates the result.
// Errors are attached to the context for the ErrorHandler middleware.
func bindQuery(c *gin.Context, v Validator, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		_ = c.Error(errors.NewBadRequestError("Malformed query").WithCause(err))
		return false
	}
	if err := v.Struct(dst); err != nil {
		_ = c.Error(err)
		return false
	}
	return true
}

// bindJSON binds a JSON body into dst and validates the result
func bindJSON(c *gin.Context, v Validator, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(errors.NewBadRequestError("Malformed JSON body").WithCause(err))
		return false
	}
	if err := v.Struct(dst); err != nil {
		_ = c.Error(err)
		return false
	}
	return true
}

// parseWidths reads "480,768,1024"; an empty string yields nil
func parseWidths(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.NewBadRequestError("widths must be a comma-separated list of integers").
				WithMetadata("widths", raw)
		}
		widths = append(widths, w)
	}
	return widths, nil
}
