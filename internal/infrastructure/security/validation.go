// Package security provides request validation for the public API
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/pkg/errors"
)

// MaxBodyBytes bounds POST bodies; vitals samples are tiny
const MaxBodyBytes = 64 << 10

// ValidationService validates query and body objects
type ValidationService struct {
	logger    *zap.Logger
	validator *validator.Validate
}

// NewValidationService creates a validator with the image rules registered
func NewValidationService(logger *zap.Logger) *ValidationService {
	validate := validator.New()

	// Register custom validation rules
	_ = validate.RegisterValidation("image_source", validateImageSource)
	_ = validate.RegisterValidation("no_xss", validateNoXSS)
	_ = validate.RegisterValidation("slug", validateSlug)

	return &ValidationService{
		logger:    logger,
		validator: validate,
	}
}

// Struct validates v and converts failures into a validation AppError
func (v *ValidationService) Struct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewBadRequestError(err.Error())
	}

	out := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, errors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: messageFor(fe),
		})
	}
	return errors.NewValidationErrors(out)
}

// Var validates a single value against tag
func (v *ValidationService) Var(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "image_source":
		return fmt.Sprintf("%s must be a site path, an http(s) URL or an s3:// URL", fe.Field())
	case "gt", "gte", "lt", "lte", "max", "min":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// ValidationMiddleware rejects bodies with the wrong type or size and paths
// that try to climb out of the route tree
func (v *ValidationService) ValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			contentType := c.GetHeader("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") && !strings.HasPrefix(contentType, "text/plain") {
				_ = c.Error(errors.NewBadRequestError("Content-Type must be application/json"))
				c.Abort()
				return
			}

			if c.Request.ContentLength > MaxBodyBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request too large"})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
		}

		if containsSuspiciousPatterns(c.Request.URL.Path) {
			v.logger.Warn("Suspicious URL pattern detected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
				zap.String("user_agent", c.Request.UserAgent()),
			)
			_ = c.Error(errors.NewBadRequestError("Invalid request"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func containsSuspiciousPatterns(path string) bool {
	suspiciousPatterns := []string{
		"../", "..\\", "%2e%2e", "%252e%252e",
		"<script", "javascript:", "vbscript:",
		"/etc/passwd", "/proc/",
	}

	pathLower := strings.ToLower(path)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(pathLower, pattern) {
			return true
		}
	}
	return false
}

// validateImageSource accepts site-relative paths, http(s) URLs and
// s3://bucket/key sources
func validateImageSource(fl validator.FieldLevel) bool {
	return IsImageSource(fl.Field().String())
}

// IsImageSource reports whether src is something the fetchers may load
func IsImageSource(src string) bool {
	if src == "" || len(src) > 2048 || strings.Contains(src, "..") {
		return false
	}
	if strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//") {
		return true
	}

	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return true
	case "s3":
		return strings.TrimPrefix(u.Path, "/") != ""
	default:
		return false
	}
}

// validateNoXSS checks for markup and script patterns in free text
func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())

	xssPatterns := []string{
		"<script", "</script>", "javascript:", "vbscript:",
		"onload", "onerror", "onclick", "onmouseover", "onfocus",
		"eval(", "document.cookie", "<", ">",
	}

	for _, pattern := range xssPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

// validateSlug accepts lowercase words joined by hyphens
func validateSlug(fl validator.FieldLevel) bool {
	slug := fl.Field().String()
	if slug == "" || len(slug) > 100 || strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return false
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
