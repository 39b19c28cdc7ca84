package apiserver

import (
	"embed"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openAPISpec embed.FS

// OpenAPIHandler serves the API description and a Redoc page over it
type OpenAPIHandler struct {
	logger *zap.Logger
	spec   []byte
}

// NewOpenAPIHandler loads the embedded document
func NewOpenAPIHandler(logger *zap.Logger) *OpenAPIHandler {
	spec, err := openAPISpec.ReadFile("openapi.yaml")
	if err != nil {
		logger.Error("Failed to read OpenAPI spec", zap.Error(err))
		spec = []byte("# OpenAPI document not available\n")
	}

	return &OpenAPIHandler{logger: logger, spec: spec}
}

// ServeOpenAPISpec handles GET /api/v1/openapi.yaml
func (h *OpenAPIHandler) ServeOpenAPISpec(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Data(http.StatusOK, "application/x-yaml", h.spec)
}

// ServeDocs handles GET /api/v1/docs
func (h *OpenAPIHandler) ServeDocs(c *gin.Context) {
	specURL := fmt.Sprintf("%s://%s/api/v1/openapi.yaml", scheme(c.Request), c.Request.Host)

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>New Manyatta Image API</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>body { margin: 0; padding: 0; }</style>
</head>
<body>
    <redoc spec-url='%s'></redoc>
    <script src="https://cdn.redoc.ly/redoc/2.1.3/bundles/redoc.standalone.js"></script>
</body>
</html>`, specURL)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
