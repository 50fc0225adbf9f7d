package app

import (
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"serverless-bridge/internal/config"
	"serverless-bridge/internal/middleware"
)

// NewRouter builds the wrapped web application. It installs no recovery
// middleware: panics reach the adapter, which reports them with a trace.
func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger())
	router.Use(middleware.CORS(cfg.Adapter.AllowOrigin))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", health)

	widgets := router.Group("/widgets")
	{
		widgets.GET("", listWidgets)
		widgets.GET("/:id", getWidget)
	}

	router.Any("/echo", echo)
	router.GET("/inspect", inspect)

	return router
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "serverless-bridge",
		"mode":       config.GetDeploymentMode(),
		"serverless": config.IsServerlessMode(),
	})
}

// listWidgets answers with the query filters it was called with.
func listWidgets(c *gin.Context) {
	query := c.Request.URL.Query()
	filters := make(map[string]string, len(query))
	for key := range query {
		filters[key] = query.Get(key)
	}
	c.JSON(http.StatusOK, filters)
}

func getWidget(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

// echo writes the request body back verbatim.
func echo(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, body)
}

// inspect reports what the application saw of the request.
func inspect(c *gin.Context) {
	names := make([]string, 0, len(c.Request.Header))
	for name := range c.Request.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	c.JSON(http.StatusOK, gin.H{
		"method":         c.Request.Method,
		"path":           c.Request.URL.Path,
		"query":          c.Request.URL.RawQuery,
		"host":           c.Request.Host,
		"content_length": c.Request.ContentLength,
		"https":          c.Request.TLS != nil,
		"headers":        names,
	})
}
