package api

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/receipts"
	"github.com/getvaultapp/vault-verify/pkg/staging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var indexHTML string

// multipart overhead allowed on top of the upload limit
const formOverhead = 1 << 20

// SetupRouter wires the form pages and the JSON helpers. store may be nil
// when receipts are disabled.
func SetupRouter(cfg *config.Config, client *backend.Client, area *staging.Area, store *receipts.Store, logger *zap.Logger) *gin.Engine {
	router := gin.Default()
	router.SetHTMLTemplate(template.Must(template.New("index.html").Parse(indexHTML)))
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes + formOverhead
	}

	// Inject the dependencies into the context
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Set("backend", client)
		c.Set("staging", area)
		c.Set("receipts", store)
		c.Set("logger", logger)
		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Form pages
	router.GET("/", IndexHandler)
	router.POST("/select", SelectHandler)
	router.POST("/upload", UploadHandler)
	router.POST("/update", UpdateHandler)
	router.POST("/query", QueryHandler)

	// JSON helpers
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/hash", HashHandler)
		apiGroup.GET("/receipts", ListReceiptsHandler)
		apiGroup.GET("/receipts/digest", ReceiptsDigestHandler)
	}

	return router
}
