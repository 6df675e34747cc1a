package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"github.com/getvaultapp/vault-verify/pkg/receipts"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HashHandler returns the content hash of an uploaded file without staging
// or forwarding it
func HashHandler(c *gin.Context) {
	cfg := c.MustGet("config").(*config.Config)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file"})
		return
	}
	if err := document.CheckExtension(file.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := document.CheckSize(file.Size, cfg.MaxUploadBytes); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_name":    file.Filename,
		"content_type": document.ContentType(data),
		"size":         len(data),
		"hash":         hashing.ContentHash(data),
	})
}

func receiptsStore(c *gin.Context) (*receipts.Store, bool) {
	store, _ := c.MustGet("receipts").(*receipts.Store)
	if store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipts are disabled"})
		return nil, false
	}
	return store, true
}

// ListReceiptsHandler lists recorded receipts, optionally for one user
func ListReceiptsHandler(c *gin.Context) {
	store, ok := receiptsStore(c)
	if !ok {
		return
	}
	logger := c.MustGet("logger").(*zap.Logger)

	list, err := store.List(c.Request.Context(), c.Query("userId"))
	if err != nil {
		logger.Error("Failed to list receipts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list receipts"})
		return
	}
	if list == nil {
		list = []receipts.Receipt{}
	}
	c.JSON(http.StatusOK, gin.H{"receipts": list})
}

// ReceiptsDigestHandler returns the Merkle root over all receipts
func ReceiptsDigestHandler(c *gin.Context) {
	store, ok := receiptsStore(c)
	if !ok {
		return
	}
	logger := c.MustGet("logger").(*zap.Logger)

	digest, count, err := store.Digest(c.Request.Context())
	if errors.Is(err, receipts.ErrEmptyLog) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No receipts recorded"})
		return
	}
	if err != nil {
		logger.Error("Failed to compute receipts digest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute digest"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"digest": digest, "count": count})
}
