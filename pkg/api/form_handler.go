package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/form"
	"github.com/getvaultapp/vault-verify/pkg/receipts"
	"github.com/getvaultapp/vault-verify/pkg/staging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// currentState rebuilds the page state carried by the submitted form
func currentState(c *gin.Context) form.State {
	area := c.MustGet("staging").(*staging.Area)

	s := form.State{
		UploadUserID: strings.TrimSpace(c.PostForm("userId")),
		QueryUserID:  strings.TrimSpace(c.PostForm("queryUserId")),
	}
	if id := c.PostForm("stageId"); id != "" {
		if doc, ok := area.Lookup(id); ok {
			s.Staged = &doc
		}
	}
	return s
}

func render(c *gin.Context, status int, s form.State) {
	c.HTML(status, "index.html", form.Render(s))
}

// IndexHandler renders the empty form
func IndexHandler(c *gin.Context) {
	render(c, http.StatusOK, form.State{})
}

// SelectHandler stages the chosen file, computes its hash and shows a preview
func SelectHandler(c *gin.Context) {
	cfg := c.MustGet("config").(*config.Config)
	area := c.MustGet("staging").(*staging.Area)
	logger := c.MustGet("logger").(*zap.Logger)

	s := currentState(c)

	file, err := c.FormFile("file")
	if err != nil {
		s.Problem = document.ErrMissingFile
		render(c, http.StatusBadRequest, s)
		return
	}
	if err := document.CheckSize(file.Size, cfg.MaxUploadBytes); err != nil {
		s.Problem = err
		render(c, http.StatusRequestEntityTooLarge, s)
		return
	}

	f, err := file.Open()
	if err != nil {
		s.Problem = fmt.Errorf("failed to read file: %w", err)
		render(c, http.StatusInternalServerError, s)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.Problem = fmt.Errorf("failed to read file: %w", err)
		render(c, http.StatusInternalServerError, s)
		return
	}

	doc, err := area.Put(file.Filename, data)
	if err != nil {
		s.Problem = err
		status := http.StatusBadRequest
		if errors.Is(err, document.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		render(c, status, s)
		return
	}

	// a new selection replaces the previous one
	if s.Staged != nil {
		area.Remove(s.Staged.ID)
	}
	s.Staged = &doc

	logger.Info("Document selected", zap.String("file", doc.FileName), zap.String("sha256", doc.Hash), zap.Int("size", doc.Size))
	render(c, http.StatusOK, s)
}

// UploadHandler sends the staged document to the backend's /upload
func UploadHandler(c *gin.Context) {
	submitStaged(c, backend.ActionUpload)
}

// UpdateHandler sends the staged document to the backend's /update
func UpdateHandler(c *gin.Context) {
	submitStaged(c, backend.ActionUpdate)
}

func submitStaged(c *gin.Context, action backend.Action) {
	client := c.MustGet("backend").(*backend.Client)
	area := c.MustGet("staging").(*staging.Area)

	s := currentState(c)
	if !form.CanUpload(s) {
		switch {
		case c.PostForm("stageId") == "":
			s.Problem = document.ErrMissingFile
		case s.Staged == nil:
			s.Problem = staging.ErrStageNotFound
		default:
			s.Problem = document.ErrMissingUserID
		}
		render(c, http.StatusBadRequest, s)
		return
	}

	doc, data, err := area.Get(s.Staged.ID)
	if err != nil {
		s.Staged = nil
		s.Problem = err
		render(c, http.StatusBadRequest, s)
		return
	}

	req := document.UploadRequest{FileName: doc.FileName, FileBytes: data, UserID: s.UploadUserID}
	// a request in flight runs to completion even if the browser goes away
	ctx := context.WithoutCancel(c.Request.Context())

	var res backend.Result
	if action == backend.ActionUpdate {
		res = client.Update(ctx, req)
	} else {
		res = client.Upload(ctx, req)
	}
	recordReceipt(c, res, req.UserID, req.FileName)

	s.Last = &res
	render(c, http.StatusOK, s)
}

// QueryHandler fetches the stored record for the query user id
func QueryHandler(c *gin.Context) {
	client := c.MustGet("backend").(*backend.Client)

	s := currentState(c)
	if !form.CanQuery(s) {
		s.Problem = document.ErrMissingUserID
		render(c, http.StatusBadRequest, s)
		return
	}

	res := client.Query(context.WithoutCancel(c.Request.Context()), s.QueryUserID)
	recordReceipt(c, res, s.QueryUserID, "")

	s.Last = &res
	render(c, http.StatusOK, s)
}

// recordReceipt logs actions that reached the network. Failing to write a
// receipt never fails the request.
func recordReceipt(c *gin.Context, res backend.Result, userID, fileName string) {
	if res.Kind == backend.KindInputError {
		return
	}
	store, _ := c.MustGet("receipts").(*receipts.Store)
	if store == nil {
		return
	}
	logger := c.MustGet("logger").(*zap.Logger)

	if _, err := store.Add(context.WithoutCancel(c.Request.Context()), receipts.FromResult(res, userID, fileName)); err != nil {
		logger.Warn("Failed to record receipt", zap.String("user_id", userID), zap.Error(err))
	}
}
