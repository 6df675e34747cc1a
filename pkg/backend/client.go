package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a backend reply is read
const maxResponseBytes = 1 << 20

// Client talks to the verification backend. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewClient returns a client for baseURL. A zero timeout keeps the
// transport default.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: must be an absolute http(s) url", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     otel.Tracer("vault-verify/backend"),
	}, nil
}

// BaseURL returns the backend root the client was configured with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends the raw document and user id to POST /upload
func (c *Client) Upload(ctx context.Context, req document.UploadRequest) Result {
	return c.submit(ctx, ActionUpload, http.MethodPost, "/upload", req)
}

// Update sends the raw document and user id to PUT /update
func (c *Client) Update(ctx context.Context, req document.UploadRequest) Result {
	return c.submit(ctx, ActionUpdate, http.MethodPut, "/update", req)
}

// Query fetches the stored record for userID from GET /query/{userId}
func (c *Client) Query(ctx context.Context, userID string) Result {
	if strings.TrimSpace(userID) == "" {
		return inputFailure(ActionQuery, document.ErrMissingUserID)
	}

	ctx, span := c.tracer.Start(ctx, "backend.Query")
	defer span.End()

	endpoint := c.baseURL + "/query/" + url.PathEscape(userID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.transportError(span, ActionQuery, userID, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	status, body, err := c.do(httpReq)
	if err != nil {
		return c.transportError(span, ActionQuery, userID, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status != http.StatusOK {
		res := decodeFailure(ActionQuery, status, body)
		span.SetStatus(codes.Error, res.Message)
		c.logger.Warn("Query rejected", zap.String("user_id", userID), zap.Int("status", status), zap.String("error", res.Message))
		return res
	}

	res := decodeRecord(status, body)
	c.logger.Info("Query completed", zap.String("user_id", userID), zap.String("kind", res.Kind.String()))
	return res
}

// Verification compares a local document with the record stored for a user
type Verification struct {
	Result
	Matched bool
}

// Verify queries the stored record for req.UserID and compares its hash
// with the hash of req.FileBytes.
func (c *Client) Verify(ctx context.Context, req document.UploadRequest) Verification {
	if err := req.Validate(); err != nil {
		return Verification{Result: inputFailure(ActionQuery, err)}
	}

	res := c.Query(ctx, req.UserID)
	res.LocalHash = req.Hash()
	v := Verification{Result: res}
	if res.OK() && res.Record != nil {
		v.Matched = hashing.Matches(res.LocalHash, res.Record.Digest())
		res.Mismatch = !v.Matched
		v.Result = res
	}
	return v
}

func (c *Client) submit(ctx context.Context, action Action, method, path string, req document.UploadRequest) Result {
	if err := req.Validate(); err != nil {
		return inputFailure(action, err)
	}

	ctx, span := c.tracer.Start(ctx, "backend."+strings.ToUpper(string(action[:1]))+string(action[1:]))
	defer span.End()

	localHash := req.Hash()
	span.SetAttributes(attribute.String("file.sha256", localHash), attribute.Int("file.size", len(req.FileBytes)))

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		res := c.transportError(span, action, req.UserID, err)
		res.LocalHash = localHash
		return res
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		res := c.transportError(span, action, req.UserID, err)
		res.LocalHash = localHash
		return res
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	status, respBody, err := c.do(httpReq)
	if err != nil {
		res := c.transportError(span, action, req.UserID, err)
		res.LocalHash = localHash
		return res
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	var res Result
	if status == http.StatusOK {
		res = decodeAck(action, status, respBody)
	} else {
		res = decodeFailure(action, status, respBody)
		span.SetStatus(codes.Error, res.Message)
	}
	res.LocalHash = localHash

	if res.Record != nil && res.Record.Digest() != "" && !hashing.Matches(localHash, res.Record.Digest()) {
		res.Mismatch = true
		c.logger.Warn("Backend stored a different hash",
			zap.String("user_id", req.UserID),
			zap.String("local_hash", localHash),
			zap.String("stored_hash", res.Record.Digest()))
	}

	c.logger.Info("Document submitted",
		zap.String("action", string(action)),
		zap.String("user_id", req.UserID),
		zap.String("file", req.FileName),
		zap.Int("status", status),
		zap.String("kind", res.Kind.String()))
	return res
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) transportError(span trace.Span, action Action, userID string, err error) Result {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("Backend unreachable", zap.String("action", string(action)), zap.String("user_id", userID), zap.Error(err))
	return transportFailure(action, err)
}

// encodeMultipart writes the userId field and the file part, original
// filename preserved and bytes untouched.
func encodeMultipart(req document.UploadRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("userId", req.UserID); err != nil {
		return nil, "", fmt.Errorf("failed to write userId field: %w", err)
	}
	part, err := w.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(req.FileBytes); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
