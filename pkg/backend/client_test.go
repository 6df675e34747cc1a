package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var tenBytePNG = []byte("\x89PNG\r\n\x1a\n\x00\x01")

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, 0, zap.NewNop())
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:5000", "ftp://host", "http://"} {
		_, err := NewClient(u, 0, nil)
		assert.Error(t, err, u)
	}
	c, err := NewClient("https://verify.example.com/", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://verify.example.com", c.BaseURL())
}

func TestUpload_SendsExactBytesAndUserID(t *testing.T) {
	var gotBytes []byte
	var gotName, gotUser, gotMethod, gotPath string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotBytes, _ = io.ReadAll(f)
		gotName = hdr.Filename
		gotUser = r.FormValue("userId")
		writeJSON(w, http.StatusOK, map[string]string{"message": "stored"})
	})

	req := document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG, UserID: "alice123"}
	res := c.Upload(context.Background(), req)

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "stored", res.Message)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/upload", gotPath)
	assert.Equal(t, tenBytePNG, gotBytes)
	assert.Equal(t, "id.png", gotName)
	assert.Equal(t, "alice123", gotUser)
	assert.Equal(t, hashing.ContentHash(tenBytePNG), res.LocalHash)
	assert.False(t, res.Mismatch)
}

func TestUpload_MetadataEcho(t *testing.T) {
	local := hashing.ContentHash(tenBytePNG)

	tests := []struct {
		name         string
		metadata     any
		wantMismatch bool
	}{
		{"stringified matching", `{"userId":"alice123","filename":"id.png","hash":"` + local + `"}`, false},
		{"object matching", map[string]string{"userId": "alice123", "hash": local}, false},
		{"stringified different", `{"userId":"alice123","hash":"` + hashing.ContentHash([]byte("x")) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"message": "File hash for alice123 stored successfully", "metadata": tt.metadata})
			})
			res := c.Upload(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG, UserID: "alice123"})
			require.True(t, res.OK())
			require.NotNil(t, res.Record)
			assert.Equal(t, "alice123", res.Record.UserID)
			assert.Equal(t, tt.wantMismatch, res.Mismatch)
		})
	}
}

func TestUpload_BackendError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "User hash already exists. Use /update to modify."})
	})
	res := c.Upload(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG, UserID: "alice123"})
	assert.Equal(t, KindBackendError, res.Kind)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "User hash already exists. Use /update to modify.", res.Message)
}

func TestUpload_GenericMessageWhenBodyHasNoError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})
	res := c.Upload(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG, UserID: "alice123"})
	assert.Equal(t, KindBackendError, res.Kind)
	assert.Equal(t, "Upload failed", res.Message)
}

func TestUpload_InputErrorsNeverReachBackend(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	res := c.Upload(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG})
	assert.Equal(t, KindInputError, res.Kind)
	assert.ErrorIs(t, res.Err, document.ErrMissingUserID)

	res = c.Upload(context.Background(), document.UploadRequest{UserID: "alice123"})
	assert.Equal(t, KindInputError, res.Kind)
	assert.ErrorIs(t, res.Err, document.ErrMissingFile)

	res = c.Query(context.Background(), "  ")
	assert.Equal(t, KindInputError, res.Kind)

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestUpdate_UsesPut(t *testing.T) {
	var gotMethod, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]string{"message": "File hash for alice123 updated successfully"})
	})
	res := c.Update(context.Background(), document.UploadRequest{FileName: "id.pdf", FileBytes: []byte("%PDF-1.4"), UserID: "alice123"})
	require.True(t, res.OK())
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/update", gotPath)
	assert.Equal(t, ActionUpdate, res.Action)
}

func TestUpdate_GenericFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	res := c.Update(context.Background(), document.UploadRequest{FileName: "id.pdf", FileBytes: []byte("%PDF-1.4"), UserID: "alice123"})
	assert.Equal(t, "Update failed", res.Message)
}

func TestQuery_Success(t *testing.T) {
	hash := hashing.ContentHash([]byte("doc"))
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, map[string]string{"userId": "alice123", "hashValue": hash})
	})
	res := c.Query(context.Background(), "alice123")
	require.True(t, res.OK())
	assert.Equal(t, "/query/alice123", gotPath)
	require.NotNil(t, res.Record)
	assert.Equal(t, "alice123", res.Record.UserID)
	assert.Equal(t, hash, res.Record.Digest())
	assert.Contains(t, res.Message, "User ID: alice123")
	assert.Contains(t, res.Message, "Hash: "+hash)
}

func TestQuery_AcceptsLedgerHashField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"userId": "carol", "filename": "id.jpg", "hash": "abc", "uploadedAt": "2026-01-01T00:00:00Z"})
	})
	res := c.Query(context.Background(), "carol")
	require.True(t, res.OK())
	assert.Equal(t, "abc", res.Record.Digest())
	assert.Equal(t, "id.jpg", res.Record.FileName)
}

func TestQuery_EscapesUserID(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, map[string]string{"userId": "a b/c"})
	})
	c.Query(context.Background(), "a b/c")
	assert.Equal(t, "/query/a%20b%2Fc", gotPath)
}

func TestQuery_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	res := c.Query(context.Background(), "bob")
	assert.Equal(t, KindBackendError, res.Kind)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not found", res.Message)
}

func TestQuery_MalformedSuccessBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	})
	res := c.Query(context.Background(), "bob")
	assert.Equal(t, KindBackendError, res.Kind)
	assert.Equal(t, "Query failed", res.Message)
	assert.Error(t, res.Err)
}

func TestBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, 0, zap.NewNop())
	require.NoError(t, err)

	res := c.Query(context.Background(), "alice123")
	assert.Equal(t, KindTransportError, res.Kind)
	require.Error(t, res.Err)
	assert.Contains(t, res.Message, "Error: ")
	assert.Contains(t, res.Message, res.Err.Error())

	res = c.Upload(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG, UserID: "alice123"})
	assert.Equal(t, KindTransportError, res.Kind)
	assert.Equal(t, hashing.ContentHash(tenBytePNG), res.LocalHash)
}

func TestVerify(t *testing.T) {
	stored := hashing.ContentHash(tenBytePNG)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"userId": "alice123", "hashValue": stored})
	})

	v := c.Verify(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: tenBytePNG, UserID: "alice123"})
	assert.True(t, v.Matched)
	assert.False(t, v.Mismatch)

	v = c.Verify(context.Background(), document.UploadRequest{FileName: "id.png", FileBytes: []byte("tampered"), UserID: "alice123"})
	assert.False(t, v.Matched)
	assert.True(t, v.Mismatch)
}
