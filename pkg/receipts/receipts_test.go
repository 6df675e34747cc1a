package receipts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "receipts.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 9, 30, 0, 123, time.UTC)
	s.now = func() time.Time { return at }

	first, err := s.Add(ctx, Receipt{Action: "upload", UserID: "alice123", FileName: "id.png", Hash: "aa", Outcome: "success", StatusCode: 200, Message: "stored"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, at.Equal(first.CreatedAt))

	_, err = s.Add(ctx, Receipt{Action: "query", UserID: "bob", Outcome: "backend_error", StatusCode: 404, Message: "not found"})
	require.NoError(t, err)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.True(t, at.Equal(all[0].CreatedAt))
	assert.Equal(t, first.Fingerprint(), all[0].Fingerprint())
	assert.Equal(t, "bob", all[1].UserID)

	alice, err := s.List(ctx, "alice123")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, "stored", alice[0].Message)

	none, err := s.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDigest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.Digest(ctx)
	assert.ErrorIs(t, err, ErrEmptyLog)

	_, err = s.Add(ctx, Receipt{Action: "upload", UserID: "alice123", Outcome: "success"})
	require.NoError(t, err)
	one, n, err := s.Digest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, _, err := s.Digest(ctx)
	require.NoError(t, err)
	assert.Equal(t, one, again)

	_, err = s.Add(ctx, Receipt{Action: "query", UserID: "alice123", Outcome: "success"})
	require.NoError(t, err)
	two, n, err := s.Digest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotEqual(t, one, two)
}

func TestReopenKeepsReceipts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Add(context.Background(), Receipt{Action: "upload", UserID: "alice123", Outcome: "success"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	all, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFromResult(t *testing.T) {
	res := backend.Result{Action: backend.ActionQuery, Kind: backend.KindSuccess, StatusCode: 200, Message: "User ID: a", Record: &backend.Record{UserID: "a", HashValue: "ff"}}
	r := FromResult(res, "a", "")
	assert.Equal(t, "query", r.Action)
	assert.Equal(t, "success", r.Outcome)
	assert.Equal(t, "ff", r.Hash)

	res = backend.Result{Action: backend.ActionUpload, Kind: backend.KindTransportError, LocalHash: "ee", Message: "Error: refused"}
	r = FromResult(res, "a", "id.png")
	assert.Equal(t, "transport_error", r.Outcome)
	assert.Equal(t, "ee", r.Hash)
	assert.Equal(t, "id.png", r.FileName)
}
