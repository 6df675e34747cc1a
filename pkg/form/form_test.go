package form

import (
	"errors"
	"strings"
	"testing"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"github.com/getvaultapp/vault-verify/pkg/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagedPNG() *staging.Staged {
	data := []byte("\x89PNG\r\n\x1a\n\x00\x01")
	return &staging.Staged{
		ID:          "stage-1",
		FileName:    "id.png",
		ContentType: "image/png",
		Size:        len(data),
		Hash:        hashing.ContentHash(data),
		Preview:     "data:image/png;base64,iVBORw0KGgoAAQ==",
	}
}

func TestRender_Empty(t *testing.T) {
	v := Render(State{})
	assert.Equal(t, Title, v.Title)
	assert.Equal(t, ".png,.jpg,.jpeg,.pdf", v.Accept)
	assert.False(t, v.HasFile)
	assert.False(t, v.CanUpload)
	assert.False(t, v.CanQuery)
	assert.Empty(t, v.Flashes)
}

func TestCanUpload(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"nothing", State{}, false},
		{"file only", State{Staged: stagedPNG()}, false},
		{"user only", State{UploadUserID: "alice123"}, false},
		{"blank user", State{Staged: stagedPNG(), UploadUserID: "  "}, false},
		{"both", State{Staged: stagedPNG(), UploadUserID: "alice123"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanUpload(tt.state))
			assert.Equal(t, tt.want, Render(tt.state).CanUpload)
		})
	}
}

func TestCanQuery(t *testing.T) {
	assert.False(t, CanQuery(State{}))
	assert.False(t, CanQuery(State{QueryUserID: "\t"}))
	assert.True(t, CanQuery(State{QueryUserID: "bob"}))
}

func TestRender_StagedDocument(t *testing.T) {
	s := stagedPNG()
	v := Render(State{Staged: s, UploadUserID: "alice123"})
	assert.True(t, v.HasFile)
	assert.Equal(t, s.Hash, v.Hash)
	assert.Equal(t, "stage-1", v.StageID)
	assert.True(t, strings.HasPrefix(string(v.Preview), "data:image/png;base64,"))
}

func TestRender_IsPure(t *testing.T) {
	s := State{Staged: stagedPNG(), UploadUserID: "alice123", Last: &backend.Result{Action: backend.ActionUpload, Kind: backend.KindSuccess, Message: "stored"}}
	assert.Equal(t, Render(s), Render(s))
}

func TestRender_UploadSuccess(t *testing.T) {
	v := Render(State{Last: &backend.Result{Action: backend.ActionUpload, Kind: backend.KindSuccess, Message: "stored"}})
	require.Len(t, v.Flashes, 1)
	assert.Equal(t, Flash{Kind: FlashSuccess, Text: "stored"}, v.Flashes[0])
}

func TestRender_UploadMismatchWarns(t *testing.T) {
	v := Render(State{Last: &backend.Result{Action: backend.ActionUpload, Kind: backend.KindSuccess, Message: "stored", Mismatch: true}})
	require.Len(t, v.Flashes, 2)
	assert.Equal(t, FlashWarning, v.Flashes[1].Kind)
}

func TestRender_QueryError(t *testing.T) {
	v := Render(State{QueryUserID: "bob", Last: &backend.Result{Action: backend.ActionQuery, Kind: backend.KindBackendError, StatusCode: 404, Message: "not found"}})
	require.Len(t, v.Flashes, 1)
	assert.Equal(t, Flash{Kind: FlashError, Text: "not found"}, v.Flashes[0])
	assert.Nil(t, v.Record)
}

func TestRender_QuerySuccessComparesStagedDocument(t *testing.T) {
	s := stagedPNG()
	match := &backend.Result{Action: backend.ActionQuery, Kind: backend.KindSuccess, Message: "User ID: alice123", Record: &backend.Record{UserID: "alice123", HashValue: s.Hash}}
	v := Render(State{Staged: s, QueryUserID: "alice123", Last: match})
	require.NotNil(t, v.Record)
	require.Len(t, v.Flashes, 2)
	assert.Equal(t, FlashInfo, v.Flashes[1].Kind)

	differ := &backend.Result{Action: backend.ActionQuery, Kind: backend.KindSuccess, Record: &backend.Record{UserID: "alice123", HashValue: "00"}}
	v = Render(State{Staged: s, QueryUserID: "alice123", Last: differ})
	require.Len(t, v.Flashes, 2)
	assert.Equal(t, FlashWarning, v.Flashes[1].Kind)
}

func TestRender_Problem(t *testing.T) {
	v := Render(State{Problem: errors.New("unsupported file type")})
	require.Len(t, v.Flashes, 1)
	assert.Equal(t, FlashError, v.Flashes[0].Kind)
}
