// Package form turns the state of the upload/query page into what the page
// shows. Render is a pure function; handlers rebuild State from each request
// and render again.
package form

import (
	"html/template"
	"strings"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"github.com/getvaultapp/vault-verify/pkg/staging"
)

const Title = "Blockchain ID Verification"

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

type Flash struct {
	Kind string
	Text string
}

// State is everything the page depends on
type State struct {
	UploadUserID string
	Staged       *staging.Staged
	QueryUserID  string
	// Last is the response to the most recent action, if any.
	Last *backend.Result
	// Problem is a local error raised before any backend call.
	Problem error
}

// View is the template model
type View struct {
	Title        string
	Accept       string
	UploadUserID string
	QueryUserID  string

	HasFile     bool
	StageID     string
	FileName    string
	ContentType string
	Size        int
	Hash        string
	Preview     template.URL

	CanUpload bool
	CanQuery  bool

	Record  *backend.Record
	Flashes []Flash
}

// CanUpload reports whether the upload and update buttons are enabled
func CanUpload(s State) bool {
	return s.Staged != nil && strings.TrimSpace(s.UploadUserID) != ""
}

// CanQuery reports whether the query button is enabled
func CanQuery(s State) bool {
	return strings.TrimSpace(s.QueryUserID) != ""
}

// Render computes the page for s
func Render(s State) View {
	v := View{
		Title:        Title,
		Accept:       strings.Join(document.AllowedExtensions, ","),
		UploadUserID: s.UploadUserID,
		QueryUserID:  s.QueryUserID,
		CanUpload:    CanUpload(s),
		CanQuery:     CanQuery(s),
	}

	if s.Staged != nil {
		v.HasFile = true
		v.StageID = s.Staged.ID
		v.FileName = s.Staged.FileName
		v.ContentType = s.Staged.ContentType
		v.Size = s.Staged.Size
		v.Hash = s.Staged.Hash
		// produced by document.Preview from the staged bytes
		v.Preview = template.URL(s.Staged.Preview)
	}

	if s.Problem != nil {
		v.Flashes = append(v.Flashes, Flash{Kind: FlashError, Text: s.Problem.Error()})
	}
	if s.Last != nil {
		v.Flashes = append(v.Flashes, resultFlashes(*s.Last, s.Staged)...)
		if s.Last.OK() && s.Last.Action == backend.ActionQuery {
			v.Record = s.Last.Record
		}
	}
	return v
}

func resultFlashes(res backend.Result, staged *staging.Staged) []Flash {
	if !res.OK() {
		return []Flash{{Kind: FlashError, Text: res.Message}}
	}

	out := []Flash{{Kind: FlashSuccess, Text: res.Message}}
	switch {
	case res.Action != backend.ActionQuery && res.Mismatch:
		out = append(out, Flash{Kind: FlashWarning, Text: "The backend stored a hash that differs from the hash of the uploaded file"})
	case res.Action == backend.ActionQuery && staged != nil && res.Record != nil && res.Record.Digest() != "":
		if hashing.Matches(staged.Hash, res.Record.Digest()) {
			out = append(out, Flash{Kind: FlashInfo, Text: "The selected document matches the stored hash"})
		} else {
			out = append(out, Flash{Kind: FlashWarning, Text: "The selected document does not match the stored hash"})
		}
	}
	return out
}
