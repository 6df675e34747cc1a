package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/proofofinclusion"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyLog = errors.New("no receipts recorded")

// Receipt records one backend action performed by this client. Receipts are
// an audit trail only; query results are never served from them.
type Receipt struct {
	ID         string    `json:"id" yaml:"id"`
	Action     string    `json:"action" yaml:"action"`
	UserID     string    `json:"user_id" yaml:"user_id"`
	FileName   string    `json:"filename,omitempty" yaml:"filename,omitempty"`
	Hash       string    `json:"hash,omitempty" yaml:"hash,omitempty"`
	Outcome    string    `json:"outcome" yaml:"outcome"`
	StatusCode int       `json:"status_code" yaml:"status_code"`
	Message    string    `json:"message" yaml:"message"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Fingerprint is the leaf value fed into the ledger digest
func (r Receipt) Fingerprint() string {
	return strings.Join([]string{
		r.ID, r.Action, r.UserID, r.FileName, r.Hash, r.Outcome,
		strconv.Itoa(r.StatusCode), r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
}

// FromResult builds a receipt for a finished backend call
func FromResult(res backend.Result, userID, fileName string) Receipt {
	r := Receipt{
		Action:     string(res.Action),
		UserID:     userID,
		FileName:   fileName,
		Hash:       res.LocalHash,
		Outcome:    res.Kind.String(),
		StatusCode: res.StatusCode,
		Message:    res.Message,
	}
	if r.Hash == "" && res.Record != nil {
		r.Hash = res.Record.Digest()
	}
	return r
}

// Store is the sqlite backed receipts log
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open creates or opens the receipts log at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends r, assigning an id and timestamp when they are unset
func (s *Store) Add(ctx context.Context, r Receipt) (Receipt, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()

	query := `INSERT INTO receipts (id, action, user_id, filename, hash, outcome, status_code, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, r.ID, r.Action, r.UserID, r.FileName, r.Hash, r.Outcome,
		r.StatusCode, r.Message, r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to add receipt: %w", err)
	}

	s.logger.Debug("Receipt recorded", zap.String("receipt_id", r.ID), zap.String("action", r.Action), zap.String("user_id", r.UserID))
	return r, nil
}

// List returns receipts in insertion order. An empty userID lists all.
func (s *Store) List(ctx context.Context, userID string) ([]Receipt, error) {
	query := `SELECT id, action, user_id, filename, hash, outcome, status_code, message, created_at FROM receipts`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var r Receipt
		var created string
		if err := rows.Scan(&r.ID, &r.Action, &r.UserID, &r.FileName, &r.Hash, &r.Outcome, &r.StatusCode, &r.Message, &created); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("receipt %s has a bad timestamp: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// Digest returns the Merkle root over every receipt's fingerprint, in
// insertion order, and the number of receipts covered.
func (s *Store) Digest(ctx context.Context) (string, int, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return "", 0, err
	}
	if len(all) == 0 {
		return "", 0, ErrEmptyLog
	}

	leaves := make([]string, len(all))
	for i, r := range all {
		leaves[i] = r.Fingerprint()
	}
	root, err := proofofinclusion.Root(leaves)
	if err != nil {
		return "", 0, fmt.Errorf("failed to compute receipts digest: %w", err)
	}
	return root, len(all), nil
}
