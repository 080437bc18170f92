package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ReplyStore and
// InstructionStore interfaces
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS replies (
			merchant_id TEXT NOT NULL,
			email_id TEXT NOT NULL,
			response TEXT,
			analysis TEXT,
			created_at TIMESTAMP,
			status TEXT,
			PRIMARY KEY (merchant_id, email_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create replies table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS merchant_instructions (
			merchant_id TEXT PRIMARY KEY,
			instructions TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create instructions table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Set upserts a reply keyed by (merchant_id, email_id)
func (s *SQLiteStore) Set(ctx context.Context, reply *core.PersistedReply) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO replies (merchant_id, email_id, response, analysis, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, reply.MerchantID, reply.EmailID, reply.ResponseText, reply.AnalysisJSON,
		reply.CreatedAt.Format(time.RFC3339), reply.Status)

	if err != nil {
		return fmt.Errorf("failed to upsert reply: %w", err)
	}
	return nil
}

// Get retrieves a reply, returning (nil, nil) when absent
func (s *SQLiteStore) Get(ctx context.Context, merchantID, emailID string) (*core.PersistedReply, error) {
	var response, analysis, createdAt, status string

	err := s.db.QueryRowContext(ctx, `
		SELECT response, analysis, created_at, status
		FROM replies
		WHERE merchant_id = ? AND email_id = ?
	`, merchantID, emailID).Scan(&response, &analysis, &createdAt, &status)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query reply: %w", err)
	}

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return &core.PersistedReply{
		MerchantID:   merchantID,
		EmailID:      emailID,
		ResponseText: response,
		AnalysisJSON: analysis,
		CreatedAt:    created,
		Status:       status,
	}, nil
}

// GetInstructions returns a merchant's configuration, or an empty map
// when none is stored
func (s *SQLiteStore) GetInstructions(ctx context.Context, merchantID string) (map[string]any, error) {
	var blob string

	err := s.db.QueryRowContext(ctx, `
		SELECT instructions
		FROM merchant_instructions
		WHERE merchant_id = ?
	`, merchantID).Scan(&blob)

	if err != nil {
		if err == sql.ErrNoRows {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to query instructions: %w", err)
	}

	var instructions map[string]any
	if err := json.Unmarshal([]byte(blob), &instructions); err != nil {
		return nil, fmt.Errorf("failed to decode instructions: %w", err)
	}
	if instructions == nil {
		instructions = map[string]any{}
	}
	return instructions, nil
}

// SetInstructions stores a merchant's configuration
func (s *SQLiteStore) SetInstructions(ctx context.Context, merchantID string, instructions map[string]any) error {
	blob, err := json.Marshal(instructions)
	if err != nil {
		return fmt.Errorf("failed to encode instructions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO merchant_instructions (merchant_id, instructions)
		VALUES (?, ?)
	`, merchantID, string(blob))

	if err != nil {
		return fmt.Errorf("failed to upsert instructions: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
