package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ReplyStore and
// InstructionStore interfaces
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store. The DSN must include
// parseTime=true for timestamp columns to scan correctly.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS replies (
			merchant_id VARCHAR(128) NOT NULL,
			email_id VARCHAR(128) NOT NULL,
			response TEXT,
			analysis TEXT,
			created_at TIMESTAMP,
			status VARCHAR(32),
			PRIMARY KEY (merchant_id, email_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create replies table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS merchant_instructions (
			merchant_id VARCHAR(128) PRIMARY KEY,
			instructions TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create instructions table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Set upserts a reply keyed by (merchant_id, email_id)
func (s *MySQLStore) Set(ctx context.Context, reply *core.PersistedReply) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replies (merchant_id, email_id, response, analysis, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			response = VALUES(response),
			analysis = VALUES(analysis),
			created_at = VALUES(created_at),
			status = VALUES(status)
	`, reply.MerchantID, reply.EmailID, reply.ResponseText, reply.AnalysisJSON,
		reply.CreatedAt, reply.Status)

	if err != nil {
		return fmt.Errorf("failed to upsert reply: %w", err)
	}
	return nil
}

// Get retrieves a reply, returning (nil, nil) when absent
func (s *MySQLStore) Get(ctx context.Context, merchantID, emailID string) (*core.PersistedReply, error) {
	reply := &core.PersistedReply{
		MerchantID: merchantID,
		EmailID:    emailID,
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT response, analysis, created_at, status
		FROM replies
		WHERE merchant_id = ? AND email_id = ?
	`, merchantID, emailID).Scan(&reply.ResponseText, &reply.AnalysisJSON, &reply.CreatedAt, &reply.Status)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query reply: %w", err)
	}
	return reply, nil
}

// GetInstructions returns a merchant's configuration, or an empty map
// when none is stored
func (s *MySQLStore) GetInstructions(ctx context.Context, merchantID string) (map[string]any, error) {
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
func (s *MySQLStore) SetInstructions(ctx context.Context, merchantID string, instructions map[string]any) error {
	blob, err := json.Marshal(instructions)
	if err != nil {
		return fmt.Errorf("failed to encode instructions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO merchant_instructions (merchant_id, instructions)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE instructions = VALUES(instructions)
	`, merchantID, string(blob))

	if err != nil {
		return fmt.Errorf("failed to upsert instructions: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
