package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// buildSuffix marks the shadow tables a run writes before publishing. Live
// tables are only touched during Publish.
const buildSuffix = "__BUILD"

// insertBatchSize bounds the number of rows per INSERT statement
const insertBatchSize = 500

// Service provides warehouse operations against Snowflake: schema
// bootstrapping, landing reads and the staged table writes of a pipeline run.
type Service struct {
	db        *sql.DB
	config    models.Snowflake
	connected bool

	mu     sync.Mutex
	staged []models.Table
}

// NewService creates a Snowflake warehouse service
func NewService(config models.Snowflake) *Service {
	return &Service{config: config}
}

// Connect establishes the Snowflake connection and verifies it with a ping
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	dsn := fmt.Sprintf("%s:%s@%s/%s?warehouse=%s&role=%s",
		s.config.Username,
		s.config.Password,
		s.config.Account,
		s.config.Database,
		s.config.Warehouse,
		s.config.Role,
	)

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return errors.ConnectionError("Failed to open Snowflake connection", err).
			WithContext("account", s.config.Account).
			WithContext("warehouse", s.config.Warehouse)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	ctx, cancel := s.getContext()
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		if strings.Contains(err.Error(), "authentication") {
			return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithContext("user", s.config.Username).
				WithSuggestions(
					"Verify your username and password",
					"Check if your account is locked",
				)
		}
		return errors.ConnectionError("Failed to connect to Snowflake", err).
			WithContext("account", s.config.Account).
			AsRecoverable()
	}

	s.db = db
	s.connected = true
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	s.connected = false
	return nil
}

func (s *Service) getContext() (context.Context, context.CancelFunc) {
	timeout := 5 * time.Minute
	if s.config.Timeout != "" {
		if d, err := time.ParseDuration(s.config.Timeout); err == nil {
			timeout = d
		}
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (s *Service) exec(ctx context.Context, query string, args ...interface{}) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to Snowflake").
			WithSuggestions("Call Connect() before executing SQL")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.SQLError("Statement failed", query, err)
	}
	return nil
}

// EnsureSchemas creates the pipeline schemas if they do not exist
func (s *Service) EnsureSchemas(ctx context.Context, schemas ...string) error {
	for _, schema := range schemas {
		stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)
		if err := s.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Prepare bootstraps the target schemas before a run
func (s *Service) Prepare(ctx context.Context) error {
	s.mu.Lock()
	s.staged = nil
	s.mu.Unlock()
	return s.EnsureSchemas(ctx, "STAGING", "MARTS")
}

// WriteTable materializes one model output into its shadow table. The live
// table stays untouched until Publish.
func (s *Service) WriteTable(ctx context.Context, table *models.Table) error {
	shadow := table.FullName() + buildSuffix

	cols := make([]string, 0, len(table.Columns))
	defs := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, c.Name)
		defs = append(defs, c.Name+" "+c.Type)
	}

	create := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", shadow, strings.Join(defs, ", "))
	if err := s.exec(ctx, create); err != nil {
		return err
	}

	if err := s.insertRows(ctx, shadow, cols, table.Rows); err != nil {
		return err
	}

	s.mu.Lock()
	s.staged = append(s.staged, *table)
	s.mu.Unlock()
	return nil
}

// insertRows batch-inserts rows inside one transaction, so a failed write
// leaves no partial shadow table content
func (s *Service) insertRows(ctx context.Context, table string, cols []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		values := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(cols))
		for i, row := range batch {
			values[i] = placeholder
			args = append(args, row...)
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(cols, ", "), strings.Join(values, ", "))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			tx.Rollback()
			return errors.SQLError(fmt.Sprintf("Failed to insert into %s", table), stmt, err).
				WithContext("rows", len(batch))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit insert transaction")
	}
	return nil
}

// Publish swaps every staged shadow table into place. A table without a live
// predecessor is renamed instead; first builds and rebuilds converge on the
// same end state.
func (s *Service) Publish(ctx context.Context) error {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	s.mu.Unlock()

	for _, table := range staged {
		live := table.FullName()
		shadow := live + buildSuffix

		swap := fmt.Sprintf("ALTER TABLE %s SWAP WITH %s", shadow, live)
		if err := s.exec(ctx, swap); err != nil {
			if !strings.Contains(err.Error(), "does not exist") {
				return errors.Wrap(err, errors.ErrCodeSwapFailed,
					fmt.Sprintf("Failed to swap %s into place", live))
			}
			rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", shadow, live)
			if err := s.exec(ctx, rename); err != nil {
				return errors.Wrap(err, errors.ErrCodeSwapFailed,
					fmt.Sprintf("Failed to publish %s", live))
			}
			continue
		}

		// After a swap the shadow name holds the previous generation
		if err := s.exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", shadow)); err != nil {
			return err
		}
	}
	return nil
}

// Abort drops every staged shadow table, leaving the live tables as they were
func (s *Service) Abort(ctx context.Context) error {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	s.mu.Unlock()

	for _, table := range staged {
		shadow := table.FullName() + buildSuffix
		if err := s.exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", shadow)); err != nil {
			return err
		}
	}
	return nil
}
