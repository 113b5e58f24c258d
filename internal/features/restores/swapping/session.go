package swapping

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	restores_core "tenantbase-backend/internal/features/restores/core"
)

// Session is one dedicated connection to the tenant cluster. The advisory
// lock and the rename transactions must be visible to the same backend, so a
// session lives exactly as long as a lock-holding phase and is never pooled.
type Session struct {
	conn   *pgx.Conn
	logger *slog.Logger
}

func NewSession(ctx context.Context, dsn string, logger *slog.Logger) (*Session, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tenant cluster: %w", err)
	}

	return &Session{conn: conn, logger: logger}, nil
}

func (s *Session) Close(ctx context.Context) {
	if err := s.conn.Close(ctx); err != nil {
		s.logger.Error("Failed to close tenant session", "error", err)
	}
}

// LockKeyForProject derives the advisory-lock key: the first four bytes of
// sha256 over the project id, as a signed 32-bit integer. Stable across
// processes and releases.
func LockKeyForProject(projectID uuid.UUID) int64 {
	sum := sha256.Sum256([]byte(projectID.String()))
	return int64(int32(binary.BigEndian.Uint32(sum[:4])))
}

// TryAcquireLock takes the per-tenant advisory lock without blocking. A held
// lock surfaces as ErrLockUnavailable so callers can fail fast and retry.
func (s *Session) TryAcquireLock(ctx context.Context, projectID uuid.UUID) error {
	var acquired bool
	err := s.conn.QueryRow(
		ctx,
		"SELECT pg_try_advisory_lock($1)",
		LockKeyForProject(projectID),
	).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant lock: %w", err)
	}

	if !acquired {
		return restores_core.ErrLockUnavailable
	}

	return nil
}

func (s *Session) ReleaseLock(ctx context.Context, projectID uuid.UUID) {
	var released bool
	err := s.conn.QueryRow(
		ctx,
		"SELECT pg_advisory_unlock($1)",
		LockKeyForProject(projectID),
	).Scan(&released)
	if err != nil {
		s.logger.Error("Failed to release tenant lock", "projectId", projectID, "error", err)
		return
	}

	if !released {
		s.logger.Warn("Tenant lock was not held on release", "projectId", projectID)
	}
}

// RenameSchema moves a schema between name slots inside an explicit
// transaction. There is no self-rollback of an applied rename; compensation
// is an inverse rename issued by the orchestrator.
func (s *Session) RenameSchema(ctx context.Context, from, to string) error {
	if err := ValidateSchemaName(from); err != nil {
		return err
	}
	if err := ValidateSchemaName(to); err != nil {
		return err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rename transaction: %w", err)
	}

	ddl := fmt.Sprintf(
		"ALTER SCHEMA %s RENAME TO %s",
		pgx.Identifier{from}.Sanitize(),
		pgx.Identifier{to}.Sanitize(),
	)

	if _, err := tx.Exec(ctx, ddl); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			s.logger.Error("Failed to rollback rename transaction", "error", rollbackErr)
		}
		return fmt.Errorf("failed to rename schema %s to %s: %w", from, to, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rename of %s to %s: %w", from, to, err)
	}

	return nil
}

func (s *Session) DropSchema(ctx context.Context, name string) error {
	if err := ValidateSchemaName(name); err != nil {
		return err
	}

	ddl := fmt.Sprintf(
		"DROP SCHEMA IF EXISTS %s CASCADE",
		pgx.Identifier{name}.Sanitize(),
	)

	if _, err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", name, err)
	}

	return nil
}

func (s *Session) SchemaExists(ctx context.Context, name string) (bool, error) {
	if err := ValidateSchemaName(name); err != nil {
		return false, err
	}

	var exists bool
	err := s.conn.QueryRow(
		ctx,
		"SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check schema %s: %w", name, err)
	}

	return exists, nil
}
