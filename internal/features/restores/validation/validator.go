package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	restores_core "tenantbase-backend/internal/features/restores/core"
)

// KeyTables are expected in most tenant schemas. Absence is recorded for
// diagnosis but never fails validation on its own; not every tenant has every
// key table.
var KeyTables = []string{"users", "sessions", "files", "settings"}

const sampleRowCountLimit = 10

// SchemaValidator decides whether a freshly restored schema is trustworthy
// enough to keep. A full semantic diff is infeasible generically; the coarse
// table-count threshold catches catastrophic corruption while tolerating
// legitimate drift between backup and present.
type SchemaValidator struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewSchemaValidator(db *sqlx.DB, logger *slog.Logger) *SchemaValidator {
	return &SchemaValidator{db: db, logger: logger}
}

// Validate compares the restored schema against the original, which is still
// present under its aside-name at this point.
func (v *SchemaValidator) Validate(
	ctx context.Context,
	restoredSchema string,
	originalSchema string,
) (*restores_core.ValidationResults, error) {
	results := &restores_core.ValidationResults{
		MissingKeyTables: []string{},
		SampleRowCounts:  map[string]int{},
		ValidationErrors: []string{},
	}

	tableCount, err := v.countBaseTables(ctx, restoredSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to count tables in restored schema: %w", err)
	}
	results.TableCount = tableCount

	expectedTableCount, err := v.countBaseTables(ctx, originalSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to count tables in original schema: %w", err)
	}
	results.ExpectedTableCount = expectedTableCount

	tables, err := v.listBaseTables(ctx, restoredSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in restored schema: %w", err)
	}

	present := make(map[string]bool, len(tables))
	for _, table := range tables {
		present[table] = true
	}

	results.KeyTablesExist = true
	for _, keyTable := range KeyTables {
		if !present[keyTable] {
			results.KeyTablesExist = false
			results.MissingKeyTables = append(results.MissingKeyTables, keyTable)
		}
	}

	sampled := tables
	if len(sampled) > sampleRowCountLimit {
		sampled = sampled[:sampleRowCountLimit]
	}

	for _, table := range sampled {
		count, err := v.countRows(ctx, restoredSchema, table)
		if err != nil {
			// one unreadable table must not abort the whole validation
			v.logger.Warn(
				"Failed to sample row count",
				"schema", restoredSchema,
				"table", table,
				"error", err,
			)
			results.SampleRowCounts[table] = -1
			continue
		}
		results.SampleRowCounts[table] = count
	}

	applyDecisionRules(results)

	return results, nil
}

// applyDecisionRules sets ValidationPassed. Only two signals can fail a
// restore: an empty schema, or fewer than half the expected tables.
func applyDecisionRules(results *restores_core.ValidationResults) {
	results.ValidationPassed = true

	if results.TableCount == 0 {
		results.ValidationPassed = false
		results.ValidationErrors = append(
			results.ValidationErrors,
			"restored schema contains no tables",
		)
		return
	}

	if results.TableCount*2 < results.ExpectedTableCount {
		results.ValidationPassed = false
		results.ValidationErrors = append(
			results.ValidationErrors,
			fmt.Sprintf(
				"restored schema has %d tables, less than half of the expected %d",
				results.TableCount,
				results.ExpectedTableCount,
			),
		)
	}
}

func (v *SchemaValidator) countBaseTables(ctx context.Context, schema string) (int, error) {
	var count int
	err := v.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	`, schema)

	return count, err
}

func (v *SchemaValidator) listBaseTables(ctx context.Context, schema string) ([]string, error) {
	var tables []string
	err := v.db.SelectContext(ctx, &tables, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)

	return tables, err
}

func (v *SchemaValidator) countRows(ctx context.Context, schema, table string) (int, error) {
	var count int
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s.%s",
		pq.QuoteIdentifier(schema),
		pq.QuoteIdentifier(table),
	)

	err := v.db.GetContext(ctx, &count, query)
	return count, err
}
