package swapping

import (
	"fmt"
	"regexp"
	"time"
)

// Schema identifiers reach SQL text as quoted identifiers, but only after
// passing this closed pattern. Live names come from the project registry;
// everything else comes from the naming functions below. Any other source is
// rejected before DDL is built.
var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const maxSchemaNameLength = 63

var ErrInvalidSchemaName = fmt.Errorf("schema name is not a valid internal identifier")

func ValidateSchemaName(name string) error {
	if name == "" || len(name) > maxSchemaNameLength || !schemaNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, name)
	}

	return nil
}

// OldSchemaName names the slot a live schema is renamed into before the
// restore tool runs. Millisecond timestamps keep concurrent tenants on one
// instance from colliding.
func OldSchemaName(now time.Time) string {
	return fmt.Sprintf("old_%d", now.UTC().UnixMilli())
}

// FailedSchemaName names the slot a rejected restore is parked in during the
// 3-way swap, just before it is dropped.
func FailedSchemaName(now time.Time) string {
	return fmt.Sprintf("failed_%d", now.UTC().UnixMilli())
}
