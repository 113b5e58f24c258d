package swapping

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ValidateSchemaName_ValidNames_Pass(t *testing.T) {
	for _, name := range []string{
		"tenant_a",
		"old_1724500000000",
		"failed_1724500000000",
		"a",
		"z9_",
	} {
		assert.NoError(t, ValidateSchemaName(name), name)
	}
}

func Test_ValidateSchemaName_InvalidNames_Rejected(t *testing.T) {
	for _, name := range []string{
		"",
		"Tenant",
		"1tenant",
		"tenant-a",
		"tenant a",
		"tenant;drop",
		"_tenant",
		"tenant\"",
		strings.Repeat("a", 64),
	} {
		assert.ErrorIs(t, ValidateSchemaName(name), ErrInvalidSchemaName, name)
	}
}

func Test_ValidateSchemaName_MaxLengthName_Passes(t *testing.T) {
	assert.NoError(t, ValidateSchemaName(strings.Repeat("a", 63)))
}

func Test_OldSchemaName_IsValidAndTimestamped(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	name := OldSchemaName(now)

	assert.Equal(t, "old_1787572800000", name)
	assert.NoError(t, ValidateSchemaName(name))
}

func Test_FailedSchemaName_IsValidAndTimestamped(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	name := FailedSchemaName(now)

	assert.Equal(t, "failed_1787572800000", name)
	assert.NoError(t, ValidateSchemaName(name))
}

func Test_OldSchemaName_DifferentMilliseconds_DoNotCollide(t *testing.T) {
	now := time.Now()

	assert.NotEqual(t, OldSchemaName(now), OldSchemaName(now.Add(time.Millisecond)))
}
