package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	restores_core "tenantbase-backend/internal/features/restores/core"
)

func newResults(tableCount, expectedTableCount int) *restores_core.ValidationResults {
	return &restores_core.ValidationResults{
		TableCount:         tableCount,
		ExpectedTableCount: expectedTableCount,
		KeyTablesExist:     true,
		MissingKeyTables:   []string{},
		SampleRowCounts:    map[string]int{},
		ValidationErrors:   []string{},
	}
}

func Test_ApplyDecisionRules_MatchingCounts_Passes(t *testing.T) {
	results := newResults(12, 12)

	applyDecisionRules(results)

	assert.True(t, results.ValidationPassed)
	assert.Empty(t, results.ValidationErrors)
}

func Test_ApplyDecisionRules_ZeroTables_Fails(t *testing.T) {
	results := newResults(0, 12)

	applyDecisionRules(results)

	assert.False(t, results.ValidationPassed)
	assert.Len(t, results.ValidationErrors, 1)
}

func Test_ApplyDecisionRules_ZeroTablesAndZeroExpected_StillFails(t *testing.T) {
	results := newResults(0, 0)

	applyDecisionRules(results)

	assert.False(t, results.ValidationPassed)
}

func Test_ApplyDecisionRules_LessThanHalfExpected_Fails(t *testing.T) {
	results := newResults(4, 10)

	applyDecisionRules(results)

	assert.False(t, results.ValidationPassed)
	assert.Len(t, results.ValidationErrors, 1)
}

func Test_ApplyDecisionRules_ExactlyHalfExpected_Passes(t *testing.T) {
	results := newResults(5, 10)

	applyDecisionRules(results)

	assert.True(t, results.ValidationPassed)
}

func Test_ApplyDecisionRules_MoreTablesThanExpected_Passes(t *testing.T) {
	results := newResults(15, 10)

	applyDecisionRules(results)

	assert.True(t, results.ValidationPassed)
}

func Test_ApplyDecisionRules_MissingKeyTables_DoesNotFail(t *testing.T) {
	results := newResults(10, 10)
	results.KeyTablesExist = false
	results.MissingKeyTables = []string{"sessions"}

	applyDecisionRules(results)

	assert.True(t, results.ValidationPassed)
}

func Test_ApplyDecisionRules_UnreadableSampleCounts_DoNotFail(t *testing.T) {
	results := newResults(10, 10)
	results.SampleRowCounts = map[string]int{"users": -1, "files": 7}

	applyDecisionRules(results)

	assert.True(t, results.ValidationPassed)
}
