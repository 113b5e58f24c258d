package swapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_LockKeyForProject_SameProject_IsStable(t *testing.T) {
	projectID := uuid.MustParse("3f1c2a4e-0b5d-4c6f-8a9b-1d2e3f405162")

	assert.Equal(t, LockKeyForProject(projectID), LockKeyForProject(projectID))
}

func Test_LockKeyForProject_DifferentProjects_Differ(t *testing.T) {
	a := LockKeyForProject(uuid.New())
	b := LockKeyForProject(uuid.New())

	assert.NotEqual(t, a, b)
}

func Test_LockKeyForProject_FitsInSigned32Bits(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := LockKeyForProject(uuid.New())

		assert.GreaterOrEqual(t, key, int64(-2147483648))
		assert.LessOrEqual(t, key, int64(2147483647))
	}
}
