package utils_test

import (
	"strings"
	"testing"

	"github.com/brokenfulcrum/elixr-task-service/internal/utils"
	"github.com/stretchr/testify/assert"
)

// TestValidateID 测试 ID 校验
func TestValidateID(t *testing.T) {
	// 合法 ID
	for _, id := range []string{"u1", "task-42", "user_a", "ABC123", strings.Repeat("x", 64)} {
		assert.NoError(t, utils.ValidateID(id), "id=%s", id)
	}

	// 非法 ID
	assert.ErrorIs(t, utils.ValidateID(""), utils.ErrEmptyID)
	assert.ErrorIs(t, utils.ValidateID(strings.Repeat("x", 65)), utils.ErrIDTooLong)
	for _, id := range []string{"a/b", "a b", "a.b", "users/u1", "%20"} {
		assert.ErrorIs(t, utils.ValidateID(id), utils.ErrIDMalformed, "id=%s", id)
	}
}
