package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		want      bool
	}{
		{"simple", "page_view", true},
		{"dotted", "checkout.completed", true},
		{"dashed", "add-to-cart", true},
		{"numeric", "level2", true},
		{"empty", "", false},
		{"spaces", "page view", false},
		{"unicode", "événement", false},
		{"too long", EventType(strings.Repeat("a", MaxEventTypeLength+1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.Valid())
		})
	}
}

func TestUserIDValid(t *testing.T) {
	assert.True(t, UserID("u1").Valid())
	assert.False(t, UserID("").Valid())
	assert.False(t, UserID(strings.Repeat("x", MaxUserIDLength+1)).Valid())
}

func TestParsePermissions(t *testing.T) {
	t.Run("valid set", func(t *testing.T) {
		set, err := ParsePermissions([]string{"read", "write"})
		require.NoError(t, err)
		assert.True(t, set.Has(PermissionRead))
		assert.True(t, set.Has(PermissionWrite))
		assert.False(t, set.Has(PermissionAdmin))
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		set, err := ParsePermissions([]string{"read", "read", "admin"})
		require.NoError(t, err)
		assert.Len(t, set, 2)
	})

	t.Run("unknown capability rejected", func(t *testing.T) {
		_, err := ParsePermissions([]string{"read", "superuser"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "superuser")
	})

	t.Run("empty input", func(t *testing.T) {
		set, err := ParsePermissions(nil)
		require.NoError(t, err)
		assert.Empty(t, set)
	})
}
