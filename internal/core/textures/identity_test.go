package textures

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want IdentityType
	}{
		{"plain uuid", "ec561538f3fd461daff5086b22154bce", IdentityUUID},
		{"dashed uuid", "ec561538-f3fd-461d-aff5-086b22154bce", IdentityUUID},
		{"uppercase uuid", "EC561538F3FD461DAFF5086B22154BCE", IdentityUUID},
		{"username", "Notch", IdentityUsername},
		{"username with underscore", "jeb_", IdentityUsername},
		{"single character", "a", IdentityUsername},
		{"sixteen characters", strings.Repeat("a", 16), IdentityUsername},
		{"empty", "", IdentityInvalid},
		{"seventeen characters", strings.Repeat("a", 17), IdentityInvalid},
		{"space", "no name", IdentityInvalid},
		{"dash in username", "a-b", IdentityInvalid},
		{"non hex uuid", "zc561538f3fd461daff5086b22154bce", IdentityInvalid},
		{"uuid too long", strings.Repeat("a", 37), IdentityInvalid},
		{"uuid too short", strings.Repeat("a", 31), IdentityInvalid},
		{"path traversal", "../etc", IdentityInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.id))
			assert.Equal(t, tt.want != IdentityInvalid, Valid(tt.id))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ec561538f3fd461daff5086b22154bce", Normalize("EC561538-F3FD-461D-AFF5-086B22154BCE"))
	assert.Equal(t, "Notch", Normalize("Notch"))
	assert.Equal(t, "bad id", Normalize("bad id"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "notch", CacheKey("Notch"))
	assert.Equal(t, CacheKey("NOTCH"), CacheKey("notch"))
	assert.Equal(t, "ec561538f3fd461daff5086b22154bce", CacheKey("ec561538-f3fd-461d-aff5-086b22154bce"))
}
