package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personad/pkg/derrors"
)

func TestValidateRawTextBounds(t *testing.T) {
	t.Run("exactly at limit accepted", func(t *testing.T) {
		assert.NoError(t, ValidateRawText(strings.Repeat("a", MaxRawTextBytes)))
	})

	t.Run("one byte over limit rejected", func(t *testing.T) {
		err := ValidateRawText(strings.Repeat("a", MaxRawTextBytes+1))
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
		assert.Contains(t, err.Error(), "100000 byte limit")
	})

	t.Run("limit counts bytes not runes", func(t *testing.T) {
		// é is two UTF-8 bytes, so half the limit in runes fills it in bytes.
		overLimit := strings.Repeat("é", MaxRawTextBytes/2+1)
		assert.Error(t, ValidateRawText(overLimit))
	})

	t.Run("empty rejected", func(t *testing.T) {
		err := ValidateRawText("")
		assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
	})

	t.Run("whitespace only rejected", func(t *testing.T) {
		err := ValidateRawText("   \n\t  ")
		assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
	})

	t.Run("malformed UTF-8 rejected", func(t *testing.T) {
		err := ValidateRawText(string([]byte{0xff, 0xfe, 0x41}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "UTF-8")
	})
}

func TestNewHistoryEntry(t *testing.T) {
	now := time.Now()
	personID := uuid.New()

	t.Run("defaults source to api", func(t *testing.T) {
		entry, err := NewHistoryEntry(personID, "some text", "", now)
		require.NoError(t, err)
		assert.Equal(t, DefaultSource, entry.Source)
		assert.Equal(t, personID, entry.PersonID)
		assert.NotEqual(t, uuid.Nil, entry.ID)
	})

	t.Run("keeps explicit source", func(t *testing.T) {
		entry, err := NewHistoryEntry(personID, "some text", "interview", now)
		require.NoError(t, err)
		assert.Equal(t, "interview", entry.Source)
	})

	t.Run("propagates validation failure", func(t *testing.T) {
		_, err := NewHistoryEntry(personID, " ", "api", now)
		assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
	})
}

func TestNewPersonBounds(t *testing.T) {
	now := time.Now()

	_, err := NewPerson(strings.Repeat("x", 256), "", "", now)
	assert.True(t, derrors.HasCode(err, derrors.CodeValidation))

	p, err := NewPerson("Alex", "Rivera", "", now)
	require.NoError(t, err)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
}
