package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagger-dev/bagger-back/internal/db"
)

func TestOverlaySet(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewOverlays(gdb, testLogger())
	user := createTestUser(t, gdb, "a@x.com")

	cheat := db.Cheat{Title: "shared", Code: "x", IsPublic: true}
	require.NoError(t, gdb.Create(&cheat).Error)

	t.Run("absent cheat", func(t *testing.T) {
		_, err := s.Set(user, 9999, OverlayPatch{IsFavorite: Set(true)})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("first write lazily creates the row", func(t *testing.T) {
		overlay, err := s.Set(user, cheat.ID, OverlayPatch{IsFavorite: Set(true)})
		require.NoError(t, err)
		assert.True(t, overlay.IsFavorite)
		assert.Nil(t, overlay.PersonalNotes)
	})

	t.Run("second partial write keeps prior fields", func(t *testing.T) {
		overlay, err := s.Set(user, cheat.ID, OverlayPatch{PersonalNotes: Set("x")})
		require.NoError(t, err)
		assert.True(t, overlay.IsFavorite)
		require.NotNil(t, overlay.PersonalNotes)
		assert.Equal(t, "x", *overlay.PersonalNotes)

		var rows int64
		require.NoError(t, gdb.Model(&db.UserCheat{}).Where("user_id = ? AND cheat_id = ?", user.ID, cheat.ID).Count(&rows).Error)
		assert.EqualValues(t, 1, rows)
	})

	t.Run("explicit null clears notes", func(t *testing.T) {
		overlay, err := s.Set(user, cheat.ID, OverlayPatch{PersonalNotes: Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, overlay.PersonalNotes)
		assert.True(t, overlay.IsFavorite)
	})

	t.Run("any user may overlay an invisible cheat", func(t *testing.T) {
		stranger := createTestUser(t, gdb, "b@x.com")
		ownerID := user.ID
		private := db.Cheat{Title: "private", Code: "x", IsPublic: false, CreatedByUserID: &ownerID}
		require.NoError(t, gdb.Create(&private).Error)

		overlay, err := s.Set(stranger, private.ID, OverlayPatch{IsFavorite: Set(true)})
		require.NoError(t, err)
		assert.True(t, overlay.IsFavorite)
	})
}

func TestOverlayClear(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewOverlays(gdb, testLogger())
	user := createTestUser(t, gdb, "a@x.com")

	cheat := db.Cheat{Title: "shared", Code: "x", IsPublic: true}
	require.NoError(t, gdb.Create(&cheat).Error)

	_, err := s.Set(user, cheat.ID, OverlayPatch{IsFavorite: Set(true)})
	require.NoError(t, err)

	require.NoError(t, s.Clear(user, cheat.ID))

	var rows int64
	require.NoError(t, gdb.Model(&db.UserCheat{}).Where("user_id = ?", user.ID).Count(&rows).Error)
	assert.Zero(t, rows)

	// absent overlay is not an error
	require.NoError(t, s.Clear(user, cheat.ID))
	require.NoError(t, s.Clear(user, 9999))
}
