package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagger-dev/bagger-back/internal/db"
)

func TestCheatCreate(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewCheats(gdb, testLogger())
	user := createTestUser(t, gdb, "a@x.com")
	p1 := createTestPlatform(t, gdb, "Python")
	p2 := createTestPlatform(t, gdb, "SQL")
	topic := createTestTopic(t, gdb, "Loops")

	t.Run("create then read round trips", func(t *testing.T) {
		notes := "some notes"
		created, err := s.Create(user, CheatCreate{
			Title:       "list comprehension",
			Code:        "[x*x for x in xs]",
			Notes:       &notes,
			PlatformIDs: []uint64{p1.ID, p2.ID},
			TopicIDs:    []uint64{topic.ID},
			IsPublic:    true,
		})
		require.NoError(t, err)

		views, err := s.ListVisible(user)
		require.NoError(t, err)
		require.Len(t, views, 1)
		got := views[0]
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "list comprehension", got.Title)
		assert.Equal(t, "[x*x for x in xs]", got.Code)
		require.NotNil(t, got.Notes)
		assert.Equal(t, "some notes", *got.Notes)
		assert.ElementsMatch(t, []uint64{p1.ID, p2.ID}, got.PlatformIDs)
		assert.ElementsMatch(t, []uint64{topic.ID}, got.TopicIDs)
	})

	t.Run("repeated ids collapse to one link row", func(t *testing.T) {
		created, err := s.Create(user, CheatCreate{
			Title:       "dup",
			Code:        "x",
			PlatformIDs: []uint64{p1.ID, p1.ID, p2.ID},
			IsPublic:    true,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint64{p1.ID, p2.ID}, created.PlatformIDs)

		var links int64
		require.NoError(t, gdb.Model(&db.CheatPlatform{}).Where("cheat_id = ?", created.ID).Count(&links).Error)
		assert.EqualValues(t, 2, links)
	})

	t.Run("unknown platform id fails without a partial write", func(t *testing.T) {
		var before int64
		require.NoError(t, gdb.Model(&db.Cheat{}).Count(&before).Error)

		_, err := s.Create(user, CheatCreate{
			Title:       "bad",
			Code:        "x",
			PlatformIDs: []uint64{p1.ID, 9999},
			IsPublic:    true,
		})
		assert.ErrorIs(t, err, ErrInvalidReference)

		var refErr *InvalidReferenceError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, "platform", refErr.Kind)
		assert.Equal(t, []uint64{9999}, refErr.IDs)

		var after int64
		require.NoError(t, gdb.Model(&db.Cheat{}).Count(&after).Error)
		assert.Equal(t, before, after)
	})

	t.Run("unknown topic id fails", func(t *testing.T) {
		_, err := s.Create(user, CheatCreate{
			Title:    "bad",
			Code:     "x",
			TopicIDs: []uint64{123456},
			IsPublic: true,
		})
		assert.ErrorIs(t, err, ErrInvalidReference)
	})
}

func TestCheatVisibility(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewCheats(gdb, testLogger())
	userA := createTestUser(t, gdb, "a@x.com")
	userB := createTestUser(t, gdb, "b@x.com")

	_, err := s.Create(userA, CheatCreate{Title: "a public", Code: "x", IsPublic: true})
	require.NoError(t, err)
	_, err = s.Create(userA, CheatCreate{Title: "a private", Code: "x", IsPublic: false})
	require.NoError(t, err)
	_, err = s.Create(userB, CheatCreate{Title: "b private", Code: "x", IsPublic: false})
	require.NoError(t, err)

	titles := func(views []CheatView) []string {
		out := make([]string, len(views))
		for i := range views {
			out[i] = views[i].Title
		}
		return out
	}

	viewsA, err := s.ListVisible(userA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a public", "a private"}, titles(viewsA))

	viewsB, err := s.ListVisible(userB)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a public", "b private"}, titles(viewsB))
}

func TestCheatUpdate(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewCheats(gdb, testLogger())
	owner := createTestUser(t, gdb, "a@x.com")
	other := createTestUser(t, gdb, "b@x.com")
	p1 := createTestPlatform(t, gdb, "Python")
	p2 := createTestPlatform(t, gdb, "SQL")

	notes := "keep me"
	created, err := s.Create(owner, CheatCreate{
		Title:       "orig",
		Code:        "orig code",
		Notes:       &notes,
		PlatformIDs: []uint64{p1.ID},
		IsPublic:    true,
	})
	require.NoError(t, err)

	t.Run("non-owner is forbidden", func(t *testing.T) {
		_, err := s.Update(other, created.ID, CheatPatch{Title: Set("stolen")})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("system cheat is forbidden even to would-be owners", func(t *testing.T) {
		system := db.Cheat{Title: "system", Code: "x", IsPublic: true}
		require.NoError(t, gdb.Create(&system).Error)

		_, err := s.Update(owner, system.ID, CheatPatch{Title: Set("mine now")})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("absent cheat", func(t *testing.T) {
		_, err := s.Update(owner, 9999, CheatPatch{Title: Set("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("omitted fields stay untouched", func(t *testing.T) {
		view, err := s.Update(owner, created.ID, CheatPatch{Title: Set("renamed")})
		require.NoError(t, err)
		assert.Equal(t, "renamed", view.Title)
		assert.Equal(t, "orig code", view.Code)
		require.NotNil(t, view.Notes)
		assert.Equal(t, "keep me", *view.Notes)
		assert.ElementsMatch(t, []uint64{p1.ID}, view.PlatformIDs)
	})

	t.Run("explicit null clears notes", func(t *testing.T) {
		view, err := s.Update(owner, created.ID, CheatPatch{Notes: Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, view.Notes)
	})

	t.Run("provided platform list replaces the link set", func(t *testing.T) {
		view, err := s.Update(owner, created.ID, CheatPatch{PlatformIDs: Set([]uint64{p2.ID, p2.ID})})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint64{p2.ID}, view.PlatformIDs)
	})

	t.Run("empty platform list clears the link set", func(t *testing.T) {
		view, err := s.Update(owner, created.ID, CheatPatch{PlatformIDs: Set([]uint64{})})
		require.NoError(t, err)
		assert.Empty(t, view.PlatformIDs)
	})

	t.Run("invalid replacement id leaves old links intact", func(t *testing.T) {
		view, err := s.Update(owner, created.ID, CheatPatch{PlatformIDs: Set([]uint64{p1.ID})})
		require.NoError(t, err)
		require.ElementsMatch(t, []uint64{p1.ID}, view.PlatformIDs)

		_, err = s.Update(owner, created.ID, CheatPatch{PlatformIDs: Set([]uint64{9999})})
		assert.ErrorIs(t, err, ErrInvalidReference)

		var links []db.CheatPlatform
		require.NoError(t, gdb.Where("cheat_id = ?", created.ID).Find(&links).Error)
		require.Len(t, links, 1)
		assert.Equal(t, p1.ID, links[0].PlatformID)
	})
}

func TestCheatDelete(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewCheats(gdb, testLogger())
	owner := createTestUser(t, gdb, "a@x.com")
	other := createTestUser(t, gdb, "b@x.com")
	p1 := createTestPlatform(t, gdb, "Python")
	p2 := createTestPlatform(t, gdb, "SQL")
	p3 := createTestPlatform(t, gdb, "Regex")
	t1 := createTestTopic(t, gdb, "Loops")
	t2 := createTestTopic(t, gdb, "Strings")

	created, err := s.Create(owner, CheatCreate{
		Title:       "doomed",
		Code:        "x",
		PlatformIDs: []uint64{p1.ID, p2.ID, p3.ID},
		TopicIDs:    []uint64{t1.ID, t2.ID},
		IsPublic:    true,
	})
	require.NoError(t, err)

	require.NoError(t, gdb.Create(&db.UserCheat{UserID: owner.ID, CheatID: created.ID, IsFavorite: true}).Error)
	require.NoError(t, gdb.Create(&db.UserCheat{UserID: other.ID, CheatID: created.ID}).Error)

	t.Run("non-owner cannot delete", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(other, created.ID), ErrForbidden)
	})

	t.Run("owner delete cascades", func(t *testing.T) {
		require.NoError(t, s.Delete(owner, created.ID))

		var overlays, platformLinks, topicLinks int64
		require.NoError(t, gdb.Model(&db.UserCheat{}).Where("cheat_id = ?", created.ID).Count(&overlays).Error)
		require.NoError(t, gdb.Model(&db.CheatPlatform{}).Where("cheat_id = ?", created.ID).Count(&platformLinks).Error)
		require.NoError(t, gdb.Model(&db.CheatTopic{}).Where("cheat_id = ?", created.ID).Count(&topicLinks).Error)
		assert.Zero(t, overlays)
		assert.Zero(t, platformLinks)
		assert.Zero(t, topicLinks)

		assert.ErrorIs(t, s.Delete(owner, created.ID), ErrNotFound)
	})
}
