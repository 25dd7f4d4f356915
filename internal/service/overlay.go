package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/db"
)

type (
	// Overlays manages the per-(user, cheat) annotation rows: favorite
	// flag and personal notes over a shared, possibly system-owned
	// cheat. Rows are created lazily on first write.
	Overlays struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	OverlayPatch struct {
		IsFavorite    Field[bool]   `json:"is_favorite"`
		PersonalNotes Field[string] `json:"personal_notes"`
	}
)

func NewOverlays(gdb *gorm.DB, l *zap.SugaredLogger) *Overlays {
	return &Overlays{db: gdb, logger: l}
}

func (s *Overlays) Set(user *db.User, cheatID uint64, patch OverlayPatch) (*db.UserCheat, error) {
	var overlay db.UserCheat

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cheat := db.Cheat{}
		res := tx.First(&cheat, cheatID)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return errors.Wrap(ErrNotFound, "cheat")
			}
			return res.Error
		}

		if !canOverlay(&cheat, user.ID) {
			return errors.Wrap(ErrForbidden, "cheat not visible")
		}

		res = tx.Where("user_id = ? AND cheat_id = ?", user.ID, cheatID).First(&overlay)
		if res.Error != nil {
			if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return res.Error
			}
			overlay = db.UserCheat{UserID: user.ID, CheatID: cheatID}
			if err := tx.Create(&overlay).Error; err != nil {
				return errors.Wrap(err, "create overlay")
			}
		}

		if v := patch.IsFavorite.Get(); patch.IsFavorite.Provided() && v != nil {
			overlay.IsFavorite = *v
		}
		if patch.PersonalNotes.Provided() {
			overlay.PersonalNotes = patch.PersonalNotes.Get()
		}

		if err := tx.Save(&overlay).Error; err != nil {
			return errors.Wrap(err, "save overlay")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &overlay, nil
}

// Clear is idempotent; an absent overlay is not an error.
func (s *Overlays) Clear(user *db.User, cheatID uint64) error {
	res := s.db.Where("user_id = ? AND cheat_id = ?", user.ID, cheatID).Delete(&db.UserCheat{})
	return res.Error
}
