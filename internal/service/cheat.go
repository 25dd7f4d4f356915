package service

import (
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/db"
)

type (
	// Cheats owns the Cheat entity and its two taxonomy link tables.
	// Every mutation runs as one transaction covering the cheat row and
	// its link rows, so concurrent link-set replacements never
	// interleave into a mixed state.
	Cheats struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	CheatCreate struct {
		Title       string
		Code        string
		Notes       *string
		PlatformIDs []uint64
		TopicIDs    []uint64
		IsPublic    bool
	}

	CheatPatch struct {
		Title       Field[string]   `json:"title"`
		Code        Field[string]   `json:"code"`
		Notes       Field[string]   `json:"notes"`
		IsPublic    Field[bool]     `json:"is_public"`
		PlatformIDs Field[[]uint64] `json:"platform_ids"`
		TopicIDs    Field[[]uint64] `json:"topic_ids"`
	}

	// CheatView is the denormalized read shape: scalar fields plus the
	// full id sets from both link tables, never the raw link rows.
	CheatView struct {
		ID              uint64
		Title           string
		Code            string
		Notes           *string
		CreatedByUserID *uint64
		IsPublic        bool
		PlatformIDs     []uint64
		TopicIDs        []uint64
	}
)

func NewCheats(gdb *gorm.DB, l *zap.SugaredLogger) *Cheats {
	return &Cheats{db: gdb, logger: l}
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// validateRefs checks every id in ids against table and returns an
// InvalidReferenceError naming the missing ones.
func validateRefs(tx *gorm.DB, table, kind string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	existing := make([]uint64, 0, len(ids))
	if err := tx.Table(table).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return err
	}

	found := make(map[uint64]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}

	missing := make([]uint64, 0)
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return &InvalidReferenceError{Kind: kind, IDs: missing}
	}
	return nil
}

func (s *Cheats) ListVisible(user *db.User) ([]CheatView, error) {
	return listVisible(s.db, user.ID)
}

func listVisible(tx *gorm.DB, userID uint64) ([]CheatView, error) {
	sql, args, err := squirrel.
		Select("id", "title", "code", "notes", "created_by_user_id", "is_public").
		From("cheats").
		Where(squirrel.Or{
			squirrel.Eq{"is_public": true},
			squirrel.Eq{"created_by_user_id": userID},
		}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	cheats := make([]db.Cheat, 0)
	if err := tx.Raw(sql, args...).Scan(&cheats).Error; err != nil {
		return nil, errors.Wrap(err, "scan cheats")
	}

	views := make([]CheatView, len(cheats))
	ids := make([]uint64, len(cheats))
	byID := make(map[uint64]*CheatView, len(cheats))
	for i := range cheats {
		views[i] = CheatView{
			ID:              cheats[i].ID,
			Title:           cheats[i].Title,
			Code:            cheats[i].Code,
			Notes:           cheats[i].Notes,
			CreatedByUserID: cheats[i].CreatedByUserID,
			IsPublic:        cheats[i].IsPublic,
			PlatformIDs:     make([]uint64, 0),
			TopicIDs:        make([]uint64, 0),
		}
		ids[i] = cheats[i].ID
		byID[cheats[i].ID] = &views[i]
	}
	if len(ids) == 0 {
		return views, nil
	}

	platformLinks := make([]db.CheatPlatform, 0)
	if err := tx.Where("cheat_id IN ?", ids).Find(&platformLinks).Error; err != nil {
		return nil, errors.Wrap(err, "load platform links")
	}
	for _, link := range platformLinks {
		v := byID[link.CheatID]
		v.PlatformIDs = append(v.PlatformIDs, link.PlatformID)
	}

	topicLinks := make([]db.CheatTopic, 0)
	if err := tx.Where("cheat_id IN ?", ids).Find(&topicLinks).Error; err != nil {
		return nil, errors.Wrap(err, "load topic links")
	}
	for _, link := range topicLinks {
		v := byID[link.CheatID]
		v.TopicIDs = append(v.TopicIDs, link.TopicID)
	}

	return views, nil
}

func (s *Cheats) Create(user *db.User, in CheatCreate) (*CheatView, error) {
	platformIDs := dedupeIDs(in.PlatformIDs)
	topicIDs := dedupeIDs(in.TopicIDs)

	ownerID := user.ID
	model := db.Cheat{
		Title:           in.Title,
		Code:            in.Code,
		Notes:           in.Notes,
		CreatedByUserID: &ownerID,
		IsPublic:        in.IsPublic,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := validateRefs(tx, "platforms", "platform", platformIDs); err != nil {
			return err
		}
		if err := validateRefs(tx, "topics", "topic", topicIDs); err != nil {
			return err
		}

		if err := tx.Create(&model).Error; err != nil {
			return errors.Wrap(err, "create cheat")
		}

		for _, pid := range platformIDs {
			if err := tx.Create(&db.CheatPlatform{CheatID: model.ID, PlatformID: pid}).Error; err != nil {
				return errors.Wrap(err, "link platform")
			}
		}
		for _, tid := range topicIDs {
			if err := tx.Create(&db.CheatTopic{CheatID: model.ID, TopicID: tid}).Error; err != nil {
				return errors.Wrap(err, "link topic")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CheatView{
		ID:              model.ID,
		Title:           model.Title,
		Code:            model.Code,
		Notes:           model.Notes,
		CreatedByUserID: model.CreatedByUserID,
		IsPublic:        model.IsPublic,
		PlatformIDs:     platformIDs,
		TopicIDs:        topicIDs,
	}, nil
}

func (s *Cheats) Update(user *db.User, cheatID uint64, patch CheatPatch) (*CheatView, error) {
	var view *CheatView

	err := s.db.Transaction(func(tx *gorm.DB) error {
		model := db.Cheat{}
		res := tx.First(&model, cheatID)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return errors.Wrap(ErrNotFound, "cheat")
			}
			return res.Error
		}

		if ownershipOf(&model, user.ID) != OwnedByCaller {
			return errors.Wrap(ErrForbidden, "not the cheat owner")
		}

		if v := patch.Title.Get(); patch.Title.Provided() && v != nil {
			model.Title = *v
		}
		if v := patch.Code.Get(); patch.Code.Provided() && v != nil {
			model.Code = *v
		}
		if patch.Notes.Provided() {
			model.Notes = patch.Notes.Get()
		}
		if v := patch.IsPublic.Get(); patch.IsPublic.Provided() && v != nil {
			model.IsPublic = *v
		}

		if err := tx.Save(&model).Error; err != nil {
			return errors.Wrap(err, "save cheat")
		}

		// A provided id list, even empty, replaces that dimension's
		// link set wholesale. An omitted list leaves it untouched.
		if patch.PlatformIDs.Provided() {
			ids := make([]uint64, 0)
			if v := patch.PlatformIDs.Get(); v != nil {
				ids = dedupeIDs(*v)
			}
			if err := validateRefs(tx, "platforms", "platform", ids); err != nil {
				return err
			}
			if err := tx.Where("cheat_id = ?", model.ID).Delete(&db.CheatPlatform{}).Error; err != nil {
				return errors.Wrap(err, "clear platform links")
			}
			for _, pid := range ids {
				if err := tx.Create(&db.CheatPlatform{CheatID: model.ID, PlatformID: pid}).Error; err != nil {
					return errors.Wrap(err, "link platform")
				}
			}
		}
		if patch.TopicIDs.Provided() {
			ids := make([]uint64, 0)
			if v := patch.TopicIDs.Get(); v != nil {
				ids = dedupeIDs(*v)
			}
			if err := validateRefs(tx, "topics", "topic", ids); err != nil {
				return err
			}
			if err := tx.Where("cheat_id = ?", model.ID).Delete(&db.CheatTopic{}).Error; err != nil {
				return errors.Wrap(err, "clear topic links")
			}
			for _, tid := range ids {
				if err := tx.Create(&db.CheatTopic{CheatID: model.ID, TopicID: tid}).Error; err != nil {
					return errors.Wrap(err, "link topic")
				}
			}
		}

		v, err := loadView(tx, &model)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Delete cascades: overlays first, then both link tables, then the
// cheat row, all in one transaction.
func (s *Cheats) Delete(user *db.User, cheatID uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		model := db.Cheat{}
		res := tx.First(&model, cheatID)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return errors.Wrap(ErrNotFound, "cheat")
			}
			return res.Error
		}

		if ownershipOf(&model, user.ID) != OwnedByCaller {
			return errors.Wrap(ErrForbidden, "not the cheat owner")
		}

		if err := tx.Where("cheat_id = ?", cheatID).Delete(&db.UserCheat{}).Error; err != nil {
			return errors.Wrap(err, "delete overlays")
		}
		if err := tx.Where("cheat_id = ?", cheatID).Delete(&db.CheatPlatform{}).Error; err != nil {
			return errors.Wrap(err, "delete platform links")
		}
		if err := tx.Where("cheat_id = ?", cheatID).Delete(&db.CheatTopic{}).Error; err != nil {
			return errors.Wrap(err, "delete topic links")
		}
		if err := tx.Delete(&db.Cheat{}, cheatID).Error; err != nil {
			return errors.Wrap(err, "delete cheat")
		}
		return nil
	})
}

func loadView(tx *gorm.DB, model *db.Cheat) (*CheatView, error) {
	view := CheatView{
		ID:              model.ID,
		Title:           model.Title,
		Code:            model.Code,
		Notes:           model.Notes,
		CreatedByUserID: model.CreatedByUserID,
		IsPublic:        model.IsPublic,
		PlatformIDs:     make([]uint64, 0),
		TopicIDs:        make([]uint64, 0),
	}

	platformLinks := make([]db.CheatPlatform, 0)
	if err := tx.Where("cheat_id = ?", model.ID).Find(&platformLinks).Error; err != nil {
		return nil, errors.Wrap(err, "load platform links")
	}
	for _, link := range platformLinks {
		view.PlatformIDs = append(view.PlatformIDs, link.PlatformID)
	}

	topicLinks := make([]db.CheatTopic, 0)
	if err := tx.Where("cheat_id = ?", model.ID).Find(&topicLinks).Error; err != nil {
		return nil, errors.Wrap(err, "load topic links")
	}
	for _, link := range topicLinks {
		view.TopicIDs = append(view.TopicIDs, link.TopicID)
	}

	return &view, nil
}
