package service

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/db"
)

const DefaultPlatformKind = "language"

type (
	// Taxonomy manages the Platform and Topic reference entities. The
	// two kinds share shape except for Platform's Kind field, so the
	// operations run pairwise.
	Taxonomy struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	PlatformPatch struct {
		Name Field[string] `json:"name"`
		Slug Field[string] `json:"slug"`
		Kind Field[string] `json:"kind"`
	}

	TopicPatch struct {
		Name Field[string] `json:"name"`
		Slug Field[string] `json:"slug"`
	}
)

func NewTaxonomy(gdb *gorm.DB, l *zap.SugaredLogger) *Taxonomy {
	return &Taxonomy{db: gdb, logger: l}
}

// Slugify derives a slug from a display name: trimmed, lower-cased,
// whitespace replaced with hyphens.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// PlatformCreate inserts without a uniqueness pre-check; a duplicate
// name or slug surfaces from the storage layer as ErrConflict.
func (s *Taxonomy) PlatformCreate(name, slug, kind string) (*db.Platform, error) {
	if slug == "" {
		slug = Slugify(name)
	}
	if kind == "" {
		kind = DefaultPlatformKind
	}

	model := db.Platform{Name: name, Slug: slug, Kind: kind}
	res := s.db.Create(&model)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(ErrConflict, "platform name or slug already exists")
		}
		return nil, res.Error
	}
	return &model, nil
}

func (s *Taxonomy) PlatformUpdate(id uint64, patch PlatformPatch) (*db.Platform, error) {
	model := db.Platform{}
	res := s.db.First(&model, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrNotFound, "platform")
		}
		return nil, res.Error
	}

	if v := patch.Name.Get(); patch.Name.Provided() && v != nil {
		model.Name = *v
	}
	if v := patch.Slug.Get(); patch.Slug.Provided() && v != nil {
		model.Slug = *v
	}
	if v := patch.Kind.Get(); patch.Kind.Provided() && v != nil {
		model.Kind = *v
	}

	res = s.db.Save(&model)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(ErrConflict, "platform name or slug already exists")
		}
		return nil, res.Error
	}
	return &model, nil
}

// PlatformDelete is idempotent on absent ids and refuses to delete a
// platform still referenced by any cheat link.
func (s *Taxonomy) PlatformDelete(id uint64) error {
	model := db.Platform{}
	res := s.db.First(&model, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return res.Error
	}

	var inUse int64
	if err := s.db.Model(&db.CheatPlatform{}).Where("platform_id = ?", id).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return errors.Wrap(ErrConflict, "platform is in use by cheats (remove links first)")
	}

	return s.db.Delete(&db.Platform{}, id).Error
}

func (s *Taxonomy) TopicCreate(name, slug string) (*db.Topic, error) {
	if slug == "" {
		slug = Slugify(name)
	}

	model := db.Topic{Name: name, Slug: slug}
	res := s.db.Create(&model)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(ErrConflict, "topic name or slug already exists")
		}
		return nil, res.Error
	}
	return &model, nil
}

func (s *Taxonomy) TopicUpdate(id uint64, patch TopicPatch) (*db.Topic, error) {
	model := db.Topic{}
	res := s.db.First(&model, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrNotFound, "topic")
		}
		return nil, res.Error
	}

	if v := patch.Name.Get(); patch.Name.Provided() && v != nil {
		model.Name = *v
	}
	if v := patch.Slug.Get(); patch.Slug.Provided() && v != nil {
		model.Slug = *v
	}

	res = s.db.Save(&model)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(ErrConflict, "topic name or slug already exists")
		}
		return nil, res.Error
	}
	return &model, nil
}

func (s *Taxonomy) TopicDelete(id uint64) error {
	model := db.Topic{}
	res := s.db.First(&model, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return res.Error
	}

	var inUse int64
	if err := s.db.Model(&db.CheatTopic{}).Where("topic_id = ?", id).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return errors.Wrap(ErrConflict, "topic is in use by cheats (remove links first)")
	}

	return s.db.Delete(&db.Topic{}, id).Error
}
