package seed

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/db"
)

type seedCheat struct {
	title         string
	code          string
	notes         string
	platformSlugs []string
	topicSlugs    []string
}

var defaultPlatforms = []db.Platform{
	{Name: "CSS", Slug: "css", Kind: "language"},
	{Name: "HTML", Slug: "html", Kind: "language"},
	{Name: "JavaScript", Slug: "javascript", Kind: "language"},
	{Name: "Python", Slug: "python", Kind: "language"},
	{Name: "React", Slug: "react", Kind: "framework"},
	{Name: "SQL", Slug: "sql", Kind: "language"},
	{Name: "Terminal", Slug: "terminal", Kind: "tool"},
	{Name: "Regex", Slug: "regex", Kind: "tool"},
	{Name: "JSON", Slug: "json", Kind: "format"},
	{Name: "XML", Slug: "xml", Kind: "format"},
}

var defaultTopics = []db.Topic{
	{Name: "Arrays", Slug: "arrays"},
	{Name: "Classes", Slug: "classes"},
	{Name: "Functions", Slug: "functions"},
	{Name: "Loops", Slug: "loops"},
	{Name: "Components", Slug: "components"},
	{Name: "Setup / Tooling", Slug: "setup-tooling"},
	{Name: "HTTP / API", Slug: "http-api"},
	{Name: "Debugging", Slug: "debugging"},
	{Name: "Strings", Slug: "strings"},
	{Name: "Data Transform", Slug: "data-transform"},
}

var defaultCheats = []seedCheat{
	{
		title: "CORS: credentials means NO '*'",
		code: `app.use(cors({
  origin: ["http://localhost:5173"],
  credentials: true,
}))`,
		notes:         "If credentials are on, you must list exact origins. '*' breaks credentials.",
		platformSlugs: []string{"javascript"},
		topicSlugs:    []string{"http-api", "setup-tooling", "debugging"},
	},
	{
		title: "Do NOT send Bearer token to login/signup",
		code: `// GOOD
api.post("/api/users/login", data, { skipAuth: true });

// BAD
// sending Authorization header to public auth routes`,
		notes:         "Login and signup must be public. Do not attach Authorization header.",
		platformSlugs: []string{"javascript", "react"},
		topicSlugs:    []string{"http-api", "debugging"},
	},
	{
		title: "SQL: find orphaned rows",
		code: `SELECT c.id
FROM child c
LEFT JOIN parent p ON p.id = c.parent_id
WHERE p.id IS NULL;`,
		notes:         "LEFT JOIN + IS NULL beats NOT IN for null-safe orphan hunting.",
		platformSlugs: []string{"sql"},
		topicSlugs:    []string{"debugging", "data-transform"},
	},
}

// IfEmpty populates the default taxonomy and a handful of public system
// cheats when the platform table is empty. Idempotent by existence
// check; safe to run on every start.
func IfEmpty(gdb *gorm.DB, logger *zap.SugaredLogger) error {
	var count int64
	if err := gdb.Model(&db.Platform{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count platforms")
	}
	if count > 0 {
		return nil
	}

	logger.Info("Seeding default taxonomy and cheats.")

	return gdb.Transaction(func(tx *gorm.DB) error {
		platformsBySlug := make(map[string]uint64, len(defaultPlatforms))
		for i := range defaultPlatforms {
			p := defaultPlatforms[i]
			if err := tx.Create(&p).Error; err != nil {
				return errors.Wrapf(err, "seed platform %s", p.Slug)
			}
			platformsBySlug[p.Slug] = p.ID
		}

		topicsBySlug := make(map[string]uint64, len(defaultTopics))
		for i := range defaultTopics {
			t := defaultTopics[i]
			if err := tx.Create(&t).Error; err != nil {
				return errors.Wrapf(err, "seed topic %s", t.Slug)
			}
			topicsBySlug[t.Slug] = t.ID
		}

		for _, sc := range defaultCheats {
			notes := sc.notes
			cheat := db.Cheat{
				Title:    sc.title,
				Code:     sc.code,
				Notes:    &notes,
				IsPublic: true,
				// CreatedByUserID stays nil: system cheat
			}
			if err := tx.Create(&cheat).Error; err != nil {
				return errors.Wrapf(err, "seed cheat %q", sc.title)
			}
			for _, slug := range sc.platformSlugs {
				pid, ok := platformsBySlug[slug]
				if !ok {
					return errors.Errorf("seed cheat %q references unknown platform slug %s", sc.title, slug)
				}
				if err := tx.Create(&db.CheatPlatform{CheatID: cheat.ID, PlatformID: pid}).Error; err != nil {
					return errors.Wrap(err, "seed platform link")
				}
			}
			for _, slug := range sc.topicSlugs {
				tid, ok := topicsBySlug[slug]
				if !ok {
					return errors.Errorf("seed cheat %q references unknown topic slug %s", sc.title, slug)
				}
				if err := tx.Create(&db.CheatTopic{CheatID: cheat.ID, TopicID: tid}).Error; err != nil {
					return errors.Wrap(err, "seed topic link")
				}
			}
		}
		return nil
	})
}
