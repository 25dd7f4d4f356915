package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bagger-dev/bagger-back/internal/config"
	"github.com/bagger-dev/bagger-back/internal/db"
	"github.com/bagger-dev/bagger-back/internal/service"
)

type (
	UserCreateReq struct {
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}

	LoginReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	UserResp struct {
		ID        uint64    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		IsAdmin   bool      `json:"is_admin"`
		CreatedAt time.Time `json:"created_at"`
	}

	TokenResp struct {
		AccessToken string   `json:"access_token"`
		TokenType   string   `json:"token_type"`
		User        UserResp `json:"user"`
	}

	TaxonomyCreateReq struct {
		Name string `json:"name" validate:"required"`
		Slug string `json:"slug"`
		Kind string `json:"kind" validate:"omitempty,oneof=language framework tool format"`
	}

	PlatformResp struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
		Kind string `json:"kind"`
	}

	TopicResp struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}

	CheatCreateReq struct {
		Title       string   `json:"title" validate:"required"`
		Code        string   `json:"code" validate:"required"`
		Notes       *string  `json:"notes"`
		PlatformIDs []uint64 `json:"platform_ids"`
		TopicIDs    []uint64 `json:"topic_ids"`
		IsPublic    *bool    `json:"is_public"`
	}

	CheatResp struct {
		ID          uint64   `json:"id"`
		Title       string   `json:"title"`
		Code        string   `json:"code"`
		Notes       *string  `json:"notes,omitempty"`
		IsPublic    bool     `json:"is_public"`
		PlatformIDs []uint64 `json:"platform_ids"`
		TopicIDs    []uint64 `json:"topic_ids"`
	}

	OverlayResp struct {
		UserID        uint64  `json:"user_id"`
		CheatID       uint64  `json:"cheat_id"`
		IsFavorite    bool    `json:"is_favorite"`
		PersonalNotes *string `json:"personal_notes,omitempty"`
	}

	CheatPlatformLinkResp struct {
		CheatID    uint64 `json:"cheat_id"`
		PlatformID uint64 `json:"platform_id"`
	}

	CheatTopicLinkResp struct {
		CheatID uint64 `json:"cheat_id"`
		TopicID uint64 `json:"topic_id"`
	}

	BootstrapResp struct {
		User           UserResp                `json:"user"`
		Platforms      []PlatformResp          `json:"platforms"`
		Topics         []TopicResp             `json:"topics"`
		Cheats         []CheatResp             `json:"cheats"`
		CheatPlatforms []CheatPlatformLinkResp `json:"cheat_platforms"`
		CheatTopics    []CheatTopicLinkResp    `json:"cheat_topics"`
		UserCheats     []OverlayResp           `json:"user_cheats"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		credential *service.Credential
		taxonomy   *service.Taxonomy
		cheats     *service.Cheats
		overlays   *service.Overlays
		bootstrap  *service.Bootstrap
		logger     *zap.SugaredLogger
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	credential *service.Credential,
	taxonomy *service.Taxonomy,
	cheats *service.Cheats,
	overlays *service.Overlays,
	bootstrap *service.Bootstrap,
	logger *zap.SugaredLogger,
) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		credential: credential,
		taxonomy:   taxonomy,
		cheats:     cheats,
		overlays:   overlays,
		bootstrap:  bootstrap,
		logger:     logger,
	}

	userG := e.Group("/api/users")
	userG.POST("", instance.UserCreate)
	userG.POST("/login", instance.Login)
	userG.GET("/me", instance.Me)
	userG.GET("/bootstrap", instance.Bootstrap)

	cheatG := e.Group("/api/cheats")
	cheatG.GET("", instance.CheatList)
	cheatG.POST("", instance.CheatCreate)
	cheatG.PATCH("/:id", instance.CheatUpdate)
	cheatG.DELETE("/:id", instance.CheatDelete)
	cheatG.PATCH("/:id/me", instance.OverlaySet)
	cheatG.DELETE("/:id/me", instance.OverlayClear)

	platformG := e.Group("/api/platforms")
	platformG.POST("", instance.PlatformCreate)
	platformG.PATCH("/:id", instance.PlatformUpdate)
	platformG.DELETE("/:id", instance.PlatformDelete)

	topicG := e.Group("/api/topics")
	topicG.POST("", instance.TopicCreate)
	topicG.PATCH("/:id", instance.TopicUpdate)
	topicG.DELETE("/:id", instance.TopicDelete)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Handler: func(c echo.Context, reqBody, _ []byte) {
			logger.Infow("request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"body", string(censorBody(reqBody)),
			)
		},
	}))

	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) UserCreate(c echo.Context) error {
	req := UserCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := s.credential.Register(req.Email, req.Name, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, userToResp(user))
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := LoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := s.credential.Login(req.Email, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, TokenResp{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userToResp(user),
	})
}

func (s *HTTPServer) Me(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userToResp(user))
}

func (s *HTTPServer) Bootstrap(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	snap, err := s.bootstrap.Snapshot(user)
	if err != nil {
		return mapServiceError(err)
	}

	resp := BootstrapResp{
		User:           userToResp(snap.User),
		Platforms:      make([]PlatformResp, len(snap.Platforms)),
		Topics:         make([]TopicResp, len(snap.Topics)),
		Cheats:         make([]CheatResp, len(snap.Cheats)),
		CheatPlatforms: make([]CheatPlatformLinkResp, len(snap.CheatPlatforms)),
		CheatTopics:    make([]CheatTopicLinkResp, len(snap.CheatTopics)),
		UserCheats:     make([]OverlayResp, len(snap.Overlays)),
	}
	for i := range snap.Platforms {
		resp.Platforms[i] = platformToResp(&snap.Platforms[i])
	}
	for i := range snap.Topics {
		resp.Topics[i] = topicToResp(&snap.Topics[i])
	}
	for i := range snap.Cheats {
		resp.Cheats[i] = cheatToResp(&snap.Cheats[i])
	}
	for i := range snap.CheatPlatforms {
		resp.CheatPlatforms[i] = CheatPlatformLinkResp{
			CheatID:    snap.CheatPlatforms[i].CheatID,
			PlatformID: snap.CheatPlatforms[i].PlatformID,
		}
	}
	for i := range snap.CheatTopics {
		resp.CheatTopics[i] = CheatTopicLinkResp{
			CheatID: snap.CheatTopics[i].CheatID,
			TopicID: snap.CheatTopics[i].TopicID,
		}
	}
	for i := range snap.Overlays {
		resp.UserCheats[i] = overlayToResp(&snap.Overlays[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) CheatList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	views, err := s.cheats.ListVisible(user)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]CheatResp, len(views))
	for i := range views {
		resp[i] = cheatToResp(&views[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) CheatCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := CheatCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	view, err := s.cheats.Create(user, service.CheatCreate{
		Title:       req.Title,
		Code:        req.Code,
		Notes:       req.Notes,
		PlatformIDs: req.PlatformIDs,
		TopicIDs:    req.TopicIDs,
		IsPublic:    isPublic,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, cheatToResp(view))
}

func (s *HTTPServer) CheatUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	patch := service.CheatPatch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	view, err := s.cheats.Update(user, id, patch)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, cheatToResp(view))
}

func (s *HTTPServer) CheatDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.cheats.Delete(user, id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) OverlaySet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	patch := service.OverlayPatch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	overlay, err := s.overlays.Set(user, id, patch)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, overlayToResp(overlay))
}

func (s *HTTPServer) OverlayClear(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.overlays.Clear(user, id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) PlatformCreate(c echo.Context) error {
	req := TaxonomyCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	model, err := s.taxonomy.PlatformCreate(req.Name, req.Slug, req.Kind)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, platformToResp(model))
}

func (s *HTTPServer) PlatformUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	patch := service.PlatformPatch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	model, err := s.taxonomy.PlatformUpdate(id, patch)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, platformToResp(model))
}

func (s *HTTPServer) PlatformDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.taxonomy.PlatformDelete(id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) TopicCreate(c echo.Context) error {
	req := TaxonomyCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	model, err := s.taxonomy.TopicCreate(req.Name, req.Slug)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, topicToResp(model))
}

func (s *HTTPServer) TopicUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	patch := service.TopicPatch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	model, err := s.taxonomy.TopicUpdate(id, patch)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, topicToResp(model))
}

func (s *HTTPServer) TopicDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.taxonomy.TopicDelete(id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if isPublicRoute(c) {
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}

		user, err := s.credential.ResolveIdentity(token)
		if err != nil {
			return c.NoContent(http.StatusUnauthorized)
		}

		c.Set("user", user)
		return next(c)
	}
}

func isPublicRoute(c echo.Context) bool {
	if c.Path() == "/ping" {
		return true
	}
	if c.Path() == "/api/users" && c.Request().Method == http.MethodPost {
		return true
	}
	return c.Path() == "/api/users/login"
}

////////

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidReference):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func userToResp(user *db.User) UserResp {
	return UserResp{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	}
}

func platformToResp(model *db.Platform) PlatformResp {
	return PlatformResp{
		ID:   model.ID,
		Name: model.Name,
		Slug: model.Slug,
		Kind: model.Kind,
	}
}

func topicToResp(model *db.Topic) TopicResp {
	return TopicResp{
		ID:   model.ID,
		Name: model.Name,
		Slug: model.Slug,
	}
}

func cheatToResp(view *service.CheatView) CheatResp {
	return CheatResp{
		ID:          view.ID,
		Title:       view.Title,
		Code:        view.Code,
		Notes:       view.Notes,
		IsPublic:    view.IsPublic,
		PlatformIDs: view.PlatformIDs,
		TopicIDs:    view.TopicIDs,
	}
}

func overlayToResp(overlay *db.UserCheat) OverlayResp {
	return OverlayResp{
		UserID:        overlay.UserID,
		CheatID:       overlay.CheatID,
		IsFavorite:    overlay.IsFavorite,
		PersonalNotes: overlay.PersonalNotes,
	}
}

// censorBody blanks the password field of a JSON request body before it
// reaches the logs.
func censorBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}
	if _, ok := fields["password"]; !ok {
		return body
	}
	fields["password"], _ = json.Marshal("$censored")
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, ok := c.Get("user").(*db.User)
	if !ok || user == nil {
		return nil, errors.New("no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param 'id'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, e
	}
	return vv, nil
}
