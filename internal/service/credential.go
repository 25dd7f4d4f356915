package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/auth"
	"github.com/bagger-dev/bagger-back/internal/db"
)

// Credential owns user records: signup, login and bearer-token
// resolution. Login failures are reported with one indistinct error so
// the response never reveals whether the email exists.
type Credential struct {
	db       *gorm.DB
	password *auth.Password
	token    *auth.Token
	logger   *zap.SugaredLogger
}

func NewCredential(gdb *gorm.DB, password *auth.Password, token *auth.Token, l *zap.SugaredLogger) *Credential {
	return &Credential{
		db:       gdb,
		password: password,
		token:    token,
		logger:   l,
	}
}

func (s *Credential) Register(email, name, pass string) (*db.User, error) {
	digest, err := s.password.Digest(pass)
	if err != nil {
		return nil, errors.Wrap(err, "digest password")
	}

	user := db.User{
		Email:        email,
		Name:         name,
		PasswordHash: digest,
	}
	res := s.db.Create(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(ErrConflict, "email already registered")
		}
		return nil, res.Error
	}
	return &user, nil
}

func (s *Credential) Login(email, pass string) (*db.User, string, error) {
	user := db.User{}
	res := s.db.Where("email = ?", email).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, "", errors.Wrap(ErrUnauthorized, "invalid email or password")
		}
		return nil, "", res.Error
	}

	if !s.password.Matches(user.PasswordHash, pass) {
		return nil, "", errors.Wrap(ErrUnauthorized, "invalid email or password")
	}

	token, err := s.token.Issue(auth.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, "", errors.Wrap(err, "issue token")
	}

	return &user, token, nil
}

func (s *Credential) ResolveIdentity(token string) (*db.User, error) {
	if token == "" {
		return nil, errors.Wrap(ErrUnauthorized, "missing token")
	}

	identity, err := s.token.Verify(token)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}

	user := db.User{}
	res := s.db.First(&user, identity.UserID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "token names unknown user")
		}
		return nil, res.Error
	}

	return &user, nil
}
