package identity

import (
	"context"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/uniuri"
)

const (
	localUIDLen   = 28
	localTokenLen = 40

	localTokenTTL = 24 * time.Hour
)

// LocalCredential is a password record of the local identity backend.
type LocalCredential struct {
	ID           uint64 `gorm:"primaryKey"`
	UID          string `gorm:"column:uid;unique;size:64;not null"`
	Email        string `gorm:"unique;size:255;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the database table name for the LocalCredential model.
func (LocalCredential) TableName() string {
	return "local_credentials"
}

// LocalToken is an opaque access token issued by the local backend.
type LocalToken struct {
	ID        uint64 `gorm:"primaryKey"`
	Token     string `gorm:"unique;size:64;not null"`
	UID       string `gorm:"column:uid;index;size:64;not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TableName specifies the database table name for the LocalToken model.
func (LocalToken) TableName() string {
	return "local_tokens"
}

// Local implements Provider against the application database. Passwords are
// argon2id hashes, tokens are random opaque strings with a fixed TTL. Meant
// for dev and test setups without a Keycloak instance.
type Local struct {
	db *gorm.DB
}

// NewLocal creates the local identity provider and migrates its tables.
func NewLocal(db *gorm.DB) (*Local, error) {
	if err := db.AutoMigrate(&LocalCredential{}, &LocalToken{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate identity tables")
	}

	return &Local{db: db}, nil
}

// SignUp stores a new credential record and returns the generated UID.
func (l *Local) SignUp(_ context.Context, email, password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	cred := LocalCredential{
		UID:          uniuri.NewLen(localUIDLen),
		Email:        email,
		PasswordHash: hash,
	}

	err = l.db.Create(&cred).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", ErrEmailAlreadyInUse
	}

	if err != nil {
		return "", errors.Wrap(err, "failed to store credential")
	}

	return cred.UID, nil
}

// SignIn verifies the password and issues a fresh token.
func (l *Local) SignIn(_ context.Context, email, password string) (string, string, error) {
	var cred LocalCredential

	err := l.db.Where("email = ?", email).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", ErrInvalidCredentials
	}

	if err != nil {
		return "", "", errors.Wrap(err, "failed to load credential")
	}

	match, err := argon2id.ComparePasswordAndHash(password, cred.PasswordHash)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to compare password")
	}

	if !match {
		return "", "", ErrInvalidCredentials
	}

	token := LocalToken{
		Token:     uniuri.NewLen(localTokenLen),
		UID:       cred.UID,
		ExpiresAt: time.Now().Add(localTokenTTL),
	}

	if err := l.db.Create(&token).Error; err != nil {
		return "", "", errors.Wrap(err, "failed to store token")
	}

	return token.Token, cred.UID, nil
}

// SignOut drops every token of the identity.
func (l *Local) SignOut(_ context.Context, uid string) error {
	return l.db.Where("uid = ?", uid).Delete(&LocalToken{}).Error
}

// VerifyToken looks the token up and rejects expired ones.
func (l *Local) VerifyToken(_ context.Context, accessToken string) (Token, error) {
	var token LocalToken

	err := l.db.Where("token = ?", accessToken).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Token{}, ErrInvalidToken
	}

	if err != nil {
		return Token{}, errors.Wrap(err, "failed to load token")
	}

	if time.Now().After(token.ExpiresAt) {
		// expired tokens are removed on sight
		_ = l.db.Delete(&LocalToken{}, token.ID).Error

		return Token{}, ErrInvalidToken
	}

	var cred LocalCredential
	if err := l.db.Where("uid = ?", token.UID).First(&cred).Error; err != nil {
		return Token{}, ErrInvalidToken
	}

	return Token{UID: cred.UID, Email: cred.Email}, nil
}

// ResetPassword has no mail flow locally; it only invalidates the tokens of
// the identity so a stolen session can be cut off. Unknown emails are not
// reported to the caller.
func (l *Local) ResetPassword(ctx context.Context, email string) error {
	var cred LocalCredential

	err := l.db.Where("email = ?", email).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "failed to load credential")
	}

	return l.SignOut(ctx, cred.UID)
}

// DeleteIdentity removes the credential and all tokens. Deleting an unknown
// UID is a no-op.
func (l *Local) DeleteIdentity(ctx context.Context, uid string) error {
	if err := l.SignOut(ctx, uid); err != nil {
		return err
	}

	return l.db.Where("uid = ?", uid).Delete(&LocalCredential{}).Error
}
