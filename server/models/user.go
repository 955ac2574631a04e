package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Daskott/healthdesk/server/auth"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	allFieldsExceptPassword = []string{"id",
		"name",
		"email",
		"is_active",
		"created_at",
		"updated_at",
	}
)

type User struct {
	BaseModel
	Name             string                 `json:"name" gorm:"not null"`
	Email            string                 `json:"email" gorm:"not null;uniqueIndex:idx_users_email"`
	Password         string                 `json:"-" gorm:"not null"`
	IsActive         bool                   `json:"is_active" gorm:"not null"`
	Patients         []Patient              `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AssignedMappings []PatientDoctorMapping `json:"-" gorm:"foreignKey:AssignedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

type RegisterInput struct {
	Name            string `json:"name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm"`
	Password2       string `json:"password2"`
}

type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserDetail struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
}

type LoginResult struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    UserSummary `json:"user"`
}

// PasswordPolicy returns the reasons password is unacceptable for the given account, if any.
type PasswordPolicy func(password, email, name string) []string

// DefaultPasswordPolicy requires 8+ characters, not all digits, no whitespace,
// and not the same as the account's email or name.
func DefaultPasswordPolicy(password, email, name string) []string {
	problems := []string{}

	if len(password) < 8 {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}

	if isAllDigits(password) {
		problems = append(problems, "This password is entirely numeric.")
	}

	if strings.IndexFunc(password, unicode.IsSpace) >= 0 {
		problems = append(problems, "This password must not contain whitespace.")
	}

	lowered := strings.ToLower(password)
	if lowered == strings.ToLower(email) || lowered == strings.ToLower(name) ||
		lowered == strings.ToLower(strings.SplitN(email, "@", 2)[0]) {
		problems = append(problems, "The password is too similar to the account details.")
	}

	return problems
}

func (user *User) ToSummary() UserSummary {
	return UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
}

func (user *User) ToDetail() UserDetail {
	return UserDetail{ID: user.ID, Name: user.Name, Email: user.Email, DateJoined: user.CreatedAt}
}

// RegisterUser validates input against policy and stores a new active user with a hashed password.
func RegisterUser(ctx context.Context, input RegisterInput, policy PasswordPolicy) (*User, error) {
	if policy == nil {
		policy = DefaultPasswordPolicy
	}

	input.Email = normalizeEmail(input.Email)
	confirm := input.PasswordConfirm
	if confirm == "" {
		confirm = input.Password2
	}

	verr := validateStruct(input)
	if input.Password != "" {
		if confirm != input.Password {
			verr.Add("password", "Password fields didn't match.")
		} else {
			for _, problem := range policy(input.Password, input.Email, input.Name) {
				verr.Add("password", problem)
			}
		}
	}

	user := &User{Name: strings.TrimSpace(input.Name), Email: input.Email, IsActive: true}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, ok := verr.Fields["email"]; !ok {
			taken, err := exists(tx.Model(&User{}).Where("email = ?", input.Email))
			if err != nil {
				return err
			}
			if taken {
				verr.Add("email", uniqueViolations["idx_users_email"].message)
			}
		}

		if verr.HasErrors() {
			return verr
		}

		passwordHash, err := auth.HashPassword(input.Password)
		if err != nil {
			return errors.Wrap(err, "RegisterUser")
		}
		user.Password = passwordHash

		return translateUniqueViolation(tx.Create(user).Error)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Login checks credentials and mints a token pair. Unknown email and wrong password
// fail the same way after the same amount of bcrypt work.
func Login(ctx context.Context, email, password string, tokens *auth.TokenService) (*LoginResult, error) {
	user := User{}

	err := db.WithContext(ctx).First(&user, "email = ?", normalizeEmail(email)).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		auth.CheckPasswordHash(password, auth.DummyHash())
		return nil, ErrInvalidCredentials
	}

	if !auth.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	pair, err := tokens.IssueTokenPair(user.ID, user.Name, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "Login")
	}

	return &LoginResult{Access: pair.Access, Refresh: pair.Refresh, User: user.ToSummary()}, nil
}

// RefreshAccess mints a new access token from a valid refresh token of an active user.
func RefreshAccess(ctx context.Context, refreshToken string, tokens *auth.TokenService) (string, error) {
	claims, err := tokens.Verify(refreshToken, auth.REFRESH_TOKEN)
	if err != nil {
		return "", ErrInvalidToken
	}

	user, err := activeUser(ctx, claims.Subject)
	if err != nil {
		return "", err
	}

	access, err := tokens.IssueAccessToken(user.ID, user.Name, user.Email)
	if err != nil {
		return "", errors.Wrap(err, "RefreshAccess")
	}

	return access, nil
}

// Authenticate resolves the caller behind an access token.
func Authenticate(ctx context.Context, accessToken string, tokens *auth.TokenService) (*User, error) {
	claims, err := tokens.Verify(accessToken, auth.ACCESS_TOKEN)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return activeUser(ctx, claims.Subject)
}

func FindUserBy(ctx context.Context, field string, value interface{}) (*User, error) {
	user := User{}
	err := db.WithContext(ctx).Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "User"}
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SetUserActive enables or disables login for the account with email.
func SetUserActive(ctx context.Context, email string, active bool) error {
	result := db.WithContext(ctx).Model(&User{}).
		Where("email = ?", normalizeEmail(email)).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "User"}
	}

	return nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func activeUser(ctx context.Context, subject string) (*User, error) {
	userID, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := FindUserBy(ctx, "id", userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return user, nil
}

// normalizeEmail trims the address and lowercases its domain part.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func isAllDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func exists(query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
