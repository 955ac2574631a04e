package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/Daskott/healthdesk/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	ACCESS_TOKEN  = "access"
	REFRESH_TOKEN = "refresh"
)

// HashCost is lowered in tests to keep them fast.
var HashCost = 14

var (
	dummyHash     string
	dummyHashOnce sync.Once
)

type TokenClaims struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.StandardClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type TokenService struct {
	keyPair    *key.KeyPair
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(keyPair *key.KeyPair, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		keyPair:    keyPair,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// DummyHash is compared against when a login email is unknown so both paths pay for bcrypt.
func DummyHash() string {
	dummyHashOnce.Do(func() {
		hash, err := HashPassword(uuid.NewString())
		if err != nil {
			panic(err)
		}
		dummyHash = hash
	})

	return dummyHash
}

func (ts *TokenService) KeyPair() *key.KeyPair {
	return ts.keyPair
}

func (ts *TokenService) IssueTokenPair(subject uint, name, email string) (*TokenPair, error) {
	access, err := ts.IssueAccessToken(subject, name, email)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.issue(subject, name, email, REFRESH_TOKEN, ts.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (ts *TokenService) IssueAccessToken(subject uint, name, email string) (string, error) {
	return ts.issue(subject, name, email, ACCESS_TOKEN, ts.accessTTL)
}

// Verify decodes tokenString and checks its signature, expiry, issuer and token type.
func (ts *TokenService) Verify(tokenString, tokenType string) (*TokenClaims, error) {
	claims, err := DecodeJWT(tokenString, ts.keyPair)
	if err != nil {
		return nil, err
	}

	if !claims.VerifyIssuer(ts.issuer, true) {
		return nil, fmt.Errorf("invalid jwt: unexpected issuer %q", claims.Issuer)
	}

	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("invalid jwt: expected %v token, got %q", tokenType, claims.TokenType)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid jwt: missing subject")
	}

	return claims, nil
}

func (ts *TokenService) issue(subject uint, name, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()

	return EncodeJWT(TokenClaims{
		Name:      name,
		Email:     email,
		TokenType: tokenType,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   fmt.Sprint(subject),
			Issuer:    ts.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}, ts.keyPair)
}

func EncodeJWT(claims TokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to TokenClaims")
	}

	return tokenClaims, nil
}
