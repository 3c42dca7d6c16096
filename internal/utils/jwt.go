package utils // package utils provides helpers for token signing and password hashing

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// Verification failures.  Callers pick the HTTP status from these: the
// refresh endpoint answers 403 for both, other callers may tell them apart.
var (
    ErrTokenExpired = errors.New("token expired")
    ErrTokenInvalid = errors.New("token invalid")
)

// Default lifetimes of issued tokens.
const (
    DefaultAccessTTL  = 30 * time.Minute
    DefaultRefreshTTL = 24 * time.Hour
)

// UserInfo is the identity embedded in an access token.
type UserInfo struct {
    Username string   `json:"username"`
    Roles    []string `json:"roles"`
}

// AccessClaims is the payload of an access token: {"userInfo":{...}}.
type AccessClaims struct {
    UserInfo UserInfo `json:"userInfo"`
    jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token: {"username":...}.
type RefreshClaims struct {
    Username string `json:"username"`
    jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh tokens.  The two
// token kinds use distinct secrets so a refresh token can never be
// presented as an access token and vice versa.
type TokenService struct {
    AccessSecret  []byte
    RefreshSecret []byte
    AccessTTL     time.Duration
    RefreshTTL    time.Duration

    // Now returns the issuing time; nil means time.Now.
    Now func() time.Time
}

// NewTokenService builds a TokenService.  Non-positive TTLs fall back to
// DefaultAccessTTL and DefaultRefreshTTL.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
    if accessTTL <= 0 {
        accessTTL = DefaultAccessTTL
    }
    if refreshTTL <= 0 {
        refreshTTL = DefaultRefreshTTL
    }
    return &TokenService{
        AccessSecret:  []byte(accessSecret),
        RefreshSecret: []byte(refreshSecret),
        AccessTTL:     accessTTL,
        RefreshTTL:    refreshTTL,
    }
}

func (s *TokenService) now() time.Time {
    if s.Now != nil {
        return s.Now().UTC()
    }
    return time.Now().UTC()
}

func (s *TokenService) registered(ttl time.Duration) jwt.RegisteredClaims {
    now := s.now()
    return jwt.RegisteredClaims{
        IssuedAt:  jwt.NewNumericDate(now),
        ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
    }
}

// IssueAccessToken signs {userInfo:{username, roles}} with the access secret.
func (s *TokenService) IssueAccessToken(username string, roles []string) (string, error) {
    if roles == nil {
        roles = []string{}
    }
    claims := AccessClaims{
        UserInfo:         UserInfo{Username: username, Roles: roles},
        RegisteredClaims: s.registered(s.AccessTTL),
    }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.AccessSecret)
}

// IssueRefreshToken signs {username} with the refresh secret.
func (s *TokenService) IssueRefreshToken(username string) (string, error) {
    claims := RefreshClaims{
        Username:         username,
        RegisteredClaims: s.registered(s.RefreshTTL),
    }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.RefreshSecret)
}

// VerifyAccess parses an access token signed with the access secret.
func (s *TokenService) VerifyAccess(raw string) (*AccessClaims, error) {
    claims := &AccessClaims{}
    if err := verify(raw, s.AccessSecret, claims); err != nil {
        return nil, err
    }
    return claims, nil
}

// VerifyRefresh parses a refresh token signed with the refresh secret.
func (s *TokenService) VerifyRefresh(raw string) (*RefreshClaims, error) {
    claims := &RefreshClaims{}
    if err := verify(raw, s.RefreshSecret, claims); err != nil {
        return nil, err
    }
    if claims.Username == "" {
        return nil, ErrTokenInvalid
    }
    return claims, nil
}

// verify checks signature and expiry of raw against secret, decoding into
// claims.  Any failure other than expiry is reported as ErrTokenInvalid.
func verify(raw string, secret []byte, claims jwt.Claims) error {
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Reject anything that is not HMAC; "none" and RSA keys are never valid here.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, jwt.ErrSignatureInvalid
        }
        return secret, nil
    }, jwt.WithExpirationRequired())
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return ErrTokenExpired
        }
        return ErrTokenInvalid
    }
    if !tok.Valid {
        return ErrTokenInvalid
    }
    return nil
}
