package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/buzzdrop/buzzdrop/internal/models"
)

const (
	userEnvPrefix = "BUZZDROP_USER_"
	hashIter      = 100000
	hashKeyLen    = 32
	hashSaltLen   = 16
)

// AuthService verifies logins against an environment-variable user store
// and issues in-memory session tokens. User passwords authenticate accounts
// only; they are unrelated to share passwords and never touch a payload.
type AuthService struct {
	users map[string]models.User
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	user    string
	expires time.Time
}

// NewAuthService parses users from the given environment in the form
//
//	BUZZDROP_USER_1=alice:s3cret:true
//
// (name:password:is_admin). Malformed entries are skipped. environ takes
// os.Environ() style "KEY=VALUE" strings so tests can inject their own.
func NewAuthService(environ []string, ttl time.Duration) (*AuthService, error) {
	users := make(map[string]models.User)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, userEnvPrefix) {
			continue
		}
		parts := strings.SplitN(value, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			continue
		}

		salt := make([]byte, hashSaltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate user salt: %w", err)
		}
		users[parts[0]] = models.User{
			Name:         parts[0],
			Salt:         salt,
			PasswordHash: hashPassword(parts[1], salt),
			Admin:        strings.EqualFold(parts[2], "true"),
		}
	}
	return &AuthService{
		users:    users,
		ttl:      ttl,
		sessions: make(map[string]session),
	}, nil
}

// hashPassword digests a password with PBKDF2-SHA256. Plaintext passwords
// from the environment are hashed once at startup and then discarded.
func hashPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, hashIter, hashKeyLen, sha256.New)
}

// UserCount returns the number of configured accounts.
func (a *AuthService) UserCount() int {
	return len(a.users)
}

// IsAdmin reports whether the named user has admin rights.
func (a *AuthService) IsAdmin(name string) bool {
	return a.users[name].Admin
}

// Login verifies credentials and returns a new session token.
func (a *AuthService) Login(name, password string) (string, bool) {
	user, ok := a.users[name]
	if !ok {
		return "", false
	}
	if subtle.ConstantTimeCompare(hashPassword(password, user.Salt), user.PasswordHash) != 1 {
		return "", false
	}

	token := uuid.NewString()
	a.mu.Lock()
	a.sessions[token] = session{user: name, expires: time.Now().Add(a.ttl)}
	a.mu.Unlock()
	return token, true
}

// Logout invalidates a session token. Unknown tokens are ignored.
func (a *AuthService) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// Resolve returns the username behind a live session token. Expired
// sessions are evicted on the way out.
func (a *AuthService) Resolve(token string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[token]
	if !ok {
		return "", false
	}
	if time.Now().After(sess.expires) {
		delete(a.sessions, token)
		return "", false
	}
	return sess.user, true
}
