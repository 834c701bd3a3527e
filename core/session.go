package core

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Roles
const (
	RoleStudent    = "student"
	RoleAgent      = "agent"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

var (
	AllRoles = []string{RoleStudent, RoleAgent, RoleAdmin, RoleSuperAdmin}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 30,
		RoleAdmin:      21,
		RoleAgent:      11,
		RoleStudent:    1,
	}

	errTokenRequired = errors.New("an API token is required")
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// Session is the already-authenticated user on whose behalf the wizard talks to the backend.
// The backend verifies the token; it is only decoded here to know who we are.
type Session struct {
	Token  string
	UserID string `validate:"required"`
	Name   string
	Email  string
	Role   string `validate:"required,oneof=student agent admin super-admin"`
}

type sessionClaims struct {
	jwt.StandardClaims
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewSession decodes the claims of the bearer token handed over by the login flow.
func NewSession(token string) (Session, error) {
	token = strings.TrimPrefix(CleanString(token), "Bearer ")
	if token == "" {
		return Session{}, errTokenRequired
	}

	claims := new(sessionClaims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return Session{}, errors.Wrap(err, "decoding token")
	}

	sess := Session{
		Token: token,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  CleanString(claims.Role, true /* lower */),
	}
	sess.UserID = claims.ID
	if sess.UserID == "" {
		sess.UserID = claims.Subject
	}
	if err := Validate.Struct(sess); err != nil {
		return Session{}, errors.Wrap(err, "validating session")
	}
	return sess, nil
}

func (s Session) IsAdmin() bool {
	return RolePriority(s.Role) >= RolePriority(RoleAdmin)
}

func (s Session) IsAgent() bool   { return s.Role == RoleAgent }
func (s Session) IsStudent() bool { return s.Role == RoleStudent }

// CanManageStudents reports whether the session may create or edit other people's profiles.
func (s Session) CanManageStudents() bool {
	return RolePriority(s.Role) >= RolePriority(RoleAgent)
}
