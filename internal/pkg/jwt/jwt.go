package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"

	sseTokenTTL = 5 * time.Minute
)

type Service interface {
	// GenerateAccessToken mints a bearer token for actor. Login flows live
	// outside this service; tooling and tests use it to act as a user.
	GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error)
	GenerateSSEToken(actor user.Actor) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (user.Actor, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpirationTime).Unix()

	claims := actorClaims(actor)
	claims["type"] = TokenTypeAccess
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(actor user.Actor) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(sseTokenTTL).Unix()

	claims := actorClaims(actor)
	claims["type"] = TokenTypeSSE
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns the actor it was
// issued for.
func (j *JWTService) ValidateSSEToken(tokenString string) (user.Actor, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return user.Actor{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.Actor{}, err
	}
	if claims["type"] != TokenTypeSSE {
		return user.Actor{}, jwt.ErrInvalidJWT()
	}

	return ActorFromClaims(claims)
}

// ActorFromClaims reads the caller identity from decoded token claims.
func ActorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return user.Actor{}, fmt.Errorf("%w: user_id", auth.ErrMissingActorClaims)
	}

	roleStr, _ := claims["role"].(string)
	role, ok := user.ParseRole(roleStr)
	if !ok {
		return user.Actor{}, fmt.Errorf("%w: role %q", auth.ErrMissingActorClaims, roleStr)
	}

	// employee_id is null for accounts without an employee record.
	employeeID, _ := claims["employee_id"].(string)

	return user.Actor{
		UserID:     userID,
		EmployeeID: employeeID,
		Role:       role,
	}, nil
}

func actorClaims(actor user.Actor) map[string]interface{} {
	var employeeID interface{}
	if actor.EmployeeID != "" {
		employeeID = actor.EmployeeID
	}
	return map[string]interface{}{
		"user_id":     actor.UserID,
		"employee_id": employeeID,
		"role":        string(actor.Role),
	}
}
