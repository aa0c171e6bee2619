package services

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"text/template"
	"time"

	"loja/internal/models"
	"loja/internal/repositories"
	"loja/pkg/mailer"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	pinLength    = 6
	pinTTL       = 5 * time.Minute
	tokenTTL     = 24 * time.Hour
	mailSubject  = "Seu PIN de acesso"
	mailTemplate = `<h2>PIN de Acesso</h2>
<p>Seu PIN de acesso é: <strong>{{.Pin}}</strong></p>
<p>Este PIN expira em {{.ExpiryMinutes}} minutos.</p>
<p>Se você não solicitou este PIN, ignore este email.</p>
`
)

var pinMailTmpl = template.Must(template.New("pinMail").Parse(mailTemplate))

// AuthService implements PIN-based email authentication: one-time-code
// issuance, expiry, single-use enforcement, lazy user creation and session
// token issuance. PINs are bcrypt-hashed at rest.
type AuthService struct {
	userRepo  repositories.UserRepository
	pinRepo   repositories.PinRepository
	sender    mailer.Sender
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService creates a new AuthService. now is injectable for
// deterministic expiry tests; pass nil for the wall clock.
func NewAuthService(userRepo repositories.UserRepository, pinRepo repositories.PinRepository, sender mailer.Sender, jwtSecret string, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		userRepo:  userRepo,
		pinRepo:   pinRepo,
		sender:    sender,
		jwtSecret: []byte(jwtSecret),
		now:       now,
	}
}

// generatePin returns a uniformly random fixed-width 6-digit code in
// [100000, 999999]: 900000 equally likely values, leading digit never zero.
func generatePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// RequestPin issues a new PIN for the email and dispatches it. Expired rows
// are purged opportunistically first; purge failure is logged, not fatal.
func (s *AuthService) RequestPin(email string) error {
	if err := s.pinRepo.DeleteExpired(s.now()); err != nil {
		log.Printf("Failed to purge expired pins: %v", err)
	}

	pin, err := generatePin()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	record := &models.PinVerification{
		Email:     email,
		PinHash:   string(hash),
		ExpiresAt: s.now().Add(pinTTL),
	}
	if err := s.pinRepo.Create(record); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	body, err := renderPinMail(pin)
	if err != nil {
		return err
	}
	if err := s.sender.Send(email, mailSubject, body); err != nil {
		return fmt.Errorf("failed to dispatch pin email: %w", err)
	}
	return nil
}

func renderPinMail(pin string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Pin           string
		ExpiryMinutes int
	}{Pin: pin, ExpiryMinutes: int(pinTTL.Minutes())}
	if err := pinMailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render pin email: %w", err)
	}
	return buf.String(), nil
}

// VerifyPin consumes a valid PIN for the email and returns a signed session
// token together with the user, creating the user on first login. The most
// recently issued active PIN is matched first; a wrong attempt does not
// invalidate outstanding PINs.
func (s *AuthService) VerifyPin(email, pin string) (string, *models.User, error) {
	candidates, err := s.pinRepo.FindActiveByEmail(email, s.now())
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up pins: %w", err)
	}

	var matched *models.PinVerification
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].PinHash), []byte(pin)) == nil {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return "", nil, ErrInvalidOrExpiredPin
	}

	if err := s.pinRepo.MarkUsed(matched.ID); err != nil {
		// A concurrent verification consumed the row first.
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, ErrInvalidOrExpiredPin
		}
		return "", nil, fmt.Errorf("failed to consume pin: %w", err)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return "", nil, fmt.Errorf("failed to look up user: %w", err)
		}
		user = &models.User{
			Email: email,
			Name:  localPart(email),
			Role:  models.RoleUser,
		}
		if err := s.userRepo.Create(user); err != nil {
			return "", nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// localPart returns the text before the @, used as the default display name
// for lazily created users.
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// IssueToken signs a session token bound to the user, valid for 24 hours.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     now.Add(tokenTTL).Unix(),
		"iat":     now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// GetUser returns a user by id.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
		}
		return nil, err
	}
	return user, nil
}
