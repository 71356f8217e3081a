package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// otpTTL is how long a one-time code stays valid.
const otpTTL = 5 * time.Minute

// UserService covers login identity (find-or-create by identifier), OTP
// issuance and verification, and the per-user settings/onboarding profile.
type UserService interface {
	// FindOrCreateUser resolves an identifier (email, phone, or username) to
	// an existing user, creating one with a derived unique username when no
	// match exists.
	FindOrCreateUser(ctx context.Context, identifier string) (*User, error)
	GetUser(ctx context.Context, userID int) (*User, error)

	// CreateOTP stores a fresh 6-digit code for the user and returns it so
	// the caller can dispatch (or dev-echo) it.
	CreateOTP(ctx context.Context, userID int, channel, destination string) (string, error)
	// ValidateOTP consumes the newest matching unexpired, unused code.
	// Returns a ValidationError when no such code exists.
	ValidateOTP(ctx context.Context, userID int, code string) error

	GetSettings(ctx context.Context, userID int) (*UserSettings, error)
	// SaveSettings upserts the profile and marks the user onboarded.
	SaveSettings(ctx context.Context, userID int, displayName, address, phone string) (*UserSettings, error)
	SetLogoPath(ctx context.Context, userID int, logoPath string) error
}

type userService struct {
	pool *pgxpool.Pool
}

func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

// ── Identity resolution ──────────────────────────────────────────────────────

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
var phoneRe = regexp.MustCompile(`^\+?[0-9\-\(\)]{7,}$`)
var usernameStripRe = regexp.MustCompile(`[^a-z0-9_\-\.]`)
var nonDigitRe = regexp.MustCompile(`\D`)

func isEmailIdentifier(v string) bool {
	return emailRe.MatchString(v)
}

func isPhoneIdentifier(v string) bool {
	return phoneRe.MatchString(strings.ReplaceAll(v, " ", ""))
}

// normalizePhone keeps digits and a leading +.
func normalizePhone(v string) string {
	keep := make([]rune, 0, len(v))
	for i, r := range v {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			keep = append(keep, r)
		}
	}
	return string(keep)
}

func (s *userService) FindOrCreateUser(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, validationf("please enter your email, phone, or username")
	}

	switch {
	case isEmailIdentifier(identifier):
		email := strings.ToLower(identifier)
		if u, err := s.lookup(ctx, "email", email); err != nil {
			return nil, err
		} else if u != nil {
			return u, nil
		}
		base, _, _ := strings.Cut(email, "@")
		return s.createUser(ctx, base, &email, nil)

	case isPhoneIdentifier(identifier):
		phone := normalizePhone(identifier)
		if u, err := s.lookup(ctx, "phone", phone); err != nil {
			return nil, err
		} else if u != nil {
			return u, nil
		}
		digits := nonDigitRe.ReplaceAllString(phone, "")
		base := "u" + digits[max(0, len(digits)-6):]
		return s.createUser(ctx, base, nil, &phone)

	default:
		username := strings.ToLower(strings.Join(strings.Fields(identifier), ""))
		if u, err := s.lookup(ctx, "username", username); err != nil {
			return nil, err
		} else if u != nil {
			return u, nil
		}
		return s.createUser(ctx, username, nil, nil)
	}
}

func (s *userService) lookup(ctx context.Context, column, value string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, username, email, phone, onboarded, created_at FROM users WHERE "+column+" = $1 LIMIT 1",
		value,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Onboarded, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by %s: %w", column, err)
	}
	return u, nil
}

func (s *userService) createUser(ctx context.Context, baseUsername string, email, phone *string) (*User, error) {
	base := usernameStripRe.ReplaceAllString(strings.ToLower(baseUsername), "")
	if base == "" {
		base = "user"
	}

	username := base
	for i := 2; ; i++ {
		var one int
		err := s.pool.QueryRow(ctx,
			"SELECT 1 FROM users WHERE username = $1 LIMIT 1", username,
		).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		username = fmt.Sprintf("%s%d", base, i)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	u := &User{}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, email, phone, onboarded)
		VALUES ($1, $2, $3, false)
		RETURNING id, username, email, phone, onboarded, created_at
	`, username, email, phone).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Onboarded, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Seed an empty settings row so the profile upsert is always an UPDATE.
	if _, err = tx.Exec(ctx,
		"INSERT INTO user_settings (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", u.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to seed user settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, userID int) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, username, email, phone, onboarded, created_at FROM users WHERE id = $1",
		userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Onboarded, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", userID)
		}
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	return u, nil
}

// ── OTP ──────────────────────────────────────────────────────────────────────

// generateOTPCode returns a zero-padded 6-digit code from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *userService) CreateOTP(ctx context.Context, userID int, channel, destination string) (string, error) {
	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO otp_codes (user_id, channel, destination, code, expires_at)
		VALUES ($1, $2, $3, $4, NOW() + make_interval(secs => $5))
	`, userID, channel, destination, code, otpTTL.Seconds())
	if err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}
	return code, nil
}

func (s *userService) ValidateOTP(ctx context.Context, userID int, code string) error {
	code = strings.TrimSpace(code)

	var otpID int
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM otp_codes
		WHERE user_id = $1 AND code = $2 AND used_at IS NULL AND expires_at > NOW()
		ORDER BY id DESC
		LIMIT 1
	`, userID, code).Scan(&otpID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return validationf("invalid or expired code")
		}
		return fmt.Errorf("failed to look up OTP: %w", err)
	}

	if _, err = s.pool.Exec(ctx,
		"UPDATE otp_codes SET used_at = NOW() WHERE id = $1", otpID,
	); err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}
	return nil
}

// ── Settings / onboarding ────────────────────────────────────────────────────

func (s *userService) GetSettings(ctx context.Context, userID int) (*UserSettings, error) {
	st := &UserSettings{}
	err := s.pool.QueryRow(ctx,
		"SELECT user_id, display_name, address, phone, logo_path FROM user_settings WHERE user_id = $1",
		userID,
	).Scan(&st.UserID, &st.DisplayName, &st.Address, &st.Phone, &st.LogoPath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &UserSettings{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to fetch settings for user %d: %w", userID, err)
	}
	return st, nil
}

func (s *userService) SaveSettings(ctx context.Context, userID int, displayName, address, phone string) (*UserSettings, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, validationf("display name is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	st := &UserSettings{}
	err = tx.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, display_name, address, phone, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET display_name = $2, address = $3, phone = $4, updated_at = NOW()
		RETURNING user_id, display_name, address, phone, logo_path
	`, userID, displayName, address, phone).Scan(
		&st.UserID, &st.DisplayName, &st.Address, &st.Phone, &st.LogoPath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	// First completed save finishes onboarding.
	if _, err = tx.Exec(ctx,
		"UPDATE users SET onboarded = true WHERE id = $1", userID,
	); err != nil {
		return nil, fmt.Errorf("failed to mark user onboarded: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settings: %w", err)
	}
	return st, nil
}

func (s *userService) SetLogoPath(ctx context.Context, userID int, logoPath string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, logo_path, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET logo_path = $2, updated_at = NOW()
	`, userID, logoPath)
	if err != nil {
		return fmt.Errorf("failed to save logo path: %w", err)
	}
	return nil
}
