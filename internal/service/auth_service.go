package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"lcnetwork/internal/config"
	"lcnetwork/internal/featureflags"
	"lcnetwork/internal/middleware"
	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"
	"lcnetwork/internal/repository"
	"lcnetwork/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AccountBannedError is returned by Login for a ban still in force. It
// unwraps to a forbidden AppError.
type AccountBannedError struct {
	Reason string
	Until  *time.Time
}

func (e *AccountBannedError) Error() string {
	return "Your account has been banned"
}

func (e *AccountBannedError) Unwrap() error {
	return models.NewForbiddenError(e.Error())
}

type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	FullName    string
	PhoneNumber string
	Meta        RequestMeta
}

type RegisterResult struct {
	UserID uint
	Email  string
}

// AuthTokens is the credential pair handed out on login and verification.
type AuthTokens struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *models.User `json:"user,omitempty"`
}

type AuthService struct {
	uow      repository.UnitOfWork
	users    repository.UserRepository
	activity *ActivityService
	mailer   Mailer
	flags    *featureflags.Manager
	cfg      *config.Config
	revoke   func(ctx context.Context, jti string, ttl time.Duration) error
	now      func() time.Time
}

func NewAuthService(
	uow repository.UnitOfWork,
	users repository.UserRepository,
	activity *ActivityService,
	mailer Mailer,
	flags *featureflags.Manager,
	cfg *config.Config,
	revoke func(ctx context.Context, jti string, ttl time.Duration) error,
) *AuthService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &AuthService{
		uow:      uow,
		users:    users,
		activity: activity,
		mailer:   mailer,
		flags:    flags,
		cfg:      cfg,
		revoke:   revoke,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)

	for _, f := range []struct{ name, value string }{
		{"email", in.Email}, {"username", in.Username}, {"password", in.Password}, {"full_name", in.FullName},
	} {
		if f.value == "" {
			return nil, models.NewValidationError("Missing required field: " + f.name)
		}
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError("Invalid email format")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	code, err := generateOTP()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now()
	hashed := string(hash)
	user := &models.User{
		Email:         in.Email,
		Username:      in.Username,
		PasswordHash:  &hashed,
		FullName:      in.FullName,
		PhoneNumber:   in.PhoneNumber,
		OAuthProvider: "local",
		AccountStatus: models.AccountStatusActive,
		OTPCode:       code,
		OTPCreatedAt:  &now,
		Roles:         []models.UserRole{{Role: models.RoleUser}},
	}

	err = s.uow.Within(ctx, func(r repository.Repos) error {
		byEmail, err := r.Users.GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if err := s.clearAbandoned(ctx, r.Users, byEmail, now, "Email already registered"); err != nil {
			return err
		}
		byName, err := r.Users.GetByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if byName != nil && (byEmail == nil || byName.ID != byEmail.ID) {
			if err := s.clearAbandoned(ctx, r.Users, byName, now, "Username already taken"); err != nil {
				return err
			}
		}
		return r.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, user.ID, models.ActivityRegister, in.Meta, nil)
	s.deliverOTP(ctx, user, code)

	return &RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// clearAbandoned deletes an unverified account whose code was issued longer
// ago than the abandon window, and rejects the registration otherwise.
func (s *AuthService) clearAbandoned(ctx context.Context, users repository.UserRepository, existing *models.User, now time.Time, msg string) error {
	if existing == nil {
		return nil
	}
	if existing.OTPVerified || existing.OTPCreatedAt == nil {
		return models.NewConflictError(msg)
	}
	if now.Sub(*existing.OTPCreatedAt) <= s.cfg.OTPAbandonAfter() {
		return models.NewConflictError(msg + ". Please verify the code already sent or wait before registering again.")
	}
	slog.InfoContext(ctx, "removing abandoned registration", slog.Uint64("user_id", uint64(existing.ID)))
	return users.Delete(ctx, existing.ID)
}

func (s *AuthService) VerifyOTP(ctx context.Context, userID uint, code string, meta RequestMeta) (*AuthTokens, error) {
	code = strings.TrimSpace(code)
	if userID == 0 || code == "" {
		return nil, models.NewValidationError("User ID and OTP code are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.OTPVerified {
		observability.OTPVerifications.WithLabelValues("already_verified").Inc()
		return nil, models.NewValidationError("OTP already verified. You can login now.")
	}

	now := s.now()
	if user.OTPCreatedAt == nil || now.Sub(*user.OTPCreatedAt) > s.cfg.OTPTTL() {
		if err := s.users.Delete(ctx, user.ID); err != nil {
			return nil, err
		}
		observability.OTPVerifications.WithLabelValues("expired").Inc()
		return nil, models.NewValidationError("OTP has expired. Your registration has been cancelled. Please register again.")
	}

	if validation.ValidateOTP(code) != nil || subtle.ConstantTimeCompare([]byte(user.OTPCode), []byte(code)) != 1 {
		observability.OTPVerifications.WithLabelValues("mismatch").Inc()
		return nil, models.NewValidationError("Invalid OTP code")
	}

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"otp_verified":      true,
		"is_email_verified": true,
		"otp_code":          "",
		"last_login_at":     now,
	}); err != nil {
		return nil, err
	}
	user.OTPVerified = true
	user.IsEmailVerified = true
	user.OTPCode = ""
	user.LastLoginAt = &now
	observability.OTPVerifications.WithLabelValues("verified").Inc()

	s.activity.Record(ctx, user.ID, models.ActivityVerify, meta, nil)
	return s.issuePair(user)
}

func (s *AuthService) ResendOTP(ctx context.Context, userID uint) error {
	if userID == 0 {
		return models.NewValidationError("User ID is required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.OTPVerified {
		return models.NewValidationError("Account already verified")
	}

	code, err := generateOTP()
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"otp_code":       code,
		"otp_created_at": s.now(),
	}); err != nil {
		return err
	}
	s.deliverOTP(ctx, user, code)
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}

	if err := s.checkBan(ctx, user); err != nil {
		return nil, err
	}
	if !user.OTPVerified || !user.IsEmailVerified {
		return nil, models.NewForbiddenError("Please verify your OTP code to activate your account.")
	}

	now := s.now()
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{"last_login_at": now}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	s.activity.Record(ctx, user.ID, models.ActivityLogin, meta, nil)
	return s.issuePair(user)
}

// checkBan reactivates a lapsed temporary ban and rejects an active one.
func (s *AuthService) checkBan(ctx context.Context, user *models.User) error {
	now := s.now()
	if user.BanExpired(now) {
		if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
			"account_status": models.AccountStatusActive,
			"ban_until":      nil,
			"ban_reason":     "",
		}); err != nil {
			return err
		}
		user.AccountStatus = models.AccountStatusActive
		user.BanUntil = nil
		user.BanReason = ""
		return nil
	}
	if user.IsBanned(now) {
		return &AccountBannedError{Reason: user.BanReason, Until: user.BanUntil}
	}
	return nil
}

// Refresh issues a new access token for the subject of a refresh token.
func (s *AuthService) Refresh(ctx context.Context, claims *middleware.TokenClaims) (*AuthTokens, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid refresh token")
	}
	if err := s.checkBan(ctx, user); err != nil {
		return nil, err
	}
	access, _, err := middleware.IssueToken(s.cfg.JWTSecret, user.ID, user.Username, middleware.TokenTypeAccess, s.cfg.AccessTTL())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthTokens{AccessToken: access}, nil
}

// Logout revokes the presented access token, and the session's refresh
// token when one is supplied, until each would have expired. A refresh
// token that is invalid or issued to another user revokes nothing.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.TokenClaims, refreshToken string, meta RequestMeta) error {
	if claims == nil {
		return models.NewUnauthorizedError("Authorization required")
	}
	revoke := []*middleware.TokenClaims{claims}
	if refreshToken != "" {
		refresh, err := middleware.ParseToken(s.cfg.JWTSecret, refreshToken, middleware.TokenTypeRefresh)
		if err != nil || refresh.UserID != claims.UserID {
			return models.NewUnauthorizedError("Invalid refresh token")
		}
		revoke = append(revoke, refresh)
	}
	if s.revoke != nil {
		for _, tc := range revoke {
			if err := s.revoke(ctx, tc.JTI, time.Until(tc.ExpiresAt)); err != nil {
				return models.NewInternalError(err)
			}
		}
	}
	s.activity.Record(ctx, claims.UserID, models.ActivityLogout, meta, nil)
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string, meta RequestMeta) error {
	if current == "" || next == "" {
		return models.NewValidationError("Current and new password are required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(current)) != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}
	if current == next {
		return models.NewValidationError("New password must differ from the current password")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]any{"password_hash": string(hash)}); err != nil {
		return err
	}
	s.activity.Record(ctx, userID, models.ActivityPasswordChange, meta, nil)
	return nil
}

func (s *AuthService) issuePair(user *models.User) (*AuthTokens, error) {
	access, _, err := middleware.IssueToken(s.cfg.JWTSecret, user.ID, user.Username, middleware.TokenTypeAccess, s.cfg.AccessTTL())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, _, err := middleware.IssueToken(s.cfg.JWTSecret, user.ID, user.Username, middleware.TokenTypeRefresh, s.cfg.RefreshTTL())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthTokens{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// deliverOTP sends the code by mail when enabled. Delivery failures are
// logged; the user can ask for a new code.
func (s *AuthService) deliverOTP(ctx context.Context, user *models.User, code string) {
	var mailer Mailer = LogMailer{}
	if s.flags == nil || s.flags.Enabled(featureflags.OTPEmail, user.ID) {
		mailer = s.mailer
	}
	if err := mailer.SendOTP(ctx, user.Email, user.FullName, code, s.cfg.OTPTTL()); err != nil {
		slog.WarnContext(ctx, "failed to deliver otp",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
}

// generateOTP returns a uniformly random code in 100000..999999.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
