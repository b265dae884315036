package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/validator"
)

// Doer sends a request through the gateway. *gateway.Client implements it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// SessionClearer removes the persisted session. *session.Store implements it.
type SessionClearer interface {
	Clear(ctx context.Context) error
}

// Service calls the marketplace auth endpoints. It decodes answers but does
// not persist sessions: the sign-in flow decides whether an answer still
// applies before storing it.
type Service struct {
	api      Doer
	sessions SessionClearer
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(api Doer, sessions SessionClearer, opts ...Option) *Service {
	s := &Service{api: api, sessions: sessions, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("authapi"))
	return s
}

// Login submits credentials. A refusal carrying requiresVerification comes
// back as *VerificationRequiredError.
func (s *Service) Login(ctx context.Context, c Credentials) (LoginResult, error) {
	c.Email = normalizeEmail(c.Email)
	if err := validator.Apply(
		validator.ValidEmail("email", c.Email),
		validator.RequiredString("password", c.Password, "Password"),
	); err != nil {
		return LoginResult{}, err
	}
	return s.authenticate(ctx, PathLogin, c, c.Email)
}

// Register creates an account. The server usually asks for email
// verification before the first session.
func (s *Service) Register(ctx context.Context, r Registration) (LoginResult, error) {
	r.Email = normalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	rules := []validator.Rule{
		validator.RequiredString("name", r.Name, "Name"),
		validator.ValidEmail("email", r.Email),
		validator.StrongPassword("password", r.Password),
	}
	if r.Phone != "" {
		rules = append(rules, validator.ValidPhone("phone", r.Phone))
	}
	if err := validator.Apply(rules...); err != nil {
		return LoginResult{}, err
	}
	return s.authenticate(ctx, PathRegister, r, r.Email)
}

func (s *Service) authenticate(ctx context.Context, path string, body any, email string) (LoginResult, error) {
	var resp authResponse
	err := s.api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: body}, &resp)
	if err != nil {
		if v, ok := verificationFromError(err, email); ok {
			return LoginResult{}, v
		}
		return LoginResult{}, err
	}

	switch {
	case resp.MFARequired:
		if resp.UserID == "" {
			return LoginResult{}, ErrMissingUserID
		}
		return LoginResult{Outcome: OutcomeMFA, UserID: resp.UserID}, nil

	case resp.RequiresVerification:
		if resp.Email == "" {
			resp.Email = email
		}
		return LoginResult{Outcome: OutcomeVerifyEmail, Email: resp.Email, UserID: resp.UserID}, nil
	}

	sess := resp.session()
	if err := sess.Validate(); err != nil {
		return LoginResult{}, errors.Join(ErrNoSession, err)
	}
	return LoginResult{Outcome: OutcomeSession, Session: sess}, nil
}

// verificationFromError looks for requiresVerification in the body of a
// refused call.
func verificationFromError(err error, email string) (*VerificationRequiredError, bool) {
	apiErr, ok := gateway.AsAPIError(err)
	if !ok || len(apiErr.Body) == 0 {
		return nil, false
	}
	var body authResponse
	if json.Unmarshal(apiErr.Body, &body) != nil || !body.RequiresVerification {
		return nil, false
	}
	if body.Email == "" {
		body.Email = email
	}
	return &VerificationRequiredError{Email: body.Email, UserID: body.UserID, Err: err}, true
}

// VerifyOTP submits the emailed code and returns the new session.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*session.Session, error) {
	if err := validator.Apply(validator.ValidOTP("otp", code, validator.OTPLength)); err != nil {
		return nil, err
	}
	return s.sessionCall(ctx, PathVerifyOTP, verifyOTPRequest{Email: normalizeEmail(email), OTP: code})
}

// ResendOTP asks for a new emailed code.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	return s.api.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   PathResendOTP,
		Body:   emailRequest{Email: normalizeEmail(email)},
	}, nil)
}

// VerifyMFA completes an MFA challenge with an authenticator code or, when
// backup is true, a backup code.
func (s *Service) VerifyMFA(ctx context.Context, userID, code string, backup bool) (*session.Session, error) {
	rule := validator.ValidOTP("token", code, validator.OTPLength)
	if backup {
		rule = validator.ValidBackupCode("token", code, validator.BackupCodeLength)
	}
	if err := validator.Apply(rule); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.sessionCall(ctx, PathVerifyMFA, verifyMFARequest{UserID: userID, Token: code, IsBackupCode: backup})
}

func (s *Service) sessionCall(ctx context.Context, path string, body any) (*session.Session, error) {
	var resp authResponse
	if err := s.api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: body}, &resp); err != nil {
		return nil, err
	}
	sess := resp.session()
	if err := sess.Validate(); err != nil {
		return nil, errors.Join(ErrNoSession, err)
	}
	return sess, nil
}

// ChangePassword replaces the signed-in user's password.
func (s *Service) ChangePassword(ctx context.Context, current, next string) (string, error) {
	if err := validator.Apply(
		validator.RequiredString("currentPassword", current, "Current password"),
		validator.StrongPassword("newPassword", next),
	); err != nil {
		return "", err
	}
	return s.messageCall(ctx, http.MethodPut, PathChangePassword,
		changePasswordRequest{CurrentPassword: current, NewPassword: next})
}

// DisableMFA turns off the second factor for the signed-in user.
func (s *Service) DisableMFA(ctx context.Context, req DisableMFA) (string, error) {
	if err := validator.Apply(validator.RequiredString("password", req.Password, "Password")); err != nil {
		return "", err
	}
	return s.messageCall(ctx, http.MethodPost, PathDisableMFA, req)
}

// ForgotPassword requests a reset link by email.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return "", err
	}
	return s.messageCall(ctx, http.MethodPost, PathForgotPassword, emailRequest{Email: email})
}

// ResetPassword sets a new password using the token from the reset link.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if err := validator.Apply(
		validator.RequiredString("token", token, "Reset token"),
		validator.StrongPassword("password", password),
	); err != nil {
		return "", err
	}
	return s.messageCall(ctx, http.MethodPut, PathResetPassword+"/"+url.PathEscape(token),
		resetPasswordRequest{Password: password})
}

func (s *Service) messageCall(ctx context.Context, method, path string, body any) (string, error) {
	var resp messageResponse
	if err := s.api.Do(ctx, gateway.Request{Method: method, Path: path, Body: body}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Logout forgets the session locally. The API keeps no server-side session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "signed out")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
