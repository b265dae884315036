package authapi

import (
	"github.com/dmitrymomot/taskdesk/pkg/session"
)

// API paths, relative to the base URL.
const (
	PathRegister       = "/auth/register"
	PathLogin          = "/auth/login"
	PathVerifyOTP      = "/auth/verify-otp"
	PathResendOTP      = "/auth/resend-otp"
	PathVerifyMFA      = "/mfa/verify-login"
	PathChangePassword = "/auth/change-password"
	PathDisableMFA     = "/mfa/disable"
	PathResetPassword  = "/auth/reset-password"
	PathForgotPassword = "/auth/forgot-password"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     session.Role `json:"role,omitempty"`
	Phone    string       `json:"phone,omitempty"`
}

// Outcome is the next step after a login or registration call.
type Outcome string

const (
	// OutcomeSession: the user is signed in.
	OutcomeSession Outcome = "session"
	// OutcomeMFA: a second factor is required for UserID.
	OutcomeMFA Outcome = "mfa"
	// OutcomeVerifyEmail: Email must be verified with an emailed code.
	OutcomeVerifyEmail Outcome = "verify_email"
)

// LoginResult is the decoded answer of login and registration.
type LoginResult struct {
	Outcome Outcome
	Session *session.Session
	UserID  string
	Email   string
}

// authResponse is the union of every shape the auth endpoints answer with.
type authResponse struct {
	ID                   string       `json:"_id"`
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Role                 session.Role `json:"role"`
	Token                string       `json:"token"`
	MFARequired          bool         `json:"mfaRequired"`
	RequiresVerification bool         `json:"requiresVerification"`
	UserID               string       `json:"userId"`
}

func (r authResponse) session() *session.Session {
	return &session.Session{
		UserID: r.ID,
		Name:   r.Name,
		Email:  r.Email,
		Role:   r.Role,
		Token:  r.Token,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyMFARequest struct {
	UserID       string `json:"userId"`
	Token        string `json:"token"`
	IsBackupCode bool   `json:"isBackupCode"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// DisableMFA confirms the account password and, when MFA is active, a
// current code.
type DisableMFA struct {
	Password string `json:"password"`
	Token    string `json:"token,omitempty"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}
