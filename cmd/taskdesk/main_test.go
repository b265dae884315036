package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk"
	"github.com/dmitrymomot/taskdesk/internal/apitest"
	"github.com/dmitrymomot/taskdesk/pkg/form"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/storage"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

type harness struct {
	srv     *apitest.Server
	backend *storage.MemoryStorage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{srv: apitest.New(t), backend: storage.NewMemoryStorage()}
}

// run executes one command with input as the typed answers.
func (h *harness) run(input string, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	c := &cli{
		prompt: newPrompter(strings.NewReader(input), &out),
		out:    &out,
		errOut: &errOut,
		opts: []taskdesk.Option{
			taskdesk.WithStorage(h.backend),
			taskdesk.WithLogger(logger.Discard()),
		},
	}
	root := c.rootCmd()
	root.SetArgs(append([]string{"--api", h.srv.APIURL()}, args...))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) signIn(t *testing.T, role session.Role) {
	t.Helper()
	require.NoError(t, session.NewStore(h.backend).Save(context.Background(), &session.Session{
		UserID: "u1", Name: "Ada", Email: "ada@example.com", Role: role, Token: "tok",
	}))
}

func TestLoginCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]string{
		"_id": "u1", "name": "Ada", "email": "ada@example.com", "role": "client", "token": "tok",
	}))

	out, _, err := h.run("ada@example.com\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada <ada@example.com> (client)")
	assert.Contains(t, out, "Home: /dashboard/client")

	var body map[string]string
	require.NoError(t, h.srv.CallsTo(http.MethodPost, authapi.PathLogin)[0].Decode(&body))
	assert.Equal(t, "ada@example.com", body["email"])

	out, _, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Role:  client")
}

func TestLoginCommandInvalidInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, errOut, err := h.run("", "login", "--email", "not-an-email", "--password", "x")
	require.ErrorIs(t, err, form.ErrInvalid)
	assert.Contains(t, errOut, "email: Please enter a valid email address")
	assert.Empty(t, h.srv.Calls())
}

func TestLoginCommandRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"}))

	_, errOut, err := h.run("", "login", "--email", "ada@example.com", "--password", "wrong")
	require.ErrorIs(t, err, gateway.ErrLoginRejected)
	assert.Contains(t, errOut, "Invalid credentials")
	assert.NotContains(t, errOut, "! ", "rejection is shown inline only")
}

func TestLoginCommandWithMFA(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]any{"mfaRequired": true, "userId": "u1"}))
	h.srv.Handle(http.MethodPost, authapi.PathVerifyMFA, apitest.Sequence(
		apitest.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid code"}),
		apitest.JSON(http.StatusOK, map[string]string{"_id": "u1", "email": "ada@example.com", "role": "admin", "token": "t"}),
	))

	input := strings.Join([]string{"12", "111111", "backup", "abcd1234"}, "\n") + "\n"
	out, errOut, err := h.run(input, "login", "--email", "ada@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Two-factor authentication is enabled")
	assert.Contains(t, errOut, "Enter all 6 characters.")
	assert.Contains(t, errOut, "Invalid code")
	assert.Contains(t, out, "Home: /dashboard/admin")

	var body map[string]any
	calls := h.srv.CallsTo(http.MethodPost, authapi.PathVerifyMFA)
	require.Len(t, calls, 2)
	require.NoError(t, calls[1].Decode(&body))
	assert.Equal(t, true, body["isBackupCode"])
	assert.Equal(t, "abcd1234", body["token"])
}

func TestLoginCommandBackOut(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]any{"mfaRequired": true, "userId": "u1"}))

	_, _, err := h.run("back\n", "login", "--email", "ada@example.com", "--password", "secret")
	assert.ErrorIs(t, err, errCancelled)
}

func TestRegisterCommandWithVerification(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.Handle(http.MethodPost, authapi.PathRegister, apitest.JSON(http.StatusCreated, map[string]any{
		"requiresVerification": true, "email": "dev@example.com", "userId": "u2",
	}))
	h.srv.Handle(http.MethodPost, authapi.PathVerifyOTP, apitest.JSON(http.StatusOK, map[string]string{
		"_id": "u2", "name": "Dev", "email": "dev@example.com", "role": "developer", "token": "t",
	}))

	input := strings.Join([]string{
		"Dev",
		"dev@example.com",
		"weak",
		"Str0ng!Passw0rd",
		"Str0ng!Passw0rd",
		"developer",
		"",
		"resend",
		"48",
		"482913",
	}, "\n") + "\n"
	out, errOut, err := h.run(input, "register")
	require.NoError(t, err)

	assert.Contains(t, errOut, "Password must be at least")
	assert.Contains(t, out, "We sent a 6-digit code to dev@example.com.")
	assert.Contains(t, errOut, "You can request a new code in")
	assert.Contains(t, errOut, "Enter all 6 digits.")
	assert.Contains(t, out, "Home: /dashboard/developer")
	assert.Empty(t, h.srv.CallsTo(http.MethodPost, authapi.PathResendOTP))

	var reg map[string]string
	require.NoError(t, h.srv.CallsTo(http.MethodPost, authapi.PathRegister)[0].Decode(&reg))
	assert.Equal(t, "developer", reg["role"])
	_, hasPhone := reg["phone"]
	assert.False(t, hasPhone)
}

func TestRegisterCommandRejectsPresetRole(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, _, err := h.run("Dev\ndev@example.com\nStr0ng!Passw0rd\nStr0ng!Passw0rd\n", "register", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--role: Role must be client or developer")
}

func TestWhoamiAndLogout(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, _, err := h.run("", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
	assert.Contains(t, out, "Not signed in")

	h.signIn(t, session.RoleDeveloper)
	out, _, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "User:  Ada <ada@example.com>")
	assert.Contains(t, out, "Home:  /dashboard/developer")

	out, _, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")
	_, err = session.NewStore(h.backend).Load(context.Background())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestPasswordCommands(t *testing.T) {
	t.Parallel()

	t.Run("forgot", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.srv.Handle(http.MethodPost, authapi.PathForgotPassword, apitest.JSON(http.StatusOK, map[string]string{"message": "Reset link sent"}))

		out, _, err := h.run("", "password", "forgot", "--email", "Ada@Example.com")
		require.NoError(t, err)
		assert.Contains(t, out, "Reset link sent")
	})

	t.Run("change with expired session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.signIn(t, session.RoleClient)
		h.srv.Handle(http.MethodPut, authapi.PathChangePassword, apitest.JSON(http.StatusUnauthorized, map[string]string{"message": "jwt expired"}))

		_, errOut, err := h.run("old\nN3w!Passw0rd\nN3w!Passw0rd\n", "password", "change")
		require.ErrorIs(t, err, gateway.ErrUnauthorized)
		assert.Contains(t, errOut, "! "+gateway.MsgSessionExpired)
		assert.Contains(t, errOut, "-> /auth/login")
	})

	t.Run("reset re-prompts on mismatch", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.srv.Handle(http.MethodPut, authapi.PathResetPassword+"/{token}", apitest.JSON(http.StatusOK, map[string]string{}))

		input := "N3w!Passw0rd\nother\nN3w!Passw0rd\nN3w!Passw0rd\n"
		out, errOut, err := h.run(input, "password", "reset", "tok123")
		require.NoError(t, err)
		assert.Contains(t, errOut, "Passwords do not match")
		assert.Contains(t, out, "Password reset. You can log in now.")
	})
}

func TestMFADisableCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, session.RoleClient)
	h.srv.Handle(http.MethodPost, authapi.PathDisableMFA, apitest.JSON(http.StatusOK, map[string]string{"message": "MFA disabled"}))

	out, _, err := h.run("secret\n", "mfa", "disable", "--code", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "MFA disabled")

	var body map[string]string
	require.NoError(t, h.srv.CallsTo(http.MethodPost, authapi.PathDisableMFA)[0].Decode(&body))
	assert.Equal(t, map[string]string{"password": "secret", "token": "123456"}, body)
	assert.Equal(t, "Bearer tok", h.srv.CallsTo(http.MethodPost, authapi.PathDisableMFA)[0].Header.Get("Authorization"))
}

func TestCommandsWarmCSRFToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, _, err := h.run("", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
	assert.Equal(t, 1, h.srv.CSRFFetches())
}

func TestDoctorCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, _, err := h.run("", "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "api")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "CSRF token: cached")

	h.srv.FailTokenEndpoint(true)
	out, _, err = h.run("", "doctor")
	require.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, out, "FAIL")
}

func TestRunChecks(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	checks := map[string]taskdesk.Check{
		"redis": func(context.Context) error { return boom },
		"api":   func(context.Context) error { return nil },
	}

	results := runChecks(context.Background(), checks, time.Second)
	require.Len(t, results, 2)
	assert.Equal(t, "api", results[0].name)
	assert.NoError(t, results[0].err)
	assert.Equal(t, "redis", results[1].name)
	assert.ErrorIs(t, results[1].err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results = runChecks(ctx, checks, time.Second)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEmpty(t, r.name)
		assert.ErrorIs(t, r.err, context.Canceled)
	}
}
