package authapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk/internal/apitest"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/storage"
	"github.com/dmitrymomot/taskdesk/pkg/validator"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

func setup(t *testing.T) (*apitest.Server, *authapi.Service, *session.Store) {
	t.Helper()
	srv := apitest.New(t)
	store := session.NewStore(storage.NewMemoryStorage())
	client := apitest.NewClient(t, srv, store)
	return srv, authapi.New(client, store), store
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("session", func(t *testing.T) {
		srv, svc, _ := setup(t)
		srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]string{
			"_id": "u1", "name": "Ada", "email": "ada@b.com", "role": "client", "token": "t1",
		}))

		res, err := svc.Login(context.Background(), authapi.Credentials{Email: " Ada@B.com ", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, authapi.OutcomeSession, res.Outcome)
		assert.Equal(t, &session.Session{UserID: "u1", Name: "Ada", Email: "ada@b.com", Role: session.RoleClient, Token: "t1"}, res.Session)

		var body authapi.Credentials
		require.NoError(t, srv.CallsTo(http.MethodPost, authapi.PathLogin)[0].Decode(&body))
		assert.Equal(t, "ada@b.com", body.Email)
	})

	t.Run("mfa required", func(t *testing.T) {
		srv, svc, _ := setup(t)
		srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]any{"mfaRequired": true, "userId": "u1"}))

		res, err := svc.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
		require.NoError(t, err)
		assert.Equal(t, authapi.LoginResult{Outcome: authapi.OutcomeMFA, UserID: "u1"}, res)
	})

	t.Run("mfa without user id", func(t *testing.T) {
		srv, svc, _ := setup(t)
		srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]any{"mfaRequired": true}))

		_, err := svc.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
		assert.ErrorIs(t, err, authapi.ErrMissingUserID)
	})

	t.Run("verification required in a success body", func(t *testing.T) {
		srv, svc, _ := setup(t)
		srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]any{"requiresVerification": true, "userId": "u2"}))

		res, err := svc.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
		require.NoError(t, err)
		assert.Equal(t, authapi.LoginResult{Outcome: authapi.OutcomeVerifyEmail, Email: "a@b.com", UserID: "u2"}, res)
	})

	t.Run("verification required in a refusal", func(t *testing.T) {
		srv, svc, _ := setup(t)
		srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusForbidden, map[string]any{
			"message": "Please verify your email", "requiresVerification": true, "email": "a@b.com", "userId": "u2",
		}))

		_, err := svc.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
		v, ok := authapi.AsVerificationRequired(err)
		require.True(t, ok)
		assert.Equal(t, "a@b.com", v.Email)
		assert.Equal(t, "u2", v.UserID)
		assert.ErrorIs(t, err, gateway.ErrForbidden)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		srv, svc, _ := setup(t)
		srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"}))

		_, err := svc.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
		assert.ErrorIs(t, err, gateway.ErrLoginRejected)
		_, ok := authapi.AsVerificationRequired(err)
		assert.False(t, ok)
	})

	t.Run("invalid input never reaches the network", func(t *testing.T) {
		srv, svc, _ := setup(t)
		_, err := svc.Login(context.Background(), authapi.Credentials{Email: "nope", Password: ""})
		require.True(t, validator.IsValidationError(err))
		verrs := validator.ExtractValidationErrors(err)
		assert.True(t, verrs.Has("email"))
		assert.True(t, verrs.Has("password"))
		assert.Empty(t, srv.Calls())
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	srv, svc, _ := setup(t)
	srv.Handle(http.MethodPost, authapi.PathRegister, apitest.JSON(http.StatusCreated, map[string]any{
		"requiresVerification": true, "email": "a@b.com", "userId": "u2",
	}))

	_, err := svc.Register(context.Background(), authapi.Registration{Name: "A", Email: "a@b.com", Password: "short"})
	require.True(t, validator.IsValidationError(err))
	assert.Empty(t, srv.CallsTo(http.MethodPost, authapi.PathRegister))

	res, err := svc.Register(context.Background(), authapi.Registration{
		Name: "A", Email: "a@b.com", Password: "Str0ng!Passw0rd", Role: session.RoleDeveloper,
	})
	require.NoError(t, err)
	assert.Equal(t, authapi.OutcomeVerifyEmail, res.Outcome)
	assert.Equal(t, "a@b.com", res.Email)
	assert.Equal(t, "u2", res.UserID)

	var body map[string]any
	require.NoError(t, srv.CallsTo(http.MethodPost, authapi.PathRegister)[0].Decode(&body))
	assert.Equal(t, "developer", body["role"])
	assert.NotContains(t, body, "phone")
}

func TestVerifyOTP(t *testing.T) {
	t.Parallel()

	srv, svc, _ := setup(t)
	srv.Handle(http.MethodPost, authapi.PathVerifyOTP, apitest.JSON(http.StatusOK, map[string]string{"role": "developer", "token": "t"}))

	_, err := svc.VerifyOTP(context.Background(), "a@b.com", "12345")
	require.True(t, validator.IsValidationError(err))

	sess, err := svc.VerifyOTP(context.Background(), "a@b.com", "482913")
	require.NoError(t, err)
	assert.Equal(t, session.RoleDeveloper, sess.Role)
	assert.Equal(t, "t", sess.Token)

	var body map[string]string
	require.NoError(t, srv.CallsTo(http.MethodPost, authapi.PathVerifyOTP)[0].Decode(&body))
	assert.Equal(t, map[string]string{"email": "a@b.com", "otp": "482913"}, body)
}

func TestVerifyOTPWithoutToken(t *testing.T) {
	t.Parallel()

	srv, svc, _ := setup(t)
	srv.Handle(http.MethodPost, authapi.PathVerifyOTP, apitest.JSON(http.StatusOK, map[string]string{"message": "ok"}))

	_, err := svc.VerifyOTP(context.Background(), "a@b.com", "482913")
	assert.ErrorIs(t, err, authapi.ErrNoSession)
}

func TestVerifyMFA(t *testing.T) {
	t.Parallel()

	srv, svc, _ := setup(t)
	srv.Handle(http.MethodPost, authapi.PathVerifyMFA, apitest.JSON(http.StatusOK, map[string]string{"_id": "u1", "role": "admin", "token": "t"}))

	sess, err := svc.VerifyMFA(context.Background(), "u1", "AB12CD34", true)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAdmin, sess.Role)

	var body map[string]any
	require.NoError(t, srv.CallsTo(http.MethodPost, authapi.PathVerifyMFA)[0].Decode(&body))
	assert.Equal(t, map[string]any{"userId": "u1", "token": "AB12CD34", "isBackupCode": true}, body)

	_, err = svc.VerifyMFA(context.Background(), "u1", "AB12CD34", false)
	assert.True(t, validator.IsValidationError(err), "letters are not an authenticator code")

	_, err = svc.VerifyMFA(context.Background(), "", "123456", false)
	assert.ErrorIs(t, err, authapi.ErrMissingUserID)
}

func TestAccountCalls(t *testing.T) {
	t.Parallel()

	srv, svc, store := setup(t)
	require.NoError(t, store.Save(context.Background(), &session.Session{UserID: "u1", Role: session.RoleClient, Token: "t"}))

	srv.Handle(http.MethodPost, authapi.PathResendOTP, apitest.JSON(http.StatusOK, nil))
	srv.Handle(http.MethodPut, authapi.PathChangePassword, apitest.JSON(http.StatusOK, map[string]string{"message": "Password changed"}))
	srv.Handle(http.MethodPost, authapi.PathDisableMFA, apitest.JSON(http.StatusOK, map[string]string{"message": "MFA disabled"}))
	srv.Handle(http.MethodPost, authapi.PathForgotPassword, apitest.JSON(http.StatusOK, map[string]string{"message": "Email sent"}))
	srv.Handle(http.MethodPut, authapi.PathResetPassword+"/{token}", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]string{"message": "reset " + chi.URLParam(r, "token")})
	})

	ctx := context.Background()
	require.NoError(t, svc.ResendOTP(ctx, "A@b.com"))

	msg, err := svc.ChangePassword(ctx, "old", "N3w!Password12")
	require.NoError(t, err)
	assert.Equal(t, "Password changed", msg)
	assert.Equal(t, "Bearer t", srv.CallsTo(http.MethodPut, authapi.PathChangePassword)[0].Header.Get("Authorization"))

	msg, err = svc.DisableMFA(ctx, authapi.DisableMFA{Password: "pw", Token: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "MFA disabled", msg)

	msg, err = svc.ForgotPassword(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Email sent", msg)

	_, err = svc.ResetPassword(ctx, "abc123", "N3w!Password12")
	require.NoError(t, err)
	assert.Len(t, srv.CallsTo(http.MethodPut, authapi.PathResetPassword+"/abc123"), 1)

	var body map[string]string
	require.NoError(t, srv.CallsTo(http.MethodPost, authapi.PathResendOTP)[0].Decode(&body))
	assert.Equal(t, "a@b.com", body["email"])
}

func TestLogout(t *testing.T) {
	t.Parallel()

	_, svc, store := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &session.Session{Token: "t"}))
	require.NoError(t, svc.Logout(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
