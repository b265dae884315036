package signin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/otp"
	"github.com/dmitrymomot/taskdesk/pkg/routes"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/statemachine"
	"github.com/dmitrymomot/taskdesk/pkg/validator"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

// MsgUnexpected is shown inline for failures without a better message.
const MsgUnexpected = "Something went wrong. Please try again."

// AuthService is the part of *authapi.Service the flow calls.
type AuthService interface {
	Login(ctx context.Context, c authapi.Credentials) (authapi.LoginResult, error)
	Register(ctx context.Context, r authapi.Registration) (authapi.LoginResult, error)
	VerifyMFA(ctx context.Context, userID, code string, backup bool) (*session.Session, error)
	VerifyOTP(ctx context.Context, email, code string) (*session.Session, error)
	ResendOTP(ctx context.Context, email string) error
}

// SessionSaver persists the established session. *session.Store implements it.
type SessionSaver interface {
	Save(ctx context.Context, s *session.Session) error
}

// Navigator moves the user to a path once a session is established.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

type mfaChallenge struct {
	userID string
	method MFAMethod
	code   *otp.Entry
}

type verification struct {
	email  string
	userID string
	code   *otp.Entry
}

// Flow drives one sign-in attempt at a time through credentials, the
// optional MFA or email verification step, and session establishment.
//
// Every network call remembers the attempt epoch it started in. Leaving a
// step (BackToLogin, Restart) bumps the epoch, so an answer that arrives
// afterwards is dropped with ErrStale instead of changing the new step.
type Flow struct {
	auth     AuthService
	sessions SessionSaver
	nav      Navigator
	routes   routes.Config
	logger   *slog.Logger

	cooldownPeriod time.Duration
	clock          otp.Clock
	onCooldownTick func(int)

	mu       sync.Mutex
	machine  *statemachine.Machine[State, Event]
	epoch    uint64
	mfa      *mfaChallenge
	verify   *verification
	cooldown *otp.Cooldown
	inline   string
	session  *session.Session
	busy     bool
}

type Option func(*Flow)

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithRoutes(r routes.Config) Option {
	return func(f *Flow) { f.routes = r }
}

// WithResendCooldown sets the wait between two verification emails.
func WithResendCooldown(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.cooldownPeriod = d
		}
	}
}

// WithClock drives the resend countdown from c.
func WithClock(c otp.Clock) Option {
	return func(f *Flow) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithCooldownTicks receives the remaining seconds on every countdown tick.
func WithCooldownTicks(fn func(remaining int)) Option {
	return func(f *Flow) { f.onCooldownTick = fn }
}

// New creates a flow in the credentials step.
func New(auth AuthService, sessions SessionSaver, nav Navigator, opts ...Option) *Flow {
	f := &Flow{
		auth:           auth,
		sessions:       sessions,
		nav:            nav,
		routes:         routes.Default(),
		logger:         logger.Discard(),
		cooldownPeriod: otp.DefaultCooldown,
		clock:          otp.RealClock{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.nav == nil {
		f.nav = NavigatorFunc(func(context.Context, string) {})
	}
	f.logger = f.logger.With(logger.Component("signin"))
	f.cooldown = otp.NewCooldown(f.cooldownPeriod,
		otp.WithClock(f.clock),
		otp.WithTickHandler(f.onCooldownTick),
	)
	f.machine = newMachine(func(ctx context.Context, from, to State, event Event) {
		f.logger.DebugContext(ctx, "sign-in step changed",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			logger.Event(string(event)),
		)
	})
	return f
}

// State returns the current step.
func (f *Flow) State() State {
	return f.machine.Current()
}

// begin checks the step and returns the epoch the call belongs to.
func (f *Flow) begin(want State) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur := f.machine.Current(); cur != want {
		return 0, fmt.Errorf("%w: in %s, want %s", ErrWrongStep, cur, want)
	}
	f.busy = true
	return f.epoch, nil
}

// finish locks the flow for applying an answer; it reports false when the
// attempt moved on meanwhile. The caller must unlock.
func (f *Flow) finish(epoch uint64) bool {
	f.mu.Lock()
	if f.epoch != epoch {
		return false
	}
	f.busy = false
	return true
}

// SubmitCredentials logs in with email and password.
func (f *Flow) SubmitCredentials(ctx context.Context, c authapi.Credentials) error {
	epoch, err := f.begin(StateCredentials)
	if err != nil {
		return err
	}
	res, callErr := f.auth.Login(ctx, c)
	return f.applyAuthResult(ctx, epoch, res, callErr, c.Email)
}

// SubmitRegistration creates an account and continues like a login.
func (f *Flow) SubmitRegistration(ctx context.Context, r authapi.Registration) error {
	epoch, err := f.begin(StateCredentials)
	if err != nil {
		return err
	}
	res, callErr := f.auth.Register(ctx, r)
	return f.applyAuthResult(ctx, epoch, res, callErr, r.Email)
}

func (f *Flow) applyAuthResult(ctx context.Context, epoch uint64, res authapi.LoginResult, callErr error, email string) error {
	if !f.finish(epoch) {
		f.mu.Unlock()
		return ErrStale
	}

	if callErr != nil {
		if v, ok := authapi.AsVerificationRequired(callErr); ok {
			err := f.enterVerificationLocked(ctx, v.Email, v.UserID)
			f.mu.Unlock()
			return err
		}
		f.inline = inlineMessage(callErr)
		f.mu.Unlock()
		return callErr
	}

	switch res.Outcome {
	case authapi.OutcomeMFA:
		err := f.enterMFALocked(ctx, res.UserID)
		f.mu.Unlock()
		return err
	case authapi.OutcomeVerifyEmail:
		if res.Email == "" {
			res.Email = email
		}
		err := f.enterVerificationLocked(ctx, res.Email, res.UserID)
		f.mu.Unlock()
		return err
	default:
		return f.establishAndUnlock(ctx, res.Session)
	}
}

func (f *Flow) enterMFALocked(ctx context.Context, userID string) error {
	code, _ := otp.NewEntry(validator.OTPLength, otp.Digits)
	f.mfa = &mfaChallenge{userID: userID, method: MethodOTP, code: code}
	f.inline = ""
	return fire(ctx, f.machine, EventMFARequired)
}

func (f *Flow) enterVerificationLocked(ctx context.Context, email, userID string) error {
	code, _ := otp.NewEntry(validator.OTPLength, otp.Digits)
	f.verify = &verification{email: email, userID: userID, code: code}
	f.inline = ""
	if err := fire(ctx, f.machine, EventVerificationRequired); err != nil {
		return err
	}
	// A code was just sent; the first resend waits the full period.
	f.cooldown.Start()
	return nil
}

// establishAndUnlock stores sess, ends the attempt and navigates to the
// role's home. Called with f.mu held; releases it before navigating.
func (f *Flow) establishAndUnlock(ctx context.Context, sess *session.Session) error {
	if !f.machine.CanFire(ctx, EventAuthenticated, nil) {
		cur := f.machine.Current()
		f.mu.Unlock()
		return fmt.Errorf("%w: session already handled in %s", ErrWrongStep, cur)
	}
	if err := f.sessions.Save(ctx, sess); err != nil {
		f.inline = MsgUnexpected
		f.mu.Unlock()
		return fmt.Errorf("store session: %w", err)
	}
	if err := fire(ctx, f.machine, EventAuthenticated); err != nil {
		f.mu.Unlock()
		return err
	}
	f.cooldown.Stop()
	f.session = sess
	f.mfa, f.verify, f.inline = nil, nil, ""
	home := f.routes.HomeFor(sess.Role)
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "session established",
		logger.UserID(sess.UserID),
		logger.Role(string(sess.Role)),
		slog.String("home", home),
	)
	f.nav.Navigate(ctx, home)
	return nil
}

// ToggleMFAMethod switches between authenticator and backup codes. The
// entered code is discarded because the two grids differ in size.
func (f *Flow) ToggleMFAMethod() (MFAMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mfa == nil || !f.machine.Is(StateMFAChallenge) {
		return "", ErrWrongStep
	}
	if f.mfa.method == MethodOTP {
		f.mfa.method = MethodBackup
		f.mfa.code, _ = otp.NewEntry(validator.BackupCodeLength, otp.Alphanumeric)
	} else {
		f.mfa.method = MethodOTP
		f.mfa.code, _ = otp.NewEntry(validator.OTPLength, otp.Digits)
	}
	f.inline = ""
	return f.mfa.method, nil
}

func (f *Flow) mfaEntry() (*otp.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mfa == nil || !f.machine.Is(StateMFAChallenge) {
		return nil, ErrWrongStep
	}
	return f.mfa.code, nil
}

// EnterMFA types value into cell index of the MFA code and returns the
// cell to focus next.
func (f *Flow) EnterMFA(index int, value string) (int, error) {
	e, err := f.mfaEntry()
	if err != nil {
		return index, err
	}
	return e.Input(index, value)
}

// BackspaceMFA handles backspace on cell index of the MFA code.
func (f *Flow) BackspaceMFA(index int) (int, error) {
	e, err := f.mfaEntry()
	if err != nil {
		return index, err
	}
	return e.Backspace(index)
}

// PasteMFA fills the MFA code from text and reports whether it is complete.
func (f *Flow) PasteMFA(text string) (bool, error) {
	e, err := f.mfaEntry()
	if err != nil {
		return false, err
	}
	return e.Paste(text), nil
}

// SubmitMFA sends the MFA code. A failure stays in the MFA step with an
// inline message.
func (f *Flow) SubmitMFA(ctx context.Context) error {
	epoch, err := f.begin(StateMFAChallenge)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.epoch != epoch || f.mfa == nil {
		f.mu.Unlock()
		return ErrStale
	}
	userID, method, code := f.mfa.userID, f.mfa.method, f.mfa.code
	f.mu.Unlock()

	if !code.Complete() {
		f.finish(epoch)
		f.mu.Unlock()
		return ErrIncompleteCode
	}

	sess, callErr := f.auth.VerifyMFA(ctx, userID, code.Value(), method == MethodBackup)
	if !f.finish(epoch) {
		f.mu.Unlock()
		return ErrStale
	}
	if callErr != nil {
		f.inline = inlineMessage(callErr)
		f.mu.Unlock()
		return callErr
	}
	return f.establishAndUnlock(ctx, sess)
}

// BackToLogin leaves the MFA or verification step, discarding its state.
// Calls still in flight for that step end with ErrStale.
func (f *Flow) BackToLogin(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := fire(ctx, f.machine, EventBackToLogin); err != nil {
		return errors.Join(ErrWrongStep, err)
	}
	f.abandonLocked()
	return nil
}

// Restart begins a new attempt from any step, including after a session was
// established.
func (f *Flow) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.machine.Reset()
	f.abandonLocked()
	f.session = nil
}

func (f *Flow) abandonLocked() {
	f.epoch++
	f.mfa, f.verify, f.inline, f.busy = nil, nil, "", false
	f.cooldown.Stop()
}

func (f *Flow) verifyEntry() (*otp.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verify == nil || !f.machine.Is(StateEmailVerification) {
		return nil, ErrWrongStep
	}
	return f.verify.code, nil
}

// EnterDigit types value into cell index of the emailed code and returns
// the cell to focus next.
func (f *Flow) EnterDigit(index int, value string) (int, error) {
	e, err := f.verifyEntry()
	if err != nil {
		return index, err
	}
	return e.Input(index, value)
}

// Backspace handles backspace on cell index of the emailed code.
func (f *Flow) Backspace(index int) (int, error) {
	e, err := f.verifyEntry()
	if err != nil {
		return index, err
	}
	return e.Backspace(index)
}

// PasteOTP fills the emailed code from text and submits it when all six
// digits are present. submitted reports whether a submission was made.
func (f *Flow) PasteOTP(ctx context.Context, text string) (submitted bool, err error) {
	e, err := f.verifyEntry()
	if err != nil {
		return false, err
	}
	if !e.Paste(text) {
		return false, nil
	}
	return true, f.SubmitOTP(ctx)
}

// ResendOTP requests a new emailed code. While the countdown runs it returns
// ErrResendCooldown without calling the API. On success the countdown
// restarts and the entered code is cleared.
func (f *Flow) ResendOTP(ctx context.Context) error {
	epoch, err := f.begin(StateEmailVerification)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.epoch != epoch || f.verify == nil {
		f.mu.Unlock()
		return ErrStale
	}
	email := f.verify.email
	f.mu.Unlock()

	if f.cooldown.Active() {
		f.finish(epoch)
		f.mu.Unlock()
		return ErrResendCooldown
	}

	callErr := f.auth.ResendOTP(ctx, email)
	if !f.finish(epoch) {
		f.mu.Unlock()
		return ErrStale
	}
	defer f.mu.Unlock()

	if callErr != nil {
		f.inline = inlineMessage(callErr)
		return callErr
	}
	f.cooldown.Start()
	f.verify.code.Clear()
	f.inline = ""
	return nil
}

// SubmitOTP sends the emailed code. A failure keeps the code for correction.
func (f *Flow) SubmitOTP(ctx context.Context) error {
	epoch, err := f.begin(StateEmailVerification)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.epoch != epoch || f.verify == nil {
		f.mu.Unlock()
		return ErrStale
	}
	email, code := f.verify.email, f.verify.code
	f.mu.Unlock()

	if !code.Complete() {
		f.finish(epoch)
		f.mu.Unlock()
		return ErrIncompleteCode
	}

	sess, callErr := f.auth.VerifyOTP(ctx, email, code.Value())
	if !f.finish(epoch) {
		f.mu.Unlock()
		return ErrStale
	}
	if callErr != nil {
		f.inline = inlineMessage(callErr)
		f.mu.Unlock()
		return callErr
	}
	return f.establishAndUnlock(ctx, sess)
}

// inlineMessage picks the text shown next to the form for err.
func inlineMessage(err error) string {
	if apiErr, ok := gateway.AsAPIError(err); ok {
		return apiErr.UserMessage()
	}
	if verrs := validator.ExtractValidationErrors(err); !verrs.IsEmpty() {
		return verrs[0].Message
	}
	return MsgUnexpected
}
