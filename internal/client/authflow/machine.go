// Package authflow implements the authentication surface as an explicit
// state machine: one surface, six modes, a shared field set, and a
// dispatch table keyed on the mode. The machine owns the auth-flow state,
// resolves submissions through the identity gateway, and is the only
// component that writes the session.
package authflow

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/msavina/craftmarket/internal/client/api"
	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/client/navctx"
	"github.com/msavina/craftmarket/internal/client/session"
	"github.com/msavina/craftmarket/internal/logging"
)

// Mode is the active face of the authentication surface.
type Mode string

const (
	ModeLogin         Mode = "login"
	ModeSignup        Mode = "signup"
	ModeForgot        Mode = "forgot"
	ModeReset         Mode = "reset"
	ModeVerifyPending Mode = "verify-pending"
	ModeVerifyEmail   Mode = "verify-email"
)

// VerifyOutcome is the resolution of a verify-email attempt.
type VerifyOutcome string

const (
	VerifyNone    VerifyOutcome = ""
	VerifySuccess VerifyOutcome = "success"
	VerifyError   VerifyOutcome = "error"
)

// MinPasswordLength applies to signup and password-reset submissions,
// checked before any backend call.
const MinPasswordLength = 6

var referralPattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// State is a snapshot of the auth surface, handed to the UI for
// rendering. Field values are transient: they reset every time the
// surface opens.
type State struct {
	Open                     bool
	Mode                     Mode
	EmailInput               string
	NameInput                string
	PasswordInput            string
	PendingVerificationEmail string
	ErrorMessage             string
	SuccessMessage           string
	ReferralCode             string
	ReferralCodeValid        bool
	IsSubmitting             bool
	VerifyOutcome            VerifyOutcome
}

// OpenOptions carries inputs arriving from the navigation context.
type OpenOptions struct {
	// Token is an explicitly supplied reset/verification token. It takes
	// precedence over a token embedded in Path.
	Token string
	// Path is the current navigation path, scanned for an embedded token.
	Path string
	// ReferralCode is a code that arrived via an external link. It is
	// the one field that survives the open-time reset.
	ReferralCode string
}

// Machine drives the auth flow. All exported methods are safe for
// concurrent use; callbacks and gateway calls run outside the lock.
type Machine struct {
	identity api.IdentityGateway
	session  *session.Session
	log      logging.Logger

	// Delays for the timed transitions. Tests shorten them.
	ErrorClearDelay     time.Duration // error message auto-clear
	VerifyRedirectDelay time.Duration // verify-email success -> login
	ResetRedirectDelay  time.Duration // reset success -> login

	// afterFunc schedules a delayed transition; a test seam over
	// time.AfterFunc.
	afterFunc func(d time.Duration, fn func())

	mu        sync.Mutex
	st        State
	flowToken string // reset or verification token for the open surface
	epoch     int    // bumped on open/close/switch; stale async results check it
	onSuccess []func(context.Context, *models.UserIdentity)
	onDismiss []func()
}

func New(identity api.IdentityGateway, sess *session.Session, log logging.Logger) *Machine {
	return &Machine{
		identity:            identity,
		session:             sess,
		log:                 log.With("component", "authflow"),
		ErrorClearDelay:     5 * time.Second,
		VerifyRedirectDelay: 2 * time.Second,
		ResetRedirectDelay:  2 * time.Second,
		afterFunc:           func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// OnSuccess registers a callback fired exactly once per successful
// login/signup resolution, after the session is set and the surface is
// closed. Callbacks run in registration order.
func (m *Machine) OnSuccess(fn func(context.Context, *models.UserIdentity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSuccess = append(m.onSuccess, fn)
}

// OnDismiss registers a callback fired when the surface closes without a
// successful authentication.
func (m *Machine) OnDismiss(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDismiss = append(m.onDismiss, fn)
}

// State returns a snapshot for rendering.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

// Open activates the surface in the given mode. All transient fields are
// reset; a referral code arriving via opts survives into the signup form.
// For verify-email the verification call is issued immediately, provided
// a token is present.
func (m *Machine) Open(ctx context.Context, mode Mode, opts OpenOptions) {
	m.mu.Lock()
	m.epoch++
	m.st = State{Open: true, Mode: mode}
	m.flowToken = navctx.ResolveToken(opts.Token, opts.Path)
	if opts.ReferralCode != "" {
		m.setReferralLocked(opts.ReferralCode)
	}

	switch mode {
	case ModeReset:
		if m.flowToken == "" {
			m.st.ErrorMessage = "This reset link is invalid or has expired. Please request a new one."
			m.st.Mode = ModeForgot
		}
		m.mu.Unlock()
	case ModeVerifyEmail:
		if m.flowToken == "" {
			m.st.VerifyOutcome = VerifyError
			m.st.ErrorMessage = "No verification token found. Please use the link from your email."
			m.mu.Unlock()
			return
		}
		token := m.flowToken
		epoch := m.epoch
		m.mu.Unlock()
		m.runVerify(ctx, token, epoch)
	default:
		m.mu.Unlock()
	}
}

// Close dismisses the surface. If no authentication succeeded while it
// was open, dismiss callbacks fire (the gate uses this to discard its
// pending action).
func (m *Machine) Close() {
	m.mu.Lock()
	wasOpen := m.st.Open
	m.epoch++
	m.st = State{}
	m.flowToken = ""
	dismiss := append([]func(){}, m.onDismiss...)
	m.mu.Unlock()

	if !wasOpen {
		return
	}
	for _, fn := range dismiss {
		fn()
	}
}

// SwitchMode moves the open surface to another mode, clearing messages
// and the in-flight flags but keeping typed field values.
func (m *Machine) SwitchMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.st.Open || m.st.Mode == mode {
		return
	}
	m.epoch++
	m.st.Mode = mode
	m.st.ErrorMessage = ""
	m.st.SuccessMessage = ""
	m.st.IsSubmitting = false
	m.st.VerifyOutcome = VerifyNone
}

func (m *Machine) SetEmail(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.EmailInput = strings.TrimSpace(v)
}

func (m *Machine) SetName(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.NameInput = strings.TrimSpace(v)
}

func (m *Machine) SetPassword(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.PasswordInput = v
}

// SetReferralCode normalizes the code to upper case and re-validates it.
// The validity flag is advisory UX only: submission passes the code
// through regardless, the backend is the authority.
func (m *Machine) SetReferralCode(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setReferralLocked(v)
}

func (m *Machine) setReferralLocked(v string) {
	code := strings.ToUpper(strings.TrimSpace(v))
	m.st.ReferralCode = code
	m.st.ReferralCodeValid = referralPattern.MatchString(code)
}

// submitByMode is the dispatch table for Submit. Verify modes have no
// submission: verify-email resolves on open, verify-pending only reacts
// to Resend.
var submitByMode = map[Mode]func(*Machine, context.Context){
	ModeLogin:  (*Machine).submitLogin,
	ModeSignup: (*Machine).submitSignup,
	ModeForgot: (*Machine).submitForgot,
	ModeReset:  (*Machine).submitReset,
}

// Submit validates the current mode's fields and resolves the submission
// through the identity gateway. Validation failures surface inline and
// never issue a backend call. Backend failures surface as a
// human-readable error on the current mode; nothing escapes the machine.
func (m *Machine) Submit(ctx context.Context) {
	m.mu.Lock()
	if !m.st.Open || m.st.IsSubmitting {
		m.mu.Unlock()
		return
	}
	mode := m.st.Mode
	m.mu.Unlock()

	if handler, ok := submitByMode[mode]; ok {
		handler(m, ctx)
	}
}

func (m *Machine) submitLogin(ctx context.Context) {
	m.mu.Lock()
	email := m.st.EmailInput
	password := m.st.PasswordInput
	m.mu.Unlock()

	if email == "" || password == "" {
		m.fail("Please enter your email and password.")
		return
	}

	m.setSubmitting(true)
	res, err := m.identity.Login(ctx, email, password)
	m.setSubmitting(false)

	if err != nil {
		m.log.Warn(ctx, "login request failed", "error", err)
		m.fail("Could not reach the server. Please try again.")
		return
	}
	if !res.Success {
		if res.Unverified || isUnverifiedMessage(res.Message) {
			m.toVerifyPending(email, res.Message)
			return
		}
		m.fail(messageOr(res.Message, "Invalid email or password."))
		return
	}

	m.finishAuthenticated(ctx, res)
}

func (m *Machine) submitSignup(ctx context.Context) {
	m.mu.Lock()
	name := m.st.NameInput
	email := m.st.EmailInput
	password := m.st.PasswordInput
	referral := m.st.ReferralCode
	m.mu.Unlock()

	if name == "" || email == "" {
		m.fail("Please fill in your name and email.")
		return
	}
	if len(password) < MinPasswordLength {
		m.fail("Password must be at least 6 characters.")
		return
	}

	m.setSubmitting(true)
	// the referral code goes through even when the advisory client-side
	// check marked it invalid; the backend adjudicates
	res, err := m.identity.Signup(ctx, name, email, password, referral)
	m.setSubmitting(false)

	if err != nil {
		m.log.Warn(ctx, "signup request failed", "error", err)
		m.fail("Could not reach the server. Please try again.")
		return
	}
	if !res.Success {
		m.fail(messageOr(res.Message, "Could not create your account."))
		return
	}

	m.toVerifyPending(email, messageOr(res.Message, "Check your inbox to verify your email."))
}

func (m *Machine) submitForgot(ctx context.Context) {
	m.mu.Lock()
	email := m.st.EmailInput
	m.mu.Unlock()

	if email == "" {
		m.fail("Please enter your email.")
		return
	}

	m.setSubmitting(true)
	res, err := m.identity.RequestPasswordReset(ctx, email)
	m.setSubmitting(false)

	if err != nil {
		m.log.Warn(ctx, "password reset request failed", "error", err)
		m.fail("Could not reach the server. Please try again.")
		return
	}
	if !res.Success {
		m.fail(messageOr(res.Message, "Could not send the reset email."))
		return
	}

	// the reset email is on its way; the surface is done
	m.Close()
}

func (m *Machine) submitReset(ctx context.Context) {
	m.mu.Lock()
	password := m.st.PasswordInput
	token := m.flowToken
	epoch := m.epoch
	m.mu.Unlock()

	if len(password) < MinPasswordLength {
		m.fail("Password must be at least 6 characters.")
		return
	}
	if token == "" {
		m.fail("This reset link is invalid or has expired. Please request a new one.")
		return
	}

	m.setSubmitting(true)
	res, err := m.identity.ConfirmPasswordReset(ctx, token, password)
	m.setSubmitting(false)

	if err != nil {
		m.log.Warn(ctx, "password reset failed", "error", err)
		m.fail("Could not reach the server. Please try again.")
		return
	}
	if !res.Success {
		m.fail(messageOr(res.Message, "Could not update your password."))
		return
	}

	m.mu.Lock()
	if m.epoch == epoch {
		m.st.SuccessMessage = "Password updated. Redirecting to sign in..."
		m.st.PasswordInput = ""
	}
	m.mu.Unlock()

	m.afterFunc(m.ResetRedirectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || !m.st.Open {
			return
		}
		m.st.Mode = ModeLogin
		m.st.SuccessMessage = ""
	})
}

// Resend re-issues the verification email for the pending address. It
// never fails the flow: outcomes surface as inline messages and the mode
// stays verify-pending.
func (m *Machine) Resend(ctx context.Context) {
	m.mu.Lock()
	if !m.st.Open || m.st.Mode != ModeVerifyPending {
		m.mu.Unlock()
		return
	}
	email := m.st.PendingVerificationEmail
	epoch := m.epoch
	m.mu.Unlock()

	res, err := m.identity.ResendVerification(ctx, email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	switch {
	case err != nil:
		m.log.Warn(ctx, "resend verification failed", "error", err)
		m.st.SuccessMessage = ""
		m.st.ErrorMessage = "Could not resend the email. Please try again."
	case !res.Success:
		m.st.SuccessMessage = ""
		m.st.ErrorMessage = messageOr(res.Message, "Could not resend the email. Please try again.")
	default:
		m.st.ErrorMessage = ""
		m.st.SuccessMessage = messageOr(res.Message, "Verification email sent.")
	}
}

// runVerify resolves a verify-email token. A failure is terminal for the
// attempt: the outcome stays "error" with the backend's message and only
// SwitchMode(ModeLogin) moves on. Success redirects to login after
// VerifyRedirectDelay.
func (m *Machine) runVerify(ctx context.Context, token string, epoch int) {
	res, err := m.identity.VerifyEmail(ctx, token)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}

	if err != nil || !res.Success {
		m.st.VerifyOutcome = VerifyError
		if err != nil {
			m.log.Warn(ctx, "email verification failed", "error", err)
			m.st.ErrorMessage = "Verification failed. Please try again later."
		} else {
			m.st.ErrorMessage = messageOr(res.Message, "Verification failed.")
		}
		m.mu.Unlock()
		return
	}

	m.st.VerifyOutcome = VerifySuccess
	m.st.SuccessMessage = messageOr(res.Message, "Email verified. Redirecting to sign in...")
	m.mu.Unlock()

	m.afterFunc(m.VerifyRedirectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || !m.st.Open {
			return
		}
		m.st.Mode = ModeLogin
		m.st.VerifyOutcome = VerifyNone
		m.st.SuccessMessage = ""
	})
}

// finishAuthenticated installs the session, closes the surface, and
// fires the success callbacks exactly once.
func (m *Machine) finishAuthenticated(ctx context.Context, res *models.AuthResult) {
	m.session.SetAuthenticated(res.Token, res.User)

	user := m.session.User()
	if user == nil {
		// token carried no readable identity; treat as a backend fault
		m.session.Clear()
		m.fail("Sign in failed. Please try again.")
		return
	}

	m.mu.Lock()
	m.epoch++
	m.st = State{}
	m.flowToken = ""
	success := append([]func(context.Context, *models.UserIdentity){}, m.onSuccess...)
	m.mu.Unlock()

	for _, fn := range success {
		fn(ctx, user)
	}
}

func (m *Machine) toVerifyPending(email, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.st.Open {
		return
	}
	m.epoch++
	m.st.Mode = ModeVerifyPending
	m.st.PendingVerificationEmail = email
	m.st.ErrorMessage = ""
	m.st.SuccessMessage = messageOr(message, "Please verify your email to continue.")
}

func (m *Machine) setSubmitting(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.IsSubmitting = v
}

// fail surfaces msg on the current mode and schedules its auto-clear.
func (m *Machine) fail(msg string) {
	m.mu.Lock()
	if !m.st.Open {
		m.mu.Unlock()
		return
	}
	m.st.ErrorMessage = msg
	m.st.SuccessMessage = ""
	epoch := m.epoch
	m.mu.Unlock()

	m.afterFunc(m.ErrorClearDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || m.st.ErrorMessage != msg {
			return
		}
		m.st.ErrorMessage = ""
	})
}

// isUnverifiedMessage recognizes the backend's "account not verified"
// rejection by its message content, for backends that do not set the
// structured flag.
func isUnverifiedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not verified") ||
		strings.Contains(lower, "unverified") ||
		strings.Contains(lower, "verify your email")
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
