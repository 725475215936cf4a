package cli

import (
	"context"
	"net/url"
	"strings"

	"github.com/msavina/craftmarket/internal/client/authflow"
	"github.com/msavina/craftmarket/internal/client/navctx"
	"github.com/msavina/craftmarket/internal/common"
)

// Login opens the auth surface in sign-in mode and drives it.
func (a *App) Login(ctx context.Context) error {
	a.auth.Open(ctx, authflow.ModeLogin, authflow.OpenOptions{})
	return a.runAuthSurface(ctx)
}

// Signup opens the auth surface in registration mode.
func (a *App) Signup(ctx context.Context) error {
	a.auth.Open(ctx, authflow.ModeSignup, authflow.OpenOptions{})
	return a.runAuthSurface(ctx)
}

// Forgot opens the password-reset request form.
func (a *App) Forgot(ctx context.Context) error {
	a.auth.Open(ctx, authflow.ModeForgot, authflow.OpenOptions{})
	return a.runAuthSurface(ctx)
}

// Reset opens the new-password form. The argument is either the bare
// reset token or the full link from the email; an explicit token wins
// over one embedded in a pasted link.
func (a *App) Reset(ctx context.Context, args []string) error {
	a.auth.Open(ctx, authflow.ModeReset, flowOptions(args))
	return a.runAuthSurface(ctx)
}

// Verify resolves an email-verification token (bare or pasted link).
func (a *App) Verify(ctx context.Context, args []string) error {
	a.auth.Open(ctx, authflow.ModeVerifyEmail, flowOptions(args))
	return a.runAuthSurface(ctx)
}

// flowOptions turns a CLI argument into OpenOptions: a pasted link is
// handed over as a navigation path, a bare token as an explicit token.
func flowOptions(args []string) authflow.OpenOptions {
	if len(args) == 0 {
		return authflow.OpenOptions{}
	}
	arg := args[0]
	if strings.Contains(arg, "/") {
		path := arg
		if u, err := url.Parse(arg); err == nil && u.Path != "" {
			path = u.Path
		}
		return authflow.OpenOptions{Path: path, ReferralCode: navctx.ReferralFromURL(arg)}
	}
	return authflow.OpenOptions{Token: arg}
}

// runAuthSurface renders the machine state and collects mode-appropriate
// fields until the surface closes (success, completion, or cancel).
func (a *App) runAuthSurface(ctx context.Context) error {
	for {
		st := a.auth.State()
		if !st.Open {
			return nil
		}
		if st.ErrorMessage != "" {
			printlnFn("!", st.ErrorMessage)
		}
		if st.SuccessMessage != "" {
			printlnFn(st.SuccessMessage)
		}

		var err error
		switch st.Mode {
		case authflow.ModeLogin:
			err = a.promptLogin(ctx)
		case authflow.ModeSignup:
			err = a.promptSignup(ctx)
		case authflow.ModeForgot:
			err = a.promptForgot(ctx)
		case authflow.ModeReset:
			err = a.promptReset(ctx)
		case authflow.ModeVerifyPending:
			err = a.promptVerifyPending(ctx, st.PendingVerificationEmail)
		case authflow.ModeVerifyEmail:
			err = a.promptVerifyEmail(st.VerifyOutcome)
		default:
			a.auth.Close()
			return nil
		}
		if err != nil {
			a.auth.Close()
			return err
		}
	}
}

func (a *App) promptLogin(ctx context.Context) error {
	printlnFn("Sign in (or type 'signup', 'forgot', 'cancel')")
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(email) {
	case "cancel":
		a.auth.Close()
		return nil
	case "signup":
		a.auth.SwitchMode(authflow.ModeSignup)
		return nil
	case "forgot":
		a.auth.SwitchMode(authflow.ModeForgot)
		return nil
	}
	a.auth.SetEmail(email)

	pw, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	a.auth.SetPassword(string(pw))
	common.WipeByteArray(pw)

	a.auth.Submit(ctx)
	return nil
}

func (a *App) promptSignup(ctx context.Context) error {
	printlnFn("Create an account (or type 'login', 'cancel')")
	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(name) {
	case "cancel":
		a.auth.Close()
		return nil
	case "login":
		a.auth.SwitchMode(authflow.ModeLogin)
		return nil
	}
	a.auth.SetName(name)

	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	a.auth.SetEmail(email)

	pw, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	a.auth.SetPassword(string(pw))
	common.WipeByteArray(pw)

	code, err := GetSimpleText(a.reader, "Referral code (optional)", a.out)
	if err != nil {
		return err
	}
	a.auth.SetReferralCode(code)
	if st := a.auth.State(); st.ReferralCode != "" && !st.ReferralCodeValid {
		printlnFn("Referral code looks invalid; the server will double-check it.")
	}

	a.auth.Submit(ctx)
	return nil
}

func (a *App) promptForgot(ctx context.Context) error {
	printlnFn("Request a password reset (or type 'login', 'cancel')")
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(email) {
	case "cancel":
		a.auth.Close()
		return nil
	case "login":
		a.auth.SwitchMode(authflow.ModeLogin)
		return nil
	}
	a.auth.SetEmail(email)
	a.auth.Submit(ctx)

	if st := a.auth.State(); !st.Open {
		printlnFn("If that address exists, a reset link is on its way.")
	}
	return nil
}

func (a *App) promptReset(ctx context.Context) error {
	printlnFn("Choose a new password (or type 'cancel' as the password to abort)")
	pw, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	if strings.EqualFold(string(pw), "cancel") {
		a.auth.Close()
		return nil
	}
	a.auth.SetPassword(string(pw))
	common.WipeByteArray(pw)

	a.auth.Submit(ctx)

	if st := a.auth.State(); st.SuccessMessage != "" {
		printlnFn(st.SuccessMessage)
		a.auth.SwitchMode(authflow.ModeLogin)
	}
	return nil
}

func (a *App) promptVerifyPending(ctx context.Context, email string) error {
	printlnFn("We sent a verification link to", email)
	choice, err := GetSimpleText(a.reader, "Type 'resend', 'login' or 'cancel'", a.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(choice) {
	case "resend":
		a.auth.Resend(ctx)
	case "login":
		a.auth.SwitchMode(authflow.ModeLogin)
	case "cancel":
		a.auth.Close()
	}
	return nil
}

func (a *App) promptVerifyEmail(outcome authflow.VerifyOutcome) error {
	if outcome == authflow.VerifySuccess {
		printlnFn("Your email is verified. You can sign in now.")
		a.auth.SwitchMode(authflow.ModeLogin)
		return nil
	}
	// verification failed; back to login is the only way forward
	choice, err := GetSimpleText(a.reader, "Type 'login' to go back, or 'cancel'", a.out)
	if err != nil {
		return err
	}
	if strings.EqualFold(choice, "login") {
		a.auth.SwitchMode(authflow.ModeLogin)
		return nil
	}
	a.auth.Close()
	return nil
}
