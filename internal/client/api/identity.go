package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/msavina/craftmarket/internal/client/models"
)

// IdentityGateway covers the backend identity operations.
//
// Contract:
//   - A non-nil *models.AuthResult is returned whenever the backend
//     produced a structured answer, including rejections (wrong password,
//     unknown account, invalid token). Success=false is not an error.
//   - An error is returned only for transport failures or responses the
//     backend never shaped (5xx without a JSON body, garbage payloads).
//   - Token signing and verification stay on the backend; this client
//     only transports them.
type IdentityGateway interface {
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Signup(ctx context.Context, name, email, password, referralCode string) (*models.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) (*models.AuthResult, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*models.AuthResult, error)
	ResendVerification(ctx context.Context, email string) (*models.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error)
}

type httpIdentityGateway struct {
	c *Client
}

func NewIdentityGateway(c *Client) IdentityGateway {
	return &httpIdentityGateway{c: c}
}

// post runs one identity call. Rejections arrive either as a 2xx with
// success=false or as a 4xx carrying the same JSON body; both map to a
// plain AuthResult.
func (g *httpIdentityGateway) post(ctx context.Context, path string, body any) (*models.AuthResult, error) {
	var res models.AuthResult
	err := g.c.do(ctx, http.MethodPost, path, body, &res)
	if err == nil {
		return &res, nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && len(statusErr.Body) > 0 {
		var rejected models.AuthResult
		if jsonErr := json.Unmarshal(statusErr.Body, &rejected); jsonErr == nil && rejected.Message != "" {
			rejected.Success = false
			return &rejected, nil
		}
	}
	return nil, err
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (g *httpIdentityGateway) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	return g.post(ctx, "/auth/login", loginRequest{Email: email, Password: password})
}

func (g *httpIdentityGateway) Signup(ctx context.Context, name, email, password, referralCode string) (*models.AuthResult, error) {
	return g.post(ctx, "/auth/signup", signupRequest{
		Name:         name,
		Email:        email,
		Password:     password,
		ReferralCode: referralCode,
	})
}

func (g *httpIdentityGateway) RequestPasswordReset(ctx context.Context, email string) (*models.AuthResult, error) {
	return g.post(ctx, "/auth/forgot-password", emailRequest{Email: email})
}

func (g *httpIdentityGateway) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*models.AuthResult, error) {
	return g.post(ctx, "/auth/reset-password", resetRequest{Token: token, NewPassword: newPassword})
}

func (g *httpIdentityGateway) ResendVerification(ctx context.Context, email string) (*models.AuthResult, error) {
	return g.post(ctx, "/auth/resend-verification", emailRequest{Email: email})
}

func (g *httpIdentityGateway) VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error) {
	return g.post(ctx, "/auth/verify-email", tokenRequest{Token: token})
}
