package handler_test

import (
	"context"
	"io"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/handler"
	"github.com/noah-isme/warta-go-api/internal/service"
)

type mockMagicLinkService struct {
	requestErr  error
	completeErr error
	response    dto.MagicLinkCompleteResponse
	lastEmail   string
	lastToken   string
}

func (m *mockMagicLinkService) RequestLink(_ context.Context, email string, _ dto.RequestMeta) error {
	m.lastEmail = email
	return m.requestErr
}

func (m *mockMagicLinkService) CompleteLink(_ context.Context, sessionToken string, _ dto.RequestMeta) (dto.MagicLinkCompleteResponse, error) {
	m.lastToken = sessionToken
	if m.completeErr != nil {
		return dto.MagicLinkCompleteResponse{}, m.completeErr
	}
	return m.response, nil
}

func (m *mockMagicLinkService) VerifyMagicLinkUser(_ context.Context, email, _ string) (dto.UserResponse, error) {
	if email == "budi@warta.sch.id" {
		return dto.UserResponse{ID: 3, Email: email, Role: "student", Active: true}, nil
	}
	return dto.UserResponse{}, service.ErrUserNotFound
}

func magicLinkApp(svc service.MagicLinkService) *fiber.App {
	app := fiber.New()
	handler.NewMagicLinkHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/auth/magic-link"))
	return app
}

func TestMagicLinkHandler_RequestSuccess(t *testing.T) {
	svc := &mockMagicLinkService{}
	app := magicLinkApp(svc)

	resp := postJSON(t, app, "/api/v1/auth/magic-link/request", dto.MagicLinkRequest{Email: "budi@warta.sch.id"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "budi@warta.sch.id", svc.lastEmail)
}

func TestMagicLinkHandler_RequestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing email", service.ErrMissingCredentials, fiber.StatusBadRequest},
		{"unknown user", service.ErrUserNotFound, fiber.StatusNotFound},
		{"inactive account", service.ErrInactiveAccount, fiber.StatusForbidden},
		{"staff on reader surface", service.ErrUnauthorizedRole, fiber.StatusForbidden},
		{"provider down", service.ErrAuthenticationFailed, fiber.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := magicLinkApp(&mockMagicLinkService{requestErr: tc.err})
			resp := postJSON(t, app, "/api/v1/auth/magic-link/request", dto.MagicLinkRequest{Email: "x@warta.sch.id"})
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestMagicLinkHandler_CompleteSuccess(t *testing.T) {
	svc := &mockMagicLinkService{response: dto.MagicLinkCompleteResponse{
		Token: "session-token",
		User:  dto.UserResponse{ID: 3, Email: "budi@warta.sch.id", Role: "student"},
	}}
	app := magicLinkApp(svc)

	resp := postJSON(t, app, "/api/v1/auth/magic-link/complete", dto.MagicLinkCompleteRequest{SessionToken: "provider-session"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "provider-session", svc.lastToken)

	var response struct {
		Data dto.MagicLinkCompleteResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "session-token", response.Data.Token)
}

func TestMagicLinkHandler_CompleteBurnedLinkCarriesRetryFlag(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"retry permitted", service.ErrLinkRetryable, true},
		{"retry denied", service.ErrLinkNotRetryable, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := magicLinkApp(&mockMagicLinkService{completeErr: tc.err})

			resp := postJSON(t, app, "/api/v1/auth/magic-link/complete", dto.MagicLinkCompleteRequest{SessionToken: "burned"})
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			var response struct {
				Success bool `json:"success"`
				Data    struct {
					Retryable bool `json:"retryable"`
				} `json:"data"`
			}
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.Equal(t, tc.retryable, response.Data.Retryable)
		})
	}
}

func TestMagicLinkHandler_CompleteFailsClosedUniformly(t *testing.T) {
	for _, err := range []error{service.ErrUserNotFound, service.ErrInactiveAccount, service.ErrUnauthorizedRole} {
		app := magicLinkApp(&mockMagicLinkService{completeErr: err})

		resp := postJSON(t, app, "/api/v1/auth/magic-link/complete", dto.MagicLinkCompleteRequest{SessionToken: "orphan"})
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var response struct {
			Message string `json:"message"`
		}
		decodeResponse(t, resp, &response)
		require.Equal(t, "authentication failed", response.Message)
	}
}

func TestMagicLinkHandler_CompleteRequiresToken(t *testing.T) {
	app := magicLinkApp(&mockMagicLinkService{})

	resp := postJSON(t, app, "/api/v1/auth/magic-link/complete", dto.MagicLinkCompleteRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMagicLinkHandler_VerifyUser(t *testing.T) {
	app := magicLinkApp(&mockMagicLinkService{})

	resp := postJSON(t, app, "/api/v1/auth/magic-link/verify-user", dto.VerifyMagicLinkUserRequest{Email: "budi@warta.sch.id", ProviderUserID: "prov-1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/api/v1/auth/magic-link/verify-user", dto.VerifyMagicLinkUserRequest{Email: "ghost@warta.sch.id"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
