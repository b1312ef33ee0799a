package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/warta-go-api/internal/dto"
)

type countingMagicLink struct {
	mu        sync.Mutex
	completed []string
}

func (c *countingMagicLink) RequestLink(ctx context.Context, email string, meta dto.RequestMeta) error {
	return nil
}

func (c *countingMagicLink) CompleteLink(ctx context.Context, sessionToken string, meta dto.RequestMeta) (dto.MagicLinkCompleteResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, sessionToken)
	return dto.MagicLinkCompleteResponse{}, nil
}

func (c *countingMagicLink) VerifyMagicLinkUser(ctx context.Context, email, providerUserID string) (dto.UserResponse, error) {
	return dto.UserResponse{}, nil
}

func (c *countingMagicLink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.completed)
}

func TestListenerStartRequiresConnection(t *testing.T) {
	listener := NewMagicLinkListener(nil, "warta.magiclink.signin", &countingMagicLink{}, testLogger())
	require.Error(t, listener.Start())
}

func TestListenerReconcilesSignInEvents(t *testing.T) {
	svc := &countingMagicLink{}
	listener := NewMagicLinkListener(nil, "warta.magiclink.signin", svc, testLogger())

	listener.handle([]byte(`{"session_token":"tok-1","ip_address":"203.0.113.9"}`))
	require.Equal(t, 1, svc.count())
	require.Equal(t, "tok-1", svc.completed[0])
}

func TestListenerIgnoresMalformedEvents(t *testing.T) {
	svc := &countingMagicLink{}
	listener := NewMagicLinkListener(nil, "warta.magiclink.signin", svc, testLogger())

	listener.handle([]byte(`not-json`))
	listener.handle([]byte(`{"ip_address":"203.0.113.9"}`))
	require.Equal(t, 0, svc.count())
}

func TestListenerDropsEventsAfterClose(t *testing.T) {
	svc := &countingMagicLink{}
	listener := NewMagicLinkListener(nil, "warta.magiclink.signin", svc, testLogger())

	listener.Close()
	listener.handle([]byte(`{"session_token":"tok-late"}`))
	require.Equal(t, 0, svc.count())

	// Close is idempotent.
	listener.Close()
}
