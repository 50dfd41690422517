package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RemoteVerifier asks the provider's auth API who owns the token.
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewRemoteVerifier(baseURL, apiKey string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return Identity{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var user remoteUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("%w: failed to decode user: %v", ErrProviderUnavailable, err)
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: provider returned no user", ErrInvalidToken)
	}
	return Identity{ID: id, Email: user.Email}, nil
}
