package agrosdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/agrowcrop/pkg/credstore"
)

// Durable keys for the local session record.
const (
	KeyToken = "agro_token"
	KeyUser  = "agro_user"
)

// CredentialStore persists the local session token and user profile.
type CredentialStore struct {
	kv credstore.Store
}

func NewCredentialStore(kv credstore.Store) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Load returns the persisted record. ok is false when no token is stored.
// A token without a user record yields a nil user; an unreadable user record
// is cleared together with its token.
func (c *CredentialStore) Load(ctx context.Context) (token string, user *UserProfile, ok bool, err error) {
	token, err = c.kv.Get(ctx, KeyToken)
	if errors.Is(err, credstore.ErrNotFound) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("load %s: %w", KeyToken, err)
	}
	if token == "" {
		return "", nil, false, nil
	}

	raw, err := c.kv.Get(ctx, KeyUser)
	switch {
	case errors.Is(err, credstore.ErrNotFound):
		return token, nil, true, nil
	case err != nil:
		return "", nil, false, fmt.Errorf("load %s: %w", KeyUser, err)
	}

	var u *UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		if err := c.Clear(ctx); err != nil {
			return "", nil, false, err
		}
		return "", nil, false, nil
	}
	return token, u, true, nil
}

// Save writes token and user in one step.
func (c *CredentialStore) Save(ctx context.Context, token string, user *UserProfile) error {
	kv := map[string]string{KeyToken: token}

	userJSON := []byte("null")
	if user != nil {
		var err error
		if userJSON, err = json.Marshal(user); err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
	}
	kv[KeyUser] = string(userJSON)

	if err := c.kv.SetMany(ctx, kv); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Clear removes both keys.
func (c *CredentialStore) Clear(ctx context.Context) error {
	if err := c.kv.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) Close() error { return c.kv.Close() }
