package session

import "context"

// CredentialStore removes the stored credential of a registered account.
type CredentialStore interface {
	DeleteCredential(ctx context.Context, contactID string) error
}

// Credentials couples credential removal with the session signal: when a
// user deletes their own account, the credential goes away and the
// session drops back to unauthenticated.
type Credentials struct {
	store  CredentialStore
	signal *Signal
}

func NewCredentials(store CredentialStore, signal *Signal) *Credentials {
	return &Credentials{store: store, signal: signal}
}

// Remove deletes the credential for contactID and signs the session out
// if that identity is the one currently signed in.
func (c *Credentials) Remove(ctx context.Context, contactID string) error {
	if err := c.store.DeleteCredential(ctx, contactID); err != nil {
		return err
	}
	if id, ok := c.signal.CurrentIdentity(); ok && id == contactID {
		c.signal.Clear()
	}
	return nil
}
