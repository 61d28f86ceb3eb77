package pending

import (
	"context"
	"errors"
)

const emailForSignIn = "emailForSignIn"

// Tracker holds at most one pending email per profile. A second Put overwrites it.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

func markerKey(profileID string) string {
	return profileID + ":" + emailForSignIn
}

// Put records email as the profile's pending sign-in.
func (t *Tracker) Put(ctx context.Context, profileID, email string) error {
	return t.store.Set(ctx, markerKey(profileID), email)
}

// Peek returns the pending email, or ok=false when the profile has none.
func (t *Tracker) Peek(ctx context.Context, profileID string) (email string, ok bool, err error) {
	v, err := t.store.Get(ctx, markerKey(profileID))
	if err != nil {
		if errors.Is(err, ErrNoValue) {
			return "", false, nil
		}
		return "", false, err
	}
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Clear deletes the profile's marker. Clearing an absent marker is not an error.
func (t *Tracker) Clear(ctx context.Context, profileID string) error {
	return t.store.Remove(ctx, markerKey(profileID))
}
