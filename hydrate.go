package session

import (
	"context"
)

// hydrateAsync enriches the minimal login payload with the full profile in
// the background. The request is never cancelled once issued; its result is
// only applied if the same user still owns the session when it resolves.
func (s *Store) hydrateAsync(userID int64, token string) {
	s.hydrations.Add(1)
	go func() {
		defer s.hydrations.Done()
		s.hydrate(context.Background(), userID, token)
	}()
}

func (s *Store) hydrate(ctx context.Context, userID int64, token string) {
	profile, err := s.gateway.Profile(ctx, userID, token)
	if err != nil {
		// best-effort: the minimal login-derived record stays untouched
		s.logger.Warn("profile hydration failed", "user_id", userID, "error", err)
		return
	}

	s.mu.Lock()
	if s.user == nil || s.user.ID != userID {
		s.mu.Unlock()
		s.logger.Info("dropping stale hydration result", "user_id", userID)
		return
	}
	merged := MergeProfile(*s.user, *profile)
	s.user = &merged
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	// persisted under the lock: a concurrent Logout clears memory before it
	// deletes the durable record, so it either blocks until this write lands
	// or the ownership check above already saw the cleared user
	s.persistSession(ctx, &merged, "")
	s.mu.Unlock()

	s.notify(subs, snapshot)
	s.emit(ctx, ActivityEventHydrated, userID, nil)
}

// MergeProfile folds a hydrated profile into the session user. Hydrated
// values win; name and email keep the login-derived value when the profile
// omits them, while the apellidos and ubicacion fields are taken verbatim,
// matching how the portal has always reconciled the two payloads.
func MergeProfile(user User, profile Profile) User {
	merged := user

	if profile.FirstName != "" {
		merged.FirstName = profile.FirstName
	}
	if profile.Email != "" {
		merged.Email = profile.Email
	}
	merged.PaternalName = profile.PaternalName
	merged.MaternalName = profile.MaternalName
	merged.Location = profile.Location

	return merged
}
