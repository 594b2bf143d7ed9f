package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/auth"
)

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_IssuesTokenForUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice", "pw")

	token := env.login(t, " alice ", "pw")

	claims, err := env.tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID() != u.ID || claims.Username != "alice" {
		t.Errorf("claims = %+v, want sub %s / alice", claims, u.ID)
	}
}

func TestLogin_BadCredentialsShareOneMessage(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "pw")
	ctx := context.Background()

	_, wrongPass := env.sessions.Login(ctx, ptr("alice"), ptr("nope"))
	_, unknownUser := env.sessions.Login(ctx, ptr("mallory"), ptr("pw"))

	for _, err := range []error{wrongPass, unknownUser} {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Fatalf("error = %v, want ErrUnauthorized", err)
		}
	}
	if wrongPass.Error() != unknownUser.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPass, unknownUser)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name               string
		username, password *string
	}{
		{"no username", nil, ptr("pw")},
		{"no password", ptr("alice"), nil},
		{"blank username", ptr(" "), ptr("pw")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.sessions.Login(context.Background(), tc.username, tc.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// Verify / Logout TESTS
// =========================================================================

func TestVerify_AcceptThenRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	token := env.login(t, "alice", "pw")

	if _, err := env.sessions.Verify(ctx, token); err != nil {
		t.Fatalf("Verify() before logout error = %v", err)
	}

	if err := env.sessions.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := env.sessions.Verify(ctx, token); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("Verify() after logout error = %v, want ErrTokenRevoked", err)
	}

	// Second logout is a no-op success and does not duplicate the entry.
	if err := env.sessions.Logout(ctx, token); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
	if n, _ := env.db.CountRevoked(ctx); n != 1 {
		t.Errorf("blacklist size = %d, want 1", n)
	}
}

func TestVerify_LogoutIsPerToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	first := env.login(t, "alice", "pw")
	second := env.login(t, "alice", "pw")

	if err := env.sessions.Logout(ctx, first); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := env.sessions.Verify(ctx, second); err != nil {
		t.Errorf("other session rejected: %v", err)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice", "pw")

	token, _, err := env.tokens.IssueWithDuration(u.ID, u.Username, -time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}
	if _, err := env.sessions.Verify(context.Background(), token); !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice", "pw")
	token := env.login(t, "alice", "pw")

	if err := env.users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.sessions.Verify(ctx, token); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestLogout_PersistsEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	token := env.login(t, "alice", "pw")

	if err := env.sessions.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	snap, err := env.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Revoked) != 1 || snap.Revoked[0].Token != token {
		t.Fatalf("persisted blacklist = %+v, want the token", snap.Revoked)
	}
	if snap.Revoked[0].Exp <= snap.Revoked[0].RevokedAt {
		t.Errorf("exp %d should be after revokedAt %d", snap.Revoked[0].Exp, snap.Revoked[0].RevokedAt)
	}
}

func TestLogout_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	token := env.login(t, "alice", "pw")

	env.persist.failing = true
	if err := env.sessions.Logout(ctx, token); !errors.Is(err, errDiskFull) {
		t.Fatalf("Logout() error = %v, want the storage error", err)
	}
	env.persist.failing = false

	// The token was not revoked, so it still works.
	if _, err := env.sessions.Verify(ctx, token); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

// =========================================================================
// SWEEPER TESTS
// =========================================================================

func TestSweepExpired_RemovesOnlyExpiredEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice", "pw")

	short, _, _ := env.tokens.IssueWithDuration(u.ID, u.Username, time.Minute)
	long, _, _ := env.tokens.IssueWithDuration(u.ID, u.Username, 2*time.Hour)
	for _, tok := range []string{short, long} {
		if err := env.sessions.Logout(ctx, tok); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
	}

	removed, err := env.sessions.SweepExpired(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if revoked, _ := env.db.IsRevoked(ctx, long); !revoked {
		t.Error("unexpired entry was swept")
	}

	removed, err = env.sessions.SweepExpired(ctx, time.Now().Add(time.Hour))
	if err != nil || removed != 0 {
		t.Errorf("second sweep = %d, %v; want 0, nil", removed, err)
	}
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.sessions.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not return after cancel")
	}
}

func TestRunSweeper_SweepsOnTick(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice", "pw")

	tok, _, _ := env.tokens.IssueWithDuration(u.ID, u.Username, time.Minute)
	if err := env.sessions.Logout(ctx, tok); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	// Pretend the clock is past the entry's expiry.
	env.sessions.now = func() time.Time { return time.Now().Add(time.Hour) }

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go env.sessions.RunSweeper(runCtx, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := env.db.CountRevoked(ctx); n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("sweeper never removed the expired entry")
}
