package v1

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/controlwise/account-service/internal/core/domain"
)

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*domain.AccountRow

	// failAll makes every method return this error, simulating a storage
	// outage.
	failAll error

	createCalls         int
	updatePasswordCalls int
	deleteCalls         int
	lastLoginCalls      int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[int]*domain.AccountRow)}
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*domain.AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	for _, u := range m.users {
		if u.Username == username {
			row := *u
			return &row, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int) (*domain.AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	row := *u
	return &row, nil
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(_ context.Context, username, passwordHash string, role domain.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failAll != nil {
		return 0, m.failAll
	}
	id := m.nextID
	m.nextID++
	m.users[id] = &domain.AccountRow{ID: id, Username: username, PasswordHash: passwordHash, Role: role}
	return id, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++
	if m.failAll != nil {
		return m.failAll
	}
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.failAll != nil {
		return m.failAll
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLoginCalls++
	return m.failAll
}

type sessionEntry struct {
	userID    int
	expiresAt time.Time
}

type mockSessionRepo struct {
	mu       sync.Mutex
	users    *mockUserRepo
	sessions map[string]sessionEntry

	createCalls int
	deleteCalls int
}

func newMockSessionRepo(users *mockUserRepo) *mockSessionRepo {
	return &mockSessionRepo{users: users, sessions: make(map[string]sessionEntry)}
}

func (m *mockSessionRepo) Create(_ context.Context, userID int, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.sessions[token] = sessionEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.SessionRow, error) {
	m.mu.Lock()
	entry, ok := m.sessions[token]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	// Mirrors the SQL join against the users table.
	user, err := m.users.GetByID(ctx, entry.userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &domain.SessionRow{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: entry.expiresAt,
	}, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	delete(m.sessions, token)
	return nil
}

func newTestService(t *testing.T) (*AuthService, *mockUserRepo, *mockSessionRepo) {
	t.Helper()
	users := newMockUserRepo()
	sessions := newMockSessionRepo(users)
	svc := NewAuthService(users, sessions, NewHasher(bcrypt.MinCost), time.Hour)
	return svc, users, sessions
}

func seedUser(t *testing.T, users *mockUserRepo, username, password string, role domain.Role) int {
	t.Helper()
	hash, err := NewHasher(bcrypt.MinCost).Hash(password)
	if err != nil {
		t.Fatalf("seed hash: %v", err)
	}
	id, err := users.Create(context.Background(), username, hash, role)
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	return id
}

func TestLoginSuccess(t *testing.T) {
	svc, users, sessions := newTestService(t)
	id := seedUser(t, users, "alice", "hunter2", domain.RoleUser)

	resp, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if resp.Token == "" {
		t.Error("Login returned empty token")
	}
	if resp.User.ID != id || resp.User.Username != "alice" || resp.User.Role != domain.RoleUser {
		t.Errorf("Login user = %+v", resp.User)
	}
	if sessions.createCalls != 1 {
		t.Errorf("session create calls = %d, want 1", sessions.createCalls)
	}
	if users.lastLoginCalls != 1 {
		t.Errorf("last_login calls = %d, want 1", users.lastLoginCalls)
	}

	user, err := svc.GetUserByToken(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("GetUserByToken returned error: %v", err)
	}
	if user.ID != id {
		t.Errorf("resolved identity id = %d, want %d", user.ID, id)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "alice", "hunter2", domain.RoleUser)

	_, unknownErr := svc.Login(context.Background(), domain.LoginRequest{Username: "mallory", Password: "hunter2"})
	_, wrongPassErr := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "wrong"})

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown username error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongPassErr)
	}

	// The two failures must have the same shape apart from the username,
	// so callers cannot enumerate accounts from the error text.
	normalized := strings.ReplaceAll(unknownErr.Error(), "mallory", "alice")
	if normalized != wrongPassErr.Error() {
		t.Errorf("error shapes differ: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "alice", "hunter2", domain.RoleUser)

	resp, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := svc.Logout(context.Background(), resp.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if _, err := svc.GetUserByToken(context.Background(), resp.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("identity after logout = %v, want ErrUnauthenticated", err)
	}

	// Second logout of the same token still succeeds.
	if err := svc.Logout(context.Background(), resp.Token); err != nil {
		t.Errorf("repeated Logout returned error: %v", err)
	}
}

func TestExpiredSessionFailsClosed(t *testing.T) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo(users)
	// Negative TTL: every session is already expired when issued.
	svc := NewAuthService(users, sessions, NewHasher(bcrypt.MinCost), -time.Minute)
	seedUser(t, users, "alice", "hunter2", domain.RoleUser)

	resp, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if _, err := svc.GetUserByToken(context.Background(), resp.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expired session error = %v, want ErrSessionExpired", err)
	}
}

func TestRegister(t *testing.T) {
	svc, users, _ := newTestService(t)

	user, err := svc.Register(context.Background(), domain.RegisterRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("new account role = %q, want %q", user.Role, domain.RoleUser)
	}

	stored, err := users.GetByID(context.Background(), user.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored account missing: %v", err)
	}
	if stored.PasswordHash == "hunter2" || strings.Contains(stored.PasswordHash, "hunter2") {
		t.Error("password stored in recoverable form")
	}

	_, err = svc.Register(context.Background(), domain.RegisterRequest{Username: "alice", Password: "other"})
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate register error = %v, want ErrUserExists", err)
	}

	_, err = svc.Register(context.Background(), domain.RegisterRequest{Username: "bob", Password: ""})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty password error = %v, want ErrInvalidInput", err)
	}
	_, err = svc.Register(context.Background(), domain.RegisterRequest{Username: "", Password: "secret"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty username error = %v, want ErrInvalidInput", err)
	}
}

func TestUpdatePasswordAuthorization(t *testing.T) {
	svc, users, _ := newTestService(t)
	aliceID := seedUser(t, users, "alice", "hunter2", domain.RoleUser)
	bobID := seedUser(t, users, "bob", "secret", domain.RoleUser)
	adminID := seedUser(t, users, "root", "toor", domain.RoleAdmin)

	alice := Actor{ID: aliceID, Role: domain.RoleUser}
	admin := Actor{ID: adminID, Role: domain.RoleAdmin}

	// Self update is allowed regardless of role, and the new password works.
	if err := svc.UpdatePassword(context.Background(), alice, aliceID, "new-password"); err != nil {
		t.Fatalf("self update returned error: %v", err)
	}
	if _, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "new-password"}); err != nil {
		t.Errorf("login with updated password failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "hunter2"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login with old password = %v, want ErrInvalidCredentials", err)
	}

	// A plain user may not touch another account's password.
	before := users.updatePasswordCalls
	if err := svc.UpdatePassword(context.Background(), alice, bobID, "pwned"); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("cross-account update by user = %v, want ErrForbiddenRole", err)
	}
	if users.updatePasswordCalls != before {
		t.Error("denied update must not reach the repository")
	}

	// An admin may.
	if err := svc.UpdatePassword(context.Background(), admin, bobID, "rotated"); err != nil {
		t.Errorf("cross-account update by admin returned error: %v", err)
	}

	// Authorization runs before the existence check.
	if err := svc.UpdatePassword(context.Background(), alice, 9999, "x"); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("denied update on missing target = %v, want ErrForbiddenRole", err)
	}
	if err := svc.UpdatePassword(context.Background(), admin, 9999, "x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("allowed update on missing target = %v, want ErrUserNotFound", err)
	}

	// Input validation still applies to authorized updates.
	if err := svc.UpdatePassword(context.Background(), alice, aliceID, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty new password = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteUserAuthorization(t *testing.T) {
	svc, users, _ := newTestService(t)
	aliceID := seedUser(t, users, "alice", "hunter2", domain.RoleUser)
	bobID := seedUser(t, users, "bob", "secret", domain.RoleUser)
	adminID := seedUser(t, users, "root", "toor", domain.RoleAdmin)

	alice := Actor{ID: aliceID, Role: domain.RoleUser}
	admin := Actor{ID: adminID, Role: domain.RoleAdmin}

	if err := svc.DeleteUser(context.Background(), alice, bobID); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("delete by non-admin = %v, want ErrForbiddenRole", err)
	}
	if err := svc.DeleteUser(context.Background(), admin, adminID); !errors.Is(err, ErrForbiddenSelf) {
		t.Errorf("admin self-delete = %v, want ErrForbiddenSelf", err)
	}
	if users.deleteCalls != 0 {
		t.Error("denied deletes must not reach the repository")
	}

	if err := svc.DeleteUser(context.Background(), admin, bobID); err != nil {
		t.Fatalf("admin delete returned error: %v", err)
	}
	if row, _ := users.GetByID(context.Background(), bobID); row != nil {
		t.Error("deleted account still present")
	}

	if err := svc.DeleteUser(context.Background(), admin, bobID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("delete of missing target = %v, want ErrUserNotFound", err)
	}
}

func TestRepositoryFailureIsNotAnAuthError(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "alice", "hunter2", domain.RoleUser)
	users.failAll = errors.New("connection refused")

	_, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "hunter2"})
	if err == nil {
		t.Fatal("Login succeeded against a failing repository")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("storage failure must not masquerade as an authentication failure")
	}
}

// End-to-end scenario: register, fail a login, log in, read self, be denied
// a self-delete as a plain user.
func TestRegisterLoginLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, domain.RegisterRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, err := svc.Login(ctx, domain.LoginRequest{Username: "alice", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad login = %v, want ErrInvalidCredentials", err)
	}

	resp, err := svc.Login(ctx, domain.LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	identity, err := svc.GetUserByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("GetUserByToken returned error: %v", err)
	}
	actor := Actor{ID: identity.ID, Role: identity.Role}

	got, err := svc.GetUser(ctx, actor, registered.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if got.Username != "alice" || got.Role != domain.RoleUser {
		t.Errorf("GetUser = %+v", got)
	}

	if err := svc.DeleteUser(ctx, actor, registered.ID); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("self-delete as user = %v, want ErrForbiddenRole", err)
	}
}
