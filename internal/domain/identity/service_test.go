package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

// -- Mock User Repository --

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) find(match func(*User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DeletedAt == nil && match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	return m.find(func(u *User) bool { return u.ID == id })
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u *User) bool { return u.Email == email })
}

func (m *mockUserRepo) GetByPhone(_ context.Context, phone string) (*User, error) {
	return m.find(func(u *User) bool { return u.PhoneNumber == phone })
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id uuid.UUID, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.ResetToken = token
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role string, limit, offset int) ([]*User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*User
	for _, u := range m.users {
		if u.DeletedAt == nil && (role == "" || u.Role == role) {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

// -- Reset notifier double --

type sentReset struct {
	to, link string
}

type recordingNotifier struct {
	sent []sentReset
}

func (n *recordingNotifier) PasswordReset(_ context.Context, to, link string) {
	n.sent = append(n.sent, sentReset{to: to, link: link})
}

type testEnv struct {
	svc      *Service
	repo     *mockUserRepo
	tokens   *auth.TokenManager
	revoked  *auth.MemoryRevocationStore
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     newMockUserRepo(),
		tokens:   auth.NewTokenManager("identity-test-secret", time.Hour, 15*time.Minute),
		revoked:  auth.NewMemoryRevocationStore(),
		notifier: &recordingNotifier{},
	}
	t.Cleanup(env.revoked.Close)
	env.svc = NewService(env.repo, env.tokens, env.revoked, env.notifier, "http://localhost:3000/reset-password/", zerolog.Nop())
	return env
}

func signupReq(email, phone, role string) SignupRequest {
	return SignupRequest{
		Firstname:   "Ada",
		Lastname:    "Obi",
		Email:       email,
		PhoneNumber: phone,
		Password:    "secret123",
		Role:        role,
	}
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperror.KindOf(err); got != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, got, err)
	}
}

// -- Signup --

func TestService_Signup(t *testing.T) {
	env := newTestEnv(t)

	u, err := env.svc.Signup(context.Background(), signupReq("  Ada@Example.com ", "+2348000000001", auth.RolePatient))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if u.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "secret123" || !auth.CheckPassword(u.PasswordHash, "secret123") {
		t.Error("expected bcrypt hash of the password")
	}
	if u.FirstnameOrEmpty() != "Ada" {
		t.Errorf("expected Ada, got %q", u.FirstnameOrEmpty())
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := env.svc.Signup(ctx, signupReq("ADA@example.com", "+2348000000002", auth.RoleDoctor))
	assertKind(t, err, apperror.KindConflict)
	if !strings.Contains(err.Error(), "Email is already in use") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Signup_DuplicatePhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Signup(ctx, signupReq("a@example.com", "+2348000000001", auth.RolePatient)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := env.svc.Signup(ctx, signupReq("b@example.com", "+2348000000001", auth.RolePatient))
	assertKind(t, err, apperror.KindConflict)
	if !strings.Contains(err.Error(), "Phone number is already in use") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Signup_AdminRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Signup(context.Background(), signupReq("a@example.com", "+2348000000001", auth.RoleAdmin))
	assertKind(t, err, apperror.KindBadRequest)
}

func TestService_CreateAdmin(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.svc.CreateAdmin(context.Background(), signupReq("root@example.com", "+2348000000009", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != auth.RoleAdmin {
		t.Errorf("expected admin role, got %q", u.Role)
	}
}

// -- Login / Signout --

func TestService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RoleDoctor))

	res, err := env.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := env.tokens.Parse(res.Token.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Subject != u.ID.String() || claims.Role != auth.RoleDoctor {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestService_Login_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient))

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "ada@example.com", Password: "nope"}},
		{"unknown email", LoginRequest{Email: "nobody@example.com", Password: "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Login(ctx, tt.req)
			assertKind(t, err, apperror.KindUnauthorized)
			if !strings.Contains(err.Error(), "Email or password is incorrect") {
				t.Errorf("unexpected message: %v", err)
			}
		})
	}
}

func TestService_Signout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient, TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	if err := env.svc.Signout(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	revoked, err := env.revoked.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Errorf("expected token to be revoked, got %v %v", revoked, err)
	}

	assertKind(t, env.svc.Signout(ctx, nil), apperror.KindUnauthorized)
}

func TestService_LookupPrincipal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient))

	p, err := env.svc.LookupPrincipal(ctx, u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != u.ID || p.Role != auth.RolePatient || p.Email != "ada@example.com" {
		t.Errorf("unexpected principal: %+v", p)
	}

	env.repo.SoftDelete(ctx, u.ID)
	if _, err := env.svc.LookupPrincipal(ctx, u.ID); err != auth.ErrPrincipalNotFound {
		t.Errorf("expected ErrPrincipalNotFound for deleted user, got %v", err)
	}
}

// -- Password reset --

func TestService_ForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient))

	if err := env.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "ada@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.notifier.sent) != 1 {
		t.Fatalf("expected 1 reset mail, got %d", len(env.notifier.sent))
	}
	sent := env.notifier.sent[0]
	if sent.to != "ada@example.com" {
		t.Errorf("unexpected recipient %q", sent.to)
	}
	prefix := "http://localhost:3000/reset-password/"
	if !strings.HasPrefix(sent.link, prefix) {
		t.Fatalf("unexpected link %q", sent.link)
	}
	token := strings.TrimPrefix(sent.link, prefix)

	if err := env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "newsecret"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := env.repo.GetByID(ctx, u.ID)
	if !auth.CheckPassword(stored.PasswordHash, "newsecret") {
		t.Error("expected password to change")
	}
	if stored.ResetToken != nil {
		t.Error("expected reset token to be cleared")
	}

	// A used token no longer matches the stored one.
	err := env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "again123"})
	assertKind(t, err, apperror.KindBadRequest)
	if !strings.Contains(err.Error(), "Reset token expired. please try again.") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_ForgotPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "nobody@example.com"})
	assertKind(t, err, apperror.KindNotFound)
	if len(env.notifier.sent) != 0 {
		t.Error("expected no mail for unknown email")
	}
}

func TestService_ResetPassword_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "garbage", Password: "newsecret"})
	assertKind(t, err, apperror.KindBadRequest)
	if !strings.Contains(err.Error(), "Reset password link expired.") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_ResetPassword_RejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	tok, _ := env.tokens.Issue(uuid.New(), auth.RolePatient)
	err := env.svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: tok.Token, Password: "newsecret"})
	assertKind(t, err, apperror.KindBadRequest)
}

// -- Profile --

func TestService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient))

	tests := []struct {
		name    string
		req     ChangePasswordRequest
		wantErr bool
	}{
		{"wrong current", ChangePasswordRequest{CurrentPassword: "bad", Password: "newsecret", ConfirmPassword: "newsecret"}, true},
		{"mismatch", ChangePasswordRequest{CurrentPassword: "secret123", Password: "newsecret", ConfirmPassword: "other"}, true},
		{"ok", ChangePasswordRequest{CurrentPassword: "secret123", Password: "newsecret", ConfirmPassword: "newsecret"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.ChangePassword(ctx, u.ID, tt.req)
			if tt.wantErr {
				assertKind(t, err, apperror.KindBadRequest)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	stored, _ := env.repo.GetByID(ctx, u.ID)
	if !auth.CheckPassword(stored.PasswordHash, "newsecret") {
		t.Error("expected new password to be stored")
	}
}

func TestService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient))
	env.svc.Signup(ctx, signupReq("bee@example.com", "+2348000000002", auth.RolePatient))

	req := UpdateProfileRequest{Firstname: "Adaeze", Lastname: "Obi", Age: 31, PhoneNumber: "+2348000000001", Gender: GenderFemale}
	updated, err := env.svc.UpdateProfile(ctx, u.ID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.FirstnameOrEmpty() != "Adaeze" || *updated.Age != 31 || *updated.Gender != GenderFemale {
		t.Errorf("unexpected profile: %+v", updated)
	}

	req.PhoneNumber = "+2348000000002"
	_, err = env.svc.UpdateProfile(ctx, u.ID, req)
	assertKind(t, err, apperror.KindConflict)
}

func TestService_UpdateDoctorProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc, _ := env.svc.Signup(ctx, signupReq("doc@example.com", "+2348000000001", auth.RoleDoctor))
	pat, _ := env.svc.Signup(ctx, signupReq("pat@example.com", "+2348000000002", auth.RolePatient))

	req := UpdateDoctorProfileRequest{
		UpdateProfileRequest: UpdateProfileRequest{Firstname: "Ada", Lastname: "Obi", Age: 45, PhoneNumber: "+2348000000001", Gender: GenderFemale},
		Specialization:       "Cardiology",
		ExperienceYears:      12,
		ClinicAddress:        "1 Marina Rd",
	}
	updated, err := env.svc.UpdateDoctorProfile(ctx, doc.ID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *updated.Specialization != "Cardiology" || *updated.ExperienceYears != 12 {
		t.Errorf("unexpected doctor profile: %+v", updated)
	}

	req.PhoneNumber = "+2348000000002"
	_, err = env.svc.UpdateDoctorProfile(ctx, pat.ID, req)
	assertKind(t, err, apperror.KindForbidden)
}

func TestService_UpdateUserImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.svc.Signup(ctx, signupReq("ada@example.com", "+2348000000001", auth.RolePatient))

	updated, err := env.svc.UpdateUserImage(ctx, u.ID, "https://cdn.example.com/u.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.UserImage == nil || *updated.UserImage != "https://cdn.example.com/u.png" {
		t.Errorf("unexpected image: %v", updated.UserImage)
	}
}

func TestService_GetUser_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.GetUser(context.Background(), uuid.New())
	assertKind(t, err, apperror.KindNotFound)
}
