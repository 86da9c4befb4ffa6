package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
	"github.com/identitystore/identity-service/internal/core/validation"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	findErr error
	updates int
	deletes int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]domain.Role(nil), u.Roles...)
	return &c
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.byID[user.ID] = cloneUser(user)
	r.updates++
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubUserRepo) FindAll(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	r.deletes++
	return nil
}

func (r *stubUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

type stubRoleRepo struct {
	mu     sync.Mutex
	byName map[string]domain.Role
}

func newStubRoleRepo(names ...string) *stubRoleRepo {
	r := &stubRoleRepo{byName: make(map[string]domain.Role)}
	for _, n := range names {
		r.byName[n] = domain.Role{Name: n, Description: n + " role"}
	}
	return r
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[role.Name]; ok {
		return domain.ErrRoleExists
	}
	r.byName[role.Name] = *role
	return nil
}

func (r *stubRoleRepo) FindAll(_ context.Context) ([]domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Role, 0, len(r.byName))
	for _, role := range r.byName {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return &role, nil
}

func (r *stubRoleRepo) FindAllByName(_ context.Context, names []string) ([]domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []domain.Role
	for _, n := range names {
		if role, ok := r.byName[n]; ok && !seen[n] {
			seen[n] = true
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *stubRoleRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return domain.ErrRoleNotFound
	}
	delete(r.byName, name)
	return nil
}

func (r *stubRoleRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byName)), nil
}

type stubHasher struct{}

func (stubHasher) Hash(p string) (string, error) { return "$stub$" + strings.ToUpper(p), nil }

func (stubHasher) Verify(p, h string) bool { return h == "$stub$"+strings.ToUpper(p) }

type stubCache struct {
	mu      sync.Mutex
	views   map[string]*ports.UserView
	getErr  error
	removed []string
}

func newStubCache() *stubCache {
	return &stubCache{views: make(map[string]*ports.UserView)}
}

func (c *stubCache) Get(_ context.Context, id string) (*ports.UserView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.views[id]
	return v, ok, nil
}

func (c *stubCache) IDForUsername(_ context.Context, username string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, v := range c.views {
		if v.Username == username {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (c *stubCache) Put(_ context.Context, v *ports.UserView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[v.ID] = v
	return nil
}

func (c *stubCache) Remove(_ context.Context, id, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, id)
	c.removed = append(c.removed, id)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *UserService
	users *stubUserRepo
	roles *stubRoleRepo
	cache *stubCache
}

func newFixture(roleNames ...string) *fixture {
	f := &fixture{
		users: newStubUserRepo(),
		roles: newStubRoleRepo(roleNames...),
		cache: newStubCache(),
	}
	f.svc = NewUserService(f.users, f.roles, stubHasher{}, f.cache, zerolog.Nop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func validInput(username string) ports.CreateUserInput {
	return ports.CreateUserInput{
		Username:  username,
		Password:  "Aa@123456",
		FirstName: "la la",
		LastName:  "lisa",
		DOB:       time.Date(1997, 3, 27, 0, 0, 0, 0, time.UTC),
	}
}

func validUpdate(roles ...string) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		Password:  "Bb@654321",
		FirstName: "Lisa",
		LastName:  "Manoban",
		DOB:       time.Date(1997, 3, 27, 0, 0, 0, 0, time.UTC),
		Roles:     roles,
	}
}

func roleNames(v *ports.UserView) []string {
	out := make([]string, len(v.Roles))
	for i, r := range v.Roles {
		out[i] = r.Name
	}
	sort.Strings(out)
	return out
}

func admin() domain.Principal {
	return domain.Principal{Name: "root", Roles: []string{domain.RoleAdmin}}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserService_CreateUser_Success(t *testing.T) {
	f := newFixture(domain.RoleUser, domain.RoleAdmin)

	for i := 0; i < 5; i++ {
		username := gofakeit.LetterN(10)
		view, err := f.svc.CreateUser(context.Background(), validInput(username))
		if err != nil {
			t.Fatalf("CreateUser returned error: %v", err)
		}
		if !validation.IsIdentifier(view.ID) {
			t.Fatalf("expected canonical uuid id, got %q", view.ID)
		}
		if view.Username != username {
			t.Fatalf("unexpected username: %s", view.Username)
		}
		if got := roleNames(view); len(got) != 1 || got[0] != domain.RoleUser {
			t.Fatalf("expected default USER role, got %v", got)
		}

		stored := f.users.byID[view.ID]
		if stored.PasswordHash == "Aa@123456" || stored.PasswordHash == "" {
			t.Fatalf("expected password to be hashed, got %q", stored.PasswordHash)
		}
		if _, ok := f.cache.views[view.ID]; !ok {
			t.Fatalf("expected created user to be cached")
		}
	}
}

func TestUserService_CreateUser_DefaultRoleMissing(t *testing.T) {
	f := newFixture() // no roles at all

	view, err := f.svc.CreateUser(context.Background(), validInput("lalalisa"))
	if err != nil {
		t.Fatalf("expected silent omission, got %v", err)
	}
	if len(view.Roles) != 0 {
		t.Fatalf("expected no roles, got %v", roleNames(view))
	}
}

func TestUserService_CreateUser_Duplicate(t *testing.T) {
	f := newFixture(domain.RoleUser)

	if _, err := f.svc.CreateUser(context.Background(), validInput("lalalisa")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := f.svc.CreateUser(context.Background(), validInput("lalalisa"))
	if err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict kind")
	}
	if domain.CodeOf(err) != domain.CodeUserExisted {
		t.Fatalf("expected code %d, got %d", domain.CodeUserExisted, domain.CodeOf(err))
	}
}

func TestUserService_CreateUser_ConcurrentSameUsername(t *testing.T) {
	f := newFixture(domain.RoleUser)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateUser(context.Background(), validInput("racer01"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if succeeded != 1 || conflicts != callers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d/%d", callers-1, succeeded, conflicts)
	}
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	f := newFixture(domain.RoleUser)

	cases := map[string]struct {
		mutate func(*ports.CreateUserInput)
		code   int
	}{
		"short username": {func(in *ports.CreateUserInput) { in.Username = "abc" }, domain.CodeUsernameInvalid},
		"short password": {func(in *ports.CreateUserInput) { in.Password = "123" }, domain.CodeInvalidPassword},
		"underage":       {func(in *ports.CreateUserInput) { in.DOB = fixedNow.AddDate(-2, 0, 0) }, domain.CodeInvalidDOB},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput("validname")
			tc.mutate(&in)
			_, err := f.svc.CreateUser(context.Background(), in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if domain.CodeOf(err) != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, domain.CodeOf(err))
			}
		})
	}
	if n, _ := f.users.Count(context.Background()); n != 0 {
		t.Fatalf("expected nothing persisted, got %d users", n)
	}
}

func TestUserService_CreateUserWithRole(t *testing.T) {
	f := newFixture(domain.RoleUser, domain.RoleAdmin)

	view, err := f.svc.CreateUserWithRole(context.Background(), validInput("adminsmart"), domain.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := roleNames(view); len(got) != 1 || got[0] != domain.RoleAdmin {
		t.Fatalf("expected ADMIN role, got %v", got)
	}

	view, err = f.svc.CreateUserWithRole(context.Background(), validInput("ghostrole"), "AUDITOR")
	if err != nil {
		t.Fatalf("unknown role should be omitted silently, got %v", err)
	}
	if len(view.Roles) != 0 {
		t.Fatalf("expected no roles, got %v", roleNames(view))
	}

	if _, err := f.svc.CreateUserWithRole(context.Background(), validInput("adminsmart"), domain.RoleUser); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestUserService_GetMyInfo(t *testing.T) {
	f := newFixture(domain.RoleUser)
	created, _ := f.svc.CreateUser(context.Background(), validInput("lalalisa"))

	view, err := f.svc.GetMyInfo(context.Background(), domain.Principal{Name: "lalalisa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ID != created.ID || view.FirstName != "la la" {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := f.svc.GetMyInfo(context.Background(), domain.Principal{Name: "nobody"}); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.svc.GetMyInfo(context.Background(), domain.Principal{}); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound for anonymous principal, got %v", err)
	}
}

func TestUserService_GetMyInfo_FromStoreWhenNotCached(t *testing.T) {
	f := newFixture(domain.RoleUser)
	created, _ := f.svc.CreateUser(context.Background(), validInput("lalalisa"))
	delete(f.cache.views, created.ID)

	view, err := f.svc.GetMyInfo(context.Background(), domain.Principal{Name: "lalalisa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ID != created.ID {
		t.Fatalf("unexpected id %s", view.ID)
	}
	if _, ok := f.cache.views[created.ID]; !ok {
		t.Fatalf("expected read-through to repopulate cache")
	}
}

func TestUserService_GetUser(t *testing.T) {
	f := newFixture(domain.RoleUser)
	created, _ := f.svc.CreateUser(context.Background(), validInput("lalalisa"))

	// Cache hit: the store is not consulted.
	f.users.findErr = errors.New("store down")
	view, err := f.svc.GetUser(context.Background(), created.ID)
	if err != nil || view.ID != created.ID {
		t.Fatalf("expected cached user, got %+v, %v", view, err)
	}

	// Cache failure falls back to the store.
	f.users.findErr = nil
	f.cache.getErr = errors.New("redis down")
	view, err = f.svc.GetUser(context.Background(), created.ID)
	if err != nil || view.Username != "lalalisa" {
		t.Fatalf("expected store fallback, got %+v, %v", view, err)
	}

	f.cache.getErr = nil
	if _, err := f.svc.GetUser(context.Background(), "0741195e-1774-4cd5-a47c-e99db62d5aa0"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_GetUser_StoreErrorPropagates(t *testing.T) {
	f := newFixture()
	boom := errors.New("connection refused")
	f.users.findErr = boom

	_, err := f.svc.GetUser(context.Background(), "0741195e-1774-4cd5-a47c-e99db62d5aa0")
	if !errors.Is(err, boom) {
		t.Fatalf("expected infrastructure error to propagate, got %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("infrastructure error must stay unclassified")
	}
}

func TestUserService_GetUsers(t *testing.T) {
	f := newFixture(domain.RoleUser)
	_, _ = f.svc.CreateUser(context.Background(), validInput("first1"))
	_, _ = f.svc.CreateUser(context.Background(), validInput("second2"))

	if _, err := f.svc.GetUsers(context.Background(), domain.Principal{Name: "first1", Roles: []string{domain.RoleUser}}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}

	users, err := f.svc.GetUsers(context.Background(), admin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestUserService_CountUsers(t *testing.T) {
	f := newFixture(domain.RoleUser)
	_, _ = f.svc.CreateUser(context.Background(), validInput("first1"))

	n, err := f.svc.CountUsers(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected 1, got %d (%v)", n, err)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUserService_UpdateUser_ReplacesRoles(t *testing.T) {
	f := newFixture("A", "B", "C")
	created, _ := f.svc.CreateUserWithRole(context.Background(), validInput("lalalisa"), "A")
	stored := f.users.byID[created.ID]
	stored.Roles = append(stored.Roles, domain.Role{Name: "B"})
	oldHash := stored.PasswordHash

	owner := domain.Principal{Name: "lalalisa", Roles: []string{"A", "B"}}
	view, err := f.svc.UpdateUser(context.Background(), owner, created.ID, validUpdate("C", "UNKNOWN"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := roleNames(view); len(got) != 1 || got[0] != "C" {
		t.Fatalf("expected roles exactly [C], got %v", got)
	}
	if view.ID != created.ID || view.Username != "lalalisa" {
		t.Fatalf("id/username must not change: %+v", view)
	}
	if view.FirstName != "Lisa" || view.LastName != "Manoban" {
		t.Fatalf("names not updated: %+v", view)
	}

	updated := f.users.byID[created.ID]
	if updated.PasswordHash == oldHash || updated.PasswordHash == "Bb@654321" {
		t.Fatalf("expected password to be re-hashed")
	}
	if cached := f.cache.views[created.ID]; cached == nil || cached.FirstName != "Lisa" {
		t.Fatalf("expected cache write-through")
	}
}

func TestUserService_UpdateUser_ForbiddenBeforeWrite(t *testing.T) {
	f := newFixture(domain.RoleUser)
	victim, _ := f.svc.CreateUser(context.Background(), validInput("victim1"))
	before := cloneUser(f.users.byID[victim.ID])

	intruder := domain.Principal{Name: "intruder", Roles: []string{domain.RoleUser}}
	_, err := f.svc.UpdateUser(context.Background(), intruder, victim.ID, validUpdate(domain.RoleAdmin))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	after := f.users.byID[victim.ID]
	if f.users.updates != 0 || after.PasswordHash != before.PasswordHash || after.FirstName != before.FirstName {
		t.Fatalf("denied update must not write: %+v", after)
	}
}

func TestUserService_UpdateUser_AdminMayUpdateOthers(t *testing.T) {
	f := newFixture(domain.RoleUser, domain.RoleAdmin)
	target, _ := f.svc.CreateUser(context.Background(), validInput("target1"))

	view, err := f.svc.UpdateUser(context.Background(), admin(), target.ID, validUpdate(domain.RoleUser))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Username != "target1" {
		t.Fatalf("unexpected username %s", view.Username)
	}
}

func TestUserService_UpdateUser_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateUser(context.Background(), admin(), "0741195e-1774-4cd5-a47c-e99db62d5aa0", validUpdate())
	if err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UpdateUser_Underage(t *testing.T) {
	f := newFixture(domain.RoleUser)
	created, _ := f.svc.CreateUser(context.Background(), validInput("lalalisa"))

	in := validUpdate()
	in.DOB = fixedNow.AddDate(-2, 0, 0)
	_, err := f.svc.UpdateUser(context.Background(), domain.Principal{Name: "lalalisa"}, created.ID, in)
	if !errors.Is(err, domain.ErrValidation) || domain.CodeOf(err) != domain.CodeInvalidDOB {
		t.Fatalf("expected INVALID_DOB validation error, got %v", err)
	}
	if f.users.updates != 0 {
		t.Fatalf("expected no write")
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestUserService_DeleteUser_NonAdminForbidden(t *testing.T) {
	f := newFixture(domain.RoleUser)
	target, _ := f.svc.CreateUser(context.Background(), validInput("target1"))

	for _, p := range []domain.Principal{
		{Name: "target1", Roles: []string{domain.RoleUser}},
		{Name: "someone"},
		{},
	} {
		if err := f.svc.DeleteUser(context.Background(), p, target.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected forbidden for %+v, got %v", p, err)
		}
	}
	if _, ok := f.users.byID[target.ID]; !ok || f.users.deletes != 0 {
		t.Fatalf("target must be unchanged")
	}
}

func TestUserService_DeleteUser_Admin(t *testing.T) {
	f := newFixture(domain.RoleUser)
	target, _ := f.svc.CreateUser(context.Background(), validInput("target1"))

	if err := f.svc.DeleteUser(context.Background(), admin(), target.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.users.byID[target.ID]; ok {
		t.Fatalf("expected user removed")
	}
	if len(f.cache.removed) != 1 || f.cache.removed[0] != target.ID {
		t.Fatalf("expected cache eviction, got %v", f.cache.removed)
	}
	if _, err := f.svc.GetUser(context.Background(), target.ID); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}

	if err := f.svc.DeleteUser(context.Background(), admin(), target.ID); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestUserService_NilCache(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), newStubRoleRepo(domain.RoleUser), stubHasher{}, nil, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }

	created, err := svc.CreateUser(context.Background(), validInput("nocache"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetUser(context.Background(), created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
