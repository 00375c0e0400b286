package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/connections"
	"github.com/dmitrijs2005/docvault/internal/server/events"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/notify"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/docvault/internal/server/tokens"
	"github.com/google/uuid"
)

// --- clock ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- transactor ---

// nopTx runs fn directly; the in-memory repos ignore the handle.
type nopTx struct{}

func (nopTx) Conn() dbx.DBTX { return nil }

func (nopTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

// --- repositories ---

type fakeRepos struct {
	users   *memUsers
	refresh *memRefresh
	docs    *memDocs
	shares  *memShares
}

func newFakeRepos() *fakeRepos {
	sh := &memShares{}
	return &fakeRepos{
		users:   &memUsers{byID: map[string]*models.User{}},
		refresh: &memRefresh{byHash: map[string]*models.RefreshToken{}},
		docs:    &memDocs{byID: map[string]*models.Document{}, shares: sh},
		shares:  sh,
	}
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error      { return nil }
func (f *fakeRepos) Users(dbx.DBTX) users.Repository                 { return f.users }
func (f *fakeRepos) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return f.refresh }
func (f *fakeRepos) Documents(dbx.DBTX) documents.Repository         { return f.docs }
func (f *fakeRepos) Shares(dbx.DBTX) shares.Repository               { return f.shares }

type memUsers struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	updateErr error
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byID {
		if v.PhoneOrEmail == u.PhoneOrEmail {
			return nil, common.ErrDuplicateUser
		}
	}
	c := *u
	c.ID = uuid.NewString()
	m.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) GetByPhoneOrEmail(_ context.Context, contact string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.PhoneOrEmail == contact {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *u
	m.byID[u.ID] = &c
	return nil
}

func (m *memUsers) SetIdentityVerified(_ context.Context, id string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsVerified = verified
	return nil
}

func (m *memUsers) get(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.byID[id]
	return &c
}

func (m *memUsers) put(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	m.byID[u.ID] = &c
}

type memRefresh struct {
	mu     sync.Mutex
	byHash map[string]*models.RefreshToken
}

func (m *memRefresh) Create(_ context.Context, userID, hash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[hash] = &models.RefreshToken{
		ID: uuid.NewString(), UserID: userID, TokenHash: hash, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	return nil
}

func (m *memRefresh) Find(_ context.Context, hash string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byHash[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *r
	return &c, nil
}

func (m *memRefresh) Delete(_ context.Context, hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[hash]; !ok {
		return 0, nil
	}
	delete(m.byHash, hash)
	return 1, nil
}

func (m *memRefresh) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, r := range m.byHash {
		if r.UserID == userID {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *memRefresh) ListByUser(_ context.Context, userID string, now time.Time) ([]*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RefreshToken
	for _, r := range m.byHash {
		if r.UserID == userID && r.ExpiresAt.After(now) {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memRefresh) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.byHash {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

type memDocs struct {
	mu        sync.Mutex
	byID      map[string]*models.Document
	createErr error
	shares    *memShares
}

func (m *memDocs) Create(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	c := *d
	m.byID[d.ID] = &c
	return nil
}

func (m *memDocs) GetByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *d
	return &c, nil
}

func (m *memDocs) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return m.GetByID(ctx, id)
}

func (m *memDocs) ListByOwner(_ context.Context, userID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.byID {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDocs) ListSharedWith(_ context.Context, recipientID, connectionID string, now time.Time) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, sh := range m.shares.all() {
		if sh.RecipientID != recipientID || !sh.Active(now) {
			continue
		}
		if connectionID != "" && sh.ConnectionID != connectionID {
			continue
		}
		d, ok := m.byID[sh.DocumentID]
		if !ok {
			continue
		}
		c := *d
		c.SharedWith = []*models.Share{sh}
		out = append(out, &c)
	}
	return out, nil
}

func (m *memDocs) ExistsByType(_ context.Context, userID string, t models.DocumentType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.UserID == userID && d.DocumentType == t {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

type memShares struct {
	mu   sync.Mutex
	list []*models.Share
}

func (m *memShares) all() []*models.Share {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Share, 0, len(m.list))
	for _, sh := range m.list {
		c := *sh
		out = append(out, &c)
	}
	return out
}

func (m *memShares) Create(_ context.Context, sh *models.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh.ID = uuid.NewString()
	c := *sh
	m.list = append(m.list, &c)
	return nil
}

func (m *memShares) ListByDocumentAndRecipient(_ context.Context, docID, recipientID string) ([]*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Share
	for i := len(m.list) - 1; i >= 0; i-- {
		sh := m.list[i]
		if sh.DocumentID == docID && sh.RecipientID == recipientID {
			c := *sh
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memShares) ListByDocument(_ context.Context, docID string) ([]*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Share
	for _, sh := range m.list {
		if sh.DocumentID == docID {
			c := *sh
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memShares) UpdateStatus(_ context.Context, id string, status models.ShareStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sh := range m.list {
		if sh.ID == id && sh.Status != models.ShareStatusRevoked {
			sh.Status = status
			return nil
		}
	}
	return common.ErrorNotFound
}

func (m *memShares) Revoke(_ context.Context, docID, recipientID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, sh := range m.list {
		if sh.DocumentID != docID || (recipientID != "" && sh.RecipientID != recipientID) {
			continue
		}
		if sh.Active(now) {
			sh.Status = models.ShareStatusRevoked
			n++
		}
	}
	return n, nil
}

func (m *memShares) DeleteByDocument(_ context.Context, docID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keep []*models.Share
	var n int64
	for _, sh := range m.list {
		if sh.DocumentID == docID {
			n++
			continue
		}
		keep = append(keep, sh)
	}
	m.list = keep
	return n, nil
}

// --- collaborators ---

// plainHasher keeps tests fast; argon2 has its own tests.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain$" + pw, nil }

func (plainHasher) Verify(pw, encoded string) (bool, error) {
	if !strings.HasPrefix(encoded, "plain$") {
		return false, errors.New("malformed")
	}
	return encoded == "plain$"+pw, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) last() notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeLimiter struct {
	calls int
	max   int
}

func (f *fakeLimiter) Allow(context.Context, string) error {
	f.calls++
	if f.max > 0 && f.calls > f.max {
		return common.ErrRateLimited
	}
	return nil
}

type fakeEvents struct {
	mu  sync.Mutex
	got []events.Event
	err error
}

func (f *fakeEvents) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, e)
	return nil
}

func (f *fakeEvents) types() []events.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Type
	for _, e := range f.got {
		out = append(out, e.Type)
	}
	return out
}

type fakeGraph struct {
	status connections.Status
	err    error
}

func (f *fakeGraph) Status(context.Context, string, string, string) (connections.Status, error) {
	return f.status, f.err
}

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string]int64
	deleted   []string
	uploadErr error
	lastTTL   time.Duration
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]int64{}}
}

func (f *fakeBlobs) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	n, _ := io.Copy(io.Discard, body)
	f.objects[key] = n
	return nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTTL = ttl
	return "https://blobs.test/" + key + "?expires=" + ttl.String(), nil
}

// --- fixtures ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func newTestIssuer(t *testing.T, clock *fakeClock) *tokens.Issuer {
	t.Helper()
	iss, err := tokens.NewIssuer(tokens.Secrets{
		Access:       "access-secret",
		Refresh:      "refresh-secret",
		Verification: "verification-secret",
		Reset:        "reset-secret",
	}, tokens.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

type userFixture struct {
	svc      *UserService
	repos    *fakeRepos
	clock    *fakeClock
	issuer   *tokens.Issuer
	notifier *fakeNotifier
	limiter  *fakeLimiter
	events   *fakeEvents
}

func newUserFixture(t *testing.T, mutate ...func(*config.Config)) *userFixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	f := &userFixture{
		repos:    newFakeRepos(),
		clock:    newFakeClock(),
		notifier: &fakeNotifier{},
		limiter:  &fakeLimiter{},
		events:   &fakeEvents{},
	}
	f.issuer = newTestIssuer(t, f.clock)
	f.svc = NewUserService(UserDeps{
		DB:       nopTx{},
		Repos:    f.repos,
		Tokens:   f.issuer,
		Hasher:   plainHasher{},
		Notifier: f.notifier,
		Limiter:  f.limiter,
		Events:   f.events,
		Now:      f.clock.Now,
	}, cfg)
	return f
}

// seedUser stores a verified, active user with password "Passw0rd!".
func (f *userFixture) seedUser(contact string, mutate ...func(*models.User)) *models.User {
	u := &models.User{
		ID:                     uuid.NewString(),
		FirstName:              "Anna",
		LastName:               "Berzina",
		DateOfBirth:            time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:                 models.GenderFemale,
		PhoneOrEmail:           contact,
		PasswordHash:           "plain$Passw0rd!",
		IsPhoneOrEmailVerified: true,
		IsActive:               true,
	}
	for _, m := range mutate {
		m(u)
	}
	f.repos.users.put(u)
	return u
}
