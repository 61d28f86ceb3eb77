package service_test

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SinaHo/fyra-signin-backend/internal/model"
	"github.com/SinaHo/fyra-signin-backend/internal/pending"
	"github.com/SinaHo/fyra-signin-backend/internal/provider"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
	"github.com/SinaHo/fyra-signin-backend/internal/service"
)

// fakeProvider implements provider.IdentityProvider in memory.
type fakeProvider struct {
	mu sync.Mutex

	accounts map[string]*fakeAccount // by email
	sent     []sentLink

	// control outputs
	sendErr     error
	completeErr error
	authErr     error

	// capture calls
	completeCalls int
	createCalls   int
	displayNames  map[string]string
}

type fakeAccount struct {
	uid      string
	password string
	name     string
}

type sentLink struct {
	email    string
	settings provider.ActionCodeSettings
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts:     make(map[string]*fakeAccount),
		displayNames: make(map[string]string),
	}
}

func (p *fakeProvider) addAccount(email, password, name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	uid := uuid.NewString()
	p.accounts[email] = &fakeAccount{uid: uid, password: password, name: name}
	return uid
}

func (p *fakeProvider) SendSignInLink(_ context.Context, email string, settings provider.ActionCodeSettings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentLink{email: email, settings: settings})
	return nil
}

func (p *fakeProvider) IsSignInLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Query().Get("mode") == "signIn" && u.Query().Get("oobCode") != ""
}

func (p *fakeProvider) SignInWithLink(_ context.Context, email, link string) (*model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completeCalls++
	if p.completeErr != nil {
		return nil, p.completeErr
	}
	if !strings.Contains(link, "oobCode=") {
		return nil, provider.NewError(provider.CodeInvalidActionCode, "bad link")
	}
	acc, ok := p.accounts[email]
	if !ok {
		acc = &fakeAccount{uid: uuid.NewString()}
		p.accounts[email] = acc
	}
	return &model.Identity{UID: acc.uid, Email: email, DisplayName: acc.name, IDToken: "id-" + acc.uid}, nil
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, password string) (*model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if len(password) < 6 {
		return nil, provider.NewError(provider.CodeWeakPassword, "Password should be at least 6 characters")
	}
	if _, ok := p.accounts[email]; ok {
		return nil, provider.NewError(provider.CodeEmailAlreadyInUse, "in use")
	}
	acc := &fakeAccount{uid: uuid.NewString(), password: password}
	p.accounts[email] = acc
	return &model.Identity{UID: acc.uid, Email: email}, nil
}

func (p *fakeProvider) Authenticate(_ context.Context, email, password string) (*model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.authErr != nil {
		return nil, p.authErr
	}
	acc, ok := p.accounts[email]
	if !ok {
		return nil, provider.NewError(provider.CodeUserNotFound, "no user")
	}
	if acc.password != password {
		return nil, provider.NewError(provider.CodeWrongPassword, "wrong")
	}
	return &model.Identity{UID: acc.uid, Email: email, DisplayName: acc.name}, nil
}

func (p *fakeProvider) UpdateDisplayName(_ context.Context, uid, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayNames[uid] = name
	for _, acc := range p.accounts {
		if acc.uid == uid {
			acc.name = name
		}
	}
	return nil
}

func (p *fakeProvider) hasAccount(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[email]
	return ok
}

// fakeUsers implements repository.UserRepository in memory.
type fakeUsers struct {
	mu      sync.Mutex
	records map[string]*model.UserRecord

	getErr    error
	createErr []error // consumed one per Create call
	creates   int
	// loseRace makes Create report another writer's record as already present
	loseRace *model.UserRecord
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{records: make(map[string]*model.UserRecord)}
}

func (f *fakeUsers) GetByUID(_ context.Context, uid string) (*model.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeUsers) Create(_ context.Context, rec *model.UserRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErr) > 0 {
		err := f.createErr[0]
		f.createErr = f.createErr[1:]
		if err != nil {
			return false, err
		}
	}
	if f.loseRace != nil {
		f.records[rec.UID] = f.loseRace
		f.loseRace = nil
		return false, nil
	}
	if _, ok := f.records[rec.UID]; ok {
		return false, nil
	}
	cp := *rec
	f.records[rec.UID] = &cp
	return true, nil
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fixture struct {
	idp     *fakeProvider
	users   *fakeUsers
	store   *pending.MemoryStore
	tracker *pending.Tracker
	svc     service.AuthService
}

var testPolicy = service.ReturnURLPolicy{
	DefaultOrigin:     "https://fyra.example.com",
	LocalDevURL:       "http://localhost:3001",
	DynamicLinkDomain: "fyra.page.link",
}

func newFixture() *fixture {
	f := &fixture{
		idp:   newFakeProvider(),
		users: newFakeUsers(),
		store: pending.NewMemoryStore(),
	}
	f.tracker = pending.NewTracker(f.store)
	logger := zap.NewNop().Sugar()
	f.svc = service.NewAuthService(f.idp, f.users, f.tracker, service.NewFinalizer(f.users, logger), testPolicy, logger)
	return f
}
