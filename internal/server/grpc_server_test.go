package server_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/SinaHo/fyra-signin-backend/api/v1/signin"
	"github.com/SinaHo/fyra-signin-backend/internal/config"
	"github.com/SinaHo/fyra-signin-backend/internal/model"
	"github.com/SinaHo/fyra-signin-backend/internal/pending"
	"github.com/SinaHo/fyra-signin-backend/internal/provider/local"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
	"github.com/SinaHo/fyra-signin-backend/internal/server"
)

type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]*model.Account
}

func (m *memAccounts) Create(_ context.Context, email, passwordHash, displayName string, verified bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, repository.ErrEmailTaken
	}
	acc := &model.Account{UID: uuid.NewString(), Email: email, PasswordHash: passwordHash, DisplayName: displayName, EmailVerified: verified, CreatedAt: time.Now()}
	m.byEmail[email] = acc
	cp := *acc
	return &cp, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memAccounts) UpdateDisplayName(_ context.Context, uid, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.byEmail {
		if acc.UID == uid {
			acc.DisplayName = name
			return nil
		}
	}
	return repository.ErrNotFound
}

type memUsers struct {
	mu      sync.Mutex
	records map[string]model.UserRecord
}

func (m *memUsers) GetByUID(_ context.Context, uid string) (*model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (m *memUsers) Create(_ context.Context, rec *model.UserRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.UID]; ok {
		return false, nil
	}
	m.records[rec.UID] = *rec
	return true, nil
}

// inbox captures delivered sign-in links.
type inbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (i *inbox) SendSignInLink(_ context.Context, toEmail, link string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.links[toEmail] = link
	return nil
}

func (i *inbox) last(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.links[email]
}

type harness struct {
	client signin.SignInClient
	inbox  *inbox
	users  *memUsers
	redis  *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{SigningKey: "test-secret", Issuer: "fyra-signin", LinkTTL: time.Hour, IDTokenTTL: time.Hour},
		SignIn: config.SignInConfig{
			DefaultOrigin:     "http://localhost:3001",
			LocalDevURL:       "http://localhost:3001",
			AuthorizedDomains: []string{"localhost", "vercel.app"},
			EmailLinkEnabled:  true,
		},
	}
	h := &harness{
		inbox: &inbox{links: make(map[string]string)},
		users: &memUsers{records: make(map[string]model.UserRecord)},
		redis: mr,
	}
	srv := server.NewGRPCServer(cfg, zap.NewNop(), server.Components{
		Accounts: &memAccounts{byEmail: make(map[string]*model.Account)},
		Users:    h.users,
		Pending:  pending.NewRedisStore(rdb, "signin:pending", time.Hour),
		Ledger:   local.NewRedisLedger(rdb, "signin:ledger"),
		Mailer:   h.inbox,
	})

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h.client = signin.NewSignInClient(conn)
	return h
}

func bearer(ctx context.Context, idToken string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+idToken)
}

func TestSignIn_EmailLinkFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	profile := uuid.NewString()

	sent, err := h.client.SendLink(ctx, &signin.SendLinkRequest{
		ProfileID: profile,
		Email:     "link@example.com",
		Origin:    "http://localhost:5173",
	})
	require.NoError(t, err)
	require.Nil(t, sent.Failure)
	assert.Equal(t, "awaitingLink", sent.State.Stage)
	assert.True(t, h.redis.Exists("signin:pending:"+profile+":emailForSignIn"))

	link := h.inbox.last("link@example.com")
	require.NotEmpty(t, link)
	assert.Contains(t, link, "http://localhost:3001")

	detected, err := h.client.DetectLink(ctx, &signin.DetectLinkRequest{ProfileID: profile, URL: link})
	require.NoError(t, err)
	assert.True(t, detected.IsSignInLink)

	confirmed, err := h.client.ConfirmLink(ctx, &signin.ConfirmLinkRequest{ProfileID: profile, State: detected.State, Link: link})
	require.NoError(t, err)
	require.Nil(t, confirmed.Failure)
	assert.Equal(t, "confirmed", confirmed.State.Stage)
	require.NotNil(t, confirmed.Session)
	assert.True(t, confirmed.Session.RecordCreated)
	assert.False(t, h.redis.Exists("signin:pending:"+profile+":emailForSignIn"))

	got, err := h.client.GetUserRecord(bearer(ctx, confirmed.Session.IDToken), &signin.GetUserRecordRequest{})
	require.NoError(t, err)
	assert.Equal(t, confirmed.Session.UID, got.Record.UID)
	assert.Equal(t, "link@example.com", got.Record.Email)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, got.Record.ReferralCode)

	// a used link cannot be replayed
	_, err = h.client.SendLink(ctx, &signin.SendLinkRequest{ProfileID: profile, Email: "link@example.com"})
	require.NoError(t, err)
	replay, err := h.client.ConfirmLink(ctx, &signin.ConfirmLinkRequest{ProfileID: profile, Link: link})
	require.NoError(t, err)
	require.NotNil(t, replay.Failure)
	assert.Equal(t, "InvalidLink", replay.Failure.Code)
}

func TestSignIn_ConfirmWithoutPendingEmail(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.ConfirmLink(context.Background(), &signin.ConfirmLinkRequest{ProfileID: uuid.NewString(), Code: "123456"})
	require.NoError(t, err)
	require.NotNil(t, resp.Failure)
	assert.Equal(t, "MissingPendingEmail", resp.Failure.Code)
	assert.Equal(t, []signin.Notice{{Level: "error", Message: "Email not found. Please try logging in again."}}, resp.Notices)
}

func TestSignIn_PasswordFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	profile := uuid.NewString()
	signUp := signin.State{Strategy: "password", SignUp: true}

	weak, err := h.client.PasswordAuth(ctx, &signin.PasswordAuthRequest{ProfileID: profile, State: signUp, Email: "user@example.com", Password: "short"})
	require.NoError(t, err)
	assert.Equal(t, "WeakPassword", weak.Failure.Code)
	assert.Empty(t, h.users.records)

	created, err := h.client.PasswordAuth(ctx, &signin.PasswordAuthRequest{ProfileID: profile, State: signUp, Email: "new@example.com", Password: "longpass1"})
	require.NoError(t, err)
	require.Nil(t, created.Failure)
	rec := created.Session.Record
	require.NotNil(t, rec.Username)
	assert.Equal(t, "new", *rec.Username)
	assert.Zero(t, rec.FireBalance)
	assert.Equal(t, []signin.Notice{{Level: "success", Message: "Account created successfully!"}}, created.Notices)

	again, err := h.client.PasswordAuth(ctx, &signin.PasswordAuthRequest{ProfileID: profile, State: signUp, Email: "new@example.com", Password: "longpass1"})
	require.NoError(t, err)
	assert.Equal(t, "EmailInUse", again.Failure.Code)
	assert.False(t, again.State.SignUp)

	in, err := h.client.PasswordAuth(ctx, &signin.PasswordAuthRequest{ProfileID: profile, State: again.State, Email: "new@example.com", Password: "longpass1"})
	require.NoError(t, err)
	require.Nil(t, in.Failure)
	assert.False(t, in.Session.RecordCreated)
	assert.Equal(t, rec.ReferralCode, in.Session.Record.ReferralCode)
	assert.Len(t, h.users.records, 1)
}

func TestSignIn_GetUserRecordRequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.GetUserRecord(context.Background(), &signin.GetUserRecordRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client.GetUserRecord(bearer(context.Background(), "garbage"), &signin.GetUserRecordRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
