package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SinaHo/fyra-signin-backend/internal/notify"
	"github.com/SinaHo/fyra-signin-backend/internal/service"
)

func newSession(f *fixture, st service.State) (*service.Session, *notify.Recorder) {
	rec := &notify.Recorder{}
	st.ProfileID = profileID
	return service.NewSession(f.svc, rec, st), rec
}

func TestSession_Defaults(t *testing.T) {
	s, _ := newSession(newFixture(), service.State{Strategy: "bogus"})
	st := s.State()
	assert.Equal(t, service.StrategyEmailLink, st.Strategy)
	assert.Equal(t, service.StageCollecting, st.Stage)
	assert.False(t, st.SignUp)
}

func TestSession_SetStrategy(t *testing.T) {
	s, _ := newSession(newFixture(), service.State{})

	s.SetStrategy(service.StrategyPassword)
	assert.Equal(t, service.StrategyPassword, s.State().Strategy)

	s.SetStrategy("unknown")
	assert.Equal(t, service.StrategyEmailLink, s.State().Strategy)
	assert.Equal(t, service.StageCollecting, s.State().Stage)
}

func TestSession_SendLinkMovesToAwaitingLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s, rec := newSession(f, service.State{})

	require.NoError(t, s.SendLink(ctx, "a@example.com", "https://fyra.example.com", "Mozilla/5.0 (Macintosh)"))
	assert.Equal(t, service.StageAwaitingLink, s.State().Stage)
	assert.Equal(t, []notify.Notice{{Level: notify.LevelSuccess, Message: "Login link sent to your email!"}}, rec.Notices())

	email, ok, err := f.tracker.Peek(ctx, profileID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@example.com", email)
}

func TestSession_SendLinkMobileHint(t *testing.T) {
	s, rec := newSession(newFixture(), service.State{})
	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"

	require.NoError(t, s.SendLink(context.Background(), "a@example.com", "", ua))
	notices := rec.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, "Check your email and tap the link to continue!", notices[1].Message)
}

func TestSession_SendLinkEmptyEmail(t *testing.T) {
	f := newFixture()
	s, rec := newSession(f, service.State{})

	err := s.SendLink(context.Background(), "", "", "")
	requireCode(t, err, service.CodeMissingEmail)
	assert.Equal(t, service.StageCollecting, s.State().Stage)
	assert.Equal(t, []notify.Notice{{Level: notify.LevelError, Message: "Please enter your email address"}}, rec.Notices())
	assert.Empty(t, f.idp.sent)
}

func TestSession_DetectLink(t *testing.T) {
	s, _ := newSession(newFixture(), service.State{Strategy: service.StrategyPassword})

	assert.False(t, s.DetectLink("https://fyra.example.com/"))
	assert.Equal(t, service.StageCollecting, s.State().Stage)

	assert.True(t, s.DetectLink("https://fyra.example.com/?mode=signIn&oobCode=xyz"))
	st := s.State()
	assert.Equal(t, service.StageAwaitingLink, st.Stage)
	assert.Equal(t, service.StrategyEmailLink, st.Strategy)
}

func TestSession_ConfirmLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s, rec := newSession(f, service.State{})

	require.NoError(t, s.SendLink(ctx, "a@example.com", "", ""))
	res, err := s.Confirm(ctx, "https://fyra.example.com/?mode=signIn&oobCode=xyz", "")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", res.Identity.Email)
	assert.Equal(t, service.StageConfirmed, s.State().Stage)
	assert.Equal(t, "Successfully logged in!", rec.Notices()[1].Message)
}

func TestSession_ConfirmWithoutMarkerRestarts(t *testing.T) {
	f := newFixture()
	s, rec := newSession(f, service.State{Stage: service.StageAwaitingLink})

	_, err := s.Confirm(context.Background(), "", "123456")
	requireCode(t, err, service.CodeMissingPendingEmail)
	assert.Equal(t, service.StageCollecting, s.State().Stage)
	assert.Equal(t, "Email not found. Please try logging in again.", rec.Notices()[0].Message)
	assert.Zero(t, f.idp.completeCalls)
}

func TestSession_EmailInUseSwitchesToSignIn(t *testing.T) {
	f := newFixture()
	f.idp.addAccount("taken@example.com", "secret1", "")
	s, rec := newSession(f, service.State{Strategy: service.StrategyPassword, SignUp: true})

	_, err := s.PasswordAuth(context.Background(), "taken@example.com", "secret1")
	requireCode(t, err, service.CodeEmailInUse)
	assert.False(t, s.State().SignUp)
	assert.Equal(t, "Email is already in use. Try signing in instead.", rec.Notices()[0].Message)
}

func TestSession_UserNotFoundSwitchesToSignUp(t *testing.T) {
	s, rec := newSession(newFixture(), service.State{Strategy: service.StrategyPassword})

	_, err := s.PasswordAuth(context.Background(), "ghost@example.com", "secret1")
	requireCode(t, err, service.CodeUserNotFound)
	assert.True(t, s.State().SignUp)
	assert.Equal(t, "No account found with this email. Try signing up instead.", rec.Notices()[0].Message)
}

func TestSession_OtherFailuresKeepMode(t *testing.T) {
	f := newFixture()
	f.idp.addAccount("a@example.com", "secret1", "")
	s, _ := newSession(f, service.State{Strategy: service.StrategyPassword})

	_, err := s.PasswordAuth(context.Background(), "a@example.com", "wrong!!")
	requireCode(t, err, service.CodeWrongPassword)
	assert.False(t, s.State().SignUp)
}

func TestSession_PasswordSuccessMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s, rec := newSession(f, service.State{Strategy: service.StrategyPassword})

	s.ToggleSignUp()
	_, err := s.PasswordAuth(ctx, "new@example.com", "longpass1")
	require.NoError(t, err)
	assert.Equal(t, service.StageConfirmed, s.State().Stage)

	s.ToggleSignUp()
	_, err = s.PasswordAuth(ctx, "new@example.com", "longpass1")
	require.NoError(t, err)

	assert.Equal(t, []notify.Notice{
		{Level: notify.LevelSuccess, Message: "Account created successfully!"},
		{Level: notify.LevelSuccess, Message: "Successfully logged in!"},
	}, rec.Notices())
}

// blockingService holds PasswordAuth until release is closed.
type blockingService struct {
	service.AuthService
	entered chan struct{}
	release chan struct{}
}

func (b *blockingService) PasswordAuth(ctx context.Context, in service.PasswordRequest) (*service.Result, error) {
	close(b.entered)
	<-b.release
	return b.AuthService.PasswordAuth(ctx, in)
}

func TestSession_RejectsConcurrentSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.idp.addAccount("a@example.com", "secret1", "")
	svc := &blockingService{AuthService: f.svc, entered: make(chan struct{}), release: make(chan struct{})}
	rec := &notify.Recorder{}
	s := service.NewSession(svc, rec, service.State{ProfileID: profileID, Strategy: service.StrategyPassword})

	done := make(chan error, 1)
	go func() {
		_, err := s.PasswordAuth(ctx, "a@example.com", "secret1")
		done <- err
	}()
	<-svc.entered

	err := s.SendLink(ctx, "a@example.com", "", "")
	requireCode(t, err, service.CodeBusy)

	close(svc.release)
	require.NoError(t, <-done)

	// the guard is released once the first submission finishes
	require.NoError(t, s.SendLink(ctx, "a@example.com", "", ""))
}
