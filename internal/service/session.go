package service

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/SinaHo/fyra-signin-backend/internal/notify"
)

type Strategy string

const (
	StrategyEmailLink Strategy = "emailLink"
	StrategyPassword  Strategy = "password"
)

type Stage string

const (
	StageCollecting   Stage = "collecting"
	StageAwaitingLink Stage = "awaitingLink"
	StageConfirmed    Stage = "confirmed"
)

const (
	msgLinkSent       = "Login link sent to your email!"
	msgMobileHint     = "Check your email and tap the link to continue!"
	msgAccountCreated = "Account created successfully!"
	msgSignedIn       = "Successfully logged in!"
)

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// State is the client-visible part of a Session.
type State struct {
	ProfileID string
	Strategy  Strategy
	SignUp    bool
	Stage     Stage
}

// Normalize fills in defaults for a zero or partial state.
func (st State) Normalize() State {
	switch st.Strategy {
	case StrategyEmailLink, StrategyPassword:
	default:
		st.Strategy = StrategyEmailLink
	}
	switch st.Stage {
	case StageCollecting, StageAwaitingLink, StageConfirmed:
	default:
		st.Stage = StageCollecting
	}
	return st
}

// Session drives one browser profile through sign-in. Every failure is reported
// to the sink and returned; none escapes as a panic or leaves the session busy.
type Session struct {
	svc  AuthService
	sink notify.Sink

	inflight sync.Mutex

	mu    sync.Mutex
	state State
}

func NewSession(svc AuthService, sink notify.Sink, st State) *Session {
	return &Session{svc: svc, sink: sink, state: st.Normalize()}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
}

// SetStrategy switches between the link and password forms.
func (s *Session) SetStrategy(strategy Strategy) {
	s.update(func(st *State) {
		st.Strategy = strategy
		*st = st.Normalize()
	})
}

// ToggleSignUp flips the password form between sign-up and sign-in.
func (s *Session) ToggleSignUp() {
	s.update(func(st *State) { st.SignUp = !st.SignUp })
}

// begin rejects a submission while another one is in flight.
func (s *Session) begin(ctx context.Context) (func(), error) {
	if !s.inflight.TryLock() {
		s.sink.Error(ctx, ErrBusy.Message)
		return nil, ErrBusy
	}
	return s.inflight.Unlock, nil
}

func (s *Session) fail(ctx context.Context, err error) error {
	se := AsError(err)
	s.sink.Error(ctx, se.Message)
	switch {
	case errors.Is(se, ErrEmailInUse):
		s.update(func(st *State) { st.SignUp = false })
	case errors.Is(se, ErrUserNotFound):
		s.update(func(st *State) { st.SignUp = true })
	case errors.Is(se, ErrMissingPendingEmail):
		s.update(func(st *State) { st.Stage = StageCollecting })
	}
	return se
}

// DetectLink checks the URL the page was loaded with. A sign-in link moves the
// session to the confirmation stage, whichever device requested it.
func (s *Session) DetectLink(url string) bool {
	if !s.svc.IsSignInLink(url) {
		return false
	}
	s.update(func(st *State) {
		st.Strategy = StrategyEmailLink
		st.Stage = StageAwaitingLink
	})
	return true
}

// SendLink submits the passwordless form.
func (s *Session) SendLink(ctx context.Context, email, origin, userAgent string) error {
	done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	err = s.svc.SendLink(ctx, SendLinkRequest{
		ProfileID: s.State().ProfileID,
		Email:     email,
		Origin:    origin,
	})
	if err != nil {
		return s.fail(ctx, err)
	}
	s.update(func(st *State) {
		st.Strategy = StrategyEmailLink
		st.Stage = StageAwaitingLink
	})
	s.sink.Success(ctx, msgLinkSent)
	if mobileAgent.MatchString(userAgent) {
		s.sink.Success(ctx, msgMobileHint)
	}
	return nil
}

// Confirm completes the link flow from the current URL or a typed code.
func (s *Session) Confirm(ctx context.Context, link, code string) (*Result, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	res, err := s.svc.ConfirmLink(ctx, ConfirmLinkRequest{
		ProfileID: s.State().ProfileID,
		Link:      link,
		Code:      code,
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	s.update(func(st *State) { st.Stage = StageConfirmed })
	s.sink.Success(ctx, msgSignedIn)
	return res, nil
}

// PasswordAuth submits the password form in the session's current mode.
func (s *Session) PasswordAuth(ctx context.Context, email, password string) (*Result, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	signUp := s.State().SignUp
	res, err := s.svc.PasswordAuth(ctx, PasswordRequest{Email: email, Password: password, SignUp: signUp})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	s.update(func(st *State) {
		st.Strategy = StrategyPassword
		st.Stage = StageConfirmed
	})
	if signUp {
		s.sink.Success(ctx, msgAccountCreated)
	} else {
		s.sink.Success(ctx, msgSignedIn)
	}
	return res, nil
}
