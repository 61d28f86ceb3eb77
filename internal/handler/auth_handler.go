package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SinaHo/fyra-signin-backend/api/v1/signin"
	"github.com/SinaHo/fyra-signin-backend/internal/middleware"
	"github.com/SinaHo/fyra-signin-backend/internal/notify"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
	"github.com/SinaHo/fyra-signin-backend/internal/service"
)

// AuthHandler is the gRPC server implementation of the SignIn service.
// Sign-in failures are reported in the response body, not as gRPC status errors.
type AuthHandler struct {
	signin.UnimplementedSignInServer
	svc    service.AuthService
	logger *zap.SugaredLogger
}

// NewAuthHandler constructs a new handler, given an AuthService.
func NewAuthHandler(svc service.AuthService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// session rebuilds the caller's sign-in session from the state it sent.
// The link endpoints key the pending marker by profile, so they require a valid profile_id.
func (h *AuthHandler) session(profileID string, st signin.State) (*service.Session, *notify.Recorder, error) {
	if _, err := uuid.Parse(profileID); err != nil {
		rec := &notify.Recorder{}
		notify.Tee(rec, notify.NewZapSink(h.logger.With("profile_id", profileID))).
			Error(context.Background(), service.ErrInvalidProfile.Message)
		return nil, rec, service.ErrInvalidProfile
	}
	sess, rec := h.open(profileID, st)
	return sess, rec, nil
}

// open builds a session without checking the profile.
func (h *AuthHandler) open(profileID string, st signin.State) (*service.Session, *notify.Recorder) {
	rec := &notify.Recorder{}
	sink := notify.Tee(rec, notify.NewZapSink(h.logger.With("profile_id", profileID)))
	return service.NewSession(h.svc, sink, fromState(profileID, st)), rec
}

func (h *AuthHandler) SendLink(ctx context.Context, req *signin.SendLinkRequest) (*signin.SendLinkResponse, error) {
	sess, rec, err := h.session(req.ProfileID, req.State)
	if err == nil {
		err = sess.SendLink(ctx, req.Email, req.Origin, req.UserAgent)
	}
	return &signin.SendLinkResponse{
		State:   stateOf(sess, req.State),
		Notices: notices(rec),
		Failure: failure(err),
	}, nil
}

func (h *AuthHandler) DetectLink(_ context.Context, req *signin.DetectLinkRequest) (*signin.DetectLinkResponse, error) {
	sess, _, err := h.session(req.ProfileID, req.State)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, service.ErrInvalidProfile.Message)
	}
	found := sess.DetectLink(req.URL)
	return &signin.DetectLinkResponse{IsSignInLink: found, State: toState(sess.State())}, nil
}

func (h *AuthHandler) ConfirmLink(ctx context.Context, req *signin.ConfirmLinkRequest) (*signin.ConfirmLinkResponse, error) {
	sess, rec, err := h.session(req.ProfileID, req.State)
	var res *service.Result
	if err == nil {
		res, err = sess.Confirm(ctx, req.Link, req.Code)
	}
	return &signin.ConfirmLinkResponse{
		State:   stateOf(sess, req.State),
		Notices: notices(rec),
		Failure: failure(err),
		Session: authSession(res),
	}, nil
}

// PasswordAuth does not touch the pending marker, so profile_id is optional.
func (h *AuthHandler) PasswordAuth(ctx context.Context, req *signin.PasswordAuthRequest) (*signin.PasswordAuthResponse, error) {
	sess, rec := h.open(req.ProfileID, req.State)
	res, err := sess.PasswordAuth(ctx, req.Email, req.Password)
	return &signin.PasswordAuthResponse{
		State:   stateOf(sess, req.State),
		Notices: notices(rec),
		Failure: failure(err),
		Session: authSession(res),
	}, nil
}

// GetUserRecord returns the record of the authenticated caller.
func (h *AuthHandler) GetUserRecord(ctx context.Context, _ *signin.GetUserRecordRequest) (*signin.GetUserRecordResponse, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return nil, middleware.ErrUnauthenticated
	}
	rec, err := h.svc.GetUserRecord(ctx, caller.UID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "user record not found")
	}
	if err != nil {
		h.logger.Errorw("get user record failed", "uid", caller.UID, "error", err)
		return nil, status.Error(codes.Internal, "failed to load user record")
	}
	return &signin.GetUserRecordResponse{Record: rec}, nil
}

func fromState(profileID string, st signin.State) service.State {
	return service.State{
		ProfileID: profileID,
		Strategy:  service.Strategy(st.Strategy),
		SignUp:    st.SignUp,
		Stage:     service.Stage(st.Stage),
	}.Normalize()
}

func toState(st service.State) signin.State {
	return signin.State{Strategy: string(st.Strategy), SignUp: st.SignUp, Stage: string(st.Stage)}
}

// stateOf echoes the request state when no session could be opened.
func stateOf(sess *service.Session, fallback signin.State) signin.State {
	if sess == nil {
		return toState(fromState("", fallback))
	}
	return toState(sess.State())
}

func notices(rec *notify.Recorder) []signin.Notice {
	var out []signin.Notice
	for _, n := range rec.Notices() {
		out = append(out, signin.Notice{Level: string(n.Level), Message: n.Message})
	}
	return out
}

func failure(err error) *signin.Failure {
	if err == nil {
		return nil
	}
	se := service.AsError(err)
	return &signin.Failure{Code: string(se.Code), Kind: string(se.Kind), Message: se.Message}
}

func authSession(res *service.Result) *signin.AuthSession {
	if res == nil || res.Identity == nil {
		return nil
	}
	return &signin.AuthSession{
		UID:           res.Identity.UID,
		Email:         res.Identity.Email,
		DisplayName:   res.Identity.DisplayName,
		IDToken:       res.Identity.IDToken,
		RecordCreated: res.Created,
		Record:        res.Record,
	}
}
