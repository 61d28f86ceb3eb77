package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SinaHo/fyra-signin-backend/internal/model"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
)

const maxReferralAttempts = 5

// Finalizer makes sure every authenticated identity has exactly one user record.
type Finalizer struct {
	users   repository.UserRepository
	newCode func() (string, error)
	now     func() time.Time
	logger  *zap.SugaredLogger
}

func NewFinalizer(users repository.UserRepository, logger *zap.SugaredLogger) *Finalizer {
	return &Finalizer{
		users:   users,
		newCode: model.NewReferralCode,
		now:     time.Now,
		logger:  logger,
	}
}

// WithReferralCodes replaces the referral code generator.
func (f *Finalizer) WithReferralCodes(gen func() (string, error)) *Finalizer {
	f.newCode = gen
	return f
}

// WithClock replaces the clock used for CreatedAt.
func (f *Finalizer) WithClock(now func() time.Time) *Finalizer {
	f.now = now
	return f
}

// Ensure returns the identity's user record, creating the default one when absent.
// An existing record is never modified. created reports whether this call wrote it.
func (f *Finalizer) Ensure(ctx context.Context, id model.Identity) (rec *model.UserRecord, created bool, err error) {
	if id.UID == "" {
		return nil, false, errors.New("identity has no uid")
	}

	rec, err = f.users.GetByUID(ctx, id.UID)
	switch {
	case err == nil:
		return rec, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("lookup user record: %w", err)
	}

	for attempt := 1; attempt <= maxReferralAttempts; attempt++ {
		code, err := f.newCode()
		if err != nil {
			return nil, false, fmt.Errorf("generate referral code: %w", err)
		}
		fresh := model.NewUserRecord(id, code, f.now())
		ok, err := f.users.Create(ctx, fresh)
		if errors.Is(err, repository.ErrReferralCodeTaken) {
			f.logger.Warnw("referral code collision, retrying", "uid", id.UID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("create user record: %w", err)
		}
		if !ok {
			// a concurrent finalization won the insert
			existing, err := f.users.GetByUID(ctx, id.UID)
			if err != nil {
				return nil, false, fmt.Errorf("reload user record: %w", err)
			}
			return existing, false, nil
		}
		f.logger.Infow("user record created", "uid", id.UID, "referral_code", code)
		return fresh, true, nil
	}
	return nil, false, fmt.Errorf("create user record: %w", repository.ErrReferralCodeTaken)
}
