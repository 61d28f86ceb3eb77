package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/SinaHo/fyra-signin-backend/internal/model"
)

// UserRepository stores application user records.
type UserRepository interface {
	// GetByUID returns ErrNotFound when no record exists for uid.
	GetByUID(ctx context.Context, uid string) (*model.UserRecord, error)
	// Create inserts rec unless a record for rec.UID already exists.
	// It reports whether a row was written.
	Create(ctx context.Context, rec *model.UserRecord) (bool, error)
}

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a new UserRepository backed by a sqlx.DB.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

type userRow struct {
	UID                string         `db:"uid"`
	Email              string         `db:"email"`
	Username           sql.NullString `db:"username"`
	FireBalance        float64        `db:"fire_balance"`
	TotalMined         float64        `db:"total_mined"`
	ReferralCode       string         `db:"referral_code"`
	ReferredBy         sql.NullString `db:"referred_by"`
	ProfileName        string         `db:"profile_name"`
	ProfileDateOfBirth string         `db:"profile_date_of_birth"`
	ProfileCountry     string         `db:"profile_country"`
	LastMiningStart    sql.NullTime   `db:"last_mining_start"`
	TotalMiningTime    int64          `db:"total_mining_time"`
	MiningActive       bool           `db:"mining_active"`
	ReferredUsers      pq.StringArray `db:"referred_users"`
	TotalReferralBonus float64        `db:"total_referral_bonus"`
	CompletedTasks     pq.StringArray `db:"completed_tasks"`
	TotalTaskRewards   float64        `db:"total_task_rewards"`
	CreatedAt          time.Time      `db:"created_at"`
}

const userColumns = `uid, email, username, fire_balance, total_mined, referral_code, referred_by,
	profile_name, profile_date_of_birth, profile_country,
	last_mining_start, total_mining_time, mining_active,
	referred_users, total_referral_bonus, completed_tasks, total_task_rewards, created_at`

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*model.UserRecord, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM user_records WHERE uid = $1`
	if err := r.db.GetContext(ctx, &row, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error selecting user record: %w", err)
	}
	return row.toModel(), nil
}

func (r *userRepository) Create(ctx context.Context, rec *model.UserRecord) (bool, error) {
	query := `
		INSERT INTO user_records (` + userColumns + `) VALUES (
			:uid, :email, :username, :fire_balance, :total_mined, :referral_code, :referred_by,
			:profile_name, :profile_date_of_birth, :profile_country,
			:last_mining_start, :total_mining_time, :mining_active,
			:referred_users, :total_referral_bonus, :completed_tasks, :total_task_rewards, :created_at
		)
		ON CONFLICT (uid) DO NOTHING
	`
	res, err := r.db.NamedExecContext(ctx, query, fromModel(rec))
	if err != nil {
		if constraint, ok := uniqueViolationOn(err); ok {
			switch constraint {
			case "user_records_referral_code_key":
				return false, ErrReferralCodeTaken
			case "user_records_email_key":
				return false, ErrEmailTaken
			}
		}
		return false, fmt.Errorf("error inserting user record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}

func fromModel(rec *model.UserRecord) userRow {
	row := userRow{
		UID:                rec.UID,
		Email:              rec.Email,
		FireBalance:        rec.FireBalance,
		TotalMined:         rec.TotalMined,
		ReferralCode:       rec.ReferralCode,
		ProfileName:        rec.Profile.Name,
		ProfileDateOfBirth: rec.Profile.DateOfBirth,
		ProfileCountry:     rec.Profile.Country,
		TotalMiningTime:    rec.MiningStats.TotalMiningTime,
		MiningActive:       rec.MiningStats.MiningActive,
		ReferredUsers:      pq.StringArray(nonNil(rec.ReferralStats.ReferredUsers)),
		TotalReferralBonus: rec.ReferralStats.TotalReferralBonus,
		CompletedTasks:     pq.StringArray(nonNil(rec.TaskStats.CompletedTasks)),
		TotalTaskRewards:   rec.TaskStats.TotalTaskRewards,
		CreatedAt:          rec.CreatedAt,
	}
	if rec.Username != nil {
		row.Username = sql.NullString{String: *rec.Username, Valid: true}
	}
	if rec.ReferredBy != nil {
		row.ReferredBy = sql.NullString{String: *rec.ReferredBy, Valid: true}
	}
	if rec.MiningStats.LastMiningStart != nil {
		row.LastMiningStart = sql.NullTime{Time: *rec.MiningStats.LastMiningStart, Valid: true}
	}
	return row
}

func (row userRow) toModel() *model.UserRecord {
	rec := &model.UserRecord{
		UID:          row.UID,
		Email:        row.Email,
		FireBalance:  row.FireBalance,
		TotalMined:   row.TotalMined,
		ReferralCode: row.ReferralCode,
		Profile: model.Profile{
			Name:        row.ProfileName,
			DateOfBirth: row.ProfileDateOfBirth,
			Country:     row.ProfileCountry,
		},
		MiningStats: model.MiningStats{
			TotalMiningTime: row.TotalMiningTime,
			MiningActive:    row.MiningActive,
		},
		ReferralStats: model.ReferralStats{
			ReferredUsers:      nonNil(row.ReferredUsers),
			TotalReferralBonus: row.TotalReferralBonus,
		},
		TaskStats: model.TaskStats{
			CompletedTasks:   nonNil(row.CompletedTasks),
			TotalTaskRewards: row.TotalTaskRewards,
		},
		CreatedAt: row.CreatedAt,
	}
	if row.Username.Valid {
		s := row.Username.String
		rec.Username = &s
	}
	if row.ReferredBy.Valid {
		s := row.ReferredBy.String
		rec.ReferredBy = &s
	}
	if row.LastMiningStart.Valid {
		t := row.LastMiningStart.Time
		rec.MiningStats.LastMiningStart = &t
	}
	return rec
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
