package model

import (
	"strings"
	"time"
)

// Identity is what the identity provider hands back after a successful sign-in.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	IDToken     string `json:"-"`
}

type Profile struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	Country     string `json:"country"`
}

type MiningStats struct {
	LastMiningStart *time.Time `json:"lastMiningStart"`
	TotalMiningTime int64      `json:"totalMiningTime"`
	MiningActive    bool       `json:"miningActive"`
}

type ReferralStats struct {
	ReferredUsers      []string `json:"referredUsers"`
	TotalReferralBonus float64  `json:"totalReferralBonus"`
}

type TaskStats struct {
	CompletedTasks   []string `json:"completedTasks"`
	TotalTaskRewards float64  `json:"totalTaskRewards"`
}

// UserRecord is the application profile document, keyed by the provider uid.
type UserRecord struct {
	UID           string        `json:"uid"`
	Email         string        `json:"email"`
	Username      *string       `json:"username"`
	FireBalance   float64       `json:"fireBalance"`
	TotalMined    float64       `json:"totalMined"`
	ReferralCode  string        `json:"referralCode"`
	ReferredBy    *string       `json:"referredBy"`
	Profile       Profile       `json:"profile"`
	MiningStats   MiningStats   `json:"miningStats"`
	ReferralStats ReferralStats `json:"referralStats"`
	TaskStats     TaskStats     `json:"taskStats"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// NewUserRecord builds the default record for a freshly authenticated identity.
// The identity's display name, when present, becomes both username and profile name.
func NewUserRecord(id Identity, referralCode string, now time.Time) *UserRecord {
	rec := &UserRecord{
		UID:          id.UID,
		Email:        id.Email,
		ReferralCode: referralCode,
		Profile:      Profile{},
		ReferralStats: ReferralStats{
			ReferredUsers: []string{},
		},
		TaskStats: TaskStats{
			CompletedTasks: []string{},
		},
		CreatedAt: now.UTC(),
	}
	if id.DisplayName != "" {
		name := id.DisplayName
		rec.Username = &name
		rec.Profile.Name = name
	}
	return rec
}

// LocalPart returns the part of an email address before the last '@'.
func LocalPart(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
