package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitbridge/backend/internal/levelcurve"
	"github.com/bitbridge/backend/internal/metrics"
	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/samber/lo"
)

// RewardNotifier is told about a completion after its transaction commits.
type RewardNotifier interface {
	NotifyRewardsIssued(ctx context.Context, result *CompletionResult) error
}

// MemberCredit is one member's payout from a completion.
type MemberCredit struct {
	UserID      uint  `json:"user_id"`
	XPBefore    int64 `json:"xp_before"`
	XPAfter     int64 `json:"xp_after"`
	LevelBefore int   `json:"level_before"`
	LevelAfter  int   `json:"level_after"`
}

// LeveledUp reports whether the credit crossed at least one level.
func (c MemberCredit) LeveledUp() bool {
	return c.LevelAfter > c.LevelBefore
}

// CompletionResult describes everything a completion paid out.
type CompletionResult struct {
	ProjectID   uint           `json:"project_id"`
	ProjectName string         `json:"project_name"`
	Reward      RewardSchedule `json:"reward"`
	Credits     []MemberCredit `json:"credits"`
	CompletedAt time.Time      `json:"completed_at"`
}

// MemberIDs returns the ids of every credited member.
func (r *CompletionResult) MemberIDs() []uint {
	return lo.Map(r.Credits, func(c MemberCredit, _ int) uint { return c.UserID })
}

// MembershipLedger governs joining, leaving, completing and deleting projects.
type MembershipLedger struct {
	store    MembershipStore
	notifier RewardNotifier
	now      func() time.Time
}

// NewMembershipLedger creates a ledger. notifier may be nil.
func NewMembershipLedger(store MembershipStore, notifier RewardNotifier) *MembershipLedger {
	return &MembershipLedger{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Join adds userID to an ongoing project with the given free-text role.
func (l *MembershipLedger) Join(ctx context.Context, projectID, userID uint, role string) (*models.ProjectMember, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, ErrInvalidRole
	}

	var member *models.ProjectMember
	err := l.store.Transaction(ctx, func(tx MembershipStore) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectStatusOngoing {
			return ErrProjectNotOngoing
		}
		profile, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		// closed or disabled accounts may still hold a valid token
		if profile.DeletedAt.Valid || !profile.IsActive {
			return ErrNotFound
		}

		m := &models.ProjectMember{
			ProjectID: projectID,
			UserID:    userID,
			Role:      role,
			JoinedAt:  l.now(),
		}
		if err := tx.InsertMembership(ctx, m); err != nil {
			return err
		}
		member = m
		return nil
	})

	metrics.ObserveOperation("join", outcome(err))
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("project_id", projectID).Uint("user_id", userID).Str("role", role).Msg("member joined project")
	return member, nil
}

// Leave removes userID from the project. Rewards already paid stay paid.
func (l *MembershipLedger) Leave(ctx context.Context, projectID, userID uint) error {
	err := l.leave(ctx, projectID, userID)
	metrics.ObserveOperation("leave", outcome(err))
	if err == nil {
		logger.Info().Uint("project_id", projectID).Uint("user_id", userID).Msg("member left project")
	}
	return err
}

func (l *MembershipLedger) leave(ctx context.Context, projectID, userID uint) error {
	deleted, err := l.store.DeleteMembership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}
	if _, err := l.store.GetProject(ctx, projectID); err != nil {
		return err
	}
	return ErrNotMember
}

// CompleteProject marks the project completed and credits every current
// member with the project's reward, all in one transaction.
func (l *MembershipLedger) CompleteProject(ctx context.Context, projectID uint) (*CompletionResult, error) {
	var result *CompletionResult
	err := l.store.Transaction(ctx, func(tx MembershipStore) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.IsCompleted() {
			return ErrAlreadyCompleted
		}

		flipped, err := tx.SetProjectStatus(ctx, projectID, models.ProjectStatusOngoing, models.ProjectStatusCompleted)
		if err != nil {
			return err
		}
		if !flipped {
			// Another completion got there between our read and the update
			return ErrAlreadyCompleted
		}

		members, err := tx.ListMemberships(ctx, projectID)
		if err != nil {
			return err
		}

		reward := RewardSchedule{XP: project.RewardXP, Bits: project.RewardBits, Bytes: project.RewardBytes}
		credits := make([]MemberCredit, 0, len(members))
		for _, m := range members {
			credit, err := l.creditMember(ctx, tx, projectID, m.UserID, reward)
			if err != nil {
				return err
			}
			credits = append(credits, credit)
		}

		result = &CompletionResult{
			ProjectID:   projectID,
			ProjectName: project.Name,
			Reward:      reward,
			Credits:     credits,
			CompletedAt: l.now(),
		}
		return nil
	})

	metrics.ObserveOperation("complete", outcome(err))
	if err != nil {
		return nil, err
	}

	l.recordIssued(result)
	logger.Info().
		Uint("project_id", projectID).
		Int("members", len(result.Credits)).
		Int64("xp", result.Reward.XP).
		Msg("project completed, rewards issued")

	if l.notifier != nil {
		if err := l.notifier.NotifyRewardsIssued(ctx, result); err != nil {
			logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to queue reward notification")
		}
	}
	return result, nil
}

func (l *MembershipLedger) creditMember(ctx context.Context, tx MembershipStore, projectID, userID uint, reward RewardSchedule) (MemberCredit, error) {
	profile, err := tx.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return MemberCredit{}, persistenceErr("credit member", fmt.Errorf("profile %d missing for member of project %d", userID, projectID))
	}
	if err != nil {
		return MemberCredit{}, err
	}

	if err := tx.CreditProfile(ctx, userID, reward); err != nil {
		if errors.Is(err, ErrNotFound) {
			return MemberCredit{}, persistenceErr("credit member", fmt.Errorf("profile %d vanished during credit", userID))
		}
		return MemberCredit{}, err
	}

	if err := tx.RecordGrant(ctx, &models.RewardGrant{
		ProjectID: projectID,
		UserID:    userID,
		XP:        reward.XP,
		Bits:      reward.Bits,
		Bytes:     reward.Bytes,
	}); err != nil {
		return MemberCredit{}, err
	}

	before := profile.ExperiencePoints
	after := before + reward.XP
	return MemberCredit{
		UserID:      userID,
		XPBefore:    before,
		XPAfter:     after,
		LevelBefore: levelcurve.LevelFromXP(before),
		LevelAfter:  levelcurve.LevelFromXP(after),
	}, nil
}

func (l *MembershipLedger) recordIssued(result *CompletionResult) {
	n := float64(len(result.Credits))
	metrics.RewardXPIssued.Add(n * float64(result.Reward.XP))
	metrics.RewardBitsIssued.Add(n * float64(result.Reward.Bits))
	metrics.RewardBytesIssued.Add(n * float64(result.Reward.Bytes))
	for _, c := range result.Credits {
		metrics.LevelUps.Add(float64(c.LevelAfter - c.LevelBefore))
	}
}

// DeleteProject removes the project and all of its memberships.
func (l *MembershipLedger) DeleteProject(ctx context.Context, projectID uint) error {
	err := l.store.Transaction(ctx, func(tx MembershipStore) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return err
		}
		deleted, err := tx.DeleteProject(ctx, projectID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})

	metrics.ObserveOperation("delete", outcome(err))
	if err == nil {
		logger.Info().Uint("project_id", projectID).Msg("project deleted")
	}
	return err
}

// ListMembers returns the project's members with their profiles.
func (l *MembershipLedger) ListMembers(ctx context.Context, projectID uint) ([]models.ProjectMember, error) {
	if _, err := l.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return l.store.ListMemberships(ctx, projectID)
}

// GetMembership returns the user's membership, or nil if there is none.
func (l *MembershipLedger) GetMembership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	return l.store.GetMembership(ctx, projectID, userID)
}

// outcome turns an operation error into a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, ErrNotMember):
		return "not_member"
	case errors.Is(err, ErrProjectNotOngoing):
		return "not_ongoing"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	case IsPersistenceFailure(err):
		return "persistence_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
