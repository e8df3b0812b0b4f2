package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bitbridge/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu      sync.Mutex
	results []*CompletionResult
	err     error
}

func (n *recordingNotifier) NotifyRewardsIssued(_ context.Context, result *CompletionResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
	return n.err
}

func newTestLedger(t *testing.T) (*MembershipLedger, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	return NewMembershipLedger(NewGormMembershipStore(db), notifier), db, notifier
}

func countMemberships(t *testing.T, db *gorm.DB, projectID, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&n).Error)
	return n
}

func TestLedger_JoinLeaveRoundTrip(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	user := createTestProfile(t, db, "alice", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	member, err := ledger.Join(ctx, project.ID, user.ID, "Dev")
	require.NoError(t, err)
	assert.Equal(t, "Dev", member.Role)
	assert.False(t, member.JoinedAt.IsZero())

	require.NoError(t, ledger.Leave(ctx, project.ID, user.ID))
	assert.Equal(t, int64(0), countMemberships(t, db, project.ID, user.ID))

	_, err = ledger.Join(ctx, project.ID, user.ID, "Dev")
	require.NoError(t, err, "re-join after leave must not report AlreadyMember")
	assert.Equal(t, int64(1), countMemberships(t, db, project.ID, user.ID))
}

func TestLedger_DoubleJoinKeepsFirstRole(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	user := createTestProfile(t, db, "alice", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	_, err := ledger.Join(ctx, project.ID, user.ID, "Dev")
	require.NoError(t, err)

	_, err = ledger.Join(ctx, project.ID, user.ID, "QA")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	member, err := ledger.GetMembership(ctx, project.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, "Dev", member.Role)
}

func TestLedger_JoinValidation(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	tests := []struct {
		name      string
		projectID uint
		userID    uint
		role      string
		want      error
	}{
		{name: "empty role", projectID: project.ID, userID: lead.ID, role: "", want: ErrInvalidRole},
		{name: "blank role", projectID: project.ID, userID: lead.ID, role: "   ", want: ErrInvalidRole},
		{name: "unknown project", projectID: 9999, userID: lead.ID, role: "Dev", want: ErrNotFound},
		{name: "unknown user", projectID: project.ID, userID: 9999, role: "Dev", want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Join(ctx, tt.projectID, tt.userID, tt.role)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, IsPersistenceFailure(err))
		})
	}
}

func TestLedger_JoinCompletedProject(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	late := createTestProfile(t, db, "late", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	_, err := ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)

	_, err = ledger.Join(ctx, project.ID, late.ID, "Dev")
	assert.ErrorIs(t, err, ErrProjectNotOngoing)
	assert.Equal(t, int64(0), countMemberships(t, db, project.ID, late.ID))
}

func TestLedger_JoinRejectsClosedAccounts(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	gone := createTestProfile(t, db, "gone", 0)
	disabled := createTestProfile(t, db, "disabled", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	require.NoError(t, NewUserService(db).Delete(ctx, lead.ID, gone.ID))
	require.NoError(t, db.Model(disabled).Update("is_active", false).Error)

	for _, userID := range []uint{gone.ID, disabled.ID} {
		_, err := ledger.Join(ctx, project.ID, userID, "Dev")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, int64(0), countMemberships(t, db, project.ID, userID))
	}

	result, err := ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.NotContains(t, result.MemberIDs(), gone.ID)
	assert.Equal(t, int64(0), reloadProfile(t, db, gone.ID).ExperiencePoints)
}

func TestLedger_ConcurrentJoinsCreateOneRow(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	user := createTestProfile(t, db, "alice", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Join(ctx, project.ID, user.ID, "Dev")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyMember)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), countMemberships(t, db, project.ID, user.ID))
}

func TestLedger_LeaveErrors(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	outsider := createTestProfile(t, db, "outsider", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	assert.ErrorIs(t, ledger.Leave(ctx, project.ID, outsider.ID), ErrNotMember)
	assert.ErrorIs(t, ledger.Leave(ctx, 9999, outsider.ID), ErrNotFound)
}

func TestLedger_CompleteProjectFansOutRewards(t *testing.T) {
	ledger, db, notifier := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	members := []*models.Profile{
		createTestProfile(t, db, "alice", 0),
		createTestProfile(t, db, "bob", 50),
		createTestProfile(t, db, "carol", 1000),
	}
	for _, m := range members {
		_, err := ledger.Join(ctx, project.ID, m.ID, "Dev")
		require.NoError(t, err)
	}

	result, err := ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, RewardSchedule{XP: 300, Bits: 200, Bytes: 3}, result.Reward)
	require.Len(t, result.Credits, 3)
	assert.ElementsMatch(t, []uint{members[0].ID, members[1].ID, members[2].ID}, result.MemberIDs())

	for _, m := range members {
		got := reloadProfile(t, db, m.ID)
		assert.Equal(t, m.ExperiencePoints+300, got.ExperiencePoints, "xp for %s", m.Username)
		assert.Equal(t, int64(200), got.BitsCurrency, "bits for %s", m.Username)
		assert.Equal(t, int64(3), got.BytesCurrency, "bytes for %s", m.Username)
	}

	// alice goes from level 1 to 3
	first := result.Credits[0]
	assert.Equal(t, members[0].ID, first.UserID)
	assert.Equal(t, 1, first.LevelBefore)
	assert.Equal(t, 3, first.LevelAfter)
	assert.True(t, first.LeveledUp())

	var stored models.Project
	require.NoError(t, db.First(&stored, project.ID).Error)
	assert.Equal(t, models.ProjectStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	var grants int64
	require.NoError(t, db.Model(&models.RewardGrant{}).Where("project_id = ?", project.ID).Count(&grants).Error)
	assert.Equal(t, int64(3), grants)

	require.Len(t, notifier.results, 1)
	assert.Equal(t, project.ID, notifier.results[0].ProjectID)

	_, err = ledger.CompleteProject(ctx, project.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	for _, m := range members {
		got := reloadProfile(t, db, m.ID)
		assert.Equal(t, m.ExperiencePoints+300, got.ExperiencePoints, "second completion must not pay %s", m.Username)
	}
	assert.Len(t, notifier.results, 1)
}

func TestLedger_CompleteProjectWithoutMembers(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	project := createTestProject(t, db, "empty", DifficultyExpert, lead.ID)

	result, err := ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Credits)
	assert.Equal(t, int64(1500), result.Reward.XP)
}

func TestLedger_CompleteUnknownProject(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.CompleteProject(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_CompletionRollsBackOnMissingProfile(t *testing.T) {
	ledger, db, notifier := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	alice := createTestProfile(t, db, "alice", 0)
	ghost := createTestProfile(t, db, "ghost", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	for _, p := range []*models.Profile{alice, ghost} {
		_, err := ledger.Join(ctx, project.ID, p.ID, "Dev")
		require.NoError(t, err)
	}
	require.NoError(t, db.Unscoped().Delete(&models.Profile{}, ghost.ID).Error)

	_, err := ledger.CompleteProject(ctx, project.ID)
	require.Error(t, err)
	assert.True(t, IsPersistenceFailure(err))
	assert.False(t, errors.Is(err, ErrNotFound))

	var stored models.Project
	require.NoError(t, db.First(&stored, project.ID).Error)
	assert.Equal(t, models.ProjectStatusOngoing, stored.Status)
	assert.Equal(t, int64(0), reloadProfile(t, db, alice.ID).ExperiencePoints)

	var grants int64
	require.NoError(t, db.Model(&models.RewardGrant{}).Count(&grants).Error)
	assert.Equal(t, int64(0), grants)
	assert.Empty(t, notifier.results)
}

func TestLedger_NotifierFailureDoesNotFailCompletion(t *testing.T) {
	ledger, db, notifier := newTestLedger(t)
	notifier.err = errors.New("queue down")
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)
	_, err := ledger.Join(ctx, project.ID, lead.ID, models.RoleProjectLead)
	require.NoError(t, err)

	result, err := ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, result.Credits, 1)
	assert.Equal(t, int64(300), reloadProfile(t, db, lead.ID).ExperiencePoints)
}

func TestLedger_LeaveAfterCompletionKeepsRewards(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	alice := createTestProfile(t, db, "alice", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyIntermediate, lead.ID)

	_, err := ledger.Join(ctx, project.ID, alice.ID, "Dev")
	require.NoError(t, err)
	_, err = ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)

	require.NoError(t, ledger.Leave(ctx, project.ID, alice.ID))

	got := reloadProfile(t, db, alice.ID)
	assert.Equal(t, int64(600), got.ExperiencePoints)
	assert.Equal(t, int64(400), got.BitsCurrency)
	assert.Equal(t, int64(6), got.BytesCurrency)
}

func TestLedger_DeleteProjectCascadesMemberships(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	alice := createTestProfile(t, db, "alice", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	for _, p := range []*models.Profile{lead, alice} {
		_, err := ledger.Join(ctx, project.ID, p.ID, "Dev")
		require.NoError(t, err)
	}
	_, err := ledger.CompleteProject(ctx, project.ID)
	require.NoError(t, err)

	require.NoError(t, ledger.DeleteProject(ctx, project.ID))

	var members, projects, grants int64
	require.NoError(t, db.Model(&models.ProjectMember{}).Where("project_id = ?", project.ID).Count(&members).Error)
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", project.ID).Count(&projects).Error)
	require.NoError(t, db.Model(&models.RewardGrant{}).Where("project_id = ?", project.ID).Count(&grants).Error)
	assert.Equal(t, int64(0), members)
	assert.Equal(t, int64(0), projects)
	assert.Equal(t, int64(2), grants, "reward grants outlive the project")
	assert.Equal(t, int64(300), reloadProfile(t, db, alice.ID).ExperiencePoints)

	assert.ErrorIs(t, ledger.DeleteProject(ctx, project.ID), ErrNotFound)
}

func TestLedger_ListMembers(t *testing.T) {
	ledger, db, _ := newTestLedger(t)
	ctx := context.Background()
	lead := createTestProfile(t, db, "lead", 0)
	alice := createTestProfile(t, db, "alice", 0)
	project := createTestProject(t, db, "bitbridge", DifficultyBeginner, lead.ID)

	_, err := ledger.Join(ctx, project.ID, lead.ID, models.RoleProjectLead)
	require.NoError(t, err)
	_, err = ledger.Join(ctx, project.ID, alice.ID, "Designer")
	require.NoError(t, err)

	members, err := ledger.ListMembers(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleProjectLead, members[0].Role)
	require.NotNil(t, members[1].Profile)
	assert.Equal(t, "alice", members[1].Profile.Username)

	_, err = ledger.ListMembers(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{ErrAlreadyMember, "already_member"},
		{ErrAlreadyCompleted, "already_completed"},
		{ErrNotMember, "not_member"},
		{ErrNotFound, "not_found"},
		{ErrProjectNotOngoing, "not_ongoing"},
		{persistenceErr("x", errors.New("disk full")), "persistence_failure"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, expected %q", tt.err, got, tt.want)
		}
	}
}
