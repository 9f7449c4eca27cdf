package service

import (
	"testing"

	"github.com/brokerdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) updateIBSettings(t *testing.T, edit func(s *models.IBSettings)) {
	t.Helper()
	s, err := f.ib.Settings()
	require.NoError(t, err)
	edit(s)
	_, err = f.ib.UpdateSettings(s)
	require.NoError(t, err)
}

func TestIBApplyGuards(t *testing.T) {
	f := newFixture(t)

	u := f.user(t, nil)
	p, err := f.ib.Apply(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IBStatusPending, p.Status)
	assert.Nil(t, p.ReferralCode)

	_, err = f.ib.Apply(u.ID)
	assert.ErrorIs(t, err, ErrIBAlreadyApplied)

	f.updateIBSettings(t, func(s *models.IBSettings) { s.IBRequirements.KYCRequired = true })
	_, err = f.ib.Apply(f.user(t, nil).ID)
	assert.ErrorIs(t, err, ErrIBKYCRequired)

	f.updateIBSettings(t, func(s *models.IBSettings) { s.AllowNewApplications = false })
	_, err = f.ib.Apply(f.user(t, nil).ID)
	assert.ErrorIs(t, err, ErrIBProgrammeClosed)

	s, err := f.ib.Settings()
	require.NoError(t, err)
	s.CommissionSettings.MinWithdrawalAmount = dec("-1")
	_, err = f.ib.UpdateSettings(s)
	assert.Error(t, err)
}

func TestIBAutoApprove(t *testing.T) {
	f := newFixture(t)
	f.updateIBSettings(t, func(s *models.IBSettings) { s.AutoApprove = true })

	p, err := f.ib.Apply(f.user(t, nil).ID)
	require.NoError(t, err)
	assert.Equal(t, models.IBStatusActive, p.Status)
	require.NotNil(t, p.ReferralCode)
	assert.NotEmpty(t, *p.ReferralCode)
	assert.NotNil(t, p.ApprovedAt)
}

func TestIBLifecycle(t *testing.T) {
	f := newFixture(t)
	plan, err := f.ib.CreatePlan(&PlanRequest{
		Name: "Gold", MaxLevels: 3, CommissionType: models.IBCommissionPercentage,
		LevelCommissions: models.LevelCommissions{Level1: dec("0.01")},
	})
	require.NoError(t, err)
	assert.True(t, plan.IsActive)

	inactive, err := f.ib.CreatePlan(&PlanRequest{Name: "Old", MaxLevels: 1, CommissionType: models.IBCommissionPerLot, IsActive: new(bool)})
	require.NoError(t, err)

	p, err := f.ib.Apply(f.user(t, nil).ID)
	require.NoError(t, err)

	_, err = f.ib.Approve(p.ID, &inactive.ID)
	assert.ErrorIs(t, err, ErrIBInvalidPlan)

	approved, err := f.ib.Approve(p.ID, &plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IBStatusActive, approved.Status)
	require.NotNil(t, approved.ReferralCode)
	require.NotNil(t, approved.PlanID)
	assert.Equal(t, plan.ID, *approved.PlanID)
	code := *approved.ReferralCode

	_, err = f.ib.Approve(p.ID, nil)
	assert.ErrorIs(t, err, ErrIBInvalidStatus)

	_, err = f.ib.Block(p.ID, "  ")
	assert.ErrorIs(t, err, ErrIBReasonRequired)
	blocked, err := f.ib.Block(p.ID, "fraud")
	require.NoError(t, err)
	assert.Equal(t, models.IBStatusBlocked, blocked.Status)
	assert.Equal(t, "fraud", blocked.BlockReason)

	_, err = f.ib.Suspend(p.ID, "")
	assert.ErrorIs(t, err, ErrIBInvalidStatus)

	reinstated, err := f.ib.Approve(p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.IBStatusActive, reinstated.Status)
	assert.Equal(t, code, *reinstated.ReferralCode)
	assert.Empty(t, reinstated.BlockReason)

	suspended, err := f.ib.Suspend(p.ID, "review")
	require.NoError(t, err)
	assert.Equal(t, models.IBStatusSuspended, suspended.Status)

	dash, err := f.ib.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.Total)
	assert.Equal(t, int64(1), dash.ByStatus[models.IBStatusSuspended])
	assert.True(t, dash.TotalCommissions.IsZero())
}

func TestIBPlanValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  PlanRequest
	}{
		{"too many levels", PlanRequest{Name: "x", MaxLevels: 6, CommissionType: models.IBCommissionPerLot}},
		{"no levels", PlanRequest{Name: "x", MaxLevels: 0, CommissionType: models.IBCommissionPerLot}},
		{"bad type", PlanRequest{Name: "x", MaxLevels: 1, CommissionType: "FLAT"}},
		{"negative rate", PlanRequest{Name: "x", MaxLevels: 2, CommissionType: models.IBCommissionPerLot, LevelCommissions: models.LevelCommissions{Level2: dec("-1")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.ib.CreatePlan(&req)
			assert.ErrorIs(t, err, ErrIBInvalidPlan)
		})
	}
}

func TestIBSingleDefaultPlan(t *testing.T) {
	f := newFixture(t)
	first, err := f.ib.CreatePlan(&PlanRequest{Name: "A", MaxLevels: 1, CommissionType: models.IBCommissionPerLot, IsDefault: true})
	require.NoError(t, err)
	second, err := f.ib.CreatePlan(&PlanRequest{Name: "B", MaxLevels: 1, CommissionType: models.IBCommissionPerLot, IsDefault: true})
	require.NoError(t, err)

	plans, err := f.ib.ListPlans()
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, first.ID, plans[0].ID)
	assert.False(t, plans[0].IsDefault)
	assert.Equal(t, second.ID, plans[1].ID)
	assert.True(t, plans[1].IsDefault)
}
