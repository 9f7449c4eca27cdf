package service

import (
	"context"
	"testing"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kycRequest() *KYCSubmitRequest {
	return &KYCSubmitRequest{DocType: "passport", DocNumber: " P123 ", FrontImage: "front.png"}
}

func TestKYCReviewFlow(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, nil)

	status, err := f.kyc.Status(u.ID)
	require.NoError(t, err)
	assert.False(t, status.Verified)
	assert.Nil(t, status.Submission)

	first, err := f.kyc.Submit(u.ID, kycRequest())
	require.NoError(t, err)
	assert.Equal(t, models.KYCPending, first.Status)
	assert.Equal(t, "P123", first.DocNumber)

	_, err = f.kyc.Submit(u.ID, kycRequest())
	assert.ErrorIs(t, err, ErrKYCPendingExists)

	_, err = f.kyc.Reject(adminID, first.ID, " ")
	assert.ErrorIs(t, err, ErrRejectReason)
	rejected, err := f.kyc.Reject(adminID, first.ID, "blurry")
	require.NoError(t, err)
	assert.Equal(t, models.KYCRejected, rejected.Status)

	_, err = f.kyc.Approve(adminID, first.ID)
	assert.ErrorIs(t, err, repository.ErrKYCAlreadyReviewed)

	second, err := f.kyc.Submit(u.ID, kycRequest())
	require.NoError(t, err)
	approved, err := f.kyc.Approve(adminID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCApproved, approved.Status)
	require.NotNil(t, approved.User)
	assert.True(t, approved.User.KYCVerified)

	status, err = f.kyc.Status(u.ID)
	require.NoError(t, err)
	assert.True(t, status.Verified)
	assert.Equal(t, second.ID, status.Submission.ID)

	_, err = f.kyc.Submit(u.ID, kycRequest())
	assert.ErrorIs(t, err, ErrKYCAlreadyVerified)

	stats, err := f.kyc.Stats()
	require.NoError(t, err)
	assert.Equal(t, KYCStats{Total: 2, Approved: 1, Rejected: 1}, *stats)

	subs, total, err := f.kyc.List(repository.KYCFilter{Status: models.KYCApproved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, second.ID, subs[0].ID)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	overview := NewOverviewService(f.users, repository.NewKYCRepository(f.db), f.trades, f.wallets, f.ibRepo)

	u := f.user(t, nil)
	f.user(t, nil)
	_, err := f.kyc.Submit(u.ID, kycRequest())
	require.NoError(t, err)

	acct := f.account(t, u, "1000")
	f.openAt(t, acct, economics.SideBuy, "1", "2000")
	_, err = f.trade.AdminCreate(ctx, adminID, &CreateTradeRequest{
		TradingAccountID: acct.ID, Symbol: "XAUUSD", Side: economics.SideBuy, OrderType: models.OrderTypeLimit,
		Quantity: dec("1"), OpenPrice: dp("1990"),
	})
	require.NoError(t, err)

	pm, err := f.payments.Create(bankRequest())
	require.NoError(t, err)
	dep, err := f.wallet.Deposit(ctx, u.ID, &FundsRequest{Amount: dec("250"), PaymentMethodID: pm.ID})
	require.NoError(t, err)
	_, err = f.wallet.Process(ctx, adminID, dep.ID, &ProcessRequest{Approve: true})
	require.NoError(t, err)
	_, err = f.wallet.Withdraw(ctx, u.ID, &FundsRequest{Amount: dec("50"), PaymentMethodID: pm.ID})
	require.NoError(t, err)

	got, err := overview.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Users)
	assert.Equal(t, int64(2), got.NewUsersToday)
	assert.Equal(t, int64(1), got.KYCPending)
	assert.Equal(t, int64(1), got.OpenTrades)
	assert.Equal(t, int64(1), got.PendingTrades)
	assert.True(t, dec("250").Equal(got.TotalDeposits))
	assert.True(t, got.TotalWithdrawals.IsZero())
	assert.Equal(t, int64(1), got.PendingTransactions)
	assert.True(t, got.IBCommissions.IsZero())
}
