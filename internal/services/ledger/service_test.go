package ledger

import (
	"context"
	"testing"

	"qirsh/internal/models"
	"qirsh/internal/repositories"
	"qirsh/internal/repositories/cache"
	"qirsh/internal/services/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) GetOrCreate(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockRepo) GetByOwnerID(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockRepo) GetByID(ctx context.Context, walletID uint) (*models.Wallet, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockRepo) SetFrozen(ctx context.Context, ownerID uint, frozen bool, reason string) (*models.Wallet, error) {
	args := m.Called(ctx, ownerID, frozen, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockRepo) RecordPending(ctx context.Context, req repositories.PendingRequest) (*models.WalletTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockRepo) SetExternalID(ctx context.Context, transactionID uint, externalID string) error {
	args := m.Called(ctx, transactionID, externalID)
	return args.Error(0)
}

func (m *MockRepo) Commit(ctx context.Context, transactionID uint, outcome repositories.CommitOutcome) (*models.WalletTransaction, bool, error) {
	args := m.Called(ctx, transactionID, outcome)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.WalletTransaction), args.Bool(1), args.Error(2)
}

func (m *MockRepo) CommitImmediate(ctx context.Context, req repositories.ImmediateRequest) (*models.WalletTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockRepo) Adjust(ctx context.Context, req repositories.AdjustRequest) (*models.WalletTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockRepo) GetTransactionByID(ctx context.Context, id uint) (*models.WalletTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockRepo) GetTransactionByNumber(ctx context.Context, number string) (*models.WalletTransaction, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockRepo) ListTransactions(ctx context.Context, walletID uint, filter repositories.TransactionFilter) ([]models.WalletTransaction, int64, error) {
	args := m.Called(ctx, walletID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepo) GetWalletStats(ctx context.Context) (*repositories.WalletStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.WalletStats), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntention(ctx context.Context, req gateway.IntentionRequest) (*gateway.IntentionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.IntentionResult), args.Error(1)
}

func (m *MockGateway) QueryStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusResult), args.Error(1)
}

func (m *MockGateway) ParseCallback(raw []byte) (*gateway.Callback, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Callback), args.Error(1)
}

func (m *MockGateway) VerifySignature(fields map[string]interface{}, signature string) bool {
	args := m.Called(fields, signature)
	return args.Bool(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetWallet(ctx context.Context, ownerID uint) (*models.Wallet, bool, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Wallet), args.Bool(1), args.Error(2)
}

func (m *MockCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockCache) InvalidateWallet(ctx context.Context, ownerID uint) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *MockCache) PublishTransactionEvent(ctx context.Context, event cache.TransactionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestService(repo *MockRepo, gw *MockGateway, c *MockCache) Service {
	return NewService(repo, gw, c, Config{}, &NoopMetricsCollector{})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testWallet(balance string) *models.Wallet {
	return &models.Wallet{ID: 7, OwnerID: 42, Balance: dec(balance), Currency: "EGP"}
}

func expectAfterTerminal(repo *MockRepo, c *MockCache, wallet *models.Wallet) {
	repo.On("GetByID", mock.Anything, wallet.ID).Return(wallet, nil)
	c.On("InvalidateWallet", mock.Anything, wallet.OwnerID).Return(nil)
	c.On("PublishTransactionEvent", mock.Anything, mock.Anything).Return(nil)
}

func TestInitiateDeposit_Success(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)
	wallet := testWallet("0")

	pending := &models.WalletTransaction{
		ID: 11, TransactionNumber: "WTX-2026-000001", WalletID: wallet.ID,
		Type: models.TransactionTypeDeposit, Status: models.TransactionStatusPending,
		Amount: dec("100"),
	}

	repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil)
	repo.On("RecordPending", mock.Anything, mock.MatchedBy(func(req repositories.PendingRequest) bool {
		return req.WalletID == wallet.ID &&
			req.Type == models.TransactionTypeDeposit &&
			req.Amount.Equal(dec("100"))
	})).Return(pending, nil)
	gw.On("CreateIntention", mock.Anything, mock.MatchedBy(func(req gateway.IntentionRequest) bool {
		return req.CorrelationID == "WTX-2026-000001" && req.Currency == "EGP"
	})).Return(&gateway.IntentionResult{ExternalID: "ext-9", CheckoutURL: "https://pay/x"}, nil)
	repo.On("SetExternalID", mock.Anything, uint(11), "ext-9").Return(nil)

	result, err := svc.InitiateDeposit(context.Background(), 42, dec("100"), gateway.MethodCard, gateway.Customer{})

	require.NoError(t, err)
	assert.Equal(t, "WTX-2026-000001", result.TransactionNumber)
	assert.Equal(t, "https://pay/x", result.CheckoutURL)
	assert.Equal(t, models.TransactionStatusPending, result.Status)
	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestInitiateDeposit_FrozenWallet(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)

	repo.On("GetOrCreate", mock.Anything, uint(42)).Return(testWallet("0"), nil)
	repo.On("RecordPending", mock.Anything, mock.Anything).Return(nil, repositories.ErrWalletFrozen)

	_, err := svc.InitiateDeposit(context.Background(), 42, dec("100"), gateway.MethodCard, gateway.Customer{})

	assert.ErrorIs(t, err, repositories.ErrWalletFrozen)
	gw.AssertNotCalled(t, "CreateIntention", mock.Anything, mock.Anything)
}

func TestInitiateDeposit_GatewayFailureFailsTransaction(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)
	wallet := testWallet("0")

	pending := &models.WalletTransaction{
		ID: 12, TransactionNumber: "WTX-2026-000002", WalletID: wallet.ID,
		Type: models.TransactionTypeDeposit, Status: models.TransactionStatusPending,
	}

	repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil)
	repo.On("RecordPending", mock.Anything, mock.Anything).Return(pending, nil)
	gw.On("CreateIntention", mock.Anything, mock.Anything).
		Return(nil, &gateway.Error{Op: "create-intention", StatusCode: 502, Message: "bad gateway"})
	repo.On("Commit", mock.Anything, uint(12), mock.MatchedBy(func(o repositories.CommitOutcome) bool {
		return o.Status == models.TransactionStatusFailed && o.FailureReason != ""
	})).Return(pending, true, nil)

	_, err := svc.InitiateDeposit(context.Background(), 42, dec("100"), gateway.MethodCard, gateway.Customer{})

	assert.ErrorIs(t, err, ErrDepositInitFailed)
	repo.AssertExpectations(t)
}

func TestProcessPurchase_Success(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)
	wallet := testWallet("130")

	record := &models.WalletTransaction{
		ID: 20, TransactionNumber: "WTX-2026-000003", WalletID: wallet.ID,
		Type: models.TransactionTypePurchase, Status: models.TransactionStatusCompleted,
		Amount: dec("50"), BalanceBefore: dec("130"), BalanceAfter: dec("80"),
	}

	repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil)
	repo.On("CommitImmediate", mock.Anything, mock.MatchedBy(func(req repositories.ImmediateRequest) bool {
		return req.Type == models.TransactionTypePurchase && req.Amount.Equal(dec("50"))
	})).Return(record, nil)
	expectAfterTerminal(repo, c, wallet)

	result, err := svc.ProcessPurchase(context.Background(), 42, dec("50"), "order", "ORD-9")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "WTX-2026-000003", result.TransactionNumber)
	assert.True(t, result.NewBalance.Equal(dec("80")))
}

func TestProcessPurchase_InsufficientBalance(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)
	wallet := testWallet("30")

	repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil)
	repo.On("CommitImmediate", mock.Anything, mock.Anything).Return(nil, repositories.ErrInsufficientBalance)

	result, err := svc.ProcessPurchase(context.Background(), 42, dec("50"), "order", "ORD-9")

	// An expected business outcome, not an error.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.True(t, result.NewBalance.Equal(dec("30")))
	assert.Equal(t, "insufficient balance", result.ErrorMessage)
	c.AssertNotCalled(t, "PublishTransactionEvent", mock.Anything, mock.Anything)
}

func TestProcessPurchase_FrozenWallet(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)
	wallet := testWallet("100")
	wallet.IsFrozen = true

	repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil)
	repo.On("CommitImmediate", mock.Anything, mock.Anything).Return(nil, repositories.ErrWalletFrozen)

	result, err := svc.ProcessPurchase(context.Background(), 42, dec("50"), "order", "ORD-9")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "wallet is frozen", result.ErrorMessage)
}

func TestAdjustBalance(t *testing.T) {
	tests := []struct {
		name      string
		amount    decimal.Decimal
		reason    string
		setupMock func(*MockRepo, *MockCache)
		wantErr   error
	}{
		{
			name:    "missing reason rejected before any mutation",
			amount:  dec("10"),
			reason:  "   ",
			wantErr: ErrReasonRequired,
		},
		{
			name:   "negative result rejected",
			amount: dec("-500"),
			reason: "chargeback correction",
			setupMock: func(repo *MockRepo, c *MockCache) {
				repo.On("GetOrCreate", mock.Anything, uint(42)).Return(testWallet("100"), nil)
				repo.On("Adjust", mock.Anything, mock.Anything).Return(nil, repositories.ErrNegativeBalance)
			},
			wantErr: repositories.ErrNegativeBalance,
		},
		{
			name:   "successful credit",
			amount: dec("25"),
			reason: "goodwill credit",
			setupMock: func(repo *MockRepo, c *MockCache) {
				wallet := testWallet("100")
				record := &models.WalletTransaction{
					ID: 30, TransactionNumber: "WTX-2026-000004", WalletID: wallet.ID,
					Type: models.TransactionTypeAdjustment, Status: models.TransactionStatusCompleted,
					Amount: dec("25"), BalanceBefore: dec("100"), BalanceAfter: dec("125"),
				}
				repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil)
				repo.On("Adjust", mock.Anything, mock.MatchedBy(func(req repositories.AdjustRequest) bool {
					return req.SignedAmount.Equal(dec("25")) && req.Reason == "goodwill credit" && req.ActorID == 1
				})).Return(record, nil)
				expectAfterTerminal(repo, c, wallet)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
			svc := newTestService(repo, gw, c)
			if tt.setupMock != nil {
				tt.setupMock(repo, c)
			}

			result, err := svc.AdjustBalance(context.Background(), 42, tt.amount, tt.reason, 1)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.PreviousBalance.Equal(dec("100")))
			assert.True(t, result.NewBalance.Equal(dec("125")))
			repo.AssertExpectations(t)
		})
	}
}

func TestSyncTransactionStatus(t *testing.T) {
	extID := "ext-55"

	t.Run("already resolved is informational", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		repo.On("GetTransactionByID", mock.Anything, uint(5)).Return(&models.WalletTransaction{
			ID: 5, Status: models.TransactionStatusCompleted, BalanceAfter: dec("200"),
		}, nil)

		result, err := svc.SyncTransactionStatus(context.Background(), 5)

		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, models.TransactionStatusCompleted, result.Status)
		assert.True(t, result.NewBalance.Equal(dec("200")))
		gw.AssertNotCalled(t, "QueryStatus", mock.Anything, mock.Anything)
	})

	t.Run("no external id cannot verify yet", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		repo.On("GetTransactionByID", mock.Anything, uint(5)).Return(&models.WalletTransaction{
			ID: 5, Status: models.TransactionStatusPending,
		}, nil)

		result, err := svc.SyncTransactionStatus(context.Background(), 5)

		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Equal(t, models.TransactionStatusPending, result.Status)
	})

	t.Run("gateway unreachable cannot verify yet", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		repo.On("GetTransactionByID", mock.Anything, uint(5)).Return(&models.WalletTransaction{
			ID: 5, Status: models.TransactionStatusPending, ExternalTransactionID: &extID,
		}, nil)
		gw.On("QueryStatus", mock.Anything, extID).Return(nil, &gateway.Error{Op: "query-status"})

		result, err := svc.SyncTransactionStatus(context.Background(), 5)

		require.NoError(t, err)
		assert.False(t, result.Verified)
		repo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway still pending leaves transaction pending", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		repo.On("GetTransactionByID", mock.Anything, uint(5)).Return(&models.WalletTransaction{
			ID: 5, Status: models.TransactionStatusPending, ExternalTransactionID: &extID,
		}, nil)
		gw.On("QueryStatus", mock.Anything, extID).Return(&gateway.StatusResult{Pending: true}, nil)

		result, err := svc.SyncTransactionStatus(context.Background(), 5)

		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, models.TransactionStatusPending, result.Status)
		repo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway success commits deposit", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)
		wallet := testWallet("100")

		pending := &models.WalletTransaction{
			ID: 5, WalletID: wallet.ID, Status: models.TransactionStatusPending,
			Type: models.TransactionTypeDeposit, ExternalTransactionID: &extID,
		}
		resolved := &models.WalletTransaction{
			ID: 5, WalletID: wallet.ID, TransactionNumber: "WTX-2026-000005",
			Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted,
			Amount: dec("100"), BalanceAfter: dec("200"),
		}

		repo.On("GetTransactionByID", mock.Anything, uint(5)).Return(pending, nil)
		gw.On("QueryStatus", mock.Anything, extID).Return(&gateway.StatusResult{Success: true, AmountCents: 10000}, nil)
		repo.On("Commit", mock.Anything, uint(5), mock.MatchedBy(func(o repositories.CommitOutcome) bool {
			return o.Status == models.TransactionStatusCompleted
		})).Return(resolved, true, nil)
		expectAfterTerminal(repo, c, wallet)

		result, err := svc.SyncTransactionStatus(context.Background(), 5)

		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, models.TransactionStatusCompleted, result.Status)
		assert.True(t, result.NewBalance.Equal(dec("200")))
	})

	t.Run("gateway failure commits FAILED with reason", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)
		wallet := testWallet("100")

		pending := &models.WalletTransaction{
			ID: 5, WalletID: wallet.ID, Status: models.TransactionStatusPending,
			Type: models.TransactionTypeDeposit, ExternalTransactionID: &extID,
		}
		failed := &models.WalletTransaction{
			ID: 5, WalletID: wallet.ID, Status: models.TransactionStatusFailed,
			Type: models.TransactionTypeDeposit, FailureReason: "card declined",
			BalanceAfter: dec("100"),
		}

		repo.On("GetTransactionByID", mock.Anything, uint(5)).Return(pending, nil)
		gw.On("QueryStatus", mock.Anything, extID).Return(&gateway.StatusResult{Success: false, ErrorMessage: "card declined"}, nil)
		repo.On("Commit", mock.Anything, uint(5), mock.MatchedBy(func(o repositories.CommitOutcome) bool {
			return o.Status == models.TransactionStatusFailed && o.FailureReason == "card declined"
		})).Return(failed, true, nil)
		expectAfterTerminal(repo, c, wallet)

		result, err := svc.SyncTransactionStatus(context.Background(), 5)

		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusFailed, result.Status)
	})
}

func TestCompleteManually(t *testing.T) {
	t.Run("rejects non-deposit", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		repo.On("GetTransactionByID", mock.Anything, uint(8)).Return(&models.WalletTransaction{
			ID: 8, Type: models.TransactionTypePurchase, Status: models.TransactionStatusPending,
		}, nil)

		_, err := svc.CompleteManually(context.Background(), 8, 1)
		assert.ErrorIs(t, err, ErrNotPendingDeposit)
	})

	t.Run("rejects already resolved", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		repo.On("GetTransactionByID", mock.Anything, uint(8)).Return(&models.WalletTransaction{
			ID: 8, Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted,
		}, nil)

		_, err := svc.CompleteManually(context.Background(), 8, 1)
		assert.ErrorIs(t, err, ErrTransactionResolved)
	})

	t.Run("lost race reports already resolved", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)

		pending := &models.WalletTransaction{
			ID: 8, Type: models.TransactionTypeDeposit, Status: models.TransactionStatusPending,
		}
		repo.On("GetTransactionByID", mock.Anything, uint(8)).Return(pending, nil)
		// A webhook resolved it between the read and the commit.
		repo.On("Commit", mock.Anything, uint(8), mock.Anything).Return(&models.WalletTransaction{
			ID: 8, Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted,
		}, false, nil)

		_, err := svc.CompleteManually(context.Background(), 8, 1)
		assert.ErrorIs(t, err, ErrTransactionResolved)
	})

	t.Run("completes pending deposit and records operator", func(t *testing.T) {
		repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
		svc := newTestService(repo, gw, c)
		wallet := testWallet("150")

		pending := &models.WalletTransaction{
			ID: 8, WalletID: wallet.ID, Type: models.TransactionTypeDeposit,
			Status: models.TransactionStatusPending, Amount: dec("50"),
		}
		resolved := &models.WalletTransaction{
			ID: 8, WalletID: wallet.ID, TransactionNumber: "WTX-2026-000006",
			Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted,
			Amount: dec("50"), BalanceAfter: dec("200"),
		}

		repo.On("GetTransactionByID", mock.Anything, uint(8)).Return(pending, nil)
		repo.On("Commit", mock.Anything, uint(8), mock.MatchedBy(func(o repositories.CommitOutcome) bool {
			return o.Status == models.TransactionStatusCompleted && o.ActorID == 9
		})).Return(resolved, true, nil)
		expectAfterTerminal(repo, c, wallet)

		got, err := svc.CompleteManually(context.Background(), 8, 9)

		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusCompleted, got.Status)
		repo.AssertExpectations(t)
	})
}

func TestGetWallet_CacheAside(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)
	wallet := testWallet("75")

	t.Run("cache hit skips repository", func(t *testing.T) {
		c.On("GetWallet", mock.Anything, uint(42)).Return(wallet, true, nil).Once()

		got, err := svc.GetWallet(context.Background(), 42)

		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(dec("75")))
		repo.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
	})

	t.Run("cache miss falls through and repopulates", func(t *testing.T) {
		c.On("GetWallet", mock.Anything, uint(42)).Return(nil, false, nil).Once()
		repo.On("GetOrCreate", mock.Anything, uint(42)).Return(wallet, nil).Once()
		c.On("SetWallet", mock.Anything, wallet).Return(nil).Once()

		got, err := svc.GetWallet(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, uint(42), got.OwnerID)
		repo.AssertExpectations(t)
	})
}

func TestListTransactions_NoWalletYet(t *testing.T) {
	repo, gw, c := new(MockRepo), new(MockGateway), new(MockCache)
	svc := newTestService(repo, gw, c)

	repo.On("GetByOwnerID", mock.Anything, uint(42)).Return(nil, repositories.ErrWalletNotFound)

	records, total, err := svc.ListTransactions(context.Background(), 42, ListFilter{})

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, total)
}
