package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/repository/postgres"
	"github.com/amanarcarbon/carbonmart/internal/testutil"
)

// fakeProvider records intents instead of calling Stripe
type fakeProvider struct {
	intentSeq  int
	created    []string
	currencies []string
	cancelled  []string
	createErr  error
}

func (p *fakeProvider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, transactionID uuid.UUID) (PaymentIntent, error) {
	if p.createErr != nil {
		return PaymentIntent{}, p.createErr
	}

	p.intentSeq++
	id := fmt.Sprintf("pi_fake_%d", p.intentSeq)
	p.created = append(p.created, id)
	p.currencies = append(p.currencies, currency)
	return PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (p *fakeProvider) CancelIntent(ctx context.Context, intentID string) error {
	p.cancelled = append(p.cancelled, intentID)
	return nil
}

var userSeq int

func mustCreateUser(t *testing.T, storage repository.Storage) models.User {
	t.Helper()

	userSeq++
	user, err := storage.User().CreateUser(t.Context(),
		fmt.Sprintf("buyer%d@example.com", userSeq), "Test Buyer", models.RoleIndividual, "hashedpassword")
	require.NoError(t, err)
	return user
}

func mustCreateVerifiedProject(t *testing.T, storage repository.Storage, estimatedCredits int64) models.CarbonProject {
	t.Helper()

	owner := mustCreateUser(t, storage)
	project, err := storage.Project().CreateProject(t.Context(), models.CarbonProject{
		OwnerID:          owner.ID,
		Title:            "Wind Farm",
		Description:      "Community wind turbines",
		Location:         "Jutland",
		Country:          "DK",
		ProjectType:      models.ProjectTypeRenewableEnergy,
		EstimatedCredits: estimatedCredits,
		PricePerCredit:   decimal.NewFromInt(10),
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	project, err = storage.Project().SetVerified(t.Context(), project.ID, time.Now())
	require.NoError(t, err)

	issued, err := storage.Credit().IssueCredits(t.Context(), project, project.StartDate.Year())
	require.NoError(t, err)
	require.Equal(t, estimatedCredits, issued)

	return project
}

func TestMarketService(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Build a service over a transaction that rolls back at test end
	withService := func(t *testing.T, fn func(service *MarketService, provider *fakeProvider, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			provider := &fakeProvider{}
			service := NewService(Config{HoldTTL: 30 * time.Minute}, provider, storage, nil)
			fn(service, provider, storage)
		})
	}

	t.Run("Checkout", func(t *testing.T) {
		t.Run("checkout ok", func(t *testing.T) {
			withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
				buyer := mustCreateUser(t, storage)
				project := mustCreateVerifiedProject(t, storage, 10)

				result, err := service.Checkout(t.Context(), buyer, project.ID, 4, "usd")

				require.NoError(t, err)
				require.NotZero(t, result.TransactionID)
				require.NotEmpty(t, result.ClientSecret)
				require.True(t, decimal.NewFromInt(40).Equal(result.TotalAmount))

				available, err := storage.Credit().CountAvailable(t.Context(), project.ID)
				require.NoError(t, err)
				require.Equal(t, int64(6), available, "reserved credits left the pool")

				transactions, err := storage.Transaction().ListByUser(t.Context(), buyer.ID, repository.ListTransactionsOpts{Limit: 10})
				require.NoError(t, err)
				require.Len(t, transactions, 1)
				require.Equal(t, models.TransactionStatusPending, transactions[0].Status)
				require.Equal(t, provider.created[0], transactions[0].StripePaymentID)
			})
		})

		t.Run("empty currency defaults to usd", func(t *testing.T) {
			withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
				buyer := mustCreateUser(t, storage)
				project := mustCreateVerifiedProject(t, storage, 10)

				result, err := service.Checkout(t.Context(), buyer, project.ID, 1, "")

				require.NoError(t, err)
				require.Equal(t, "usd", result.Currency)
				require.Equal(t, []string{"usd"}, provider.currencies, "the provider never sees an empty currency")

				transactions, err := storage.Transaction().ListByUser(t.Context(), buyer.ID, repository.ListTransactionsOpts{Limit: 10})
				require.NoError(t, err)
				require.Len(t, transactions, 1)
				require.Equal(t, "usd", transactions[0].Currency)
			})
		})

		t.Run("not enough credits", func(t *testing.T) {
			withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
				buyer := mustCreateUser(t, storage)
				project := mustCreateVerifiedProject(t, storage, 3)

				_, err := service.Checkout(t.Context(), buyer, project.ID, 5, "usd")

				require.ErrorIs(t, err, apperrors.ErrInsufficientCredits)
				require.Len(t, provider.cancelled, 1, "orphaned intent has to be cancelled")

				available, err := storage.Credit().CountAvailable(t.Context(), project.ID)
				require.NoError(t, err)
				require.Equal(t, int64(3), available, "failed reservation must not leak credits")

				transactions, err := storage.Transaction().ListByUser(t.Context(), buyer.ID, repository.ListTransactionsOpts{Limit: 10})
				require.NoError(t, err)
				require.Empty(t, transactions, "transaction row must roll back with the reservation")
			})
		})

		t.Run("project not listed", func(t *testing.T) {
			withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
				buyer := mustCreateUser(t, storage)
				owner := mustCreateUser(t, storage)
				project, err := storage.Project().CreateProject(t.Context(), models.CarbonProject{
					OwnerID:          owner.ID,
					Title:            "Pending Project",
					Description:      "Not yet verified",
					Location:         "Somewhere",
					Country:          "DE",
					ProjectType:      models.ProjectTypeReforestation,
					EstimatedCredits: 10,
					PricePerCredit:   decimal.NewFromInt(10),
					StartDate:        time.Now(),
				})
				require.NoError(t, err)

				_, err = service.Checkout(t.Context(), buyer, project.ID, 1, "usd")

				require.ErrorIs(t, err, apperrors.ErrProjectNotListed)
				require.Empty(t, provider.created, "no intent for unlisted projects")
			})
		})

		t.Run("provider down", func(t *testing.T) {
			withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
				buyer := mustCreateUser(t, storage)
				project := mustCreateVerifiedProject(t, storage, 10)
				provider.createErr = errors.New("stripe: connection refused")

				_, err := service.Checkout(t.Context(), buyer, project.ID, 1, "usd")

				require.Error(t, err)

				available, err := storage.Credit().CountAvailable(t.Context(), project.ID)
				require.NoError(t, err)
				require.Equal(t, int64(10), available, "nothing reserved when the intent fails")
			})
		})
	})

	t.Run("Settle succeeded", func(t *testing.T) {
		withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
			buyer := mustCreateUser(t, storage)
			project := mustCreateVerifiedProject(t, storage, 10)

			result, err := service.Checkout(t.Context(), buyer, project.ID, 3, "usd")
			require.NoError(t, err)

			event := ProviderEvent{ID: "evt_1", Type: EventPaymentSucceeded, IntentID: provider.created[0]}
			err = service.Settle(t.Context(), event)
			require.NoError(t, err)

			transaction, err := storage.Transaction().GetByStripePaymentID(t.Context(), provider.created[0])
			require.NoError(t, err)
			require.Equal(t, models.TransactionStatusCompleted, transaction.Status)
			require.Equal(t, result.TransactionID, transaction.ID)

			owned, err := storage.Credit().ListOwned(t.Context(), buyer.ID)
			require.NoError(t, err)
			require.Len(t, owned, 3, "reserved credits became the buyer's")

			profile, err := storage.Profile().GetByUserID(t.Context(), buyer.ID)
			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(3).Equal(profile.TotalOffset))

			summary, err := storage.Impact().Summarize(t.Context(), buyer.ID)
			require.NoError(t, err)
			require.True(t, summary.TotalOffset.Equal(profile.TotalOffset), "ledger and counter must agree")

			notifications, err := storage.Notification().ListByUser(t.Context(), buyer.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, notifications, 1)
			require.Equal(t, models.NotificationPaymentCompleted, notifications[0].Kind)

			t.Run("duplicate delivery is a no-op", func(t *testing.T) {
				err := service.Settle(t.Context(), event)
				require.NoError(t, err, "duplicates are acknowledged")

				profile, err := storage.Profile().GetByUserID(t.Context(), buyer.ID)
				require.NoError(t, err)
				require.True(t, decimal.NewFromInt(3).Equal(profile.TotalOffset), "no double crediting")

				owned, err := storage.Credit().ListOwned(t.Context(), buyer.ID)
				require.NoError(t, err)
				require.Len(t, owned, 3)
			})
		})
	})

	t.Run("Settle failed payment", func(t *testing.T) {
		withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
			buyer := mustCreateUser(t, storage)
			project := mustCreateVerifiedProject(t, storage, 5)

			_, err := service.Checkout(t.Context(), buyer, project.ID, 2, "usd")
			require.NoError(t, err)

			err = service.Settle(t.Context(), ProviderEvent{ID: "evt_2", Type: EventPaymentFailed, IntentID: provider.created[0]})
			require.NoError(t, err)

			transaction, err := storage.Transaction().GetByStripePaymentID(t.Context(), provider.created[0])
			require.NoError(t, err)
			require.Equal(t, models.TransactionStatusFailed, transaction.Status)

			available, err := storage.Credit().CountAvailable(t.Context(), project.ID)
			require.NoError(t, err)
			require.Equal(t, int64(5), available, "failed payment returns credits to the pool")
		})
	})

	t.Run("Settle unknown intent", func(t *testing.T) {
		withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
			err := service.Settle(t.Context(), ProviderEvent{ID: "evt_3", Type: EventPaymentSucceeded, IntentID: "pi_not_ours"})
			require.NoError(t, err, "foreign intents are acknowledged, not retried")
		})
	})

	t.Run("Settle unhandled type", func(t *testing.T) {
		withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
			err := service.Settle(t.Context(), ProviderEvent{ID: "evt_4", Type: "charge.refunded", IntentID: "pi_whatever"})
			require.NoError(t, err)
		})
	})

	t.Run("CancelExpired", func(t *testing.T) {
		withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
			buyer := mustCreateUser(t, storage)
			project := mustCreateVerifiedProject(t, storage, 5)

			_, err := service.Checkout(t.Context(), buyer, project.ID, 2, "usd")
			require.NoError(t, err)

			transaction, err := storage.Transaction().GetByStripePaymentID(t.Context(), provider.created[0])
			require.NoError(t, err)

			err = service.CancelExpired(t.Context(), transaction)
			require.NoError(t, err)

			cancelled, err := storage.Transaction().GetByStripePaymentID(t.Context(), provider.created[0])
			require.NoError(t, err)
			require.Equal(t, models.TransactionStatusCancelled, cancelled.Status)

			available, err := storage.Credit().CountAvailable(t.Context(), project.ID)
			require.NoError(t, err)
			require.Equal(t, int64(5), available)
			require.Contains(t, provider.cancelled, transaction.StripePaymentID)

			t.Run("settlement already won", func(t *testing.T) {
				err := service.CancelExpired(t.Context(), transaction)
				require.NoError(t, err, "already finalized transactions are left alone")
			})
		})
	})

	t.Run("Retire", func(t *testing.T) {
		withService(t, func(service *MarketService, provider *fakeProvider, storage repository.Storage) {
			buyer := mustCreateUser(t, storage)
			project := mustCreateVerifiedProject(t, storage, 3)

			_, err := service.Checkout(t.Context(), buyer, project.ID, 1, "usd")
			require.NoError(t, err)
			err = service.Settle(t.Context(), ProviderEvent{ID: "evt_5", Type: EventPaymentSucceeded, IntentID: provider.created[0]})
			require.NoError(t, err)

			owned, err := storage.Credit().ListOwned(t.Context(), buyer.ID)
			require.NoError(t, err)
			require.Len(t, owned, 1)

			retired, err := service.Retire(t.Context(), owned[0].ID, buyer)

			require.NoError(t, err)
			require.Equal(t, models.CreditStatusRetired, retired.Status)

			notifications, err := storage.Notification().ListByUser(t.Context(), buyer.ID, 10, 0)
			require.NoError(t, err)
			kinds := make([]string, 0, len(notifications))
			for _, n := range notifications {
				kinds = append(kinds, n.Kind)
			}
			require.Contains(t, kinds, models.NotificationCreditRetired)
		})
	})
}

// Two buyers race for the same inventory over real pool connections, so the
// row locks actually contend instead of queuing behind one transaction
func TestCheckoutConcurrent(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Checkouts commit, so build everything on the raw pool
	storage := postgres.NewStorage(pg.Pool)
	project := mustCreateVerifiedProject(t, storage, 5)

	buyers := []models.User{mustCreateUser(t, storage), mustCreateUser(t, storage)}

	// Separate service per goroutine: the fake provider is not thread safe
	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, buyer := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			service := NewService(Config{HoldTTL: time.Minute}, &fakeProvider{}, storage, nil)
			_, errs[i] = service.Checkout(t.Context(), buyer, project.ID, 3, "usd")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrInsufficientCredits, "losing checkout has to fail on inventory, not on locks")
	}
	require.LessOrEqual(t, succeeded, 1, "5 credits cannot satisfy two buyers of 3 each")

	available, err := storage.Credit().CountAvailable(t.Context(), project.ID)
	require.NoError(t, err)

	reserved, err := storage.Credit().ListByProject(t.Context(), project.ID, models.CreditStatusReserved, 10, 0)
	require.NoError(t, err)

	require.Equal(t, int64(3*succeeded), int64(len(reserved)), "only the winning checkout keeps its reservation")
	require.Equal(t, int64(5-3*succeeded), available, "the loser's rollback returned every row")
}
