package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/gateway"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/outbox"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/testsuite"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type fakeCardGateway struct {
	mu           sync.Mutex
	intentStatus string
	intents      int
	refunds      []string
	fail         bool
}

func (f *fakeCardGateway) CreateIntent(_ context.Context, _ decimal.Decimal, _ string) (*gateway.CardIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, gateway.ErrGatewayUnavailable
	}

	f.intents++
	return &gateway.CardIntent{
		ID:           fmt.Sprintf("pi_test_%d", f.intents),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", f.intents),
		Status:       f.intentStatus,
	}, nil
}

func (f *fakeCardGateway) Refund(_ context.Context, intentID string, _ decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return gateway.ErrGatewayUnavailable
	}

	f.refunds = append(f.refunds, intentID)
	return nil
}

type fakeMobileGateway struct {
	mu     sync.Mutex
	pushes int
	b2cs   int
	fail   bool
}

func (f *fakeMobileGateway) STKPush(_ context.Context, _ string, _ decimal.Decimal, _ string) (*gateway.STKPush, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, gateway.ErrGatewayUnavailable
	}

	f.pushes++
	return &gateway.STKPush{
		MerchantRequestID: fmt.Sprintf("mr-%d", f.pushes),
		CheckoutRequestID: fmt.Sprintf("cr-%d", f.pushes),
		ResponseCode:      "0",
	}, nil
}

func (f *fakeMobileGateway) B2CPayment(_ context.Context, _ string, _ decimal.Decimal, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return "", gateway.ErrGatewayUnavailable
	}

	f.b2cs++
	return fmt.Sprintf("conv-%d", f.b2cs), nil
}

type fakeSender struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeSender) SendReceiptEmail(_ context.Context, _ string, orderID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sends = append(f.sends, orderID)
	return nil
}

func (f *fakeSender) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sends)
}

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	Logger *zap.Logger

	OrderRepo    repository.OrderRepository
	CatalogRepo  repository.CatalogRepository
	PaymentRepo  repository.PaymentRepository
	TrackingRepo repository.TrackingRepository
	ReceiptRepo  repository.ReceiptRepository
	OutboxRepo   outbox.Repository

	Card   *fakeCardGateway
	Mobile *fakeMobileGateway
	Sender *fakeSender

	Redis *redis.Client

	Ledger        service.LedgerService
	Reconciler    service.ReconcilerService
	Tracking      service.TrackingService
	Receipts      service.ReceiptService
	Catalog       service.CatalogService
	CachedCatalog service.CatalogService
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.SetupInfrastructure("../../migrations")

	s.Logger = zap.NewNop()

	s.OrderRepo = repository.NewOrderRepository(s.DbPool, s.Logger)
	s.CatalogRepo = repository.NewCatalogRepository(s.DbPool, s.Logger)
	s.PaymentRepo = repository.NewPaymentRepository(s.DbPool, s.Logger)
	s.TrackingRepo = repository.NewTrackingRepository(s.DbPool, s.Logger)
	s.ReceiptRepo = repository.NewReceiptRepository(s.DbPool, s.Logger)
	s.OutboxRepo = outbox.NewRepository(s.DbPool, s.Logger)

	s.Card = &fakeCardGateway{intentStatus: "succeeded"}
	s.Mobile = &fakeMobileGateway{}
	s.Sender = &fakeSender{}

	redisOpts, err := redis.ParseURL(s.RedisAddr)
	s.Require().NoError(err)
	s.Redis = redis.NewClient(redisOpts)

	s.Ledger = service.NewLedgerService(s.DbPool, s.Logger, s.OrderRepo, s.CatalogRepo)
	s.Reconciler = service.NewReconcilerService(s.DbPool, s.Logger, s.OrderRepo, s.PaymentRepo, s.OutboxRepo, s.Card, s.Mobile)
	s.Tracking = service.NewTrackingService(s.DbPool, s.Logger, s.OrderRepo, s.TrackingRepo)
	s.Receipts = service.NewReceiptService(s.Logger, s.OrderRepo, s.ReceiptRepo, s.Sender)
	s.Catalog = service.NewCatalogService(s.Logger, s.CatalogRepo)
	s.CachedCatalog = service.NewCachedCatalogService(s.Catalog, s.Redis, time.Minute)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.Redis != nil {
		s.Require().NoError(s.Redis.Close())
	}
	s.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	for _, table := range []string{"outbox", "processed_events", "orders", "items"} {
		s.TruncateTable(table)
	}
	s.Require().NoError(s.Redis.FlushAll(s.Ctx).Err())
}

// seedItem writes a catalog entry directly, bypassing the cache decorator.
func (s *IntegrationTestSuite) seedItem(name, price, discount string, visible, stocked bool) *domain.Item {
	item := &domain.Item{
		Name:              name,
		Price:             decimal.RequireFromString(price),
		Discount:          decimal.RequireFromString(discount),
		Category:          "Textbooks",
		Visibility:        visible,
		StockAvailability: stocked,
	}
	s.Require().NoError(s.Catalog.Save(s.Ctx, item))

	return item
}

func (s *IntegrationTestSuite) createOrder(lines ...service.OrderLine) *domain.Order {
	order, err := s.Ledger.CreateOrder(s.Ctx, &service.CreateOrderRequest{
		RecipientName: "Jane Student",
		ReceiptEmail:  "jane@example.com",
		Grade:         "Grade 4",
		Items:         lines,
	})
	s.Require().NoError(err)

	return order
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	suite.Run(t, new(IntegrationTestSuite))
}
