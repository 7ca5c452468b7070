package service_test

import (
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestCreateOrder_Success() {
	book := s.seedItem("Mathematics Grade 4", "500.00", "10", true, true)
	pens := s.seedItem("Ballpoint Pens (10pk)", "150.00", "0", true, true)

	order := s.createOrder(
		service.OrderLine{SKU: book.SKU, Quantity: 2},
		service.OrderLine{SKU: pens.SKU, Quantity: 1},
	)

	s.Require().Len(order.ID, 6)
	s.Require().Len(order.Items, 2)

	// 2 * 450 + 150
	s.Require().True(decimal.RequireFromString("1050").Equal(order.Total), "total: %s", order.Total)
	s.Require().True(decimal.RequireFromString("100").Equal(order.TotalDiscountAmount))
	s.Require().Equal(domain.PaymentStatusPending, order.PaymentStatus)

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().True(order.Total.Equal(stored.Total))
	s.Require().Len(stored.Items, 2)
}

func (s *IntegrationTestSuite) TestCreateOrder_UnknownItemAbortsAll() {
	book := s.seedItem("Science Grade 5", "300.00", "0", true, true)

	_, err := s.Ledger.CreateOrder(s.Ctx, &service.CreateOrderRequest{
		RecipientName: "Jane Student",
		ReceiptEmail:  "jane@example.com",
		Items: []service.OrderLine{
			{SKU: book.SKU, Quantity: 1},
			{SKU: "ZZZZZZ", Quantity: 1},
		},
	})
	s.Require().ErrorIs(err, repository.ErrItemNotFound)

	var count int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	s.Require().NoError(err)
	s.Require().Zero(count)
}

func (s *IntegrationTestSuite) TestCreateOrder_HiddenItemRejected() {
	hidden := s.seedItem("Atlas Advanced Edition", "900.00", "0", false, true)

	_, err := s.Ledger.CreateOrder(s.Ctx, &service.CreateOrderRequest{
		RecipientName: "Jane Student",
		ReceiptEmail:  "jane@example.com",
		Items:         []service.OrderLine{{SKU: hidden.SKU, Quantity: 1}},
	})
	s.Require().ErrorIs(err, service.ErrItemUnavailable)
}

func (s *IntegrationTestSuite) TestMutateLines_RecomputesTotals() {
	book := s.seedItem("Atlas", "400.00", "0", true, true)
	ruler := s.seedItem("Ruler", "50.00", "0", true, true)

	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})
	s.Require().True(decimal.RequireFromString("400").Equal(order.Total))

	order, err := s.Ledger.AddItem(s.Ctx, order.ID, service.OrderLine{SKU: ruler.SKU, Quantity: 2})
	s.Require().NoError(err)
	s.Require().True(decimal.RequireFromString("500").Equal(order.Total), "total: %s", order.Total)

	var lineID int64
	for _, line := range order.Items {
		if line.ItemSKU == ruler.SKU {
			lineID = line.ID
		}
	}
	s.Require().NotZero(lineID)

	order, err = s.Ledger.UpdateItemQuantity(s.Ctx, order.ID, lineID, 4)
	s.Require().NoError(err)
	s.Require().True(decimal.RequireFromString("600").Equal(order.Total))

	order, err = s.Ledger.RemoveItem(s.Ctx, order.ID, lineID)
	s.Require().NoError(err)
	s.Require().True(decimal.RequireFromString("400").Equal(order.Total))
	s.Require().Len(order.Items, 1)
}

func (s *IntegrationTestSuite) TestMutateLines_EmptiedOrderStaysMutable() {
	book := s.seedItem("Set Books Bundle", "300.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	order, err := s.Ledger.RemoveItem(s.Ctx, order.ID, order.Items[0].ID)
	s.Require().NoError(err)
	s.Require().Empty(order.Items)
	s.Require().True(order.Total.IsZero())
	s.Require().Equal(domain.PaymentStatusPending, order.PaymentStatus)

	// an emptied order accepts new lines
	order, err = s.Ledger.AddItem(s.Ctx, order.ID, service.OrderLine{SKU: book.SKU, Quantity: 2})
	s.Require().NoError(err)
	s.Require().Len(order.Items, 1)
	s.Require().True(decimal.RequireFromString("600").Equal(order.Total))
}

func (s *IntegrationTestSuite) TestMutateLines_RejectedOncePaid() {
	book := s.seedItem("Dictionary", "250.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	_, err := s.DbPool.Exec(s.Ctx,
		`UPDATE orders SET payment_status = 'paid', amount_paid = total WHERE id = $1`,
		order.ID,
	)
	s.Require().NoError(err)

	_, err = s.Ledger.AddItem(s.Ctx, order.ID, service.OrderLine{SKU: book.SKU, Quantity: 1})
	s.Require().ErrorIs(err, repository.ErrOrderAlreadyPaid)

	_, err = s.Ledger.RemoveItem(s.Ctx, order.ID, order.Items[0].ID)
	s.Require().ErrorIs(err, repository.ErrOrderAlreadyPaid)
}

func (s *IntegrationTestSuite) TestFileRequests() {
	book := s.seedItem("Workbook", "100.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	cancellation, err := s.Ledger.FileCancellation(s.Ctx, order.ID, "ordered the wrong grade")
	s.Require().NoError(err)
	s.Require().Equal(domain.RequestStatusPending, cancellation.Status)

	ret, err := s.Ledger.FileReturn(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.RequestStatusPending, ret.Status)

	_, err = s.Ledger.FileReturn(s.Ctx, "NOPE12")
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}
