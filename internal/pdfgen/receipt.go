package pdfgen

import (
	"bytes"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// RenderReceipt produces the PDF receipt document for a paid order.
func RenderReceipt(order *domain.Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+order.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Harmosoft Book Store", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Receipt for order %s", order.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, order.CreatedAt.Format("02 Jan 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Recipient: "+order.RecipientName, "", 1, "L", false, 0, "")
	if order.Grade != "" {
		pdf.CellFormat(0, 6, "Grade: "+order.Grade, "", 1, "L", false, 0, "")
	}
	if order.MpesaReceiptNumber != "" {
		pdf.CellFormat(0, 6, "M-Pesa receipt: "+order.MpesaReceiptNumber, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 8, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range order.Items {
		subtotal := line.Item.DiscountedPrice.Mul(decimal.NewFromInt32(line.Quantity))

		pdf.CellFormat(90, 8, line.Item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, line.Item.DiscountedPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, subtotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	if order.TotalDiscountAmount.IsPositive() {
		pdf.CellFormat(150, 7, "Discount", "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, order.TotalDiscountAmount.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(150, 7, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, order.Total.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(150, 7, "Amount paid", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, order.AmountPaid.StringFixed(2), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}

	return buf.Bytes(), nil
}
