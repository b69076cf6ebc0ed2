package notify

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/vpoguide/backend/internal/i18n"
)

// ReceiptFilename names the attached PDF after the payment intent.
func ReceiptFilename(c Confirmation) string {
	return "receipt-" + c.PaymentIntentID + ".pdf"
}

// BuildReceipt renders an A4 payment receipt in the customer's language.
func BuildReceipt(c Confirmation, catalog *i18n.Catalog, issued time.Time) ([]byte, error) {
	t := func(key string) string { return catalog.Text(c.Language, key) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(t("receipt.title")), false)
	pdf.SetAuthor("VPO Experience", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(strings.ToUpper(t("receipt.title"))))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", t("receipt.payment_id"), c.PaymentIntentID)))
	pdf.Ln(6)
	pdf.Cell(0, 6, issued.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, tr(t("receipt.customer")))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{c.CustomerName, c.Email, c.Phone} {
		if line == "" {
			continue
		}
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	rows := [][2]string{
		{t("receipt.plan"), c.PlanName},
		{t("receipt.destination"), c.Destination},
		{t("receipt.date"), c.TravelDate},
		{t("receipt.passengers"), fmt.Sprintf("%d", c.Passengers)},
	}
	pdf.SetFont("Helvetica", "", 11)
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		pdf.CellFormat(60, 7, tr(r[0]), "B", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(r[1]), "B", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, tr(fmt.Sprintf("%s: $%.2f %s", t("receipt.amount"), float64(c.AmountCents)/100, strings.ToUpper(c.Currency))))
	pdf.Ln(8)
	if c.DisplayAmount != "" && !strings.EqualFold(c.DisplayCurrency, c.Currency) {
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", t("receipt.display_amount"), c.DisplayAmount)))
		pdf.Ln(6)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, tr(t("receipt.thanks")), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
