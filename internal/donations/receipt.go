package donations

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// buildReceipt renders a one-page PDF receipt for a successful donation.
func buildReceipt(donation *Donation, projectTitle, donorName string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Donation Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Donation Receipt")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 8, value, "", "L", false)
	}

	if donorName != "" {
		row("Donor", donorName)
	}
	if projectTitle != "" {
		row("Project", projectTitle)
	}
	row("Amount", fmt.Sprintf("%.2f %s", donation.Amount, donation.Currency))
	row("Order ID", donation.OrderID)
	row("Payment ID", donation.PaymentID)
	row("Date", donation.UpdatedAt.Format("02 Jan 2006 15:04 MST"))
	row("Receipt Hash", donation.ReceiptHash)

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 6, "Thank you for supporting this project. Keep this receipt for your records.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
