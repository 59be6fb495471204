package admins

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/donations"
)

var exportHeader = []string{"Order ID", "Donor", "Project", "Amount", "Currency", "Status", "Payment ID", "Created At"}

func exportRow(d *donations.Donation) []string {
	return []string{
		d.OrderID,
		d.Donor.Hex(),
		d.Project.Hex(),
		strconv.FormatFloat(d.Amount, 'f', 2, 64),
		d.Currency,
		d.Status,
		d.PaymentID,
		d.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ExportDonations renders the filtered donation list as csv or xlsx and
// returns the bytes with their content type.
func (s *service) ExportDonations(ctx context.Context, filter donations.Filter, format string) ([]byte, string, error) {
	// Exports are unpaginated; cap at a single large page.
	filter.Page = 1
	filter.Limit = 10000

	results, _, _, err := s.donationRepo.List(ctx, filter)
	if err != nil {
		return nil, "", apierr.Internal(err)
	}

	switch format {
	case "", "csv":
		data, err := exportCSV(results)
		if err != nil {
			return nil, "", apierr.Internal(err)
		}
		return data, "text/csv", nil
	case "xlsx":
		data, err := exportXLSX(results)
		if err != nil {
			return nil, "", apierr.Internal(err)
		}
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return nil, "", apierr.Validation("Format must be csv or xlsx", nil)
	}
}

func exportCSV(results []donations.Donation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for i := range results {
		if err := w.Write(exportRow(&results[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportXLSX(results []donations.Donation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Donations"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for row := range results {
		values := exportRow(&results[row])
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			// Amount stays numeric for spreadsheet math.
			if col == 3 {
				if err := f.SetCellValue(sheet, cell, results[row].Amount); err != nil {
					return nil, err
				}
				continue
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
