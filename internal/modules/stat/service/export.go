package service

import (
	"bytes"
	"fmt"
	"time"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	"github.com/xuri/excelize/v2"
)

const donorSheet = "Donors"

var donorExportHeader = []string{
	"Profile ID",
	"Name",
	"Email",
	"Blood Group",
	"City",
	"Ever Donated",
	"Last Donation",
	"Next Possible Donation",
	"Can Donate Now",
	"Registered At",
}

var donorColumnWidths = []float64{12, 28, 32, 12, 20, 14, 16, 24, 16, 22}

func generateDonorExport(donors []*entity.Profile, engine *eligibility.Engine) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(donorSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#F8D7DA"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range donorExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(donorSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(donorSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(donorSheet, name, name, donorColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, d := range donors {
		row := []any{
			d.ID,
			d.Name,
			"",
			string(d.BloodGroup),
			d.City,
			yesNo(d.EverDonated),
			formatDate(d.LastDonation),
			formatDate(engine.NextPossibleDonationDate(d)),
			yesNo(engine.CanDonateNow(d)),
			d.CreatedAt.UTC().Format(time.DateTime),
		}
		if d.User != nil {
			row[2] = d.User.Email
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(donorSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(time.DateOnly)
}
