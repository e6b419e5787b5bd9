package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/kilianp07/busdepot/core/model"
)

const (
	summarySheet = "summary"
	busesSheet   = "buses"
)

// BuildXLSX renders the evaluation as a workbook with a summary sheet and a
// per-bus sheet in charging order.
func BuildXLSX(ev model.Evaluation) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(busesSheet); err != nil {
		return nil, err
	}

	m := ev.Metrics
	rows := [][2]any{
		{"Evaluation", ev.ID},
		{"Time", ev.Time.Format(time.RFC3339)},
		{"Chargers", ev.Config.NumChargers},
		{"Min dispatch SoC (%)", ev.Config.MinDispatchSoC},
		{"Average SoC (%)", roundFloat(m.AverageSoC)},
		{"Buses at risk", m.RiskCount},
		{"Fleet size", m.FleetSize},
		{"Charger utilization (%)", roundFloat(m.ChargerUtilization)},
		{"Buses in maintenance", m.MaintenanceCount},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Depot charging evaluation")
	for i, r := range rows {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), r[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), r[1])
	}
	for i, in := range ev.Insights {
		row := len(rows) + 4 + i
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(in.Level))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), in.Message)
	}

	headers := []string{"Rank", "Bus", "SoC (%)", "Maintenance", "Charging", "Risk"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(busesSheet, cell, h)
	}
	for i, r := range ev.Records {
		row := i + 2
		_ = f.SetCellValue(busesSheet, fmt.Sprintf("A%d", row), i+1)
		_ = f.SetCellValue(busesSheet, fmt.Sprintf("B%d", row), r.BusID)
		_ = f.SetCellValue(busesSheet, fmt.Sprintf("C%d", row), r.SoC)
		_ = f.SetCellValue(busesSheet, fmt.Sprintf("D%d", row), r.RequiresMaintenance)
		_ = f.SetCellValue(busesSheet, fmt.Sprintf("E%d", row), r.AssignedToCharge)
		_ = f.SetCellValue(busesSheet, fmt.Sprintf("F%d", row), r.DispatchRisk)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a one page report of the evaluation.
func BuildPDF(ev model.Evaluation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Depot Charging Evaluation")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	m := ev.Metrics
	for _, line := range []string{
		fmt.Sprintf("Evaluation: %s", ev.ID),
		fmt.Sprintf("Generated: %s", ev.Time.Format(time.RFC3339)),
		fmt.Sprintf("Chargers: %d", ev.Config.NumChargers),
		fmt.Sprintf("Min dispatch SoC: %s %%", Round1(ev.Config.MinDispatchSoC)),
		fmt.Sprintf("Average SoC: %s %%", Round1(m.AverageSoC)),
		fmt.Sprintf("Buses at risk: %d / %d", m.RiskCount, m.FleetSize),
		fmt.Sprintf("Charger utilization: %s %%", Round1(m.ChargerUtilization)),
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(3)
	for _, in := range ev.Insights {
		pdf.Cell(0, 6, fmt.Sprintf("[%s] %s", in.Level, in.Message))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	widths := []float64{15, 40, 30, 30, 30, 25}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range []string{"#", "Bus", "SoC (%)", "Maintenance", "Charging", "Risk"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for i, r := range ev.Records {
		cells := []string{
			fmt.Sprintf("%d", i+1), r.BusID, Round1(r.SoC),
			yesNo(r.RequiresMaintenance), yesNo(r.AssignedToCharge), yesNo(r.DispatchRisk),
		}
		for j, c := range cells {
			align := "C"
			if j == 2 {
				align = "R"
			}
			pdf.CellFormat(widths[j], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func roundFloat(v float64) float64 {
	f, _ := decimalRound(v).Float64()
	return f
}
