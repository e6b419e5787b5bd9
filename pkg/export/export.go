// Package export renders evaluation results for operators: JSON and CSV for
// tooling, a text table for the terminal, XLSX and PDF for reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/busdepot/core/model"
)

// Format names an output rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ParseFormat validates a user supplied format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders ev to w in the given format.
func Write(w io.Writer, f Format, ev model.Evaluation) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, ev)
	case FormatCSV:
		return WriteCSV(w, ev.Records)
	case FormatXLSX, FormatPDF:
		build := BuildXLSX
		if f == FormatPDF {
			build = BuildPDF
		}
		b, err := build(ev)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return WriteTable(w, ev)
	}
}

// WriteJSON writes the evaluation to w in JSON format.
func WriteJSON(w io.Writer, ev model.Evaluation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ev)
}

// WriteCSV writes prioritized records to w, one bus per row in charging
// order.
func WriteCSV(w io.Writer, records []model.BusRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "bus_id", "state_of_charge", "requires_maintenance", "assigned_to_charge", "dispatch_risk"}); err != nil {
		return err
	}
	for i, r := range records {
		rec := []string{
			strconv.Itoa(i + 1),
			r.BusID,
			strconv.FormatFloat(r.SoC, 'f', -1, 64),
			strconv.FormatBool(r.RequiresMaintenance),
			strconv.FormatBool(r.AssignedToCharge),
			strconv.FormatBool(r.DispatchRisk),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes a human readable summary followed by the bus table.
func WriteTable(w io.Writer, ev model.Evaluation) error {
	m := ev.Metrics
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	lines := []string{
		fmt.Sprintf("Evaluation\t%s\t", ev.ID),
		fmt.Sprintf("Time\t%s\t", ev.Time.Format(time.RFC3339)),
		fmt.Sprintf("Chargers\t%d\t", ev.Config.NumChargers),
		fmt.Sprintf("Min dispatch SoC\t%s %%\t", Round1(ev.Config.MinDispatchSoC)),
		fmt.Sprintf("Average SoC\t%s %%\t", Round1(m.AverageSoC)),
		fmt.Sprintf("Buses at risk\t%d / %d\t", m.RiskCount, m.FleetSize),
		fmt.Sprintf("Charger utilization\t%s %%\t", Round1(m.ChargerUtilization)),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(tw, l); err != nil {
			return err
		}
	}
	for _, in := range ev.Insights {
		if _, err := fmt.Fprintf(tw, "[%s]\t%s\t\n", in.Level, in.Message); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(tw, "\t\t"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(tw, "#\tBus\tSoC (%)\tMaintenance\tCharging\tRisk\t"); err != nil {
		return err
	}
	for i, r := range ev.Records {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			i+1, r.BusID, Round1(r.SoC), yesNo(r.RequiresMaintenance), yesNo(r.AssignedToCharge), yesNo(r.DispatchRisk)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Round1 formats v with one decimal, rounding half away from zero.
func Round1(v float64) string {
	return decimalRound(v).StringFixed(1)
}

func decimalRound(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(1)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
