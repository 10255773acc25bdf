package registration

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

type exportFunc func(w io.Writer, items []*Appointment) error

var exporters = map[string]exportFunc{
	"csv":  writeCSV,
	"xlsx": writeXLSX,
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == "xlsx" {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

var reportHeader = []string{
	"Registration ID", "Name", "Age", "Gender", "Phone", "Symptoms", "Severity",
	"Department", "Urgency Score", "Priority", "Emergency Routed", "Status",
	"Appointment Time", "Registered At",
}

func reportRow(a *Appointment) []string {
	appt := ""
	if a.AppointmentTime != nil {
		appt = a.AppointmentTime.Format(time.RFC3339)
	}
	return []string{
		a.RegistrationID,
		a.Intake.Name,
		strconv.Itoa(a.Intake.Age),
		a.Intake.Gender,
		a.Intake.Phone,
		a.Intake.SymptomText,
		a.Intake.Severity.String(),
		string(a.Department),
		strconv.Itoa(a.UrgencyScore),
		a.PriorityBand.String(),
		strconv.FormatBool(a.EmergencyRouted),
		a.Status,
		appt,
		a.CreatedAt.Format(time.RFC3339),
	}
}

func writeCSV(w io.Writer, items []*Appointment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, a := range items {
		if err := cw.Write(reportRow(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const reportSheet = "Registrations"

func writeXLSX(w io.Writer, items []*Appointment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(reportHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, a := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := reportRow(a)
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(reportSheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.Write(w)
}
