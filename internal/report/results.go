// Package report renders test results as spreadsheets.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

const SummarySheet = "Summary"

// ContentType is the MIME type of the workbooks written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteResults writes an .xlsx workbook for t to w: a summary sheet with one
// row per submission, then one sheet per subject with per-question marks.
// names maps student ids to display names; unknown ids are written as is.
func WriteResults(w io.Writer, t exam.Test, subs []exam.Submission, names map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header := []any{"Student", "Submitted At", "Score", "Max Score", "Percentage"}
	for _, sec := range t.Sections {
		header = append(header, SheetName(sec.Subject))
	}
	if err := writeRow(f, SummarySheet, 1, header); err != nil {
		return err
	}
	for i, sub := range subs {
		row := []any{
			studentName(names, sub.StudentID),
			sub.SubmittedAt.UTC().Format(time.RFC3339),
			sub.TotalScore,
			sub.TotalMaxScore,
			sub.Percentage,
		}
		for _, sec := range t.Sections {
			if r, ok := sectionResult(sub, sec.Subject); ok {
				row = append(row, r.Score)
			} else {
				row = append(row, "")
			}
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}
	if err := styleHeader(f, SummarySheet, len(header), bold); err != nil {
		return err
	}

	for _, sec := range t.Sections {
		if err := writeSubjectSheet(f, sec, subs, names, bold); err != nil {
			return fmt.Errorf("%s sheet: %w", sec.Subject, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSubjectSheet(f *excelize.File, sec exam.Section, subs []exam.Submission, names map[string]string, bold int) error {
	sheet := SheetName(sec.Subject)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{"Student", "Score", "Max Score", "Correct", "Incorrect", "Unanswered"}
	for i := range sec.Questions {
		header = append(header, fmt.Sprintf("Q%d", i+1))
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, sub := range subs {
		row := []any{studentName(names, sub.StudentID)}
		if r, ok := sectionResult(sub, sec.Subject); ok {
			row = append(row, r.Score, r.MaxScore, r.CorrectCount, r.IncorrectCount, r.UnansweredCount)
			for _, q := range r.Questions {
				if q.StudentAnswer == nil {
					row = append(row, "-")
					continue
				}
				row = append(row, q.MarksAwarded)
			}
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return styleHeader(f, sheet, len(header), bold)
}

// SheetName is the worksheet title used for a subject.
func SheetName(s exam.Subject) string {
	name := string(s)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 24)
}

func sectionResult(sub exam.Submission, subj exam.Subject) (exam.SectionResult, bool) {
	for _, r := range sub.SectionResults {
		if r.Subject == subj {
			return r, true
		}
	}
	return exam.SectionResult{}, false
}

func studentName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}
