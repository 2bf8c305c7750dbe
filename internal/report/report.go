// Package report renders the question error heatmap as a PDF document.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/pavelanni/firstaid/internal/model"
)

const (
	barWidth  = 60.0
	barHeight = 5.0
)

// WriteHeatmapPDF writes one block per question: attempts, wrong answers,
// error rate as a shaded bar, and the most common wrong answer.
func WriteHeatmapPDF(w io.Writer, title string, generated time.Time, stats []model.QuestionErrorStat) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate UTF-8 input.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(title, true)
	pdf.SetCreator("firstaid", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 10, tr(title), "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, "Generated "+generated.UTC().Format("2006-01-02 15:04 MST"), "", "L", false)
	pdf.Ln(4)

	if len(stats) == 0 {
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 8, "No exam attempts recorded yet.", "", "L", false)
	}

	for _, st := range stats {
		pdf.SetFont("Helvetica", "B", 12)
		header := fmt.Sprintf("Question %d", st.QuestionIndex+1)
		if st.Category != "" {
			header += " (" + st.Category + ")"
		}
		pdf.MultiCell(0, 7, tr(header), "", "L", false)

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(st.Question), "", "L", false)

		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(70, 6, fmt.Sprintf("Wrong: %d of %d attempts", st.WrongAnswers, st.TotalAttempts), "", 0, "L", false, 0, "")
		x, y := pdf.GetXY()
		r, g, b := heatColor(st.ErrorRate)
		pdf.SetFillColor(230, 230, 230)
		pdf.Rect(x, y+0.5, barWidth, barHeight, "F")
		pdf.SetFillColor(r, g, b)
		pdf.Rect(x, y+0.5, barWidth*float64(st.ErrorRate)/100, barHeight, "F")
		pdf.SetX(x + barWidth + 3)
		pdf.CellFormat(20, 6, fmt.Sprintf("%d%%", st.ErrorRate), "", 1, "L", false, 0, "")

		if st.MostCommonWrongAnswer != nil {
			line := fmt.Sprintf("Most common wrong answer: %s (%d)", *st.MostCommonWrongAnswer, st.MostCommonWrongAnswerCount)
			pdf.MultiCell(0, 6, tr(line), "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// heatColor blends from green at 0% to red at 100%.
func heatColor(rate int) (int, int, int) {
	rate = max(0, min(rate, 100))
	return 40 + rate*200/100, 180 - rate*140/100, 60
}
