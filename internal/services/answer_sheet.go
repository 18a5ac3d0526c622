package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const answerSheetName = "Answers"

// ExportAnswerSheet renders a session snapshot as an xlsx workbook with one
// row per question, blanks included.
func ExportAnswerSheet(snapshot *Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(answerSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	// Summary block
	summary := [][]interface{}{
		{"Test", snapshot.Title},
		{"Test ID", snapshot.TestID},
		{"Answered", fmt.Sprintf("%d / %d", snapshot.AnsweredCount, snapshot.QuestionCount)},
		{"Status", string(snapshot.SubmissionState)},
	}
	if snapshot.Result != nil {
		summary = append(summary,
			[]interface{}{"Score", snapshot.Result.Score},
			[]interface{}{"Passed", snapshot.Result.Passed},
		)
	}
	for i, row := range summary {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(answerSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	// Answers table
	headerRow := len(summary) + 2
	f.SetCellValue(answerSheetName, fmt.Sprintf("A%d", headerRow), "Question")
	f.SetCellValue(answerSheetName, fmt.Sprintf("B%d", headerRow), "Answer")

	for question := 1; question <= snapshot.QuestionCount; question++ {
		row := headerRow + question
		f.SetCellValue(answerSheetName, fmt.Sprintf("A%d", row), question)
		if option, ok := snapshot.Answers[question]; ok {
			f.SetCellValue(answerSheetName, fmt.Sprintf("B%d", row), string(option))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}
