package services

import (
	"bytes"
	"testing"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportAnswerSheet(t *testing.T) {
	snapshot := &Snapshot{
		TestID:          "test-1",
		Title:           "Quiz",
		QuestionCount:   3,
		Answers:         models.AnswerState{1: "A", 3: "V"},
		AnsweredCount:   2,
		SubmissionState: SubmissionInProgress,
	}

	data, err := ExportAnswerSheet(snapshot)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{answerSheetName}, f.GetSheetList())

	rows, err := f.GetRows(answerSheetName)
	require.NoError(t, err)

	assert.Equal(t, []string{"Test", "Quiz"}, rows[0])
	assert.Equal(t, []string{"Answered", "2 / 3"}, rows[2])
	assert.Equal(t, []string{"Question", "Answer"}, rows[5])
	assert.Equal(t, []string{"1", "A"}, rows[6])
	assert.Equal(t, []string{"2"}, rows[7])
	assert.Equal(t, []string{"3", "V"}, rows[8])
}
