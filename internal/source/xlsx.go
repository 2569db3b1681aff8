package source

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/dragon-peak/quiz-game-service/internal/errors"
	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// Excel import for caller-supplied question lists. Expected columns:
// question, answer_a..answer_d (or option_a..option_d), correct — where
// correct is either a 1-based position or an option letter.

// ImportQuestionsFromExcel reads the first sheet of an xlsx workbook into
// a custom question list. Rows that fail to parse are skipped and logged;
// the import only fails when nothing playable remains.
func ImportQuestionsFromExcel(reader io.Reader, logger *slog.Logger) ([]models.Question, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewValidationError("file", "Excel must have header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}

	var questions []models.Question
	for rowIndex, row := range rows[1:] {
		question, err := parseExcelRow(row, headerMap, rowIndex)
		if err != nil {
			logger.Warn("Skipping unparseable question row",
				"row", rowIndex+2,
				"error", err)
			continue
		}
		questions = append(questions, *question)
	}

	if len(questions) == 0 {
		return nil, apperrors.NewValidationError("file", "no valid question rows", nil)
	}

	return questions, nil
}

func parseExcelRow(row []string, headerMap map[string]int, rowIndex int) (*models.Question, error) {
	cell := func(names ...string) string {
		for _, name := range names {
			if idx, ok := headerMap[name]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
		}
		return ""
	}

	prompt := cell("question", "content", "prompt")
	if prompt == "" {
		return nil, fmt.Errorf("missing question text")
	}

	var answers []models.Answer
	for i, letter := range []string{"a", "b", "c", "d"} {
		text := cell("answer_"+letter, "option_"+letter)
		if text == "" {
			continue
		}
		answers = append(answers, models.Answer{ID: strconv.Itoa(i + 1), Text: text})
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answer options")
	}

	question := models.Question{
		ID:      strconv.Itoa(rowIndex + 1),
		Prompt:  prompt,
		Answers: answers,
	}

	correct := strings.ToLower(cell("correct", "correct_answer", "answer"))
	switch {
	case correct == "":
		return nil, fmt.Errorf("missing correct answer designator")
	case correct >= "a" && correct <= "d" && len(correct) == 1:
		idx := int(correct[0] - 'a')
		if idx >= len(answers) {
			return nil, fmt.Errorf("correct option %q out of range", correct)
		}
		question.CorrectIndex = &idx
	default:
		n, err := strconv.Atoi(correct)
		if err != nil || n < 1 || n > len(answers) {
			return nil, fmt.Errorf("invalid correct answer designator %q", correct)
		}
		idx := n - 1
		question.CorrectIndex = &idx
	}

	return &question, nil
}
