package answerkey

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	MaxParsedQuestion = 100
	DefaultPoints     = 10
)

var (
	sectionPattern = regexp.MustCompile(`(?i)GABARITO[\s:]*\n+([\s\S]+?)(?:\n\n|$)`)
	headerPattern  = regexp.MustCompile(`^[A-Z][A-Z\s]+:?$`)
	linePattern    = regexp.MustCompile(`^(\d+)[.)]\s*([a-eA-E])\)?(?:\s+Justificativa:\s*(.+))?$`)
)

// ParsedEntry is one answer-key line extracted from a document.
type ParsedEntry struct {
	QuestionNumber int    `json:"question_number"`
	CorrectAnswer  Option `json:"correct_answer"`
	Points         int    `json:"points"`
	Justification  string `json:"justification,omitempty"`
}

// ParseText extracts the answer key from the "GABARITO" section of a plain
// text document. Lines look like "1) A" or "2. b Justificativa: ...".
// The first occurrence of a question number wins and the result is sorted.
func ParseText(content string) []ParsedEntry {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	match := sectionPattern.FindStringSubmatch(content)
	if match == nil {
		return nil
	}

	seen := make(map[int]bool)
	var entries []ParsedEntry
	for _, line := range strings.Split(match[1], "\n") {
		line = strings.TrimSpace(line)
		if headerPattern.MatchString(line) {
			break
		}

		parts := linePattern.FindStringSubmatch(line)
		if parts == nil {
			continue
		}
		number, err := strconv.Atoi(parts[1])
		if err != nil || number <= 0 || number > MaxParsedQuestion || seen[number] {
			continue
		}
		seen[number] = true
		entries = append(entries, ParsedEntry{
			QuestionNumber: number,
			CorrectAnswer:  Option(strings.ToUpper(parts[2])),
			Points:         DefaultPoints,
			Justification:  strings.TrimSpace(parts[3]),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].QuestionNumber < entries[j].QuestionNumber
	})
	return entries
}
