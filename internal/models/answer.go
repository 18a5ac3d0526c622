package models

import (
	"sort"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
)

// AnswerState maps question number to the learner's selected option.
type AnswerState map[int]answerkey.Option

// Clone returns an independent copy, never nil.
func (a AnswerState) Clone() AnswerState {
	out := make(AnswerState, len(a))
	for question, option := range a {
		out[question] = option
	}
	return out
}

// Questions returns the answered question numbers in ascending order.
func (a AnswerState) Questions() []int {
	questions := make([]int, 0, len(a))
	for question := range a {
		questions = append(questions, question)
	}
	sort.Ints(questions)
	return questions
}

// Prune removes every entry whose option is not in options and returns the
// removed question numbers in ascending order.
func (a AnswerState) Prune(options answerkey.OptionSet) []int {
	var removed []int
	for _, question := range a.Questions() {
		if !options.Contains(a[question]) {
			delete(a, question)
			removed = append(removed, question)
		}
	}
	return removed
}
