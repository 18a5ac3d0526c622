package answerkey

import "strings"

// OptionSet is an ordered, duplicate-free list of selectable options.
type OptionSet []Option

// Contains reports whether o is a member of the set.
func (s OptionSet) Contains(o Option) bool {
	for _, opt := range s {
		if opt == o {
			return true
		}
	}
	return false
}

// Equal compares two sets element by element, order included.
func (s OptionSet) Equal(other OptionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Strings returns the options as plain strings, mostly for JSON responses.
func (s OptionSet) Strings() []string {
	out := make([]string, len(s))
	for i, opt := range s {
		out[i] = string(opt)
	}
	return out
}

func (s OptionSet) String() string {
	return strings.Join(s.Strings(), ",")
}

// DefaultOptionSet returns a fresh copy of the letter set.
func DefaultOptionSet() OptionSet {
	return append(OptionSet(nil), LetterOptions...)
}

// DeriveOptionSet computes the selectable options for a test from its
// canonical correct answers.
//
// Once any letter answer exists all five letters are offered, while V/F are
// only offered when actually observed. Remaining tokens follow in first-seen
// order.
func DeriveOptionSet(answers []Option) OptionSet {
	if len(answers) == 0 {
		return DefaultOptionSet()
	}

	var (
		hasLetter bool
		seenTrue  bool
		seenFalse bool
	)
	for _, answer := range answers {
		switch {
		case answer.IsLetter():
			hasLetter = true
		case answer == OptionTrue:
			seenTrue = true
		case answer == OptionFalse:
			seenFalse = true
		}
	}

	result := make(OptionSet, 0, len(LetterOptions)+len(BooleanOptions))
	if hasLetter {
		result = append(result, LetterOptions...)
	}
	if seenTrue {
		result = append(result, OptionTrue)
	}
	if seenFalse {
		result = append(result, OptionFalse)
	}

	for _, answer := range answers {
		if answer == "" || answer.IsLetter() || answer.IsBoolean() {
			continue
		}
		if !result.Contains(answer) {
			result = append(result, answer)
		}
	}

	if len(result) == 0 {
		return DefaultOptionSet()
	}
	return result
}
