package answerkey

import "strings"

// Option is a canonical answer symbol a learner can select.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
	OptionE Option = "E"

	OptionTrue  Option = "V"
	OptionFalse Option = "F"
)

// LetterOptions is the full multiple-choice set, also used as the default option set.
var LetterOptions = OptionSet{OptionA, OptionB, OptionC, OptionD, OptionE}

// BooleanOptions lists the true/false symbols in display order.
var BooleanOptions = OptionSet{OptionTrue, OptionFalse}

var (
	trueTokens  = []string{"V", "VERDADEIRO", "TRUE"}
	falseTokens = []string{"F", "FALSO", "FALSE"}
)

// IsLetter reports whether o is one of A..E.
func (o Option) IsLetter() bool {
	return LetterOptions.Contains(o)
}

// IsBoolean reports whether o is V or F.
func (o Option) IsBoolean() bool {
	return o == OptionTrue || o == OptionFalse
}

func (o Option) String() string {
	return string(o)
}

// Normalize maps a raw answer-key token to its canonical option.
// The second return value is false when the token carries no value.
func Normalize(raw *string) (Option, bool) {
	if raw == nil {
		return "", false
	}
	return NormalizeString(*raw)
}

// NormalizeString is Normalize for a non-nullable token.
func NormalizeString(raw string) (Option, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}

	if opt := Option(value); opt.IsLetter() {
		return opt, true
	}
	if containsToken(trueTokens, value) {
		return OptionTrue, true
	}
	if containsToken(falseTokens, value) {
		return OptionFalse, true
	}

	return Option(value), true
}

func containsToken(tokens []string, value string) bool {
	for _, token := range tokens {
		if token == value {
			return true
		}
	}
	return false
}
