package drawing

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseable is returned when no strategy could read a model response.
var ErrUnparseable = errors.New("model response could not be parsed")

// ParseStrategy is one attempt at reading a model response.
type ParseStrategy struct {
	Name  string
	Parse func(candidate string) (PrimaryResponse, error)
}

// StageError records why a single strategy failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ParseResult is a successfully parsed response and the strategy that produced it.
type ParseResult struct {
	Response PrimaryResponse
	Stage    string
}

// DefaultStrategies are tried in order until one succeeds.
var DefaultStrategies = []ParseStrategy{
	{Name: "json", Parse: decodeJSON},
	{Name: "sanitized", Parse: func(c string) (PrimaryResponse, error) { return decodeJSON(StripControlChars(c)) }},
	{Name: "escaped", Parse: func(c string) (PrimaryResponse, error) { return decodeJSON(EscapeControlsInStrings(c)) }},
	{Name: "regex", Parse: parseByRegex},
}

// ParsePrimaryResponse reads a model response with DefaultStrategies.
func ParsePrimaryResponse(text string) (ParseResult, error) {
	return ParseWith(text, DefaultStrategies)
}

// ParseWith isolates the JSON candidate in text and runs each strategy in order.
// The returned error joins ErrUnparseable with every StageError.
func ParseWith(text string, strategies []ParseStrategy) (ParseResult, error) {
	candidate := JSONCandidate(text)
	errs := []error{ErrUnparseable}
	for _, s := range strategies {
		resp, err := s.Parse(candidate)
		if err == nil {
			return ParseResult{Response: resp, Stage: s.Name}, nil
		}
		errs = append(errs, &StageError{Stage: s.Name, Err: err})
	}
	return ParseResult{}, errors.Join(errs...)
}

var (
	fenceStart = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("\\s*```$")
)

// JSONCandidate strips a code fence and keeps the span from the first '{'
// to the last '}'.
func JSONCandidate(text string) string {
	s := strings.TrimSpace(text)
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// StripControlChars removes control characters other than tab, LF and CR.
func StripControlChars(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// EscapeControlsInStrings escapes raw newlines, carriage returns and tabs
// that appear inside JSON string literals.
func EscapeControlsInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for _, ch := range s {
		if !inString {
			if ch == '"' {
				inString = true
			}
			b.WriteRune(ch)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteRune(ch)
		case ch == '\\':
			escaped = true
			b.WriteRune(ch)
		case ch == '"':
			inString = false
			b.WriteRune(ch)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func decodeJSON(candidate string) (PrimaryResponse, error) {
	var resp PrimaryResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return PrimaryResponse{}, err
	}
	return resp, nil
}

var (
	oneLinerBeforeTips = regexp.MustCompile(`"oneLiner"\s*:\s*"([\s\S]*?)"\s*,\s*"tips"`)
	oneLinerAny        = regexp.MustCompile(`"oneLiner"\s*:\s*"([\s\S]*?)"`)
	tipsBlock          = regexp.MustCompile(`"tips"\s*:\s*\[([\s\S]*?)\]`)
	quotedItem         = regexp.MustCompile(`"((?:\\.|[^"\\])*)"`)
)

func intField(text, name string) Number {
	re := regexp.MustCompile(`"` + name + `"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Number{}
	}
	var n Number
	_ = n.UnmarshalJSON([]byte(m[1]))
	return n
}

// parseByRegex pulls fields out one by one. It needs either a rubric
// dimension or a total score to succeed.
func parseByRegex(text string) (PrimaryResponse, error) {
	var resp PrimaryResponse

	rubric := RubricFields{
		PromptMatch:   intField(text, "promptMatch"),
		Composition:   intField(text, "composition"),
		ShapeClarity:  intField(text, "shapeClarity"),
		LineStability: intField(text, "lineStability"),
		Creativity:    intField(text, "creativity"),
		Completeness:  intField(text, "completeness"),
	}
	hasRubric := rubric.PromptMatch.Valid || rubric.ShapeClarity.Valid || rubric.LineStability.Valid ||
		rubric.Creativity.Valid || rubric.Completeness.Valid
	if hasRubric {
		resp.Rubric = &rubric
	}

	resp.Score = intField(text, "score")
	resp.Likeness = intField(text, "likeness")
	resp.Composition = intField(text, "composition")
	resp.Originality = intField(text, "originality")
	if !hasRubric && !resp.Score.Valid {
		return PrimaryResponse{}, errors.New("no score or rubric field found")
	}

	raw := ""
	if m := oneLinerBeforeTips.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := oneLinerAny.FindStringSubmatch(text); m != nil {
		raw = m[1]
	}
	resp.OneLiner = Text(unquote(raw))

	if m := tipsBlock.FindStringSubmatch(text); m != nil {
		for _, item := range quotedItem.FindAllStringSubmatch(m[1], -1) {
			resp.Tips = append(resp.Tips, Text(unquote(item[1])))
		}
	}
	return resp, nil
}

func unquote(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err == nil {
		return s
	}
	return strings.TrimSpace(raw)
}
