// Package answer turns raw model replies into validated Answers, repairing
// invalid replies through the model a bounded number of times.
package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"mvdan.cc/sh/v3/syntax"

	"github.com/Paranoid-AF/shellm"
)

// FieldName is the single required field of an Answer.
const FieldName = "recommendCommand"

// FormatInstructions tells the model the exact shape of a valid reply.
const FormatInstructions = "You must format your output as a JSON value that adheres to the JSON schema below.\n\n" +
	"```json\n" +
	`{"type":"object","properties":{"recommendCommand":{"type":"string"}},"required":["recommendCommand"],"additionalProperties":false}` +
	"\n```\n\n" +
	"Respond with the JSON object only, for example {\"recommendCommand\": \"ls -la\"}."

// Validator checks raw replies against the Answer shape.
type Validator struct {
	// CheckSyntax additionally requires the command to parse as bash.
	CheckSyntax bool
}

// Validate extracts and checks an Answer using the default Validator.
func Validate(raw string) (shellm.Answer, error) {
	return Validator{}.Validate(raw)
}

// Validate extracts the first JSON object from raw and checks that it holds a
// non-blank string recommendCommand, returned exactly as decoded. Failures
// are *shellm.ValidationError.
func (v Validator) Validate(raw string) (shellm.Answer, error) {
	text := stripFences(raw)
	if text == "" {
		return shellm.Answer{}, &shellm.ValidationError{
			Expected: "a JSON object with a string field \"recommendCommand\"",
			Found:    "an empty reply",
		}
	}

	obj, ok := firstJSONObject(text)
	if !ok {
		return shellm.Answer{}, &shellm.ValidationError{
			Expected: "a JSON object with a string field \"recommendCommand\"",
			Found:    fmt.Sprintf("no well-formed JSON object in the text %q", excerpt(text)),
		}
	}

	field, ok := obj[FieldName]
	if !ok {
		return shellm.Answer{}, &shellm.ValidationError{
			Expected: "the JSON object to contain the required field \"recommendCommand\"",
			Found:    fmt.Sprintf("an object with fields [%s]", strings.Join(fieldNames(obj), ", ")),
		}
	}

	var cmd string
	field = bytes.TrimSpace(field)
	if len(field) == 0 || field[0] != '"' || json.Unmarshal(field, &cmd) != nil {
		return shellm.Answer{}, &shellm.ValidationError{
			Expected: "\"recommendCommand\" to be a JSON string",
			Found:    fmt.Sprintf("the value %s", excerpt(string(field))),
		}
	}
	if strings.TrimSpace(cmd) == "" {
		return shellm.Answer{}, &shellm.ValidationError{
			Expected: "\"recommendCommand\" to be a non-empty shell command",
			Found:    "an empty string",
		}
	}

	if v.CheckSyntax {
		if err := checkSyntax(cmd); err != nil {
			return shellm.Answer{}, &shellm.ValidationError{
				Expected: "\"recommendCommand\" to be a syntactically valid bash command",
				Found:    fmt.Sprintf("%q, which fails to parse: %v", cmd, err),
			}
		}
	}

	return shellm.Answer{RecommendCommand: cmd}, nil
}

func checkSyntax(cmd string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	_, err := parser.Parse(strings.NewReader(cmd), "")
	return err
}

func fieldNames(obj map[string]json.RawMessage) []string {
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, fmt.Sprintf("%q", name))
	}
	slices.Sort(names)
	return names
}

const excerptMax = 200

// excerpt shortens s to at most excerptMax bytes without splitting a rune.
func excerpt(s string) string {
	if len(s) <= excerptMax {
		return s
	}
	cut := excerptMax
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
