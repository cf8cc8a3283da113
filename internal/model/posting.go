package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Unknown is rendered in place of a posting field the model did not report.
const Unknown = "unknown"

// Text is a single posting field as reported by the model.
// Present is false when the key was missing or its value was not a string.
type Text struct {
	Value   string
	Present bool
}

// String returns the value, or Unknown when the field was not reported.
func (t Text) String() string {
	if !t.Present {
		return Unknown
	}
	return t.Value
}

// Posting is one job extracted from a careers page. Fields are best-effort:
// the model may omit keys or send the wrong types, so Raw keeps the object verbatim.
type Posting struct {
	Role        Text
	Experience  Text
	Description Text
	Raw         map[string]any // nil when the model returned a non-object element
}

// NewPosting builds a Posting from one decoded JSON value without defaulting
// or validating anything.
func NewPosting(v any) Posting {
	obj, ok := v.(map[string]any)
	if !ok {
		return Posting{}
	}
	return Posting{
		Role:        textField(obj, "role"),
		Experience:  textField(obj, "experience"),
		Description: textField(obj, "description"),
		Raw:         obj,
	}
}

func textField(obj map[string]any, key string) Text {
	s, ok := obj[key].(string)
	if !ok {
		return Text{}
	}
	return Text{Value: s, Present: true}
}

// Skills returns the normalized skill terms of the posting.
func (p Posting) Skills() []string {
	if p.Raw == nil {
		return []string{}
	}
	return NormalizeSkills(p.Raw["skills"])
}

// JSON returns the raw posting object as compact JSON, the form handed to the
// email prompt.
func (p Posting) JSON() string {
	if p.Raw == nil {
		return "{}"
	}
	b, err := json.Marshal(p.Raw)
	if err != nil {
		return fmt.Sprintf("%v", p.Raw)
	}
	return string(b)
}

// NormalizeSkills coerces whatever the model put under "skills" into a list of
// strings. nil, numbers, booleans and unknown shapes yield an empty list, a bare
// string yields a singleton, and a list keeps every non-nil element stringified.
func NormalizeSkills(v any) []string {
	switch s := v.(type) {
	case nil:
		return []string{}
	case string:
		return []string{s}
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if e == nil {
				continue
			}
			out = append(out, stringify(e))
		}
		return out
	default:
		return []string{}
	}
}

func stringify(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case float64:
		return strconv.FormatFloat(e, 'f', -1, 64)
	case json.Number:
		return e.String()
	case map[string]any, []any:
		b, err := json.Marshal(e)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// Page is the visible text fetched from one URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Metadata is the payload stored next to a portfolio entry, e.g. {"links": "..."}.
type Metadata map[string]string

// Draft is one composed outreach email together with the posting it answers.
type Draft struct {
	Posting Posting
	Links   []string
	Email   string
}

// Report is the outcome of one run against a careers page.
type Report struct {
	URL    string
	Title  string // <title> of the fetched page, may be empty
	Drafts []Draft
	NoJobs bool // extraction succeeded but found nothing
}
