package analytics

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pavelanni/firstaid/internal/model"
)

// answerPair is one question-index/answer entry of an attempt.
type answerPair struct {
	key   string
	value json.RawMessage
}

// normalizeAnswers flattens both stored answer encodings into ordered pairs.
// A list pairs each element with its position; an object yields its entries in
// document order. Anything else, including null, yields nothing.
func normalizeAnswers(raw json.RawMessage) []answerPair {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}

	var pairs []answerPair
	switch tok {
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return pairs
			}
			pairs = append(pairs, answerPair{key: strconv.Itoa(i), value: v})
		}
	case json.Delim('{'):
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return pairs
			}
			key, _ := kt.(string)
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return pairs
			}
			pairs = append(pairs, answerPair{key: key, value: v})
		}
	}
	return pairs
}

// questionIndex parses a pair key and checks it against the bank size.
func questionIndex(key string, bankSize int) (int, bool) {
	// Keys must be whole integers; "1.5" is dropped rather than truncated to 1.
	idx, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || idx < 0 || idx >= bankSize {
		return 0, false
	}
	return idx, true
}

// outcome is the evaluated result of a single answer.
type outcome struct {
	correct     bool
	selected    any
	hasSelected bool
}

// evaluate decides whether an answer is correct. Structured records carry a
// precomputed correct flag; raw values are compared with the canonical answer.
func evaluate(value json.RawMessage, canonical any) outcome {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return outcome{}
	}
	if rec, ok := v.(map[string]any); ok {
		sel, has := rec["selected"]
		return outcome{
			correct:     model.Truthy(rec["correct"]),
			selected:    sel,
			hasSelected: has && sel != nil,
		}
	}
	return outcome{
		correct:     sameValue(v, canonical),
		selected:    v,
		hasSelected: v != nil,
	}
}

// sameValue compares two scalar values strictly by type and value.
// Lists and objects are never equal.
func sameValue(a, b any) bool {
	a, b = model.Scalar(a), model.Scalar(b)
	switch av := a.(type) {
	case nil:
		return b == nil
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// optionKey renders a selected value the way it is shown to teachers.
func optionKey(v any) string {
	switch t := model.Scalar(v).(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
