package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseResponse extracts the structured answer from the chat model's raw
// text. Code fences, newlines and no-break spaces are removed first; if the
// rest is not a JSON object, the outermost brace-delimited span is tried.
// Keys must match exactly: "ANSWER" is not "answer".
func ParseResponse(raw string) (*models.StructuredAnswer, error) {
	cleaned := strings.Trim(strings.TrimSpace(raw), "`json\n")
	cleaned = strings.NewReplacer("\n", "", "\u00a0", "").Replace(cleaned)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		match := jsonObject.FindString(cleaned)
		if match == "" {
			return nil, unparsable(errors.New("no JSON object in response"), raw)
		}
		fields = nil
		if err := json.Unmarshal([]byte(match), &fields); err != nil {
			return nil, unparsable(err, raw)
		}
	}

	var out models.StructuredAnswer
	var hasAnswer, hasEmojis bool
	var err error
	if out.Question, _, err = stringField(fields, "question"); err != nil {
		return nil, unparsable(err, raw)
	}
	if out.LanguageQuestion, _, err = stringField(fields, "language_question"); err != nil {
		return nil, unparsable(err, raw)
	}
	if out.Answer, hasAnswer, err = stringField(fields, "answer"); err != nil {
		return nil, unparsable(err, raw)
	}
	if out.Emojis, hasEmojis, err = stringField(fields, "emojis"); err != nil {
		return nil, unparsable(err, raw)
	}
	if !hasAnswer || !hasEmojis {
		return nil, unparsable(errors.New("response lacks answer or emojis"), raw)
	}
	return &out, nil
}

// stringField reads fields[key] as a string. A missing key or a JSON null
// reports ok false.
func stringField(fields map[string]json.RawMessage, key string) (s string, ok bool, err error) {
	raw, found := fields[key]
	if !found || string(raw) == "null" {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, fmt.Errorf("field %s: %w", key, err)
	}
	return s, true, nil
}

func unparsable(err error, raw string) error {
	return &models.GenerationError{
		Kind: models.UnparsableResponse,
		Err:  fmt.Errorf("%w (response %q)", err, truncate(raw, 120)),
	}
}

func truncate(s string, n int) string {
	return utils.Truncate(utils.SingleLine(s), n)
}
