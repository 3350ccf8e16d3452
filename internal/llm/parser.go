package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Suggestion is one account proposed by the model.
type Suggestion struct {
	Account    string  `json:"account"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// score accepts a number, a numeric string or a percentage string.
type score float64

func (s *score) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = score(model.Clamp01(f))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("confidence is neither number nor string: %s", data)
	}
	f, ok := parseScore(str)
	if !ok {
		return fmt.Errorf("unparseable confidence %q", str)
	}
	*s = score(f)
	return nil
}

// parseScore reads "0.85", "85%" or "0.85 (high)" and clamps to [0,1].
func parseScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if pct, ok := strings.CutSuffix(raw, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, false
		}
		return model.Clamp01(v / 100), true
	}

	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return model.Clamp01(v), true
	}

	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return model.Clamp01(v), true
}

type rawSuggestion struct {
	Account    string `json:"account"`
	Reasoning  string `json:"reasoning"`
	Confidence score  `json:"confidence"`
}

// parseSuggestions extracts account suggestions from a model reply. It
// accepts a bare array, an object wrapping the array under "suggestions",
// a single suggestion object, and any of those embedded in prose or a
// markdown fence. As a last resort it reads "account|confidence|reasoning"
// lines.
func parseSuggestions(content string) ([]Suggestion, error) {
	content = cleanMarkdownWrapper(content)

	for _, candidate := range jsonValues(content) {
		if suggestions, ok := decodeSuggestions(candidate); ok {
			return suggestions, nil
		}
	}

	if suggestions := parsePipeSuggestions(content); len(suggestions) > 0 {
		return suggestions, nil
	}

	return nil, fmt.Errorf("%w: no suggestions in %q", common.ErrMalformedResponse, truncate(content, 120))
}

func decodeSuggestions(data json.RawMessage) ([]Suggestion, bool) {
	var list []rawSuggestion
	if err := json.Unmarshal(data, &list); err == nil {
		return convertSuggestions(list), true
	}

	var wrapped struct {
		Suggestions []rawSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Suggestions != nil {
		return convertSuggestions(wrapped.Suggestions), true
	}

	var single rawSuggestion
	if err := json.Unmarshal(data, &single); err == nil && single.Account != "" {
		return convertSuggestions([]rawSuggestion{single}), true
	}

	return nil, false
}

func convertSuggestions(raw []rawSuggestion) []Suggestion {
	out := make([]Suggestion, 0, len(raw))
	for _, r := range raw {
		account := strings.TrimSpace(r.Account)
		if account == "" {
			continue
		}
		out = append(out, Suggestion{
			Account:    account,
			Confidence: float64(r.Confidence),
			Reasoning:  strings.TrimSpace(r.Reasoning),
		})
	}
	return out
}

func parsePipeSuggestions(content string) []Suggestion {
	var out []Suggestion
	for _, line := range strings.Split(content, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) != 3 {
			continue
		}
		account := strings.TrimSpace(parts[0])
		confidence, ok := parseScore(parts[1])
		if account == "" || !ok {
			continue
		}
		out = append(out, Suggestion{
			Account:    account,
			Confidence: confidence,
			Reasoning:  strings.TrimSpace(parts[2]),
		})
	}
	return out
}

// Explanation is a generated transaction explanation.
type Explanation struct {
	Text       string
	Confidence float64
}

// parseExplanation reads {"explanation","confidence"} or an
// "explanation|confidence" line.
func parseExplanation(content string) (Explanation, error) {
	content = cleanMarkdownWrapper(content)

	for _, candidate := range jsonValues(content) {
		var raw struct {
			Explanation string `json:"explanation"`
			Confidence  score  `json:"confidence"`
		}
		if err := json.Unmarshal(candidate, &raw); err == nil && strings.TrimSpace(raw.Explanation) != "" {
			return Explanation{
				Text:       strings.TrimSpace(raw.Explanation),
				Confidence: float64(raw.Confidence),
			}, nil
		}
	}

	if idx := strings.LastIndex(content, "|"); idx > 0 {
		text := strings.TrimSpace(content[:idx])
		if confidence, ok := parseScore(content[idx+1:]); ok && text != "" {
			return Explanation{Text: text, Confidence: confidence}, nil
		}
	}

	return Explanation{}, fmt.Errorf("%w: no explanation in %q", common.ErrMalformedResponse, truncate(content, 120))
}

// jsonValues returns every complete JSON array or object that starts at an
// opening bracket in s, in order of appearance.
func jsonValues(s string) []json.RawMessage {
	var out []json.RawMessage
	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}
		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		out = append(out, raw)
		i += int(dec.InputOffset()) - 1
	}
	return out
}

// cleanMarkdownWrapper strips a surrounding ``` or ```json fence.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(content, "json")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
