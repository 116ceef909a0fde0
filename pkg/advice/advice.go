package advice

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Character is the optional glyph attached to a piece of advice. It only
// exists when the glyph itself is present.
type Character struct {
	Glyph       string
	Explanation string
}

// StrategyAdvice is the structured answer produced for one query.
type StrategyAdvice struct {
	Title            string
	OriginalQuote    string
	Interpretation   string
	ActionableAdvice []string
	Character        *Character
}

// wireAdvice is the flat JSON shape shared with the gateway and the provider schema.
type wireAdvice struct {
	Title                string   `json:"title"`
	OriginalQuote        string   `json:"originalQuote"`
	Interpretation       string   `json:"interpretation"`
	ActionableAdvice     []string `json:"actionableAdvice"`
	ChineseCharacter     string   `json:"chineseCharacter,omitempty"`
	CharacterExplanation string   `json:"characterExplanation,omitempty"`
}

func (a StrategyAdvice) MarshalJSON() ([]byte, error) {
	a = a.Normalized()
	w := wireAdvice{
		Title:            a.Title,
		OriginalQuote:    a.OriginalQuote,
		Interpretation:   a.Interpretation,
		ActionableAdvice: a.ActionableAdvice,
	}
	if a.Character != nil {
		w.ChineseCharacter = a.Character.Glyph
		w.CharacterExplanation = a.Character.Explanation
	}
	return json.Marshal(w)
}

func (a *StrategyAdvice) UnmarshalJSON(data []byte) error {
	var w wireAdvice
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = StrategyAdvice{
		Title:            w.Title,
		OriginalQuote:    w.OriginalQuote,
		Interpretation:   w.Interpretation,
		ActionableAdvice: w.ActionableAdvice,
		Character:        NewCharacter(w.ChineseCharacter, w.CharacterExplanation),
	}
	if a.ActionableAdvice == nil {
		a.ActionableAdvice = []string{}
	}
	return nil
}

// NewCharacter pairs a glyph with its explanation. A blank glyph yields nil,
// discarding any explanation that came without one.
func NewCharacter(glyph, explanation string) *Character {
	glyph = strings.TrimSpace(glyph)
	if glyph == "" {
		return nil
	}
	return &Character{Glyph: glyph, Explanation: strings.TrimSpace(explanation)}
}

// Normalized returns a copy in the form it takes after a JSON round trip:
// the character pair rebuilt through NewCharacter and a non-nil advice list.
func (a StrategyAdvice) Normalized() StrategyAdvice {
	if a.Character != nil {
		a.Character = NewCharacter(a.Character.Glyph, a.Character.Explanation)
	}
	if a.ActionableAdvice == nil {
		a.ActionableAdvice = []string{}
	}
	return a
}

// Validate reports the first required field that is missing.
func (a *StrategyAdvice) Validate() error {
	switch {
	case strings.TrimSpace(a.Title) == "":
		return fmt.Errorf("%w: missing title", ErrUpstream)
	case strings.TrimSpace(a.OriginalQuote) == "":
		return fmt.Errorf("%w: missing originalQuote", ErrUpstream)
	case strings.TrimSpace(a.Interpretation) == "":
		return fmt.Errorf("%w: missing interpretation", ErrUpstream)
	case len(a.ActionableAdvice) == 0:
		return fmt.Errorf("%w: missing actionableAdvice", ErrUpstream)
	}
	return nil
}

// HistoryItem is one successful consultation kept by the client.
type HistoryItem struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Advice    StrategyAdvice `json:"advice"`
	Timestamp int64          `json:"timestamp"`
}

// Request is the body sent to the gateway.
type Request struct {
	Query    string `json:"query"`
	Password string `json:"password"`
}

// Validate rejects requests that must never leave the client.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if r.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}
