// Package terminology compiles terminology rules into an immutable RuleSet
// and scans tokenized sentences against it.
//
// A rule names an accepted word (or none, for "remove this" rules) and a list
// of pattern groups. A pattern group is a phrase of one to five token
// patterns plus optional context patterns that must be present (positive) or
// absent (negative) at fixed or fuzzy offsets around the phrase.
package terminology

// Look is the direction in which a context pattern is searched.
type Look string

const (
	LookAfter  Look = "after"
	LookBefore Look = "before"
)

// Mode selects between a single context offset and a contiguous range.
type Mode string

const (
	ModeExact Mode = "exact"
	ModeFuzzy Mode = "fuzzy"
)

// Polarity states whether a context pattern must match or must not match.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// MaxGroupPatterns is the longest phrase a pattern group can describe.
const MaxGroupPatterns = 5

// PatternDefinition is a single-token pattern. Patterns are matched
// case-insensitively unless KeepCase is set.
type PatternDefinition struct {
	Text     string `yaml:"text" json:"text" toml:"text"`
	KeepCase bool   `yaml:"keepCase,omitempty" json:"keep_case,omitempty" toml:"keepCase,omitempty"`
}

// ContextDefinition is a condition on the tokens around a phrase match.
// Where defaults to 1, Look to after, Mode to exact and Match to positive.
type ContextDefinition struct {
	Text     string   `yaml:"text" json:"text" toml:"text"`
	Look     Look     `yaml:"look,omitempty" json:"look,omitempty" toml:"look,omitempty"`
	Where    int      `yaml:"where,omitempty" json:"where,omitempty" toml:"where,omitempty"`
	Mode     Mode     `yaml:"mode,omitempty" json:"mode,omitempty" toml:"mode,omitempty"`
	Match    Polarity `yaml:"match,omitempty" json:"match,omitempty" toml:"match,omitempty"`
	KeepCase bool     `yaml:"keepCase,omitempty" json:"keep_case,omitempty" toml:"keepCase,omitempty"`
}

// GroupDefinition is an ordered phrase of token patterns and its context
// conditions. A pattern with empty text ends the phrase.
type GroupDefinition struct {
	Patterns []PatternDefinition `yaml:"patterns" json:"patterns" toml:"patterns"`
	Contexts []ContextDefinition `yaml:"contexts,omitempty" json:"contexts,omitempty" toml:"contexts,omitempty"`
}

// RuleDefinition is one terminology rule. Accept is the preferred
// replacement; an empty Accept asks for the matched text to be removed.
type RuleDefinition struct {
	Accept        string            `yaml:"accept,omitempty" json:"accept,omitempty" toml:"accept,omitempty"`
	AcceptContext string            `yaml:"acceptContext,omitempty" json:"accept_context,omitempty" toml:"acceptContext,omitempty"`
	Groups        []GroupDefinition `yaml:"groups" json:"groups" toml:"groups"`
}

// Definitions is the complete input of Compile.
type Definitions struct {
	Rules        []RuleDefinition `yaml:"rules" json:"rules" toml:"rules"`
	IgnoredWords string           `yaml:"ignoredWords,omitempty" json:"ignored_words,omitempty" toml:"ignoredWords,omitempty"`
	Prefilter    bool             `yaml:"prefilter" json:"prefilter" toml:"prefilter"`
}
