package terminology

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// capturingParen finds opening parentheses that start a capturing group:
// not escaped, and not followed by "?" (look-around, named or non-capturing
// groups), "|" or ":".
var capturingParen = regexp2.MustCompile(`(?<!\\)\((?![?|:])`, regexp2.None)

// Input anchors in a first pattern refer to the token it is matched
// against. The pre-filter sees one token per line, so they become line
// anchors there.
var (
	startAnchor = regexp2.MustCompile(`(?<!\\)\\A`, regexp2.None)
	endAnchor   = regexp2.MustCompile(`(?<!\\)\\[zZ]`, regexp2.None)
)

const (
	contextGuardBefore = `(?<![-#@;/\\+=:.$*])`
	contextGuardAfter  = `(?![-#@+=$*])`
)

// Option adjusts how Compile builds a RuleSet.
type Option func(*compileOptions)

type compileOptions struct {
	matchTimeout time.Duration
}

// WithMatchTimeout bounds the time a single pattern may spend on one input.
// A zero duration disables the limit.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *compileOptions) {
		o.matchTimeout = d
	}
}

// Compile turns rule definitions into a RuleSet. It fails on the first
// configuration error and never returns a partial RuleSet.
func Compile(defs Definitions, opts ...Option) (*RuleSet, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}
	c := &compiler{opts: o}

	rs := &RuleSet{
		rules:   make([]rule, 0, len(defs.Rules)),
		version: Version(defs),
	}
	if defs.IgnoredWords != "" {
		re, err := c.compile(anchored(wrapWord(defs.IgnoredWords)), false)
		if err != nil {
			return nil, &RuleError{Rule: -1, Group: -1, Context: -1, Err: fmt.Errorf("ignored words: %w", err)}
		}
		rs.ignored = re
	}

	var firsts []string
	for ri, rd := range defs.Rules {
		r := rule{
			accept:        rd.Accept,
			acceptContext: rd.AcceptContext,
			groups:        make([]group, 0, len(rd.Groups)),
		}
		if r.accept == "" {
			r.acceptContext = ""
		}
		for gi, gd := range rd.Groups {
			g, err := c.group(gd)
			if err != nil {
				var rerr *RuleError
				if errors.As(err, &rerr) {
					rerr.Rule, rerr.Group = ri, gi
					return nil, rerr
				}
				return nil, &RuleError{Rule: ri, Group: gi, Context: -1, Err: err}
			}
			r.groups = append(r.groups, g)
			firsts = append(firsts, "(?:"+wrapWord(lineAnchored(nonCapturing(gd.Patterns[0].Text)))+")")
		}
		rs.groupCount += len(r.groups)
		rs.rules = append(rs.rules, r)
	}

	if defs.Prefilter && len(firsts) > 0 {
		re, err := c.compileWith(strings.Join(firsts, "|"), regexp2.IgnoreCase|regexp2.Multiline)
		if err != nil {
			return nil, &RuleError{Rule: -1, Group: -1, Context: -1, Err: fmt.Errorf("prefilter: %w", err)}
		}
		rs.prefilter = re
	}
	return rs, nil
}

type compiler struct {
	opts compileOptions
}

func (c *compiler) compile(expr string, keepCase bool) (*regexp2.Regexp, error) {
	opt := regexp2.RegexOptions(regexp2.IgnoreCase)
	if keepCase {
		opt = regexp2.None
	}
	return c.compileWith(expr, opt)
}

func (c *compiler) compileWith(expr string, opt regexp2.RegexOptions) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, expr, err)
	}
	if c.opts.matchTimeout > 0 {
		re.MatchTimeout = c.opts.matchTimeout
	}
	return re, nil
}

func (c *compiler) group(gd GroupDefinition) (group, error) {
	if len(gd.Patterns) == 0 || gd.Patterns[0].Text == "" {
		return group{}, ErrEmptyPattern
	}
	if len(gd.Patterns) > MaxGroupPatterns {
		return group{}, ErrTooManyPatterns
	}
	g := group{patterns: make([]*regexp2.Regexp, 0, len(gd.Patterns))}
	for _, pd := range gd.Patterns {
		if pd.Text == "" {
			break
		}
		re, err := c.compile(anchored(wrapWord(pd.Text)), pd.KeepCase)
		if err != nil {
			return group{}, err
		}
		g.patterns = append(g.patterns, re)
	}
	for ci, cd := range gd.Contexts {
		cp, err := c.context(cd)
		if err != nil {
			return group{}, &RuleError{Context: ci, Err: err}
		}
		g.contexts = append(g.contexts, cp)
	}
	return g, nil
}

func (c *compiler) context(cd ContextDefinition) (contextPattern, error) {
	if cd.Text == "" {
		return contextPattern{}, ErrEmptyContextPattern
	}
	factor := 1
	switch cd.Look {
	case "", LookAfter:
	case LookBefore:
		factor = -1
	default:
		return contextPattern{}, fmt.Errorf("%w: look %q", ErrBadContext, cd.Look)
	}
	where := cd.Where
	if where == 0 {
		where = 1
	}
	if where < 0 {
		return contextPattern{}, fmt.Errorf("%w: where %d", ErrBadContext, cd.Where)
	}
	var offsets []int
	switch cd.Mode {
	case "", ModeExact:
		offsets = []int{where * factor}
	case ModeFuzzy:
		offsets = make([]int, 0, where)
		for i := 1; i <= where; i++ {
			offsets = append(offsets, i*factor)
		}
	default:
		return contextPattern{}, fmt.Errorf("%w: mode %q", ErrBadContext, cd.Mode)
	}
	positive := true
	switch cd.Match {
	case "", PolarityPositive:
	case PolarityNegative:
		positive = false
	default:
		return contextPattern{}, fmt.Errorf("%w: match %q", ErrBadContext, cd.Match)
	}
	re, err := c.compile(contextGuardBefore+wrapWord(cd.Text)+contextGuardAfter, cd.KeepCase)
	if err != nil {
		return contextPattern{}, err
	}
	return contextPattern{re: re, offsets: offsets, positive: positive}, nil
}

// wrapWord puts word-boundary anchors around a pattern, as written: an
// alternation in the pattern is not grouped first.
func wrapWord(p string) string {
	return `\b` + p + `\b`
}

// anchored restricts a pattern to match at the start of the input.
func anchored(p string) string {
	return `\A(?:` + p + `)`
}

// nonCapturing rewrites capturing groups to non-capturing ones so that the
// union of all first patterns does not pile up group numbers.
func nonCapturing(p string) string {
	out, err := capturingParen.Replace(p, "(?:", -1, -1)
	if err != nil {
		return p
	}
	return out
}

// lineAnchored turns input anchors into line anchors.
func lineAnchored(p string) string {
	out, err := startAnchor.Replace(p, "^", -1, -1)
	if err != nil {
		return p
	}
	if out, err = endAnchor.Replace(out, "$$", -1, -1); err != nil {
		return p
	}
	return out
}

// Version returns a deterministic digest of the definitions. Two rule sets
// compiled from equal definitions share a version.
func Version(defs Definitions) string {
	data, err := json.Marshal(defs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:16])
}
