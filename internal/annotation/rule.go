package annotation

import (
	"fmt"
	"strings"
)

// RuleTypes are the fixed rule slots every page carries. The values field doubles as
// the slot identity when merging.
var RuleTypes = []string{"int", "str", "roman", "Range", "STRING"}

const (
	DefaultRuleSetName = "r"
	DefaultRuleSymbol  = "is"
)

// Rule rewrites <source>_ocr into destination/result when it relates to values via symbol
type Rule struct {
	Source      string
	Symbol      string
	Values      string
	Destination string
	Result      string
}

// Line renders the rule in ruleset grammar
func (r Rule) Line() string {
	return fmt.Sprintf("%s_ocr %s %s -> %s %s", r.Source, r.Symbol, r.Values, r.Destination, r.Result)
}

// RuleWidget is the editable unit: a rule plus whether it is emitted
type RuleWidget struct {
	Rule
	Enabled bool
}

// RuleSet is an ordered, named collection of rule widgets
type RuleSet struct {
	Name  string
	Rules []*RuleWidget
}

// NewRuleSet creates an empty rule set
func NewRuleSet(name string) *RuleSet {
	if name == "" {
		name = DefaultRuleSetName
	}
	return &RuleSet{Name: name}
}

// DefaultRuleSet pre-instantiates one disabled widget per rule type for source
func DefaultRuleSet(source string) *RuleSet {
	rs := NewRuleSet(DefaultRuleSetName)
	for _, t := range RuleTypes {
		rs.Rules = append(rs.Rules, &RuleWidget{
			Rule: Rule{Source: source, Symbol: DefaultRuleSymbol, Values: t},
		})
	}
	return rs
}

// Lookup returns every widget whose values field equals values
func (rs *RuleSet) Lookup(values string) []*RuleWidget {
	var out []*RuleWidget
	for _, w := range rs.Rules {
		if w.Values == values {
			out = append(out, w)
		}
	}
	return out
}

// Set updates the widgets for a rule type. It reports false when no slot matches.
func (rs *RuleSet) Set(values, destination, result string, enabled bool) bool {
	matched := rs.Lookup(values)
	for _, w := range matched {
		w.Destination = destination
		w.Result = result
		w.Enabled = enabled
	}
	return len(matched) > 0
}

// Enabled returns the enabled widgets in declaration order
func (rs *RuleSet) Enabled() []*RuleWidget {
	var out []*RuleWidget
	for _, w := range rs.Rules {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out
}

// Script renders the enabled rules as "ruleset <name> {...}". With newlines false the
// rule lines are separated by single spaces. With keyling true the ruleset is wrapped in
// the engine call that loads it; placeholders are left for the engine to substitute.
func (rs *RuleSet) Script(keyling, newlines bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ruleset %s {", rs.Name)
	if newlines {
		b.WriteString("\n")
	}

	for i, w := range rs.Enabled() {
		if !newlines && i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(w.Line())
		if newlines {
			b.WriteString("\n")
		}
	}
	b.WriteString("}")

	script := b.String()
	if keyling {
		script = fmt.Sprintf(rulingCallTemplate, script)
	}
	return script
}

// Clone returns a deep copy
func (rs *RuleSet) Clone() *RuleSet {
	out := &RuleSet{Name: rs.Name, Rules: make([]*RuleWidget, 0, len(rs.Rules))}
	for _, w := range rs.Rules {
		c := *w
		out.Rules = append(out.Rules, &c)
	}
	return out
}
