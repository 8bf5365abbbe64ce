/**
 * Session document codec
 *
 * <session>
 *   <regionpage color="#rrggbb" name="...">
 *     <region name=".." color=".." x=".." y=".." w=".." h=".." scaling_x=".." scaling_y="..">
 *       <coordinates scaled="False" x=".." y=".." w=".." h=".."/>
 *       <coordinates scaled="True" x=".." y=".." w=".." h=".."/>
 *     </region>
 *     <rule source=".." symbol=".." values=".." destination=".." result=".." enabled="True"/>
 *   </regionpage>
 * </session>
 *
 * Parsing produces plain values (SessionDoc) and never touches a live Session, so a
 * malformed document cannot leave a half-applied merge behind.
 */

package annotation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/lucasb-eyer/go-colorful"

	apperrors "github.com/adverant/nexus/region-annotator/internal/errors"
)

// SessionDoc is a parsed session document
type SessionDoc struct {
	Pages    []PageDoc
	Warnings []error
}

// PageDoc is one parsed <regionpage>
type PageDoc struct {
	Name     string
	Color    colorful.Color
	HasColor bool
	Regions  []Region
	Rules    []RuleDoc
}

// RuleDoc is one parsed <rule>. Nil fields were absent from the element.
type RuleDoc struct {
	Source      string
	Symbol      string
	Values      string
	Destination *string
	Result      *string
	Enabled     *bool
}

// Element renders the region as a <region> element
func (r Region) Element() *etree.Element {
	el := etree.NewElement("region")
	el.CreateAttr("name", r.Name)
	el.CreateAttr("color", r.Color)
	el.CreateAttr("x", strconv.Itoa(r.X))
	el.CreateAttr("y", strconv.Itoa(r.Y))
	el.CreateAttr("w", strconv.Itoa(r.W))
	el.CreateAttr("h", strconv.Itoa(r.H))
	el.CreateAttr("scaling_x", formatFloat(r.ScalingX))
	el.CreateAttr("scaling_y", formatFloat(r.ScalingY))

	// derived values, ignored when reading
	for _, c := range []struct {
		scaled string
		coords [4]int
	}{
		{"False", r.CoordinatesUnscaled()},
		{"True", r.CoordinatesScaled()},
	} {
		coords := el.CreateElement("coordinates")
		coords.CreateAttr("scaled", c.scaled)
		for i, attr := range []string{"x", "y", "w", "h"} {
			coords.CreateAttr(attr, strconv.Itoa(c.coords[i]))
		}
	}
	return el
}

// Element renders the rule widget as a <rule> element
func (w *RuleWidget) Element() *etree.Element {
	el := etree.NewElement("rule")
	el.CreateAttr("source", w.Source)
	el.CreateAttr("symbol", w.Symbol)
	el.CreateAttr("values", w.Values)
	el.CreateAttr("destination", w.Destination)
	el.CreateAttr("result", w.Result)
	el.CreateAttr("enabled", formatBool(w.Enabled))
	return el
}

// Element renders the page with its regions and rules
func (p *RegionPage) Element() *etree.Element {
	el := etree.NewElement("regionpage")
	el.CreateAttr("color", p.ColorHex())
	el.CreateAttr("name", p.Name)
	for _, r := range p.Regions {
		el.AddChild(r.Element())
	}
	for _, w := range p.Rules.Rules {
		el.AddChild(w.Element())
	}
	return el
}

// Document renders the whole session
func (s *Session) Document() *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("session")
	for _, p := range s.Pages() {
		root.AddChild(p.Element())
	}
	doc.Indent(2)
	return doc
}

// XML serializes the session to its stored string form
func (s *Session) XML() (string, error) {
	out, err := s.Document().WriteToString()
	if err != nil {
		return "", apperrors.NewParseError("session", err)
	}
	return out, nil
}

// ParseSessionXML parses a stored session document. Structural problems abort the
// parse; unreadable numbers only add warnings.
func ParseSessionXML(data string) (*SessionDoc, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return nil, apperrors.NewParseError("session", err)
	}

	sessions := doc.FindElements("//session")
	if len(sessions) == 0 {
		return nil, apperrors.NewParseError("session", fmt.Errorf("no <session> element"))
	}

	out := &SessionDoc{}
	for _, session := range sessions {
		for _, pageEl := range session.SelectElements("regionpage") {
			page, err := parsePage(pageEl, &out.Warnings)
			if err != nil {
				return nil, err
			}
			out.Pages = append(out.Pages, page)
		}
	}
	return out, nil
}

func parsePage(el *etree.Element, warnings *[]error) (PageDoc, error) {
	name, ok := attrValue(el, "name")
	if !ok {
		return PageDoc{}, apperrors.NewParseError("regionpage", apperrors.NewMergeKeyMissingError("name"))
	}

	page := PageDoc{Name: name}
	if hex, ok := attrValue(el, "color"); ok {
		c, err := colorful.Hex(hex)
		if err != nil {
			*warnings = append(*warnings, apperrors.NewCoercionError("color", hex))
		} else {
			page.Color = c
			page.HasColor = true
		}
	}

	for _, regionEl := range el.SelectElements("region") {
		r, err := parseRegion(regionEl, warnings)
		if err != nil {
			return PageDoc{}, err
		}
		page.Regions = append(page.Regions, r)
	}

	for _, ruleEl := range el.SelectElements("rule") {
		values, ok := attrValue(ruleEl, "values")
		if !ok {
			*warnings = append(*warnings, apperrors.NewMergeKeyMissingError("values"))
			continue
		}
		rd := RuleDoc{Values: values}
		rd.Source, _ = attrValue(ruleEl, "source")
		rd.Symbol, _ = attrValue(ruleEl, "symbol")
		if v, ok := attrValue(ruleEl, "destination"); ok {
			rd.Destination = &v
		}
		if v, ok := attrValue(ruleEl, "result"); ok {
			rd.Result = &v
		}
		if v, ok := attrValue(ruleEl, "enabled"); ok {
			enabled := strings.EqualFold(v, "true")
			rd.Enabled = &enabled
		}
		page.Rules = append(page.Rules, rd)
	}
	return page, nil
}

func parseRegion(el *etree.Element, warnings *[]error) (Region, error) {
	name, ok := attrValue(el, "name")
	if !ok {
		return Region{}, apperrors.NewParseError("region", apperrors.NewMergeKeyMissingError("name"))
	}

	r := Region{Name: name, ScalingX: 1, ScalingY: 1}
	r.Color, _ = attrValue(el, "color")
	r.X = intAttr(el, "x", 0, warnings)
	r.Y = intAttr(el, "y", 0, warnings)
	r.W = intAttr(el, "w", 0, warnings)
	r.H = intAttr(el, "h", 0, warnings)
	r.ScalingX = floatAttr(el, "scaling_x", 1, warnings)
	r.ScalingY = floatAttr(el, "scaling_y", 1, warnings)

	if err := r.Validate(); err != nil {
		return Region{}, apperrors.NewParseError("region", err)
	}
	return r, nil
}

func attrValue(el *etree.Element, key string) (string, bool) {
	a := el.SelectAttr(key)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// coerce tries int, then float, and otherwise keeps the string
func coerce(s string) interface{} {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func intAttr(el *etree.Element, key string, def int, warnings *[]error) int {
	raw, ok := attrValue(el, key)
	if !ok {
		return def
	}
	switch v := coerce(raw).(type) {
	case int:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			break
		}
		return int(v)
	}
	*warnings = append(*warnings, apperrors.NewCoercionError(key, raw))
	return def
}

func floatAttr(el *etree.Element, key string, def float64, warnings *[]error) float64 {
	raw, ok := attrValue(el, key)
	if !ok {
		return def
	}
	switch v := coerce(raw).(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}
	*warnings = append(*warnings, apperrors.NewCoercionError(key, raw))
	return def
}

// formatFloat always keeps a decimal point, so 2 is written as "2.0"
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
