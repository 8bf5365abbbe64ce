package annotation

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	apperrors "github.com/adverant/nexus/region-annotator/internal/errors"
)

// RegionPage is a named group of regions sharing one rule set
type RegionPage struct {
	Name    string
	Color   colorful.Color
	Regions []Region
	Rules   *RuleSet
}

// NewRegionPage creates a page with a color derived from its name
func NewRegionPage(name string) *RegionPage {
	return NewRegionPageWithColor(name, PageColor(name))
}

// NewRegionPageWithColor creates a page with the fixed rule slots sourced from the page name
func NewRegionPageWithColor(name string, color colorful.Color) *RegionPage {
	return &RegionPage{
		Name:  name,
		Color: color,
		Rules: DefaultRuleSet(name),
	}
}

// PageColor picks a stable, distinguishable color for a page name. The value is
// normalized through its hex form so it survives a document round trip unchanged.
func PageColor(name string) colorful.Color {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()

	hue := float64(sum % 360)
	sat := 0.55 + float64((sum>>9)%30)/100
	val := 0.75 + float64((sum>>17)%20)/100
	c, _ := colorful.Hex(colorful.Hsv(hue, sat, val).Clamped().Hex())
	return c
}

// ColorHex returns the page color as #rrggbb
func (p *RegionPage) ColorHex() string {
	return p.Color.Hex()
}

// Region returns the region with the given name
func (p *RegionPage) Region(name string) (Region, bool) {
	if i := p.indexOf(name); i >= 0 {
		return p.Regions[i], true
	}
	return Region{}, false
}

// RegionNames returns region names in page order
func (p *RegionPage) RegionNames() []string {
	names := make([]string, 0, len(p.Regions))
	for _, r := range p.Regions {
		names = append(names, r.Name)
	}
	return names
}

// AddRegion appends r. A region with the same name is removed first, so a
// replacement always ends up last.
func (p *RegionPage) AddRegion(r Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	p.Regions = replaceRegion(p.Regions, r)
	return nil
}

// RemoveRegion deletes the named region and reports whether it existed
func (p *RegionPage) RemoveRegion(name string) bool {
	i := p.indexOf(name)
	if i < 0 {
		return false
	}
	p.Regions = append(p.Regions[:i:i], p.Regions[i+1:]...)
	return true
}

// RenameRegion renames in place, keeping the region's position
func (p *RegionPage) RenameRegion(oldName, newName string) error {
	i := p.indexOf(oldName)
	if i < 0 {
		return apperrors.NewInvalidRegionError(oldName, "no such region on page "+p.Name)
	}
	if newName == "" {
		return apperrors.NewInvalidRegionError(oldName, "new name is empty")
	}
	if oldName == newName {
		return nil
	}
	if p.indexOf(newName) >= 0 {
		return apperrors.NewInvalidRegionError(newName, "name already used on page "+p.Name)
	}
	p.Regions[i].Name = newName
	return nil
}

// Scripts renders the crop and OCR calls for every region as one parenthesized
// expression. Coordinates are the scaled ones.
func (p *RegionPage) Scripts() string {
	var b strings.Builder
	b.WriteString("(")
	for i, r := range p.Regions {
		if i > 0 {
			b.WriteString("\n")
		}
		c := r.CoordinatesScaled()
		fmt.Fprintf(&b, cropCallTemplate, c[0], c[1], c[2], c[3], r.Name)
		b.WriteString("\n")
		fmt.Fprintf(&b, ocrCallTemplate, r.Name, r.Name)
	}
	b.WriteString(")")
	return b.String()
}

// Clone returns a deep copy
func (p *RegionPage) Clone() *RegionPage {
	return &RegionPage{
		Name:    p.Name,
		Color:   p.Color,
		Regions: append([]Region(nil), p.Regions...),
		Rules:   p.Rules.Clone(),
	}
}

func (p *RegionPage) indexOf(name string) int {
	return indexRegion(p.Regions, name)
}

func indexRegion(regions []Region, name string) int {
	for i, r := range regions {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// replaceRegion removes any region named r.Name and appends r. It never writes
// into the backing array of the input.
func replaceRegion(regions []Region, r Region) []Region {
	out := make([]Region, 0, len(regions)+1)
	for _, existing := range regions {
		if existing.Name != r.Name {
			out = append(out, existing)
		}
	}
	return append(out, r)
}
