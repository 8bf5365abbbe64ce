package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageXML(name string, body string) string {
	return `<session><regionpage name="` + name + `" color="#336699">` + body + `</regionpage></session>`
}

func TestReconcile_RegionReplacedNotMerged(t *testing.T) {
	s := NewSession()
	p, err := s.SelectPage("p")
	require.NoError(t, err)
	require.NoError(t, p.AddRegion(mustRegion(t, "a", 1, 1, 5, 5, 1, 1)))

	_, err = ReconcileXML(s, pageXML("p", `<region name="a" x="9" y="9" w="2" h="2" scaling_x="1.0" scaling_y="1.0"/>`))
	require.NoError(t, err)

	a, ok := p.Region("a")
	require.True(t, ok)
	assert.Equal(t, Region{Name: "a", X: 9, Y: 9, W: 2, H: 2, ScalingX: 1, ScalingY: 1}, a)
}

func TestReconcile_RegionDeletedByAbsence(t *testing.T) {
	s := NewSession()
	p, err := s.SelectPage("p")
	require.NoError(t, err)
	require.NoError(t, p.AddRegion(mustRegion(t, "a", 1, 1, 5, 5, 1, 1)))
	require.NoError(t, p.AddRegion(mustRegion(t, "b", 1, 1, 5, 5, 1, 1)))

	report, err := ReconcileXML(s, pageXML("p", `<region name="a" x="1" y="1" w="5" h="5"/>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, p.RegionNames())
	assert.Equal(t, map[string][]string{"p": {"b"}}, report.RemovedRegions)
	assert.Equal(t, []string{"p"}, report.UpdatedPages)
}

func TestReconcile_IncomingOrderWins(t *testing.T) {
	s := NewSession()
	p, err := s.SelectPage("p")
	require.NoError(t, err)
	require.NoError(t, p.AddRegion(mustRegion(t, "a", 1, 1, 5, 5, 1, 1)))
	require.NoError(t, p.AddRegion(mustRegion(t, "b", 1, 1, 5, 5, 1, 1)))

	_, err = ReconcileXML(s, pageXML("p", `<region name="c"/><region name="b"/><region name="a"/>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "b", "a"}, p.RegionNames())
}

func TestReconcile_RulesMatchByValuesAndDropUnmatched(t *testing.T) {
	s := NewSession()
	p := NewRegionPage("p")
	p.Rules = &RuleSet{Name: "r", Rules: []*RuleWidget{
		{Rule: Rule{Source: "p", Symbol: "is", Values: "int"}},
		{Rule: Rule{Source: "p", Symbol: "is", Values: "str", Destination: "keep", Result: "me"}},
	}}
	require.NoError(t, s.AddPage(p))

	report, err := ReconcileXML(s, pageXML("p",
		`<rule source="p" symbol="is" values="int" destination="page" result="n" enabled="True"/>`+
			`<rule source="p" symbol="is" values="roman" destination="x" result="y" enabled="True"/>`))
	require.NoError(t, err)

	require.Len(t, p.Rules.Rules, 2)
	intRule := p.Rules.Rules[0]
	assert.Equal(t, "page", intRule.Destination)
	assert.Equal(t, "n", intRule.Result)
	assert.True(t, intRule.Enabled)

	strRule := p.Rules.Rules[1]
	assert.Equal(t, "keep", strRule.Destination)
	assert.Equal(t, "me", strRule.Result)
	assert.False(t, strRule.Enabled)

	assert.Empty(t, p.Rules.Lookup("roman"))
	assert.Equal(t, map[string][]string{"p": {"roman"}}, report.DroppedRules)
}

func TestReconcile_RuleMissingFieldsLeftUntouched(t *testing.T) {
	s := NewSession()
	p, err := s.SelectPage("p")
	require.NoError(t, err)
	p.Rules.Set("int", "page", "n", true)

	_, err = ReconcileXML(s, pageXML("p", `<rule values="int" result="m"/>`))
	require.NoError(t, err)

	w := p.Rules.Lookup("int")[0]
	assert.Equal(t, "page", w.Destination)
	assert.Equal(t, "m", w.Result)
	assert.True(t, w.Enabled)
}

func TestReconcile_CreatesPagesAndKeepsStickyDefault(t *testing.T) {
	s := NewSession()
	doc := `<session>
  <regionpage name="first" color="#ff0000"/>
  <regionpage name="second"/>
</session>`

	report, err := ReconcileXML(s, doc)
	require.NoError(t, err)
	assert.True(t, report.DefaultChanged)
	assert.Equal(t, []string{"first", "second"}, report.CreatedPages)
	assert.Equal(t, "first", s.DefaultName())

	first, _ := s.Page("first")
	assert.Equal(t, "#ff0000", first.ColorHex())
	second, _ := s.Page("second")
	assert.Equal(t, PageColor("second").Hex(), second.ColorHex())
	assert.Len(t, second.Rules.Rules, len(RuleTypes))

	require.NoError(t, s.SetDefault("second"))
	report, err = ReconcileXML(s, `<session><regionpage name="third"/></session>`)
	require.NoError(t, err)
	assert.False(t, report.DefaultChanged)
	assert.Equal(t, "second", s.DefaultName())
}

func TestReconcile_PagesAbsentFromDocumentAreKept(t *testing.T) {
	s := NewSession()
	local, err := s.SelectPage("local")
	require.NoError(t, err)
	require.NoError(t, local.AddRegion(mustRegion(t, "a", 1, 1, 1, 1, 1, 1)))

	_, err = ReconcileXML(s, pageXML("remote", ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"local", "remote"}, s.PageNames())
	assert.Equal(t, []string{"a"}, local.RegionNames())
}

func TestReconcile_Idempotent(t *testing.T) {
	doc, err := sampleSession(t).XML()
	require.NoError(t, err)

	s := NewSession()
	_, err = s.SelectPage("local only")
	require.NoError(t, err)

	_, err = ReconcileXML(s, doc)
	require.NoError(t, err)
	once := s.Clone()

	_, err = ReconcileXML(s, doc)
	require.NoError(t, err)
	assert.Equal(t, once, s)
}

func TestReconcile_ParseFailureLeavesStateUnchanged(t *testing.T) {
	s := sampleSession(t)
	before := s.Clone()

	// the first page is valid, the second is broken
	bad := `<session>
  <regionpage name="cover"><region name="x" x="1"/></regionpage>
  <regionpage name="spine"><region x="1"/></regionpage>
</session>`

	_, err := ReconcileXML(s, bad)
	require.Error(t, err)
	assert.Equal(t, before, s)
}

func TestReconcile_DoesNotAliasLocalRegions(t *testing.T) {
	s := NewSession()
	p, err := s.SelectPage("p")
	require.NoError(t, err)
	require.NoError(t, p.AddRegion(mustRegion(t, "a", 1, 1, 1, 1, 1, 1)))
	require.NoError(t, p.AddRegion(mustRegion(t, "b", 1, 1, 1, 1, 1, 1)))
	held := p.Regions

	_, err = ReconcileXML(s, pageXML("p", `<region name="b"/>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, []string{held[0].Name, held[1].Name})
	assert.Equal(t, []string{"b"}, p.RegionNames())
}
