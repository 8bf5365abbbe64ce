package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/adverant/nexus/region-annotator/internal/errors"
)

func sampleSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()

	cover, err := s.SelectPage("cover")
	require.NoError(t, err)
	require.NoError(t, cover.AddRegion(mustRegion(t, "top left", 100, 50, 40, 20, 2, 2)))
	require.NoError(t, cover.AddRegion(mustRegion(t, "bottom right", 7, 9, 31, 12, 0.4837, 0.51)))
	cover.Rules.Set("int", "page_number", "detected", true)
	cover.Rules.Set("roman", "front_matter", "yes", false)

	spine, err := s.SelectPage("spine")
	require.NoError(t, err)
	require.NoError(t, spine.AddRegion(mustRegion(t, "label", 1, 2, 3, 4, 1, 1)))

	require.NoError(t, s.SetDefault("cover"))
	return s
}

func TestSessionXML_Format(t *testing.T) {
	s := sampleSession(t)
	out, err := s.XML()
	require.NoError(t, err)

	assert.Contains(t, out, "<session>")
	assert.Contains(t, out, `<regionpage color="`+PageColor("cover").Hex()+`" name="cover">`)
	assert.Contains(t, out, `<region name="top left" color="" x="100" y="50" w="40" h="20" scaling_x="2.0" scaling_y="2.0">`)
	assert.Contains(t, out, `<coordinates scaled="False" x="100" y="50" w="40" h="20"/>`)
	assert.Contains(t, out, `<coordinates scaled="True" x="50" y="25" w="20" h="10"/>`)
	assert.Contains(t, out, `scaling_x="0.4837"`)
	assert.Contains(t, out, `<rule source="cover" symbol="is" values="int" destination="page_number" result="detected" enabled="True"/>`)
	assert.Contains(t, out, `<rule source="cover" symbol="is" values="str" destination="" result="" enabled="False"/>`)
}

func TestSessionXML_RoundTrip(t *testing.T) {
	s := sampleSession(t)
	out, err := s.XML()
	require.NoError(t, err)

	fresh := NewSession()
	report, err := ReconcileXML(fresh, out)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, []string{"cover", "spine"}, report.CreatedPages)

	assert.Equal(t, s, fresh)

	again, err := fresh.XML()
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestParseSessionXML_Malformed(t *testing.T) {
	for name, data := range map[string]string{
		"truncated":         `<session><regionpage name="a">`,
		"not xml":           `hello`,
		"empty":             ``,
		"page without name": `<session><regionpage color="#ffffff"/></session>`,
		"region no name":    `<session><regionpage name="a"><region x="1"/></regionpage></session>`,
		"zero scaling":      `<session><regionpage name="a"><region name="r" scaling_x="0"/></regionpage></session>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSessionXML(data)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrorParseFailed))
		})
	}
}

func TestParseSessionXML_Coercion(t *testing.T) {
	data := `<session>
  <regionpage name="a" color="not-a-color">
    <region name="r" x="12.0" y="abc" w="5" h="6" scaling_x="2" scaling_y="0.5" extra="ignored"/>
    <rule values="int" enabled="TRUE"/>
    <rule destination="d"/>
  </regionpage>
</session>`

	doc, err := ParseSessionXML(data)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	page := doc.Pages[0]
	assert.False(t, page.HasColor)
	require.Len(t, page.Regions, 1)
	r := page.Regions[0]
	assert.Equal(t, 12, r.X)
	assert.Equal(t, 0, r.Y)
	assert.Equal(t, 2.0, r.ScalingX)
	assert.Equal(t, 0.5, r.ScalingY)

	require.Len(t, page.Rules, 1)
	require.NotNil(t, page.Rules[0].Enabled)
	assert.True(t, *page.Rules[0].Enabled)
	assert.Nil(t, page.Rules[0].Destination)

	// color, y and the rule without values
	assert.Len(t, doc.Warnings, 3)
	assert.True(t, apperrors.IsCode(doc.Warnings[0], apperrors.ErrorCoercionFailed))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "2.0", formatFloat(2))
	assert.Equal(t, "0.5", formatFloat(0.5))
	assert.Equal(t, "0.4837", formatFloat(0.4837))
}
