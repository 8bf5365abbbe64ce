package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/adverant/nexus/region-annotator/internal/errors"
)

func TestSession_FirstPageIsDefault(t *testing.T) {
	s := NewSession()
	assert.Nil(t, s.DefaultPage())

	require.NoError(t, s.AddPage(NewRegionPage("one")))
	require.NoError(t, s.AddPage(NewRegionPage("two")))

	assert.Equal(t, "one", s.DefaultName())
	assert.Equal(t, []string{"one", "two"}, s.PageNames())
	assert.ErrorIs(t, s.AddPage(NewRegionPage("one")), ErrPageExists)
}

func TestSession_SelectPage(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.AddPage(NewRegionPage("one")))

	p, err := s.SelectPage("three")
	require.NoError(t, err)
	assert.Equal(t, "three", p.Name)
	assert.Equal(t, "three", s.DefaultName())
	assert.Equal(t, 2, s.Len())

	_, err = s.SelectPage("one")
	require.NoError(t, err)
	assert.Equal(t, "one", s.DefaultName())
	assert.Equal(t, 2, s.Len())
}

func TestSession_SetDefaultUnknown(t *testing.T) {
	s := NewSession()
	err := s.SetDefault("nope")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorPageNotFound))
}

func TestSession_PageOrDefault(t *testing.T) {
	s := NewSession()
	_, err := s.PageOrDefault("")
	assert.ErrorIs(t, err, ErrNoDefaultPage)

	require.NoError(t, s.AddPage(NewRegionPage("one")))
	require.NoError(t, s.AddPage(NewRegionPage("two")))

	p, err := s.PageOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "one", p.Name)

	p, err = s.PageOrDefault("two")
	require.NoError(t, err)
	assert.Equal(t, "two", p.Name)

	_, err = s.PageOrDefault("three")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorPageNotFound))
}

func TestSession_AddRegionNeedsDefault(t *testing.T) {
	s := NewSession()
	r := mustRegion(t, "a", 0, 0, 1, 1, 1, 1)
	assert.ErrorIs(t, s.AddRegion(r), ErrNoDefaultPage)

	_, err := s.SelectPage("one")
	require.NoError(t, err)
	require.NoError(t, s.AddRegion(r))
	assert.Equal(t, []string{"a"}, s.DefaultPage().RegionNames())
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession()
	_, err := s.SelectPage("one")
	require.NoError(t, err)
	require.NoError(t, s.AddRegion(mustRegion(t, "a", 0, 0, 1, 1, 1, 1)))

	c := s.Clone()
	cp, _ := c.Page("one")
	cp.RemoveRegion("a")
	cp.Rules.Rules[0].Enabled = true

	p, _ := s.Page("one")
	assert.Equal(t, []string{"a"}, p.RegionNames())
	assert.False(t, p.Rules.Rules[0].Enabled)
}

func TestBuildScripts(t *testing.T) {
	s := NewSession()
	one, err := s.SelectPage("one")
	require.NoError(t, err)
	require.NoError(t, one.AddRegion(mustRegion(t, "a", 10, 10, 10, 10, 1, 1)))
	one.Rules.Set("int", "page", "n", true)

	two, err := s.SelectPage("two")
	require.NoError(t, err)
	require.NoError(t, two.AddRegion(mustRegion(t, "b", 10, 10, 10, 10, 1, 1)))
	require.NoError(t, s.SetDefault("one"))

	single := BuildScripts(s, true)
	assert.Equal(t, one.Scripts(), single.Regions)
	assert.Equal(t, one.Rules.Script(true, false), single.Rules)
	assert.Contains(t, single.Rules, "one_ocr is int -> page n")

	all := BuildScripts(s, false)
	assert.Equal(t, one.Scripts()+"\n"+two.Scripts()+"\n", all.Regions)
	assert.Equal(t, one.Rules.Script(true, false)+two.Rules.Script(true, false), all.Rules)
	assert.Equal(t, all.Regions+"\n"+all.Rules, all.Text())

	assert.True(t, BuildScripts(NewSession(), true).Empty())
}
