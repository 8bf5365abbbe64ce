package annotation

import (
	"errors"

	apperrors "github.com/adverant/nexus/region-annotator/internal/errors"
)

// ErrPageExists is returned when adding a page whose name is taken
var ErrPageExists = errors.New("region page already exists")

// ErrNoDefaultPage is returned by operations that target the default page before one exists
var ErrNoDefaultPage = errors.New("no region page selected")

// Session is the top-level aggregate: pages indexed by name, their display order,
// and the name of the default page. It is not safe for concurrent use; the syncer
// owns it on a single goroutine.
type Session struct {
	pages       map[string]*RegionPage
	order       []string
	defaultName string
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{pages: make(map[string]*RegionPage)}
}

// AddPage inserts p. The first page ever added becomes the default.
func (s *Session) AddPage(p *RegionPage) error {
	if _, ok := s.pages[p.Name]; ok {
		return ErrPageExists
	}
	s.pages[p.Name] = p
	s.order = append(s.order, p.Name)
	if s.defaultName == "" {
		s.defaultName = p.Name
	}
	return nil
}

// Page looks a page up by name
func (s *Session) Page(name string) (*RegionPage, bool) {
	p, ok := s.pages[name]
	return p, ok
}

// Pages returns pages in insertion order
func (s *Session) Pages() []*RegionPage {
	out := make([]*RegionPage, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.pages[name])
	}
	return out
}

func (s *Session) PageNames() []string {
	return append([]string(nil), s.order...)
}

func (s *Session) Len() int {
	return len(s.order)
}

// DefaultPage returns the current page, or nil before any page exists
func (s *Session) DefaultPage() *RegionPage {
	if s.defaultName == "" {
		return nil
	}
	return s.pages[s.defaultName]
}

func (s *Session) DefaultName() string {
	return s.defaultName
}

// SetDefault makes an existing page current
func (s *Session) SetDefault(name string) error {
	if _, ok := s.pages[name]; !ok {
		return apperrors.NewPageNotFoundError(name)
	}
	s.defaultName = name
	return nil
}

// SelectPage makes the named page current, creating it first when it does not exist
func (s *Session) SelectPage(name string) (*RegionPage, error) {
	if name == "" {
		return nil, apperrors.NewPageNotFoundError(name)
	}
	p, ok := s.pages[name]
	if !ok {
		p = NewRegionPage(name)
		if err := s.AddPage(p); err != nil {
			return nil, err
		}
	}
	s.defaultName = name
	return p, nil
}

// PageOrDefault returns the named page, or the default page when name is empty
func (s *Session) PageOrDefault(name string) (*RegionPage, error) {
	if name == "" {
		p := s.DefaultPage()
		if p == nil {
			return nil, ErrNoDefaultPage
		}
		return p, nil
	}
	p, ok := s.pages[name]
	if !ok {
		return nil, apperrors.NewPageNotFoundError(name)
	}
	return p, nil
}

// AddRegion adds r to the default page
func (s *Session) AddRegion(r Region) error {
	p := s.DefaultPage()
	if p == nil {
		return ErrNoDefaultPage
	}
	return p.AddRegion(r)
}

// Clone returns a deep copy
func (s *Session) Clone() *Session {
	out := &Session{
		pages:       make(map[string]*RegionPage, len(s.pages)),
		order:       append([]string(nil), s.order...),
		defaultName: s.defaultName,
	}
	for name, p := range s.pages {
		out.pages[name] = p.Clone()
	}
	return out
}
