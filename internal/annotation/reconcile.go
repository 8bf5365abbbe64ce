package annotation

// MergeReport summarizes what a reconciliation changed so the caller can redraw and
// regenerate scripts once per pass.
type MergeReport struct {
	CreatedPages   []string
	UpdatedPages   []string
	RemovedRegions map[string][]string // page -> region names
	DroppedRules   map[string][]string // page -> rule values with no local slot
	DefaultChanged bool
	Warnings       []error
}

// Changed reports whether the pass touched any page
func (r MergeReport) Changed() bool {
	return len(r.CreatedPages) > 0 || len(r.UpdatedPages) > 0
}

// ReconcileXML parses data and merges it into local. On a parse error local is untouched.
func ReconcileXML(local *Session, data string) (MergeReport, error) {
	doc, err := ParseSessionXML(data)
	if err != nil {
		return MergeReport{}, err
	}
	return Reconcile(local, doc), nil
}

// Reconcile merges an incoming document into local.
//
// Pages are joined by name and created when missing; pages absent from the document
// are kept. The incoming region list is authoritative for each page it names: a region
// with a known name is replaced and moved to the end, new ones are appended, and local
// regions the document does not list are deleted. Rules are never created here. An
// incoming rule only updates the existing slots whose values match, and the rest are
// dropped.
func Reconcile(local *Session, doc *SessionDoc) MergeReport {
	report := MergeReport{
		RemovedRegions: make(map[string][]string),
		DroppedRules:   make(map[string][]string),
		Warnings:       append([]error(nil), doc.Warnings...),
	}

	for _, pd := range doc.Pages {
		page, ok := local.Page(pd.Name)
		if !ok {
			color := PageColor(pd.Name)
			if pd.HasColor {
				color = pd.Color
			}
			page = NewRegionPageWithColor(pd.Name, color)
			hadDefault := local.DefaultPage() != nil
			// name is unique here, AddPage cannot fail
			_ = local.AddPage(page)
			if !hadDefault {
				report.DefaultChanged = true
			}
			report.CreatedPages = append(report.CreatedPages, pd.Name)
		} else {
			report.UpdatedPages = append(report.UpdatedPages, pd.Name)
		}

		regions, removed := mergeRegions(page.Regions, pd.Regions)
		page.Regions = regions
		if len(removed) > 0 {
			report.RemovedRegions[pd.Name] = removed
		}

		if dropped := mergeRules(page.Rules, pd.Rules); len(dropped) > 0 {
			report.DroppedRules[pd.Name] = dropped
		}
	}
	return report
}

// mergeRegions builds the new region list without writing into current
func mergeRegions(current []Region, incoming []Region) ([]Region, []string) {
	seen := make(map[string]struct{}, len(incoming))
	merged := append([]Region(nil), current...)
	for _, r := range incoming {
		seen[r.Name] = struct{}{}
		merged = replaceRegion(merged, r)
	}

	out := merged[:0]
	var removed []string
	for _, r := range merged {
		if _, ok := seen[r.Name]; ok {
			out = append(out, r)
		} else {
			removed = append(removed, r.Name)
		}
	}
	return out, removed
}

func mergeRules(rs *RuleSet, incoming []RuleDoc) []string {
	var dropped []string
	for _, rd := range incoming {
		matched := rs.Lookup(rd.Values)
		if len(matched) == 0 {
			dropped = append(dropped, rd.Values)
			continue
		}
		for _, w := range matched {
			if rd.Destination != nil {
				w.Destination = *rd.Destination
			}
			if rd.Result != nil {
				w.Result = *rd.Result
			}
			if rd.Enabled != nil {
				w.Enabled = *rd.Enabled
			}
		}
	}
	return dropped
}
