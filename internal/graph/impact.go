package graph

// ImpactReport summarizes the modules touched by a change to one module.
type ImpactReport struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Affected     []string `json:"affected"`
}

// Impact computes the blast radius of id.
func (g *Graph) Impact(id string) *ImpactReport {
	return &ImpactReport{
		ID:           id,
		Dependencies: g.Forward(id)[1:],
		Dependents:   g.Reverse(id)[1:],
		Affected:     g.Affected(id),
	}
}

// ChangeImpact is the combined blast radius of a set of changed modules.
type ChangeImpact struct {
	Changed  []string `json:"changed"`
	Affected []string `json:"affected"`
}

// ImpactOf merges the Affected sets of ids, keeping first-seen order.
func (g *Graph) ImpactOf(ids []string) *ChangeImpact {
	report := &ChangeImpact{Changed: ids, Affected: []string{}}
	seen := make(map[string]bool)
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		if done[id] {
			continue
		}
		done[id] = true
		for _, n := range g.Affected(id) {
			if !seen[n] {
				seen[n] = true
				report.Affected = append(report.Affected, n)
			}
		}
	}
	return report
}
