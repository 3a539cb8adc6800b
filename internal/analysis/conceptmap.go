package analysis

// ConceptNode is one extracted concept.
type ConceptNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ConceptLink is a labeled relationship between two concepts, by node id.
type ConceptLink struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// ConceptMapData is the extracted concept graph.
type ConceptMapData struct {
	Nodes []ConceptNode `json:"nodes"`
	Links []ConceptLink `json:"links"`
}

// Sanitize drops links whose source or target id is absent from the node set
// and nodes with empty ids. Malformed model output is survivable, never fatal.
func (m *ConceptMapData) Sanitize() {
	if m == nil {
		return
	}
	ids := make(map[string]struct{}, len(m.Nodes))
	nodes := m.Nodes[:0]
	for _, n := range m.Nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := ids[n.ID]; dup {
			continue
		}
		ids[n.ID] = struct{}{}
		nodes = append(nodes, n)
	}
	m.Nodes = nodes

	links := m.Links[:0]
	for _, l := range m.Links {
		if _, ok := ids[l.Source]; !ok {
			continue
		}
		if _, ok := ids[l.Target]; !ok {
			continue
		}
		links = append(links, l)
	}
	m.Links = links
}
