package service

import (
	"fmt"
	"strings"

	"github.com/karthickst/agenticosv2.0/internal/domain"
)

// Flow graph layout.
const (
	FlowColumns     = 3
	FlowColumnWidth = 300
	FlowRowHeight   = 180
	maxTestNodes    = 2
)

type NodeKind string

const (
	NodeStart       NodeKind = "start"
	NodeRequirement NodeKind = "requirement"
	NodeTestCase    NodeKind = "test_case"
	NodeDomain      NodeKind = "domain"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FlowNode is a positioned box in the requirement flow diagram.
type FlowNode struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Label    string   `json:"label"`
	Status   string   `json:"status,omitempty"`
	Preview  string   `json:"preview,omitempty"`
	Count    int      `json:"count,omitempty"`
	Position Position `json:"position"`
}

type EdgeKind string

const (
	EdgeRow   EdgeKind = "row"   // start or the row above into a row's first node
	EdgeChain EdgeKind = "chain" // left neighbour into the next node of a row
	EdgeTest  EdgeKind = "test"  // requirement to one of its test cases
)

type FlowEdge struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Kind     EdgeKind `json:"kind"`
	Animated bool     `json:"animated,omitempty"`
}

type FlowGraph struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

func reqNodeID(id int64) string { return fmt.Sprintf("req-%d", id) }

// BuildFlow lays requirements out in a grid of FlowColumns, chains them left
// to right and row to row, hangs up to two test cases under each requirement
// and puts domains in a lane below the grid.
func BuildFlow(reqs []*domain.Requirement, cases []*domain.TestCase, domains []*domain.Domain) FlowGraph {
	g := FlowGraph{
		Nodes: []FlowNode{{ID: "start", Kind: NodeStart, Label: "Start", Position: Position{X: 400, Y: 20}}},
		Edges: []FlowEdge{},
	}

	byReq := map[int64][]*domain.TestCase{}
	for _, tc := range cases {
		if tc.RequirementID != nil {
			byReq[*tc.RequirementID] = append(byReq[*tc.RequirementID], tc)
		}
	}

	for idx, r := range reqs {
		col, row := idx%FlowColumns, idx/FlowColumns
		pos := Position{X: 100 + col*FlowColumnWidth, Y: 100 + row*FlowRowHeight}
		id := reqNodeID(r.ID)
		linked := byReq[r.ID]

		g.Nodes = append(g.Nodes, FlowNode{
			ID:       id,
			Kind:     NodeRequirement,
			Label:    r.Title,
			Status:   string(r.Status),
			Preview:  scenarioPreview(r.Gherkin),
			Count:    len(linked),
			Position: pos,
		})

		if col == 0 {
			source := "start"
			if row > 0 {
				source = reqNodeID(reqs[(row-1)*FlowColumns].ID)
			}
			g.Edges = append(g.Edges, FlowEdge{
				ID:       "e-" + source + "-" + id,
				Source:   source,
				Target:   id,
				Kind:     EdgeRow,
				Animated: r.Status == domain.RequirementApproved,
			})
		} else {
			source := reqNodeID(reqs[idx-1].ID)
			g.Edges = append(g.Edges, FlowEdge{ID: "e-" + source + "-" + id, Source: source, Target: id, Kind: EdgeChain})
		}

		for t, tc := range linked {
			if t == maxTestNodes {
				break
			}
			tcID := fmt.Sprintf("tc-%d", tc.ID)
			g.Nodes = append(g.Nodes, FlowNode{
				ID:       tcID,
				Kind:     NodeTestCase,
				Label:    truncateRunes(tc.Name, 30),
				Status:   string(tc.Status),
				Position: Position{X: pos.X + 10 + t*120, Y: pos.Y + 130},
			})
			g.Edges = append(g.Edges, FlowEdge{ID: "e-" + id + "-" + tcID, Source: id, Target: tcID, Kind: EdgeTest})
		}
	}

	laneY := 200
	if len(reqs) > 0 {
		rows := (len(reqs) + FlowColumns - 1) / FlowColumns
		laneY = rows*FlowRowHeight + 160
	}
	for i, d := range domains {
		g.Nodes = append(g.Nodes, FlowNode{
			ID:       fmt.Sprintf("domain-%d", d.ID),
			Kind:     NodeDomain,
			Label:    d.Name,
			Count:    len(d.Attributes),
			Position: Position{X: 80 + i*200, Y: laneY},
		})
	}
	return g
}

// scenarioPreview shows up to two Given clauses and the first When and Then.
func scenarioPreview(g domain.Gherkin) string {
	var lines []string
	for i, s := range g.Given {
		if i == 2 {
			break
		}
		lines = append(lines, "Given "+s)
	}
	if len(g.When) > 0 {
		lines = append(lines, "When "+g.When[0])
	}
	if len(g.Then) > 0 {
		lines = append(lines, "Then "+g.Then[0])
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
