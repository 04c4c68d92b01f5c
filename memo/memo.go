// Package memo implements the Cascades-style equivalence-group optimizer of
// spec.md §4.F: groups keyed by a logical signature, a rule engine that
// explores group members, and min-cost physical plan extraction.
package memo

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/plan"
	"github.com/bigwa/qpmodel/sqltypes"
)

var errNoPhysicalPlan = sqltypes.ErrNoPhysicalPlan

// GroupMember is either a logical or a physical plan whose non-leaf children
// have been replaced by a MemoRef(group) node (spec.md §4.F).
type GroupMember struct {
	Logical   *plan.Node // nil once this member has been lowered to Physical
	Physical  exec.Op    // nil until DirectToPhysical/rule application produces one
	Signature uint64
}

// CGroup is an equivalence class: all Members share Signature.
type CGroup struct {
	ID        int
	Signature uint64
	Members   []*GroupMember
	Explored  bool
}

// Memo owns the group table and the exploration worklist.
type Memo struct {
	groups   []*CGroup
	bySig    map[uint64]int // signature -> group index, for dedup
	rootID   int
	rules    []Rule
	profile  plan.Profile
}

func New(rules []Rule, prof plan.Profile) *Memo {
	return &Memo{bySig: make(map[uint64]int), rules: rules, profile: prof}
}

func (m *Memo) Group(id int) *CGroup { return m.groups[id] }

func (m *Memo) RootGroup() *CGroup { return m.groups[m.rootID] }

// Enqueue recurses n's children, registers each non-leaf as a group
// (deduplicated by signature), and replaces each child in-place with a
// MemoRef(group) node. The outermost call's group becomes the memo's root.
func (m *Memo) Enqueue(n *plan.Node) (*CGroup, error) {
	g, err := m.enqueueNode(n)
	if err != nil {
		return nil, err
	}
	m.rootID = g.ID
	return g, nil
}

func (m *Memo) enqueueNode(n *plan.Node) (*CGroup, error) {
	for i, c := range n.Children {
		if c.Kind == plan.KMemoRef {
			continue
		}
		childGroup, err := m.enqueueNode(c)
		if err != nil {
			return nil, err
		}
		n.Children[i] = memoRefNode(childGroup.ID)
	}
	sig := Signature(n, m)
	if idx, ok := m.bySig[sig]; ok {
		g := m.groups[idx]
		g.Members = append(g.Members, &GroupMember{Logical: n, Signature: sig})
		return g, nil
	}
	g := &CGroup{ID: len(m.groups), Signature: sig}
	g.Members = append(g.Members, &GroupMember{Logical: n, Signature: sig})
	m.groups = append(m.groups, g)
	m.bySig[sig] = g.ID
	return g, nil
}

func memoRefNode(groupID int) *plan.Node {
	return &plan.Node{Kind: plan.KMemoRef, MemoGroupID: groupID}
}

// Search drains the exploration worklist: pop an unexplored group, for each
// of its current members try every rule, signature-insert any new member
// (no duplicates), enqueue its sub-plans, and mark the group explored once
// every member present at pass-start has been tried. Newly inserted members
// are picked up on a later pass, per spec.md §4.F.
func (m *Memo) Search() error {
	tried := make(map[int]int) // group ID -> member count when last explored
	for {
		for _, g := range m.groups {
			if g.Explored {
				continue
			}
			members := append([]*GroupMember{}, g.Members...)
			tried[g.ID] = len(members)
			for _, mem := range members {
				if mem.Logical == nil {
					continue
				}
				for _, r := range m.rules {
					if !r.Applicable(mem, m) {
						continue
					}
					newNode, err := r.Apply(mem, m)
					if err != nil {
						return err
					}
					if newNode == nil {
						continue
					}
					if err := m.insertRewritten(g, newNode); err != nil {
						return err
					}
				}
			}
			g.Explored = true
		}
		// Clear Explored on any group that grew since it was last explored so
		// it gets one more pass; stop once a pass adds no group and no member.
		progressed := false
		for _, g := range m.groups {
			if !g.Explored || len(g.Members) > tried[g.ID] {
				g.Explored = false
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return nil
}

// insertRewritten enqueues newNode's children into groups as usual, then
// signature-inserts it into g, asserting that rule application preserved the
// group's signature (spec.md §4.F "Rule application must preserve signature
// equality—this is asserted").
func (m *Memo) insertRewritten(g *CGroup, newNode *plan.Node) error {
	for i, c := range newNode.Children {
		if c.Kind == plan.KMemoRef {
			continue
		}
		childGroup, err := m.enqueueNode(c)
		if err != nil {
			return err
		}
		newNode.Children[i] = memoRefNode(childGroup.ID)
	}
	sig := Signature(newNode, m)
	if sig != g.Signature {
		return errors.AssertionFailedf("rule application changed signature: %d != %d", sig, g.Signature)
	}
	for _, existing := range g.Members {
		if existing.Logical != nil && Signature(existing.Logical, m) == sig && samePlanShape(existing.Logical, newNode) {
			return nil
		}
	}
	g.Members = append(g.Members, &GroupMember{Logical: newNode, Signature: sig})
	return nil
}

// samePlanShape is a cheap duplicate check: same kind and same child groups.
// Full structural equality of the non-child fields is left to the
// signature, which is already sufficient to avoid unbounded rule cycling for
// the rule set qpmodel ships (commutative/associative join rewrites only).
func samePlanShape(a, b *plan.Node) bool {
	if a.Kind != b.Kind || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i].Kind != plan.KMemoRef || b.Children[i].Kind != plan.KMemoRef {
			continue
		}
		if a.Children[i].MemoGroupID != b.Children[i].MemoGroupID {
			return false
		}
	}
	return true
}

// LowerPhysicalMembers runs DirectToPhysical over every logical member of
// every group, populating GroupMember.Physical so MinToPhysicalPlan has a
// cost() to minimize over. A member's MemoRef children are resolved
// recursively through MinToPhysicalPlan of the referenced group, so this
// must run after Search (every group already holds its final member set).
func (m *Memo) LowerPhysicalMembers() error {
	for _, g := range m.groups {
		for _, mem := range g.Members {
			if mem.Physical != nil || mem.Logical == nil {
				continue
			}
			op, err := mem.Logical.DirectToPhysicalWithMemo(m.profile, m.MinToPhysicalPlan)
			if err != nil {
				return err
			}
			mem.Physical = op
		}
	}
	return nil
}

// MinToPhysicalPlan materialises the optimal plan for group groupID: selects
// the min-cost physical member, recursing into each of its MemoRef children
// via the same extraction (spec.md §4.F). A group with no physical member
// fails NoPhysicalPlan.
func (m *Memo) MinToPhysicalPlan(groupID int) (exec.Op, error) {
	g := m.groups[groupID]
	var best exec.Op
	bestCost := -1.0
	for _, mem := range g.Members {
		if mem.Physical == nil {
			continue
		}
		c := mem.Physical.Cost()
		if bestCost < 0 || c < bestCost {
			bestCost = c
			best = mem.Physical
		}
	}
	if best == nil {
		return nil, errors.Wrapf(errNoPhysicalPlan, "group %d", groupID)
	}
	return best, nil
}
