package memo

import (
	"hash/fnv"
	"sort"

	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/plan"
)

// Signature computes a stable hash of n's logical shape, invariant under the
// rewrites the rule engine performs: commuting a join's children, reordering
// an AND-list's conjuncts, and re-associating a chain of Inner/Cross joins
// (spec.md §4.F, §8's "memo signature law" — (A⋈B)⋈C and A⋈(B⋈C) on the same
// conjunct set belong in the same group). Two plans with the same signature
// are members of the same CGroup.
//
// memo may be nil when n is a standalone tree with no MemoRef children (the
// first time a subtree is seen, during the initial Enqueue walk resolves
// this recursively bottom-up, so by the time a join's own Signature is
// computed its children are already registered groups and memo is always
// available to look inside them).
func Signature(n *plan.Node, memo *Memo) uint64 {
	h := fnv.New64a()
	if isCommutativeJoin(n) {
		writeJoinGroupSignature(h, n, memo)
	} else {
		writeNodeSignature(h, n, memo)
	}
	return h.Sum64()
}

func writeNodeSignature(h interface {
	Write([]byte) (int, error)
}, n *plan.Node, memo *Memo) {
	childSigs := make([]uint64, len(n.Children))
	for i, c := range n.Children {
		childSigs[i] = childSignature(c, memo)
	}
	writeU64(h, uint64(n.Kind))
	for _, s := range childSigs {
		writeU64(h, s)
	}
	writeU64(h, predicateSignature(joinPredicate(n)))
	writeString(h, tableIdentity(n))
}

// tableIdentity names the relation a leaf Get node denotes: its alias,
// unique within a single query's FROM scope by ordinary SQL scoping rules,
// so that e.g. a self-join's two table references never collide under
// Kind+children+predicate alone (both are KGetBaseTable with no children and
// no predicate).
func tableIdentity(n *plan.Node) string {
	switch n.Kind {
	case plan.KGetBaseTable, plan.KGetExternalTable:
		if n.TableRef != nil {
			return n.TableRef.Alias
		}
	}
	return ""
}

func writeString(h interface{ Write([]byte) (int, error) }, s string) {
	writeU64(h, uint64(len(s)))
	h.Write([]byte(s))
}

// writeJoinGroupSignature hashes the maximal connected Inner/Cross join
// subtree rooted at n by the set of base relations it covers and the
// multiset of conjuncts applied anywhere within it, flattening through
// MemoRef boundaries into a referenced group's own Inner/Cross join member
// when one exists. This is what makes re-bracketing a join chain
// (JoinAssociateRule) signature-preserving: the flattened relation/conjunct
// sets are identical regardless of which pair is joined first.
func writeJoinGroupSignature(h interface {
	Write([]byte) (int, error)
}, n *plan.Node, memo *Memo) {
	var relSigs, predSigs []uint64
	collectJoinGroup(n, memo, &relSigs, &predSigs)
	sort.Slice(relSigs, func(i, j int) bool { return relSigs[i] < relSigs[j] })
	sort.Slice(predSigs, func(i, j int) bool { return predSigs[i] < predSigs[j] })
	writeU64(h, uint64(plan.KJoin))
	for _, s := range relSigs {
		writeU64(h, s)
	}
	for _, s := range predSigs {
		writeU64(h, s)
	}
}

func collectJoinGroup(n *plan.Node, memo *Memo, relSigs, predSigs *[]uint64) {
	if isCommutativeJoin(n) {
		if n.JoinFilter != nil {
			for _, c := range flattenAndSig(n.JoinFilter) {
				*predSigs = append(*predSigs, c.Hash())
			}
		}
		collectJoinGroup(n.Children[0], memo, relSigs, predSigs)
		collectJoinGroup(n.Children[1], memo, relSigs, predSigs)
		return
	}
	if n.Kind == plan.KMemoRef {
		if memo != nil {
			if inner := findCommutativeJoinMember(n, memo); inner != nil {
				collectJoinGroup(inner, memo, relSigs, predSigs)
				return
			}
		}
		*relSigs = append(*relSigs, 1<<63|uint64(n.MemoGroupID))
		return
	}
	*relSigs = append(*relSigs, Signature(n, memo))
}

// findCommutativeJoinMember returns the first Inner/Cross join logical
// member of ref's referenced group, or nil if the group has none.
func findCommutativeJoinMember(ref *plan.Node, memo *Memo) *plan.Node {
	g := memo.Group(ref.MemoGroupID)
	for _, mem := range g.Members {
		if mem.Logical != nil && isCommutativeJoin(mem.Logical) {
			return mem.Logical
		}
	}
	return nil
}

// isCommutativeJoin reports whether swapping n's children preserves its
// semantics: true for Inner and Cross, false for Left/Right/Full/Semi/Anti,
// whose child order is meaningful.
func isCommutativeJoin(n *plan.Node) bool {
	return n.Kind == plan.KJoin && (n.JoinType == plan.Inner || n.JoinType == plan.Cross)
}

func childSignature(c *plan.Node, memo *Memo) uint64 {
	if c.Kind == plan.KMemoRef {
		// Distinguish group-id space from kind space with a high bit so a
		// MemoRef(0) never collides with Kind(0)'s hash in practice; fnv64a
		// mixing makes an exact collision with a real subtree signature
		// vanishingly unlikely for the fixture-scale plans this engine runs.
		h := fnv.New64a()
		writeU64(h, 1<<63|uint64(c.MemoGroupID))
		return h.Sum64()
	}
	return Signature(c, memo)
}

func writeU64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

func joinPredicate(n *plan.Node) *expr.Expr {
	switch n.Kind {
	case plan.KJoin, plan.KMark, plan.KSemi, plan.KAntiSemi, plan.KSingleJoin:
		return n.JoinFilter
	case plan.KFilter:
		return n.Filter
	default:
		return nil
	}
}

// predicateSignature hashes an AND-list by its conjuncts' multiset, not
// their order, so that (p1∧p2)∧p3 and p1∧(p3∧p2) — any associative
// regrouping or reordering of the same conjuncts — hash identically.
func predicateSignature(e *expr.Expr) uint64 {
	if e == nil {
		return 0
	}
	conjuncts := flattenAndSig(e)
	sigs := make([]uint64, len(conjuncts))
	for i, c := range conjuncts {
		sigs[i] = c.Hash()
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	h := fnv.New64a()
	for _, s := range sigs {
		writeU64(h, s)
	}
	return h.Sum64()
}

func flattenAndSig(e *expr.Expr) []*expr.Expr {
	if e.Kind == expr.KLogicAnd {
		return append(flattenAndSig(e.Child(0)), flattenAndSig(e.Child(1))...)
	}
	return []*expr.Expr{e}
}
