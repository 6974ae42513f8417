package engine

import "fmt"

// chainEntry is one reservation hanging off an interval node. Several
// reservations may share the exact same start; they are chained on one
// node rather than merged, and each keeps its own end.
type chainEntry struct {
	id  uint64
	end int64
}

// intervalNode is a node of the AVL interval tree. The key is the
// interval start. maxEnd caches the maximum end over the node's own
// chain and both subtrees; it is what lets Overlap discard whole
// subtrees without descending.
//
// Subtrees are owned exclusively by their parent. There are no parent
// pointers: insert and delete are recursive descents that return the
// rebalanced subtree root, so all traversal state lives on the call
// stack.
type intervalNode struct {
	start  int64
	chain  []chainEntry
	maxEnd int64
	height int
	left   *intervalNode
	right  *intervalNode
}

// IntervalIndex is an augmented self-balancing interval tree for one
// room. It answers overlap queries in O(log n + k) and supports
// insert/delete by reservation id in O(log n).
//
// Invariants, restored after every mutation and checked on the
// rebalance path:
//   - |height(left) - height(right)| <= 1 for every node
//   - maxEnd(n) = max(chain ends of n, maxEnd(n.left), maxEnd(n.right))
//
// A violation of either is a bug in the tree itself, not a caller
// error, and panics: a corrupted index would silently return wrong
// overlap answers.
type IntervalIndex struct {
	root *intervalNode
	byID map[uint64]int64 // reservation id -> interval start
}

// NewIntervalIndex returns an empty index.
func NewIntervalIndex() *IntervalIndex {
	return &IntervalIndex{byID: make(map[uint64]int64)}
}

// Len reports how many reservations the index currently holds.
func (t *IntervalIndex) Len() int { return len(t.byID) }

// Insert adds the half-open interval [start, end) under the given
// reservation id. Equal starts chain on the same node. Returns
// ErrInvalidRange when start >= end.
func (t *IntervalIndex) Insert(start, end int64, id uint64) error {
	if start >= end {
		return ErrInvalidRange
	}
	t.root = t.insert(t.root, start, end, id)
	t.byID[id] = start
	return nil
}

func (t *IntervalIndex) insert(n *intervalNode, start, end int64, id uint64) *intervalNode {
	if n == nil {
		return &intervalNode{
			start:  start,
			chain:  []chainEntry{{id: id, end: end}},
			maxEnd: end,
			height: 1,
		}
	}
	switch {
	case start < n.start:
		n.left = t.insert(n.left, start, end, id)
	case start > n.start:
		n.right = t.insert(n.right, start, end, id)
	default:
		n.chain = append(n.chain, chainEntry{id: id, end: end})
	}
	return t.fix(n)
}

// Delete removes the reservation with the given id. When the id was
// the last entry on its node, the node is structurally deleted
// (in-order successor replacement) and the path rebalanced. Returns
// ErrNotFound for unknown ids.
func (t *IntervalIndex) Delete(id uint64) error {
	start, ok := t.byID[id]
	if !ok {
		return ErrNotFound
	}
	t.root = t.remove(t.root, start, id)
	delete(t.byID, id)
	return nil
}

func (t *IntervalIndex) remove(n *intervalNode, start int64, id uint64) *intervalNode {
	// The caller verified the id via byID, so the node must exist.
	if n == nil {
		panic(fmt.Sprintf("interval index: node for start %d vanished", start))
	}
	switch {
	case start < n.start:
		n.left = t.remove(n.left, start, id)
	case start > n.start:
		n.right = t.remove(n.right, start, id)
	default:
		n.chain = dropEntry(n.chain, id)
		if len(n.chain) == 0 {
			if n.left == nil {
				return n.right
			}
			if n.right == nil {
				return n.left
			}
			// Two children: adopt the in-order successor's key and
			// chain, then detach the successor node from the right
			// subtree.
			succ := n.right
			for succ.left != nil {
				succ = succ.left
			}
			n.start = succ.start
			n.chain = succ.chain
			n.right = t.detachMin(n.right)
		}
	}
	return t.fix(n)
}

// detachMin removes the leftmost node of the subtree (whose chain has
// already been moved by the caller) and rebalances on the way up.
func (t *IntervalIndex) detachMin(n *intervalNode) *intervalNode {
	if n.left == nil {
		return n.right
	}
	n.left = t.detachMin(n.left)
	return t.fix(n)
}

func dropEntry(chain []chainEntry, id uint64) []chainEntry {
	for i, e := range chain {
		if e.id == id {
			return append(chain[:i], chain[i+1:]...)
		}
	}
	panic(fmt.Sprintf("interval index: id %d missing from its chain", id))
}

// Overlap returns the ids of every stored interval [s, e) with
// s < end && e > start, ordered by interval start. The descent skips
// the left subtree when nothing under it can end after the probe
// start, and the right subtree when every key there begins at or
// after the probe end, which bounds the walk at O(log n + k).
func (t *IntervalIndex) Overlap(start, end int64) []uint64 {
	var out []uint64
	t.collect(t.root, start, end, &out)
	return out
}

func (t *IntervalIndex) collect(n *intervalNode, qs, qe int64, out *[]uint64) {
	if n == nil {
		return
	}
	if n.left != nil && n.left.maxEnd > qs {
		t.collect(n.left, qs, qe, out)
	}
	if n.start >= qe {
		// Every key in the right subtree is larger still.
		return
	}
	for _, e := range n.chain {
		if e.end > qs {
			*out = append(*out, e.id)
		}
	}
	t.collect(n.right, qs, qe, out)
}

// At returns the ids of every interval containing the instant, i.e.
// start <= instant < end under the half-open convention. It is the
// degenerate overlap query used for availability checks.
func (t *IntervalIndex) At(instant int64) []uint64 {
	return t.Overlap(instant, instant+1)
}

// fix recomputes the node's augmentation and restores the AVL balance
// with single or double rotations. Rotations are applied immediately,
// never left pending.
func (t *IntervalIndex) fix(n *intervalNode) *intervalNode {
	update(n)
	bf := balance(n)
	switch {
	case bf > 1:
		if balance(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		n = rotateRight(n)
	case bf < -1:
		if balance(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		n = rotateLeft(n)
	}
	if bf := balance(n); bf < -1 || bf > 1 {
		panic(fmt.Sprintf("interval index: balance factor %d after rebalance", bf))
	}
	return n
}

func height(n *intervalNode) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balance(n *intervalNode) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func update(n *intervalNode) {
	lh, rh := height(n.left), height(n.right)
	if lh > rh {
		n.height = lh + 1
	} else {
		n.height = rh + 1
	}
	max := n.chain[0].end
	for _, e := range n.chain[1:] {
		if e.end > max {
			max = e.end
		}
	}
	if n.left != nil && n.left.maxEnd > max {
		max = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd > max {
		max = n.right.maxEnd
	}
	n.maxEnd = max
}

func rotateRight(y *intervalNode) *intervalNode {
	x := y.left
	y.left = x.right
	x.right = y
	update(y)
	update(x)
	return x
}

func rotateLeft(x *intervalNode) *intervalNode {
	y := x.right
	x.right = y.left
	y.left = x
	update(x)
	update(y)
	return y
}

// Validate walks the whole tree and verifies the AVL and maxEnd
// invariants from scratch. It exists for tests; the mutation paths
// already panic on local violations.
func (t *IntervalIndex) Validate() error {
	_, _, err := validate(t.root)
	return err
}

func validate(n *intervalNode) (h int, maxEnd int64, err error) {
	if n == nil {
		return 0, 0, nil
	}
	lh, lmax, err := validate(n.left)
	if err != nil {
		return 0, 0, err
	}
	rh, rmax, err := validate(n.right)
	if err != nil {
		return 0, 0, err
	}
	if bf := lh - rh; bf < -1 || bf > 1 {
		return 0, 0, fmt.Errorf("node %d: balance factor %d", n.start, bf)
	}
	want := n.chain[0].end
	for _, e := range n.chain[1:] {
		if e.end > want {
			want = e.end
		}
	}
	if n.left != nil && lmax > want {
		want = lmax
	}
	if n.right != nil && rmax > want {
		want = rmax
	}
	if n.maxEnd != want {
		return 0, 0, fmt.Errorf("node %d: maxEnd %d, recomputed %d", n.start, n.maxEnd, want)
	}
	h = lh
	if rh > h {
		h = rh
	}
	return h + 1, want, nil
}
