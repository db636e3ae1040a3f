package leaderboard

import "math/rand/v2"

// Ordered treap over (xp DESC, userID ASC). In-order traversal yields the
// leaderboard from first place down, with deterministic tie ordering.

type node struct {
	userID string
	xp     int64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// ranksBefore reports whether (aXP, aID) appears before (bXP, bID) in
// leaderboard order.
func ranksBefore(aXP int64, aID string, bXP int64, bID string) bool {
	if aXP != bXP {
		return aXP > bXP
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, userID string, xp int64) *node {
	if n == nil {
		return &node{userID: userID, xp: xp, prio: rand.Uint64(), size: 1}
	}
	if ranksBefore(xp, userID, n.xp, n.userID) {
		n.left = insert(n.left, userID, xp)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, userID, xp)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, userID string, xp int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case xp == n.xp && userID == n.userID:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, userID, xp)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, userID, xp)
		}
	case ranksBefore(xp, userID, n.xp, n.userID):
		n.left = remove(n.left, userID, xp)
	default:
		n.right = remove(n.right, userID, xp)
	}
	fix(n)
	return n
}

// position returns the zero-based in-order index of (userID, xp), or -1 if
// absent. O(log n) using subtree sizes.
func position(n *node, userID string, xp int64) int {
	idx := 0
	for n != nil {
		switch {
		case xp == n.xp && userID == n.userID:
			return idx + nsize(n.left)
		case ranksBefore(xp, userID, n.xp, n.userID):
			n = n.left
		default:
			idx += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// walk calls fn on each node in leaderboard order until fn returns false.
func walk(n *node, fn func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, fn) {
		return false
	}
	if !fn(n) {
		return false
	}
	return walk(n.right, fn)
}

// slice returns up to limit nodes starting at zero-based in-order offset.
func slice(n *node, offset, limit int) []*node {
	out := make([]*node, 0, limit)
	idx := 0
	walk(n, func(nd *node) bool {
		if idx >= offset {
			out = append(out, nd)
		}
		idx++
		return len(out) < limit
	})
	return out
}
