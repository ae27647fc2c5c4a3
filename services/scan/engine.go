// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// visitFunc is invoked once per node during traversal.
type visitFunc func(node *sitter.Node)

// walkTree performs a single depth-first, pre-order visit of every node
// under root, dispatching each to visit exactly once.
//
// Description:
//
//	The walk uses an explicit owned stack rather than recursion, so memory
//	use is bounded by tree breadth-at-depth instead of the host call stack.
//	Deeply nested (including adversarial) inputs cannot overflow.
//
//	No pruning occurs: nodes nested inside a matched declaration are still
//	visited independently, so a nested callable produces its own record in
//	addition to its enclosing one.
//
// Inputs:
//
//	root - The tree root. May be nil (no-op).
//	visit - Per-node callback. Must not be nil.
//
// Thread Safety: Safe for concurrent use on distinct trees.
func walkTree(root *sitter.Node, visit visitFunc) {
	if root == nil {
		return
	}

	stack := make([]*sitter.Node, 0, 64)
	stack = append(stack, root)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(node)

		// Push children in reverse so they pop in document order.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// nodeText returns the source text covered by node, or "" for a nil node or
// an out-of-range byte span (best-effort trees on malformed input may carry
// ranges past the content we hold).
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || int(end) > len(content) {
		return ""
	}
	return string(content[start:end])
}
