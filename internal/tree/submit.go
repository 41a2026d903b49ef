package tree

import (
	"context"
	"fmt"
)

// Submit writes a batch of nodes according to their status: Changed nodes
// are updated, ToBeDeleted nodes are deleted in their culture and Unchanged
// or deleted nodes are skipped. New nodes need a parent and are rejected.
// Each node is written in its own transaction; the first error stops the
// batch.
func (s *Service) Submit(ctx context.Context, nodes ...*Node) error {
	for i, n := range nodes {
		if n == nil {
			continue
		}

		var err error
		switch n.status {
		case StatusNew:
			err = invalid("node %s is new, insert it under a parent", describe(n))
		case StatusChanged:
			err = n.Update(ctx)
		case StatusToBeDeleted:
			_, err = n.Delete(ctx, DeleteOptions{})
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("submit node %d of %d: %w", i+1, len(nodes), err)
		}
	}

	return nil
}
