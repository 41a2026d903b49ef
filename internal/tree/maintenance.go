package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/doctree/internal/store"
)

// RepairPaths recomputes the alias and name paths below every site root and
// returns the number of rows that had drifted.
func (s *Service) RepairPaths(ctx context.Context) (int, error) {
	sites, err := s.allSites(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, site := range sites {
		root, err := s.store.GetRootNode(ctx, site.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return total, lookupFailed("root of site", site.Name, err)
		}

		var updated int
		err = s.store.Transaction(ctx, func(tx store.Store) error {
			updated, err = s.paths.WithStore(tx).Cascade(ctx, root, site.DefaultCulture, false)
			return err
		})
		if err != nil {
			return total, fmt.Errorf("repair paths of site %s: %w", site.Name, err)
		}
		if updated > 0 {
			logrus.Warnf("repaired %d drifted paths on site %s", updated, site.Name)
		}
		total += updated
	}

	return total, nil
}

// RemoveDanglingLinks deletes links, with their subtrees, whose original no
// longer exists. It does nothing unless CheckLinkConsistency is set.
func (s *Service) RemoveDanglingLinks(ctx context.Context) (int, error) {
	if !s.settings.CheckLinkConsistency {
		return 0, nil
	}

	d := newDeleter(s, DeleteOptions{})
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		d.tx = tx
		var after uint64
		for {
			links, err := tx.ListDanglingLinks(ctx, after, s.settings.BatchSize)
			if err != nil {
				return err
			}
			for _, link := range links {
				if err = d.deleteTree(ctx, link); err != nil {
					return err
				}
			}
			if len(links) < s.settings.BatchSize {
				return nil
			}
			after = links[len(links)-1].ID
		}
	})
	if err != nil {
		return 0, fmt.Errorf("remove dangling links: %w", err)
	}

	if d.count > 0 {
		logrus.Warnf("removed %d nodes under dangling links", d.count)
		s.touch(ctx, d.cacheKeys(ctx))
	}

	return d.count, nil
}
