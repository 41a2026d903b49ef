package tree

import (
	"context"
	"errors"

	"github.com/emrgen/doctree/internal/query"
)

// SelectSingleNode returns the node at aliasPath on site in culture. With
// combine set, a node missing culture is returned in its site default
// culture. An empty culture means the preferred culture of the settings.
func (s *Service) SelectSingleNode(ctx context.Context, site, aliasPath, culture string, combine bool) (*Node, error) {
	if aliasPath == "" || query.IsPattern(aliasPath) {
		return nil, invalid("a single node needs an exact alias path, got %q", aliasPath)
	}

	return s.single(site, culture, combine).Path(aliasPath).First(ctx)
}

// SelectSingleNodeByID returns the node with the structural id in culture.
func (s *Service) SelectSingleNodeByID(ctx context.Context, id uint64, culture string, combine bool) (*Node, error) {
	if id == 0 {
		return nil, invalid("node id is required")
	}

	return s.single(query.AllSites, culture, combine).IDs(id).First(ctx)
}

// SelectSingleNodeByGUID returns the node with the GUID on site in culture.
func (s *Service) SelectSingleNodeByGUID(ctx context.Context, site, guid string, culture string, combine bool) (*Node, error) {
	if guid == "" {
		return nil, invalid("node guid is required")
	}

	return s.single(site, culture, combine).GUIDs(guid).First(ctx)
}

// SelectSingleDocument returns the culture version with documentID. Links
// share the document id of their original and are never returned.
func (s *Service) SelectSingleDocument(ctx context.Context, documentID uint64) (*Node, error) {
	if documentID == 0 {
		return nil, invalid("document id is required")
	}

	n, err := s.Query().
		CombineWithDefaultCulture(false).
		DocumentIDs(documentID).
		ExcludeLinks().
		First(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, &NotFoundError{Resource: "document", Key: documentID}
	}
	return n, err
}

func (s *Service) single(site, culture string, combine bool) *NodeQuery {
	if culture == "" {
		culture = s.settings.PreferredCulture
	}
	if culture == "" {
		// collapse every culture to the best one per node
		culture = query.AllCultures
		combine = true
	}

	if site == "" {
		site = query.AllSites
	}
	return s.Query().OnSite(site).Culture(culture).CombineWithDefaultCulture(combine)
}
