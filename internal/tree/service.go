// Package tree maintains the document tree: nodes composed of a structural
// partition shared by all culture versions, one culture partition per culture
// and an optional extension partition, plus links to nodes elsewhere in the
// tree.
package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/doctree/internal/cache"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/paths"
	"github.com/emrgen/doctree/internal/store"
)

// Workflow supplies the workflow step a new culture version starts in.
type Workflow interface {
	CurrentStep(ctx context.Context, n *Node) (*uint64, error)
}

// NoWorkflow leaves documents outside any workflow.
type NoWorkflow struct{}

func (NoWorkflow) CurrentStep(context.Context, *Node) (*uint64, error) {
	return nil, nil
}

// Cleaner removes type specific objects that depend on culture versions
// being deleted. It runs inside the delete transaction.
type Cleaner interface {
	Clean(ctx context.Context, tx store.Store, node *model.TreeNode, docs []*model.Document) error
}

// SiteMover reassigns objects related to a node, such as templates or
// attachments, when the node moves to another site. It runs inside the move
// transaction and is never called for links.
type SiteMover interface {
	MoveToSite(ctx context.Context, tx store.Store, node *model.TreeNode, docs []*model.Document, from, to *model.Site) error
}

type Option func(s *Service)

func WithCache(sink cache.Sink) Option {
	return func(s *Service) { s.cache = sink }
}

func WithEventLogger(l *eventlog.Logger) Option {
	return func(s *Service) { s.events = l }
}

// WithGuard adds a guard consulted before every mutation.
func WithGuard(g Guard) Option {
	return func(s *Service) { s.guards = append(s.guards, g) }
}

func WithWorkflow(w Workflow) Option {
	return func(s *Service) { s.workflow = w }
}

func WithCleaner(c Cleaner) Option {
	return func(s *Service) { s.cleaners = append(s.cleaners, c) }
}

func WithSiteMover(m SiteMover) Option {
	return func(s *Service) { s.siteMovers = append(s.siteMovers, m) }
}

// WithClock replaces time.Now for stamps and publication checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service selects and mutates nodes of the tree.
type Service struct {
	store    store.Store
	settings Settings

	cache      cache.Sink
	events     *eventlog.Logger
	guards     []Guard
	workflow   Workflow
	cleaners   []Cleaner
	siteMovers []SiteMover
	now        func() time.Time

	paths *paths.Updater
	types *typeRegistry

	sitesMu sync.RWMutex
	sites   map[uint]*model.Site
}

// New creates a Service over s with the given settings.
func New(s store.Store, settings Settings, opts ...Option) *Service {
	settings = settings.normalized()

	svc := &Service{
		store:    s,
		settings: settings,
		cache:    cache.Nop{},
		events:   eventlog.NewLogger(true, eventlog.LogrusSink{}),
		workflow: NoWorkflow{},
		now:      time.Now,
		paths:    paths.NewUpdater(s, settings.pathOptions()),
		types:    newTypeRegistry(),
		sites:    make(map[uint]*model.Site),
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (s *Service) Settings() Settings {
	return s.settings
}

func (s *Service) Store() store.Store {
	return s.store
}

// touch hands keys to the cache sink. Failures are logged and swallowed.
func (s *Service) touch(ctx context.Context, keys []string) {
	if !s.settings.TouchCacheDependencies || s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Touch(ctx, keys); err != nil {
		logrus.Warnf("touch %d cache keys: %v", len(keys), err)
	}
}

// logEvent writes an audit record for n. diff is the field change text
// captured before the write, empty when none is recorded.
func (s *Service) logEvent(ctx context.Context, action, template string, n *Node, diff string) {
	if !s.settings.LogEvents || s.events == nil {
		return
	}
	s.events.Log(ctx, eventlog.Entry{
		Action:      action,
		Template:    template,
		IncludeDiff: diff != "",
		Subject:     subject{n: n, diff: diff},
	})
}

func (s *Service) site(ctx context.Context, id uint) (*model.Site, error) {
	s.sitesMu.RLock()
	site, ok := s.sites[id]
	s.sitesMu.RUnlock()
	if ok {
		return site, nil
	}

	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return nil, lookupFailed("site", id, err)
	}

	s.sitesMu.Lock()
	s.sites[id] = site
	s.sitesMu.Unlock()

	return site, nil
}

func (s *Service) siteByName(ctx context.Context, name string) (*model.Site, error) {
	s.sitesMu.RLock()
	for _, site := range s.sites {
		if strings.EqualFold(site.Name, name) {
			s.sitesMu.RUnlock()
			return site, nil
		}
	}
	s.sitesMu.RUnlock()

	site, err := s.store.GetSiteByName(ctx, name)
	if err != nil {
		return nil, lookupFailed("site", name, err)
	}

	s.sitesMu.Lock()
	s.sites[site.ID] = site
	s.sitesMu.Unlock()

	return site, nil
}

func (s *Service) allSites(ctx context.Context) ([]*model.Site, error) {
	sites, err := s.store.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	s.sitesMu.Lock()
	for _, site := range sites {
		s.sites[site.ID] = site
	}
	s.sitesMu.Unlock()

	return sites, nil
}

// defaultCulture resolves a site's default culture from the cache, empty
// when the site is unknown.
func (s *Service) defaultCulture(siteID uint) string {
	s.sitesMu.RLock()
	defer s.sitesMu.RUnlock()

	if site, ok := s.sites[siteID]; ok {
		return site.DefaultCulture
	}
	return ""
}

func (s *Service) cultureAllowed(ctx context.Context, tx store.Store, siteID uint, culture string) error {
	ok, err := tx.IsCultureAllowed(ctx, siteID, culture)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("culture %s is not allowed on site %d", culture, siteID)
	}
	return nil
}

// SiteInput declares a new site.
type SiteInput struct {
	Name           string
	DisplayName    string
	DefaultCulture string
	// Cultures allowed besides the default.
	Cultures []string
	// RootType is the type of the root node, RootType when empty.
	RootType string
}

func (in SiteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.DefaultCulture, validation.Required, validation.Length(2, 10)),
		validation.Field(&in.Cultures, validation.Each(validation.Required, validation.Length(2, 10))),
	)
}

// CreateSite creates a site, allows its cultures and inserts its root node.
func (s *Service) CreateSite(ctx context.Context, in SiteInput) (*Node, error) {
	if err := validationFailed("invalid site", in.Validate()); err != nil {
		return nil, err
	}

	_, err := s.store.GetSiteByName(ctx, in.Name)
	switch {
	case err == nil:
		return nil, invalid("site %s already exists", in.Name)
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	var rootType *DocumentType
	if in.RootType == "" {
		rootType, err = s.rootType(ctx)
	} else {
		rootType, err = s.Type(ctx, in.RootType)
	}
	if err != nil {
		return nil, err
	}

	site := &model.Site{Name: in.Name, DisplayName: in.DisplayName, DefaultCulture: in.DefaultCulture}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateSite(ctx, site); err != nil {
			return err
		}
		for _, c := range append([]string{in.DefaultCulture}, in.Cultures...) {
			if err := tx.AddSiteCulture(ctx, site.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create site %s: %w", in.Name, err)
	}

	s.sitesMu.Lock()
	s.sites[site.ID] = site
	s.sitesMu.Unlock()

	root := s.newNode(rootType)
	root.Structural.SiteID = site.ID
	root.Culture.Culture = site.DefaultCulture
	if err = root.Insert(ctx, nil); err != nil {
		return nil, err
	}
	logrus.Infof("created site %s with default culture %s", site.Name, site.DefaultCulture)

	return root, nil
}

// AddCulture allows culture on the named site.
func (s *Service) AddCulture(ctx context.Context, siteName, culture string) error {
	if err := validationFailed("invalid culture", validation.Validate(culture, validation.Required, validation.Length(2, 10))); err != nil {
		return err
	}

	site, err := s.siteByName(ctx, siteName)
	if err != nil {
		return err
	}

	return s.store.AddSiteCulture(ctx, site.ID, culture)
}

// Site returns the named site.
func (s *Service) Site(ctx context.Context, name string) (*model.Site, error) {
	return s.siteByName(ctx, name)
}

// NewNode returns an empty node of the named type, ready to be filled and
// inserted.
func (s *Service) NewNode(ctx context.Context, typeName string) (*Node, error) {
	t, err := s.Type(ctx, typeName)
	if err != nil {
		return nil, err
	}

	return s.newNode(t), nil
}

func (s *Service) newNode(t *DocumentType) *Node {
	n := &Node{svc: s, typ: t, status: StatusNew}
	n.Structural.ClassID = t.ID()
	n.Culture.ShowInSitemap = true
	if t.HasExtension() {
		// defaults are validated when the type is compiled
		ext, err := t.newExtension()
		if err != nil {
			logrus.Warnf("defaults of type %s: %v", t.Name(), err)
			ext = &model.Extension{ClassID: t.ID()}
		}
		n.Extension = ext
	}

	return n
}
