package tree

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
)

// RootType is registered on demand for site roots created without a type.
const RootType = "doctree.root"

var typeNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

// DocumentType is a registered type with its compiled field accessors.
type DocumentType struct {
	Model     *model.DocumentType
	Fields    []model.FieldDefinition
	accessors accessorTable
}

func (t *DocumentType) ID() uint { return t.Model.ID }

func (t *DocumentType) Name() string { return t.Model.Name }

// HasExtension reports whether nodes of the type carry an extension row.
func (t *DocumentType) HasExtension() bool { return len(t.Fields) > 0 }

// FieldNames lists the extension field names in declaration order.
func (t *DocumentType) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

func (t *DocumentType) newExtension() (*model.Extension, error) {
	ext := &model.Extension{ClassID: t.Model.ID, Fields: datatypes.JSONMap{}}
	for _, f := range t.Fields {
		if f.Default == nil {
			continue
		}
		a, _ := t.accessors.lookup(f.Name)
		n := &Node{Extension: ext}
		if err := a.set(n, f.Default); err != nil {
			return nil, err
		}
	}
	return ext, nil
}

// checkRequired reports the first required field without a value.
func (t *DocumentType) checkRequired(ext *model.Extension) error {
	for _, f := range t.Fields {
		if !f.Required {
			continue
		}
		if ext == nil || ext.Fields[f.Name] == nil {
			return invalid("field %s is required", f.Name)
		}
		if s, ok := ext.Fields[f.Name].(string); ok && strings.TrimSpace(s) == "" {
			return invalid("field %s is required", f.Name)
		}
	}
	return nil
}

// TypeInput declares a document type.
type TypeInput struct {
	Name        string
	DisplayName string
	// NameSourceField names the field the document name is taken from when
	// set, either an extension field or a node field.
	NameSourceField string
	AliasMaxLength  int
	Fields          []model.FieldDefinition
}

func (in TypeInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100), validation.Match(typeNamePattern)),
		validation.Field(&in.AliasMaxLength, validation.Min(0), validation.Max(450)),
		validation.Field(&in.Fields, validation.Each(validation.By(func(value any) error {
			f := value.(model.FieldDefinition)
			return validation.ValidateStruct(&f,
				validation.Field(&f.Name, validation.Required, validation.Match(typeNamePattern)),
				validation.Field(&f.Kind, validation.Required, validation.In(
					model.FieldText, model.FieldInteger, model.FieldDecimal,
					model.FieldBoolean, model.FieldDateTime, model.FieldGUID,
				)),
			)
		}))),
		validation.Field(&in.NameSourceField, validation.By(func(value any) error {
			name := value.(string)
			if name == "" {
				return nil
			}
			if _, ok := partitionAccessors.lookup(name); ok {
				return nil
			}
			for _, f := range in.Fields {
				if strings.EqualFold(f.Name, name) {
					return nil
				}
			}
			return errors.New("must name a declared field")
		})),
	)
}

type typeRegistry struct {
	mu     sync.RWMutex
	byName map[string]*DocumentType
	byID   map[uint]*DocumentType
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{
		byName: make(map[string]*DocumentType),
		byID:   make(map[uint]*DocumentType),
	}
}

func (r *typeRegistry) get(name string) (*DocumentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

func (r *typeRegistry) getByID(id uint) (*DocumentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	return t, ok
}

func (r *typeRegistry) put(t *DocumentType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName[strings.ToLower(t.Model.Name)] = t
	r.byID[t.Model.ID] = t
}

func (r *typeRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for _, t := range r.byName {
		names = append(names, t.Model.Name)
	}
	return names
}

func compileType(m *model.DocumentType) (*DocumentType, error) {
	defs, err := m.FieldDefinitions()
	if err != nil {
		return nil, fmt.Errorf("decode fields of type %s: %w", m.Name, err)
	}
	accessors, err := extensionAccessors(defs)
	if err != nil {
		return nil, err
	}

	t := &DocumentType{Model: m, Fields: defs, accessors: accessors}
	if _, err = t.newExtension(); err != nil {
		return nil, fmt.Errorf("defaults of type %s: %w", m.Name, err)
	}

	return t, nil
}

// RegisterType creates the type or replaces the declaration of an existing
// type with the same name, and compiles its field accessors.
func (s *Service) RegisterType(ctx context.Context, in TypeInput) (*DocumentType, error) {
	if err := validationFailed("invalid document type", in.Validate()); err != nil {
		return nil, err
	}

	m, err := s.store.GetDocumentTypeByName(ctx, in.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		m = &model.DocumentType{Name: in.Name}
	case err != nil:
		return nil, err
	}

	m.DisplayName = in.DisplayName
	m.NameSourceField = in.NameSourceField
	m.AliasMaxLength = in.AliasMaxLength
	if err = m.SetFieldDefinitions(in.Fields); err != nil {
		return nil, err
	}

	t, err := compileType(m)
	if err != nil {
		return nil, validationFailed("invalid document type", err)
	}

	if m.ID == 0 {
		err = s.store.CreateDocumentType(ctx, m)
	} else {
		err = s.store.UpdateDocumentType(ctx, m)
	}
	if err != nil {
		return nil, fmt.Errorf("save type %s: %w", in.Name, err)
	}

	s.types.put(t)
	logrus.Infof("registered document type %s with %d fields", m.Name, len(t.Fields))

	return t, nil
}

// Type returns the named document type.
func (s *Service) Type(ctx context.Context, name string) (*DocumentType, error) {
	if t, ok := s.types.get(name); ok {
		return t, nil
	}

	m, err := s.store.GetDocumentTypeByName(ctx, name)
	if err != nil {
		return nil, lookupFailed("document type", name, err)
	}
	t, err := compileType(m)
	if err != nil {
		return nil, err
	}
	s.types.put(t)

	return t, nil
}

// TypeByID returns the document type with the given class id.
func (s *Service) TypeByID(ctx context.Context, id uint) (*DocumentType, error) {
	if t, ok := s.types.getByID(id); ok {
		return t, nil
	}

	m, err := s.store.GetDocumentType(ctx, id)
	if err != nil {
		return nil, lookupFailed("document type", id, err)
	}
	t, err := compileType(m)
	if err != nil {
		return nil, err
	}
	s.types.put(t)

	return t, nil
}

// Types loads and returns every document type.
func (s *Service) Types(ctx context.Context) ([]*DocumentType, error) {
	models, err := s.store.ListDocumentTypes(ctx)
	if err != nil {
		return nil, err
	}

	types := make([]*DocumentType, 0, len(models))
	for _, m := range models {
		t, err := compileType(m)
		if err != nil {
			return nil, err
		}
		s.types.put(t)
		types = append(types, t)
	}

	return types, nil
}

func (s *Service) rootType(ctx context.Context) (*DocumentType, error) {
	t, err := s.Type(ctx, RootType)
	if errors.Is(err, ErrNotFound) {
		return s.RegisterType(ctx, TypeInput{Name: RootType, DisplayName: "Root"})
	}
	return t, err
}
