package tree

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/emrgen/doctree/internal/model"
)

// accessor reads and writes one named field of a node. set is nil for fields
// that are computed by the tree and never assigned by callers.
type accessor struct {
	name string
	get  func(n *Node) any
	set  func(n *Node, v any) error
}

// accessorTable maps lower-cased field names to accessors.
type accessorTable map[string]*accessor

func (t accessorTable) add(a *accessor) {
	t[strings.ToLower(a.name)] = a
}

func (t accessorTable) lookup(name string) (*accessor, bool) {
	a, ok := t[strings.ToLower(name)]
	return a, ok
}

// names returns the canonical field names in sorted order.
func (t accessorTable) names() []string {
	names := make([]string, 0, len(t))
	for _, a := range t {
		names = append(names, a.name)
	}
	sort.Strings(names)
	return names
}

// Names of the fields every node exposes.
const (
	FieldNodeID               = "NodeID"
	FieldNodeGUID             = "NodeGUID"
	FieldNodeParentID         = "NodeParentID"
	FieldNodeSiteID           = "NodeSiteID"
	FieldNodeClassID          = "NodeClassID"
	FieldNodeAliasPath        = "NodeAliasPath"
	FieldNodeAlias            = "NodeAlias"
	FieldNodeName             = "NodeName"
	FieldNodeLevel            = "NodeLevel"
	FieldNodeOrder            = "NodeOrder"
	FieldNodeACLID            = "NodeACLID"
	FieldNodeIsACLOwner       = "NodeIsACLOwner"
	FieldNodeLinkedNodeID     = "NodeLinkedNodeID"
	FieldNodeLinkedNodeSiteID = "NodeLinkedNodeSiteID"
	FieldNodeGroupID          = "NodeGroupID"
	FieldNodeOwner            = "NodeOwner"

	FieldDocumentID                         = "DocumentID"
	FieldDocumentGUID                       = "DocumentGUID"
	FieldDocumentCulture                    = "DocumentCulture"
	FieldDocumentName                       = "DocumentName"
	FieldDocumentNamePath                   = "DocumentNamePath"
	FieldDocumentURLPath                    = "DocumentURLPath"
	FieldDocumentWorkflowStepID             = "DocumentWorkflowStepID"
	FieldDocumentCheckedOutVersionHistoryID = "DocumentCheckedOutVersionHistoryID"
	FieldDocumentPublishedVersionHistoryID  = "DocumentPublishedVersionHistoryID"
	FieldDocumentIsArchived                 = "DocumentIsArchived"
	FieldDocumentPublishFrom                = "DocumentPublishFrom"
	FieldDocumentPublishTo                  = "DocumentPublishTo"
	FieldDocumentCreatedWhen                = "DocumentCreatedWhen"
	FieldDocumentModifiedWhen               = "DocumentModifiedWhen"
	FieldDocumentCreatedByUserID            = "DocumentCreatedByUserID"
	FieldDocumentModifiedByUserID           = "DocumentModifiedByUserID"
	FieldDocumentSearchExcluded             = "DocumentSearchExcluded"
	FieldDocumentShowInSitemap              = "DocumentShowInSitemap"
	FieldDocumentTagGroupID                 = "DocumentTagGroupID"
	FieldDocumentCustomData                 = "DocumentCustomData"
	FieldDocumentForeignKey                 = "DocumentForeignKey"
)

// structuralFields are the fields shared by every culture version of a node.
var structuralFields = map[string]bool{}

// partitionAccessors covers the structural and culture partitions. It is built
// once and shared by every node.
var partitionAccessors = accessorTable{}

func init() {
	structural := []*accessor{
		{name: FieldNodeID, get: func(n *Node) any { return n.Structural.ID }},
		{name: FieldNodeGUID, get: func(n *Node) any { return n.Structural.GUID }, set: setGUID(func(n *Node) *string { return &n.Structural.GUID })},
		{name: FieldNodeParentID, get: func(n *Node) any { return optUint64(n.Structural.ParentID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Structural.ParentID })},
		{name: FieldNodeSiteID, get: func(n *Node) any { return n.Structural.SiteID }},
		{name: FieldNodeClassID, get: func(n *Node) any { return n.Structural.ClassID }},
		{name: FieldNodeAliasPath, get: func(n *Node) any { return n.Structural.AliasPath }},
		{name: FieldNodeAlias, get: func(n *Node) any { return n.Structural.Alias }, set: setString(func(n *Node) *string { return &n.Structural.Alias })},
		{name: FieldNodeName, get: func(n *Node) any { return n.Structural.Name }, set: setString(func(n *Node) *string { return &n.Structural.Name })},
		{name: FieldNodeLevel, get: func(n *Node) any { return n.Structural.Level }},
		{name: FieldNodeOrder, get: func(n *Node) any { return n.Structural.Order }, set: setInt(func(n *Node) *int { return &n.Structural.Order })},
		{name: FieldNodeACLID, get: func(n *Node) any { return n.Structural.ACLID }, set: setUint64(func(n *Node) *uint64 { return &n.Structural.ACLID })},
		{name: FieldNodeIsACLOwner, get: func(n *Node) any { return n.Structural.IsACLOwner }, set: setBool(func(n *Node) *bool { return &n.Structural.IsACLOwner })},
		{name: FieldNodeLinkedNodeID, get: func(n *Node) any { return optUint64(n.Structural.LinkedNodeID) }},
		{name: FieldNodeLinkedNodeSiteID, get: func(n *Node) any { return optUint(n.Structural.LinkedNodeSiteID) }},
		{name: FieldNodeGroupID, get: func(n *Node) any { return optUint64(n.Structural.GroupID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Structural.GroupID })},
		{name: FieldNodeOwner, get: func(n *Node) any { return optUint64(n.Structural.OwnerID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Structural.OwnerID })},
	}

	culture := []*accessor{
		{name: FieldDocumentID, get: func(n *Node) any { return n.Culture.ID }},
		{name: FieldDocumentGUID, get: func(n *Node) any { return n.Culture.GUID }, set: setGUID(func(n *Node) *string { return &n.Culture.GUID })},
		{name: FieldDocumentCulture, get: func(n *Node) any { return n.Culture.Culture }},
		{name: FieldDocumentName, get: func(n *Node) any { return n.Culture.Name }, set: setString(func(n *Node) *string { return &n.Culture.Name })},
		{name: FieldDocumentNamePath, get: func(n *Node) any { return n.Culture.NamePath }},
		{name: FieldDocumentURLPath, get: func(n *Node) any { return n.Culture.URLPath }},
		{name: FieldDocumentWorkflowStepID, get: func(n *Node) any { return optUint64(n.Culture.WorkflowStepID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Culture.WorkflowStepID })},
		{name: FieldDocumentCheckedOutVersionHistoryID, get: func(n *Node) any { return optUint64(n.Culture.CheckedOutVersionHistoryID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Culture.CheckedOutVersionHistoryID })},
		{name: FieldDocumentPublishedVersionHistoryID, get: func(n *Node) any { return optUint64(n.Culture.PublishedVersionHistoryID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Culture.PublishedVersionHistoryID })},
		{name: FieldDocumentIsArchived, get: func(n *Node) any { return n.Culture.IsArchived }, set: setBool(func(n *Node) *bool { return &n.Culture.IsArchived })},
		{name: FieldDocumentPublishFrom, get: func(n *Node) any { return optTime(n.Culture.PublishFrom) }, set: setOptTime(func(n *Node) **time.Time { return &n.Culture.PublishFrom })},
		{name: FieldDocumentPublishTo, get: func(n *Node) any { return optTime(n.Culture.PublishTo) }, set: setOptTime(func(n *Node) **time.Time { return &n.Culture.PublishTo })},
		{name: FieldDocumentCreatedWhen, get: func(n *Node) any { return n.Culture.CreatedWhen }},
		{name: FieldDocumentModifiedWhen, get: func(n *Node) any { return n.Culture.ModifiedWhen }},
		{name: FieldDocumentCreatedByUserID, get: func(n *Node) any { return optUint64(n.Culture.CreatedByUserID) }},
		{name: FieldDocumentModifiedByUserID, get: func(n *Node) any { return optUint64(n.Culture.ModifiedByUserID) }},
		{name: FieldDocumentSearchExcluded, get: func(n *Node) any { return n.Culture.SearchExcluded }, set: setBool(func(n *Node) *bool { return &n.Culture.SearchExcluded })},
		{name: FieldDocumentShowInSitemap, get: func(n *Node) any { return n.Culture.ShowInSitemap }, set: setBool(func(n *Node) *bool { return &n.Culture.ShowInSitemap })},
		{name: FieldDocumentTagGroupID, get: func(n *Node) any { return optUint64(n.Culture.TagGroupID) }, set: setOptUint64(func(n *Node) **uint64 { return &n.Culture.TagGroupID })},
		{name: FieldDocumentCustomData, get: func(n *Node) any { return string(n.Culture.CustomData) }, set: setCustomData},
		{name: FieldDocumentForeignKey, get: func(n *Node) any { return optUint64(n.Culture.ForeignKey) }},
	}

	for _, a := range structural {
		partitionAccessors.add(a)
		structuralFields[a.name] = true
	}
	for _, a := range culture {
		partitionAccessors.add(a)
	}
}

// extensionAccessors compiles the accessors of a document type's fields.
func extensionAccessors(defs []model.FieldDefinition) (accessorTable, error) {
	table := accessorTable{}
	for _, def := range defs {
		if _, clash := partitionAccessors.lookup(def.Name); clash {
			return nil, invalid("field %s shadows a node field", def.Name)
		}
		conv, err := converter(def.Kind)
		if err != nil {
			return nil, err
		}

		name := def.Name
		table.add(&accessor{
			name: name,
			get: func(n *Node) any {
				if n.Extension == nil || n.Extension.Fields == nil {
					return nil
				}
				raw, ok := n.Extension.Fields[name]
				if !ok || raw == nil {
					return nil
				}
				v, err := conv.read(raw)
				if err != nil {
					return raw
				}
				return v
			},
			set: func(n *Node, v any) error {
				if v == nil {
					n.ensureExtension()
					delete(n.Extension.Fields, name)
					return nil
				}
				stored, err := conv.write(v)
				if err != nil {
					return &ValidationError{Message: fmt.Sprintf("field %s", name), Err: err}
				}
				n.ensureExtension()
				n.Extension.Fields[name] = stored
				return nil
			},
		})
	}

	return table, nil
}

// kindConverter converts between caller values, the JSON stored value and the
// normalized value returned by GetValue.
type kindConverter struct {
	read  func(raw any) (any, error)
	write func(v any) (any, error)
}

func converter(kind model.FieldKind) (kindConverter, error) {
	switch kind {
	case model.FieldText:
		text := func(v any) (any, error) { return toString(v) }
		return kindConverter{read: text, write: text}, nil
	case model.FieldInteger:
		integer := func(v any) (any, error) { return toInt64(v) }
		return kindConverter{read: integer, write: integer}, nil
	case model.FieldDecimal:
		decimal := func(v any) (any, error) { return toFloat64(v) }
		return kindConverter{read: decimal, write: decimal}, nil
	case model.FieldBoolean:
		boolean := func(v any) (any, error) { return toBool(v) }
		return kindConverter{read: boolean, write: boolean}, nil
	case model.FieldDateTime:
		return kindConverter{
			read: func(raw any) (any, error) { return toTime(raw) },
			write: func(v any) (any, error) {
				t, err := toTime(v)
				if err != nil {
					return nil, err
				}
				return t.UTC().Format(time.RFC3339Nano), nil
			},
		}, nil
	case model.FieldGUID:
		guid := func(v any) (any, error) {
			s, err := toString(v)
			if err != nil {
				return nil, err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}
		return kindConverter{read: guid, write: guid}, nil
	default:
		return kindConverter{}, invalid("unknown field kind %q", kind)
	}
}

func optUint64(p *uint64) any {
	if p == nil {
		return nil
	}
	return *p
}

func optUint(p *uint) any {
	if p == nil {
		return nil
	}
	return *p
}

func optTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func setString(field func(n *Node) *string) func(*Node, any) error {
	return func(n *Node, v any) error {
		s, err := toString(v)
		if err != nil {
			return err
		}
		*field(n) = s
		return nil
	}
}

func setGUID(field func(n *Node) *string) func(*Node, any) error {
	return func(n *Node, v any) error {
		s, err := toString(v)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return err
		}
		*field(n) = id.String()
		return nil
	}
}

func setInt(field func(n *Node) *int) func(*Node, any) error {
	return func(n *Node, v any) error {
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		*field(n) = int(i)
		return nil
	}
}

func setUint64(field func(n *Node) *uint64) func(*Node, any) error {
	return func(n *Node, v any) error {
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("negative value %d", i)
		}
		*field(n) = uint64(i)
		return nil
	}
}

// setOptUint64 treats nil and zero as "not set".
func setOptUint64(field func(n *Node) **uint64) func(*Node, any) error {
	return func(n *Node, v any) error {
		if v == nil {
			*field(n) = nil
			return nil
		}
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("negative value %d", i)
		}
		if i == 0 {
			*field(n) = nil
			return nil
		}
		u := uint64(i)
		*field(n) = &u
		return nil
	}
}

func setBool(field func(n *Node) *bool) func(*Node, any) error {
	return func(n *Node, v any) error {
		b, err := toBool(v)
		if err != nil {
			return err
		}
		*field(n) = b
		return nil
	}
}

func setOptTime(field func(n *Node) **time.Time) func(*Node, any) error {
	return func(n *Node, v any) error {
		if v == nil {
			*field(n) = nil
			return nil
		}
		t, err := toTime(v)
		if err != nil {
			return err
		}
		*field(n) = &t
		return nil
	}
}

func setCustomData(n *Node, v any) error {
	switch data := v.(type) {
	case nil:
		n.Culture.CustomData = nil
	case string:
		if data != "" && !json.Valid([]byte(data)) {
			return fmt.Errorf("custom data is not valid JSON")
		}
		n.Culture.CustomData = datatypes.JSON(data)
	case []byte:
		if len(data) > 0 && !json.Valid(data) {
			return fmt.Errorf("custom data is not valid JSON")
		}
		n.Culture.CustomData = datatypes.JSON(data)
	case datatypes.JSON:
		n.Culture.CustomData = data
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		n.Culture.CustomData = raw
	}
	return nil
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	case int, int32, int64, uint, uint32, uint64, float64, bool:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("cannot convert %T to text", v)
	}
}

func toInt64(v any) (int64, error) {
	switch i := v.(type) {
	case int:
		return int64(i), nil
	case int32:
		return int64(i), nil
	case int64:
		return i, nil
	case uint:
		return int64(i), nil
	case uint32:
		return int64(i), nil
	case uint64:
		return int64(i), nil
	case float64:
		if i != float64(int64(i)) {
			return 0, fmt.Errorf("%v is not an integer", i)
		}
		return int64(i), nil
	case json.Number:
		return i.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(i), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int, int32, int64, uint, uint32, uint64:
		i, err := toInt64(f)
		return float64(i), err
	case json.Number:
		return f.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(f), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to decimal", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	case int, int64, float64:
		i, err := toInt64(b)
		return i != 0, err
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to date and time", v)
	}
}

// sameValue compares two normalized field values.
func sameValue(a, b any) bool {
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok || bok {
		return aok && bok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
