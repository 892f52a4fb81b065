package mapper

import (
	"context"
	"fmt"
	"strings"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/geolocation"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// AddressType is the closed set of address families. It is also the entity
// subtype of every address.
type AddressType string

const (
	AddressPhysical   AddressType = "physical"
	AddressElectronic AddressType = "electronic"
	AddressPhone      AddressType = "phone"
)

// AddressTypes lists the families in grouping order.
var AddressTypes = []AddressType{AddressPhysical, AddressElectronic, AddressPhone}

// ParseAddressType resolves a family tag.
func ParseAddressType(s string) (AddressType, error) {
	for _, t := range AddressTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("unknown address type %q", s))
}

// Address is the caller-supplied state of any address family. Each family
// reads only its own fields; Type is the family-specific addressType value
// such as home, email or mobile.
type Address struct {
	ParentID       int64
	Type           string
	Category       string
	AddressText    string
	PrimaryContact bool
	Line1          string
	Line2          string
	Line3          string
	Line4          string
	City           string
	State          string
	Postcode       string
	Country        string
}

func (a Address) trimmed() Address {
	for _, s := range []*string{&a.Type, &a.Category, &a.AddressText, &a.Line1, &a.Line2, &a.Line3, &a.Line4,
		&a.City, &a.State, &a.Postcode, &a.Country} {
		*s = strings.TrimSpace(*s)
	}
	return a
}

var addressCodes = messageCodes{
	listed:       response.MsgAddressListRetrieved,
	retrieved:    response.MsgAddressRetrieved,
	created:      response.MsgAddressCreated,
	createFailed: response.MsgAddressCreateFailed,
	updated:      response.MsgAddressUpdated,
	updateFailed: response.MsgAddressUpdateFailed,
	deleted:      response.MsgAddressDeleted,
	deleteFailed: response.MsgAddressDeleteFailed,
}

// checkParent requires a live parent entity for a new address.
func (c *core) checkParent(ctx context.Context, resp *response.Response, parentID int64) error {
	if parentID == 0 {
		resp.AddMessage(response.MsgMandatoryFieldMissing, response.LevelError, "parentId")
		return nil
	}
	ok, err := c.registry.Exists(ctx, parentID, "", false)
	if err != nil {
		return err
	}
	if !ok {
		resp.AddMessage(response.MsgParentNotFound, response.LevelError, "parentId")
	}
	return nil
}

func (c *core) primaryOnCreate(k *kind, a Address) func(ctx context.Context, id, txID int64) error {
	return func(ctx context.Context, id, txID int64) error {
		if !a.PrimaryContact {
			return nil
		}
		return c.clearPrimary(ctx, k, a.ParentID, id, txID)
	}
}

func (c *core) primaryOnUpdate(k *kind, id int64, a Address) func(ctx context.Context, txID int64) error {
	return func(ctx context.Context, txID int64) error {
		if !a.PrimaryContact {
			return nil
		}
		parentID, ok, err := c.registry.ParentOf(ctx, id)
		if err != nil || !ok {
			return err
		}
		return c.clearPrimary(ctx, k, parentID, id, txID)
	}
}

type addressFamily interface {
	Create(ctx context.Context, a Address, trail audit.Trail) (*response.Response, error)
	Update(ctx context.Context, id int64, a Address, trail audit.Trail) (*response.Response, error)
	Delete(ctx context.Context, id int64, trail audit.Trail) (*response.Response, error)
	List(ctx context.Context, q Query) (*response.Response, error)
	Get(ctx context.Context, id int64, sel projection.Selection) (*response.Response, error)
	History(ctx context.Context, id int64) (*response.Response, error)
	addressKind() *kind
}

// AddressMapper dispatches address operations to the family mapper named by
// an AddressType. Update, Delete, Get and History accept an empty type and
// resolve it from the entity's subtype.
type AddressMapper struct {
	*core
	families map[AddressType]addressFamily
}

// NewAddressMapper builds the dispatcher and its three family mappers.
func NewAddressMapper(exec storage.Executor, tx TxRunner, geocoder geolocation.Geocoder, opts ...Option) *AddressMapper {
	c := newCore(exec, tx, opts...)
	return newAddressMapper(c, newPhysicalMapper(c, geocoder), &ElectronicMapper{core: c}, &PhoneMapper{core: c})
}

func newAddressMapper(c *core, physical *PhysicalMapper, electronic *ElectronicMapper, phone *PhoneMapper) *AddressMapper {
	return &AddressMapper{
		core: c,
		families: map[AddressType]addressFamily{
			AddressPhysical:   physical,
			AddressElectronic: electronic,
			AddressPhone:      phone,
		},
	}
}

func (m *AddressMapper) family(t AddressType) (addressFamily, error) {
	f, ok := m.families[t]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("unknown address type %q", t))
	}
	return f, nil
}

// familyOf resolves the mapper for an existing address. False means id is
// not an address, or is deleted and includeDeleted is unset.
func (m *AddressMapper) familyOf(ctx context.Context, t AddressType, id int64, includeDeleted bool) (addressFamily, bool, error) {
	if t != "" {
		f, err := m.family(t)
		return f, err == nil, err
	}
	e, err := m.registry.Details(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if e == nil || e.Type != entity.TypeAddress || (e.Deleted && !includeDeleted) {
		return nil, false, nil
	}
	f, ok := m.families[AddressType(e.Subtype)]
	return f, ok, nil
}

func missingEntity() *response.Response {
	resp := response.New()
	resp.AddMessage(response.MsgEntityDoesNotExist, response.LevelError, "id")
	return resp
}

// Create adds an address of family t.
func (m *AddressMapper) Create(ctx context.Context, t AddressType, a Address, trail audit.Trail) (*response.Response, error) {
	f, err := m.family(t)
	if err != nil {
		return nil, err
	}
	return f.Create(ctx, a, trail)
}

// Update replaces address id.
func (m *AddressMapper) Update(ctx context.Context, t AddressType, id int64, a Address, trail audit.Trail) (*response.Response, error) {
	f, ok, err := m.familyOf(ctx, t, id, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return missingEntity(), nil
	}
	return f.Update(ctx, id, a, trail)
}

// Delete logically deletes address id.
func (m *AddressMapper) Delete(ctx context.Context, t AddressType, id int64, trail audit.Trail) (*response.Response, error) {
	f, ok, err := m.familyOf(ctx, t, id, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return missingEntity(), nil
	}
	return f.Delete(ctx, id, trail)
}

// Get returns address id.
func (m *AddressMapper) Get(ctx context.Context, t AddressType, id int64, sel projection.Selection) (*response.Response, error) {
	f, ok, err := m.familyOf(ctx, t, id, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return noRecords(), nil
	}
	return f.Get(ctx, id, sel)
}

// History returns the prior versions of address id. Deleted addresses keep
// their history.
func (m *AddressMapper) History(ctx context.Context, t AddressType, id int64) (*response.Response, error) {
	f, ok, err := m.familyOf(ctx, t, id, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return noRecords(), nil
	}
	return f.History(ctx, id)
}

// List returns live addresses of family t matching q.
func (m *AddressMapper) List(ctx context.Context, t AddressType, q Query) (*response.Response, error) {
	f, err := m.family(t)
	if err != nil {
		return nil, err
	}
	return f.List(ctx, q)
}

// ListForParent returns every live address of parentID grouped by family.
// Empty families are omitted and the count spans all groups.
func (m *AddressMapper) ListForParent(ctx context.Context, parentID int64, sel projection.Selection) (*response.Response, error) {
	groups := make(map[string][]response.Record, len(AddressTypes))
	for _, t := range AddressTypes {
		k := m.families[t].addressKind()
		rows, err := m.exec.Select(ctx,
			k.selectSQL()+" AND b.id IN (SELECT child_id FROM entity_xref WHERE parent_id = $1) ORDER BY b.id", parentID)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			groups[string(t)] = projection.Transform(rows, k.fields, sel)
		}
	}
	if len(groups) == 0 {
		return noRecords(), nil
	}
	resp := response.New()
	resp.SetGroups(groups)
	resp.AddMessage(response.MsgAddressListRetrieved, response.LevelSuccess, "")
	return resp, nil
}
