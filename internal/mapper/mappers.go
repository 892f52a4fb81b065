package mapper

import (
	"tranquility/internal/geolocation"
	"tranquility/internal/storage"
)

// Deps are the collaborators shared by every mapper in a Set.
type Deps struct {
	Exec     storage.Executor
	Tx       TxRunner
	Geocoder geolocation.Geocoder
	RefData  RefData
}

// Set holds one instance of each mapper, built once at startup over a
// shared core.
type Set struct {
	Person     *PersonMapper
	User       *UserMapper
	Address    *AddressMapper
	Physical   *PhysicalMapper
	Electronic *ElectronicMapper
	Phone      *PhoneMapper
}

// NewSet wires all mappers.
func NewSet(d Deps, opts []Option, userOpts ...UserOption) *Set {
	c := newCore(d.Exec, d.Tx, opts...)
	physical := newPhysicalMapper(c, d.Geocoder)
	electronic := &ElectronicMapper{core: c}
	phone := &PhoneMapper{core: c}
	return &Set{
		Person:     &PersonMapper{core: c},
		User:       newUserMapper(c, d.RefData, userOpts...),
		Address:    newAddressMapper(c, physical, electronic, phone),
		Physical:   physical,
		Electronic: electronic,
		Phone:      phone,
	}
}
