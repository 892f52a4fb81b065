package entity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/storage"
	"tranquility/internal/storage/storagetest"
	dErrors "tranquility/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	store    *storage.Store
	registry *entity.Registry
	history  *entity.History
	log      *audit.Log
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.store = storagetest.NewSQLite(s.T())
	s.registry = entity.NewRegistry(s.store)
	s.history = entity.NewHistory(s.store)
	s.log = audit.NewLog(s.store)
	s.ctx = context.Background()
}

func (s *RegistrySuite) recordTx() int64 {
	id, err := s.log.Record(s.ctx, audit.Trail{
		UpdateBy:          1,
		UpdateDatetime:    "2024-01-01 00:00:00",
		TransactionSource: audit.SourceBackendUI,
		UpdateReason:      "test",
	})
	s.Require().NoError(err)
	return id
}

var peopleTables = entity.Tables{
	Business: "entity_people",
	History:  "history_people",
	Columns:  []string{"title", "first_name", "last_name", "position", "transaction_id"},
}

func (s *RegistrySuite) TestLifecycle() {
	id, err := s.registry.CreateEntity(s.ctx, entity.TypePerson, "")
	s.Require().NoError(err)

	e, err := s.registry.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(e)
	s.Equal(int64(1), e.Version)
	s.False(e.Deleted)
	s.False(e.Locked)
	s.Equal(entity.TypePerson, e.Type)

	ok, err := s.registry.IncrementVersion(s.ctx, id)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.registry.SoftDelete(s.ctx, id)
	s.Require().NoError(err)
	s.True(ok)

	e, err = s.registry.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(int64(3), e.Version)
	s.True(e.Deleted)
}

func (s *RegistrySuite) TestZeroRowsAffected() {
	ok, err := s.registry.IncrementVersion(s.ctx, 424242)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.registry.SoftDelete(s.ctx, 424242)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RegistrySuite) TestExists() {
	person, err := s.registry.CreateEntity(s.ctx, entity.TypePerson, "")
	s.Require().NoError(err)
	address, err := s.registry.CreateEntity(s.ctx, entity.TypeAddress, "phone")
	s.Require().NoError(err)
	_, err = s.registry.SoftDelete(s.ctx, address)
	s.Require().NoError(err)

	s.Run("any type", func() {
		ok, err := s.registry.Exists(s.ctx, person, "", false)
		s.Require().NoError(err)
		s.True(ok)
	})
	s.Run("wrong type", func() {
		ok, err := s.registry.Exists(s.ctx, person, entity.TypeUser, false)
		s.Require().NoError(err)
		s.False(ok)
	})
	s.Run("deleted hidden unless requested", func() {
		ok, err := s.registry.Exists(s.ctx, address, entity.TypeAddress, false)
		s.Require().NoError(err)
		s.False(ok)
		ok, err = s.registry.Exists(s.ctx, address, entity.TypeAddress, true)
		s.Require().NoError(err)
		s.True(ok)
	})
	s.Run("missing id", func() {
		ok, err := s.registry.Exists(s.ctx, 0, "", true)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *RegistrySuite) TestCreateXref() {
	parent, err := s.registry.CreateEntity(s.ctx, entity.TypePerson, "")
	s.Require().NoError(err)
	child, err := s.registry.CreateEntity(s.ctx, entity.TypeAddress, "electronic")
	s.Require().NoError(err)
	txID := s.recordTx()

	s.Run("links existing endpoints", func() {
		s.Require().NoError(s.registry.CreateXref(s.ctx, parent, child, txID))
		got, ok, err := s.registry.ParentOf(s.ctx, child)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(parent, got)

		kids, err := s.registry.Children(s.ctx, parent, entity.TypeAddress)
		s.Require().NoError(err)
		s.Require().Len(kids, 1)
		s.Equal("electronic", kids[0].Subtype)
	})

	s.Run("missing endpoint is a referential fault", func() {
		err := s.registry.CreateXref(s.ctx, parent, 777, txID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferential))
		s.Equal(int64(1), storagetest.Count(s.T(), s.store, "entity_xref", ""))
	})
}

func (s *RegistrySuite) TestSnapshotRecordsPreviousVersion() {
	id, err := s.registry.CreateEntity(s.ctx, entity.TypePerson, "")
	s.Require().NoError(err)
	txID := s.recordTx()
	_, err = s.store.Insert(s.ctx,
		`INSERT INTO entity_people (id, title, first_name, last_name, position, transaction_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, "Ms", "Grace", "Hopper", "", txID)
	s.Require().NoError(err)

	ok, err := s.history.Snapshot(s.ctx, peopleTables, id)
	s.Require().NoError(err)
	s.True(ok)
	_, err = s.registry.IncrementVersion(s.ctx, id)
	s.Require().NoError(err)

	rows, err := s.history.Rows(s.ctx, peopleTables, id)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(int64(1), rows[0]["version"])
	s.Equal("Hopper", rows[0]["last_name"])
	s.Equal("test", rows[0]["update_reason"])

	n, err := s.history.Count(s.ctx, peopleTables, id)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	s.Run("missing source row copies nothing", func() {
		ok, err := s.history.Snapshot(s.ctx, peopleTables, 9999)
		s.Require().NoError(err)
		s.False(ok)
	})
}
