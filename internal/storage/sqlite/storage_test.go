package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/drawguess/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.StoreSuite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	st, err := New(filepath.Join(s.T().TempDir(), "data", "drawguess.db"))
	s.Require().NoError(err)

	s.storage = st
	s.Store = st
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestReopenKeepsData() {
	path := filepath.Join(s.T().TempDir(), "reopen.db")

	first, err := New(path)
	s.Require().NoError(err)
	s.Require().NoError(first.SaveRoom(s.Ctx, "room-1", []byte(`{"id":"room-1"}`)))
	s.Require().NoError(first.Close())

	second, err := New(path)
	s.Require().NoError(err)
	defer second.Close()

	rooms, err := second.ScanRooms(s.Ctx)
	s.Require().NoError(err)
	s.JSONEq(`{"id":"room-1"}`, string(rooms["room-1"]))
}

func (s *StorageSuite) TestNewRejectsEmptyPath() {
	_, err := New("")
	s.Error(err)
}
