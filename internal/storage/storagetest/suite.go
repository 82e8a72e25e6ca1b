// Package storagetest holds the behavior every storage.Store backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// StoreSuite runs against whatever Store the embedding suite assigns in its SetupTest
type StoreSuite struct {
	suite.Suite
	Store storage.Store
	Ctx   context.Context
}

func (s *StoreSuite) TestSaveAndScanRooms() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-1", []byte(`{"id":"room-1"}`)))
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-2", []byte(`{"id":"room-2"}`)))

	rooms, err := s.Store.ScanRooms(s.Ctx)
	s.Require().NoError(err)
	s.Len(rooms, 2)
	s.JSONEq(`{"id":"room-1"}`, string(rooms["room-1"]))
	s.JSONEq(`{"id":"room-2"}`, string(rooms["room-2"]))
}

func (s *StoreSuite) TestSaveRoomOverwrites() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-1", []byte(`{"v":1}`)))
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-1", []byte(`{"v":2}`)))

	rooms, err := s.Store.ScanRooms(s.Ctx)
	s.Require().NoError(err)
	s.Len(rooms, 1)
	s.JSONEq(`{"v":2}`, string(rooms["room-1"]))
}

func (s *StoreSuite) TestScanRoomsEmpty() {
	rooms, err := s.Store.ScanRooms(s.Ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *StoreSuite) TestDeleteRoom() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-1", []byte(`{}`)))
	s.Require().NoError(s.Store.DeleteRoom(s.Ctx, "room-1"))

	rooms, err := s.Store.ScanRooms(s.Ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *StoreSuite) TestDeleteMissingRoomIsNoop() {
	s.NoError(s.Store.DeleteRoom(s.Ctx, "nonexistent"))
}

func (s *StoreSuite) TestSaveAndScanTimers() {
	expiry := time.Date(2024, 1, 1, 12, 1, 30, 0, time.UTC)
	s.Require().NoError(s.Store.SaveTimer(s.Ctx, "room-1", expiry))

	timers, err := s.Store.ScanTimers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Contains(timers, model.RoomID("room-1"))
	s.True(expiry.Equal(timers["room-1"]), "expected %v, got %v", expiry, timers["room-1"])
}

func (s *StoreSuite) TestTimerExpiryKeepsMillisecondPrecision() {
	expiry := time.Date(2024, 1, 1, 12, 0, 0, 123_000_000, time.UTC)
	s.Require().NoError(s.Store.SaveTimer(s.Ctx, "room-1", expiry))

	timers, err := s.Store.ScanTimers(s.Ctx)
	s.Require().NoError(err)
	s.Equal(expiry.UnixMilli(), timers["room-1"].UnixMilli())
}

func (s *StoreSuite) TestDeleteTimer() {
	s.Require().NoError(s.Store.SaveTimer(s.Ctx, "room-1", time.Now()))
	s.Require().NoError(s.Store.DeleteTimer(s.Ctx, "room-1"))

	timers, err := s.Store.ScanTimers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(timers)
}

func (s *StoreSuite) TestDeleteRoomAlsoClearsTimer() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-1", []byte(`{}`)))
	s.Require().NoError(s.Store.SaveTimer(s.Ctx, "room-1", time.Now()))

	s.Require().NoError(s.Store.DeleteRoom(s.Ctx, "room-1"))

	timers, err := s.Store.ScanTimers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(timers)
}

func (s *StoreSuite) TestDeleteRoomKeepsOtherRooms() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-1", []byte(`{}`)))
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, "room-2", []byte(`{}`)))
	s.Require().NoError(s.Store.SaveTimer(s.Ctx, "room-2", time.Now()))

	s.Require().NoError(s.Store.DeleteRoom(s.Ctx, "room-1"))

	rooms, err := s.Store.ScanRooms(s.Ctx)
	s.Require().NoError(err)
	s.Len(rooms, 1)
	s.Contains(rooms, model.RoomID("room-2"))

	timers, err := s.Store.ScanTimers(s.Ctx)
	s.Require().NoError(err)
	s.Contains(timers, model.RoomID("room-2"))
}
