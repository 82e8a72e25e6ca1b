package room

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/drawguess/internal/dependencies/mocks"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
	"github.com/mcoot/drawguess/internal/storage/memory"
	redisstore "github.com/mcoot/drawguess/internal/storage/redis"
	"github.com/mcoot/drawguess/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	store    *memory.Storage
	writer   *storage.AsyncWriter
	random   *mocks.MockRandom
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.writer = storage.NewAsyncWriter(s.store, 0, testutil.NopLogger())
	s.random = mocks.NewMockRandom()
	s.registry = NewRegistry(s.writer, s.random, testutil.NopLogger())
}

func (s *RegistrySuite) TearDownTest() {
	s.writer.Close()
}

func (s *RegistrySuite) settings() model.Settings {
	return model.Settings{MaxPlayers: 3, DrawTime: 60, Rounds: 2}
}

func (s *RegistrySuite) createRoom() *model.Room {
	s.random.QueueUUID("room-1", "host")
	room, err := s.registry.CreateRoom(model.PlayerData{Name: "Hana", Color: "#ff0000"}, "conn-host", s.settings())
	s.Require().NoError(err)
	return room
}

func (s *RegistrySuite) persisted(id model.RoomID) (*model.Room, bool) {
	s.Require().NoError(s.writer.Flush(s.ctx))
	rooms, err := s.store.ScanRooms(s.ctx)
	s.Require().NoError(err)
	data, ok := rooms[id]
	if !ok {
		return nil, false
	}
	var room model.Room
	s.Require().NoError(json.Unmarshal(data, &room))
	return &room, true
}

// CreateRoom tests

func (s *RegistrySuite) TestCreateRoomSucceeds() {
	room := s.createRoom()

	s.Equal(model.RoomID("room-1"), room.ID)
	s.Equal(model.PlayerID("host"), room.HostID)
	s.Equal(model.ConnID("conn-host"), room.ConnID)
	s.Nil(room.GameState)
	s.Require().Len(room.Players, 1)
	s.True(room.Players[0].IsHost)
	s.Equal("Hana", room.Players[0].Name)
	s.Equal(0, room.Players[0].Score)
}

func (s *RegistrySuite) TestCreateRoomIsPersisted() {
	room := s.createRoom()

	saved, ok := s.persisted(room.ID)
	s.Require().True(ok)
	s.Equal(room, saved)
}

func (s *RegistrySuite) TestCreateRoomDefaultsMaxPlayers() {
	room, err := s.registry.CreateRoom(model.PlayerData{Name: "Hana"}, "c1", model.Settings{DrawTime: 30, Rounds: 1})
	s.Require().NoError(err)
	s.Equal(model.DefaultMaxPlayers, room.Settings.MaxPlayers)
}

func (s *RegistrySuite) TestCreateRoomRejectsInvalidSettings() {
	_, err := s.registry.CreateRoom(model.PlayerData{Name: "Hana"}, "c1", model.Settings{MaxPlayers: 4, DrawTime: 0, Rounds: 1})
	s.ErrorIs(err, model.ErrInvalidSettings)
	s.Equal(0, s.registry.Len())
}

func (s *RegistrySuite) TestCreateRoomRetriesOnIDCollision() {
	s.createRoom()
	s.random.QueueUUID("room-1", "room-2", "host-2")

	room, err := s.registry.CreateRoom(model.PlayerData{Name: "Kai"}, "conn-2", s.settings())
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-2"), room.ID)
}

func (s *RegistrySuite) TestCreateRoomRejectsBoundConnection() {
	s.createRoom()
	_, err := s.registry.CreateRoom(model.PlayerData{Name: "Hana"}, "conn-host", s.settings())
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

// JoinRoom tests

func (s *RegistrySuite) TestJoinRoomAppendsPlayer() {
	room := s.createRoom()
	s.random.QueueUUID("p2")

	joined, err := s.registry.JoinRoom(room.ID, model.PlayerData{Name: "Kai", Color: "#00ff00"}, "conn-2")
	s.Require().NoError(err)
	s.Require().Len(joined.Players, 2)
	last := joined.Players[1]
	s.Equal(model.PlayerID("p2"), last.ID)
	s.Equal(model.ConnID("conn-2"), last.ConnID)
	s.False(last.IsHost)

	roomID, playerID, ok := s.registry.MemberByConn("conn-2")
	s.True(ok)
	s.Equal(room.ID, roomID)
	s.Equal(model.PlayerID("p2"), playerID)
}

func (s *RegistrySuite) TestJoinRoomNotFound() {
	_, err := s.registry.JoinRoom("missing", model.PlayerData{Name: "Kai"}, "conn-2")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestJoinRoomFull() {
	room := s.createRoom()
	_, err := s.registry.JoinRoom(room.ID, model.PlayerData{Name: "B"}, "c2")
	s.Require().NoError(err)
	_, err = s.registry.JoinRoom(room.ID, model.PlayerData{Name: "C"}, "c3")
	s.Require().NoError(err)

	_, err = s.registry.JoinRoom(room.ID, model.PlayerData{Name: "D"}, "c4")
	s.ErrorIs(err, model.ErrRoomFull)

	current, _ := s.registry.Lookup(room.ID)
	s.Len(current.Players, 3)
}

func (s *RegistrySuite) TestJoinRoomRejectedWhileGameRunning() {
	room := s.createRoom()
	room.GameState = &model.GameState{CurrentRound: 1, RoomState: model.RoomStateDrawing, CurrentDrawerID: room.HostID}
	s.Require().NoError(s.registry.Store(room))

	_, err := s.registry.JoinRoom(room.ID, model.PlayerData{Name: "Kai"}, "conn-2")
	s.ErrorIs(err, model.ErrGameAlreadyInProgress)
}

func (s *RegistrySuite) TestJoinRoomAllowedWithWaitingGameState() {
	room := s.createRoom()
	room.GameState = &model.GameState{CurrentRound: 1, RoomState: model.RoomStateWaiting}
	s.Require().NoError(s.registry.Store(room))

	_, err := s.registry.JoinRoom(room.ID, model.PlayerData{Name: "Kai"}, "conn-2")
	s.NoError(err)
}

// ChangeSettings tests

func (s *RegistrySuite) TestChangeSettingsMergesPatch() {
	room := s.createRoom()
	rounds := 5

	updated, err := s.registry.ChangeSettings(room.ID, model.SettingsPatch{Rounds: &rounds})
	s.Require().NoError(err)
	s.Equal(model.Settings{MaxPlayers: 3, DrawTime: 60, Rounds: 5}, updated.Settings)

	saved, ok := s.persisted(room.ID)
	s.Require().True(ok)
	s.Equal(5, saved.Settings.Rounds)
}

func (s *RegistrySuite) TestChangeSettingsRejectsInvalid() {
	room := s.createRoom()
	zero := 0

	_, err := s.registry.ChangeSettings(room.ID, model.SettingsPatch{DrawTime: &zero})
	s.ErrorIs(err, model.ErrInvalidSettings)

	current, _ := s.registry.Lookup(room.ID)
	s.Equal(60, current.Settings.DrawTime)
}

func (s *RegistrySuite) TestChangeSettingsRejectsCapBelowPlayerCount() {
	room := s.createRoom()
	_, _ = s.registry.JoinRoom(room.ID, model.PlayerData{Name: "B"}, "c2")
	_, _ = s.registry.JoinRoom(room.ID, model.PlayerData{Name: "C"}, "c3")
	two := 2

	_, err := s.registry.ChangeSettings(room.ID, model.SettingsPatch{MaxPlayers: &two})
	s.ErrorIs(err, model.ErrInvalidSettings)
}

func (s *RegistrySuite) TestChangeSettingsRoomNotFound() {
	_, err := s.registry.ChangeSettings("missing", model.SettingsPatch{})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Store / Lookup / Delete tests

func (s *RegistrySuite) TestLookupReturnsCopy() {
	room := s.createRoom()

	view, err := s.registry.Lookup(room.ID)
	s.Require().NoError(err)
	view.Players[0].Name = "mutated"

	again, _ := s.registry.Lookup(room.ID)
	s.Equal("Hana", again.Players[0].Name)
}

func (s *RegistrySuite) TestStoreDoesNotResurrectDeletedRoom() {
	room := s.createRoom()
	s.True(s.registry.Delete(room.ID))

	s.ErrorIs(s.registry.Store(room), model.ErrRoomNotFound)
	_, err := s.registry.Lookup(room.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestDeleteClearsIndexesAndSnapshot() {
	room := s.createRoom()
	_, _ = s.registry.JoinRoom(room.ID, model.PlayerData{Name: "B"}, "c2")

	s.True(s.registry.Delete(room.ID))
	s.False(s.registry.Delete(room.ID))

	_, ok := s.registry.RoomByHostConn("conn-host")
	s.False(ok)
	_, _, ok = s.registry.MemberByConn("c2")
	s.False(ok)
	_, ok = s.persisted(room.ID)
	s.False(ok)
}

func (s *RegistrySuite) TestStoreReindexesRemovedPlayer() {
	room := s.createRoom()
	joined, _ := s.registry.JoinRoom(room.ID, model.PlayerData{Name: "B"}, "c2")
	joined.Players = joined.Players[:1]

	s.Require().NoError(s.registry.Store(joined))

	_, _, ok := s.registry.MemberByConn("c2")
	s.False(ok)
	_, _, ok = s.registry.MemberByConn("conn-host")
	s.True(ok)
}

func (s *RegistrySuite) TestRoomByHostConn() {
	room := s.createRoom()

	found, ok := s.registry.RoomByHostConn("conn-host")
	s.Require().True(ok)
	s.Equal(room.ID, found.ID)

	_, ok = s.registry.RoomByHostConn("other")
	s.False(ok)
}

func (s *RegistrySuite) TestRebindMovesConnection() {
	room := s.createRoom()

	rebound, err := s.registry.Rebind(room.ID, room.HostID, "conn-new")
	s.Require().NoError(err)
	s.Equal(model.ConnID("conn-new"), rebound.ConnID)
	s.Equal(model.ConnID("conn-new"), rebound.Players[0].ConnID)

	_, _, ok := s.registry.MemberByConn("conn-host")
	s.False(ok)
	_, ok = s.registry.RoomByHostConn("conn-new")
	s.True(ok)
}

func (s *RegistrySuite) TestRebindUnknownPlayer() {
	room := s.createRoom()
	_, err := s.registry.Rebind(room.ID, "ghost", "conn-new")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *RegistrySuite) TestListIsOrdered() {
	s.random.QueueUUID("b-room", "h1", "a-room", "h2")
	_, err := s.registry.CreateRoom(model.PlayerData{Name: "A"}, "c1", s.settings())
	s.Require().NoError(err)
	_, err = s.registry.CreateRoom(model.PlayerData{Name: "B"}, "c2", s.settings())
	s.Require().NoError(err)

	rooms := s.registry.List()
	s.Require().Len(rooms, 2)
	s.Equal(model.RoomID("a-room"), rooms[0].ID)
	s.Equal(model.RoomID("b-room"), rooms[1].ID)
}

// Hydrate tests

func (s *RegistrySuite) TestHydrateRestoresRooms() {
	room := s.createRoom()
	_, _ = s.registry.JoinRoom(room.ID, model.PlayerData{Name: "B"}, "c2")
	s.Require().NoError(s.writer.Flush(s.ctx))

	fresh := NewRegistry(nil, s.random, testutil.NopLogger())
	loaded, err := fresh.Hydrate(s.ctx, s.store)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Len(loaded[0].Players, 2)

	roomID, _, ok := fresh.MemberByConn("c2")
	s.True(ok)
	s.Equal(room.ID, roomID)
}

func (s *RegistrySuite) TestHydrateSkipsMalformedEntries() {
	room := s.createRoom()
	s.Require().NoError(s.writer.Flush(s.ctx))
	s.Require().NoError(s.store.SaveRoom(s.ctx, "garbage", []byte("{not json")))
	s.Require().NoError(s.store.SaveRoom(s.ctx, "mismatch", []byte(`{"id":"other","hostId":"h","players":[{"id":"h"}]}`)))
	s.Require().NoError(s.store.SaveRoom(s.ctx, "empty", []byte(`{"id":"empty","hostId":"h","players":[]}`)))

	fresh := NewRegistry(nil, s.random, testutil.NopLogger())
	loaded, err := fresh.Hydrate(s.ctx, s.store)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Equal(room.ID, loaded[0].ID)
}

func (s *RegistrySuite) TestHydrateFromRedis() {
	mr := miniredis.RunT(s.T())
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := redisstore.NewWithClient(client, redisstore.DefaultConfig())
	defer store.Close()

	writer := storage.NewAsyncWriter(store, 0, testutil.NopLogger())
	registry := NewRegistry(writer, s.random, testutil.NopLogger())
	s.random.QueueUUID("room-r", "host-r")
	_, err := registry.CreateRoom(model.PlayerData{Name: "Hana"}, "c1", s.settings())
	s.Require().NoError(err)
	writer.Close()

	s.True(mr.Exists("room:room-r"))

	fresh := NewRegistry(nil, s.random, testutil.NopLogger())
	loaded, err := fresh.Hydrate(s.ctx, store)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Equal(model.PlayerID("host-r"), loaded[0].HostID)
}
