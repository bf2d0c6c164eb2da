package battle

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/logx"
	"dojo/internal/pkg/randx"
)

// Store owns every live Room, keyed by room code.
type Store struct {
	// rooms stores all Room instances, keyed by code.
	rooms map[string]*Room

	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// newCode produces candidate room codes.
	newCode func() (string, error)

	now func() time.Time

	logger zerolog.Logger
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithCodeGenerator replaces the random room code generator.
func WithCodeGenerator(gen func() (string, error)) StoreOption {
	return func(s *Store) { s.newCode = gen }
}

// WithClock replaces time.Now for rooms created by the store.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore constructs an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rooms:   make(map[string]*Room),
		newCode: randx.RoomCode,
		now:     time.Now,
		logger:  logx.Component("RoomStore"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create inserts a waiting room hosted by host under a fresh unique code.
// Colliding codes are regenerated until one is free.
func (s *Store) Create(host Identity, sessionID string, settings Settings) (*Room, *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		candidate, err := s.newCode()
		if err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}

		if _, taken := s.rooms[candidate]; !taken {
			code = candidate
			break
		}

		s.logger.Debug().Str("room_code", candidate).Msg("Room code collision, regenerating.")
	}

	room := newRoom(code, host, sessionID, settings, s.now)
	s.rooms[code] = room

	s.logger.Info().
		Str("room_code", code).
		Str("host_id", host.UserID).
		Int("duration", room.Duration).
		Bool("hardcore", room.IsHardcore).
		Msg("Room created.")

	return room, nil
}

// Get returns the room stored under code, or nil. Callers normalize the code.
func (s *Store) Get(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rooms[code]
}

// Delete removes the room stored under code and reports whether it existed.
func (s *Store) Delete(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[code]; !ok {
		return false
	}

	delete(s.rooms, code)
	s.logger.Info().Str("room_code", code).Msg("Room removed.")
	return true
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms)
}

// Rooms returns the live rooms at the time of the call, in no particular order.
func (s *Store) Rooms() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}
