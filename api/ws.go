package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TuneSync/tune-sync-backend/internal/logger"
	"github.com/TuneSync/tune-sync-backend/internal/resolver"
	"github.com/TuneSync/tune-sync-backend/internal/rooms"
	"github.com/TuneSync/tune-sync-backend/internal/websockets"
	"github.com/gin-gonic/gin"
)

const (
	// Back-off before skipping past a song that failed to load, so a
	// broken source cannot trigger a tight skip loop.
	loadErrorDelay = time.Second

	searchTimeout = 20 * time.Second
)

// Conn is the transport surface the router drives: a websocket client in
// production, a stub in tests.
type Conn interface {
	ID() string
	On(event string, handler func(data json.RawMessage))
	OnClose(fn func())
	Emit(event string, data any)
}

// Router maps inbound events onto room operations and fans the derived
// broadcasts out to room members. Each mutation and its broadcasts run
// as one room transaction, so per-room broadcast order always matches
// the order the operations were applied.
type Router struct {
	store    *rooms.Store
	resolver resolver.Resolver
	lookup   func(id string) (Conn, bool)

	errorDelay time.Duration
}

func NewRouter(store *rooms.Store, res resolver.Resolver) *Router {
	return &Router{
		store:    store,
		resolver: res,
		lookup: func(id string) (Conn, bool) {
			c, ok := websockets.Lookup(id)
			return c, ok
		},
		errorDelay: loadErrorDelay,
	}
}

// HandleSocket upgrades the connection and wires the protocol handlers.
func (rt *Router) HandleSocket(c *gin.Context) {
	client := websockets.Serve(c.Writer, c.Request)
	if client == nil {
		return
	}

	rt.bind(client)
}

func (rt *Router) broadcast(room *rooms.Room, event string, data any) {
	for _, m := range room.Members() {
		if c, ok := rt.lookup(m.ID); ok {
			c.Emit(event, data)
		}
	}
}

// playOrStop announces the outcome of a queue advancement.
func (rt *Router) playOrStop(room *rooms.Room, next *rooms.NowPlaying) {
	if next != nil {
		rt.broadcast(room, "play_song", next)
	} else {
		rt.broadcast(room, "stop_player", nil)
	}
}

func (rt *Router) bind(client Conn) {
	client.On("join_room", func(data json.RawMessage) {
		var p JoinRoomPayload
		if err := json.Unmarshal(data, &p); err != nil || p.RoomCode == "" {
			client.Emit("song_error", "Room code is required")
			return
		}

		name := p.Username
		if name == "" {
			name = "Guest_" + shortID(client.ID())
		}

		room := rt.store.GetOrCreate(p.RoomCode)
		room.Transact(func() {
			room.Join(rooms.Member{ID: client.ID(), Name: name})
			rt.broadcast(room, "update_users", room.Members())

			// Only the joiner needs the snapshot; everyone else
			// already has correct state.
			client.Emit("sync_state", room.SyncSnapshot())
		})

		logger.Log.Info("user joined", "room", p.RoomCode, "user", name)
	})

	client.On("search_query", func(data json.RawMessage) {
		var query string
		if err := json.Unmarshal(data, &query); err != nil || query == "" {
			client.Emit("search_results", []resolver.SearchResult{})
			return
		}

		// Lookups can take seconds; never block the event path.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
			defer cancel()

			results, err := rt.resolver.Search(ctx, query)
			if err != nil {
				logger.Log.Warn("search failed", "query", query, "err", err)
				client.Emit("song_error", "Search failed. Try again.")
				client.Emit("search_results", []resolver.SearchResult{})
				return
			}

			if len(results) == 0 {
				client.Emit("search_results", results)
				client.Emit("song_error", "No results found")
				return
			}

			client.Emit("search_results", results)
		}()
	})

	client.On("request_song", func(data json.RawMessage) {
		var p RequestSongPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ID == "" {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			room.Enqueue(rooms.QueueEntry{
				SourceID:    p.ID,
				Title:       p.Title,
				Thumbnail:   p.Thumbnail,
				AudioURL:    "/stream/" + p.ID,
				RequestedBy: client.ID(),
			})
			rt.broadcast(room, "queue_updated", room.Queue())

			// Auto-start when nothing is promoted.
			if room.Idle() {
				if next := room.PlayNext(); next != nil {
					rt.broadcast(room, "play_song", next)
					rt.broadcast(room, "queue_updated", room.Queue())
				}
			}
		})
	})

	client.On("play_track", func(data json.RawMessage) {
		var p RoomCodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			room.SetPlaying(true)
			// Everyone, originator included: local UI is never
			// authoritative.
			rt.broadcast(room, "receive_play", nil)
		})
	})

	client.On("pause_track", func(data json.RawMessage) {
		var p RoomCodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			room.SetPlaying(false)
			rt.broadcast(room, "receive_pause", nil)
		})
	})

	client.On("seek_track", func(data json.RawMessage) {
		var p SeekPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			room.Seek(p.Timestamp)
			rt.broadcast(room, "receive_seek", p.Timestamp)
		})
	})

	client.On("skip_track", func(data json.RawMessage) {
		var p RoomCodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			rt.playOrStop(room, room.PlayNext())
			rt.broadcast(room, "queue_updated", room.Queue())
		})
	})

	client.On("song_ended", func(data json.RawMessage) {
		var p SongEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			// A stale or duplicate report must not advance twice.
			if !room.CurrentIs(p.SongID) {
				return
			}

			// The song reached its end, so it loaded fine.
			room.ResetFailures()

			next := room.PlayNext()
			rt.playOrStop(room, next)
			if next != nil {
				rt.broadcast(room, "queue_updated", room.Queue())
			}
		})
	})

	client.On("song_load_error", func(data json.RawMessage) {
		var p SongEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			if !room.CurrentIs(p.SongID) {
				return
			}

			count := room.RecordLoadFailure()
			logger.Log.Warn("song load error", "room", p.RoomCode, "song", p.SongID, "consecutive", count)

			if count >= rooms.MaxLoadFailures {
				// Everything we try is broken; stop rather than
				// skip-loop through the rest of the queue.
				room.StopPlayback()
				rt.broadcast(room, "song_error", "Playback stopped after repeated load failures.")
				rt.broadcast(room, "stop_player", nil)
				return
			}

			room.ScheduleAdvance(rt.errorDelay, func(next *rooms.NowPlaying) {
				rt.playOrStop(room, next)
				if next != nil {
					rt.broadcast(room, "queue_updated", room.Queue())
				}
			})
		})
	})

	client.On("remove_from_queue", func(data json.RawMessage) {
		var p RemoveFromQueuePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}

		room, ok := rt.store.Get(p.RoomCode)
		if !ok {
			return
		}

		room.Transact(func() {
			outcome, next := room.RemoveFromQueue(p.QueueID)
			switch outcome {
			case rooms.RemoveCurrent:
				// Removing the playing entry is a skip.
				rt.playOrStop(room, next)
				rt.broadcast(room, "queue_updated", room.Queue())
			case rooms.RemoveQueued:
				rt.broadcast(room, "queue_updated", room.Queue())
			case rooms.RemoveNotFound:
			}
		})
	})

	client.OnClose(func() {
		// Disconnects are transport-scoped, so scan for the room that
		// held this connection.
		for _, room := range rt.store.Snapshot() {
			var left bool
			room.Transact(func() {
				m, ok := room.Leave(client.ID())
				if !ok {
					return
				}

				left = true
				logger.Log.Info("user left", "room", room.Code(), "user", m.Name)
				rt.broadcast(room, "update_users", room.Members())
			})
			if left {
				break
			}
		}
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
