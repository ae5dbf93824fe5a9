package rooms

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxLoadFailures is how many consecutive load failures a room tolerates
// before playback is aborted instead of skipping onward.
const MaxLoadFailures = 5

// Member is a connected listener. Identity is the connection id, which
// does not survive a new transport session.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QueueEntry is a single request to play a source. QueueID is minted at
// enqueue time and never reused, so the same source can sit in the queue
// more than once.
type QueueEntry struct {
	SourceID    string `json:"id"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	AudioURL    string `json:"audioUrl"`
	QueueID     string `json:"queueId"`
	RequestedBy string `json:"addedBy"`
}

// NowPlaying is the promoted queue entry plus the playback clock anchors.
// Elapsed position is always derived from the anchors on demand; it is
// never stored as a running value, so there is nothing to drift.
type NowPlaying struct {
	QueueEntry
	StartedAt time.Time  `json:"startedAt"`
	PausedAt  *time.Time `json:"pausedAt"`
	IsPlaying bool       `json:"isPlaying"`
}

// Snapshot is the full state a joining or reconnecting client needs to
// render the room without waiting for further events.
type Snapshot struct {
	RoomCode    string       `json:"roomCode"`
	Users       []Member     `json:"users"`
	Queue       []QueueEntry `json:"queue"`
	CurrentSong *NowPlaying  `json:"currentSong"`
	IsPlaying   bool         `json:"isPlaying"`
	Timestamp   float64      `json:"timestamp"`
}

// RemoveOutcome tells the caller which branch a queue removal took.
type RemoveOutcome int

const (
	RemoveNotFound RemoveOutcome = iota
	RemoveQueued
	RemoveCurrent
)

// Room is one independent unit of shared playback state. State fields are
// guarded by mu; ops serializes whole protocol operations so that a room
// mutation and the broadcasts derived from it never interleave with
// another operation on the same room. Rooms are fully independent, no
// cross-room locking exists anywhere.
type Room struct {
	ops sync.Mutex
	mu  sync.Mutex

	code         string
	members      []Member
	queue        []QueueEntry
	playing      *NowPlaying
	lastActivity time.Time
	emptySince   *time.Time

	failures   int
	advanceGen uint64
	retryTimer *time.Timer

	now func() time.Time
}

func newRoom(code string) *Room {
	now := time.Now()
	return &Room{
		code:         code,
		members:      make([]Member, 0),
		queue:        make([]QueueEntry, 0),
		lastActivity: now,
		// A room starts empty, so the idle countdown runs from birth
		// until somebody joins. Rooms created over REST and never
		// joined get evicted instead of leaking.
		emptySince: &now,
		now:        time.Now,
	}
}

func (r *Room) Code() string { return r.code }

// Transact runs fn as a single room operation. Operations on the same
// room never interleave, so broadcasts computed inside fn go out in the
// exact order the operations were applied.
func (r *Room) Transact(fn func()) {
	r.ops.Lock()
	defer r.ops.Unlock()
	fn()
}

// Join upserts a member by connection id. Rejoining with a known id is a
// reconnection and replaces the stored member.
func (r *Room) Join(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.members {
		if r.members[i].ID == m.ID {
			r.members[i] = m
			r.emptySince = nil
			r.lastActivity = r.now()
			return
		}
	}

	r.members = append(r.members, m)
	r.emptySince = nil
	r.lastActivity = r.now()
}

// Leave removes the member with the given connection id. When the last
// member leaves, the room starts its idle countdown.
func (r *Room) Leave(id string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.members {
		if r.members[i].ID != id {
			continue
		}

		m := r.members[i]
		r.members = append(r.members[:i], r.members[i+1:]...)

		if len(r.members) == 0 {
			now := r.now()
			r.emptySince = &now
		}

		return m, true
	}

	return Member{}, false
}

func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Enqueue appends the entry to the tail with a freshly minted queue id
// and returns the stored copy. It never touches the current song.
func (r *Room) Enqueue(e QueueEntry) QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.QueueID = uuid.NewString()
	r.queue = append(r.queue, e)
	r.lastActivity = r.now()
	return e
}

func (r *Room) Queue() []QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]QueueEntry, len(r.queue))
	copy(out, r.queue)
	return out
}

// RemoveFromQueue removes the entry with the given queue id. Removing the
// entry that is currently playing is defined as a skip and delegates to
// PlayNext; in that case the returned NowPlaying is the post-advance
// state (nil means playback stopped). An unknown id is a no-op.
func (r *Room) RemoveFromQueue(queueID string) (RemoveOutcome, *NowPlaying) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.playing != nil && r.playing.QueueID == queueID {
		return RemoveCurrent, r.playNextLocked()
	}

	for i := range r.queue {
		if r.queue[i].QueueID == queueID {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			r.lastActivity = r.now()
			return RemoveQueued, nil
		}
	}

	return RemoveNotFound, nil
}

// PlayNext is the single authority for queue advancement. Every trigger,
// manual skip, natural end, load-error skip and remove-current, funnels
// through here so the queue head can never be popped twice for one
// transition. Returns the new current song, or nil when the queue was
// empty and playback stopped.
func (r *Room) PlayNext() *NowPlaying {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playNextLocked()
}

func (r *Room) playNextLocked() *NowPlaying {
	// Any pending deferred advance is now superseded.
	r.advanceGen++
	r.stopRetryTimerLocked()

	if len(r.queue) == 0 {
		r.playing = nil
		return nil
	}

	next := r.queue[0]
	r.queue = r.queue[1:]

	now := r.now()
	r.playing = &NowPlaying{
		QueueEntry: next,
		StartedAt:  now,
		IsPlaying:  true,
	}
	r.lastActivity = now

	np := *r.playing
	return &np
}

// SetPlaying resumes or pauses the current song. Resuming after a pause
// shifts the start anchor forward by the pause duration so the derived
// position carries straight on; the anchors are shifted, elapsed time is
// never rewritten. Pausing twice does not move the pause anchor.
func (r *Room) SetPlaying(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActivity = r.now()
	if r.playing == nil {
		return
	}

	if playing {
		now := r.now()
		if r.playing.PausedAt != nil {
			r.playing.StartedAt = r.playing.StartedAt.Add(now.Sub(*r.playing.PausedAt))
			r.playing.PausedAt = nil
		} else if r.playing.StartedAt.IsZero() {
			r.playing.StartedAt = now
		}
		r.playing.IsPlaying = true
		// The source evidently loaded, so the failure streak is over.
		r.failures = 0
		return
	}

	if r.playing.PausedAt == nil {
		now := r.now()
		r.playing.PausedAt = &now
	}
	r.playing.IsPlaying = false
}

// Seek re-anchors the clock at the requested position. It works the same
// whether the room is playing or paused: a paused room stays paused but
// reports the new position.
func (r *Room) Seek(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.playing == nil {
		return
	}

	now := r.now()
	r.playing.StartedAt = now.Add(-time.Duration(seconds * float64(time.Second)))
	if r.playing.PausedAt != nil {
		r.playing.PausedAt = &now
	}
	r.lastActivity = now
}

// Idle reports whether nothing is promoted and nothing is playing, the
// condition under which a new request auto-starts.
func (r *Room) Idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing == nil
}

func (r *Room) IsPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing != nil && r.playing.IsPlaying
}

// CurrentIs reports whether the given source id still matches the current
// song. End-of-song and load-error reports are only honored when it does,
// which keeps a stale or duplicate notification from advancing the queue
// twice.
func (r *Room) CurrentIs(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing != nil && r.playing.SourceID == sourceID
}

func (r *Room) elapsedLocked() float64 {
	p := r.playing
	if p == nil {
		return 0
	}

	var d time.Duration
	if p.IsPlaying {
		d = r.now().Sub(p.StartedAt)
	} else if p.PausedAt != nil {
		d = p.PausedAt.Sub(p.StartedAt)
	}

	if d < 0 {
		d = 0
	}
	return d.Seconds()
}

// SyncSnapshot captures the full room state plus the derived position.
func (r *Room) SyncSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		RoomCode:  r.code,
		Users:     make([]Member, len(r.members)),
		Queue:     make([]QueueEntry, len(r.queue)),
		IsPlaying: r.playing != nil && r.playing.IsPlaying,
		Timestamp: r.elapsedLocked(),
	}
	copy(snap.Users, r.members)
	copy(snap.Queue, r.queue)

	if r.playing != nil {
		np := *r.playing
		snap.CurrentSong = &np
	}

	return snap
}

// RecordLoadFailure bumps the consecutive failure counter for the current
// song and returns the new count.
func (r *Room) RecordLoadFailure() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures++
	return r.failures
}

func (r *Room) ResetFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
}

// StopPlayback aborts the current song without advancing: the queue is
// likely all broken, so skipping onward would just loop through it. The
// failure counter restarts from zero.
func (r *Room) StopPlayback() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advanceGen++
	r.stopRetryTimerLocked()
	r.playing = nil
	r.failures = 0
}

// ScheduleAdvance arms a deferred PlayNext, used to back off briefly
// after a load error. The timer is keyed to the advancement generation
// captured now: if any other transition happens first (skip, natural end,
// removal, room deletion) the fire is stale and does nothing. fn receives
// the post-advance state and runs as its own room operation.
func (r *Room) ScheduleAdvance(delay time.Duration, fn func(next *NowPlaying)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gen := r.advanceGen
	r.stopRetryTimerLocked()

	r.retryTimer = time.AfterFunc(delay, func() {
		r.ops.Lock()
		defer r.ops.Unlock()

		r.mu.Lock()
		if r.advanceGen != gen {
			r.mu.Unlock()
			return
		}
		next := r.playNextLocked()
		r.mu.Unlock()

		if fn != nil {
			fn(next)
		}
	})
}

func (r *Room) stopRetryTimerLocked() {
	if r.retryTimer != nil {
		r.retryTimer.Stop()
		r.retryTimer = nil
	}
}

// cancelPending invalidates any scheduled advance; called when the room
// is deleted so a stale skip cannot fire into a dead room.
func (r *Room) cancelPending() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advanceGen++
	r.stopRetryTimerLocked()
}

func (r *Room) idleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emptySince == nil {
		return time.Time{}, false
	}
	return *r.emptySince, true
}
