package api

// Inbound payloads, one statically-defined shape per event name.

type JoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type RequestSongPayload struct {
	RoomCode  string `json:"roomCode"`
	ID        string `json:"videoId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

type RoomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type SeekPayload struct {
	RoomCode  string  `json:"roomCode"`
	Timestamp float64 `json:"timestamp"`
}

type SongEventPayload struct {
	RoomCode string `json:"roomCode"`
	SongID   string `json:"songId"`
}

type RemoveFromQueuePayload struct {
	RoomCode string `json:"roomCode"`
	QueueID  string `json:"queueId"`
}
