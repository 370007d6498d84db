package model

import (
	"strconv"
	"time"
)

// RecordID is an opaque, totally ordered record identifier.
// IDs are minted outside the coordinator (see package idgen).
type RecordID int64

// String returns the decimal form of the identifier
func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseRecordID parses a decimal record identifier
func ParseRecordID(s string) (RecordID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return RecordID(v), nil
}

// Record is a chat message replicated across the cluster. Immutable once created.
type Record struct {
	ID        RecordID  `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord creates a record stamped with the current time
func NewRecord(id RecordID, channelID, authorID, content string) Record {
	return Record{
		ID:        id,
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// SameVersion reports whether two records carry the same id, content and timestamp
func (r Record) SameVersion(other Record) bool {
	return r.ID == other.ID &&
		r.ChannelID == other.ChannelID &&
		r.AuthorID == other.AuthorID &&
		r.Content == other.Content &&
		r.Timestamp.Equal(other.Timestamp)
}

// NewerThan orders records by timestamp, breaking ties by id
func (r Record) NewerThan(other Record) bool {
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.After(other.Timestamp)
	}
	return r.ID > other.ID
}
