package storage

import (
	"encoding"
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// DBDay is a cached day snapshot used to warm the timer screen before the
// first server fetch completes. The server copy always wins on refetch.
type DBDay struct {
	DateKey     string       `msgpack:"dateKey"`
	TotalTimeMs int64        `msgpack:"totalTime"`
	Exercises   []DBExercise `msgpack:"exercises"`
	FetchedAt   int64        `msgpack:"fetchedAt"`
}

type DBExercise struct {
	ID            int64  `msgpack:"id"`
	Name          string `msgpack:"name"`
	AccumulatedMs int64  `msgpack:"accumulatedMs"`
	IsActive      bool   `msgpack:"isActive"`
	StartTimeMs   int64  `msgpack:"startTimeMs"` // unix ms, 0 when inactive
}

func (d *DBDay) Key() []byte {
	return []byte(d.DateKey)
}

func (d *DBDay) MarshalBinary() (data []byte, err error) {
	type alias DBDay
	return msgpack.Marshal((*alias)(d))
}

func (d *DBDay) UnmarshalBinary(data []byte) error {
	type alias DBDay
	return msgpack.Unmarshal(data, (*alias)(d))
}

// DBMessage is a cached chat message. Keys order by send instant with the
// message ID as a tiebreaker so redeliveries overwrite instead of duplicating.
type DBMessage struct {
	ID         string `msgpack:"id"`
	RoomID     string `msgpack:"roomId"`
	AuthorID   int64  `msgpack:"authorId"`
	AuthorName string `msgpack:"authorName"`
	Body       string `msgpack:"body"`
	SentAtMs   int64  `msgpack:"sentAtMs"`
}

func (m *DBMessage) Key() []byte {
	key := make([]byte, 8, 8+len(m.ID))
	binary.BigEndian.PutUint64(key, uint64(m.SentAtMs))
	return append(key, m.ID...)
}

func (m *DBMessage) MarshalBinary() (data []byte, err error) {
	type alias DBMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *DBMessage) UnmarshalBinary(data []byte) error {
	type alias DBMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

type DBProfile struct {
	MemberID     int64  `msgpack:"memberId"`
	Nickname     string `msgpack:"nickname"`
	Email        string `msgpack:"email"`
	Attendance   int    `msgpack:"attendance"`
	WeeklyTotal  int64  `msgpack:"weeklyTotal"`
	MonthlyTotal int64  `msgpack:"monthlyTotal"`
}

func (p *DBProfile) Key() []byte {
	return []byte("me")
}

func (p *DBProfile) MarshalBinary() (data []byte, err error) {
	type alias DBProfile
	return msgpack.Marshal((*alias)(p))
}

func (p *DBProfile) UnmarshalBinary(data []byte) error {
	type alias DBProfile
	return msgpack.Unmarshal(data, (*alias)(p))
}
