package models

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
)

// Exercise is a single entry in a workout day's list. The server is
// authoritative: StartTime is stamped on start confirmation and cleared on
// stop, when the elapsed span is folded into AccumulatedMs.
type Exercise struct {
	ID            int64      `json:"exerciseId"`
	Name          string     `json:"exerciseName"`
	AccumulatedMs int64      `json:"exerciseTime"`
	IsActive      bool       `json:"isActive"`
	StartTime     *time.Time `json:"startTime"`
}

// ElapsedMs returns the displayed elapsed time for the exercise at the
// given instant. While active it is derived from StartTime on every call,
// never incremented, so the same instant always yields the same answer.
func (e Exercise) ElapsedMs(now time.Time) int64 {
	if !e.IsActive || e.StartTime == nil {
		return e.AccumulatedMs
	}
	running := now.Sub(*e.StartTime).Milliseconds()
	if running < 0 {
		running = 0
	}
	return e.AccumulatedMs + running
}

// Diary is one diary entry within a workout day.
type Diary struct {
	ID        int64     `json:"diaryId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DiaryPage is one slice of a day's diary feed.
type DiaryPage struct {
	Content    []Diary `json:"content"`
	PageNumber int     `json:"pageNumber"`
	IsLast     bool    `json:"last"`
}

// DayAggregate is the day-scoped response backing the main screen.
// TotalTimeMs covers only time already folded in server side; time still
// running on an active exercise is added client side on each tick.
type DayAggregate struct {
	TotalTimeMs int64      `json:"totalTime"`
	Exercises   []Exercise `json:"exerciseList"`
	Diaries     DiaryPage  `json:"diaries"`
}

// ChatMessage is a single room message. ID may collide across reconnect
// redeliveries, which the chat log dedupes on merge.
type ChatMessage struct {
	ID         string    `json:"chatId"`
	RoomID     string    `json:"roomId,omitempty"`
	AuthorID   int64     `json:"memberId"`
	AuthorName string    `json:"nickName"`
	Body       string    `json:"message"`
	SentAt     time.Time `json:"chattedAt"`
}

// UnmarshalJSON accepts chatId as either a JSON string or a number. The
// server numbers persisted messages while optimistic local copies carry
// UUIDs; both dedupe by the same string ID.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias ChatMessage
	aux := struct {
		ID json.RawMessage `json:"chatId"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id := string(aux.ID)
	switch {
	case id == "" || id == "null":
		m.ID = ""
	case len(id) >= 2 && id[0] == '"':
		if err := json.Unmarshal(aux.ID, &m.ID); err != nil {
			return err
		}
	default:
		m.ID = id
	}
	return nil
}

// ChatPage is one slice of a room's history, ascending by SentAt.
type ChatPage struct {
	Items      []ChatMessage `json:"content"`
	PageIndex  int           `json:"pageNumber"`
	IsLastPage bool          `json:"last"`
}

// Team is a workout group visible in search results.
type Team struct {
	ID                  int64  `json:"id"`
	Name                string `json:"teamName"`
	LeaderNickname      string `json:"leaderNickname"`
	Description         string `json:"teamDescription"`
	MaxParticipants     int    `json:"maxParticipants"`
	CurrentParticipants int    `json:"currentParticipants"`
	HasPassword         bool   `json:"hasPassword"`
	Tags                []Tag  `json:"tagList"`
}

// TeamPage is one slice of the team search results.
type TeamPage struct {
	Content    []Team `json:"content"`
	PageNumber int    `json:"pageNumber"`
	IsLast     bool   `json:"last"`
}

type Tag struct {
	ID        int64  `json:"tagId"`
	Name      string `json:"teamTagName"`
	Attribute string `json:"teamTagAttribute"`
}

// Ranker is a single row in a group's daily ranking.
type Ranker struct {
	Name            string `json:"name"`
	Ranking         int    `json:"ranking"`
	TotalExerciseMs int64  `json:"totalExerciseTime"`
}

// Ranking is the day-keyed ranking snapshot for a group, including the
// viewer's own position.
type Ranking struct {
	MyRanking    int      `json:"myRanking"`
	MyNickname   string   `json:"myNickname"`
	MyExerciseMs int64    `json:"myExerciseTime"`
	Rankers      []Ranker `json:"rankers"`
	IsLast       bool     `json:"last"`
}

// Profile is the member's own account summary.
type Profile struct {
	MemberID     int64  `json:"memberId"`
	Nickname     string `json:"nickname"`
	Email        string `json:"email"`
	Attendance   int    `json:"attendance"`
	WeeklyTotal  int64  `json:"weeklyTotal"`
	MonthlyTotal int64  `json:"monthlyTotal"`
}

// Product is a marketplace listing.
type Product struct {
	ID        int64        `json:"productId"`
	ImageURL  string       `json:"imageUrl"`
	Name      string       `json:"name"`
	Price     int64        `json:"price"`
	StoreName string       `json:"storeName"`
	Tags      []ProductTag `json:"tag"`
}

type ProductTag struct {
	ID   int64  `json:"tagId"`
	Name string `json:"productTagName"`
}
