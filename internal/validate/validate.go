// Package validate holds the client-side input rules. A violation is
// reported synchronously as *Error before any request is issued; these
// never reach the server.
package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxExerciseName = 20
	MaxDiaryLen     = 255
	MaxChatLen      = 500
	MinPasswordLen  = 4
	MaxPasswordLen  = 16
	MaxTeamName     = 16
	MaxTeamDesc     = 255
	MaxNickname     = 16
)

// Error describes a rejected input. It satisfies the error interface so
// callers can branch with errors.As without importing a second type.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func tooLong(field string, max int) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
}

func empty(field string) *Error {
	return &Error{Field: field, Reason: "must not be empty"}
}

// ExerciseName checks the name used when adding an exercise.
func ExerciseName(name string) error {
	if strings.TrimSpace(name) == "" {
		return empty("exercise name")
	}
	if utf8.RuneCountInString(name) > MaxExerciseName {
		return tooLong("exercise name", MaxExerciseName)
	}
	return nil
}

// DiaryContent checks a diary entry body.
func DiaryContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return empty("diary")
	}
	if utf8.RuneCountInString(content) > MaxDiaryLen {
		return tooLong("diary", MaxDiaryLen)
	}
	return nil
}

// ChatBody checks an outgoing chat message before publish.
func ChatBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return empty("message")
	}
	if utf8.RuneCountInString(body) > MaxChatLen {
		return tooLong("message", MaxChatLen)
	}
	return nil
}

// TeamPassword checks an optional group password. Empty means no password.
func TeamPassword(password string) error {
	if password == "" {
		return nil
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return &Error{
			Field:  "password",
			Reason: fmt.Sprintf("must be between %d and %d characters", MinPasswordLen, MaxPasswordLen),
		}
	}
	return nil
}

// TeamName checks a group name on creation.
func TeamName(name string) error {
	if strings.TrimSpace(name) == "" {
		return empty("team name")
	}
	if utf8.RuneCountInString(name) > MaxTeamName {
		return tooLong("team name", MaxTeamName)
	}
	return nil
}

// Nickname checks a display name on update. Letters, digits, dot, dash
// and underscore; whitespace and markup are rejected.
func Nickname(name string) error {
	if name == "" {
		return empty("nickname")
	}
	if utf8.RuneCountInString(name) > MaxNickname {
		return tooLong("nickname", MaxNickname)
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			continue
		}
		return &Error{Field: "nickname", Reason: "contains invalid characters"}
	}
	return nil
}

// TeamDescription checks a group description on creation.
func TeamDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxTeamDesc {
		return tooLong("team description", MaxTeamDesc)
	}
	return nil
}
