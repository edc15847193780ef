package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestExerciseName(t *testing.T) {
	if err := ExerciseName("스쿼트"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ExerciseName(strings.Repeat("a", 20)); err != nil {
		t.Errorf("20 chars should pass: %v", err)
	}
	if err := ExerciseName(strings.Repeat("a", 21)); err == nil {
		t.Error("21 chars should fail")
	}
	if err := ExerciseName("   "); err == nil {
		t.Error("blank name should fail")
	}

	var ve *Error
	if err := ExerciseName(""); !errors.As(err, &ve) {
		t.Errorf("expected *Error, got %T", err)
	}
}

func TestExerciseName_RunesNotBytes(t *testing.T) {
	// 20 Hangul runes exceed 20 bytes but are still a valid name.
	if err := ExerciseName(strings.Repeat("운", 20)); err != nil {
		t.Errorf("20 runes rejected: %v", err)
	}
	if err := ExerciseName(strings.Repeat("운", 21)); err == nil {
		t.Error("21 runes should fail")
	}
}

func TestDiaryContent(t *testing.T) {
	if err := DiaryContent(strings.Repeat("x", 255)); err != nil {
		t.Errorf("255 chars should pass: %v", err)
	}
	if err := DiaryContent(strings.Repeat("x", 256)); err == nil {
		t.Error("256 chars should fail")
	}
	if err := DiaryContent(""); err == nil {
		t.Error("empty diary should fail")
	}
}

func TestChatBody(t *testing.T) {
	if err := ChatBody(strings.Repeat("x", 500)); err != nil {
		t.Errorf("500 chars should pass: %v", err)
	}
	if err := ChatBody(strings.Repeat("x", 501)); err == nil {
		t.Error("501 chars should fail")
	}
	if err := ChatBody(" \t "); err == nil {
		t.Error("whitespace-only message should fail")
	}
}

func TestTeamPassword(t *testing.T) {
	if err := TeamPassword(""); err != nil {
		t.Errorf("no password is allowed: %v", err)
	}
	if err := TeamPassword("abcd"); err != nil {
		t.Errorf("4 chars should pass: %v", err)
	}
	if err := TeamPassword("abc"); err == nil {
		t.Error("3 chars should fail")
	}
	if err := TeamPassword(strings.Repeat("p", 17)); err == nil {
		t.Error("17 chars should fail")
	}
}

func TestTeamNameAndDescription(t *testing.T) {
	if err := TeamName(strings.Repeat("t", 17)); err == nil {
		t.Error("17 char team name should fail")
	}
	if err := TeamName("매일 운동 도전"); err != nil {
		t.Errorf("valid team name rejected: %v", err)
	}
	if err := TeamDescription(strings.Repeat("d", 256)); err == nil {
		t.Error("256 char description should fail")
	}
	if err := TeamDescription(""); err != nil {
		t.Errorf("empty description is allowed: %v", err)
	}
}

func TestNickname(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Alphanumeric", "runner123", false},
		{"Dot dash underscore", "run.ner-1_", false},
		{"Hangul letters", "달리기왕", false},
		{"Space", "run ner", true},
		{"Markup", "<script>", true},
		{"Empty", "", true},
		{"Too long", strings.Repeat("n", 17), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Nickname(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("Nickname(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
