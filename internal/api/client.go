// Package api is the REST client for the workout backend. Every call
// attaches the bearer token from the TokenSource and maps failures onto the
// shared error taxonomy: 401 -> ErrUnauthorized, 409 -> ErrConflict,
// anything else unexpected -> *TransportError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"homefit/internal/models"
	"homefit/internal/validate"
)

const defaultTimeout = 20 * time.Second

// TokenSource yields the persisted bearer token. It is read on every
// request; a request racing logout simply sees an empty token and fails
// with ErrUnauthorized.
type TokenSource interface {
	Token() (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &TransportError{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Login exchanges an OAuth authorization code for a bearer token. It is the
// one call made without a stored token.
func (c *Client) Login(ctx context.Context, code string) (string, error) {
	q := url.Values{"code": {code}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/oauth/login?"+q.Encode(), nil)
	if err != nil {
		return "", &TransportError{Op: "login", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "login", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "login", Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "login", Err: err}
	}
	token := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if token == "" {
		return "", fmt.Errorf("login: %w", ErrUnauthorized)
	}
	return token, nil
}

// Main fetches one page of the day-scoped aggregate for the given day key.
func (c *Client) Main(ctx context.Context, dateKey string, page int) (models.DayAggregate, error) {
	var agg models.DayAggregate
	q := url.Values{
		"date": {dateKey},
		"page": {strconv.Itoa(page)},
	}
	err := c.do(ctx, "main", http.MethodGet, "/api", q, nil, &agg)
	return agg, err
}

// AddExercise creates a new exercise for today. The name is validated
// locally; a violation is returned before any request is issued.
func (c *Client) AddExercise(ctx context.Context, name string) error {
	if err := validate.ExerciseName(name); err != nil {
		return err
	}
	body := map[string]string{"exerciseName": name}
	return c.do(ctx, "add exercise", http.MethodPost, "/api/exercise", nil, body, nil)
}

type startResponse struct {
	StartTime *time.Time `json:"startTime"`
}

// StartExercise asks the server to start the exercise and returns the
// server-confirmed start instant, which is the only start time the session
// should trust.
func (c *Client) StartExercise(ctx context.Context, id int64) (time.Time, error) {
	var out startResponse
	path := fmt.Sprintf("/api/exercise/%d", id)
	if err := c.do(ctx, "start exercise", http.MethodPost, path, nil, struct{}{}, &out); err != nil {
		return time.Time{}, err
	}
	if out.StartTime == nil {
		// Older backend revisions return an empty body on start.
		return time.Now(), nil
	}
	return *out.StartTime, nil
}

// StopExercise folds the running span into the exercise's accumulated time
// server side.
func (c *Client) StopExercise(ctx context.Context, id int64) error {
	return c.do(ctx, "stop exercise", http.MethodPut, fmt.Sprintf("/api/exercise/%d", id), nil, struct{}{}, nil)
}

func (c *Client) DeleteExercise(ctx context.Context, id int64) error {
	return c.do(ctx, "delete exercise", http.MethodDelete, fmt.Sprintf("/api/exercise/%d", id), nil, nil, nil)
}

func (c *Client) CreateDiary(ctx context.Context, content string) error {
	if err := validate.DiaryContent(content); err != nil {
		return err
	}
	return c.do(ctx, "create diary", http.MethodPost, "/api/diary", nil, map[string]string{"content": content}, nil)
}

func (c *Client) DeleteDiary(ctx context.Context, id int64) error {
	return c.do(ctx, "delete diary", http.MethodDelete, fmt.Sprintf("/api/diary/%d", id), nil, nil, nil)
}

// ChatHistory fetches one page of a room's history. Page 0 is the newest;
// higher pages are older.
func (c *Client) ChatHistory(ctx context.Context, roomID string, page int) (models.ChatPage, error) {
	var out models.ChatPage
	q := url.Values{"page": {strconv.Itoa(page)}}
	err := c.do(ctx, "chat history", http.MethodGet, "/api/team/chatting/"+url.PathEscape(roomID), q, nil, &out)
	if err != nil {
		return models.ChatPage{}, err
	}
	out.PageIndex = page
	return out, nil
}

// TeamSearch carries the optional filters of the group search screen.
type TeamSearch struct {
	Page   int
	Size   int
	Sort   string
	Name   string
	TagIDs []int64
}

func (c *Client) Teams(ctx context.Context, s TeamSearch) (models.TeamPage, error) {
	if s.Size == 0 {
		s.Size = 16
	}
	q := url.Values{
		"page": {strconv.Itoa(s.Page)},
		"size": {strconv.Itoa(s.Size)},
	}
	if s.Name != "" {
		q.Set("teamName", s.Name)
	}
	if s.Sort != "" {
		q.Set("sortField", s.Sort)
	}
	if len(s.TagIDs) > 0 {
		ids := make([]string, len(s.TagIDs))
		for i, id := range s.TagIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		q.Set("tagIdList", strings.Join(ids, ","))
	}

	var out models.TeamPage
	err := c.do(ctx, "teams", http.MethodGet, "/api/team", q, nil, &out)
	return out, err
}

func (c *Client) JoinedTeams(ctx context.Context, page, size int) (models.TeamPage, error) {
	if size == 0 {
		size = 16
	}
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	var out models.TeamPage
	err := c.do(ctx, "joined teams", http.MethodGet, "/api/team/joined", q, nil, &out)
	return out, err
}

// NewTeam is the creation payload for a workout group.
type NewTeam struct {
	Name            string  `json:"teamName"`
	Description     string  `json:"teamDescription"`
	MaxParticipants int     `json:"maxParticipants"`
	Password        *string `json:"password"`
	TagIDs          []int64 `json:"tagIdList"`
}

func (c *Client) CreateTeam(ctx context.Context, t NewTeam) error {
	if err := validate.TeamName(t.Name); err != nil {
		return err
	}
	if err := validate.TeamDescription(t.Description); err != nil {
		return err
	}
	if t.Password != nil {
		if err := validate.TeamPassword(*t.Password); err != nil {
			return err
		}
	}
	return c.do(ctx, "create team", http.MethodPost, "/api/team", nil, t, nil)
}

func (c *Client) JoinTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, "join team", http.MethodPost, fmt.Sprintf("/api/team/join/%d", teamID), nil, struct{}{}, nil)
}

// CheckTeamPassword verifies a protected group's password before joining.
func (c *Client) CheckTeamPassword(ctx context.Context, teamID int64, password string) (bool, error) {
	body := map[string]string{"password": password}
	err := c.do(ctx, "check team password", http.MethodPost, fmt.Sprintf("/api/team/checking/%d", teamID), nil, body, nil)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Status == http.StatusForbidden {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) WithdrawTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, "withdraw team", http.MethodDelete, fmt.Sprintf("/api/team/withdraw/%d", teamID), nil, nil, nil)
}

func (c *Client) DeleteTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, "delete team", http.MethodDelete, fmt.Sprintf("/api/team/%d", teamID), nil, nil, nil)
}

type tagResponse struct {
	Gender    []models.Tag `json:"genderTagList"`
	Age       []models.Tag `json:"ageTagList"`
	Intensity []models.Tag `json:"exerciseIntensityTagList"`
}

// TeamTags returns all group tags flattened across categories.
func (c *Client) TeamTags(ctx context.Context) ([]models.Tag, error) {
	var out tagResponse
	if err := c.do(ctx, "team tags", http.MethodGet, "/api/team/teamTags", nil, nil, &out); err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(out.Gender)+len(out.Age)+len(out.Intensity))
	tags = append(tags, out.Gender...)
	tags = append(tags, out.Age...)
	tags = append(tags, out.Intensity...)
	return tags, nil
}

// Ranking fetches a group's ranking snapshot for the given day key.
func (c *Client) Ranking(ctx context.Context, groupID int64, dateKey string, page, size int) (models.Ranking, error) {
	if size == 0 {
		size = 10
	}
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
		"date": {dateKey},
	}
	var out models.Ranking
	err := c.do(ctx, "ranking", http.MethodGet, fmt.Sprintf("/api/team/%d/ranking", groupID), q, nil, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var out models.Profile
	err := c.do(ctx, "profile", http.MethodGet, "/api/member/profile", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateNickname(ctx context.Context, name string) error {
	if err := validate.Nickname(name); err != nil {
		return err
	}
	return c.do(ctx, "update nickname", http.MethodPut, "/api/member/profile", nil, map[string]string{"name": name}, nil)
}

func (c *Client) DeleteMember(ctx context.Context) error {
	return c.do(ctx, "delete member", http.MethodDelete, "/api/member/profile", nil, nil, nil)
}

type marketResponse struct {
	Content []models.Product `json:"content"`
}

func (c *Client) Market(ctx context.Context) ([]models.Product, error) {
	var out marketResponse
	if err := c.do(ctx, "market", http.MethodGet, "/api/market", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Content, nil
}

func (c *Client) MarketView(ctx context.Context, productID int64) (models.Product, error) {
	var out models.Product
	err := c.do(ctx, "market view", http.MethodGet, fmt.Sprintf("/api/market/%d", productID), nil, nil, &out)
	return out, err
}
