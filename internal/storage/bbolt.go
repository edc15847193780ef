// Package storage is the client's local bbolt cache: the sealed bearer
// token, day snapshots for warm starts, chat backscroll and the profile.
// Nothing here is authoritative; a successful server fetch always
// overwrites the cached copy.
package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"homefit/internal/models"
)

var (
	bucketToken    = []byte("token")
	bucketDays     = []byte("days")
	bucketMessages = []byte("messages")
	bucketProfile  = []byte("profile")
)

type Store struct {
	db     *bbolt.DB
	secret string
}

// NewStore opens (or creates) the cache file. secret seals the bearer token
// at rest; it never touches the other buckets.
func NewStore(path, secret string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketToken, bucketDays, bucketMessages, bucketProfile} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db, secret: secret}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveToken seals and persists the bearer token.
func (s *Store) SaveToken(token string) error {
	blob, err := sealToken(s.secret, token)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketToken).Put([]byte("bearer"), blob)
	})
}

// Token returns the stored bearer token, or "" when none is stored. It
// implements the API client's TokenSource.
func (s *Store) Token() (string, error) {
	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketToken).Get([]byte("bearer")); v != nil {
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if blob == nil {
		return "", nil
	}
	return openToken(s.secret, blob)
}

// ClearToken drops the stored token. Called on logout and on any
// unauthorized response.
func (s *Store) ClearToken() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketToken).Delete([]byte("bearer"))
	})
}

// PutDaySnapshot caches the exercise list and server total for a day key.
func (s *Store) PutDaySnapshot(dateKey string, agg models.DayAggregate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		day := &DBDay{
			DateKey:     dateKey,
			TotalTimeMs: agg.TotalTimeMs,
			FetchedAt:   time.Now().UnixMilli(),
		}
		for _, e := range agg.Exercises {
			dbe := DBExercise{
				ID:            e.ID,
				Name:          e.Name,
				AccumulatedMs: e.AccumulatedMs,
				IsActive:      e.IsActive,
			}
			if e.StartTime != nil {
				dbe.StartTimeMs = e.StartTime.UnixMilli()
			}
			day.Exercises = append(day.Exercises, dbe)
		}

		data, err := day.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDays).Put(day.Key(), data)
	})
}

// GetDaySnapshot returns the cached aggregate for a day key, or
// models.ErrNotFound when the day was never cached.
func (s *Store) GetDaySnapshot(dateKey string) (models.DayAggregate, error) {
	var day DBDay
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketDays).Get([]byte(dateKey))
		if v == nil {
			return models.ErrNotFound
		}
		return day.UnmarshalBinary(v)
	})
	if err != nil {
		return models.DayAggregate{}, err
	}

	agg := models.DayAggregate{TotalTimeMs: day.TotalTimeMs}
	for _, e := range day.Exercises {
		me := models.Exercise{
			ID:            e.ID,
			Name:          e.Name,
			AccumulatedMs: e.AccumulatedMs,
			IsActive:      e.IsActive,
		}
		if e.StartTimeMs != 0 {
			t := time.UnixMilli(e.StartTimeMs)
			me.StartTime = &t
		}
		agg.Exercises = append(agg.Exercises, me)
	}
	return agg, nil
}

// AppendMessages caches room messages. Keys encode the send instant, so a
// redelivered message overwrites its earlier copy.
func (s *Store) AppendMessages(roomID string, msgs []models.ChatMessage) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		room, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists([]byte(roomID))
		if err != nil {
			return fmt.Errorf("failed to create room bucket: %w", err)
		}
		for _, m := range msgs {
			dbm := DBMessage{
				ID:         m.ID,
				RoomID:     roomID,
				AuthorID:   m.AuthorID,
				AuthorName: m.AuthorName,
				Body:       m.Body,
				SentAtMs:   m.SentAt.UnixMilli(),
			}
			data, err := dbm.MarshalBinary()
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			if err := room.Put(dbm.Key(), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListMessages returns cached messages for a room within [from, to] send
// instants, ascending.
func (s *Store) ListMessages(roomID string, from, to time.Time) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		room := tx.Bucket(bucketMessages).Bucket([]byte(roomID))
		if room == nil {
			return nil
		}

		minKey := make([]byte, 8)
		binary.BigEndian.PutUint64(minKey, uint64(from.UnixMilli()))
		maxKey := make([]byte, 8)
		binary.BigEndian.PutUint64(maxKey, uint64(to.UnixMilli()+1))

		c := room.Cursor()
		for k, v := c.Seek(minKey); k != nil && bytes.Compare(k[:8], maxKey) < 0; k, v = c.Next() {
			var dbm DBMessage
			if err := dbm.UnmarshalBinary(v); err != nil {
				return err
			}
			msgs = append(msgs, models.ChatMessage{
				ID:         dbm.ID,
				RoomID:     dbm.RoomID,
				AuthorID:   dbm.AuthorID,
				AuthorName: dbm.AuthorName,
				Body:       dbm.Body,
				SentAt:     time.UnixMilli(dbm.SentAtMs),
			})
		}
		return nil
	})
	return msgs, err
}

// SaveProfile caches the member profile.
func (s *Store) SaveProfile(p models.Profile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbp := &DBProfile{
			MemberID:     p.MemberID,
			Nickname:     p.Nickname,
			Email:        p.Email,
			Attendance:   p.Attendance,
			WeeklyTotal:  p.WeeklyTotal,
			MonthlyTotal: p.MonthlyTotal,
		}
		data, err := dbp.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketProfile).Put(dbp.Key(), data)
	})
}

// GetProfile returns the cached profile or models.ErrNotFound.
func (s *Store) GetProfile() (models.Profile, error) {
	var dbp DBProfile
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketProfile).Get([]byte("me"))
		if v == nil {
			return models.ErrNotFound
		}
		return dbp.UnmarshalBinary(v)
	})
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{
		MemberID:     dbp.MemberID,
		Nickname:     dbp.Nickname,
		Email:        dbp.Email,
		Attendance:   dbp.Attendance,
		WeeklyTotal:  dbp.WeeklyTotal,
		MonthlyTotal: dbp.MonthlyTotal,
	}, nil
}
