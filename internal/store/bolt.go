package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var conversationsBucket = []byte("conversations")

// BoltStore keeps each conversation in its own nested bucket keyed by sequence.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating conversations bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) AppendTurn(_ context.Context, userID, speaker, text string) (Turn, error) {
	turn := Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Speaker:   speaker,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(conversationsBucket).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		turn.Seq = seq
		data, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	if err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return turn, nil
}

func (s *BoltStore) ListTurns(ctx context.Context, userID string) ([]Turn, error) {
	return s.RecentTurns(ctx, userID, 0)
}

// RecentTurns walks the conversation backwards from its newest key. A
// non-positive limit returns everything.
func (s *BoltStore) RecentTurns(_ context.Context, userID string, limit int) ([]Turn, error) {
	var turns []Turn
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(conversationsBucket).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(turns) == limit {
				break
			}
			var t Turn
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("decoding turn %d: %w", binary.BigEndian.Uint64(k), err)
			}
			turns = append(turns, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *BoltStore) ClearTurns(_ context.Context, userID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(conversationsBucket).DeleteBucket([]byte(userID))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
