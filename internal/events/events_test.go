package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	err     error
	objects map[string][]byte
	opts    []storage.PutOptions
}

func (s *fakeStore) PutObject(ctx context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[opts.Key] = data
	s.opts = append(s.opts, opts)
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func TestArchivePublisher(t *testing.T) {
	store := &fakeStore{}
	pub := NewArchivePublisher(ArchiveConfig{Bucket: "audit", KeyPrefix: "/events/"}, store)

	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	pub.Publish(context.Background(), Event{
		Kind:     AccountUpdated,
		UserID:   "id-1",
		Username: "bob",
		Fields:   []string{"email", "password"},
		At:       at,
	})

	require.Len(t, store.opts, 1)
	opts := store.opts[0]
	assert.Equal(t, "audit", opts.Bucket)
	assert.Equal(t, "application/json", opts.ContentType)
	assert.True(t, strings.HasPrefix(opts.Key, "events/2026/10/15/"), opts.Key)
	assert.True(t, strings.HasSuffix(opts.Key, ".json"), opts.Key)

	var got Event
	require.NoError(t, json.Unmarshal(store.objects[opts.Key], &got))
	assert.Equal(t, AccountUpdated, got.Kind)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, []string{"email", "password"}, got.Fields)
	assert.True(t, at.Equal(got.At))
}

func TestArchivePublisherSurvivesCanceledRequest(t *testing.T) {
	store := &fakeStore{}
	pub := NewArchivePublisher(ArchiveConfig{Bucket: "audit"}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Publish(ctx, Event{Kind: AccountLogin, Username: "bob"})

	assert.Len(t, store.opts, 1)
}

func TestArchivePublisherLogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := NewArchivePublisher(ArchiveConfig{Bucket: "audit", Logger: logger}, &fakeStore{err: errors.New("boom")})

	pub.Publish(context.Background(), Event{Kind: AccountCreated, Username: "bob"})

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "boom")
}

func TestLogPublisher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := NewLogPublisher(logger)

	pub.Publish(context.Background(), Event{Kind: AccountLogin, UserID: "id-1", Username: "bob"})
	pub.Publish(context.Background(), Event{Kind: AccountLoginFailed, Username: "mallory"})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, AccountLogin, entries[0].Data["event"])
	assert.Equal(t, "id-1", entries[0].Data["user_id"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, "mallory", entries[1].Data["username"])
}

type countingPublisher struct{ n int }

func (c *countingPublisher) Publish(context.Context, Event) { c.n++ }

func TestMulti(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	Multi{a, nil, b}.Publish(context.Background(), Event{Kind: AccountCreated})
	Nop{}.Publish(context.Background(), Event{})

	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
