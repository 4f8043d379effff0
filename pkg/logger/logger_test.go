package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu      sync.Mutex
	topics  []string
	batches [][]DigestEntry
}

func (c *capture) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.batches = append(c.batches, payload.([]DigestEntry))
	return nil
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	l.Info("dropped")
}

func TestDigestDeduplicates(t *testing.T) {
	pub := &capture{}
	l := Nop()
	l.AttachDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("store failed", Error(errors.New("boom")))
	}
	l.Error("publish failed", String("topic", "fits"))
	assert.Equal(t, 2, l.digest.Pending())

	l.DetachDigest()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, []string{"logs"}, pub.topics)
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"store failed": 3, "publish failed": 1}, counts)
}

func TestDigestFlushesAtThreshold(t *testing.T) {
	pub := &capture{}
	d := NewDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 2, Publisher: pub})
	d.Add("error", "a", nil, "x.go:1")
	d.Add("error", "b", nil, "x.go:2")
	assert.Zero(t, d.Pending())
	d.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.batches, 1)
}

func TestFields(t *testing.T) {
	k, v := Float64("r2", 0.5).GetKeyValue()
	assert.Equal(t, "r2", k)
	assert.Equal(t, 0.5, v)

	_, v = Duration("elapsed", 1500*time.Millisecond).GetKeyValue()
	assert.Equal(t, 1500, v)

	_, v = Strings("path", []string{"conservative", "extensive"}).GetKeyValue()
	assert.Equal(t, "conservative, extensive", v)

	_, v = Error(nil).GetKeyValue()
	assert.Nil(t, v)
}
