package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/pkg/config"
	"retail-agent/pkg/log"
	"retail-agent/pkg/metrics"
)

type failingSink struct{}

func (failingSink) Name() string                        { return "failing" }
func (failingSink) Write(context.Context, Record) error { return errors.New("disk full") }
func (failingSink) Close() error                        { return nil }

func TestRecorder_WritesAsync(t *testing.T) {
	mem := NewMemorySink(0)
	r := NewRecorder(mem, nil)
	r.Record("s1", TypeTool, "order_product -> ok")
	r.Record("s1", TypeAnswer, "Ordered 288 units of SKU001.")
	r.Wait()

	recs, err := mem.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, "s1", rec.SessionID)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.Timestamp.IsZero())
	}
	// 最新在前
	assert.Equal(t, TypeAnswer, recs[0].Type)
	assert.Equal(t, TypeTool, recs[1].Type)
}

type slowSink struct {
	*MemorySink
}

func (s slowSink) Write(ctx context.Context, rec Record) error {
	if rec.Type == TypeTool {
		time.Sleep(time.Millisecond)
	}
	return s.MemorySink.Write(ctx, rec)
}

func TestRecorder_PreservesCallOrder(t *testing.T) {
	mem := NewMemorySink(0)
	r := NewRecorder(slowSink{mem}, nil)
	for i := 0; i < 20; i++ {
		r.Record("s1", TypeTool, fmt.Sprintf("call-%02d", i))
	}
	r.Record("s1", TypeAnswer, "final")
	r.Wait()

	recs, err := mem.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 21)
	assert.Equal(t, "final", recs[0].Response)
	for i := 1; i < len(recs); i++ {
		assert.Equal(t, fmt.Sprintf("call-%02d", 20-i), recs[i].Response)
	}
}

type countingSink struct {
	*MemorySink
	closes int
}

func (s *countingSink) Close() error {
	s.closes++
	return nil
}

func TestRecorder_RecordAfterCloseDropped(t *testing.T) {
	sink := &countingSink{MemorySink: NewMemorySink(0)}
	r := NewRecorder(sink, nil)
	r.Record("s1", TypeAnswer, "before close")
	require.NoError(t, r.Close())

	r.Record("s1", TypeAnswer, "after close")
	r.Wait()
	require.NoError(t, r.Close())

	recs, err := sink.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "before close", recs[0].Response)
	assert.Equal(t, 1, sink.closes)
}

func TestRecorder_FailureSwallowed(t *testing.T) {
	before := testutil.ToFloat64(metrics.HistoryWriteFailTotal.WithLabelValues("failing"))
	var buf bytes.Buffer
	r := NewRecorder(failingSink{}, log.NewWithWriter(&log.Config{Level: "debug", Format: "json"}, &buf))

	r.Record("s1", TypeAnswer, "done")
	r.Wait()

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HistoryWriteFailTotal.WithLabelValues("failing")))
	assert.Contains(t, buf.String(), "disk full")
	assert.NoError(t, r.Close())
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Record("s", TypeAnswer, "x")
	r.Wait()
	assert.NoError(t, r.Close())

	NewRecorder(nil, nil).Record("s", TypeAnswer, "x")
}

func TestMemorySink_CapacityAndOrder(t *testing.T) {
	m := NewMemorySink(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Write(ctx, Record{ID: fmt.Sprint(i), Type: TypeTool}))
	}
	recs, err := m.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"4", "3", "2"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})

	recs, _ = m.List(ctx, 1)
	require.Len(t, recs, 1)
	assert.Equal(t, "4", recs[0].ID)
}

func TestMultiSink(t *testing.T) {
	a, b := NewMemorySink(0), NewMemorySink(0)
	m := NewMultiSink(failingSink{}, a, b)
	assert.Equal(t, "failing+memory+memory", m.Name())

	err := m.Write(context.Background(), Record{ID: "1", Type: TypeAnswer})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: disk full")

	ra, _ := a.List(context.Background(), 0)
	rb, _ := b.List(context.Background(), 0)
	assert.Len(t, ra, 1)
	assert.Len(t, rb, 1)

	l, ok := m.Lister()
	require.True(t, ok)
	assert.Same(t, a, l)

	_, ok = NewMultiSink(failingSink{}).Lister()
	assert.False(t, ok)
}

func TestNewSinkFromConfig(t *testing.T) {
	m, err := NewSinkFromConfig(context.Background(), config.HistoryConfig{})
	require.NoError(t, err)
	assert.Equal(t, "memory", m.Name())

	_, err = NewSinkFromConfig(context.Background(), config.HistoryConfig{Sinks: []string{"memory", "kafka"}})
	assert.Error(t, err)
}

func TestPgSink(t *testing.T) {
	dsn := os.Getenv("TEST_INVENTORY_DSN")
	if dsn == "" {
		t.Skip("TEST_INVENTORY_DSN 未设置")
	}
	ctx := context.Background()
	s, err := NewPgSink(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	id := uuid.NewString()
	require.NoError(t, s.Write(ctx, Record{ID: id, SessionID: "s", Timestamp: time.Now().UTC(), Response: "ok", Type: TypeAnswer}))
	recs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, id, recs[0].ID)
}

func TestRedisStreamSink(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR 未设置")
	}
	ctx := context.Background()
	stream := "test:history:" + uuid.NewString()
	s, err := NewRedisStreamSink(ctx, addr, "", 0, stream, 100)
	require.NoError(t, err)
	defer func() {
		s.client.Del(ctx, stream)
		_ = s.Close()
	}()

	require.NoError(t, s.Write(ctx, Record{ID: "a", Timestamp: time.Now().UTC(), Response: "first", Type: TypeTool}))
	require.NoError(t, s.Write(ctx, Record{ID: "b", Timestamp: time.Now().UTC(), Response: "second", Type: TypeAnswer}))
	recs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, TypeAnswer, recs[0].Type)
}

func TestNATSSink(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL 未设置")
	}
	subject := "test.history." + uuid.NewString()
	s, err := NewNATSSink(url, subject)
	require.NoError(t, err)
	defer s.Close()

	sub, err := s.conn.SubscribeSync(subject + ".>")
	require.NoError(t, err)
	require.NoError(t, s.conn.Flush())

	require.NoError(t, s.Write(context.Background(), Record{ID: "n1", Response: "done", Type: TypeAnswer}))
	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, subject+".answer", msg.Subject)

	var rec Record
	require.NoError(t, json.Unmarshal(msg.Data, &rec))
	assert.Equal(t, "n1", rec.ID)
}
