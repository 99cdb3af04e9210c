package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/mcstatus/internal/models"
)

func TestQueryAllMixedBatch(t *testing.T) {
	good, _ := startStatusServer(t, `{"players":{"max":10,"online":2},"description":"ok"}`)
	bad := closedPort(t)

	results := QueryAll(context.Background(), []string{good, bad}, testPinger(nil))

	require.Len(t, results, 2)
	require.Contains(t, results, good)
	require.Contains(t, results, bad)

	assert.True(t, results[good].OK())
	assert.Equal(t, 10, results[good].Status.MaxPlayers)

	assert.False(t, results[bad].OK())
	assert.Equal(t, KindTransport, KindOf(results[bad].Err))

	body, err := json.Marshal(results)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, float64(2), decoded[good]["online_players"])
	assert.Contains(t, decoded[bad], "error")
}

func TestQueryAllRunsConcurrently(t *testing.T) {
	const n = 8

	var (
		started sync.WaitGroup
		calls   atomic.Int32
	)
	started.Add(n)
	release := make(chan struct{})

	q := QuerierFunc(func(ctx context.Context, address string) models.Result {
		calls.Add(1)
		started.Done()
		<-release
		return models.Result{Status: &models.Status{Description: json.RawMessage(`"` + address + `"`)}}
	})

	addrs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	done := make(chan map[string]models.Result)
	go func() { done <- QueryAll(context.Background(), addrs, q) }()

	waitCh := make(chan struct{})
	go func() { started.Wait(); close(waitCh) }()
	select {
	case <-waitCh:
	case <-time.After(5 * time.Second):
		t.Fatal("queries did not run concurrently")
	}
	close(release)

	results := <-done
	assert.Len(t, results, n)
	assert.Equal(t, int32(n), calls.Load())
	for _, a := range addrs {
		assert.Equal(t, json.RawMessage(`"`+a+`"`), results[a].Status.Description)
	}
}

func TestQueryAllDeduplicates(t *testing.T) {
	var calls atomic.Int32
	q := QuerierFunc(func(context.Context, string) models.Result {
		calls.Add(1)
		return models.Result{Err: errors.New("down")}
	})

	results := QueryAll(context.Background(), []string{"x", "y", "x"}, q)

	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryAllEmpty(t *testing.T) {
	results := QueryAll(context.Background(), nil, QuerierFunc(func(context.Context, string) models.Result {
		t.Fatal("must not be called")
		return models.Result{}
	}))

	assert.Empty(t, results)
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b", "[::1]:2"}, SplitAddresses(" a:1 ,b,, [::1]:2 ,"))
	assert.Empty(t, SplitAddresses(""))
	assert.Empty(t, SplitAddresses(" , "))
}

func TestBlocklist(t *testing.T) {
	b := NewBlocklist([]string{"LocalHost", "metadata.internal.", ""})

	assert.Equal(t, 2, b.Len())
	assert.True(t, b.Contains("localhost"))
	assert.True(t, b.Contains("METADATA.internal"))
	assert.False(t, b.Contains("mc.example.com"))

	var nilList *Blocklist
	assert.False(t, nilList.Contains("localhost"))
}

func TestBlocklistGuard(t *testing.T) {
	var calls atomic.Int32
	inner := QuerierFunc(func(context.Context, string) models.Result {
		calls.Add(1)
		return models.Result{Status: &models.Status{}}
	})

	q := NewBlocklist([]string{"localhost"}).Guard(inner)

	blocked := q.Query(context.Background(), "localhost:25565")
	require.Error(t, blocked.Err)
	assert.Equal(t, KindInput, KindOf(blocked.Err))
	assert.ErrorIs(t, blocked.Err, ErrBlockedHost)

	allowed := q.Query(context.Background(), "mc.example.com")
	assert.True(t, allowed.OK())
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, KindInput, KindOf(q.Query(context.Background(), "").Err))
}

func TestEmptyBlocklistGuardIsIdentity(t *testing.T) {
	inner := QuerierFunc(func(context.Context, string) models.Result { return models.Result{} })

	q := NewBlocklist(nil).Guard(inner)

	_, ok := q.(QuerierFunc)
	assert.True(t, ok)
}
