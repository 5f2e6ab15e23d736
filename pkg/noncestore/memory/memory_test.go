package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/endorsed-labs/endorsed-go/pkg/noncestore"
)

var _ noncestore.Store = (*MemoryStore)(nil)

var endorser = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func nonce(b byte) [32]byte {
	var n [32]byte
	n[31] = b
	return n
}

func TestConsumeOnce(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	first, err := s.Consume(context.Background(), endorser, nonce(1))
	require.NoError(t, err)
	require.True(t, first)

	first, err = s.Consume(context.Background(), endorser, nonce(1))
	require.NoError(t, err)
	require.False(t, first, "second consume of the same pair is a replay")

	// A different nonce, and the same nonce under a different endorser,
	// are both fresh.
	first, err = s.Consume(context.Background(), endorser, nonce(2))
	require.NoError(t, err)
	require.True(t, first)

	other := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	first, err = s.Consume(context.Background(), other, nonce(1))
	require.NoError(t, err)
	require.True(t, first)
}

func TestSeen(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	seen, err := s.Seen(context.Background(), endorser, nonce(1))
	require.NoError(t, err)
	require.False(t, seen)

	_, err = s.Consume(context.Background(), endorser, nonce(1))
	require.NoError(t, err)

	seen, err = s.Seen(context.Background(), endorser, nonce(1))
	require.NoError(t, err)
	require.True(t, seen)
}

func TestClosedStore(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Consume(context.Background(), endorser, nonce(1))
	require.Error(t, err)

	_, err = s.Seen(context.Background(), endorser, nonce(1))
	require.Error(t, err)

	require.Error(t, s.HealthCheck(context.Background()))
	require.NoError(t, s.Close(), "close is idempotent")
}

// TestConcurrentConsume pins the transactional guarantee: of N racing
// consumers of one pair, exactly one observes first use.
func TestConcurrentConsume(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	const workers = 32
	var wg sync.WaitGroup
	firsts := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := s.Consume(context.Background(), endorser, nonce(9))
			require.NoError(t, err)
			firsts <- first
		}()
	}
	wg.Wait()
	close(firsts)

	wins := 0
	for first := range firsts {
		if first {
			wins++
		}
	}
	require.Equal(t, 1, wins)
}

func TestHealthCheck(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	require.NoError(t, s.HealthCheck(context.Background()))
}
