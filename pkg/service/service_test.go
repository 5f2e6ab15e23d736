package service

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/endorsed-labs/endorsed-go/pkg/audit"
	"github.com/endorsed-labs/endorsed-go/pkg/digest"
	"github.com/endorsed-labs/endorsed-go/pkg/eligibility"
	"github.com/endorsed-labs/endorsed-go/pkg/noncestore/memory"
	"github.com/endorsed-labs/endorsed-go/pkg/testutil"
	"github.com/endorsed-labs/endorsed-go/pkg/verifier"
)

// recordingSink captures notified events.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingSink) Notify(e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) all() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event{}, r.events...)
}

var methodID = digest.MethodID("transfer(address,uint256)")

func TestVerifyAndConsumeAccepts(t *testing.T) {
	key := testutil.GenerateKey(t)
	addr := testutil.AddressOf(key)
	callData := testutil.EndorsedCallData(t, key, []byte("transferId=42"), nil, 1, 9999999999)

	sink := &recordingSink{}
	svc, err := New(Config{
		Oracle: eligibility.NewStaticOracle(addr),
		Nonces: memory.NewMemoryStore(),
		Sink:   sink,
		Clock:  FixedClock{Value: big.NewInt(1000)},
	})
	require.NoError(t, err)

	res, err := svc.VerifyAndConsume(context.Background(), callData, nil, methodID)
	require.NoError(t, err)
	require.True(t, res.Accepted())
	require.Equal(t, addr, res.Endorser)

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, methodID, events[0].MethodID)
	require.Equal(t, []common.Address{addr}, events[0].Endorsers)
	require.Equal(t, res.Nonce, events[0].Nonce)
}

func TestVerifyAndConsumeReplay(t *testing.T) {
	key := testutil.GenerateKey(t)
	addr := testutil.AddressOf(key)
	callData := testutil.EndorsedCallData(t, key, []byte("payload"), nil, 1, 9999999999)

	sink := &recordingSink{}
	svc, err := New(Config{
		Oracle: eligibility.NewStaticOracle(addr),
		Nonces: memory.NewMemoryStore(),
		Sink:   sink,
		Clock:  FixedClock{Value: big.NewInt(1000)},
	})
	require.NoError(t, err)

	res, err := svc.VerifyAndConsume(context.Background(), callData, nil, methodID)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	// Presenting the same endorsement again is a replay: the core still
	// authorizes, the service rejects.
	res, err = svc.VerifyAndConsume(context.Background(), callData, nil, methodID)
	require.NoError(t, err)
	require.True(t, res.Authorized())
	require.True(t, res.Replayed)
	require.False(t, res.Accepted())

	require.Len(t, sink.all(), 1, "replays must not be notified")
}

func TestVerifyAndConsumeRejectionsPassThrough(t *testing.T) {
	key := testutil.GenerateKey(t)
	callData := testutil.EndorsedCallData(t, key, []byte("payload"), nil, 1, 9999999999)

	sink := &recordingSink{}
	store := memory.NewMemoryStore()
	svc, err := New(Config{
		Oracle: eligibility.NewStaticOracle(), // empty allow-set
		Nonces: store,
		Sink:   sink,
		Clock:  FixedClock{Value: big.NewInt(1000)},
	})
	require.NoError(t, err)

	res, err := svc.VerifyAndConsume(context.Background(), callData, nil, methodID)
	require.NoError(t, err)
	require.Equal(t, verifier.StatusRejected, res.Status)
	require.False(t, res.Accepted())
	require.Empty(t, sink.all())

	// The nonce must not be consumed by a rejected pass.
	seen, err := store.Seen(context.Background(), res.Endorser, res.Nonce)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestVerifyAndConsumeNoEndorsement(t *testing.T) {
	svc, err := New(Config{
		Oracle: eligibility.NewStaticOracle(),
		Nonces: memory.NewMemoryStore(),
		Clock:  FixedClock{Value: big.NewInt(1000)},
	})
	require.NoError(t, err)

	res, err := svc.VerifyAndConsume(context.Background(), []byte("plain call"), nil, methodID)
	require.NoError(t, err)
	require.Equal(t, verifier.StatusNoEndorsement, res.Status)
	require.False(t, res.Accepted())
}

func TestVerifyAndConsumeExpired(t *testing.T) {
	key := testutil.GenerateKey(t)
	addr := testutil.AddressOf(key)
	callData := testutil.EndorsedCallData(t, key, []byte("payload"), nil, 1, 100)

	svc, err := New(Config{
		Oracle: eligibility.NewStaticOracle(addr),
		Nonces: memory.NewMemoryStore(),
		Clock:  FixedClock{Value: big.NewInt(101)},
	})
	require.NoError(t, err)

	res, err := svc.VerifyAndConsume(context.Background(), callData, nil, methodID)
	require.NoError(t, err)
	require.Equal(t, verifier.StatusExpired, res.Status)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Nonces: memory.NewMemoryStore()})
	require.Error(t, err, "oracle is required")

	_, err = New(Config{Oracle: eligibility.NewStaticOracle()})
	require.Error(t, err, "nonce store is required")

	svc, err := New(Config{
		Oracle: eligibility.NewStaticOracle(),
		Nonces: memory.NewMemoryStore(),
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestWallClock(t *testing.T) {
	now := WallClock{}.Now()
	require.True(t, now.Sign() > 0)
}
