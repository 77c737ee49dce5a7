package pubsub

import (
	"testing"
	"time"

	"github.com/eapache/channels"
	"github.com/stretchr/testify/require"
)

const (
	recvTimeout = 5 * time.Second
	ringSize    = 4
)

func recvInt(t *testing.T, ch <-chan int, msg string) int {
	select {
	case v := <-ch:
		return v
	case <-time.After(recvTimeout):
		t.Fatalf("failed to receive value: %s", msg)
		return 0
	}
}

func TestBrokerUnbuffered(t *testing.T) {
	require := require.New(t)

	broker := NewBroker(false)

	sub := broker.Subscribe()
	typedCh := make(chan int)
	sub.Unwrap(typedCh)

	broker.Broadcast(23)
	require.Equal(23, recvInt(t, typedCh, "single broadcast"), "single broadcast")

	// The subscription channel is unbounded, bursts must not drop.
	for i := 0; i < 10; i++ {
		broker.Broadcast(i)
	}
	for i := 0; i < 10; i++ {
		require.Equal(i, recvInt(t, typedCh, "burst broadcast"), "burst broadcast order")
	}

	require.NotPanics(func() { sub.Close() }, "Close()")
	require.Len(broker.subscribers, 0, "subscriber map, post Close()")
}

func TestBrokerRing(t *testing.T) {
	require := require.New(t)

	broker := NewBroker(false)

	sub := broker.SubscribeBuffered(ringSize)
	typedCh := make(chan int)
	sub.Unwrap(typedCh)

	for i := 0; i < ringSize+10; i++ {
		broker.Broadcast(i)
	}
	// Let the ring channel drain the writes before reading.
	time.Sleep(100 * time.Millisecond)

	// The ring prefers writing over buffering, so the first value is
	// handed straight to the output channel and survives; afterwards
	// only the newest ringSize values remain.
	expected := []int{0}
	for i := 10; i < ringSize+10; i++ {
		expected = append(expected, i)
	}
	for _, i := range expected {
		require.Equal(i, recvInt(t, typedCh, "ring broadcast"), "ring keeps newest values")
	}

	sub.Close()
}

func TestBrokerPubLastOnSubscribe(t *testing.T) {
	require := require.New(t)

	broker := NewBroker(true)
	broker.Broadcast(23)

	for _, buffer := range []int64{int64(channels.Infinity), ringSize} {
		sub := broker.SubscribeBuffered(buffer)
		typedCh := make(chan int)
		sub.Unwrap(typedCh)

		require.Equal(23, recvInt(t, typedCh, "last broadcast on subscribe"), "last value delivered")
	}
}

func TestBrokerSubscribeHooks(t *testing.T) {
	require := require.New(t)

	var callbackCh channels.Channel
	hook := func(ch channels.Channel) {
		callbackCh = ch
	}

	broker := NewBroker(false)
	sub := broker.SubscribeEx(int64(channels.Infinity), hook)
	require.NotNil(sub.ch, "subscription inner channel")
	require.Equal(sub.ch, callbackCh, "per-subscribe hook sees the inner channel")

	broker = NewBrokerEx(hook)
	sub = broker.SubscribeBuffered(ringSize)
	require.NotNil(sub.ch, "subscription inner channel")
	require.Equal(sub.ch, callbackCh, "broker hook sees the inner channel")
}
