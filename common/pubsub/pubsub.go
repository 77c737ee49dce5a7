// Package pubsub implements a generic publish-subscribe interface.
package pubsub

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/eapache/channels"
)

// ClosableSubscription is an interface for a subscription that can be closed.
type ClosableSubscription interface {
	// Close unsubscribes the subscription.
	Close()
}

// Subscription is a Broker subscription instance.
type Subscription struct {
	b  *Broker
	ch channels.Channel
	id uint64
}

// Untyped returns the subscription's untyped output.  Use of this
// method is discouraged.
func (s *Subscription) Untyped() <-chan interface{} {
	return s.ch.Out()
}

// Unwrap ties the read end of the provided channel to the subscription's
// output.
func (s *Subscription) Unwrap(ch interface{}) {
	chType := reflect.TypeOf(ch)
	if chType.Kind() != reflect.Chan {
		panic("pubsub: unwrap target is not a channel")
	}
	if chType.ChanDir()&reflect.SendDir == 0 {
		panic("pubsub: unwrap target channel is not writable")
	}

	channels.Unwrap(s.ch, ch)
}

// Close unsubscribes from the Broker.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if _, ok := s.b.subscribers[s.id]; !ok {
		panic("pubsub: already unsubscribed")
	}
	delete(s.b.subscribers, s.id)
	s.ch.Close()
}

type broadcastedValue struct {
	v interface{}
}

// Broker is a pub/sub broker instance.
type Broker struct {
	mu          sync.Mutex
	subscribers map[uint64]*Subscription
	lastID      uint64

	onSubscribeHook    OnSubscribeHook
	lastValue          *broadcastedValue
	pubLastOnSubscribe bool
}

// OnSubscribeHook is the on-subscribe callback hook prototype.
type OnSubscribeHook func(channels.Channel)

// Subscribe subscribes to the Broker's broadcasts, and returns a
// subscription handle that can be used to receive broadcasts.
//
// Note: The returned subscription's channel will have an unbounded
// capacity.
func (b *Broker) Subscribe() *Subscription {
	return b.SubscribeBuffered(int64(channels.Infinity))
}

// SubscribeBuffered subscribes to the Broker's broadcasts, and returns a
// subscription handle that can be used to receive broadcasts.
//
// Buffer size controls the capacity of a subscriber's channel. Values of
// (-1) and 0 create a channel with an unbounded and non-existing capacity
// respectively.
func (b *Broker) SubscribeBuffered(buffer int64) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		b:  b,
		ch: newChannel(buffer),
		id: b.lastID,
	}
	b.lastID++
	b.subscribers[sub.id] = sub

	if b.onSubscribeHook != nil {
		b.onSubscribeHook(sub.ch)
	}

	if b.pubLastOnSubscribe && b.lastValue != nil {
		sub.ch.In() <- b.lastValue.v
	}

	return sub
}

// SubscribeEx subscribes to the Broker's broadcasts, and returns a
// subscription handle that can be used to receive broadcasts.  In
// addition, the on-subscribe callback hook will be called with the
// subscription's channel.
func (b *Broker) SubscribeEx(buffer int64, onSubscribeHook OnSubscribeHook) *Subscription {
	sub := b.SubscribeBuffered(buffer)
	onSubscribeHook(sub.ch)
	return sub
}

// Broadcast queues up a new value to be broadcasted.
//
// Note: This makes no special effort to avoid deadlocking if any one
// of the subscribers' channel is full.
func (b *Broker) Broadcast(v interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastValue = &broadcastedValue{v}

	for _, sub := range b.subscribers {
		sub.ch.In() <- v
	}
}

// NewBroker creates a new pub/sub broker.  If pubLastOnSubscribe is set,
// the last broadcasted value will automatically be published to new
// subscribers, if one exists.
func NewBroker(pubLastOnSubscribe bool) *Broker {
	return &Broker{
		subscribers:        make(map[uint64]*Subscription),
		pubLastOnSubscribe: pubLastOnSubscribe,
	}
}

// NewBrokerEx creates a new pub/sub broker, with a hook to be called
// when a new subscriber is registered.
func NewBrokerEx(onSubscribeHook OnSubscribeHook) *Broker {
	return &Broker{
		subscribers:     make(map[uint64]*Subscription),
		onSubscribeHook: onSubscribeHook,
	}
}

func newChannel(buffer int64) channels.Channel {
	switch buffer {
	case int64(channels.Infinity):
		return channels.NewInfiniteChannel()
	case 0:
		return channels.NewNativeChannel(channels.None)
	default:
		if buffer < 0 {
			panic(fmt.Sprintf("pubsub: invalid buffer size: %d", buffer))
		}
		return channels.NewRingChannel(channels.BufferCap(buffer))
	}
}
