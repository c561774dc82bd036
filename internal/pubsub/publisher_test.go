package pubsub

import (
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

var _ Publisher[int] = &publisher[int]{}

func TestPublisher(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	pub := NewPublisher[int]()

	s1, err := pub.Subscribe()
	require.NoError(err)
	s2, err := pub.Subscribe()
	require.NoError(err)

	// Both subscribers get every message, in order
	var wg sync.WaitGroup
	var got1, got2 []int
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			got1 = append(got1, <-s1.Receive())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			got2 = append(got2, <-s2.Receive())
		}
	}()
	for _, v := range []int{3, 4, 5} {
		assert.True(pub.Send(v))
	}
	wg.Wait()
	assert.Equal([]int{3, 4, 5}, got1)
	assert.Equal([]int{3, 4, 5}, got2)

	// A closed subscriber is dropped, and the other continues to receive
	s1.Close()
	assert.True(pub.Send(6))
	assert.Equal(6, <-s2.Receive())
	_, ok := <-s1.Receive()
	assert.False(ok)

	// Once the publisher is closed, subscribing or sending should fail, and subscribers are closed
	pub.Close()
	_, err = pub.Subscribe()
	assert.ErrorIs(err, ErrPublisherClosed)
	assert.False(pub.Send(7))
	_, ok = <-s2.Receive()
	assert.False(ok, "expected subscriber to be closed by publisher")
	<-pub.Closed()
	// Closing should be idempotent
	pub.Close()
}

func TestPublisher_NoSubscribers(t *testing.T) {
	assert := assert_.New(t)
	pub := NewPublisher[int]()
	assert.True(pub.Send(1))
	assert.True(pub.Send(2))
	pub.Close()
	assert.False(pub.Send(3))
}

func TestPublisher_Close_Delivers(t *testing.T) {
	assert := assert_.New(t)
	pub := NewPublisher[int]()
	sub, err := pub.SubscribeBufSize(100)
	assert.NoError(err)
	for i := 0; i < 50; i++ {
		assert.True(pub.Send(i))
	}
	pub.Close()
	var received []int
	for v := range sub.Receive() {
		received = append(received, v)
	}
	assert.Len(received, 50)
	assert.Equal(49, received[49])
}

func TestPublisher_AddSubscriber_Close(t *testing.T) {
	assert := assert_.New(t)

	pub := NewPublisher[int]()
	c1 := NewChannel[int](1)
	c2 := NewChannel[int](1)
	assert.NoError(pub.AddSubscriber(c1, true))
	assert.NoError(pub.AddSubscriber(c2, false))
	pub.Close()
	assert.False(c1.Send(1), "expected closeWith=true subscriber to be closed")
	assert.True(c2.Send(1), "expected closeWith=false subscriber to not be closed")
}
