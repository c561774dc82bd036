package pubsub

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func even(v int) bool { return v%2 == 0 }

func TestFilter_Send(t *testing.T) {
	assert := assert_.New(t)
	ch := NewChannel[int](10)
	filtered := Filter[int](ch, even)

	// Every message is accepted, but only the kept ones arrive
	for i := 0; i < 5; i++ {
		assert.True(filtered.Send(i))
	}
	assert.Equal(0, <-ch.Receive())
	assert.Equal(2, <-ch.Receive())
	assert.Equal(4, <-ch.Receive())
}

func TestFilter_Close(t *testing.T) {
	assert := assert_.New(t)

	ch := NewChannel[int](10)
	filtered := Filter[int](ch, even)
	filtered.Close()
	<-ch.Closed()
	assert.False(filtered.Send(0))

	// Closing the wrapped channel closes the filter too, even for messages it would drop
	ch = NewChannel[int](10)
	filtered = Filter[int](ch, even)
	ch.Close()
	<-filtered.Closed()
	assert.False(filtered.Send(1))
}

func TestFilter_Publisher(t *testing.T) {
	assert := assert_.New(t)

	pub := NewPublisher[int]()
	ch := NewChannel[int](1)
	assert.NoError(pub.AddSubscriber(Filter[int](ch, even), true))

	received := make(chan []int)
	go func() {
		var values []int
		for v := range ch.Receive() {
			values = append(values, v)
		}
		received <- values
	}()
	for i := 0; i < 10; i++ {
		assert.True(pub.Send(i))
	}
	pub.Close()
	assert.Equal([]int{0, 2, 4, 6, 8}, <-received)
}
