package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zkdev/anvil-node/internal/types"
)

func TestFeedDeliversToAllSubscribers(t *testing.T) {
	var f Feed[ChainHeadEvent]
	chA := make(chan ChainHeadEvent, 1)
	chB := make(chan ChainHeadEvent, 1)
	f.Subscribe(chA)
	f.Subscribe(chB)

	block := &types.Block{Number: 7}
	n := f.Send(ChainHeadEvent{Block: block})
	assert.Equal(t, 2, n)

	select {
	case got := <-chA:
		assert.EqualValues(t, 7, got.Block.Number)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chA")
	}
	select {
	case got := <-chB:
		assert.EqualValues(t, 7, got.Block.Number)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chB")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var f Feed[ChainHeadEvent]
	ch := make(chan ChainHeadEvent, 1)
	sub := f.Subscribe(ch)
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	n := f.Send(ChainHeadEvent{Block: &types.Block{Number: 1}})
	assert.Equal(t, 0, n)
}
