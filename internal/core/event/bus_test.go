package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/segments/internal/core/event"
)

type hit struct{ Damage int }

func drain(q *event.Queue[hit]) []int {
	var out []int
	for {
		h, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, h.Damage)
	}
}

func TestEmitReachesEverySubscriber(t *testing.T) {
	b := event.NewBus()
	first := event.Subscribe[hit](b, 0)
	second := event.Subscribe[hit](b, 0)
	require.Equal(t, 2, event.Subscribers[hit](b))

	event.Emit(b, hit{1}, hit{2})
	event.Emit(b, hit{3})

	assert.Equal(t, []int{1, 2, 3}, drain(first))
	assert.Equal(t, 3, second.Len())
	assert.Equal(t, []int{1, 2, 3}, drain(second))
}

func TestKeepBoundsQueue(t *testing.T) {
	b := event.NewBus()
	last := event.Subscribe[hit](b, 1)

	event.Emit(b, hit{1}, hit{2}, hit{3})
	assert.Equal(t, []int{3}, drain(last))

	event.Emit(b, hit{4})
	event.Emit(b, hit{5})
	assert.Equal(t, []int{5}, drain(last))
}

func TestPopThenPushReusesBuffer(t *testing.T) {
	b := event.NewBus()
	q := event.Subscribe[hit](b, 0)
	event.Emit(b, hit{1}, hit{2})
	_, ok := q.Pop()
	require.True(t, ok)

	event.Emit(b, hit{3})
	assert.Equal(t, []int{2, 3}, drain(q))

	event.Emit(b, hit{4})
	q.Clear()
	assert.Zero(t, q.Len())
}
