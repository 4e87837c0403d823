package dispatch

import (
	"testing"
	"time"

	"github.com/joeycumines/planpool/internal/goap"
	"github.com/stretchr/testify/require"
)

func testItem(seq uint64) *WorkItem {
	return newWorkItem(seq, goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
}

func TestPendingQueue_FIFO(t *testing.T) {
	q := newPendingQueue()
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, q.push(testItem(i)))
	}
	require.Equal(t, 5, q.len())
	for i := uint64(1); i <= 5; i++ {
		item, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, item.Seq())
	}
	require.Equal(t, 0, q.len())
}

func TestPendingQueue_Compaction(t *testing.T) {
	q := newPendingQueue()
	const n = 3 * compactThreshold
	for i := uint64(1); i <= n; i++ {
		require.NoError(t, q.push(testItem(i)))
	}
	for i := uint64(1); i <= 2*compactThreshold; i++ {
		item, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, item.Seq())
	}
	require.Equal(t, compactThreshold, q.len())
	require.Less(t, q.head, compactThreshold)

	// interleave pushes with the remaining pops
	require.NoError(t, q.push(testItem(n+1)))
	for i := uint64(2*compactThreshold + 1); i <= n+1; i++ {
		item, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, item.Seq())
	}
	require.Equal(t, 0, q.len())
}

func TestPendingQueue_PopBlocksUntilPush(t *testing.T) {
	q := newPendingQueue()
	got := make(chan *WorkItem, 1)
	go func() {
		item, _ := q.pop()
		got <- item
	}()

	select {
	case <-got:
		t.Fatal("pop returned on an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.push(testItem(7)))
	select {
	case item := <-got:
		require.Equal(t, uint64(7), item.Seq())
	case <-time.After(5 * time.Second):
		t.Fatal("pop was not woken by push")
	}
}

func TestPendingQueue_CloseReleasesWaiters(t *testing.T) {
	q := newPendingQueue()
	const waiters = 4
	released := make(chan bool, waiters)
	for range waiters {
		go func() {
			_, ok := q.pop()
			released <- ok
		}()
	}
	q.close()
	for range waiters {
		select {
		case ok := <-released:
			require.False(t, ok)
		case <-time.After(5 * time.Second):
			t.Fatal("close did not release a blocked pop")
		}
	}
}

func TestPendingQueue_ClosedRejectsAndStrands(t *testing.T) {
	q := newPendingQueue()
	require.NoError(t, q.push(testItem(1)))
	q.close()
	require.ErrorIs(t, q.push(testItem(2)), ErrStopped)
	_, ok := q.pop()
	require.False(t, ok)
	require.Equal(t, 1, q.len())
}

func TestDoneList_TakeAll(t *testing.T) {
	var d doneList
	require.Empty(t, d.takeAll())

	d.append(testItem(1))
	d.append(testItem(2))
	require.Equal(t, 2, d.len())

	batch := d.takeAll()
	require.Len(t, batch, 2)
	require.Equal(t, uint64(1), batch[0].Seq())
	require.Equal(t, uint64(2), batch[1].Seq())
	require.Equal(t, 0, d.len())

	d.append(testItem(3))
	require.Len(t, batch, 2)
	require.Len(t, d.takeAll(), 1)
}
