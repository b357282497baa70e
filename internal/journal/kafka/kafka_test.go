package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"mau/internal/mau"
)

// newTestJournal builds a Journal around sarama's in-memory mock async
// producer instead of calling New, so the test never dials a broker.
func newTestJournal(t *testing.T) (*Journal, *mocks.AsyncProducer) {
	t.Helper()
	producer := mocks.NewAsyncProducer(t, nil)
	t.Cleanup(func() { _ = producer.Close() })
	return &Journal{async: producer, topic: "mau.game.events"}, producer
}

func TestJournalAddBuffersWithoutTouchingProducer(t *testing.T) {
	j, _ := newTestJournal(t)

	j.Add(mau.Event{Kind: mau.EventGameTurn, GameID: "room1", PlayerID: "u1", Ts: 1})
	j.Add(mau.Event{Kind: mau.EventGameTurn, GameID: "room1", PlayerID: "u2", Ts: 2})

	require.Len(t, j.pending, 2)
}

func TestJournalSendOnEmptyBufferIsNoop(t *testing.T) {
	j, _ := newTestJournal(t)
	require.NoError(t, j.Send(context.Background()))
}

func TestJournalSendFlushesPendingToProducer(t *testing.T) {
	j, producer := newTestJournal(t)
	producer.ExpectInputAndSucceed()
	producer.ExpectInputAndSucceed()

	j.Add(mau.Event{Kind: mau.EventGameTurn, GameID: "room1", PlayerID: "u1", Ts: 1})
	j.Add(mau.Event{Kind: mau.EventGameEnd, GameID: "room1", Ts: 2})

	require.NoError(t, j.Send(context.Background()))
	require.Empty(t, j.pending)

	stats := j.Stats()
	require.Equal(t, int64(2), stats.EventsSent)
}

func TestJournalSendRespectsContextCancellation(t *testing.T) {
	j, _ := newTestJournal(t)
	j.Add(mau.Event{Kind: mau.EventGameTurn, GameID: "room1", PlayerID: "u1", Ts: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The context is already cancelled, so Send must return its error
	// before handing anything to the producer (the mock has no
	// ExpectInput set up) and must not block.
	done := make(chan error, 1)
	go func() { done <- j.Send(ctx) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not respect context cancellation")
	}
}
