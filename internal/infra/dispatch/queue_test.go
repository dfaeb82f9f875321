package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
)

func TestImmediateQueueDeliversAfterCallerCancels(t *testing.T) {
	got := make(chan evaluation.Delivery, 1)
	ctxErr := make(chan error, 1)
	q := NewImmediateQueue(func(ctx context.Context, d evaluation.Delivery) {
		ctxErr <- ctx.Err()
		got <- d
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Dispatch(ctx, evaluation.Delivery{BundleID: "b1"}))
	cancel()

	select {
	case d := <-got:
		require.Equal(t, "b1", d.BundleID)
		require.NoError(t, <-ctxErr)
	case <-time.After(time.Second):
		t.Fatal("delivery not handled")
	}
}

func TestImmediateQueueWithoutHandler(t *testing.T) {
	q := NewImmediateQueue(nil)
	require.NoError(t, q.Dispatch(context.Background(), evaluation.Delivery{}))
	q.Close()
}
