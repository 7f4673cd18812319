package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "chartfeed/pkg/logger"
)

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c *closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestRunContextLifecycle(t *testing.T) {
	var order []string
	stopped := make(chan struct{})

	app := New(applogger.Nop(), nil,
		WithBackground("sweeper", func(ctx context.Context) {
			<-ctx.Done()
			close(stopped)
		}),
		WithCloser("source", &closeRecorder{name: "source", order: &order}),
		WithCloser("cache", &closeRecorder{name: "cache", order: &order, err: errors.New("already closed")}),
		WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}

	select {
	case <-stopped:
	default:
		t.Fatal("background task still running after shutdown")
	}
	assert.Equal(t, []string{"cache", "source"}, order)
}

func TestOptionsIgnoreNil(t *testing.T) {
	app := New(applogger.Nop(), nil,
		WithConsumer(nil),
		WithBackground("noop", nil),
		WithCloser("nil", nil),
		WithShutdownTimeout(0),
	)
	assert.Nil(t, app.consumer)
	assert.Empty(t, app.background)
	assert.Empty(t, app.closers)
	assert.Equal(t, 15*time.Second, app.shutdownTimeout)
}
