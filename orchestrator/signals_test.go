package orchestrator

import (
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testrun/cancellation"
	"github.com/ethereum-optimism/infra/op-testrun/exitcodes"
)

func TestSignalHandlerCancelsThenExits(t *testing.T) {
	token := cancellation.NewToken()
	var handlerRuns atomic.Int32
	token.OnCancel(func() { handlerRuns.Add(1) })

	exits := make(chan int, 4)
	h := NewSignalHandler(token, log.NewLogger(log.DiscardHandler()), func(code int) { exits <- code })

	signals := make(chan os.Signal, 4)
	h.Listen(signals)
	defer h.Stop()

	signals <- os.Interrupt
	signals <- syscall.SIGTERM

	select {
	case code := <-exits:
		assert.Equal(t, exitcodes.RuntimeErr, code)
	case <-time.After(time.Second):
		t.Fatal("handler did not exit")
	}

	assert.True(t, token.IsCancellationRequested())
	// the second signal has no further effect
	assert.Never(t, func() bool { return len(exits) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int32(1), handlerRuns.Load())
}

func TestSignalHandlerStopIsIdempotent(t *testing.T) {
	h := NewSignalHandler(cancellation.NewToken(), nil, func(int) {})
	h.Start()
	require.NotPanics(t, func() {
		h.Stop()
		h.Stop()
	})
}
