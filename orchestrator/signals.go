package orchestrator

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testrun/cancellation"
	"github.com/ethereum-optimism/infra/op-testrun/exitcodes"
)

// TerminationSignals are the signals hooked for the lifetime of a run
var TerminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalHandler requests cancellation on the first termination signal and
// then exits the process. Later signals are ignored.
type SignalHandler struct {
	token *cancellation.Token
	log   log.Logger
	exit  func(code int)

	once     sync.Once
	stopOnce sync.Once
	signals  chan os.Signal
	done     chan struct{}
}

// NewSignalHandler creates a handler. exit defaults to os.Exit.
func NewSignalHandler(token *cancellation.Token, logger log.Logger, exit func(code int)) *SignalHandler {
	if logger == nil {
		logger = log.New()
	}
	if exit == nil {
		exit = os.Exit
	}
	return &SignalHandler{
		token: token,
		log:   logger,
		exit:  exit,
		done:  make(chan struct{}),
	}
}

// Start hooks the process termination signals
func (h *SignalHandler) Start() {
	h.signals = make(chan os.Signal, 2)
	signal.Notify(h.signals, TerminationSignals...)
	h.Listen(h.signals)
}

// Listen handles signals delivered on ch until Stop is called
func (h *SignalHandler) Listen(ch <-chan os.Signal) {
	go func() {
		for {
			select {
			case sig := <-ch:
				h.handle(sig)
			case <-h.done:
				return
			}
		}
	}()
}

// Stop unhooks the signals. It is safe to call more than once.
func (h *SignalHandler) Stop() {
	h.stopOnce.Do(func() {
		if h.signals != nil {
			signal.Stop(h.signals)
		}
		close(h.done)
	})
}

func (h *SignalHandler) handle(sig os.Signal) {
	first := false
	h.once.Do(func() {
		first = true
		h.log.Warn("Received termination signal, cancelling test run", "signal", sig)
		go func() {
			<-h.token.AsyncCancel()
			h.exit(exitcodes.RuntimeErr)
		}()
	})
	if !first {
		h.log.Debug("Ignoring repeated termination signal", "signal", sig)
	}
}
