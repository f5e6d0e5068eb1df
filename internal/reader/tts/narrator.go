package tts

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Narrator runs an Engine one utterance at a time and reports each
// outcome to a single subscriber.
type Narrator struct {
	engine Engine
	log    logrus.FieldLogger

	mu       sync.Mutex
	listener Listener
	subID    uint64
	current  *inflight
	closed   bool
	wg       sync.WaitGroup
}

func NewNarrator(engine Engine, log logrus.FieldLogger) *Narrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Narrator{
		engine: engine,
		log:    log.WithField("engine", engine.Name()),
	}
}

func (n *Narrator) Engine() Engine {
	return n.engine
}

// Subscribe registers the listener for reports. Only one listener may be
// registered; the returned func releases it and is safe to call twice.
func (n *Narrator) Subscribe(l Listener) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrClosed
	}
	if n.listener != nil {
		return nil, ErrBackendInUse
	}
	n.subID++
	id := n.subID
	n.listener = l

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if n.subID == id {
				n.listener = nil
			}
		})
	}, nil
}

// Speak starts u in the background, cancelling whatever is still being spoken.
// The new utterance does not reach the engine until the previous one has returned.
func (n *Narrator) Speak(u Utterance) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	prev := n.current
	if prev != nil {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cur := &inflight{gen: u.Generation, cancel: cancel, done: make(chan struct{})}
	n.current = cur

	n.wg.Add(1)
	go n.run(ctx, cur, prev, u)
	return nil
}

func (n *Narrator) run(ctx context.Context, cur, prev *inflight, u Utterance) {
	defer n.wg.Done()
	defer close(cur.done)
	defer cur.cancel()

	if prev != nil {
		<-prev.done
	}

	var err error
	if ctx.Err() == nil {
		err = n.engine.Speak(ctx, u.Text, u.Options)
	}

	report := Report{Generation: u.Generation}
	switch {
	case ctx.Err() != nil:
		report.Outcome = OutcomeStopped
	case err != nil:
		report.Outcome = OutcomeError
		report.Err = err
	default:
		report.Outcome = OutcomeDone
	}

	n.mu.Lock()
	if n.current == cur {
		n.current = nil
	}
	l := n.listener
	n.mu.Unlock()

	n.log.WithFields(logrus.Fields{
		"generation": u.Generation,
		"outcome":    report.Outcome,
	}).Debug("utterance finished")

	if l != nil {
		l(report)
	}
}

// Cancel stops the utterance in flight, if any. Its report arrives asynchronously.
func (n *Narrator) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil {
		n.current.cancel()
	}
}

// Close cancels narration and waits for every utterance goroutine to report.
func (n *Narrator) Close() error {
	n.mu.Lock()
	n.closed = true
	if n.current != nil {
		n.current.cancel()
	}
	n.mu.Unlock()

	n.wg.Wait()
	if c, ok := n.engine.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var _ Backend = (*Narrator)(nil)
