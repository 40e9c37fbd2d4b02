package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Notifier is the account service's view of email notifications.  Both
// calls return immediately and report nothing back.
type Notifier interface {
	SendWelcome(email, name string)
	SendCancellation(email, name string)
}

// Sink delivers a single event, e.g. by publishing it to a broker or by
// handing it to a mailer.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

var dispatched = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "account_notifications_total",
		Help: "Notifications handed to the sink, by kind and result",
	},
	[]string{"kind", "result"},
)

// Async dispatches each event on its own goroutine.  Failures and panics
// in the sink are logged and counted, never returned.
type Async struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps sink.  Each delivery gets its own context bounded by
// timeout, detached from the request that triggered it.
func NewAsync(sink Sink, log *zap.Logger, timeout time.Duration) *Async {
	if log == nil {
		log = zap.NewNop()
	}
	return &Async{sink: sink, log: log, timeout: timeout}
}

func (a *Async) SendWelcome(email, name string) {
	a.dispatch(Event{Kind: KindWelcome, Email: email, Name: name, OccurredAt: time.Now().UTC()})
}

func (a *Async) SendCancellation(email, name string) {
	a.dispatch(Event{Kind: KindCancellation, Email: email, Name: name, OccurredAt: time.Now().UTC()})
}

func (a *Async) dispatch(ev Event) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.deliver(ev)
		if err != nil {
			dispatched.WithLabelValues(string(ev.Kind), "error").Inc()
			a.log.Warn("notification dropped",
				zap.String("kind", string(ev.Kind)),
				zap.String("email", ev.Email),
				zap.Error(err))
			return
		}
		dispatched.WithLabelValues(string(ev.Kind), "ok").Inc()
	}()
}

func (a *Async) deliver(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.sink.Deliver(ctx, ev)
}

// Wait blocks until every dispatched event finished or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
