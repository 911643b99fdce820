package advisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Fixed sampling parameters sent with every request.
const (
	temperature    = 1
	topP           = 1
	responseFormat = "text"
)

// Request is a single chat-completion call as the transport sees it.
type Request struct {
	Model          string
	Messages       []Message
	Temperature    float32
	TopP           float32
	ResponseFormat string
}

// Transport performs one chat-completion call and returns the candidate
// texts in the order the service ranked them.
type Transport interface {
	CreateCompletion(ctx context.Context, req Request) ([]string, error)
}

// Recorder receives one observation per completion call.
type Recorder interface {
	ObserveAdvisorReply(outcome string, elapsed time.Duration)
}

type Config struct {
	Model string
	// Timeout bounds every call. Zero leaves the deadline to the transport.
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder Recorder
}

// Advisor answers fitness questions through a hosted chat model. It never
// reports failure to its caller: every path ends in a non-empty reply.
type Advisor struct {
	transport Transport
	model     string
	timeout   time.Duration
	log       *zap.Logger
	recorder  Recorder
}

func New(t Transport, cfg Config) *Advisor {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Advisor{
		transport: t,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		log:       log,
		recorder:  cfg.Recorder,
	}
}

// Ask builds the context for newMessage on top of history and completes it.
func (a *Advisor) Ask(ctx context.Context, history []Turn, newMessage string) string {
	return a.Complete(ctx, BuildContext(history, newMessage))
}

// Complete submits messages to the model and returns its reply, or one of the
// fallback texts when the call did not produce one.
func (a *Advisor) Complete(ctx context.Context, messages []Message) string {
	start := time.Now()
	res := a.call(ctx, messages)
	elapsed := time.Since(start)

	switch res.Outcome {
	case OutcomeSucceeded:
		a.log.Debug("completion succeeded",
			zap.String("model", a.model),
			zap.Duration("elapsed", elapsed))
	case OutcomeEmpty:
		a.log.Warn("completion returned no candidates",
			zap.String("model", a.model),
			zap.Duration("elapsed", elapsed))
	case OutcomeTimedOut:
		a.log.Warn("completion timed out",
			zap.String("model", a.model),
			zap.Duration("budget", a.timeout),
			zap.Duration("elapsed", elapsed),
			zap.Error(res.Err))
	default:
		fields := []zap.Field{
			zap.String("model", a.model),
			zap.Duration("elapsed", elapsed),
			zap.Error(res.Err),
			zap.Stack("stack"),
		}
		a.log.Error("completion failed", append(fields, errorFields(res.Err)...)...)
	}

	if a.recorder != nil {
		a.recorder.ObserveAdvisorReply(string(res.Outcome), elapsed)
	}
	return res.Reply()
}

// call makes exactly one transport attempt.
func (a *Advisor) call(ctx context.Context, messages []Message) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeFailed, Err: fmt.Errorf("transport panic: %v", r)}
		}
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	candidates, err := a.transport.CreateCompletion(ctx, Request{
		Model:          a.model,
		Messages:       messages,
		Temperature:    temperature,
		TopP:           topP,
		ResponseFormat: responseFormat,
	})
	return resultOf(candidates, err)
}
