package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// Constants for Router configuration
const (
	// DefaultMailboxSize is the number of messages queued per user before the router blocks.
	DefaultMailboxSize = 16
	// DefaultMailboxIdle is how long an empty mailbox worker lingers before exiting.
	DefaultMailboxIdle = 2 * time.Minute
	// DefaultErrorMessage is sent when the engine fails to handle a message.
	DefaultErrorMessage = "Sorry, something went wrong. Please try again."
)

// MessageHandler processes one chat message and returns the reply.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg models.Message) (models.Reply, error)
}

// RouterOpts holds configuration for the Router.
type RouterOpts struct {
	MailboxSize int
	MailboxIdle time.Duration
}

// RouterOption defines a functional option for configuring the Router.
type RouterOption func(*RouterOpts)

// WithMailboxSize sets the per-user queue length.
func WithMailboxSize(n int) RouterOption {
	return func(o *RouterOpts) {
		if n > 0 {
			o.MailboxSize = n
		}
	}
}

// WithMailboxIdle sets how long an idle per-user worker is kept.
func WithMailboxIdle(d time.Duration) RouterOption {
	return func(o *RouterOpts) {
		if d > 0 {
			o.MailboxIdle = d
		}
	}
}

// Router delivers inbound messages from a Service to a MessageHandler.
// Messages of one user are handled in arrival order by a dedicated worker;
// different users are handled in parallel.
type Router struct {
	msgService Service
	handler    MessageHandler
	opts       RouterOpts

	mu        sync.Mutex
	mailboxes map[string]chan models.Response
	wg        sync.WaitGroup
}

// NewRouter creates a new Router for the given messaging service and handler.
func NewRouter(msgService Service, handler MessageHandler, opts ...RouterOption) *Router {
	cfg := RouterOpts{
		MailboxSize: DefaultMailboxSize,
		MailboxIdle: DefaultMailboxIdle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Router{
		msgService: msgService,
		handler:    handler,
		opts:       cfg,
		mailboxes:  make(map[string]chan models.Response),
	}
}

// Start begins consuming responses and receipts from the messaging service.
// It returns immediately; processing stops when ctx is cancelled or the
// service closes its channels.
func (r *Router) Start(ctx context.Context) {
	slog.Info("Router starting response processing")

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer slog.Info("Router stopped response processing")
		for {
			select {
			case response, ok := <-r.msgService.Responses():
				if !ok {
					slog.Debug("Router responses channel closed")
					return
				}
				r.dispatch(ctx, response)
			case <-ctx.Done():
				slog.Debug("Router stopping due to context cancellation")
				return
			}
		}
	}()

	go func() {
		defer r.wg.Done()
		for {
			select {
			case receipt, ok := <-r.msgService.Receipts():
				if !ok {
					return
				}
				slog.Debug("Router receipt", "to", receipt.To, "status", receipt.Status)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the router and all mailbox workers have exited.
func (r *Router) Wait() {
	r.wg.Wait()
}

// dispatch queues a response on its user's mailbox, starting a worker if needed.
func (r *Router) dispatch(ctx context.Context, response models.Response) {
	canonical, err := r.canonicalize(response)
	if err != nil {
		slog.Warn("Router dropping response with invalid sender", "error", err, "from", response.From)
		return
	}
	key := canonical.Owner()

	r.mu.Lock()
	defer r.mu.Unlock()
	box, ok := r.mailboxes[key]
	if !ok {
		box = make(chan models.Response, r.opts.MailboxSize)
		r.mailboxes[key] = box
		r.wg.Add(1)
		go r.worker(ctx, key, box)
	}
	select {
	case box <- response:
	case <-ctx.Done():
	}
}

func (r *Router) worker(ctx context.Context, key string, box chan models.Response) {
	defer r.wg.Done()
	idle := time.NewTimer(r.opts.MailboxIdle)
	defer idle.Stop()

	for {
		select {
		case response := <-box:
			if err := r.ProcessResponse(ctx, response); err != nil {
				slog.Error("Router failed to process response", "error", err, "from", response.From)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.opts.MailboxIdle)
		case <-idle.C:
			r.mu.Lock()
			if len(box) == 0 {
				delete(r.mailboxes, key)
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()
			idle.Reset(r.opts.MailboxIdle)
		case <-ctx.Done():
			r.mu.Lock()
			delete(r.mailboxes, key)
			r.mu.Unlock()
			return
		}
	}
}

// canonicalize rewrites From into the service's canonical address, so that
// Owner names the same user however the sender was spelled.
func (r *Router) canonicalize(response models.Response) (models.Response, error) {
	to, err := r.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		return response, err
	}
	response.From = to
	return response, nil
}

// ProcessResponse handles one response synchronously: the message goes to the
// handler and its reply, or an apology on failure, goes back to the sender.
func (r *Router) ProcessResponse(ctx context.Context, response models.Response) error {
	canonical, err := r.canonicalize(response)
	if err != nil {
		slog.Error("Router ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}
	to, userID := canonical.From, canonical.Owner()

	msg := NewMessage(userID, response.Body)
	slog.Debug("Router processing response", "userID", userID, "command", msg.Command, "body_length", len(response.Body))

	reply, err := r.handler.HandleMessage(ctx, msg)
	if err != nil {
		slog.Error("Router handler failed", "error", err, "userID", userID)
		if sendErr := r.msgService.SendMessage(ctx, to, DefaultErrorMessage); sendErr != nil {
			slog.Error("Router failed to send error message", "error", sendErr, "to", to)
		}
		return fmt.Errorf("handler failed: %w", err)
	}

	if reply.Text == "" {
		slog.Debug("Router handler produced no reply", "userID", userID)
		return nil
	}
	if err := r.msgService.SendMessage(ctx, to, reply.Text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	slog.Debug("Router reply sent", "userID", userID, "next", reply.Next)
	return nil
}

// ActiveMailboxes returns the number of users with a live worker.
func (r *Router) ActiveMailboxes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mailboxes)
}
