package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/command"
	"github.com/theirongolddev/qview/internal/correlator"
	"github.com/theirongolddev/qview/internal/logging"
)

// Connect asks the worker to open a session to url.
func (w *Worker) Connect(url string, connOpts, sessOpts broker.Options) error {
	return w.commands.Push(command.Command{
		Kind:              command.Connect,
		URL:               url,
		ConnectionOptions: connOpts,
		SessionOptions:    sessOpts,
	})
}

// ConnectURL is Connect with options in their "{key:value, ...}" string form.
func (w *Worker) ConnectURL(url, connOpts, sessOpts string) error {
	conn, err := broker.ParseOptions(connOpts)
	if err != nil {
		return fmt.Errorf("connection options: %w", err)
	}
	sess, err := broker.ParseOptions(sessOpts)
	if err != nil {
		return fmt.Errorf("session options: %w", err)
	}
	return w.Connect(url, conn, sess)
}

// ConnectLocalhost connects to the broker on this host with default options.
func (w *Worker) ConnectLocalhost() error {
	return w.ConnectURL(broker.DefaultURL, "", broker.DefaultSessionOptions)
}

// Disconnect closes the session and connection.
func (w *Worker) Disconnect() error {
	return w.commands.Push(command.Command{Kind: command.Disconnect})
}

// PauseRefreshes suspends or resumes the periodic queue poll.
func (w *Worker) PauseRefreshes(paused bool) error {
	return w.commands.Push(command.Command{Kind: command.Pause, Paused: paused})
}

// GetQueueHeaders fetches the header of every message on queue.
func (w *Worker) GetQueueHeaders(queue string) error {
	return w.commands.Push(command.Command{Kind: command.FetchHeaders, Queue: queue})
}

// RemoveMessage removes the message args identifies from queue.
func (w *Worker) RemoveMessage(queue string, args broker.Map) error {
	return w.commands.Push(command.Command{Kind: command.RemoveMessage, Queue: queue, Args: args})
}

// Purge removes count messages from the head of the queue at addr; zero
// removes all of them.
func (w *Worker) Purge(queue string, addr broker.DataAddr, count uint64) error {
	return w.commands.Push(command.Command{Kind: command.Purge, Queue: queue, Addr: addr, Count: count})
}

// FetchBody requests a message body; the answer arrives as a BodyMsg.
func (w *Worker) FetchBody(args broker.Map, contentType string) error {
	return w.commands.Push(command.Command{Kind: command.FetchBody, Args: args, ContentType: contentType})
}

// FetchBodySync fetches a message body and waits for it.
func (w *Worker) FetchBodySync(ctx context.Context, args broker.Map, contentType string) (command.BodyReply, error) {
	reply := make(chan command.BodyReply, 1)
	err := w.commands.Push(command.Command{
		Kind:        command.FetchBody,
		Args:        args,
		ContentType: contentType,
		Reply:       reply,
	})
	if err != nil {
		return command.BodyReply{}, ErrTerminated
	}
	select {
	case r := <-reply:
		return r, r.Err
	case <-ctx.Done():
		return command.BodyReply{}, ctx.Err()
	case <-w.done:
		// The loop may have answered just before exiting.
		select {
		case r := <-reply:
			return r, r.Err
		default:
			return command.BodyReply{}, ErrTerminated
		}
	}
}

// fetchHeaders lists the message ids on a queue, then requests each header
// asynchronously under a fresh header epoch.
func (w *Worker) fetchHeaders(ctx context.Context, cmd command.Command) {
	obj, err := w.brokerObject()
	if err != nil {
		w.headerListFailed(cmd.Queue, err)
		return
	}
	out, err := w.sess.CallMethod(ctx, obj.Addr, "queueGetIdList", broker.Map{"name": cmd.Queue})
	if err != nil {
		w.headerListFailed(cmd.Queue, fmt.Errorf("listing messages on %s: %w", cmd.Queue, err))
		return
	}

	var ids []uint64
	for _, v := range out.List("ids") {
		if id, ok := broker.ToUint64(v); ok {
			ids = append(ids, id)
		}
	}
	w.headerEpoch++
	epoch := w.headerEpoch
	queue := cmd.Queue
	w.mailbox.Post(HeaderIDsMsg{Queue: queue, Epoch: epoch, IDs: ids})

	for _, id := range ids {
		id := id
		args := broker.Map{"name": queue, "id": id}
		call := &correlator.PendingCall{
			Method: "queueGetMessageHeader",
			Args:   args,
			Then: func(result broker.Map) {
				w.mailbox.Post(HeadersMsg{Queue: queue, ID: id, Epoch: epoch, Header: headerOf(result), Args: args})
			},
			Failed: func(err error) {
				w.mailbox.Post(HeadersMsg{Queue: queue, ID: id, Epoch: epoch, Args: args, Err: err})
			},
		}
		if err := w.issue(call, obj.Addr); err != nil {
			call.Failed(err)
		}
	}
}

// headerOf pulls the header map out of a queueGetMessageHeader result.
func headerOf(result broker.Map) broker.Map {
	if h := result.Map("header"); h != nil {
		return h
	}
	for _, k := range result.Keys() {
		if h := broker.AsMap(result[k]); h != nil {
			return h
		}
	}
	return broker.Map{}
}

func (w *Worker) removeMessage(cmd command.Command) {
	args := cmd.Args.Clone()
	if args == nil {
		args = broker.Map{}
	}
	if cmd.Queue != "" {
		args["name"] = cmd.Queue
	}
	queue := args.String("name")
	obj, err := w.brokerObject()
	if err != nil {
		w.fail(err)
		w.mailbox.Post(MessageRemovedMsg{Queue: queue, Args: args, Err: err})
		return
	}
	call := &correlator.PendingCall{
		Method: "queueRemoveMessage",
		Args:   args,
		Then: func(broker.Map) {
			w.mailbox.Post(MessageRemovedMsg{Queue: queue, Args: args})
		},
		Failed: func(err error) {
			w.mailbox.Post(MessageRemovedMsg{Queue: queue, Args: args, Err: err})
		},
	}
	if err := w.issue(call, obj.Addr); err != nil {
		w.fail(err)
		call.Failed(err)
	}
}

func (w *Worker) purge(ctx context.Context, cmd command.Command) {
	if w.sess == nil {
		w.fail(broker.ErrNotConnected)
		w.mailbox.Post(PurgedMsg{Queue: cmd.Queue, Count: cmd.Count, Err: broker.ErrNotConnected})
		return
	}
	addr := cmd.Addr
	if addr.IsZero() {
		addr = broker.DataAddr{Agent: w.sess.BrokerAgent(), Name: cmd.Queue, Class: broker.ClassQueue}
	}
	_, err := w.sess.CallMethod(ctx, addr, "purge", broker.Map{"request": cmd.Count})
	if err != nil {
		err = fmt.Errorf("purging %s: %w", cmd.Queue, err)
		w.fail(err)
	} else {
		w.logger.Info("purged queue", slog.String("queue", cmd.Queue), slog.Uint64("count", cmd.Count))
	}
	w.mailbox.Post(PurgedMsg{Queue: cmd.Queue, Count: cmd.Count, Err: err})
}

func (w *Worker) fetchBody(cmd command.Command) {
	args := cmd.Args.Clone()
	queue := args.String("name")
	id, _ := args.Uint64("id")
	obj, err := w.brokerObject()
	if err != nil {
		w.mailbox.Post(BodyMsg{Queue: queue, ID: id, Args: args, ContentType: cmd.ContentType, Err: err})
		return
	}
	call := &correlator.PendingCall{
		Method: "getBody",
		Args:   args,
		Then: func(result broker.Map) {
			body := result["body"]
			w.mailbox.Post(BodyMsg{
				Queue:       queue,
				ID:          id,
				Args:        args,
				Body:        body,
				ContentType: cmd.ContentType,
				Text:        broker.DecodeBody(body, cmd.ContentType),
			})
		},
		Failed: func(err error) {
			w.mailbox.Post(BodyMsg{Queue: queue, ID: id, Args: args, ContentType: cmd.ContentType, Err: err})
		},
	}
	if err := w.issue(call, obj.Addr); err != nil {
		call.Failed(err)
	}
}

func (w *Worker) fetchBodySync(ctx context.Context, cmd command.Command) {
	obj, err := w.brokerObject()
	if err != nil {
		cmd.Reply <- command.BodyReply{ContentType: cmd.ContentType, Err: err}
		return
	}
	out, err := w.sess.CallMethod(ctx, obj.Addr, "getBody", cmd.Args)
	if err != nil {
		cmd.Reply <- command.BodyReply{ContentType: cmd.ContentType, Err: err}
		return
	}
	cmd.Reply <- command.BodyReply{Body: out["body"], ContentType: cmd.ContentType}
}

// issue sends an asynchronous method call on the broker object and records
// its continuation.
func (w *Worker) issue(call *correlator.PendingCall, addr broker.DataAddr) error {
	_, err := w.calls.Register(call, func() (uint32, error) {
		return w.sess.CallMethodAsync(addr, call.Method, call.Args)
	})
	if err != nil {
		w.logger.Warn("async call failed", slog.String("method", call.Method), logging.Err(err))
	}
	return err
}

// headerListFailed reports a header fetch that never got its id list. The
// header epoch is not advanced.
func (w *Worker) headerListFailed(queue string, err error) {
	w.fail(err)
	w.mailbox.Post(HeaderIDsMsg{Queue: queue, Epoch: w.headerEpoch, Err: err})
}

// fail reports a request that could not be carried out.
func (w *Worker) fail(err error) {
	w.logger.Debug("request failed", logging.Err(err))
	w.mailbox.Post(ErrorMsg{Text: err.Error()})
}
