package worker

import (
	"context"
	"log/slog"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/logging"
)

// dispatch routes one inbound event by its type.
func (w *Worker) dispatch(ctx context.Context, ev broker.Event) {
	switch ev.Type {
	case broker.EventAgentAdded:
		w.agentAdded(ctx, ev)
	case broker.EventAgentDeleted:
		if ev.Agent == w.sess.BrokerAgent() {
			w.logger.Warn("broker agent went away", slog.String("agent", ev.Agent))
			w.brokerObj = nil
		}
	case broker.EventQueryResponse:
		w.queryResponse(ev)
	case broker.EventMethodResponse:
		call, ok := w.calls.Resolve(ev.Correlator)
		if !ok {
			w.logger.Debug("unmatched method response", slog.Uint64("correlator", uint64(ev.Correlator)))
			return
		}
		if call.Then != nil {
			call.Then(ev.Arguments)
		}
	case broker.EventException:
		w.exception(ev)
	default:
		w.logger.Debug("ignoring event", slog.String("type", ev.Type.String()))
	}
}

func (w *Worker) agentAdded(ctx context.Context, ev broker.Event) {
	if ev.Agent != w.sess.BrokerAgent() {
		return
	}
	data, err := w.sess.Query(ctx, ev.Agent, broker.BrokerQuery)
	switch {
	case err != nil:
		w.logger.Warn("broker object query failed", logging.Err(err))
		w.brokerObj = nil
	case len(data) != 1:
		w.logger.Warn("broker object not unique", slog.Int("count", len(data)))
		w.brokerObj = nil
	default:
		obj := data[0]
		w.brokerObj = &obj
	}
	w.requestQueues()
}

// requestQueues starts a poll cycle.
func (w *Worker) requestQueues() {
	if w.sess == nil {
		return
	}
	w.epoch++
	cor, err := w.sess.QueryAsync(w.sess.BrokerAgent(), broker.QueueQuery)
	if err != nil {
		w.logger.Warn("queue query failed", logging.Err(err))
		w.mailbox.Post(ErrorMsg{Text: err.Error()})
		return
	}
	w.queryEpochs[cor] = w.epoch
	// Responses that never came would otherwise pile up.
	for c, e := range w.queryEpochs {
		if e+staleEpochs < w.epoch {
			delete(w.queryEpochs, c)
		}
	}
}

const staleEpochs = 16

func (w *Worker) queryResponse(ev broker.Event) {
	epoch, ok := w.queryEpochs[ev.Correlator]
	if ok {
		delete(w.queryEpochs, ev.Correlator)
	} else {
		epoch = w.epoch
	}
	for _, obj := range ev.Data {
		w.mailbox.Post(ObjectMsg{Object: obj, Epoch: epoch})
	}
	w.mailbox.Post(BatchCompleteMsg{Epoch: epoch})
}

func (w *Worker) exception(ev broker.Event) {
	text := ev.ErrorText()
	if text == "" {
		text = "broker exception"
	}
	w.logger.Warn("broker exception", slog.String("text", text), slog.Uint64("correlator", uint64(ev.Correlator)))
	w.mailbox.Post(ErrorMsg{Text: text})

	if ev.Correlator == 0 {
		return
	}
	delete(w.queryEpochs, ev.Correlator)
	if call, ok := w.calls.Resolve(ev.Correlator); ok && call.Failed != nil {
		call.Failed(&broker.Fault{Text: text})
	}
}
