package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wolfman30/medipulse/pkg/logging"
)

const (
	defaultReconnectBase = time.Second
	defaultReconnectMax  = time.Minute
)

// Watcher subscribes to a hub's feed and calls OnChange for every change
// event. Connection loss is retried with capped exponential backoff; polling
// keeps working in the meantime.
type Watcher struct {
	url      string
	header   http.Header
	onChange func(Event)
	dialer   *websocket.Dialer
	logger   *logging.Logger

	reconnectBase time.Duration
	reconnectMax  time.Duration
}

func NewWatcher(url string, onChange func(Event), logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		url:           url,
		onChange:      onChange,
		dialer:        websocket.DefaultDialer,
		logger:        logger,
		reconnectBase: defaultReconnectBase,
		reconnectMax:  defaultReconnectMax,
	}
}

// WithHeader sets headers sent on every dial (for example Authorization).
func (w *Watcher) WithHeader(h http.Header) *Watcher {
	w.header = h
	return w
}

// WithBackoff overrides the reconnect delays.
func (w *Watcher) WithBackoff(base, max time.Duration) *Watcher {
	if base > 0 {
		w.reconnectBase = base
	}
	if max > 0 {
		w.reconnectMax = max
	}
	return w
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	delay := w.reconnectBase
	for {
		connected := w.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			delay = w.reconnectBase
		}
		w.logger.Debug("realtime feed disconnected, retrying", "delay", delay.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > w.reconnectMax {
			delay = w.reconnectMax
		}
	}
}

// session holds one connection open and reports whether it got established.
func (w *Watcher) session(ctx context.Context) bool {
	conn, _, err := w.dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		w.logger.Debug("realtime dial failed", "url", w.url, "error", err)
		return false
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return true
		}
		if ev.Type == EventChanged && w.onChange != nil {
			w.onChange(ev)
		}
	}
}
