package engine

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/feedhider/engine/internal/sink"
)

// Sink is the output interface for engine events.
type Sink = sink.Sink

// EventFunc is called for each event.
type EventFunc = sink.EventFunc

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn EventFunc) Sink {
	return sink.NewCallback(fn)
}

// SinksFromConfig builds the sinks listed in cfg. stdout is w.
func SinksFromConfig(cfg []SinkConfig, w io.Writer, logger *slog.Logger) []Sink {
	out := make([]Sink, 0, len(cfg))
	for _, sc := range cfg {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(w))
		case "webhook":
			out = append(out, NewWebhookSink(sc.URL, logger))
		}
	}
	return out
}
