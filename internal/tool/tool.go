// Package tool exposes the dispatcher as the ftp_manage tool.
package tool

import (
	"context"

	"ftp_control/internal/dispatcher"
	"ftp_control/internal/logger"
	"ftp_control/internal/metrics"
	"ftp_control/models"
)

// Name is the tool name advertised to the host.
const Name = "ftp_manage"

// Description is shown to the model choosing the tool.
const Description = "Interact with the file server: upload, download, delete, rename, mkdir or list. " +
	"Uploaded and renamed files are reported with their public URL."

// Executor runs one request.
type Executor interface {
	Execute(ctx context.Context, req models.ManageRequest) models.Outcome
}

var _ Executor = (*dispatcher.Dispatcher)(nil)

type Tool struct {
	exec    Executor
	channel Channel
	metrics *metrics.Metrics
	log     *logger.Logger
}

func New(exec Executor, channel Channel, m *metrics.Metrics, log *logger.Logger) *Tool {
	return &Tool{exec: exec, channel: channel, metrics: m, log: log}
}

// Invoke runs the request, sends its message to the channel and returns the
// outcome. Channel failures are logged and never change the outcome.
func (t *Tool) Invoke(ctx context.Context, req models.ManageRequest) models.Outcome {
	done := t.metrics.Track(operationLabel(req.Operation))
	out := t.exec.Execute(ctx, req)
	if out.OK {
		done("ok")
	} else {
		done(out.Error)
	}

	if t.channel != nil {
		if err := t.channel.Send(ctx, out.Message); err != nil {
			t.metrics.ChannelFailures.Inc()
			t.log.Service().WithError(err).Error("failed to deliver message")
		}
	}
	return out
}

func operationLabel(raw string) string {
	op, err := dispatcher.ParseOperation(raw)
	if err != nil {
		return "unsupported"
	}
	return op.String()
}
