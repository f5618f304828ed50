package emitter

import (
	"context"
	"fmt"
	"net/http"

	"link-runtime/internal/biz"
	"link-runtime/internal/conf"
	"link-runtime/internal/infra/awsconf"
	"link-runtime/internal/infra/eventbus"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	dapr "github.com/dapr/go-sdk/client"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is emitter providers.
var ProviderSet = wire.NewSet(
	NewSink,
	NewEmitter,
	wire.Bind(new(biz.ClickSink), new(*Emitter)),
)

// NewSink builds the sink selected by c.Sink.
func NewSink(c *conf.Emitter, bus *eventbus.EventBus, logger log.Logger) (Sink, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "emitter"))
	noCleanup := func() {}

	switch c.Sink {
	case conf.SinkHTTP:
		return NewHTTPSink(&http.Client{}, c.Endpoint), noCleanup, nil
	case conf.SinkDapr:
		client, err := dapr.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("create dapr client: %w", err)
		}
		return NewDaprSink(client, c.Dapr.PubSub, c.Dapr.Topic), func() {
			helper.Info("closing dapr client")
			client.Close()
		}, nil
	case conf.SinkSQS:
		client, err := newSQSClient(context.Background(), c.SQS)
		if err != nil {
			return nil, nil, err
		}
		return NewSQSSink(client, c.SQS.QueueURL), noCleanup, nil
	case conf.SinkBus:
		return NewBusSink(bus), noCleanup, nil
	case conf.SinkNoop:
		return NoopSink{}, noCleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown emitter sink %q", c.Sink)
	}
}

func newSQSClient(ctx context.Context, c conf.SQS) (*sqs.Client, error) {
	cfg, err := awsconf.Load(ctx, c.Region, c.Endpoint)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		o.BaseEndpoint = awsconf.Endpoint(c.Endpoint)
	}), nil
}
