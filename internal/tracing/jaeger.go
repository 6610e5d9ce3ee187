package tracing

import (
	"io"
	"net"
	"sort"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-client-go/log/zap"

	"github.com/customeros/mailsync/internal/logger"
)

// JaegerConfig is disabled by default so local runs and tests need no agent.
type JaegerConfig struct {
	Endpoint     string            `env:"JAEGER_ENDPOINT"`
	ServiceName  string            `env:"JAEGER_SERVICE_NAME" envDefault:"mailsync"`
	AgentHost    string            `env:"JAEGER_AGENT_HOST" envDefault:"localhost"`
	AgentPort    string            `env:"JAEGER_AGENT_PORT" envDefault:"6831"`
	Enabled      bool              `env:"JAEGER_ENABLED" envDefault:"false"`
	LogSpans     bool              `env:"JAEGER_REPORTER_LOG_SPANS" envDefault:"false"`
	SamplerType  string            `env:"JAEGER_SAMPLER_TYPE" envDefault:"const"`
	SamplerParam float64           `env:"JAEGER_SAMPLER_PARAM" envDefault:"1"`
	Tags         map[string]string `env:"JAEGER_TAGS"` // pod:mailsync-0,region:eu
}

func NewJaegerTracer(jaegerConfig *JaegerConfig, log logger.Logger) (opentracing.Tracer, io.Closer, error) {
	cfg, err := jaegerConfig.configuration()
	if err != nil {
		return nil, nil, err
	}
	return cfg.NewTracer(config.Logger(zap.NewLogger(log.Logger())))
}

func (c *JaegerConfig) configuration() (*config.Configuration, error) {
	if c.Enabled && c.ServiceName == "" {
		return nil, errors.New("jaeger service name is required when tracing is enabled")
	}

	return &config.Configuration{
		ServiceName: c.ServiceName,
		Disabled:    !c.Enabled,
		Tags:        c.tracerTags(),
		Sampler: &config.SamplerConfig{
			Type:  c.SamplerType,
			Param: c.SamplerParam,
		},
		Reporter: c.reporter(),
	}, nil
}

// reporter prefers the HTTP collector and falls back to the UDP agent.
func (c *JaegerConfig) reporter() *config.ReporterConfig {
	r := &config.ReporterConfig{LogSpans: c.LogSpans}
	if c.Endpoint != "" {
		r.CollectorEndpoint = c.Endpoint
	} else {
		r.LocalAgentHostPort = net.JoinHostPort(c.AgentHost, c.AgentPort)
	}
	return r
}

func (c *JaegerConfig) tracerTags() []opentracing.Tag {
	if len(c.Tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Tags))
	for k := range c.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]opentracing.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, opentracing.Tag{Key: k, Value: c.Tags[k]})
	}
	return tags
}
