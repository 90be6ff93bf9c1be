package tracing

import (
	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var GlobalTracer = otel.Tracer("academy-backend")

// HoneycombSetup configures the OpenTelemetry SDK to export to honeycomb.
// Endpoint, API key and service name come from the standard OTEL_* and
// HONEYCOMB_* env vars. When disabled, the returned shutdown func is a no-op
// and spans go to the global no-op provider.
func HoneycombSetup(enabled bool) (func(), error) {
	if !enabled {
		return func() {}, nil
	}

	bsp := honeycomb.NewBaggageSpanProcessor()
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithSpanProcessor(bsp),
	)
	if err != nil {
		return nil, err
	}

	log.Debugln("honeycomb tracing set up")
	return otelShutdown, nil
}
