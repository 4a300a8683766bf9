// Package vigilant ships logs, errors and metrics from a running process to
// a Vigilant ingestion endpoint.
//
// Each telemetry kind has its own handle (Logger, ErrorHandler,
// MetricsHandler). A handle queues captured events in memory and a single
// background goroutine posts them in batches of at most 100 every 100ms.
// Capturing never blocks on the network and never returns an error; failed
// sends are dropped. Call Shutdown before the process exits to flush
// everything that is still queued:
//
//	logger := vigilant.NewLogger(vigilant.LoggerOptions{
//		Options: vigilant.Options{Name: "checkout", Token: token},
//	})
//	defer logger.Shutdown(context.Background())
//
//	logger.Info("order placed", vigilant.Attributes{"order.id": id})
//
// The package level functions (InitLogger, LogInfo, CaptureError,
// EmitMetric, ...) manage one process-wide handle per kind for programs that
// prefer not to pass handles around. They are no-ops until initialised and
// after shutdown.
package vigilant
