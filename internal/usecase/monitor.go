package usecase

import "context"

// OperationMonitor observes the lifecycle of admin-triggered operations.
// Implementations must be cheap and must never fail the operation they watch.
type OperationMonitor interface {
	OperationStarted(ctx context.Context, operation string, attrs map[string]string)
	OperationCompleted(ctx context.Context, operation string, attrs map[string]string)
	OperationFailed(ctx context.Context, operation string, err error)
}

type nopMonitor struct{}

func (nopMonitor) OperationStarted(context.Context, string, map[string]string)   {}
func (nopMonitor) OperationCompleted(context.Context, string, map[string]string) {}
func (nopMonitor) OperationFailed(context.Context, string, error)                {}

// NopMonitor is the default monitor when none is injected.
func NopMonitor() OperationMonitor { return nopMonitor{} }
