package application

import (
	"log/slog"

	"dispatch/contexts/field-operations/request-assignment/ports"
)

const ModuleName = "field-operations/request-assignment"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

type noopMetrics struct{}

func (noopMetrics) ObserveClaim(string, string) {}
func (noopMetrics) ObserveIntake(bool)          {}

func ResolveMetrics(metrics ports.AssignmentMetrics) ports.AssignmentMetrics {
	if metrics != nil {
		return metrics
	}
	return noopMetrics{}
}
