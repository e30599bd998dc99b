// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBusPublish(t *testing.T) {
	BusMessagesPublished.Reset()

	RecordBusPublish("telemetry.ingest.can_data")
	RecordBusPublish("telemetry.ingest.can_data")
	RecordBusPublish("commands.manager")

	if got := testutil.ToFloat64(BusMessagesPublished.WithLabelValues("telemetry.ingest.can_data")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(BusMessagesPublished.WithLabelValues("commands.manager")); got != 1 {
		t.Errorf("expected 1 publish, got %v", got)
	}
}

func TestRecordBusPublishError(t *testing.T) {
	BusPublishErrors.Reset()

	RecordBusPublishError("telemetry.ingest.can_data")

	if got := testutil.ToFloat64(BusPublishErrors.WithLabelValues("telemetry.ingest.can_data")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestRecordBusReceive(t *testing.T) {
	BusMessagesReceived.Reset()

	RecordBusReceive("digital_twin.data")

	if got := testutil.ToFloat64(BusMessagesReceived.WithLabelValues("digital_twin.data")); got != 1 {
		t.Errorf("expected 1 receive, got %v", got)
	}
}

func TestRecordBusRequest(t *testing.T) {
	BusRequestDuration.Reset()

	RecordBusRequest("settings.get.nats_url", 15*time.Millisecond)

	if got := testutil.CollectAndCount(BusRequestDuration); got != 1 {
		t.Errorf("expected 1 histogram series, got %d", got)
	}
}

func TestSetBusConnected(t *testing.T) {
	SetBusConnected(true)
	if got := testutil.ToFloat64(BusConnected); got != 1 {
		t.Errorf("expected bus_connected=1, got %v", got)
	}

	SetBusConnected(false)
	if got := testutil.ToFloat64(BusConnected); got != 0 {
		t.Errorf("expected bus_connected=0, got %v", got)
	}
}

func TestRecordCircuitBreakerResult(t *testing.T) {
	CircuitBreakerRequests.Reset()

	RecordCircuitBreakerResult("bus.request", "success")
	RecordCircuitBreakerResult("bus.request", "failure")
	RecordCircuitBreakerResult("bus.request", "success")

	if got := testutil.ToFloat64(CircuitBreakerRequests.WithLabelValues("bus.request", "success")); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerRequests.WithLabelValues("bus.request", "failure")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("bus.request", 2)

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("bus.request")); got != 2 {
		t.Errorf("expected state 2 (open), got %v", got)
	}
}

func TestSetSupervisorManagedServices(t *testing.T) {
	SetSupervisorManagedServices("running", 4)
	SetSupervisorManagedServices("crashed", 1)

	if got := testutil.ToFloat64(SupervisorManagedServices.WithLabelValues("running")); got != 4 {
		t.Errorf("expected 4 running, got %v", got)
	}
	if got := testutil.ToFloat64(SupervisorManagedServices.WithLabelValues("crashed")); got != 1 {
		t.Errorf("expected 1 crashed, got %v", got)
	}
}

func TestRecordSupervisorRestart(t *testing.T) {
	SupervisorRestarts.Reset()

	RecordSupervisorRestart("emby_service")
	RecordSupervisorRestart("emby_service")

	if got := testutil.ToFloat64(SupervisorRestarts.WithLabelValues("emby_service")); got != 2 {
		t.Errorf("expected 2 restarts, got %v", got)
	}
}

func TestSetSupervisorServiceUptime(t *testing.T) {
	SetSupervisorServiceUptime("compute_service", 90*time.Second)

	if got := testutil.ToFloat64(SupervisorServiceUptime.WithLabelValues("compute_service")); got != 90 {
		t.Errorf("expected uptime 90s, got %v", got)
	}
}

func TestRecordComputation(t *testing.T) {
	ComputeComputationsProcessed.Reset()

	RecordComputation("running_average")
	RecordComputation("running_average")
	RecordComputation("integrator")

	if got := testutil.ToFloat64(ComputeComputationsProcessed.WithLabelValues("running_average")); got != 2 {
		t.Errorf("expected 2 running_average, got %v", got)
	}
	if got := testutil.ToFloat64(ComputeComputationsProcessed.WithLabelValues("integrator")); got != 1 {
		t.Errorf("expected 1 integrator, got %v", got)
	}
}

func TestRecordTriggerEvaluationAndFire(t *testing.T) {
	before := testutil.ToFloat64(ComputeTriggerEvaluations)
	RecordTriggerEvaluation()
	if got := testutil.ToFloat64(ComputeTriggerEvaluations); got != before+1 {
		t.Errorf("expected trigger evaluations to increment by 1, got delta %v", got-before)
	}

	ComputeTriggerFires.Reset()
	RecordTriggerFire("overheat_alarm", "set_setting")
	if got := testutil.ToFloat64(ComputeTriggerFires.WithLabelValues("overheat_alarm", "set_setting")); got != 1 {
		t.Errorf("expected 1 trigger fire, got %v", got)
	}
}

func TestRecordProcessDuration(t *testing.T) {
	ComputeProcessDuration.Reset()

	RecordProcessDuration(5 * time.Millisecond)

	if got := testutil.CollectAndCount(ComputeProcessDuration); got != 1 {
		t.Errorf("expected 1 histogram series, got %d", got)
	}
}

func TestRecordSettingsOperation(t *testing.T) {
	SettingsOperations.Reset()

	RecordSettingsOperation("update_setting")
	RecordSettingsOperation("update_setting")
	RecordSettingsOperation("import_settings")

	if got := testutil.ToFloat64(SettingsOperations.WithLabelValues("update_setting")); got != 2 {
		t.Errorf("expected 2 update_setting ops, got %v", got)
	}
}

func TestRecordSettingsPersistError(t *testing.T) {
	before := testutil.ToFloat64(SettingsPersistErrors)
	RecordSettingsPersistError()
	if got := testutil.ToFloat64(SettingsPersistErrors); got != before+1 {
		t.Errorf("expected persist errors to increment by 1, got delta %v", got-before)
	}
}
