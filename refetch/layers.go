package refetch

import (
	"time"

	"chainwatch/timelock"
)

// DelayChangeLayer schedules polling towards a pending execution-delay
// change. It applies to timelock.Status payloads with an outstanding delay
// change.
func DelayChangeLayer(data any) (time.Time, bool) {
	status, ok := data.(*timelock.Status)
	if !ok || status == nil || status.PendingDelay == nil {
		return time.Time{}, false
	}
	return status.PendingDelay.EffectAt, true
}

// AdminTransferLayer schedules polling towards a pending admin handover.
// Block-number-only schedules carry no wall-clock expiration and are skipped;
// their progress is tracked at the block cadence instead.
func AdminTransferLayer(data any) (time.Time, bool) {
	status, ok := data.(*timelock.Status)
	if !ok || status == nil || status.PendingAdmin == nil {
		return time.Time{}, false
	}
	if !status.TimestampSchedule || status.PendingAdmin.Expiration.IsZero() {
		return time.Time{}, false
	}
	return status.PendingAdmin.Expiration, true
}

// TimelockLayers returns the countdown layers for timelock contracts in
// their canonical order: delay change before admin transfer.
func TimelockLayers() []Layer {
	return []Layer{DelayChangeLayer, AdminTransferLayer}
}
