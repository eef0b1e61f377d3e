// Package pubstatus decides whether an item is already visible or still
// waiting for its publish time.
package pubstatus

import (
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/domain/models"
)

// Classify returns StatusPublished when publishAt is at or before now and
// StatusScheduled otherwise. publishAt goes through the normalizer first, so
// an unreadable value counts as "now" and therefore as published.
func Classify(publishAt any, now time.Time, n *datetime.Normalizer) models.Status {
	if n.AtOrBefore(publishAt, now) {
		return models.StatusPublished
	}
	return models.StatusScheduled
}

// ForDelivery returns the publish instant and status a notification gets at
// write time: immediate delivery publishes at now, scheduled delivery at the
// scheduled instant.
func ForDelivery(dt models.DeliveryType, scheduledAt, now time.Time) (time.Time, models.Status) {
	if dt == models.DeliveryScheduled {
		return scheduledAt, models.StatusScheduled
	}
	return now, models.StatusPublished
}
