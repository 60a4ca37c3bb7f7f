package subscription

import "time"

// Escalation is the outcome of a failed billing attempt: the status to write,
// the grace deadline (set only when entering the grace period) and the
// notification the reconciler dispatches after committing the transition.
type Escalation struct {
	Status          Status
	GracePeriodEnds *time.Time
	Notification    NotificationKind
}

// Escalate maps a consecutive-failure count to its escalation outcome. It is
// total and side-effect free; the reconciler is its only I/O-performing
// caller. Replaying the same retryCount reproduces the same notification
// kind, which is what lets duplicate deliveries be deduplicated upstream.
//
//	1   -> payment_failed,  notify "payment failed"
//	2   -> payment_failed,  notify "retry reminder"
//	>=3 -> grace_period,    ends now+7d, notify "grace period started"
func Escalate(retryCount int, now time.Time) Escalation {
	if retryCount >= 3 {
		ends := now.Add(GracePeriodLength)
		return Escalation{
			Status:          StatusGracePeriod,
			GracePeriodEnds: &ends,
			Notification:    NotificationGraceStarted,
		}
	}
	if retryCount == 2 {
		return Escalation{Status: StatusPaymentFailed, Notification: NotificationRetryReminder}
	}
	return Escalation{Status: StatusPaymentFailed, Notification: NotificationPaymentFailed}
}
