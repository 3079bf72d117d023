package scanning

import (
	"context"
	"time"
)

// SoftwareTimerMaster is a top master pacing a scan from the host
// clock. Every trigger emits the elapsed time since start on its
// channel and software-triggers the devices below it; WaitReady then
// holds the chain until the next period boundary.
type SoftwareTimerMaster struct {
	*AcquisitionMaster

	period  time.Duration
	elapsed *AcquisitionChannel

	begin time.Time
	last  time.Time
}

// NewSoftwareTimerMaster creates a timer master producing npoints
// points spaced by period. npoints zero means indefinite.
func NewSoftwareTimerMaster(name string, period time.Duration, npoints int, opts ...ObjectOption) *SoftwareTimerMaster {
	base := append([]ObjectOption{WithTriggerType(TriggerSoftware), WithNPoints(npoints)}, opts...)
	t := &SoftwareTimerMaster{
		AcquisitionMaster: NewMaster(name, base...),
		period:            period,
		elapsed:           NewChannel(name+":elapsed_time", "float64", nil, WithUnit("s")),
	}
	t.Channels().Add(t.elapsed)
	return t
}

// ElapsedChannel returns the channel carrying the per-point elapsed
// time in seconds.
func (t *SoftwareTimerMaster) ElapsedChannel() *AcquisitionChannel { return t.elapsed }

// Period returns the pacing period.
func (t *SoftwareTimerMaster) Period() time.Duration { return t.period }

// Start records the scan origin of the elapsed-time axis.
func (t *SoftwareTimerMaster) Start(ctx context.Context) error {
	t.begin = time.Now()
	t.last = t.begin
	return nil
}

// Trigger emits the elapsed time, fans the trigger out to the
// software slaves and waits for them.
func (t *SoftwareTimerMaster) Trigger(ctx context.Context) error {
	t.last = time.Now()
	t.elapsed.Emit(t.last.Sub(t.begin).Seconds())
	if err := t.TriggerSlaves(ctx); err != nil {
		return err
	}
	return t.WaitSlaves()
}

// WaitReady sleeps out the remainder of the current period so the
// next trigger lands on the period boundary.
func (t *SoftwareTimerMaster) WaitReady(ctx context.Context) error {
	wait := t.period - time.Since(t.last)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
