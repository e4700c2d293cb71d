package quota

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tracker", func() {
	var (
		tracker *Tracker
		clock   time.Time
	)

	BeforeEach(func() {
		clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		tracker = NewTracker(DefaultConfig())
		tracker.now = func() time.Time { return clock }
		tracker.windowStartedAt = clock
	})

	Describe("MaxCalls", func() {
		It("applies the safety margin to the ceiling", func() {
			Expect(tracker.MaxCalls()).To(Equal(180))
		})

		It("floors fractional budgets", func() {
			t := NewTracker(Config{CallsPerHour: 15, SafetyMargin: 0.9})
			Expect(t.MaxCalls()).To(Equal(13))
		})
	})

	Describe("DelayBeforeNextCall", func() {
		It("returns zero below the cooldown threshold", func() {
			for i := 0; i < 143; i++ {
				tracker.RecordCall()
			}
			Expect(tracker.DelayBeforeNextCall()).To(BeZero())
		})

		It("returns the cooldown at 80% of the budget", func() {
			for i := 0; i < 144; i++ {
				tracker.RecordCall()
			}
			Expect(tracker.DelayBeforeNextCall()).To(Equal(DefaultCooldown))
		})

		It("returns the reset delay when the budget is exhausted", func() {
			for i := 0; i < 180; i++ {
				tracker.RecordCall()
			}
			Expect(tracker.DelayBeforeNextCall()).To(Equal(DefaultResetDelay))
		})

		It("never shrinks as calls accumulate", func() {
			prev := time.Duration(0)
			for i := 0; i < 200; i++ {
				delay := tracker.DelayBeforeNextCall()
				Expect(delay).To(BeNumerically(">=", prev))
				prev = delay
				tracker.RecordCall()
			}
		})
	})

	Describe("window rollover", func() {
		It("resets the counter after the window ages out", func() {
			for i := 0; i < 180; i++ {
				tracker.RecordCall()
			}
			Expect(tracker.DelayBeforeNextCall()).To(Equal(DefaultResetDelay))

			clock = clock.Add(time.Hour)
			Expect(tracker.DelayBeforeNextCall()).To(BeZero())
			Expect(tracker.CallsMade()).To(BeZero())
		})

		It("keeps the counter within the window", func() {
			for i := 0; i < 50; i++ {
				tracker.RecordCall()
			}
			clock = clock.Add(59 * time.Minute)
			Expect(tracker.CallsMade()).To(Equal(50))
		})
	})

	Describe("config defaults", func() {
		It("falls back to platform defaults for invalid knobs", func() {
			t := NewTracker(Config{CallsPerHour: -1, SafetyMargin: 2})
			Expect(t.MaxCalls()).To(Equal(180))
		})
	})
})
