package collector

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scope", func() {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	Describe("Validate", func() {
		It("accepts an ordered range", func() {
			Expect(ScopeRange(day(2025, 6, 1), day(2025, 6, 30)).Validate()).To(Succeed())
		})

		It("accepts a single-day range", func() {
			Expect(ScopeRange(day(2025, 6, 1), day(2025, 6, 1)).Validate()).To(Succeed())
		})

		It("rejects an inverted range", func() {
			err := ScopeRange(day(2025, 6, 30), day(2025, 6, 1)).Validate()
			Expect(err).To(MatchError(ErrInvalidScope))
		})

		It("accepts unbounded scopes", func() {
			Expect(ScopeAll().Validate()).To(Succeed())
			Expect(ScopeMissingMetrics().Validate()).To(Succeed())
		})
	})

	Describe("Contains", func() {
		scope := ScopeRange(day(2025, 6, 1), day(2025, 6, 30))

		It("includes the start of the range", func() {
			Expect(scope.Contains(day(2025, 6, 1))).To(BeTrue())
		})

		It("includes the whole end day", func() {
			Expect(scope.Contains(time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC))).To(BeTrue())
		})

		It("excludes the day after the end", func() {
			Expect(scope.Contains(day(2025, 7, 1))).To(BeFalse())
		})

		It("excludes dates before the start", func() {
			Expect(scope.Contains(day(2025, 5, 31))).To(BeFalse())
		})

		It("matches everything when unbounded", func() {
			Expect(ScopeAll().Contains(day(1990, 1, 1))).To(BeTrue())
		})
	})

	Describe("Kind", func() {
		It("distinguishes missing-metrics from historical", func() {
			Expect(ScopeMissingMetrics().Kind()).To(Equal(KindMissingMetrics))
			Expect(ScopeAll().Kind()).To(Equal(KindHistorical))
			Expect(ScopeDaysBack(7).Kind()).To(Equal(KindHistorical))
		})
	})
})
