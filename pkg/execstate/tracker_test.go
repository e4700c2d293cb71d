package execstate

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Tracker", func() {
	var (
		stateDir string
		logger   *logrus.Logger
	)

	BeforeEach(func() {
		stateDir = GinkgoT().TempDir()
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	})

	It("requires a job name", func() {
		_, err := NewTracker(stateDir, "", logger)
		Expect(err).To(HaveOccurred())
	})

	It("reports no record before the first run", func() {
		tracker, err := NewTracker(stateDir, "new_posts_check", logger)
		Expect(err).NotTo(HaveOccurred())

		_, ok, err := tracker.LastRun()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("round-trips a recorded run across instances", func() {
		tracker, err := NewTracker(stateDir, "new_posts_check", logger)
		Expect(err).NotTo(HaveOccurred())

		ran := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
		Expect(tracker.RecordRun(ran)).To(Succeed())

		reopened, err := NewTracker(stateDir, "new_posts_check", logger)
		Expect(err).NotTo(HaveOccurred())

		got, ok, err := reopened.LastRun()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got.Equal(ran)).To(BeTrue())
	})

	It("overwrites the previous record", func() {
		tracker, err := NewTracker(stateDir, "new_posts_check", logger)
		Expect(err).NotTo(HaveOccurred())

		first := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
		second := first.Add(4 * time.Hour)
		Expect(tracker.RecordRun(first)).To(Succeed())
		Expect(tracker.RecordRun(second)).To(Succeed())

		got, ok, err := tracker.LastRun()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got.Equal(second)).To(BeTrue())
	})

	It("scopes records by job name", func() {
		first, err := NewTracker(stateDir, "job_a", logger)
		Expect(err).NotTo(HaveOccurred())
		second, err := NewTracker(stateDir, "job_b", logger)
		Expect(err).NotTo(HaveOccurred())

		Expect(first.RecordRun(time.Now())).To(Succeed())

		_, ok, err := second.LastRun()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("treats a corrupt file as first run", func() {
		tracker, err := NewTracker(stateDir, "new_posts_check", logger)
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(stateDir, "new_posts_check_last_execution.json")
		Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

		_, ok, err := tracker.LastRun()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("accepts zone-less timestamps as UTC", func() {
		tracker, err := NewTracker(stateDir, "new_posts_check", logger)
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(stateDir, "new_posts_check_last_execution.json")
		record := `{"last_execution_time": "2025-06-01T08:30:00", "updated_at": "2025-06-01T08:30:00"}`
		Expect(os.WriteFile(path, []byte(record), 0o644)).To(Succeed())

		got, ok, err := tracker.LastRun()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)))
	})
})
