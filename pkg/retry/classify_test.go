package retry

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/instalytics/collector/pkg/instagram"
)

var _ = Describe("Classify", func() {
	It("treats nil as fatal", func() {
		Expect(Classify(nil)).To(Equal(Fatal))
	})

	Context("message patterns", func() {
		It("marks auth failures fatal", func() {
			Expect(Classify(errors.New("Invalid Token provided"))).To(Equal(Fatal))
		})

		It("marks permission failures fatal", func() {
			Expect(Classify(errors.New("permission denied for media"))).To(Equal(Fatal))
		})

		It("marks missing resources fatal", func() {
			Expect(Classify(errors.New("media not found"))).To(Equal(Fatal))
		})

		It("marks bad requests fatal", func() {
			Expect(Classify(errors.New("invalid parameter: fields"))).To(Equal(Fatal))
		})

		It("marks timeouts retryable", func() {
			Expect(Classify(errors.New("request timeout"))).To(Equal(Retry))
		})

		It("marks connection failures retryable", func() {
			Expect(Classify(errors.New("connection reset by peer"))).To(Equal(Retry))
		})

		It("marks rate limiting retryable", func() {
			Expect(Classify(errors.New("rate limit reached"))).To(Equal(Retry))
		})

		It("marks temporary outages retryable", func() {
			Expect(Classify(errors.New("service temporarily unavailable"))).To(Equal(Retry))
		})

		It("prefers the fatal verdict when both patterns match", func() {
			Expect(Classify(errors.New("invalid token: connection reset"))).To(Equal(Fatal))
		})
	})

	Context("typed errors", func() {
		It("retries rate limit errors", func() {
			err := &instagram.RateLimitError{PlatformCode: 4, Message: "too many calls"}
			Expect(Classify(err)).To(Equal(Retry))
		})

		It("retries transient platform errors even when wrapped", func() {
			err := fmt.Errorf("fetching insights: %w", &instagram.TransientNetworkError{
				PlatformCode: 2,
				Message:      "service busy",
			})
			Expect(Classify(err)).To(Equal(Retry))
		})

		It("retries deadline expiry", func() {
			Expect(Classify(context.DeadlineExceeded)).To(Equal(Retry))
		})
	})

	It("defaults unknown errors to fatal", func() {
		Expect(Classify(errors.New("something odd happened"))).To(Equal(Fatal))
	})
})
