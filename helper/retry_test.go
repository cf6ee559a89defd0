package helper_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
)

var errTransient = errors.New("connection refused")
var errPermanent = errors.New("syntax error")

var _ = Describe("Retry", func() {
	var (
		sleeps   []time.Duration
		attempts int
		cfg      *helper.RetryConfig
	)

	BeforeEach(func() {
		sleeps = nil
		attempts = 0
		cfg = &helper.RetryConfig{
			Log:         logger.NewLogger("retry-test", "error", false),
			Name:        "test operation",
			MaxAttempts: 5,
			Delay:       5 * time.Second,
			IsRetryable: func(err error) bool { return errors.Is(err, errTransient) },
			Sleep:       func(d time.Duration) { sleeps = append(sleeps, d) },
		}
	})

	It("Should not pause when the first attempt succeeds", func() {
		err := helper.Retry(cfg, func(attempt int) error {
			attempts++
			return nil
		})
		Expect(err).To(BeNil())
		Expect(attempts).To(Equal(1))
		Expect(sleeps).To(BeEmpty())
	})

	It("Should pause once per failed attempt before succeeding", func() {
		err := helper.Retry(cfg, func(attempt int) error {
			attempts++
			if attempt <= 2 {
				return errors.Wrap(errTransient, "dial")
			}
			return nil
		})
		Expect(err).To(BeNil())
		Expect(attempts).To(Equal(3))
		Expect(sleeps).To(Equal([]time.Duration{5 * time.Second, 5 * time.Second}))
	})

	It("Should return an exhausted error after all attempts fail", func() {
		var hookCalls int
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) { hookCalls++ }
		err := helper.Retry(cfg, func(attempt int) error {
			attempts++
			return errTransient
		})
		Expect(errors.Is(err, helper.ErrRetriesExhausted)).To(BeTrue())
		Expect(errors.Is(err, errTransient)).To(BeTrue())
		Expect(attempts).To(Equal(5))
		Expect(sleeps).To(HaveLen(5))
		Expect(hookCalls).To(Equal(5))
		var exhausted *helper.RetriesExhaustedError
		Expect(errors.As(err, &exhausted)).To(BeTrue())
		Expect(exhausted.Attempts).To(Equal(5))
	})

	It("Should fail fast on errors that are not retryable", func() {
		err := helper.Retry(cfg, func(attempt int) error {
			attempts++
			return errPermanent
		})
		Expect(err).To(Equal(errPermanent))
		Expect(errors.Is(err, helper.ErrRetriesExhausted)).To(BeFalse())
		Expect(attempts).To(Equal(1))
		Expect(sleeps).To(BeEmpty())
	})

	It("Should make at least one attempt when MaxAttempts is unset", func() {
		cfg.MaxAttempts = 0
		err := helper.Retry(cfg, func(attempt int) error {
			attempts++
			return errTransient
		})
		Expect(errors.Is(err, helper.ErrRetriesExhausted)).To(BeTrue())
		Expect(attempts).To(Equal(1))
	})
})
