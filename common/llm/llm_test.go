package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pc1e0/comm/common/llm"
)

func apiError(status int) error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/moderations", nil)
	return &openai.Error{StatusCode: status, Request: req, Response: &http.Response{StatusCode: status}}
}

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	DescribeTable("classifies errors",
		func(err error, expected bool) {
			Expect(llm.IsRetryable(ctx, err)).To(Equal(expected))
		},
		Entry("nil", nil, false),
		Entry("cancelled", context.Canceled, false),
		Entry("deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false),
		Entry("rate limited", apiError(429), true),
		Entry("server error", apiError(502), true),
		Entry("bad request", apiError(400), false),
		Entry("unauthorized", fmt.Errorf("openai chat: %w", apiError(401)), false),
		Entry("empty response", fmt.Errorf("no choices: %w", llm.ErrEmptyResponse), false),
		Entry("network error", errors.New("connection reset by peer"), true),
	)
})

var _ = Describe("Retry", func() {
	var (
		ctx    context.Context
		policy llm.RetryPolicy
	)

	BeforeEach(func() {
		ctx = context.Background()
		policy = llm.RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	})

	It("returns the first success", func() {
		calls := 0
		v, err := llm.Retry(ctx, policy, func() (string, error) {
			calls++
			return "ok", nil
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("ok"))
		Expect(calls).To(Equal(1))
	})

	It("retries retryable errors until success", func() {
		calls := 0
		v, err := llm.Retry(ctx, policy, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, apiError(429)
			}
			return 42, nil
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(42))
		Expect(calls).To(Equal(3))
	})

	It("stops at the try limit and returns the last error", func() {
		calls := 0
		_, err := llm.Retry(ctx, policy, func() (int, error) {
			calls++
			return 0, apiError(500)
		})

		var apiErr *openai.Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(500))
		Expect(calls).To(Equal(3))
	})

	It("does not retry permanent errors", func() {
		calls := 0
		cause := apiError(400)
		_, err := llm.Retry(ctx, policy, func() (int, error) {
			calls++
			return 0, cause
		})

		Expect(err).To(Equal(cause))
		Expect(calls).To(Equal(1))
	})

	It("treats a zero try limit as a single attempt", func() {
		calls := 0
		_, err := llm.Retry(ctx, llm.RetryPolicy{}, func() (int, error) {
			calls++
			return 0, apiError(400)
		})

		Expect(err).To(HaveOccurred())
		var apiErr *openai.Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("GenerateSchema", func() {
	type sample struct {
		Flag bool   `json:"flag"`
		Name string `json:"name"`
	}

	It("produces a closed object schema", func() {
		schema := llm.GenerateSchema[sample]()
		Expect(schema).NotTo(BeNil())
	})
})

var _ = Describe("Messages", func() {
	It("builds role-tagged messages", func() {
		Expect(llm.SystemMessage("be brief")).To(Equal(llm.Message{Role: llm.RoleSystem, Content: "be brief"}))
		Expect(llm.UserMessage("hi")).To(Equal(llm.Message{Role: llm.RoleUser, Content: "hi"}))
	})

	It("returns a pointer to the temperature", func() {
		t := llm.Temp(0.3)
		Expect(*t).To(Equal(0.3))
	})
})
