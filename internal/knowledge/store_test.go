package knowledge_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/knowledge"
)

// hashEmbed returns deterministic normalized vectors; texts sharing words land
// close to each other.
func hashEmbed(_ context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var h uint32 = 2166136261
		for i := 0; i < len(word); i++ {
			h ^= uint32(word[i])
			h *= 16777619
		}
		vec[h%dims] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *knowledge.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = knowledge.Open(knowledge.Config{Embed: hashEmbed})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.EnsureSchema(ctx, false)).To(Succeed())
	})

	It("requires an embedding function", func() {
		_, err := knowledge.Open(knowledge.Config{})

		var sErr *knowledge.StoreError
		Expect(errors.As(err, &sErr)).To(BeTrue())
		Expect(sErr.Op).To(Equal("open"))
	})

	Describe("EnsureSchema", func() {
		It("creates every collection empty", func() {
			for _, name := range knowledge.Collections() {
				Expect(store.Count(name)).To(BeZero())
			}
			Expect(knowledge.Collections()).To(ConsistOf("Factoid", "System", "Observation", "Interaction", "User"))
		})

		It("keeps data when called again without reset", func() {
			Expect(store.WriteConfig(ctx, "openai_model", "gpt-4o")).To(Succeed())

			Expect(store.EnsureSchema(ctx, false)).To(Succeed())

			Expect(store.Count(knowledge.CollectionSystem)).To(Equal(1))
		})

		It("drops data on reset", func() {
			Expect(store.WriteConfig(ctx, "openai_model", "gpt-4o")).To(Succeed())

			Expect(store.EnsureSchema(ctx, true)).To(Succeed())

			Expect(store.Count(knowledge.CollectionSystem)).To(BeZero())
			_, err := store.ReadConfig(ctx, "openai_model")
			Expect(errors.Is(err, knowledge.ErrConfigNotFound)).To(BeTrue())
		})
	})

	Describe("config entries", func() {
		It("round-trips an entry by exact name", func() {
			Expect(store.WriteConfig(ctx, "classifier_instruction", "Classify the inquiry.")).To(Succeed())
			Expect(store.WriteConfig(ctx, "classifier_instruction_v2", "Something else.")).To(Succeed())

			content, err := store.ReadConfig(ctx, "classifier_instruction")

			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("Classify the inquiry."))
		})

		It("overwrites an existing entry", func() {
			Expect(store.WriteConfig(ctx, "openai_model", "gpt-4o")).To(Succeed())
			Expect(store.WriteConfig(ctx, "openai_model", "gpt-4.1")).To(Succeed())

			content, err := store.ReadConfig(ctx, "openai_model")

			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("gpt-4.1"))
			Expect(store.Count(knowledge.CollectionSystem)).To(Equal(1))
		})

		It("reports a missing entry", func() {
			_, err := store.ReadConfig(ctx, "nope")

			Expect(errors.Is(err, knowledge.ErrConfigNotFound)).To(BeTrue())
			var sErr *knowledge.StoreError
			Expect(errors.As(err, &sErr)).To(BeTrue())
			Expect(sErr.Op).To(Equal("read config"))
		})

		It("does not report a failed read as a missing entry", func() {
			Expect(store.WriteConfig(ctx, "openai_model", "gpt-4o")).To(Succeed())
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := store.ReadConfig(cancelled, "openai_model")

			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(errors.Is(err, knowledge.ErrConfigNotFound)).To(BeFalse())
			var sErr *knowledge.StoreError
			Expect(errors.As(err, &sErr)).To(BeTrue())
			Expect(sErr.Op).To(Equal("read config"))
		})

		It("rejects empty content", func() {
			err := store.WriteConfig(ctx, "openai_model", "  ")

			Expect(err).To(HaveOccurred())
			Expect(store.Count(knowledge.CollectionSystem)).To(BeZero())
		})
	})

	Describe("factoids", func() {
		factoid := func(content, category string) domain.Factoid {
			return domain.Factoid{
				Content:      content,
				Summary:      "summary of " + category,
				Author:       "alice",
				Source:       "https://www.reddit.com/r/test/comments/abc/",
				Category:     category,
				SuggestedBy:  "bob",
				ReviewStatus: domain.ReviewStatusApproved,
			}
		}

		It("stores a factoid with a generated id", func() {
			id, err := store.WriteFactoid(ctx, factoid("Refunds are processed within five business days", "refund"))

			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			got, err := store.GetFactoid(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(id))
			Expect(got.Content).To(Equal("Refunds are processed within five business days"))
			Expect(got.Summary).To(Equal("summary of refund"))
			Expect(got.Author).To(Equal("alice"))
			Expect(got.Source).To(Equal("https://www.reddit.com/r/test/comments/abc/"))
			Expect(got.Category).To(Equal("refund"))
			Expect(got.SuggestedBy).To(Equal("bob"))
			Expect(got.ReviewStatus).To(Equal(domain.ReviewStatusApproved))
			Expect(got.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})

		It("defaults the review status to pending", func() {
			f := factoid("Shipping takes a week", "shipping")
			f.ReviewStatus = ""

			id, err := store.WriteFactoid(ctx, f)
			Expect(err).NotTo(HaveOccurred())

			got, err := store.GetFactoid(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ReviewStatus).To(Equal(domain.ReviewStatusPending))
		})

		It("rejects empty content", func() {
			_, err := store.WriteFactoid(ctx, factoid("", "general"))

			var sErr *knowledge.StoreError
			Expect(errors.As(err, &sErr)).To(BeTrue())
			Expect(sErr.Op).To(Equal("write factoid"))
		})

		It("finds the closest factoid first", func() {
			_, err := store.WriteFactoid(ctx, factoid("refunds are processed within five business days", "refund"))
			Expect(err).NotTo(HaveOccurred())
			_, err = store.WriteFactoid(ctx, factoid("staking rewards are paid every epoch", "staking"))
			Expect(err).NotTo(HaveOccurred())

			results, err := store.SearchFactoids(ctx, "refunds processed business days", 5)

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Category).To(Equal("refund"))
		})

		It("returns nothing from an empty collection", func() {
			results, err := store.SearchFactoids(ctx, "anything", 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("fails before the schema exists", func() {
			bare, err := knowledge.Open(knowledge.Config{Embed: hashEmbed})
			Expect(err).NotTo(HaveOccurred())

			_, err = bare.WriteFactoid(ctx, factoid("text", "general"))

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("run schema setup first"))
		})
	})

	Describe("persistence", func() {
		It("reloads entries from disk", func() {
			dir := GinkgoT().TempDir()

			first, err := knowledge.Open(knowledge.Config{Path: dir, Embed: hashEmbed})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.EnsureSchema(ctx, false)).To(Succeed())
			Expect(first.WriteConfig(ctx, "summarizer_instruction", "Summarize briefly.")).To(Succeed())

			second, err := knowledge.Open(knowledge.Config{Path: dir, Embed: hashEmbed})
			Expect(err).NotTo(HaveOccurred())

			content, err := second.ReadConfig(ctx, "summarizer_instruction")
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("Summarize briefly."))
		})
	})
})
