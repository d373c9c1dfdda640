package brain_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pc1e0/comm/internal/brain"
	"github.com/pc1e0/comm/internal/domain"
)

var _ = Describe("ExtractContext", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	DescribeTable("comment under a post renders every ancestor up to the post",
		func(depth int) {
			nodes := commentChain(depth)
			resolver := newChainResolver(nodes...)

			transcript := brain.ExtractContext(ctx, resolver, nodes[len(nodes)-1], domain.DefaultContextDepth)

			Expect(transcript).To(HaveLen(depth + 1))
			Expect(transcript[0]).To(Equal("p0: post | op: Where is my order?"))
			Expect(transcript[len(transcript)-1]).To(HavePrefix(nodes[len(nodes)-1].ID() + ": comment | "))
		},
		Entry("direct reply", 1),
		Entry("depth 2", 2),
		Entry("depth 3", 3),
		Entry("depth 4", 4),
	)

	It("orders lines oldest ancestor first", func() {
		nodes := commentChain(2)
		resolver := newChainResolver(nodes...)

		transcript := brain.ExtractContext(ctx, resolver, nodes[2], 5)

		Expect(transcript).To(Equal(domain.Transcript{
			"p0: post | op: Where is my order?",
			"c1: comment | user1: reply 1",
			"c2: comment | user2: reply 2",
		}))
		Expect(transcript.String()).To(Equal(
			"p0: post | op: Where is my order?\nc1: comment | user1: reply 1\nc2: comment | user2: reply 2"))
	})

	It("caps a deeper chain at the requested depth", func() {
		nodes := commentChain(12)
		resolver := newChainResolver(nodes...)

		transcript := brain.ExtractContext(ctx, resolver, nodes[12], 5)

		Expect(transcript).To(HaveLen(5))
		Expect(transcript[0]).To(HavePrefix("c8: comment"))
		Expect(transcript[4]).To(HavePrefix("c12: comment"))
	})

	It("does not fetch a parent after the last permitted line", func() {
		nodes := commentChain(12)
		resolver := newChainResolver(nodes...)

		brain.ExtractContext(ctx, resolver, nodes[12], 3)

		Expect(resolver.fetched).To(Equal([]string{"t1_c11", "t1_c10"}))
	})

	It("uses the default depth when depth is not positive", func() {
		nodes := commentChain(8)
		resolver := newChainResolver(nodes...)

		Expect(brain.ExtractContext(ctx, resolver, nodes[8], 0)).To(HaveLen(domain.DefaultContextDepth))
		Expect(brain.ExtractContext(ctx, resolver, nodes[8], -3)).To(HaveLen(domain.DefaultContextDepth))
	})

	It("returns what it collected when a parent cannot be fetched", func() {
		nodes := commentChain(3)
		resolver := newChainResolver(nodes...)
		resolver.failOn["t3_p0"] = errors.New("403 forbidden")

		transcript := brain.ExtractContext(ctx, resolver, nodes[3], 5)

		Expect(transcript).To(Equal(domain.Transcript{
			"c1: comment | user1: reply 1",
			"c2: comment | user2: reply 2",
			"c3: comment | user3: reply 3",
		}))
	})

	It("stops at a comment whose parent is missing", func() {
		orphan := comment("c9", "t1_gone", "someone", "hello?")
		resolver := newChainResolver()

		transcript := brain.ExtractContext(ctx, resolver, orphan, 5)

		Expect(transcript).To(Equal(domain.Transcript{"c9: comment | someone: hello?"}))
	})

	It("renders a post on its own", func() {
		transcript := brain.ExtractContext(ctx, newChainResolver(), post("p1", "Refund policy?"), 5)

		Expect(transcript).To(Equal(domain.Transcript{"p1: post | op: Refund policy?"}))
	})

	It("renders missing authors as Unknown", func() {
		nodes := []domain.Node{
			domain.NewPostNode(domain.Post{ID: "p0", Title: "Shipping times", Author: domain.AuthorPtr("[deleted]")}),
			comment("c1", "t3_p0", "", "same question"),
		}
		resolver := newChainResolver(nodes...)

		transcript := brain.ExtractContext(ctx, resolver, nodes[1], 5)

		Expect(transcript).To(Equal(domain.Transcript{
			"p0: post | Unknown: Shipping times",
			"c1: comment | Unknown: same question",
		}))
	})

	It("returns an empty transcript for an invalid node", func() {
		Expect(brain.ExtractContext(ctx, newChainResolver(), domain.Node{}, 5)).To(BeEmpty())
	})
})
