package queue_test

import (
	"context"
	"errors"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/queue"
)

const (
	testStream = "reddit_comments"
	testGroup  = "comm_bot"
	testDLQ    = "reddit_events_dlq"
)

func consumerConfig(name string) queue.ConsumerConfig {
	return queue.ConsumerConfig{
		Stream:      testStream,
		Group:       testGroup,
		Consumer:    name,
		DLQStream:   testDLQ,
		BatchSize:   10,
		Block:       20 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func commentNode(id string) domain.Node {
	return domain.NewCommentNode(domain.Comment{ID: id, Body: "body " + id, ParentID: "t3_p"})
}

var _ = Describe("RedisConsumer", func() {
	var (
		ctx      context.Context
		client   *redis.Client
		producer queue.Producer
		consumer *queue.RedisConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr := miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		producer = queue.NewRedisProducer(client, nil)

		var err error
		consumer, err = queue.NewRedisConsumer(ctx, client, consumerConfig("bot-1"))
		Expect(err).NotTo(HaveOccurred())
	})

	pending := func() int64 {
		p, err := client.XPending(ctx, testStream, testGroup).Result()
		Expect(err).NotTo(HaveOccurred())
		return p.Count
	}

	readAll := func(c *queue.RedisConsumer) []queue.Message {
		var out []queue.Message
		for i := 0; i < 3; i++ {
			msgs, err := c.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			out = append(out, msgs...)
		}
		return out
	}

	It("tolerates an existing group", func() {
		_, err := queue.NewRedisConsumer(ctx, client, consumerConfig("bot-2"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("reads published items in order", func() {
		for _, id := range []string{"a", "b", "c"} {
			Expect(producer.Publish(ctx, testStream, commentNode(id), "")).To(Succeed())
		}

		msgs := readAll(consumer)

		Expect(msgs).To(HaveLen(3))
		Expect([]string{msgs[0].Fullname, msgs[1].Fullname, msgs[2].Fullname}).To(Equal([]string{"t1_a", "t1_b", "t1_c"}))
		Expect(msgs[0].Attempt).To(Equal(1))
		Expect(msgs[0].Kind).To(Equal(domain.NodeKindComment))
	})

	It("returns an empty batch when nothing arrives", func() {
		msgs := readAll(consumer)
		Expect(msgs).To(BeEmpty())
	})

	It("acknowledges and drops unparseable messages", func() {
		Expect(client.XAdd(ctx, &redis.XAddArgs{Stream: testStream, Values: map[string]any{"junk": "1"}}).Err()).To(Succeed())

		msgs := readAll(consumer)

		Expect(msgs).To(BeEmpty())
		Expect(pending()).To(BeZero())
	})

	It("redelivers its own unacknowledged messages after a restart", func() {
		Expect(producer.Publish(ctx, testStream, commentNode("a"), "")).To(Succeed())
		first := readAll(consumer)
		Expect(first).To(HaveLen(1))

		restarted, err := queue.NewRedisConsumer(ctx, client, consumerConfig("bot-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(producer.Publish(ctx, testStream, commentNode("b"), "")).To(Succeed())

		msgs, err := restarted.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Fullname).To(Equal("t1_a"))
		Expect(restarted.Settle(ctx, msgs[0], nil)).To(Succeed())

		rest := readAll(restarted)
		Expect(rest).To(HaveLen(1))
		Expect(rest[0].Fullname).To(Equal("t1_b"))
	})

	Describe("Settle", func() {
		var msg queue.Message

		BeforeEach(func() {
			Expect(producer.Publish(ctx, testStream, commentNode("a"), "trace-1")).To(Succeed())
			msgs := readAll(consumer)
			Expect(msgs).To(HaveLen(1))
			msg = msgs[0]
		})

		It("acknowledges success", func() {
			Expect(consumer.Settle(ctx, msg, nil)).To(Succeed())
			Expect(pending()).To(BeZero())
		})

		It("requeues a failure with the next attempt", func() {
			Expect(consumer.Settle(ctx, msg, errors.New("moderation failed"))).To(Succeed())

			Expect(pending()).To(BeZero())
			retry := readAll(consumer)
			Expect(retry).To(HaveLen(1))
			Expect(retry[0].Fullname).To(Equal("t1_a"))
			Expect(retry[0].Attempt).To(Equal(2))
			Expect(retry[0].LastError).To(Equal("moderation failed"))
			Expect(retry[0].TraceID).To(Equal("trace-1"))
		})

		It("dead-letters after the last attempt", func() {
			msg.Attempt = 3

			Expect(consumer.Settle(ctx, msg, errors.New("still broken"))).To(Succeed())

			Expect(pending()).To(BeZero())
			dead, err := client.XRange(ctx, testDLQ, "-", "+").Result()
			Expect(err).NotTo(HaveOccurred())
			Expect(dead).To(HaveLen(1))
			Expect(dead[0].Values).To(HaveKeyWithValue("fullname", "t1_a"))
			Expect(dead[0].Values).To(HaveKeyWithValue("error", "still broken"))
			Expect(dead[0].Values).To(HaveKeyWithValue("source_stream", testStream))
			Expect(readAll(consumer)).To(BeEmpty())
		})
	})

	It("rejects invalid nodes on publish", func() {
		Expect(producer.Publish(ctx, testStream, domain.Node{}, "")).NotTo(Succeed())
	})
})
