package sink_test

import (
	"fmt"

	"github.com/lawrencejones/convsink/pkg/sink"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Channel", func() {
	var (
		channel *sink.Channel[string]
	)

	BeforeEach(func() {
		channel = sink.NewChannel[string](10)
	})

	It("streams values, closing the channel on close", func() {
		Expect(channel.Add("a")).To(Succeed())
		Expect(channel.Add("b")).To(Succeed())
		Expect(channel.Close()).To(Succeed())

		Expect(sink.Drain(channel.Events())).To(Equal([]string{"a", "b"}))
	})

	It("ends the stream with the error", func() {
		Expect(channel.Add("a")).To(Succeed())
		Expect(channel.AddError(fmt.Errorf("boom"))).To(Succeed())

		var events []sink.Event[string]
		for event := range channel.Events() {
			events = append(events, event)
		}

		Expect(events).To(HaveLen(2))
		Expect(events[0].Unwrap()).To(Equal("a"))
		Expect(events[1].Unwrap()).To(MatchError("boom"))
	})

	It("rejects values after close", func() {
		Expect(channel.Close()).To(Succeed())

		Expect(channel.Add("a")).To(MatchError(sink.ErrClosed))
		Expect(channel.Close()).To(MatchError(sink.ErrClosed))
	})

	It("feeds a consumer running concurrently", func() {
		channel = sink.NewChannel[string](0)

		done := make(chan []string)
		go func() {
			defer GinkgoRecover()

			values, err := sink.Drain(channel.Events())
			Expect(err).NotTo(HaveOccurred())
			done <- values
		}()

		for _, value := range []string{"a", "b", "c"} {
			Expect(channel.Add(value)).To(Succeed())
		}
		Expect(channel.Close()).To(Succeed())

		Eventually(done).Should(Receive(Equal([]string{"a", "b", "c"})))
	})

	Describe("Drain", func() {
		It("discards values received before an error", func() {
			Expect(channel.Add("a")).To(Succeed())
			Expect(channel.AddError(fmt.Errorf("boom"))).To(Succeed())

			values, err := sink.Drain(channel.Events())

			Expect(err).To(MatchError("boom"))
			Expect(values).To(BeNil())
		})
	})
})
