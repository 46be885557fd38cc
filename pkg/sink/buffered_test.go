package sink_test

import (
	"fmt"

	"github.com/lawrencejones/convsink/pkg/sink"
	. "github.com/lawrencejones/convsink/pkg/sink/matchers"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("BufferedSink", func() {
	var (
		backend    *sink.MemorySink[[]int]
		buffered   *sink.BufferedSink[int]
		bufferSize int
	)

	// By default, we'll use a buffer size of 2
	BeforeEach(func() { bufferSize = 2 })

	JustBeforeEach(func() {
		backend = sink.NewMemorySink[[]int]()
		buffered = sink.NewBufferedSink[int](backend, bufferSize)
	})

	It("forwards values in batches as the buffer fills", func() {
		for _, value := range []int{1, 2, 3} {
			Expect(buffered.Add(value)).To(Succeed())
		}

		Expect(backend.Values()).To(Equal([][]int{{1, 2}}))
	})

	It("flushes what remains on close, then closes downstream", func() {
		for _, value := range []int{1, 2, 3} {
			Expect(buffered.Add(value)).To(Succeed())
		}
		Expect(buffered.Close()).To(Succeed())

		Expect(backend).To(HaveCompletedWith([][]int{{1, 2}, {3}}))
	})

	It("drops buffered values when failing", func() {
		for _, value := range []int{1, 2, 3} {
			Expect(buffered.Add(value)).To(Succeed())
		}
		Expect(buffered.AddError(fmt.Errorf("boom"))).To(Succeed())

		Expect(backend).To(HaveFailedWith("boom"))
		Expect(backend.Values()).To(Equal([][]int{{1, 2}}))
	})

	It("rejects values once closed", func() {
		Expect(buffered.Close()).To(Succeed())
		Expect(buffered.Add(1)).To(MatchError(sink.ErrClosed))
	})

	Context("with a buffer size below one", func() {
		BeforeEach(func() { bufferSize = 0 })

		It("forwards every value in its own batch", func() {
			Expect(buffered.Add(1)).To(Succeed())
			Expect(buffered.Add(2)).To(Succeed())

			Expect(backend.Values()).To(Equal([][]int{{1}, {2}}))
		})
	})

	Context("when downstream rejects a batch", func() {
		JustBeforeEach(func() {
			Expect(backend.Close()).To(Succeed())
		})

		It("returns the error", func() {
			Expect(buffered.Add(1)).To(Succeed())
			Expect(buffered.Add(2)).To(MatchError(sink.ErrClosed))
		})
	})

	Context("when downstream rejects the final flush", func() {
		var (
			rejecting *rejectingSink
		)

		JustBeforeEach(func() {
			rejecting = &rejectingSink{MemorySink: backend}
			buffered = sink.NewBufferedSink[int](rejecting, bufferSize)
		})

		It("fails downstream, so it can release its resources", func() {
			Expect(buffered.Add(1)).To(Succeed())
			Expect(buffered.Close()).To(MatchError(ContainSubstring("failed to flush batch: rejected")))

			Expect(backend).To(HaveFailedWith(MatchError(ContainSubstring("failed to flush batch: rejected"))))
		})
	})
})

// rejectingSink refuses every batch, while accepting errors and close
type rejectingSink struct {
	*sink.MemorySink[[]int]
}

func (s *rejectingSink) Add([]int) error {
	return fmt.Errorf("rejected")
}
