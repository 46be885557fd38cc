package sink_test

import (
	"fmt"

	"github.com/lawrencejones/convsink/pkg/sink"
	. "github.com/lawrencejones/convsink/pkg/sink/matchers"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemorySink", func() {
	var (
		memory *sink.MemorySink[int]
	)

	BeforeEach(func() {
		memory = sink.NewMemorySink[int]()
	})

	It("records values in the order they were added", func() {
		Expect(memory.Add(1)).To(Succeed())
		Expect(memory.Add(2)).To(Succeed())
		Expect(memory.Add(3)).To(Succeed())
		Expect(memory.Close()).To(Succeed())

		Expect(memory).To(HaveCompletedWith([]int{1, 2, 3}))
	})

	It("returns a copy of its values", func() {
		Expect(memory.Add(1)).To(Succeed())

		values := memory.Values()
		values[0] = 100

		Expect(memory.Values()).To(Equal([]int{1}))
	})

	Context("once closed", func() {
		BeforeEach(func() {
			Expect(memory.Close()).To(Succeed())
		})

		It("rejects values", func() {
			Expect(memory.Add(1)).To(MatchError(sink.ErrClosed))
			Expect(memory.Values()).To(BeEmpty())
		})

		It("rejects a second close", func() {
			Expect(memory.Close()).To(MatchError(sink.ErrClosed))
		})

		It("rejects errors", func() {
			Expect(memory.AddError(fmt.Errorf("late"))).To(MatchError(sink.ErrClosed))
			Expect(memory.Err()).To(BeNil())
		})
	})

	Context("after an error", func() {
		BeforeEach(func() {
			Expect(memory.Add(1)).To(Succeed())
			Expect(memory.AddError(fmt.Errorf("boom"))).To(Succeed())
		})

		It("records the error and is closed", func() {
			Expect(memory).To(HaveFailedWith("boom"))
			Expect(memory.Closed()).To(BeTrue())
		})

		It("rejects further values", func() {
			Expect(memory.Add(2)).To(MatchError(sink.ErrClosed))
			Expect(memory.Values()).To(Equal([]int{1}))
		})
	})
})
