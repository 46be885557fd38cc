package sink_test

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lawrencejones/convsink/pkg/sink"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ChunkedSinkAdapter", func() {
	var (
		adapter   *sink.ChunkedSinkAdapter[string]
		completed [][]string
		failures  []error
	)

	BeforeEach(func() {
		completed, failures = nil, nil
		adapter = sink.WithCallbacks(
			func(values []string) {
				completed = append(completed, values)
			},
			func(err error) {
				failures = append(failures, err)
			},
		)
	})

	It("does not call back before close", func() {
		Expect(adapter.Add("a")).To(Succeed())
		Expect(adapter.Add("b")).To(Succeed())

		Expect(completed).To(BeEmpty())
	})

	It("hands over every value in order on close", func() {
		Expect(adapter.Add("a")).To(Succeed())
		Expect(adapter.Add("b")).To(Succeed())
		Expect(adapter.Close()).To(Succeed())

		Expect(completed).To(Equal([][]string{{"a", "b"}}))
		Expect(failures).To(BeEmpty())
	})

	It("completes with an empty collection when nothing was added", func() {
		Expect(adapter.Close()).To(Succeed())

		Expect(completed).To(HaveLen(1))
		Expect(completed[0]).To(BeEmpty())
	})

	Context("once closed", func() {
		BeforeEach(func() {
			Expect(adapter.Add("a")).To(Succeed())
			Expect(adapter.Close()).To(Succeed())
		})

		It("rejects further values", func() {
			Expect(adapter.Add("b")).To(MatchError(sink.ErrClosed))
		})

		It("never calls back twice", func() {
			Expect(adapter.Close()).To(MatchError(sink.ErrClosed))
			Expect(adapter.AddError(fmt.Errorf("late"))).To(MatchError(sink.ErrClosed))

			Expect(completed).To(HaveLen(1))
			Expect(failures).To(BeEmpty())
		})
	})

	Context("after an error", func() {
		BeforeEach(func() {
			Expect(adapter.Add("a")).To(Succeed())
			Expect(adapter.AddError(fmt.Errorf("boom"))).To(Succeed())
		})

		It("reports the error, without completing", func() {
			Expect(failures).To(ConsistOf(MatchError("boom")))
			Expect(completed).To(BeEmpty())
		})

		It("rejects a subsequent close", func() {
			Expect(adapter.Close()).To(MatchError(sink.ErrClosed))
			Expect(completed).To(BeEmpty())
		})
	})

	Context("with only a completion callback", func() {
		BeforeEach(func() {
			adapter = sink.WithCallback(func(values []string) {
				completed = append(completed, values)
			})
		})

		It("swallows errors silently", func() {
			Expect(adapter.AddError(fmt.Errorf("boom"))).To(Succeed())
			Expect(completed).To(BeEmpty())
		})
	})

	Context("when closed concurrently", func() {
		It("calls back exactly once", func() {
			var calls int64
			adapter := sink.WithCallback(func(values []int) {
				atomic.AddInt64(&calls, 1)
			})

			for idx := 0; idx < 100; idx++ {
				Expect(adapter.Add(idx)).To(Succeed())
			}

			var (
				wg        sync.WaitGroup
				successes int64
			)

			for idx := 0; idx < 16; idx++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					if adapter.Close() == nil {
						atomic.AddInt64(&successes, 1)
					}
				}()
			}

			wg.Wait()

			Expect(atomic.LoadInt64(&calls)).To(BeEquivalentTo(1))
			Expect(atomic.LoadInt64(&successes)).To(BeEquivalentTo(1))
		})
	})
})
