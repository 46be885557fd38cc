package sink_test

import (
	"context"
	"fmt"

	"github.com/lawrencejones/convsink/pkg/sink"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Result", func() {
	var (
		ctx    context.Context
		cancel func()
		result *sink.Result[int]
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		result = sink.NewResult[int]()
	})

	AfterEach(func() {
		cancel()
	})

	Describe(".Get", func() {
		It("returns result once resolved", func() {
			result.Resolve(3, nil)
			Expect(result.Get(ctx)).To(Equal(3))
		})

		It("returns the error it was resolved with", func() {
			result.Resolve(0, fmt.Errorf("boom"))

			_, err := result.Get(ctx)
			Expect(err).To(MatchError("boom"))
		})

		Context("with expired context", func() {
			BeforeEach(func() {
				cancel()
			})

			It("returns context expired error", func() {
				_, err := result.Get(ctx)
				Expect(err).To(MatchError("context canceled"))
			})

			Context("when already resolved", func() {
				BeforeEach(func() {
					result.Resolve(3, nil)
				})

				// When the context has expired but we've already done the work, there is no need
				// for us to throwaway the result.
				It("returns result anyway", func() {
					Expect(result.Get(ctx)).To(Equal(3))
				})
			})
		})
	})

	Describe(".Resolve", func() {
		It("keeps only the first resolution", func() {
			Expect(result.Resolve(1, nil)).To(BeTrue())
			Expect(result.Resolve(2, fmt.Errorf("late"))).To(BeFalse())

			Expect(result.Get(ctx)).To(Equal(1))
		})

		It("closes Done", func() {
			Expect(result.Done()).NotTo(BeClosed())
			result.Resolve(1, nil)
			Expect(result.Done()).To(BeClosed())
		})
	})
})
