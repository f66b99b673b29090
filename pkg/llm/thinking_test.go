package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

var _ = Describe("StripThinking", func() {
	It("removes a leading thinking segment", func() {
		out := llm.StripThinking("<think>let me reason</think>\n\nThe answer is 42.")
		Expect(out).To(Equal("The answer is 42."))
	})

	It("removes multi-line and repeated segments", func() {
		raw := "<think>line one\nline two</think>A<think>\nmore\n</think>B"
		Expect(llm.StripThinking(raw)).To(Equal("AB"))
	})

	It("does not merge segments across the closing tag", func() {
		raw := "<think>x</think> keep me <think>y</think>"
		Expect(llm.StripThinking(raw)).To(Equal("keep me"))
	})

	It("leaves an unterminated segment untouched", func() {
		raw := "<think>still thinking when tokens ran out"
		Expect(llm.StripThinking(raw)).To(Equal(raw))
	})

	It("leaves text without segments untouched apart from trimming", func() {
		Expect(llm.StripThinking("  plain answer \n")).To(Equal("plain answer"))
	})

	Describe("HasThinking", func() {
		It("detects delimited segments", func() {
			Expect(llm.HasThinking("<think>a</think>b")).To(BeTrue())
			Expect(llm.HasThinking("b")).To(BeFalse())
		})
	})
})
