package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

var _ = Describe("Stats", func() {
	It("formats reported values exactly", func() {
		s := llm.Stats{
			TokensPerSecond: llm.Float(56.789),
			InputTokens:     llm.Int(12),
			OutputTokens:    llm.Int(34),
		}

		Expect(s.String()).To(Equal("Tokens per Second: 56.79\nInput Tokens: 12\nOutput Tokens: 34"))
	})

	It("reports missing values as unavailable", func() {
		Expect(llm.Stats{}.String()).To(Equal(
			"Tokens per Second: unavailable\nInput Tokens: unavailable\nOutput Tokens: unavailable"))
		Expect(llm.UnavailableStats).To(Equal(llm.Stats{}.String()))
	})

	It("keeps a reported zero distinct from a missing value", func() {
		s := llm.Stats{InputTokens: llm.Int(0)}
		Expect(s.String()).To(ContainSubstring("Input Tokens: 0\n"))
		Expect(s.String()).To(ContainSubstring("Output Tokens: unavailable"))
	})

	Describe("Rate", func() {
		It("prefers the reported rate", func() {
			s := llm.Stats{
				TokensPerSecond:   llm.Float(10),
				OutputTokens:      llm.Int(100),
				GenerationSeconds: llm.Float(2),
			}
			rate, ok := s.Rate()
			Expect(ok).To(BeTrue())
			Expect(rate).To(Equal(10.0))
		})

		It("derives the rate from output tokens and generation time", func() {
			s := llm.Stats{OutputTokens: llm.Int(100), GenerationSeconds: llm.Float(4)}
			rate, ok := s.Rate()
			Expect(ok).To(BeTrue())
			Expect(rate).To(Equal(25.0))
		})

		It("is unavailable for a zero generation time", func() {
			s := llm.Stats{OutputTokens: llm.Int(100), GenerationSeconds: llm.Float(0)}
			_, ok := s.Rate()
			Expect(ok).To(BeFalse())
		})
	})
})
