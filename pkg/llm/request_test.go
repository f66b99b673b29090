package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

var _ = Describe("Request", func() {
	var req llm.Request

	BeforeEach(func() {
		req = llm.Request{
			SystemPrompt:  "You are a helpful assistant.",
			UserMessage:   "Hi",
			ModelID:       "test-model",
			ServerAddress: "http://127.0.0.1:1234/",
			Temperature:   0.7,
			MaxTokens:     1000,
		}
	})

	It("accepts a complete request", func() {
		Expect(req.Validate()).To(Succeed())
	})

	It("requires a model id", func() {
		req.ModelID = "  "
		err := req.Validate()

		var verr *llm.ValidationError
		Expect(err).To(BeAssignableToTypeOf(verr))
		Expect(err.Error()).To(Equal("model_id is required"))
	})

	It("requires a server address", func() {
		req.ServerAddress = ""
		Expect(req.Validate()).To(MatchError("server_address is required"))
	})

	It("rejects a server address that is not an http URL", func() {
		req.ServerAddress = "127.0.0.1:1234"
		Expect(req.Validate()).To(MatchError(ContainSubstring("must be an http(s) URL")))
	})

	It("trims trailing slashes from the base URL", func() {
		Expect(req.BaseURL()).To(Equal("http://127.0.0.1:1234"))
	})

	It("builds system and user messages", func() {
		Expect(req.Messages()).To(Equal([]llm.Message{
			{Role: llm.RoleSystem, Content: "You are a helpful assistant."},
			{Role: llm.RoleUser, Content: "Hi"},
		}))
	})

	It("leaves out an empty system prompt", func() {
		req.SystemPrompt = ""
		Expect(req.Messages()).To(HaveLen(1))
	})

	It("exposes generation options", func() {
		Expect(req.Options()).To(Equal(llm.Options{Temperature: 0.7, MaxTokens: 1000}))
	})
})
