package transport_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/pkg/transport"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }
func (timeoutError) Temporary() bool { return true }

var _ = Describe("Classify", func() {
	It("passes nil through", func() {
		Expect(transport.Classify(nil)).To(BeNil())
	})

	It("classifies a refused dial as a connection error", func() {
		err := &url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: &net.OpError{
			Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
		}}

		Expect(transport.Classify(err)).To(MatchError(transport.ErrConnection))
	})

	It("classifies DNS failures as connection errors", func() {
		err := fmt.Errorf("dial: %w", &net.DNSError{Err: "no such host", Name: "lmstudio.invalid"})

		Expect(transport.Classify(err)).To(MatchError(transport.ErrConnection))
	})

	It("classifies deadlines as timeouts", func() {
		err := fmt.Errorf("read: %w", context.DeadlineExceeded)

		Expect(transport.Classify(err)).To(MatchError(transport.ErrTimeout))
	})

	It("classifies net.Error timeouts as timeouts", func() {
		err := &url.Error{Op: "Post", URL: "http://127.0.0.1:1234", Err: timeoutError{}}

		Expect(transport.Classify(err)).To(MatchError(transport.ErrTimeout))
	})

	It("keeps the original error in the chain", func() {
		err := transport.Classify(fmt.Errorf("do request: %w", syscall.ECONNREFUSED))

		Expect(errors.Is(err, syscall.ECONNREFUSED)).To(BeTrue())
	})

	It("leaves classified and unknown errors unchanged", func() {
		known := fmt.Errorf("%w: nope", transport.ErrModelNotFound)
		unknown := errors.New("boom")

		Expect(transport.Classify(known)).To(BeIdenticalTo(known))
		Expect(transport.Classify(unknown)).To(BeIdenticalTo(unknown))
		Expect(transport.Known(unknown)).To(BeFalse())
	})
})

var _ = DescribeTable("LooksLikeModelNotFound",
	func(message string, expected bool) {
		Expect(transport.LooksLikeModelNotFound(message)).To(Equal(expected))
	},
	Entry("REST error", `Model "foo" not found`, true),
	Entry("SDK query error", "No model found that fits the query", true),
	Entry("not loaded", "Model is not loaded", true),
	Entry("unrelated 404", "Unexpected endpoint or method. (POST /api/v0/chat)", false),
	Entry("not found without model", "file not found", false),
)
