package logger_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/papercomputeco/lmnode/pkg/logger"
)

var _ = Describe("Logger", func() {
	It("drops debug entries unless debug is enabled", func() {
		var buf bytes.Buffer
		l := logger.New(zapcore.AddSync(&buf), false)
		l.Debug("hidden")
		l.Info("shown")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("shown"))
	})

	It("writes debug entries when debug is enabled", func() {
		var buf bytes.Buffer
		l := logger.New(zapcore.AddSync(&buf), true)
		l.Debug("visible", zap.String("model", "test-model"))

		Expect(buf.String()).To(ContainSubstring("visible"))
		Expect(buf.String()).To(ContainSubstring("test-model"))
	})

	Describe("context", func() {
		It("returns the logger stored in the context", func() {
			l := zap.NewExample()
			ctx := logger.WithContext(context.Background(), l)

			Expect(logger.FromContext(ctx)).To(BeIdenticalTo(l))
		})

		It("falls back to a no-op logger", func() {
			l := logger.FromContext(context.Background())

			Expect(l).NotTo(BeNil())
			Expect(l.Core().Enabled(zapcore.ErrorLevel)).To(BeFalse())
		})
	})

	Describe("Preview", func() {
		It("flattens newlines", func() {
			Expect(logger.Preview("a\nb", 10)).To(Equal("a b"))
		})

		It("truncates long text", func() {
			Expect(logger.Preview("abcdefghij", 6)).To(Equal("abc..."))
		})
	})
})
