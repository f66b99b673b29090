package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/pkg/config"
)

func writeFile(path, content string) {
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
}

// replaceFile swaps the file in with a rename so watchers never see it empty.
func replaceFile(path, content string) {
	tmp := path + ".tmp"
	writeFile(tmp, content)
	Expect(os.Rename(tmp, path)).To(Succeed())
}

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns the defaults without a file", func() {
		c, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Server.Listen).To(Equal(":8188"))
		Expect(c.SDK.Enabled).To(BeTrue())
		Expect(c.Timeout).To(Equal(120 * time.Second))
		Expect(c.Defaults.ServerAddress).To(Equal("http://127.0.0.1:1234"))
		Expect(c.Defaults.MaxTokens).To(Equal(1000))
	})

	It("reads every section of the file", func() {
		path := filepath.Join(dir, "lmnode.toml")
		writeFile(path, `
timeout = "45s"

[server]
listen = "127.0.0.1:9000"

[defaults]
model_id = "qwen/qwen3-8b"
temperature = 0.2
max_tokens = 512
thinking_tokens = false

[sdk]
enabled = false
client_identifier = "workflow-box"

[http]
path = "/v1/chat/completions"
timeout = "30s"

[image]
max_dimension = 1024
jpeg_quality = 80
strict = true
`)

		c, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Timeout).To(Equal(45 * time.Second))
		Expect(c.Server.Listen).To(Equal("127.0.0.1:9000"))
		Expect(c.Defaults.ModelID).To(Equal("qwen/qwen3-8b"))
		Expect(c.Defaults.Temperature).To(Equal(0.2))
		Expect(c.Defaults.ThinkingTokens).To(BeFalse())
		// unset keys keep their default
		Expect(c.Defaults.SystemPrompt).To(Equal("You are a helpful assistant."))

		nc := c.NodeConfig()
		Expect(nc.SDKEnabled).To(BeFalse())
		Expect(nc.ClientIdentifier).To(Equal("workflow-box"))
		Expect(nc.HTTPPath).To(Equal("/v1/chat/completions"))
		Expect(nc.HTTPTimeout).To(Equal(30 * time.Second))
		Expect(nc.Timeout).To(Equal(45 * time.Second))
		Expect(nc.Image.MaxDimension).To(Equal(1024))
		Expect(nc.Image.Quality).To(Equal(80))
		Expect(nc.StrictImages).To(BeTrue())

		Expect(c.NodeDefaults().MaxTokens).To(Equal(512))
	})

	It("rejects unknown keys", func() {
		path := filepath.Join(dir, "lmnode.toml")
		writeFile(path, "[sdk]\nenabeld = true\n")

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("sdk.enabeld")))
	})

	It("rejects out of range values", func() {
		path := filepath.Join(dir, "lmnode.toml")
		writeFile(path, "[defaults]\ntemperature = 1.5\n\n[image]\njpeg_quality = 120\n")

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("defaults.temperature"))
		Expect(err.Error()).To(ContainSubstring("image.jpeg_quality"))
	})

	It("fails on a missing explicit file", func() {
		_, err := config.Load(filepath.Join(dir, "missing.toml"))
		Expect(err).To(HaveOccurred())
	})

	It("applies environment overrides over the file", func() {
		path := filepath.Join(dir, "lmnode.toml")
		writeFile(path, "[defaults]\nmodel_id = \"from-file\"\n")
		setenv("LMNODE_MODEL_ID", "from-env")
		setenv("LMNODE_SDK_ENABLED", "false")
		setenv("LMNODE_TIMEOUT", "5s")

		c, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Defaults.ModelID).To(Equal("from-env"))
		Expect(c.SDK.Enabled).To(BeFalse())
		Expect(c.Timeout).To(Equal(5 * time.Second))
	})

	It("reports malformed environment values", func() {
		setenv("LMNODE_SDK_ENABLED", "maybe")

		_, err := config.Load("")
		Expect(err).To(MatchError(ContainSubstring("LMNODE_SDK_ENABLED")))
	})
})

var _ = Describe("ResolvePath", func() {
	It("prefers the explicit path", func() {
		setenv(config.EnvFile, "/from/env.toml")
		Expect(config.ResolvePath("/explicit.toml")).To(Equal("/explicit.toml"))
	})

	It("falls back to the environment", func() {
		setenv(config.EnvFile, "/from/env.toml")
		Expect(config.ResolvePath("")).To(Equal("/from/env.toml"))
	})
})

var _ = Describe("LoadDotEnv", func() {
	It("ignores a missing file", func() {
		Expect(config.LoadDotEnv(filepath.Join(GinkgoT().TempDir(), ".env"))).To(Succeed())
	})

	It("exports the variables of the file", func() {
		path := filepath.Join(GinkgoT().TempDir(), ".env")
		writeFile(path, "LMNODE_TEST_DOTENV=loaded\n")
		DeferCleanup(os.Unsetenv, "LMNODE_TEST_DOTENV")

		Expect(config.LoadDotEnv(path)).To(Succeed())
		Expect(os.Getenv("LMNODE_TEST_DOTENV")).To(Equal("loaded"))
	})
})

var _ = Describe("Watch", func() {
	It("reloads the file when it changes", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "lmnode.toml")
		writeFile(path, "[defaults]\nmodel_id = \"first\"\n")

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		reloaded := make(chan *config.Config, 8)
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, zap.NewNop(), func(c *config.Config) {
				reloaded <- c
			})
		}()

		// give the watcher time to register before touching the file
		time.Sleep(100 * time.Millisecond)
		replaceFile(path, "[defaults]\nmodel_id = \"second\"\n")

		var c *config.Config
		Eventually(reloaded, 5*time.Second).Should(Receive(&c))
		Expect(c.Defaults.ModelID).To(Equal("second"))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})

	It("skips invalid contents", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "lmnode.toml")
		writeFile(path, "[defaults]\nmodel_id = \"first\"\n")

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		reloaded := make(chan *config.Config, 8)
		go func() {
			_ = config.Watch(ctx, path, zap.NewNop(), func(c *config.Config) {
				reloaded <- c
			})
		}()

		time.Sleep(100 * time.Millisecond)
		replaceFile(path, "[defaults\n")
		Consistently(reloaded, 300*time.Millisecond).ShouldNot(Receive())
	})
})
