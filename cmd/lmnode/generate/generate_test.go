package generatecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	"github.com/papercomputeco/lmnode/pkg/lmstudiotest"
)

var _ = Describe("Generate Command", func() {
	var (
		ctx     context.Context
		fake    *lmstudiotest.Server
		globals *cmdutil.Globals
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = lmstudiotest.NewServer(lmstudiotest.DefaultConfig())
		DeferCleanup(fake.Close)

		tmpDir := GinkgoT().TempDir()
		globals = &cmdutil.Globals{
			ConfigPath: filepath.Join(tmpDir, "lmnode.toml"),
			EnvFile:    filepath.Join(tmpDir, ".env"),
		}
		Expect(os.WriteFile(globals.ConfigPath, []byte("[defaults]\nmodel_id = \"test-model\"\n"), 0o644)).To(Succeed())

		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := NewGenerateCmd(globals)
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--server", fake.URL}, args...))
		return cmd.ExecuteContext(ctx)
	}

	It("prints the response and stats as plain text", func() {
		Expect(execute("--plain", "--no-sdk", "Hello", "there")).To(Succeed())

		Expect(out.String()).To(Equal(
			"Hello from LM Studio\n\nTokens per Second: 56.78\nInput Tokens: 12\nOutput Tokens: 34\n"))

		reqs := fake.ChatRequests()
		Expect(reqs).To(HaveLen(1))
		b, err := json.Marshal(reqs[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(`"content":"Hello there"`))
	})

	It("prints the node outputs as JSON", func() {
		Expect(execute("--json", "--no-sdk", "Hi")).To(Succeed())

		var resp map[string]string
		Expect(json.Unmarshal(out.Bytes(), &resp)).To(Succeed())
		Expect(resp).To(HaveKeyWithValue("response", "Hello from LM Studio"))
		Expect(resp).To(HaveKey("stats"))
	})

	It("reads the message from stdin", func() {
		cmd := NewGenerateCmd(globals)
		cmd.SetOut(out)
		cmd.SetIn(strings.NewReader("  from stdin\n"))
		cmd.SetArgs([]string{"--server", fake.URL, "--plain", "--no-sdk", "-"})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		b, err := json.Marshal(fake.ChatRequests()[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(`"content":"from stdin"`))
	})

	It("applies generation flags", func() {
		Expect(execute("--plain", "--no-sdk", "--temperature", "0.1", "--max-tokens", "42", "Hi")).To(Succeed())

		reqs := fake.ChatRequests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0]["temperature"]).To(Equal(0.1))
		Expect(reqs[0]["max_tokens"]).To(Equal(float64(42)))
	})

	It("uploads an image over the SDK transport", func() {
		imgPath := filepath.Join(GinkgoT().TempDir(), "pixel.png")
		f, err := os.Create(imgPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4)))).To(Succeed())
		Expect(f.Close()).To(Succeed())

		Expect(execute("--plain", "--image", imgPath, "What is this?")).To(Succeed())

		Expect(fake.Uploads()).To(HaveLen(1))
		Expect(fake.Predictions()).To(HaveLen(1))
		Expect(out.String()).To(HavePrefix("Hello from LM Studio"))
	})

	It("prints node failures instead of failing", func() {
		Expect(execute("--plain", "--no-sdk", "--model", "missing", "Hi")).To(Succeed())

		Expect(out.String()).To(HavePrefix(`Model not found: "missing"`))
		Expect(out.String()).To(ContainSubstring("Input Tokens: unavailable"))
	})

	It("fails on a missing image file", func() {
		err := execute("--plain", "--image", "/does/not/exist.png", "Hi")
		Expect(err).To(MatchError(ContainSubstring("could not read image")))
	})
})
