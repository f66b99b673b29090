package definitioncmder

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	"github.com/papercomputeco/lmnode/node"
)

var _ = Describe("Definition Command", func() {
	It("prints the definition with configured defaults", func() {
		tmpDir := GinkgoT().TempDir()
		configPath := filepath.Join(tmpDir, "lmnode.toml")
		Expect(os.WriteFile(configPath, []byte("[defaults]\nmodel_id = \"configured-model\"\n"), 0o644)).To(Succeed())

		globals := &cmdutil.Globals{ConfigPath: configPath, EnvFile: filepath.Join(tmpDir, ".env")}
		out := &bytes.Buffer{}

		cmd := NewDefinitionCmd(globals)
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.ExecuteContext(context.Background())).To(Succeed())

		var def node.Definition
		Expect(json.Unmarshal(out.Bytes(), &def)).To(Succeed())
		Expect(def.ClassName).To(Equal("LMStudioNode"))

		model, ok := def.Input("model_id")
		Expect(ok).To(BeTrue())
		Expect(model.Default).To(Equal("configured-model"))
	})

	It("fails on an invalid config", func() {
		tmpDir := GinkgoT().TempDir()
		configPath := filepath.Join(tmpDir, "lmnode.toml")
		Expect(os.WriteFile(configPath, []byte("[defaults\n"), 0o644)).To(Succeed())

		cmd := NewDefinitionCmd(&cmdutil.Globals{ConfigPath: configPath, EnvFile: filepath.Join(tmpDir, ".env")})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		Expect(cmd.ExecuteContext(context.Background())).To(MatchError(ContainSubstring("could not load config")))
	})
})
