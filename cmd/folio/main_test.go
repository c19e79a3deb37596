package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/internal/config"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := newFlagCmd(t, "--store", "redis", "--redis-addr", "cache:6379", "--log-level", "debug")
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.Default().Store.Path, cfg.Store.Path)

	_, err = loadConfig(newFlagCmd(t, "--store", "s3"))
	assert.Error(t, err)
}

func TestRunApply(t *testing.T) {
	dir := t.TempDir()
	reg := components.Builtin()
	docPath := filepath.Join(dir, "doc.json")
	doc, err := cli.NewFile(reg, docPath, false)
	require.NoError(t, err)
	body := doc.Nodes[doc.Root].Slots[0]

	cmdsPath := filepath.Join(dir, "cmds.yaml")
	require.NoError(t, os.WriteFile(cmdsPath, []byte(`
- type: InsertNode
  payload: {slotId: `+string(body)+`, index: 0, nodeType: text, props: {content: Hello}}
`), 0644))

	outPath := filepath.Join(dir, "out.yaml")
	require.NoError(t, runApply(docPath, cmdsPath, outPath, false))

	result, err := cli.ReadDocument(reg, outPath)
	require.NoError(t, err)
	require.Len(t, result.Slots[body].Children, 1)
	inserted := result.Nodes[result.Slots[body].Children[0]]
	assert.Equal(t, "Hello", inserted.Props["content"])

	original, err := cli.ReadDocument(reg, docPath)
	require.NoError(t, err)
	assert.True(t, domain.Equal(doc, original), "the input is left alone when --out is given")

	require.NoError(t, runApply(docPath, cmdsPath, "", true))
	original, err = cli.ReadDocument(reg, docPath)
	require.NoError(t, err)
	assert.Empty(t, original.Slots[body].Children, "dry runs write nothing")
}
