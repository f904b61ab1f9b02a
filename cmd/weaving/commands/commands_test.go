package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/weaving/internal/build"
	"git.home.luguber.info/inful/weaving/internal/config"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newProject(t *testing.T, pages map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "templates", "default.liquid"),
		`<html><body><h1>{{ page.title }}</h1>{{ page.body | raw }}</body></html>`)
	for rel, body := range pages {
		writeFile(t, filepath.Join(dir, "content", filepath.FromSlash(rel)), body)
	}
	return dir
}

func quietGlobal(out io.Writer) *Global {
	return &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Out: out}
}

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("weaving"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, kctx
}

func TestParse_BasePathFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEAVING_BASE_PATH", dir)

	cli, kctx := parse(t, "build")
	require.Equal(t, "build", kctx.Command())
	require.Equal(t, dir, cli.Build.Path)

	cli, _ = parse(t, "serve", "-p", filepath.Join(dir, "other"))
	require.Equal(t, filepath.Join(dir, "other"), cli.Serve.Path)
}

func TestParse_NewDefaults(t *testing.T) {
	cli, kctx := parse(t, "new", "-n", "blog")
	require.Equal(t, "new", kctx.Command())
	require.Equal(t, "blog", cli.New.Name)
	require.Equal(t, "default", cli.New.Template)
}

func TestCLI_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	cli := &CLI{LogLevel: "warn", LogFormat: "text"}
	logger, err := cli.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("quiet")
	require.Empty(t, buf.String())

	cli.Verbose = true
	logger, err = cli.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("loud")
	require.Contains(t, buf.String(), "loud")

	_, err = (&CLI{LogLevel: "shouty"}).NewLogger(&buf)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestBuildCmd_Success(t *testing.T) {
	dir := newProject(t, map[string]string{
		"index.md": "---\ntitle: Home\ntags: []\n---\nhello\n",
	})
	reportDir := t.TempDir()

	var out bytes.Buffer
	cmd := &BuildCmd{Path: dir, ReportDir: reportDir}
	require.NoError(t, cmd.Run(quietGlobal(&out), &CLI{}))

	require.Contains(t, out.String(), "outcome=success")
	require.FileExists(t, filepath.Join(dir, "site", "index.html"))
	require.FileExists(t, filepath.Join(reportDir, "build-report.json"))
}

func TestRunBuild_PageErrorsExitNonZero(t *testing.T) {
	dir := newProject(t, map[string]string{
		"good.md": "---\ntitle: Good\ntags: []\n---\nok\n",
		"bad.md":  "---\ntags: []\n---\nno title\n",
	})
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := RunBuild(context.Background(), &out, cfg, BuildOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.Error(t, err)
	require.Equal(t, build.OutcomePartial, report.Outcome)
	require.Contains(t, out.String(), "bad.md: "+string(ferrors.CategoryMissingField))
	require.Equal(t, 1, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCmd_InvalidConfig(t *testing.T) {
	dir := newProject(t, nil)
	writeFile(t, filepath.Join(dir, config.FileName), `templating_language = "handlebars"`)

	err := (&BuildCmd{Path: dir}).Run(quietGlobal(io.Discard), &CLI{})
	require.Error(t, err)
	require.Equal(t, 7, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestConfigCmd(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, (&ConfigCmd{Path: dir}).Run(quietGlobal(&out), &CLI{}))
	require.True(t, strings.HasPrefix(out.String(), "Wrote "))
	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	require.Equal(t, config.DefaultTOML, string(data))

	err = (&ConfigCmd{Path: dir}).Run(quietGlobal(&out), &CLI{})
	require.Equal(t, 2, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	require.NoError(t, (&ConfigCmd{Path: dir, Force: true}).Run(quietGlobal(&out), &CLI{}))
}

func TestNewCmd_RejectsNonEmptyTarget(t *testing.T) {
	parent := t.TempDir()
	writeFile(t, filepath.Join(parent, "blog", "keep.txt"), "x")

	err := (&NewCmd{Name: "blog", Path: parent, Template: "default"}).Run(quietGlobal(io.Discard), &CLI{})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}
