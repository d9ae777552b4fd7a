package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/runner"
	"github.com/specialistvlad/namedim/internal/scenario"
	"github.com/specialistvlad/namedim/internal/scenario/mock_scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/mock/gomock"
)

func toDataScript(names ...dimstack.Name) *scenario.Script {
	return &scenario.Script{Steps: []*scenario.Step{
		{Kind: scenario.StepToData, Label: "x", ToData: &scenario.ToDataSpec{Names: names}},
	}}
}

// setupApp builds an App whose loader serves scripts by path.
func setupApp(t *testing.T, cfg Config, scripts map[string]*scenario.Script) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mock_scenario.NewMockLoader(ctrl)
	for _, path := range cfg.ScriptPaths {
		loader.EXPECT().Load(gomock.Any(), path).Return(scripts[path], nil)
	}

	config, err := NewConfig(cfg)
	require.NoError(t, err)
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	return NewApp(out, logs, config, loader), out, logs
}

func TestNewApp_LoadsEveryScript(t *testing.T) {
	a, _, logs := setupApp(t, Config{ScriptPaths: []string{"a.hcl", "b.hcl"}, LogLevel: "debug"}, map[string]*scenario.Script{
		"a.hcl": toDataScript("x"),
		"b.hcl": toDataScript("y"),
	})
	require.Len(t, a.Scripts(), 2)
	assert.Equal(t, dimstack.Name("y"), a.Scripts()[1].Steps[0].ToData.Names[0])
	assert.Contains(t, logs.String(), "Scripts loaded")
}

func TestNewApp_PanicsOnLoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mock_scenario.NewMockLoader(ctrl)
	loader.EXPECT().Load(gomock.Any(), "broken.hcl").Return(nil, errors.New("boom"))

	cfg, err := NewConfig(Config{ScriptPaths: []string{"broken.hcl"}})
	require.NoError(t, err)
	assert.PanicsWithError(t, "failed to load script: boom", func() {
		NewApp(io.Discard, io.Discard, cfg, loader)
	})
}

func TestRun_TextReport(t *testing.T) {
	a, out, _ := setupApp(t, Config{ScriptPaths: []string{"a.hcl"}}, map[string]*scenario.Script{
		"a.hcl": toDataScript("x"),
	})
	require.NoError(t, a.Run(context.Background()))

	want := `== a.hcl (first available: 0)
PATH  OP       ITER  BINDINGS
x     to_data  -     x=-1
global: x=-1
`
	assert.Equal(t, want, out.String())
}

func TestRun_ReportsKeepArgumentOrder(t *testing.T) {
	paths := []string{"a.hcl", "b.hcl", "c.hcl"}
	a, out, _ := setupApp(t, Config{ScriptPaths: paths, OutputFormat: OutputJSON, WorkerCount: 3}, map[string]*scenario.Script{
		"a.hcl": toDataScript("a"),
		"b.hcl": toDataScript("b1", "b2"),
		"c.hcl": toDataScript("c"),
	})
	require.NoError(t, a.Run(context.Background()))

	var got []scriptReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 3)
	for i, path := range paths {
		assert.Equal(t, path, got[i].Script)
	}
	assert.Equal(t, []dimstack.Binding{{Name: "b1", Slot: -1}, {Name: "b2", Slot: -2}}, got[1].Report.Results[0].Bindings)
}

func TestRun_MsgpackReport(t *testing.T) {
	a, out, _ := setupApp(t, Config{ScriptPaths: []string{"a.hcl"}, OutputFormat: OutputMsgpack, FirstAvailable: -2}, map[string]*scenario.Script{
		"a.hcl": toDataScript("x"),
	})
	require.NoError(t, a.Run(context.Background()))

	dec := msgpack.NewDecoder(out)
	dec.SetCustomStructTag("json")
	var got []scriptReport
	require.NoError(t, dec.Decode(&got))

	want := []scriptReport{{
		Script: "a.hcl",
		Report: &runner.Report{
			FirstAvailable: -2,
			Results: []runner.Result{
				{Path: "x", Op: "to_data", Iteration: runner.NoIteration, Bindings: []dimstack.Binding{{Name: "x", Slot: -2}}},
			},
			Global: []dimstack.Binding{{Name: "x", Slot: -2}},
		},
	}}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("msgpack report mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ScriptFailure(t *testing.T) {
	failing := &scenario.Script{Steps: []*scenario.Step{
		{Kind: scenario.StepRequest, Label: "bad", Request: &scenario.RequestSpec{Slot: 2, Side: scenario.RequestSideName}},
	}}
	a, out, _ := setupApp(t, Config{ScriptPaths: []string{"ok.hcl", "bad.hcl"}, WorkerCount: 2}, map[string]*scenario.Script{
		"ok.hcl":  toDataScript("x"),
		"bad.hcl": failing,
	})
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script bad.hcl failed")
	assert.ErrorIs(t, err, dimstack.ErrInvalidRequest)
	assert.Empty(t, out.String(), "no partial report is written")
}

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) AppendHistory(string) {}

func TestRunInteractive(t *testing.T) {
	a, out, _ := setupApp(t, Config{Interactive: true, FirstAvailable: -3}, nil)
	in := &scriptedInput{lines: []string{"local a", "to_data x"}}
	require.NoError(t, a.RunInteractive(context.Background(), in))
	assert.Contains(t, out.String(), "opened local a")
	assert.Contains(t, out.String(), "x=-3")
}
