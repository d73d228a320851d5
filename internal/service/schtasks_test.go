package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func windowsDefinition() Definition {
	return Definition{
		Name:        "GhostLogicAgent",
		DisplayName: "GhostLogic Black Box Agent",
		Description: "GhostLogic black box telemetry agent",
		Executable:  `C:\ProgramData\GhostLogic\venv\Scripts\python.exe`,
		WorkingDir:  `C:\ProgramData\GhostLogic\agent`,
		Args:        []string{"-m", "agent", "--foreground", "--config", `C:\ProgramData\GhostLogic\agent-config.json`},
	}
}

func TestRenderTaskXML(t *testing.T) {
	body, err := renderTaskXML(windowsDefinition())
	require.NoError(t, err)

	xml := string(body)
	require.Contains(t, xml, "<BootTrigger>")
	require.Contains(t, xml, "<UserId>S-1-5-18</UserId>")
	require.Contains(t, xml, "<RunLevel>HighestAvailable</RunLevel>")
	require.Contains(t, xml, "<RestartOnFailure>")
	require.Contains(t, xml, "<Interval>PT1M</Interval>")
	require.Contains(t, xml, "<Count>3</Count>")
	require.Contains(t, xml, "<ExecutionTimeLimit>P365D</ExecutionTimeLimit>")
	require.Contains(t, xml, "<DisallowStartIfOnBatteries>false</DisallowStartIfOnBatteries>")
	require.Contains(t, xml, "<StopIfGoingOnBatteries>false</StopIfGoingOnBatteries>")
	require.Contains(t, xml, `<Command>C:\ProgramData\GhostLogic\venv\Scripts\python.exe</Command>`)
	require.Contains(t, xml, `<WorkingDirectory>C:\ProgramData\GhostLogic\agent</WorkingDirectory>`)
}

func TestRenderTaskXMLEscapesMarkup(t *testing.T) {
	def := windowsDefinition()
	def.Description = `telemetry <&> agent`

	body, err := renderTaskXML(def)
	require.NoError(t, err)
	require.NotContains(t, string(body), "<&>")
	require.Contains(t, string(body), "&lt;&amp;&gt;")
}

func TestWindowsArgLineQuotesSpaces(t *testing.T) {
	line := windowsArgLine([]string{"-m", "agent", "--config", `C:\Program Files\x.json`})
	require.Equal(t, `-m agent --config "C:\Program Files\x.json"`, line)
}

func newTestSchtasks(t *testing.T) (*SchtasksRegistrar, *fakeRunner) {
	t.Helper()
	fake := newFakeRunner()
	return &SchtasksRegistrar{run: fake.run, tempDir: t.TempDir()}, fake
}

func TestSchtasksRegisterFresh(t *testing.T) {
	r, fake := newTestSchtasks(t)
	fake.fail["/Query"] = errors.New("the system cannot find the file specified")

	require.NoError(t, r.Register(context.Background(), windowsDefinition()))

	require.Equal(t, []string{"/Query", "/Create"}, fake.commands())
	create := fake.calls[1]
	require.Contains(t, create, "/TN")
	require.Contains(t, create, "GhostLogicAgent")
	require.Contains(t, create, "/F")
}

func TestSchtasksRegisterReplacesExisting(t *testing.T) {
	r, fake := newTestSchtasks(t)

	require.NoError(t, r.Register(context.Background(), windowsDefinition()))

	// existing task: query succeeds, so the old definition is deleted first
	require.Equal(t, []string{"/Query", "/Delete", "/Create"}, fake.commands())
}

func TestSchtasksUnregisterAbsentIsNoop(t *testing.T) {
	r, fake := newTestSchtasks(t)
	fake.fail["/Query"] = errors.New("not found")

	require.NoError(t, r.Unregister(context.Background(), "GhostLogicAgent"))
	require.Equal(t, []string{"/Query"}, fake.commands())
}

func TestSchtasksIsRunning(t *testing.T) {
	r, fake := newTestSchtasks(t)
	fake.out["/Query"] = `"GhostLogicAgent","N/A","Running"`

	running, err := r.IsRunning(context.Background(), "GhostLogicAgent")
	require.NoError(t, err)
	require.True(t, running)
}

func TestSchtasksIsRunningReady(t *testing.T) {
	r, fake := newTestSchtasks(t)
	fake.out["/Query"] = `"GhostLogicAgent","N/A","Ready"`

	running, err := r.IsRunning(context.Background(), "GhostLogicAgent")
	require.NoError(t, err)
	require.False(t, running)
}

func TestSchtasksStartStop(t *testing.T) {
	r, fake := newTestSchtasks(t)

	require.NoError(t, r.Start(context.Background(), "GhostLogicAgent"))
	require.NoError(t, r.Stop(context.Background(), "GhostLogicAgent"))
	require.Equal(t, []string{"/Run", "/End"}, fake.commands())
	require.Equal(t, "schtasks", fake.calls[0][0])
}
