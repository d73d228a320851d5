package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// localSystemSid is the principal the task runs under.
const localSystemSid = "S-1-5-18"

// SchtasksRegistrar supervises the agent through a Windows scheduled task
// triggered at system startup, running as LocalSystem at highest privilege.
type SchtasksRegistrar struct {
	run     Runner
	tempDir string
}

func NewSchtasksRegistrar() *SchtasksRegistrar {
	return &SchtasksRegistrar{run: ExecRunner, tempDir: os.TempDir()}
}

// Task Scheduler 1.2 task definition, serialized with encoding/xml so the
// definition value can never inject markup.
type taskDefinition struct {
	XMLName          xml.Name `xml:"Task"`
	Version          string   `xml:"version,attr"`
	Xmlns            string   `xml:"xmlns,attr"`
	RegistrationInfo taskRegistrationInfo
	Triggers         taskTriggers
	Principals       taskPrincipals
	Settings         taskSettings
	Actions          taskActions
}

type taskRegistrationInfo struct {
	XMLName     xml.Name `xml:"RegistrationInfo"`
	Description string   `xml:"Description"`
}

type taskTriggers struct {
	XMLName xml.Name        `xml:"Triggers"`
	Boot    taskBootTrigger `xml:"BootTrigger"`
}

type taskBootTrigger struct {
	Enabled bool `xml:"Enabled"`
}

type taskPrincipals struct {
	XMLName   xml.Name      `xml:"Principals"`
	Principal taskPrincipal `xml:"Principal"`
}

type taskPrincipal struct {
	ID       string `xml:"id,attr"`
	UserID   string `xml:"UserId"`
	RunLevel string `xml:"RunLevel"`
}

type taskSettings struct {
	XMLName                    xml.Name           `xml:"Settings"`
	MultipleInstancesPolicy    string      `xml:"MultipleInstancesPolicy"`
	DisallowStartIfOnBatteries bool        `xml:"DisallowStartIfOnBatteries"`
	StopIfGoingOnBatteries     bool        `xml:"StopIfGoingOnBatteries"`
	StartWhenAvailable         bool        `xml:"StartWhenAvailable"`
	ExecutionTimeLimit         string      `xml:"ExecutionTimeLimit"`
	RestartOnFailure           taskRestart
}

type taskRestart struct {
	XMLName  xml.Name `xml:"RestartOnFailure"`
	Interval string   `xml:"Interval"`
	Count    int      `xml:"Count"`
}

type taskActions struct {
	XMLName xml.Name `xml:"Actions"`
	Context string   `xml:"Context,attr"`
	Exec    taskExec `xml:"Exec"`
}

type taskExec struct {
	Command          string `xml:"Command"`
	Arguments        string `xml:"Arguments,omitempty"`
	WorkingDirectory string `xml:"WorkingDirectory,omitempty"`
}

// renderTaskXML serializes a Definition into a Task Scheduler XML document
// with a boot trigger, LocalSystem principal at highest run level, 3 restarts
// spaced a minute apart, battery constraints disabled and an effectively
// unbounded execution time limit of a year.
func renderTaskXML(def Definition) ([]byte, error) {
	task := taskDefinition{
		Version: "1.2",
		Xmlns:   "http://schemas.microsoft.com/windows/2004/02/mit/task",
		RegistrationInfo: taskRegistrationInfo{
			Description: def.Description,
		},
		Triggers: taskTriggers{
			Boot: taskBootTrigger{Enabled: true},
		},
		Principals: taskPrincipals{
			Principal: taskPrincipal{
				ID:       "Author",
				UserID:   localSystemSid,
				RunLevel: "HighestAvailable",
			},
		},
		Settings: taskSettings{
			MultipleInstancesPolicy:    "IgnoreNew",
			DisallowStartIfOnBatteries: false,
			StopIfGoingOnBatteries:     false,
			StartWhenAvailable:         true,
			ExecutionTimeLimit:         "P365D",
			RestartOnFailure: taskRestart{
				Interval: "PT1M",
				Count:    3,
			},
		},
		Actions: taskActions{
			Context: "Author",
			Exec: taskExec{
				Command:          def.Executable,
				Arguments:        windowsArgLine(def.Args),
				WorkingDirectory: def.WorkingDir,
			},
		},
	}

	body, err := xml.MarshalIndent(task, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal task definition: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func windowsArgLine(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = "\"" + a + "\""
		}
		quoted = append(quoted, a)
	}
	return strings.Join(quoted, " ")
}

// Register writes the task XML to a temp file and hands it to schtasks.
// Scheduled tasks carry no environment block, the config path travels in the
// argument list instead.
func (r *SchtasksRegistrar) Register(ctx context.Context, def Definition) error {
	if err := r.Unregister(ctx, def.Name); err != nil {
		return err
	}

	body, err := renderTaskXML(def)
	if err != nil {
		return err
	}

	xmlPath := filepath.Join(r.tempDir, def.Name+".task.xml")
	if err := os.WriteFile(xmlPath, body, 0600); err != nil {
		return fmt.Errorf("write task xml: %w", err)
	}
	defer func() {
		_ = os.Remove(xmlPath)
	}()

	if _, err := r.run(ctx, "schtasks", "/Create", "/TN", def.Name, "/XML", xmlPath, "/F"); err != nil {
		return err
	}

	log.Infof("registered scheduled task %s", def.Name)
	return nil
}

func (r *SchtasksRegistrar) Unregister(ctx context.Context, name string) error {
	if !r.exists(ctx, name) {
		return nil
	}
	_, err := r.run(ctx, "schtasks", "/Delete", "/TN", name, "/F")
	return err
}

func (r *SchtasksRegistrar) Start(ctx context.Context, name string) error {
	_, err := r.run(ctx, "schtasks", "/Run", "/TN", name)
	return err
}

func (r *SchtasksRegistrar) Stop(ctx context.Context, name string) error {
	_, err := r.run(ctx, "schtasks", "/End", "/TN", name)
	return err
}

// IsRunning parses the task status column. schtasks exits non-zero for an
// unknown task, which maps to "not running".
func (r *SchtasksRegistrar) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, "schtasks", "/Query", "/TN", name, "/FO", "CSV", "/NH")
	if err != nil {
		return false, nil
	}
	return strings.Contains(out, "Running"), nil
}

func (r *SchtasksRegistrar) exists(ctx context.Context, name string) bool {
	_, err := r.run(ctx, "schtasks", "/Query", "/TN", name)
	return err == nil
}
