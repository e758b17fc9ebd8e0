package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes pushed on the diagnostics channel.
const (
	CodeAlarmStart    = "ALARM.START"
	CodeAlarmLoop     = "ALARM.LOOP"
	CodeAlarmDone     = "ALARM.DONE"
	CodeAlarmCancel   = "ALARM.CANCEL"
	CodeAudioSilent   = "AUDIO.SILENT"
	CodeCueMissing    = "AUDIO.CUE_MISSING"
	CodeSinkError     = "RENDER.SINK_ERROR"
	CodeFramesDropped = "PACING.DROPPED"
	CodeSettingsSaved = "SETTINGS.SAVED"
	CodeTestRunning   = "TEST.RUNNING"
	CodeTestDone      = "TEST.DONE"
	CodeTestUnknown   = "TEST.UNKNOWN"
	CodeControlBad    = "CONTROL.UNKNOWN"
)

type Diagnostic struct {
	Time           time.Time      `json:"t"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

func New(sev Severity, code, summary string) Diagnostic {
	return Diagnostic{Time: time.Now(), Severity: sev, Code: code, Summary: summary}
}

// With attaches one evidence value and returns d for chaining.
func (d Diagnostic) With(key string, v any) Diagnostic {
	ev := make(map[string]any, len(d.Evidence)+1)
	for k, x := range d.Evidence {
		ev[k] = x
	}
	ev[key] = v
	d.Evidence = ev
	return d
}
