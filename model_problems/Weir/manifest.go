package Weir

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"

	"github.com/notargets/weircfd/InputParameters"
	"github.com/notargets/weircfd/diagnostics"
)

const ManifestFile = "manifest.yaml"

// Manifest identifies a run and records the parameters it was started with
type Manifest struct {
	RunID      string                         `json:"RunID"`
	Case       string                         `json:"Case"`
	Started    time.Time                      `json:"Started"`
	Procs      int                            `json:"Procs"`
	Restored   bool                           `json:"Restored"`
	StartTime  float64                        `json:"StartTime"`
	Parameters InputParameters.CaseParameters `json:"Parameters"`
}

func (ws *State) WriteManifest() (err error) {
	if !ws.Engine.IsCoordinator() {
		return
	}
	var (
		data []byte
		path = filepath.Join(ws.Options.RunDir, ManifestFile)
	)
	if data, err = yaml.Marshal(Manifest{
		RunID:      ws.RunID.String(),
		Case:       ws.Case.Title,
		Started:    time.Now().UTC(),
		Procs:      ws.Options.Procs,
		Restored:   ws.Restored,
		StartTime:  ws.Engine.Time(),
		Parameters: ws.Case,
	}); err != nil {
		return
	}
	if err = ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, diagnostics.ErrOpenOutput)
	}
	return
}

func ReadManifest(path string) (m Manifest, err error) {
	var data []byte
	if data, err = ioutil.ReadFile(path); err != nil {
		return
	}
	err = yaml.Unmarshal(data, &m)
	return
}
