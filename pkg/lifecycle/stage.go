package lifecycle

import (
	"strings"

	"github.com/pkg/errors"
)

// Stage is one step of the bot editing wizard
type Stage int

// Stages in wizard order. Deploy is the last stage and stays interactive.
const (
	StageBuild Stage = iota
	StageDesign
	StageConfigure
	StageDeploy
)

var stageNames = map[Stage]string{
	StageBuild:     "build",
	StageDesign:    "design",
	StageConfigure: "configure",
	StageDeploy:    "deploy",
}

// Stages returns every stage in order
func Stages() []Stage {
	return []Stage{StageBuild, StageDesign, StageConfigure, StageDeploy}
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is one of the four wizard stages
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// ParseStage parses a stage name, case-insensitively
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Stages() {
		if stageNames[s] == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown stage %q", name)
}
