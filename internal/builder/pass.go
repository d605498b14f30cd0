package builder

import (
	"fmt"
	"strings"

	"github.com/samkaj/maker/internal/builder/gen"
)

// Phase is a step of a generation pass. Phases run strictly in order and a
// pass is never reused.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseClassified
	PhaseArtifactsMapped
	PhaseVariablesRendered
	PhaseRulesRendered
	PhaseDone
)

var phaseNames = [...]string{"init", "classified", "artifacts mapped", "variables rendered", "rules rendered", "done"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// pass carries one file list through classification, mapping and rendering.
type pass struct {
	phase     Phase
	headers   []string
	units     []string
	artifacts []Artifact
	text      strings.Builder
}

func (p *pass) advance(to Phase) {
	if to != p.phase+1 {
		panic(fmt.Sprintf("generation pass: illegal transition %s -> %s", p.phase, to))
	}
	p.phase = to
}

func (p *pass) classify(c Classifier, files []string) {
	for _, f := range files {
		switch c.Classify(f) {
		case RoleHeader:
			p.headers = append(p.headers, f)
		case RoleUnit:
			p.units = append(p.units, f)
		}
	}
	p.advance(PhaseClassified)
}

func (p *pass) mapArtifacts(outputDir, objSuffix string) error {
	if len(p.units) == 0 {
		return ErrNoSourceFiles
	}
	artifacts := make([]Artifact, 0, len(p.units))
	owners := make(map[string]string, len(p.units)) // object -> unit
	for _, unit := range p.units {
		a, err := MapArtifact(unit, outputDir, objSuffix)
		if err != nil {
			return err
		}
		if prev, ok := owners[a.Obj]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrInvalidUnitPath, prev, unit, a.Obj)
		}
		owners[a.Obj] = unit
		artifacts = append(artifacts, a)
	}
	p.artifacts = artifacts
	p.advance(PhaseArtifactsMapped)
	return nil
}

func (p *pass) renderVariables(g gen.Generator) {
	g.WriteVariables(&p.text)
	p.advance(PhaseVariablesRendered)
}

func (p *pass) renderRules(g gen.Generator) {
	g.WriteRules(&p.text)
	p.advance(PhaseRulesRendered)
}

func (p *pass) finish() string {
	p.advance(PhaseDone)
	return p.text.String()
}

// artifactDirs lists the distinct object directories in first-seen order.
func artifactDirs(artifacts []Artifact) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, a := range artifacts {
		if !seen[a.Dir] {
			seen[a.Dir] = true
			dirs = append(dirs, a.Dir)
		}
	}
	return dirs
}
