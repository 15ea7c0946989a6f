// Package workflow extracts graded test definitions from a GitHub Classroom
// autograding workflow.
package workflow

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/gradefetch/pkg/grading"
)

// GradingJob is the job GitHub Classroom generates for autograding.
const GradingJob = "run-autograding-tests"

// DefaultPath is where GitHub Classroom writes the autograding workflow.
const DefaultPath = ".github/workflows/classroom.yml"

// DefaultGraders are the action names that mark a step as a graded test.
var DefaultGraders = []string{
	"autograding-command-grader",
	"autograding-io-grader",
	"autograding-python-grader",
}

type file struct {
	Jobs map[string]job `yaml:"jobs"`
}

type job struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name"`
	ID   string            `yaml:"id"`
	Uses string            `yaml:"uses"`
	With map[string]scalar `yaml:"with"`
}

// scalar keeps the raw text of a with: value so max-score can be validated
// without yaml.v3 coercing or rejecting it first.
type scalar struct {
	value string
	kind  yaml.Kind
}

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	s.kind = node.Kind
	s.value = node.Value
	return nil
}

// Parser extracts test definitions. The zero value recognises DefaultGraders.
type Parser struct {
	Graders []string
}

// Parse extracts definitions using the default graders.
func Parse(doc []byte) ([]grading.TestDefinition, error) {
	return Parser{}.Parse(doc)
}

// Parse returns the graded test definitions of doc in declaration order.
// All failures are grading.KindMalformedWorkflow.
func (p Parser) Parse(doc []byte) ([]grading.TestDefinition, error) {
	var wf file
	if err := yaml.Unmarshal(doc, &wf); err != nil {
		return nil, &grading.Error{Kind: grading.KindMalformedWorkflow, Detail: "parse workflow yaml", Err: err}
	}

	j, ok := wf.Jobs[GradingJob]
	if !ok {
		return nil, grading.Malformed("job %q not found", GradingJob)
	}

	var defs []grading.TestDefinition
	seen := make(map[string]bool)
	seenName := make(map[string]bool)
	for i, s := range j.Steps {
		if !p.isGrader(s.Uses) {
			continue
		}
		def, err := definition(s)
		if err != nil {
			return nil, grading.Malformed("step %d (%s): %v", i+1, describe(s), err)
		}
		if seen[def.StepID] {
			return nil, grading.Malformed("step %d: duplicate step id %q", i+1, def.StepID)
		}
		// Job steps come back from the API by display name only, so two
		// graded steps with one name could not be told apart.
		if seenName[def.Name] {
			return nil, grading.Malformed("step %d: duplicate step name %q", i+1, def.Name)
		}
		seen[def.StepID] = true
		seenName[def.Name] = true
		defs = append(defs, def)
	}

	if len(defs) == 0 {
		return nil, grading.Malformed("no autograding tests found in job %q", GradingJob)
	}
	return defs, nil
}

func (p Parser) isGrader(uses string) bool {
	if uses == "" {
		return false
	}
	graders := p.Graders
	if len(graders) == 0 {
		graders = DefaultGraders
	}
	for _, g := range graders {
		if strings.Contains(uses, g) {
			return true
		}
	}
	return false
}

func definition(s step) (grading.TestDefinition, error) {
	id := strings.TrimSpace(s.ID)
	name := strings.TrimSpace(s.Name)
	switch {
	case id == "":
		return grading.TestDefinition{}, fmt.Errorf("missing id")
	case name == "":
		return grading.TestDefinition{}, fmt.Errorf("missing name")
	}

	testName, ok := s.With["test-name"]
	if !ok || strings.TrimSpace(testName.value) == "" {
		return grading.TestDefinition{}, fmt.Errorf("missing with.test-name")
	}
	raw, ok := s.With["max-score"]
	if !ok {
		return grading.TestDefinition{}, fmt.Errorf("missing with.max-score")
	}
	maxScore, err := parseMaxScore(raw)
	if err != nil {
		return grading.TestDefinition{}, err
	}

	return grading.TestDefinition{
		Name:     name,
		StepID:   id,
		TestName: strings.TrimSpace(testName.value),
		MaxScore: maxScore,
	}, nil
}

func parseMaxScore(s scalar) (float64, error) {
	if s.kind != yaml.ScalarNode {
		return 0, fmt.Errorf("max-score must be a number")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s.value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("max-score %q is not a number", s.value)
	}
	if v < 0 {
		return 0, fmt.Errorf("max-score %v is negative", v)
	}
	return v, nil
}

func describe(s step) string {
	if s.Name != "" {
		return s.Name
	}
	if s.ID != "" {
		return s.ID
	}
	return s.Uses
}
