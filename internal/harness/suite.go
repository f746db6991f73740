package harness

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one scenario that did not pass.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns the .yaml and .yml files under dir in lexical order.
// A non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// RunSuite loads and runs every scenario in paths. visit, when set, is
// called after each scenario with its outcome; a load or execution error is
// reported as a failed result.
func RunSuite(ctx context.Context, paths []string, visit func(path string, sc *Scenario, res *Result)) *SuiteResult {
	suite := &SuiteResult{}
	for _, path := range paths {
		suite.Total++

		sc, res := runFile(ctx, path)
		if visit != nil {
			visit(path, sc, res)
		}
		if res.Pass {
			suite.Passed++
			continue
		}
		name := filepath.Base(path)
		if sc != nil {
			name = sc.Name
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, ScenarioFailure{
			Scenario: name,
			Path:     path,
			Errors:   res.Errors,
		})
	}
	return suite
}

func runFile(ctx context.Context, path string) (*Scenario, *Result) {
	sc, err := LoadScenario(path)
	if err != nil {
		res := NewResult()
		res.AddError(fmt.Sprintf("failed to load scenario: %v", err))
		return nil, res
	}
	res, err := Run(ctx, sc)
	if err != nil {
		res = NewResult()
		res.AddError(fmt.Sprintf("scenario execution failed: %v", err))
	}
	return sc, res
}
