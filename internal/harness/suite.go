package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Scenarios      []ScenarioSummary `json:"scenarios"`
}

// ScenarioSummary is the outcome of one scenario file.
type ScenarioSummary struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// FindScenarios returns the YAML scenario files under root, in walk order.
// A file path is returned as-is. filter, when set, is a glob matched
// against the file name without extension.
func FindScenarios(root, filter string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
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

// RunSuite loads and runs every scenario file. Load and execution errors
// count as failures; they do not stop the suite.
func RunSuite(paths []string) *SuiteResult {
	result := &SuiteResult{Scenarios: make([]ScenarioSummary, 0, len(paths))}

	for _, path := range paths {
		result.TotalScenarios++
		summary := runFile(path)
		if summary.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, summary)
	}

	return result
}

func runFile(path string) ScenarioSummary {
	summary := ScenarioSummary{Name: filepath.Base(path), Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		summary.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return summary
	}
	summary.Name = scenario.Name

	runResult, err := Run(scenario)
	if err != nil {
		summary.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return summary
	}

	summary.Pass = runResult.Pass
	summary.Errors = runResult.Errors
	return summary
}
