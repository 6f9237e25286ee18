// Package tester checks the syntax trees a rule file produces against
// expected trees. A test case file reads:
//
//	<description>
//	---
//	<source>
//	---
//	<tree in the layout of driver.PrintTree>
package tester

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nihei9/rulegen/driver"
	"github.com/nihei9/rulegen/engine"
	"github.com/nihei9/rulegen/rule"
)

const separator = "---"

type TestCase struct {
	Description string
	Source      []byte
	Output      string
}

// ParseTestCase reads a test case. The source keeps its line breaks except
// the one preceding the second separator.
func ParseTestCase(r io.Reader) (*TestCase, error) {
	var parts [3][]string
	part := 0
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if strings.TrimRight(line, " \t\r") == separator && part < 2 {
			part++
			continue
		}
		parts[part] = append(parts[part], line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if part != 2 {
		return nil, fmt.Errorf("a test case needs a description, a source, and an output separated by %q", separator)
	}

	return &TestCase{
		Description: strings.TrimSpace(strings.Join(parts[0], "\n")),
		Source:      []byte(strings.Join(parts[1], "\n")),
		Output:      normalizeTree(strings.Join(parts[2], "\n")),
	}, nil
}

// normalizeTree drops blank lines and trailing spaces.
func normalizeTree(tree string) string {
	var lines []string
	for _, line := range strings.Split(tree, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

type TreeDiff struct {
	// Line is the 1-based line of the tree the first difference is on.
	Line     int
	Expected string
	Actual   string
}

func diffTree(expected, actual string) []*TreeDiff {
	el := strings.Split(expected, "\n")
	al := strings.Split(actual, "\n")
	for i := 0; i < len(el) || i < len(al); i++ {
		var e, a string
		if i < len(el) {
			e = el[i]
		}
		if i < len(al) {
			a = al[i]
		}
		if e != a {
			return []*TreeDiff{
				{
					Line:     i + 1,
					Expected: e,
					Actual:   a,
				},
			}
		}
	}
	return nil
}

type TestResult struct {
	TestCasePath string
	Error        error
	Diffs        []*TreeDiff
}

func (r *TestResult) String() string {
	if r.Error != nil {
		const indent1 = "    "
		const indent2 = indent1 + indent1

		msgLines := strings.Split(r.Error.Error(), "\n")
		msg := fmt.Sprintf("Failed %v:\n%v%v", r.TestCasePath, indent1, strings.Join(msgLines, "\n"+indent1))
		if len(r.Diffs) == 0 {
			return msg
		}
		var diffLines []string
		for _, diff := range r.Diffs {
			diffLines = append(diffLines, fmt.Sprintf("line %v:", diff.Line))
			diffLines = append(diffLines, fmt.Sprintf("%vexpected: %v", indent1, diff.Expected))
			diffLines = append(diffLines, fmt.Sprintf("%vactual:   %v", indent1, diff.Actual))
		}
		return fmt.Sprintf("%v\n%v%v", msg, indent2, strings.Join(diffLines, "\n"+indent2))
	}
	return fmt.Sprintf("Passed %v", r.TestCasePath)
}

type TestCaseWithMetadata struct {
	TestCase *TestCase
	FilePath string
	Error    error
}

func ListTestCases(testPath string) []*TestCaseWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	if !fi.IsDir() {
		c, err := parseTestCase(testPath)
		return []*TestCaseWithMetadata{
			{
				TestCase: c,
				FilePath: testPath,
				Error:    err,
			},
		}
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	var cases []*TestCaseWithMetadata
	for _, e := range es {
		cs := ListTestCases(filepath.Join(testPath, e.Name()))
		cases = append(cases, cs...)
	}
	return cases
}

func parseTestCase(testCasePath string) (*TestCase, error) {
	f, err := os.Open(testCasePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTestCase(f)
}

// Tester runs test cases on an engine whose handlers build trees.
type Tester struct {
	Engine   *engine.Engine
	Handlers map[string]rule.HandlerFunc
	Discards map[string]rule.DiscardFunc
	Cases    []*TestCaseWithMetadata
}

func (t *Tester) Run() []*TestResult {
	var rs []*TestResult
	for _, c := range t.Cases {
		rs = append(rs, t.runTest(c))
	}
	return rs
}

func (t *Tester) runTest(c *TestCaseWithMetadata) *TestResult {
	v, err := t.Engine.Run(bytes.NewReader(c.TestCase.Source), t.Handlers, engine.Discards(t.Discards))
	if err != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        err,
		}
	}
	tree, ok := v.(*driver.Node)
	if !ok {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("the start handler returned %T instead of a tree", v),
		}
	}

	var b strings.Builder
	driver.PrintTree(&b, tree)
	diffs := diffTree(c.TestCase.Output, normalizeTree(b.String()))
	if len(diffs) > 0 {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("output mismatch"),
			Diffs:        diffs,
		}
	}
	return &TestResult{
		TestCasePath: c.FilePath,
	}
}
