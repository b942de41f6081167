package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one strategy.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one claim.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure is a label mismatch.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError is a strategy failure (fail-safe decision).
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a comparison report to JUnit XML. Each strategy
// becomes a testsuite (in ranking order) and each claim a testcase that
// fails when either label disagrees with the ground truth.
func ConvertToJUnit(report *models.ComparisonReport) *JUnitTestSuites {
	out := &JUnitTestSuites{
		Name: "claimtriage " + report.RunID,
		Time: float64(report.DurationMs) / 1000.0,
	}

	for _, name := range strategyOrder(report) {
		res := report.Results[name]
		suite := JUnitTestSuite{
			Name:      name,
			Tests:     len(res.Predictions),
			Time:      float64(res.DurationMs) / 1000.0,
			Timestamp: report.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Properties: []JUnitProperty{
				{Name: "overall_score", Value: fmt.Sprintf("%.4f", res.Composite)},
				{Name: "severity_accuracy", Value: fmt.Sprintf("%.4f", res.Severity.Accuracy)},
				{Name: "action_accuracy", Value: fmt.Sprintf("%.4f", res.Action.Accuracy)},
			},
		}

		for _, p := range res.Predictions {
			tc := convertPrediction(name, p)
			switch {
			case tc.Error != nil:
				suite.Errors++
			case tc.Failure != nil:
				suite.Failures++
			}
			suite.TestCases = append(suite.TestCases, tc)
		}

		out.Tests += suite.Tests
		out.Failures += suite.Failures
		out.Errors += suite.Errors
		out.TestSuites = append(out.TestSuites, suite)
	}
	return out
}

func convertPrediction(strategy string, p models.Prediction) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      p.ClaimID,
		Classname: strategy,
		Time:      p.LatencySeconds,
	}

	switch {
	case !p.Success:
		tc.Error = &JUnitError{
			Message: "strategy failed",
			Type:    "StrategyFailure",
			Body:    p.Rationale,
		}
	case !p.Correct():
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: want %s/%s, got %s/%s", p.ClaimID, p.TrueSeverity, p.TrueAction, p.PredSeverity, p.PredAction),
			Type:    "LabelMismatch",
			Body:    mismatchDetail(p),
		}
	}
	return tc
}

func mismatchDetail(p models.Prediction) string {
	var b strings.Builder
	if p.PredSeverity != p.TrueSeverity {
		fmt.Fprintf(&b, "[FAIL] severity: want %s, got %s\n", p.TrueSeverity, p.PredSeverity)
	}
	if p.PredAction != p.TrueAction {
		fmt.Fprintf(&b, "[FAIL] action: want %s, got %s\n", p.TrueAction, p.PredAction)
	}
	return b.String()
}

// strategyOrder lists strategies by rank, falling back to name order for
// reports without a ranking.
func strategyOrder(report *models.ComparisonReport) []string {
	if len(report.Ranking) == len(report.Results) {
		names := make([]string, len(report.Ranking))
		for i, r := range report.Ranking {
			names[i] = r.Strategy
		}
		return names
	}
	names := make([]string, 0, len(report.Results))
	for name := range report.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(report *models.ComparisonReport, path string) error {
	suites := ConvertToJUnit(report)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
