package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"montepi/internal/montecarlo"
)

type report struct {
	montecarlo.Result `yaml:",inline"`
	ActualPi          float64 `json:"actual_pi" yaml:"actual_pi"`
	Deviation         float64 `json:"deviation" yaml:"deviation"`
}

func writeResult(w io.Writer, format string, res montecarlo.Result) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, res)
	case "yaml":
		return writeYAML(w, res)
	case "text", "":
		return writeText(w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, res montecarlo.Result) error {
	_, err := fmt.Fprintf(w, `
Results:
π estimate:     %.10f
Actual π:       %.10f
Deviation:      %.10f
Samples:        %d
Duration:       %s
Samples/second: %.2e
Workers:        %d
`,
		res.Pi,
		math.Pi,
		res.Deviation(),
		res.Total,
		res.Elapsed.Round(10*time.Microsecond),
		res.Throughput,
		res.Workers,
	)
	return err
}

func writeJSON(w io.Writer, res montecarlo.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newReport(res))
}

func writeYAML(w io.Writer, res montecarlo.Result) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(newReport(res)); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func newReport(res montecarlo.Result) report {
	return report{Result: res, ActualPi: math.Pi, Deviation: res.Deviation()}
}
