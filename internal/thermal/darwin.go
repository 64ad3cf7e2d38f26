package thermal

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// maxPlausibleCelsius rejects garbage such as SMC read errors.
const maxPlausibleCelsius = 150.0

// OSXCPUTemp runs the user-installed osx-cpu-temp utility. It needs no
// elevated privileges, so it is tried first on macOS.
type OSXCPUTemp struct {
	Runner Runner
}

func (s *OSXCPUTemp) Name() string { return "osx-cpu-temp" }
func (s *OSXCPUTemp) Hint() string { return "install with: brew install osx-cpu-temp" }

func (s *OSXCPUTemp) Present() bool {
	_, err := s.Runner.LookPath("osx-cpu-temp")
	return err == nil
}

func (s *OSXCPUTemp) Read(ctx context.Context) (model.ThermalReading, error) {
	out, err := s.Runner.Run(ctx, "osx-cpu-temp")
	if err != nil {
		return model.ThermalReading{}, err
	}
	v, err := ParseOSXCPUTemp(string(out))
	if err != nil {
		return model.ThermalReading{}, err
	}
	return model.ThermalReading{CPUCelsius: model.Celsius(v)}, nil
}

var osxTempRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?C`)

// ParseOSXCPUTemp extracts the temperature from output such as "61.8°C".
// osx-cpu-temp prints 0.0°C when it cannot talk to the SMC, so non-positive
// values are rejected.
func ParseOSXCPUTemp(out string) (float64, error) {
	m := osxTempRe.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return 0, hierrors.New(hierrors.ParseFailure, "no temperature in osx-cpu-temp output", "")
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, hierrors.Wrap(err, hierrors.ParseFailure, "malformed osx-cpu-temp value")
	}
	if v <= 0 || v > maxPlausibleCelsius {
		return 0, hierrors.New(hierrors.ParseFailure, "implausible osx-cpu-temp value "+m[1], "")
	}
	return v, nil
}

// Powermetrics samples the SMC through the built-in powermetrics tool. It
// usually needs root, so it only runs when osx-cpu-temp is missing or broken.
type Powermetrics struct {
	Runner Runner
}

func (s *Powermetrics) Name() string { return "powermetrics" }
func (s *Powermetrics) Hint() string { return "run with sudo to enable powermetrics" }

func (s *Powermetrics) Present() bool {
	_, err := s.Runner.LookPath("powermetrics")
	return err == nil
}

func (s *Powermetrics) Read(ctx context.Context) (model.ThermalReading, error) {
	out, err := s.Runner.Run(ctx, "powermetrics", "--samplers", "smc", "-i", "1", "-n", "1")
	if err != nil {
		return model.ThermalReading{}, err
	}
	return ParsePowermetrics(string(out))
}

var powermetricsTempRe = regexp.MustCompile(`^\s*(.+?) temperature:\s*(-?\d+(?:\.\d+)?)\s*C\b`)

// ParsePowermetrics reads the "<sensor> temperature: N C" lines of the smc
// sampler.
func ParsePowermetrics(out string) (model.ThermalReading, error) {
	reading := model.ThermalReading{Other: map[string]float64{}}
	found := false
	for _, line := range strings.Split(out, "\n") {
		m := powermetricsTempRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil || v <= 0 || v > maxPlausibleCelsius {
			continue
		}
		found = true

		label := strings.TrimSpace(m[1])
		switch lower := strings.ToLower(label); {
		case lower == "cpu die":
			reading.CPUCelsius = model.Celsius(v)
		case lower == "gpu die":
			reading.GPUCelsius = model.Celsius(v)
		case strings.Contains(lower, "battery"):
			reading.BatteryCelsius = model.Celsius(v)
		default:
			reading.Other[label] = v
		}
	}
	if !found {
		return model.ThermalReading{}, hierrors.New(hierrors.ParseFailure, "no temperatures in powermetrics output", "")
	}
	return reading, nil
}
