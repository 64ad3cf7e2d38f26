package thermal

import (
	"bufio"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// LMSensors runs the user-installed `sensors` utility from lm-sensors.
type LMSensors struct {
	Runner Runner
}

func (s *LMSensors) Name() string { return "sensors" }
func (s *LMSensors) Hint() string { return "install lm-sensors and run sensors-detect" }

func (s *LMSensors) Present() bool {
	_, err := s.Runner.LookPath("sensors")
	return err == nil
}

func (s *LMSensors) Read(ctx context.Context) (model.ThermalReading, error) {
	out, err := s.Runner.Run(ctx, "sensors")
	if err != nil {
		return model.ThermalReading{}, err
	}
	return ParseSensors(string(out))
}

var sensorsTempRe = regexp.MustCompile(`^([^:]+):\s+([+-]?\d+(?:\.\d+)?)°C`)

// ParseSensors reads the human-readable `sensors` output: a chip name line,
// an optional Adapter line, then "label: +NN.N°C" lines, blocks separated by
// blank lines.
func ParseSensors(out string) (model.ThermalReading, error) {
	reading := model.ThermalReading{Other: map[string]float64{}}
	var chip string
	var coreFallback *float64
	found := false

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			chip = ""
			continue
		}
		if strings.HasPrefix(line, "Adapter:") {
			continue
		}
		m := sensorsTempRe.FindStringSubmatch(line)
		if m == nil {
			if chip == "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
				chip = strings.TrimSpace(line)
			}
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil || v <= -100 || v > maxPlausibleCelsius {
			continue
		}
		found = true
		label := strings.TrimSpace(m[1])

		switch classifySensor(chip, label) {
		case sensorCPU:
			if reading.CPUCelsius == nil {
				reading.CPUCelsius = model.Celsius(v)
			}
		case sensorCPUCore:
			if coreFallback == nil {
				coreFallback = model.Celsius(v)
			}
			reading.Other[chip+"/"+label] = v
		case sensorGPU:
			if reading.GPUCelsius == nil {
				reading.GPUCelsius = model.Celsius(v)
			}
		case sensorBattery:
			if reading.BatteryCelsius == nil {
				reading.BatteryCelsius = model.Celsius(v)
			}
		default:
			reading.Other[chip+"/"+label] = v
		}
	}
	if !found {
		return model.ThermalReading{}, hierrors.New(hierrors.ParseFailure, "no temperatures in sensors output", "")
	}
	if reading.CPUCelsius == nil {
		reading.CPUCelsius = coreFallback
	}
	return reading, nil
}

// Hwmon reads the kernel hwmon interface through gopsutil. It is the built-in
// fallback on Linux when lm-sensors is missing.
type Hwmon struct {
	temps func(ctx context.Context) ([]host.TemperatureStat, error)
}

// NewHwmon returns the gopsutil-backed hwmon strategy.
func NewHwmon() *Hwmon {
	return &Hwmon{temps: host.SensorsTemperaturesWithContext}
}

func (s *Hwmon) Name() string  { return "hwmon" }
func (s *Hwmon) Present() bool { return s.temps != nil }

func (s *Hwmon) Read(ctx context.Context) (model.ThermalReading, error) {
	stats, err := s.temps(ctx)
	// gopsutil returns partial results alongside warnings for unreadable sensors.
	if err != nil && len(stats) == 0 {
		return model.ThermalReading{}, err
	}

	reading := model.ThermalReading{Other: map[string]float64{}}
	var coreFallback *float64
	for _, st := range stats {
		v := st.Temperature
		if v <= 0 || v > maxPlausibleCelsius {
			continue
		}
		chip, label := splitSensorKey(st.SensorKey)
		switch classifySensor(chip, label) {
		case sensorCPU:
			if reading.CPUCelsius == nil {
				reading.CPUCelsius = model.Celsius(v)
			}
		case sensorCPUCore:
			if coreFallback == nil {
				coreFallback = model.Celsius(v)
			}
			reading.Other[st.SensorKey] = v
		case sensorGPU:
			if reading.GPUCelsius == nil {
				reading.GPUCelsius = model.Celsius(v)
			}
		case sensorBattery:
			if reading.BatteryCelsius == nil {
				reading.BatteryCelsius = model.Celsius(v)
			}
		default:
			reading.Other[st.SensorKey] = v
		}
	}
	if reading.CPUCelsius == nil {
		reading.CPUCelsius = coreFallback
	}
	return reading, nil
}

// splitSensorKey splits gopsutil keys like "coretemp_packageid0" into the
// full key, used for chip matching, and the label after the hwmon name.
func splitSensorKey(key string) (chip, label string) {
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key, key[i+1:]
	}
	return key, ""
}

type sensorClass int

const (
	sensorOther sensorClass = iota
	sensorCPU
	sensorCPUCore
	sensorGPU
	sensorBattery
)

func classifySensor(chip, label string) sensorClass {
	c := strings.ToLower(chip)
	l := strings.ReplaceAll(strings.ToLower(label), " ", "")
	switch {
	case strings.HasPrefix(c, "amdgpu"), strings.HasPrefix(c, "nouveau"), strings.HasPrefix(c, "radeon"):
		return sensorGPU
	case strings.HasPrefix(c, "bat"), strings.Contains(l, "battery"):
		return sensorBattery
	case strings.HasPrefix(l, "packageid"), l == "tctl", l == "tdie",
		strings.HasPrefix(c, "x86_pkg_temp"), strings.HasPrefix(c, "cpu_thermal"), strings.HasPrefix(c, "cpu-thermal"):
		return sensorCPU
	case strings.HasPrefix(c, "coretemp") && strings.HasPrefix(l, "core"):
		return sensorCPUCore
	}
	return sensorOther
}
