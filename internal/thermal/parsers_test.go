package thermal

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
)

func TestParseOSXCPUTemp(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    float64
		wantErr bool
	}{
		{"typical", "61.8°C\n", 61.8, false},
		{"no degree sign", "55.0 C", 55.0, false},
		{"integer", "48°C", 48, false},
		{"smc unreadable", "0.0°C", 0, true},
		{"empty", "", 0, true},
		{"garbage", "error: could not open SMC", 0, true},
		{"implausible", "900.0°C", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseOSXCPUTemp(tc.out)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, hierrors.IsKind(err, hierrors.ParseFailure))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

const powermetricsOutput = `Machine model: MacBookPro16,1
OS version: 20G95

*** Sampled system activity (Tue Oct  5 10:00:00 2021 +0200) (1.07ms elapsed) ***

**** SMC sensors ****

CPU Thermal level: 0
GPU Thermal level: 0
IO Thermal level: 0
Fan: 1838.34 rpm
CPU die temperature: 52.31 C
GPU die temperature: 47.00 C
CPU Plimit: 0.00
Battery temperature: 30.50 C
`

func TestParsePowermetrics(t *testing.T) {
	reading, err := ParsePowermetrics(powermetricsOutput)
	require.NoError(t, err)
	require.NotNil(t, reading.CPUCelsius)
	require.NotNil(t, reading.GPUCelsius)
	require.NotNil(t, reading.BatteryCelsius)
	assert.InDelta(t, 52.31, *reading.CPUCelsius, 1e-9)
	assert.InDelta(t, 47.0, *reading.GPUCelsius, 1e-9)
	assert.InDelta(t, 30.5, *reading.BatteryCelsius, 1e-9)
	assert.Empty(t, reading.Other)

	_, err = ParsePowermetrics("**** SMC sensors ****\nFan: 1200 rpm\n")
	require.Error(t, err)
	assert.True(t, hierrors.IsKind(err, hierrors.ParseFailure))
}

const sensorsOutput = `iwlwifi_1-virtual-0
Adapter: Virtual device
temp1:        +35.0°C  

nvme-pci-0300
Adapter: PCI adapter
Composite:    +36.9°C  (low  = -273.1°C, high = +81.8°C)
                       (crit = +84.8°C)

coretemp-isa-0000
Adapter: ISA adapter
Package id 0:  +48.0°C  (high = +101.0°C, crit = +115.0°C)
Core 0:        +46.0°C  (high = +101.0°C, crit = +115.0°C)
Core 1:        +45.0°C  (high = +101.0°C, crit = +115.0°C)

amdgpu-pci-0100
Adapter: PCI adapter
vddgfx:      931.00 mV
fan1:        1200 RPM
edge:         +41.0°C  (crit = +94.0°C, hyst = -273.1°C)

BAT0-acpi-0
Adapter: ACPI interface
temp1:        +29.5°C
`

func TestParseSensors(t *testing.T) {
	reading, err := ParseSensors(sensorsOutput)
	require.NoError(t, err)
	require.NotNil(t, reading.CPUCelsius)
	assert.Equal(t, 48.0, *reading.CPUCelsius, "Package id 0 wins over per-core values")
	require.NotNil(t, reading.GPUCelsius)
	assert.Equal(t, 41.0, *reading.GPUCelsius)
	require.NotNil(t, reading.BatteryCelsius)
	assert.Equal(t, 29.5, *reading.BatteryCelsius)

	assert.Equal(t, 35.0, reading.Other["iwlwifi_1-virtual-0/temp1"])
	assert.Equal(t, 36.9, reading.Other["nvme-pci-0300/Composite"])
	assert.Equal(t, 46.0, reading.Other["coretemp-isa-0000/Core 0"])
	assert.NotContains(t, reading.Other, "amdgpu-pci-0100/fan1")
}

func TestParseSensorsCoreFallback(t *testing.T) {
	out := "coretemp-isa-0000\nAdapter: ISA adapter\nCore 0:        +44.0°C\nCore 1:        +47.0°C\n"
	reading, err := ParseSensors(out)
	require.NoError(t, err)
	require.NotNil(t, reading.CPUCelsius)
	assert.Equal(t, 44.0, *reading.CPUCelsius)
}

func TestParseSensorsEmpty(t *testing.T) {
	_, err := ParseSensors("No sensors found!\nMake sure you loaded all the kernel drivers you need.\n")
	require.Error(t, err)
	assert.True(t, hierrors.IsKind(err, hierrors.ParseFailure))
}

func TestHwmon(t *testing.T) {
	s := &Hwmon{temps: func(ctx context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "acpitz", Temperature: 27.8},
			{SensorKey: "coretemp_core0", Temperature: 51},
			{SensorKey: "coretemp_packageid0", Temperature: 53},
			{SensorKey: "amdgpu_edge", Temperature: 44},
			{SensorKey: "nvme_composite", Temperature: 0},
		}, errors.New("warnings: tempN_input unreadable")
	}}

	reading, err := s.Read(context.Background())
	require.NoError(t, err, "partial results with warnings are still a reading")
	require.NotNil(t, reading.CPUCelsius)
	assert.Equal(t, 53.0, *reading.CPUCelsius)
	require.NotNil(t, reading.GPUCelsius)
	assert.Equal(t, 44.0, *reading.GPUCelsius)
	assert.Equal(t, 27.8, reading.Other["acpitz"])
	assert.NotContains(t, reading.Other, "nvme_composite", "zero readings are dropped")

	s.temps = func(ctx context.Context) ([]host.TemperatureStat, error) {
		return nil, errors.New("no hwmon")
	}
	_, err = s.Read(context.Background())
	assert.Error(t, err)
}

// fakeRunner answers LookPath and Run from fixed tables.
type fakeRunner struct {
	installed map[string]bool
	outputs   map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.installed[name] {
		return "/usr/local/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[name]), nil
}

func TestDarwinStrategiesWithReader(t *testing.T) {
	runner := &fakeRunner{
		installed: map[string]bool{"powermetrics": true},
		outputs:   map[string]string{"powermetrics": powermetricsOutput},
	}
	r := NewReader(nil, &OSXCPUTemp{Runner: runner}, &Powermetrics{Runner: runner})

	reading := r.Reading(context.Background())
	require.True(t, reading.Available)
	assert.Equal(t, "powermetrics", reading.Strategy)
	assert.Equal(t, []string{"powermetrics"}, runner.calls, "absent utility is never executed")
}

func TestPowermetricsPermissionDenied(t *testing.T) {
	runner := &fakeRunner{
		installed: map[string]bool{"powermetrics": true},
		errs: map[string]error{"powermetrics": commandError("powermetrics",
			errors.New("exit status 1"), "powermetrics must be invoked as the superuser")},
	}
	r := NewReader(nil, &OSXCPUTemp{Runner: runner}, &Powermetrics{Runner: runner})
	reading := r.Reading(context.Background())
	assert.False(t, reading.Available)
	assert.Contains(t, reading.Reason, "elevated privileges")
	assert.Contains(t, reading.Reason, "brew install osx-cpu-temp")
}

func TestCommandError(t *testing.T) {
	err := commandError("sensors", errors.New("exit status 1"), "")
	assert.True(t, hierrors.IsKind(err, hierrors.SourceUnavailable))
	assert.Contains(t, err.Error(), "exit status 1")

	err = commandError("powermetrics", errors.New("exit status 1"), "Operation not permitted")
	assert.True(t, hierrors.IsKind(err, hierrors.PermissionDenied))

	err = commandError("osx-cpu-temp", exec.ErrNotFound, "")
	assert.True(t, hierrors.IsKind(err, hierrors.SourceUnavailable))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	r := NewExecRunner(time.Second)
	out, err := r.Run(context.Background(), "sh", "-c", "echo 42.0°C")
	require.NoError(t, err)
	v, err := ParseOSXCPUTemp(string(out))
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	_, err = r.Run(context.Background(), "sh", "-c", "echo denied >&2; exit 3")
	require.Error(t, err)
	assert.True(t, hierrors.IsKind(err, hierrors.SourceUnavailable))
	assert.Contains(t, err.Error(), "denied")

	_, err = r.Run(context.Background(), "definitely-not-a-real-probe-binary")
	require.Error(t, err)
	assert.True(t, hierrors.IsKind(err, hierrors.SourceUnavailable))
}

func TestExecRunnerTimeoutAndCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	r := NewExecRunner(100 * time.Millisecond)
	start := time.Now()
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.True(t, hierrors.IsKind(err, hierrors.Timeout))
	assert.Less(t, time.Since(start), 2*time.Second, "the child is killed at the timeout")

	r = NewExecRunner(5 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start = time.Now()
	_, err = r.Run(ctx, "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewExecRunnerDefault(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewExecRunner(0).Timeout)
}
