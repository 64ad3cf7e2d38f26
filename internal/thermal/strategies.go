package thermal

import "time"

// DefaultStrategies returns the probe order for goos: the user-installed
// utility first, then the built-in sampler.
func DefaultStrategies(goos string, timeout time.Duration) []Strategy {
	runner := NewExecRunner(timeout)
	switch goos {
	case "darwin":
		return []Strategy{&OSXCPUTemp{Runner: runner}, &Powermetrics{Runner: runner}}
	case "linux":
		return []Strategy{&LMSensors{Runner: runner}, NewHwmon()}
	}
	return nil
}
