package cli

import (
	"runtime"

	"github.com/Dicklesworthstone/hostinfo/internal/config"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/process"
	"github.com/Dicklesworthstone/hostinfo/internal/sampler"
	"github.com/Dicklesworthstone/hostinfo/internal/snapshot"
	"github.com/Dicklesworthstone/hostinfo/internal/thermal"
)

// app holds the collaborators built from one resolved Config.
type app struct {
	cfg       config.Config
	log       logger.Logger
	ranker    *process.Ranker
	thermal   *thermal.Reader
	assembler *snapshot.Assembler
	scheduler *snapshot.Scheduler
}

func newApp(cfg config.Config, log logger.Logger) (*app, error) {
	if log == nil {
		log = logger.Default()
	}
	ranker, err := process.NewRanker(cfg.Filter, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, ranker: ranker}
	a.assembler = snapshot.NewAssembler(sampler.New(), nil, ranker)
	a.assembler.Parallel = cfg.Parallel
	a.assembler.Log = log
	if cfg.Thermal {
		a.thermal = thermal.NewReader(log, thermal.DefaultStrategies(runtime.GOOS, cfg.ProbeTimeout)...)
		a.assembler.Thermal = a.thermal
	}

	a.scheduler = snapshot.NewScheduler(a.assembler, snapshot.Options{
		Interval: cfg.Interval,
		Limit:    cfg.Limit,
		Sort:     cfg.SortKey(),
		Log:      log,
	})
	return a, nil
}
