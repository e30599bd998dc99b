// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/command"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/tasktree"
)

// Config holds the Supervisor's own bootstrap knobs. It mirrors
// internal/config.SupervisorConfig; cmd/supervisor converts one into the
// other at startup.
type Config struct {
	UnitDir             string
	MaxRetries          int
	GracefulTimeout     time.Duration
	SettingsWarmupDelay time.Duration
	MonitorInterval     time.Duration
	SettingsServiceName string
}

// Supervisor owns the fixed set of Managed Service Records discovered at
// startup, exclusively through its single command-processing goroutine.
type Supervisor struct {
	cfg    Config
	logger zerolog.Logger

	client bus.Client
	router *command.Router
	subs   []bus.Subscription

	records map[string]*Record

	cmds chan func()
	tree *tasktree.Tree
}

// New discovers units under cfg.UnitDir and builds a Supervisor holding one
// stopped Record per unit.
func New(cfg Config, logger zerolog.Logger) (*Supervisor, error) {
	units, err := DiscoverUnits(cfg.UnitDir)
	if err != nil {
		return nil, err
	}

	records := make(map[string]*Record, len(units))
	for _, u := range units {
		records[u.Name] = &Record{
			Name:        u.Name,
			Unit:        u,
			Status:      StatusStopped,
			LastCommand: LastCommandNone,
		}
	}

	s := &Supervisor{
		cfg:     cfg,
		logger:  logger,
		records: records,
		cmds:    make(chan func(), 64),
	}

	s.router = command.NewRouter("manager", logger)
	s.registerHandlers()

	return s, nil
}

// Start subscribes commands.manager and launches the Supervisor's own
// internal background loops (command dispatch, monitor, status broadcast)
// under a tasktree.Tree. It does not block; the tree runs until ctx is
// cancelled.
func (s *Supervisor) Start(ctx context.Context, client bus.Client) error {
	s.client = client

	sub, err := client.Subscribe("commands.manager", s.handleEnvelope)
	if err != nil {
		return fmt.Errorf("supervisor: subscribe commands.manager: %w", err)
	}
	s.subs = append(s.subs, sub)

	slogLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	s.tree = tasktree.New("supervisor", slogLogger, tasktree.DefaultConfig())

	s.tree.Add(&loopService{name: "supervisor-command-loop", cmds: s.cmds})
	s.tree.Add(&tickerService{name: "supervisor-monitor", interval: s.cfg.MonitorInterval, fn: s.monitorTick})
	s.tree.Add(&tickerService{name: "supervisor-status-broadcast", interval: s.cfg.MonitorInterval * 5, fn: s.forcePublish})

	s.tree.ServeBackground(ctx)

	return nil
}

// Stop gracefully terminates every running child then unsubscribes.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.StopAll()

	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.subs = nil
	return firstErr
}

// exec runs fn on the owning goroutine and blocks until it completes.
func (s *Supervisor) exec(fn func()) {
	ack := make(chan struct{})
	s.cmds <- func() {
		fn()
		close(ack)
	}
	<-ack
}

func (s *Supervisor) handleEnvelope(env bus.Envelope) {
	s.cmds <- func() {
		s.router.Dispatch(env.Payload, env.Reply)
	}
}

// StartService spawns name's child process, as a deliberate operator
// action: it resets the restart counter the same way the bus's
// start_service command does.
func (s *Supervisor) StartService(name string) error {
	var err error
	s.exec(func() { err = s.startServiceFresh(name) })
	return err
}

// startServiceFresh clears name's restart counter before starting it. Every
// deliberate start goes through this — an operator's start_service/
// restart_service command, start_all, restart_all — so a fresh launch never
// inherits a stale crash-loop count from an earlier run. The monitor's
// automatic restart-on-crash path calls doStartService directly instead,
// so RestartCount keeps counting across consecutive crashes until it hits
// MaxRetries.
func (s *Supervisor) startServiceFresh(name string) error {
	if rec, ok := s.records[name]; ok {
		rec.RestartCount = 0
	}
	return s.doStartService(name)
}

func (s *Supervisor) doStartService(name string) error {
	rec, ok := s.records[name]
	if !ok {
		return fmt.Errorf("supervisor: unknown service %q", name)
	}

	rec.Status = StatusStarting
	mp, err := spawn(rec.Unit)
	if err != nil {
		rec.Status = StatusError
		s.logger.Error().Err(err).Str("service", name).Msg("supervisor: failed to spawn service")
		s.publishSnapshot()
		return err
	}

	rec.proc = mp
	rec.PID = mp.cmd.Process.Pid
	rec.Status = StatusRunning
	rec.LastCommand = LastCommandStart
	rec.ExitCode = nil

	s.logger.Info().Str("service", name).Int("pid", rec.PID).Msg("supervisor: service started")
	s.publishSnapshot()
	return nil
}

// StopService sends a polite termination signal to name's child, escalating
// to a forceful kill if it does not exit within GracefulTimeout.
func (s *Supervisor) StopService(name string) error {
	var err error
	s.exec(func() { err = s.doStopService(name) })
	return err
}

func (s *Supervisor) doStopService(name string) error {
	rec, ok := s.records[name]
	if !ok {
		return fmt.Errorf("supervisor: unknown service %q", name)
	}
	if rec.proc == nil || rec.proc.hasExited() {
		rec.Status = StatusStopped
		rec.LastCommand = LastCommandStop
		return nil
	}

	rec.Status = StatusStopping
	rec.LastCommand = LastCommandStop
	s.publishSnapshot()

	terminate(rec.proc, s.cfg.GracefulTimeout)

	rec.Status = StatusStopped
	s.logger.Info().Str("service", name).Msg("supervisor: service stopped")
	s.publishSnapshot()
	return nil
}

// RestartService stops then starts name, publishing status in between.
func (s *Supervisor) RestartService(name string) error {
	var err error
	s.exec(func() {
		if err = s.doStopService(name); err != nil {
			return
		}
		err = s.startServiceFresh(name)
	})
	return err
}

// StartAll starts every discovered service, starting the settings service
// first and waiting SettingsWarmupDelay before the rest so downstream
// get_settings requests can succeed. Callable from outside the owning
// goroutine (e.g. cmd/supervisor's bootstrap); the warmup sleep happens
// between two separate trips through exec rather than holding the owning
// goroutine for the whole delay.
func (s *Supervisor) StartAll() {
	_, hasSettings := s.records[s.cfg.SettingsServiceName]

	if hasSettings {
		s.exec(func() { s.startServiceFresh(s.cfg.SettingsServiceName) })
		time.Sleep(s.cfg.SettingsWarmupDelay)
	}

	s.exec(func() {
		for name := range s.records {
			if name == s.cfg.SettingsServiceName {
				continue
			}
			s.startServiceFresh(name)
		}
	})
}

// StopAll stops every running service; order is unspecified.
func (s *Supervisor) StopAll() {
	s.exec(func() { s.doStopAll() })
}

func (s *Supervisor) doStopAll() {
	for name, rec := range s.records {
		if rec.Status == StatusRunning || rec.Status == StatusRestarting {
			s.doStopService(name)
		}
	}
}

// RestartAll stops then starts every service.
func (s *Supervisor) RestartAll() {
	s.StopAll()
	s.StartAll()
}

// doStartAll is the in-loop equivalent of StartAll, used by the
// start_all/restart_all command handlers which already run on the owning
// goroutine. The warmup delay here does briefly block the command loop —
// an accepted, deliberate tradeoff for a one-time fleet bootstrap.
func (s *Supervisor) doStartAll() {
	_, hasSettings := s.records[s.cfg.SettingsServiceName]
	if hasSettings {
		s.startServiceFresh(s.cfg.SettingsServiceName)
		time.Sleep(s.cfg.SettingsWarmupDelay)
	}
	for name := range s.records {
		if name == s.cfg.SettingsServiceName {
			continue
		}
		s.startServiceFresh(name)
	}
}

// doRestartAll is the in-loop equivalent of RestartAll.
func (s *Supervisor) doRestartAll() {
	s.doStopAll()
	s.doStartAll()
}

// Snapshot returns the current fleet snapshot.
func (s *Supervisor) Snapshot() FleetSnapshot {
	var out FleetSnapshot
	s.exec(func() { out = s.buildSnapshot() })
	return out
}

func (s *Supervisor) buildSnapshot() FleetSnapshot {
	allOK := true
	services := make([]Snapshot, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Status != StatusRunning {
			allOK = false
		}
		services = append(services, rec.snapshot())
	}

	global := "degraded"
	if allOK {
		global = "all_ok"
	}

	managedCount := map[Status]int{}
	for _, rec := range s.records {
		managedCount[rec.Status]++
	}
	for status, count := range managedCount {
		metrics.SetSupervisorManagedServices(string(status), count)
	}

	return FleetSnapshot{GlobalStatus: global, Services: services}
}

// publishSnapshot is called from within the owning goroutine whenever a
// record's status actually changed.
func (s *Supervisor) publishSnapshot() {
	s.publishTo("manager.status")
}

// forcePublish is the periodic status-broadcast loop's tick: it always
// re-publishes, independent of whether anything changed this interval.
func (s *Supervisor) forcePublish() {
	s.exec(func() { s.publishTo("manager.status") })
}

func (s *Supervisor) publishTo(subject string) {
	if s.client == nil {
		return
	}
	snapshot := s.buildSnapshot()
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error().Err(err).Msg("supervisor: failed to marshal fleet snapshot")
		return
	}
	if err := s.client.Publish(subject, data); err != nil {
		s.logger.Error().Err(err).Str("subject", subject).Msg("supervisor: failed to publish fleet snapshot")
	}
}

// monitorTick polls every running child for liveness, reacting to exits and
// publishing the fleet snapshot if anything changed this cycle.
func (s *Supervisor) monitorTick() {
	s.exec(func() {
		changed := false
		for name, rec := range s.records {
			if rec.Status != StatusRunning || rec.proc == nil {
				continue
			}
			if !rec.proc.hasExited() {
				continue
			}

			changed = true
			code := rec.proc.exitCode()
			rec.ExitCode = &code

			if rec.LastCommand == LastCommandStop {
				rec.Status = StatusStopped
				continue
			}

			rec.Status = StatusCrashed
			s.logger.Warn().Str("service", name).Int("exit_code", code).Msg("supervisor: service crashed")

			if rec.RestartCount < s.cfg.MaxRetries {
				rec.RestartCount++
				rec.Status = StatusRestarting
				metrics.RecordSupervisorRestart(name)
				s.doStartService(name)
			} else {
				rec.Status = StatusError
				s.logger.Error().Str("service", name).Msg("supervisor: exceeded max retries, giving up")
			}
		}

		if changed {
			s.publishTo("manager.status")
		}
	})
}
