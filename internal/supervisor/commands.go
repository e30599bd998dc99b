// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package supervisor

import (
	"github.com/tomtom215/cartographus/internal/command"
)

// registerHandlers wires the commands.manager router. Every handler here
// runs on the Supervisor's owning goroutine (command.Router.Dispatch is
// only ever invoked from inside a closure sent to s.cmds), so they call the
// unexported do* mutators directly rather than the exported, exec-wrapping
// public methods — going through exec here would deadlock against the very
// goroutine that's running the handler.
func (s *Supervisor) registerHandlers() {
	s.router.Handle("start_service", s.handleStartService)
	s.router.Handle("stop_service", s.handleStopService)
	s.router.Handle("restart_service", s.handleRestartService)
	s.router.Handle("start_all", s.handleStartAll)
	s.router.Handle("stop_all", s.handleStopAll)
	s.router.Handle("restart_all", s.handleRestartAll)
	s.router.Handle("get_status", s.handleGetStatus)
}

type serviceNameArgs struct {
	ServiceName string `json:"service_name" validate:"required"`
}

type replyArgs struct {
	Reply string `json:"reply"`
}

func (s *Supervisor) handleStartService(args command.Args) {
	var parsed serviceNameArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("supervisor: bad start_service args")
		return
	}
	s.startServiceFresh(parsed.ServiceName)
}

func (s *Supervisor) handleStopService(args command.Args) {
	var parsed serviceNameArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("supervisor: bad stop_service args")
		return
	}
	s.doStopService(parsed.ServiceName)
}

func (s *Supervisor) handleRestartService(args command.Args) {
	var parsed serviceNameArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("supervisor: bad restart_service args")
		return
	}
	if err := s.doStopService(parsed.ServiceName); err != nil {
		return
	}
	s.startServiceFresh(parsed.ServiceName)
}

func (s *Supervisor) handleStartAll(args command.Args) {
	s.doStartAll()
}

func (s *Supervisor) handleStopAll(args command.Args) {
	s.doStopAll()
}

func (s *Supervisor) handleRestartAll(args command.Args) {
	s.doRestartAll()
}

func (s *Supervisor) handleGetStatus(args command.Args) {
	var parsed replyArgs
	_ = command.Decode(args, &parsed)

	subject := parsed.Reply
	if subject == "" {
		subject = "manager.status"
	}
	s.publishTo(subject)
}
