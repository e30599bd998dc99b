// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package settingsstore

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/command"
	"github.com/tomtom215/cartographus/internal/metrics"
)

// Service wires a Store to the bus: the settings.get.* read path, the
// commands.settings_service mutation router, and settings.list_configs.
type Service struct {
	client bus.Client
	store  *Store
	dir    string
	file   string
	logger zerolog.Logger
	router *command.Router

	subs []bus.Subscription
}

// NewService builds a Service around an already-constructed Store. client
// must already be connected; Start subscribes, it does not dial.
func NewService(client bus.Client, store *Store, dir, file string, logger zerolog.Logger) *Service {
	s := &Service{
		client: client,
		store:  store,
		dir:    dir,
		file:   file,
		logger: logger,
		router: command.NewRouter("settings_service", logger),
	}

	s.router.Handle("update_setting", s.handleUpdateSetting)
	s.router.Handle("update_setting_block", s.handleUpdateSettingBlock)
	s.router.Handle("import_settings", s.handleImportSettings)
	s.router.Handle("load_settings_from_file", s.handleLoadSettingsFromFile)

	return s
}

// Start subscribes the read path, the command router, and list_configs.
func (s *Service) Start() error {
	readSub, err := s.client.Subscribe("settings.get.*", s.handleGet)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, readSub)

	cmdSub, err := s.client.Subscribe("commands.settings_service", s.handleCommand)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, cmdSub)

	listSub, err := s.client.Subscribe("settings.list_configs", s.handleListConfigs)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, listSub)

	return nil
}

// Stop unsubscribes every subscription Start registered.
func (s *Service) Stop() error {
	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.subs = nil
	return firstErr
}

func (s *Service) handleGet(env bus.Envelope) {
	if env.Reply == "" {
		return
	}

	segments := strings.Split(env.Subject, ".")
	trailing := segments[len(segments)-1]

	var payload any
	if trailing == "all" {
		payload = s.store.All()
	} else {
		payload = s.store.Subtree(trailing)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("subject", env.Subject).Msg("settings_service: failed to marshal get reply")
		return
	}
	if err := s.client.Publish(env.Reply, data); err != nil {
		s.logger.Error().Err(err).Str("reply", env.Reply).Msg("settings_service: failed to publish get reply")
	}
	metrics.RecordSettingsOperation("get")
}

func (s *Service) handleCommand(env bus.Envelope) {
	s.router.Dispatch(env.Payload, env.Reply)
}

func (s *Service) handleListConfigs(env bus.Envelope) {
	if env.Reply == "" {
		return
	}

	names, err := ListConfigs(s.dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to list configs")
		names = []string{}
	}

	data, err := json.Marshal(names)
	if err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to marshal list_configs reply")
		return
	}
	if err := s.client.Publish(env.Reply, data); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to publish list_configs reply")
	}
}

type updateSettingArgs struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

func (s *Service) handleUpdateSetting(args command.Args) {
	var parsed updateSettingArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("settings_service: bad update_setting args")
		metrics.RecordSettingsPersistError()
		return
	}

	value, err := s.store.UpdateScalar(parsed.Key, parsed.Value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", parsed.Key).Msg("settings_service: update_setting rejected")
		metrics.RecordSettingsPersistError()
		return
	}

	metrics.RecordSettingsOperation("update_setting")
	s.publishUpdated(parsed.Key, value)
}

type updateSettingBlockArgs struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

func (s *Service) handleUpdateSettingBlock(args command.Args) {
	var parsed updateSettingBlockArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("settings_service: bad update_setting_block args")
		metrics.RecordSettingsPersistError()
		return
	}

	if err := s.store.UpdateBlock(parsed.Key, parsed.Value); err != nil {
		s.logger.Warn().Err(err).Str("key", parsed.Key).Msg("settings_service: update_setting_block rejected")
		metrics.RecordSettingsPersistError()
		return
	}

	metrics.RecordSettingsOperation("update_setting_block")
	s.publishUpdated(parsed.Key, parsed.Value)
}

type importSettingsArgs struct {
	Document string `json:"document" validate:"required"`
}

func (s *Service) handleImportSettings(args command.Args) {
	var parsed importSettingsArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("settings_service: bad import_settings args")
		metrics.RecordSettingsPersistError()
		return
	}

	var doc Document
	if err := json.Unmarshal([]byte(parsed.Document), &doc); err != nil {
		s.logger.Warn().Err(err).Msg("settings_service: import_settings payload is not valid JSON")
		metrics.RecordSettingsPersistError()
		return
	}

	if _, err := Backup(s.dir, s.file); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to back up current document before import")
		metrics.RecordSettingsPersistError()
		return
	}

	if err := save(s.dir, s.file, doc); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to persist imported document")
		metrics.RecordSettingsPersistError()
		return
	}

	s.store.Replace(doc)
	metrics.RecordSettingsOperation("import_settings")
	s.publishReloaded()
}

type loadSettingsFromFileArgs struct {
	Filename string `json:"filename" validate:"required"`
}

func (s *Service) handleLoadSettingsFromFile(args command.Args) {
	var parsed loadSettingsFromFileArgs
	if err := command.Decode(args, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("settings_service: bad load_settings_from_file args")
		metrics.RecordSettingsPersistError()
		return
	}

	path, err := ResolveImportPath(s.dir, parsed.Filename)
	if err != nil {
		s.logger.Warn().Err(err).Str("filename", parsed.Filename).Msg("settings_service: rejected load_settings_from_file path")
		metrics.RecordSettingsPersistError()
		return
	}

	doc, err := loadPath(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("settings_service: failed to load settings file")
		metrics.RecordSettingsPersistError()
		return
	}

	if _, err := Backup(s.dir, s.file); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to back up current document before load")
		metrics.RecordSettingsPersistError()
		return
	}
	if err := save(s.dir, s.file, doc); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to persist loaded document")
		metrics.RecordSettingsPersistError()
		return
	}

	s.store.Replace(doc)
	metrics.RecordSettingsOperation("load_settings_from_file")
	s.publishReloaded()
}

func (s *Service) publishUpdated(key string, value any) {
	payload, err := json.Marshal(map[string]any{"key": key, "value": value})
	if err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to marshal settings.updated")
		return
	}
	if err := s.client.Publish("settings.updated", payload); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to publish settings.updated")
	}
}

func (s *Service) publishReloaded() {
	if err := s.client.Publish("settings.reloaded", []byte("{}")); err != nil {
		s.logger.Error().Err(err).Msg("settings_service: failed to publish settings.reloaded")
	}
}
