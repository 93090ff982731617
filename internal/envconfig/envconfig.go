// Copyright 2025 The TaskStream Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package envconfig loads process configuration from the environment, with
// optional .env files for local development.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Service reads configuration values from the environment.
type Service struct {
	logger *slog.Logger
}

// NewService loads .env and .env.<APP_ENV> (if present) and returns the
// service. Missing files are not an error; deployed environments inject
// variables directly.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	if err := godotenv.Load(".env"); err != nil {
		logger.Debug("no .env file found")
	}
	envFile := fmt.Sprintf(".env.%s", appEnv)
	if err := godotenv.Overload(envFile); err != nil {
		logger.Debug("no environment-specific env file found", "file", envFile)
	}

	logger.Info("environment loaded", "app_env", appEnv)
	return &Service{logger: logger}
}

// Get returns the value of key, or empty if unset.
func (s *Service) Get(key string) string {
	return os.Getenv(key)
}

// GetDefault returns the value of key, or defaultValue if unset.
func (s *Service) GetDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// GetInt returns the integer value of key, or defaultValue if unset or
// unparsable.
func (s *Service) GetInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		s.logger.Warn("invalid integer in environment", "key", key, "value", val)
		return defaultValue
	}
	return parsed
}

// GetDuration returns the duration value of key, or defaultValue if unset or
// unparsable.
func (s *Service) GetDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		s.logger.Warn("invalid duration in environment", "key", key, "value", val)
		return defaultValue
	}
	return parsed
}
