// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package config loads the coordinator configuration from
// lra-coordinator.yaml via viper.
package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	config *CoordinatorConfig
	once   sync.Once
)

// CoordinatorConfig is the full configuration of the coordinator service.
type CoordinatorConfig struct {
	Server struct {
		// Port the HTTP API listens on.
		Port string `json:"port" yaml:"port"`
		// ExternalURL is the base URL participants use to reach this
		// coordinator; LRA ids are minted under it. Defaults to
		// http://localhost:<port>/lra-coordinator.
		ExternalURL string `json:"externalUrl" yaml:"externalUrl"`
	} `json:"server" yaml:"server"`
	Store struct {
		// Backend selects the log store: memory, redis or mysql.
		Backend string `json:"backend" yaml:"backend"`
		Redis   struct {
			Addr      string `json:"addr" yaml:"addr"`
			Password  string `json:"password" yaml:"password"`
			DB        int    `json:"db" yaml:"db"`
			KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
		} `json:"redis" yaml:"redis"`
		MySQL struct {
			DSN string `json:"dsn" yaml:"dsn"`
		} `json:"mysql" yaml:"mysql"`
	} `json:"store" yaml:"store"`
	Events struct {
		// Enabled turns on NATS lifecycle event publishing.
		Enabled       bool   `json:"enabled" yaml:"enabled"`
		URL           string `json:"url" yaml:"url"`
		SubjectPrefix string `json:"subjectPrefix" yaml:"subjectPrefix"`
	} `json:"events" yaml:"events"`
	Recovery struct {
		// Interval between recovery scans. Zero disables periodic scans.
		Interval time.Duration `json:"interval" yaml:"interval"`
	} `json:"recovery" yaml:"recovery"`
	Callbacks struct {
		// Timeout bounds each participant callback attempt.
		Timeout time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"callbacks" yaml:"callbacks"`
}

// GetConfig loads the configuration once and returns it. Missing config
// files fall back to defaults so the coordinator can run out of the box.
func GetConfig() *CoordinatorConfig {
	once.Do(func() {
		viper.SetConfigName("lra-coordinator")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		config = &CoordinatorConfig{}
		if err := viper.ReadInConfig(); err == nil {
			if err := viper.Unmarshal(config); err != nil {
				panic(err)
			}
		}
		applyDefaults(config)
	})
	return config
}

func applyDefaults(c *CoordinatorConfig) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ExternalURL == "" {
		c.Server.ExternalURL = "http://localhost:" + c.Server.Port + "/lra-coordinator"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Recovery.Interval == 0 {
		c.Recovery.Interval = 2 * time.Minute
	}
	if c.Callbacks.Timeout == 0 {
		c.Callbacks.Timeout = 10 * time.Second
	}
}

// ResetConfig clears the cached configuration. Intended for tests.
func ResetConfig() {
	config = nil
	once = sync.Once{}
}
