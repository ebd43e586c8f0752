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

package storage

import (
	"errors"
	"time"
)

// ErrInvalidRedisConfig is returned when the Redis configuration is missing
// or incomplete.
var ErrInvalidRedisConfig = errors.New("invalid redis config")

// RedisConfig contains connection settings for the Redis log store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `json:"addr" yaml:"addr"`

	// Password is the optional AUTH password.
	Password string `json:"password" yaml:"password"`

	// DB selects the logical Redis database.
	DB int `json:"db" yaml:"db"`

	// KeyPrefix namespaces every key written by the store.
	// Defaults to "lra:".
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`

	// DialTimeout bounds connection establishment. Defaults to 5s.
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout"`

	// PoolSize caps the connection pool. Zero uses the client default.
	PoolSize int `json:"poolSize" yaml:"poolSize"`
}

// Validate checks if the configuration is valid.
func (c *RedisConfig) Validate() error {
	if c == nil || c.Addr == "" {
		return ErrInvalidRedisConfig
	}
	return nil
}

func (c *RedisConfig) keyPrefix() string {
	if c.KeyPrefix == "" {
		return "lra:"
	}
	return c.KeyPrefix
}

func (c *RedisConfig) dialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return 5 * time.Second
	}
	return c.DialTimeout
}
