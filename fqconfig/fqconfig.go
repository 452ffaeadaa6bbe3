// Copyright (c) 2026 Uber Technologies, Inc.
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

// Package fqconfig holds YAML-decodable configuration for fairgroup.Group
// and fairqueue.Queue, in an XConfig.Build() (X, error) shape: each Build
// validates the decoded struct and returns the matching Config by value.
package fqconfig

import (
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"go.uber.org/fairqueue/fairgroup"
	"go.uber.org/fairqueue/fairqueue"
	"go.uber.org/fairqueue/fqerrors"
	"go.uber.org/fairqueue/ticket"
)

// GroupConfig is the YAML-decodable form of fairgroup.Config.
type GroupConfig struct {
	// MaxWeight and MaxSize compose shares_capacity, the maximum
	// simultaneous in-flight budget.
	MaxWeight uint32 `yaml:"max_weight"`
	MaxSize   uint32 `yaml:"max_size"`

	// WeightRate and SizeRate are per-second components; divided by the
	// number of rate-resolution ticks per second to form cost_capacity.
	WeightRate float64 `yaml:"weight_rate"`
	SizeRate   float64 `yaml:"size_rate"`

	// RateFactor is multiplied by ticket.FixedPointFactor to yield
	// replenish_rate.
	RateFactor float64 `yaml:"rate_factor"`

	// RateLimitDuration is multiplied by replenish_rate to yield
	// replenish_limit, the burst ceiling. Zero means "unlimited": Build
	// passes it through and fairgroup.New maps it to a limit of
	// math.MaxInt64.
	RateLimitDuration time.Duration `yaml:"rate_limit_duration"`
}

// ParseGroupConfig decodes a YAML document into a GroupConfig. It does not
// call Build: callers that want validation should chain the two.
func ParseGroupConfig(data []byte) (GroupConfig, error) {
	var c GroupConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return GroupConfig{}, fqerrors.InvalidConfigError{Field: "(document)", Reason: err.Error()}
	}
	return c, nil
}

// Build validates c and converts it into a fairgroup.Config.
func (c GroupConfig) Build() (fairgroup.Config, error) {
	if c.MaxWeight == 0 && c.MaxSize == 0 {
		return fairgroup.Config{}, fqerrors.InvalidConfigError{Field: "max_weight/max_size", Reason: "shares capacity must be non-zero"}
	}
	if c.WeightRate <= 0 && c.SizeRate <= 0 {
		return fairgroup.Config{}, fqerrors.InvalidConfigError{Field: "weight_rate/size_rate", Reason: "at least one rate component must be positive"}
	}
	if c.RateFactor <= 0 {
		return fairgroup.Config{}, fqerrors.InvalidConfigError{Field: "rate_factor", Reason: "must be positive"}
	}

	return fairgroup.Config{
		SharesCapacity:    ticket.Ticket{Weight: c.MaxWeight, Size: c.MaxSize},
		WeightRate:        c.WeightRate,
		SizeRate:          c.SizeRate,
		RateFactor:        c.RateFactor,
		RateLimitDuration: c.RateLimitDuration,
	}, nil
}

// QueueConfig is the YAML-decodable form of fairqueue.Config.
type QueueConfig struct {
	// Tau is the fairness window bounding the idle-return rebase.
	Tau time.Duration `yaml:"tau"`

	// ShardCount and DispatchBudget resolve the "maximum per-dispatch cap"
	// open question: the per-call dispatch cap is DispatchBudget /
	// ShardCount. Both default to 1 when zero.
	ShardCount     int    `yaml:"shard_count"`
	DispatchBudget uint64 `yaml:"dispatch_budget"`
}

// ParseQueueConfig decodes a YAML document into a QueueConfig. It does not
// call Build: callers that want validation should chain the two.
func ParseQueueConfig(data []byte) (QueueConfig, error) {
	var c QueueConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return QueueConfig{}, fqerrors.InvalidConfigError{Field: "(document)", Reason: err.Error()}
	}
	return c, nil
}

// Build validates c and converts it into a fairqueue.Config.
func (c QueueConfig) Build() (fairqueue.Config, error) {
	if c.Tau < 0 {
		return fairqueue.Config{}, fqerrors.InvalidConfigError{Field: "tau", Reason: "must not be negative"}
	}

	shardCount := c.ShardCount
	if shardCount == 0 {
		shardCount = 1
	}
	dispatchBudget := c.DispatchBudget
	if dispatchBudget == 0 {
		dispatchBudget = 1
	}

	return fairqueue.Config{
		Tau:            c.Tau,
		ShardCount:     shardCount,
		DispatchBudget: dispatchBudget,
	}, nil
}

// ClassConfig is the YAML-decodable form of a single RegisterPriorityClass
// call.
type ClassConfig struct {
	ID     uint32 `yaml:"id"`
	Shares uint32 `yaml:"shares"`
}

// RegisterClasses registers every class in classes against q, continuing
// past individual failures (e.g. a duplicate id in the list) so a single
// bad entry in an operator's config doesn't hide failures in the rest of
// the batch. Every failure is returned combined via multierr.
func RegisterClasses(q *fairqueue.Queue, classes []ClassConfig) error {
	var errs error
	for _, c := range classes {
		if err := q.RegisterPriorityClass(c.ID, c.Shares); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
