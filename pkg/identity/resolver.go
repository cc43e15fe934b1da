/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package identity fills in the device identity from the host.
package identity

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/carverauto/penistats/pkg/logger"
	"github.com/carverauto/penistats/pkg/settings"
)

const (
	// DefaultGroup replaces a group that sanitizes to nothing.
	DefaultGroup = "penistats"

	defaultProcRoot = "/proc"
)

var vendors = []struct {
	needle       string
	manufacturer string
}{
	{"raspberry", "Raspberry Pi Foundation"},
	{"odroid", "Hardkernel"},
	{"jetson", "NVIDIA"},
	{"orange pi", "Shenzhen Xunlong Software"},
}

// Resolver derives missing identity fields. Each lookup may fail; a failure
// leaves its field empty.
type Resolver struct {
	log           logger.Logger
	procRoot      string
	nodename      func() (string, error)
	hostname      func() (string, error)
	lookupHost    func(ctx context.Context, host string) ([]string, error)
	lookupAddr    func(ctx context.Context, addr string) ([]string, error)
	kernelVersion func(ctx context.Context) (string, error)
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithProcRoot points the resolver at an alternate procfs mount.
func WithProcRoot(root string) Option {
	return func(r *Resolver) {
		r.procRoot = root
	}
}

// NewResolver returns a Resolver reading the live host.
func NewResolver(log logger.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		log:           log,
		procRoot:      defaultProcRoot,
		nodename:      unameNodename,
		hostname:      os.Hostname,
		lookupHost:    net.DefaultResolver.LookupHost,
		lookupAddr:    net.DefaultResolver.LookupAddr,
		kernelVersion: host.KernelVersionWithContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve fills empty fields of dev in place.
// Blank values count as empty.
func (r *Resolver) Resolve(ctx context.Context, dev *settings.DeviceIdentity) {
	dev.Serial = strings.TrimSpace(dev.Serial)
	dev.Model = strings.TrimSpace(dev.Model)
	dev.Version = strings.TrimSpace(dev.Version)
	dev.Name = strings.TrimSpace(dev.Name)
	dev.Manufacturer = strings.TrimSpace(dev.Manufacturer)

	dev.Group = Sanitize(dev.Group)
	if dev.Group == "" {
		dev.Group = DefaultGroup
	}

	if dev.Serial == "" || dev.Model == "" {
		serial, model := r.readCPUInfo()

		if dev.Serial == "" {
			dev.Serial = serial
		}

		if dev.Model == "" {
			dev.Model = model
		}
	}

	if dev.Version == "" {
		dev.Version = r.readVersion(ctx)
	}

	if dev.Name == "" {
		dev.Name = r.resolveName(ctx)
	}

	dev.Serial = Sanitize(dev.Serial)

	if dev.Manufacturer == "" {
		dev.Manufacturer = Manufacturer(dev.Model)
	}

	r.log.Debug().
		Str("group", dev.Group).
		Str("serial", dev.Serial).
		Str("model", dev.Model).
		Str("name", dev.Name).
		Str("manufacturer", dev.Manufacturer).
		Msg("Device identity resolved")
}

// Sanitize keeps ASCII letters and digits only.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, s)
}

// Manufacturer maps a model string to a known vendor, or "".
func Manufacturer(model string) string {
	lower := strings.ToLower(model)

	for _, v := range vendors {
		if strings.Contains(lower, v.needle) {
			return v.manufacturer
		}
	}

	return ""
}

// readCPUInfo returns the first serial and model lines of cpuinfo.
func (r *Resolver) readCPUInfo() (serial, model string) {
	file, err := os.Open(filepath.Join(r.procRoot, "cpuinfo"))
	if err != nil {
		r.log.Debug().Err(err).Msg("cpuinfo unavailable")
		return "", ""
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}

		value := strings.TrimSpace(line[idx+1:])

		switch {
		case serial == "" && strings.HasPrefix(lower, "serial"):
			serial = value
		case model == "" && strings.HasPrefix(lower, "model"):
			model = value
		}

		if serial != "" && model != "" {
			break
		}
	}

	return serial, model
}

func (r *Resolver) readVersion(ctx context.Context) string {
	data, err := os.ReadFile(filepath.Join(r.procRoot, "version"))
	if err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}

	v, kerr := r.kernelVersion(ctx)
	if kerr != nil {
		r.log.Debug().Err(kerr).Msg("kernel version unavailable")
		return ""
	}

	return strings.TrimSpace(v)
}

func (r *Resolver) resolveName(ctx context.Context) string {
	if name, err := r.nodename(); err == nil && name != "" {
		return name
	}

	name, err := r.hostname()
	if err != nil || name == "" {
		r.log.Debug().Err(err).Msg("hostname unavailable")
		return ""
	}

	if strings.Contains(name, ".") {
		return name
	}

	if fqdn := r.reverseLookup(ctx, name); fqdn != "" {
		return fqdn
	}

	return name
}

// reverseLookup resolves name and looks the addresses back up for a
// qualified name.
func (r *Resolver) reverseLookup(ctx context.Context, name string) string {
	addrs, err := r.lookupHost(ctx, name)
	if err != nil {
		r.log.Debug().Err(err).Str("host", name).Msg("forward lookup failed")
		return ""
	}

	for _, addr := range addrs {
		names, err := r.lookupAddr(ctx, addr)
		if err != nil {
			continue
		}

		for _, n := range names {
			n = strings.TrimSuffix(n, ".")
			if strings.Contains(n, ".") {
				return n
			}
		}
	}

	return ""
}
