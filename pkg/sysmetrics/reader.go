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

package sysmetrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/carverauto/penistats/pkg/logger"
)

const (
	defaultProcRoot = "/proc"
	defaultSysRoot  = "/sys"

	thermalZonePath = "class/thermal/thermal_zone0/temp"
	scalingFreqPath = "devices/system/cpu/cpu0/cpufreq/scaling_cur_freq"
	meminfoPath     = "meminfo"
)

var (
	errEmptySource        = errors.New("source is empty")
	errNoFrequency        = errors.New("no cpu frequency reported")
	errLoadOutOfRange     = errors.New("load percentage outside [0,100]")
	errNoPositiveMemTotal = errors.New("total is absent or not positive")
)

// Reader samples a Snapshot. Every source is read independently; a failing
// source only leaves its own fields nil.
type Reader struct {
	log      logger.Logger
	procRoot string
	sysRoot  string
	loadAvg  func(context.Context) (*load.AvgStat, error)
	cpuInfo  func(context.Context) ([]cpu.InfoStat, error)
}

// Option customizes a Reader.
type Option func(*Reader)

// WithProcRoot points the reader at an alternate procfs mount.
func WithProcRoot(root string) Option {
	return func(r *Reader) {
		r.procRoot = root
	}
}

// WithSysRoot points the reader at an alternate sysfs mount.
func WithSysRoot(root string) Option {
	return func(r *Reader) {
		r.sysRoot = root
	}
}

// NewReader returns a Reader over the live /proc and /sys trees.
func NewReader(log logger.Logger, opts ...Option) *Reader {
	r := &Reader{
		log:      log,
		procRoot: defaultProcRoot,
		sysRoot:  defaultSysRoot,
		loadAvg:  load.AvgWithContext,
		cpuInfo:  cpu.InfoWithContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Sample reads every source and never fails as a whole.
func (r *Reader) Sample(ctx context.Context) Snapshot {
	var snap Snapshot

	if temp, err := r.readCPUTemp(); err != nil {
		r.log.Debug().Err(err).Msg("cpu temperature unavailable")
	} else {
		snap.CPUTempC = &temp
	}

	if freq, err := r.readCPUFreq(ctx); err != nil {
		r.log.Debug().Err(err).Msg("cpu frequency unavailable")
	} else {
		snap.CPUFreqGHz = &freq
	}

	r.sampleLoad(ctx, &snap)
	r.sampleMemory(&snap)

	return snap
}

// readCPUTemp converts the thermal zone millidegrees to °C.
func (r *Reader) readCPUTemp() (float64, error) {
	raw, err := readInt(filepath.Join(r.sysRoot, thermalZonePath))
	if err != nil {
		return 0, err
	}

	return float64(raw) / 1000.0, nil
}

// readCPUFreq reports GHz. scaling_cur_freq is in kHz; gopsutil reports MHz.
func (r *Reader) readCPUFreq(ctx context.Context) (float64, error) {
	raw, sysErr := readInt(filepath.Join(r.sysRoot, scalingFreqPath))
	if sysErr == nil {
		return float64(raw) / 1_000_000.0, nil
	}

	infoStats, err := r.cpuInfo(ctx)
	if err != nil {
		return 0, errors.Join(sysErr, err)
	}

	for _, stat := range infoStats {
		if stat.Mhz > 0 {
			return stat.Mhz / 1_000.0, nil
		}
	}

	return 0, errors.Join(sysErr, errNoFrequency)
}

func (r *Reader) sampleLoad(ctx context.Context, snap *Snapshot) {
	avg, err := r.loadAvg(ctx)
	if err != nil {
		r.log.Debug().Err(err).Msg("load averages unavailable")
		return
	}

	targets := []struct {
		name  string
		value float64
		dst   **int
	}{
		{"load1", avg.Load1, &snap.Load1Pct},
		{"load5", avg.Load5, &snap.Load5Pct},
		{"load15", avg.Load15, &snap.Load15Pct},
	}

	for _, target := range targets {
		pct, err := loadPercent(target.value)
		if err != nil {
			r.log.Debug().Err(err).Str("source", target.name).Float64("value", target.value).Msg("load value discarded")
			continue
		}

		*target.dst = &pct
	}
}

// loadPercent truncates load*100 and rejects values outside [0,100].
func loadPercent(value float64) (int, error) {
	pct := int(value * 100)
	if pct < 0 || pct > 100 {
		return 0, fmt.Errorf("%w: %d", errLoadOutOfRange, pct)
	}

	return pct, nil
}

func (r *Reader) sampleMemory(snap *Snapshot) {
	info, err := readMeminfo(filepath.Join(r.procRoot, meminfoPath))
	if err != nil {
		r.log.Debug().Err(err).Msg("meminfo unavailable")
	}

	snap.MemTotalKB = info.memTotal
	snap.MemFreeKB = info.memFree
	snap.MemAvailKB = info.memAvail
	snap.SwapTotalKB = info.swapTotal
	snap.SwapFreeKB = info.swapFree

	if pct, err := freePercent(info.memFree, info.memTotal); err == nil {
		snap.MemFreePct = &pct
	}

	if pct, err := freePercent(info.swapFree, info.swapTotal); err == nil {
		snap.SwapFreePct = &pct
	}
}

// freePercent computes floor(free*100/total).
func freePercent(free, total *int64) (int, error) {
	if free == nil || total == nil || *total <= 0 {
		return 0, errNoPositiveMemTotal
	}

	return int(*free * 100 / *total), nil
}

type meminfo struct {
	memTotal  *int64
	memFree   *int64
	memAvail  *int64
	swapTotal *int64
	swapFree  *int64
}

// readMeminfo scans meminfo; lines that fail to parse are skipped so the
// other keys still come through.
func readMeminfo(path string) (meminfo, error) {
	var info meminfo

	file, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer func() { _ = file.Close() }()

	targets := []struct {
		prefix string
		dst    **int64
	}{
		{"memtotal", &info.memTotal},
		{"memfree", &info.memFree},
		{"memavailable", &info.memAvail},
		{"swaptotal", &info.swapTotal},
		{"swapfree", &info.swapFree},
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}

		key := strings.ToLower(line[:idx])

		for _, target := range targets {
			if !strings.HasPrefix(key, target.prefix) {
				continue
			}

			if value, err := parseNumeric(line[idx+1:]); err == nil {
				*target.dst = &value
			}

			break
		}
	}

	return info, scanner.Err()
}

// parseNumeric keeps digits and the decimal point, then truncates to an integer.
func parseNumeric(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}

		return -1
	}, raw)

	if cleaned == "" {
		return 0, errEmptySource
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}

	return int64(value), nil
}

func readInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", errEmptySource, path)
	}

	return strconv.ParseInt(raw, 10, 64)
}
