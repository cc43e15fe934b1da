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

// Package sysmetrics samples host telemetry from procfs and sysfs.
package sysmetrics

import (
	"fmt"
	"io"
)

// Snapshot is one sampling pass. A nil field means the source could not be read.
type Snapshot struct {
	CPUTempC    *float64 `json:"cpuTempC,omitempty"`
	CPUFreqGHz  *float64 `json:"cpuFreqGHz,omitempty"`
	Load1Pct    *int     `json:"load1Pct,omitempty"`
	Load5Pct    *int     `json:"load5Pct,omitempty"`
	Load15Pct   *int     `json:"load15Pct,omitempty"`
	MemTotalKB  *int64   `json:"memTotalKB,omitempty"`
	MemFreeKB   *int64   `json:"memFreeKB,omitempty"`
	MemFreePct  *int     `json:"memFreePct,omitempty"`
	MemAvailKB  *int64   `json:"memAvailKB,omitempty"`
	SwapTotalKB *int64   `json:"swapTotalKB,omitempty"`
	SwapFreeKB  *int64   `json:"swapFreeKB,omitempty"`
	SwapFreePct *int     `json:"swapFreePct,omitempty"`
}

// Declaration describes one published value for self-description messages.
type Declaration struct {
	Name string `json:"name,omitempty"`
	Unit string `json:"unit,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

const (
	UnitCelsius = "°C"
	UnitGHz     = "GHz"
	UnitPercent = "%"
	UnitKB      = "kB"
)

// Declarations returns the static description of every Snapshot field.
// Tags match the Snapshot JSON keys.
func Declarations() []Declaration {
	return []Declaration{
		{Name: "cpu temperature", Unit: UnitCelsius, Tag: "cpuTempC"},
		{Name: "cpu frequency", Unit: UnitGHz, Tag: "cpuFreqGHz"},
		{Name: "load 1 min", Unit: UnitPercent, Tag: "load1Pct"},
		{Name: "load 5 min", Unit: UnitPercent, Tag: "load5Pct"},
		{Name: "load 15 min", Unit: UnitPercent, Tag: "load15Pct"},
		{Name: "memory total", Unit: UnitKB, Tag: "memTotalKB"},
		{Name: "memory free", Unit: UnitKB, Tag: "memFreeKB"},
		{Name: "memory free percent", Unit: UnitPercent, Tag: "memFreePct"},
		{Name: "memory available", Unit: UnitKB, Tag: "memAvailKB"},
		{Name: "swap total", Unit: UnitKB, Tag: "swapTotalKB"},
		{Name: "swap free", Unit: UnitKB, Tag: "swapFreeKB"},
		{Name: "swap free percent", Unit: UnitPercent, Tag: "swapFreePct"},
	}
}

// Display writes a human readable rendering of s, used when nothing is
// published.
func (s *Snapshot) Display(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"cpu temp=%s°C freq=%sGHz\n"+
			"load 1m=%s%% 5m=%s%% 15m=%s%%\n"+
			"mem total=%sKB free=%sKB (%s%%) avail=%sKB\n"+
			"swap total=%sKB free=%sKB (%s%%)\n",
		formatFloat(s.CPUTempC, 2), formatFloat(s.CPUFreqGHz, 3),
		formatInt(s.Load1Pct), formatInt(s.Load5Pct), formatInt(s.Load15Pct),
		formatInt64(s.MemTotalKB), formatInt64(s.MemFreeKB), formatInt(s.MemFreePct), formatInt64(s.MemAvailKB),
		formatInt64(s.SwapTotalKB), formatInt64(s.SwapFreeKB), formatInt(s.SwapFreePct),
	)

	return err
}

const notAvailable = "n/a"

func formatFloat(v *float64, precision int) string {
	if v == nil {
		return notAvailable
	}

	return fmt.Sprintf("%.*f", precision, *v)
}

func formatInt(v *int) string {
	if v == nil {
		return notAvailable
	}

	return fmt.Sprintf("%d", *v)
}

func formatInt64(v *int64) string {
	if v == nil {
		return notAvailable
	}

	return fmt.Sprintf("%d", *v)
}
