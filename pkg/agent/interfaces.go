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

package agent

//go:generate mockgen -destination=mock_agent.go -package=agent github.com/carverauto/penistats/pkg/agent Sampler,Connector,Clock,Ticker

import (
	"context"
	"time"

	"github.com/carverauto/penistats/pkg/settings"
	"github.com/carverauto/penistats/pkg/sysmetrics"
)

// Sampler reads one metric snapshot.
type Sampler interface {
	Sample(ctx context.Context) sysmetrics.Snapshot
}

// Connector delivers to a single destination. A nil error means delivered.
type Connector interface {
	PublishSnapshot(ctx context.Context, dest *settings.BrokerDestination,
		dev *settings.DeviceIdentity, snap *sysmetrics.Snapshot) error
	PublishDeclaration(ctx context.Context, dest *settings.BrokerDestination,
		dev *settings.DeviceIdentity, decls []sysmetrics.Declaration) error
}

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}
