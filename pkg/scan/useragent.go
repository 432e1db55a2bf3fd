// Copyright 2025 The Tracehound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan

import (
	"math/rand"
	"sync"
)

// userAgents is a small set of realistic desktop and mobile strings. One
// is chosen per request from a per-scan seeded sequence, so a scan's
// header pattern is reproducible under a fixed seed.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

type agentPicker struct {
	mtx sync.Mutex
	rnd *rand.Rand
}

func newAgentPicker(seed int64) *agentPicker {
	return &agentPicker{rnd: rand.New(rand.NewSource(seed))}
}

func (a *agentPicker) pick() string {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return userAgents[a.rnd.Intn(len(userAgents))]
}
