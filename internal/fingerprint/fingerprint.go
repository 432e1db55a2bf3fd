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

// Package fingerprint derives the stable device identity a licence is
// bound to.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/user"
	"runtime"
	"strings"
	"sync"
)

var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

var (
	once   sync.Once
	cached string
)

// Generate returns the device fingerprint: a sha256 over the machine
// id, hostname, OS user and platform. It is stable across runs on one
// machine and never empty.
func Generate() string {
	once.Do(func() {
		parts := []string{
			machineID(),
			hostname(),
			osUser(),
			runtime.GOOS,
			runtime.GOARCH,
		}
		sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
		cached = hex.EncodeToString(sum[:])
	})
	return cached
}

// Short returns the first eight hex characters for display.
func Short() string {
	return Generate()[:8]
}

func machineID() string {
	for _, p := range machineIDPaths {
		if b, err := os.ReadFile(p); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return ""
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return h
}

func osUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown-user"
}
