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

package fingerprint

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateIsStable(t *testing.T) {
	t.Parallel()

	first := Generate()
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), first)
	require.Equal(t, first, Generate())
	require.Equal(t, first[:8], Short())
}
