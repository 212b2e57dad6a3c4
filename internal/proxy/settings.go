// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import (
	"fmt"
	"sort"

	"weir/internal/config"
)

// extractVal removes and returns a required key from settings, erroring if
// absent. Each modifier consumes the keys it understands; whatever is left
// afterward is an operator typo and ensureEmpty should reject it.
func extractVal(key string, settings config.FilterSetting) (string, error) {
	v, ok := settings[key]
	if !ok {
		return "", fmt.Errorf("proxy: missing required setting %q", key)
	}
	delete(settings, key)
	return v, nil
}

// ensureEmpty rejects any settings keys a modifier did not consume, so a
// misspelled key fails at construction instead of silently doing nothing.
func ensureEmpty(settings config.FilterSetting) error {
	if len(settings) == 0 {
		return nil
	}
	leftover := make([]string, 0, len(settings))
	for k := range settings {
		leftover = append(leftover, k)
	}
	sort.Strings(leftover)
	return fmt.Errorf("proxy: unexpected settings keys %v", leftover)
}

// cloneSettings returns a shallow copy of settings so callers can mutate
// (extractVal deletes) without affecting the configuration record other
// services may still read.
func cloneSettings(settings config.FilterSetting) config.FilterSetting {
	out := make(config.FilterSetting, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}
