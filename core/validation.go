// Copyright 2025 Poiesic Systems
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


package core

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the minimum shared run between adjacent chunks.
	DefaultChunkOverlap = 150
	// DefaultK is the retrieval depth used by the chat front end.
	DefaultK = 10
	// MaxK is the largest retrieval depth accepted.
	MaxK = 25
)

// ValidateChunkParams checks splitter parameters.
//
// Validation rules:
//   - size must be positive
//   - overlap must be positive and strictly less than size
func ValidateChunkParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidChunkParams, size)
	}
	if overlap <= 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d must be in (0, %d)", ErrInvalidChunkParams, overlap, size)
	}
	return nil
}

// ValidateK checks a retrieval depth against [1, MaxK].
func ValidateK(k int) error {
	if k < 1 || k > MaxK {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidK, k, MaxK)
	}
	return nil
}

// ValidateQuestion rejects blank chat input.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
