// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolationOnPostgres(t *testing.T) {
	keyErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "groups_confirmation_key_key"})
	nameErr := &pq.Error{Code: "23505", Constraint: "groups_name_key"}
	fkErr := &pq.Error{Code: "23503", Constraint: "groups_user_id_fkey"}

	tests := []struct {
		name   string
		err    error
		column string
		want   bool
	}{
		{"key collision", keyErr, "confirmation_key", true},
		{"key collision is not a name clash", keyErr, "name", false},
		{"name clash", nameErr, "name", true},
		{"name clash is not a key collision", nameErr, "confirmation_key", false},
		{"other constraint", fkErr, "user_id", false},
		{"plain error", errors.New("boom"), "name", false},
		{"nil", nil, "name", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueViolationOn(tt.err, "groups", tt.column))
		})
	}
}
