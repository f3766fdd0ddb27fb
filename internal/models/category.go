// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "github.com/google/uuid"

// Category groups ads. An ad has at most one category.
type Category struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}
