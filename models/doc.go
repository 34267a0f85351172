// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - Group: a registered team and its run timestamps
  - Station: a checkpoint on the route
  - GroupStation: progress of one group at one station
  - Form, FormScore: questionnaires and their per-group score
  - Message: comment thread entry attached to a group
  - User: login identity with roles
  - Setting: event-wide key/value configuration

# Progress States

	StateUnknown  = 0
	StateArrived  = 1
	StateFinished = 2

State.Next implements the cycle used by station staff:

	unknown → arrived → finished → unknown

# Directions

	DirA = "Giel"
	DirB = "Roud"

# Roles

	RoleAdmin = "admin"
	RoleStaff = "staff"
*/
package models
