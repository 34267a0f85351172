// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tracker implements the event logic of lost-tracker on top of the
SQL schema in package db.

# Progress

Each (group, station) pair carries a GroupStation row, created lazily the
first time a state or score is written. Station staff move groups through

	unknown → arrived → finished → unknown

with Advance. Arriving at the start station stamps the group's departure
time, finishing at the end station stamps its finish time and marks it as
completed.

# Scores

ScoreTotals adds station scores, form scores stored on progress rows and
questionnaire scores per group. Scoreboard ranks the totals; BuildMatrix
and Dashboard give the grid and per-station views.

# Notifications

Registration, group updates and messages notify admins and group owners
through a notify.Notifier. Delivery failures are logged and never fail the
operation that triggered them.
*/
package tracker
