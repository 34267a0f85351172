// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker_test

import "strconv"

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
