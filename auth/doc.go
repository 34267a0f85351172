// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential checks and key generation.

# Confirmation Keys

Every registration receives a random 20-character key:

	key, err := auth.GenerateConfirmationKey()

Keys are base64 encoded with "/" removed so they fit in a URL path.
Collisions are handled by the caller, which regenerates until the key
is unused.

# Passwords

User passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(hash, password)

# Device Credentials

The station app authenticates with a single shared login from the
configuration (DEVICE_LOGIN / DEVICE_PASSWORD):

	err := auth.CheckDeviceCredentials(login, password, cfg.DeviceLogin, cfg.DevicePassword)

Comparison is constant-time. Unset credentials never match.
*/
package auth
