package cmd

import "errors"

// errNegativeTimeout indicates a timeout flag was given a negative duration.
var errNegativeTimeout = errors.New("please specify non-negative values for timeouts")

// errInvalidAPIHost indicates http-api-host is neither empty nor an IP address.
var errInvalidAPIHost = errors.New("http-api-host must be empty or a valid IP address (IPv4 or IPv6)")
