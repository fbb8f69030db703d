package notification

import "errors"

var ErrInvalidQuietHours = errors.New("quiet hours must be paired hours between 0 and 23")
