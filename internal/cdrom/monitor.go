package cdrom

import "context"

// Handler is called with the device path of a newly inserted disc.
type Handler func(ctx context.Context, device string) error
