package halengine

import (
	"log/slog"

	"github.com/gogpu/framepace"
)

// slogger returns the logger configured on the root package, so a single
// SetLogger call covers the HAL binding as well.
func slogger() *slog.Logger { return framepace.Logger() }
