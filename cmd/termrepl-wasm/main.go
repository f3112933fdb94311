//go:build js && wasm

// Command termrepl-wasm runs a termrepl session inside the browser. The
// hosting page creates an xterm.js Terminal, stores it in the global
// termreplTerminal and then starts this module.
package main

import (
	"context"
	"errors"
	"syscall/js"

	"github.com/dshills/termrepl/internal/basic"
	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/console/web"
	"github.com/dshills/termrepl/internal/logging"
	"github.com/dshills/termrepl/internal/repl"
	"github.com/dshills/termrepl/internal/storage"
)

// Build information (set via ldflags during build).
var (
	version = "dev"
	buildID = "unknown"
)

func main() {
	js.Global().Set("termreplBuildID", js.FuncOf(func(js.Value, []js.Value) any {
		return buildID
	}))

	logger := logging.Default().WithComponent("wasm")
	term := js.Global().Get("termreplTerminal")
	if term.IsUndefined() || term.IsNull() {
		logger.Error("termreplTerminal is not set")
		return
	}

	widget := web.NewJSWidget(term)
	defer widget.Close()
	adapter := web.NewAdapter(widget)

	interp := basic.New(
		basic.WithDrive(storage.NewMemoryDrive()),
		basic.WithLogger(logger),
	)
	defer interp.Close()

	err := repl.RunLoop(context.Background(), adapter, interp,
		repl.WithBanner("termrepl "+version+"\nType HELP for statements.\n"),
		repl.WithLogger(logger),
	)
	var exit *repl.ExitError
	switch {
	case err == nil, errors.Is(err, console.ErrDisconnected):
		logger.Info("session ended")
	case errors.As(err, &exit):
		logger.Info("program exited with code %d", exit.Code)
	default:
		logger.Error("session failed: %v", err)
	}
}
