// Package console provides the console capability interface.
//
// # Overview
//
// An interpreter never talks to a terminal directly. It talks to a Console:
//
//	Print(text)            write at the cursor and advance
//	Clear()                blank the screen, cursor home
//	MoveCursor(row, col)   clamp into the viewport
//	SetColor(fg, bg)       palette indexes for later prints
//	ReadKey(ctx)           the single suspension point
//	Size()                 latest (rows, cols)
//
// Two families of backend implement it. The native adapter in package
// native blocks the calling goroutine inside the terminal library until a
// key arrives. The web adapter in package web parks the caller on a
// channel and resumes it from a one-shot widget callback. Both report
// failures as *Error values that match ErrIoFailure, ErrUnsupported or
// ErrDisconnected.
//
// # Testing
//
// Memory is a Console backed by Buffer, the same grid the native adapter
// mirrors its screen with, and a scripted key queue.
package console
