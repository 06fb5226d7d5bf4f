// Package log provides the leveled logging used by the graph engine and the
// text-analysis pipeline. The zero-configuration default logs warnings and
// errors to stderr; NewGologLogger adapts a kataras/golog logger for richer
// terminal output.
package log
