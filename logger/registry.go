package logger

import "sync"

// components maps a component name to its *Logger.
var components sync.Map

// Register stores the logger handed out by Get(name).
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger registered for name. Unregistered names get the
// current global logger tagged with the component name.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults registers a component logger derived from the global
// logger for each name. Call it after Init so the components built
// afterwards log with the configured level and format.
func RegisterDefaults(names ...string) {
	global := GetGlobalLogger()
	for _, name := range names {
		Register(name, global.WithComponent(name))
	}
}
