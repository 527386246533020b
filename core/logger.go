package core

// Logger reports messages and errors. Args may hold errors, extra data maps and a Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the authenticated user a log entry is about.
type Person struct {
	ID    string
	Name  string
	Email string
}
