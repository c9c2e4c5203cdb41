// Package unit resolves, constructs and invokes the loadable units of a
// junction application (controllers, models, workers and assemblies) and runs
// the configured lifecycle hooks around each invocation.
//
// Units are never located by reflection over the program: the application
// registers a constructor for every unit in a Registry at startup, and a
// Resolver maps a logical name such as "admin-user" onto that registration and
// onto the conventional source file the unit lives in.
package unit

import "fmt"

// Kind is one of the four categories of loadable unit.
type Kind uint8

const (
	Controller Kind = iota
	Model
	Worker
	Assembly
)

var kindNames = [...]string{
	Controller: "controller",
	Model:      "model",
	Worker:     "worker",
	Assembly:   "assembly",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind { return []Kind{Controller, Model, Worker, Assembly} }

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unit kind %q", s)
}
