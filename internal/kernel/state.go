package kernel

import "fmt"

// State is the lifecycle tag of a process slot.
type State int

const (
	Unused State = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie

	numStates
)

var stateNames = [numStates]string{
	Unused:   "unused",
	Embryo:   "embryo",
	Sleeping: "sleep",
	Runnable: "runble",
	Running:  "run",
	Zombie:   "zombie",
}

// String returns the short state name used by ps and the dump commands.
func (s State) String() string {
	if s < 0 || s >= numStates {
		return "???"
	}
	return stateNames[s]
}

// ParseState accepts either the short name ("runble") or the long one
// ("runnable", "sleeping", "running").
func ParseState(name string) (State, error) {
	switch name {
	case "unused", "free":
		return Unused, nil
	case "embryo":
		return Embryo, nil
	case "sleep", "sleeping":
		return Sleeping, nil
	case "runble", "runnable", "ready":
		return Runnable, nil
	case "run", "running":
		return Running, nil
	case "zombie":
		return Zombie, nil
	}
	return 0, fmt.Errorf("unknown process state %q", name)
}
