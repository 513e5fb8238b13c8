package analyzer

import "time"

// Kind discriminates the six possible outcomes of analyzing a project
// against its inputs, its upstream outputs, and the walk's BuildContext.
// Treat this as a closed sum type: every switch over Kind should end in a
// default that panics, standing in for Go's lack of a compiler-enforced
// exhaustiveness check.
type Kind int

const (
	// Unbuildable: an input file is missing or parsing failed.
	Unbuildable Kind = iota
	// UpToDate: no action needed.
	UpToDate
	// PseudoUpToDate: upstream outputs changed mtimes but not semantic
	// content; a cheap touch-forward suffices.
	PseudoUpToDate
	// Missing: an expected output is absent.
	Missing
	// OutOfDate: some input or upstream file is newer than some output.
	OutOfDate
	// OlderThanDependency: an upstream project is itself scheduled to
	// rebuild (relevant during --dry, where its outputs haven't actually
	// been refreshed yet so their on-disk mtimes can't be trusted).
	OlderThanDependency
)

func (k Kind) String() string {
	switch k {
	case Unbuildable:
		return "Unbuildable"
	case UpToDate:
		return "UpToDate"
	case PseudoUpToDate:
		return "PseudoUpToDate"
	case Missing:
		return "Missing"
	case OutOfDate:
		return "OutOfDate"
	case OlderThanDependency:
		return "OlderThanDependency"
	default:
		panic("analyzer: unhandled Kind in String()")
	}
}

// Status is the outcome of analyzing one project. Only the fields relevant
// to Kind are populated; treat the others as zero values.
type Status struct {
	Kind Kind

	// NewestInput is set for UpToDate and PseudoUpToDate.
	NewestInput time.Time

	// MissingPath is set for Missing.
	MissingPath string

	// NewerInput/NewerInputTime/OlderOutput/OlderOutputTime are set for
	// OutOfDate.
	NewerInput      string
	NewerInputTime  time.Time
	OlderOutput     string
	OlderOutputTime time.Time

	// DependencyProject is set for OlderThanDependency.
	DependencyProject string

	// Reason is a single human-readable line describing the transition,
	// suitable for a one-line-per-project log entry.
	Reason string
}

func upToDate(newest time.Time) Status {
	return Status{Kind: UpToDate, NewestInput: newest, Reason: "project is up to date"}
}

func pseudoUpToDate(newest time.Time) Status {
	return Status{Kind: PseudoUpToDate, NewestInput: newest, Reason: "upstream declarations unchanged; pseudo-build suffices"}
}

func missing(path string) Status {
	return Status{Kind: Missing, MissingPath: path, Reason: "output " + path + " does not exist"}
}

func outOfDate(newerInput string, newerInputTime time.Time, olderOutput string, olderOutputTime time.Time) Status {
	return Status{
		Kind:            OutOfDate,
		NewerInput:      newerInput,
		NewerInputTime:  newerInputTime,
		OlderOutput:     olderOutput,
		OlderOutputTime: olderOutputTime,
		Reason:          newerInput + " is newer than output " + olderOutput,
	}
}

func olderThanDependency(dep string) Status {
	return Status{Kind: OlderThanDependency, DependencyProject: dep, Reason: "depends on " + dep + " which is scheduled to rebuild"}
}

func unbuildable(reason string) Status {
	return Status{Kind: Unbuildable, Reason: reason}
}
