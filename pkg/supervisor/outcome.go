package supervisor

// Outcome is the final classification of a backup run.
type Outcome string

const (
	// Success means rsync exited 0 with no timeout having fired.
	Success Outcome = "success"

	// Failure means rsync exited nonzero, or the run failed in an
	// unexpected way.
	Failure Outcome = "failure"

	// TimeExpired means the wall-clock limit fired. It takes precedence
	// over the child's eventual exit code, even a successful one.
	TimeExpired Outcome = "time-expired"

	// Interrupted means a termination signal was relayed to the child and
	// the child then exited nonzero.
	Interrupted Outcome = "interrupted"
)

// ExitCode maps the outcome to the process exit code for scripting callers.
func (outcome Outcome) ExitCode() int {
	switch outcome {
	case Success:
		return 0
	case TimeExpired:
		return 2
	case Interrupted:
		return 3
	default:
		return 1
	}
}
