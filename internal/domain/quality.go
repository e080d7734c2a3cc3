package domain

// Quality is the learner's self-reported recall score.
// Schedulers accept any value; range checks belong to whoever collects it.
type Quality int

const (
	Blackout      Quality = 1 // complete blackout
	Incorrect     Quality = 2 // incorrect, the correct one remembered
	IncorrectEasy Quality = 3 // incorrect, but the correct one seemed easy to recall
	CorrectHard   Quality = 4 // correct, recalled with serious difficulty
	Perfect       Quality = 5
)

// Valid reports whether q is on the 1-5 scale.
func (q Quality) Valid() bool {
	return q >= Blackout && q <= Perfect
}

// Passed reports whether q counts as a successful recall for SM-2.
func (q Quality) Passed() bool {
	return q >= IncorrectEasy
}
