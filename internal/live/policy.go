package live

// ExemptionPolicy decides whether a student may start a live exam.
type ExemptionPolicy interface {
	AllowAttempt(entry Entry, studentID int) bool
}

type ignoreExemptions struct{}

func (ignoreExemptions) AllowAttempt(Entry, int) bool { return true }

type enforceExemptions struct{}

func (enforceExemptions) AllowAttempt(entry Entry, studentID int) bool {
	return !entry.IsExempt(studentID)
}

var (
	// IgnoreExemptions lets every student of the class in. Exemptions stay
	// recorded on the entry. This is the default.
	IgnoreExemptions ExemptionPolicy = ignoreExemptions{}
	// EnforceExemptions refuses exempted students.
	EnforceExemptions ExemptionPolicy = enforceExemptions{}
)

// PolicyFor maps the ENFORCE_EXEMPTIONS switch to a policy.
func PolicyFor(enforce bool) ExemptionPolicy {
	if enforce {
		return EnforceExemptions
	}
	return IgnoreExemptions
}
