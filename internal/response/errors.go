package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam bank ─────────────────────────────────────────────────────
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrExamNotPublished ErrCode = "EXAM_NOT_PUBLISHED"
	ErrExamNotDraft     ErrCode = "EXAM_NOT_DRAFT"
	ErrInvalidExam      ErrCode = "INVALID_EXAM"

	// ─── Live exams ────────────────────────────────────────────────────
	ErrExamAlreadyLive ErrCode = "EXAM_ALREADY_LIVE"
	ErrExamNotLive     ErrCode = "EXAM_NOT_LIVE"
	ErrExamExempted    ErrCode = "EXAM_EXEMPTED"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrNoActiveAttempt   ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptInProgress ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrInvalidPhase      ErrCode = "INVALID_PHASE"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrSubmissionHandOff ErrCode = "SUBMISSION_FAILED"

	// ─── Results ───────────────────────────────────────────────────────
	ErrScoreOutOfRange ErrCode = "SCORE_OUT_OF_RANGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid credentials."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam bank ─────────────────────────────────────────────────────
	case ErrExamNotFound:
		return "Invalid or missing exam link."
	case ErrExamNotPublished:
		return "Only published exams can go live."
	case ErrExamNotDraft:
		return "This exam is not in Draft status."
	case ErrInvalidExam:
		return "This exam is misconfigured and cannot be taken."

	// ─── Live exams ────────────────────────────────────────────────────
	case ErrExamAlreadyLive:
		return "This exam is already live."
	case ErrExamNotLive:
		return "This exam is not live for your class."
	case ErrExamExempted:
		return "You have been exempted from this exam."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrNoActiveAttempt:
		return "You have no exam in progress."
	case ErrAttemptInProgress:
		return "Finish your current exam before starting another."
	case ErrInvalidPhase:
		return "That action is not available at this stage of the exam."
	case ErrInvalidOption:
		return "Please choose one of the listed options."
	case ErrUnknownQuestion:
		return "That question is not part of this exam."
	case ErrSubmissionHandOff:
		return "Your answers could not be saved yet. Please submit again."

	// ─── Results ───────────────────────────────────────────────────────
	case ErrScoreOutOfRange:
		return "CA must be between 0 and 40 and Exam between 0 and 60."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
