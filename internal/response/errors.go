package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrStaffAccessOnly  ErrCode = "STAFF_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidDate    ErrCode = "INVALID_DATE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrConflict          ErrCode = "CONFLICT"
	ErrDependencyExists  ErrCode = "DEPENDENCY_EXISTS"
	ErrReferenceNotFound ErrCode = "REFERENCE_NOT_FOUND"
	ErrActionForbidden   ErrCode = "ACTION_FORBIDDEN"

	// ─── Document lifecycle ────────────────────────────────────────────
	ErrInvalidState ErrCode = "INVALID_STATE"
	ErrNotEditable  ErrCode = "DOCUMENT_NOT_EDITABLE"

	// ─── Domain rules ──────────────────────────────────────────────────
	ErrScheduleConflict  ErrCode = "SCHEDULE_CONFLICT"
	ErrInsufficientStock ErrCode = "INSUFFICIENT_STOCK"
	ErrCapacityExceeded  ErrCode = "CLASS_CAPACITY_EXCEEDED"
	ErrRetryExhausted    ErrCode = "RETRY_LIMIT_REACHED"

	// ─── Reports & jobs ────────────────────────────────────────────────
	ErrUnknownReport ErrCode = "UNKNOWN_REPORT"
	ErrUnknownJob    ErrCode = "UNKNOWN_JOB"
	ErrJobRunning    ErrCode = "JOB_ALREADY_RUNNING"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
// Messages are in French, the working language of the school staff.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email ou mot de passe incorrect."
	case ErrTokenRequired:
		return "Jeton d'authentification requis."
	case ErrTokenInvalid:
		return "Jeton d'authentification invalide."
	case ErrTokenExpired:
		return "Votre session a expiré, veuillez vous reconnecter."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Accès refusé."
	case ErrPermissionDenied:
		return "Vous n'avez pas la permission d'effectuer cette action."
	case ErrStaffAccessOnly:
		return "Cette ressource est réservée au personnel de l'établissement."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Les données envoyées sont invalides."
	case ErrInvalidID:
		return "Identifiant invalide."
	case ErrInvalidPayload:
		return "Format de la requête invalide."
	case ErrInvalidDate:
		return "Date invalide, format attendu AAAA-MM-JJ."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Aucun fichier envoyé."
	case ErrUnsupportedFile:
		return "Type de fichier non pris en charge."
	case ErrFileTooLarge:
		return "Le fichier dépasse la taille autorisée."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Ressource introuvable."
	case ErrConflict:
		return "Un enregistrement identique existe déjà."
	case ErrDependencyExists:
		return "Impossible de supprimer : des enregistrements liés existent."
	case ErrReferenceNotFound:
		return "Un enregistrement référencé est introuvable."
	case ErrActionForbidden:
		return "Action non autorisée."

	// ─── Document lifecycle ────────────────────────────────────────────
	case ErrInvalidState:
		return "Cette action n'est pas possible dans l'état actuel du document."
	case ErrNotEditable:
		return "Un document validé ne peut plus être modifié."

	// ─── Domain rules ──────────────────────────────────────────────────
	case ErrScheduleConflict:
		return "Conflit d'emploi du temps."
	case ErrInsufficientStock:
		return "Stock insuffisant."
	case ErrCapacityExceeded:
		return "La capacité de la classe est atteinte."
	case ErrRetryExhausted:
		return "Nombre maximal de tentatives atteint."

	// ─── Reports & jobs ────────────────────────────────────────────────
	case ErrUnknownReport:
		return "Rapport inconnu."
	case ErrUnknownJob:
		return "Tâche planifiée inconnue."
	case ErrJobRunning:
		return "Cette tâche est déjà en cours d'exécution."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Trop de requêtes, veuillez réessayer plus tard."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Une erreur interne est survenue."
	default:
		return "Une erreur inconnue est survenue."
	}
}
