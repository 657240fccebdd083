package models

type Role string

const (
	RoleJob Role = "job"
	RoleCV  Role = "cv"
)

// FieldName returns the transport field carrying the document.
func (r Role) FieldName() string {
	if r == RoleJob {
		return "jobDescription"
	}
	return string(r)
}

// EncodedDocument is a base64 encoded PDF tagged with its role.
type EncodedDocument struct {
	Role Role
	Data string
}

type ExtractedText struct {
	Role Role
	Text string
}
