package user

import (
	"strings"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Patch is a partial update. A nil field is absent; a field holding only
// whitespace is treated as absent too, so blanks never overwrite stored data.
type Patch struct {
	Name  *string
	Email *string
}

// PatchFromRequest converts the HTTP body into a Patch.
func PatchFromRequest(req models.UpdateUserRequest) Patch {
	return Patch{Name: req.Name, Email: req.Email}
}

// normalize trims supplied fields and drops the blank ones.
func (p Patch) normalize() Patch {
	return Patch{Name: trimmed(p.Name), Email: trimmed(p.Email)}
}

func (p Patch) empty() bool {
	return p.Name == nil && p.Email == nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// merge returns a copy of current with the supplied patch fields applied.
func merge(current models.User, p Patch) models.User {
	next := current
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Email != nil {
		next.Email = *p.Email
	}
	return next
}
