package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

func ptr(s string) *string { return &s }

func TestPatchNormalize(t *testing.T) {
	p := Patch{Name: ptr("  Bob  "), Email: ptr("   ")}.normalize()

	assert.Equal(t, "Bob", *p.Name)
	assert.Nil(t, p.Email)
	assert.False(t, p.empty())
	assert.True(t, Patch{Name: ptr(""), Email: nil}.normalize().empty())
}

func TestMerge(t *testing.T) {
	current := models.User{ID: "u-1", Name: "Alice", Email: "alice@example.com"}

	assert.Equal(t, current, merge(current, Patch{}))

	got := merge(current, Patch{Email: ptr("new@example.com")})
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "alice@example.com", current.Email, "merge must not mutate its input")
}

func TestPatchFromRequest(t *testing.T) {
	p := PatchFromRequest(models.UpdateUserRequest{Name: ptr("Zed")})
	assert.Equal(t, "Zed", *p.Name)
	assert.Nil(t, p.Email)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"name": "Name is required", "email": "Email is required"}}
	assert.Equal(t, "invalid fields: email: Email is required; name: Name is required", err.Error())
}

func TestComplete(t *testing.T) {
	assert.True(t, complete("id", "name", "a@b.c"))
	assert.False(t, complete("", "name", "a@b.c"))
	assert.False(t, complete("id", " ", "a@b.c"))
	assert.False(t, complete("id", "name", ""))
}
