package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsReq struct {
	VectorPercentage *int   `json:"vectorPercentage" binding:"omitempty,min=0,max=100"`
	Prompt           string `json:"prompt" binding:"required,notblank"`
	File             string `json:"file" binding:"omitempty,filename"`
	Key              string `json:"key" binding:"nowhitespace"`
}

func intPtr(v int) *int { return &v }

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&settingsReq{VectorPercentage: intPtr(40), Prompt: "hi", File: "notes.md", Key: "sk-1"})
	assert.NoError(t, err)
}

func TestValidate_Errors(t *testing.T) {
	v := New()
	err := v.Validate(&settingsReq{VectorPercentage: intPtr(150), Prompt: "   ", File: "../etc/passwd", Key: "a b"})
	require.Error(t, err)

	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs.Errors, 4)

	fields := map[string]string{}
	for _, fe := range verrs.Errors {
		fields[fe.Field] = fe.Tag
	}
	assert.Equal(t, "max", fields["vectorPercentage"])
	assert.Equal(t, "notblank", fields["prompt"])
	assert.Equal(t, "filename", fields["file"])
	assert.Equal(t, "nowhitespace", fields["key"])
	assert.Contains(t, err.Error(), "validation failed: ")
	assert.Equal(t, "prompt must not be blank", findMsg(verrs, "prompt"))
}

func TestValidateWithLang_Chinese(t *testing.T) {
	v := New()
	err := v.ValidateWithLang(&settingsReq{Prompt: " "}, LangZH)

	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "prompt不能为空白", verrs.First())
}

func TestValidateVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateVar("report.pdf", "filename"))
	assert.Error(t, v.ValidateVar("dir/report.pdf", "filename"))
}

func TestTranslate_PassThrough(t *testing.T) {
	v := New()
	assert.NoError(t, v.Translate(nil, LangEN))
	plain := errors.New("plain")
	assert.Equal(t, plain, v.Translate(plain, LangEN))
}

func TestGlobal(t *testing.T) {
	original := Global()
	require.NotNil(t, original)
	assert.Same(t, original, Global())

	custom := New()
	SetGlobal(custom)
	assert.Same(t, custom, Global())
	SetGlobal(original)
}

func TestGinValidator(t *testing.T) {
	g := NewGinValidator(New())
	assert.NoError(t, g.ValidateStruct(nil))
	assert.NoError(t, g.ValidateStruct("not a struct"))
	assert.Error(t, g.ValidateStruct(&settingsReq{}))
	assert.NotNil(t, g.Engine())
}

func findMsg(e *ValidationErrors, field string) string {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}
