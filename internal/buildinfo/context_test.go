package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextGetters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ctx      *Context
		version  string
		date     string
		revision string
	}{
		{"nil context", nil, UnknownValue, UnknownValue, UnknownValue},
		{"empty context", &Context{}, UnknownValue, UnknownValue, UnknownValue},
		{
			name:     "populated",
			ctx:      &Context{Version: "1.0.0-beta.1", BuildDate: "2026-01-01", Revision: "0123456789abcdef"},
			version:  "1.0.0-beta.1",
			date:     "2026-01-01",
			revision: "0123456789ab",
		},
		{
			name:     "short revision",
			ctx:      &Context{Revision: "abc"},
			version:  UnknownValue,
			date:     UnknownValue,
			revision: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.date, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.revision, tt.ctx.GetRevision())
		})
	}
}

func TestNewContextKeepsInjectedValues(t *testing.T) {
	t.Parallel()
	c := NewContext("2.0.0", "2026-10-17")
	assert.Equal(t, "2.0.0", c.GetVersion())
	assert.Equal(t, "2026-10-17", c.GetBuildDate())
}
