package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/git_gateway/gateway"
)

func TestRenderPRBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{
			name: "all variables",
			tmpl: "{{title}}: {{head}} -> {{base}}",
			want: "Add widget: topic -> main",
		},
		{
			name: "no variables",
			tmpl: "static body",
			want: "static body",
		},
		{
			name: "unknown variable renders empty",
			tmpl: "by {{author}} on {{base}}",
			want: "by  on main",
		},
		{
			name: "repeated variable",
			tmpl: "{{head}} {{head}}",
			want: "topic topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := gateway.RenderPRBodyForTest(
				tt.tmpl,
				"Add widget", "topic", "main",
			)

			assert.Equal(t, tt.want, got)
		})
	}
}
