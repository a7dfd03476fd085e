package github_test

import (
	"errors"
	"net/http"
	"testing"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/git_gateway/githost"
	ghhost "github.com/byte4ever/git_gateway/githost/github"
)

func ghError(status int) error {
	return &gh.ErrorResponse{
		Response: &http.Response{
			StatusCode: status,
		},
		Message: http.StatusText(status),
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "404 maps to the given sentinel",
			err:  ghError(http.StatusNotFound),
			want: githost.ErrRefNotFound,
		},
		{
			name: "401 maps to unavailable",
			err:  ghError(http.StatusUnauthorized),
			want: githost.ErrUnavailable,
		},
		{
			name: "403 maps to unavailable",
			err:  ghError(http.StatusForbidden),
			want: githost.ErrUnavailable,
		},
		{
			name: "transport error maps to unavailable",
			err:  errors.New("dial tcp: timeout"),
			want: githost.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ghhost.ClassifyForTest(
				"testing",
				tt.err,
				githost.ErrRefNotFound,
			)

			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestClassify_unexpectedStatusKeepsError(
	t *testing.T,
) {
	t.Parallel()

	src := ghError(http.StatusBadGateway)

	got := ghhost.ClassifyForTest(
		"testing", src, githost.ErrNotFound,
	)

	assert.NotErrorIs(t, got, githost.ErrNotFound)
	assert.ErrorContains(t, got, "testing")
}
