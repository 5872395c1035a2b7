package github

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOwnerRepo(t *testing.T) {
	tests := []struct {
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/octocat/widget", "octocat", "widget", true},
		{"https://github.com/octocat/widget.git", "octocat", "widget", true},
		{"http://github.com/a/b", "a", "b", true},
		{"https://github.com/octocat", "", "", false},
		{"not-a-url", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		owner, repo, err := ExtractOwnerRepo(tt.url)
		if tt.ok {
			require.NoError(t, err, tt.url)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		} else {
			assert.Error(t, err, tt.url)
		}
	}
}

func TestIsCredentialError(t *testing.T) {
	assert.True(t, isCredentialError(errors.New("graphql: server returned a non-200 status code: 401")))
	assert.True(t, isCredentialError(errors.New("graphql: Bad credentials")))
	assert.False(t, isCredentialError(errors.New("dial tcp: connection refused")))
}
